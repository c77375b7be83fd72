package enums

import "fmt"

// CheckoutStep names the states of the checkout wizard.
type CheckoutStep string

const (
	CheckoutStepCustomerInfo        CheckoutStep = "customer_info"
	CheckoutStepOrderConfirmation   CheckoutStep = "order_confirmation"
	CheckoutStepPayment             CheckoutStep = "payment"
	CheckoutStepSubmitting          CheckoutStep = "submitting"
	CheckoutStepSuccess             CheckoutStep = "success"
	CheckoutStepEligibilityRejected CheckoutStep = "eligibility_rejected"
	CheckoutStepFailure             CheckoutStep = "failure"
)

var validCheckoutSteps = []CheckoutStep{
	CheckoutStepCustomerInfo,
	CheckoutStepOrderConfirmation,
	CheckoutStepPayment,
	CheckoutStepSubmitting,
	CheckoutStepSuccess,
	CheckoutStepEligibilityRejected,
	CheckoutStepFailure,
}

// IsTerminal reports whether the step ends the checkout session.
func (c CheckoutStep) IsTerminal() bool {
	switch c {
	case CheckoutStepSuccess, CheckoutStepEligibilityRejected, CheckoutStepFailure:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (c CheckoutStep) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutStep.
func (c CheckoutStep) IsValid() bool {
	for _, candidate := range validCheckoutSteps {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCheckoutStep converts raw input into a CheckoutStep.
func ParseCheckoutStep(value string) (CheckoutStep, error) {
	for _, candidate := range validCheckoutSteps {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout step %q", value)
}
