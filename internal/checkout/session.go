package checkout

import (
	"time"

	"github.com/google/uuid"

	order "github.com/vinavax/vinavax-backend/internal/orders"
	"github.com/vinavax/vinavax-backend/pkg/enums"
)

// Step identifies where a checkout session sits in the wizard.
type Step = enums.CheckoutStep

const (
	StepCustomerInfo        = enums.CheckoutStepCustomerInfo
	StepOrderConfirmation   = enums.CheckoutStepOrderConfirmation
	StepPayment             = enums.CheckoutStepPayment
	StepSubmitting          = enums.CheckoutStepSubmitting
	StepSuccess             = enums.CheckoutStepSuccess
	StepEligibilityRejected = enums.CheckoutStepEligibilityRejected
	StepFailure             = enums.CheckoutStepFailure
)

// CustomerInfo holds the transient customer fields entered during checkout.
type CustomerInfo struct {
	FullName            string              `json:"fullName"`
	Phone               string              `json:"phone"`
	Email               string              `json:"email"`
	DateOfBirth         time.Time           `json:"dateOfBirth"`
	Address             string              `json:"address"`
	PaymentMethod       enums.PaymentMethod `json:"paymentMethod"`
	PreferredLocationID *uuid.UUID          `json:"preferredLocationId,omitempty"`
}

// Line is one selected service line on an admin-driven checkout.
type Line struct {
	VaccineID uuid.UUID `json:"vaccineId"`
	Quantity  int       `json:"quantity"`
}

// Session is the full wizard state, serialized into one Redis key so a
// failure never loses entered data.
type Session struct {
	ID             uuid.UUID                `json:"id"`
	CustomerRef    string                   `json:"customerRef"`
	Admin          bool                     `json:"admin"`
	Step           Step                     `json:"step"`
	Customer       CustomerInfo             `json:"customer"`
	Lines          []Line                   `json:"lines,omitempty"`
	PromotionCode  string                   `json:"promotionCode,omitempty"`
	SubtotalVND    int64                    `json:"subtotalVnd"`
	DiscountVND    int64                    `json:"discountVnd"`
	PayableVND     int64                    `json:"payableVnd"`
	OrderID        *uuid.UUID               `json:"orderId,omitempty"`
	OrderCode      string                   `json:"orderCode,omitempty"`
	PayURL         string                   `json:"payUrl,omitempty"`
	FailureMessage string                   `json:"failureMessage,omitempty"`
	Eligibility    *order.EligibilityResult `json:"eligibility,omitempty"`
	CreatedAt      time.Time                `json:"createdAt"`
	UpdatedAt      time.Time                `json:"updatedAt"`
}

// Terminal reports whether the session has reached an end state.
func (s *Session) Terminal() bool {
	return s.Step.IsTerminal()
}
