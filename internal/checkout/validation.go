package checkout

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	pkgerrors "github.com/vinavax/vinavax-backend/pkg/errors"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10,11}$`)
)

// FieldViolation exposes the data returned to callers when the entry guard
// rejects a customer-info step.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidateCustomerInfo enforces the guard on the customer-info step. The
// admin variant additionally requires a location and at least one service
// line.
func ValidateCustomerInfo(info CustomerInfo, admin bool, lines []Line) error {
	var violations []FieldViolation
	add := func(field, message string) {
		violations = append(violations, FieldViolation{Field: field, Message: message})
	}

	if strings.TrimSpace(info.FullName) == "" {
		add("fullName", "full name is required")
	}
	if strings.TrimSpace(info.Address) == "" {
		add("address", "address is required")
	}
	if info.DateOfBirth.IsZero() {
		add("dateOfBirth", "date of birth is required")
	} else if info.DateOfBirth.After(time.Now()) {
		add("dateOfBirth", "date of birth is in the future")
	}
	if !emailPattern.MatchString(strings.TrimSpace(info.Email)) {
		add("email", "invalid email address")
	}
	if !phonePattern.MatchString(stripWhitespace(info.Phone)) {
		add("phone", "phone must be 10 to 11 digits")
	}
	if !info.PaymentMethod.IsValid() {
		add("paymentMethod", "invalid payment method")
	}

	if admin {
		if info.PreferredLocationID == nil {
			add("preferredLocationId", "location is required")
		}
		if len(lines) == 0 {
			add("lines", "at least one service line is required")
		}
		for _, line := range lines {
			if line.Quantity <= 0 {
				add("lines", fmt.Sprintf("quantity for %s must be positive", line.VaccineID))
			}
		}
	}

	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("customer info rejected: %d field(s)", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}

func stripWhitespace(value string) string {
	return strings.Join(strings.Fields(value), "")
}
