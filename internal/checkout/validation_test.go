package checkout

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vinavax/vinavax-backend/pkg/enums"
	pkgerrors "github.com/vinavax/vinavax-backend/pkg/errors"
)

func validInfo() CustomerInfo {
	return CustomerInfo{
		FullName:      "Tran Thi B",
		Phone:         "0912 345 678",
		Email:         "b@example.com",
		DateOfBirth:   time.Date(1995, 7, 1, 0, 0, 0, 0, time.UTC),
		Address:       "45 Nguyen Hue, Q1, TP.HCM",
		PaymentMethod: enums.PaymentMethodMoMo,
	}
}

func TestValidateCustomerInfo_Valid(t *testing.T) {
	if err := ValidateCustomerInfo(validInfo(), false, nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateCustomerInfo_Violations(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CustomerInfo)
	}{
		{"emptyName", func(info *CustomerInfo) { info.FullName = "  " }},
		{"badEmail", func(info *CustomerInfo) { info.Email = "b@nodot" }},
		{"shortPhone", func(info *CustomerInfo) { info.Phone = "091234" }},
		{"longPhone", func(info *CustomerInfo) { info.Phone = "091234567890" }},
		{"futureDOB", func(info *CustomerInfo) { info.DateOfBirth = time.Now().AddDate(1, 0, 0) }},
		{"badMethod", func(info *CustomerInfo) { info.PaymentMethod = "cheque" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info := validInfo()
			tc.mutate(&info)
			err := ValidateCustomerInfo(info, false, nil)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestValidateCustomerInfo_PhoneWhitespaceStripped(t *testing.T) {
	info := validInfo()
	info.Phone = " 09 1234\t5678 "
	if err := ValidateCustomerInfo(info, false, nil); err != nil {
		t.Fatalf("expected whitespace-stripped phone to pass, got %v", err)
	}
}

func TestValidateCustomerInfo_AdminVariant(t *testing.T) {
	info := validInfo()

	err := ValidateCustomerInfo(info, true, nil)
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatal("expected rejection without location and lines")
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	violations, ok := details["violations"].([]FieldViolation)
	if !ok || len(violations) != 2 {
		t.Fatalf("expected location and lines violations, got %v", details["violations"])
	}

	locationID := uuid.New()
	info.PreferredLocationID = &locationID
	lines := []Line{{VaccineID: uuid.New(), Quantity: 1}}
	if err := ValidateCustomerInfo(info, true, lines); err != nil {
		t.Fatalf("expected admin info to pass, got %v", err)
	}
}
