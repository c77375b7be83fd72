package vaccine

import (
	"context"
	"testing"

	pkgerrors "github.com/vinavax/vinavax-backend/pkg/errors"
)

func TestValidateAgeWindow(t *testing.T) {
	t.Parallel()

	if err := validateAgeWindow(nil, nil); err != nil {
		t.Fatalf("expected nil window to pass, got %v", err)
	}

	minAge, maxAge := 2, 24
	if err := validateAgeWindow(&minAge, &maxAge); err != nil {
		t.Fatalf("expected valid window to pass, got %v", err)
	}

	bad := -1
	if err := validateAgeWindow(&bad, nil); err == nil {
		t.Fatal("expected error for negative min age")
	}

	lo, hi := 36, 12
	err := validateAgeWindow(&lo, &hi)
	if err == nil {
		t.Fatal("expected error for inverted window")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error code, got %v", err)
	}
}

func TestCreateVaccineValidation(t *testing.T) {
	t.Parallel()

	svc := &service{repo: &Repository{}}

	cases := []struct {
		name  string
		input CreateVaccineInput
	}{
		{"missingCode", CreateVaccineInput{Name: "MMR II", PriceVND: 250000}},
		{"missingName", CreateVaccineInput{Code: "MMR", PriceVND: 250000}},
		{"zeroPrice", CreateVaccineInput{Code: "MMR", Name: "MMR II"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateVaccine(context.Background(), tc.input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error code, got %v", err)
			}
		})
	}
}
