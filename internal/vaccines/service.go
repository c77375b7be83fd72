package vaccine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	dbpkg "github.com/vinavax/vinavax-backend/pkg/db"
	"github.com/vinavax/vinavax-backend/pkg/db/models"
	pkgerrors "github.com/vinavax/vinavax-backend/pkg/errors"
)

// Service exposes vaccine catalog operations.
type Service interface {
	CreateVaccine(ctx context.Context, input CreateVaccineInput) (*VaccineDTO, error)
	UpdateVaccine(ctx context.Context, id uuid.UUID, input UpdateVaccineInput) (*VaccineDTO, error)
	DeactivateVaccine(ctx context.Context, id uuid.UUID) error
	GetVaccine(ctx context.Context, id uuid.UUID) (*VaccineDTO, error)
	ListVaccines(ctx context.Context) ([]VaccineDTO, error)
}

// CreateVaccineInput holds the validated payload to create a catalog entry.
type CreateVaccineInput struct {
	Code          string
	Name          string
	Description   *string
	Manufacturer  *string
	PriceVND      int64
	DosesRequired int
	MinAgeMonths  *int
	MaxAgeMonths  *int
	Diseases      []string
	ImageURL      *string
	IsActive      bool
}

// UpdateVaccineInput holds optional mutation values.
type UpdateVaccineInput struct {
	Name          *string
	Description   *string
	Manufacturer  *string
	PriceVND      *int64
	DosesRequired *int
	MinAgeMonths  *int
	MaxAgeMonths  *int
	Diseases      *[]string
	ImageURL      *string
	IsActive      *bool
}

type service struct {
	repo *Repository
}

// NewService constructs a vaccine catalog service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("vaccine repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateVaccine(ctx context.Context, input CreateVaccineInput) (*VaccineDTO, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.PriceVND <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_vnd must be positive")
	}
	if input.DosesRequired <= 0 {
		input.DosesRequired = 1
	}
	if err := validateAgeWindow(input.MinAgeMonths, input.MaxAgeMonths); err != nil {
		return nil, err
	}

	row := &models.Vaccine{
		Code:          code,
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		Manufacturer:  input.Manufacturer,
		PriceVND:      input.PriceVND,
		DosesRequired: input.DosesRequired,
		MinAgeMonths:  input.MinAgeMonths,
		MaxAgeMonths:  input.MaxAgeMonths,
		Diseases:      pq.StringArray(input.Diseases),
		ImageURL:      input.ImageURL,
		IsActive:      input.IsActive,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_vaccines_code") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("vaccine code %q already exists", code))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating vaccine")
	}
	return toDTO(row), nil
}

func (s *service) UpdateVaccine(ctx context.Context, id uuid.UUID, input UpdateVaccineInput) (*VaccineDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vaccine not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading vaccine")
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		row.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		row.Description = input.Description
	}
	if input.Manufacturer != nil {
		row.Manufacturer = input.Manufacturer
	}
	if input.PriceVND != nil {
		if *input.PriceVND <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_vnd must be positive")
		}
		row.PriceVND = *input.PriceVND
	}
	if input.DosesRequired != nil {
		if *input.DosesRequired <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "doses_required must be positive")
		}
		row.DosesRequired = *input.DosesRequired
	}
	if input.MinAgeMonths != nil {
		row.MinAgeMonths = input.MinAgeMonths
	}
	if input.MaxAgeMonths != nil {
		row.MaxAgeMonths = input.MaxAgeMonths
	}
	if err := validateAgeWindow(row.MinAgeMonths, row.MaxAgeMonths); err != nil {
		return nil, err
	}
	if input.Diseases != nil {
		row.Diseases = pq.StringArray(*input.Diseases)
	}
	if input.ImageURL != nil {
		row.ImageURL = input.ImageURL
	}
	if input.IsActive != nil {
		row.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating vaccine")
	}
	return toDTO(row), nil
}

func (s *service) DeactivateVaccine(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "vaccine not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading vaccine")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivating vaccine")
	}
	return nil
}

func (s *service) GetVaccine(ctx context.Context, id uuid.UUID) (*VaccineDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vaccine not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading vaccine")
	}
	return toDTO(row), nil
}

func (s *service) ListVaccines(ctx context.Context) ([]VaccineDTO, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing vaccines")
	}
	return toDTOs(rows), nil
}

func validateAgeWindow(minMonths, maxMonths *int) error {
	if minMonths != nil && *minMonths < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "min_age_months cannot be negative")
	}
	if maxMonths != nil && *maxMonths < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "max_age_months cannot be negative")
	}
	if minMonths != nil && maxMonths != nil && *minMonths > *maxMonths {
		return pkgerrors.New(pkgerrors.CodeValidation, "min_age_months cannot exceed max_age_months")
	}
	return nil
}
