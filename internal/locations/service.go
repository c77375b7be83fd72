package location

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vinavax/vinavax-backend/pkg/db/models"
	pkgerrors "github.com/vinavax/vinavax-backend/pkg/errors"
)

// LocationDTO is the API-facing shape of a clinic.
type LocationDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	City      *string   `json:"city,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateLocationInput holds the validated payload to create a clinic.
type CreateLocationInput struct {
	Name    string
	Address string
	City    *string
	Phone   *string
}

// UpdateLocationInput holds optional mutation values.
type UpdateLocationInput struct {
	Name     *string
	Address  *string
	City     *string
	Phone    *string
	IsActive *bool
}

// Service exposes clinic management operations.
type Service interface {
	CreateLocation(ctx context.Context, input CreateLocationInput) (*LocationDTO, error)
	UpdateLocation(ctx context.Context, id uuid.UUID, input UpdateLocationInput) (*LocationDTO, error)
	DeactivateLocation(ctx context.Context, id uuid.UUID) error
	GetLocation(ctx context.Context, id uuid.UUID) (*LocationDTO, error)
	ListLocations(ctx context.Context) ([]LocationDTO, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("location repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateLocation(ctx context.Context, input CreateLocationInput) (*LocationDTO, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if strings.TrimSpace(input.Address) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address is required")
	}

	row := &models.Location{
		Name:     strings.TrimSpace(input.Name),
		Address:  strings.TrimSpace(input.Address),
		City:     input.City,
		Phone:    input.Phone,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating location")
	}
	return toDTO(row), nil
}

func (s *service) UpdateLocation(ctx context.Context, id uuid.UUID, input UpdateLocationInput) (*LocationDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "location not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading location")
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		row.Name = strings.TrimSpace(*input.Name)
	}
	if input.Address != nil {
		if strings.TrimSpace(*input.Address) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "address cannot be empty")
		}
		row.Address = strings.TrimSpace(*input.Address)
	}
	if input.City != nil {
		row.City = input.City
	}
	if input.Phone != nil {
		row.Phone = input.Phone
	}
	if input.IsActive != nil {
		row.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating location")
	}
	return toDTO(row), nil
}

func (s *service) DeactivateLocation(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "location not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading location")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivating location")
	}
	return nil
}

func (s *service) GetLocation(ctx context.Context, id uuid.UUID) (*LocationDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "location not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading location")
	}
	return toDTO(row), nil
}

func (s *service) ListLocations(ctx context.Context) ([]LocationDTO, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing locations")
	}
	out := make([]LocationDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *toDTO(&rows[i]))
	}
	return out, nil
}

func toDTO(row *models.Location) *LocationDTO {
	if row == nil {
		return nil
	}
	return &LocationDTO{
		ID:        row.ID,
		Name:      row.Name,
		Address:   row.Address,
		City:      row.City,
		Phone:     row.Phone,
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
