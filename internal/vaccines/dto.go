package vaccine

import (
	"time"

	"github.com/google/uuid"

	"github.com/vinavax/vinavax-backend/pkg/db/models"
)

// VaccineDTO is the API-facing shape of a catalog entry.
type VaccineDTO struct {
	ID            uuid.UUID `json:"id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	Description   *string   `json:"description,omitempty"`
	Manufacturer  *string   `json:"manufacturer,omitempty"`
	PriceVND      int64     `json:"priceVnd"`
	DosesRequired int       `json:"dosesRequired"`
	MinAgeMonths  *int      `json:"minAgeMonths,omitempty"`
	MaxAgeMonths  *int      `json:"maxAgeMonths,omitempty"`
	Diseases      []string  `json:"diseases"`
	ImageURL      *string   `json:"imageUrl,omitempty"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toDTO(row *models.Vaccine) *VaccineDTO {
	if row == nil {
		return nil
	}
	diseases := []string(row.Diseases)
	if diseases == nil {
		diseases = []string{}
	}
	return &VaccineDTO{
		ID:            row.ID,
		Code:          row.Code,
		Name:          row.Name,
		Description:   row.Description,
		Manufacturer:  row.Manufacturer,
		PriceVND:      row.PriceVND,
		DosesRequired: row.DosesRequired,
		MinAgeMonths:  row.MinAgeMonths,
		MaxAgeMonths:  row.MaxAgeMonths,
		Diseases:      diseases,
		ImageURL:      row.ImageURL,
		IsActive:      row.IsActive,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func toDTOs(rows []models.Vaccine) []VaccineDTO {
	out := make([]VaccineDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *toDTO(&rows[i]))
	}
	return out
}
