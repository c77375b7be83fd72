package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/vinavax/vinavax-backend/pkg/db/models"
	"github.com/vinavax/vinavax-backend/pkg/enums"
)

// StaffUserDTO is the API-facing shape of a staff account.
type StaffUserDTO struct {
	ID          uuid.UUID       `json:"id"`
	Email       string          `json:"email"`
	FullName    string          `json:"fullName"`
	Role        enums.StaffRole `json:"role"`
	IsActive    bool            `json:"isActive"`
	LastLoginAt *time.Time      `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// FromModel converts a staff user row to its DTO.
func FromModel(row *models.StaffUser) *StaffUserDTO {
	if row == nil {
		return nil
	}
	return &StaffUserDTO{
		ID:          row.ID,
		Email:       row.Email,
		FullName:    row.FullName,
		Role:        row.Role,
		IsActive:    row.IsActive,
		LastLoginAt: row.LastLoginAt,
		CreatedAt:   row.CreatedAt,
	}
}
