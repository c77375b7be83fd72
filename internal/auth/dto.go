package auth

import (
	"github.com/vinavax/vinavax-backend/internal/users"
	"github.com/vinavax/vinavax-backend/pkg/enums"
)

// LoginRequest carries staff credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the minted token and the authenticated account.
type LoginResponse struct {
	AccessToken string              `json:"accessToken"`
	User        *users.StaffUserDTO `json:"user"`
}

// RegisterRequest carries the payload for an admin creating a staff account.
type RegisterRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	FullName string          `json:"fullName" validate:"required"`
	Password string          `json:"password" validate:"required,min=8"`
	Role     enums.StaffRole `json:"role" validate:"required"`
}
