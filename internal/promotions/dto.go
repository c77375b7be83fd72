package promotion

import (
	"time"

	"github.com/google/uuid"

	"github.com/vinavax/vinavax-backend/pkg/db/models"
	"github.com/vinavax/vinavax-backend/pkg/enums"
)

// PromotionDTO is the API-facing shape of a discount code.
type PromotionDTO struct {
	ID            uuid.UUID          `json:"id"`
	Code          string             `json:"code"`
	Name          string             `json:"name"`
	Description   *string            `json:"description,omitempty"`
	DiscountType  enums.DiscountType `json:"discountType"`
	DiscountValue int64              `json:"discountValue"`
	MaxDiscount   *int64             `json:"maxDiscount,omitempty"`
	MinOrderValue *int64             `json:"minOrderValue,omitempty"`
	StartsAt      *time.Time         `json:"startsAt,omitempty"`
	EndsAt        *time.Time         `json:"endsAt,omitempty"`
	UsageLimit    *int               `json:"usageLimit,omitempty"`
	UsageCount    int                `json:"usageCount"`
	IsActive      bool               `json:"isActive"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// ValidateCodeResult is returned by the validate-code lookup: the promotion
// plus the discount it would yield on the provided subtotal.
type ValidateCodeResult struct {
	Promotion   PromotionDTO `json:"promotion"`
	SubtotalVND int64        `json:"subtotalVnd"`
	DiscountVND int64        `json:"discountVnd"`
	PayableVND  int64        `json:"payableVnd"`
}

// UsageDTO is the API-facing shape of a recorded redemption.
type UsageDTO struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"orderId"`
	PromotionID uuid.UUID `json:"promotionId"`
	Code        string    `json:"code"`
	DiscountVND int64     `json:"discountVnd"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toDTO(row *models.Promotion) *PromotionDTO {
	if row == nil {
		return nil
	}
	return &PromotionDTO{
		ID:            row.ID,
		Code:          row.Code,
		Name:          row.Name,
		Description:   row.Description,
		DiscountType:  row.DiscountType,
		DiscountValue: row.DiscountValue,
		MaxDiscount:   row.MaxDiscount,
		MinOrderValue: row.MinOrderValue,
		StartsAt:      row.StartsAt,
		EndsAt:        row.EndsAt,
		UsageLimit:    row.UsageLimit,
		UsageCount:    row.UsageCount,
		IsActive:      row.IsActive,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func usageToDTO(row *models.PromotionUsage) *UsageDTO {
	if row == nil {
		return nil
	}
	return &UsageDTO{
		ID:          row.ID,
		OrderID:     row.OrderID,
		PromotionID: row.PromotionID,
		Code:        row.Code,
		DiscountVND: row.DiscountVND,
		CreatedAt:   row.CreatedAt,
	}
}
