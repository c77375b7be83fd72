package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vinavax/vinavax-backend/pkg/enums"
)

// Promotion is a discount code record (KhuyenMai).
type Promotion struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code          string             `gorm:"column:code;not null;uniqueIndex"`
	Name          string             `gorm:"column:name;not null"`
	Description   *string            `gorm:"column:description"`
	DiscountType  enums.DiscountType `gorm:"column:discount_type;type:text;not null"`
	DiscountValue int64              `gorm:"column:discount_value;not null"`
	MaxDiscount   *int64             `gorm:"column:max_discount_vnd"`
	MinOrderValue *int64             `gorm:"column:min_order_value_vnd"`
	StartsAt      *time.Time         `gorm:"column:starts_at"`
	EndsAt        *time.Time         `gorm:"column:ends_at"`
	UsageLimit    *int               `gorm:"column:usage_limit"`
	UsageCount    int                `gorm:"column:usage_count;not null;default:0"`
	IsActive      bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// PromotionUsage links a redeemed promotion to the order it discounted
// (DonHangKhuyenMai).
type PromotionUsage struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_promotion_usages_order_promotion"`
	PromotionID uuid.UUID `gorm:"column:promotion_id;type:uuid;not null;uniqueIndex:ux_promotion_usages_order_promotion"`
	Code        string    `gorm:"column:code;not null"`
	DiscountVND int64     `gorm:"column:discount_vnd;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
