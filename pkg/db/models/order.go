package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vinavax/vinavax-backend/pkg/enums"
)

// Order is a customer vaccination order.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderCode        string              `gorm:"column:order_code;not null;uniqueIndex"`
	CustomerFullName string              `gorm:"column:customer_full_name;not null"`
	CustomerPhone    string              `gorm:"column:customer_phone;not null"`
	CustomerEmail    string              `gorm:"column:customer_email;not null"`
	CustomerDOB      time.Time           `gorm:"column:customer_dob;not null"`
	CustomerAddress  string              `gorm:"column:customer_address;not null"`
	LocationID       *uuid.UUID          `gorm:"column:location_id;type:uuid"`
	PaymentMethod    enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	Status           enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'PENDING'"`
	SubtotalVND      int64               `gorm:"column:subtotal_vnd;not null"`
	DiscountVND      int64               `gorm:"column:discount_vnd;not null;default:0"`
	TotalVND         int64               `gorm:"column:total_vnd;not null"`
	PromotionCode    *string             `gorm:"column:promotion_code"`
	PaidAt           *time.Time          `gorm:"column:paid_at"`
	CancelledAt      *time.Time          `gorm:"column:cancelled_at"`
	Items            []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is one service line on an order. Prices are snapshotted at
// order time so later catalog edits cannot change a submitted order.
type OrderItem struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	VaccineID    uuid.UUID `gorm:"column:vaccine_id;type:uuid;not null"`
	VaccineName  string    `gorm:"column:vaccine_name;not null"`
	Quantity     int       `gorm:"column:quantity;not null"`
	UnitPriceVND int64     `gorm:"column:unit_price_vnd;not null"`
	LineTotalVND int64     `gorm:"column:line_total_vnd;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}
