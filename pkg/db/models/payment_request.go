package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vinavax/vinavax-backend/pkg/enums"
)

// PaymentRequest records every payment-URL request sent to the gateway so
// the status endpoint can be served without re-contacting MoMo.
type PaymentRequest struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	RequestID   string              `gorm:"column:request_id;not null;uniqueIndex"`
	CustomerRef *string             `gorm:"column:customer_ref"`
	AmountVND   int64               `gorm:"column:amount_vnd;not null"`
	PayURL      *string             `gorm:"column:pay_url"`
	ExtraData   *string             `gorm:"column:extra_data"`
	Status      enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	TransID     *string             `gorm:"column:trans_id"`
	ResultCode  *int                `gorm:"column:result_code"`
	Message     *string             `gorm:"column:message"`
	PayType     *string             `gorm:"column:pay_type"`
	SettledAt   *time.Time          `gorm:"column:settled_at"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
