package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vinavax/vinavax-backend/pkg/db/models"
	"github.com/vinavax/vinavax-backend/pkg/enums"
)

// Repository wires payment request persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, row *models.PaymentRequest) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) FindByRequestID(ctx context.Context, requestID string) (*models.PaymentRequest, error) {
	var row models.PaymentRequest
	if err := r.db.WithContext(ctx).First(&row, "request_id = ?", requestID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindLatestByOrderID returns the most recent gateway request for an order.
func (r *Repository) FindLatestByOrderID(ctx context.Context, orderID uuid.UUID) (*models.PaymentRequest, error) {
	var row models.PaymentRequest
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Settlement carries the gateway's final word on a payment request.
type Settlement struct {
	Status     enums.PaymentStatus
	TransID    *string
	ResultCode *int
	Message    *string
	PayType    *string
	SettledAt  time.Time
}

// RecordSettlement stamps the redirect outcome onto the payment request row.
func (r *Repository) RecordSettlement(ctx context.Context, requestID string, settlement Settlement) error {
	updates := map[string]any{
		"status":     settlement.Status,
		"settled_at": settlement.SettledAt,
	}
	if settlement.TransID != nil {
		updates["trans_id"] = *settlement.TransID
	}
	if settlement.ResultCode != nil {
		updates["result_code"] = *settlement.ResultCode
	}
	if settlement.Message != nil {
		updates["message"] = *settlement.Message
	}
	if settlement.PayType != nil {
		updates["pay_type"] = *settlement.PayType
	}
	return r.db.WithContext(ctx).
		Model(&models.PaymentRequest{}).
		Where("request_id = ?", requestID).
		Updates(updates).Error
}
