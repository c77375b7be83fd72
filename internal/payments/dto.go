package payment

import (
	"time"

	"github.com/google/uuid"

	"github.com/vinavax/vinavax-backend/pkg/db/models"
	"github.com/vinavax/vinavax-backend/pkg/enums"
)

// PaymentRequestDTO is the API-facing shape of a gateway payment request.
type PaymentRequestDTO struct {
	ID         uuid.UUID           `json:"id"`
	OrderID    uuid.UUID           `json:"orderId"`
	RequestID  string              `json:"requestId"`
	AmountVND  int64               `json:"amountVnd"`
	PayURL     *string             `json:"payUrl,omitempty"`
	Status     enums.PaymentStatus `json:"status"`
	TransID    *string             `json:"transId,omitempty"`
	ResultCode *int                `json:"resultCode,omitempty"`
	Message    *string             `json:"message,omitempty"`
	PayType    *string             `json:"payType,omitempty"`
	SettledAt  *time.Time          `json:"settledAt,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
}

// ReconcileResult is the outcome of processing one gateway redirect.
type ReconcileResult struct {
	OrderID     uuid.UUID `json:"orderId"`
	RequestID   string    `json:"requestId"`
	Success     bool      `json:"success"`
	Replayed    bool      `json:"replayed"`
	Message     string    `json:"message"`
	DiscountVND int64     `json:"discountVnd"`
	Warnings    []string  `json:"warnings,omitempty"`
}

func toDTO(row *models.PaymentRequest) *PaymentRequestDTO {
	if row == nil {
		return nil
	}
	return &PaymentRequestDTO{
		ID:         row.ID,
		OrderID:    row.OrderID,
		RequestID:  row.RequestID,
		AmountVND:  row.AmountVND,
		PayURL:     row.PayURL,
		Status:     row.Status,
		TransID:    row.TransID,
		ResultCode: row.ResultCode,
		Message:    row.Message,
		PayType:    row.PayType,
		SettledAt:  row.SettledAt,
		CreatedAt:  row.CreatedAt,
	}
}
