package outbox

import "github.com/google/uuid"

// OrderCreatedData is emitted when a new order row is committed.
type OrderCreatedData struct {
	OrderID       uuid.UUID `json:"orderId"`
	OrderCode     string    `json:"orderCode"`
	PaymentMethod string    `json:"paymentMethod"`
	SubtotalVND   int64     `json:"subtotalVnd"`
	TotalVND      int64     `json:"totalVnd"`
}

// OrderPaidData is emitted when an order transitions to PAID.
type OrderPaidData struct {
	OrderID     uuid.UUID `json:"orderId"`
	OrderCode   string    `json:"orderCode"`
	TotalVND    int64     `json:"totalVnd"`
	DiscountVND int64     `json:"discountVnd"`
	TransID     string    `json:"transId,omitempty"`
}

// OrderCancelledData is emitted when an order is cancelled.
type OrderCancelledData struct {
	OrderID   uuid.UUID `json:"orderId"`
	OrderCode string    `json:"orderCode"`
}

// PromotionAppliedData is emitted when a promotion usage is recorded.
type PromotionAppliedData struct {
	OrderID     uuid.UUID `json:"orderId"`
	PromotionID uuid.UUID `json:"promotionId"`
	Code        string    `json:"code"`
	DiscountVND int64     `json:"discountVnd"`
}
