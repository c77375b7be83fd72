package order

import (
	"time"

	"github.com/google/uuid"

	"github.com/vinavax/vinavax-backend/pkg/db/models"
	"github.com/vinavax/vinavax-backend/pkg/enums"
)

// OrderItemDTO is one service line with prices snapshotted at order time.
type OrderItemDTO struct {
	ID           uuid.UUID `json:"id"`
	VaccineID    uuid.UUID `json:"vaccineId"`
	VaccineName  string    `json:"vaccineName"`
	Quantity     int       `json:"quantity"`
	UnitPriceVND int64     `json:"unitPriceVnd"`
	LineTotalVND int64     `json:"lineTotalVnd"`
}

// OrderDTO is the API-facing shape of an order.
type OrderDTO struct {
	ID               uuid.UUID           `json:"id"`
	OrderCode        string              `json:"orderCode"`
	CustomerFullName string              `json:"customerFullName"`
	CustomerPhone    string              `json:"customerPhone"`
	CustomerEmail    string              `json:"customerEmail"`
	CustomerDOB      time.Time           `json:"customerDob"`
	CustomerAddress  string              `json:"customerAddress"`
	LocationID       *uuid.UUID          `json:"locationId,omitempty"`
	PaymentMethod    enums.PaymentMethod `json:"paymentMethod"`
	Status           enums.OrderStatus   `json:"status"`
	SubtotalVND      int64               `json:"subtotalVnd"`
	DiscountVND      int64               `json:"discountVnd"`
	TotalVND         int64               `json:"totalVnd"`
	PromotionCode    *string             `json:"promotionCode,omitempty"`
	PaidAt           *time.Time          `json:"paidAt,omitempty"`
	CancelledAt      *time.Time          `json:"cancelledAt,omitempty"`
	Items            []OrderItemDTO      `json:"items"`
	CreatedAt        time.Time           `json:"createdAt"`
}

// EligibilityIssue names a problem with one requested service line.
type EligibilityIssue struct {
	VaccineID uuid.UUID `json:"vaccineId"`
	Vaccine   string    `json:"vaccine"`
	Message   string    `json:"message"`
}

// EligibilityResult is a first-class outcome, not an error: a rejection
// carries per-service errors and warnings for the staff to review.
type EligibilityResult struct {
	Eligible bool               `json:"eligible"`
	Errors   []EligibilityIssue `json:"errors"`
	Warnings []EligibilityIssue `json:"warnings"`
}

func toDTO(row *models.Order) *OrderDTO {
	if row == nil {
		return nil
	}
	items := make([]OrderItemDTO, 0, len(row.Items))
	for _, item := range row.Items {
		items = append(items, OrderItemDTO{
			ID:           item.ID,
			VaccineID:    item.VaccineID,
			VaccineName:  item.VaccineName,
			Quantity:     item.Quantity,
			UnitPriceVND: item.UnitPriceVND,
			LineTotalVND: item.LineTotalVND,
		})
	}
	return &OrderDTO{
		ID:               row.ID,
		OrderCode:        row.OrderCode,
		CustomerFullName: row.CustomerFullName,
		CustomerPhone:    row.CustomerPhone,
		CustomerEmail:    row.CustomerEmail,
		CustomerDOB:      row.CustomerDOB,
		CustomerAddress:  row.CustomerAddress,
		LocationID:       row.LocationID,
		PaymentMethod:    row.PaymentMethod,
		Status:           row.Status,
		SubtotalVND:      row.SubtotalVND,
		DiscountVND:      row.DiscountVND,
		TotalVND:         row.TotalVND,
		PromotionCode:    row.PromotionCode,
		PaidAt:           row.PaidAt,
		CancelledAt:      row.CancelledAt,
		Items:            items,
		CreatedAt:        row.CreatedAt,
	}
}
