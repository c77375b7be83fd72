package order

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vinavax/vinavax-backend/pkg/db/models"
	"github.com/vinavax/vinavax-backend/pkg/enums"
	pkgerrors "github.com/vinavax/vinavax-backend/pkg/errors"
	"github.com/vinavax/vinavax-backend/pkg/outbox"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10,11}$`)
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type vaccineLoader interface {
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Vaccine, error)
}

// Service defines order lifecycle operations.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	ListOrders(ctx context.Context, status *enums.OrderStatus, limit int) ([]OrderDTO, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error)
	UpdateDiscount(ctx context.Context, orderID uuid.UUID, promotionCode string, discountVND int64) (*OrderDTO, error)
	CheckEligibility(ctx context.Context, input EligibilityInput) (*EligibilityResult, error)
}

// LineInput is one requested service line.
type LineInput struct {
	VaccineID uuid.UUID
	Quantity  int
}

// CreateOrderInput carries the validated order submission.
type CreateOrderInput struct {
	CustomerFullName string
	CustomerPhone    string
	CustomerEmail    string
	CustomerDOB      time.Time
	CustomerAddress  string
	LocationID       *uuid.UUID
	PaymentMethod    enums.PaymentMethod
	PromotionCode    *string
	DiscountVND      int64
	Lines            []LineInput
}

// UpdateStatusInput carries a status transition request.
type UpdateStatusInput struct {
	OrderID uuid.UUID
	Status  enums.OrderStatus
	TransID *string
	Actor   *outbox.ActorRef
}

// EligibilityInput carries the pre-submission eligibility check request.
type EligibilityInput struct {
	CustomerDOB time.Time
	Lines       []LineInput
}

type service struct {
	repo     Repository
	vaccines vaccineLoader
	tx       txRunner
	outbox   outboxPublisher
	now      func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, vaccines vaccineLoader, tx txRunner, outboxSvc outboxPublisher, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if vaccines == nil {
		return nil, fmt.Errorf("vaccine loader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, vaccines: vaccines, tx: tx, outbox: outboxSvc, now: now}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error) {
	if err := validateCustomer(input); err != nil {
		return nil, err
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order needs at least one service line")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}
	if input.DiscountVND < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount cannot be negative")
	}

	items, subtotal, err := s.snapshotLines(ctx, input.Lines)
	if err != nil {
		return nil, err
	}
	discount := input.DiscountVND
	if discount > subtotal {
		discount = subtotal
	}

	row := &models.Order{
		OrderCode:        newOrderCode(s.now()),
		CustomerFullName: strings.TrimSpace(input.CustomerFullName),
		CustomerPhone:    stripWhitespace(input.CustomerPhone),
		CustomerEmail:    strings.TrimSpace(input.CustomerEmail),
		CustomerDOB:      input.CustomerDOB,
		CustomerAddress:  strings.TrimSpace(input.CustomerAddress),
		LocationID:       input.LocationID,
		PaymentMethod:    input.PaymentMethod,
		Status:           enums.OrderStatusPending,
		SubtotalVND:      subtotal,
		DiscountVND:      discount,
		TotalVND:         subtotal - discount,
		PromotionCode:    input.PromotionCode,
		Items:            items,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, row); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   row.ID,
			Data: outbox.OrderCreatedData{
				OrderID:       row.ID,
				OrderCode:     row.OrderCode,
				PaymentMethod: string(row.PaymentMethod),
				SubtotalVND:   row.SubtotalVND,
				TotalVND:      row.TotalVND,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
	}
	return toDTO(row), nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	row, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDTO(row), nil
}

func (s *service) ListOrders(ctx context.Context, status *enums.OrderStatus, limit int) ([]OrderDTO, error) {
	rows, err := s.repo.List(ctx, status, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *toDTO(&rows[i]))
	}
	return out, nil
}

// UpdateStatus applies PENDING -> PAID and PENDING -> CANCELLED transitions.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error) {
	row, err := s.loadOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if row.Status == input.Status {
		// Repeat finalization of an already-settled order is a no-op.
		return toDTO(row), nil
	}

	now := s.now().UTC()
	var updates map[string]any
	var event *outbox.DomainEvent

	switch input.Status {
	case enums.OrderStatusPaid:
		if row.Status != enums.OrderStatusPending {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot mark %s order as paid", row.Status))
		}
		updates = map[string]any{"paid_at": now}
		transID := ""
		if input.TransID != nil {
			transID = *input.TransID
		}
		event = &outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   row.ID,
			Actor:         input.Actor,
			Data: outbox.OrderPaidData{
				OrderID:     row.ID,
				OrderCode:   row.OrderCode,
				TotalVND:    row.TotalVND,
				DiscountVND: row.DiscountVND,
				TransID:     transID,
			},
		}
	case enums.OrderStatusCancelled:
		if row.Status != enums.OrderStatusPending {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot cancel %s order", row.Status))
		}
		updates = map[string]any{"cancelled_at": now}
		event = &outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   row.ID,
			Actor:         input.Actor,
			Data:          outbox.OrderCancelledData{OrderID: row.ID, OrderCode: row.OrderCode},
		}
	case enums.OrderStatusCompleted:
		if row.Status != enums.OrderStatusPaid {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot complete %s order", row.Status))
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid target status %q", input.Status))
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		applied, err := repo.UpdateStatus(ctx, row.ID, row.Status, input.Status, updates)
		if err != nil {
			return err
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}
		if event == nil {
			return nil
		}
		return s.outbox.Emit(ctx, tx, *event)
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order status")
	}

	return s.GetOrder(ctx, row.ID)
}

// UpdateDiscount persists the reconciled discount on the order.
func (s *service) UpdateDiscount(ctx context.Context, orderID uuid.UUID, promotionCode string, discountVND int64) (*OrderDTO, error) {
	if discountVND < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount cannot be negative")
	}
	row, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if discountVND > row.SubtotalVND {
		discountVND = row.SubtotalVND
	}
	if err := s.repo.UpdateDiscount(ctx, orderID, strings.ToUpper(strings.TrimSpace(promotionCode)), discountVND); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order discount")
	}
	return s.GetOrder(ctx, orderID)
}

// CheckEligibility validates the requested services against the customer's
// age. A rejection is an outcome, not an error.
func (s *service) CheckEligibility(ctx context.Context, input EligibilityInput) (*EligibilityResult, error) {
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one service line is required")
	}
	if input.CustomerDOB.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer date of birth is required")
	}
	now := s.now()
	if input.CustomerDOB.After(now) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer date of birth is in the future")
	}

	ids := make([]uuid.UUID, 0, len(input.Lines))
	for _, line := range input.Lines {
		ids = append(ids, line.VaccineID)
	}
	vaccines, err := s.vaccines.ListByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading vaccines")
	}
	byID := make(map[uuid.UUID]*models.Vaccine, len(vaccines))
	for i := range vaccines {
		byID[vaccines[i].ID] = &vaccines[i]
	}

	ageMonths := monthsBetween(input.CustomerDOB, now)
	result := &EligibilityResult{Eligible: true}

	for _, line := range input.Lines {
		vaccine, ok := byID[line.VaccineID]
		if !ok {
			result.Eligible = false
			result.Errors = append(result.Errors, EligibilityIssue{
				VaccineID: line.VaccineID,
				Vaccine:   line.VaccineID.String(),
				Message:   "service not found",
			})
			continue
		}
		if !vaccine.IsActive {
			result.Eligible = false
			result.Errors = append(result.Errors, EligibilityIssue{
				VaccineID: vaccine.ID,
				Vaccine:   vaccine.Name,
				Message:   "service is no longer offered",
			})
			continue
		}
		if vaccine.MinAgeMonths != nil && ageMonths < *vaccine.MinAgeMonths {
			result.Eligible = false
			result.Errors = append(result.Errors, EligibilityIssue{
				VaccineID: vaccine.ID,
				Vaccine:   vaccine.Name,
				Message:   fmt.Sprintf("customer is below the minimum age of %d months", *vaccine.MinAgeMonths),
			})
			continue
		}
		if vaccine.MaxAgeMonths != nil && ageMonths > *vaccine.MaxAgeMonths {
			result.Eligible = false
			result.Errors = append(result.Errors, EligibilityIssue{
				VaccineID: vaccine.ID,
				Vaccine:   vaccine.Name,
				Message:   fmt.Sprintf("customer is above the maximum age of %d months", *vaccine.MaxAgeMonths),
			})
			continue
		}
		if line.Quantity > vaccine.DosesRequired {
			result.Warnings = append(result.Warnings, EligibilityIssue{
				VaccineID: vaccine.ID,
				Vaccine:   vaccine.Name,
				Message:   fmt.Sprintf("requested %d doses exceeds the %d-dose schedule", line.Quantity, vaccine.DosesRequired),
			})
		}
	}
	return result, nil
}

func (s *service) loadOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return row, nil
}

func (s *service) snapshotLines(ctx context.Context, lines []LineInput) ([]models.OrderItem, int64, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		ids = append(ids, line.VaccineID)
	}

	vaccines, err := s.vaccines.ListByIDs(ctx, ids)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading vaccines")
	}
	byID := make(map[uuid.UUID]*models.Vaccine, len(vaccines))
	for i := range vaccines {
		byID[vaccines[i].ID] = &vaccines[i]
	}

	items := make([]models.OrderItem, 0, len(lines))
	var subtotal int64
	for _, line := range lines {
		vaccine, ok := byID[line.VaccineID]
		if !ok {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("vaccine %s not found", line.VaccineID))
		}
		if !vaccine.IsActive {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("vaccine %q is not available", vaccine.Name))
		}
		lineTotal := vaccine.PriceVND * int64(line.Quantity)
		items = append(items, models.OrderItem{
			VaccineID:    vaccine.ID,
			VaccineName:  vaccine.Name,
			Quantity:     line.Quantity,
			UnitPriceVND: vaccine.PriceVND,
			LineTotalVND: lineTotal,
		})
		subtotal += lineTotal
	}
	return items, subtotal, nil
}

func validateCustomer(input CreateOrderInput) error {
	if strings.TrimSpace(input.CustomerFullName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "full name is required")
	}
	if strings.TrimSpace(input.CustomerAddress) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "address is required")
	}
	if input.CustomerDOB.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "date of birth is required")
	}
	if !emailPattern.MatchString(strings.TrimSpace(input.CustomerEmail)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid email address")
	}
	if !phonePattern.MatchString(stripWhitespace(input.CustomerPhone)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "phone must be 10 to 11 digits")
	}
	return nil
}

func stripWhitespace(value string) string {
	return strings.Join(strings.Fields(value), "")
}

func monthsBetween(from, to time.Time) int {
	months := int(to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

func newOrderCode(now time.Time) string {
	buf := make([]byte, 3)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("VV%s%s", now.UTC().Format("20060102150405"), strings.ToUpper(hex.EncodeToString(buf)))
}
