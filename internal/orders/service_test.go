package order

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vinavax/vinavax-backend/pkg/db/models"
	"github.com/vinavax/vinavax-backend/pkg/enums"
	pkgerrors "github.com/vinavax/vinavax-backend/pkg/errors"
	"github.com/vinavax/vinavax-backend/pkg/outbox"
)

type stubOrderRepo struct {
	orders    map[uuid.UUID]*models.Order
	discounts []struct {
		code     string
		discount int64
	}
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{orders: map[uuid.UUID]*models.Order{}}
}

func (s *stubOrderRepo) WithTx(_ *gorm.DB) Repository { return s }

func (s *stubOrderRepo) Create(_ context.Context, row *models.Order) error {
	row.ID = uuid.New()
	for i := range row.Items {
		row.Items[i].ID = uuid.New()
		row.Items[i].OrderID = row.ID
	}
	s.orders[row.ID] = row
	return nil
}

func (s *stubOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	if row, ok := s.orders[id]; ok {
		clone := *row
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrderRepo) FindByOrderCode(_ context.Context, code string) (*models.Order, error) {
	for _, row := range s.orders {
		if row.OrderCode == code {
			clone := *row
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrderRepo) List(_ context.Context, _ *enums.OrderStatus, _ int) ([]models.Order, error) {
	return nil, nil
}

func (s *stubOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error) {
	row, ok := s.orders[id]
	if !ok || row.Status != from {
		return false, nil
	}
	row.Status = to
	if at, ok := updates["paid_at"].(time.Time); ok {
		row.PaidAt = &at
	}
	if at, ok := updates["cancelled_at"].(time.Time); ok {
		row.CancelledAt = &at
	}
	return true, nil
}

func (s *stubOrderRepo) UpdateDiscount(_ context.Context, id uuid.UUID, promotionCode string, discountVND int64) error {
	row := s.orders[id]
	row.PromotionCode = &promotionCode
	row.DiscountVND = discountVND
	row.TotalVND = row.SubtotalVND - discountVND
	s.discounts = append(s.discounts, struct {
		code     string
		discount int64
	}{promotionCode, discountVND})
	return nil
}

type stubVaccines struct {
	rows []models.Vaccine
}

func (s *stubVaccines) ListByIDs(_ context.Context, ids []uuid.UUID) ([]models.Vaccine, error) {
	var out []models.Vaccine
	for _, row := range s.rows {
		for _, id := range ids {
			if row.ID == id {
				out = append(out, row)
				break
			}
		}
	}
	return out, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func intPtr(v int) *int { return &v }

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
}

func testVaccine(priceVND int64) models.Vaccine {
	return models.Vaccine{
		ID:            uuid.New(),
		Code:          "MMR",
		Name:          "MMR II",
		PriceVND:      priceVND,
		DosesRequired: 2,
		MinAgeMonths:  intPtr(12),
		IsActive:      true,
	}
}

func newOrderService(t *testing.T, repo Repository, vaccines vaccineLoader, ob outboxPublisher) Service {
	t.Helper()
	svc, err := NewService(repo, vaccines, stubTxRunner{}, ob, fixedNow)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func validInput(vaccineID uuid.UUID) CreateOrderInput {
	return CreateOrderInput{
		CustomerFullName: "Nguyen Van A",
		CustomerPhone:    "09 1234 5678",
		CustomerEmail:    "a@example.com",
		CustomerDOB:      time.Date(1990, 5, 20, 0, 0, 0, 0, time.UTC),
		CustomerAddress:  "12 Le Loi, Q1, TP.HCM",
		PaymentMethod:    enums.PaymentMethodMoMo,
		Lines:            []LineInput{{VaccineID: vaccineID, Quantity: 1}},
	}
}

func TestCreateOrderSnapshotsPricesAndEmits(t *testing.T) {
	repo := newStubOrderRepo()
	vaccine := testVaccine(250000)
	ob := &stubOutbox{}
	svc := newOrderService(t, repo, &stubVaccines{rows: []models.Vaccine{vaccine}}, ob)

	input := validInput(vaccine.ID)
	input.Lines[0].Quantity = 2

	dto, err := svc.CreateOrder(context.Background(), input)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if dto.SubtotalVND != 500000 || dto.TotalVND != 500000 {
		t.Fatalf("unexpected totals: %+v", dto)
	}
	if dto.Status != enums.OrderStatusPending {
		t.Fatalf("expected PENDING, got %s", dto.Status)
	}
	if dto.CustomerPhone != "0912345678" {
		t.Fatalf("expected whitespace-stripped phone, got %q", dto.CustomerPhone)
	}
	if len(dto.Items) != 1 || dto.Items[0].UnitPriceVND != 250000 || dto.Items[0].VaccineName != "MMR II" {
		t.Fatalf("expected snapshotted line, got %+v", dto.Items)
	}
	if dto.OrderCode == "" {
		t.Fatal("expected allocated order code")
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventOrderCreated {
		t.Fatalf("expected order.created event, got %+v", ob.events)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	repo := newStubOrderRepo()
	vaccine := testVaccine(250000)
	svc := newOrderService(t, repo, &stubVaccines{rows: []models.Vaccine{vaccine}}, &stubOutbox{})

	cases := []struct {
		name   string
		mutate func(*CreateOrderInput)
	}{
		{"badEmail", func(in *CreateOrderInput) { in.CustomerEmail = "not-an-email" }},
		{"shortPhone", func(in *CreateOrderInput) { in.CustomerPhone = "12345" }},
		{"longPhone", func(in *CreateOrderInput) { in.CustomerPhone = "012345678901" }},
		{"missingName", func(in *CreateOrderInput) { in.CustomerFullName = "  " }},
		{"noLines", func(in *CreateOrderInput) { in.Lines = nil }},
		{"zeroQty", func(in *CreateOrderInput) { in.Lines[0].Quantity = 0 }},
		{"badMethod", func(in *CreateOrderInput) { in.PaymentMethod = "paypal" }},
		{"unknownVaccine", func(in *CreateOrderInput) { in.Lines[0].VaccineID = uuid.New() }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput(vaccine.ID)
			tc.mutate(&input)
			_, err := svc.CreateOrder(context.Background(), input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestUpdateStatusPendingToPaid(t *testing.T) {
	repo := newStubOrderRepo()
	vaccine := testVaccine(500000)
	ob := &stubOutbox{}
	svc := newOrderService(t, repo, &stubVaccines{rows: []models.Vaccine{vaccine}}, ob)

	created, err := svc.CreateOrder(context.Background(), validInput(vaccine.ID))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	transID := "987654"
	updated, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID: created.ID,
		Status:  enums.OrderStatusPaid,
		TransID: &transID,
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != enums.OrderStatusPaid {
		t.Fatalf("expected PAID, got %s", updated.Status)
	}
	if updated.PaidAt == nil {
		t.Fatal("expected paid_at to be set")
	}
	if len(ob.events) != 2 || ob.events[1].EventType != enums.EventOrderPaid {
		t.Fatalf("expected order.paid event, got %+v", ob.events)
	}

	// Repeating the transition is a no-op, not an error.
	again, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{OrderID: created.ID, Status: enums.OrderStatusPaid})
	if err != nil {
		t.Fatalf("repeat update: %v", err)
	}
	if again.Status != enums.OrderStatusPaid {
		t.Fatalf("expected PAID, got %s", again.Status)
	}
	if len(ob.events) != 2 {
		t.Fatal("repeat transition must not emit another event")
	}
}

func TestUpdateStatusRejectsInvalidTransition(t *testing.T) {
	repo := newStubOrderRepo()
	vaccine := testVaccine(500000)
	svc := newOrderService(t, repo, &stubVaccines{rows: []models.Vaccine{vaccine}}, &stubOutbox{})

	created, err := svc.CreateOrder(context.Background(), validInput(vaccine.ID))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{OrderID: created.ID, Status: enums.OrderStatusCompleted}); err == nil {
		t.Fatal("expected state conflict for PENDING -> COMPLETED")
	}
	if _, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{OrderID: created.ID, Status: "SHIPPED"}); err == nil {
		t.Fatal("expected validation error for unknown status")
	}
}

func TestUpdateDiscountClampsToSubtotal(t *testing.T) {
	repo := newStubOrderRepo()
	vaccine := testVaccine(500000)
	svc := newOrderService(t, repo, &stubVaccines{rows: []models.Vaccine{vaccine}}, &stubOutbox{})

	created, err := svc.CreateOrder(context.Background(), validInput(vaccine.ID))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	updated, err := svc.UpdateDiscount(context.Background(), created.ID, "sale10", 50000)
	if err != nil {
		t.Fatalf("update discount: %v", err)
	}
	if updated.DiscountVND != 50000 || updated.TotalVND != 450000 {
		t.Fatalf("unexpected totals after discount: %+v", updated)
	}
	if updated.PromotionCode == nil || *updated.PromotionCode != "SALE10" {
		t.Fatalf("expected normalized promotion code, got %v", updated.PromotionCode)
	}

	clamped, err := svc.UpdateDiscount(context.Background(), created.ID, "BIG", 900000)
	if err != nil {
		t.Fatalf("update discount: %v", err)
	}
	if clamped.DiscountVND != 500000 || clamped.TotalVND != 0 {
		t.Fatalf("expected clamp to subtotal, got %+v", clamped)
	}
}

func TestCheckEligibilityAgeWindow(t *testing.T) {
	infantVaccine := models.Vaccine{
		ID:            uuid.New(),
		Name:          "Rotarix",
		PriceVND:      800000,
		DosesRequired: 2,
		MinAgeMonths:  intPtr(2),
		MaxAgeMonths:  intPtr(6),
		IsActive:      true,
	}
	adultVaccine := testVaccine(250000)
	retired := models.Vaccine{ID: uuid.New(), Name: "Old", PriceVND: 100, DosesRequired: 1, IsActive: false}

	svc := newOrderService(t, newStubOrderRepo(), &stubVaccines{rows: []models.Vaccine{infantVaccine, adultVaccine, retired}}, &stubOutbox{})
	ctx := context.Background()

	// A 4-month-old infant: Rotarix fine, MMR below minimum age.
	infantDOB := fixedNow().AddDate(0, -4, 0)
	result, err := svc.CheckEligibility(ctx, EligibilityInput{
		CustomerDOB: infantDOB,
		Lines: []LineInput{
			{VaccineID: infantVaccine.ID, Quantity: 1},
			{VaccineID: adultVaccine.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("check eligibility: %v", err)
	}
	if result.Eligible {
		t.Fatal("expected ineligible result")
	}
	if len(result.Errors) != 1 || result.Errors[0].VaccineID != adultVaccine.ID {
		t.Fatalf("expected one error for the adult vaccine, got %+v", result.Errors)
	}

	// An adult: Rotarix above maximum age, inactive service rejected.
	adultDOB := fixedNow().AddDate(-30, 0, 0)
	result, err = svc.CheckEligibility(ctx, EligibilityInput{
		CustomerDOB: adultDOB,
		Lines: []LineInput{
			{VaccineID: infantVaccine.ID, Quantity: 1},
			{VaccineID: retired.ID, Quantity: 1},
			{VaccineID: adultVaccine.ID, Quantity: 3},
		},
	})
	if err != nil {
		t.Fatalf("check eligibility: %v", err)
	}
	if result.Eligible {
		t.Fatal("expected ineligible result")
	}
	if len(result.Errors) != 2 {
		t.Fatalf("expected two errors, got %+v", result.Errors)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected dose warning, got %+v", result.Warnings)
	}
}

func TestMonthsBetween(t *testing.T) {
	t.Parallel()

	from := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		to       time.Time
		expected int
	}{
		{time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), 12},
		{time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, tc := range cases {
		if got := monthsBetween(from, tc.to); got != tc.expected {
			t.Fatalf("monthsBetween(%s): expected %d, got %d", tc.to, tc.expected, got)
		}
	}
}
