package checkout

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/vinavax/vinavax-backend/internal/cart"
	order "github.com/vinavax/vinavax-backend/internal/orders"
	payment "github.com/vinavax/vinavax-backend/internal/payments"
	promotion "github.com/vinavax/vinavax-backend/internal/promotions"
	"github.com/vinavax/vinavax-backend/pkg/db/models"
	"github.com/vinavax/vinavax-backend/pkg/enums"
	pkgerrors "github.com/vinavax/vinavax-backend/pkg/errors"
)

type stubSessions struct {
	values map[string]string
}

func newStubSessions() *stubSessions { return &stubSessions{values: map[string]string{}} }

func (s *stubSessions) Set(_ context.Context, key string, value any, _ time.Duration) error {
	switch v := value.(type) {
	case []byte:
		s.values[key] = string(v)
	case string:
		s.values[key] = v
	default:
		return fmt.Errorf("unexpected value type %T", value)
	}
	return nil
}

func (s *stubSessions) Get(_ context.Context, key string) (string, error) {
	if v, ok := s.values[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (s *stubSessions) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func (s *stubSessions) CheckoutSessionKey(sessionID string) string {
	return "checkout:session:" + sessionID
}

type stubCartStore struct {
	snapshot cart.Snapshot
	cleared  []string
}

func (s *stubCartStore) GetCart(_ context.Context, customerID string) (cart.Snapshot, error) {
	snap := s.snapshot
	snap.CustomerID = customerID
	return snap, nil
}

func (s *stubCartStore) ClearCart(_ context.Context, customerID string) (cart.Snapshot, error) {
	s.cleared = append(s.cleared, customerID)
	s.snapshot = cart.Snapshot{CustomerID: customerID}
	return s.snapshot, nil
}

type stubCatalog struct {
	rows []models.Vaccine
}

func (s *stubCatalog) ListByIDs(_ context.Context, ids []uuid.UUID) ([]models.Vaccine, error) {
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

type stubValidator struct {
	result *promotion.ValidateCodeResult
	err    error
}

func (s *stubValidator) ValidateCode(_ context.Context, code string, subtotalVND int64) (*promotion.ValidateCodeResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &promotion.ValidateCodeResult{SubtotalVND: subtotalVND, PayableVND: subtotalVND}, nil
}

type stubOrderCreator struct {
	created     []order.CreateOrderInput
	createErr   error
	eligibility *order.EligibilityResult
}

func (s *stubOrderCreator) CreateOrder(_ context.Context, input order.CreateOrderInput) (*order.OrderDTO, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = append(s.created, input)
	return &order.OrderDTO{
		ID:            uuid.New(),
		OrderCode:     "VV20260301100000FFF",
		Status:        enums.OrderStatusPending,
		PaymentMethod: input.PaymentMethod,
		DiscountVND:   input.DiscountVND,
	}, nil
}

func (s *stubOrderCreator) CheckEligibility(context.Context, order.EligibilityInput) (*order.EligibilityResult, error) {
	if s.eligibility != nil {
		return s.eligibility, nil
	}
	return &order.EligibilityResult{Eligible: true}, nil
}

type stubInitiator struct {
	inputs []payment.CreatePaymentInput
	err    error
}

func (s *stubInitiator) CreatePayment(_ context.Context, input payment.CreatePaymentInput) (*payment.PaymentRequestDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.inputs = append(s.inputs, input)
	payURL := "https://test-payment.momo.vn/pay/" + input.OrderID.String()
	return &payment.PaymentRequestDTO{
		OrderID:   input.OrderID,
		RequestID: uuid.NewString(),
		PayURL:    &payURL,
	}, nil
}

type checkoutFixture struct {
	svc       Service
	sessions  *stubSessions
	carts     *stubCartStore
	catalog   *stubCatalog
	validator *stubValidator
	orders    *stubOrderCreator
	payments  *stubInitiator
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	f := &checkoutFixture{
		sessions:  newStubSessions(),
		carts:     &stubCartStore{},
		catalog:   &stubCatalog{},
		validator: &stubValidator{},
		orders:    &stubOrderCreator{},
		payments:  &stubInitiator{},
	}
	svc, err := NewService(ServiceParams{
		Sessions:   f.sessions,
		Carts:      f.carts,
		Vaccines:   f.catalog,
		Promotions: f.validator,
		Orders:     f.orders,
		Payments:   f.payments,
		Now:        func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func cartWith(priceVND int64, qty int) cart.Snapshot {
	return cart.Snapshot{Entries: []cart.Entry{{
		VaccineID: uuid.New(),
		Code:      "MMR",
		Name:      "MMR II",
		PriceVND:  priceVND,
		Quantity:  qty,
	}}}
}

func advanceToPayment(t *testing.T, f *checkoutFixture, info CustomerInfo, promoCode string) *Session {
	t.Helper()
	ctx := context.Background()
	sess, err := f.svc.StartSession(ctx, StartInput{CustomerRef: "customer-1"})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if sess.Step != StepCustomerInfo {
		t.Fatalf("expected customer_info step, got %s", sess.Step)
	}
	if sess, err = f.svc.SetCustomerInfo(ctx, sess.ID, info, nil); err != nil {
		t.Fatalf("set customer info: %v", err)
	}
	if sess.Step != StepOrderConfirmation {
		t.Fatalf("expected order_confirmation step, got %s", sess.Step)
	}
	if sess, err = f.svc.Confirm(ctx, sess.ID, ConfirmInput{PromotionCode: promoCode}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if sess.Step != StepPayment {
		t.Fatalf("expected payment step, got %s", sess.Step)
	}
	return sess
}

func TestSetCustomerInfoRejectsBadPhone(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx, StartInput{CustomerRef: "customer-1"})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	info := validInfo()
	info.Phone = "12345"
	if _, err := f.svc.SetCustomerInfo(ctx, sess.ID, info, nil); err == nil {
		t.Fatal("expected guard rejection")
	}

	reloaded, err := f.svc.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if reloaded.Step != StepCustomerInfo {
		t.Fatalf("rejected guard must not advance, got %s", reloaded.Step)
	}
}

func TestConfirmAppliesPromotion(t *testing.T) {
	f := newCheckoutFixture(t)
	f.carts.snapshot = cartWith(500000, 1)
	f.validator.result = &promotion.ValidateCodeResult{
		Promotion:   promotion.PromotionDTO{Code: "SALE10"},
		SubtotalVND: 500000,
		DiscountVND: 50000,
		PayableVND:  450000,
	}

	sess := advanceToPayment(t, f, validInfo(), "sale10")
	if sess.SubtotalVND != 500000 || sess.DiscountVND != 50000 || sess.PayableVND != 450000 {
		t.Fatalf("unexpected amounts: %+v", sess)
	}
	if sess.PromotionCode != "SALE10" {
		t.Fatalf("expected normalized code, got %q", sess.PromotionCode)
	}
}

func TestConfirmResetsRejectedCode(t *testing.T) {
	f := newCheckoutFixture(t)
	f.carts.snapshot = cartWith(100000, 1)
	f.validator.err = pkgerrors.New(pkgerrors.CodeValidation, "order is below the promotion minimum")

	ctx := context.Background()
	sess, err := f.svc.StartSession(ctx, StartInput{CustomerRef: "customer-1"})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if sess, err = f.svc.SetCustomerInfo(ctx, sess.ID, validInfo(), nil); err != nil {
		t.Fatalf("set customer info: %v", err)
	}
	if _, err := f.svc.Confirm(ctx, sess.ID, ConfirmInput{PromotionCode: "SALE10"}); err == nil {
		t.Fatal("expected rejected code to surface")
	}

	reloaded, err := f.svc.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if reloaded.Step != StepOrderConfirmation {
		t.Fatalf("expected session to stay confirmable, got %s", reloaded.Step)
	}
	if reloaded.PromotionCode != "" || reloaded.DiscountVND != 0 {
		t.Fatalf("expected code reset, got %+v", reloaded)
	}
}

func TestSubmitCashSucceedsAndClearsCart(t *testing.T) {
	f := newCheckoutFixture(t)
	f.carts.snapshot = cartWith(250000, 2)

	info := validInfo()
	info.PaymentMethod = enums.PaymentMethodCash
	sess := advanceToPayment(t, f, info, "")

	sess, err := f.svc.Submit(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sess.Step != StepSuccess {
		t.Fatalf("expected success, got %s", sess.Step)
	}
	if sess.OrderID == nil || sess.OrderCode == "" {
		t.Fatal("expected allocated order")
	}
	if len(f.carts.cleared) != 1 || f.carts.cleared[0] != "customer-1" {
		t.Fatalf("expected cart cleared, got %v", f.carts.cleared)
	}
	if len(f.payments.inputs) != 0 {
		t.Fatal("cash order must not contact the gateway")
	}
}

func TestSubmitGatewayReturnsPayURL(t *testing.T) {
	f := newCheckoutFixture(t)
	f.carts.snapshot = cartWith(500000, 1)
	f.validator.result = &promotion.ValidateCodeResult{
		Promotion:   promotion.PromotionDTO{Code: "SALE10"},
		SubtotalVND: 500000,
		DiscountVND: 50000,
		PayableVND:  450000,
	}

	sess := advanceToPayment(t, f, validInfo(), "SALE10")
	sess, err := f.svc.Submit(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sess.Step != StepSubmitting {
		t.Fatalf("expected session awaiting the redirect, got %s", sess.Step)
	}
	if sess.PayURL == "" {
		t.Fatal("expected pay url")
	}
	if len(f.carts.cleared) != 0 {
		t.Fatal("cart clears only after the gateway settles")
	}
	if len(f.orders.created) != 1 {
		t.Fatalf("expected one order, got %d", len(f.orders.created))
	}
	created := f.orders.created[0]
	if created.PromotionCode == nil || *created.PromotionCode != "SALE10" || created.DiscountVND != 50000 {
		t.Fatalf("expected promotion carried onto the order, got %+v", created)
	}
	if len(f.payments.inputs) != 1 || f.payments.inputs[0].CustomerRef != "customer-1" {
		t.Fatalf("expected gateway request with customer ref, got %+v", f.payments.inputs)
	}
}

func TestSubmitAdminIneligibleDoesNotCreateOrder(t *testing.T) {
	f := newCheckoutFixture(t)
	vaccineID := uuid.New()
	f.catalog.rows = []models.Vaccine{{ID: vaccineID, Name: "MMR II", PriceVND: 250000, IsActive: true}}
	f.orders.eligibility = &order.EligibilityResult{
		Eligible: false,
		Errors:   []order.EligibilityIssue{{VaccineID: vaccineID, Vaccine: "MMR II", Message: "customer is below the minimum age of 12 months"}},
	}

	ctx := context.Background()
	sess, err := f.svc.StartSession(ctx, StartInput{CustomerRef: "staff-desk-1", Admin: true})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	locationID := uuid.New()
	info := validInfo()
	info.PreferredLocationID = &locationID
	lines := []Line{{VaccineID: vaccineID, Quantity: 1}}
	if sess, err = f.svc.SetCustomerInfo(ctx, sess.ID, info, lines); err != nil {
		t.Fatalf("set customer info: %v", err)
	}
	if sess, err = f.svc.Confirm(ctx, sess.ID, ConfirmInput{}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if sess.SubtotalVND != 250000 {
		t.Fatalf("expected priced admin lines, got %d", sess.SubtotalVND)
	}

	sess, err = f.svc.Submit(ctx, sess.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sess.Step != StepEligibilityRejected {
		t.Fatalf("expected eligibility_rejected, got %s", sess.Step)
	}
	if sess.Eligibility == nil || len(sess.Eligibility.Errors) != 1 {
		t.Fatalf("expected surfaced eligibility errors, got %+v", sess.Eligibility)
	}
	if len(f.orders.created) != 0 {
		t.Fatal("ineligible submission must not create an order")
	}
}

func TestSubmitFailureReturnsToPaymentStep(t *testing.T) {
	f := newCheckoutFixture(t)
	f.carts.snapshot = cartWith(250000, 1)
	f.orders.createErr = pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable")

	sess := advanceToPayment(t, f, validInfo(), "")
	if _, err := f.svc.Submit(context.Background(), sess.ID); err == nil {
		t.Fatal("expected submit error")
	}

	reloaded, err := f.svc.GetSession(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if reloaded.Step != StepPayment {
		t.Fatalf("expected return to payment step, got %s", reloaded.Step)
	}
	if reloaded.FailureMessage == "" {
		t.Fatal("expected surfaced failure message")
	}
	if reloaded.Customer.FullName != "Tran Thi B" {
		t.Fatal("entered data must survive the failure")
	}

	// A retry after the outage goes through.
	f.orders.createErr = nil
	retried, err := f.svc.Submit(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("retry submit: %v", err)
	}
	if retried.Step != StepSuccess && retried.Step != StepSubmitting {
		t.Fatalf("expected successful retry, got %s", retried.Step)
	}
}
