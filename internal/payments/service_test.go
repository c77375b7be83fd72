package payment

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vinavax/vinavax-backend/internal/cart"
	order "github.com/vinavax/vinavax-backend/internal/orders"
	promotion "github.com/vinavax/vinavax-backend/internal/promotions"
	"github.com/vinavax/vinavax-backend/pkg/db/models"
	"github.com/vinavax/vinavax-backend/pkg/enums"
	pkgerrors "github.com/vinavax/vinavax-backend/pkg/errors"
	"github.com/vinavax/vinavax-backend/pkg/momo"
)

type stubGateway struct {
	lastCreate   *momo.CreateParams
	createResp   *momo.CreateResponse
	verifyResult error
}

func (s *stubGateway) CreatePayment(_ context.Context, params momo.CreateParams) (*momo.CreateResponse, error) {
	s.lastCreate = &params
	if s.createResp != nil {
		return s.createResp, nil
	}
	return &momo.CreateResponse{
		RequestID:  params.RequestID,
		OrderID:    params.OrderID,
		Amount:     params.AmountVND,
		ResultCode: momo.ResultCodeSuccess,
		PayURL:     "https://test-payment.momo.vn/pay/" + params.RequestID,
	}, nil
}

func (s *stubGateway) VerifyReturnSignature(momo.ReturnParams) error { return s.verifyResult }

type stubOrders struct {
	order         *order.OrderDTO
	statusInputs  []order.UpdateStatusInput
	statusErr     error
	discountCalls []int64
	discountErr   error
}

func (s *stubOrders) GetOrder(context.Context, uuid.UUID) (*order.OrderDTO, error) {
	return s.order, nil
}

func (s *stubOrders) UpdateStatus(_ context.Context, input order.UpdateStatusInput) (*order.OrderDTO, error) {
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	s.statusInputs = append(s.statusInputs, input)
	return s.order, nil
}

func (s *stubOrders) UpdateDiscount(_ context.Context, _ uuid.UUID, _ string, discountVND int64) (*order.OrderDTO, error) {
	if s.discountErr != nil {
		return nil, s.discountErr
	}
	s.discountCalls = append(s.discountCalls, discountVND)
	return s.order, nil
}

type stubPromotions struct {
	usageInputs []promotion.RecordUsageInput
	usageErr    error
}

func (s *stubPromotions) RecordUsage(_ context.Context, input promotion.RecordUsageInput) (*promotion.UsageDTO, error) {
	if s.usageErr != nil {
		return nil, s.usageErr
	}
	s.usageInputs = append(s.usageInputs, input)
	return &promotion.UsageDTO{ID: uuid.New(), OrderID: input.OrderID, Code: input.Code, DiscountVND: input.DiscountVND}, nil
}

type stubCarts struct {
	cleared []string
}

func (s *stubCarts) ClearCart(_ context.Context, customerID string) (cart.Snapshot, error) {
	s.cleared = append(s.cleared, customerID)
	return cart.Snapshot{CustomerID: customerID}, nil
}

type stubFlags struct {
	set map[string]bool
}

func newStubFlags() *stubFlags { return &stubFlags{set: map[string]bool{}} }

func (s *stubFlags) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if s.set[key] {
		return false, nil
	}
	s.set[key] = true
	return true, nil
}

func (s *stubFlags) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.set, key)
	}
	return nil
}

func (s *stubFlags) PaymentProcessedKey(requestID string) string {
	return "payment:processed:" + requestID
}

type stubRequestRepo struct {
	rows        map[string]*models.PaymentRequest
	settlements []Settlement
}

func newStubRequestRepo() *stubRequestRepo {
	return &stubRequestRepo{rows: map[string]*models.PaymentRequest{}}
}

func (s *stubRequestRepo) Create(_ context.Context, row *models.PaymentRequest) error {
	row.ID = uuid.New()
	s.rows[row.RequestID] = row
	return nil
}

func (s *stubRequestRepo) FindByRequestID(_ context.Context, requestID string) (*models.PaymentRequest, error) {
	if row, ok := s.rows[requestID]; ok {
		return row, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRequestRepo) FindLatestByOrderID(_ context.Context, orderID uuid.UUID) (*models.PaymentRequest, error) {
	for _, row := range s.rows {
		if row.OrderID == orderID {
			return row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRequestRepo) RecordSettlement(_ context.Context, requestID string, settlement Settlement) error {
	s.settlements = append(s.settlements, settlement)
	if row, ok := s.rows[requestID]; ok {
		row.Status = settlement.Status
		row.Message = settlement.Message
	}
	return nil
}

type paymentFixture struct {
	svc        Service
	repo       *stubRequestRepo
	orders     *stubOrders
	promotions *stubPromotions
	carts      *stubCarts
	gateway    *stubGateway
	flags      *stubFlags
}

func newPaymentFixture(t *testing.T, orderDTO *order.OrderDTO) *paymentFixture {
	t.Helper()
	f := &paymentFixture{
		repo:       newStubRequestRepo(),
		orders:     &stubOrders{order: orderDTO},
		promotions: &stubPromotions{},
		carts:      &stubCarts{},
		gateway:    &stubGateway{},
		flags:      newStubFlags(),
	}
	svc, err := NewService(ServiceParams{
		Repo:       f.repo,
		Orders:     f.orders,
		Promotions: f.promotions,
		Carts:      f.carts,
		Gateway:    f.gateway,
		Flags:      f.flags,
		Now:        func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func pendingOrder(promotionCode string, subtotal, discount int64) *order.OrderDTO {
	dto := &order.OrderDTO{
		ID:            uuid.New(),
		OrderCode:     "VV20260301120000ABC",
		PaymentMethod: enums.PaymentMethodMoMo,
		Status:        enums.OrderStatusPending,
		SubtotalVND:   subtotal,
		DiscountVND:   discount,
		TotalVND:      subtotal - discount,
	}
	if promotionCode != "" {
		dto.PromotionCode = &promotionCode
	}
	return dto
}

func TestCreatePaymentCarriesDiscountedAmount(t *testing.T) {
	f := newPaymentFixture(t, pendingOrder("SALE10", 500000, 50000))

	dto, err := f.svc.CreatePayment(context.Background(), CreatePaymentInput{
		OrderID:     f.orders.order.ID,
		CustomerRef: "customer-1",
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if f.gateway.lastCreate == nil {
		t.Fatal("expected gateway call")
	}
	if f.gateway.lastCreate.AmountVND != 450000 {
		t.Fatalf("expected post-discount amount 450000, got %d", f.gateway.lastCreate.AmountVND)
	}
	if encoded := f.gateway.lastCreate.ExtraData.Encode(); encoded != "discountAmount=50000&promotionCode=SALE10" {
		t.Fatalf("unexpected extraData %q", encoded)
	}
	if dto.PayURL == nil || *dto.PayURL == "" {
		t.Fatal("expected pay url")
	}
	stored := f.repo.rows[dto.RequestID]
	if stored == nil || stored.CustomerRef == nil || *stored.CustomerRef != "customer-1" {
		t.Fatalf("expected stored customer ref, got %+v", stored)
	}
}

func TestCreatePaymentRejectsNonGatewayOrder(t *testing.T) {
	dto := pendingOrder("", 500000, 0)
	dto.PaymentMethod = enums.PaymentMethodCash
	f := newPaymentFixture(t, dto)

	_, err := f.svc.CreatePayment(context.Background(), CreatePaymentInput{OrderID: dto.ID})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func successReturn(requestID, orderCode string, amount int64, extra momo.ExtraData) url.Values {
	values := url.Values{}
	values.Set("partnerCode", "PARTNER")
	values.Set("orderId", orderCode)
	values.Set("requestId", requestID)
	values.Set("amount", fmt.Sprintf("%d", amount))
	values.Set("orderInfo", "Thanh toan don hang "+orderCode)
	values.Set("orderType", "momo_wallet")
	values.Set("transId", "987654321")
	values.Set("resultCode", "0")
	values.Set("message", "Successful.")
	values.Set("payType", "qr")
	values.Set("responseTime", "1767225600000")
	values.Set("extraData", extra.Encode())
	values.Set("signature", "irrelevant-for-stub")
	return values
}

func TestHandleReturnProcessesExactlyOnce(t *testing.T) {
	orderDTO := pendingOrder("SALE10", 500000, 50000)
	f := newPaymentFixture(t, orderDTO)

	created, err := f.svc.CreatePayment(context.Background(), CreatePaymentInput{
		OrderID:     orderDTO.ID,
		CustomerRef: "customer-1",
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	extra := momo.ExtraData{PromotionCode: "SALE10", DiscountAmountVND: 50000}
	values := successReturn(created.RequestID, orderDTO.OrderCode, 450000, extra)

	result, err := f.svc.HandleReturn(context.Background(), values)
	if err != nil {
		t.Fatalf("handle return: %v", err)
	}
	if !result.Success || result.Replayed {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", result.Warnings)
	}
	if len(f.orders.statusInputs) != 1 || f.orders.statusInputs[0].Status != enums.OrderStatusPaid {
		t.Fatalf("expected one PAID transition, got %+v", f.orders.statusInputs)
	}
	if f.orders.statusInputs[0].TransID == nil || *f.orders.statusInputs[0].TransID != "987654321" {
		t.Fatal("expected gateway transId on the transition")
	}
	if len(f.orders.discountCalls) != 1 || f.orders.discountCalls[0] != 50000 {
		t.Fatalf("expected discount persist of 50000, got %v", f.orders.discountCalls)
	}
	if len(f.promotions.usageInputs) != 1 || f.promotions.usageInputs[0].Code != "SALE10" {
		t.Fatalf("expected one usage record, got %+v", f.promotions.usageInputs)
	}
	if len(f.carts.cleared) != 1 || f.carts.cleared[0] != "customer-1" {
		t.Fatalf("expected cart cleared, got %v", f.carts.cleared)
	}

	// A reload of the same redirect is a no-op.
	replay, err := f.svc.HandleReturn(context.Background(), values)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !replay.Replayed || !replay.Success {
		t.Fatalf("expected replayed success, got %+v", replay)
	}
	if len(f.orders.statusInputs) != 1 || len(f.promotions.usageInputs) != 1 || len(f.carts.cleared) != 1 {
		t.Fatal("replay must not repeat side effects")
	}
}

func TestHandleReturnIsolatesPromotionFailures(t *testing.T) {
	orderDTO := pendingOrder("SALE10", 500000, 50000)
	f := newPaymentFixture(t, orderDTO)
	f.promotions.usageErr = fmt.Errorf("usage table unavailable")

	created, err := f.svc.CreatePayment(context.Background(), CreatePaymentInput{
		OrderID:     orderDTO.ID,
		CustomerRef: "customer-1",
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	extra := momo.ExtraData{PromotionCode: "SALE10", DiscountAmountVND: 50000}
	result, err := f.svc.HandleReturn(context.Background(), successReturn(created.RequestID, orderDTO.OrderCode, 450000, extra))
	if err != nil {
		t.Fatalf("handle return: %v", err)
	}
	if !result.Success {
		t.Fatal("usage failure must not block the paid outcome")
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", result.Warnings)
	}
	if len(f.orders.discountCalls) != 1 {
		t.Fatal("discount persist must still run")
	}
	if len(f.carts.cleared) != 1 {
		t.Fatal("cart must still be cleared")
	}
}

func TestHandleReturnFailureLeavesOrderUntouched(t *testing.T) {
	orderDTO := pendingOrder("", 500000, 0)
	f := newPaymentFixture(t, orderDTO)

	created, err := f.svc.CreatePayment(context.Background(), CreatePaymentInput{OrderID: orderDTO.ID})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	values := successReturn(created.RequestID, orderDTO.OrderCode, 500000, momo.ExtraData{})
	values.Set("resultCode", "1006")
	values.Set("message", "Transaction denied by user.")

	result, err := f.svc.HandleReturn(context.Background(), values)
	if err != nil {
		t.Fatalf("handle return: %v", err)
	}
	if result.Success {
		t.Fatal("expected failed reconciliation")
	}
	if result.Message != "Transaction denied by user." {
		t.Fatalf("expected verbatim gateway message, got %q", result.Message)
	}
	if len(f.orders.statusInputs) != 0 || len(f.orders.discountCalls) != 0 {
		t.Fatal("failed payment must not mutate the order")
	}
	if len(f.repo.settlements) != 1 || f.repo.settlements[0].Status != enums.PaymentStatusFailed {
		t.Fatalf("expected failed settlement, got %+v", f.repo.settlements)
	}
}

func TestHandleReturnRejectsBadSignature(t *testing.T) {
	orderDTO := pendingOrder("", 500000, 0)
	f := newPaymentFixture(t, orderDTO)
	f.gateway.verifyResult = momo.ErrInvalidSignature

	created, err := f.svc.CreatePayment(context.Background(), CreatePaymentInput{OrderID: orderDTO.ID})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	_, err = f.svc.HandleReturn(context.Background(), successReturn(created.RequestID, orderDTO.OrderCode, 500000, momo.ExtraData{}))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if len(f.flags.set) != 0 {
		t.Fatal("rejected redirect must not claim the processed flag")
	}
}

func TestHandleReturnReleasesFlagWhenStatusUpdateFails(t *testing.T) {
	orderDTO := pendingOrder("", 500000, 0)
	f := newPaymentFixture(t, orderDTO)

	created, err := f.svc.CreatePayment(context.Background(), CreatePaymentInput{OrderID: orderDTO.ID})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	f.orders.statusErr = fmt.Errorf("db down")
	values := successReturn(created.RequestID, orderDTO.OrderCode, 500000, momo.ExtraData{})
	if _, err := f.svc.HandleReturn(context.Background(), values); err == nil {
		t.Fatal("expected error")
	}

	// The flag was released, so a retry completes the reconciliation.
	f.orders.statusErr = nil
	result, err := f.svc.HandleReturn(context.Background(), values)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if result.Replayed || !result.Success {
		t.Fatalf("expected fresh successful reconciliation, got %+v", result)
	}
	if len(f.orders.statusInputs) != 1 {
		t.Fatalf("expected exactly one applied transition, got %d", len(f.orders.statusInputs))
	}
}
