package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/vinavax/vinavax-backend/internal/cart"
	order "github.com/vinavax/vinavax-backend/internal/orders"
	promotion "github.com/vinavax/vinavax-backend/internal/promotions"
	"github.com/vinavax/vinavax-backend/pkg/db/models"
	"github.com/vinavax/vinavax-backend/pkg/enums"
	pkgerrors "github.com/vinavax/vinavax-backend/pkg/errors"
	"github.com/vinavax/vinavax-backend/pkg/metrics"
	"github.com/vinavax/vinavax-backend/pkg/momo"
)

// processedFlagTTL keeps redirect processed-flags long enough to absorb
// reloads of a stale redirect URL.
const processedFlagTTL = 24 * time.Hour

type gatewayClient interface {
	CreatePayment(ctx context.Context, params momo.CreateParams) (*momo.CreateResponse, error)
	VerifyReturnSignature(p momo.ReturnParams) error
}

type orderService interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*order.OrderDTO, error)
	UpdateStatus(ctx context.Context, input order.UpdateStatusInput) (*order.OrderDTO, error)
	UpdateDiscount(ctx context.Context, orderID uuid.UUID, promotionCode string, discountVND int64) (*order.OrderDTO, error)
}

type promotionRecorder interface {
	RecordUsage(ctx context.Context, input promotion.RecordUsageInput) (*promotion.UsageDTO, error)
}

type cartClearer interface {
	ClearCart(ctx context.Context, customerID string) (cart.Snapshot, error)
}

type processedFlags interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	PaymentProcessedKey(requestID string) string
}

type requestRepository interface {
	Create(ctx context.Context, row *models.PaymentRequest) error
	FindByRequestID(ctx context.Context, requestID string) (*models.PaymentRequest, error)
	FindLatestByOrderID(ctx context.Context, orderID uuid.UUID) (*models.PaymentRequest, error)
	RecordSettlement(ctx context.Context, requestID string, settlement Settlement) error
}

// Service creates gateway payment requests and reconciles their redirects.
type Service interface {
	CreatePayment(ctx context.Context, input CreatePaymentInput) (*PaymentRequestDTO, error)
	GetStatus(ctx context.Context, orderID uuid.UUID) (*PaymentRequestDTO, error)
	HandleReturn(ctx context.Context, values url.Values) (*ReconcileResult, error)
}

// CreatePaymentInput carries a payment-URL request for a pending order.
type CreatePaymentInput struct {
	OrderID     uuid.UUID
	CustomerRef string
}

type service struct {
	repo       requestRepository
	orders     orderService
	promotions promotionRecorder
	carts      cartClearer
	gateway    gatewayClient
	flags      processedFlags
	metrics    *metrics.CheckoutMetrics
	now        func() time.Time
}

// ServiceParams collects the payment service dependencies.
type ServiceParams struct {
	Repo       requestRepository
	Orders     orderService
	Promotions promotionRecorder
	Carts      cartClearer
	Gateway    gatewayClient
	Flags      processedFlags
	Metrics    *metrics.CheckoutMetrics
	Now        func() time.Time
}

// NewService builds the payment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	if params.Promotions == nil {
		return nil, fmt.Errorf("promotion recorder required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart clearer required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if params.Flags == nil {
		return nil, fmt.Errorf("processed-flag store required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:       params.Repo,
		orders:     params.Orders,
		promotions: params.Promotions,
		carts:      params.Carts,
		gateway:    params.Gateway,
		flags:      params.Flags,
		metrics:    params.Metrics,
		now:        params.Now,
	}, nil
}

// CreatePayment requests a gateway payment URL for the order's payable
// amount, embedding promotion metadata as opaque extraData for the
// reconciler to echo back.
func (s *service) CreatePayment(ctx context.Context, input CreatePaymentInput) (*PaymentRequestDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	row, err := s.orders.GetOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if row.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot start payment for %s order", row.Status))
	}
	if !row.PaymentMethod.IsGateway() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("payment method %q does not use the gateway", row.PaymentMethod))
	}

	extra := momo.ExtraData{}
	if row.PromotionCode != nil && row.DiscountVND > 0 {
		extra.PromotionCode = *row.PromotionCode
		extra.DiscountAmountVND = row.DiscountVND
	}

	requestID := uuid.NewString()
	resp, err := s.gateway.CreatePayment(ctx, momo.CreateParams{
		OrderID:   row.OrderCode,
		RequestID: requestID,
		AmountVND: row.TotalVND,
		OrderInfo: fmt.Sprintf("Thanh toan don hang %s", row.OrderCode),
		ExtraData: extra,
	})
	if err != nil {
		return nil, err
	}

	record := &models.PaymentRequest{
		OrderID:   row.ID,
		RequestID: requestID,
		AmountVND: row.TotalVND,
		PayURL:    &resp.PayURL,
		Status:    enums.PaymentStatusPending,
	}
	if ref := strings.TrimSpace(input.CustomerRef); ref != "" {
		record.CustomerRef = &ref
	}
	if encoded := extra.Encode(); encoded != "" {
		record.ExtraData = &encoded
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing payment request")
	}
	return toDTO(record), nil
}

// GetStatus serves the poll endpoint from the stored request rows.
func (s *service) GetStatus(ctx context.Context, orderID uuid.UUID) (*PaymentRequestDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	row, err := s.repo.FindLatestByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payment request for order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading payment request")
	}
	return toDTO(row), nil
}

// HandleReturn processes one gateway redirect exactly once. Promotion
// metadata comes only from the echoed extraData; the discount persist and
// the usage record are each isolated so a partial failure never blocks the
// PAID outcome.
func (s *service) HandleReturn(ctx context.Context, values url.Values) (*ReconcileResult, error) {
	params, err := momo.ParseReturnParams(values)
	if err != nil {
		return nil, err
	}
	if err := s.gateway.VerifyReturnSignature(params); err != nil {
		if errors.Is(err, momo.ErrInvalidSignature) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "gateway signature mismatch")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying gateway signature")
	}

	flagKey := s.flags.PaymentProcessedKey(params.RequestID)
	claimed, err := s.flags.SetNX(ctx, flagKey, "1", processedFlagTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "claiming processed flag")
	}
	if !claimed {
		return s.replayResult(ctx, params)
	}

	record, err := s.repo.FindByRequestID(ctx, params.RequestID)
	if err != nil {
		s.releaseFlag(ctx, flagKey)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown payment request")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading payment request")
	}

	if !params.Succeeded() {
		return s.settleFailure(ctx, record, params)
	}
	return s.settleSuccess(ctx, flagKey, record, params)
}

func (s *service) settleSuccess(ctx context.Context, flagKey string, record *models.PaymentRequest, params momo.ReturnParams) (*ReconcileResult, error) {
	transID := params.TransID
	if _, err := s.orders.UpdateStatus(ctx, order.UpdateStatusInput{
		OrderID: record.OrderID,
		Status:  enums.OrderStatusPaid,
		TransID: &transID,
	}); err != nil {
		// Leave the redirect claimable so a later retry can finish the job.
		s.releaseFlag(ctx, flagKey)
		return nil, err
	}

	extra := momo.DecodeExtraData(params.ExtraData)
	var sideEffects error
	if !extra.IsZero() {
		if _, err := s.orders.UpdateDiscount(ctx, record.OrderID, extra.PromotionCode, extra.DiscountAmountVND); err != nil {
			sideEffects = multierr.Append(sideEffects, fmt.Errorf("persisting discount: %w", err))
		}
		if _, err := s.promotions.RecordUsage(ctx, promotion.RecordUsageInput{
			OrderID:     record.OrderID,
			Code:        extra.PromotionCode,
			DiscountVND: extra.DiscountAmountVND,
		}); err != nil {
			sideEffects = multierr.Append(sideEffects, fmt.Errorf("recording promotion usage: %w", err))
		}
		s.metrics.AddDiscountVND(extra.DiscountAmountVND)
	}
	if record.CustomerRef != nil {
		if _, err := s.carts.ClearCart(ctx, *record.CustomerRef); err != nil {
			sideEffects = multierr.Append(sideEffects, fmt.Errorf("clearing cart: %w", err))
		}
	}
	if err := s.recordSettlement(ctx, record.RequestID, enums.PaymentStatusPaid, params); err != nil {
		sideEffects = multierr.Append(sideEffects, fmt.Errorf("stamping settlement: %w", err))
	}

	s.metrics.IncReconciliation("success")
	return &ReconcileResult{
		OrderID:     record.OrderID,
		RequestID:   record.RequestID,
		Success:     true,
		Message:     params.Message,
		DiscountVND: extra.DiscountAmountVND,
		Warnings:    warningMessages(sideEffects),
	}, nil
}

func (s *service) settleFailure(ctx context.Context, record *models.PaymentRequest, params momo.ReturnParams) (*ReconcileResult, error) {
	var sideEffects error
	if err := s.recordSettlement(ctx, record.RequestID, enums.PaymentStatusFailed, params); err != nil {
		sideEffects = multierr.Append(sideEffects, fmt.Errorf("stamping settlement: %w", err))
	}
	s.metrics.IncReconciliation("failure")
	return &ReconcileResult{
		OrderID:   record.OrderID,
		RequestID: record.RequestID,
		Success:   false,
		Message:   params.Message,
		Warnings:  warningMessages(sideEffects),
	}, nil
}

// replayResult serves a repeat redirect from the stored row without
// re-running any side effect.
func (s *service) replayResult(ctx context.Context, params momo.ReturnParams) (*ReconcileResult, error) {
	s.metrics.IncReconciliation("replay")
	result := &ReconcileResult{
		RequestID: params.RequestID,
		Replayed:  true,
		Success:   params.Succeeded(),
		Message:   params.Message,
	}
	record, err := s.repo.FindByRequestID(ctx, params.RequestID)
	if err != nil {
		return result, nil
	}
	result.OrderID = record.OrderID
	result.Success = record.Status == enums.PaymentStatusPaid
	if record.Message != nil {
		result.Message = *record.Message
	}
	return result, nil
}

func (s *service) recordSettlement(ctx context.Context, requestID string, status enums.PaymentStatus, params momo.ReturnParams) error {
	settledAt := s.now().UTC()
	resultCode := params.ResultCode
	settlement := Settlement{
		Status:     status,
		ResultCode: &resultCode,
		SettledAt:  settledAt,
	}
	if params.TransID != "" {
		transID := params.TransID
		settlement.TransID = &transID
	}
	if params.Message != "" {
		message := params.Message
		settlement.Message = &message
	}
	if params.PayType != "" {
		payType := params.PayType
		settlement.PayType = &payType
	}
	return s.repo.RecordSettlement(ctx, requestID, settlement)
}

func (s *service) releaseFlag(ctx context.Context, key string) {
	_ = s.flags.Del(ctx, key)
}

func warningMessages(err error) []string {
	errs := multierr.Errors(err)
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	return out
}
