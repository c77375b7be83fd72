package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/vinavax/vinavax-backend/internal/cart"
	order "github.com/vinavax/vinavax-backend/internal/orders"
	payment "github.com/vinavax/vinavax-backend/internal/payments"
	promotion "github.com/vinavax/vinavax-backend/internal/promotions"
	"github.com/vinavax/vinavax-backend/pkg/db/models"
	pkgerrors "github.com/vinavax/vinavax-backend/pkg/errors"
	"github.com/vinavax/vinavax-backend/pkg/metrics"
)

// SessionTTL bounds how long entered checkout data survives in Redis.
const SessionTTL = 30 * time.Minute

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CheckoutSessionKey(sessionID string) string
}

type cartReader interface {
	GetCart(ctx context.Context, customerID string) (cart.Snapshot, error)
	ClearCart(ctx context.Context, customerID string) (cart.Snapshot, error)
}

type vaccineLoader interface {
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Vaccine, error)
}

type promotionValidator interface {
	ValidateCode(ctx context.Context, code string, subtotalVND int64) (*promotion.ValidateCodeResult, error)
}

type orderCreator interface {
	CreateOrder(ctx context.Context, input order.CreateOrderInput) (*order.OrderDTO, error)
	CheckEligibility(ctx context.Context, input order.EligibilityInput) (*order.EligibilityResult, error)
}

type paymentInitiator interface {
	CreatePayment(ctx context.Context, input payment.CreatePaymentInput) (*payment.PaymentRequestDTO, error)
}

// Service drives the checkout wizard:
// customer_info -> order_confirmation -> payment -> submitting ->
// {success | eligibility_rejected | failure}.
type Service interface {
	StartSession(ctx context.Context, input StartInput) (*Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	SetCustomerInfo(ctx context.Context, id uuid.UUID, info CustomerInfo, lines []Line) (*Session, error)
	Confirm(ctx context.Context, id uuid.UUID, input ConfirmInput) (*Session, error)
	Submit(ctx context.Context, id uuid.UUID) (*Session, error)
}

// StartInput opens a new checkout session.
type StartInput struct {
	CustomerRef string
	Admin       bool
}

// ConfirmInput carries the order-confirmation step data.
type ConfirmInput struct {
	PromotionCode string
}

type service struct {
	sessions   sessionStore
	carts      cartReader
	vaccines   vaccineLoader
	promotions promotionValidator
	orders     orderCreator
	payments   paymentInitiator
	metrics    *metrics.CheckoutMetrics
	now        func() time.Time
}

// ServiceParams collects the checkout service dependencies.
type ServiceParams struct {
	Sessions   sessionStore
	Carts      cartReader
	Vaccines   vaccineLoader
	Promotions promotionValidator
	Orders     orderCreator
	Payments   paymentInitiator
	Metrics    *metrics.CheckoutMetrics
	Now        func() time.Time
}

// NewService builds the checkout orchestrator.
func NewService(params ServiceParams) (Service, error) {
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if params.Vaccines == nil {
		return nil, fmt.Errorf("vaccine loader required")
	}
	if params.Promotions == nil {
		return nil, fmt.Errorf("promotion validator required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment service required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		sessions:   params.Sessions,
		carts:      params.Carts,
		vaccines:   params.Vaccines,
		promotions: params.Promotions,
		orders:     params.Orders,
		payments:   params.Payments,
		metrics:    params.Metrics,
		now:        params.Now,
	}, nil
}

func (s *service) StartSession(ctx context.Context, input StartInput) (*Session, error) {
	ref := strings.TrimSpace(input.CustomerRef)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer reference is required")
	}
	now := s.now().UTC()
	sess := &Session{
		ID:          uuid.New(),
		CustomerRef: ref,
		Admin:       input.Admin,
		Step:        StepCustomerInfo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *service) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.load(ctx, id)
}

// SetCustomerInfo applies the entry guard and advances to order
// confirmation. Editing after a later step resets the computed amounts.
func (s *service) SetCustomerInfo(ctx context.Context, id uuid.UUID, info CustomerInfo, lines []Line) (*Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Terminal() || sess.Step == StepSubmitting {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("session is at %s", sess.Step))
	}
	if err := ValidateCustomerInfo(info, sess.Admin, lines); err != nil {
		return nil, err
	}

	info.FullName = strings.TrimSpace(info.FullName)
	info.Phone = stripWhitespace(info.Phone)
	info.Email = strings.TrimSpace(info.Email)
	info.Address = strings.TrimSpace(info.Address)

	sess.Customer = info
	if sess.Admin {
		sess.Lines = lines
	}
	sess.Step = StepOrderConfirmation
	sess.PromotionCode = ""
	sess.SubtotalVND = 0
	sess.DiscountVND = 0
	sess.PayableVND = 0
	sess.FailureMessage = ""
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Confirm prices the selection, applies an optional promotion code, and
// advances to the payment step. A rejected code leaves the session on the
// confirmation step with the code reset.
func (s *service) Confirm(ctx context.Context, id uuid.UUID, input ConfirmInput) (*Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Step != StepOrderConfirmation && sess.Step != StepPayment {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot confirm from %s", sess.Step))
	}

	subtotal, err := s.subtotal(ctx, sess)
	if err != nil {
		return nil, err
	}

	sess.SubtotalVND = subtotal
	sess.PromotionCode = ""
	sess.DiscountVND = 0
	sess.PayableVND = subtotal

	if code := strings.TrimSpace(input.PromotionCode); code != "" {
		result, err := s.promotions.ValidateCode(ctx, code, subtotal)
		if err != nil {
			// The entered code is reset; the session stays confirmable.
			sess.Step = StepOrderConfirmation
			if saveErr := s.save(ctx, sess); saveErr != nil {
				return nil, saveErr
			}
			return nil, err
		}
		sess.PromotionCode = result.Promotion.Code
		sess.DiscountVND = result.DiscountVND
		sess.PayableVND = result.PayableVND
	}

	sess.Step = StepPayment
	sess.FailureMessage = ""
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Submit places the order. Any failure returns the session to the payment
// step with entered data intact; nothing is retried automatically.
func (s *service) Submit(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Step != StepPayment {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot submit from %s", sess.Step))
	}
	sess.Step = StepSubmitting
	sess.FailureMessage = ""

	lines, err := s.orderLines(ctx, sess)
	if err != nil {
		return s.failSubmit(ctx, sess, err)
	}

	if sess.Admin {
		eligibility, err := s.orders.CheckEligibility(ctx, order.EligibilityInput{
			CustomerDOB: sess.Customer.DateOfBirth,
			Lines:       lines,
		})
		if err != nil {
			return s.failSubmit(ctx, sess, err)
		}
		if !eligibility.Eligible {
			sess.Step = StepEligibilityRejected
			sess.Eligibility = eligibility
			s.metrics.IncSubmission("eligibility_rejected")
			if err := s.save(ctx, sess); err != nil {
				return nil, err
			}
			return sess, nil
		}
		sess.Eligibility = eligibility
	}

	input := order.CreateOrderInput{
		CustomerFullName: sess.Customer.FullName,
		CustomerPhone:    sess.Customer.Phone,
		CustomerEmail:    sess.Customer.Email,
		CustomerDOB:      sess.Customer.DateOfBirth,
		CustomerAddress:  sess.Customer.Address,
		LocationID:       sess.Customer.PreferredLocationID,
		PaymentMethod:    sess.Customer.PaymentMethod,
		DiscountVND:      sess.DiscountVND,
		Lines:            lines,
	}
	if sess.PromotionCode != "" {
		code := sess.PromotionCode
		input.PromotionCode = &code
	}

	created, err := s.orders.CreateOrder(ctx, input)
	if err != nil {
		return s.failSubmit(ctx, sess, err)
	}
	orderID := created.ID
	sess.OrderID = &orderID
	sess.OrderCode = created.OrderCode

	if sess.Customer.PaymentMethod.IsGateway() {
		request, err := s.payments.CreatePayment(ctx, payment.CreatePaymentInput{
			OrderID:     created.ID,
			CustomerRef: sess.CustomerRef,
		})
		if err != nil {
			return s.failSubmit(ctx, sess, err)
		}
		if request.PayURL != nil {
			sess.PayURL = *request.PayURL
		}
		// Control leaves for the gateway here; the reconciler finishes the
		// flow when the redirect comes back.
		s.metrics.IncSubmission("gateway_redirect")
		if err := s.save(ctx, sess); err != nil {
			return nil, err
		}
		return sess, nil
	}

	if _, err := s.carts.ClearCart(ctx, sess.CustomerRef); err != nil {
		return s.failSubmit(ctx, sess, err)
	}
	sess.Step = StepSuccess
	s.metrics.IncSubmission("success")
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// failSubmit returns the wizard to the payment step, keeps entered data,
// and surfaces the failure message.
func (s *service) failSubmit(ctx context.Context, sess *Session, cause error) (*Session, error) {
	sess.Step = StepPayment
	if typed := pkgerrors.As(cause); typed != nil {
		sess.FailureMessage = typed.Message()
	} else {
		sess.FailureMessage = cause.Error()
	}
	s.metrics.IncSubmission("failure")
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, cause
}

func (s *service) orderLines(ctx context.Context, sess *Session) ([]order.LineInput, error) {
	if sess.Admin {
		lines := make([]order.LineInput, 0, len(sess.Lines))
		for _, line := range sess.Lines {
			lines = append(lines, order.LineInput{VaccineID: line.VaccineID, Quantity: line.Quantity})
		}
		if len(lines) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "no service lines selected")
		}
		return lines, nil
	}

	snapshot, err := s.carts.GetCart(ctx, sess.CustomerRef)
	if err != nil {
		return nil, err
	}
	if len(snapshot.Entries) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	lines := make([]order.LineInput, 0, len(snapshot.Entries))
	for _, entry := range snapshot.Entries {
		lines = append(lines, order.LineInput{VaccineID: entry.VaccineID, Quantity: entry.Quantity})
	}
	return lines, nil
}

func (s *service) subtotal(ctx context.Context, sess *Session) (int64, error) {
	if !sess.Admin {
		snapshot, err := s.carts.GetCart(ctx, sess.CustomerRef)
		if err != nil {
			return 0, err
		}
		if len(snapshot.Entries) == 0 {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		return snapshot.TotalVND(), nil
	}

	ids := make([]uuid.UUID, 0, len(sess.Lines))
	for _, line := range sess.Lines {
		ids = append(ids, line.VaccineID)
	}
	rows, err := s.vaccines.ListByIDs(ctx, ids)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading vaccines")
	}
	priceByID := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		if row.IsActive {
			priceByID[row.ID] = row.PriceVND
		}
	}
	var subtotal int64
	for _, line := range sess.Lines {
		price, ok := priceByID[line.VaccineID]
		if !ok {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("service %s is not available", line.VaccineID))
		}
		subtotal += price * int64(line.Quantity)
	}
	return subtotal, nil
}

func (s *service) save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = s.now().UTC()
	blob, err := json.Marshal(sess)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding checkout session")
	}
	key := s.sessions.CheckoutSessionKey(sess.ID.String())
	if err := s.sessions.Set(ctx, key, blob, SessionTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing checkout session")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*Session, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	key := s.sessions.CheckoutSessionKey(id.String())
	raw, err := s.sessions.Get(ctx, key)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session expired or not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading checkout session")
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding checkout session")
	}
	return &sess, nil
}
