package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vinavax/vinavax-backend/api/middleware"
	"github.com/vinavax/vinavax-backend/api/responses"
	"github.com/vinavax/vinavax-backend/api/validators"
	ordersvc "github.com/vinavax/vinavax-backend/internal/orders"
	"github.com/vinavax/vinavax-backend/pkg/enums"
	pkgerrors "github.com/vinavax/vinavax-backend/pkg/errors"
	"github.com/vinavax/vinavax-backend/pkg/logger"
	"github.com/vinavax/vinavax-backend/pkg/outbox"
)

type orderLinePayload struct {
	VaccineID uuid.UUID `json:"vaccineId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type createOrderRequest struct {
	CustomerFullName string             `json:"customerFullName" validate:"required"`
	CustomerPhone    string             `json:"customerPhone" validate:"required"`
	CustomerEmail    string             `json:"customerEmail" validate:"required,email"`
	CustomerDOB      time.Time          `json:"customerDateOfBirth" validate:"required"`
	CustomerAddress  string             `json:"customerAddress" validate:"required"`
	LocationID       *uuid.UUID         `json:"locationId"`
	PaymentMethod    string             `json:"paymentMethod" validate:"required"`
	PromotionCode    *string            `json:"promotionCode"`
	DiscountVND      int64              `json:"discountVnd" validate:"omitempty,min=0"`
	Lines            []orderLinePayload `json:"lines" validate:"required,min=1,dive"`
}

func (r createOrderRequest) toInput() (ordersvc.CreateOrderInput, error) {
	method, err := enums.ParsePaymentMethod(r.PaymentMethod)
	if err != nil {
		return ordersvc.CreateOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}
	lines := make([]ordersvc.LineInput, len(r.Lines))
	for i, line := range r.Lines {
		lines[i] = ordersvc.LineInput{VaccineID: line.VaccineID, Quantity: line.Quantity}
	}
	return ordersvc.CreateOrderInput{
		CustomerFullName: r.CustomerFullName,
		CustomerPhone:    r.CustomerPhone,
		CustomerEmail:    r.CustomerEmail,
		CustomerDOB:      r.CustomerDOB,
		CustomerAddress:  r.CustomerAddress,
		LocationID:       r.LocationID,
		PaymentMethod:    method,
		PromotionCode:    r.PromotionCode,
		DiscountVND:      r.DiscountVND,
		Lines:            lines,
	}, nil
}

type updateOrderStatusRequest struct {
	Status  string  `json:"status" validate:"required"`
	TransID *string `json:"transId"`
}

type updateOrderDiscountRequest struct {
	PromotionCode string `json:"promotionCode" validate:"required"`
	DiscountVND   int64  `json:"discountVnd" validate:"required,gt=0"`
}

type checkEligibilityRequest struct {
	CustomerDOB time.Time          `json:"customerDateOfBirth" validate:"required"`
	Lines       []orderLinePayload `json:"lines" validate:"required,min=1,dive"`
}

func OrderCreate(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func OrderGet(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		id, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.GetOrder(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, row)
	}
}

func OrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var status *enums.OrderStatus
		if raw := r.URL.Query().Get("status"); raw != "" {
			parsed, parseErr := enums.ParseOrderStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status filter"))
				return
			}
			status = &parsed
		}

		rows, err := svc.ListOrders(r.Context(), status, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

func OrderUpdateStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		id, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		updated, err := svc.UpdateStatus(r.Context(), ordersvc.UpdateStatusInput{
			OrderID: id,
			Status:  status,
			TransID: body.TransID,
			Actor:   actorFromContext(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

func OrderUpdateDiscount(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		id, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateOrderDiscountRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdateDiscount(r.Context(), id, body.PromotionCode, body.DiscountVND)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

// OrderCheckEligibility runs the age-window rules without creating an
// order. Rejection is still a 200 with eligible=false.
func OrderCheckEligibility(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var body checkEligibilityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]ordersvc.LineInput, len(body.Lines))
		for i, line := range body.Lines {
			lines[i] = ordersvc.LineInput{VaccineID: line.VaccineID, Quantity: line.Quantity}
		}

		result, err := svc.CheckEligibility(r.Context(), ordersvc.EligibilityInput{
			CustomerDOB: body.CustomerDOB,
			Lines:       lines,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func actorFromContext(r *http.Request) *outbox.ActorRef {
	userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if err != nil {
		return nil
	}
	return &outbox.ActorRef{
		StaffUserID: userID,
		Role:        middleware.RoleFromContext(r.Context()),
	}
}
