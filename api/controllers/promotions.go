package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vinavax/vinavax-backend/api/responses"
	"github.com/vinavax/vinavax-backend/api/validators"
	promotionsvc "github.com/vinavax/vinavax-backend/internal/promotions"
	pkgerrors "github.com/vinavax/vinavax-backend/pkg/errors"
	"github.com/vinavax/vinavax-backend/pkg/logger"
)

type createPromotionRequest struct {
	Code          string     `json:"code" validate:"required"`
	Name          string     `json:"name" validate:"required"`
	Description   *string    `json:"description"`
	DiscountType  string     `json:"discountType" validate:"required,oneof=PERCENTAGE FIXED_AMOUNT"`
	DiscountValue int64      `json:"discountValue" validate:"required,gt=0"`
	MaxDiscount   *int64     `json:"maxDiscount" validate:"omitempty,gt=0"`
	MinOrderValue *int64     `json:"minOrderValue" validate:"omitempty,gt=0"`
	StartsAt      *time.Time `json:"startsAt"`
	EndsAt        *time.Time `json:"endsAt"`
	UsageLimit    *int       `json:"usageLimit" validate:"omitempty,min=1"`
	IsActive      *bool      `json:"isActive"`
}

func (r createPromotionRequest) toInput() promotionsvc.CreatePromotionInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return promotionsvc.CreatePromotionInput{
		Code:          r.Code,
		Name:          r.Name,
		Description:   r.Description,
		DiscountType:  r.DiscountType,
		DiscountValue: r.DiscountValue,
		MaxDiscount:   r.MaxDiscount,
		MinOrderValue: r.MinOrderValue,
		StartsAt:      r.StartsAt,
		EndsAt:        r.EndsAt,
		UsageLimit:    r.UsageLimit,
		IsActive:      active,
	}
}

type updatePromotionRequest struct {
	Name          *string    `json:"name"`
	Description   *string    `json:"description"`
	DiscountValue *int64     `json:"discountValue" validate:"omitempty,gt=0"`
	MaxDiscount   *int64     `json:"maxDiscount" validate:"omitempty,gt=0"`
	MinOrderValue *int64     `json:"minOrderValue" validate:"omitempty,gt=0"`
	StartsAt      *time.Time `json:"startsAt"`
	EndsAt        *time.Time `json:"endsAt"`
	UsageLimit    *int       `json:"usageLimit" validate:"omitempty,min=1"`
	IsActive      *bool      `json:"isActive"`
}

type recordUsageRequest struct {
	OrderID     uuid.UUID `json:"orderId" validate:"required"`
	Code        string    `json:"code" validate:"required"`
	DiscountVND int64     `json:"discountVnd" validate:"required,gt=0"`
}

func PromotionList(svc promotionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotion service unavailable"))
			return
		}

		rows, err := svc.ListPromotions(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

func PromotionGet(svc promotionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotion service unavailable"))
			return
		}

		id, err := pathUUID(r, "promotionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.GetPromotion(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, row)
	}
}

func PromotionCreate(svc promotionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotion service unavailable"))
			return
		}

		var body createPromotionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreatePromotion(r.Context(), body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func PromotionUpdate(svc promotionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotion service unavailable"))
			return
		}

		id, err := pathUUID(r, "promotionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updatePromotionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdatePromotion(r.Context(), id, promotionsvc.UpdatePromotionInput{
			Name:          body.Name,
			Description:   body.Description,
			DiscountValue: body.DiscountValue,
			MaxDiscount:   body.MaxDiscount,
			MinOrderValue: body.MinOrderValue,
			StartsAt:      body.StartsAt,
			EndsAt:        body.EndsAt,
			UsageLimit:    body.UsageLimit,
			IsActive:      body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

func PromotionDelete(svc promotionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotion service unavailable"))
			return
		}

		id, err := pathUUID(r, "promotionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeletePromotion(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// PromotionValidateCode previews the discount a code yields for a subtotal.
func PromotionValidateCode(svc promotionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotion service unavailable"))
			return
		}

		code := chi.URLParam(r, "code")
		subtotal, err := validators.ParseQueryInt64(r, "subtotal")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ValidateCode(r.Context(), code, subtotal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// PromotionRecordUsage links a redemption to an order.
func PromotionRecordUsage(svc promotionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotion service unavailable"))
			return
		}

		var body recordUsageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		usage, err := svc.RecordUsage(r.Context(), promotionsvc.RecordUsageInput{
			OrderID:     body.OrderID,
			Code:        body.Code,
			DiscountVND: body.DiscountVND,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, usage)
	}
}
