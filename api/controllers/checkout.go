package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vinavax/vinavax-backend/api/responses"
	"github.com/vinavax/vinavax-backend/api/validators"
	checkoutsvc "github.com/vinavax/vinavax-backend/internal/checkout"
	"github.com/vinavax/vinavax-backend/pkg/enums"
	pkgerrors "github.com/vinavax/vinavax-backend/pkg/errors"
	"github.com/vinavax/vinavax-backend/pkg/logger"
)

type startCheckoutRequest struct {
	Admin bool `json:"admin"`
}

type customerInfoRequest struct {
	FullName            string             `json:"fullName" validate:"required"`
	Phone               string             `json:"phone" validate:"required"`
	Email               string             `json:"email" validate:"required"`
	DateOfBirth         time.Time          `json:"dateOfBirth" validate:"required"`
	Address             string             `json:"address" validate:"required"`
	PaymentMethod       string             `json:"paymentMethod" validate:"required"`
	PreferredLocationID *uuid.UUID         `json:"preferredLocationId"`
	Lines               []orderLinePayload `json:"lines" validate:"omitempty,dive"`
}

type confirmCheckoutRequest struct {
	PromotionCode string `json:"promotionCode"`
}

func CheckoutStart(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		ref, err := customerRef(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body startCheckoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sess, err := svc.StartSession(r.Context(), checkoutsvc.StartInput{CustomerRef: ref, Admin: body.Admin})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sess)
	}
}

func CheckoutGet(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		id, err := pathUUID(r, "checkoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sess, err := svc.GetSession(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sess)
	}
}

// CheckoutCustomerInfo records the entered customer details and advances
// the wizard to order confirmation.
func CheckoutCustomerInfo(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		id, err := pathUUID(r, "checkoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body customerInfoRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(body.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		lines := make([]checkoutsvc.Line, len(body.Lines))
		for i, line := range body.Lines {
			lines[i] = checkoutsvc.Line{VaccineID: line.VaccineID, Quantity: line.Quantity}
		}

		sess, err := svc.SetCustomerInfo(r.Context(), id, checkoutsvc.CustomerInfo{
			FullName:            body.FullName,
			Phone:               body.Phone,
			Email:               body.Email,
			DateOfBirth:         body.DateOfBirth,
			Address:             body.Address,
			PaymentMethod:       method,
			PreferredLocationID: body.PreferredLocationID,
		}, lines)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sess)
	}
}

// CheckoutConfirm locks in the amounts, applying a promotion code when one
// is supplied.
func CheckoutConfirm(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		id, err := pathUUID(r, "checkoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body confirmCheckoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sess, err := svc.Confirm(r.Context(), id, checkoutsvc.ConfirmInput{PromotionCode: body.PromotionCode})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sess)
	}
}

// CheckoutSubmit drives the final step. The session it returns carries the
// outcome: success, a gateway pay URL, an eligibility rejection, or a
// failure message with the wizard back on the payment step.
func CheckoutSubmit(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		id, err := pathUUID(r, "checkoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sess, err := svc.Submit(r.Context(), id)
		if err != nil {
			if sess != nil {
				// The session already records the failure; surface it
				// alongside the error payload so the client can re-render
				// the payment step.
				responses.WriteSuccess(w, sess)
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sess)
	}
}
