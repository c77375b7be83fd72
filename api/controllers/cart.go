package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vinavax/vinavax-backend/api/responses"
	"github.com/vinavax/vinavax-backend/api/validators"
	cartstore "github.com/vinavax/vinavax-backend/internal/cart"
	vaccinesvc "github.com/vinavax/vinavax-backend/internal/vaccines"
	pkgerrors "github.com/vinavax/vinavax-backend/pkg/errors"
	"github.com/vinavax/vinavax-backend/pkg/logger"
)

// customerRef identifies the anonymous shopper. The storefront mints a
// stable reference and sends it on every cart and checkout call.
func customerRef(r *http.Request) (string, error) {
	ref := strings.TrimSpace(r.Header.Get("X-Customer-Ref"))
	if ref == "" {
		ref = strings.TrimSpace(r.URL.Query().Get("customerRef"))
	}
	if ref == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "customer reference required")
	}
	return ref, nil
}

type addToCartRequest struct {
	VaccineID uuid.UUID `json:"vaccineId" validate:"required"`
}

type updateQuantityRequest struct {
	VaccineID uuid.UUID `json:"vaccineId" validate:"required"`
	Quantity  int       `json:"quantity"`
}

func CartGet(store *cartstore.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart store unavailable"))
			return
		}

		ref, err := customerRef(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := store.GetCart(r.Context(), ref)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, snapshot)
	}
}

// CartAdd snapshots the catalog entry into the cart, replacing whatever
// service was selected before.
func CartAdd(store *cartstore.Store, vaccines vaccinesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil || vaccines == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart store unavailable"))
			return
		}

		ref, err := customerRef(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body addToCartRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := vaccines.GetVaccine(r.Context(), body.VaccineID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !entry.IsActive {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeStateConflict, "service is no longer offered"))
			return
		}

		snapshot, err := store.AddToCart(r.Context(), ref, entry.ID, entry.Code, entry.Name, entry.PriceVND)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, snapshot)
	}
}

func CartUpdateQuantity(store *cartstore.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart store unavailable"))
			return
		}

		ref, err := customerRef(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := store.UpdateQuantity(r.Context(), ref, body.VaccineID, body.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, snapshot)
	}
}

func CartRemove(store *cartstore.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart store unavailable"))
			return
		}

		ref, err := customerRef(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vaccineID, err := pathUUID(r, "serviceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := store.RemoveFromCart(r.Context(), ref, vaccineID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, snapshot)
	}
}

func CartClear(store *cartstore.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart store unavailable"))
			return
		}

		ref, err := customerRef(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := store.ClearCart(r.Context(), ref)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, snapshot)
	}
}
