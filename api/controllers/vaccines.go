package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vinavax/vinavax-backend/api/responses"
	"github.com/vinavax/vinavax-backend/api/validators"
	vaccinesvc "github.com/vinavax/vinavax-backend/internal/vaccines"
	pkgerrors "github.com/vinavax/vinavax-backend/pkg/errors"
	"github.com/vinavax/vinavax-backend/pkg/logger"
)

type createVaccineRequest struct {
	Code          string   `json:"code" validate:"required"`
	Name          string   `json:"name" validate:"required"`
	Description   *string  `json:"description"`
	Manufacturer  *string  `json:"manufacturer"`
	PriceVND      int64    `json:"priceVnd" validate:"required,gt=0"`
	DosesRequired int      `json:"dosesRequired" validate:"required,min=1"`
	MinAgeMonths  *int     `json:"minAgeMonths"`
	MaxAgeMonths  *int     `json:"maxAgeMonths"`
	Diseases      []string `json:"diseases"`
	ImageURL      *string  `json:"imageUrl"`
	IsActive      *bool    `json:"isActive"`
}

func (r createVaccineRequest) toInput() vaccinesvc.CreateVaccineInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return vaccinesvc.CreateVaccineInput{
		Code:          r.Code,
		Name:          r.Name,
		Description:   r.Description,
		Manufacturer:  r.Manufacturer,
		PriceVND:      r.PriceVND,
		DosesRequired: r.DosesRequired,
		MinAgeMonths:  r.MinAgeMonths,
		MaxAgeMonths:  r.MaxAgeMonths,
		Diseases:      r.Diseases,
		ImageURL:      r.ImageURL,
		IsActive:      active,
	}
}

type updateVaccineRequest struct {
	Name          *string   `json:"name"`
	Description   *string   `json:"description"`
	Manufacturer  *string   `json:"manufacturer"`
	PriceVND      *int64    `json:"priceVnd" validate:"omitempty,gt=0"`
	DosesRequired *int      `json:"dosesRequired" validate:"omitempty,min=1"`
	MinAgeMonths  *int      `json:"minAgeMonths"`
	MaxAgeMonths  *int      `json:"maxAgeMonths"`
	Diseases      *[]string `json:"diseases"`
	ImageURL      *string   `json:"imageUrl"`
	IsActive      *bool     `json:"isActive"`
}

func (r updateVaccineRequest) toInput() vaccinesvc.UpdateVaccineInput {
	return vaccinesvc.UpdateVaccineInput{
		Name:          r.Name,
		Description:   r.Description,
		Manufacturer:  r.Manufacturer,
		PriceVND:      r.PriceVND,
		DosesRequired: r.DosesRequired,
		MinAgeMonths:  r.MinAgeMonths,
		MaxAgeMonths:  r.MaxAgeMonths,
		Diseases:      r.Diseases,
		ImageURL:      r.ImageURL,
		IsActive:      r.IsActive,
	}
}

// VaccineList returns the full catalog.
func VaccineList(svc vaccinesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vaccine service unavailable"))
			return
		}

		rows, err := svc.ListVaccines(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

func VaccineGet(svc vaccinesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vaccine service unavailable"))
			return
		}

		id, err := pathUUID(r, "vaccineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.GetVaccine(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, row)
	}
}

func VaccineCreate(svc vaccinesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vaccine service unavailable"))
			return
		}

		var body createVaccineRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateVaccine(r.Context(), body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func VaccineUpdate(svc vaccinesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vaccine service unavailable"))
			return
		}

		id, err := pathUUID(r, "vaccineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateVaccineRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdateVaccine(r.Context(), id, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

func VaccineDeactivate(svc vaccinesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vaccine service unavailable"))
			return
		}

		id, err := pathUUID(r, "vaccineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeactivateVaccine(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}

// pathUUID parses a UUID route parameter.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}
