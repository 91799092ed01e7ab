package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrilink/agrilink-backend/api/responses"
	"github.com/agrilink/agrilink-backend/api/validators"
	"github.com/agrilink/agrilink-backend/internal/listings"
	"github.com/agrilink/agrilink-backend/internal/users"
	pkgerrors "github.com/agrilink/agrilink-backend/pkg/errors"
	"github.com/agrilink/agrilink-backend/pkg/logger"
	"github.com/agrilink/agrilink-backend/pkg/pagination"
)

type createListingRequest struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category" validate:"required"`
	Price       decimal.Decimal `json:"price" validate:"required"`
	Unit        string          `json:"unit,omitempty"`
	Quantity    int             `json:"quantity" validate:"required,min=1"`
	HarvestDate string          `json:"harvest_date,omitempty"`
	Location    string          `json:"location,omitempty"`
	Organic     bool            `json:"organic,omitempty"`
}

type adjustQuantityRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// CreateProduct publishes a listing for the authenticated farmer.
func CreateProduct(svc listings.Service, userSvc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createListingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := userSvc.Profile(r.Context(), uid)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.Create(r.Context(), uid, view.Name, view.Role, listings.CreateListingInput{
			Name:        body.Name,
			Description: body.Description,
			Category:    body.Category,
			Price:       body.Price,
			Unit:        body.Unit,
			Quantity:    body.Quantity,
			HarvestDate: body.HarvestDate,
			Location:    body.Location,
			Organic:     body.Organic,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, listing)
	}
}

// QueryProducts lists active listings with optional filters.
func QueryProducts(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		organic, err := validators.ParseQueryBool(r, "organic")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		results, err := svc.Query(r.Context(), listings.QueryFilters{
			Category:    validators.SanitizeString(r.URL.Query().Get("category"), 100),
			Location:    validators.SanitizeString(r.URL.Query().Get("location"), 100),
			OrganicOnly: organic,
			Limit:       limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, results)
	}
}

// AdjustProductQuantity reconciles the owner's stock by a signed delta.
func AdjustProductQuantity(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		var body adjustQuantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.AdjustQuantity(r.Context(), uid, listingID, body.Delta)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}
