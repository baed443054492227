package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kainapp/backend-kain/internal/common"
	"github.com/kainapp/backend-kain/internal/pricing"
)

// Handler exposes catalog endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// List returns the active catalog.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	items, err := h.Svc.ListProducts(r.Context(), r.URL.Query().Get("currency"))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list products", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// Detail returns one product with tier previews.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	detail, err := h.Svc.GetDetail(r.Context(), chi.URLParam(r, "slug"), r.URL.Query().Get("currency"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load product", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": detail})
}

// Quote prices a configured line without touching the cart.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
	}
	quote, err := h.Svc.QuoteLine(r.Context(), chi.URLParam(r, "slug"), req)
	if err != nil {
		writeQuoteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": quote})
}

func writeQuoteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
	case errors.Is(err, pricing.ErrInvalidQuantity):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "quantity must be positive", nil)
	case errors.Is(err, pricing.ErrMissingFabricSelection):
		common.JSONError(w, http.StatusUnprocessableEntity, "FABRIC_REQUIRED", "a fabric must be selected for this product", nil)
	case errors.Is(err, pricing.ErrUnknownProductType):
		common.JSONError(w, http.StatusUnprocessableEntity, "UNKNOWN_PRODUCT_TYPE", "product type cannot be priced", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to price product", nil)
	}
}

// Create inserts a new product (admin).
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	var p Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	created, err := h.Svc.CreateProduct(r.Context(), p)
	if err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.Code == "23505":
			common.JSONError(w, http.StatusConflict, "CONFLICT", "product slug already exists", nil)
		case errors.Is(err, ErrInvalidProduct),
			errors.Is(err, ErrSlabInvalidRange),
			errors.Is(err, ErrSlabInvalidValue),
			errors.Is(err, ErrSlabOverlap),
			errors.Is(err, ErrSlabLegacyWrite):
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create product", nil)
		}
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// UpdateSlabs replaces a product's quantity tiers (admin).
func (h *Handler) UpdateSlabs(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	var body struct {
		Slabs []pricing.Slab `json:"slabs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Svc.UpdateSlabs(r.Context(), id, body.Slabs); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
		case errors.Is(err, ErrSlabInvalidRange),
			errors.Is(err, ErrSlabInvalidValue),
			errors.Is(err, ErrSlabOverlap),
			errors.Is(err, ErrSlabLegacyWrite):
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update slabs", nil)
		}
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"updated": true}})
}
