package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kainapp/backend-kain/internal/catalog"
	"github.com/kainapp/backend-kain/internal/common"
	"github.com/kainapp/backend-kain/internal/coupon"
	"github.com/kainapp/backend-kain/internal/pricing"
)

// Handler exposes cart endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type ensureRequest struct {
	UserID *string `json:"userId"`
	AnonID *string `json:"anonId"`
}

type addItemRequest struct {
	ProductID  string            `json:"productId" validate:"required,uuid"`
	Quantity   int               `json:"quantity" validate:"required,gte=1"`
	Selections map[string]string `json:"selections"`
}

type updateQtyRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

type couponRequest struct {
	Code string `json:"code" validate:"required"`
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return false
	}
	return true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return false
		}
	}
	return true
}

func cartIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "cartId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart id", nil)
		return uuid.Nil, false
	}
	return id, true
}

// Ensure loads or creates the caller's active cart.
func (h *Handler) Ensure(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req ensureRequest
	if !h.decode(w, r, &req) {
		return
	}
	userID, err := common.ParseOptionalUUID(req.UserID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	c, err := h.Svc.EnsureCart(r.Context(), userID, req.AnonID)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "userId or anonId is required", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to open cart", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// Get returns the cart with items and totals.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	cartID, ok := cartIDParam(w, r)
	if !ok {
		return
	}
	view, err := h.Svc.GetView(r.Context(), cartID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load cart", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// AddItem prices and appends a configured line.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	cartID, ok := cartIDParam(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	item, err := h.Svc.AddItem(r.Context(), cartID, productID, req.Quantity, req.Selections)
	if err != nil {
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": item})
}

// UpdateQty changes a line quantity and reprices it.
func (h *Handler) UpdateQty(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item id", nil)
		return
	}
	var req updateQtyRequest
	if !h.decode(w, r, &req) {
		return
	}
	item, err := h.Svc.UpdateQty(r.Context(), itemID, req.Quantity)
	if err != nil {
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": item})
}

// RemoveItem deletes a cart line.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	cartID, ok := cartIDParam(w, r)
	if !ok {
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item id", nil)
		return
	}
	if err := h.Svc.RemoveItem(r.Context(), cartID, itemID); err != nil {
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"removed": true}})
}

// ApplyCoupon attaches a coupon code to the cart.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	cartID, ok := cartIDParam(w, r)
	if !ok {
		return
	}
	var req couponRequest
	if !h.decode(w, r, &req) {
		return
	}
	discount, err := h.Svc.ApplyCoupon(r.Context(), cartID, req.Code)
	if err != nil {
		if coupon.IsInvalid(err) {
			common.JSONError(w, http.StatusUnprocessableEntity, "COUPON_INVALID", err.Error(), map[string]any{"reason": coupon.Reason(err)})
			return
		}
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"discount": discount}})
}

// RemoveCoupon clears the applied coupon.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	cartID, ok := cartIDParam(w, r)
	if !ok {
		return
	}
	if err := h.Svc.RemoveCoupon(r.Context(), cartID); err != nil {
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"removed": true}})
}

func writeCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, catalog.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart or product not found", nil)
	case errors.Is(err, ErrInvalidInput), errors.Is(err, pricing.ErrInvalidQuantity):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, pricing.ErrMissingFabricSelection):
		common.JSONError(w, http.StatusUnprocessableEntity, "FABRIC_REQUIRED", "a fabric must be selected for this product", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart operation failed", nil)
	}
}
