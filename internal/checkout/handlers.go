package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kainapp/backend-kain/internal/cart"
	"github.com/kainapp/backend-kain/internal/common"
	"github.com/kainapp/backend-kain/internal/coupon"
	"github.com/kainapp/backend-kain/internal/gateway"
)

// Handler exposes checkout endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type checkoutRequest struct {
	CartID  string  `json:"cartId" validate:"required,uuid"`
	UserID  *string `json:"userId"`
	Address Address `json:"address" validate:"required"`
	Gateway string  `json:"gateway"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst *checkoutRequest) (Input, *uuid.UUID, bool) {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return Input{}, nil, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return Input{}, nil, false
		}
	}
	cartID, err := uuid.Parse(dst.CartID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart id", nil)
		return Input{}, nil, false
	}
	userID, err := common.ParseOptionalUUID(dst.UserID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return Input{}, nil, false
	}
	return Input{
		CartID:  cartID,
		Address: dst.Address,
		Gateway: gateway.Gateway(dst.Gateway),
	}, userID, true
}

// Quote previews gateways and totals for a destination.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var req checkoutRequest
	in, _, ok := h.decode(w, r, &req)
	if !ok {
		return
	}
	preview, err := h.Svc.Quote(r.Context(), in)
	if err != nil {
		writeCheckoutError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": preview})
}

// Create places the order.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var req checkoutRequest
	in, userID, ok := h.decode(w, r, &req)
	if !ok {
		return
	}
	order, err := h.Svc.Create(r.Context(), userID, in)
	if err != nil {
		writeCheckoutError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": order})
}

// Get returns a placed order.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	order, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeCheckoutError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": order})
}

func writeCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	case errors.Is(err, ErrOrderNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", "cart has no items", nil)
	case errors.Is(err, ErrGatewayNotOffered):
		common.JSONError(w, http.StatusUnprocessableEntity, "GATEWAY_NOT_OFFERED", "payment gateway not offered for this order", nil)
	case errors.Is(err, gateway.ErrNoGatewayAvailable):
		common.JSONError(w, http.StatusUnprocessableEntity, "NO_GATEWAY", "no payment gateway available for this order", nil)
	case coupon.IsInvalid(err):
		common.JSONError(w, http.StatusUnprocessableEntity, "COUPON_INVALID", err.Error(), map[string]any{"reason": coupon.Reason(err)})
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout failed", nil)
	}
}
