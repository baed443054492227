package payment

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kainapp/backend-kain/internal/checkout"
	"github.com/kainapp/backend-kain/internal/common"
)

// Handler exposes payment intent and webhook endpoints.
type Handler struct {
	Svc *Service
}

// CreateIntent opens a payment intent for an order.
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "payment service not configured", nil)
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	record, err := h.Svc.CreateIntent(r.Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrOrderNotFound):
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		case errors.Is(err, ErrOrderNotPayable):
			common.JSONError(w, http.StatusConflict, "NOT_PAYABLE", err.Error(), nil)
		case errors.Is(err, ErrUnknownProvider):
			common.JSONError(w, http.StatusUnprocessableEntity, "NO_PROVIDER", err.Error(), nil)
		default:
			common.JSONError(w, http.StatusBadGateway, "PROVIDER_ERROR", "failed to open payment intent", nil)
		}
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": record})
}

// Webhook receives provider notifications.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "payment service not configured", nil)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unreadable body", nil)
		return
	}
	result, err := h.Svc.HandleWebhook(r.Context(), chi.URLParam(r, "provider"), r, body)
	if err != nil {
		if errors.Is(err, ErrUnknownProvider) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "unknown provider", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to process webhook", nil)
		return
	}
	if !result.Valid {
		common.JSONError(w, http.StatusBadRequest, "INVALID_SIGNATURE", "webhook verification failed", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"status": result.Status}})
}
