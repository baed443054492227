package coupon

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kainapp/backend-kain/internal/common"
	"github.com/kainapp/backend-kain/internal/pricing"
)

// Handler exposes administrative coupon management endpoints.
type Handler struct {
	Store    *PgStore
	Svc      *Service
	Validate *validator.Validate
}

type couponPayload struct {
	Code         string         `json:"code" validate:"required,uppercase,min=3,max=32"`
	Kind         string         `json:"kind" validate:"required,oneof=FIXED PERCENTAGE"`
	Value        pricing.Money  `json:"value" validate:"gte=0"`
	PercentBps   int32          `json:"percentBps" validate:"gte=0,lte=10000"`
	MinOrder     *pricing.Money `json:"minOrder"`
	MaxDiscount  *pricing.Money `json:"maxDiscount"`
	UsageLimit   *int32         `json:"usageLimit"`
	PerUserLimit *int32         `json:"perUserLimit"`
	ValidFrom    *time.Time     `json:"validFrom"`
	ValidUntil   *time.Time     `json:"validUntil"`
	Active       bool           `json:"active"`
}

type previewRequest struct {
	Code     string        `json:"code" validate:"required"`
	Subtotal pricing.Money `json:"subtotal" validate:"gte=0"`
	UserID   *string       `json:"userId"`
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

func (p couponPayload) toCoupon() (Coupon, error) {
	kind := Kind(p.Kind)
	if kind == KindPercentage && p.PercentBps <= 0 {
		return Coupon{}, errors.New("percentBps is required for percentage coupons")
	}
	if kind == KindFixed && p.Value <= 0 {
		return Coupon{}, errors.New("value is required for fixed coupons")
	}
	if p.ValidFrom != nil && p.ValidUntil != nil && p.ValidUntil.Before(*p.ValidFrom) {
		return Coupon{}, errors.New("validUntil precedes validFrom")
	}
	return Coupon{
		Code:         strings.TrimSpace(p.Code),
		Kind:         kind,
		Value:        p.Value,
		PercentBps:   p.PercentBps,
		MinOrder:     p.MinOrder,
		MaxDiscount:  p.MaxDiscount,
		UsageLimit:   p.UsageLimit,
		PerUserLimit: p.PerUserLimit,
		ValidFrom:    p.ValidFrom,
		ValidUntil:   p.ValidUntil,
		Active:       p.Active,
	}, nil
}

// Create inserts a new coupon.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon store not configured", nil)
		return
	}
	var payload couponPayload
	if !h.decode(w, r, &payload) {
		return
	}
	c, err := payload.toCoupon()
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	rec, err := h.Store.Create(r.Context(), c)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "coupon code already exists", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create coupon", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": rec})
}

// Update mutates an existing coupon identified by code.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon store not configured", nil)
		return
	}
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	var payload couponPayload
	if !h.decode(w, r, &payload) {
		return
	}
	payload.Code = code
	c, err := payload.toCoupon()
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	rec, err := h.Store.Update(r.Context(), c)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update coupon", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rec})
}

// Preview simulates a coupon against a subtotal without persisting anything.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon service not configured", nil)
		return
	}
	var req previewRequest
	if !h.decode(w, r, &req) {
		return
	}
	userID, err := common.ParseOptionalUUID(req.UserID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	result, err := h.Svc.Preview(r.Context(), req.Code, userID, req.Subtotal)
	if err != nil {
		if IsInvalid(err) {
			common.JSONError(w, http.StatusUnprocessableEntity, "COUPON_INVALID", err.Error(), map[string]any{"reason": Reason(err)})
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to preview coupon", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}
