package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kainapp/backend-kain/internal/cart"
	"github.com/kainapp/backend-kain/internal/gateway"
)

type quoteResponse struct {
	Data struct {
		Offered    []string `json:"offered"`
		Gateway    string   `json:"gateway"`
		AdvanceDue int64    `json:"advanceDue"`
		Totals     struct {
			Subtotal   int64 `json:"subtotal"`
			GrandTotal int64 `json:"grandTotal"`
		} `json:"totals"`
	} `json:"data"`
}

func TestQuoteHandler(t *testing.T) {
	cartID := uuid.New()
	svc, _, _ := newTestService(physicalView(cartID))
	handler := &Handler{Svc: svc, Validate: validator.New()}

	body := `{"cartId":"` + cartID.String() + `","address":{"receiverName":"A","phone":"9","country":"IN","state":"MH","city":"Mumbai","postalCode":"400001","addressLine1":"1 Main Rd"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/quote", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Quote(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp quoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "COD", resp.Data.Gateway)
	require.Contains(t, resp.Data.Offered, "STRIPE")
	require.Equal(t, int64(10_000), resp.Data.Totals.Subtotal)
	require.Equal(t, int64(16_500), resp.Data.Totals.GrandTotal)
}

func TestQuoteHandlerRejectsBadCountry(t *testing.T) {
	cartID := uuid.New()
	svc, _, _ := newTestService(physicalView(cartID))
	handler := &Handler{Svc: svc, Validate: validator.New()}

	body := `{"cartId":"` + cartID.String() + `","address":{"country":"IND"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/quote", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Quote(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAndGetHandlers(t *testing.T) {
	cartID := uuid.New()
	svc, orders, _ := newTestService(physicalView(cartID))
	handler := &Handler{Svc: svc, Validate: validator.New()}

	body := `{"cartId":"` + cartID.String() + `","gateway":"RAZORPAY","address":{"country":"IN","city":"Pune"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, orders.created, 1)
	require.Equal(t, gateway.Razorpay, orders.created[0].Gateway)
	require.Equal(t, StatusPendingPayment, orders.created[0].Status)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", orders.created[0].ID.String())
	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orders.created[0].ID.String(), nil)
	getReq = getReq.WithContext(context.WithValue(getReq.Context(), chi.RouteCtxKey, rctx))
	getRec := httptest.NewRecorder()
	handler.Get(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)

	var got struct {
		Data Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &got))
	require.Equal(t, orders.created[0].ID, got.Data.ID)
}

func TestCreateHandlerMapsEmptyCart(t *testing.T) {
	cartID := uuid.New()
	svc, _, _ := newTestService(cart.View{Cart: cart.Cart{ID: cartID}})
	handler := &Handler{Svc: svc, Validate: validator.New()}

	body := `{"cartId":"` + cartID.String() + `","address":{"country":"IN"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var errResp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	require.Equal(t, "EMPTY_CART", errResp.Error.Code)
}
