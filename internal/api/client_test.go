package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarabozied5/zonak-sub000/internal/domain"
)

// fakeMarketplace is an httprouter-backed stand-in for the REST collaborator.
func fakeMarketplace(t *testing.T) *httptest.Server {
	router := httprouter.New()

	router.POST("/api/orders", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var payload SubmitOrderPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		if payload.TotalPrice <= 0 {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"message": "total must be positive"})
			return
		}
		json.NewEncoder(w).Encode(SubmitOrderResult{Success: true, OrderID: "ord-1", Message: "ok"})
	})

	// httprouter v1.3.0 cannot register the static "current" segment alongside
	// the ":id" wildcard on one router, so the wildcard route lives on a
	// fallback router reached via NotFound.
	fallback := httprouter.New()
	fallback.GET("/api/orders/:id/payment-url", func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		json.NewEncoder(w).Encode(map[string]string{"data": "https://gateway.test/pay/" + ps.ByName("id")})
	})
	router.NotFound = fallback

	router.GET("/api/orders/current", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": []domain.Order{
				{ID: "ord-1", Status: domain.OrderStatusPreparing, TotalPrice: 30},
			},
		})
	})

	router.POST("/api/coupons/validate", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		switch req["code"] {
		case "SAVE10":
			json.NewEncoder(w).Encode(map[string]any{
				"valid":  true,
				"coupon": domain.Coupon{Code: "SAVE10", Type: domain.CouponTypePercentage, Value: 10},
			})
		case "OLD":
			json.NewEncoder(w).Encode(map[string]any{"valid": false, "reason": "expired", "message": "Coupon expired"})
		default:
			json.NewEncoder(w).Encode(map[string]any{"valid": false, "reason": "invalid", "message": "Coupon not found"})
		}
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func TestSubmitOrder(t *testing.T) {
	server := fakeMarketplace(t)
	client := NewClient(server.URL, "test-token")

	result, err := client.SubmitOrder(context.Background(), SubmitOrderPayload{TotalPrice: 30})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "ord-1", result.OrderID)
}

func TestSubmitOrder_ServerMessageSurfaces(t *testing.T) {
	server := fakeMarketplace(t)
	client := NewClient(server.URL, "")

	_, err := client.SubmitOrder(context.Background(), SubmitOrderPayload{TotalPrice: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total must be positive")
}

func TestGetPaymentURL(t *testing.T) {
	server := fakeMarketplace(t)
	client := NewClient(server.URL, "")

	url, err := client.GetPaymentURL(context.Background(), "ord-9")
	require.NoError(t, err)
	assert.Equal(t, "https://gateway.test/pay/ord-9", url)
}

func TestFetchCurrentOrders(t *testing.T) {
	server := fakeMarketplace(t)
	client := NewClient(server.URL, "")

	orders, err := client.FetchCurrentOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderStatusPreparing, orders[0].Status)
}

func TestValidateCoupon(t *testing.T) {
	server := fakeMarketplace(t)
	client := NewClient(server.URL, "")

	coupon, err := client.ValidateCoupon(context.Background(), "SAVE10", "place-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CouponTypePercentage, coupon.Type)
	assert.Equal(t, 10.0, coupon.Value)
}

func TestValidateCoupon_ClassifiedRejections(t *testing.T) {
	server := fakeMarketplace(t)
	client := NewClient(server.URL, "")

	_, err := client.ValidateCoupon(context.Background(), "OLD", "place-1")
	require.Error(t, err)
	ce, ok := AsCouponError(err)
	require.True(t, ok)
	assert.Equal(t, CouponExpired, ce.Kind)

	_, err = client.ValidateCoupon(context.Background(), "NOPE", "place-1")
	ce, ok = AsCouponError(err)
	require.True(t, ok)
	assert.Equal(t, CouponInvalid, ce.Kind)
}

func TestClient_UnreachableServerIsClassified(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "")

	_, err := client.FetchCurrentOrders(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}
