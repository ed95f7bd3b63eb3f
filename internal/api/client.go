// Package api is the REST collaborator client: order submission, payment-URL
// fetch, current-orders refresh, coupon validation and read-only catalog
// lookups. The server is treated as slow, unavailable or stale at any time;
// every failure is classified before it reaches a store.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/omarabozied5/zonak-sub000/internal/domain"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(baseURL, token string) *Client {
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "marketplace-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		breaker: breaker,
	}
}

type SubmitOrderPayload struct {
	PlaceID     string             `json:"place_id"`
	Items       []domain.OrderItem `json:"items"`
	CartPrice   float64            `json:"cart_price"`
	Discount    float64            `json:"discount"`
	TotalPrice  float64            `json:"total_price"`
	CouponCode  string             `json:"coupon_code,omitempty"`
	PaymentType domain.PaymentType `json:"payment_type"`
	Notes       string             `json:"notes,omitempty"`
	UserName    string             `json:"user_name"`
	UserPhone   string             `json:"user_phone"`
}

type SubmitOrderResult struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id"`
	Message string `json:"message"`
}

func (c *Client) SubmitOrder(ctx context.Context, payload SubmitOrderPayload) (*SubmitOrderResult, error) {
	var result SubmitOrderResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/orders", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetPaymentURL fetches the gateway redirect URL for an online payment.
func (c *Client) GetPaymentURL(ctx context.Context, orderID string) (string, error) {
	var result struct {
		Data string `json:"data"`
	}
	path := fmt.Sprintf("/api/orders/%s/payment-url", orderID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return "", err
	}
	if result.Data == "" {
		return "", fmt.Errorf("empty payment url for order %s", orderID)
	}
	return result.Data, nil
}

func (c *Client) FetchCurrentOrders(ctx context.Context) ([]domain.Order, error) {
	var result struct {
		Success bool           `json:"success"`
		Data    []domain.Order `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/orders/current", nil, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// ValidateCoupon returns the validated coupon or a classified *CouponError.
func (c *Client) ValidateCoupon(ctx context.Context, code, placeID string) (*domain.Coupon, error) {
	payload := map[string]string{"code": code, "place_id": placeID}

	var envelope struct {
		Valid   bool          `json:"valid"`
		Coupon  domain.Coupon `json:"coupon"`
		Reason  string        `json:"reason"`
		Message string        `json:"message"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/coupons/validate", payload, &envelope); err != nil {
		return nil, err
	}
	if !envelope.Valid {
		return nil, &CouponError{Kind: couponKind(envelope.Reason), Message: envelope.Message}
	}
	return &envelope.Coupon, nil
}

func (c *Client) FetchRestaurantDetails(ctx context.Context, placeID string) (*domain.RestaurantSummary, error) {
	var result struct {
		Data domain.RestaurantSummary `json:"data"`
	}
	path := fmt.Sprintf("/api/places/%s", placeID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result.Data, nil
}

func couponKind(reason string) CouponErrorKind {
	switch reason {
	case "expired":
		return CouponExpired
	case "already_used":
		return CouponAlreadyUsed
	case "below_minimum":
		return CouponBelowMinimum
	case "inactive":
		return CouponInactive
	case "usage_exceeded":
		return CouponUsageExceeded
	default:
		return CouponInvalid
	}
}

// doJSON performs one request through the circuit breaker and decodes the
// response into out. Non-2xx responses become errors after an attempt to
// surface the server's message.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request failed: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	data, err := c.breaker.Execute(func() ([]byte, error) {
		resp, errDo := c.http.Do(req)
		if errDo != nil {
			return nil, errDo
		}
		defer resp.Body.Close()

		respBody, errRead := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if errRead != nil {
			return nil, errRead
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &httpError{status: resp.StatusCode, body: respBody}
		}
		return respBody, nil
	})
	if err != nil {
		var he *httpError
		if errors.As(err, &he) {
			return fmt.Errorf("%s %s returned %d: %s", method, path, he.status, he.message())
		}
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response failed: %w", err)
	}
	return nil
}

type httpError struct {
	status int
	body   []byte
}

func (e *httpError) Error() string {
	return fmt.Sprintf("http %d: %s", e.status, e.message())
}

func (e *httpError) message() string {
	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.body, &envelope); err == nil && envelope.Message != "" {
		return envelope.Message
	}
	return string(e.body)
}
