// Package checkout coordinates the order-lifecycle protocols: form
// validation, coupon application, order submission, the payment-gateway
// round trip, checkout restoration after a failed payment and the idempotent
// cart clear after a successful one.
package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/omarabozied5/zonak-sub000/internal/api"
	"github.com/omarabozied5/zonak-sub000/internal/config"
	"github.com/omarabozied5/zonak-sub000/internal/domain"
	"github.com/omarabozied5/zonak-sub000/internal/identity"
	"github.com/omarabozied5/zonak-sub000/internal/payment"
	"github.com/omarabozied5/zonak-sub000/internal/registry"
	"github.com/omarabozied5/zonak-sub000/internal/storage"
)

// API is the submission-side collaborator contract.
type API interface {
	SubmitOrder(ctx context.Context, payload api.SubmitOrderPayload) (*api.SubmitOrderResult, error)
	GetPaymentURL(ctx context.Context, orderID string) (string, error)
	ValidateCoupon(ctx context.Context, code, placeID string) (*domain.Coupon, error)
}

// Hooks are host-owned side effects: navigation and URL cleanup. Nil hooks
// are skipped.
type Hooks struct {
	// Navigate moves the host to a view after a gateway return settles.
	Navigate func(dest string, cartCleared bool)
	// StripPaymentFailedMarker removes payment_failed from the checkout URL
	// once restoration has settled, so a refresh does not re-trigger it.
	StripPaymentFailedMarker func()
}

type Service struct {
	registry *registry.Registry
	machine  *payment.Machine
	api      API
	backend  storage.Backend
	cfg      config.Config
	hooks    Hooks
}

func NewService(reg *registry.Registry, machine *payment.Machine, apiClient API, backend storage.Backend, cfg config.Config, hooks Hooks) *Service {
	return &Service{
		registry: reg,
		machine:  machine,
		api:      apiClient,
		backend:  backend,
		cfg:      cfg,
		hooks:    hooks,
	}
}

// Form is the checkout form state at submission time.
type Form struct {
	Identity    identity.Identity
	PlaceID     string
	UserName    string
	UserPhone   string
	Notes       string
	PaymentType domain.PaymentType
	CouponCode  string
}

// Result of a successful submission. RequiresRedirect is set on the online
// path; the host must navigate to PaymentURL after this call returns.
type Result struct {
	OrderID          string
	PaymentURL       string
	RequiresRedirect bool
	CartPrice        float64
	Discount         float64
	TotalPrice       float64
}

// Submit validates the form and cart, applies the coupon, submits the order
// and, on the online-payment path, captures the checkout snapshot and
// records the payment attempt before the host navigates away. Validation
// failures are blocking and never retried; collaborator failures leave all
// state untouched so the user can retry.
func (s *Service) Submit(ctx context.Context, form Form) (*Result, error) {
	cartStore := s.registry.Cart(ctx, form.Identity)

	if err := validateForm(form, cartStore.Items()); err != nil {
		return nil, err
	}

	cartPrice := cartStore.TotalPrice()

	var coupon *domain.Coupon
	var discount float64
	if strings.TrimSpace(form.CouponCode) != "" {
		validated, err := s.api.ValidateCoupon(ctx, form.CouponCode, form.PlaceID)
		if err != nil {
			return nil, err
		}
		if validated.MinSpend > 0 && cartPrice < validated.MinSpend {
			return nil, &api.CouponError{Kind: api.CouponBelowMinimum,
				Message: fmt.Sprintf("order total below coupon minimum of %.2f", validated.MinSpend)}
		}
		coupon = validated
		discount = validated.DiscountOn(cartPrice)
	}

	totalPrice := cartPrice - discount
	if totalPrice <= 0 {
		return nil, &ValidationError{Field: "total", Message: "order total must be positive"}
	}

	payload := api.SubmitOrderPayload{
		PlaceID:     form.PlaceID,
		Items:       orderItems(cartStore.Items()),
		CartPrice:   cartPrice,
		Discount:    discount,
		TotalPrice:  totalPrice,
		CouponCode:  form.CouponCode,
		PaymentType: form.PaymentType,
		Notes:       form.Notes,
		UserName:    form.UserName,
		UserPhone:   form.UserPhone,
	}

	submitted, err := s.api.SubmitOrder(ctx, payload)
	if err != nil {
		return nil, err
	}
	if !submitted.Success {
		return nil, fmt.Errorf("order rejected: %s", submitted.Message)
	}

	result := &Result{
		OrderID:    submitted.OrderID,
		CartPrice:  cartPrice,
		Discount:   discount,
		TotalPrice: totalPrice,
	}

	if form.PaymentType != domain.PaymentTypeOnline {
		// cash path settles immediately; the cart must reach empty
		s.ClearCartConfirmed(ctx, form.Identity)
		return result, nil
	}

	paymentURL, err := s.api.GetPaymentURL(ctx, submitted.OrderID)
	if err != nil {
		return nil, err
	}

	snapshot := domain.CheckoutSnapshot{
		Items:       cartStore.Items(),
		CartPrice:   cartPrice,
		Discount:    discount,
		TotalPrice:  totalPrice,
		Coupon:      coupon,
		CouponCode:  form.CouponCode,
		PaymentType: form.PaymentType,
		Notes:       form.Notes,
		UserName:    form.UserName,
		UserPhone:   form.UserPhone,
		PlaceID:     form.PlaceID,
		CapturedAt:  time.Now(),
	}
	if err := s.machine.InitiatePay(ctx, submitted.OrderID, paymentURL, snapshot); err != nil {
		return nil, fmt.Errorf("record payment attempt: %w", err)
	}

	result.PaymentURL = paymentURL
	result.RequiresRedirect = true
	return result, nil
}

func orderItems(items []domain.CartItem) []domain.OrderItem {
	out := make([]domain.OrderItem, 0, len(items))
	for _, it := range items {
		out = append(out, domain.OrderItem{
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    it.UnitPrice,
			Options:  it.Options,
		})
	}
	return out
}

func validateForm(form Form, items []domain.CartItem) error {
	if strings.TrimSpace(form.UserName) == "" {
		return &ValidationError{Field: "user_name", Message: "name is required"}
	}
	if strings.TrimSpace(form.UserPhone) == "" {
		return &ValidationError{Field: "user_phone", Message: "phone number is required"}
	}
	if len(items) == 0 {
		return &ValidationError{Field: "cart", Message: "cart is empty"}
	}
	for _, it := range items {
		for name, value := range it.Options.Required {
			if strings.TrimSpace(value) == "" {
				return &ValidationError{
					Field:   "options",
					Message: fmt.Sprintf("required option %q not selected for %s", name, it.Name),
				}
			}
		}
	}
	return nil
}
