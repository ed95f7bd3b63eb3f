package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/omarabozied5/zonak-sub000/internal/api"
	"github.com/omarabozied5/zonak-sub000/internal/config"
	"github.com/omarabozied5/zonak-sub000/internal/domain"
	"github.com/omarabozied5/zonak-sub000/internal/orders"
	"github.com/omarabozied5/zonak-sub000/internal/payment"
	"github.com/omarabozied5/zonak-sub000/internal/registry"
	"github.com/omarabozied5/zonak-sub000/internal/storage"
)

// mockAPI implements the API collaborator for testing
type mockAPI struct {
	mu        sync.Mutex
	submitted []api.SubmitOrderPayload

	SubmitResult *api.SubmitOrderResult
	SubmitErr    error
	PaymentURL   string
	PaymentErr   error
	Coupons      map[string]*domain.Coupon
	CouponErr    error
}

func (m *mockAPI) SubmitOrder(_ context.Context, payload api.SubmitOrderPayload) (*api.SubmitOrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted = append(m.submitted, payload)
	if m.SubmitErr != nil {
		return nil, m.SubmitErr
	}
	if m.SubmitResult != nil {
		return m.SubmitResult, nil
	}
	return &api.SubmitOrderResult{Success: true, OrderID: "ord-1"}, nil
}

func (m *mockAPI) GetPaymentURL(_ context.Context, orderID string) (string, error) {
	if m.PaymentErr != nil {
		return "", m.PaymentErr
	}
	if m.PaymentURL != "" {
		return m.PaymentURL, nil
	}
	return "https://gateway.test/pay/" + orderID, nil
}

func (m *mockAPI) ValidateCoupon(_ context.Context, code, _ string) (*domain.Coupon, error) {
	if m.CouponErr != nil {
		return nil, m.CouponErr
	}
	if c, ok := m.Coupons[code]; ok {
		return c, nil
	}
	return nil, &api.CouponError{Kind: api.CouponInvalid, Message: "Coupon not found"}
}

func (m *mockAPI) submitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.submitted)
}

func (m *mockAPI) lastPayload() api.SubmitOrderPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitted[len(m.submitted)-1]
}

type noopFetcher struct{}

func (noopFetcher) FetchCurrentOrders(_ context.Context) ([]domain.Order, error) {
	return nil, nil
}

// capturedHooks records navigation and marker strips.
type capturedHooks struct {
	mu           sync.Mutex
	navigations  []string
	markerStrips int
	cartCleared  []bool
}

func (h *capturedHooks) hooks() Hooks {
	return Hooks{
		Navigate: func(dest string, cartCleared bool) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.navigations = append(h.navigations, dest)
			h.cartCleared = append(h.cartCleared, cartCleared)
		},
		StripPaymentFailedMarker: func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.markerStrips++
		},
	}
}

func (h *capturedHooks) strips() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.markerStrips
}

func (h *capturedHooks) navs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.navigations...)
}

func (h *capturedHooks) clears() []bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]bool(nil), h.cartCleared...)
}

type testEnv struct {
	service *Service
	reg     *registry.Registry
	machine *payment.Machine
	backend *storage.MemoryBackend
	api     *mockAPI
	hooks   *capturedHooks
	cfg     config.Config
}

func newTestEnv() *testEnv {
	backend := storage.NewMemoryBackend()
	cfg := config.Default()
	cfg.ClearSettle = 0 // no settle waits in tests
	cfg.Countdown = time.Hour // fired explicitly via Now()
	cfg.FetchThrottle = 0

	reg := registry.New(backend, noopFetcher{}, cfg)
	machine := payment.NewMachine(context.Background(), backend, payment.Config{DedupCap: cfg.ReturnDedupCap})
	apiClient := &mockAPI{}
	hooks := &capturedHooks{}

	return &testEnv{
		service: NewService(reg, machine, apiClient, backend, cfg, hooks.hooks()),
		reg:     reg,
		machine: machine,
		backend: backend,
		api:     apiClient,
		hooks:   hooks,
		cfg:     cfg,
	}
}

var _ orders.Fetcher = noopFetcher{}
