package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarabozied5/zonak-sub000/internal/config"
	"github.com/omarabozied5/zonak-sub000/internal/domain"
	"github.com/omarabozied5/zonak-sub000/internal/identity"
	"github.com/omarabozied5/zonak-sub000/internal/storage"
)

// mockFetcher implements Fetcher for testing
type mockFetcher struct {
	mu     sync.Mutex
	orders []domain.Order
	err    error
	calls  int
}

func (m *mockFetcher) FetchCurrentOrders(_ context.Context) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Order, len(m.orders))
	copy(out, m.orders)
	return out, nil
}

func (m *mockFetcher) set(orders []domain.Order, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = orders
	m.err = err
}

func (m *mockFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func zeroThrottleConfig() config.Config {
	cfg := config.Default()
	cfg.FetchThrottle = 0 // unthrottled for tests that refresh repeatedly
	return cfg
}

func TestRefresh_AppliesOrders(t *testing.T) {
	fetcher := &mockFetcher{orders: []domain.Order{
		{ID: "ord-1", Status: domain.OrderStatusPending, TotalPrice: 30},
	}}
	s := New(context.Background(), identity.Guest, storage.NewMemoryBackend(), fetcher, zeroThrottleConfig())

	require.NoError(t, s.Refresh(context.Background()))

	require.Len(t, s.Orders(), 1)
	assert.NoError(t, s.Err())
	assert.NotZero(t, s.Orders()[0].StatusTimes[domain.OrderStatusPending])
}

func TestRefresh_FailureKeepsStaleOrders(t *testing.T) {
	fetcher := &mockFetcher{orders: []domain.Order{{ID: "ord-1", Status: domain.OrderStatusPending}}}
	s := New(context.Background(), identity.Guest, storage.NewMemoryBackend(), fetcher, zeroThrottleConfig())
	require.NoError(t, s.Refresh(context.Background()))

	fetcher.set(nil, errors.New("backend down"))
	err := s.Refresh(context.Background())

	require.Error(t, err)
	assert.Error(t, s.Err())
	assert.Len(t, s.Orders(), 1, "stale orders stay available")

	fetcher.set([]domain.Order{{ID: "ord-1", Status: domain.OrderStatusConfirmed}}, nil)
	require.NoError(t, s.Refresh(context.Background()))
	assert.NoError(t, s.Err(), "error clears on the next success")
}

func TestRefresh_ThrottleSuppressesBursts(t *testing.T) {
	fetcher := &mockFetcher{}
	cfg := config.Default()
	cfg.FetchThrottle = time.Hour
	s := New(context.Background(), identity.Guest, storage.NewMemoryBackend(), fetcher, cfg)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Refresh(context.Background()))
	}

	assert.Equal(t, 1, fetcher.callCount(), "one fetch per throttle window regardless of trigger")
}

func TestRefresh_PersistsAndRehydrates(t *testing.T) {
	backend := storage.NewMemoryBackend()
	fetcher := &mockFetcher{orders: []domain.Order{{ID: "ord-1", Status: domain.OrderStatusDelivered, TotalPrice: 42}}}
	s := New(context.Background(), identity.ForUser("u-1"), backend, fetcher, zeroThrottleConfig())
	require.NoError(t, s.Refresh(context.Background()))

	s2 := New(context.Background(), identity.ForUser("u-1"), backend, fetcher, zeroThrottleConfig())
	require.Len(t, s2.Orders(), 1)
	assert.Equal(t, 42.0, s2.LifetimeSpend())
}

func TestDerivedViews(t *testing.T) {
	fetcher := &mockFetcher{orders: []domain.Order{
		{ID: "a", Status: domain.OrderStatusPreparing, TotalPrice: 10},
		{ID: "b", Status: domain.OrderStatusDelivered, TotalPrice: 25},
		{ID: "c", Status: domain.OrderStatusRejected, TotalPrice: 99},
		{ID: "d", Status: domain.OrderStatusPending, TotalPrice: 5},
	}}
	s := New(context.Background(), identity.Guest, storage.NewMemoryBackend(), fetcher, zeroThrottleConfig())
	require.NoError(t, s.Refresh(context.Background()))

	active := s.Active()
	require.Len(t, active, 2)
	for _, o := range active {
		assert.False(t, o.Status.IsTerminal())
	}

	assert.Len(t, s.ByStatus(domain.OrderStatusDelivered), 1)
	assert.Equal(t, 25.0, s.LifetimeSpend())
}

func TestStatusTransitionStampsTime(t *testing.T) {
	fetcher := &mockFetcher{orders: []domain.Order{{ID: "ord-1", Status: domain.OrderStatusPending}}}
	s := New(context.Background(), identity.Guest, storage.NewMemoryBackend(), fetcher, zeroThrottleConfig())
	require.NoError(t, s.Refresh(context.Background()))

	fetcher.set([]domain.Order{{ID: "ord-1", Status: domain.OrderStatusConfirmed}}, nil)
	require.NoError(t, s.Refresh(context.Background()))

	times := s.Orders()[0].StatusTimes
	assert.NotZero(t, times[domain.OrderStatusPending])
	assert.NotZero(t, times[domain.OrderStatusConfirmed])
}

func TestCanTransitionTo(t *testing.T) {
	assert.True(t, domain.CanTransitionTo(domain.OrderStatusPending, domain.OrderStatusConfirmed))
	assert.True(t, domain.CanTransitionTo(domain.OrderStatusReady, domain.OrderStatusOnTheWay))
	assert.True(t, domain.CanTransitionTo(domain.OrderStatusReady, domain.OrderStatusWaitingCustomer))
	assert.True(t, domain.CanTransitionTo(domain.OrderStatusPreparing, domain.OrderStatusRejected),
		"failure states reachable from any non-terminal state")
	assert.False(t, domain.CanTransitionTo(domain.OrderStatusPending, domain.OrderStatusDelivered))
	assert.False(t, domain.CanTransitionTo(domain.OrderStatusDelivered, domain.OrderStatusPending))
	assert.False(t, domain.CanTransitionTo(domain.OrderStatusRejected, domain.OrderStatusTimeout))
}
