// Package orders tracks submitted orders: status refresh from the
// order-query collaborator, derived views, and the adaptive polling
// scheduler that drives the refresh cadence.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/omarabozied5/zonak-sub000/internal/config"
	"github.com/omarabozied5/zonak-sub000/internal/domain"
	"github.com/omarabozied5/zonak-sub000/internal/identity"
	"github.com/omarabozied5/zonak-sub000/internal/storage"
)

// Domain is the storage namespace for order records.
const Domain = "orders"

const persistTimeout = 5 * time.Second

// Fetcher is the order-query collaborator.
type Fetcher interface {
	FetchCurrentOrders(ctx context.Context) ([]domain.Order, error)
}

// Store holds one identity's submitted orders. Fetches are deduplicated
// (singleflight), throttled to one per config.FetchThrottle regardless of
// trigger, and stale resolutions are dropped by request sequence number. A
// failed fetch keeps the previously-fetched orders: stale but available.
type Store struct {
	id      identity.Identity
	backend storage.Backend
	key     string
	fetcher Fetcher
	limiter *rate.Limiter
	sfg     singleflight.Group

	mu        sync.Mutex
	orders    []domain.Order
	fetchErr  error
	issued    uint64
	lastFetch time.Time

	listeners map[int]func()
	nextSub   int
}

type ordersRecord struct {
	Orders    []domain.Order `json:"orders"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func New(ctx context.Context, id identity.Identity, backend storage.Backend, fetcher Fetcher, cfg config.Config) *Store {
	s := &Store{
		id:        id,
		backend:   backend,
		key:       id.StorageKey(Domain),
		fetcher:   fetcher,
		limiter:   rate.NewLimiter(rate.Every(cfg.FetchThrottle), 1),
		listeners: make(map[int]func()),
	}

	data, err := backend.Get(ctx, s.key)
	if err == nil {
		var rec ordersRecord
		if errUnmarshal := json.Unmarshal(data, &rec); errUnmarshal != nil {
			log.Printf("orders %s: discarding malformed record: %v", s.key, errUnmarshal)
		} else {
			s.orders = rec.Orders
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		log.Printf("orders %s: rehydrate failed: %v", s.key, err)
	}
	return s
}

func (s *Store) Identity() identity.Identity { return s.id }

func (s *Store) StorageKey() string { return s.key }

// Subscribe registers a listener invoked after every applied refresh.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := s.nextSub
	s.nextSub++
	s.listeners[sub] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, sub)
	}
}

// Refresh performs one full refresh from the collaborator. Calls inside the
// throttle window are silently skipped; concurrent calls share one in-flight
// fetch; a resolution that raced with a newer request is dropped.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if !s.limiter.Allow() {
		s.mu.Unlock()
		return nil
	}
	s.issued++
	started := s.issued
	s.mu.Unlock()

	_, err, _ := s.sfg.Do("orders", func() (any, error) {
		fetched, errFetch := s.fetcher.FetchCurrentOrders(ctx)

		s.mu.Lock()
		if s.issued > started {
			// a newer request was issued after this one started; its
			// resolution must not regress state
			s.mu.Unlock()
			return nil, nil
		}
		if errFetch != nil {
			s.fetchErr = errFetch
			s.mu.Unlock()
			return nil, errFetch
		}
		s.fetchErr = nil
		s.lastFetch = time.Now()
		s.applyLocked(fetched)
		listeners := s.snapshotListenersLocked()
		s.mu.Unlock()

		for _, fn := range listeners {
			fn()
		}
		return nil, nil
	})
	return err
}

// applyLocked replaces the order list, stamping client-observed transition
// times for any status that changed since the last refresh.
func (s *Store) applyLocked(fetched []domain.Order) {
	previous := make(map[string]domain.Order, len(s.orders))
	for _, o := range s.orders {
		previous[o.ID] = o
	}

	now := time.Now()
	for i := range fetched {
		prev, seen := previous[fetched[i].ID]
		if fetched[i].StatusTimes == nil {
			fetched[i].StatusTimes = map[domain.OrderStatus]time.Time{}
		}
		if seen {
			for status, at := range prev.StatusTimes {
				if _, ok := fetched[i].StatusTimes[status]; !ok {
					fetched[i].StatusTimes[status] = at
				}
			}
		}
		if !seen || prev.Status != fetched[i].Status {
			fetched[i].StatusTimes[fetched[i].Status] = now
		}
	}
	s.orders = fetched
	s.persistLocked()
}

func (s *Store) persistLocked() {
	data, err := json.Marshal(ordersRecord{Orders: s.orders, UpdatedAt: time.Now()})
	if err != nil {
		log.Printf("orders %s: marshal failed: %v", s.key, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.backend.Set(ctx, s.key, data); err != nil {
		log.Printf("orders %s: persist failed: %v", s.key, err)
	}
}

func (s *Store) snapshotListenersLocked() []func() {
	out := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}

// Orders returns a copy of all known orders.
func (s *Store) Orders() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// Active returns the orders still moving through the lifecycle.
func (s *Store) Active() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Order
	for _, o := range s.orders {
		if o.IsActive() {
			out = append(out, o)
		}
	}
	return out
}

func (s *Store) ByStatus(status domain.OrderStatus) []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Order
	for _, o := range s.orders {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// LifetimeSpend sums the total price of every delivered order.
func (s *Store) LifetimeSpend() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0.0
	for _, o := range s.orders {
		if o.Status == domain.OrderStatusDelivered {
			total += o.TotalPrice
		}
	}
	return total
}

// Err reports the last fetch failure, nil after a successful refresh.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchErr
}

func (s *Store) LastFetch() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFetch
}
