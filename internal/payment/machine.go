// Package payment tracks the single in-flight online-payment attempt. The
// attempt crosses a full page navigation to the external gateway and back, so
// its state lives in durable storage and recovery relies purely on that
// record plus URL inspection on the next load.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/omarabozied5/zonak-sub000/internal/domain"
	"github.com/omarabozied5/zonak-sub000/internal/storage"
)

// StorageKey is the single global payment record; one checkout is in flight
// per browser tab, so the slot is not per identity. A second initiate simply
// overwrites it, last write wins.
const StorageKey = "payment-storage"

const persistTimeout = 5 * time.Second

var ErrNoAttempt = errors.New("no payment attempt recorded")

type Machine struct {
	backend storage.Backend
	cfg     Config

	mu        sync.Mutex
	attempt   *domain.PaymentAttempt
	seen      map[string]struct{}
	seenOrder []string
}

// Config are the machine's tunables, a subset of the subsystem config.
type Config struct {
	DedupCap int
}

func NewMachine(ctx context.Context, backend storage.Backend, cfg Config) *Machine {
	if cfg.DedupCap < 1 {
		cfg.DedupCap = 50
	}
	m := &Machine{
		backend: backend,
		cfg:     cfg,
		seen:    make(map[string]struct{}),
	}

	data, err := backend.Get(ctx, StorageKey)
	if err == nil {
		var attempt domain.PaymentAttempt
		if errUnmarshal := json.Unmarshal(data, &attempt); errUnmarshal != nil {
			log.Printf("payment: discarding malformed record: %v", errUnmarshal)
		} else {
			m.attempt = &attempt
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		log.Printf("payment: rehydrate failed: %v", err)
	}
	return m
}

// InitiatePay records a new attempt in the processing state, overwriting any
// previous snapshot, and persists it before the caller navigates away.
func (m *Machine) InitiatePay(ctx context.Context, orderID, paymentURL string, snapshot domain.CheckoutSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attempt = &domain.PaymentAttempt{
		OrderID:     orderID,
		PaymentURL:  paymentURL,
		Status:      domain.PaymentStatusProcessing,
		Snapshot:    snapshot,
		InitiatedAt: time.Now(),
	}
	return m.persistLocked(ctx)
}

// Current returns a copy of the persisted attempt, or nil.
func (m *Machine) Current() *domain.PaymentAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.attempt == nil {
		return nil
	}
	attempt := *m.attempt
	return &attempt
}

// Outcome of one processed gateway return.
type Outcome struct {
	Status  domain.PaymentStatus
	OrderID string
	Reason  string
}

// HandleReturn classifies a navigation URL and, if it is a not-yet-seen
// gateway return, advances the attempt. The second value is false when the
// URL is not a return at all or was already processed.
func (m *Machine) HandleReturn(ctx context.Context, rawURL string) (Outcome, bool) {
	c := ClassifyReturnURL(rawURL)
	if c.Status == ReturnNone {
		return Outcome{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.seen[c.DedupKey]; dup {
		return Outcome{}, false
	}
	m.rememberLocked(c.DedupKey)

	if m.attempt == nil {
		// gateway return without a recorded attempt; classify anyway so the
		// host can surface something, but there is no state to advance
		log.Printf("payment: return %s with no recorded attempt", c.Status)
		return Outcome{Status: toPaymentStatus(c.Status), OrderID: c.OrderID, Reason: c.Reason}, true
	}

	m.attempt.Status = toPaymentStatus(c.Status)
	if err := m.persistLocked(ctx); err != nil {
		log.Printf("payment: persist after return failed: %v", err)
	}

	orderID := m.attempt.OrderID
	if c.OrderID != "" {
		orderID = c.OrderID
	}
	return Outcome{Status: m.attempt.Status, OrderID: orderID, Reason: c.Reason}, true
}

// IncrementRestores bumps the bounded restoration counter and returns the new
// value.
func (m *Machine) IncrementRestores(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.attempt == nil {
		return 0, ErrNoAttempt
	}
	m.attempt.Restores++
	if err := m.persistLocked(ctx); err != nil {
		return m.attempt.Restores, err
	}
	return m.attempt.Restores, nil
}

// Clear drops the attempt and its durable record: the grace-delay cleanup
// after a confirmed success, or explicit restoration abandonment.
func (m *Machine) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attempt = nil
	if err := m.backend.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("clear payment record: %w", err)
	}
	return nil
}

// rememberLocked adds a dedup key, trimming to the most recent entries so the
// set stays bounded.
func (m *Machine) rememberLocked(key string) {
	m.seen[key] = struct{}{}
	m.seenOrder = append(m.seenOrder, key)
	for len(m.seenOrder) > m.cfg.DedupCap {
		oldest := m.seenOrder[0]
		m.seenOrder = m.seenOrder[1:]
		delete(m.seen, oldest)
	}
}

func (m *Machine) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(m.attempt)
	if err != nil {
		return fmt.Errorf("marshal payment attempt: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	if err := m.backend.Set(ctx, StorageKey, data); err != nil {
		return fmt.Errorf("persist payment attempt: %w", err)
	}
	return nil
}

func toPaymentStatus(s ReturnStatus) domain.PaymentStatus {
	if s == ReturnSuccess {
		return domain.PaymentStatusSuccess
	}
	return domain.PaymentStatusFailed
}
