// Package registry lazily creates and caches one store per (domain,
// identity) pair, evicts idle handles, and owns the identity transitions:
// guest-to-user migration on login and the full purge on logout.
package registry

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/omarabozied5/zonak-sub000/internal/cart"
	"github.com/omarabozied5/zonak-sub000/internal/config"
	"github.com/omarabozied5/zonak-sub000/internal/identity"
	"github.com/omarabozied5/zonak-sub000/internal/orders"
	"github.com/omarabozied5/zonak-sub000/internal/storage"
)

type cartEntry struct {
	store      *cart.Store
	lastAccess time.Time
}

type orderEntry struct {
	store      *orders.Store
	lastAccess time.Time
}

type Registry struct {
	backend storage.Backend
	fetcher orders.Fetcher
	cfg     config.Config

	mu          sync.Mutex
	carts       map[string]*cartEntry
	orderStores map[string]*orderEntry
	lastSweep   time.Time
}

func New(backend storage.Backend, fetcher orders.Fetcher, cfg config.Config) *Registry {
	return &Registry{
		backend:     backend,
		fetcher:     fetcher,
		cfg:         cfg,
		carts:       make(map[string]*cartEntry),
		orderStores: make(map[string]*orderEntry),
	}
}

// Cart returns the identity's cart store, constructing and rehydrating it on
// first use. Idempotent per identity; every call refreshes last access.
func (r *Registry) Cart(ctx context.Context, id identity.Identity) *cart.Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := id.StorageKey(cart.Domain)
	if e, ok := r.carts[key]; ok {
		e.lastAccess = time.Now()
		return e.store
	}

	store := cart.New(ctx, id, r.backend)
	r.carts[key] = &cartEntry{store: store, lastAccess: time.Now()}
	return store
}

// Orders returns the identity's order store, constructing it on first use.
func (r *Registry) Orders(ctx context.Context, id identity.Identity) *orders.Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := id.StorageKey(orders.Domain)
	if e, ok := r.orderStores[key]; ok {
		e.lastAccess = time.Now()
		return e.store
	}

	store := orders.New(ctx, id, r.backend, r.fetcher, r.cfg)
	r.orderStores[key] = &orderEntry{store: store, lastAccess: time.Now()}
	return store
}

// EvictIdle drops in-memory handles unaccessed for longer than the idle TTL.
// Durable storage is untouched, so a later lookup rehydrates transparently.
// The host's scheduler decides when this runs.
func (r *Registry) EvictIdle(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for key, e := range r.carts {
		if now.Sub(e.lastAccess) > r.cfg.StoreIdleTTL {
			delete(r.carts, key)
			evicted++
		}
	}
	for key, e := range r.orderStores {
		if now.Sub(e.lastAccess) > r.cfg.StoreIdleTTL {
			delete(r.orderStores, key)
			evicted++
		}
	}
	r.lastSweep = now
	if evicted > 0 {
		log.Printf("registry: evicted %d idle store handles", evicted)
	}
	return evicted
}

// StartSweeper runs EvictIdle on the configured interval until ctx is done.
func (r *Registry) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				r.EvictIdle(now)
			}
		}
	}()
}

// MigrateGuestCart moves guest cart contents onto a freshly logged-in
// identity: copy when the target is empty, discard the guest contents
// otherwise. Either way the guest cart ends up cleared in one atomic step.
func (r *Registry) MigrateGuestCart(ctx context.Context, to identity.Identity) error {
	if to.IsGuest() {
		return fmt.Errorf("cannot migrate guest cart onto guest identity")
	}

	guest := r.Cart(ctx, identity.Guest)
	target := r.Cart(ctx, to)

	if guest.IsEmpty() {
		return nil
	}

	if target.IsEmpty() {
		target.Replace(guest.Snapshot())
		log.Printf("registry: migrated %d guest cart lines to %s", len(target.Items()), to.UserID())
	} else {
		log.Printf("registry: target cart non-empty, discarding guest cart")
	}
	guest.BatchClearCart()
	return nil
}

// PurgeIdentity is the logout path: evict the identity's handles and delete
// its durable records, and clear guest durable storage as well so no residue
// survives a user switch on a shared device.
func (r *Registry) PurgeIdentity(ctx context.Context, id identity.Identity) error {
	r.mu.Lock()
	delete(r.carts, id.StorageKey(cart.Domain))
	delete(r.orderStores, id.StorageKey(orders.Domain))
	delete(r.carts, identity.Guest.StorageKey(cart.Domain))
	delete(r.orderStores, identity.Guest.StorageKey(orders.Domain))
	r.mu.Unlock()

	keys := []string{
		id.StorageKey(cart.Domain),
		id.StorageKey(orders.Domain),
		identity.Guest.StorageKey(cart.Domain),
		identity.Guest.StorageKey(orders.Domain),
	}
	var firstErr error
	for _, key := range keys {
		if err := r.backend.Delete(ctx, key); err != nil {
			log.Printf("registry: purge of %s failed: %v", key, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("purge %s: %w", key, err)
			}
		}
	}
	return firstErr
}

// Stats is a diagnostics snapshot.
type Stats struct {
	CartHandles  int
	OrderHandles int
	LastSweep    time.Time
}

func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		CartHandles:  len(r.carts),
		OrderHandles: len(r.orderStores),
		LastSweep:    r.lastSweep,
	}
}
