// Package cart implements the per-identity cart store: line-item identity and
// merge, price aggregation, edit mode, and persistence through the durable
// storage backend.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/omarabozied5/zonak-sub000/internal/domain"
	"github.com/omarabozied5/zonak-sub000/internal/identity"
	"github.com/omarabozied5/zonak-sub000/internal/storage"
)

// Domain is the storage namespace for cart records.
const Domain = "cart"

const persistTimeout = 5 * time.Second

// Store holds one identity's cart. All mutators recompute the total price
// synchronously and persist before returning; persistence failures are logged
// and never block a mutation.
type Store struct {
	id      identity.Identity
	backend storage.Backend
	key     string

	state domain.Cart

	listeners map[int]func()
	nextSub   int
}

// New constructs the store and rehydrates it from durable storage. A missing
// record is an empty cart; a malformed record is discarded with a log line
// rather than failing construction.
func New(ctx context.Context, id identity.Identity, backend storage.Backend) *Store {
	s := &Store{
		id:        id,
		backend:   backend,
		key:       id.StorageKey(Domain),
		listeners: make(map[int]func()),
	}

	data, err := backend.Get(ctx, s.key)
	if err == nil {
		if errUnmarshal := json.Unmarshal(data, &s.state); errUnmarshal != nil {
			log.Printf("cart %s: discarding malformed record: %v", s.key, errUnmarshal)
			s.state = domain.Cart{}
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		log.Printf("cart %s: rehydrate failed: %v", s.key, err)
	}
	s.recomputeTotal()
	return s
}

func (s *Store) Identity() identity.Identity { return s.id }

// StorageKey is the durable record key, exposed for the protocols that must
// bypass the store and clear storage directly.
func (s *Store) StorageKey() string { return s.key }

// Subscribe registers a listener invoked after every mutation. The returned
// function unsubscribes.
func (s *Store) Subscribe(fn func()) func() {
	sub := s.nextSub
	s.nextSub++
	s.listeners[sub] = fn
	return func() { delete(s.listeners, sub) }
}

// AddItem adds a line to the cart. With edit mode active the call is
// redirected into an update of the line under edit. Otherwise a line with an
// equal fingerprint has its quantity incremented and anything else is
// appended as a new line.
func (s *Store) AddItem(item domain.CartItem) {
	if s.state.EditingItemID != "" {
		editID := s.state.EditingItemID
		s.state.EditingItemID = ""
		s.updateLine(editID, item)
		return
	}

	if item.Quantity < 1 {
		item.Quantity = 1
	}

	fp := fingerprint(item)
	for i := range s.state.Items {
		if fingerprint(s.state.Items[i]) == fp {
			s.state.Items[i].Quantity += item.Quantity
			s.state.Items[i].UpdatedAt = time.Now()
			s.commit()
			return
		}
	}

	now := time.Now()
	item.ID = newLineID(item.ProductID, uuid.NewString())
	item.AddedAt = now
	item.UpdatedAt = now
	s.state.Items = append(s.state.Items, item)
	s.commit()
}

// updateLine replaces the content of an existing line, keeping its id and
// added-at timestamp.
func (s *Store) updateLine(id string, item domain.CartItem) {
	for i := range s.state.Items {
		if s.state.Items[i].ID != id {
			continue
		}
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		item.ID = id
		item.AddedAt = s.state.Items[i].AddedAt
		item.UpdatedAt = time.Now()
		s.state.Items[i] = item
		s.commit()
		return
	}
	// line under edit vanished; fall back to a plain add
	s.AddItem(item)
}

// RemoveItem deletes one line by id; absent ids are a no-op.
func (s *Store) RemoveItem(id string) {
	for i := range s.state.Items {
		if s.state.Items[i].ID == id {
			s.state.Items = append(s.state.Items[:i], s.state.Items[i+1:]...)
			if s.state.EditingItemID == id {
				s.state.EditingItemID = ""
			}
			s.commit()
			return
		}
	}
}

// UpdateQuantity sets a line's quantity; zero or below removes the line.
func (s *Store) UpdateQuantity(id string, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(id)
		return
	}
	for i := range s.state.Items {
		if s.state.Items[i].ID == id {
			s.state.Items[i].Quantity = quantity
			s.state.Items[i].UpdatedAt = time.Now()
			s.commit()
			return
		}
	}
}

// SetEditingItem marks at most one line as under edit; the next AddItem call
// updates that line instead of creating a new one. Empty id clears the mode.
func (s *Store) SetEditingItem(id string) {
	s.state.EditingItemID = id
	s.commit()
}

func (s *Store) EditingItemID() string { return s.state.EditingItemID }

// ClearCart resets the cart to empty.
func (s *Store) ClearCart() {
	s.state = domain.Cart{}
	s.commit()
}

// BatchClearCart is ClearCart expressed as a single atomic state replacement,
// used during identity migration so no consumer observes an intermediate
// empty-then-repopulated state.
func (s *Store) BatchClearCart() {
	s.Replace(domain.Cart{})
}

// Replace swaps in a whole new cart state in one step. The registry uses it
// to move guest contents onto a logged-in identity.
func (s *Store) Replace(state domain.Cart) {
	s.state = state
	s.commit()
}

// Reload re-reads the durable record, dropping any in-memory state. Used by
// the cart-clear protocol to verify a force-clear took effect.
func (s *Store) Reload(ctx context.Context) {
	data, err := s.backend.Get(ctx, s.key)
	if err != nil {
		s.state = domain.Cart{}
		s.recomputeTotal()
		s.notify()
		return
	}
	var state domain.Cart
	if errUnmarshal := json.Unmarshal(data, &state); errUnmarshal != nil {
		log.Printf("cart %s: discarding malformed record: %v", s.key, errUnmarshal)
		state = domain.Cart{}
	}
	s.state = state
	s.recomputeTotal()
	s.notify()
}

// Items returns a copy of the cart lines.
func (s *Store) Items() []domain.CartItem {
	out := make([]domain.CartItem, len(s.state.Items))
	copy(out, s.state.Items)
	return out
}

func (s *Store) TotalPrice() float64 { return s.state.TotalPrice }

func (s *Store) IsEmpty() bool { return len(s.state.Items) == 0 }

// ItemCount is the total quantity across all lines.
func (s *Store) ItemCount() int {
	count := 0
	for _, it := range s.state.Items {
		count += it.Quantity
	}
	return count
}

// ProductQuantity sums the quantity of all lines for a product, optionally
// scoped to one restaurant.
func (s *Store) ProductQuantity(productID string, placeID ...string) int {
	count := 0
	for _, it := range s.state.Items {
		if it.ProductID != productID {
			continue
		}
		if len(placeID) > 0 && placeID[0] != "" && it.PlaceID != placeID[0] {
			continue
		}
		count += it.Quantity
	}
	return count
}

// RestaurantItemCount is the total quantity across one restaurant's lines.
func (s *Store) RestaurantItemCount(placeID string) int {
	count := 0
	for _, it := range s.state.Items {
		if it.PlaceID == placeID {
			count += it.Quantity
		}
	}
	return count
}

// HasCustomizations reports whether a line carries any option selection,
// notes or size choice.
func (s *Store) HasCustomizations(id string) bool {
	for _, it := range s.state.Items {
		if it.ID == id {
			return it.Options.IsCustomized()
		}
	}
	return false
}

// Snapshot returns the current persisted record shape.
func (s *Store) Snapshot() domain.Cart {
	snap := s.state
	snap.Items = s.Items()
	return snap
}

func (s *Store) recomputeTotal() {
	total := 0.0
	for _, it := range s.state.Items {
		total += it.Subtotal()
	}
	s.state.TotalPrice = total
}

// commit recomputes the aggregate, persists and notifies, in that order.
func (s *Store) commit() {
	s.recomputeTotal()
	s.state.UpdatedAt = time.Now()
	s.persist()
	s.notify()
}

func (s *Store) persist() {
	data, err := json.Marshal(s.state)
	if err != nil {
		log.Printf("cart %s: marshal failed: %v", s.key, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.backend.Set(ctx, s.key, data); err != nil {
		log.Printf("cart %s: persist failed: %v", s.key, err)
	}
}

func (s *Store) notify() {
	for _, fn := range s.listeners {
		fn()
	}
}

// RestoreItem validates and re-adds one snapshot line during checkout
// restoration. Lines that no longer look orderable are rejected
// individually so the rest still restore.
func (s *Store) RestoreItem(item domain.CartItem) error {
	if item.ProductID == "" || strings.TrimSpace(item.Name) == "" {
		return ErrUnrestorableItem
	}
	if item.UnitPrice <= 0 || item.Quantity <= 0 {
		return ErrUnrestorableItem
	}
	s.AddItem(item)
	return nil
}
