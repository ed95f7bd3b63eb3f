package checkout

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/omarabozied5/zonak-sub000/internal/identity"
	"github.com/omarabozied5/zonak-sub000/internal/retry"
)

// ClearCartConfirmed drives the identity's cart to empty after a confirmed
// order. Safe to invoke redundantly. Each bounded attempt clears through the
// store, waits for dependent reads to settle, and re-checks; a cart that is
// still non-empty gets its durable record force-cleared directly before the
// next attempt. Exhausting the bound ends in one last unconditional clear of
// both layers: eventually consistent, never skipped silently.
func (s *Service) ClearCartConfirmed(ctx context.Context, id identity.Identity) {
	cartStore := s.registry.Cart(ctx, id)

	err := retry.Do(ctx, s.cfg.ClearAttempts, 0, func(attempt int) error {
		cartStore.ClearCart()
		settle(ctx, s.cfg.ClearSettle)

		count := cartStore.ItemCount()
		log.Printf("checkout: cart clear attempt %d, %d items remain", attempt, count)
		if count == 0 {
			return nil
		}

		// bypass the reactive layer and drop the durable record directly
		if errDelete := s.backend.Delete(ctx, cartStore.StorageKey()); errDelete != nil {
			log.Printf("checkout: force-clear of %s failed: %v", cartStore.StorageKey(), errDelete)
		}
		cartStore.Reload(ctx)
		return fmt.Errorf("cart still has %d items", count)
	})
	if err == nil {
		return
	}

	// last resort: unconditional clear of both layers, then stop
	log.Printf("checkout: cart clear exhausted retries, forcing final clear: %v", err)
	cartStore.ClearCart()
	if errDelete := s.backend.Delete(ctx, cartStore.StorageKey()); errDelete != nil {
		log.Printf("checkout: final force-clear failed: %v", errDelete)
	}
}

func settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
