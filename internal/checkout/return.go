package checkout

import (
	"context"
	"log"
	"time"

	"github.com/omarabozied5/zonak-sub000/internal/domain"
	"github.com/omarabozied5/zonak-sub000/internal/identity"
	"github.com/omarabozied5/zonak-sub000/internal/payment"
)

// ReturnResult describes one processed gateway return. Countdown is live:
// the host shows it and may fire it early via Now (the "continue now"
// action); firing is what performs the post-success cleanup and navigation.
type ReturnResult struct {
	Status      domain.PaymentStatus
	OrderID     string
	Reason      string
	CartCleared bool
	Countdown   *payment.Countdown
}

// HandlePaymentReturn classifies a navigation URL against the recorded
// payment attempt. On success the cart-clear protocol runs before the
// countdown starts, so the tracking view always observes an empty cart. On
// failure the cart is explicitly left untouched and the countdown leads back
// to checkout with the payment_failed marker for the restoration protocol.
// Re-renders of the same navigation are ignored.
func (s *Service) HandlePaymentReturn(ctx context.Context, id identity.Identity, rawURL string) (*ReturnResult, bool) {
	outcome, processed := s.machine.HandleReturn(ctx, rawURL)
	if !processed {
		return nil, false
	}

	result := &ReturnResult{
		Status:  outcome.Status,
		OrderID: outcome.OrderID,
		Reason:  outcome.Reason,
	}

	switch outcome.Status {
	case domain.PaymentStatusSuccess:
		s.ClearCartConfirmed(ctx, id)
		result.CartCleared = true
		result.Countdown = payment.StartCountdown(s.cfg.Countdown, func() {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.machine.Clear(cleanupCtx); err != nil {
				log.Printf("checkout: clearing settled payment record failed: %v", err)
			}
			if s.hooks.Navigate != nil {
				s.hooks.Navigate("orders", true)
			}
		})

	case domain.PaymentStatusFailed:
		if outcome.Reason != "" {
			log.Printf("checkout: payment failed: %s", outcome.Reason)
		}
		result.Countdown = payment.StartCountdown(s.cfg.Countdown, func() {
			if s.hooks.Navigate != nil {
				s.hooks.Navigate("checkout?payment_failed=true", false)
			}
		})
	}

	return result, true
}
