package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/omarabozied5/zonak-sub000/internal/domain"
	"github.com/omarabozied5/zonak-sub000/internal/identity"
	"github.com/omarabozied5/zonak-sub000/internal/payment"
)

// RestoreReport says what best-effort restoration actually recovered.
type RestoreReport struct {
	Restored int
	Skipped  []string // item names that failed individual re-validation
	Attempt  int      // restoration attempt number after this run

	// non-cart form state to reapply
	Notes       string
	PaymentType domain.PaymentType
	CouponCode  string
	Coupon      *domain.Coupon
}

// Restore runs the checkout-restoration protocol after a failed-payment
// return: bounded by the attempt counter, snapshot validated up front, cart
// repopulated item by item (failures reported, never blocking the rest),
// form state returned for the host to reapply. The payment_failed marker is
// stripped once restoration settles, whatever the outcome of individual
// items.
func (s *Service) Restore(ctx context.Context, id identity.Identity) (*RestoreReport, error) {
	attempt := s.machine.Current()
	if attempt == nil || attempt.Status != domain.PaymentStatusFailed {
		return nil, ErrNothingToRestore
	}

	if attempt.Restores >= s.cfg.RestoreAttempts {
		log.Printf("checkout: restoration cap (%d) reached, abandoning", s.cfg.RestoreAttempts)
		if err := s.machine.Clear(ctx); err != nil {
			log.Printf("checkout: clearing abandoned payment record failed: %v", err)
		}
		return nil, ErrRestorationAbandoned
	}

	if err := validateSnapshot(attempt.Snapshot); err != nil {
		if _, incErr := s.machine.IncrementRestores(ctx); incErr != nil {
			log.Printf("checkout: increment restore counter failed: %v", incErr)
		}
		return nil, err
	}

	report := &RestoreReport{
		Notes:       attempt.Snapshot.Notes,
		PaymentType: attempt.Snapshot.PaymentType,
		CouponCode:  attempt.Snapshot.CouponCode,
		Coupon:      attempt.Snapshot.Coupon,
	}

	cartStore := s.registry.Cart(ctx, id)
	if cartStore.IsEmpty() && len(attempt.Snapshot.Items) > 0 {
		for _, item := range attempt.Snapshot.Items {
			// fresh line ids on restore; identity merge still applies
			item.ID = ""
			if err := cartStore.RestoreItem(item); err != nil {
				log.Printf("checkout: skipping unrestorable item %q: %v", item.Name, err)
				report.Skipped = append(report.Skipped, item.Name)
				continue
			}
			report.Restored++
		}
	}

	n, err := s.machine.IncrementRestores(ctx)
	if err != nil && !errors.Is(err, payment.ErrNoAttempt) {
		log.Printf("checkout: increment restore counter failed: %v", err)
	}
	report.Attempt = n

	if s.hooks.StripPaymentFailedMarker != nil {
		s.hooks.StripPaymentFailedMarker()
	}
	log.Printf("checkout: restoration attempt %d restored %d items, skipped %d",
		n, report.Restored, len(report.Skipped))
	return report, nil
}

func validateSnapshot(snap domain.CheckoutSnapshot) error {
	if len(snap.Items) == 0 {
		return fmt.Errorf("%w: snapshot has no items", ErrSnapshotInvalid)
	}
	if snap.TotalPrice <= 0 {
		return fmt.Errorf("%w: non-positive total", ErrSnapshotInvalid)
	}
	return nil
}
