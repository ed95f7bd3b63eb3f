package orders

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/omarabozied5/zonak-sub000/internal/config"
	"github.com/omarabozied5/zonak-sub000/internal/domain"
)

// Interval is the scheduler policy, computed from the current active-order
// set: orders being prepared or delivered poll urgently, anything earlier in
// the lifecycle polls at the base rate, and an empty active set idles while
// still checking for newly-arrived orders.
func Interval(active []domain.Order, cfg config.Config) time.Duration {
	urgent := map[domain.OrderStatus]bool{
		domain.OrderStatusPreparing:       true,
		domain.OrderStatusOnTheWay:        true,
		domain.OrderStatusWaitingCustomer: true,
	}
	base := map[domain.OrderStatus]bool{
		domain.OrderStatusPending:   true,
		domain.OrderStatusConfirmed: true,
		domain.OrderStatusReady:     true,
	}

	hasBase := false
	for _, o := range active {
		if urgent[o.Status] {
			return cfg.PollUrgent
		}
		if base[o.Status] {
			hasBase = true
		}
	}
	if hasBase {
		return cfg.PollBase
	}
	return cfg.PollIdle
}

// Poller drives Store.Refresh at the policy interval. It pauses entirely
// while the page is not visible and performs one immediate refresh on
// becoming visible again. The store's throttle still bounds every trigger.
type Poller struct {
	store *Store
	cfg   config.Config

	mu      sync.Mutex
	visible bool
	cancel  context.CancelFunc
	kick    chan struct{}
	done    chan struct{}
}

func NewPoller(store *Store, cfg config.Config) *Poller {
	return &Poller{
		store:   store,
		cfg:     cfg,
		visible: true,
		kick:    make(chan struct{}, 1),
	}
}

// Start launches the polling loop. Stop (or canceling the parent context)
// tears down the timer and the store subscription.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.mu.Unlock()

	// interval policy is re-evaluated whenever the active set changes
	unsubscribe := p.store.Subscribe(p.wake)

	go func() {
		defer close(p.done)
		defer unsubscribe()
		p.run(ctx)
	}()
}

func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// SetVisible pauses polling when the page is hidden and forces an immediate
// refresh on return to visibility.
func (p *Poller) SetVisible(ctx context.Context, visible bool) {
	p.mu.Lock()
	was := p.visible
	p.visible = visible
	p.mu.Unlock()

	if visible && !was {
		if err := p.store.Refresh(ctx); err != nil {
			log.Printf("orders poller: visibility refresh failed: %v", err)
		}
	}
	p.wake()
}

func (p *Poller) isVisible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}

// wake nudges the loop to recompute its interval.
func (p *Poller) wake() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

func (p *Poller) run(ctx context.Context) {
	for {
		var tick <-chan time.Time
		var timer *time.Timer
		if p.isVisible() {
			timer = time.NewTimer(Interval(p.store.Active(), p.cfg))
			tick = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-tick:
			if err := p.store.Refresh(ctx); err != nil {
				log.Printf("orders poller: refresh failed: %v", err)
			}
		case <-p.kick:
			if timer != nil {
				timer.Stop()
			}
		}
	}
}
