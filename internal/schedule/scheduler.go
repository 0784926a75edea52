// Package schedule owns time-bound cancellation of unpaid orders.
//
// Two mechanisms cooperate: a per-order in-memory timer armed at
// checkout for low-latency cancellation, and a periodic sweep that
// re-derives expiry from the order's durable creation time. The sweep
// catches every order whose timer was lost to a restart, so the system
// stays correct with timers disabled entirely.
package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Expirer cancels a single expired reservation hold and enumerates
// candidates for the sweep. Implementations must be idempotent: expiring
// an order that already left pending is a no-op.
type Expirer interface {
	ExpireOrder(ctx context.Context, orderID uuid.UUID) error
	ExpiredPending(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

// expireTimeout bounds the storage work done by a single expiry.
const expireTimeout = 30 * time.Second

// Scheduler keeps one deadline timer per pending order plus the sweep
// loop. The timer registry is process-local and owned by this struct;
// callers only see Arm/Disarm.
type Scheduler struct {
	window   time.Duration
	interval time.Duration
	logger   zerolog.Logger

	mu     sync.Mutex
	timers map[uuid.UUID]*time.Timer
	exp    Expirer
}

// New creates a scheduler with the given reservation window and sweep
// interval.
func New(window, interval time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		window:   window,
		interval: interval,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		timers:   make(map[uuid.UUID]*time.Timer),
	}
}

// Start binds the expirer and launches the sweep loop. It must be
// called before any timer can fire usefully and returns immediately.
func (s *Scheduler) Start(ctx context.Context, exp Expirer) {
	s.mu.Lock()
	s.exp = exp
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.Stop()
				return
			case <-ticker.C:
				if _, err := s.Sweep(ctx); err != nil {
					s.logger.Error().Err(err).Msg("sweep failed")
				}
			}
		}
	}()
}

// Arm schedules cancellation of the order after the reservation window.
// Arming an already-armed order resets its deadline.
func (s *Scheduler) Arm(orderID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[orderID]; ok {
		t.Stop()
	}
	s.timers[orderID] = time.AfterFunc(s.window, func() {
		s.fire(orderID)
	})

	s.logger.Debug().
		Str("order_id", orderID.String()).
		Dur("window", s.window).
		Msg("reservation timer armed")
}

// Disarm cancels the order's timer. Safe to call when no timer exists
// or the timer already fired.
func (s *Scheduler) Disarm(orderID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[orderID]; ok {
		t.Stop()
		delete(s.timers, orderID)
		s.logger.Debug().Str("order_id", orderID.String()).Msg("reservation timer disarmed")
	}
}

// Armed reports whether the order currently has a timer. Intended for
// tests.
func (s *Scheduler) Armed(orderID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[orderID]
	return ok
}

// Stop cancels every pending timer.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// fire runs when a per-order timer elapses.
func (s *Scheduler) fire(orderID uuid.UUID) {
	s.mu.Lock()
	delete(s.timers, orderID)
	exp := s.exp
	s.mu.Unlock()

	if exp == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), expireTimeout)
	defer cancel()

	if err := exp.ExpireOrder(ctx, orderID); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("timer expiry failed")
	}
}

// Sweep cancels every order still pending past its deadline, whether or
// not a timer exists for it. Orders are processed independently: one
// failure is logged and the loop continues. Returns how many orders
// were expired.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	exp := s.exp
	s.mu.Unlock()

	if exp == nil {
		return 0, nil
	}

	cutoff := time.Now().Add(-s.window)
	ids, err := exp.ExpiredPending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		if err := exp.ExpireOrder(ctx, id); err != nil {
			s.logger.Error().Err(err).Str("order_id", id.String()).Msg("sweep expiry failed")
			continue
		}
		s.Disarm(id)
		expired++
	}

	if expired > 0 {
		s.logger.Info().Int("expired", expired).Msg("sweep cancelled expired pending orders")
	}
	return expired, nil
}
