package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	logx "slotbot/pkg/logx"
)

// Checker probes the portal once and classifies the result.
// The canonical implementation lives in internal/checker.
type Checker interface {
	Probe(ctx context.Context) (Outcome, error)
	// EnsureReady is invoked once before the first probe when configured.
	// Failure is reported but does not prevent the loop from starting.
	EnsureReady(ctx context.Context) error
}

// Subscribers yields the chat IDs to notify. The monitor only reads the set;
// mutation happens on the command surface.
type Subscribers interface {
	All(ctx context.Context) ([]int64, error)
}

// Notifier delivers one message to one chat.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) error
}

const defaultNotifyText = "🎉 Appointment slots may have opened — check the portal now!"

// pausedPollEvery bounds resume latency while the monitor is paused.
const pausedPollEvery = time.Second

// Config assembles the monitor tuning.
type Config struct {
	Limiter LimiterConfig
	Breaker BreakerConfig

	// EnsureReadyOnStart runs Checker.EnsureReady once before the loop.
	EnsureReadyOnStart bool

	// NotifyText overrides the default slot alert message.
	NotifyText string
}

// Service owns the monitoring control loop: it decides when to probe, feeds
// outcomes into the breaker and limiter, detects status transitions and fans
// alerts out to subscribers.
//
// The limiter and breaker are touched only from the loop goroutine. The
// snapshot is the single piece of shared state and is guarded by mu.
type Service struct {
	cfg      Config
	checker  Checker
	subs     Subscribers
	notifier Notifier
	log      logx.Logger

	limiter *RateLimiter
	breaker *CircuitBreaker

	paused atomic.Bool

	mu      sync.Mutex
	snap    Snapshot
	pending *tuning
}

type tuning struct {
	limiter LimiterConfig
	breaker BreakerConfig
}

func New(cfg Config, checker Checker, subs Subscribers, notifier Notifier, log logx.Logger) (*Service, error) {
	if checker == nil || subs == nil || notifier == nil {
		return nil, errors.New("monitor: checker, subscribers and notifier are required")
	}
	lim, err := NewRateLimiter(cfg.Limiter)
	if err != nil {
		return nil, err
	}
	brk, err := NewCircuitBreaker(cfg.Breaker)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.NotifyText) == "" {
		cfg.NotifyText = defaultNotifyText
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:      cfg,
		checker:  checker,
		subs:     subs,
		notifier: notifier,
		log:      log,
		limiter:  lim,
		breaker:  brk,
	}, nil
}

// Run drives the probe loop until ctx is cancelled. Probe errors never end
// the loop; they are converted to ERROR outcomes and absorbed by the breaker.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.EnsureReadyOnStart {
		if err := s.checker.EnsureReady(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn("checker not ready; monitoring anyway", logx.Err(err))
		}
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		s.applyPendingTuning()

		if s.paused.Load() {
			if !sleepCtx(ctx, pausedPollEvery) {
				return nil
			}
			continue
		}

		now := time.Now()
		if !s.breaker.AllowProbe(now) {
			view := s.breaker.View(now)
			wait := time.Until(view.OpenUntil)
			s.log.Info("breaker open; probe suppressed",
				logx.String("reason", string(view.Reason)),
				logx.Duration("wait", wait),
			)
			if !sleepCtx(ctx, wait) {
				return nil
			}
			continue
		}

		out := s.probe(ctx)
		if ctx.Err() != nil {
			return nil
		}

		s.breaker.RecordOutcome(out, now)
		if out.Status.Success() {
			s.limiter.RecordSuccess()
		} else {
			s.limiter.RecordError()
		}

		if s.commit(out, now) {
			s.broadcast(ctx, s.cfg.NotifyText)
		}

		if !sleepCtx(ctx, s.limiter.NextDelay()) {
			return nil
		}
	}
}

func (s *Service) probe(ctx context.Context) Outcome {
	out, err := s.checker.Probe(ctx)
	if err != nil {
		s.log.Warn("probe failed", logx.Err(err))
		return Outcome{Status: StatusError, Detail: err.Error()}
	}
	s.log.Debug("probe completed",
		logx.String("status", string(out.Status)),
		logx.String("detail", out.Detail),
	)
	return out
}

// commit publishes the outcome to the snapshot and reports whether the
// transition is notification-worthy (anything other than MAYBE_SLOTS into
// MAYBE_SLOTS). Re-observing the same status never renotifies.
func (s *Service) commit(out Outcome, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.snap.LastStatus
	s.snap.LastStatus = out.Status
	s.snap.LastDetail = out.Detail
	s.snap.LastCheckedAt = now
	s.snap.ConsecutiveFailures = s.breaker.Failures()
	s.snap.Breaker = s.breaker.View(now)
	s.snap.Cycles++
	return prev != StatusMaybeSlots && out.Status == StatusMaybeSlots
}

// broadcast fans the alert out to every subscriber. Best effort: a delivery
// failure for one recipient never aborts the rest.
func (s *Service) broadcast(ctx context.Context, text string) {
	ids, err := s.subs.All(ctx)
	if err != nil {
		s.log.Error("subscriber list unavailable; alert dropped", logx.Err(err))
		return
	}
	sent, failed := 0, 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		if err := s.notifier.Send(ctx, id, text); err != nil {
			failed++
			s.log.Warn("notify failed", logx.Int64("chat_id", id), logx.Err(err))
			continue
		}
		sent++
	}
	s.log.Info("slot alert broadcast", logx.Int("sent", sent), logx.Int("failed", failed))
}

// Snapshot returns a consistent copy of the monitor state.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	snap := s.snap
	s.mu.Unlock()
	snap.Paused = s.paused.Load()
	return snap
}

// SetPaused pauses or resumes probing. Pausing takes effect before the next
// probe; a probe already in flight completes normally.
func (s *Service) SetPaused(v bool) { s.paused.Store(v) }

// Paused reports whether probing is paused.
func (s *Service) Paused() bool { return s.paused.Load() }

// Retune stages new limiter/breaker settings. They are validated now and
// applied by the loop at the top of its next cycle, so the loop goroutine
// stays the sole owner of limiter and breaker state.
func (s *Service) Retune(lim LimiterConfig, brk BreakerConfig) error {
	if err := lim.validate(); err != nil {
		return err
	}
	if err := brk.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.pending = &tuning{limiter: lim, breaker: brk}
	s.mu.Unlock()
	return nil
}

func (s *Service) applyPendingTuning() {
	s.mu.Lock()
	t := s.pending
	s.pending = nil
	s.mu.Unlock()
	if t == nil {
		return
	}
	s.limiter.Reconfigure(t.limiter)
	s.breaker.Reconfigure(t.breaker)
	s.log.Info("monitor tuning applied",
		logx.Duration("base_interval", t.limiter.Base),
		logx.Duration("min_interval", t.limiter.Min),
		logx.Duration("max_interval", t.limiter.Max),
		logx.Int("failure_threshold", t.breaker.FailureThreshold),
	)
}

// sleepCtx sleeps for d or until ctx is done. Returns false on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
