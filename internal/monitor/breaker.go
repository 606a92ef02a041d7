package monitor

import (
	"errors"
	"fmt"
	"time"
)

// BreakerConfig controls when probing is suppressed.
type BreakerConfig struct {
	// FailureThreshold is the consecutive ERROR count that opens the breaker.
	FailureThreshold int
	// BackoffBase and BackoffMax bound the exponential ERROR cooldown
	// (base * 2^failures, capped at max).
	BackoffBase time.Duration
	BackoffMax  time.Duration
	// BlockCooldown is the fixed cooldown applied on CAPTCHA/BLOCKED.
	BlockCooldown time.Duration
}

func (c BreakerConfig) validate() error {
	if c.FailureThreshold < 1 {
		return errors.New("breaker: failure threshold must be >= 1")
	}
	if c.BackoffBase <= 0 {
		return errors.New("breaker: backoff base must be > 0")
	}
	if c.BackoffMax < c.BackoffBase {
		return fmt.Errorf("breaker: backoff max %v < base %v", c.BackoffMax, c.BackoffBase)
	}
	if c.BlockCooldown <= 0 {
		return errors.New("breaker: block cooldown must be > 0")
	}
	return nil
}

// BreakerView is the read-only breaker state exposed through the snapshot.
type BreakerView struct {
	Failures  int
	Open      bool
	OpenUntil time.Time
	Reason    Status // status that opened the breaker; empty when closed
}

// CircuitBreaker suppresses probing for a cooldown after blocking conditions
// or a streak of errors.
//
// There is no separate half-open state: once the cooldown timestamp passes,
// AllowProbe optimistically closes the breaker so exactly one attempt runs,
// and that attempt's outcome decides whether it re-opens.
//
// Owned by the monitor loop; not safe for concurrent use.
type CircuitBreaker struct {
	cfg       BreakerConfig
	fails     int
	openUntil time.Time
	reason    Status
}

func NewCircuitBreaker(cfg BreakerConfig) (*CircuitBreaker, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &CircuitBreaker{cfg: cfg}, nil
}

// Failures returns the consecutive failure count.
func (b *CircuitBreaker) Failures() int { return b.fails }

// OpenUntil returns the cooldown deadline, zero when closed.
func (b *CircuitBreaker) OpenUntil() time.Time { return b.openUntil }

// AllowProbe reports whether a probe may run at now.
// When an open cooldown has elapsed the breaker flips closed before the
// probe, so a single attempt is made per cooldown expiry.
func (b *CircuitBreaker) AllowProbe(now time.Time) bool {
	if b.openUntil.IsZero() {
		return true
	}
	if now.Before(b.openUntil) {
		return false
	}
	b.openUntil = time.Time{}
	b.reason = ""
	return true
}

// RecordOutcome feeds one probe outcome into the breaker.
//
// CAPTCHA/BLOCKED open immediately with the fixed block cooldown. ERROR
// counts toward the threshold and opens with exponential backoff once
// reached. Any successful classification fully resets the failure count.
func (b *CircuitBreaker) RecordOutcome(out Outcome, now time.Time) {
	switch {
	case out.Status.Blocking():
		b.fails++
		b.reason = out.Status
		b.openUntil = now.Add(b.cfg.BlockCooldown)
	case out.Status == StatusError:
		b.fails++
		if b.fails >= b.cfg.FailureThreshold {
			b.reason = StatusError
			b.openUntil = now.Add(b.backoff())
		}
	default:
		b.fails = 0
		b.openUntil = time.Time{}
		b.reason = ""
	}
}

func (b *CircuitBreaker) backoff() time.Duration {
	d := b.cfg.BackoffBase
	for i := 0; i < b.fails; i++ {
		d *= 2
		if d >= b.cfg.BackoffMax {
			return b.cfg.BackoffMax
		}
	}
	return d
}

// Reconfigure swaps in already-validated settings. Failure count and any
// running cooldown are kept. Called only from the monitor loop.
func (b *CircuitBreaker) Reconfigure(cfg BreakerConfig) { b.cfg = cfg }

// View returns the read-only state for status reporting.
func (b *CircuitBreaker) View(now time.Time) BreakerView {
	return BreakerView{
		Failures:  b.fails,
		Open:      !b.openUntil.IsZero() && now.Before(b.openUntil),
		OpenUntil: b.openUntil,
		Reason:    b.reason,
	}
}
