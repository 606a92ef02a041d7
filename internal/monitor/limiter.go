package monitor

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// LimiterConfig bounds the adaptive probe interval.
type LimiterConfig struct {
	// Base is the interval the limiter relaxes back to after trouble passes.
	Base time.Duration
	// Min and Max clamp the interval and every jittered delay drawn from it.
	Min time.Duration
	Max time.Duration
	// Jitter is the +/- fraction applied to each delay, in [0, 1).
	Jitter float64
}

func (c LimiterConfig) validate() error {
	if c.Min <= 0 {
		return errors.New("limiter: min interval must be > 0")
	}
	if c.Max < c.Min {
		return fmt.Errorf("limiter: max interval %v < min %v", c.Max, c.Min)
	}
	if c.Base < c.Min || c.Base > c.Max {
		return fmt.Errorf("limiter: base interval %v outside [%v, %v]", c.Base, c.Min, c.Max)
	}
	if c.Jitter < 0 || c.Jitter >= 1 {
		return fmt.Errorf("limiter: jitter ratio %v outside [0, 1)", c.Jitter)
	}
	return nil
}

// RateLimiter computes jittered probe delays from an adaptive interval.
//
// The interval is nudged up multiplicatively on errors and relaxes back
// toward Base on success, always clamped to [Min, Max]. Jitter keeps the
// probing pattern unpredictable so multiple deployments watching the same
// portal don't fall into lockstep.
//
// Not safe for concurrent use; the monitor loop is the only caller.
type RateLimiter struct {
	cfg LimiterConfig
	cur time.Duration
	rng *rand.Rand
}

func NewRateLimiter(cfg LimiterConfig) (*RateLimiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &RateLimiter{
		cfg: cfg,
		cur: cfg.Base,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Interval returns the current un-jittered interval.
func (l *RateLimiter) Interval() time.Duration { return l.cur }

// RecordError widens the interval toward Max.
func (l *RateLimiter) RecordError() {
	l.cur *= 2
	if l.cur > l.cfg.Max {
		l.cur = l.cfg.Max
	}
}

// RecordSuccess relaxes the interval halfway back toward Base.
func (l *RateLimiter) RecordSuccess() {
	if l.cur <= l.cfg.Base {
		l.cur = l.cfg.Base
		return
	}
	l.cur = l.cfg.Base + (l.cur-l.cfg.Base)/2
	if l.cur-l.cfg.Base < time.Second {
		l.cur = l.cfg.Base
	}
}

// Reconfigure swaps in already-validated bounds, clamping the current
// interval into the new window. Called only from the monitor loop.
func (l *RateLimiter) Reconfigure(cfg LimiterConfig) {
	l.cfg = cfg
	if l.cur < cfg.Min {
		l.cur = cfg.Min
	}
	if l.cur > cfg.Max {
		l.cur = cfg.Max
	}
}

// NextDelay draws a fresh jittered delay from the current interval.
// The result never leaves [Min, Max] regardless of the jitter draw.
func (l *RateLimiter) NextDelay() time.Duration {
	f := 1 + (l.rng.Float64()*2-1)*l.cfg.Jitter
	d := time.Duration(float64(l.cur) * f)
	if d < l.cfg.Min {
		d = l.cfg.Min
	}
	if d > l.cfg.Max {
		d = l.cfg.Max
	}
	return d
}
