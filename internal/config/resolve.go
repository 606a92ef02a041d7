package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Built-in marker defaults, matching the portal's known phrasings.
var (
	defaultNegativeMarkers = []string{
		"no appointment", "not available", "no slots", "no appointments available",
	}
	defaultCaptchaMarkers = []string{
		"verify", "captcha", "are you human", "robot check",
	}
	defaultBlockMarkers = []string{
		"too many requests", "429", "temporarily blocked", "suspicious activity",
	}
)

// Resolved carries the parsed/validated values that the raw Config keeps as
// strings. Building it is the single fail-fast validation point: nothing
// starts if Resolve returns an error.
type Resolved struct {
	PollTimeout time.Duration

	Monitor ResolvedMonitor

	CheckerTimeout  time.Duration
	NegativeMarkers []string
	CaptchaMarkers  []string
	BlockMarkers    []string

	SubscriberDriver      string
	SubscriberPath        string
	SubscriberBusyTimeout time.Duration
}

type ResolvedMonitor struct {
	BaseInterval time.Duration
	MinInterval  time.Duration
	MaxInterval  time.Duration
	JitterRatio  float64

	FailureThreshold int
	ErrorBackoffBase time.Duration
	ErrorBackoffMax  time.Duration
	BlockCooldown    time.Duration

	EnsureReadyOnStart bool
	NotifyText         string
}

// Resolve validates the configuration and materializes durations and
// defaults. Invalid bounds (min > max, jitter outside [0,1), backoff base >
// max, bad cron spec, missing token/url) are all rejected here, before any
// service starts.
func (c *Config) Resolve() (*Resolved, error) {
	if c == nil {
		return nil, errors.New("config is nil")
	}
	r := &Resolved{}

	if strings.TrimSpace(c.Telegram.Token) == "" {
		return nil, errors.New("telegram.token is required")
	}
	var err error
	if r.PollTimeout, err = parseDurationOrDefault("telegram.poll_timeout", c.Telegram.PollTimeout, 10*time.Second); err != nil {
		return nil, err
	}

	if err := c.resolveMonitor(&r.Monitor); err != nil {
		return nil, err
	}

	if strings.TrimSpace(c.Checker.URL) == "" {
		return nil, errors.New("checker.url is required")
	}
	if r.CheckerTimeout, err = parseDurationOrDefault("checker.timeout", c.Checker.Timeout, 30*time.Second); err != nil {
		return nil, err
	}
	r.NegativeMarkers = markersOrDefault(c.Checker.NegativeMarkers, defaultNegativeMarkers)
	r.CaptchaMarkers = markersOrDefault(c.Checker.CaptchaMarkers, defaultCaptchaMarkers)
	r.BlockMarkers = markersOrDefault(c.Checker.BlockMarkers, defaultBlockMarkers)

	r.SubscriberDriver = strings.ToLower(strings.TrimSpace(c.Subscribers.Driver))
	if r.SubscriberDriver == "" {
		r.SubscriberDriver = "file"
	}
	switch r.SubscriberDriver {
	case "file", "sqlite", "memory":
	default:
		return nil, fmt.Errorf("subscribers.driver: unknown driver %q", c.Subscribers.Driver)
	}
	r.SubscriberPath = strings.TrimSpace(c.Subscribers.Path)
	if r.SubscriberPath == "" && r.SubscriberDriver != "memory" {
		r.SubscriberPath = "./subscribers.json"
	}
	if r.SubscriberBusyTimeout, err = parseDurationField("subscribers.busy_timeout", c.Subscribers.BusyTimeout); err != nil {
		return nil, err
	}

	if c.Report != nil && c.Report.Enabled {
		spec := strings.TrimSpace(c.Report.Schedule)
		if spec == "" {
			return nil, errors.New("report.schedule is required when report is enabled")
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return nil, fmt.Errorf("report.schedule: invalid cron spec %q: %w", spec, err)
		}
	}

	return r, nil
}

func (c *Config) resolveMonitor(out *ResolvedMonitor) error {
	m := c.Monitor
	var err error
	if out.BaseInterval, err = parseDurationOrDefault("monitor.base_interval", m.BaseInterval, 5*time.Minute); err != nil {
		return err
	}
	if out.MinInterval, err = parseDurationOrDefault("monitor.min_interval", m.MinInterval, 3*time.Minute); err != nil {
		return err
	}
	if out.MaxInterval, err = parseDurationOrDefault("monitor.max_interval", m.MaxInterval, 7*time.Minute); err != nil {
		return err
	}
	if out.MinInterval > out.MaxInterval {
		return fmt.Errorf("monitor: min_interval %v > max_interval %v", out.MinInterval, out.MaxInterval)
	}
	if out.BaseInterval < out.MinInterval || out.BaseInterval > out.MaxInterval {
		return fmt.Errorf("monitor: base_interval %v outside [%v, %v]", out.BaseInterval, out.MinInterval, out.MaxInterval)
	}

	out.JitterRatio = m.JitterRatio
	if out.JitterRatio == 0 {
		out.JitterRatio = 0.2
	}
	if out.JitterRatio < 0 || out.JitterRatio >= 1 {
		return fmt.Errorf("monitor.jitter_ratio: %v outside [0, 1)", m.JitterRatio)
	}

	out.FailureThreshold = m.FailureThreshold
	if out.FailureThreshold == 0 {
		out.FailureThreshold = 5
	}
	if out.FailureThreshold < 1 {
		return errors.New("monitor.failure_threshold must be >= 1")
	}

	if out.ErrorBackoffBase, err = parseDurationOrDefault("monitor.error_backoff_base", m.ErrorBackoffBase, 30*time.Second); err != nil {
		return err
	}
	if out.ErrorBackoffMax, err = parseDurationOrDefault("monitor.error_backoff_max", m.ErrorBackoffMax, 10*time.Minute); err != nil {
		return err
	}
	if out.ErrorBackoffBase > out.ErrorBackoffMax {
		return fmt.Errorf("monitor: error_backoff_base %v > error_backoff_max %v", out.ErrorBackoffBase, out.ErrorBackoffMax)
	}
	if out.BlockCooldown, err = parseDurationOrDefault("monitor.block_cooldown", m.BlockCooldown, 30*time.Minute); err != nil {
		return err
	}

	out.EnsureReadyOnStart = m.EnsureReadyOnStart
	out.NotifyText = strings.TrimSpace(m.NotifyText)
	return nil
}

func markersOrDefault(in, def []string) []string {
	out := make([]string, 0, len(in))
	for _, m := range in {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), def...)
	}
	return out
}
