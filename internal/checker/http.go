// Package checker implements the portal probe consumed by the monitor.
//
// The HTTP checker fetches the portal page and classifies the body against
// configured marker lists. Classification precedence: captcha, block,
// negative, then MAYBE_SLOTS when nothing matched.
package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"slotbot/internal/monitor"
	logx "slotbot/pkg/logx"
)

// Response bodies are capped so a misbehaving portal can't balloon memory.
const maxBodyBytes = 1 << 20

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) slotbot/1.0"

type Config struct {
	URL       string
	Timeout   time.Duration
	UserAgent string

	NegativeMarkers []string
	CaptchaMarkers  []string
	BlockMarkers    []string
}

// HTTP probes the portal over plain HTTP. A cookie jar keeps the session
// alive across probes so the portal sees one returning visitor, not a fresh
// client every few minutes.
type HTTP struct {
	cfg    Config
	client *http.Client
	log    logx.Logger
}

func NewHTTP(cfg Config, log logx.Logger) (*HTTP, error) {
	u := strings.TrimSpace(cfg.URL)
	if u == "" {
		return nil, errors.New("checker: url is required")
	}
	if _, err := url.ParseRequestURI(u); err != nil {
		return nil, fmt.Errorf("checker: invalid url %q: %w", cfg.URL, err)
	}
	cfg.URL = u
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = defaultUserAgent
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &HTTP{
		cfg:    cfg,
		client: &http.Client{Jar: jar, Timeout: cfg.Timeout},
		log:    log,
	}, nil
}

// EnsureReady performs one warm-up fetch so session cookies are established
// before the first real probe.
func (c *HTTP) EnsureReady(ctx context.Context) error {
	body, code, err := c.fetch(ctx)
	if err != nil {
		return err
	}
	c.log.Info("checker warm-up completed",
		logx.Int("status_code", code),
		logx.Int("body_bytes", len(body)),
	)
	return nil
}

// Probe fetches the portal page once and classifies it. Transport failures
// are returned as errors; the monitor converts them to ERROR outcomes.
func (c *HTTP) Probe(ctx context.Context) (monitor.Outcome, error) {
	body, code, err := c.fetch(ctx)
	if err != nil {
		return monitor.Outcome{}, err
	}
	switch {
	case code == http.StatusTooManyRequests || code == http.StatusForbidden:
		return monitor.Outcome{Status: monitor.StatusBlocked, Detail: fmt.Sprintf("http %d", code)}, nil
	case code >= 500:
		return monitor.Outcome{Status: monitor.StatusError, Detail: fmt.Sprintf("http %d", code)}, nil
	}
	return c.classify(body), nil
}

func (c *HTTP) fetch(ctx context.Context) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return string(b), resp.StatusCode, nil
}

func (c *HTTP) classify(body string) monitor.Outcome {
	lower := strings.ToLower(body)
	if m := firstMatch(lower, c.cfg.CaptchaMarkers); m != "" {
		return monitor.Outcome{Status: monitor.StatusCaptcha, Detail: m}
	}
	if m := firstMatch(lower, c.cfg.BlockMarkers); m != "" {
		return monitor.Outcome{Status: monitor.StatusBlocked, Detail: m}
	}
	if m := firstMatch(lower, c.cfg.NegativeMarkers); m != "" {
		return monitor.Outcome{Status: monitor.StatusNoSlots, Detail: m}
	}
	// No negative marker on a living page: optimistic.
	return monitor.Outcome{Status: monitor.StatusMaybeSlots}
}

func firstMatch(lower string, markers []string) string {
	for _, m := range markers {
		if m != "" && strings.Contains(lower, m) {
			return m
		}
	}
	return ""
}
