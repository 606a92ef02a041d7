package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{Token: "123:abc"},
		Checker:  CheckerConfig{URL: "https://portal.example/appointments"},
	}
}

func TestResolveDefaults(t *testing.T) {
	t.Parallel()

	r, err := validConfig().Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if r.PollTimeout != 10*time.Second {
		t.Errorf("PollTimeout = %v, want 10s", r.PollTimeout)
	}
	m := r.Monitor
	if m.BaseInterval != 5*time.Minute || m.MinInterval != 3*time.Minute || m.MaxInterval != 7*time.Minute {
		t.Errorf("intervals = %v/%v/%v, want 5m/3m/7m", m.BaseInterval, m.MinInterval, m.MaxInterval)
	}
	if m.JitterRatio != 0.2 {
		t.Errorf("JitterRatio = %v, want 0.2", m.JitterRatio)
	}
	if m.FailureThreshold != 5 {
		t.Errorf("FailureThreshold = %d, want 5", m.FailureThreshold)
	}
	if m.ErrorBackoffBase != 30*time.Second || m.ErrorBackoffMax != 10*time.Minute {
		t.Errorf("backoff = %v/%v, want 30s/10m", m.ErrorBackoffBase, m.ErrorBackoffMax)
	}
	if m.BlockCooldown != 30*time.Minute {
		t.Errorf("BlockCooldown = %v, want 30m", m.BlockCooldown)
	}
	if r.CheckerTimeout != 30*time.Second {
		t.Errorf("CheckerTimeout = %v, want 30s", r.CheckerTimeout)
	}
	if len(r.NegativeMarkers) == 0 || len(r.CaptchaMarkers) == 0 || len(r.BlockMarkers) == 0 {
		t.Error("default markers missing")
	}
	if r.SubscriberDriver != "file" {
		t.Errorf("SubscriberDriver = %q, want file", r.SubscriberDriver)
	}
	if r.SubscriberPath == "" {
		t.Error("SubscriberPath empty, want default")
	}
}

func TestResolveRejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mut     func(*Config)
		wantSub string
	}{
		{"missing token", func(c *Config) { c.Telegram.Token = " " }, "telegram.token"},
		{"missing url", func(c *Config) { c.Checker.URL = "" }, "checker.url"},
		{"bad poll timeout", func(c *Config) { c.Telegram.PollTimeout = "soon" }, "poll_timeout"},
		{"min above max", func(c *Config) {
			c.Monitor.MinInterval, c.Monitor.MaxInterval = "10m", "5m"
			c.Monitor.BaseInterval = "7m"
		}, "min_interval"},
		{"base outside bounds", func(c *Config) { c.Monitor.BaseInterval = "20m" }, "base_interval"},
		{"jitter too large", func(c *Config) { c.Monitor.JitterRatio = 1.0 }, "jitter_ratio"},
		{"negative jitter", func(c *Config) { c.Monitor.JitterRatio = -0.3 }, "jitter_ratio"},
		{"negative threshold", func(c *Config) { c.Monitor.FailureThreshold = -2 }, "failure_threshold"},
		{"backoff base above max", func(c *Config) {
			c.Monitor.ErrorBackoffBase, c.Monitor.ErrorBackoffMax = "20m", "10m"
		}, "error_backoff_base"},
		{"bad duration", func(c *Config) { c.Monitor.BlockCooldown = "half an hour" }, "block_cooldown"},
		{"unknown driver", func(c *Config) { c.Subscribers.Driver = "redis" }, "driver"},
		{"report without schedule", func(c *Config) {
			c.Report = &ReportConfig{Enabled: true}
		}, "report.schedule"},
		{"report bad cron", func(c *Config) {
			c.Report = &ReportConfig{Enabled: true, Schedule: "every tuesday"}
		}, "report.schedule"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mut(cfg)
			_, err := cfg.Resolve()
			if err == nil {
				t.Fatal("Resolve() = nil, want error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("Resolve() error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

func TestResolveCustomMarkersLowercased(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Checker.NegativeMarkers = []string{"  Keine Termine ", "", "FULLY BOOKED"}
	r, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{"keine termine", "fully booked"}
	if len(r.NegativeMarkers) != len(want) {
		t.Fatalf("NegativeMarkers = %v, want %v", r.NegativeMarkers, want)
	}
	for i := range want {
		if r.NegativeMarkers[i] != want[i] {
			t.Fatalf("NegativeMarkers[%d] = %q, want %q", i, r.NegativeMarkers[i], want[i])
		}
	}
}

func TestResolveReportDisabledSkipsCronCheck(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Report = &ReportConfig{Enabled: false, Schedule: "not a cron spec"}
	if _, err := cfg.Resolve(); err != nil {
		t.Fatalf("Resolve with disabled report = %v, want nil", err)
	}
}

func TestResolveSqliteDriver(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Subscribers = SubscribersConfig{Driver: "SQLite", Path: "/tmp/subs.db", BusyTimeout: "2s"}
	r, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.SubscriberDriver != "sqlite" {
		t.Errorf("SubscriberDriver = %q, want sqlite", r.SubscriberDriver)
	}
	if r.SubscriberBusyTimeout != 2*time.Second {
		t.Errorf("SubscriberBusyTimeout = %v, want 2s", r.SubscriberBusyTimeout)
	}
}
