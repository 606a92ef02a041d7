package config

// Config is the full slotbot configuration.
//
// Files may be JSON or YAML (YAML is coerced to JSON so both go through the
// same strict decoder). All durations are Go duration strings (e.g. "30s",
// "5m").
type Config struct {
	Telegram    TelegramConfig    `json:"telegram"`
	Logging     LoggingConfig     `json:"logging"`
	Monitor     MonitorConfig     `json:"monitor"`
	Checker     CheckerConfig     `json:"checker"`
	Subscribers SubscribersConfig `json:"subscribers"`
	Report      *ReportConfig     `json:"report,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`

	// WhitelistUsernames restricts commands to the listed usernames
	// (case-insensitive, without @). Empty means everyone.
	WhitelistUsernames []string `json:"whitelist_usernames,omitempty"`

	// PollTimeout is the long-poll timeout, e.g. "10s".
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// MonitorConfig tunes the probe loop.
//
// Defaults (when fields are omitted/zero):
//   - base_interval: "5m", min_interval: "3m", max_interval: "7m"
//   - jitter_ratio: 0.2
//   - failure_threshold: 5
//   - error_backoff_base: "30s", error_backoff_max: "10m"
//   - block_cooldown: "30m"
type MonitorConfig struct {
	BaseInterval string  `json:"base_interval,omitempty"`
	MinInterval  string  `json:"min_interval,omitempty"`
	MaxInterval  string  `json:"max_interval,omitempty"`
	JitterRatio  float64 `json:"jitter_ratio,omitempty"`

	FailureThreshold int    `json:"failure_threshold,omitempty"`
	ErrorBackoffBase string `json:"error_backoff_base,omitempty"`
	ErrorBackoffMax  string `json:"error_backoff_max,omitempty"`

	// BlockCooldown is the fixed pause after a CAPTCHA/BLOCKED probe.
	BlockCooldown string `json:"block_cooldown,omitempty"`

	// EnsureReadyOnStart asks the checker to warm up (e.g. confirm the
	// session) once before the first probe.
	EnsureReadyOnStart bool `json:"ensure_ready_on_start,omitempty"`

	// NotifyText overrides the default slot alert message.
	NotifyText string `json:"notify_text,omitempty"`
}

// CheckerConfig configures the HTTP portal checker.
//
// Classification precedence: captcha markers, then block markers, then
// negative markers; a page matching none is treated as MAYBE_SLOTS.
type CheckerConfig struct {
	URL       string `json:"url"`
	Timeout   string `json:"timeout,omitempty"` // default "30s"
	UserAgent string `json:"user_agent,omitempty"`

	NegativeMarkers []string `json:"negative_markers,omitempty"`
	CaptchaMarkers  []string `json:"captcha_markers,omitempty"`
	BlockMarkers    []string `json:"block_markers,omitempty"`
}

// SubscribersConfig selects the subscriber store backend.
//
// Driver values: "file" (JSON set), "sqlite", "memory" (ephemeral).
type SubscribersConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

// ReportConfig enables the scheduled status digest.
type ReportConfig struct {
	Enabled bool `json:"enabled"`
	// Schedule is a cron spec, e.g. "0 9 * * *" for 09:00 daily.
	Schedule string `json:"schedule"`
}
