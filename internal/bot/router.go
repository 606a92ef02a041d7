// Package bot implements the Telegram command surface: subscription
// management and on-demand status queries. It only ever reads the monitor
// through its synchronized snapshot accessor, so a /status never blocks on a
// probe in flight.
package bot

import (
	"context"
	"strings"

	"slotbot/internal/monitor"
	"slotbot/internal/subscribers"
	kit "slotbot/internal/transport"
	logx "slotbot/pkg/logx"
)

// Monitor is the narrow slice of the monitor service the commands need.
type Monitor interface {
	Snapshot() monitor.Snapshot
	SetPaused(v bool)
	Paused() bool
}

type Config struct {
	// WhitelistUsernames restricts commands to these usernames
	// (case-insensitive, no @). Empty means everyone may use the bot.
	WhitelistUsernames []string
}

type Router struct {
	cfg     Config
	adapter kit.Adapter
	subs    subscribers.Store
	mon     Monitor
	log     logx.Logger

	whitelist map[string]struct{}
}

func NewRouter(cfg Config, adapter kit.Adapter, subs subscribers.Store, mon Monitor, log logx.Logger) *Router {
	wl := make(map[string]struct{}, len(cfg.WhitelistUsernames))
	for _, u := range cfg.WhitelistUsernames {
		u = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(u), "@"))
		if u != "" {
			wl[u] = struct{}{}
		}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{
		cfg:       cfg,
		adapter:   adapter,
		subs:      subs,
		mon:       mon,
		log:       log,
		whitelist: wl,
	}
}

// Commands lists the menu entries published to Telegram.
func (r *Router) Commands() []kit.BotCommand {
	return []kit.BotCommand{
		{Command: "start", Description: "What this bot does"},
		{Command: "subscribe", Description: "Get notified when slots appear"},
		{Command: "unsubscribe", Description: "Stop notifications"},
		{Command: "status", Description: "Last check result and breaker state"},
		{Command: "pause", Description: "Pause checking"},
		{Command: "resume", Description: "Resume checking"},
	}
}

// Run consumes inbound messages until ctx is done.
func (r *Router) Run(ctx context.Context, updates <-chan kit.Message) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-updates:
			if !ok {
				return nil
			}
			r.handle(ctx, msg)
		}
	}
}

func (r *Router) handle(ctx context.Context, msg kit.Message) {
	cmd := parseCommand(msg.Text)
	if cmd == "" {
		return
	}
	if !r.allowed(msg) {
		r.log.Warn("command from non-whitelisted user",
			logx.String("command", cmd),
			logx.String("username", msg.FromUsername),
			logx.Int64("chat_id", msg.ChatID),
		)
		r.reply(ctx, msg.ChatID, "⛔ You are not allowed to use this bot.")
		return
	}

	switch cmd {
	case "start", "help":
		r.cmdStart(ctx, msg)
	case "subscribe":
		r.cmdSubscribe(ctx, msg)
	case "unsubscribe":
		r.cmdUnsubscribe(ctx, msg)
	case "status":
		r.cmdStatus(ctx, msg)
	case "pause":
		r.cmdPause(ctx, msg)
	case "resume":
		r.cmdResume(ctx, msg)
	default:
		r.reply(ctx, msg.ChatID, "Unknown command. Try /status or /subscribe.")
	}
}

func (r *Router) allowed(msg kit.Message) bool {
	if len(r.whitelist) == 0 {
		return true
	}
	_, ok := r.whitelist[strings.ToLower(msg.FromUsername)]
	return ok
}

func (r *Router) reply(ctx context.Context, chatID int64, text string) {
	err := r.adapter.SendText(ctx, kit.ChatTarget{ChatID: chatID}, text, &kit.SendOptions{DisablePreview: true})
	if err != nil {
		r.log.Warn("reply failed", logx.Int64("chat_id", chatID), logx.Err(err))
	}
}

// parseCommand extracts the command name from "/name@bot args...".
// Returns "" for plain text.
func parseCommand(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	fields := strings.Fields(text)
	cmd := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd)
}
