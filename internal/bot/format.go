package bot

import (
	"fmt"
	"strings"
	"time"

	"slotbot/internal/monitor"
)

// formatStatus renders the snapshot for /status. The breaker line makes
// "quiet because no slots" distinguishable from "quiet because backing off".
func formatStatus(snap monitor.Snapshot, subCount int) string {
	var b strings.Builder
	b.WriteString("📡 Monitor status\n")

	if !snap.Known() {
		b.WriteString("State: no check completed yet\n")
	} else {
		b.WriteString("State: ")
		b.WriteString(statusLabel(snap.LastStatus))
		if snap.LastDetail != "" {
			fmt.Fprintf(&b, " (%s)", snap.LastDetail)
		}
		b.WriteByte('\n')
		fmt.Fprintf(&b, "Checked: %s ago\n", ago(snap.LastCheckedAt))
	}

	if snap.Breaker.Open {
		fmt.Fprintf(&b, "Backing off: %s more (%s)\n",
			time.Until(snap.Breaker.OpenUntil).Round(time.Second),
			breakerReason(snap.Breaker.Reason),
		)
	}
	if snap.ConsecutiveFailures > 0 {
		fmt.Fprintf(&b, "Consecutive failures: %d\n", snap.ConsecutiveFailures)
	}
	if snap.Paused {
		b.WriteString("⏸ Checking is paused\n")
	}

	fmt.Fprintf(&b, "Checks done: %d\n", snap.Cycles)
	if subCount >= 0 {
		fmt.Fprintf(&b, "Subscribers: %d", subCount)
	}
	return strings.TrimRight(b.String(), "\n")
}

func statusLabel(s monitor.Status) string {
	switch s {
	case monitor.StatusNoSlots:
		return "no slots"
	case monitor.StatusMaybeSlots:
		return "🎉 slots may be available"
	case monitor.StatusCaptcha:
		return "CAPTCHA challenge"
	case monitor.StatusBlocked:
		return "blocked by portal"
	case monitor.StatusError:
		return "check error"
	default:
		return string(s)
	}
}

func breakerReason(s monitor.Status) string {
	switch s {
	case monitor.StatusCaptcha:
		return "anti-bot challenge detected"
	case monitor.StatusBlocked:
		return "portal is rate-limiting us"
	case monitor.StatusError:
		return "repeated check errors"
	default:
		return "cooldown"
	}
}

func ago(t time.Time) string {
	d := time.Since(t)
	if d < time.Second {
		return "moments"
	}
	return d.Round(time.Second).String()
}
