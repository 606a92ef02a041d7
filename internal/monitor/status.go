package monitor

// Status is the classified result of one probe of the portal.
type Status string

const (
	// StatusNoSlots means the portal responded and no appointments are offered.
	StatusNoSlots Status = "NO_SLOTS"
	// StatusMaybeSlots means the negative markers are absent; slots may exist.
	// This is the only status that triggers subscriber notification, and only
	// when entered from a different status.
	StatusMaybeSlots Status = "MAYBE_SLOTS"
	// StatusCaptcha means the portal is showing an anti-bot challenge.
	StatusCaptcha Status = "CAPTCHA"
	// StatusBlocked means the portal is rate-limiting or refusing us.
	StatusBlocked Status = "BLOCKED"
	// StatusError means the probe itself failed (transport, timeout, ...).
	StatusError Status = "ERROR"
)

// Success reports whether the probe produced a usable classification.
func (s Status) Success() bool {
	return s == StatusNoSlots || s == StatusMaybeSlots
}

// Blocking reports whether the portal is actively pushing back.
// Blocking statuses open the circuit breaker immediately.
func (s Status) Blocking() bool {
	return s == StatusCaptcha || s == StatusBlocked
}

// Outcome is the result of a single probe attempt: a status plus an optional
// diagnostic detail (matched marker, error text).
type Outcome struct {
	Status Status
	Detail string
}
