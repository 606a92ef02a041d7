package monitor

import "time"

// Snapshot is the externally visible monitor state, consumed by the /status
// command. It is the only state shared across goroutines; reads and writes go
// through the service mutex so a concurrent query always sees a consistent
// tuple, never a partially updated one.
type Snapshot struct {
	LastStatus    Status
	LastDetail    string
	LastCheckedAt time.Time

	ConsecutiveFailures int
	Breaker             BreakerView

	Cycles uint64
	Paused bool
}

// Known reports whether at least one probe has completed.
func (s Snapshot) Known() bool { return s.LastStatus != "" }
