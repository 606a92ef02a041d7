package config

import "encoding/json"

// Changes reports which top-level sections differ between two configs.
// Logging and Monitor changes are applied hot; Structural changes (telegram,
// checker, subscribers, report) need a restart and are only logged.
type Changes struct {
	Logging    bool
	Monitor    bool
	Structural bool
}

func (c Changes) Any() bool { return c.Logging || c.Monitor || c.Structural }

// Diff compares two configs section by section.
func Diff(prev, next *Config) Changes {
	if prev == nil || next == nil {
		return Changes{Logging: true, Monitor: true, Structural: true}
	}
	return Changes{
		Logging: !sameJSON(prev.Logging, next.Logging),
		Monitor: !sameJSON(prev.Monitor, next.Monitor),
		Structural: !sameJSON(prev.Telegram, next.Telegram) ||
			!sameJSON(prev.Checker, next.Checker) ||
			!sameJSON(prev.Subscribers, next.Subscribers) ||
			!sameJSON(prev.Report, next.Report),
	}
}

func sameJSON(a, b any) bool {
	ab, err1 := json.Marshal(a)
	bb, err2 := json.Marshal(b)
	if err1 != nil || err2 != nil {
		return false
	}
	return string(ab) == string(bb)
}
