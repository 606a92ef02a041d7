// Package subscribers persists the set of chats that receive slot alerts.
//
// Drivers:
//   - "file":   JSON set with atomic rewrite (the default)
//   - "sqlite": SQLite database file
//   - "memory": ephemeral, for tests and dry runs
package subscribers

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "slotbot/pkg/logx"
)

// Store is the subscriber set. The monitor only reads it; mutation happens
// on the command surface.
type Store interface {
	All(ctx context.Context) ([]int64, error)
	// Add returns false when the chat was already subscribed.
	Add(ctx context.Context, chatID int64) (bool, error)
	// Remove returns false when the chat was not subscribed.
	Remove(ctx context.Context, chatID int64) (bool, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, errors.New("unknown subscribers driver: " + cfg.Driver)
	}
}
