// Package logx is slotbot's structured logging layer on top of zerolog.
//
// It exposes a small Logger value type with slog-like Field helpers and a
// Service that owns the sinks (console, optional JSON file) and can re-apply
// level/output configuration at runtime without replacing handed-out loggers.
package logx
