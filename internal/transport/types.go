// Package transport defines the platform-neutral messaging surface the bot
// core talks to. The Telegram implementation lives in transport/telegram.
package transport

import "context"

// Message is one inbound chat message.
type Message struct {
	ID           int
	ChatID       int64
	FromID       int64
	FromUsername string
	Text         string
	IsGroup      bool
}

// ChatTarget addresses an outbound message.
type ChatTarget struct {
	ChatID int64
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// BotCommand is a single bot command menu entry.
type BotCommand struct {
	Command     string
	Description string
}

// Adapter is the messaging platform port.
type Adapter interface {
	// Start begins delivering inbound messages to out until ctx is done.
	Start(ctx context.Context, out chan<- Message) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) error

	// UpdateMenuCommands publishes the platform command menu (best effort).
	UpdateMenuCommands(ctx context.Context, cmds []BotCommand) error
}
