// Package notify delivers alerts to individual chats.
package notify

import (
	"context"

	"golang.org/x/time/rate"

	kit "slotbot/internal/transport"
	logx "slotbot/pkg/logx"
)

// Telegram sends alerts through the transport adapter, paced by a token
// bucket so a large fan-out doesn't trip Telegram's flood limits.
type Telegram struct {
	adapter kit.Adapter
	limiter *rate.Limiter
	log     logx.Logger
}

// NewTelegram creates the notifier. ratePerSec <= 0 defaults to 20, just
// under Telegram's documented 30 msg/s bot ceiling.
func NewTelegram(adapter kit.Adapter, ratePerSec int, log logx.Logger) *Telegram {
	if ratePerSec <= 0 {
		ratePerSec = 20
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Telegram{
		adapter: adapter,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
		log:     log,
	}
}

// Send delivers one message to one chat, waiting for limiter headroom first.
func (t *Telegram) Send(ctx context.Context, chatID int64, text string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.adapter.SendText(ctx, kit.ChatTarget{ChatID: chatID}, text, &kit.SendOptions{DisablePreview: true})
}
