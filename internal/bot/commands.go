package bot

import (
	"context"

	kit "slotbot/internal/transport"
	logx "slotbot/pkg/logx"
)

const startText = `👋 I watch the appointment portal and ping you when slots may have opened.

/subscribe — get notified on new slots
/unsubscribe — stop notifications
/status — last check result and backoff state
/pause, /resume — control checking`

func (r *Router) cmdStart(ctx context.Context, msg kit.Message) {
	r.reply(ctx, msg.ChatID, startText)
}

func (r *Router) cmdSubscribe(ctx context.Context, msg kit.Message) {
	added, err := r.subs.Add(ctx, msg.ChatID)
	if err != nil {
		r.log.Error("subscribe failed", logx.Int64("chat_id", msg.ChatID), logx.Err(err))
		r.reply(ctx, msg.ChatID, "Something went wrong, try again later.")
		return
	}
	if !added {
		r.reply(ctx, msg.ChatID, "You are already subscribed.")
		return
	}
	r.log.Info("subscriber added", logx.Int64("chat_id", msg.ChatID))
	r.reply(ctx, msg.ChatID, "✅ Subscribed. I'll ping you when slots may appear.")
}

func (r *Router) cmdUnsubscribe(ctx context.Context, msg kit.Message) {
	removed, err := r.subs.Remove(ctx, msg.ChatID)
	if err != nil {
		r.log.Error("unsubscribe failed", logx.Int64("chat_id", msg.ChatID), logx.Err(err))
		r.reply(ctx, msg.ChatID, "Something went wrong, try again later.")
		return
	}
	if !removed {
		r.reply(ctx, msg.ChatID, "You were not subscribed.")
		return
	}
	r.log.Info("subscriber removed", logx.Int64("chat_id", msg.ChatID))
	r.reply(ctx, msg.ChatID, "👋 Unsubscribed.")
}

func (r *Router) cmdStatus(ctx context.Context, msg kit.Message) {
	snap := r.mon.Snapshot()
	count, err := r.subs.Count(ctx)
	if err != nil {
		r.log.Warn("subscriber count unavailable", logx.Err(err))
		count = -1
	}
	r.reply(ctx, msg.ChatID, formatStatus(snap, count))
}

func (r *Router) cmdPause(ctx context.Context, msg kit.Message) {
	if r.mon.Paused() {
		r.reply(ctx, msg.ChatID, "Checking is already paused.")
		return
	}
	r.mon.SetPaused(true)
	r.log.Info("monitor paused", logx.Int64("by_chat", msg.ChatID))
	r.reply(ctx, msg.ChatID, "⏸ Checking paused. /resume to continue.")
}

func (r *Router) cmdResume(ctx context.Context, msg kit.Message) {
	if !r.mon.Paused() {
		r.reply(ctx, msg.ChatID, "Checking is not paused.")
		return
	}
	r.mon.SetPaused(false)
	r.log.Info("monitor resumed", logx.Int64("by_chat", msg.ChatID))
	r.reply(ctx, msg.ChatID, "▶️ Checking resumed.")
}
