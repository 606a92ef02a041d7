// Package report broadcasts a scheduled status digest so subscribers can
// see the watcher is alive even when no slots ever show up.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"slotbot/internal/monitor"
	logx "slotbot/pkg/logx"
)

// StatusSource yields the current monitor snapshot.
type StatusSource interface {
	Snapshot() monitor.Snapshot
}

// Subscribers yields the chat IDs to send the digest to.
type Subscribers interface {
	All(ctx context.Context) ([]int64, error)
}

// Notifier delivers one message to one chat.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Service runs the digest on a cron schedule.
type Service struct {
	spec     string
	mon      StatusSource
	subs     Subscribers
	notifier Notifier
	log      logx.Logger

	cron *cron.Cron
	id   cron.EntryID
}

func New(spec string, mon StatusSource, subs Subscribers, notifier Notifier, log logx.Logger) (*Service, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		spec:     spec,
		mon:      mon,
		subs:     subs,
		notifier: notifier,
		log:      log,
		cron:     cron.New(),
	}
	id, err := s.cron.AddFunc(spec, s.send)
	if err != nil {
		return nil, fmt.Errorf("report: invalid schedule %q: %w", spec, err)
	}
	s.id = id
	return s, nil
}

func (s *Service) Start() {
	s.cron.Start()
	s.log.Info("status digest scheduled", logx.String("spec", s.spec))
}

// Stop halts the schedule and waits for a running digest to finish.
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Service) send() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	ids, err := s.subs.All(ctx)
	if err != nil {
		s.log.Error("digest skipped: subscriber list unavailable", logx.Err(err))
		return
	}
	if len(ids) == 0 {
		s.log.Debug("digest skipped: no subscribers")
		return
	}

	text := formatDigest(s.mon.Snapshot())
	sent, failed := 0, 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if err := s.notifier.Send(ctx, id, text); err != nil {
			failed++
			s.log.Warn("digest send failed", logx.Int64("chat_id", id), logx.Err(err))
			continue
		}
		sent++
	}
	s.log.Info("status digest sent", logx.Int("sent", sent), logx.Int("failed", failed))
}

func formatDigest(snap monitor.Snapshot) string {
	var b strings.Builder
	b.WriteString("🗞 Daily check-in\n")
	if !snap.Known() {
		b.WriteString("No checks completed yet.")
		return b.String()
	}
	fmt.Fprintf(&b, "Checks done: %d\n", snap.Cycles)
	fmt.Fprintf(&b, "Last result: %s", snap.LastStatus)
	if snap.LastDetail != "" {
		fmt.Fprintf(&b, " (%s)", snap.LastDetail)
	}
	fmt.Fprintf(&b, "\nLast checked: %s ago", time.Since(snap.LastCheckedAt).Round(time.Minute))
	if snap.Breaker.Open {
		fmt.Fprintf(&b, "\n⚠️ Currently backing off until %s", snap.Breaker.OpenUntil.Format("15:04"))
	}
	if snap.Paused {
		b.WriteString("\n⏸ Checking is paused")
	}
	return b.String()
}
