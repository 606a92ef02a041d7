package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"slotbot/internal/monitor"
	"slotbot/internal/subscribers"
	kit "slotbot/internal/transport"
	logx "slotbot/pkg/logx"
)

// fakeAdapter records outbound messages; inbound delivery is driven by the
// tests directly through the updates channel.
type fakeAdapter struct {
	mu   sync.Mutex
	sent []sentMessage
}

type sentMessage struct {
	chatID int64
	text   string
}

func (a *fakeAdapter) Start(ctx context.Context, out chan<- kit.Message) error { return nil }
func (a *fakeAdapter) Stop(ctx context.Context) error                          { return nil }
func (a *fakeAdapter) UpdateMenuCommands(ctx context.Context, cmds []kit.BotCommand) error {
	return nil
}

func (a *fakeAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, sentMessage{chatID: to.ChatID, text: text})
	return nil
}

func (a *fakeAdapter) last(t *testing.T) sentMessage {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.sent) == 0 {
		t.Fatal("no message sent")
	}
	return a.sent[len(a.sent)-1]
}

func (a *fakeAdapter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sent)
}

type fakeMonitor struct {
	snap   monitor.Snapshot
	paused bool
}

func (m *fakeMonitor) Snapshot() monitor.Snapshot { return m.snap }
func (m *fakeMonitor) SetPaused(v bool)           { m.paused = v }
func (m *fakeMonitor) Paused() bool               { return m.paused }

func newTestRouter(whitelist ...string) (*Router, *fakeAdapter, *subscribers.Memory, *fakeMonitor) {
	adapter := &fakeAdapter{}
	subs := subscribers.NewMemory()
	mon := &fakeMonitor{}
	r := NewRouter(Config{WhitelistUsernames: whitelist}, adapter, subs, mon, logx.Nop())
	return r, adapter, subs, mon
}

func msg(chatID int64, username, text string) kit.Message {
	return kit.Message{ChatID: chatID, FromID: chatID, FromUsername: username, Text: text}
}

func TestParseCommand(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"/status", "status"},
		{"/STATUS", "status"},
		{"  /subscribe  ", "subscribe"},
		{"/status@slot_bot", "status"},
		{"/status@slot_bot now please", "status"},
		{"hello there", ""},
		{"", ""},
		{"status", ""},
		{"/", ""},
	}
	for _, tc := range cases {
		if got := parseCommand(tc.in); got != tc.want {
			t.Errorf("parseCommand(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWhitelist(t *testing.T) {
	t.Parallel()

	r, adapter, subs, _ := newTestRouter("Alice", " @Bob ")
	ctx := context.Background()

	r.handle(ctx, msg(1, "alice", "/subscribe"))
	if n, _ := subs.Count(ctx); n != 1 {
		t.Fatalf("subscriber count after allowed /subscribe = %d, want 1", n)
	}

	// Whitelist matching ignores case and the @ prefix.
	r.handle(ctx, msg(2, "BOB", "/subscribe"))
	if n, _ := subs.Count(ctx); n != 2 {
		t.Fatalf("subscriber count after BOB = %d, want 2", n)
	}

	r.handle(ctx, msg(3, "mallory", "/subscribe"))
	if n, _ := subs.Count(ctx); n != 2 {
		t.Fatalf("subscriber count after rejected user = %d, want 2", n)
	}
	if got := adapter.last(t); !strings.Contains(got.text, "not allowed") {
		t.Fatalf("rejection reply = %q", got.text)
	}
}

func TestEmptyWhitelistAllowsEveryone(t *testing.T) {
	t.Parallel()

	r, _, subs, _ := newTestRouter()
	r.handle(context.Background(), msg(9, "anyone", "/subscribe"))
	if n, _ := subs.Count(context.Background()); n != 1 {
		t.Fatal("empty whitelist should allow any user")
	}
}

func TestSubscribeUnsubscribeFlow(t *testing.T) {
	t.Parallel()

	r, adapter, _, _ := newTestRouter()
	ctx := context.Background()

	r.handle(ctx, msg(5, "u", "/subscribe"))
	if got := adapter.last(t); !strings.Contains(got.text, "Subscribed") {
		t.Fatalf("subscribe reply = %q", got.text)
	}
	r.handle(ctx, msg(5, "u", "/subscribe"))
	if got := adapter.last(t); !strings.Contains(got.text, "already subscribed") {
		t.Fatalf("repeat subscribe reply = %q", got.text)
	}
	r.handle(ctx, msg(5, "u", "/unsubscribe"))
	if got := adapter.last(t); !strings.Contains(got.text, "Unsubscribed") {
		t.Fatalf("unsubscribe reply = %q", got.text)
	}
	r.handle(ctx, msg(5, "u", "/unsubscribe"))
	if got := adapter.last(t); !strings.Contains(got.text, "not subscribed") {
		t.Fatalf("repeat unsubscribe reply = %q", got.text)
	}
}

func TestPauseResumeFlow(t *testing.T) {
	t.Parallel()

	r, adapter, _, mon := newTestRouter()
	ctx := context.Background()

	r.handle(ctx, msg(1, "u", "/pause"))
	if !mon.paused {
		t.Fatal("monitor not paused after /pause")
	}
	r.handle(ctx, msg(1, "u", "/pause"))
	if got := adapter.last(t); !strings.Contains(got.text, "already paused") {
		t.Fatalf("repeat pause reply = %q", got.text)
	}
	r.handle(ctx, msg(1, "u", "/resume"))
	if mon.paused {
		t.Fatal("monitor still paused after /resume")
	}
	r.handle(ctx, msg(1, "u", "/resume"))
	if got := adapter.last(t); !strings.Contains(got.text, "not paused") {
		t.Fatalf("repeat resume reply = %q", got.text)
	}
}

func TestStatusCommand(t *testing.T) {
	t.Parallel()

	r, adapter, subs, mon := newTestRouter()
	ctx := context.Background()
	_, _ = subs.Add(ctx, 1)
	_, _ = subs.Add(ctx, 2)
	mon.snap = monitor.Snapshot{
		LastStatus:    monitor.StatusNoSlots,
		LastDetail:    "no appointments available",
		LastCheckedAt: time.Now().Add(-2 * time.Minute),
		Cycles:        17,
	}

	r.handle(ctx, msg(1, "u", "/status"))
	got := adapter.last(t).text
	for _, want := range []string{"no slots", "no appointments available", "Checks done: 17", "Subscribers: 2"} {
		if !strings.Contains(got, want) {
			t.Errorf("status reply missing %q:\n%s", want, got)
		}
	}
}

func TestPlainTextAndUnknownCommands(t *testing.T) {
	t.Parallel()

	r, adapter, _, _ := newTestRouter()
	ctx := context.Background()

	// Plain text is ignored entirely.
	r.handle(ctx, msg(1, "u", "what's up"))
	if adapter.count() != 0 {
		t.Fatal("plain text produced a reply")
	}

	r.handle(ctx, msg(1, "u", "/frobnicate"))
	if got := adapter.last(t); !strings.Contains(got.text, "Unknown command") {
		t.Fatalf("unknown command reply = %q", got.text)
	}
}

func TestRunDrainsUntilCancel(t *testing.T) {
	t.Parallel()

	r, adapter, _, _ := newTestRouter()
	updates := make(chan kit.Message, 4)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, updates) }()

	updates <- msg(1, "u", "/start")
	deadline := time.After(5 * time.Second)
	for adapter.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("message never handled")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestFormatStatus(t *testing.T) {
	t.Parallel()

	empty := formatStatus(monitor.Snapshot{}, 0)
	if !strings.Contains(empty, "no check completed yet") {
		t.Errorf("empty snapshot rendering:\n%s", empty)
	}

	now := time.Now()
	snap := monitor.Snapshot{
		LastStatus:          monitor.StatusError,
		LastDetail:          "http 502",
		LastCheckedAt:       now.Add(-30 * time.Second),
		ConsecutiveFailures: 3,
		Breaker: monitor.BreakerView{
			Open:      true,
			OpenUntil: now.Add(5 * time.Minute),
			Reason:    monitor.StatusError,
		},
		Cycles: 40,
		Paused: true,
	}
	got := formatStatus(snap, -1)
	for _, want := range []string{
		"check error", "http 502", "Backing off", "repeated check errors",
		"Consecutive failures: 3", "paused", "Checks done: 40",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("formatStatus missing %q:\n%s", want, got)
		}
	}
	// Negative subscriber count means unavailable and is omitted.
	if strings.Contains(got, "Subscribers") {
		t.Errorf("formatStatus should omit subscriber line when count < 0:\n%s", got)
	}
}
