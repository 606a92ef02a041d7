package checker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"slotbot/internal/monitor"
	logx "slotbot/pkg/logx"
)

func newTestChecker(t *testing.T, url string) *HTTP {
	t.Helper()
	c, err := NewHTTP(Config{
		URL:             url,
		Timeout:         5 * time.Second,
		NegativeMarkers: []string{"no appointments available", "not available"},
		CaptchaMarkers:  []string{"captcha", "are you human"},
		BlockMarkers:    []string{"too many requests"},
	}, logx.Nop())
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	return c
}

func TestNewHTTPValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewHTTP(Config{URL: ""}, logx.Nop()); err == nil {
		t.Fatal("NewHTTP with empty url = nil error")
	}
	if _, err := NewHTTP(Config{URL: "not a url"}, logx.Nop()); err == nil {
		t.Fatal("NewHTTP with invalid url = nil error")
	}
}

func TestProbeClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		body       string
		wantStatus monitor.Status
		wantDetail string
	}{
		{
			name:       "negative marker",
			body:       "<html>Sorry, no appointments available right now.</html>",
			wantStatus: monitor.StatusNoSlots,
			wantDetail: "no appointments available",
		},
		{
			name:       "marker match is case insensitive",
			body:       "<html>NOT AVAILABLE</html>",
			wantStatus: monitor.StatusNoSlots,
			wantDetail: "not available",
		},
		{
			name:       "captcha marker",
			body:       "<html>Please solve this CAPTCHA to continue</html>",
			wantStatus: monitor.StatusCaptcha,
			wantDetail: "captcha",
		},
		{
			name:       "block marker",
			body:       "<html>Too many requests, slow down</html>",
			wantStatus: monitor.StatusBlocked,
			wantDetail: "too many requests",
		},
		{
			name:       "captcha beats negative",
			body:       "<html>are you human? no appointments available</html>",
			wantStatus: monitor.StatusCaptcha,
			wantDetail: "are you human",
		},
		{
			name:       "block beats negative",
			body:       "<html>too many requests. not available</html>",
			wantStatus: monitor.StatusBlocked,
			wantDetail: "too many requests",
		},
		{
			name:       "no markers means maybe",
			body:       "<html>Select a date for your appointment</html>",
			wantStatus: monitor.StatusMaybeSlots,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			out, err := newTestChecker(t, srv.URL).Probe(context.Background())
			if err != nil {
				t.Fatalf("Probe: %v", err)
			}
			if out.Status != tc.wantStatus {
				t.Fatalf("status = %s, want %s", out.Status, tc.wantStatus)
			}
			if out.Detail != tc.wantDetail {
				t.Fatalf("detail = %q, want %q", out.Detail, tc.wantDetail)
			}
		})
	}
}

func TestProbeStatusCodes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		code       int
		wantStatus monitor.Status
	}{
		{"too many requests", http.StatusTooManyRequests, monitor.StatusBlocked},
		{"forbidden", http.StatusForbidden, monitor.StatusBlocked},
		{"server error", http.StatusInternalServerError, monitor.StatusError},
		{"bad gateway", http.StatusBadGateway, monitor.StatusError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.code)
			}))
			defer srv.Close()

			out, err := newTestChecker(t, srv.URL).Probe(context.Background())
			if err != nil {
				t.Fatalf("Probe: %v", err)
			}
			if out.Status != tc.wantStatus {
				t.Fatalf("status for %d = %s, want %s", tc.code, out.Status, tc.wantStatus)
			}
		})
	}
}

func TestProbeTransportErrorIsReturned(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // probe hits a dead server

	if _, err := newTestChecker(t, srv.URL).Probe(context.Background()); err == nil {
		t.Fatal("Probe against closed server = nil error")
	}
}

func TestProbeRespectsContextCancel(t *testing.T) {
	t.Parallel()

	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer srv.Close()
	defer close(blocked)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := newTestChecker(t, srv.URL).Probe(ctx); err == nil {
		t.Fatal("Probe with expired context = nil error")
	}
}

func TestEnsureReadyEstablishesSession(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc"})
		} else if c, err := r.Cookie("session"); err != nil || c.Value != "abc" {
			t.Error("session cookie not replayed on subsequent probe")
		}
		_, _ = w.Write([]byte("no appointments available"))
	}))
	defer srv.Close()

	c := newTestChecker(t, srv.URL)
	if err := c.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if _, err := c.Probe(context.Background()); err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("requests = %d, want 2", hits.Load())
	}
}

func TestProbeSendsUserAgent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("User-Agent header missing")
		}
		_, _ = w.Write([]byte("not available"))
	}))
	defer srv.Close()

	if _, err := newTestChecker(t, srv.URL).Probe(context.Background()); err != nil {
		t.Fatalf("Probe: %v", err)
	}
}
