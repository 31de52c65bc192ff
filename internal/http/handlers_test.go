package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pongarena/server/internal/logging"
	"pongarena/server/internal/replay"
)

type fixedLimiter struct{ allow bool }

func (l fixedLimiter) Allow() bool { return l.allow }

func TestHealthzReportsUptime(t *testing.T) {
	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }
	handlers := NewHandlerSet(Options{Logger: logging.NewTestLogger(), TimeSource: clock})
	now = now.Add(90 * time.Second)

	rec := httptest.NewRecorder()
	handlers.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body struct {
		Status        string `json:"status"`
		UptimeSeconds int64  `json:"uptime_seconds"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.UptimeSeconds != 90 {
		t.Fatalf("body %+v", body)
	}
}

func TestStatusIncludesServiceAndReplayStats(t *testing.T) {
	handlers := NewHandlerSet(Options{
		Logger: logging.NewTestLogger(),
		Stats: func() Stats {
			return Stats{Connections: 4, LiveMatches: 1, ClassicQueue: 2}
		},
		ReplayStats: func() replay.StorageStats {
			return replay.StorageStats{Matches: 3, Bytes: 1024}
		},
	})

	rec := httptest.NewRecorder()
	handlers.Status(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body struct {
		Service Stats `json:"service"`
		Replay  struct {
			Matches int   `json:"matches"`
			Bytes   int64 `json:"bytes"`
		} `json:"replay"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Service.Connections != 4 || body.Service.LiveMatches != 1 || body.Service.ClassicQueue != 2 {
		t.Fatalf("service stats %+v", body.Service)
	}
	if body.Replay.Matches != 3 || body.Replay.Bytes != 1024 {
		t.Fatalf("replay stats %+v", body.Replay)
	}
}

func TestStatusHonoursRateLimiter(t *testing.T) {
	handlers := NewHandlerSet(Options{
		Logger:      logging.NewTestLogger(),
		RateLimiter: fixedLimiter{allow: false},
	})
	rec := httptest.NewRecorder()
	handlers.Status(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status %d, want 429", rec.Code)
	}
}

func TestHandlersRejectNonGet(t *testing.T) {
	handlers := NewHandlerSet(Options{Logger: logging.NewTestLogger()})
	rec := httptest.NewRecorder()
	handlers.Healthz(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("healthz POST status %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	handlers.Status(rec, httptest.NewRequest(http.MethodDelete, "/status", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status DELETE status %d", rec.Code)
	}
}
