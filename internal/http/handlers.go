// Package httpapi bundles the operational HTTP handlers served next to the
// websocket endpoint: liveness and a service status snapshot.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"pongarena/server/internal/logging"
	"pongarena/server/internal/replay"
)

// Stats is the live service snapshot reported by the status endpoint.
type Stats struct {
	Connections  int `json:"connections"`
	LiveMatches  int `json:"live_matches"`
	ClassicQueue int `json:"classic_queue"`
	PowerUpQueue int `json:"powerup_queue"`
}

// StatsFunc supplies the current service snapshot.
type StatsFunc func() Stats

// RateLimiter gates how frequently the status endpoint may be scraped.
type RateLimiter interface {
	Allow() bool
}

// Options configures the HandlerSet.
type Options struct {
	Logger      *logging.Logger
	Stats       StatsFunc
	ReplayStats func() replay.StorageStats
	RateLimiter RateLimiter
	TimeSource  func() time.Time
}

// HandlerSet bundles the operational handlers.
type HandlerSet struct {
	logger      *logging.Logger
	stats       StatsFunc
	replayStats func() replay.StorageStats
	limiter     RateLimiter
	now         func() time.Time
	started     time.Time
}

// NewHandlerSet constructs handlers from the supplied options.
func NewHandlerSet(opts Options) *HandlerSet {
	logger := opts.Logger
	if logger == nil {
		logger = logging.L()
	}
	now := opts.TimeSource
	if now == nil {
		now = time.Now
	}
	return &HandlerSet{
		logger:      logger,
		stats:       opts.Stats,
		replayStats: opts.ReplayStats,
		limiter:     opts.RateLimiter,
		now:         now,
		started:     now(),
	}
}

// Register mounts the handlers on the supplied mux.
func (h *HandlerSet) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/healthz", h.Healthz)
	mux.HandleFunc("/status", h.Status)
}

// Healthz reports process liveness and uptime.
func (h *HandlerSet) Healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(h.now().Sub(h.started) / time.Second),
	})
}

// Status reports the live service snapshot, including replay storage usage
// when recording is enabled.
func (h *HandlerSet) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.limiter != nil && !h.limiter.Allow() {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}
	body := map[string]any{}
	if h.stats != nil {
		body["service"] = h.stats()
	}
	if h.replayStats != nil {
		stats := h.replayStats()
		body["replay"] = map[string]any{
			"matches":    stats.Matches,
			"bytes":      stats.Bytes,
			"last_sweep": stats.LastSweep.UTC().Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
