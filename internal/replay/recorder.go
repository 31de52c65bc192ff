// Package replay persists match frames and lifecycle events to compressed
// bundle directories and prunes old bundles by retention policy.
package replay

import (
	"encoding/json"
	"sync"
	"time"

	"pongarena/server/internal/game"
	"pongarena/server/internal/logging"
	"pongarena/server/internal/match"
)

// DefaultFrameInterval throttles the 30 Hz tick stream down to the archive
// cadence. Events are never throttled.
const DefaultFrameInterval = 200 * time.Millisecond

// Recorder adapts a bundle writer to the match recording seam. Frames arrive
// every tick and are sampled down to the archive cadence.
type Recorder struct {
	mu        sync.Mutex
	writer    *Writer
	logger    *logging.Logger
	interval  time.Duration
	seq       uint64
	lastFrame time.Time
	dropped   bool
}

// NewRecorder wraps a writer with frame sampling.
func NewRecorder(writer *Writer, logger *logging.Logger) *Recorder {
	if logger == nil {
		logger = logging.L()
	}
	return &Recorder{writer: writer, logger: logger, interval: DefaultFrameInterval}
}

// RecordFrame samples the tick snapshot into the frame log.
func (r *Recorder) RecordFrame(now time.Time, state game.State) {
	if r == nil || r.writer == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dropped {
		return
	}
	if !r.lastFrame.IsZero() && now.Sub(r.lastFrame) < r.interval {
		return
	}
	payload, err := json.Marshal(state)
	if err != nil {
		r.fail(err)
		return
	}
	r.seq++
	if err := r.writer.AppendFrame(r.seq, now, payload); err != nil {
		r.fail(err)
		return
	}
	r.lastFrame = now
}

// RecordEvent appends one lifecycle event to the event log.
func (r *Recorder) RecordEvent(now time.Time, event string, payload any) {
	if r == nil || r.writer == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dropped {
		return
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		r.fail(err)
		return
	}
	r.seq++
	if err := r.writer.AppendEvent(r.seq, now, event, encoded); err != nil {
		r.fail(err)
	}
}

// Close finishes the bundle.
func (r *Recorder) Close() error {
	if r == nil || r.writer == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writer.Close()
}

// fail stops recording after the first write error; a broken archive must
// never interfere with the live match.
func (r *Recorder) fail(err error) {
	r.dropped = true
	r.logger.Warn("replay recording stopped",
		logging.String("directory", r.writer.Directory()),
		logging.Error(err),
	)
}

// Factory builds per-match recorders rooted at dir. The returned function
// suits the matchmaking recorder seam; it reports nil when a bundle cannot be
// opened so matches still run without an archive.
func Factory(root string, logger *logging.Logger) func(gameID int64, players [2]int64, powerups bool) match.Recorder {
	if logger == nil {
		logger = logging.L()
	}
	return func(gameID int64, players [2]int64, powerups bool) match.Recorder {
		header := Header{
			SchemaVersion: HeaderSchemaVersion,
			GameID:        gameID,
			PlayerIDs:     players,
			PowerUps:      powerups,
		}
		header.FilePointer = manifestName
		writer, _, err := NewWriter(root, header, nil)
		if err != nil {
			logger.Warn("replay bundle skipped",
				logging.Int64("game_id", gameID),
				logging.Error(err),
			)
			return nil
		}
		return NewRecorder(writer, logger)
	}
}
