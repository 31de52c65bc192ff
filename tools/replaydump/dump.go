// Package replaydump inspects match replay bundles from the command line:
// cataloguing a storage root and dumping a single bundle's timeline.
package replaydump

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pongarena/server/internal/replay"
)

// Summary describes one bundle directory without loading its payloads twice.
type Summary struct {
	Name      string    `json:"name"`
	GameID    int64     `json:"game_id"`
	PlayerIDs [2]int64  `json:"player_ids"`
	PowerUps  bool      `json:"power_ups"`
	Events    int       `json:"events"`
	Frames    int       `json:"frames"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

// Catalog loads every bundle directly under root and summarises it. Entries
// that are not bundles (loose files, foreign directories) are skipped.
func Catalog(root string) ([]Summary, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("root directory must be provided")
	}
	dirEntries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var summaries []Summary
	for _, entry := range dirEntries {
		if !entry.IsDir() {
			continue
		}
		loader, err := replay.Load(filepath.Join(root, entry.Name()))
		if err != nil {
			continue
		}
		summaries = append(summaries, summarise(entry.Name(), loader))
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries, nil
}

// Dump writes the bundle timeline to out, one JSON object per line.
func Dump(dir string, out io.Writer) error {
	loader, err := replay.Load(dir)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(out)
	return loader.Replay(func(entry replay.TimelineEntry) error {
		return encoder.Encode(map[string]any{
			"seq":         entry.Seq,
			"captured_at": entry.CapturedAt,
			"type":        entry.Type,
			"payload":     entry.Payload,
		})
	})
}

func summarise(name string, loader *replay.Loader) Summary {
	header := loader.Header()
	summary := Summary{
		Name:      name,
		GameID:    header.GameID,
		PlayerIDs: header.PlayerIDs,
		PowerUps:  header.PowerUps,
	}
	for _, entry := range loader.Entries() {
		if entry.Type == "frame" {
			summary.Frames++
		} else {
			summary.Events++
		}
		if summary.Start.IsZero() || entry.CapturedAt.Before(summary.Start) {
			summary.Start = entry.CapturedAt
		}
		if entry.CapturedAt.After(summary.End) {
			summary.End = entry.CapturedAt
		}
	}
	return summary
}
