package results

import (
	"context"
	"sync"
	"testing"
	"time"

	"pongarena/server/internal/game"
	"pongarena/server/internal/store"
)

type mirrorRecorder struct {
	mu        sync.Mutex
	published [][]store.UserStats
}

func (m *mirrorRecorder) Publish(_ context.Context, rankings []store.UserStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, rankings)
	return nil
}

type eventRecorder struct {
	mu       sync.Mutex
	finished []int64
	aborted  []int64
}

func (e *eventRecorder) MatchFinished(_ context.Context, gameID, _ int64, _ [2]int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finished = append(e.finished, gameID)
	return nil
}

func (e *eventRecorder) MatchAborted(_ context.Context, gameID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.aborted = append(e.aborted, gameID)
	return nil
}

func finishedOutcome(gameID int64) Outcome {
	winnerStats := &game.PlayerStats{
		GamesPlayed:         1,
		GamesWon:            1,
		WinStreak:           1,
		TotalPointsScored:   5,
		PaddleHits:          12,
		TotalPaddleHits:     12,
		LargestScoreStreak:  3,
		GameDurationSeconds: 90,
		WonCurrentGame:      true,
	}
	loserStats := &game.PlayerStats{
		GamesPlayed:         1,
		GamesLost:           1,
		TotalPointsScored:   2,
		PaddleHits:          8,
		TotalPaddleHits:     8,
		PaddleMisses:        5,
		GameDurationSeconds: 90,
	}
	return Outcome{
		GameID:     gameID,
		StatusCode: 4,
		WinnerSlot: 0,
		Players: [2]OutcomePlayer{
			{UserID: 100, Score: 5, Stats: winnerStats},
			{UserID: 200, Score: 2, Stats: loserStats},
		},
		EndedAt: time.Now(),
	}
}

func TestCompleteFinishedRunsFullPipeline(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	gameID, err := st.CreateGame(ctx, 100, 200)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	mirror := &mirrorRecorder{}
	events := &eventRecorder{}
	e := NewEvaluator(st, WithLeaderboard(mirror), WithEvents(events))

	if err := e.Complete(ctx, finishedOutcome(gameID)); err != nil {
		t.Fatalf("complete: %v", err)
	}

	row, ok := st.Game(gameID)
	if !ok {
		t.Fatal("game row missing")
	}
	if row.Status != 4 || row.WinnerID == nil || *row.WinnerID != 100 {
		t.Fatalf("game not finalized: %+v", row)
	}
	if _, ok := st.GameStatsFor(gameID); !ok {
		t.Fatal("game stats row missing")
	}
	winner, err := st.GetUserStats(ctx, 100)
	if err != nil {
		t.Fatalf("winner stats: %v", err)
	}
	if winner.GamesWon != 1 || winner.Rank != 1 {
		t.Fatalf("winner aggregates wrong: %+v", winner)
	}
	loser, err := st.GetUserStats(ctx, 200)
	if err != nil {
		t.Fatalf("loser stats: %v", err)
	}
	if loser.GamesLost != 1 || loser.Rank != 2 {
		t.Fatalf("loser aggregates wrong: %+v", loser)
	}
	if len(mirror.published) != 1 || len(mirror.published[0]) != 2 {
		t.Fatalf("leaderboard mirror not fed: %+v", mirror.published)
	}
	if len(events.finished) != 1 || events.finished[0] != gameID {
		t.Fatalf("finished event missing: %+v", events.finished)
	}
}

func TestCompleteAbortedOnlyFinalizesGame(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	gameID, err := st.CreateGame(ctx, 100, 200)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	events := &eventRecorder{}
	e := NewEvaluator(st, WithEvents(events))

	outcome := Outcome{
		GameID:     gameID,
		StatusCode: 5,
		Aborted:    true,
		WinnerSlot: -1,
		Players: [2]OutcomePlayer{
			{UserID: 100, Stats: &game.PlayerStats{}},
			{UserID: 200, Stats: &game.PlayerStats{}},
		},
		EndedAt: time.Now(),
	}
	if err := e.Complete(ctx, outcome); err != nil {
		t.Fatalf("complete: %v", err)
	}

	row, _ := st.Game(gameID)
	if row.Status != 5 || row.WinnerID != nil {
		t.Fatalf("aborted game not finalized: %+v", row)
	}
	if _, ok := st.GameStatsFor(gameID); ok {
		t.Fatal("aborted game must not write game stats")
	}
	if _, err := st.GetUserStats(ctx, 100); err != store.ErrNotFound {
		t.Fatalf("aborted game must not touch user stats: %v", err)
	}
	if len(events.aborted) != 1 {
		t.Fatalf("aborted event missing: %+v", events.aborted)
	}
}

func TestFirstWinUnlocksExactlyOnce(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	gameID, err := st.CreateGame(ctx, 100, 200)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	e := NewEvaluator(st)

	outcome := finishedOutcome(gameID)
	if err := e.Complete(ctx, outcome); err != nil {
		t.Fatalf("first complete: %v", err)
	}
	if err := e.Complete(ctx, outcome); err != nil {
		t.Fatalf("second complete: %v", err)
	}

	count := 0
	for _, a := range st.Achievements(100) {
		if a.AchievementID == "first-win" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("first-win must unlock exactly once, got %d rows", count)
	}
}
