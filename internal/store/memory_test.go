package store

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreGameLifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.CreateGame(ctx, 1, 2)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	winner := int64(1)
	err = s.FinalizeGame(ctx, id, GameResult{
		Status:       4,
		WinnerID:     &winner,
		Player1Score: 5,
		Player2Score: 2,
		EndedAt:      time.Now(),
	})
	if err != nil {
		t.Fatalf("finalize game: %v", err)
	}
	game, ok := s.Game(id)
	if !ok {
		t.Fatal("game row missing")
	}
	if game.WinnerID == nil || *game.WinnerID != 1 || game.Player1Score != 5 {
		t.Fatalf("finalized row wrong: %+v", game)
	}

	if err := s.FinalizeGame(ctx, 999, GameResult{}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreAchievementUnlockIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	unlock := &UserAchievement{UserID: 7, GameID: 3, AchievementID: "first-win", Name: "First Win"}

	created, err := s.UnlockAchievement(ctx, unlock)
	if err != nil || !created {
		t.Fatalf("first unlock should insert: created=%v err=%v", created, err)
	}
	created, err = s.UnlockAchievement(ctx, unlock)
	if err != nil || created {
		t.Fatalf("second unlock must be a no-op: created=%v err=%v", created, err)
	}
	if got := len(s.Achievements(7)); got != 1 {
		t.Fatalf("expected exactly one unlock row, got %d", got)
	}
}

func TestMemoryStoreRankOrdering(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	rows := []*UserStats{
		{UserID: 1, GamesWon: 3, TotalPointsScored: 10},
		{UserID: 2, GamesWon: 5, TotalPointsScored: 8},
		{UserID: 3, GamesWon: 3, TotalPointsScored: 10},
		{UserID: 4, GamesWon: 3, TotalPointsScored: 12},
	}
	for _, row := range rows {
		if err := s.UpsertUserStats(ctx, row); err != nil {
			t.Fatalf("upsert %d: %v", row.UserID, err)
		}
	}

	if err := s.RecalculateRanks(ctx); err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	ranked, err := s.Rankings(ctx)
	if err != nil {
		t.Fatalf("rankings: %v", err)
	}
	// Wins desc, then points desc, then user id; equal pairs share a rank.
	wantOrder := []int64{2, 4, 1, 3}
	wantRank := []int{1, 2, 3, 3}
	for i, row := range ranked {
		if row.UserID != wantOrder[i] || row.Rank != wantRank[i] {
			t.Fatalf("position %d: got user %d rank %d, want user %d rank %d",
				i, row.UserID, row.Rank, wantOrder[i], wantRank[i])
		}
	}
}

func TestMemoryStoreUpsertPreservesRank(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.UpsertUserStats(ctx, &UserStats{UserID: 1, GamesWon: 1}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.RecalculateRanks(ctx); err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if err := s.UpsertUserStats(ctx, &UserStats{UserID: 1, GamesWon: 2}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	stats, err := s.GetUserStats(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stats.Rank != 1 || stats.GamesWon != 2 {
		t.Fatalf("rank must survive upsert: %+v", stats)
	}
}
