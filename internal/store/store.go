package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound signals the requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// GameResult carries the terminal outcome written back to the games table.
type GameResult struct {
	Status       int
	WinnerID     *int64 // nil for an aborted game
	Player1Score int
	Player2Score int
	EndedAt      time.Time
}

// Store is the persistence boundary of the match service. Implementations
// must be safe for concurrent use; completions of different matches persist
// in parallel.
type Store interface {
	// CreateGame inserts a fresh Waiting game row and returns its id.
	CreateGame(ctx context.Context, player1ID, player2ID int64) (int64, error)
	// FinalizeGame writes the terminal outcome of the game.
	FinalizeGame(ctx context.Context, gameID int64, result GameResult) error
	// SaveGameStats persists the per-match detail row of a finished game.
	SaveGameStats(ctx context.Context, stats *GameStats) error
	// GetUserStats reads a user's aggregate row, ErrNotFound when absent.
	GetUserStats(ctx context.Context, userID int64) (*UserStats, error)
	// UpsertUserStats writes a user's aggregate row, creating it if needed.
	// The stored rank is preserved; ranks only move via RecalculateRanks.
	UpsertUserStats(ctx context.Context, stats *UserStats) error
	// UnlockAchievement inserts the unlock record unless the user already
	// holds the achievement. Reports whether a new row was written.
	UnlockAchievement(ctx context.Context, unlock *UserAchievement) (bool, error)
	// RecalculateRanks re-ranks the whole user_stats table by wins,
	// then total points, then user id.
	RecalculateRanks(ctx context.Context) error
	// Rankings lists all aggregate rows in rank order.
	Rankings(ctx context.Context) ([]UserStats, error)
}
