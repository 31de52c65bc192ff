package results

import (
	"context"
	"fmt"
	"time"

	"pongarena/server/internal/game"
	"pongarena/server/internal/logging"
	"pongarena/server/internal/store"
)

// LeaderboardMirror receives the full rank ordering after each recompute.
type LeaderboardMirror interface {
	Publish(ctx context.Context, rankings []store.UserStats) error
}

// EventPublisher receives match lifecycle events for external collaborators.
type EventPublisher interface {
	MatchFinished(ctx context.Context, gameID, winnerID int64, score [2]int) error
	MatchAborted(ctx context.Context, gameID int64) error
}

// OutcomePlayer is one player's share of a terminal match.
type OutcomePlayer struct {
	UserID int64
	Score  int
	Stats  *game.PlayerStats
}

// Outcome is everything the evaluator needs from a terminal match.
type Outcome struct {
	GameID     int64
	StatusCode int
	Aborted    bool
	WinnerSlot int // -1 when aborted
	Players    [2]OutcomePlayer
	EndedAt    time.Time
}

// Evaluator runs the post-match pipeline: finalize the game row, merge
// aggregates, unlock achievements, re-rank, and fan out to the read models.
// An aborted match only finalizes the raw game record.
type Evaluator struct {
	store  store.Store
	board  LeaderboardMirror
	events EventPublisher
	logger *logging.Logger
}

// Option configures optional evaluator collaborators.
type Option func(*Evaluator)

// WithLeaderboard wires the rank mirror; nil disables mirroring.
func WithLeaderboard(board LeaderboardMirror) Option {
	return func(e *Evaluator) {
		e.board = board
	}
}

// WithEvents wires the lifecycle event publisher; nil disables publishing.
func WithEvents(events EventPublisher) Option {
	return func(e *Evaluator) {
		e.events = events
	}
}

// WithLogger overrides the package logger.
func WithLogger(logger *logging.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func NewEvaluator(st store.Store, opts ...Option) *Evaluator {
	e := &Evaluator{
		store:  st,
		logger: logging.L(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Complete persists the terminal outcome. Persistence errors are returned so
// the caller can log them, but read-model fan-out is best effort.
func (e *Evaluator) Complete(ctx context.Context, outcome Outcome) error {
	result := store.GameResult{
		Status:       outcome.StatusCode,
		Player1Score: outcome.Players[0].Score,
		Player2Score: outcome.Players[1].Score,
		EndedAt:      outcome.EndedAt,
	}
	if outcome.WinnerSlot >= 0 {
		winnerID := outcome.Players[outcome.WinnerSlot].UserID
		result.WinnerID = &winnerID
	}
	if err := e.store.FinalizeGame(ctx, outcome.GameID, result); err != nil {
		return fmt.Errorf("finalize game %d: %w", outcome.GameID, err)
	}
	if outcome.Aborted {
		e.publishAborted(ctx, outcome)
		return nil
	}

	if err := e.store.SaveGameStats(ctx, buildGameStats(outcome)); err != nil {
		return err
	}
	for slot := 0; slot < 2; slot++ {
		p := outcome.Players[slot]
		if err := e.store.UpsertUserStats(ctx, mergeAggregates(p)); err != nil {
			return err
		}
	}
	for slot := 0; slot < 2; slot++ {
		if err := e.unlockAchievements(ctx, outcome, slot); err != nil {
			return err
		}
	}
	if err := e.store.RecalculateRanks(ctx); err != nil {
		return err
	}
	e.mirrorRankings(ctx)
	e.publishFinished(ctx, outcome)
	return nil
}

func (e *Evaluator) unlockAchievements(ctx context.Context, outcome Outcome, slot int) error {
	p := outcome.Players[slot]
	in := achievementInput{
		stats:         p.Stats,
		score:         p.Score,
		opponentScore: outcome.Players[1-slot].Score,
	}
	for _, a := range Catalog {
		if !a.Unlocked(in) {
			continue
		}
		created, err := e.store.UnlockAchievement(ctx, &store.UserAchievement{
			UserID:        p.UserID,
			GameID:        outcome.GameID,
			AchievementID: a.ID,
			Name:          a.Name,
			Description:   a.Description,
			Icon:          a.Icon,
		})
		if err != nil {
			return fmt.Errorf("unlock %q for %d: %w", a.ID, p.UserID, err)
		}
		if created {
			e.logger.Info("achievement unlocked",
				logging.Int64("user_id", p.UserID),
				logging.String("achievement", a.ID),
				logging.Int64("game_id", outcome.GameID),
			)
		}
	}
	return nil
}

func (e *Evaluator) mirrorRankings(ctx context.Context) {
	if e.board == nil {
		return
	}
	rankings, err := e.store.Rankings(ctx)
	if err != nil {
		e.logger.Warn("rank mirror read failed", logging.Error(err))
		return
	}
	if err := e.board.Publish(ctx, rankings); err != nil {
		e.logger.Warn("rank mirror publish failed", logging.Error(err))
	}
}

func (e *Evaluator) publishFinished(ctx context.Context, outcome Outcome) {
	if e.events == nil || outcome.WinnerSlot < 0 {
		return
	}
	winnerID := outcome.Players[outcome.WinnerSlot].UserID
	score := [2]int{outcome.Players[0].Score, outcome.Players[1].Score}
	if err := e.events.MatchFinished(ctx, outcome.GameID, winnerID, score); err != nil {
		e.logger.Warn("match finished event failed",
			logging.Int64("game_id", outcome.GameID),
			logging.Error(err),
		)
	}
}

func (e *Evaluator) publishAborted(ctx context.Context, outcome Outcome) {
	if e.events == nil {
		return
	}
	if err := e.events.MatchAborted(ctx, outcome.GameID); err != nil {
		e.logger.Warn("match aborted event failed",
			logging.Int64("game_id", outcome.GameID),
			logging.Error(err),
		)
	}
}

func buildGameStats(outcome Outcome) *store.GameStats {
	p1, p2 := outcome.Players[0], outcome.Players[1]
	return &store.GameStats{
		ID:                        outcome.GameID,
		Player1UserID:             p1.UserID,
		Player2UserID:             p2.UserID,
		Player1Score:              p1.Score,
		Player2Score:              p2.Score,
		Player1PaddleHits:         p1.Stats.PaddleHits,
		Player2PaddleHits:         p2.Stats.PaddleHits,
		Player1WallHits:           p1.Stats.WallBounces,
		Player2WallHits:           p2.Stats.WallBounces,
		Player1TopPaddleHits:      p1.Stats.TopPaddleHits,
		Player2TopPaddleHits:      p2.Stats.TopPaddleHits,
		Player1BottomPaddleHits:   p1.Stats.BottomPaddleHits,
		Player2BottomPaddleHits:   p2.Stats.BottomPaddleHits,
		Player1LargestScoreStreak: p1.Stats.LargestScoreStreak,
		Player2LargestScoreStreak: p2.Stats.LargestScoreStreak,
		TotalPlayTimeSeconds:      p1.Stats.TotalPlayTimeSeconds + p2.Stats.TotalPlayTimeSeconds,
	}
}

func mergeAggregates(p OutcomePlayer) *store.UserStats {
	return &store.UserStats{
		UserID:               p.UserID,
		GamesPlayed:          p.Stats.GamesPlayed,
		GamesWon:             p.Stats.GamesWon,
		GamesLost:            p.Stats.GamesLost,
		WinStreak:            p.Stats.WinStreak,
		TotalPaddleHits:      p.Stats.TotalPaddleHits,
		TotalPointsScored:    p.Stats.TotalPointsScored,
		TotalPlayTimeSeconds: p.Stats.TotalPlayTimeSeconds,
	}
}
