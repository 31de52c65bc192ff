package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PostgresStore implements Store on a gorm Postgres connection.
type PostgresStore struct {
	db *gorm.DB
}

// Open connects to Postgres and migrates the match service tables.
func Open(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &PostgresStore{db: db}
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an existing gorm connection, primarily for tests.
func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates or updates the service tables.
func (s *PostgresStore) Migrate() error {
	if err := s.db.AutoMigrate(&Game{}, &GameStats{}, &UserStats{}, &UserAchievement{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateGame(ctx context.Context, player1ID, player2ID int64) (int64, error) {
	game := &Game{
		Player1UserID: player1ID,
		Player2UserID: player2ID,
	}
	if err := s.db.WithContext(ctx).Create(game).Error; err != nil {
		return 0, fmt.Errorf("create game: %w", err)
	}
	return game.ID, nil
}

func (s *PostgresStore) FinalizeGame(ctx context.Context, gameID int64, result GameResult) error {
	updates := map[string]any{
		"status":         result.Status,
		"winner_id":      result.WinnerID,
		"player_1_score": result.Player1Score,
		"player_2_score": result.Player2Score,
		"ended_at":       result.EndedAt,
	}
	res := s.db.WithContext(ctx).Model(&Game{}).Where("id = ?", gameID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("finalize game %d: %w", gameID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SaveGameStats(ctx context.Context, stats *GameStats) error {
	if err := s.db.WithContext(ctx).Create(stats).Error; err != nil {
		return fmt.Errorf("save game stats %d: %w", stats.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetUserStats(ctx context.Context, userID int64) (*UserStats, error) {
	var stats UserStats
	err := s.db.WithContext(ctx).First(&stats, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user stats %d: %w", userID, err)
	}
	return &stats, nil
}

func (s *PostgresStore) UpsertUserStats(ctx context.Context, stats *UserStats) error {
	updates := map[string]any{
		"games_played":            stats.GamesPlayed,
		"games_won":               stats.GamesWon,
		"games_lost":              stats.GamesLost,
		"win_streak":              stats.WinStreak,
		"total_paddle_hits":       stats.TotalPaddleHits,
		"total_points_scored":     stats.TotalPointsScored,
		"total_play_time_seconds": stats.TotalPlayTimeSeconds,
	}
	res := s.db.WithContext(ctx).Model(&UserStats{}).Where("user_id = ?", stats.UserID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update user stats %d: %w", stats.UserID, res.Error)
	}
	if res.RowsAffected == 0 {
		if err := s.db.WithContext(ctx).Create(stats).Error; err != nil {
			return fmt.Errorf("create user stats %d: %w", stats.UserID, err)
		}
	}
	return nil
}

func (s *PostgresStore) UnlockAchievement(ctx context.Context, unlock *UserAchievement) (bool, error) {
	var existing UserAchievement
	err := s.db.WithContext(ctx).
		First(&existing, "user_id = ? AND achievement_id = ?", unlock.UserID, unlock.AchievementID).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("lookup achievement %q for %d: %w", unlock.AchievementID, unlock.UserID, err)
	}
	if err := s.db.WithContext(ctx).Create(unlock).Error; err != nil {
		return false, fmt.Errorf("unlock achievement %q for %d: %w", unlock.AchievementID, unlock.UserID, err)
	}
	return true, nil
}

// rankQuery re-ranks the whole table in one statement; ties share a rank.
const rankQuery = `
WITH ranked AS (
  SELECT
    user_id,
    RANK() OVER (ORDER BY games_won DESC, total_points_scored DESC, user_id) AS new_rank
  FROM user_stats
)
UPDATE user_stats
SET rank = ranked.new_rank
FROM ranked
WHERE user_stats.user_id = ranked.user_id
`

func (s *PostgresStore) RecalculateRanks(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Exec(rankQuery).Error; err != nil {
		return fmt.Errorf("recalculate ranks: %w", err)
	}
	return nil
}

func (s *PostgresStore) Rankings(ctx context.Context) ([]UserStats, error) {
	var out []UserStats
	err := s.db.WithContext(ctx).
		Order("rank ASC, user_id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list rankings: %w", err)
	}
	return out, nil
}
