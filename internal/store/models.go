package store

import "time"

// Game is one row of the games table, created when two players are paired and
// finalized when the match turns terminal.
type Game struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Status        int        `gorm:"type:smallint;not null;default:0" json:"status"`
	WinnerID      *int64     `gorm:"default:null" json:"winner_id"`
	Player1UserID int64      `gorm:"column:player_1_user_id;not null" json:"player_1_user_id"`
	Player2UserID int64      `gorm:"column:player_2_user_id;not null" json:"player_2_user_id"`
	Player1Score  int        `gorm:"column:player_1_score;not null;default:0" json:"player_1_score"`
	Player2Score  int        `gorm:"column:player_2_score;not null;default:0" json:"player_2_score"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	EndedAt       *time.Time `json:"ended_at"`
}

func (Game) TableName() string { return "games" }

// GameStats is the per-match detail row persisted once a game finishes.
type GameStats struct {
	ID                        int64     `gorm:"primaryKey" json:"id"` // game id
	Player1UserID             int64     `gorm:"column:player_1_user_id;not null" json:"player_1_user_id"`
	Player2UserID             int64     `gorm:"column:player_2_user_id;not null" json:"player_2_user_id"`
	Player1Score              int       `gorm:"column:player_1_score;not null;default:0" json:"player_1_score"`
	Player2Score              int       `gorm:"column:player_2_score;not null;default:0" json:"player_2_score"`
	Player1PaddleHits         int       `gorm:"column:player_1_paddle_hits;not null" json:"player_1_paddle_hits"`
	Player2PaddleHits         int       `gorm:"column:player_2_paddle_hits;not null" json:"player_2_paddle_hits"`
	Player1WallHits           int       `gorm:"column:player_1_wall_hits;not null" json:"player_1_wall_hits"`
	Player2WallHits           int       `gorm:"column:player_2_wall_hits;not null" json:"player_2_wall_hits"`
	Player1TopPaddleHits      int       `gorm:"column:player_1_top_paddle_hits;not null" json:"player_1_top_paddle_hits"`
	Player2TopPaddleHits      int       `gorm:"column:player_2_top_paddle_hits;not null" json:"player_2_top_paddle_hits"`
	Player1BottomPaddleHits   int       `gorm:"column:player_1_bottom_paddle_hits;not null" json:"player_1_bottom_paddle_hits"`
	Player2BottomPaddleHits   int       `gorm:"column:player_2_bottom_paddle_hits;not null" json:"player_2_bottom_paddle_hits"`
	Player1LargestScoreStreak int       `gorm:"column:player_1_largest_score_streak;not null" json:"player_1_largest_score_streak"`
	Player2LargestScoreStreak int       `gorm:"column:player_2_largest_score_streak;not null" json:"player_2_largest_score_streak"`
	TotalPlayTimeSeconds      int       `gorm:"not null" json:"total_play_time_seconds"`
	CreatedAt                 time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (GameStats) TableName() string { return "game_stats" }

// UserStats is the per-user aggregate row, read as the seed for each new match
// and written back after each finished one. Rank is recomputed whole-table.
type UserStats struct {
	UserID               int64     `gorm:"primaryKey;column:user_id" json:"user_id"`
	GamesPlayed          int       `gorm:"not null;default:0" json:"games_played"`
	GamesWon             int       `gorm:"not null;default:0" json:"games_won"`
	GamesLost            int       `gorm:"not null;default:0" json:"games_lost"`
	WinStreak            int       `gorm:"not null;default:0" json:"win_streak"`
	TotalPaddleHits      int       `gorm:"not null;default:0" json:"total_paddle_hits"`
	TotalPointsScored    int       `gorm:"not null;default:0" json:"total_points_scored"`
	TotalPlayTimeSeconds int       `gorm:"not null;default:0" json:"total_play_time_seconds"`
	Rank                 int       `gorm:"not null;default:0" json:"rank"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserStats) TableName() string { return "user_stats" }

// UserAchievement is a first-unlock record; uniqueness on (user, achievement)
// makes the unlock idempotent.
type UserAchievement struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64     `gorm:"column:user_id;not null;uniqueIndex:idx_user_achievement" json:"user_id"`
	GameID        int64     `gorm:"column:game_id;not null" json:"game_id"`
	AchievementID string    `gorm:"column:achievement_id;not null;uniqueIndex:idx_user_achievement" json:"achievement_id"`
	Name          string    `gorm:"not null" json:"name"`
	Description   string    `gorm:"not null" json:"description"`
	Icon          string    `gorm:"not null" json:"icon"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (UserAchievement) TableName() string { return "user_achievements" }
