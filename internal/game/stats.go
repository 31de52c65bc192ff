package game

import "time"

// AggregateSeed carries a player's persisted running totals into a new match so
// streak- and milestone-based achievements can see across-match history.
type AggregateSeed struct {
	GamesPlayed          int
	GamesWon             int
	GamesLost            int
	WinStreak            int
	TotalPaddleHits      int
	TotalPointsScored    int
	TotalPlayTimeSeconds int
}

// PlayerStats accumulates one player's counters during a match. The aggregate
// fields start from the persisted seed and are merged back at match end.
type PlayerStats struct {
	GamesPlayed          int
	GamesWon             int
	GamesLost            int
	WinStreak            int
	TotalPaddleHits      int
	TotalPointsScored    int
	TotalPlayTimeSeconds int

	PaddleHits             int
	PaddleMisses           int
	PaddleHitStreak        int
	LargestPaddleHitStreak int

	ScoreStreak            int
	LargestScoreStreak     int
	LargestScoreDifference int

	WallBounces             int
	WallBounceStreak        int
	LargestWallBounceStreak int

	TopPaddleHits    int
	BottomPaddleHits int

	GameDurationSeconds int
	WonCurrentGame      bool

	startedAt time.Time
}

// NewPlayerStats seeds per-match stats with the player's persisted aggregates.
func NewPlayerStats(seed AggregateSeed) *PlayerStats {
	return &PlayerStats{
		GamesPlayed:          seed.GamesPlayed,
		GamesWon:             seed.GamesWon,
		GamesLost:            seed.GamesLost,
		WinStreak:            seed.WinStreak,
		TotalPaddleHits:      seed.TotalPaddleHits,
		TotalPointsScored:    seed.TotalPointsScored,
		TotalPlayTimeSeconds: seed.TotalPlayTimeSeconds,
	}
}

// OnGameStart marks the beginning of timed play.
func (s *PlayerStats) OnGameStart(now time.Time) {
	s.startedAt = now
}

// OnPaddleHit records a successful return. The strike offset within the paddle
// classifies top-third and bottom-third hits for achievement purposes.
func (s *PlayerStats) OnPaddleHit(offset float64) {
	s.PaddleHits++
	s.PaddleHitStreak++
	s.TotalPaddleHits++
	if s.PaddleHitStreak > s.LargestPaddleHitStreak {
		s.LargestPaddleHitStreak = s.PaddleHitStreak
	}
	if offset < 0.25 {
		s.TopPaddleHits++
	} else if offset > 0.75 {
		s.BottomPaddleHits++
	}
}

// OnPaddleMiss records a conceded point and breaks the hit streak.
func (s *PlayerStats) OnPaddleMiss() {
	s.PaddleMisses++
	s.PaddleHitStreak = 0
}

// OnWallBounce records a wall bounce during the player's rally.
func (s *PlayerStats) OnWallBounce() {
	s.WallBounces++
	s.WallBounceStreak++
	if s.WallBounceStreak > s.LargestWallBounceStreak {
		s.LargestWallBounceStreak = s.WallBounceStreak
	}
}

// OnWallMiss breaks the wall-bounce streak after a rally with no bounce.
func (s *PlayerStats) OnWallMiss() {
	s.WallBounceStreak = 0
}

// OnScoreUpdate tracks score streaks and the largest signed score differential.
func (s *PlayerStats) OnScoreUpdate(mine, theirs int, scored bool) {
	if scored {
		s.TotalPointsScored++
	}
	diff := mine - theirs
	if abs(diff) > abs(s.LargestScoreDifference) {
		s.LargestScoreDifference = diff
	}
	if scored {
		s.ScoreStreak++
		if s.ScoreStreak > s.LargestScoreStreak {
			s.LargestScoreStreak = s.ScoreStreak
		}
	} else {
		s.ScoreStreak = 0
	}
}

// OnGameEnd folds the match result into the aggregate totals.
func (s *PlayerStats) OnGameEnd(now time.Time, won bool) {
	if !s.startedAt.IsZero() {
		s.GameDurationSeconds = int(now.Sub(s.startedAt).Round(time.Second) / time.Second)
	}
	s.TotalPlayTimeSeconds += s.GameDurationSeconds
	if won {
		s.WinStreak++
	} else {
		s.WinStreak = 0
	}
	s.GamesPlayed++
	if won {
		s.WonCurrentGame = true
		s.GamesWon++
	} else {
		s.WonCurrentGame = false
		s.GamesLost++
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
