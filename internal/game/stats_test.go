package game

import (
	"testing"
	"time"
)

func TestPaddleHitStreaksAndClassification(t *testing.T) {
	s := NewPlayerStats(AggregateSeed{TotalPaddleHits: 40})

	s.OnPaddleHit(0.1)
	s.OnPaddleHit(0.5)
	s.OnPaddleHit(0.9)
	if s.PaddleHits != 3 || s.TotalPaddleHits != 43 {
		t.Fatalf("hit counters wrong: %+v", s)
	}
	if s.TopPaddleHits != 1 || s.BottomPaddleHits != 1 {
		t.Fatalf("classification wrong: top=%d bottom=%d", s.TopPaddleHits, s.BottomPaddleHits)
	}
	if s.LargestPaddleHitStreak != 3 {
		t.Fatalf("streak wrong: %d", s.LargestPaddleHitStreak)
	}

	s.OnPaddleMiss()
	if s.PaddleHitStreak != 0 || s.LargestPaddleHitStreak != 3 {
		t.Fatalf("miss should break the streak but keep the record: %+v", s)
	}
}

func TestScoreStreakAndDifferential(t *testing.T) {
	s := NewPlayerStats(AggregateSeed{})

	s.OnScoreUpdate(1, 0, true)
	s.OnScoreUpdate(2, 0, true)
	s.OnScoreUpdate(3, 0, true)
	if s.LargestScoreStreak != 3 || s.TotalPointsScored != 3 {
		t.Fatalf("score streak wrong: %+v", s)
	}
	if s.LargestScoreDifference != 3 {
		t.Fatalf("differential wrong: %d", s.LargestScoreDifference)
	}

	// Falling behind records a negative differential once its magnitude grows.
	s.OnScoreUpdate(3, 7, false)
	if s.ScoreStreak != 0 {
		t.Fatalf("conceding should break the streak: %d", s.ScoreStreak)
	}
	if s.LargestScoreDifference != -4 {
		t.Fatalf("differential should track the signed extreme: %d", s.LargestScoreDifference)
	}
}

func TestGameEndMergesAggregates(t *testing.T) {
	s := NewPlayerStats(AggregateSeed{
		GamesPlayed:          9,
		GamesWon:             4,
		GamesLost:            5,
		WinStreak:            2,
		TotalPlayTimeSeconds: 600,
	})
	start := time.Unix(5000, 0)
	s.OnGameStart(start)
	s.OnGameEnd(start.Add(95*time.Second), true)

	if s.GamesPlayed != 10 || s.GamesWon != 5 || s.GamesLost != 5 {
		t.Fatalf("aggregate totals wrong: %+v", s)
	}
	if s.WinStreak != 3 {
		t.Fatalf("win streak wrong: %d", s.WinStreak)
	}
	if s.GameDurationSeconds != 95 || s.TotalPlayTimeSeconds != 695 {
		t.Fatalf("play time wrong: %+v", s)
	}
	if !s.WonCurrentGame {
		t.Fatal("winner flag not set")
	}
}

func TestLossResetsWinStreak(t *testing.T) {
	s := NewPlayerStats(AggregateSeed{WinStreak: 6})
	s.OnGameStart(time.Unix(0, 0))
	s.OnGameEnd(time.Unix(30, 0), false)
	if s.WinStreak != 0 || s.GamesLost != 1 || s.WonCurrentGame {
		t.Fatalf("loss bookkeeping wrong: %+v", s)
	}
}
