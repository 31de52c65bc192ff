package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests and local development.
type MemoryStore struct {
	mu           sync.Mutex
	nextGameID   int64
	nextUnlockID int64
	games        map[int64]*Game
	gameStats    map[int64]*GameStats
	userStats    map[int64]*UserStats
	achievements []*UserAchievement

	// FailCreateGame makes CreateGame return this error, for exercising the
	// abort-on-persistence-failure path.
	FailCreateGame error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games:     make(map[int64]*Game),
		gameStats: make(map[int64]*GameStats),
		userStats: make(map[int64]*UserStats),
	}
}

func (s *MemoryStore) CreateGame(_ context.Context, player1ID, player2ID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreateGame != nil {
		return 0, s.FailCreateGame
	}
	s.nextGameID++
	s.games[s.nextGameID] = &Game{
		ID:            s.nextGameID,
		Player1UserID: player1ID,
		Player2UserID: player2ID,
		CreatedAt:     time.Now(),
	}
	return s.nextGameID, nil
}

func (s *MemoryStore) FinalizeGame(_ context.Context, gameID int64, result GameResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[gameID]
	if !ok {
		return ErrNotFound
	}
	game.Status = result.Status
	game.WinnerID = result.WinnerID
	game.Player1Score = result.Player1Score
	game.Player2Score = result.Player2Score
	ended := result.EndedAt
	game.EndedAt = &ended
	return nil
}

func (s *MemoryStore) SaveGameStats(_ context.Context, stats *GameStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *stats
	s.gameStats[stats.ID] = &copied
	return nil
}

func (s *MemoryStore) GetUserStats(_ context.Context, userID int64) (*UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats, ok := s.userStats[userID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *stats
	return &copied, nil
}

func (s *MemoryStore) UpsertUserStats(_ context.Context, stats *UserStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *stats
	if existing, ok := s.userStats[stats.UserID]; ok {
		copied.Rank = existing.Rank
	}
	s.userStats[stats.UserID] = &copied
	return nil
}

func (s *MemoryStore) UnlockAchievement(_ context.Context, unlock *UserAchievement) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.achievements {
		if a.UserID == unlock.UserID && a.AchievementID == unlock.AchievementID {
			return false, nil
		}
	}
	s.nextUnlockID++
	copied := *unlock
	copied.ID = s.nextUnlockID
	copied.CreatedAt = time.Now()
	s.achievements = append(s.achievements, &copied)
	return true, nil
}

func (s *MemoryStore) RecalculateRanks(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ordered := make([]*UserStats, 0, len(s.userStats))
	for _, stats := range s.userStats {
		ordered = append(ordered, stats)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.GamesWon != b.GamesWon {
			return a.GamesWon > b.GamesWon
		}
		if a.TotalPointsScored != b.TotalPointsScored {
			return a.TotalPointsScored > b.TotalPointsScored
		}
		return a.UserID < b.UserID
	})
	for i, stats := range ordered {
		rank := i + 1
		// Ties share a rank, matching RANK() semantics.
		if i > 0 {
			prev := ordered[i-1]
			if prev.GamesWon == stats.GamesWon && prev.TotalPointsScored == stats.TotalPointsScored {
				rank = prev.Rank
			}
		}
		stats.Rank = rank
	}
	return nil
}

func (s *MemoryStore) Rankings(_ context.Context) ([]UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]UserStats, 0, len(s.userStats))
	for _, stats := range s.userStats {
		out = append(out, *stats)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// Game returns the stored game row, for assertions in tests.
func (s *MemoryStore) Game(gameID int64) (*Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[gameID]
	if !ok {
		return nil, false
	}
	copied := *game
	return &copied, true
}

// GameStatsFor returns the stored per-match detail row, for tests.
func (s *MemoryStore) GameStatsFor(gameID int64) (*GameStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats, ok := s.gameStats[gameID]
	if !ok {
		return nil, false
	}
	copied := *stats
	return &copied, true
}

// Achievements lists the unlocks stored for the user, for tests.
func (s *MemoryStore) Achievements(userID int64) []UserAchievement {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []UserAchievement
	for _, a := range s.achievements {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out
}
