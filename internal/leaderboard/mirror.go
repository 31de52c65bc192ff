// Package leaderboard mirrors the recomputed rank ordering into a Redis
// sorted set so profile and leaderboard read services never query Postgres.
package leaderboard

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"pongarena/server/internal/logging"
	"pongarena/server/internal/store"
)

// DefaultKey is the sorted set holding the mirrored ordering.
const DefaultKey = "pongarena:leaderboard"

// Mirror writes rank snapshots to Redis. A nil Mirror is a no-op, which is how
// the feature stays optional.
type Mirror struct {
	client *redis.Client
	key    string
	logger *logging.Logger
}

// Option configures optional mirror parameters.
type Option func(*Mirror)

// WithKey overrides the sorted set key.
func WithKey(key string) Option {
	return func(m *Mirror) {
		if key != "" {
			m.key = key
		}
	}
}

// WithLogger overrides the package logger.
func WithLogger(logger *logging.Logger) Option {
	return func(m *Mirror) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New connects to Redis at the given address.
func New(addr string, opts ...Option) *Mirror {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr}), opts...)
}

// NewWithClient wraps an existing client, primarily for tests.
func NewWithClient(client *redis.Client, opts ...Option) *Mirror {
	m := &Mirror{
		client: client,
		key:    DefaultKey,
		logger: logging.L(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Close releases the Redis connection.
func (m *Mirror) Close() error {
	if m == nil || m.client == nil {
		return nil
	}
	return m.client.Close()
}

// Publish replaces the sorted set with the given ordering in one transaction.
// The member score composes wins and points so ZREVRANGE yields rank order.
func (m *Mirror) Publish(ctx context.Context, rankings []store.UserStats) error {
	if m == nil || m.client == nil {
		return nil
	}
	members := make([]redis.Z, 0, len(rankings))
	for _, row := range rankings {
		members = append(members, redis.Z{
			Score:  compositeScore(row),
			Member: strconv.FormatInt(row.UserID, 10),
		})
	}
	pipe := m.client.TxPipeline()
	pipe.Del(ctx, m.key)
	if len(members) > 0 {
		pipe.ZAdd(ctx, m.key, members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror leaderboard: %w", err)
	}
	return nil
}

// compositeScore orders primarily by wins, then by total points. Points stay
// well below the wins multiplier in practice (5 per game), so the bands never
// overlap.
func compositeScore(row store.UserStats) float64 {
	return float64(row.GamesWon)*1_000_000 + float64(row.TotalPointsScored)
}
