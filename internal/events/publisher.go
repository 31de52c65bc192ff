// Package events publishes match lifecycle notifications for the chat and
// social collaborators over NATS. Publishing is fire-and-forget; the match
// service never blocks on a subscriber.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"pongarena/server/internal/logging"
)

// Subjects for the lifecycle events.
const (
	SubjectMatchCreated  = "match.created"
	SubjectMatchFinished = "match.finished"
	SubjectMatchAborted  = "match.aborted"
)

// MatchCreatedEvent announces a freshly paired match.
type MatchCreatedEvent struct {
	GameID        int64     `json:"game_id"`
	Player1UserID int64     `json:"player_1_user_id"`
	Player2UserID int64     `json:"player_2_user_id"`
	PowerUps      bool      `json:"powerups"`
	CreatedAt     time.Time `json:"created_at"`
}

// MatchFinishedEvent announces a completed match with its final score.
type MatchFinishedEvent struct {
	GameID     int64     `json:"game_id"`
	WinnerID   int64     `json:"winner_id"`
	Score      [2]int    `json:"score"`
	FinishedAt time.Time `json:"finished_at"`
}

// MatchAbortedEvent announces a match that ended without a result.
type MatchAbortedEvent struct {
	GameID    int64     `json:"game_id"`
	AbortedAt time.Time `json:"aborted_at"`
}

// Publisher pushes lifecycle events onto NATS subjects.
type Publisher struct {
	conn   *nats.Conn
	logger *logging.Logger
	now    func() time.Time
}

// Option configures optional publisher parameters.
type Option func(*Publisher)

// WithClock injects a deterministic clock, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(p *Publisher) {
		if clock != nil {
			p.now = clock
		}
	}
}

// WithLogger overrides the package logger.
func WithLogger(logger *logging.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Connect dials the NATS server and returns a ready publisher.
func Connect(url string, opts ...Option) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return NewPublisher(conn, opts...), nil
}

// NewPublisher wraps an existing connection, primarily for tests.
func NewPublisher(conn *nats.Conn, opts ...Option) *Publisher {
	p := &Publisher{
		conn:   conn,
		logger: logging.L(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
}

// MatchCreated publishes the pairing event.
func (p *Publisher) MatchCreated(_ context.Context, gameID, player1ID, player2ID int64, powerups bool) error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.publish(SubjectMatchCreated, MatchCreatedEvent{
		GameID:        gameID,
		Player1UserID: player1ID,
		Player2UserID: player2ID,
		PowerUps:      powerups,
		CreatedAt:     p.now(),
	})
}

// MatchFinished publishes the completion event.
func (p *Publisher) MatchFinished(_ context.Context, gameID, winnerID int64, score [2]int) error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.publish(SubjectMatchFinished, MatchFinishedEvent{
		GameID:     gameID,
		WinnerID:   winnerID,
		Score:      score,
		FinishedAt: p.now(),
	})
}

// MatchAborted publishes the no-result event.
func (p *Publisher) MatchAborted(_ context.Context, gameID int64) error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.publish(SubjectMatchAborted, MatchAbortedEvent{
		GameID:    gameID,
		AbortedAt: p.now(),
	})
}

func (p *Publisher) publish(subject string, event any) error {
	if p == nil || p.conn == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s: %w", subject, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}
