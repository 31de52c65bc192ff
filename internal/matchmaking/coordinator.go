// Package matchmaking pairs players into matches, either through the variant
// queues or through direct invitations, and owns the live match table.
package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"pongarena/server/internal/game"
	"pongarena/server/internal/logging"
	"pongarena/server/internal/match"
	"pongarena/server/internal/registry"
	"pongarena/server/internal/results"
	"pongarena/server/internal/store"
)

// Mode selects the match variant a queue or invitation targets.
type Mode int

const (
	ModeClassic Mode = iota
	ModePowerUps
)

// DefaultInvitationTTL is how long a direct invitation stays open.
const DefaultInvitationTTL = 2 * time.Minute

// Error strings are part of the client contract; they surface verbatim in the
// acknowledgement frames.
var (
	ErrNotConnected      = errors.New("You are not connected to the server.")
	ErrAlreadyQueued     = errors.New("You are already in matchmaking")
	ErrAlreadyInGame     = errors.New("You are already in a game")
	ErrInviteSelf        = errors.New("You cannot invite yourself.")
	ErrInviterInGame     = errors.New("You are already in a game.")
	ErrInviteeInGame     = errors.New("Player is already in a game.")
	ErrInvitePending     = errors.New("An invitation is already pending with this player.")
	ErrInvitationExpired = errors.New("Invitation expired.")
	ErrNotInvitee        = errors.New("You are not the invitee.")
	ErrInviterOffline    = errors.New("Inviter is offline.")
	ErrInviterBusy       = errors.New("Inviter is already in a game.")
	ErrGameNotFound      = errors.New("Game not found.")
	ErrGameClosed        = errors.New("Game does not accept new players.")
)

// MatchFoundPayload points a paired player at their new match.
type MatchFoundPayload struct {
	GameID   int64          `json:"game_id"`
	Timeout  int64          `json:"timeout"`
	Opponent match.Identity `json:"opponent"`
}

// UnfinishedGamePayload is pushed on connect when the user still owes a match
// a reconnect. Same shape as match_found, different trigger.
type UnfinishedGamePayload struct {
	GameID   int64          `json:"game_id"`
	Timeout  int64          `json:"timeout"`
	Opponent match.Identity `json:"opponent"`
}

// MatchFailedPayload is pushed to the party that did not issue the failing
// request when match creation falls through; the requester learns from the
// ack error instead.
type MatchFailedPayload struct {
	Message string `json:"message"`
}

// InvitationPayload is pushed to the invitee when an invitation opens.
type InvitationPayload struct {
	ID        string         `json:"id"`
	Inviter   match.Identity `json:"inviter"`
	ExpiresAt int64          `json:"expiresAt"`
	Mode      int            `json:"mode"`
}

type invitation struct {
	id        string
	inviter   match.Identity
	inviteeID int64
	expiresAt time.Time
	mode      Mode
	timer     *time.Timer
}

// MatchCreatedPublisher receives the created lifecycle event for new matches.
type MatchCreatedPublisher interface {
	MatchCreated(ctx context.Context, gameID, player1ID, player2ID int64, powerups bool) error
}

// RecorderFactory builds a replay recorder for a new match. A nil factory, or
// a nil recorder from it, disables recording for that match.
type RecorderFactory func(gameID int64, players [2]int64, powerups bool) match.Recorder

// Coordinator is the matchmaking front of the service. All entry points are
// safe for concurrent use.
type Coordinator struct {
	store      store.Store
	registry   *registry.Registry
	outbox     match.Outbox
	evaluator  *results.Evaluator
	events     MatchCreatedPublisher
	recorderOf RecorderFactory
	matchOpts  []match.Option
	logger     *logging.Logger
	now        func() time.Time
	ttl        time.Duration

	mu          sync.Mutex
	rng         *rand.Rand
	queues      [2][]int64
	matches     map[int64]*match.Match
	byUser      map[int64]int64
	invitations map[string]*invitation
}

// Option configures optional coordinator collaborators.
type Option func(*Coordinator)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithRand seeds side assignment, primarily for tests.
func WithRand(rng *rand.Rand) Option {
	return func(c *Coordinator) {
		if rng != nil {
			c.rng = rng
		}
	}
}

// WithEvents wires the lifecycle event publisher.
func WithEvents(events MatchCreatedPublisher) Option {
	return func(c *Coordinator) {
		c.events = events
	}
}

// WithRecorderFactory wires replay recording for new matches.
func WithRecorderFactory(factory RecorderFactory) Option {
	return func(c *Coordinator) {
		c.recorderOf = factory
	}
}

// WithMatchOptions appends options passed through to every new match.
func WithMatchOptions(opts ...match.Option) Option {
	return func(c *Coordinator) {
		c.matchOpts = append(c.matchOpts, opts...)
	}
}

// WithInvitationTTL overrides how long invitations stay open.
func WithInvitationTTL(ttl time.Duration) Option {
	return func(c *Coordinator) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger overrides the package logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a coordinator over its required collaborators.
func New(st store.Store, reg *registry.Registry, outbox match.Outbox, evaluator *results.Evaluator, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:       st,
		registry:    reg,
		outbox:      outbox,
		evaluator:   evaluator,
		logger:      logging.L(),
		now:         time.Now,
		ttl:         DefaultInvitationTTL,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		matches:     make(map[int64]*match.Match),
		byUser:      make(map[int64]int64),
		invitations: make(map[string]*invitation),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// JoinQueue enters the user into the variant queue. When an opponent is
// already waiting the pair is matched immediately.
func (c *Coordinator) JoinQueue(ctx context.Context, userID int64, mode Mode) error {
	user, ok := c.registry.UserInfo(userID)
	if !ok {
		return ErrNotConnected
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inQueueLocked(userID) {
		return ErrAlreadyQueued
	}
	if _, busy := c.byUser[userID]; busy {
		return ErrAlreadyInGame
	}
	opponentID, found := c.takeQueuedLocked(mode)
	if !found {
		c.queues[mode] = append(c.queues[mode], userID)
		return nil
	}
	opponent, ok := c.registry.UserInfo(opponentID)
	if !ok {
		// Queue entry went stale between disconnect and eviction.
		c.queues[mode] = append(c.queues[mode], userID)
		return nil
	}
	c.logger.Info("match found",
		logging.Int64("user_id", userID),
		logging.Int64("opponent_id", opponentID),
	)
	_, err := c.createMatchLocked(ctx, identityOf(user), identityOf(opponent), mode)
	if err != nil {
		c.queues[mode] = append(c.queues[mode], opponentID)
		c.outbox.Push(opponentID, "match_failed", MatchFailedPayload{
			Message: "Failed to create the game. You are back in matchmaking.",
		})
		return err
	}
	return nil
}

// LeaveQueue removes the user from both variant queues.
func (c *Coordinator) LeaveQueue(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for mode := range c.queues {
		c.queues[mode] = removeUser(c.queues[mode], userID)
	}
}

// Invite opens a direct invitation toward the invitee and reports when it
// expires. At most one invitation is open per player pair.
func (c *Coordinator) Invite(inviter match.Identity, inviteeID int64, mode Mode) (time.Time, error) {
	if inviter.ID == inviteeID {
		return time.Time{}, ErrInviteSelf
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.byUser[inviter.ID]; busy {
		return time.Time{}, ErrInviterInGame
	}
	if _, busy := c.byUser[inviteeID]; busy {
		return time.Time{}, ErrInviteeInGame
	}
	now := c.now()
	if existing := c.pairInvitationLocked(inviter.ID, inviteeID); existing != nil {
		if existing.expiresAt.After(now) {
			return time.Time{}, ErrInvitePending
		}
		c.dropInvitationLocked(existing.id)
	}
	inv := &invitation{
		id:        uuid.NewString(),
		inviter:   inviter,
		inviteeID: inviteeID,
		expiresAt: now.Add(c.ttl),
		mode:      mode,
	}
	id := inv.id
	inv.timer = time.AfterFunc(c.ttl, func() { c.expireInvitation(id) })
	c.invitations[id] = inv
	c.outbox.Push(inviteeID, "game_invitation", InvitationPayload{
		ID:        id,
		Inviter:   inviter,
		ExpiresAt: inv.expiresAt.UnixMilli(),
		Mode:      int(mode),
	})
	c.logger.Info("invitation sent",
		logging.Int64("inviter_id", inviter.ID),
		logging.Int64("invitee_id", inviteeID),
	)
	return inv.expiresAt, nil
}

// RespondToInvitation accepts or declines an open invitation. Accepting
// creates the match immediately; the inviter leaves any queue they joined in
// the meantime.
func (c *Coordinator) RespondToInvitation(ctx context.Context, userID int64, invitationID string, accepted bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	inv, ok := c.invitations[invitationID]
	if !ok || !inv.expiresAt.After(c.now()) {
		return ErrInvitationExpired
	}
	if inv.inviteeID != userID {
		return ErrNotInvitee
	}
	c.dropInvitationLocked(invitationID)
	if !accepted {
		return nil
	}
	inviter, ok := c.registry.UserInfo(inv.inviter.ID)
	if !ok {
		return ErrInviterOffline
	}
	invitee, ok := c.registry.UserInfo(userID)
	if !ok {
		return ErrNotConnected
	}
	if _, busy := c.byUser[inviter.UserID]; busy {
		return ErrInviterBusy
	}
	for mode := range c.queues {
		c.queues[mode] = removeUser(c.queues[mode], inviter.UserID)
	}
	_, err := c.createMatchLocked(ctx, identityOf(inviter), identityOf(invitee), inv.mode)
	if err != nil {
		c.outbox.Push(inviter.UserID, "match_failed", MatchFailedPayload{
			Message: "Failed to create the game.",
		})
	}
	return err
}

// JoinGame seats the user in their match. The first join of both players
// starts the countdown; a join during a pause resumes it.
func (c *Coordinator) JoinGame(userID int64, gameID int64) error {
	c.mu.Lock()
	m, ok := c.matches[gameID]
	c.mu.Unlock()
	if !ok {
		return ErrGameNotFound
	}
	if err := m.PlayerReady(userID); err != nil {
		switch {
		case errors.Is(err, match.ErrNotParticipant):
			return ErrGameNotFound
		default:
			return ErrGameClosed
		}
	}
	if status := m.Status(); status == match.StatusPreGame || status == match.StatusRunning {
		c.registry.MarkInGame(m.User(0).ID)
		c.registry.MarkInGame(m.User(1).ID)
	}
	return nil
}

// PlayerMoved routes one paddle intent to the user's live match.
func (c *Coordinator) PlayerMoved(userID int64, up bool) {
	if m := c.matchOf(userID); m != nil {
		m.MovePaddle(userID, up)
	}
}

// OnConnect replays pending state to a freshly connected user: an unfinished
// match they must rejoin, or an open invitation waiting on their answer.
func (c *Coordinator) OnConnect(userID int64) {
	if m := c.matchOf(userID); m != nil && m.AwaitingReconnect(userID) {
		if user, ok := c.registry.UserInfo(userID); ok {
			m.UpdateUser(userID, user.Username, user.Avatar)
		}
		opponent, _ := m.Opponent(userID)
		c.outbox.Push(userID, "unfinished_game", UnfinishedGamePayload{
			GameID:   m.ID(),
			Timeout:  m.Deadline().UnixMilli(),
			Opponent: opponent,
		})
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for _, inv := range c.invitations {
		if inv.inviteeID != userID || !inv.expiresAt.After(now) {
			continue
		}
		c.outbox.Push(userID, "game_invitation", InvitationPayload{
			ID:        inv.id,
			Inviter:   inv.inviter,
			ExpiresAt: inv.expiresAt.UnixMilli(),
			Mode:      int(inv.mode),
		})
		return
	}
}

// OnDisconnect runs when the user's last connection closes. The user leaves
// the queues, and their live match pauses or resolves.
func (c *Coordinator) OnDisconnect(userID int64) {
	c.LeaveQueue(userID)
	if m := c.matchOf(userID); m != nil {
		m.OnDisconnect(userID)
	}
}

// UpdateUserInfo reflects an external profile edit into the registry and the
// user's live match.
func (c *Coordinator) UpdateUserInfo(userID int64, username, avatar string) {
	c.registry.UpdateDisplayInfo(userID, username, avatar)
	if m := c.matchOf(userID); m != nil {
		m.UpdateUser(userID, username, avatar)
	}
}

// MatchCount reports the number of live matches.
func (c *Coordinator) MatchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.matches)
}

// QueueDepth reports the number of users waiting in the variant queue.
func (c *Coordinator) QueueDepth(mode Mode) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queues[mode])
}

func (c *Coordinator) matchOf(userID int64) *match.Match {
	c.mu.Lock()
	defer c.mu.Unlock()
	gameID, ok := c.byUser[userID]
	if !ok {
		return nil
	}
	return c.matches[gameID]
}

// createMatchLocked persists the game row first so a storage failure never
// leaves an orphan in-memory match, then seats both players and announces the
// pairing. Side assignment is random.
func (c *Coordinator) createMatchLocked(ctx context.Context, a, b match.Identity, mode Mode) (*match.Match, error) {
	if c.rng.Float64() < 0.5 {
		a, b = b, a
	}
	seeds := [2]game.AggregateSeed{}
	var err error
	if seeds[0], err = c.loadSeed(ctx, a.ID); err != nil {
		return nil, err
	}
	if seeds[1], err = c.loadSeed(ctx, b.ID); err != nil {
		return nil, err
	}
	gameID, err := c.store.CreateGame(ctx, a.ID, b.ID)
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	powerups := mode == ModePowerUps
	opts := make([]match.Option, 0, len(c.matchOpts)+1)
	opts = append(opts, c.matchOpts...)
	if c.recorderOf != nil {
		if rec := c.recorderOf(gameID, [2]int64{a.ID, b.ID}, powerups); rec != nil {
			opts = append(opts, match.WithRecorder(rec))
		}
	}
	m := match.New(gameID, [2]match.Identity{a, b}, seeds, powerups, c.outbox, c.onMatchComplete, opts...)
	c.matches[gameID] = m
	c.byUser[a.ID] = gameID
	c.byUser[b.ID] = gameID

	timeout := m.Deadline().UnixMilli()
	c.outbox.Push(a.ID, "match_found", MatchFoundPayload{GameID: gameID, Timeout: timeout, Opponent: b})
	c.outbox.Push(b.ID, "match_found", MatchFoundPayload{GameID: gameID, Timeout: timeout, Opponent: a})
	if c.events != nil {
		if err := c.events.MatchCreated(ctx, gameID, a.ID, b.ID, powerups); err != nil {
			c.logger.Warn("match created event dropped",
				logging.Int64("game_id", gameID),
				logging.Error(err),
			)
		}
	}
	c.logger.Info("game created",
		logging.Int64("game_id", gameID),
		logging.Int64("player1_id", a.ID),
		logging.Int64("player2_id", b.ID),
		logging.Bool("powerups", powerups),
	)
	return m, nil
}

func (c *Coordinator) loadSeed(ctx context.Context, userID int64) (game.AggregateSeed, error) {
	stats, err := c.store.GetUserStats(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return game.AggregateSeed{}, nil
	}
	if err != nil {
		return game.AggregateSeed{}, fmt.Errorf("load user stats: %w", err)
	}
	return game.AggregateSeed{
		GamesPlayed:          stats.GamesPlayed,
		GamesWon:             stats.GamesWon,
		GamesLost:            stats.GamesLost,
		WinStreak:            stats.WinStreak,
		TotalPaddleHits:      stats.TotalPaddleHits,
		TotalPointsScored:    stats.TotalPointsScored,
		TotalPlayTimeSeconds: stats.TotalPlayTimeSeconds,
	}, nil
}

// onMatchComplete runs outside the match mutex once per terminal match. It
// feeds the result pipeline, then evicts the match from the live table.
func (c *Coordinator) onMatchComplete(m *match.Match, winnerSlot int) {
	outcome := results.Outcome{
		GameID:     m.ID(),
		StatusCode: int(m.Status()),
		Aborted:    winnerSlot < 0,
		WinnerSlot: winnerSlot,
		EndedAt:    c.now(),
	}
	scores := m.Scores()
	for slot := 0; slot < 2; slot++ {
		outcome.Players[slot] = results.OutcomePlayer{
			UserID: m.User(slot).ID,
			Score:  scores[slot],
			Stats:  m.Stats(slot),
		}
	}
	if err := c.evaluator.Complete(context.Background(), outcome); err != nil {
		c.logger.Error("result pipeline failed",
			logging.Int64("game_id", m.ID()),
			logging.Error(err),
		)
	}
	c.mu.Lock()
	delete(c.matches, m.ID())
	delete(c.byUser, outcome.Players[0].UserID)
	delete(c.byUser, outcome.Players[1].UserID)
	c.mu.Unlock()
	c.registry.MarkOnline(outcome.Players[0].UserID)
	c.registry.MarkOnline(outcome.Players[1].UserID)
}

func (c *Coordinator) expireInvitation(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropInvitationLocked(id)
}

func (c *Coordinator) dropInvitationLocked(id string) {
	inv, ok := c.invitations[id]
	if !ok {
		return
	}
	if inv.timer != nil {
		inv.timer.Stop()
	}
	delete(c.invitations, id)
}

func (c *Coordinator) pairInvitationLocked(a, b int64) *invitation {
	for _, inv := range c.invitations {
		if (inv.inviter.ID == a && inv.inviteeID == b) || (inv.inviter.ID == b && inv.inviteeID == a) {
			return inv
		}
	}
	return nil
}

func (c *Coordinator) inQueueLocked(userID int64) bool {
	for mode := range c.queues {
		for _, queued := range c.queues[mode] {
			if queued == userID {
				return true
			}
		}
	}
	return false
}

// takeQueuedLocked dequeues the longest-waiting user of the variant.
func (c *Coordinator) takeQueuedLocked(mode Mode) (int64, bool) {
	q := c.queues[mode]
	if len(q) == 0 {
		return 0, false
	}
	userID := q[0]
	c.queues[mode] = q[1:]
	return userID, true
}

func identityOf(user *registry.ConnectedUser) match.Identity {
	return match.Identity{ID: user.UserID, Username: user.Username, Avatar: user.Avatar}
}

func removeUser(queue []int64, userID int64) []int64 {
	out := queue[:0]
	for _, queued := range queue {
		if queued != userID {
			out = append(out, queued)
		}
	}
	return out
}
