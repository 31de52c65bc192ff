package match

import (
	"context"
	"errors"
	"sync"
	"time"

	"pongarena/server/internal/game"
	"pongarena/server/internal/logging"
	"pongarena/server/internal/simulation"
)

// Timing defaults for the lifecycle deadlines.
const (
	DefaultJoinDeadline     = 20 * time.Second
	DefaultPreGameCountdown = 10 * time.Second
	DefaultReconnectWindow  = 2 * time.Minute

	// pausedNoticeSlack pads the pause deadline pushed to the remaining
	// player so their countdown never undercuts the server-side timer.
	pausedNoticeSlack = 2 * time.Second
)

var (
	// ErrNotParticipant signals the user does not belong to this match.
	ErrNotParticipant = errors.New("not a participant of this game")
	// ErrNotAccepting signals the match cannot seat the player right now.
	ErrNotAccepting = errors.New("game does not accept new players")
)

// Identity is a participant snapshot carried in outbound payloads.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// Outbox delivers push events to every live connection of a user. Push must
// not block; the gateway enqueues onto per-connection send buffers.
type Outbox interface {
	Push(userID int64, event string, payload any)
}

// Recorder captures frames and lifecycle events of a running match for the
// replay archive. Implementations throttle frames internally.
type Recorder interface {
	RecordFrame(now time.Time, state game.State)
	RecordEvent(now time.Time, event string, payload any)
	Close() error
}

// CompletionFunc runs exactly once when the match turns terminal. winnerSlot
// is -1 for an aborted match. It is invoked outside the match mutex.
type CompletionFunc func(m *Match, winnerSlot int)

// InitialStatePayload tells a client which paddle it drives and when live
// play begins.
type InitialStatePayload struct {
	PlayerID  int   `json:"player_id"`
	StartTime int64 `json:"start_time"`
}

// PausedPayload carries the reconnect deadline shown to the remaining player.
type PausedPayload struct {
	TimeoutTS int64 `json:"timeout_ts"`
}

// FinishedPayload is the terminal scoreboard pushed to both players.
type FinishedPayload struct {
	Score  [2]int   `json:"score"`
	Winner Identity `json:"winner"`
}

type player struct {
	user             Identity
	ready            bool
	disconnectedOnce bool
}

// Match drives one game from pairing to a terminal state: the lifecycle
// timers, the fixed-rate simulation loop and the resulting broadcasts. All
// transitions are serialized behind one mutex; timer callbacks re-check the
// state so a stale fire after a superseding transition is a no-op.
type Match struct {
	id       int64
	powerups bool
	outbox   Outbox
	logger   *logging.Logger
	recorder Recorder
	now      func() time.Time

	joinDeadline    time.Duration
	countdown       time.Duration
	reconnectWindow time.Duration

	onComplete CompletionFunc
	engineOpts []game.Option

	mu         sync.Mutex
	status     Status
	players    [2]*player
	engine     *game.Engine
	deadline   time.Time
	abortTimer *time.Timer
	startTimer *time.Timer
	loop       *simulation.Loop
	loopCancel context.CancelFunc
	resuming   bool
	completed  bool
}

// Option configures optional match parameters at construction time.
type Option func(*Match)

// WithClock injects a deterministic clock, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(m *Match) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithJoinDeadline overrides how long both players have to signal readiness.
func WithJoinDeadline(d time.Duration) Option {
	return func(m *Match) {
		if d > 0 {
			m.joinDeadline = d
		}
	}
}

// WithCountdown overrides the pre-game countdown duration.
func WithCountdown(d time.Duration) Option {
	return func(m *Match) {
		if d > 0 {
			m.countdown = d
		}
	}
}

// WithReconnectWindow overrides the pause grace for a disconnected player.
func WithReconnectWindow(d time.Duration) Option {
	return func(m *Match) {
		if d > 0 {
			m.reconnectWindow = d
		}
	}
}

// WithRecorder attaches a replay recorder to the match.
func WithRecorder(r Recorder) Option {
	return func(m *Match) {
		m.recorder = r
	}
}

// WithLogger overrides the package logger.
func WithLogger(logger *logging.Logger) Option {
	return func(m *Match) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithEngineOptions forwards options to the physics engine, primarily to seed
// a deterministic random source in tests.
func WithEngineOptions(opts ...game.Option) Option {
	return func(m *Match) {
		m.engineOpts = append(m.engineOpts, opts...)
	}
}

// New seats two players in a fresh match. The match starts Waiting with the
// join deadline armed; both players must call PlayerReady before it elapses.
func New(id int64, users [2]Identity, seeds [2]game.AggregateSeed, enablePowerups bool, outbox Outbox, onComplete CompletionFunc, opts ...Option) *Match {
	m := &Match{
		id:              id,
		powerups:        enablePowerups,
		outbox:          outbox,
		logger:          logging.L(),
		now:             time.Now,
		joinDeadline:    DefaultJoinDeadline,
		countdown:       DefaultPreGameCountdown,
		reconnectWindow: DefaultReconnectWindow,
		onComplete:      onComplete,
		status:          StatusWaiting,
		players: [2]*player{
			{user: users[0]},
			{user: users[1]},
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	stats := [2]*game.PlayerStats{
		game.NewPlayerStats(seeds[0]),
		game.NewPlayerStats(seeds[1]),
	}
	m.engine = game.NewEngine(stats, enablePowerups, m.engineOpts...)
	m.deadline = m.now().Add(m.joinDeadline)
	m.abortTimer = time.AfterFunc(m.joinDeadline, m.onDeadline)
	return m
}

// ID reports the persisted game id.
func (m *Match) ID() int64 { return m.id }

// PowerUpsEnabled reports the variant the match was created with.
func (m *Match) PowerUpsEnabled() bool { return m.powerups }

// Status reports the current lifecycle state.
func (m *Match) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Deadline reports the currently armed lifecycle deadline: the join deadline
// while Waiting, the countdown end during PreGame, the reconnect deadline
// while Paused.
func (m *Match) Deadline() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deadline
}

// SlotOf reports the player slot for the user id, or -1.
func (m *Match) SlotOf(userID int64) int {
	for slot, p := range m.players {
		if p.user.ID == userID {
			return slot
		}
	}
	return -1
}

// User reports the identity seated in the slot.
func (m *Match) User(slot int) Identity {
	if slot < 0 || slot > 1 {
		return Identity{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.players[slot].user
}

// Opponent reports the identity of the user's opponent.
func (m *Match) Opponent(userID int64) (Identity, bool) {
	slot := m.SlotOf(userID)
	if slot < 0 {
		return Identity{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.players[1-slot].user, true
}

// AwaitingReconnect reports whether the user belongs to this match but has not
// signaled readiness, which is the reconnect prompt condition.
func (m *Match) AwaitingReconnect(userID int64) bool {
	slot := m.SlotOf(userID)
	if slot < 0 {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.status.Terminal() && !m.players[slot].ready
}

// Scores reports the current score pair.
func (m *Match) Scores() [2]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return [2]int{m.engine.Score(0), m.engine.Score(1)}
}

// Stats exposes the per-match counters for the slot. Only safe to read once
// the match is terminal.
func (m *Match) Stats(slot int) *game.PlayerStats {
	return m.engine.Stats(slot)
}

// UpdateUser refreshes a seated player's display identity in place.
func (m *Match) UpdateUser(userID int64, username, avatar string) {
	slot := m.SlotOf(userID)
	if slot < 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[slot].user.Username = username
	m.players[slot].user.Avatar = avatar
}

// PlayerReady seats the user for live play. Once both players are ready the
// match either starts for the first time or resumes from a pause.
func (m *Match) PlayerReady(userID int64) error {
	slot := m.SlotOf(userID)
	if slot < 0 {
		return ErrNotParticipant
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status.Terminal() {
		return ErrNotAccepting
	}
	p := m.players[slot]
	if p.ready {
		return ErrNotAccepting
	}
	p.ready = true
	if m.players[0].ready && m.players[1].ready {
		if m.status == StatusPaused {
			m.resumeLocked()
		} else {
			m.startLocked()
		}
	}
	return nil
}

// MovePaddle applies one move intent for the user's paddle.
func (m *Match) MovePaddle(userID int64, up bool) {
	slot := m.SlotOf(userID)
	if slot < 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.players[slot].ready {
		return
	}
	m.engine.MovePaddle(slot, up)
}

// OnDisconnect pauses the match when a ready player's connection drops. A
// second disconnect by the same player, or an absent peer, forces a terminal
// resolution immediately.
func (m *Match) OnDisconnect(userID int64) {
	slot := m.SlotOf(userID)
	if slot < 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status.Terminal() {
		return
	}
	p := m.players[slot]
	if !p.ready {
		return
	}
	m.logger.Debug("player disconnected",
		logging.Int64("game_id", m.id),
		logging.Int64("user_id", userID),
	)
	now := m.now()
	m.setStatusLocked(StatusPaused, now)
	m.engine.Pause(now)
	m.stopTimersLocked()
	m.stopLoopLocked()
	p.ready = false

	online := m.players[1-slot]
	if !online.ready {
		m.abortLocked(now)
		return
	}
	if p.disconnectedOnce {
		m.determineResultLocked(now)
		return
	}
	p.disconnectedOnce = true
	m.deadline = now.Add(m.reconnectWindow)
	m.abortTimer = time.AfterFunc(m.reconnectWindow, m.onDeadline)
	m.outbox.Push(online.user.ID, "game_paused", PausedPayload{
		TimeoutTS: m.deadline.Add(pausedNoticeSlack).UnixMilli(),
	})
}

// startLocked begins the first pre-game countdown and serves the ball.
func (m *Match) startLocked() {
	now := m.now()
	m.logger.Debug("starting game", logging.Int64("game_id", m.id))
	m.stopTimersLocked()
	m.setStatusLocked(StatusPreGame, now)
	m.deadline = now.Add(m.countdown)
	m.sendInitialState()
	m.engine.Serve()
	m.engine.Stats(0).OnGameStart(now)
	m.engine.Stats(1).OnGameStart(now)
	m.resuming = false
	m.startTimer = time.AfterFunc(m.countdown, m.beginRunning)
}

// resumeLocked re-runs the countdown without re-serving; the ball continues
// with its pre-pause velocity.
func (m *Match) resumeLocked() {
	now := m.now()
	m.logger.Debug("resuming game", logging.Int64("game_id", m.id))
	m.stopTimersLocked()
	m.setStatusLocked(StatusPreGame, now)
	m.deadline = now.Add(m.countdown)
	m.sendInitialState()
	m.resuming = true
	m.startTimer = time.AfterFunc(m.countdown, m.beginRunning)
}

func (m *Match) sendInitialState() {
	start := m.deadline.UnixMilli()
	for slot, p := range m.players {
		m.outbox.Push(p.user.ID, "initial_game_state", InitialStatePayload{
			PlayerID:  slot,
			StartTime: start,
		})
	}
}

// beginRunning fires when the countdown elapses and starts the tick loop.
func (m *Match) beginRunning() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusPreGame {
		return
	}
	now := m.now()
	m.setStatusLocked(StatusRunning, now)
	if m.resuming {
		m.engine.Resume(now)
		m.resuming = false
	} else {
		m.engine.Begin(now)
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.loopCancel = cancel
	m.loop = simulation.NewLoop(game.TickPeriod, m.tick)
	m.loop.Start(ctx)
}

// tick advances one simulation step and broadcasts the snapshot.
func (m *Match) tick(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusRunning {
		return
	}
	outcome := m.engine.Tick(now)
	if outcome.LimitReached {
		m.finishLocked(now)
		return
	}
	state := m.engine.Snapshot()
	if m.recorder != nil {
		m.recorder.RecordFrame(now, state)
	}
	m.broadcastLocked("game_state", state)
}

// onDeadline fires for both the join deadline and the reconnect deadline. A
// stale fire after a superseding transition is ignored.
func (m *Match) onDeadline() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusWaiting && m.status != StatusPaused {
		return
	}
	m.determineResultLocked(m.now())
}

// determineResultLocked forces a terminal resolution: a tied score aborts, a
// leading player who is absent aborts, otherwise the leader wins.
func (m *Match) determineResultLocked(now time.Time) {
	leader := m.engine.Leader()
	anyReady := m.players[0].ready || m.players[1].ready
	if leader >= 0 && anyReady && m.players[leader].ready {
		m.finishLocked(now)
		return
	}
	m.logger.Info("game aborted",
		logging.Int64("game_id", m.id),
		logging.String("status", m.status.String()),
	)
	m.abortLocked(now)
}

func (m *Match) finishLocked(now time.Time) {
	m.stopTimersLocked()
	m.stopLoopLocked()
	m.setStatusLocked(StatusFinished, now)
	winner := m.engine.Leader()
	if winner < 0 {
		winner = 1
	}
	m.engine.Stats(winner).OnGameEnd(now, true)
	m.engine.Stats(1-winner).OnGameEnd(now, false)
	payload := FinishedPayload{
		Score:  [2]int{m.engine.Score(0), m.engine.Score(1)},
		Winner: m.players[winner].user,
	}
	m.broadcastLocked("game_finished", payload)
	if m.recorder != nil {
		m.recorder.RecordEvent(now, "game_finished", payload)
		m.recorder.Close()
	}
	m.logger.Info("game finished",
		logging.Int64("game_id", m.id),
		logging.Int64("winner_id", m.players[winner].user.ID),
		logging.Int("score_1", payload.Score[0]),
		logging.Int("score_2", payload.Score[1]),
	)
	m.completeLocked(winner)
}

func (m *Match) abortLocked(now time.Time) {
	m.stopTimersLocked()
	m.stopLoopLocked()
	m.setStatusLocked(StatusAborted, now)
	if m.recorder != nil {
		m.recorder.RecordEvent(now, "game_aborted", nil)
		m.recorder.Close()
	}
	m.completeLocked(-1)
}

func (m *Match) completeLocked(winnerSlot int) {
	if m.completed || m.onComplete == nil {
		return
	}
	m.completed = true
	// Completion runs persistence; keep it off the match mutex.
	go m.onComplete(m, winnerSlot)
}

func (m *Match) setStatusLocked(status Status, now time.Time) {
	m.status = status
	if m.recorder != nil {
		m.recorder.RecordEvent(now, "status", int(status))
	}
	m.broadcastLocked("game_status_update", int(status))
}

// broadcastLocked pushes to every ready player.
func (m *Match) broadcastLocked(event string, payload any) {
	for _, p := range m.players {
		if p.ready {
			m.outbox.Push(p.user.ID, event, payload)
		}
	}
}

func (m *Match) stopTimersLocked() {
	if m.abortTimer != nil {
		m.abortTimer.Stop()
		m.abortTimer = nil
	}
	if m.startTimer != nil {
		m.startTimer.Stop()
		m.startTimer = nil
	}
}

func (m *Match) stopLoopLocked() {
	if m.loopCancel != nil {
		m.loopCancel()
		m.loopCancel = nil
		m.loop = nil
	}
}
