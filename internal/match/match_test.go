package match

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"pongarena/server/internal/game"
)

type pushRecord struct {
	event   string
	payload any
}

type stubOutbox struct {
	mu     sync.Mutex
	pushes map[int64][]pushRecord
}

func newStubOutbox() *stubOutbox {
	return &stubOutbox{pushes: make(map[int64][]pushRecord)}
}

func (o *stubOutbox) Push(userID int64, event string, payload any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pushes[userID] = append(o.pushes[userID], pushRecord{event: event, payload: payload})
}

func (o *stubOutbox) payloads(userID int64, event string) []any {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []any
	for _, p := range o.pushes[userID] {
		if p.event == event {
			out = append(out, p.payload)
		}
	}
	return out
}

var (
	userA = Identity{ID: 11, Username: "ada", Avatar: "/a.webp"}
	userB = Identity{ID: 22, Username: "bob", Avatar: "/b.webp"}
)

func newTestMatch(outbox Outbox, done chan int, opts ...Option) *Match {
	onComplete := func(_ *Match, winnerSlot int) {
		done <- winnerSlot
	}
	base := []Option{
		WithJoinDeadline(time.Hour),
		WithCountdown(time.Hour),
		WithEngineOptions(game.WithRand(rand.New(rand.NewSource(7)))),
	}
	return New(1, [2]Identity{userA, userB}, [2]game.AggregateSeed{}, false, outbox, onComplete, append(base, opts...)...)
}

func awaitCompletion(t *testing.T, done chan int) int {
	t.Helper()
	select {
	case winner := <-done:
		return winner
	case <-time.After(2 * time.Second):
		t.Fatal("completion callback never fired")
		return 0
	}
}

// forceRunning flips the match into live play without waiting out the
// countdown timer so ticks can be driven synthetically.
func forceRunning(m *Match) {
	m.mu.Lock()
	m.status = StatusRunning
	m.mu.Unlock()
}

// tickUntilScore parks both paddles at the top and steps the simulation until
// the scoreboard changes, returning the leading slot and the advanced clock.
// Paddle hits keep multiplying the ball speed, so every rally terminates.
func tickUntilScore(t *testing.T, m *Match, from time.Time) (int, time.Time) {
	t.Helper()
	start := m.Scores()
	now := from
	for i := 0; i < 5000; i++ {
		for j := 0; j < 4; j++ {
			m.MovePaddle(userA.ID, true)
			m.MovePaddle(userB.ID, true)
		}
		now = now.Add(game.TickPeriod)
		m.tick(now)
		if m.Scores() != start {
			return m.engine.Leader(), now
		}
	}
	t.Fatal("no score after 5000 ticks")
	return -1, now
}

func TestJoinDeadlineAbortsMatch(t *testing.T) {
	outbox := newStubOutbox()
	done := make(chan int, 1)
	m := newTestMatch(outbox, done, WithJoinDeadline(20*time.Millisecond))

	if winner := awaitCompletion(t, done); winner != -1 {
		t.Fatalf("expected no winner on abort, got slot %d", winner)
	}
	if got := m.Status(); got != StatusAborted {
		t.Fatalf("expected Aborted, got %v", got)
	}
}

func TestBothReadyStartsPreGame(t *testing.T) {
	outbox := newStubOutbox()
	done := make(chan int, 1)
	m := newTestMatch(outbox, done)

	if err := m.PlayerReady(userA.ID); err != nil {
		t.Fatalf("ready A: %v", err)
	}
	if got := m.Status(); got != StatusWaiting {
		t.Fatalf("one ready player should not start the match: %v", got)
	}
	if err := m.PlayerReady(userB.ID); err != nil {
		t.Fatalf("ready B: %v", err)
	}
	if got := m.Status(); got != StatusPreGame {
		t.Fatalf("expected PreGame, got %v", got)
	}
	for _, user := range []Identity{userA, userB} {
		states := outbox.payloads(user.ID, "initial_game_state")
		if len(states) != 1 {
			t.Fatalf("expected one initial_game_state for %d, got %d", user.ID, len(states))
		}
	}
	slotA := outbox.payloads(userA.ID, "initial_game_state")[0].(InitialStatePayload)
	slotB := outbox.payloads(userB.ID, "initial_game_state")[0].(InitialStatePayload)
	if slotA.PlayerID != 0 || slotB.PlayerID != 1 {
		t.Fatalf("slot assignment wrong: %d / %d", slotA.PlayerID, slotB.PlayerID)
	}
}

func TestReadyRejectsOutsiderAndDoubleJoin(t *testing.T) {
	outbox := newStubOutbox()
	done := make(chan int, 1)
	m := newTestMatch(outbox, done)

	if err := m.PlayerReady(999); err != ErrNotParticipant {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
	if err := m.PlayerReady(userA.ID); err != nil {
		t.Fatalf("ready A: %v", err)
	}
	if err := m.PlayerReady(userA.ID); err != ErrNotAccepting {
		t.Fatalf("expected ErrNotAccepting on double join, got %v", err)
	}
}

func TestDisconnectPausesAndNotifiesPeer(t *testing.T) {
	outbox := newStubOutbox()
	done := make(chan int, 1)
	m := newTestMatch(outbox, done, WithReconnectWindow(time.Hour))
	m.PlayerReady(userA.ID)
	m.PlayerReady(userB.ID)
	forceRunning(m)

	m.OnDisconnect(userA.ID)

	if got := m.Status(); got != StatusPaused {
		t.Fatalf("expected Paused, got %v", got)
	}
	paused := outbox.payloads(userB.ID, "game_paused")
	if len(paused) != 1 {
		t.Fatalf("peer should receive one game_paused, got %d", len(paused))
	}
	payload := paused[0].(PausedPayload)
	want := m.Deadline().Add(pausedNoticeSlack).UnixMilli()
	if payload.TimeoutTS != want {
		t.Fatalf("pause notice deadline mismatch: got %d want %d", payload.TimeoutTS, want)
	}
	if !m.AwaitingReconnect(userA.ID) {
		t.Fatal("disconnected player should be awaiting reconnect")
	}
}

func TestTiedScoreAbortsAtReconnectDeadline(t *testing.T) {
	outbox := newStubOutbox()
	done := make(chan int, 1)
	m := newTestMatch(outbox, done, WithReconnectWindow(30*time.Millisecond))
	m.PlayerReady(userA.ID)
	m.PlayerReady(userB.ID)
	forceRunning(m)

	m.OnDisconnect(userA.ID)

	if winner := awaitCompletion(t, done); winner != -1 {
		t.Fatalf("tied score must abort, got winner slot %d", winner)
	}
	if got := m.Status(); got != StatusAborted {
		t.Fatalf("expected Aborted, got %v", got)
	}
}

func TestConnectedLeaderWinsAtReconnectDeadline(t *testing.T) {
	outbox := newStubOutbox()
	done := make(chan int, 1)
	m := newTestMatch(outbox, done, WithReconnectWindow(30*time.Millisecond))
	m.PlayerReady(userA.ID)
	m.PlayerReady(userB.ID)
	forceRunning(m)
	leader, _ := tickUntilScore(t, m, time.Now())
	trailing := m.User(1 - leader)
	scores := m.Scores()

	m.OnDisconnect(trailing.ID)

	winner := awaitCompletion(t, done)
	if winner != leader {
		t.Fatalf("expected leader slot %d to win, got %d", leader, winner)
	}
	if got := m.Status(); got != StatusFinished {
		t.Fatalf("expected Finished, got %v", got)
	}
	finished := outbox.payloads(m.User(leader).ID, "game_finished")
	if len(finished) != 1 {
		t.Fatalf("leader should receive game_finished, got %d", len(finished))
	}
	payload := finished[0].(FinishedPayload)
	if payload.Score != scores {
		t.Fatalf("score must stay frozen: got %v want %v", payload.Score, scores)
	}
	if payload.Winner.ID != m.User(leader).ID {
		t.Fatalf("winner identity mismatch: %+v", payload.Winner)
	}
}

func TestAbsentLeaderAbortsAtReconnectDeadline(t *testing.T) {
	outbox := newStubOutbox()
	done := make(chan int, 1)
	m := newTestMatch(outbox, done, WithReconnectWindow(30*time.Millisecond))
	m.PlayerReady(userA.ID)
	m.PlayerReady(userB.ID)
	forceRunning(m)
	leader, _ := tickUntilScore(t, m, time.Now())

	m.OnDisconnect(m.User(leader).ID)

	if winner := awaitCompletion(t, done); winner != -1 {
		t.Fatalf("absent leader must abort, got winner slot %d", winner)
	}
	if got := m.Status(); got != StatusAborted {
		t.Fatalf("expected Aborted, got %v", got)
	}
}

func TestSecondDisconnectForcesImmediateResolution(t *testing.T) {
	outbox := newStubOutbox()
	done := make(chan int, 1)
	m := newTestMatch(outbox, done, WithReconnectWindow(time.Hour))
	m.PlayerReady(userA.ID)
	m.PlayerReady(userB.ID)
	forceRunning(m)

	m.OnDisconnect(userA.ID)
	if err := m.PlayerReady(userA.ID); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if got := m.Status(); got != StatusPreGame {
		t.Fatalf("rejoin with both ready should restart the countdown: %v", got)
	}
	forceRunning(m)

	m.OnDisconnect(userA.ID)

	if winner := awaitCompletion(t, done); winner != -1 {
		t.Fatalf("tied second disconnect must abort, got winner slot %d", winner)
	}
	if got := m.Status(); got != StatusAborted {
		t.Fatalf("expected Aborted, got %v", got)
	}
}

func TestScoreLimitFinishesMatch(t *testing.T) {
	outbox := newStubOutbox()
	done := make(chan int, 1)
	m := newTestMatch(outbox, done)
	m.PlayerReady(userA.ID)
	m.PlayerReady(userB.ID)
	forceRunning(m)

	now := time.Now()
	var leader int
	for m.Status() == StatusRunning {
		leader, now = tickUntilScore(t, m, now)
		// Let ticks continue; tickUntilScore returns on every score change.
		scores := m.Scores()
		if scores[0] > game.ScoreLimit || scores[1] > game.ScoreLimit {
			t.Fatalf("score exceeded the limit: %v", scores)
		}
	}

	winner := awaitCompletion(t, done)
	if winner != leader {
		t.Fatalf("expected slot %d as winner, got %d", leader, winner)
	}
	if got := m.Status(); got != StatusFinished {
		t.Fatalf("expected Finished, got %v", got)
	}
	scores := m.Scores()
	if scores[winner] != game.ScoreLimit {
		t.Fatalf("winner should hold exactly the score limit: %v", scores)
	}
}

func TestStaleJoinDeadlineIsIgnoredAfterStart(t *testing.T) {
	outbox := newStubOutbox()
	done := make(chan int, 1)
	m := newTestMatch(outbox, done, WithJoinDeadline(30*time.Millisecond))
	m.PlayerReady(userA.ID)
	m.PlayerReady(userB.ID)

	time.Sleep(80 * time.Millisecond)
	if got := m.Status(); got != StatusPreGame {
		t.Fatalf("join deadline must not fire after both players joined: %v", got)
	}
	select {
	case winner := <-done:
		t.Fatalf("unexpected completion with winner slot %d", winner)
	default:
	}
}
