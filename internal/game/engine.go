package game

import (
	"math"
	"math/rand"
	"time"
)

// Engine simulates one match worth of continuous-motion physics: the ball, the
// two paddles, scoring and the optional power-ups. It holds no locks and no
// clock of its own; the owning match serializes access and passes the current
// time into every call, which keeps the whole simulation deterministic under
// test.
type Engine struct {
	ball    Ball
	paddles [2]*Paddle
	scores  [2]int
	stats   [2]*PlayerStats

	powerups *PowerUpManager

	rng *rand.Rand

	// lastPaddleHit is the slot of the player who last returned the ball, or
	// -1 at the start of a rally. Wall bounces and power-up pickups are
	// attributed to this player.
	lastPaddleHit int
	ballHitWall   bool

	// lastScorer is non-negative while the ball rests past the scoring
	// boundary waiting for the re-serve delay.
	lastScorer   int
	lastScoredAt time.Time
}

// Option configures optional engine parameters at construction time.
type Option func(*Engine)

// WithRand injects a deterministic random source, primarily for tests.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		if rng != nil {
			e.rng = rng
		}
	}
}

// NewEngine builds the playfield for two players. The stats pair is indexed by
// player slot; powerups are only simulated when enabled.
func NewEngine(stats [2]*PlayerStats, enablePowerups bool, opts ...Option) *Engine {
	e := &Engine{
		ball:          newBall(),
		paddles:       [2]*Paddle{newPaddle(true), newPaddle(false)},
		stats:         stats,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		lastPaddleHit: -1,
		lastScorer:    -1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if enablePowerups {
		e.powerups = NewPowerUpManager(e.paddles, e.rng)
	}
	return e
}

// Serve launches the ball toward a random side with a randomized angle.
func (e *Engine) Serve() {
	side := 1.0
	if e.rng.Float64() > 0.5 {
		side = -1.0
	}
	angle := e.serveAngle()
	e.ball.VX = BallInitialSpeed * side * math.Cos(angle)
	e.ball.VY = BallInitialSpeed * math.Sin(angle)
}

// Begin arms the power-up spawner once live play starts. Serve happens during
// the countdown; spawn delays only count from the first running tick.
func (e *Engine) Begin(now time.Time) {
	if e.powerups != nil {
		e.powerups.Start(now)
	}
}

// Pause freezes power-up deadlines while the match is paused.
func (e *Engine) Pause(now time.Time) {
	if e.powerups != nil {
		e.powerups.Pause(now)
	}
}

// Resume shifts power-up deadlines by the elapsed pause duration.
func (e *Engine) Resume(now time.Time) {
	if e.powerups != nil {
		e.powerups.Resume(now)
	}
}

// TickOutcome reports what one simulation step produced.
type TickOutcome struct {
	// Scored is the slot that scored this tick, or -1.
	Scored int
	// LimitReached is set once either score hits the configured limit.
	LimitReached bool
}

// Tick advances the simulation by one fixed step.
func (e *Engine) Tick(now time.Time) TickOutcome {
	outcome := TickOutcome{Scored: -1}
	if e.powerups != nil {
		e.powerups.Update(now)
	}
	e.checkBallCollision(now, &outcome)
	e.updateBallPosition(now)
	e.handlePaddleCollision(0)
	e.handlePaddleCollision(1)
	e.handlePowerUpCollision(now)
	if e.scores[0] >= ScoreLimit || e.scores[1] >= ScoreLimit {
		outcome.LimitReached = true
	}
	return outcome
}

// MovePaddle applies one move intent for the slot. Movement is clamped inside
// the paddle itself, so malformed input cannot push a paddle out of bounds.
func (e *Engine) MovePaddle(slot int, up bool) {
	if slot < 0 || slot > 1 {
		return
	}
	if up {
		e.paddles[slot].MoveUp()
	} else {
		e.paddles[slot].MoveDown()
	}
}

// Score reports the running score for the slot.
func (e *Engine) Score(slot int) int {
	if slot < 0 || slot > 1 {
		return 0
	}
	return e.scores[slot]
}

// Ball exposes a copy of the ball for snapshots and tests.
func (e *Engine) Ball() Ball { return e.ball }

// Paddle exposes the paddle for the slot.
func (e *Engine) Paddle(slot int) *Paddle {
	if slot < 0 || slot > 1 {
		return nil
	}
	return e.paddles[slot]
}

// Stats exposes the per-match counters for the slot.
func (e *Engine) Stats(slot int) *PlayerStats {
	if slot < 0 || slot > 1 {
		return nil
	}
	return e.stats[slot]
}

// PowerUps exposes the power-up manager, nil for the standard variant.
func (e *Engine) PowerUps() *PowerUpManager { return e.powerups }

// Leader returns the slot with the strictly higher score, or -1 on a tie.
func (e *Engine) Leader() int {
	switch {
	case e.scores[0] > e.scores[1]:
		return 0
	case e.scores[1] > e.scores[0]:
		return 1
	default:
		return -1
	}
}

func (e *Engine) serveAngle() float64 {
	return BallSpawnMinAngle + e.rng.Float64()*(BallSpawnMaxAngle-BallSpawnMinAngle)
}

func (e *Engine) checkBallCollision(now time.Time, outcome *TickOutcome) {
	switch {
	case e.ball.X <= 0 && e.lastScorer < 0:
		e.applyScore(1, now)
		outcome.Scored = 1
	case e.ball.X >= FieldWidth-e.ball.Width && e.lastScorer < 0:
		e.applyScore(0, now)
		outcome.Scored = 0
	default:
		if e.ball.Y <= 0 || e.ball.Y >= FieldHeight-e.ball.Height {
			e.ball.VY = -e.ball.VY * BallSpeedDampenFactor
			e.ballHitWall = true
			if e.lastPaddleHit >= 0 {
				e.stats[e.lastPaddleHit].OnWallBounce()
			}
		}
	}
}

func (e *Engine) applyScore(scorer int, now time.Time) {
	conceder := 1 - scorer
	e.scores[scorer]++
	e.stats[conceder].OnPaddleMiss()
	if !e.ballHitWall {
		e.stats[scorer].OnWallMiss()
	}
	e.ballHitWall = false
	e.stats[0].OnScoreUpdate(e.scores[0], e.scores[1], scorer == 0)
	e.stats[1].OnScoreUpdate(e.scores[1], e.scores[0], scorer == 1)
	e.lastScorer = scorer
	e.lastScoredAt = now
	e.lastPaddleHit = -1
	e.ball.VX = 0
	e.ball.VY = 0
	// Park the ball just past the boundary it crossed until the re-serve.
	if e.ball.X <= 0 {
		e.ball.X -= e.ball.Width * 2
	} else {
		e.ball.X += e.ball.Width * 2
	}
}

func (e *Engine) updateBallPosition(now time.Time) {
	if e.lastScorer >= 0 && now.Sub(e.lastScoredAt) > ReserveDelay {
		// Re-serve biased toward the side of the player who conceded.
		side := -1.0
		if e.lastScorer == 0 {
			side = 1.0
		}
		angle := e.serveAngle()
		e.ball.VX = BallInitialSpeed * side * math.Cos(angle)
		e.ball.VY = BallInitialSpeed * math.Sin(angle)
		e.ball.Y = math.Floor(e.rng.Float64() * (FieldHeight - e.ball.Height))
		e.ball.X = FieldWidth/2 - BallSize/2
		e.lastScorer = -1
		return
	}
	e.ball.X += e.ball.VX
	e.ball.Y += e.ball.VY
	e.ball.Y = math.Max(0, math.Min(FieldHeight-e.ball.Height, e.ball.Y))
}

func (e *Engine) handlePaddleCollision(slot int) {
	paddle := e.paddles[slot]
	if e.ball.X-e.ball.Width > paddle.X ||
		e.ball.X < paddle.X-paddle.Width ||
		e.ball.Y > paddle.Y+paddle.Height ||
		e.ball.Y+e.ball.Height < paddle.Y {
		return
	}

	// Strike offset within the paddle maps to a bounded reflection angle.
	offset := (e.ball.Y + e.ball.Height/2 - paddle.Y) / paddle.Height
	angle := offset*PaddleHitAngleRange - PaddleHitAngleRange/2
	direction := -1.0
	if slot == 0 {
		direction = 1.0
	}
	speed := math.Sqrt(e.ball.VX*e.ball.VX + e.ball.VY*e.ball.VY)

	e.ball.VX = speed * direction * math.Cos(angle) * BallSpeedIncreaseFactor
	e.ball.VY = speed * math.Sin(angle) * BallSpeedIncreaseFactor

	if slot == 0 {
		e.ball.X = paddle.X + e.ball.Width
	} else {
		e.ball.X = paddle.X - e.ball.Width
	}

	e.stats[slot].OnPaddleHit(offset)
	e.lastPaddleHit = slot
}

func (e *Engine) handlePowerUpCollision(now time.Time) {
	if e.powerups == nil || e.lastPaddleHit < 0 || e.powerups.ActiveFor(e.lastPaddleHit) != nil {
		return
	}
	for _, p := range e.powerups.Floating() {
		if e.ball.X <= p.X+p.Width &&
			e.ball.X+e.ball.Width >= p.X &&
			e.ball.Y <= p.Y+p.Height &&
			e.ball.Y+e.ball.Height >= p.Y {
			e.powerups.Activate(e.lastPaddleHit, p, now)
		}
	}
}
