package game

import (
	"math"
	"time"
)

// The playfield is simulated at a fixed logical resolution; clients scale the
// snapshots to whatever they render at.
const (
	FieldWidth  = 960.0
	FieldHeight = 540.0
)

const (
	BallSize         = FieldHeight * 0.025
	BallInitialSpeed = 12.0
	// BallSpeedIncreaseFactor multiplies ball speed on every paddle hit.
	BallSpeedIncreaseFactor = 1.10
	// BallSpeedDampenFactor bleeds off speed on every wall bounce.
	BallSpeedDampenFactor = 0.95
	// Serve angles are drawn uniformly within this symmetric range around the horizontal.
	BallSpawnMinAngle = -60 * math.Pi / 180
	BallSpawnMaxAngle = 60 * math.Pi / 180
)

const (
	PaddleWidth  = FieldWidth * 0.015
	PaddleHeight = FieldHeight * 0.15
	PaddleSpeed  = FieldWidth * 0.02
	// PaddleInitialPosOffset shifts the paddle start position above the vertical center.
	PaddleInitialPosOffset = 0.07
	// PaddleHitAngleRange maps the strike offset within the paddle to a bounded
	// reflection angle, in radians.
	PaddleHitAngleRange = 0.7
)

const (
	ScoreLimit = 5
	// ReserveDelay is how long the ball rests past the scoring boundary before
	// it is served again.
	ReserveDelay = 2 * time.Second
	// TickPeriod is the fixed simulation timestep.
	TickPeriod = time.Second / 30
)

const (
	MaxPowerUps     = 5
	PowerUpDuration = 10 * time.Second
	PowerUpWidth    = FieldHeight * 0.03
	PowerUpHeight   = FieldHeight * 0.07
	// Unclaimed power-ups bob sinusoidally; purely cosmetic.
	PowerUpFloatAmplitude = 3.0
	PowerUpFloatFrequency = 0.06

	powerUpFirstSpawnMin = 6 * time.Second
	powerUpFirstSpawnMax = 10 * time.Second
	powerUpNextSpawnMin  = 11 * time.Second
	powerUpNextSpawnMax  = 20 * time.Second

	// SpeedBoostFactor multiplies paddle speed while the boost is active.
	SpeedBoostFactor = 1.5
	// ExtensionFactor multiplies paddle height while the extension is active.
	ExtensionFactor = 2.0
)
