package game

import (
	"math"
	"math/rand"
	"time"
)

// PowerUpKind enumerates the transient paddle modifiers.
type PowerUpKind int

const (
	SpeedBoost PowerUpKind = iota
	PaddleExtension
)

func (k PowerUpKind) String() string {
	switch k {
	case SpeedBoost:
		return "speed_boost"
	case PaddleExtension:
		return "paddle_extension"
	default:
		return "unknown"
	}
}

// PowerUp is one spawned modifier, floating un-claimed until a paddle hit
// routes the ball through it.
type PowerUp struct {
	X, Y   float64
	Width  float64
	Height float64
	Kind   PowerUpKind

	baseY float64
	angle float64

	// ActivatedBy is the claiming player slot, or -1 while floating.
	ActivatedBy int
	ExpiresAt   time.Time
}

// ActivePowerUp is the per-player view of a claimed power-up, carried in
// snapshots so the client can render the remaining duration.
type ActivePowerUp struct {
	Kind      PowerUpKind
	ExpiresAt time.Time
}

// PowerUpManager spawns, floats, activates and expires power-ups for one
// match. It is only constructed for the power-ups-enabled variant and is
// driven exclusively from the match tick, so it needs no locking of its own.
type PowerUpManager struct {
	powerups    []*PowerUp
	paddles     [2]*Paddle
	active      [2]*ActivePowerUp
	nextSpawnAt time.Time
	pausedAt    time.Time
	rng         *rand.Rand
}

// NewPowerUpManager wires the manager to the two paddles it may modify.
func NewPowerUpManager(paddles [2]*Paddle, rng *rand.Rand) *PowerUpManager {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &PowerUpManager{
		paddles: paddles,
		rng:     rng,
	}
}

// Start schedules the first spawn.
func (m *PowerUpManager) Start(now time.Time) {
	m.nextSpawnAt = now.Add(randDuration(m.rng, powerUpFirstSpawnMin, powerUpFirstSpawnMax))
}

// Pause freezes spawn and expiry deadlines.
func (m *PowerUpManager) Pause(now time.Time) {
	m.pausedAt = now
}

// Resume shifts all pending deadlines by the elapsed pause duration so
// wall-clock pauses do not count against power-up timers.
func (m *PowerUpManager) Resume(now time.Time) {
	if m.pausedAt.IsZero() {
		return
	}
	elapsed := now.Sub(m.pausedAt)
	m.pausedAt = time.Time{}
	if m.nextSpawnAt.IsZero() {
		// Paused before Start ever armed the first spawn, so arm the
		// first-spawn window now instead of shifting the zero time.
		m.Start(now)
	} else {
		m.nextSpawnAt = m.nextSpawnAt.Add(elapsed)
	}
	for slot, ap := range m.active {
		if ap == nil {
			continue
		}
		ap.ExpiresAt = ap.ExpiresAt.Add(elapsed)
		for _, p := range m.powerups {
			if p.ActivatedBy == slot {
				p.ExpiresAt = p.ExpiresAt.Add(elapsed)
			}
		}
	}
}

// Update advances the floating animation, expires due power-ups and spawns a
// new one once none are pending and the cap allows it.
func (m *PowerUpManager) Update(now time.Time) {
	hasUnclaimed := false
	kept := m.powerups[:0]
	for _, p := range m.powerups {
		if p.ActivatedBy >= 0 && now.After(p.ExpiresAt) {
			m.deactivate(p)
			continue
		}
		if p.ActivatedBy < 0 {
			hasUnclaimed = true
			p.Y = p.baseY + PowerUpFloatAmplitude*math.Sin(p.angle)
			p.angle += PowerUpFloatFrequency
		}
		kept = append(kept, p)
	}
	m.powerups = kept
	if !hasUnclaimed && len(m.powerups) < MaxPowerUps && now.After(m.nextSpawnAt) {
		m.spawn()
		m.nextSpawnAt = now.Add(randDuration(m.rng, powerUpNextSpawnMin, powerUpNextSpawnMax))
	}
}

// Activate binds the power-up to the player slot and applies its paddle effect.
func (m *PowerUpManager) Activate(slot int, p *PowerUp, now time.Time) {
	if p.ActivatedBy >= 0 || slot < 0 || slot > 1 {
		return
	}
	p.ActivatedBy = slot
	p.ExpiresAt = now.Add(PowerUpDuration)
	m.active[slot] = &ActivePowerUp{Kind: p.Kind, ExpiresAt: p.ExpiresAt}
	switch p.Kind {
	case SpeedBoost:
		m.paddles[slot].Speed = PaddleSpeed * SpeedBoostFactor
	case PaddleExtension:
		m.paddles[slot].Height = PaddleHeight * ExtensionFactor
	}
}

func (m *PowerUpManager) deactivate(p *PowerUp) {
	slot := p.ActivatedBy
	if slot < 0 || slot > 1 {
		return
	}
	switch p.Kind {
	case SpeedBoost:
		m.paddles[slot].Speed = PaddleSpeed
	case PaddleExtension:
		m.paddles[slot].Height = PaddleHeight
	}
	m.active[slot] = nil
	p.ActivatedBy = -1
}

// ActiveFor reports the claimed power-up for a player slot, or nil.
func (m *PowerUpManager) ActiveFor(slot int) *ActivePowerUp {
	if m == nil || slot < 0 || slot > 1 {
		return nil
	}
	return m.active[slot]
}

// Floating lists the un-claimed power-ups for state snapshots.
func (m *PowerUpManager) Floating() []*PowerUp {
	if m == nil {
		return nil
	}
	out := make([]*PowerUp, 0, len(m.powerups))
	for _, p := range m.powerups {
		if p.ActivatedBy < 0 {
			out = append(out, p)
		}
	}
	return out
}

func (m *PowerUpManager) spawn() {
	kind := SpeedBoost
	if m.rng.Float64() > 0.5 {
		kind = PaddleExtension
	}
	y := randBetween(m.rng, FieldHeight*0.1, FieldHeight*0.9)
	m.powerups = append(m.powerups, &PowerUp{
		X:           randBetween(m.rng, FieldWidth*0.3, FieldWidth*0.7),
		Y:           y,
		baseY:       y,
		Width:       PowerUpWidth,
		Height:      PowerUpHeight,
		Kind:        kind,
		ActivatedBy: -1,
	})
}

func randBetween(rng *rand.Rand, min, max float64) float64 {
	return math.Floor(rng.Float64()*(max-min+1) + min)
}

func randDuration(rng *rand.Rand, min, max time.Duration) time.Duration {
	return min + time.Duration(rng.Int63n(int64(max-min+1)))
}
