package game

// PlayerPowerUpState is the client-facing view of a claimed power-up.
type PlayerPowerUpState struct {
	Kind      string `json:"type"`
	ExpiresAt int64  `json:"expires_at"`
}

// PlayerState is one player's slice of a tick snapshot.
type PlayerState struct {
	Score    int                 `json:"score"`
	Position float64             `json:"position"`
	PowerUp  *PlayerPowerUpState `json:"powerup"`
}

// BallState is the ball's slice of a tick snapshot.
type BallState struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FloatingPowerUp is an un-claimed power-up visible on the field.
type FloatingPowerUp struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Kind string  `json:"type"`
}

// State is the authoritative snapshot broadcast to both players every tick.
type State struct {
	Players  [2]PlayerState    `json:"players"`
	Ball     BallState         `json:"ball"`
	PowerUps []FloatingPowerUp `json:"powerups"`
}

// Snapshot assembles the broadcast view of the current tick.
func (e *Engine) Snapshot() State {
	state := State{
		Ball:     BallState{X: e.ball.X, Y: e.ball.Y},
		PowerUps: []FloatingPowerUp{},
	}
	for slot := 0; slot < 2; slot++ {
		ps := PlayerState{
			Score:    e.scores[slot],
			Position: e.paddles[slot].Y,
		}
		if active := e.powerups.ActiveFor(slot); active != nil {
			ps.PowerUp = &PlayerPowerUpState{
				Kind:      active.Kind.String(),
				ExpiresAt: active.ExpiresAt.UnixMilli(),
			}
		}
		state.Players[slot] = ps
	}
	for _, p := range e.powerups.Floating() {
		state.PowerUps = append(state.PowerUps, FloatingPowerUp{X: p.X, Y: p.Y, Kind: p.Kind.String()})
	}
	return state
}
