package game

// Ball is the single authoritative ball of a match. Mutated only by the engine
// tick.
type Ball struct {
	X, Y   float64
	VX, VY float64
	Width  float64
	Height float64
}

func newBall() Ball {
	return Ball{
		X:      FieldWidth/2 - BallSize/2,
		Y:      FieldHeight / 2,
		Width:  BallSize,
		Height: BallSize,
	}
}

// Paddle is a player's paddle. Position changes only through move intents and
// power-up effects.
type Paddle struct {
	X, Y   float64
	Width  float64
	Height float64
	Speed  float64

	left bool
}

func newPaddle(left bool) *Paddle {
	p := &Paddle{
		Width:  PaddleWidth,
		Height: PaddleHeight,
		Speed:  PaddleSpeed,
		left:   left,
	}
	p.ResetPosition()
	return p
}

// ResetPosition places the paddle at its starting spot on its own side.
func (p *Paddle) ResetPosition() {
	if p.left {
		p.X = 0
	} else {
		p.X = FieldWidth - p.Width
	}
	p.Y = FieldHeight/2 - FieldHeight*PaddleInitialPosOffset
}

// MoveUp shifts the paddle one speed step up, clamped to the playfield.
func (p *Paddle) MoveUp() {
	p.Y -= p.Speed
	if p.Y < 0 {
		p.Y = 0
	}
}

// MoveDown shifts the paddle one speed step down, clamped to the playfield.
func (p *Paddle) MoveDown() {
	p.Y += p.Speed
	if p.Y > FieldHeight-p.Height {
		p.Y = FieldHeight - p.Height
	}
}
