package game

import (
	"math/rand"
	"testing"
	"time"
)

func newTestManager() *PowerUpManager {
	paddles := [2]*Paddle{newPaddle(true), newPaddle(false)}
	return NewPowerUpManager(paddles, rand.New(rand.NewSource(7)))
}

func TestSpawnAfterDelayRespectsCap(t *testing.T) {
	m := newTestManager()
	start := time.Unix(1000, 0)
	m.Start(start)

	m.Update(start.Add(time.Second))
	if len(m.Floating()) != 0 {
		t.Fatal("spawned before the first spawn delay elapsed")
	}

	m.Update(start.Add(powerUpFirstSpawnMax + time.Second))
	if len(m.Floating()) != 1 {
		t.Fatalf("expected one power-up, got %d", len(m.Floating()))
	}

	// While an un-claimed power-up is on the field no further spawns happen.
	m.Update(start.Add(powerUpFirstSpawnMax + powerUpNextSpawnMax + 2*time.Second))
	if len(m.Floating()) != 1 {
		t.Fatalf("spawned while one was still pending, got %d", len(m.Floating()))
	}

	p := m.Floating()[0]
	if p.X < FieldWidth*0.3 || p.X > FieldWidth*0.7+1 {
		t.Fatalf("spawn x %f outside the spawn band", p.X)
	}
	if p.Y < FieldHeight*0.1-PowerUpFloatAmplitude || p.Y > FieldHeight*0.9+PowerUpFloatAmplitude+1 {
		t.Fatalf("spawn y %f outside the spawn band", p.Y)
	}
}

func TestActivateAppliesAndExpiryReverts(t *testing.T) {
	m := newTestManager()
	now := time.Unix(1000, 0)
	m.Start(now)

	p := &PowerUp{Kind: SpeedBoost, Width: PowerUpWidth, Height: PowerUpHeight, ActivatedBy: -1}
	m.powerups = append(m.powerups, p)

	m.Activate(0, p, now)
	if m.paddles[0].Speed != PaddleSpeed*SpeedBoostFactor {
		t.Fatalf("speed boost not applied: %f", m.paddles[0].Speed)
	}
	active := m.ActiveFor(0)
	if active == nil || active.Kind != SpeedBoost {
		t.Fatalf("active power-up not tracked: %+v", active)
	}

	// A second activation attempt on a claimed power-up is a no-op.
	m.Activate(1, p, now)
	if m.ActiveFor(1) != nil {
		t.Fatal("claimed power-up must not activate for the other player")
	}

	m.Update(now.Add(PowerUpDuration + time.Millisecond))
	if m.paddles[0].Speed != PaddleSpeed {
		t.Fatalf("speed boost not reverted: %f", m.paddles[0].Speed)
	}
	if m.ActiveFor(0) != nil {
		t.Fatal("active power-up not cleared after expiry")
	}
}

func TestExtensionChangesPaddleHeight(t *testing.T) {
	m := newTestManager()
	now := time.Unix(1000, 0)
	p := &PowerUp{Kind: PaddleExtension, ActivatedBy: -1}
	m.powerups = append(m.powerups, p)

	m.Activate(1, p, now)
	if m.paddles[1].Height != PaddleHeight*ExtensionFactor {
		t.Fatalf("extension not applied: %f", m.paddles[1].Height)
	}
	m.Update(now.Add(PowerUpDuration + time.Millisecond))
	if m.paddles[1].Height != PaddleHeight {
		t.Fatalf("extension not reverted: %f", m.paddles[1].Height)
	}
}

func TestPauseShiftsDeadlines(t *testing.T) {
	m := newTestManager()
	now := time.Unix(1000, 0)
	m.Start(now)

	p := &PowerUp{Kind: SpeedBoost, ActivatedBy: -1}
	m.powerups = append(m.powerups, p)
	m.Activate(0, p, now)

	// 10s of effect remain. Pause for 30s; the effect must still have ~10s
	// remaining after resume, not zero and not forty.
	m.Pause(now)
	resumeAt := now.Add(30 * time.Second)
	m.Resume(resumeAt)

	m.Update(resumeAt.Add(PowerUpDuration - time.Second))
	if m.ActiveFor(0) == nil {
		t.Fatal("power-up expired during the pause window")
	}
	m.Update(resumeAt.Add(PowerUpDuration + time.Second))
	if m.ActiveFor(0) != nil {
		t.Fatal("power-up survived past its shifted expiry")
	}
}

func TestResumeBeforeStartArmsFirstSpawnWindow(t *testing.T) {
	m := newTestManager()
	now := time.Unix(1000, 0)

	// Disconnect during the countdown pauses the match before Start ever
	// ran; resuming must still honour the first-spawn delay.
	m.Pause(now)
	resumeAt := now.Add(time.Minute)
	m.Resume(resumeAt)

	m.Update(resumeAt.Add(TickPeriod))
	if len(m.Floating()) != 0 {
		t.Fatal("power-up spawned before the first-spawn window elapsed")
	}
	m.Update(resumeAt.Add(powerUpFirstSpawnMax + time.Second))
	if len(m.Floating()) != 1 {
		t.Fatalf("expected one power-up after the window, got %d", len(m.Floating()))
	}
}

func TestFloatingAnimationIsCosmetic(t *testing.T) {
	m := newTestManager()
	now := time.Unix(1000, 0)
	m.Start(now)
	m.Update(now.Add(powerUpFirstSpawnMax + time.Second))
	p := m.Floating()[0]
	base := p.baseY

	for i := 0; i < 200; i++ {
		m.Update(now.Add(powerUpFirstSpawnMax + time.Second + time.Duration(i)*TickPeriod))
		if p.Y < base-PowerUpFloatAmplitude-1e-9 || p.Y > base+PowerUpFloatAmplitude+1e-9 {
			t.Fatalf("float drifted outside the amplitude band: y=%f base=%f", p.Y, base)
		}
	}
}
