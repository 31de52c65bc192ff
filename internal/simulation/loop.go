package simulation

import (
	"context"
	"time"
)

// TickFunc advances the simulation one fixed step at the given wall-clock time.
type TickFunc func(now time.Time)

// Loop drives a fixed timestep simulation at the configured tick period.
type Loop struct {
	step     time.Duration
	tickFunc TickFunc
	ticker   *time.Ticker
	done     chan struct{}
}

// NewLoop configures a loop that fires the tick function once per period.
func NewLoop(period time.Duration, tick TickFunc) *Loop {
	if period <= 0 {
		period = time.Second / 30
	}
	if tick == nil {
		tick = func(time.Time) {}
	}
	return &Loop{
		step:     period,
		tickFunc: tick,
	}
}

// Start begins ticking until the context is cancelled or Stop is invoked.
func (l *Loop) Start(ctx context.Context) {
	if l == nil || l.tickFunc == nil {
		return
	}

	l.ticker = time.NewTicker(l.step)
	l.done = make(chan struct{})
	go func() {
		defer close(l.done)
		defer l.ticker.Stop()
		last := time.Now()
		accumulator := time.Duration(0)
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-l.ticker.C:
				//1.- Accumulate elapsed time and run fixed steps while catching up.
				accumulator += now.Sub(last)
				last = now
				for accumulator >= l.step {
					l.tickFunc(now)
					accumulator -= l.step
				}
			}
		}
	}()
}

// Stop cancels the loop and waits for the goroutine to exit.
func (l *Loop) Stop() {
	if l == nil {
		return
	}
	if l.ticker != nil {
		l.ticker.Stop()
	}
	if l.done != nil {
		<-l.done
		l.done = nil
	}
}

// StepDuration exposes the configured timestep for testing.
func (l *Loop) StepDuration() time.Duration {
	if l == nil {
		return 0
	}
	return l.step
}
