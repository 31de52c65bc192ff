package httpapi

import (
	"testing"
	"time"
)

func TestSlidingWindowLimiterEnforcesLimit(t *testing.T) {
	now := time.Unix(1700000000, 0)
	limiter := NewSlidingWindowLimiter(time.Minute, 2, func() time.Time { return now })

	if !limiter.Allow() {
		t.Fatal("first call should pass")
	}
	if !limiter.Allow() {
		t.Fatal("second call should pass")
	}
	if limiter.Allow() {
		t.Fatal("third call should be rejected")
	}

	now = now.Add(45 * time.Second)
	if limiter.Allow() {
		t.Fatal("call inside the window should still be rejected")
	}

	now = now.Add(16 * time.Second)
	if !limiter.Allow() {
		t.Fatal("call after the window expires should pass")
	}
}

func TestSlidingWindowLimiterZeroConfigAllowsAll(t *testing.T) {
	limiter := NewSlidingWindowLimiter(0, 0, nil)
	for i := 0; i < 10; i++ {
		if !limiter.Allow() {
			t.Fatalf("call %d rejected by disabled limiter", i)
		}
	}
}

func TestSlidingWindowLimiterNilIsSafe(t *testing.T) {
	var limiter *SlidingWindowLimiter
	if !limiter.Allow() {
		t.Fatal("nil limiter should allow")
	}
}
