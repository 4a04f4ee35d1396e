package timeutil

import (
	"testing"
	"time"
)

func TestRealClock(t *testing.T) {
	var c Clock = RealClock{}
	start := c.Now()
	if c.Since(start) < 0 {
		t.Error("Since returned a negative duration")
	}
}

func TestMockClock_Advance(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(base)

	if !c.Now().Equal(base) {
		t.Fatalf("Now() = %v, want %v", c.Now(), base)
	}

	c.Advance(90 * time.Second)
	if got := c.Since(base); got != 90*time.Second {
		t.Errorf("Since() = %v, want 90s", got)
	}
	if !c.Now().Equal(base.Add(90 * time.Second)) {
		t.Errorf("Now() after Advance = %v", c.Now())
	}
}

func TestSteppingClock(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewSteppingClock(base, 2*time.Second)

	first := c.Now()
	second := c.Now()
	if !first.Equal(base) {
		t.Errorf("first Now() = %v, want %v", first, base)
	}
	if got := second.Sub(first); got != 2*time.Second {
		t.Errorf("step = %v, want 2s", got)
	}
	if got := c.Since(first); got != 4*time.Second {
		t.Errorf("Since(first) = %v, want 4s", got)
	}
}
