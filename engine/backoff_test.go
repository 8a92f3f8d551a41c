package engine

import (
	"testing"
	"time"
)

func TestBackoffGrowsExponentially(t *testing.T) {
	p := &Policy{BackoffUnit: 10 * time.Millisecond}

	for attempt, want := range map[int]time.Duration{
		1: 20 * time.Millisecond,
		2: 40 * time.Millisecond,
		3: 80 * time.Millisecond,
	} {
		if got := p.backoff(attempt); got != want {
			t.Errorf("backoff(%d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestBackoffDefaultsUnit(t *testing.T) {
	p := &Policy{}
	if got := p.backoff(1); got != 2*DefaultBackoffUnit {
		t.Errorf("backoff(1) = %v, want %v", got, 2*DefaultBackoffUnit)
	}
}

func TestBackoffNeverOverflows(t *testing.T) {
	p := &Policy{}

	for attempt := 1; attempt <= 100; attempt++ {
		if d := p.backoff(attempt); d <= 0 {
			t.Fatalf("backoff(%d) = %v; a sleep duration must stay positive", attempt, d)
		}
	}

	// Past the cap, the backoff plateaus instead of growing.
	if p.backoff(64) != p.backoff(maxBackoffShift) {
		t.Errorf("Expected backoff to plateau at the cap, got %v vs %v",
			p.backoff(64), p.backoff(maxBackoffShift))
	}
}
