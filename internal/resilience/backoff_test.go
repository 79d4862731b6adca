package resilience

import (
	"testing"
	"time"
)

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		Factor:       2,
		Jitter:       func() float64 { return 1.0 },
	}

	// Attempt 1: 1*2^0 = 1s
	if d := b.Delay(1); d != 1*time.Second {
		t.Errorf("expected 1s, got %v", d)
	}

	// Attempt 2: 1*2^1 = 2s
	if d := b.Delay(2); d != 2*time.Second {
		t.Errorf("expected 2s, got %v", d)
	}

	// Attempt 3: 1*2^2 = 4s
	if d := b.Delay(3); d != 4*time.Second {
		t.Errorf("expected 4s, got %v", d)
	}

	// Attempt 10: Cap at MaxDelay (10s)
	if d := b.Delay(10); d != 10*time.Second {
		t.Errorf("expected 10s, got %v", d)
	}
}

func TestBackoff_UncappedDelayDoesNotOverflow(t *testing.T) {
	b := Backoff{
		InitialDelay: time.Second,
		Factor:       2,
		Jitter:       func() float64 { return 1.0 },
	}

	for _, attempt := range []int{40, 64, 200, 5000} {
		if d := b.Delay(attempt); d <= 0 {
			t.Errorf("attempt %d: expected positive delay, got %v", attempt, d)
		}
	}
}

func TestBackoff_JitterBounds(t *testing.T) {
	b := Backoff{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Factor:       2,
	}

	for i := 0; i < 200; i++ {
		d := b.Delay(2)
		if d < 100*time.Millisecond || d >= 200*time.Millisecond {
			t.Fatalf("delay %v outside [100ms, 200ms)", d)
		}
	}
}

func TestDefaultJitter_Range(t *testing.T) {
	for i := 0; i < 1000; i++ {
		j := DefaultJitter()
		if j < 0.5 || j >= 1.0 {
			t.Fatalf("jitter %v outside [0.5, 1.0)", j)
		}
	}
}
