package pacing

import (
	"context"
	"testing"
	"time"
)

func TestPolicy_DelayBetween_Bounds(t *testing.T) {
	p := New(0, 0, 0, 0, nil)

	min := 10 * time.Millisecond
	max := 30 * time.Millisecond
	for i := 0; i < 5; i++ {
		start := time.Now()
		if err := p.DelayBetween(context.Background(), min, max); err != nil {
			t.Fatalf("DelayBetween failed: %v", err)
		}
		elapsed := time.Since(start)
		if elapsed < min {
			t.Errorf("Delay %v shorter than min %v", elapsed, min)
		}
		// Generous upper slack for scheduler jitter.
		if elapsed > max+50*time.Millisecond {
			t.Errorf("Delay %v far exceeds max %v", elapsed, max)
		}
	}
}

func TestPolicy_Delay_Cancellation(t *testing.T) {
	p := New(5*time.Second, 10*time.Second, 0, 0, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Delay(ctx)
	if err == nil {
		t.Error("Delay completed despite cancelled context, want error")
	}
	if time.Since(start) > time.Second {
		t.Error("Delay did not return promptly on cancellation")
	}
}

func TestUniform_DegenerateRange(t *testing.T) {
	d := 25 * time.Millisecond
	if got := uniform(d, d); got != d {
		t.Errorf("uniform(d, d) = %v, want %v", got, d)
	}
	if got := uniform(d, d-time.Millisecond); got != d {
		t.Errorf("uniform with inverted bounds = %v, want min %v", got, d)
	}
}

func TestHostLimiter_AllowRespectsBurst(t *testing.T) {
	h := NewHostLimiter(1.0, 2)

	if !h.Allow("example.com") {
		t.Error("First request denied, want allowed")
	}
	if !h.Allow("example.com") {
		t.Error("Second request denied within burst, want allowed")
	}
	if h.Allow("example.com") {
		t.Error("Third immediate request allowed, want denied")
	}

	// Other hosts have independent buckets.
	if !h.Allow("other.example.org") {
		t.Error("Request for fresh host denied, want allowed")
	}
}

func TestHostLimiter_EmptyHost(t *testing.T) {
	h := NewHostLimiter(1.0, 1)

	if err := h.Wait(context.Background(), ""); err != nil {
		t.Errorf("Wait with empty host failed: %v", err)
	}
}
