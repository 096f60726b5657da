package retry

import (
	"testing"
	"time"
)

func TestCalculateDelayExponential(t *testing.T) {
	policy := Policy{
		MaxRetries:      5,
		InitialDelay:    time.Second,
		MaxDelay:        time.Minute,
		BackoffStrategy: BackoffExponential,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: 0},
		{attempt: 1, want: time.Second},
		{attempt: 2, want: 2 * time.Second},
		{attempt: 3, want: 4 * time.Second},
		{attempt: 4, want: 8 * time.Second},
	}
	for _, tt := range tests {
		if got := policy.CalculateDelay(tt.attempt); got != tt.want {
			t.Errorf("CalculateDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestCalculateDelayCapped(t *testing.T) {
	policy := Policy{
		InitialDelay:    time.Second,
		MaxDelay:        5 * time.Second,
		BackoffStrategy: BackoffExponential,
	}
	if got := policy.CalculateDelay(10); got != 5*time.Second {
		t.Errorf("CalculateDelay(10) = %v, want cap of 5s", got)
	}
}

func TestCalculateDelayLinear(t *testing.T) {
	policy := Policy{
		InitialDelay:    time.Second,
		MaxDelay:        time.Minute,
		BackoffStrategy: BackoffLinear,
	}
	if got := policy.CalculateDelay(3); got != 3*time.Second {
		t.Errorf("CalculateDelay(3) = %v, want 3s", got)
	}
}

func TestCalculateDelayJitterBounds(t *testing.T) {
	policy := Policy{
		InitialDelay:    4 * time.Second,
		MaxDelay:        time.Minute,
		BackoffStrategy: BackoffFixed,
		JitterFactor:    0.25,
	}

	for i := 0; i < 100; i++ {
		got := policy.CalculateDelay(1)
		if got < 3*time.Second || got > 5*time.Second {
			t.Fatalf("CalculateDelay with 25%% jitter = %v, outside [3s, 5s]", got)
		}
	}
}

func TestShouldRetry(t *testing.T) {
	policy := Policy{MaxRetries: 3}
	if !policy.ShouldRetry(2) {
		t.Error("ShouldRetry(2) = false, want true")
	}
	if policy.ShouldRetry(3) {
		t.Error("ShouldRetry(3) = true, want false")
	}
}
