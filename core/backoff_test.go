package relay

import (
	"testing"
	"time"
)

func TestExponentialBackoffDoublesUntilCap(t *testing.T) {
	policy := ExponentialBackoff{Base: time.Second, Cap: 10 * time.Second}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{10, 10 * time.Second},
	}
	for _, c := range cases {
		if got := policy.Delay(c.attempt); got != c.want {
			t.Errorf("Delay(%d) = %s, want %s", c.attempt, got, c.want)
		}
	}
}

func TestExponentialBackoffJitterStaysBounded(t *testing.T) {
	policy := ExponentialBackoff{Base: time.Second, Cap: 30 * time.Second, JitterFactor: 0.25}

	for attempt := 1; attempt <= 6; attempt++ {
		base := ExponentialBackoff{Base: policy.Base, Cap: policy.Cap}.Delay(attempt)
		low := time.Duration(float64(base) * 0.75)

		for i := 0; i < 100; i++ {
			got := policy.Delay(attempt)
			if got < low || got > policy.Cap {
				t.Fatalf("Delay(%d) = %s outside [%s, %s]", attempt, got, low, policy.Cap)
			}
		}
	}
}

func TestExponentialBackoffClampsAttempt(t *testing.T) {
	policy := ExponentialBackoff{Base: time.Second, Cap: 30 * time.Second}
	if got := policy.Delay(0); got != time.Second {
		t.Errorf("Delay(0) = %s, want %s", got, time.Second)
	}
	if got := policy.Delay(-3); got != time.Second {
		t.Errorf("Delay(-3) = %s, want %s", got, time.Second)
	}
}
