package relay

import (
	"math"
	"math/rand"
	"time"
)

// BackoffPolicy computes the delay before retry attempt n (1-based, counting
// the failed attempts so far). Pluggable so retry behavior changes without
// touching publisher internals.
type BackoffPolicy interface {
	Delay(attempt int) time.Duration
}

// ExponentialBackoff doubles the base delay per attempt, caps it, and spreads
// retries with a ±JitterFactor randomization.
type ExponentialBackoff struct {
	Base         time.Duration
	Cap          time.Duration
	JitterFactor float64
}

func DefaultBackoff() ExponentialBackoff {
	return ExponentialBackoff{
		Base:         time.Second,
		Cap:          30 * time.Second,
		JitterFactor: 0.25,
	}
}

func (b ExponentialBackoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := time.Duration(float64(b.Base) * math.Pow(2, float64(attempt-1)))
	if b.Cap > 0 && delay > b.Cap {
		delay = b.Cap
	}

	if b.JitterFactor > 0 {
		jitter := float64(delay) * b.JitterFactor
		delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
		if delay < 0 {
			delay = 0
		}
		if b.Cap > 0 && delay > b.Cap {
			delay = b.Cap
		}
	}

	return delay
}
