package delivery

import (
	"math"
	"math/rand/v2"
	"time"
)

// RetryPolicy is the exponential-backoff-with-jitter policy (§4.5).
type RetryPolicy struct {
	BaseDelay      time.Duration
	Multiplier     float64
	Cap            time.Duration
	MaxAttempts    int
	JitterFraction float64
}

// Delay returns the wait before retry attempt n (1-indexed), per
// delay(n) = min(base * multiplier^(n-1), cap), jittered by ±JitterFraction.
func (p RetryPolicy) Delay(n int) time.Duration {
	raw := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(n-1))
	capped := math.Min(raw, float64(p.Cap))

	if p.JitterFraction <= 0 {
		return time.Duration(capped)
	}

	jitterRange := capped * p.JitterFraction
	offset := (rand.Float64()*2 - 1) * jitterRange
	jittered := capped + offset
	if jittered < 0 {
		jittered = 0
	}
	return time.Duration(jittered)
}
