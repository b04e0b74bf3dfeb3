package delivery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func defaultPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:      time.Second,
		Multiplier:     2,
		Cap:            300 * time.Second,
		MaxAttempts:    5,
		JitterFraction: 0.1,
	}
}

func TestRetryPolicy_DelayGrowsExponentially(t *testing.T) {
	p := defaultPolicy()
	p.JitterFraction = 0 // isolate the exponential curve from jitter

	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	assert.Equal(t, 8*time.Second, p.Delay(4))
}

func TestRetryPolicy_DelayRespectsCap(t *testing.T) {
	p := defaultPolicy()
	p.JitterFraction = 0
	p.Cap = 5 * time.Second

	assert.Equal(t, 5*time.Second, p.Delay(10))
}

func TestRetryPolicy_DelayWithinJitterBounds(t *testing.T) {
	p := defaultPolicy()

	for n := 1; n <= 4; n++ {
		base := float64(time.Second) * pow(2, n-1)
		lower := time.Duration(base * 0.9)
		upper := time.Duration(base * 1.1)

		for i := 0; i < 50; i++ {
			d := p.Delay(n)
			assert.GreaterOrEqual(t, d, lower)
			assert.LessOrEqual(t, d, upper)
		}
	}
}

func TestRetryPolicy_MonotonicUntilCap(t *testing.T) {
	p := defaultPolicy()
	p.JitterFraction = 0

	prev := time.Duration(0)
	for n := 1; n <= 8; n++ {
		d := p.Delay(n)
		assert.GreaterOrEqual(t, d, prev)
		prev = d
	}
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
