package authstate

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls re-fetching the onboarding record after a transport
// failure. The zero value disables retries: a failed fetch keeps the prior
// state and settles immediately.
type RetryPolicy struct {
	Attempts     int // extra attempts after the first one
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

// DefaultRetryPolicy returns a policy of n retries starting at initial and
// doubling up to 30s.
func DefaultRetryPolicy(n int, initial time.Duration) RetryPolicy {
	return RetryPolicy{Attempts: n, InitialDelay: initial, MaxDelay: 30 * time.Second, Multiplier: 2}
}

// delay returns the wait before retry number attempt (1-based).
func (p RetryPolicy) delay(attempt int, rng *rand.Rand) time.Duration {
	if p.InitialDelay <= 0 {
		return 0
	}
	d := float64(p.InitialDelay)
	if attempt > 1 {
		m := p.Multiplier
		if m < 1.0 {
			m = 1.0
		}
		d *= math.Pow(m, float64(attempt-1))
	}
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter {
		r := rand.Float64
		if rng != nil {
			r = rng.Float64
		}
		d *= 0.5 + r()
	}
	return time.Duration(d)
}
