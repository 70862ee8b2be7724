package transport

import (
	"math/rand"
	"time"
)

// BackoffConfig shapes the pause between dial attempts. Each retry multiplies
// the previous pause by Multiplier, capped at MaxDelay.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	// Jitter keeps half of the pause fixed and randomises the other half.
	Jitter bool
}

// Delay returns the pause before retry n, counting from 1.
func (b BackoffConfig) Delay(n int, rng *rand.Rand) time.Duration {
	if b.InitialDelay <= 0 || n <= 0 {
		return 0
	}
	mult := b.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := b.InitialDelay
	for i := 1; i < n; i++ {
		next := time.Duration(float64(d) * mult)
		if b.MaxDelay > 0 && next >= b.MaxDelay {
			d = b.MaxDelay
			break
		}
		d = next
	}
	if b.MaxDelay > 0 && d > b.MaxDelay {
		d = b.MaxDelay
	}
	if b.Jitter && rng != nil {
		half := d / 2
		d = half + time.Duration(rng.Int63n(int64(half)+1))
	}
	return d
}
