package transport

import (
	"math/rand"
	"time"
)

// jitter scales a delay by a factor in [0.5, 1.5).
var jitter = func() float64 { return 0.5 + rand.Float64() }

// retryDelay is the wait after failed dial attempt n (1-based). The delay
// grows by Multiplier per attempt and stops at MaxDelay.
func (c DialConfig) retryDelay(n int) time.Duration {
	b := c.Backoff
	if b.InitialDelay <= 0 {
		return 0
	}
	growth := b.Multiplier
	if growth < 1 {
		growth = 1
	}
	limit := float64(b.MaxDelay)
	delay := float64(b.InitialDelay)
	for i := 1; i < n; i++ {
		delay *= growth
		if limit > 0 && delay >= limit {
			break
		}
	}
	if limit > 0 && delay > limit {
		delay = limit
	}
	if b.Jitter {
		delay *= jitter()
	}
	return time.Duration(delay)
}
