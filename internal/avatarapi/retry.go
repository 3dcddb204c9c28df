package avatarapi

import (
	"math/rand"
	"time"
)

// Backoff between attempts of one request.
// Attempt 1: 250ms, Attempt 2: 1s, Attempt 3: 4s
var retryDelays = []time.Duration{
	250 * time.Millisecond,
	1 * time.Second,
	4 * time.Second,
}

const (
	// DefaultMaxAttempts is the default number of tries per request.
	DefaultMaxAttempts = 3

	// JitterFactor is the ±percentage of jitter applied to delays.
	JitterFactor = 0.2
)

// nextRetryDelay returns the delay before retry number attempt (0-indexed)
// with ±20% jitter.
func nextRetryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(retryDelays) {
		attempt = len(retryDelays) - 1
	}

	base := retryDelays[attempt]
	jitterRange := float64(base) * JitterFactor
	jitter := (rand.Float64()*2 - 1) * jitterRange

	return time.Duration(float64(base) + jitter)
}
