package scrape

import (
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

// Backoff computes jittered exponential delays between scrape attempts.
// Half the delay is deterministic and half is random so concurrent sources
// retrying at the same moment do not realign.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

// DefaultBackoff returns sane retry spacing for storefront scrapes.
func DefaultBackoff() Backoff {
	return Backoff{Initial: 500 * time.Millisecond, Max: 8 * time.Second}
}

// Delay returns the wait before the next attempt; attempt counts from 1 for
// the first retry.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	initial := b.Initial
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	delay := float64(initial) * math.Pow(2, float64(attempt-1))
	if max := float64(b.Max); max > 0 && delay > max {
		delay = max
	}
	jitter := randomJitter(time.Duration(delay) / 2)
	return time.Duration(delay/2) + jitter
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
