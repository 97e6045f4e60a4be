package transport

import (
	"math/rand"
	"time"
)

// Defaults match the historical behavior of the request layer: three
// attempts total, half-second base backoff doubling up to eight seconds.
const (
	DefaultRetries    = 2
	DefaultBackoff    = 500 * time.Millisecond
	DefaultMaxBackoff = 8 * time.Second
	DefaultJitter     = 100 * time.Millisecond
)

// DefaultRetryStatuses are the HTTP statuses considered transient.
var DefaultRetryStatuses = []int{429, 502, 503, 504}

// RetryPolicy bounds how a failing request is repeated. Retries counts the
// additional attempts after the first, so Retries=2 means three attempts.
// A zero Jitter means DefaultJitter; a negative Jitter disables the random
// component entirely.
type RetryPolicy struct {
	Retries    int
	Backoff    time.Duration
	MaxBackoff time.Duration
	Jitter     time.Duration
	Statuses   []int
}

// NoRetry disables retries entirely.
func NoRetry() RetryPolicy {
	return RetryPolicy{Retries: 0, Statuses: []int{}}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.Retries < 0 {
		p.Retries = 0
	}
	if p.Backoff <= 0 {
		p.Backoff = DefaultBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = DefaultMaxBackoff
	}
	if p.Jitter == 0 {
		p.Jitter = DefaultJitter
	} else if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Statuses == nil {
		p.Statuses = DefaultRetryStatuses
	}
	return p
}

func (p RetryPolicy) retryableStatus(status int) bool {
	for _, s := range p.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// delay computes the pause before retry attempt+1: exponential growth from
// the base, capped, plus a small random jitter to spread concurrent
// retries.
func (p RetryPolicy) delay(attempt int, jitter func(time.Duration) time.Duration) time.Duration {
	backoff := p.Backoff
	for i := 0; i < attempt && backoff < p.MaxBackoff; i++ {
		backoff *= 2
	}
	if backoff > p.MaxBackoff {
		backoff = p.MaxBackoff
	}
	if p.Jitter > 0 && jitter != nil {
		backoff += jitter(p.Jitter)
	}
	return backoff
}

func defaultJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}
