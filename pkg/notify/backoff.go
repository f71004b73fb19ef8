package notify

import (
	"math"
	"time"
)

// BackoffStrategy calculates the delay before a retry attempt.
// Implementations must be safe for concurrent use.
type BackoffStrategy interface {
	// NextInterval returns the backoff duration for the given attempt.
	// Attempt starts at 1 for the first retry.
	NextInterval(attempt int) time.Duration
}

// LinearBackoff increases the delay linearly with the attempt number.
// Formula: min(BaseDelay * attempt, MaxDelay). This is the engine's default:
// retry n waits n times the base delay.
type LinearBackoff struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func (l LinearBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	base := l.BaseDelay
	if base == 0 {
		base = time.Second
	}

	interval := base * time.Duration(attempt)
	if l.MaxDelay > 0 && interval > l.MaxDelay {
		interval = l.MaxDelay
	}
	return interval
}

// ExponentialBackoff doubles (by default) the delay on every attempt.
// Formula: min(InitialInterval * Multiplier^(attempt-1), MaxInterval).
type ExponentialBackoff struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

func (e ExponentialBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	initial := e.InitialInterval
	if initial == 0 {
		initial = time.Second
	}
	max := e.MaxInterval
	if max == 0 {
		max = 30 * time.Second
	}
	multiplier := e.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}

	interval := float64(initial) * math.Pow(multiplier, float64(attempt-1))
	if interval > float64(max) {
		interval = float64(max)
	}
	return time.Duration(interval)
}
