// Package backoff implements the capped exponential delay schedule used
// for websocket reconnection.
//
// Unlike a retry-until-giving-up loop, the display reconnects forever:
// there is no max-attempts cut-off, only a delay cap.
package backoff

import "time"

// Defaults for the reconnect schedule: 1s, 2s, 4s, 8s, then 15s forever.
const (
	DefaultInitialDelay = 1 * time.Second
	DefaultMaxDelay     = 15 * time.Second
)

// Backoff tracks consecutive failures and produces the next delay.
// Not safe for concurrent use; the owner serializes access.
type Backoff struct {
	// InitialDelay is the delay after the first failure.
	InitialDelay time.Duration
	// MaxDelay caps the schedule.
	MaxDelay time.Duration

	attempt int
}

// New returns a Backoff with the default schedule.
func New() *Backoff {
	return &Backoff{
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
	}
}

// Next records one more consecutive failure and returns the delay to wait
// before the next attempt.
func (b *Backoff) Next() time.Duration {
	b.attempt++
	return Delay(b.attempt, b.initial(), b.max())
}

// Reset clears the failure count. Called after a successful connection so
// the next failure starts the schedule over.
func (b *Backoff) Reset() {
	b.attempt = 0
}

// Attempt returns the current consecutive-failure count.
func (b *Backoff) Attempt() int {
	return b.attempt
}

func (b *Backoff) initial() time.Duration {
	if b.InitialDelay <= 0 {
		return DefaultInitialDelay
	}
	return b.InitialDelay
}

func (b *Backoff) max() time.Duration {
	if b.MaxDelay <= 0 {
		return DefaultMaxDelay
	}
	return b.MaxDelay
}

// Delay computes the capped exponential delay for a 1-based attempt:
// initial * 2^(attempt-1), never exceeding max.
func Delay(attempt int, initial, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	// Guard the shift: beyond 62 doublings the cap applies regardless.
	if attempt-1 >= 63 {
		return max
	}

	delay := initial * time.Duration(1<<uint(attempt-1))
	if delay <= 0 || delay > max {
		return max
	}
	return delay
}
