// Copyright 2026 The Pmbot Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"math/rand"
	"time"
)

// State is the sync loop's position in the reconnection state machine.
type State int

const (
	// StateIdle: loop not yet started.
	StateIdle State = iota
	// StatePolling: actively long-polling.
	StatePolling
	// StateBackoff: waiting out a retry delay after a transport
	// failure.
	StateBackoff
	// StateFatal: terminal. Entered on an auth failure or when the
	// consecutive-failure budget is exhausted.
	StateFatal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateBackoff:
		return "backoff"
	case StateFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Backoff governs retry timing after transport failures: exponential
// delay growth from floor to cap with additive jitter, and a
// consecutive-failure budget beyond which the loop gives up.
//
// Delays are non-decreasing across consecutive failures even with
// jitter applied: the raw delay doubles each failure while jitter adds
// at most 25%, so the next raw delay always exceeds the previous
// jittered one, and everything clamps to the cap.
type Backoff struct {
	floor       time.Duration
	cap         time.Duration
	maxFailures int

	state    State
	failures int

	// jitterFrac returns a value in [0, 1). Replaced in tests for
	// determinism.
	jitterFrac func() float64
}

// NewBackoff creates a controller with the given delay floor, delay
// cap, and consecutive-failure budget.
func NewBackoff(floor, cap time.Duration, maxFailures int) *Backoff {
	return &Backoff{
		floor:       floor,
		cap:         cap,
		maxFailures: maxFailures,
		state:       StateIdle,
		jitterFrac:  rand.Float64,
	}
}

// State returns the current state.
func (b *Backoff) State() State {
	return b.state
}

// Start transitions Idle → Polling at loop start.
func (b *Backoff) Start() {
	if b.state == StateIdle {
		b.state = StatePolling
	}
}

// Success records a successful poll: the failure counter resets and
// the next failure starts again from the floor delay.
func (b *Backoff) Success() {
	if b.state == StateFatal {
		return
	}
	b.failures = 0
	b.state = StatePolling
}

// Failure records a recoverable transport failure and returns the
// delay to wait before the next poll. When the consecutive-failure
// budget is exhausted, fatal is true, the state is terminal, and the
// delay is meaningless.
func (b *Backoff) Failure() (delay time.Duration, fatal bool) {
	b.failures++
	if b.failures >= b.maxFailures {
		b.state = StateFatal
		return 0, true
	}
	b.state = StateBackoff

	raw := b.floor << (b.failures - 1)
	if raw <= 0 || raw > b.cap {
		// Shift overflow or past the cap.
		raw = b.cap
	}
	delay = raw + time.Duration(b.jitterFrac()*float64(raw)/4)
	if delay > b.cap {
		delay = b.cap
	}
	return delay, false
}

// Fatal forces the terminal state, used when an auth failure surfaces
// mid-run.
func (b *Backoff) Fatal() {
	b.state = StateFatal
}

// Failures returns the current consecutive-failure count.
func (b *Backoff) Failures() int {
	return b.failures
}
