// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "time"

// State is the controller's position in the session lifecycle.
type State int

const (
	// StateIdle: no timers armed, no listeners registered.
	StateIdle State = iota
	// StateActive: timers armed and listeners registered.
	StateActive
	// StateWarned: the warning timer fired; the hard timer is still armed.
	StateWarned
	// StatePaused: the view is hidden; timers are disarmed.
	StatePaused
	// StateExpired: the deadline passed and logout was attempted.
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateActive:
		return "ACTIVE"
	case StateWarned:
		return "WARNED"
	case StatePaused:
		return "PAUSED"
	case StateExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// SessionClock is the start time and duration of one arm cycle. It is
// replaced whenever the timers are re-armed.
type SessionClock struct {
	StartedAt time.Time
	Timeout   time.Duration
}

// Deadline returns when the hard timeout expires.
func (c SessionClock) Deadline() time.Time {
	return c.StartedAt.Add(c.Timeout)
}

// Remaining returns the time left at now, never negative.
func (c SessionClock) Remaining(now time.Time) time.Duration {
	remaining := c.Timeout - now.Sub(c.StartedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Status is a snapshot of the controller.
type Status struct {
	SessionID  string
	State      State
	Timeout    time.Duration
	StartedAt  time.Time
	Remaining  time.Duration
	Extensions int
}
