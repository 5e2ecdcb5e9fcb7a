// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"time"

	"github.com/jeranaias/sessionguard/internal/clock"
)

// =============================================================================
// TIMER PAIR
// =============================================================================

// TimerPair holds the warning and hard-logout timers. Both are armed or
// both are nil; the handles are never exposed.
type TimerPair struct {
	warning clock.Timer
	hard    clock.Timer
}

// Arm cancels any armed timers and schedules onWarn after warning and
// onHard after total. A warning that is not strictly inside (0, total) is
// replaced by total/2.
func (p *TimerPair) Arm(clk clock.Clock, total, warning time.Duration, onWarn, onHard func()) {
	p.Disarm()
	if warning <= 0 || warning >= total {
		warning = total / 2
	}
	p.warning = clk.AfterFunc(warning, onWarn)
	p.hard = clk.AfterFunc(total, onHard)
}

// Disarm stops both timers. Safe on a zero TimerPair.
func (p *TimerPair) Disarm() {
	if p.warning != nil {
		p.warning.Stop()
	}
	if p.hard != nil {
		p.hard.Stop()
	}
	p.warning = nil
	p.hard = nil
}

// Armed reports whether the pair is armed.
func (p *TimerPair) Armed() bool {
	return p.hard != nil
}

// =============================================================================
// THROTTLE GATE
// =============================================================================

// ThrottleGate admits one activity event per cooldown window and drops the
// rest. Time is supplied by the caller so that the gate follows the
// controller's clock.
type ThrottleGate struct {
	cooldown      time.Duration
	cooldownUntil time.Time
}

// NewThrottleGate creates a gate with the given cooldown.
func NewThrottleGate(cooldown time.Duration) *ThrottleGate {
	return &ThrottleGate{cooldown: cooldown}
}

// Allow reports whether an event at now opens a new window.
func (g *ThrottleGate) Allow(now time.Time) bool {
	if now.Before(g.cooldownUntil) {
		return false
	}
	g.cooldownUntil = now.Add(g.cooldown)
	return true
}

// CooldownUntil returns the end of the current window, or the zero time
// if no window is open.
func (g *ThrottleGate) CooldownUntil() time.Time {
	return g.cooldownUntil
}

// Reset clears any open window.
func (g *ThrottleGate) Reset() {
	g.cooldownUntil = time.Time{}
}
