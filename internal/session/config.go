// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/jeranaias/sessionguard/internal/clock"
	"github.com/jeranaias/sessionguard/internal/events"
)

// Notification keys. They are opaque to the controller and resolved by
// the Notifier (see internal/i18n).
const (
	KeySessionWarning  = "sessionWarning"
	KeySessionLogOut   = "sessionLogOut"
	KeyErrorOccurred   = "errorOccurred"
	KeySessionExtended = "sessionExtended"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds the controller settings.
type Config struct {
	// Timeout is the inactivity timeout used until settings are loaded
	// and whenever they cannot be (default: 30 minutes).
	Timeout time.Duration

	// WarningFraction places the warning within an arm cycle (default: 0.5).
	WarningFraction float64

	// ActivityCooldown is the throttle window for activity-driven
	// extension (default: 5 seconds).
	ActivityCooldown time.Duration

	// LogoutTimeout bounds the logout call made when the session expires.
	LogoutTimeout time.Duration
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:          30 * time.Minute,
		WarningFraction:  0.5,
		ActivityCooldown: 5 * time.Second,
		LogoutTimeout:    15 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.WarningFraction <= 0 || c.WarningFraction >= 1 {
		c.WarningFraction = def.WarningFraction
	}
	if c.ActivityCooldown < 0 {
		c.ActivityCooldown = def.ActivityCooldown
	}
	if c.LogoutTimeout <= 0 {
		c.LogoutTimeout = def.LogoutTimeout
	}
	return c
}

// Settings is the payload returned by a ConfigSource.
type Settings struct {
	InactivityTimeoutMinutes float64 `json:"inactivityTimeoutMinutes"`
}

// Timeout converts the settings to a duration. ok is false when the
// payload is not a usable positive duration.
func (s *Settings) Timeout() (d time.Duration, ok bool) {
	if s == nil {
		return 0, false
	}
	m := s.InactivityTimeoutMinutes
	if math.IsNaN(m) || math.IsInf(m, 0) || m <= 0 {
		return 0, false
	}
	d = time.Duration(m * float64(time.Minute))
	if d <= 0 {
		return 0, false
	}
	return d, true
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// ConfigSource yields the inactivity timeout for the current community.
// A nil Settings with a nil error means no configuration is available.
type ConfigSource interface {
	FetchSettings(ctx context.Context) (*Settings, error)
}

// LogoutService invalidates the session server-side.
type LogoutService interface {
	Logout(ctx context.Context) error
}

// LocalStore holds client-side session data.
type LocalStore interface {
	// ClearAll removes all session data. It must be idempotent.
	ClearAll() error
}

// NotifyOptions controls how a notification is shown.
type NotifyOptions struct {
	// Persistent notifications are not dismissed automatically.
	Persistent bool
}

// Notifier shows user-facing messages identified by key.
type Notifier interface {
	Warn(key string, opts NotifyOptions)
	Error(key string)
}

// Navigator moves the user to the unauthenticated landing route.
type Navigator interface {
	GoToUnauthenticatedRoute()
}

// Page is the event target the controller listens on.
type Page interface {
	Subscribe(kind events.Kind, fn func()) (events.Subscription, error)
	VisibilityState() events.Visibility
}

// Deps are the collaborators of a Controller. Page and Logout are
// required; the rest fall back to no-ops or defaults.
type Deps struct {
	Page      Page
	Source    ConfigSource
	Logout    LogoutService
	Store     LocalStore
	Notifier  Notifier
	Navigator Navigator
	Clock     clock.Clock
	Logger    *log.Logger

	// OnError receives recovered errors, such as a failed settings fetch.
	OnError func(error)
}

type nopNotifier struct{}

func (nopNotifier) Warn(string, NotifyOptions) {}
func (nopNotifier) Error(string)               {}

type nopNavigator struct{}

func (nopNavigator) GoToUnauthenticatedRoute() {}

type nopStore struct{}

func (nopStore) ClearAll() error { return nil }
