// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the inactivity timeout controller for an
// authenticated portal session.
//
// The controller runs a two-stage timeout: a warning at the midpoint and a
// forced logout at the deadline. User activity extends the session
// (throttled to once per cooldown window) and the timers are paused while
// the view is hidden, then recomputed from the original start when it
// becomes visible again.
//
// # Key Types
//
//   - Controller: owns timers, listeners and the logout flow
//   - TimerPair: warning and hard-logout timers armed and disarmed together
//   - ThrottleGate: cooldown for activity-driven extension
//   - SessionClock: start time and duration of the current arm cycle
//
// # Usage
//
//	ctrl, err := session.NewController(session.DefaultConfig(), session.Deps{
//	    Page:      bus,
//	    Source:    portalClient,
//	    Logout:    portalClient,
//	    Store:     localStore,
//	    Notifier:  notifier,
//	    Navigator: navigator,
//	})
//	if err != nil {
//	    return err
//	}
//	ctrl.LoadSettings(ctx)
//	if err := ctrl.StartSession(); err != nil {
//	    return err
//	}
//	defer ctrl.Close()
//
// # Failed Logout
//
// When the logout call fails, the controller reports the failure and stops.
// Local state is left intact, no timers are re-armed and no retry happens
// until StartSession or ExtendSession is called again.
package session
