// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package guard is the terminal front end of a session: a Bubble Tea
// program that keeps a session.Controller fed with activity and visibility
// events and shows its warnings.
//
// Key presses and mouse events are dispatched on an events.Bus as
// keydown and mousemove; terminal focus and blur set the bus visibility.
// The Bridge turns controller notifications into program messages.
//
//	bus := events.NewBus()
//	bridge := guard.NewBridge()
//	ctrl, _ := session.NewController(cfg, session.Deps{
//		Page: bus, Logout: client, Notifier: bridge, Navigator: bridge,
//	})
//	err := guard.Run(ctx, guard.New(guard.Options{Controller: ctrl, Bus: bus}), bridge)
package guard
