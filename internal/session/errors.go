// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"

	"github.com/jeranaias/sessionguard/internal/events"
)

// ErrClosed is returned by operations on a controller after Close.
var ErrClosed = errors.New("session controller closed")

// ErrSessionEnded is returned by HandleLogout when the session was torn
// down while the logout call was outstanding. The result is discarded.
var ErrSessionEnded = errors.New("session ended during logout")

// ErrNoSettings is wrapped by ConfigFetchError when the source returned
// no usable payload.
var ErrNoSettings = errors.New("no session settings returned")

// ConfigFetchError reports that the session settings could not be loaded.
// The controller recovers by using its default timeout.
type ConfigFetchError struct {
	Err error
}

func (e *ConfigFetchError) Error() string {
	return fmt.Sprintf("fetch session settings: %v", e.Err)
}

func (e *ConfigFetchError) Unwrap() error {
	return e.Err
}

// LogoutError reports that the logout call failed. Local session state is
// not cleared when this is returned.
type LogoutError struct {
	SessionID string
	Err       error
}

func (e *LogoutError) Error() string {
	return fmt.Sprintf("logout session %s: %v", e.SessionID, e.Err)
}

func (e *LogoutError) Unwrap() error {
	return e.Err
}

// ListenerError reports that an event listener could not be registered.
type ListenerError struct {
	Kind events.Kind
	Err  error
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("register %s listener: %v", e.Kind, e.Err)
}

func (e *ListenerError) Unwrap() error {
	return e.Err
}
