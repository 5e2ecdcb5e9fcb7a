// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package guard

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/sessionguard/internal/session"
)

// WarnMsg carries a controller warning into the program.
type WarnMsg struct {
	Key        string
	Persistent bool
}

// ErrorMsg carries a controller error notification into the program.
type ErrorMsg struct {
	Key string
}

// NavigateMsg asks the program to show the signed-out screen.
type NavigateMsg struct{}

// Bridge implements session.Notifier and session.Navigator by sending
// messages into a running Bubble Tea program. Notifications raised before
// Attach are dropped.
type Bridge struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

var (
	_ session.Notifier  = (*Bridge)(nil)
	_ session.Navigator = (*Bridge)(nil)
)

// NewBridge returns a detached bridge.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach routes notifications to send, normally (*tea.Program).Send.
func (b *Bridge) Attach(send func(tea.Msg)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.send = send
}

func (b *Bridge) Warn(key string, opts session.NotifyOptions) {
	b.dispatch(WarnMsg{Key: key, Persistent: opts.Persistent})
}

func (b *Bridge) Error(key string) {
	b.dispatch(ErrorMsg{Key: key})
}

func (b *Bridge) GoToUnauthenticatedRoute() {
	b.dispatch(NavigateMsg{})
}

func (b *Bridge) dispatch(msg tea.Msg) {
	b.mu.Lock()
	send := b.send
	b.mu.Unlock()
	if send != nil {
		send(msg)
	}
}
