// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package events provides the user-activity and visibility signals a
// session consumes, plus Bus, an in-memory event target.
package events

import (
	"sort"
	"sync"
)

// Kind identifies an event a listener can subscribe to.
type Kind int

const (
	// PointerMove is raised on pointer/mouse movement.
	PointerMove Kind = iota
	// KeyDown is raised on a key press.
	KeyDown
	// VisibilityChange is raised when the view's visibility state changes.
	VisibilityChange
)

// String returns the DOM-style event name.
func (k Kind) String() string {
	switch k {
	case PointerMove:
		return "mousemove"
	case KeyDown:
		return "keydown"
	case VisibilityChange:
		return "visibilitychange"
	default:
		return "unknown"
	}
}

// Visibility mirrors a document visibility state. Values other than
// Visible and Hidden are legal and must be tolerated by consumers.
type Visibility string

const (
	Visible Visibility = "visible"
	Hidden  Visibility = "hidden"
)

// Subscription removes a registered listener.
type Subscription interface {
	// Unsubscribe removes the listener. Safe to call more than once.
	Unsubscribe()
}

// =============================================================================
// BUS
// =============================================================================

// Bus is an in-memory event target with a visibility state.
type Bus struct {
	mu         sync.Mutex
	nextID     uint64
	listeners  map[Kind]map[uint64]func()
	visibility Visibility
}

// NewBus creates a bus whose visibility starts as Visible.
func NewBus() *Bus {
	return &Bus{
		listeners:  make(map[Kind]map[uint64]func()),
		visibility: Visible,
	}
}

// Subscribe registers fn for kind.
func (b *Bus) Subscribe(kind Kind, fn func()) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.listeners[kind] == nil {
		b.listeners[kind] = make(map[uint64]func())
	}
	b.listeners[kind][id] = fn
	return &subscription{bus: b, kind: kind, id: id}, nil
}

// Dispatch invokes every listener registered for kind, in registration
// order, outside the bus lock. Listeners added during the dispatch are not
// called for it.
func (b *Bus) Dispatch(kind Kind) {
	b.mu.Lock()
	ids := make([]uint64, 0, len(b.listeners[kind]))
	for id := range b.listeners[kind] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, b.listeners[kind][id])
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// SetVisibility records v and dispatches VisibilityChange.
func (b *Bus) SetVisibility(v Visibility) {
	b.mu.Lock()
	b.visibility = v
	b.mu.Unlock()

	b.Dispatch(VisibilityChange)
}

// VisibilityState returns the current visibility.
func (b *Bus) VisibilityState() Visibility {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.visibility
}

// ListenerCount returns how many listeners are registered for kind.
func (b *Bus) ListenerCount(kind Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[kind])
}

type subscription struct {
	bus  *Bus
	kind Kind
	id   uint64
}

func (s *subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.listeners[s.kind], s.id)
}
