// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_String(t *testing.T) {
	assert.Equal(t, "mousemove", PointerMove.String())
	assert.Equal(t, "keydown", KeyDown.String())
	assert.Equal(t, "visibilitychange", VisibilityChange.String())
	assert.Equal(t, "unknown", Kind(42).String())
}

func TestBus_DispatchInRegistrationOrder(t *testing.T) {
	b := NewBus()
	var order []int

	for i := 1; i <= 3; i++ {
		i := i
		_, err := b.Subscribe(KeyDown, func() { order = append(order, i) })
		require.NoError(t, err)
	}
	b.Dispatch(KeyDown)
	b.Dispatch(PointerMove)

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestBus_Unsubscribe(t *testing.T) {
	b := NewBus()
	calls := 0
	sub, err := b.Subscribe(PointerMove, func() { calls++ })
	require.NoError(t, err)
	assert.Equal(t, 1, b.ListenerCount(PointerMove))

	sub.Unsubscribe()
	sub.Unsubscribe()
	b.Dispatch(PointerMove)

	assert.Zero(t, calls)
	assert.Zero(t, b.ListenerCount(PointerMove))
}

func TestBus_SetVisibility(t *testing.T) {
	b := NewBus()
	assert.Equal(t, Visible, b.VisibilityState())

	var seen []Visibility
	_, err := b.Subscribe(VisibilityChange, func() { seen = append(seen, b.VisibilityState()) })
	require.NoError(t, err)

	b.SetVisibility(Hidden)
	b.SetVisibility(Visibility("prerender"))
	b.SetVisibility(Visible)

	assert.Equal(t, []Visibility{Hidden, "prerender", Visible}, seen)
}

func TestBus_ListenerAddedDuringDispatch(t *testing.T) {
	b := NewBus()
	inner := 0
	_, err := b.Subscribe(KeyDown, func() {
		_, _ = b.Subscribe(KeyDown, func() { inner++ })
	})
	require.NoError(t, err)

	b.Dispatch(KeyDown)
	assert.Zero(t, inner)

	b.Dispatch(KeyDown)
	assert.Equal(t, 1, inner)
}
