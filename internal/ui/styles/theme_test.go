// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/jeranaias/sessionguard/internal/session"
)

func TestNewTheme_Forced(t *testing.T) {
	if th := NewTheme(ThemeLight); th.IsDark {
		t.Error("light theme reported dark background")
	}
	if th := NewTheme(" Dark "); !th.IsDark {
		t.Error("dark theme reported light background")
	}
}

func TestRenderState(t *testing.T) {
	th := NewTheme(ThemeDark)
	tests := []struct {
		state     session.State
		indicator string
	}{
		{session.StateIdle, StatusIndicators.Pending},
		{session.StateActive, StatusIndicators.Active},
		{session.StateWarned, StatusIndicators.Warning},
		{session.StatePaused, StatusIndicators.Info},
		{session.StateExpired, StatusIndicators.Error},
	}
	for _, tt := range tests {
		got := th.RenderState(tt.state)
		if !strings.Contains(got, tt.indicator) || !strings.Contains(got, tt.state.String()) {
			t.Errorf("RenderState(%s) = %q", tt.state, got)
		}
	}

	if got := th.RenderState(session.State(99)); !strings.Contains(got, "UNKNOWN") {
		t.Errorf("RenderState(99) = %q", got)
	}
}
