// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package guard

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/sessionguard/internal/clock"
	"github.com/jeranaias/sessionguard/internal/events"
	"github.com/jeranaias/sessionguard/internal/i18n"
	"github.com/jeranaias/sessionguard/internal/session"
	"github.com/jeranaias/sessionguard/internal/ui/components"
	"github.com/jeranaias/sessionguard/internal/ui/styles"
)

type okLogout struct{}

func (okLogout) Logout(context.Context) error { return nil }

type brokenPage struct{ *events.Bus }

func (brokenPage) Subscribe(events.Kind, func()) (events.Subscription, error) {
	return nil, errors.New("no event target")
}

type harness struct {
	clk  *clock.Fake
	bus  *events.Bus
	ctrl *session.Controller
	m    Model
}

func newHarness(t *testing.T, page session.Page) *harness {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	bus := events.NewBus()
	if page == nil {
		page = bus
	}

	cfg := session.DefaultConfig()
	cfg.Timeout = 10 * time.Minute
	ctrl, err := session.NewController(cfg, session.Deps{
		Page:   page,
		Logout: okLogout{},
		Clock:  clk,
		Logger: log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)
	t.Cleanup(ctrl.Close)

	m := New(Options{
		Controller: ctrl,
		Bus:        bus,
		Translator: i18n.New("en"),
		Theme:      styles.NewTheme(styles.ThemeDark),
		PortalURL:  "http://portal.test",
		User:       "member@example.org",
	})
	return &harness{clk: clk, bus: bus, ctrl: ctrl, m: m}
}

// send feeds msg to the model and runs any returned command once,
// feeding a non-nil result back in. Tick commands sleep, so they are
// dropped.
func (h *harness) send(t *testing.T, msg tea.Msg) tea.Msg {
	t.Helper()
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	if _, tick := msg.(tickMsg); tick || cmd == nil {
		return nil
	}
	out := cmd()
	if out == nil {
		return nil
	}
	if _, quit := out.(tea.QuitMsg); quit {
		return out
	}
	next, _ = h.m.Update(out)
	h.m = next.(Model)
	return out
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	next, _ := h.m.Update(h.m.startCmd()())
	h.m = next.(Model)
	require.Equal(t, session.StateActive, h.ctrl.Status().State)
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_StartShowsStatus(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)

	view := h.m.View()
	assert.Contains(t, view, "ACTIVE")
	assert.Contains(t, view, "member@example.org")
	assert.Contains(t, view, "10:00")
	assert.Equal(t, 1, h.bus.ListenerCount(events.KeyDown))
}

func TestModel_StartFailureShowsError(t *testing.T) {
	h := newHarness(t, brokenPage{events.NewBus()})
	next, _ := h.m.Update(h.m.startCmd()())
	h.m = next.(Model)

	assert.Equal(t, components.OverlayError, h.m.overlay.Mode())
	assert.Contains(t, h.m.View(), i18n.New("en").T(session.KeyErrorOccurred))
}

func TestModel_KeyAndMouseAreActivity(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)

	h.clk.Advance(2 * time.Minute)
	h.send(t, keyRunes("a"))
	st := h.ctrl.Status()
	assert.Equal(t, 1, st.Extensions)
	assert.Equal(t, 10*time.Minute, st.Remaining)

	h.clk.Advance(time.Minute)
	h.send(t, tea.MouseMsg{Action: tea.MouseActionMotion, X: 3, Y: 4})
	assert.Equal(t, 2, h.ctrl.Status().Extensions)
}

func TestModel_FocusDrivesVisibility(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)

	h.send(t, tea.BlurMsg{})
	assert.Equal(t, session.StatePaused, h.ctrl.Status().State)
	assert.Equal(t, events.Hidden, h.bus.VisibilityState())
	assert.Zero(t, h.clk.Pending())

	h.clk.Advance(time.Minute)
	h.send(t, tea.FocusMsg{})
	st := h.ctrl.Status()
	assert.Equal(t, session.StateActive, st.State)
	assert.Equal(t, 9*time.Minute, st.Remaining)
}

func TestModel_WarningOverlayLifecycle(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)

	h.clk.Advance(5 * time.Minute)
	require.Equal(t, session.StateWarned, h.ctrl.Status().State)

	// The bridge would deliver this; feed it directly.
	h.send(t, WarnMsg{Key: session.KeySessionWarning})
	assert.Equal(t, components.OverlayWarning, h.m.overlay.Mode())
	assert.Contains(t, h.m.View(), "05:00")

	h.clk.Advance(30 * time.Second)
	h.send(t, tickMsg(time.Now()))
	assert.Equal(t, 4*time.Minute+30*time.Second, h.m.overlay.TimeRemaining())

	// Activity re-arms the controller; the next refresh drops the warning.
	h.send(t, keyRunes("x"))
	h.send(t, tickMsg(time.Now()))
	assert.False(t, h.m.overlay.IsVisible())
	assert.Equal(t, session.StateActive, h.ctrl.Status().State)
}

func TestModel_ExpiryAndSignOut(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)

	// A successful logout at expiry returns the controller to idle.
	h.clk.Advance(10 * time.Minute)
	require.Equal(t, session.StateIdle, h.ctrl.Status().State)

	h.send(t, WarnMsg{Key: session.KeySessionLogOut, Persistent: true})
	h.send(t, NavigateMsg{})
	assert.Equal(t, components.OverlayExpired, h.m.overlay.Mode())
	assert.True(t, h.m.signedOut)

	// Keys do not dismiss the expiry notice.
	h.send(t, keyRunes("z"))
	assert.Equal(t, components.OverlayExpired, h.m.overlay.Mode())
	assert.Contains(t, h.m.View(), "Session Expired")
}

func TestModel_ErrorDismissedByKey(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)

	h.send(t, ErrorMsg{Key: session.KeyErrorOccurred})
	assert.Equal(t, components.OverlayError, h.m.overlay.Mode())

	h.send(t, keyRunes("a"))
	assert.False(t, h.m.overlay.IsVisible())
}

func TestModel_ExplicitExtend(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)

	h.clk.Advance(3 * time.Minute)
	h.send(t, tea.KeyMsg{Type: tea.KeyCtrlE})

	assert.Equal(t, 10*time.Minute, h.ctrl.Status().Remaining)
	assert.Contains(t, h.m.View(), i18n.New("en").T(session.KeySessionExtended))
}

func TestModel_QuitEndsSession(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)

	out := h.send(t, keyRunes("q"))
	assert.IsType(t, tea.QuitMsg{}, out)
	assert.Equal(t, session.StateIdle, h.ctrl.Status().State)
	assert.Zero(t, h.bus.ListenerCount(events.KeyDown))
	assert.Empty(t, h.m.View())
}

func TestBridge(t *testing.T) {
	b := NewBridge()
	b.Warn(session.KeySessionWarning, session.NotifyOptions{}) // dropped

	var got []tea.Msg
	b.Attach(func(msg tea.Msg) { got = append(got, msg) })
	b.Warn(session.KeySessionLogOut, session.NotifyOptions{Persistent: true})
	b.Error(session.KeyErrorOccurred)
	b.GoToUnauthenticatedRoute()

	require.Len(t, got, 3)
	assert.Equal(t, WarnMsg{Key: session.KeySessionLogOut, Persistent: true}, got[0])
	assert.Equal(t, ErrorMsg{Key: session.KeyErrorOccurred}, got[1])
	assert.Equal(t, NavigateMsg{}, got[2])
}

func TestModel_ViewSignedOut(t *testing.T) {
	h := newHarness(t, nil)
	h.send(t, NavigateMsg{})
	assert.True(t, strings.Contains(h.m.View(), "sessionguard login"))
}
