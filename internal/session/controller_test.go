// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/sessionguard/internal/clock"
	"github.com/jeranaias/sessionguard/internal/events"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

type fakeLogout struct {
	mu    sync.Mutex
	err   error
	calls int

	// When started is non-nil the call signals it and waits on release.
	started chan struct{}
	release chan struct{}
}

func (f *fakeLogout) Logout(ctx context.Context) error {
	f.mu.Lock()
	f.calls++
	err := f.err
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		close(started)
		<-release
	}
	return err
}

func (f *fakeLogout) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeStore struct {
	mu      sync.Mutex
	cleared int
}

func (s *fakeStore) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared++
	return nil
}

func (s *fakeStore) Cleared() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleared
}

type notice struct {
	level string
	key   string
	opts  NotifyOptions
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (n *fakeNotifier) Warn(key string, opts NotifyOptions) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{level: "warn", key: key, opts: opts})
}

func (n *fakeNotifier) Error(key string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{level: "error", key: key})
}

func (n *fakeNotifier) Count(key string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, nt := range n.notices {
		if nt.key == key {
			count++
		}
	}
	return count
}

func (n *fakeNotifier) Last() notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.notices) == 0 {
		return notice{}
	}
	return n.notices[len(n.notices)-1]
}

type fakeNav struct {
	mu    sync.Mutex
	calls int
}

func (n *fakeNav) GoToUnauthenticatedRoute() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
}

func (n *fakeNav) Calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

type fakeSource struct {
	settings *Settings
	err      error
}

func (s fakeSource) FetchSettings(ctx context.Context) (*Settings, error) {
	return s.settings, s.err
}

// failingPage refuses subscriptions for one event kind.
type failingPage struct {
	*events.Bus
	fail events.Kind
}

func (p failingPage) Subscribe(kind events.Kind, fn func()) (events.Subscription, error) {
	if kind == p.fail {
		return nil, errors.New("listener quota exceeded")
	}
	return p.Bus.Subscribe(kind, fn)
}

type harness struct {
	clk      *clock.Fake
	bus      *events.Bus
	logout   *fakeLogout
	store    *fakeStore
	notifier *fakeNotifier
	nav      *fakeNav
	errs     []error
	ctrl     *Controller
}

func newHarness(t *testing.T, timeout time.Duration) *harness {
	t.Helper()
	h := &harness{
		clk:      clock.NewFake(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)),
		bus:      events.NewBus(),
		logout:   &fakeLogout{},
		store:    &fakeStore{},
		notifier: &fakeNotifier{},
		nav:      &fakeNav{},
	}
	cfg := DefaultConfig()
	cfg.Timeout = timeout
	ctrl, err := NewController(cfg, Deps{
		Page:      h.bus,
		Logout:    h.logout,
		Store:     h.store,
		Notifier:  h.notifier,
		Navigator: h.nav,
		Clock:     h.clk,
		Logger:    log.New(io.Discard, "", 0),
		OnError:   func(err error) { h.errs = append(h.errs, err) },
	})
	require.NoError(t, err)
	h.ctrl = ctrl
	return h
}

func (h *harness) activityListeners() int {
	return h.bus.ListenerCount(events.PointerMove) + h.bus.ListenerCount(events.KeyDown)
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

func TestNewController_RequiresPageAndLogout(t *testing.T) {
	_, err := NewController(DefaultConfig(), Deps{Logout: &fakeLogout{}})
	assert.Error(t, err)

	_, err = NewController(DefaultConfig(), Deps{Page: events.NewBus()})
	assert.Error(t, err)

	ctrl, err := NewController(Config{}, Deps{Page: events.NewBus(), Logout: &fakeLogout{}})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, ctrl.Timeout())
	assert.Equal(t, StateIdle, ctrl.Status().State)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 30*time.Minute, cfg.Timeout)
	assert.Equal(t, 0.5, cfg.WarningFraction)
	assert.Equal(t, 5*time.Second, cfg.ActivityCooldown)
}

// =============================================================================
// TEARDOWN
// =============================================================================

func TestEndSession_IdleIsNoop(t *testing.T) {
	h := newHarness(t, 30*time.Minute)

	assert.NotPanics(t, func() {
		h.ctrl.EndSession()
		h.ctrl.EndSession()
	})

	assert.Equal(t, StateIdle, h.ctrl.Status().State)
	assert.Zero(t, h.clk.Pending())
	assert.Zero(t, h.activityListeners())
	assert.Zero(t, h.logout.Calls())
}

func TestEndSession_PreventsLaterCallbacks(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	require.NoError(t, h.ctrl.StartSession())

	h.clk.Advance(20 * time.Minute)
	h.ctrl.EndSession()
	h.clk.Advance(time.Hour)

	assert.Zero(t, h.logout.Calls())
	assert.Zero(t, h.store.Cleared())
	assert.Zero(t, h.nav.Calls())
	assert.Zero(t, h.bus.ListenerCount(events.VisibilityChange))
	assert.Zero(t, h.activityListeners())
}

func TestClose_RejectsFurtherUse(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	require.NoError(t, h.ctrl.StartSession())

	h.ctrl.Close()

	assert.ErrorIs(t, h.ctrl.StartSession(), ErrClosed)
	assert.ErrorIs(t, h.ctrl.ExtendSession(), ErrClosed)
	assert.ErrorIs(t, h.ctrl.HandleLogout(context.Background()), ErrClosed)
	assert.Zero(t, h.clk.Pending())
}

// =============================================================================
// TIMERS
// =============================================================================

func TestStartSession_TimerInvariant(t *testing.T) {
	for _, minutes := range []int{15, 30, 45, 60} {
		minutes := minutes
		t.Run(time.Duration(minutes*int(time.Minute)).String(), func(t *testing.T) {
			d := time.Duration(minutes) * time.Minute
			h := newHarness(t, d)
			require.NoError(t, h.ctrl.StartSession())

			h.clk.Advance(d/2 - time.Millisecond)
			assert.Zero(t, h.notifier.Count(KeySessionWarning))

			h.clk.Advance(time.Millisecond)
			assert.Equal(t, 1, h.notifier.Count(KeySessionWarning))
			assert.Equal(t, StateWarned, h.ctrl.Status().State)
			assert.Zero(t, h.logout.Calls())

			h.clk.Advance(d/2 - time.Millisecond)
			assert.Zero(t, h.logout.Calls())

			h.clk.Advance(time.Millisecond)
			assert.Equal(t, 1, h.logout.Calls())
			assert.Equal(t, 1, h.notifier.Count(KeySessionWarning))
		})
	}
}

func TestStartSession_RegistersListenersOnce(t *testing.T) {
	h := newHarness(t, 30*time.Minute)

	require.NoError(t, h.ctrl.StartSession())
	require.NoError(t, h.ctrl.StartSession())
	require.NoError(t, h.ctrl.StartSession())

	assert.Equal(t, 1, h.bus.ListenerCount(events.PointerMove))
	assert.Equal(t, 1, h.bus.ListenerCount(events.KeyDown))
	assert.Equal(t, 1, h.bus.ListenerCount(events.VisibilityChange))
	assert.Equal(t, 2, h.clk.Pending())
	assert.True(t, strings.HasPrefix(h.ctrl.Status().SessionID, "sess_"))
}

func TestStartSession_ListenerErrorPropagates(t *testing.T) {
	bus := events.NewBus()
	clk := clock.NewFake(time.Now())
	ctrl, err := NewController(DefaultConfig(), Deps{
		Page:   failingPage{Bus: bus, fail: events.KeyDown},
		Logout: &fakeLogout{},
		Clock:  clk,
	})
	require.NoError(t, err)

	err = ctrl.StartSession()

	var lerr *ListenerError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, events.KeyDown, lerr.Kind)
	assert.Zero(t, clk.Pending())
	assert.Zero(t, bus.ListenerCount(events.VisibilityChange))
	assert.Zero(t, bus.ListenerCount(events.PointerMove))
	assert.Equal(t, StateIdle, ctrl.Status().State)
}

func TestExtendSession_RearmsFullDuration(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	require.NoError(t, h.ctrl.StartSession())

	h.clk.Advance(14 * time.Minute)
	require.NoError(t, h.ctrl.ExtendSession())

	h.clk.Advance(14 * time.Minute)
	assert.Zero(t, h.notifier.Count(KeySessionWarning))
	assert.Equal(t, 2, h.clk.Pending())

	h.clk.Advance(time.Minute)
	assert.Equal(t, 1, h.notifier.Count(KeySessionWarning))
	assert.Equal(t, 1, h.ctrl.Status().Extensions)
}

func TestExtendSession_FromIdleStarts(t *testing.T) {
	h := newHarness(t, 30*time.Minute)

	require.NoError(t, h.ctrl.ExtendSession())

	assert.Equal(t, StateActive, h.ctrl.Status().State)
	assert.Equal(t, 1, h.bus.ListenerCount(events.VisibilityChange))
	assert.Equal(t, 2, h.activityListeners())
}

// =============================================================================
// THROTTLE
// =============================================================================

func TestActivity_Throttle(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	require.NoError(t, h.ctrl.StartSession())

	h.clk.Advance(time.Minute)
	t0 := h.clk.Now()

	h.bus.Dispatch(events.PointerMove)
	st := h.ctrl.Status()
	require.Equal(t, 1, st.Extensions)
	assert.Equal(t, t0, st.StartedAt)

	h.clk.Advance(2000 * time.Millisecond)
	h.bus.Dispatch(events.KeyDown)
	assert.Equal(t, 1, h.ctrl.Status().Extensions)

	h.clk.Advance(1100 * time.Millisecond)
	h.bus.Dispatch(events.PointerMove)
	assert.Equal(t, 1, h.ctrl.Status().Extensions)

	h.clk.Advance(1901 * time.Millisecond)
	h.bus.Dispatch(events.KeyDown)
	st = h.ctrl.Status()
	assert.Equal(t, 2, st.Extensions)
	assert.Equal(t, t0.Add(5001*time.Millisecond), st.StartedAt)
}

func TestActivity_DefersWarning(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	require.NoError(t, h.ctrl.StartSession())

	h.clk.Advance(10 * time.Minute)
	h.bus.Dispatch(events.KeyDown)
	h.clk.Advance(10 * time.Minute)

	assert.Zero(t, h.notifier.Count(KeySessionWarning))

	h.clk.Advance(5 * time.Minute)
	assert.Equal(t, 1, h.notifier.Count(KeySessionWarning))
}

func TestThrottleGate(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	g := NewThrottleGate(5 * time.Second)

	assert.True(t, g.Allow(now))
	assert.Equal(t, now.Add(5*time.Second), g.CooldownUntil())
	assert.False(t, g.Allow(now.Add(4999*time.Millisecond)))
	assert.True(t, g.Allow(now.Add(5001*time.Millisecond)))

	g.Reset()
	assert.True(t, g.CooldownUntil().IsZero())
	assert.True(t, g.Allow(now.Add(5002*time.Millisecond)))
}

func TestTimerPair_ClampsWarning(t *testing.T) {
	clk := clock.NewFake(time.Now())
	var p TimerPair
	var fired []string

	p.Arm(clk, 10*time.Minute, 20*time.Minute,
		func() { fired = append(fired, "warn") },
		func() { fired = append(fired, "hard") },
	)
	require.True(t, p.Armed())

	clk.Advance(5 * time.Minute)
	assert.Equal(t, []string{"warn"}, fired)

	p.Disarm()
	assert.False(t, p.Armed())
	clk.Advance(time.Hour)
	assert.Equal(t, []string{"warn"}, fired)
}

// =============================================================================
// VISIBILITY
// =============================================================================

func TestVisibility_HiddenPausesAndExpiresOnResume(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	require.NoError(t, h.ctrl.StartSession())

	h.clk.Advance(10 * time.Minute)
	h.bus.SetVisibility(events.Hidden)

	assert.Equal(t, StatePaused, h.ctrl.Status().State)
	assert.Zero(t, h.activityListeners())
	assert.Equal(t, 1, h.bus.ListenerCount(events.VisibilityChange))

	h.clk.Advance(32 * time.Minute)
	assert.Zero(t, h.notifier.Count(KeySessionWarning))
	assert.Zero(t, h.logout.Calls())

	h.bus.SetVisibility(events.Visible)

	assert.Equal(t, 1, h.logout.Calls())
	assert.Zero(t, h.notifier.Count(KeySessionWarning))
	assert.Equal(t, 1, h.store.Cleared())
	assert.Equal(t, 1, h.nav.Calls())
	assert.Equal(t, StateIdle, h.ctrl.Status().State)
}

func TestVisibility_ResumeRecomputesRemaining(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	require.NoError(t, h.ctrl.StartSession())

	h.clk.Advance(5 * time.Minute)
	h.bus.SetVisibility(events.Hidden)
	h.clk.Advance(time.Minute)
	h.bus.SetVisibility(events.Visible)

	st := h.ctrl.Status()
	assert.Equal(t, StateActive, st.State)
	assert.Equal(t, 24*time.Minute, st.Remaining)
	assert.Equal(t, 2, h.activityListeners())

	h.clk.Advance(12*time.Minute - time.Millisecond)
	assert.Zero(t, h.notifier.Count(KeySessionWarning))
	h.clk.Advance(time.Millisecond)
	assert.Equal(t, 1, h.notifier.Count(KeySessionWarning))

	h.clk.Advance(12 * time.Minute)
	assert.Equal(t, 1, h.logout.Calls())
}

func TestVisibility_RepeatedVisibleKeepsOnePair(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	require.NoError(t, h.ctrl.StartSession())

	h.bus.SetVisibility(events.Visible)
	h.bus.SetVisibility(events.Visible)

	assert.Equal(t, 1, h.bus.ListenerCount(events.PointerMove))
	assert.Equal(t, 1, h.bus.ListenerCount(events.KeyDown))
	assert.Equal(t, 2, h.clk.Pending())
}

func TestVisibility_UnknownStateIsIgnored(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	require.NoError(t, h.ctrl.StartSession())

	h.clk.Advance(time.Minute)
	assert.NotPanics(t, func() {
		h.bus.SetVisibility(events.Visibility("prerender"))
	})

	assert.Equal(t, StateActive, h.ctrl.Status().State)
	assert.Equal(t, 2, h.clk.Pending())
	assert.Equal(t, 2, h.activityListeners())

	h.clk.Advance(14 * time.Minute)
	assert.Equal(t, 1, h.notifier.Count(KeySessionWarning))
}

func TestVisibility_IgnoredWhenIdle(t *testing.T) {
	h := newHarness(t, 30*time.Minute)

	h.ctrl.HandleVisibilityChange()

	assert.Equal(t, StateIdle, h.ctrl.Status().State)
	assert.Zero(t, h.clk.Pending())
}

// =============================================================================
// LOGOUT
// =============================================================================

func TestLogout_FailureLeavesLocalState(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	h.logout.err = errors.New("network unreachable")
	require.NoError(t, h.ctrl.StartSession())

	h.clk.Advance(30 * time.Minute)

	assert.Equal(t, 1, h.logout.Calls())
	assert.Zero(t, h.store.Cleared())
	assert.Zero(t, h.nav.Calls())
	assert.Equal(t, 1, h.notifier.Count(KeyErrorOccurred))
	assert.Equal(t, "error", h.notifier.Last().level)

	// No automatic retry.
	h.clk.Advance(2 * time.Hour)
	assert.Equal(t, 1, h.logout.Calls())
	assert.Equal(t, StateExpired, h.ctrl.Status().State)
}

func TestLogout_FailureReturnsLogoutError(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	h.logout.err = errors.New("500 internal")
	require.NoError(t, h.ctrl.StartSession())
	id := h.ctrl.Status().SessionID

	err := h.ctrl.HandleLogout(context.Background())

	var lerr *LogoutError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, id, lerr.SessionID)
	assert.Contains(t, err.Error(), "500 internal")
}

func TestLogout_FailureThenExtendRearms(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	h.logout.err = errors.New("timeout")
	require.NoError(t, h.ctrl.StartSession())
	h.clk.Advance(30 * time.Minute)
	require.Equal(t, 1, h.logout.Calls())

	h.logout.err = nil
	require.NoError(t, h.ctrl.ExtendSession())
	h.clk.Advance(30 * time.Minute)

	assert.Equal(t, 2, h.logout.Calls())
	assert.Equal(t, 1, h.store.Cleared())
}

func TestLogout_SuccessPath(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	require.NoError(t, h.ctrl.StartSession())

	h.clk.Advance(30 * time.Minute)

	assert.Equal(t, 1, h.logout.Calls())
	assert.Equal(t, 1, h.store.Cleared())
	assert.Equal(t, 1, h.nav.Calls())
	assert.Equal(t, 1, h.notifier.Count(KeySessionLogOut))
	last := h.notifier.Last()
	assert.Equal(t, KeySessionLogOut, last.key)
	assert.True(t, last.opts.Persistent)

	assert.Equal(t, StateIdle, h.ctrl.Status().State)
	assert.Zero(t, h.clk.Pending())
	assert.Zero(t, h.bus.ListenerCount(events.VisibilityChange))
}

func TestLogout_DiscardedAfterTeardown(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	h.logout.started = make(chan struct{})
	h.logout.release = make(chan struct{})
	require.NoError(t, h.ctrl.StartSession())

	done := make(chan error, 1)
	go func() {
		done <- h.ctrl.HandleLogout(context.Background())
	}()

	<-h.logout.started
	h.ctrl.EndSession()
	close(h.logout.release)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSessionEnded)
	case <-time.After(5 * time.Second):
		t.Fatal("logout did not return")
	}

	assert.Zero(t, h.store.Cleared())
	assert.Zero(t, h.nav.Calls())
	assert.Zero(t, h.notifier.Count(KeySessionLogOut))
	assert.Zero(t, h.notifier.Count(KeyErrorOccurred))
}

func TestLogout_EndSessionRightAfterExpiry(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	h.ctrl.beforeExpireLogout = h.ctrl.EndSession
	require.NoError(t, h.ctrl.StartSession())

	h.clk.Advance(30 * time.Minute)

	assert.Zero(t, h.logout.Calls())
	assert.Zero(t, h.store.Cleared())
	assert.Zero(t, h.nav.Calls())
	assert.Zero(t, h.notifier.Count(KeySessionLogOut))
	assert.Equal(t, StateIdle, h.ctrl.Status().State)
}

func TestLogout_EndSessionRightAfterHiddenExpiry(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	h.ctrl.beforeExpireLogout = h.ctrl.EndSession
	require.NoError(t, h.ctrl.StartSession())

	h.bus.SetVisibility(events.Hidden)
	h.clk.Advance(31 * time.Minute)
	h.bus.SetVisibility(events.Visible)

	assert.Zero(t, h.logout.Calls())
	assert.Zero(t, h.store.Cleared())
	assert.Zero(t, h.nav.Calls())
	assert.Equal(t, StateIdle, h.ctrl.Status().State)
}

// =============================================================================
// SETTINGS
// =============================================================================

func TestLoadSettings(t *testing.T) {
	tests := []struct {
		name    string
		source  fakeSource
		want    time.Duration
		wantErr bool
	}{
		{"configured", fakeSource{settings: &Settings{InactivityTimeoutMinutes: 45}}, 45 * time.Minute, false},
		{"fetch error", fakeSource{err: errors.New("502 bad gateway")}, 30 * time.Minute, true},
		{"nil payload", fakeSource{}, 30 * time.Minute, true},
		{"zero minutes", fakeSource{settings: &Settings{}}, 30 * time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reported []error
			ctrl, err := NewController(DefaultConfig(), Deps{
				Page:    events.NewBus(),
				Source:  tt.source,
				Logout:  &fakeLogout{},
				Clock:   clock.NewFake(time.Now()),
				OnError: func(err error) { reported = append(reported, err) },
			})
			require.NoError(t, err)

			got := ctrl.LoadSettings(context.Background())

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, ctrl.Timeout())
			if tt.wantErr {
				require.Len(t, reported, 1)
				var cerr *ConfigFetchError
				assert.ErrorAs(t, reported[0], &cerr)
			} else {
				assert.Empty(t, reported)
			}
		})
	}
}

func TestSetTimeout_NotRetroactive(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	require.NoError(t, h.ctrl.StartSession())

	h.ctrl.SetTimeout(60 * time.Minute)

	h.clk.Advance(15 * time.Minute)
	assert.Equal(t, 1, h.notifier.Count(KeySessionWarning))

	require.NoError(t, h.ctrl.ExtendSession())
	h.clk.Advance(29 * time.Minute)
	assert.Equal(t, 1, h.notifier.Count(KeySessionWarning))
	h.clk.Advance(time.Minute)
	assert.Equal(t, 2, h.notifier.Count(KeySessionWarning))
}

func TestSetFallback_KeepsFetchedTimeout(t *testing.T) {
	ctrl, err := NewController(DefaultConfig(), Deps{
		Page:   events.NewBus(),
		Source: fakeSource{settings: &Settings{InactivityTimeoutMinutes: 45}},
		Logout: &fakeLogout{},
		Clock:  clock.NewFake(time.Now()),
	})
	require.NoError(t, err)

	require.Equal(t, 45*time.Minute, ctrl.LoadSettings(context.Background()))

	ctrl.SetFallback(20 * time.Minute)
	assert.Equal(t, 45*time.Minute, ctrl.Timeout())
}

func TestSetFallback_AppliesWithoutFetch(t *testing.T) {
	var reported []error
	ctrl, err := NewController(DefaultConfig(), Deps{
		Page:    events.NewBus(),
		Source:  fakeSource{err: errors.New("connection refused")},
		Logout:  &fakeLogout{},
		Clock:   clock.NewFake(time.Now()),
		OnError: func(err error) { reported = append(reported, err) },
	})
	require.NoError(t, err)

	ctrl.SetFallback(20 * time.Minute)
	assert.Equal(t, 20*time.Minute, ctrl.Timeout())

	assert.Equal(t, 20*time.Minute, ctrl.LoadSettings(context.Background()))
	assert.Len(t, reported, 1)

	ctrl.SetFallback(0)
	assert.Equal(t, 20*time.Minute, ctrl.Timeout())
}

func TestSettings_Timeout(t *testing.T) {
	var nilSettings *Settings
	_, ok := nilSettings.Timeout()
	assert.False(t, ok)

	d, ok := (&Settings{InactivityTimeoutMinutes: 0.5}).Timeout()
	assert.True(t, ok)
	assert.Equal(t, 30*time.Second, d)

	_, ok = (&Settings{InactivityTimeoutMinutes: -5}).Timeout()
	assert.False(t, ok)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "IDLE", StateIdle.String())
	assert.Equal(t, "WARNED", StateWarned.String())
	assert.Equal(t, "PAUSED", StatePaused.String())
	assert.Equal(t, "UNKNOWN", State(99).String())
}
