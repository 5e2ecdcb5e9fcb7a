// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/sessionguard/internal/clock"
	"github.com/jeranaias/sessionguard/internal/events"
)

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the timers, listeners and logout flow of one session.
// All state is guarded by mu; collaborators are called outside the lock.
type Controller struct {
	mu sync.Mutex

	cfg     Config
	timeout time.Duration

	page      Page
	source    ConfigSource
	logoutSvc LogoutService
	store     LocalStore
	notifier  Notifier
	navigator Navigator
	clk       clock.Clock
	logger    *log.Logger
	onError   func(error)

	state      State
	sessionID  string
	sclock     SessionClock
	timers     TimerPair
	throttle   *ThrottleGate
	extensions int

	activitySubs  []events.Subscription
	visibilitySub events.Subscription

	// gen is bumped on every arm and disarm; timer callbacks from an older
	// generation are ignored.
	gen uint64
	// teardowns is bumped by every EndSession; an outstanding logout whose
	// snapshot no longer matches is discarded.
	teardowns uint64
	closed    bool

	// fetched is set once LoadSettings has applied a timeout from the
	// ConfigSource; fallback changes no longer touch timeout after that.
	fetched bool

	// beforeExpireLogout runs between an expiry and its logout call.
	// Tests only.
	beforeExpireLogout func()
}

// NewController creates an idle controller.
func NewController(cfg Config, deps Deps) (*Controller, error) {
	if deps.Page == nil {
		return nil, errors.New("session: page is required")
	}
	if deps.Logout == nil {
		return nil, errors.New("session: logout service is required")
	}

	cfg = cfg.withDefaults()
	c := &Controller{
		cfg:       cfg,
		timeout:   cfg.Timeout,
		page:      deps.Page,
		source:    deps.Source,
		logoutSvc: deps.Logout,
		store:     deps.Store,
		notifier:  deps.Notifier,
		navigator: deps.Navigator,
		clk:       deps.Clock,
		logger:    deps.Logger,
		onError:   deps.OnError,
		throttle:  NewThrottleGate(cfg.ActivityCooldown),
	}
	if c.store == nil {
		c.store = nopStore{}
	}
	if c.notifier == nil {
		c.notifier = nopNotifier{}
	}
	if c.navigator == nil {
		c.navigator = nopNavigator{}
	}
	if c.clk == nil {
		c.clk = clock.Real()
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard, "", 0)
	}
	return c, nil
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// StartSession resets the controller and starts a new session: listeners
// are registered once and both timers are armed from the current timeout.
// Safe to call repeatedly.
func (c *Controller) StartSession() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	return c.startLocked()
}

func (c *Controller) startLocked() error {
	c.disarmLocked()
	c.removeListenersLocked()

	if err := c.addVisibilityListenerLocked(); err != nil {
		return err
	}
	if err := c.addActivityListenersLocked(); err != nil {
		c.removeListenersLocked()
		return err
	}

	c.sessionID = "sess_" + uuid.NewString()
	c.throttle.Reset()
	c.extensions = 0
	c.armLocked(c.timeout, 0)
	c.state = StateActive
	c.logEvent("SESSION_START", "timeout=%s", c.timeout)
	return nil
}

// ExtendSession re-arms both timers with the full timeout as if the
// session had just started. An idle controller is started; a paused one
// has its clock reset and is re-armed when it becomes visible.
func (c *Controller) ExtendSession() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	switch c.state {
	case StateIdle:
		return c.startLocked()
	case StatePaused:
		c.sclock = SessionClock{StartedAt: c.clk.Now(), Timeout: c.timeout}
		c.extensions++
		c.logEvent("SESSION_EXTEND", "source=explicit paused=true")
	default:
		c.extendLocked("explicit")
	}
	return nil
}

func (c *Controller) extendLocked(source string) {
	c.armLocked(c.timeout, 0)
	c.state = StateActive
	c.extensions++
	c.logEvent("SESSION_EXTEND", "source=%s", source)
}

// EndSession cancels both timers, clears the throttle and removes every
// listener. It is a no-op on an idle controller and never panics.
func (c *Controller) EndSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endSessionLocked()
}

func (c *Controller) endSessionLocked() {
	c.disarmLocked()
	c.throttle.Reset()
	c.removeListenersLocked()
	c.teardowns++

	if c.state != StateIdle {
		c.logEvent("SESSION_END", "extensions=%d", c.extensions)
	}
	c.state = StateIdle
}

// Close ends the session and rejects further use of the controller.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.endSessionLocked()
	c.closed = true
}

// =============================================================================
// LOGOUT
// =============================================================================

// HandleLogout invalidates the session through the LogoutService.
//
// On failure the error is logged, an errorOccurred notification is shown
// and a *LogoutError is returned; local state is left intact. On success
// the session is ended, the local store cleared, the user navigated away
// and a persistent sessionLogOut notification shown. If the session is
// torn down while the call is outstanding, the result is discarded.
func (c *Controller) HandleLogout(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	snapshot := c.teardowns
	c.mu.Unlock()

	return c.logout(ctx, snapshot)
}

// logout runs the logout flow for the session that was current when
// snapshot was taken. Nothing reaches the LogoutService once an
// EndSession has happened since then.
func (c *Controller) logout(ctx context.Context, snapshot uint64) error {
	c.mu.Lock()
	if c.closed || c.teardowns != snapshot {
		c.logEvent("SESSION_LOGOUT_DISCARDED", "stage=before_call")
		c.mu.Unlock()
		return ErrSessionEnded
	}
	id := c.sessionID
	svc := c.logoutSvc
	c.mu.Unlock()

	err := svc.Logout(ctx)

	c.mu.Lock()
	if c.closed || c.teardowns != snapshot {
		c.logEvent("SESSION_LOGOUT_DISCARDED", "logout_session=%s", id)
		c.mu.Unlock()
		return ErrSessionEnded
	}
	if err != nil {
		c.logEvent("SESSION_LOGOUT_FAILED", "error=%q", err.Error())
		notifier := c.notifier
		c.mu.Unlock()

		notifier.Error(KeyErrorOccurred)
		return &LogoutError{SessionID: id, Err: err}
	}

	c.endSessionLocked()
	c.logEvent("SESSION_LOGOUT", "extensions=%d", c.extensions)
	store, navigator, notifier := c.store, c.navigator, c.notifier
	c.mu.Unlock()

	if err := store.ClearAll(); err != nil {
		c.logger.Printf("SESSION_CLEAR_FAILED | error=%q", err.Error())
		c.report(fmt.Errorf("clear local session: %w", err))
	}
	navigator.GoToUnauthenticatedRoute()
	notifier.Warn(KeySessionLogOut, NotifyOptions{Persistent: true})
	return nil
}

func (c *Controller) logoutContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.cfg.LogoutTimeout)
}

// =============================================================================
// EVENT HANDLERS
// =============================================================================

// HandleVisibilityChange is the visibility listener. Hidden pauses the
// session; visible resumes it from the time left on the current clock, or
// logs out if none is left. Any other state is ignored.
func (c *Controller) HandleVisibilityChange() {
	c.mu.Lock()
	if c.closed || c.state == StateIdle {
		c.mu.Unlock()
		return
	}

	switch c.page.VisibilityState() {
	case events.Hidden:
		c.removeActivityListenersLocked()
		c.disarmLocked()
		c.state = StatePaused
		c.logEvent("SESSION_PAUSE", "remaining=%s", c.sclock.Remaining(c.clk.Now()))
		c.mu.Unlock()

	case events.Visible:
		c.removeActivityListenersLocked()
		if err := c.addActivityListenersLocked(); err != nil {
			c.mu.Unlock()
			c.report(err)
			return
		}

		remaining := c.sclock.Remaining(c.clk.Now())
		if remaining > 0 {
			c.armLocked(remaining, remaining/2)
			c.state = StateActive
			c.logEvent("SESSION_RESUME", "remaining=%s", remaining)
			c.mu.Unlock()
			return
		}

		c.disarmLocked()
		c.state = StateExpired
		c.logEvent("SESSION_EXPIRED", "while=hidden")
		c.expireLogoutUnlock()

	default:
		c.mu.Unlock()
	}
}

// onActivity is the pointer-move and key-down listener.
func (c *Controller) onActivity() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.state == StateIdle || c.state == StatePaused {
		return
	}
	if !c.throttle.Allow(c.clk.Now()) {
		return
	}
	c.extendLocked("activity")
}

func (c *Controller) onWarning(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.state = StateWarned
	c.logEvent("SESSION_WARNING", "remaining=%s", c.sclock.Remaining(c.clk.Now()))
	notifier := c.notifier
	c.mu.Unlock()

	notifier.Warn(KeySessionWarning, NotifyOptions{})
}

func (c *Controller) onExpire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.disarmLocked()
	c.state = StateExpired
	c.logEvent("SESSION_EXPIRED", "while=visible")
	c.expireLogoutUnlock()
}

// expireLogoutUnlock is entered with mu held right after an expiry. The
// teardown snapshot is taken before mu is released so an EndSession that
// slips in afterwards cancels the logout.
func (c *Controller) expireLogoutUnlock() {
	snapshot := c.teardowns
	hook := c.beforeExpireLogout
	c.mu.Unlock()

	if hook != nil {
		hook()
	}
	ctx, cancel := c.logoutContext()
	defer cancel()
	_ = c.logout(ctx, snapshot)
}

// =============================================================================
// SETTINGS
// =============================================================================

// LoadSettings fetches the timeout from the ConfigSource and returns the
// timeout now in effect. A failed fetch or unusable payload is reported
// to OnError as a *ConfigFetchError and the fallback timeout is used.
func (c *Controller) LoadSettings(ctx context.Context) time.Duration {
	if c.source == nil {
		return c.Timeout()
	}

	settings, err := c.source.FetchSettings(ctx)
	if err == nil {
		if d, ok := settings.Timeout(); ok {
			c.mu.Lock()
			c.fetched = true
			c.setTimeoutLocked(d)
			c.mu.Unlock()
			return d
		}
		err = ErrNoSettings
	}

	c.report(&ConfigFetchError{Err: err})
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetched = false
	c.setTimeoutLocked(c.cfg.Timeout)
	return c.cfg.Timeout
}

// SetTimeout changes the timeout used by the next arm cycle. Timers that
// are already armed keep their deadlines.
func (c *Controller) SetTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setTimeoutLocked(d)
}

// SetFallback changes the timeout used when the ConfigSource cannot be
// reached. It replaces the timeout in effect only while no fetched value
// has been applied.
func (c *Controller) SetFallback(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cfg.Timeout = d
	if !c.fetched {
		c.setTimeoutLocked(d)
	}
}

func (c *Controller) setTimeoutLocked(d time.Duration) {
	if c.timeout != d {
		c.logEvent("SESSION_TIMEOUT_CHANGED", "timeout=%s", d)
	}
	c.timeout = d
}

// Timeout returns the configured timeout.
func (c *Controller) Timeout() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeout
}

// =============================================================================
// STATUS
// =============================================================================

// Status returns a snapshot of the controller.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		SessionID:  c.sessionID,
		State:      c.state,
		Timeout:    c.timeout,
		StartedAt:  c.sclock.StartedAt,
		Extensions: c.extensions,
	}
	if c.state != StateIdle && c.state != StateExpired {
		st.Remaining = c.sclock.Remaining(c.clk.Now())
	}
	return st
}

// =============================================================================
// HELPERS
// =============================================================================

func (c *Controller) armLocked(total, warning time.Duration) {
	if warning <= 0 {
		warning = time.Duration(float64(total) * c.cfg.WarningFraction)
	}
	c.gen++
	gen := c.gen
	c.sclock = SessionClock{StartedAt: c.clk.Now(), Timeout: total}
	c.timers.Arm(c.clk, total, warning,
		func() { c.onWarning(gen) },
		func() { c.onExpire(gen) },
	)
}

func (c *Controller) disarmLocked() {
	c.gen++
	c.timers.Disarm()
}

func (c *Controller) addVisibilityListenerLocked() error {
	sub, err := c.page.Subscribe(events.VisibilityChange, c.HandleVisibilityChange)
	if err != nil {
		return &ListenerError{Kind: events.VisibilityChange, Err: err}
	}
	c.visibilitySub = sub
	return nil
}

func (c *Controller) addActivityListenersLocked() error {
	for _, kind := range []events.Kind{events.PointerMove, events.KeyDown} {
		sub, err := c.page.Subscribe(kind, c.onActivity)
		if err != nil {
			c.removeActivityListenersLocked()
			return &ListenerError{Kind: kind, Err: err}
		}
		c.activitySubs = append(c.activitySubs, sub)
	}
	return nil
}

func (c *Controller) removeActivityListenersLocked() {
	for _, sub := range c.activitySubs {
		sub.Unsubscribe()
	}
	c.activitySubs = nil
}

func (c *Controller) removeListenersLocked() {
	c.removeActivityListenersLocked()
	if c.visibilitySub != nil {
		c.visibilitySub.Unsubscribe()
		c.visibilitySub = nil
	}
}

func (c *Controller) report(err error) {
	if c.onError != nil {
		c.onError(err)
	}
}

// logEvent writes an audit-style line: EVENT | session_id=... details
func (c *Controller) logEvent(event, format string, args ...interface{}) {
	c.logger.Printf("%s | session_id=%s %s", event, c.sessionID, fmt.Sprintf(format, args...))
}
