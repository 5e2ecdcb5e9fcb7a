// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package guard

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/sessionguard/internal/audit"
	"github.com/jeranaias/sessionguard/internal/events"
	"github.com/jeranaias/sessionguard/internal/i18n"
	"github.com/jeranaias/sessionguard/internal/session"
	"github.com/jeranaias/sessionguard/internal/ui/components"
	"github.com/jeranaias/sessionguard/internal/ui/styles"
	"github.com/jeranaias/sessionguard/internal/util"
)

const (
	defaultTickInterval = time.Second
	settingsTimeout     = 10 * time.Second
)

// Options configures a guard Model.
type Options struct {
	Controller *session.Controller
	Bus        *events.Bus
	Translator *i18n.Translator
	Theme      *styles.Theme
	Audit      *audit.Logger

	PortalURL string
	User      string

	// LoadSettings fetches the community timeout before the session starts.
	LoadSettings bool
	// TickInterval is the status refresh period (default 1s).
	TickInterval time.Duration
}

// =============================================================================
// MESSAGES
// =============================================================================

type tickMsg time.Time

type startedMsg struct {
	timeout time.Duration
	err     error
}

type extendedMsg struct {
	err error
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the guard screen. Terminal input becomes page activity, terminal
// focus becomes page visibility, and controller notifications arrive as
// WarnMsg, ErrorMsg and NavigateMsg through a Bridge.
type Model struct {
	ctrl  *session.Controller
	bus   *events.Bus
	tr    *i18n.Translator
	theme *styles.Theme
	audit *audit.Logger
	opts  Options

	keys    keyMap
	help    help.Model
	overlay components.SessionTimeoutOverlay

	status    session.Status
	startErr  error
	signedOut bool
	toast     components.Toast
	quitting  bool

	width  int
	height int
}

// New builds a guard model. Controller and Bus are required.
func New(opts Options) Model {
	if opts.Translator == nil {
		opts.Translator = i18n.New("en")
	}
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme(styles.ThemeAuto)
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	h := help.New()
	h.Styles.ShortKey = opts.Theme.HelpKey
	h.Styles.FullKey = opts.Theme.HelpKey
	h.Styles.ShortDesc = opts.Theme.Help
	h.Styles.FullDesc = opts.Theme.Help
	h.Styles.ShortSeparator = opts.Theme.Help
	h.Styles.FullSeparator = opts.Theme.Help

	return Model{
		ctrl:    opts.Controller,
		bus:     opts.Bus,
		tr:      opts.Translator,
		theme:   opts.Theme,
		audit:   opts.Audit,
		opts:    opts,
		keys:    defaultKeyMap(),
		help:    h,
		overlay: components.NewSessionTimeoutOverlay(),
	}
}

// Init starts the session and the refresh ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.startCmd(), m.tickCmd())
}

func (m Model) startCmd() tea.Cmd {
	ctrl, load := m.ctrl, m.opts.LoadSettings
	return func() tea.Msg {
		timeout := ctrl.Timeout()
		if load {
			ctx, cancel := context.WithTimeout(context.Background(), settingsTimeout)
			timeout = ctrl.LoadSettings(ctx)
			cancel()
		}
		return startedMsg{timeout: timeout, err: ctrl.StartSession()}
	}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.opts.TickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// dispatchCmd delivers a page event off the event loop. The controller may
// call back into the Bridge, which blocks until the program reads the
// message.
func (m Model) dispatchCmd(kind events.Kind) tea.Cmd {
	bus := m.bus
	return func() tea.Msg {
		bus.Dispatch(kind)
		return nil
	}
}

func (m Model) visibilityCmd(v events.Visibility) tea.Cmd {
	bus := m.bus
	return func() tea.Msg {
		bus.SetVisibility(v)
		return nil
	}
}

func (m Model) extendCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return extendedMsg{err: ctrl.ExtendSession()}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.overlay, _ = m.overlay.Update(msg)
		return m, nil

	case startedMsg:
		m.refresh()
		if msg.err != nil {
			m.startErr = msg.err
			m.overlay.ShowError(m.tr.T(session.KeyErrorOccurred))
			return m, nil
		}
		m.overlay.Reset()
		m.signedOut = false
		m.audit.LogEvent(m.status.SessionID, audit.EventSessionStart, m.opts.User, map[string]string{
			"timeout": msg.timeout.String(),
		})
		return m, nil

	case tickMsg:
		m.refresh()
		if m.quitting {
			return m, nil
		}
		return m, m.tickCmd()

	case WarnMsg:
		m.refresh()
		if msg.Persistent {
			m.overlay.ShowExpired(m.tr.T(msg.Key))
			m.audit.LogEvent(m.status.SessionID, audit.EventSessionExpired, m.opts.User, nil)
		} else {
			m.overlay.ShowWarning(m.tr.T(msg.Key), m.status.Remaining)
			m.audit.LogEvent(m.status.SessionID, audit.EventSessionWarning, m.opts.User, map[string]string{
				"remaining": m.status.Remaining.Round(time.Second).String(),
			})
		}
		return m, nil

	case ErrorMsg:
		m.refresh()
		m.overlay.ShowError(m.tr.T(msg.Key))
		m.audit.LogFailure(m.status.SessionID, audit.EventLogoutFailed, m.opts.User, errors.New(msg.Key))
		return m, nil

	case NavigateMsg:
		m.signedOut = true
		m.refresh()
		return m, nil

	case extendedMsg:
		m.refresh()
		if msg.err != nil {
			m.toast.Show(components.ToastKindError, m.tr.T(session.KeyErrorOccurred), time.Now())
			return m, nil
		}
		m.overlay.Hide()
		m.toast.Show(components.ToastKindSuccess, m.tr.T(session.KeySessionExtended), time.Now())
		return m, nil

	case tea.FocusMsg:
		return m, m.visibilityCmd(events.Visible)

	case tea.BlurMsg:
		return m, m.visibilityCmd(events.Hidden)

	case tea.MouseMsg:
		return m, m.dispatchCmd(events.PointerMove)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.refresh()
		if m.status.State != session.StateIdle {
			m.audit.LogEvent(m.status.SessionID, audit.EventSessionEnd, m.opts.User, nil)
		}
		m.ctrl.EndSession()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Extend):
		return m, m.extendCmd()
	}

	if m.overlay.Mode() == components.OverlayError {
		m.overlay.Hide()
	}
	return m, m.dispatchCmd(events.KeyDown)
}

// refresh pulls a controller snapshot and syncs the overlay with it.
func (m *Model) refresh() {
	m.status = m.ctrl.Status()

	if m.overlay.Mode() == components.OverlayWarning {
		if m.status.State == session.StateWarned {
			m.overlay.UpdateTime(m.status.Remaining)
		} else {
			m.overlay.Hide()
		}
	}

	m.toast.Expire(time.Now())
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the guard screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.overlay.IsVisible() {
		return m.overlay.View()
	}

	t := m.theme
	var b strings.Builder

	b.WriteString(t.Title.Render("sessionguard"))
	b.WriteString("  ")
	b.WriteString(t.Subtitle.Render(m.opts.PortalURL))
	b.WriteString("\n\n")

	if m.signedOut {
		b.WriteString(styles.RenderWarning("Signed out. Run `sessionguard login` to sign in again."))
		b.WriteString("\n\n")
		b.WriteString(m.help.View(m.keys))
		return t.App.Render(b.String())
	}

	rows := [][2]string{
		{"State", t.RenderState(m.status.State)},
		{"User", orDash(m.opts.User)},
		{"Session", orDash(m.status.SessionID)},
		{"Timeout", util.FormatDuration(m.status.Timeout)},
		{"Remaining", m.remainingText()},
		{"Extensions", strconv.Itoa(m.status.Extensions)},
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, t.Label.Render(r[0]), t.Value.Render(r[1])))
	}
	b.WriteString(t.Panel.Render(strings.Join(lines, "\n")))
	b.WriteString("\n")

	if m.startErr != nil {
		b.WriteString(styles.RenderError(m.startErr.Error()))
		b.WriteString("\n")
	}
	if m.toast.Visible() {
		b.WriteString(m.toast.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return t.App.Render(b.String())
}

func (m Model) remainingText() string {
	switch m.status.State {
	case session.StatePaused:
		return util.FormatCountdown(m.status.Remaining) + " (paused)"
	case session.StateActive, session.StateWarned:
		return util.FormatCountdown(m.status.Remaining)
	default:
		return "-"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
