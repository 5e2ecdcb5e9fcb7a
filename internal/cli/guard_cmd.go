// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// guard_cmd.go - `sessionguard guard`: watch the signed-in session in a
// full-screen terminal UI and sign out after inactivity.

package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jeranaias/sessionguard/internal/config"
	"github.com/jeranaias/sessionguard/internal/events"
	"github.com/jeranaias/sessionguard/internal/i18n"
	"github.com/jeranaias/sessionguard/internal/portal"
	"github.com/jeranaias/sessionguard/internal/session"
	"github.com/jeranaias/sessionguard/internal/ui/guard"
	"github.com/jeranaias/sessionguard/internal/ui/styles"
)

const configDebounce = 250 * time.Millisecond

// HandleGuard runs the guard until the user quits or a signal arrives.
//
// Usage: sessionguard guard [--portal url] [--locale xx] [--theme dark|light|auto]
func HandleGuard(args Args) error {
	p := NewArgParser(args.Raw)

	if err := RequiresTTY("run the guard"); err != nil {
		return err
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	local, err := openLocal(cfg)
	if err != nil {
		return NewCommandError("guard", "open", "cannot open local store", err)
	}
	defer local.Close()
	st, err := readLoginState(local)
	if err != nil {
		return err
	}
	client := newClient(cfg, st, p.Flag("portal"))
	if client.Token() == "" {
		return NewCommandError("guard", "start", "not signed in; run `sessionguard login` first", portal.ErrNotLoggedIn)
	}

	auditLog, err := openAudit(cfg)
	if err != nil {
		return err
	}
	defer auditLog.Close()

	logger, closeLog, err := guardLogger(args)
	if err != nil {
		return err
	}
	defer closeLog()

	bus := events.NewBus()
	bridge := guard.NewBridge()
	ctrl, err := session.NewController(cfg.Session.Controller(), session.Deps{
		Page:      bus,
		Source:    client,
		Logout:    client,
		Store:     local,
		Notifier:  bridge,
		Navigator: bridge,
		Logger:    logger,
		OnError: func(err error) {
			logger.Printf("SESSION_ERROR | error=%q", err.Error())
		},
	})
	if err != nil {
		return err
	}
	defer ctrl.Close()

	// Local config edits change the fallback timeout of the running guard;
	// a timeout fetched from the portal stays in effect.
	if path, err := configPath(args); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			w, err := config.NewWatcher(path, configDebounce, func(c *config.Config) {
				ctrl.SetFallback(time.Duration(c.Session.TimeoutMinutes) * time.Minute)
				logger.Printf("CONFIG_RELOAD | timeout_minutes=%d", c.Session.TimeoutMinutes)
			}, func(err error) {
				logger.Printf("CONFIG_RELOAD_FAILED | error=%q", err.Error())
			})
			if err == nil {
				if err := w.Watch(); err != nil {
					logger.Printf("CONFIG_WATCH_FAILED | error=%q", err.Error())
				}
				defer w.Close()
			}
		}
	}

	locale := p.FlagOrDefault("locale", cfg.UI.Locale)
	theme := p.FlagOrDefault("theme", cfg.UI.Theme)
	m := guard.New(guard.Options{
		Controller:   ctrl,
		Bus:          bus,
		Translator:   i18n.New(locale),
		Theme:        styles.NewTheme(theme),
		Audit:        auditLog,
		PortalURL:    client.BaseURL(),
		User:         st.Email,
		LoadSettings: true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := guard.Run(ctx, m, bridge); err != nil {
		return NewCommandError("guard", "run", "terminal UI failed", err)
	}
	return nil
}

// guardLogger writes controller events to guard.log with --verbose; the
// terminal belongs to the UI while the guard runs.
func guardLogger(args Args) (*log.Logger, func(), error) {
	if !args.Verbose {
		return log.New(io.Discard, "", 0), func() {}, nil
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, nil, err
	}
	if err := config.EnsureConfigDir(); err != nil {
		return nil, nil, err
	}
	path := filepath.Join(dir, "guard.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return log.New(f, "", log.LstdFlags), func() { f.Close() }, nil
}
