// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve_cmd.go - `sessionguard serve`: run the portal API.

package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeranaias/sessionguard/internal/server"
)

const shutdownTimeout = 10 * time.Second

// HandleServe runs the portal API until SIGINT or SIGTERM.
//
// Usage: sessionguard serve [--addr host:port] [--db path]
func HandleServe(args Args) error {
	p := NewArgParser(args.Raw)

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if addr := p.Flag("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if db := p.Flag("db"); db != "" {
		cfg.Server.DBPath = db
	}

	store, err := openPortal(cfg)
	if err != nil {
		return NewCommandError("serve", "open", "cannot open portal database", err)
	}
	defer store.Close()

	auditLog, err := openAudit(cfg)
	if err != nil {
		return NewCommandError("serve", "open", "cannot open audit log", err)
	}
	defer auditLog.Close()

	logger := log.New(os.Stderr, "", log.LstdFlags)
	srv := server.New(server.FromConfig(cfg.Server, logger, auditLog), store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	if !args.Quiet {
		fmt.Fprintf(os.Stderr, "%s portal API on http://%s (ctrl+c to stop)\n", RenderOK("serving"), srv.Addr())
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
