// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// env.go - Config, store and client setup shared by the commands.

package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/sessionguard/internal/audit"
	"github.com/jeranaias/sessionguard/internal/config"
	"github.com/jeranaias/sessionguard/internal/portal"
	"github.com/jeranaias/sessionguard/internal/storage"
)

// loadConfig loads --config when given, else the default config files.
// A broken default file is reported and defaults are used.
func loadConfig(args Args) (*config.Config, error) {
	if args.ConfigPath != "" {
		cfg, err := config.LoadFromPath(args.ConfigPath)
		if err != nil {
			return nil, err
		}
		return cfg, nil
	}

	cfg, err := config.Load()
	if cfg == nil {
		return nil, err
	}
	if err != nil && !args.Quiet {
		fmt.Fprintln(os.Stderr, RenderWarn(err.Error()+"; using defaults"))
	}
	return cfg, nil
}

// configPath is the file `config` subcommands and the guard watcher use.
func configPath(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	return config.ConfigPathTOML()
}

func openLocal(cfg *config.Config) (*storage.LocalStore, error) {
	path, err := config.ResolvePath(cfg.Client.LocalDBPath, "local.db")
	if err != nil {
		return nil, err
	}
	return storage.OpenLocal(path)
}

func openPortal(cfg *config.Config) (*storage.PortalStore, error) {
	path, err := config.ResolvePath(cfg.Server.DBPath, "portal.db")
	if err != nil {
		return nil, err
	}
	return storage.OpenPortal(path, nil)
}

// openAudit opens the audit log, or returns a nil Logger (which discards
// events) when auditing is disabled.
func openAudit(cfg *config.Config) (*audit.Logger, error) {
	if !cfg.Audit.Enabled {
		return nil, nil
	}
	path, err := config.ResolvePath(cfg.Audit.Path, "audit.log")
	if err != nil {
		return nil, err
	}
	l, err := audit.Open(path, audit.FormatText)
	if err != nil {
		return nil, err
	}
	l.SetMaxSize(int64(cfg.Audit.MaxSizeMB) * 1024 * 1024)
	l.SetOnFailure(func(err error) {
		fmt.Fprintln(os.Stderr, RenderWarn("audit: "+err.Error()))
	})
	return l, nil
}

// loginState is what `login` leaves in the local store.
type loginState struct {
	Token     string
	UserID    string
	Email     string
	PortalURL string
}

func readLoginState(local *storage.LocalStore) (loginState, error) {
	var st loginState
	fields := []struct {
		key string
		dst *string
	}{
		{storage.KeyToken, &st.Token},
		{storage.KeyUserID, &st.UserID},
		{storage.KeyEmail, &st.Email},
		{storage.KeyPortalURL, &st.PortalURL},
	}
	for _, f := range fields {
		v, _, err := local.Get(f.key)
		if err != nil {
			return st, err
		}
		*f.dst = v
	}
	return st, nil
}

func writeLoginState(local *storage.LocalStore, st loginState) error {
	var errs []error
	errs = append(errs, local.Set(storage.KeyToken, st.Token))
	errs = append(errs, local.Set(storage.KeyUserID, st.UserID))
	errs = append(errs, local.Set(storage.KeyEmail, st.Email))
	errs = append(errs, local.Set(storage.KeyPortalURL, st.PortalURL))
	return errors.Join(errs...)
}

// newClient builds a portal client. The portal URL comes from the
// --portal flag, then the stored login, then config; the token from the
// stored login, then config.
func newClient(cfg *config.Config, st loginState, portalFlag string) *portal.Client {
	url := cfg.Client.PortalURL
	if st.PortalURL != "" {
		url = st.PortalURL
	}
	if portalFlag != "" {
		url = portalFlag
	}

	c := portal.NewClient(url, time.Duration(cfg.Client.RequestTimeoutSecs)*time.Second)
	token := st.Token
	if token == "" {
		token = cfg.Client.Token
	}
	c.SetToken(token)
	return c
}
