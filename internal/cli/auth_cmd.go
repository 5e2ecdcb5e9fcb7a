// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - `sessionguard login` and `sessionguard logout`.

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jeranaias/sessionguard/internal/audit"
	"github.com/jeranaias/sessionguard/internal/portal"
)

// HandleLogin signs in and stores the token in the local store.
//
// Usage: sessionguard login <email> [--password pw] [--portal url]
func HandleLogin(args Args) error {
	p := NewArgParser(args.Raw)

	email := p.Positional(0)
	if email == "" {
		var err error
		if email, err = promptLine("Email: "); err != nil {
			return err
		}
	}
	if email == "" {
		return ErrMissingArgument("email", "sessionguard login alice@example.org")
	}
	password, err := passwordArg(p, false)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	local, err := openLocal(cfg)
	if err != nil {
		return NewCommandError("login", "open", "cannot open local store", err)
	}
	defer local.Close()
	auditLog, err := openAudit(cfg)
	if err != nil {
		return err
	}
	defer auditLog.Close()

	client := newClient(cfg, loginState{}, p.Flag("portal"))
	res, err := client.Login(context.Background(), email, password)
	if err != nil {
		auditLog.LogFailure("", audit.EventLoginFailed, email, err)
		return NewCommandError("login", "sign in", "portal refused the login", err)
	}
	auditLog.LogEvent("", audit.EventLogin, email, map[string]string{"portal": client.BaseURL()})

	st := loginState{Token: res.Token, UserID: res.UserID, Email: email, PortalURL: client.BaseURL()}
	if err := writeLoginState(local, st); err != nil {
		return NewCommandError("login", "save", "cannot store the token", err)
	}

	if args.JSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"success":          true,
			"userId":           res.UserID,
			"expiresInMinutes": res.ExpiresInMinutes,
		})
	}
	if !args.Quiet {
		fmt.Println(RenderOK(fmt.Sprintf("signed in as %s (token valid for %d minutes)", email, res.ExpiresInMinutes)))
	}
	return nil
}

// HandleLogout revokes the stored token and clears the local store. The
// store is left alone when the portal rejects the logout.
//
// Usage: sessionguard logout
func HandleLogout(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	local, err := openLocal(cfg)
	if err != nil {
		return NewCommandError("logout", "open", "cannot open local store", err)
	}
	defer local.Close()
	auditLog, err := openAudit(cfg)
	if err != nil {
		return err
	}
	defer auditLog.Close()

	st, err := readLoginState(local)
	if err != nil {
		return err
	}
	client := newClient(cfg, st, "")
	if err := client.Logout(context.Background()); err != nil {
		auditLog.LogFailure("", audit.EventLogoutFailed, st.Email, err)
		if errors.Is(err, portal.ErrNotLoggedIn) {
			return NewCommandError("logout", "revoke", "not signed in", err)
		}
		return NewCommandError("logout", "revoke", "portal refused the logout", err)
	}
	auditLog.LogEvent("", audit.EventLogout, st.Email, nil)

	if err := local.ClearAll(); err != nil {
		return NewCommandError("logout", "clear", "cannot clear local store", err)
	}
	if !args.Quiet {
		fmt.Println(RenderOK("signed out"))
	}
	return nil
}
