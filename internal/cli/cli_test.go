// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/sessionguard/internal/config"
	"github.com/jeranaias/sessionguard/internal/portal"
	"github.com/jeranaias/sessionguard/internal/server"
	"github.com/jeranaias/sessionguard/internal/storage"
)

// =============================================================================
// PARSING
// =============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		wantCmd Command
		check   func(t *testing.T, a Args)
	}{
		{name: "no args runs the guard", argv: nil, wantCmd: CmdGuard},
		{name: "serve", argv: []string{"serve", "--addr", ":9000"}, wantCmd: CmdServe,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, []string{"--addr", ":9000"}, a.Raw)
			}},
		{name: "timeout subcommand", argv: []string{"timeout", "set", "45"}, wantCmd: CmdTimeout,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "set", a.Subcommand)
			}},
		{name: "global flags anywhere", argv: []string{"--json", "config", "show", "-q"}, wantCmd: CmdConfig,
			check: func(t *testing.T, a Args) {
				assert.True(t, a.JSON)
				assert.True(t, a.Quiet)
				assert.Equal(t, []string{"show"}, a.Raw)
			}},
		{name: "config path flag", argv: []string{"--config=/tmp/sg.toml", "login"}, wantCmd: CmdLogin,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "/tmp/sg.toml", a.ConfigPath)
			}},
		{name: "config path flag spaced", argv: []string{"--config", "/tmp/sg.toml", "logout"}, wantCmd: CmdLogout,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "/tmp/sg.toml", a.ConfigPath)
			}},
		{name: "case insensitive", argv: []string{"USER", "add"}, wantCmd: CmdUser},
		{name: "version flag", argv: []string{"--version"}, wantCmd: CmdVersion},
		{name: "help", argv: []string{"-h"}, wantCmd: CmdHelp},
		{name: "unknown", argv: []string{"frobnicate"}, wantCmd: CmdUnknown,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "frobnicate", a.Name)
			}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := ParseArgs(tt.argv)
			assert.Equal(t, tt.wantCmd, cmd)
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestArgParser(t *testing.T) {
	p := NewArgParser([]string{"add", "--admin", "alice@example.org", "--password=s3cret", "--db", "x.db"}, "admin")

	assert.Equal(t, "add", p.Subcommand())
	assert.True(t, p.BoolFlag("admin"))
	assert.Equal(t, "alice@example.org", p.Positional(1))
	assert.Equal(t, "s3cret", p.Flag("password"))
	assert.Equal(t, "x.db", p.Flag("--db"))
	assert.Equal(t, 2, p.PositionalCount())
	assert.True(t, p.HasFlag("password"))
	assert.False(t, p.HasFlag("force"))
	assert.Equal(t, "fallback", p.FlagOrDefault("missing", "fallback"))
	assert.Empty(t, p.Positional(5))

	// Without the bool hint the next word is taken as the flag value.
	q := NewArgParser([]string{"add", "--admin", "alice@example.org"})
	assert.Equal(t, "alice@example.org", q.Flag("admin"))
	assert.Equal(t, 1, q.PositionalCount())

	r := NewArgParser([]string{"show", "--json=true", "--force"})
	assert.True(t, r.BoolFlag("json"))
	assert.True(t, r.BoolFlag("force"))
}

func TestParseIntWithValidation(t *testing.T) {
	n, err := ParseIntWithValidation("45", "minutes")
	require.NoError(t, err)
	assert.Equal(t, 45, n)

	for _, in := range []string{"", "abc", "0", "-5"} {
		_, err := ParseIntWithValidation(in, "minutes")
		assert.Error(t, err, in)
		assert.Equal(t, ExitUsageError, GetExitCode(err), in)
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{errors.New("boom"), ExitGeneralError},
		{NewValidationError("x", "y", "bad"), ExitUsageError},
		{&NotFoundError{Resource: "config key", ID: "x"}, ExitNotFoundError},
		{config.ValidateErrors{{Field: "a", Message: "b"}}, ExitConfigError},
		{fmt.Errorf("invalid config: %w", config.ValidateErrors{{Field: "a"}}), ExitConfigError},
		{NewCommandError("logout", "revoke", "x", portal.ErrNotLoggedIn), ExitAuthError},
		{&portal.ClientError{Type: portal.ErrTypeUnauthorized, StatusCode: 403}, ExitAuthError},
		{&portal.ClientError{Type: portal.ErrTypeConnection}, ExitNetworkError},
		{&portal.ClientError{Type: portal.ErrTypeTimeout}, ExitTimeoutError},
		{&portal.ClientError{Type: portal.ErrTypeRejected}, ExitUsageError},
		{fmt.Errorf("verify: %w", storage.ErrInvalidCredentials), ExitAuthError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetExitCode(tt.err), "%v", tt.err)
	}
}

func TestMaskIfSecret(t *testing.T) {
	assert.Equal(t, "abcd...wxyz", maskIfSecret("client.token", "abcdefghijklmnopqrstuvwxyz"))
	assert.Equal(t, "****", maskIfSecret("client.token", "short"))
	assert.Equal(t, "", maskIfSecret("client.token", ""))
	assert.Equal(t, "http://x", maskIfSecret("client.portal_url", "http://x"))
}

// =============================================================================
// COMMANDS
// =============================================================================

// useHome points the config directory at a temp dir.
func useHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("SESSIONGUARD_HOME", home)
	t.Setenv("SESSIONGUARD_PORTAL_URL", "")
	t.Setenv("SESSIONGUARD_TOKEN", "")
	t.Setenv("SESSIONGUARD_TIMEOUT_MINUTES", "")
	return home
}

func TestConfigCommands(t *testing.T) {
	home := useHome(t)
	quiet := func(raw ...string) Args { return Args{Quiet: true, Raw: raw} }

	require.NoError(t, HandleConfig(quiet("init")))
	path := filepath.Join(home, "config.toml")
	require.FileExists(t, path)

	err := HandleConfig(quiet("init"))
	assert.True(t, errors.As(err, new(*CommandError)))
	require.NoError(t, HandleConfig(quiet("init", "--force")))

	require.NoError(t, HandleConfig(quiet("set", "session.timeout_minutes", "45")))
	cfg, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 45, cfg.Session.TimeoutMinutes)

	err = HandleConfig(quiet("set", "session.timeout_minutes", "10"))
	assert.Equal(t, ExitConfigError, GetExitCode(err))

	err = HandleConfig(quiet("set", "session.timeout_minutes", "abc"))
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	err = HandleConfig(quiet("set", "nope.key", "1"))
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))

	err = HandleConfig(quiet("get", "nope.key"))
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))

	err = HandleConfig(quiet("set", "ui.locale"))
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	err = HandleConfig(quiet("frob"))
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	// The rejected values left the file alone.
	cfg, err = config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 45, cfg.Session.TimeoutMinutes)

	require.NoError(t, HandleConfig(quiet("get", "session.timeout_minutes")))
	require.NoError(t, HandleConfig(quiet("path")))
	require.NoError(t, HandleConfig(quiet("show")))
}

func TestConfigCommands_ExplicitPath(t *testing.T) {
	useHome(t)
	path := filepath.Join(t.TempDir(), "custom.toml")
	args := Args{Quiet: true, ConfigPath: path}

	args.Raw = []string{"init"}
	require.NoError(t, HandleConfig(args))
	args.Raw = []string{"set", "ui.theme", "light"}
	require.NoError(t, HandleConfig(args))

	cfg, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "light", cfg.UI.Theme)
}

func TestUserAdd(t *testing.T) {
	home := useHome(t)
	args := Args{Quiet: true, Raw: []string{"add", "--admin", "root@example.org", "--password", "hunter22"}}
	require.NoError(t, HandleUser(args))

	store, err := storage.OpenPortal(filepath.Join(home, "portal.db"), nil)
	require.NoError(t, err)
	u, err := store.VerifyUser(context.Background(), "root@example.org", "hunter22")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)
	store.Close()

	err = HandleUser(args)
	assert.ErrorIs(t, err, storage.ErrUserExists)

	err = HandleUser(Args{Raw: []string{"add"}})
	assert.Equal(t, ExitUsageError, GetExitCode(err))
	err = HandleUser(Args{Raw: []string{"remove", "x@example.org"}})
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestLoginTimeoutLogout(t *testing.T) {
	home := useHome(t)

	store, err := storage.OpenPortal(filepath.Join(t.TempDir(), "portal.db"), nil)
	require.NoError(t, err)
	defer store.Close()
	_, err = store.CreateUser(context.Background(), "admin@example.org", "correct-horse", true)
	require.NoError(t, err)

	srv := server.New(server.Config{Logger: log.New(io.Discard, "", 0)}, store)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	quiet := func(raw ...string) Args { return Args{Quiet: true, Raw: raw} }

	err = HandleLogin(quiet("admin@example.org", "--password", "wrong-horse", "--portal", ts.URL))
	assert.Equal(t, ExitAuthError, GetExitCode(err))

	require.NoError(t, HandleLogin(quiet("admin@example.org", "--password", "correct-horse", "--portal", ts.URL)))

	local, err := storage.OpenLocal(filepath.Join(home, "local.db"))
	require.NoError(t, err)
	st, err := readLoginState(local)
	require.NoError(t, err)
	local.Close()
	assert.NotEmpty(t, st.Token)
	assert.NotEmpty(t, st.UserID)
	assert.Equal(t, "admin@example.org", st.Email)
	assert.Equal(t, ts.URL, st.PortalURL)

	// The stored portal URL is used from here on.
	require.NoError(t, HandleTimeout(quiet("set", "45")))
	d, err := store.GetInactivityTimeout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 45.0, d.Minutes())

	err = HandleTimeout(quiet("set", "47"))
	assert.Equal(t, ExitUsageError, GetExitCode(err))
	require.NoError(t, HandleTimeout(quiet("get")))

	require.NoError(t, HandleLogout(quiet()))

	local, err = storage.OpenLocal(filepath.Join(home, "local.db"))
	require.NoError(t, err)
	keys, err := local.Keys()
	require.NoError(t, err)
	local.Close()
	assert.Empty(t, keys)

	err = HandleLogout(quiet())
	assert.Equal(t, ExitAuthError, GetExitCode(err))

	data, err := os.ReadFile(filepath.Join(home, "audit.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "LOGIN_FAILED")
	assert.Contains(t, string(data), "LOGOUT")
}
