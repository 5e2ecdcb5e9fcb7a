// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audit provides an append-only session audit trail with secret
// redaction and size-based rotation.
package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultMaxFileSize is the default max file size before rotation (10MB).
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// Event types written by sessionguard.
const (
	EventLogin          = "LOGIN"
	EventLoginFailed    = "LOGIN_FAILED"
	EventLogout         = "LOGOUT"
	EventLogoutFailed   = "LOGOUT_FAILED"
	EventTimeoutChanged = "TIMEOUT_CHANGED"
	EventSessionStart   = "SESSION_START"
	EventSessionWarning = "SESSION_WARNING"
	EventSessionExpired = "SESSION_EXPIRED"
	EventSessionEnd     = "SESSION_END"
)

// ErrClosed is returned when logging to a closed logger.
var ErrClosed = errors.New("audit log closed")

// =============================================================================
// AUDIT EVENT
// =============================================================================

// Event is a single audit record.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	SessionID string            `json:"session_id,omitempty"`
	Actor     string            `json:"actor,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ToLogLine formats the event as a single pipe-separated line. Metadata
// is appended as sorted key=value pairs.
func (e *Event) ToLogLine() string {
	status := "SUCCESS"
	if !e.Success {
		status = "FAILURE"
		if e.Error != "" {
			status = "ERROR: " + e.Error
		}
	}

	line := fmt.Sprintf("%s | %s | %s | %s | %s",
		e.Timestamp.Format("2006-01-02 15:04:05"),
		e.EventType,
		e.SessionID,
		e.Actor,
		status,
	)

	if len(e.Metadata) > 0 {
		keys := make([]string, 0, len(e.Metadata))
		for k := range e.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+e.Metadata[k])
		}
		line += " | " + strings.Join(pairs, " ")
	}
	return line
}

// ToJSON formats the event as JSON.
func (e *Event) ToJSON() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// =============================================================================
// REDACTION
// =============================================================================

// Redactor replaces sensitive data in a string.
type Redactor interface {
	Redact(input string) string
	Name() string
}

// PatternRedactor redacts text matching a regex pattern.
type PatternRedactor struct {
	name    string
	pattern *regexp.Regexp
	replace string
}

// NewPatternRedactor creates a pattern-based redactor.
func NewPatternRedactor(name string, pattern *regexp.Regexp, replace string) *PatternRedactor {
	return &PatternRedactor{name: name, pattern: pattern, replace: replace}
}

func (r *PatternRedactor) Redact(input string) string {
	return r.pattern.ReplaceAllString(input, r.replace)
}

func (r *PatternRedactor) Name() string {
	return r.name
}

var secretPatterns = []struct {
	name    string
	pattern *regexp.Regexp
	replace string
}{
	{"Bearer", regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-_.]+`), "Bearer [TOKEN_REDACTED]"},
	{"Password", regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[=:]\s*\S+`), "[PASSWORD_REDACTED]"},
	{"JWT", regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`), "[JWT_REDACTED]"},
	{"Token", regexp.MustCompile(`(?i)token\s*[=:]\s*\S+`), "token=[TOKEN_REDACTED]"},
}

func defaultRedactors() []Redactor {
	redactors := make([]Redactor, 0, len(secretPatterns))
	for _, sp := range secretPatterns {
		redactors = append(redactors, NewPatternRedactor(sp.name, sp.pattern, sp.replace))
	}
	return redactors
}

// RedactSecrets applies the built-in redactors to input.
func RedactSecrets(input string) string {
	for _, r := range defaultRedactors() {
		input = r.Redact(input)
	}
	return input
}

// =============================================================================
// LOGGER
// =============================================================================

// Format selects the on-disk record format.
type Format int

const (
	// FormatText writes ToLogLine records.
	FormatText Format = iota
	// FormatJSON writes one JSON object per line.
	FormatJSON
)

// Logger appends audit events to a file. All methods are safe for
// concurrent use, and a nil *Logger discards everything.
type Logger struct {
	mu        sync.Mutex
	path      string
	file      *os.File
	format    Format
	maxSize   int64
	redactors []Redactor
	now       func() time.Time
	onFailure func(error)
}

// Open opens (appending) or creates the audit log at path.
func Open(path string, format Format) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	return &Logger{
		path:      path,
		file:      file,
		format:    format,
		maxSize:   DefaultMaxFileSize,
		redactors: defaultRedactors(),
		now:       time.Now,
	}, nil
}

// Log writes one event. Error and metadata values are redacted first.
func (l *Logger) Log(event Event) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	if l.file == nil {
		l.mu.Unlock()
		return ErrClosed
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}
	event.Error = l.redactLocked(event.Error)
	if event.Metadata != nil {
		meta := make(map[string]string, len(event.Metadata))
		for k, v := range event.Metadata {
			meta[k] = l.redactLocked(v)
		}
		event.Metadata = meta
	}

	err := l.writeLocked(event)
	onFailure := l.onFailure
	l.mu.Unlock()

	if err != nil && onFailure != nil {
		onFailure(err)
	}
	return err
}

func (l *Logger) writeLocked(event Event) error {
	if err := l.checkRotationLocked(); err != nil {
		return err
	}

	line := event.ToLogLine()
	if l.format == FormatJSON {
		var err error
		if line, err = event.ToJSON(); err != nil {
			return fmt.Errorf("failed to encode audit event: %w", err)
		}
	}
	if _, err := fmt.Fprintln(l.file, line); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync audit log: %w", err)
	}
	return nil
}

// LogEvent is a convenience wrapper for a successful event.
func (l *Logger) LogEvent(sessionID, eventType, actor string, metadata map[string]string) error {
	return l.Log(Event{
		EventType: eventType,
		SessionID: sessionID,
		Actor:     actor,
		Success:   true,
		Metadata:  metadata,
	})
}

// LogFailure records a failed event with its error.
func (l *Logger) LogFailure(sessionID, eventType, actor string, err error) error {
	ev := Event{
		EventType: eventType,
		SessionID: sessionID,
		Actor:     actor,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	return l.Log(ev)
}

func (l *Logger) redactLocked(input string) string {
	for _, r := range l.redactors {
		input = r.Redact(input)
	}
	return input
}

// AddRedactor appends a custom redactor.
func (l *Logger) AddRedactor(r Redactor) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.redactors = append(l.redactors, r)
}

// SetOnFailure sets a callback invoked (outside the lock) when a write
// fails.
func (l *Logger) SetOnFailure(fn func(error)) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onFailure = fn
}

// =============================================================================
// FILE ROTATION
// =============================================================================

// Rotate moves the current file aside with a timestamp suffix and starts a
// new one.
func (l *Logger) Rotate() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rotateLocked()
}

func (l *Logger) rotateLocked() error {
	if l.file == nil {
		return ErrClosed
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close audit log for rotation: %w", err)
	}

	ext := filepath.Ext(l.path)
	base := strings.TrimSuffix(l.path, ext)
	rotatedPath := fmt.Sprintf("%s_%s%s", base, l.now().Format("20060102_150405.000000000"), ext)

	if err := os.Rename(l.path, rotatedPath); err != nil {
		l.file, _ = os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		return fmt.Errorf("failed to rotate audit log: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		l.file = nil
		return fmt.Errorf("failed to create new audit log after rotation: %w", err)
	}
	l.file = file
	return nil
}

func (l *Logger) checkRotationLocked() error {
	if l.maxSize <= 0 {
		return nil
	}
	info, err := l.file.Stat()
	if err != nil {
		return nil
	}
	if info.Size() >= l.maxSize {
		return l.rotateLocked()
	}
	return nil
}

// SetMaxSize sets the size at which the file is rotated (0 disables).
func (l *Logger) SetMaxSize(size int64) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maxSize = size
}

// Path returns the audit log file path.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

// Close flushes and closes the file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
