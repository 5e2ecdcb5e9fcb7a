// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"
)

func TestToast_Lifetime(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	var toast Toast
	if toast.Visible() || toast.View() != "" {
		t.Fatal("zero toast should be empty")
	}

	toast.Show(ToastKindSuccess, "Your session has been extended.", now)
	if !strings.Contains(toast.View(), "[OK]") || !strings.Contains(toast.View(), "extended") {
		t.Errorf("success view = %q", toast.View())
	}

	toast.Expire(now.Add(DefaultToastDuration - time.Millisecond))
	if !toast.Visible() {
		t.Fatal("toast expired early")
	}
	toast.Expire(now.Add(DefaultToastDuration))
	if toast.Visible() {
		t.Fatal("toast outlived its duration")
	}
}

func TestToast_ErrorsLastLonger(t *testing.T) {
	now := time.Now()
	var toast Toast
	toast.Show(ToastKindError, "An error occurred.", now)
	if toast.Kind() != ToastKindError {
		t.Fatalf("Kind() = %v", toast.Kind())
	}
	if !strings.Contains(toast.View(), "[X]") {
		t.Errorf("error view = %q", toast.View())
	}

	toast.Expire(now.Add(WarningToastDuration))
	if !toast.Visible() {
		t.Fatal("error toast should outlast a warning toast")
	}

	toast.Dismiss()
	if toast.Message() != "" {
		t.Fatal("Dismiss did not clear the toast")
	}
}
