// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/AleutianAI/CareLink/pkg/annotation"
	"github.com/AleutianAI/CareLink/pkg/ux"
)

func newTestModel(f *controllerFixture) annotateModel {
	return newAnnotateModel(context.Background(), f.controller, ux.NewNotifier(nil))
}

func updateModel(t *testing.T, m annotateModel, msg tea.Msg) annotateModel {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(annotateModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return out
}

func TestTickLeavesControllerAloneWhileCommandRuns(t *testing.T) {
	f := newControllerFixture(false)
	ctx := context.Background()
	_ = f.controller.LoadPatient(ctx, "patient-001")

	// A click whose disambiguation window has already lapsed.
	f.controller.Selection().Click("action-1")
	f.clock.Advance(300 * time.Millisecond)

	m := newTestModel(f)

	t.Run("paused while loading", func(t *testing.T) {
		m.loading = true
		m = updateModel(t, m, tickMsg(time.Time{}))
		if got := f.controller.Selection().SelectedID(); got == "action-1" {
			t.Error("tick resolved a gesture while a command owned the controller")
		}
	})

	t.Run("paused while quitting", func(t *testing.T) {
		m.loading = false
		m.quitting = true
		m = updateModel(t, m, tickMsg(time.Time{}))
		if got := f.controller.Selection().SelectedID(); got == "action-1" {
			t.Error("tick resolved a gesture during the quit save")
		}
	})

	t.Run("resumes once the command result arrived", func(t *testing.T) {
		m.quitting = false
		m = updateModel(t, m, tickMsg(time.Time{}))
		if got := f.controller.Selection().SelectedID(); got != "action-1" {
			t.Errorf("tick did not resume gesture resolution, selected=%q", got)
		}
	})
}

func TestLoadingViewRendersWithoutSession(t *testing.T) {
	// Before the first load the controller has no session; the loading
	// frame must render from model state alone.
	f := newControllerFixture(false)
	m := newTestModel(f)
	m.loading = true
	m.loadingWhat = "loading next patient"
	m.provisional = []annotation.Action{{ID: "draft-0", Text: "Bond upper brackets"}}

	view := m.View()
	if !strings.Contains(view, "loading next patient") {
		t.Errorf("operation description missing: %q", view)
	}
	if !strings.Contains(view, "Bond upper brackets") {
		t.Errorf("provisional action missing: %q", view)
	}
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	plan := strings.Repeat("拔", 10)

	got := truncate(plan, 5)
	if !utf8.ValidString(got) {
		t.Fatalf("truncate split a rune: %q", got)
	}
	if got != strings.Repeat("拔", 4)+"…" {
		t.Errorf("unexpected truncation: %q", got)
	}

	if got := truncate("short", 10); got != "short" {
		t.Errorf("short text altered: %q", got)
	}
}
