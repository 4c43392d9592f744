// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"testing"
	"time"
)

func TestNotifier(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	notifier := NewNotifier(func() time.Time { return now })

	t.Run("empty notifier has no active message", func(t *testing.T) {
		if _, ok := notifier.Active(); ok {
			t.Error("expected no active notice")
		}
	})

	t.Run("posted message stays visible within the timeout", func(t *testing.T) {
		notifier.Post(NoticeSuccess, "Patient saved")
		now = now.Add(MessageTimeout - time.Millisecond)

		notice, ok := notifier.Active()
		if !ok {
			t.Fatal("expected active notice")
		}
		if notice.Text != "Patient saved" || notice.Kind != NoticeSuccess {
			t.Errorf("unexpected notice: %+v", notice)
		}
	})

	t.Run("message expires at the timeout", func(t *testing.T) {
		now = now.Add(time.Millisecond)
		if _, ok := notifier.Active(); ok {
			t.Error("expected notice to expire")
		}
	})

	t.Run("newer post replaces and restarts the clock", func(t *testing.T) {
		notifier.Post(NoticeWarning, "first")
		now = now.Add(2 * time.Second)
		notifier.Post(NoticeError, "second")
		now = now.Add(2 * time.Second)

		notice, ok := notifier.Active()
		if !ok {
			t.Fatal("expected the second notice to still be visible")
		}
		if notice.Text != "second" {
			t.Errorf("expected replacement notice, got %q", notice.Text)
		}
	})

	t.Run("clear drops the message immediately", func(t *testing.T) {
		notifier.Post(NoticeInfo, "transient")
		notifier.Clear()
		if _, ok := notifier.Active(); ok {
			t.Error("expected cleared notifier to be empty")
		}
	})
}

func TestParsePersonalityLevel(t *testing.T) {
	cases := map[string]PersonalityLevel{
		"full":    PersonalityFull,
		"minimal": PersonalityMinimal,
		"machine": PersonalityMachine,
		"q":       PersonalityMachine,
		"bogus":   PersonalityFull,
	}
	for input, expected := range cases {
		if got := ParsePersonalityLevel(input); got != expected {
			t.Errorf("ParsePersonalityLevel(%q) = %q, expected %q", input, got, expected)
		}
	}
}
