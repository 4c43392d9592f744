// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package stream

import (
	"errors"
	"testing"
)

func TestParseLine(t *testing.T) {
	parser := NewSSEParser()

	t.Run("strips the data prefix", func(t *testing.T) {
		event, err := parser.ParseLine(`data: {"type":"action","text":"Extract 8s"}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if event.Type != EventAction || event.Text != "Extract 8s" {
			t.Errorf("unexpected event: %+v", event)
		}
	})

	t.Run("accepts bare JSON without a prefix", func(t *testing.T) {
		event, err := parser.ParseLine(`{"type":"start"}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if event.Type != EventStart {
			t.Errorf("unexpected event: %+v", event)
		}
	})

	t.Run("skips delimiters and comments", func(t *testing.T) {
		for _, line := range []string{"", "   ", ": keepalive"} {
			event, err := parser.ParseLine(line)
			if event != nil || err != nil {
				t.Errorf("line %q: event=%v err=%v", line, event, err)
			}
		}
	})

	t.Run("complete carries actions and auto_saved", func(t *testing.T) {
		event, err := parser.ParseLine(`data: {"type":"complete","actions":["a","b"],"auto_saved":true}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(event.Actions) != 2 || !event.AutoSaved {
			t.Errorf("unexpected event: %+v", event)
		}
		if !event.IsTerminal() {
			t.Error("complete must be terminal")
		}
	})

	t.Run("rejects unknown event types", func(t *testing.T) {
		_, err := parser.ParseLine(`data: {"type":"heartbeat"}`)
		if !errors.Is(err, ErrUnknownEventType) {
			t.Errorf("expected ErrUnknownEventType, got %v", err)
		}
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		if _, err := parser.ParseLine(`data: {"type":`); err == nil {
			t.Error("expected a parse error")
		}
	})
}
