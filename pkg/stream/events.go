// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package stream parses the CareLink action-generation push stream.
//
// The server delivers incrementally generated treatment actions over a
// Server-Sent Events response (GET /api/patient/{id}/stream-actions), one
// JSON payload per message. This package converts raw lines into typed
// events; it performs no state management and no rendering.
package stream

import "errors"

// EventType is the message kind carried by a stream payload.
type EventType string

const (
	// EventStart marks the stream active; the UI shows an indeterminate
	// progress affordance.
	EventStart EventType = "start"

	// EventAction carries one incrementally generated action text. Entries
	// delivered this way are provisional and may not match final numbering.
	EventAction EventType = "action"

	// EventComplete carries the authoritative final action list and ends
	// the stream.
	EventComplete EventType = "complete"

	// EventError surfaces a server-side generation failure and ends the
	// stream.
	EventError EventType = "error"
)

// ErrUnknownEventType rejects payloads whose type field is not one of the
// four message kinds. Unrecognized shapes are refused rather than trusted.
var ErrUnknownEventType = errors.New("unknown stream event type")

// Event is one parsed stream message.
//
// Field presence depends on Type: Text for action, Actions and AutoSaved for
// complete, Message for error. Index is the zero-based position of the event
// within the stream, assigned by the reader.
type Event struct {
	Type      EventType `json:"type"`
	Text      string    `json:"text,omitempty"`
	Actions   []string  `json:"actions,omitempty"`
	AutoSaved bool      `json:"auto_saved,omitempty"`
	Message   string    `json:"message,omitempty"`
	Index     int       `json:"-"`
}

// IsTerminal reports whether the event ends the stream.
func (e *Event) IsTerminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}
