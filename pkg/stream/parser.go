// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package stream

import (
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// SSE Parser
// =============================================================================

// Parser converts single lines of SSE input into Events.
//
// SSE format reference:
//
//	data: {"type":"action","text":"Align the upper arch"}\n
//	\n
//
// Lines starting with "data:" carry a JSON payload. Empty lines are event
// delimiters; lines starting with ":" are comments. Both are skipped.
//
// Thread Safety:
//
//	Implementations must be safe for concurrent use. The default parser is
//	stateless and inherently thread-safe.
type Parser interface {
	// ParseLine parses a single line from the stream (without trailing
	// newline). Returns (nil, nil) for empty and comment lines. A payload
	// with an unrecognized type field fails with ErrUnknownEventType.
	ParseLine(line string) (*Event, error)
}

// sseParser implements Parser for Server-Sent Events.
type sseParser struct{}

// NewSSEParser creates a stateless SSE parser, safe to share across
// goroutines.
func NewSSEParser() Parser {
	return &sseParser{}
}

// ParseLine parses one SSE line into an Event.
func (p *sseParser) ParseLine(line string) (*Event, error) {
	line = strings.TrimSpace(line)

	// Empty lines are event delimiters.
	if line == "" {
		return nil, nil
	}

	// Comments start with ":".
	if strings.HasPrefix(line, ":") {
		return nil, nil
	}

	payload := line
	if strings.HasPrefix(line, "data:") {
		payload = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	}

	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, fmt.Errorf("parse stream payload: %w", err)
	}

	switch event.Type {
	case EventStart, EventAction, EventComplete, EventError:
		return &event, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, event.Type)
	}
}

var _ Parser = (*sseParser)(nil)
