// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package stream

import (
	"bufio"
	"context"
	"io"
)

// Callback is invoked for each parsed event. Returning an error stops the
// read and propagates the error to the Read caller.
type Callback func(event Event) error

// Reader consumes a stream source and emits parsed events via callback.
//
// Readers handle I/O and event sequencing only; they use a Parser to turn
// bytes into events and never render or mutate session state. A single Read
// must not be called concurrently on the same reader.
type Reader interface {
	// Read processes the stream until EOF, a terminal event, context
	// cancellation, a parse error, or a callback error. The caller owns
	// closing r.
	Read(ctx context.Context, r io.Reader, callback Callback) error
}

// sseReader implements Reader for SSE bodies using a line scanner.
type sseReader struct {
	parser Parser
}

// NewSSEReader creates a Reader that parses SSE lines with the given parser.
func NewSSEReader(parser Parser) Reader {
	return &sseReader{parser: parser}
}

// Read scans lines, parses each, and dispatches non-nil events in order.
// The stream is not retried or reconnected here; transport failure is
// terminal for this read and surfaces as the scanner error.
func (r *sseReader) Read(ctx context.Context, reader io.Reader, callback Callback) error {
	scanner := bufio.NewScanner(reader)
	eventIndex := 0

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		event, err := r.parser.ParseLine(scanner.Text())
		if err != nil {
			return err
		}
		if event == nil {
			continue
		}

		event.Index = eventIndex
		eventIndex++

		if err := callback(*event); err != nil {
			return err
		}

		if event.IsTerminal() {
			return nil
		}
	}

	return scanner.Err()
}

var _ Reader = (*sseReader)(nil)
