// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package annotation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/AleutianAI/CareLink/pkg/stream"
	"github.com/AleutianAI/CareLink/pkg/telemetry"
)

// =============================================================================
// Streaming Action Consumer
// =============================================================================

// ErrStaleLoad is returned when a stream outlives the load that opened it:
// the session has moved on and the stream's writes were discarded.
var ErrStaleLoad = errors.New("stream superseded by a newer patient load")

// ErrStreamFailed wraps a server-reported generation failure.
var ErrStreamFailed = errors.New("action stream failed")

// StreamRenderer receives display notifications while actions stream in.
// Implementations render; they never own state.
type StreamRenderer interface {
	// OnStreamStart shows an indeterminate progress affordance.
	OnStreamStart(ctx context.Context)

	// OnActionAppended animates the insertion of one provisional action.
	OnActionAppended(ctx context.Context, action Action)

	// OnStreamComplete presents the authoritative final list.
	OnStreamComplete(ctx context.Context, actions []Action)

	// OnStreamError surfaces a terminal stream failure.
	OnStreamError(ctx context.Context, message string)
}

// NopStreamRenderer discards all notifications. Useful in tests and for
// silent background loads.
type NopStreamRenderer struct{}

func (NopStreamRenderer) OnStreamStart(context.Context)            {}
func (NopStreamRenderer) OnActionAppended(context.Context, Action) {}
func (NopStreamRenderer) OnStreamComplete(context.Context, []Action) {
}
func (NopStreamRenderer) OnStreamError(context.Context, string) {}

// StreamOutcome is the result of consuming one action stream.
//
// When Completed is true, Actions is the authoritative final list built from
// the complete payload with freshly assigned ids; provisional ids are never
// reused. When Completed is false (error or transport failure), Actions
// holds whatever provisional entries had arrived — the caller decides
// whether to keep or clear them.
type StreamOutcome struct {
	Actions   []Action
	AutoSaved bool
	Completed bool
}

// LiveFunc reports whether the load that opened the stream is still the
// current one. Consumers check it before every mutation so a superseded
// load's stream cannot write into a session it no longer owns.
type LiveFunc func() bool

// StreamingActionConsumer reconciles the server's incremental action stream
// into an action list.
//
// Exactly one stream is associated with one patient load. The consumer does
// not retry or reconnect: a transport error or an error event is terminal
// for that load attempt and the caller chooses between surfacing the error
// and falling back to a plain fetch.
//
// Provisional entries appended from action events carry locally assigned
// sequential draft ids; these are speculative and may not match final
// numbering. The complete event carries the authoritative texts, so the
// consumer replaces the entire provisional list with freshly id-assigned
// entries rather than attempting an in-place reconcile.
type StreamingActionConsumer struct {
	reader   stream.Reader
	renderer StreamRenderer
	logger   *slog.Logger
}

// NewStreamingActionConsumer creates a consumer. A nil renderer discards
// display notifications; a nil logger selects slog.Default.
func NewStreamingActionConsumer(reader stream.Reader, renderer StreamRenderer, logger *slog.Logger) *StreamingActionConsumer {
	if renderer == nil {
		renderer = NopStreamRenderer{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamingActionConsumer{
		reader:   reader,
		renderer: renderer,
		logger:   logger,
	}
}

// Consume reads the stream to its terminal event and returns the outcome.
//
// live guards every state transition: once it reports false the consumer
// stops with ErrStaleLoad and emits no further renderer calls. An error
// event returns the partial outcome together with an ErrStreamFailed-wrapped
// error; the provisional entries remain in the outcome for the caller.
func (c *StreamingActionConsumer) Consume(ctx context.Context, body io.Reader, live LiveFunc) (*StreamOutcome, error) {
	if live == nil {
		live = func() bool { return true }
	}

	outcome := &StreamOutcome{}
	var streamErr error
	draftIndex := 0

	err := c.reader.Read(ctx, body, func(event stream.Event) error {
		if !live() {
			return ErrStaleLoad
		}
		telemetry.StreamEvents.WithLabelValues(string(event.Type)).Inc()

		switch event.Type {
		case stream.EventStart:
			c.logger.Debug("action stream started")
			c.renderer.OnStreamStart(ctx)

		case stream.EventAction:
			action := Action{
				ID:   fmt.Sprintf("draft-%d", draftIndex),
				Text: event.Text,
			}
			draftIndex++
			outcome.Actions = append(outcome.Actions, action)
			c.renderer.OnActionAppended(ctx, action)

		case stream.EventComplete:
			final := make([]Action, 0, len(event.Actions))
			for i, text := range event.Actions {
				final = append(final, Action{
					ID:   fmt.Sprintf("action-%d", i),
					Text: text,
				})
			}
			outcome.Actions = final
			outcome.AutoSaved = event.AutoSaved
			outcome.Completed = true
			c.logger.Debug("action stream completed",
				"final_actions", len(final),
				"auto_saved", event.AutoSaved,
			)
			c.renderer.OnStreamComplete(ctx, final)

		case stream.EventError:
			streamErr = fmt.Errorf("%w: %s", ErrStreamFailed, event.Message)
			c.logger.Warn("action stream reported error", "message", event.Message)
			c.renderer.OnStreamError(ctx, event.Message)
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, ErrStaleLoad) {
			return nil, ErrStaleLoad
		}
		// Transport or parse failure mid-stream: terminal for this load,
		// partial provisional entries are returned as-is.
		c.logger.Error("action stream read failed", "error", err)
		return outcome, fmt.Errorf("read action stream: %w", err)
	}
	if streamErr != nil {
		return outcome, streamErr
	}
	return outcome, nil
}

var _ StreamRenderer = (NopStreamRenderer{})
