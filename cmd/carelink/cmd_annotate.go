// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/CareLink/pkg/annotation"
	"github.com/AleutianAI/CareLink/pkg/stream"
	"github.com/AleutianAI/CareLink/pkg/ux"
)

// runAnnotate opens the interactive annotation view. With an argument the
// view starts at that patient; otherwise it resumes at the last edited one.
func runAnnotate(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	notifier := ux.NewNotifier(nil)
	renderer := &programRenderer{send: func(tea.Msg) {}}

	consumer := annotation.NewStreamingActionConsumer(
		stream.NewSSEReader(stream.NewSSEParser()),
		renderer,
		a.logger.Slog(),
	)

	controller := NewSessionController(SessionControllerConfig{
		API:              a.api,
		Cache:            a.cache,
		Syncer:           a.syncer,
		Consumer:         consumer,
		Logger:           a.logger.Slog(),
		StreamingEnabled: a.cfg.Streaming.Enabled,
		Warn: func(msg string) {
			notifier.Post(ux.NoticeWarning, msg)
		},
	})

	// The first load happens before the program starts so the view never
	// renders an empty frame; its stream events go nowhere, matching the
	// spinner-free initial paint.
	spin := ux.NewSpinner("Connecting to annotation server")
	spin.Start()
	if len(args) == 1 {
		if err := controller.Start(ctx); err != nil {
			spin.StopWithError(err.Error())
			return err
		}
		if err := controller.LoadPatient(ctx, args[0]); err != nil {
			spin.StopWithError(err.Error())
			return err
		}
	} else {
		if err := controller.Start(ctx); err != nil {
			spin.StopWithError(err.Error())
			return err
		}
	}
	spin.Stop()

	model := newAnnotateModel(ctx, controller, notifier)
	p := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	renderer.send = p.Send

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("annotation view failed: %w", err)
	}
	return nil
}
