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

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/CareLink/pkg/ux"
)

// runPatients lists the roster. In an interactive terminal it offers a
// picker and opens the annotation view for the chosen patient; in machine
// mode it prints ids, one per line.
func runPatients(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	patients, err := a.api.ListPatients(ctx)
	if err != nil {
		a.Close()
		return err
	}

	if ux.GetPersonality().Level == ux.PersonalityMachine {
		defer a.Close()
		for _, id := range patients {
			fmt.Println(id)
		}
		return nil
	}

	options := make([]huh.Option[string], 0, len(patients))
	for _, id := range patients {
		options = append(options, huh.NewOption(id, id))
	}

	var selected string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select a patient to annotate").
				Options(options...).
				Value(&selected),
		),
	)
	if err := form.Run(); err != nil {
		a.Close()
		return fmt.Errorf("patient selection aborted: %w", err)
	}

	// Hand off to the annotation view; it wires its own app with quiet
	// logging so the TUI owns the terminal.
	a.Close()
	return runAnnotate(cmd, []string{selected})
}
