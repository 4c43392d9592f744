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

	"github.com/spf13/cobra"

	"github.com/AleutianAI/CareLink/pkg/ux"
)

// runRegenerate discards a patient's prepared actions and fetches a fresh
// generation without opening the annotation view. The cache entry is dropped
// first so the next interactive load cannot serve the stale copy.
func runRegenerate(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	patientID := args[0]

	a.cache.Invalidate(patientID)

	var count int
	err = ux.WithSpinner("Regenerating treatment actions for "+patientID, func() error {
		bundle, err := a.api.GetPatient(ctx, patientID, true)
		if err != nil {
			return err
		}
		a.cache.Put(patientID, bundle)
		count = len(bundle.Solutions)
		return nil
	})
	if err != nil {
		return fmt.Errorf("regenerate patient %s: %w", patientID, err)
	}

	if ux.GetPersonality().Level == ux.PersonalityMachine {
		fmt.Printf("%s\t%d actions\n", patientID, count)
		return nil
	}
	ux.Info(fmt.Sprintf("%d treatment actions ready. Run `carelink annotate %s` to review them.", count, patientID))
	return nil
}
