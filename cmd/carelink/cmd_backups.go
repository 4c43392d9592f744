// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/CareLink/pkg/ux"
)

// runBackupsList prints the preserved save payloads, newest first. Backups
// are inspection-only: nothing here writes them back to a session or the
// server, the reviewer re-applies preserved work by hand if they need it.
func runBackupsList(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.backups == nil {
		return fmt.Errorf("no backup store configured (set backup.dir in the config)")
	}

	records, err := a.backups.List()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		ux.Info("No backup records. Every save has reached the server.")
		return nil
	}

	machine := ux.GetPersonality().Level == ux.PersonalityMachine
	for _, record := range records {
		if machine {
			fmt.Printf("%s\t%s\t%d actions\n",
				record.PatientID,
				record.SavedAt.Format("2006-01-02T15:04:05Z07:00"),
				len(record.Solutions),
			)
			continue
		}
		header := fmt.Sprintf("%s — %s (%d actions, %d annotated)",
			record.PatientID,
			record.SavedAt.Format("2006-01-02 15:04:05"),
			len(record.Solutions),
			len(record.Annotations),
		)
		fmt.Println(ux.Styles.Bold.Render(header))
		for _, action := range record.Solutions {
			fmt.Printf("  %s %s\n", ux.IconBullet, action.Text)
		}
	}
	return nil
}
