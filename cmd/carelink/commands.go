// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"

	"github.com/AleutianAI/CareLink/pkg/ux"
)

// --- Global Command Variables ---
var (
	configPath       string
	personalityLevel string // UX personality level (full/minimal/machine)

	rootCmd = &cobra.Command{
		Use:   "carelink",
		Short: "A cli for reviewing and annotating clinical treatment plans",
		Long: `CareLink connects to an annotation server and lets a reviewer link
treatment actions to the clinical problems they address, edit action
text, and keep everything saved as they move between patients.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize UX personality from flag or terminal detection
			if personalityLevel != "" {
				ux.SetPersonalityLevel(ux.ParsePersonalityLevel(personalityLevel))
			} else {
				ux.SetPersonalityLevel(ux.DetectPersonality())
			}
		},
	}

	// --- Annotation ---
	annotateCmd = &cobra.Command{
		Use:   "annotate [patient-id]",
		Short: "Open the annotation view, resuming at the last edited patient",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAnnotate, // Defined in cmd_annotate.go
	}

	// --- Patients ---
	patientsCmd = &cobra.Command{
		Use:   "patients",
		Short: "List patients and pick one to annotate",
		RunE:  runPatients, // Defined in cmd_patients.go
	}

	// --- Regeneration ---
	regenerateCmd = &cobra.Command{
		Use:   "regenerate <patient-id>",
		Short: "Discard a patient's prepared actions and generate a fresh set",
		Args:  cobra.ExactArgs(1),
		RunE:  runRegenerate, // Defined in cmd_regenerate.go
	}

	// --- Backups ---
	backupsCmd = &cobra.Command{
		Use:   "backups",
		Short: "Inspect local backups written when saves could not reach the server",
	}
	backupsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List preserved save payloads",
		RunE:  runBackupsList, // Defined in cmd_backups.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to the config file (default ~/.carelink/carelink.yaml)")
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"output style: full, minimal, or machine (default: detected)")

	backupsCmd.AddCommand(backupsListCmd)
	rootCmd.AddCommand(annotateCmd, patientsCmd, regenerateCmd, backupsCmd)
}
