// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"fmt"
)

// Success prints a success line with icon styling.
func Success(message string) {
	if GetPersonality().Level == PersonalityMachine {
		fmt.Printf("OK: %s\n", message)
		return
	}
	fmt.Printf("%s %s\n", IconSuccess.Render(), message)
}

// Warning prints a warning line with icon styling.
func Warning(message string) {
	if GetPersonality().Level == PersonalityMachine {
		fmt.Printf("WARN: %s\n", message)
		return
	}
	fmt.Printf("%s %s\n", IconWarning.Render(), Styles.Warning.Render(message))
}

// Error prints an error line with icon styling.
func Error(message string) {
	if GetPersonality().Level == PersonalityMachine {
		fmt.Printf("ERROR: %s\n", message)
		return
	}
	fmt.Printf("%s %s\n", IconError.Render(), Styles.Error.Render(message))
}

// Info prints a neutral informational line.
func Info(message string) {
	if GetPersonality().Level == PersonalityMachine {
		fmt.Printf("INFO: %s\n", message)
		return
	}
	fmt.Printf("%s %s\n", IconBullet, message)
}
