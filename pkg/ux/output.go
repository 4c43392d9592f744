// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling for the CareLink CLI.
package ux

import (
	"github.com/charmbracelet/lipgloss"
)

// CareLink color palette - clinical blues with a mint accent
var (
	// Primary palette (brightest to darkest)
	ColorMintBright  = lipgloss.Color("#4FE3C1") // Bright mint - highlights, success
	ColorBluePrimary = lipgloss.Color("#2D9CDB") // Primary blue - main brand color
	ColorBlueVivid   = lipgloss.Color("#2F80ED") // Vivid blue - interactive elements
	ColorBlueMedium  = lipgloss.Color("#2B7BB9") // Medium blue - secondary elements
	ColorBlueDeep    = lipgloss.Color("#1F5F8B") // Deep blue - borders, accents
	ColorBlueSteel   = lipgloss.Color("#1B4965") // Steel blue - subtle accents

	// Dark palette (backgrounds, muted elements)
	ColorInk      = lipgloss.Color("#102A43") // Ink - deep backgrounds
	ColorSlate    = lipgloss.Color("#486581") // Slate - muted text, borders
	ColorGraphite = lipgloss.Color("#243B53") // Graphite - panel backgrounds

	// Semantic colors
	ColorSuccess = lipgloss.Color("#4FE3C1") // Mint for success
	ColorWarning = lipgloss.Color("#F2C94C") // Amber for warnings
	ColorError   = lipgloss.Color("#EB5757") // Red for errors
	ColorMuted   = lipgloss.Color("#486581") // Slate for muted text
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	// Text styles
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	// Annotation view styles
	ActionSelected lipgloss.Style
	ActionEditing  lipgloss.Style
	ProblemLinked  lipgloss.Style

	// Box styles
	Box        lipgloss.Style
	InfoBox    lipgloss.Style
	WarningBox lipgloss.Style
	ErrorBox   lipgloss.Style

	// Status indicators
	StatusOK      lipgloss.Style
	StatusWarning lipgloss.Style
	StatusError   lipgloss.Style
	StatusPending lipgloss.Style
}{
	// Text styles
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorMintBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorBluePrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorMintBright).Bold(true),

	// Annotation view styles
	ActionSelected: lipgloss.NewStyle().Bold(true).Foreground(ColorBlueVivid),
	ActionEditing:  lipgloss.NewStyle().Foreground(ColorWarning).Italic(true),
	ProblemLinked:  lipgloss.NewStyle().Foreground(ColorMintBright),

	// Box styles
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBlueDeep).
		Padding(0, 1),
	InfoBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBluePrimary).
		Padding(0, 1),
	WarningBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorWarning).
		Padding(0, 1),
	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1),

	// Status indicators
	StatusOK:      lipgloss.NewStyle().SetString("✓").Foreground(ColorSuccess),
	StatusWarning: lipgloss.NewStyle().SetString("⚠").Foreground(ColorWarning),
	StatusError:   lipgloss.NewStyle().SetString("✗").Foreground(ColorError),
	StatusPending: lipgloss.NewStyle().SetString("○").Foreground(ColorSlate),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
	IconLink    Icon = "⛓"
	IconSaved   Icon = "💾"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconPending:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}
