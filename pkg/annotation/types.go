// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package annotation contains the client-resident annotation engine for
// CareLink: the patient session aggregate, the bipartite link graph between
// treatment actions and clinical problems, selection and edit handling,
// the TTL patient cache, and the streaming action consumer.
//
// Rendering is deliberately out of this package. Callers own the display;
// the engine exposes observable state and invokes renderer interfaces.
package annotation

import (
	"strings"
	"time"
)

// NewActionPlaceholder is the default text a freshly created action carries
// before the reviewer types over it. Committing an edit that still equals
// this text is rejected the same way an empty commit is.
const NewActionPlaceholder = "New treatment action"

// Clock abstracts time for deterministic tests.
//
// The selection state machine and the patient cache are both time-driven;
// injecting a clock keeps their behavior testable without real timers.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// Problem is a clinical finding or diagnosis statement shown to the
// reviewer. Problems are immutable once loaded; Type drives a fixed
// display grouping owned by the renderer, the engine only echoes it.
type Problem struct {
	ID   string `json:"id" validate:"required"`
	Text string `json:"text"`
	Type string `json:"type"`
}

// Action is a treatment step statement. Text may be edited; ID is stable
// for the action's lifetime. IsNew marks a client-created action that has
// not yet survived a text commit; it is cleared on the first successful
// commit.
type Action struct {
	ID    string `json:"id" validate:"required"`
	Text  string `json:"text"`
	IsNew bool   `json:"is_new,omitempty"`
}

// PatientBundle is the raw payload returned by GET /api/patient/{id}.
//
// Annotations maps action id to the problem ids that action addresses.
// The server does not guarantee every key refers to a live action, nor
// every value to a live problem; consumers treat stale ids as no-ops.
type PatientBundle struct {
	PatientID             string              `json:"patient_id" validate:"required"`
	Problems              []Problem           `json:"problems" validate:"dive"`
	Solutions             []Action            `json:"solutions" validate:"dive"`
	Annotations           map[string][]string `json:"annotations"`
	OriginalTreatmentPlan string              `json:"original_treatment_plan"`
	HasSavedData          bool                `json:"has_saved_data"`
}

// PlanSnapshot is the save payload for POST /api/save/{id}: the full link
// relation plus the current action list.
type PlanSnapshot struct {
	Annotations map[string][]string `json:"annotations"`
	Solutions   []Action            `json:"solutions"`
}

// PatientSession is the complete mutable state for one loaded patient.
// Exactly one session is live at a time; it is replaced wholesale when
// another patient is loaded. The link graph and the action list are owned
// exclusively by the session.
//
// All mutation is synchronous with the triggering UI event. The session is
// a single-writer resource and carries no locking of its own.
type PatientSession struct {
	PatientID        string
	Problems         []Problem
	Actions          []Action
	Links            *LinkGraph
	OriginalPlanText string
}

// NewSessionFromBundle builds a session from a fetched or cached bundle.
// Saved annotations are copied into a fresh link graph.
func NewSessionFromBundle(b *PatientBundle) *PatientSession {
	return &PatientSession{
		PatientID:        b.PatientID,
		Problems:         append([]Problem(nil), b.Problems...),
		Actions:          append([]Action(nil), b.Solutions...),
		Links:            NewLinkGraph(b.Annotations),
		OriginalPlanText: b.OriginalTreatmentPlan,
	}
}

// ActionByID returns a pointer into the session's action list, or nil if
// the id is unknown.
func (s *PatientSession) ActionByID(id string) *Action {
	for i := range s.Actions {
		if s.Actions[i].ID == id {
			return &s.Actions[i]
		}
	}
	return nil
}

// ProblemByID returns the problem with the given id, or nil.
func (s *PatientSession) ProblemByID(id string) *Problem {
	for i := range s.Problems {
		if s.Problems[i].ID == id {
			return &s.Problems[i]
		}
	}
	return nil
}

// RemoveAction deletes the action from the list and cascades the link
// graph entry. Unknown ids are a no-op. Clearing a selection that pointed
// at the removed action is the SelectionController's job; callers invoke
// that separately.
func (s *PatientSession) RemoveAction(id string) {
	for i := range s.Actions {
		if s.Actions[i].ID == id {
			s.Actions = append(s.Actions[:i], s.Actions[i+1:]...)
			break
		}
	}
	s.Links.RemoveAction(id)
}

// AddNewAction appends a client-created action carrying the placeholder
// text and the IsNew mark, and returns it.
func (s *PatientSession) AddNewAction(id string) Action {
	a := Action{ID: id, Text: NewActionPlaceholder, IsNew: true}
	s.Actions = append(s.Actions, a)
	return a
}

// Snapshot captures the save payload for this session.
func (s *PatientSession) Snapshot() PlanSnapshot {
	return PlanSnapshot{
		Annotations: s.Links.Snapshot(),
		Solutions:   append([]Action(nil), s.Actions...),
	}
}

// ValidActionText reports whether a trimmed edit commit is acceptable:
// non-empty and not the untouched placeholder.
func ValidActionText(text string) bool {
	trimmed := strings.TrimSpace(text)
	return trimmed != "" && trimmed != NewActionPlaceholder
}
