// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package annotation

import (
	"errors"
	"strings"
	"time"
)

// =============================================================================
// Selection State Machine
// =============================================================================

// SelectionState is the observable state of the selection controller.
type SelectionState int

const (
	// StateIdle means no action is selected.
	StateIdle SelectionState = iota

	// StateSelected means exactly one action is selected; its links are
	// highlighted among the problems.
	StateSelected

	// StateEditing means an action's text is being edited in place.
	StateEditing
)

// String returns the state name for logging.
func (s SelectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelected:
		return "selected"
	case StateEditing:
		return "editing"
	default:
		return "unknown"
	}
}

const (
	// singleClickWindow is the disambiguation window: a second click on the
	// same action inside this window makes the gesture a double click.
	singleClickWindow = 250 * time.Millisecond

	// doubleClickLatch absorbs trailing clicks of a double-click gesture so
	// they are not mis-attributed to a new gesture.
	doubleClickLatch = 300 * time.Millisecond
)

// Edit commit validation errors.
var (
	// ErrEmptyActionText rejects a commit whose trimmed text is empty.
	ErrEmptyActionText = errors.New("action text is empty")

	// ErrPlaceholderActionText rejects a commit that still equals the
	// placeholder text of a newly created action.
	ErrPlaceholderActionText = errors.New("action text is the untouched placeholder")
)

// pendingClick is a single click waiting out the disambiguation window.
type pendingClick struct {
	actionID string
	at       time.Time
}

// SelectionController owns single-selection and the click/double-click
// disambiguation that decides between link-toggling and text editing.
//
// The controller is an explicit state machine driven by timestamped events:
// callers report clicks as they happen and call ResolvePending once the
// disambiguation window has lapsed (a UI typically polls on a tick). No real
// timers run inside the controller, so behavior is deterministic under test
// with an injected Clock.
//
// Gesture semantics:
//
//   - A click on action A schedules a deferred commit. If no second click on
//     A arrives within 250 ms, the commit selects A — or deselects it if A
//     was already selected (single-click-toggle).
//   - A second click on A inside the window cancels the deferred commit and
//     enters editing. A 300 ms latch then swallows trailing clicks on A so
//     the tail of the double-click gesture is not read as a new click.
//   - While editing: committing (enter / focus loss) validates the buffered
//     text; escape reverts. Clicking another action first resolves the edit
//     through the same focus-loss path, then the click proceeds.
//
// Changing the selection never mutates links; it only changes which action's
// links are highlighted.
type SelectionController struct {
	session *PatientSession
	clock   Clock
	warn    func(msg string)

	selected   string
	editing    string
	editBuffer string
	pending    *pendingClick
	latchUntil time.Time
	latchID    string
}

// NewSelectionController creates a controller bound to one session. The warn
// callback receives user-visible validation warnings and may be nil.
func NewSelectionController(session *PatientSession, clock Clock, warn func(string)) *SelectionController {
	if clock == nil {
		clock = SystemClock{}
	}
	return &SelectionController{
		session: session,
		clock:   clock,
		warn:    warn,
	}
}

// State returns the observable selection state.
func (c *SelectionController) State() SelectionState {
	switch {
	case c.editing != "":
		return StateEditing
	case c.selected != "":
		return StateSelected
	default:
		return StateIdle
	}
}

// SelectedID returns the selected action id, or "" when idle or editing
// without a selection.
func (c *SelectionController) SelectedID() string { return c.selected }

// EditingID returns the action id being edited, or "".
func (c *SelectionController) EditingID() string { return c.editing }

// EditText returns the current edit buffer contents.
func (c *SelectionController) EditText() string { return c.editBuffer }

// Click reports a click on an action. The decision between select-toggle and
// edit is deferred until the disambiguation window lapses; callers must poll
// ResolvePending (or check PendingDeadline) to let the deferred commit fire.
func (c *SelectionController) Click(actionID string) {
	now := c.clock.Now()

	if c.editing != "" {
		// Trailing click of the double-click gesture that started the edit.
		if actionID == c.latchID && now.Before(c.latchUntil) {
			return
		}
		// Any other click resolves the edit through the focus-loss path
		// before the new gesture takes effect.
		_ = c.Blur()
	}

	if p := c.pending; p != nil {
		if p.actionID == actionID && now.Sub(p.at) < singleClickWindow {
			// Second click inside the window: this is a double click.
			c.pending = nil
			c.beginEdit(actionID, now)
			return
		}
		// A click elsewhere (or a late click) commits the earlier gesture
		// before the new one is scheduled.
		c.commitSingle(p.actionID)
		c.pending = nil
	}

	c.pending = &pendingClick{actionID: actionID, at: now}
}

// ResolvePending commits a deferred single click once its window has lapsed.
// Returns true if the selection changed. Safe to call at any frequency.
func (c *SelectionController) ResolvePending() bool {
	p := c.pending
	if p == nil {
		return false
	}
	if c.clock.Now().Sub(p.at) < singleClickWindow {
		return false
	}
	c.pending = nil
	c.commitSingle(p.actionID)
	return true
}

// PendingDeadline returns the instant at which the pending single click
// becomes committable, and whether one is pending. UIs use this to schedule
// their next tick.
func (c *SelectionController) PendingDeadline() (time.Time, bool) {
	if c.pending == nil {
		return time.Time{}, false
	}
	return c.pending.at.Add(singleClickWindow), true
}

// Select sets the selection directly, bypassing gesture disambiguation.
// Used for programmatic defaults such as selecting the first action after a
// stream completes. An in-progress edit is resolved first.
func (c *SelectionController) Select(actionID string) {
	if c.editing != "" {
		_ = c.Blur()
	}
	c.pending = nil
	c.selected = actionID
}

// ClearIfSelected drops the selection if it points at the given action.
// Called when an action is removed.
func (c *SelectionController) ClearIfSelected(actionID string) {
	if c.selected == actionID {
		c.selected = ""
	}
	if c.editing == actionID {
		c.editing = ""
		c.editBuffer = ""
	}
	if c.pending != nil && c.pending.actionID == actionID {
		c.pending = nil
	}
}

// ToggleProblem toggles the link between the selected action and a problem.
// Returns false when nothing is selected (the click is ignored, matching the
// no-selection behavior of the annotation surface).
func (c *SelectionController) ToggleProblem(problemID string) bool {
	if c.selected == "" {
		return false
	}
	c.session.Links.ToggleLink(c.selected, problemID)
	return true
}

// SetEditText mirrors the UI's edit buffer into the controller so focus-loss
// commits see the text as last displayed.
func (c *SelectionController) SetEditText(text string) {
	if c.editing == "" {
		return
	}
	c.editBuffer = text
}

// Blur resolves an in-progress edit the way a focus loss does: the buffered
// text is committed if valid; otherwise the stored text is kept, a warning
// is raised, and the validation error is returned. Editing always ends.
func (c *SelectionController) Blur() error {
	if c.editing == "" {
		return nil
	}
	actionID := c.editing
	buffer := c.editBuffer
	c.editing = ""
	c.editBuffer = ""

	a := c.session.ActionByID(actionID)
	if a == nil {
		return nil
	}

	trimmed := strings.TrimSpace(buffer)
	if trimmed == "" {
		c.warnf("action text cannot be empty; previous text kept")
		return ErrEmptyActionText
	}
	if trimmed == NewActionPlaceholder {
		c.warnf("action text is unchanged placeholder; previous text kept")
		return ErrPlaceholderActionText
	}

	a.Text = trimmed
	a.IsNew = false
	return nil
}

// CancelEdit reverts the displayed text to the stored value and ends the
// edit without committing (the escape path).
func (c *SelectionController) CancelEdit() {
	if c.editing == "" {
		return
	}
	c.editing = ""
	c.editBuffer = ""
}

// beginEdit transitions to editing and arms the double-click latch.
func (c *SelectionController) beginEdit(actionID string, now time.Time) {
	a := c.session.ActionByID(actionID)
	if a == nil {
		return
	}
	c.editing = actionID
	c.editBuffer = a.Text
	c.latchID = actionID
	c.latchUntil = now.Add(doubleClickLatch)
}

// commitSingle applies single-click-toggle semantics: clicking the selected
// action deselects it, anything else selects.
func (c *SelectionController) commitSingle(actionID string) {
	if c.selected == actionID {
		c.selected = ""
		return
	}
	c.selected = actionID
}

func (c *SelectionController) warnf(msg string) {
	if c.warn != nil {
		c.warn(msg)
	}
}
