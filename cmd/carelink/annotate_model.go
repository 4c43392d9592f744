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
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AleutianAI/CareLink/pkg/annotation"
	"github.com/AleutianAI/CareLink/pkg/ux"
)

// =============================================================================
// Annotation TUI
// =============================================================================

// Pane focus within the annotation view.
const (
	paneActions = iota
	paneProblems
)

// gestureTick drives deferred click resolution and notice expiry. It is
// deliberately shorter than the click disambiguation window so a resolved
// selection appears without visible lag.
const gestureTick = 50 * time.Millisecond

type tickMsg time.Time

// loadResultMsg reports a finished load/navigation/regeneration.
type loadResultMsg struct {
	err error
}

// saveResultMsg reports a finished interactive save.
type saveResultMsg struct {
	err error
}

// deleteResultMsg reports a finished delete.
type deleteResultMsg struct {
	deleted bool
	err     error
}

// Stream progress messages, sent from the load goroutine via program.Send.
type streamStartMsg struct{}

type streamActionMsg struct {
	action annotation.Action
}

type streamCompleteMsg struct {
	count int
}

type streamErrorMsg struct {
	message string
}

// programRenderer forwards stream notifications into the tea program so the
// view repaints as provisional actions arrive.
type programRenderer struct {
	send func(tea.Msg)
}

func (r *programRenderer) OnStreamStart(context.Context) {
	r.send(streamStartMsg{})
}

func (r *programRenderer) OnActionAppended(_ context.Context, action annotation.Action) {
	r.send(streamActionMsg{action: action})
}

func (r *programRenderer) OnStreamComplete(_ context.Context, actions []annotation.Action) {
	r.send(streamCompleteMsg{count: len(actions)})
}

func (r *programRenderer) OnStreamError(_ context.Context, message string) {
	r.send(streamErrorMsg{message: message})
}

var _ annotation.StreamRenderer = (*programRenderer)(nil)

// annotateModel is the bubbletea model for the annotation view.
//
// The model owns display state only: cursors, the edit input, transient
// notices, and the provisional list shown while a stream is in flight.
// Session state lives in the SessionController. Loads, saves, and deletes
// run as tea commands; while one is in flight the keys are ignored, the
// gesture tick skips the controller, and the view renders from the model's
// own provisional state — so the command goroutine is the only one touching
// the controller until its result message arrives.
type annotateModel struct {
	ctx        context.Context
	controller *SessionController
	notifier   *ux.Notifier
	input      textinput.Model

	pane          int
	actionCursor  int
	problemCursor int

	loading     bool
	loadingWhat string
	provisional []annotation.Action

	width  int
	height int

	quitting bool
	fatal    error
}

// newAnnotateModel builds the model around an already started controller.
func newAnnotateModel(ctx context.Context, controller *SessionController, notifier *ux.Notifier) annotateModel {
	ti := textinput.New()
	ti.CharLimit = 500
	ti.Width = 60

	return annotateModel{
		ctx:        ctx,
		controller: controller,
		notifier:   notifier,
		input:      ti,
	}
}

func (m annotateModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.tick())
}

func (m annotateModel) tick() tea.Cmd {
	return tea.Tick(gestureTick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m annotateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		// While a command goroutine owns the controller, the tick only
		// reschedules itself.
		if m.loading || m.quitting {
			return m, m.tick()
		}
		sel := m.controller.Selection()
		if sel != nil {
			sel.ResolvePending()
		}
		m.syncEditInput()
		return m, m.tick()

	case streamStartMsg:
		m.provisional = nil
		m.loadingWhat = "generating treatment actions"
		return m, nil

	case streamActionMsg:
		m.provisional = append(m.provisional, msg.action)
		return m, nil

	case streamCompleteMsg:
		m.loadingWhat = fmt.Sprintf("received %d actions", msg.count)
		return m, nil

	case streamErrorMsg:
		m.notifier.Post(ux.NoticeError, "Action generation failed: "+msg.message)
		return m, nil

	case loadResultMsg:
		m.loading = false
		m.loadingWhat = ""
		m.provisional = nil
		m.actionCursor = 0
		m.problemCursor = 0
		if msg.err != nil {
			m.notifier.Post(ux.NoticeError, msg.err.Error())
		}
		m.moveCursorToSelection()
		return m, nil

	case saveResultMsg:
		m.loading = false
		m.loadingWhat = ""
		if msg.err != nil {
			m.notifier.Post(ux.NoticeError, "Save failed; work backed up locally")
		} else {
			m.notifier.Post(ux.NoticeSuccess, "Patient saved")
		}
		return m, nil

	case deleteResultMsg:
		m.loading = false
		m.loadingWhat = ""
		switch {
		case msg.err != nil:
			m.notifier.Post(ux.NoticeError, "Delete failed: "+msg.err.Error())
		case msg.deleted:
			m.notifier.Post(ux.NoticeSuccess, "Action deleted")
			if m.actionCursor >= len(m.session().Actions) && m.actionCursor > 0 {
				m.actionCursor--
			}
		default:
			m.notifier.Post(ux.NoticeInfo, "Select an action first")
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m annotateModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sel := m.controller.Selection()

	// An in-progress edit captures the keyboard.
	if sel != nil && sel.State() == annotation.StateEditing {
		switch msg.Type {
		case tea.KeyEnter:
			if err := sel.Blur(); err != nil {
				m.notifier.Post(ux.NoticeWarning, "Text kept: "+err.Error())
			}
			m.input.Blur()
			return m, nil
		case tea.KeyEsc:
			sel.CancelEdit()
			m.input.Blur()
			return m, nil
		case tea.KeyCtrlC:
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		sel.SetEditText(m.input.Value())
		return m, cmd
	}

	if m.loading {
		// Only quit is honored while a command is in flight.
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		// quitting also pauses the tick while the final save runs in the
		// quit command's goroutine.
		m.quitting = true
		return m, m.quitCmd()

	case "tab":
		m.pane = (m.pane + 1) % 2
		return m, nil

	case "up", "k":
		m.moveCursor(-1)
		return m, nil

	case "down", "j":
		m.moveCursor(1)
		return m, nil

	case "enter", " ":
		return m.activateCursor()

	case "ctrl+s", "s":
		m.loading = true
		m.loadingWhat = "saving patient"
		return m, func() tea.Msg {
			return saveResultMsg{err: m.controller.Save(m.ctx, false)}
		}

	case "left", "p":
		m.loading = true
		m.loadingWhat = "loading previous patient"
		return m, func() tea.Msg {
			return loadResultMsg{err: m.controller.PreviousPatient(m.ctx)}
		}

	case "right", "n":
		m.loading = true
		m.loadingWhat = "loading next patient"
		return m, func() tea.Msg {
			return loadResultMsg{err: m.controller.NextPatient(m.ctx)}
		}

	case "r":
		m.loading = true
		m.loadingWhat = "regenerating treatment actions"
		return m, func() tea.Msg {
			return loadResultMsg{err: m.controller.Regenerate(m.ctx)}
		}

	case "a":
		m.controller.AddAction()
		m.pane = paneActions
		m.actionCursor = len(m.session().Actions) - 1
		m.syncEditInput()
		m.notifier.Post(ux.NoticeInfo, "New action added; type to replace the placeholder")
		return m, nil

	case "d", "delete":
		m.loading = true
		m.loadingWhat = "deleting action"
		return m, func() tea.Msg {
			deleted, err := m.controller.DeleteSelected(m.ctx)
			return deleteResultMsg{deleted: deleted, err: err}
		}
	}

	return m, nil
}

// activateCursor reports the gesture under the cursor: a click on an action
// (select/edit disambiguation applies) or a link toggle on a problem.
func (m annotateModel) activateCursor() (tea.Model, tea.Cmd) {
	sel := m.controller.Selection()
	session := m.session()
	if sel == nil || session == nil {
		return m, nil
	}

	if m.pane == paneActions {
		if m.actionCursor < len(session.Actions) {
			sel.Click(session.Actions[m.actionCursor].ID)
		}
		return m, nil
	}

	if m.problemCursor < len(session.Problems) {
		if !sel.ToggleProblem(session.Problems[m.problemCursor].ID) {
			m.notifier.Post(ux.NoticeInfo, "Select a treatment action first")
		}
	}
	return m, nil
}

// quitCmd saves silently, then quits.
func (m annotateModel) quitCmd() tea.Cmd {
	return tea.Sequence(
		func() tea.Msg {
			_ = m.controller.Save(m.ctx, true)
			return nil
		},
		tea.Quit,
	)
}

func (m *annotateModel) moveCursor(delta int) {
	session := m.session()
	if session == nil {
		return
	}
	if m.pane == paneActions {
		m.actionCursor = clamp(m.actionCursor+delta, 0, len(session.Actions)-1)
	} else {
		m.problemCursor = clamp(m.problemCursor+delta, 0, len(session.Problems)-1)
	}
}

// moveCursorToSelection aligns the action cursor with the default selection
// after a load.
func (m *annotateModel) moveCursorToSelection() {
	sel := m.controller.Selection()
	session := m.session()
	if sel == nil || session == nil {
		return
	}
	for i, a := range session.Actions {
		if a.ID == sel.SelectedID() {
			m.actionCursor = i
			return
		}
	}
}

// syncEditInput focuses or clears the text input to mirror the selection
// machine's edit state.
func (m *annotateModel) syncEditInput() {
	sel := m.controller.Selection()
	if sel == nil {
		return
	}
	if sel.State() == annotation.StateEditing {
		if !m.input.Focused() {
			m.input.SetValue(sel.EditText())
			m.input.CursorEnd()
			m.input.Focus()
		}
		return
	}
	if m.input.Focused() {
		m.input.Blur()
		m.input.SetValue("")
	}
}

func (m annotateModel) session() *annotation.PatientSession {
	return m.controller.Session()
}

// =============================================================================
// View
// =============================================================================

func (m annotateModel) View() string {
	if m.quitting {
		return ""
	}
	// While a command goroutine owns the controller the view renders only
	// the model's own state.
	if m.loading {
		return m.loadingView()
	}
	session := m.session()
	if session == nil {
		return ux.Styles.Muted.Render("loading...")
	}

	var b strings.Builder
	b.WriteString(m.headerView(session))
	b.WriteString("\n")

	actions := m.actionsView(session)
	problems := m.problemsView(session)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, actions, "  ", problems))
	b.WriteString("\n")

	if session.OriginalPlanText != "" {
		b.WriteString(ux.Styles.Muted.Render("Original plan: " + truncate(session.OriginalPlanText, 100)))
		b.WriteString("\n")
	}

	b.WriteString(m.statusView())
	return b.String()
}

// loadingView renders the in-flight frame: provisional actions as they
// stream in, plus the operation description. It never touches the
// controller or the session.
func (m annotateModel) loadingView() string {
	var b strings.Builder
	b.WriteString(ux.Styles.Title.Render("CareLink"))
	b.WriteString("\n\n")

	if len(m.provisional) > 0 {
		var actions strings.Builder
		actions.WriteString(ux.Styles.Subtitle.Render("Treatment actions"))
		actions.WriteString("\n")
		for _, action := range m.provisional {
			actions.WriteString("  " + action.Text + "\n")
		}
		b.WriteString(ux.Styles.Box.Render(actions.String()))
		b.WriteString("\n")
	}

	what := m.loadingWhat
	if what == "" {
		what = "working"
	}
	b.WriteString(ux.Styles.Muted.Render("… " + what))
	b.WriteString("\n")

	if notice, ok := m.notifier.Active(); ok {
		b.WriteString(notice.Render())
		b.WriteString("\n")
	}
	return b.String()
}

func (m annotateModel) headerView(session *annotation.PatientSession) string {
	pos, total := m.controller.RosterPosition()
	title := ux.Styles.Title.Render(fmt.Sprintf("CareLink — %s", session.PatientID))
	roster := ux.Styles.Muted.Render(fmt.Sprintf("(%d/%d)", pos, total))
	return title + " " + roster + "\n"
}

func (m annotateModel) actionsView(session *annotation.PatientSession) string {
	sel := m.controller.Selection()
	var b strings.Builder
	b.WriteString(ux.Styles.Subtitle.Render("Treatment actions"))
	b.WriteString("\n")

	for i, action := range session.Actions {
		cursor := "  "
		if m.pane == paneActions && i == m.actionCursor {
			cursor = ux.Styles.Highlight.Render("> ")
		}

		line := action.Text
		switch {
		case sel != nil && sel.EditingID() == action.ID:
			line = m.input.View()
		case sel != nil && sel.SelectedID() == action.ID:
			line = ux.Styles.ActionSelected.Render(line)
		case action.IsNew:
			line = ux.Styles.ActionEditing.Render(line)
		}
		b.WriteString(cursor + line + "\n")
	}
	return ux.Styles.Box.Render(b.String())
}

func (m annotateModel) problemsView(session *annotation.PatientSession) string {
	sel := m.controller.Selection()
	var linked []string
	if sel != nil && sel.SelectedID() != "" {
		linked = session.Links.LinksFor(sel.SelectedID())
	}

	var b strings.Builder
	b.WriteString(ux.Styles.Subtitle.Render("Clinical problems"))
	b.WriteString("\n")

	// Fixed display grouping by problem type.
	lastType := ""
	for i, problem := range session.Problems {
		if problem.Type != lastType {
			if lastType != "" {
				b.WriteString("\n")
			}
			b.WriteString(ux.Styles.Muted.Render(strings.ToUpper(problem.Type)))
			b.WriteString("\n")
			lastType = problem.Type
		}

		cursor := "  "
		if m.pane == paneProblems && i == m.problemCursor {
			cursor = ux.Styles.Highlight.Render("> ")
		}

		line := problem.Text
		if containsString(linked, problem.ID) {
			line = ux.Styles.ProblemLinked.Render(string(ux.IconLink) + " " + line)
		}
		b.WriteString(cursor + line + "\n")
	}
	return ux.Styles.Box.Render(b.String())
}

func (m annotateModel) statusView() string {
	if notice, ok := m.notifier.Active(); ok {
		return notice.Render() + "\n" + m.helpView()
	}
	return m.helpView()
}

func (m annotateModel) helpView() string {
	return ux.Styles.Muted.Render(
		"enter: select/edit (double press edits) · tab: pane · s: save · " +
			"a: add · d: delete · r: regenerate · ←/→: patient · q: quit",
	)
}

// =============================================================================
// Helpers
// =============================================================================

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// truncate shortens to max runes; byte slicing would split multibyte text.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
