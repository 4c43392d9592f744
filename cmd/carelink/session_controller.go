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
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/AleutianAI/CareLink/pkg/annotation"
	"github.com/AleutianAI/CareLink/pkg/persist"
	"github.com/AleutianAI/CareLink/pkg/telemetry"
)

// =============================================================================
// Session Controller
// =============================================================================

// serverAPI is the server surface the controller needs. Satisfied by
// client.APIClient; tests inject mocks.
type serverAPI interface {
	ListPatients(ctx context.Context) ([]string, error)
	LastEditedPatient(ctx context.Context) (string, error)
	GetPatient(ctx context.Context, patientID string, forceRegenerate bool) (*annotation.PatientBundle, error)
	StreamActions(ctx context.Context, patientID string) (io.ReadCloser, error)
}

// sessionSyncer is the persistence surface. Satisfied by persist.Syncer.
type sessionSyncer interface {
	Save(ctx context.Context, session *annotation.PatientSession, silent bool, reporter persist.Reporter) error
	DeleteAction(ctx context.Context, session *annotation.PatientSession, actionID string) error
}

// streamConsumer reconciles one action stream into an outcome. Satisfied by
// annotation.StreamingActionConsumer.
type streamConsumer interface {
	Consume(ctx context.Context, body io.Reader, live annotation.LiveFunc) (*annotation.StreamOutcome, error)
}

// SessionControllerConfig wires a SessionController.
type SessionControllerConfig struct {
	API              serverAPI
	Cache            *annotation.PatientCache
	Syncer           sessionSyncer
	Consumer         streamConsumer
	Clock            annotation.Clock
	Logger           *slog.Logger
	Reporter         persist.Reporter
	StreamingEnabled bool

	// Warn receives user-visible validation warnings from the selection
	// machinery.
	Warn func(msg string)
}

// SessionController owns the live annotation state: exactly one patient
// session at a time, the selection machine bound to it, and the patient
// roster position. Every load bumps a generation counter; a stream opened
// by a superseded load observes the bump and stops before mutating the
// replacement session.
//
// The controller is driven from the single UI goroutine and is not safe
// for concurrent use.
type SessionController struct {
	api      serverAPI
	cache    *annotation.PatientCache
	syncer   sessionSyncer
	consume  streamConsumer
	clock    annotation.Clock
	logger   *slog.Logger
	reporter persist.Reporter
	warn     func(msg string)

	streamingEnabled bool

	patients []string
	index    int

	generation atomic.Uint64
	session    *annotation.PatientSession
	selection  *annotation.SelectionController
}

// NewSessionController creates a controller. Nil Clock, Logger, and
// Reporter select their defaults.
func NewSessionController(config SessionControllerConfig) *SessionController {
	if config.Clock == nil {
		config.Clock = annotation.SystemClock{}
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Reporter == nil {
		config.Reporter = persist.NopReporter{}
	}
	return &SessionController{
		api:              config.API,
		cache:            config.Cache,
		syncer:           config.Syncer,
		consume:          config.Consumer,
		clock:            config.Clock,
		logger:           config.Logger,
		reporter:         config.Reporter,
		warn:             config.Warn,
		streamingEnabled: config.StreamingEnabled,
		index:            -1,
	}
}

// Session returns the live session, or nil before the first load.
func (s *SessionController) Session() *annotation.PatientSession { return s.session }

// Selection returns the selection controller for the live session, or nil.
func (s *SessionController) Selection() *annotation.SelectionController { return s.selection }

// Patients returns the roster loaded by Start.
func (s *SessionController) Patients() []string { return s.patients }

// RosterPosition returns the 1-based roster position of the live patient
// and the roster size; position is 0 before the first load.
func (s *SessionController) RosterPosition() (int, int) {
	return s.index + 1, len(s.patients)
}

// Start fetches the roster and loads the initial patient: the most recently
// edited one when the server remembers it, the first in the roster
// otherwise. A failed last-edited lookup is tolerated; a failed roster
// fetch is not.
func (s *SessionController) Start(ctx context.Context) error {
	patients, err := s.api.ListPatients(ctx)
	if err != nil {
		return fmt.Errorf("load patient roster: %w", err)
	}
	if len(patients) == 0 {
		return fmt.Errorf("server returned an empty patient roster")
	}
	s.patients = patients

	initial := patients[0]
	if lastEdited, err := s.api.LastEditedPatient(ctx); err != nil {
		s.logger.Warn("last-edited lookup failed, starting at roster head", "error", err)
	} else if lastEdited != "" && s.rosterIndex(lastEdited) >= 0 {
		initial = lastEdited
	}

	return s.LoadPatient(ctx, initial)
}

// LoadPatient switches the live session to the given patient.
//
// The outgoing session's pending gestures are resolved and its state is
// silently saved before anything else happens, so navigation never loses
// work. The bundle is then read cache-aside; when the patient has no saved
// annotation data and streaming is enabled, the action list is loaded
// progressively over SSE instead of from the bundle.
func (s *SessionController) LoadPatient(ctx context.Context, patientID string) error {
	s.settleAndSave(ctx)

	gen := s.generation.Add(1)

	bundle, fromCache, err := s.cache.GetOrFetch(ctx, patientID, func(ctx context.Context) (*annotation.PatientBundle, error) {
		return s.api.GetPatient(ctx, patientID, false)
	})
	if err != nil {
		return fmt.Errorf("load patient %s: %w", patientID, err)
	}
	if fromCache {
		telemetry.CacheHits.Inc()
	} else {
		telemetry.CacheMisses.Inc()
	}

	s.installSession(bundle, patientID)

	// A cache hit skips the network entirely; only a fresh fetch of an
	// unsaved patient opens the generation stream.
	if !fromCache && !bundle.HasSavedData && s.streamingEnabled {
		s.streamActions(ctx, gen)
	}

	s.selectFirstAction()
	s.logger.Info("patient loaded",
		"patient_id", patientID,
		"from_cache", fromCache,
		"actions", len(s.session.Actions),
	)
	return nil
}

// Regenerate discards the patient's prepared actions and reloads them from
// scratch: current work is silently saved, the cache entry dropped, and the
// bundle re-fetched with force_regenerate so the stale copy cannot be
// served again.
func (s *SessionController) Regenerate(ctx context.Context) error {
	if s.session == nil {
		return fmt.Errorf("no patient loaded")
	}
	patientID := s.session.PatientID

	s.settleAndSave(ctx)
	s.cache.Invalidate(patientID)

	gen := s.generation.Add(1)

	bundle, err := s.api.GetPatient(ctx, patientID, true)
	if err != nil {
		return fmt.Errorf("regenerate patient %s: %w", patientID, err)
	}
	s.cache.Put(patientID, bundle)
	s.installSession(bundle, patientID)

	if s.streamingEnabled {
		s.streamActions(ctx, gen)
	}

	s.selectFirstAction()
	s.logger.Info("patient regenerated", "patient_id", patientID)
	return nil
}

// NextPatient navigates forward in the roster, wrapping at the end.
func (s *SessionController) NextPatient(ctx context.Context) error {
	if len(s.patients) == 0 {
		return fmt.Errorf("no patient roster loaded")
	}
	next := (s.index + 1) % len(s.patients)
	return s.LoadPatient(ctx, s.patients[next])
}

// PreviousPatient navigates backward in the roster, wrapping at the start.
func (s *SessionController) PreviousPatient(ctx context.Context) error {
	if len(s.patients) == 0 {
		return fmt.Errorf("no patient roster loaded")
	}
	prev := (s.index - 1 + len(s.patients)) % len(s.patients)
	return s.LoadPatient(ctx, s.patients[prev])
}

// Save persists the live session. Interactive saves report their outcome;
// silent saves do not. An open edit is committed through the focus-loss
// path first so the snapshot reflects what the reviewer last saw.
func (s *SessionController) Save(ctx context.Context, silent bool) error {
	if s.session == nil {
		return fmt.Errorf("no patient loaded")
	}
	if s.selection != nil {
		s.selection.ResolvePending()
		_ = s.selection.Blur()
	}
	return s.syncer.Save(ctx, s.session, silent, s.reporter)
}

// DeleteSelected removes the selected action, server-first. With no
// selection it is a no-op returning false.
func (s *SessionController) DeleteSelected(ctx context.Context) (bool, error) {
	if s.session == nil || s.selection == nil {
		return false, nil
	}
	actionID := s.selection.SelectedID()
	if actionID == "" {
		return false, nil
	}

	if err := s.syncer.DeleteAction(ctx, s.session, actionID); err != nil {
		return false, err
	}
	s.selection.ClearIfSelected(actionID)
	return true, nil
}

// AddAction appends a new placeholder action, selects it, and opens it for
// editing via a synthetic double click so the reviewer can type over the
// placeholder immediately.
func (s *SessionController) AddAction() annotation.Action {
	id := "new-" + uuid.New().String()
	action := s.session.AddNewAction(id)
	s.selection.Select(id)
	s.selection.Click(id)
	s.selection.Click(id)
	return action
}

// settleAndSave resolves pending gestures, commits any open edit, and
// silently saves the outgoing session. Load failures after this point can
// then never lose the reviewer's work.
func (s *SessionController) settleAndSave(ctx context.Context) {
	if s.session == nil {
		return
	}
	if s.selection != nil {
		s.selection.ResolvePending()
		_ = s.selection.Blur()
	}
	if err := s.syncer.Save(ctx, s.session, true, s.reporter); err != nil {
		// Already backed up by the syncer; navigation proceeds.
		s.logger.Warn("silent save on navigation failed",
			"patient_id", s.session.PatientID,
			"error", err,
		)
	}
}

// installSession replaces the live session and rebinds the selection
// machine. The old session and its gestures are dropped wholesale.
func (s *SessionController) installSession(bundle *annotation.PatientBundle, patientID string) {
	s.session = annotation.NewSessionFromBundle(bundle)
	s.selection = annotation.NewSelectionController(s.session, s.clock, s.warn)
	s.index = s.rosterIndex(patientID)
}

// streamActions consumes the SSE action stream for the load identified by
// gen. Stream failure falls back to the bundle's action list, which is
// already installed.
func (s *SessionController) streamActions(ctx context.Context, gen uint64) {
	if s.consume == nil {
		return
	}
	patientID := s.session.PatientID

	body, err := s.api.StreamActions(ctx, patientID)
	if err != nil {
		s.logger.Warn("action stream unavailable, using fetched actions",
			"patient_id", patientID,
			"error", err,
		)
		return
	}
	defer body.Close()

	live := func() bool { return s.generation.Load() == gen }
	outcome, err := s.consume.Consume(ctx, body, live)
	if err != nil {
		s.logger.Warn("action stream failed, using fetched actions",
			"patient_id", patientID,
			"error", err,
		)
		return
	}
	if !outcome.Completed {
		return
	}

	s.session.Actions = outcome.Actions
	s.session.Links = annotation.NewLinkGraph(nil)

	// Refresh the cache entry so a reload within the TTL observes the
	// generated list instead of the pre-generation bundle.
	s.cache.Put(patientID, &annotation.PatientBundle{
		PatientID:             patientID,
		Problems:              s.session.Problems,
		Solutions:             outcome.Actions,
		OriginalTreatmentPlan: s.session.OriginalPlanText,
		HasSavedData:          outcome.AutoSaved,
	})

	// The server persisted the generated plan itself; saving again would
	// only repeat the write.
	if !outcome.AutoSaved {
		if err := s.syncer.Save(ctx, s.session, true, s.reporter); err != nil {
			s.logger.Warn("post-stream silent save failed",
				"patient_id", patientID,
				"error", err,
			)
		}
	}
}

// selectFirstAction applies the default selection after a load.
func (s *SessionController) selectFirstAction() {
	if s.selection == nil || len(s.session.Actions) == 0 {
		return
	}
	s.selection.Select(s.session.Actions[0].ID)
}

// rosterIndex returns the roster position of a patient id, or -1.
func (s *SessionController) rosterIndex(patientID string) int {
	for i, id := range s.patients {
		if id == patientID {
			return i
		}
	}
	return -1
}
