// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package persist

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/CareLink/pkg/annotation"
	"github.com/AleutianAI/CareLink/pkg/telemetry"
)

// =============================================================================
// Persistence Syncer
// =============================================================================

// SaveAPI is the server surface the syncer needs. Satisfied by
// client.APIClient.
type SaveAPI interface {
	Save(ctx context.Context, patientID string, snapshot annotation.PlanSnapshot) error
	DeleteAction(ctx context.Context, patientID, actionID string) error
}

// CacheInvalidator drops a patient's cached bundle so the next load
// re-fetches server state. Satisfied by annotation.PatientCache.
type CacheInvalidator interface {
	Invalidate(patientID string)
}

// Reporter receives user-facing persistence outcomes. Silent saves skip it
// entirely; interactive saves report both success and failure.
type Reporter interface {
	SaveSucceeded(patientID string)
	SaveFailed(patientID string, backedUp bool)
}

// NopReporter discards all outcomes.
type NopReporter struct{}

func (NopReporter) SaveSucceeded(string)    {}
func (NopReporter) SaveFailed(string, bool) {}

// Syncer pushes session state to the server and keeps the cache coherent.
//
// # Description
//
// Save serializes the session's snapshot and POSTs it; on success the
// patient's cache entry is invalidated so the next load observes the saved
// state. On failure (after the transport's retry budget) the snapshot is
// written to the local backup store and the session keeps its in-memory
// edits; nothing is rolled back.
//
// DeleteAction confirms the removal with the server before touching local
// state: a failed delete leaves the session untouched.
type Syncer struct {
	api     SaveAPI
	cache   CacheInvalidator
	backups *BackupStore
	logger  *slog.Logger
}

// NewSyncer wires a syncer. backups may be nil, in which case failed saves
// are logged but not preserved locally. A nil logger selects slog.Default.
func NewSyncer(api SaveAPI, cache CacheInvalidator, backups *BackupStore, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		api:     api,
		cache:   cache,
		backups: backups,
		logger:  logger,
	}
}

// Save pushes the session snapshot. silent suppresses reporter calls; it
// never changes what is persisted or backed up. The returned error is the
// save failure, if any; backup write problems are logged, not returned,
// since the save error is the one the caller acts on.
func (s *Syncer) Save(ctx context.Context, session *annotation.PatientSession, silent bool, reporter Reporter) error {
	if reporter == nil {
		reporter = NopReporter{}
	}

	ctx, span := telemetry.Tracer().Start(ctx, "persist.Save",
		trace.WithAttributes(
			attribute.String("patient.id", session.PatientID),
			attribute.Bool("save.silent", silent),
		))
	defer span.End()

	snapshot := session.Snapshot()

	err := s.api.Save(ctx, session.PatientID, snapshot)
	if err == nil {
		telemetry.Saves.WithLabelValues("ok").Inc()
		if s.cache != nil {
			s.cache.Invalidate(session.PatientID)
		}
		s.logger.Info("patient saved",
			"patient_id", session.PatientID,
			"silent", silent,
			"actions", len(snapshot.Solutions),
		)
		if !silent {
			reporter.SaveSucceeded(session.PatientID)
		}
		return nil
	}

	telemetry.Saves.WithLabelValues("failed").Inc()
	span.RecordError(err)
	s.logger.Error("save failed after retries",
		"patient_id", session.PatientID,
		"silent", silent,
		"error", err,
	)

	backedUp := false
	if s.backups != nil {
		if backupErr := s.backups.Write(session.PatientID, snapshot); backupErr != nil {
			s.logger.Error("backup write failed", "patient_id", session.PatientID, "error", backupErr)
		} else {
			backedUp = true
			telemetry.BackupsWritten.Inc()
		}
	}

	if !silent {
		reporter.SaveFailed(session.PatientID, backedUp)
	}
	return err
}

// DeleteAction removes an action server-first. Only after the server
// confirms is the action removed from the session and the cache entry
// invalidated. Clearing a selection that pointed at the removed action is
// the selection controller's job.
func (s *Syncer) DeleteAction(ctx context.Context, session *annotation.PatientSession, actionID string) error {
	if err := s.api.DeleteAction(ctx, session.PatientID, actionID); err != nil {
		s.logger.Error("server delete failed, local state untouched",
			"patient_id", session.PatientID,
			"action_id", actionID,
			"error", err,
		)
		return err
	}

	session.RemoveAction(actionID)
	if s.cache != nil {
		s.cache.Invalidate(session.PatientID)
	}
	s.logger.Info("action deleted",
		"patient_id", session.PatientID,
		"action_id", actionID,
	)
	return nil
}
