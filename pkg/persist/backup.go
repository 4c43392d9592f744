// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package persist owns durability for annotation work: synchronizing the
// session to the server and, when that fails, writing local backup records
// so a reviewer's work survives a dead server.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/CareLink/pkg/annotation"
)

// =============================================================================
// Backup Store
// =============================================================================

// backupKeyPrefix namespaces backup records in the store.
const backupKeyPrefix = "backup/"

// ErrNoBackup is returned when no backup record exists for a patient.
var ErrNoBackup = errors.New("no backup record for patient")

// BackupRecord is one preserved save payload. Only the newest record per
// patient is kept; a later failed save overwrites the earlier record.
type BackupRecord struct {
	PatientID   string              `json:"patient_id"`
	Annotations map[string][]string `json:"annotations"`
	Solutions   []annotation.Action `json:"solutions"`
	SavedAt     time.Time           `json:"saved_at"`
}

// Config holds backup store settings.
type Config struct {
	// Path is the on-disk directory for the store. Ignored when InMemory.
	Path string

	// InMemory runs the store without disk persistence. Test-only.
	InMemory bool

	// SyncWrites forces an fsync per write. Backups are the last line of
	// defense, so the default config enables this.
	SyncWrites bool

	// Logger receives store-internal log output. Nil selects slog.Default.
	Logger *slog.Logger
}

// DefaultConfig returns the production configuration for the given
// directory: on-disk, synchronous writes.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		SyncWrites: true,
	}
}

// InMemoryConfig returns a config for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// BackupStore persists save payloads that could not reach the server.
//
// Records are written only on retry exhaustion and read back only through
// explicit inspection commands; nothing restores them automatically into a
// session.
type BackupStore struct {
	db     *badger.DB
	clock  annotation.Clock
	logger *slog.Logger
}

// OpenBackupStore opens (or creates) the store described by config.
func OpenBackupStore(config Config, clock annotation.Clock) (*BackupStore, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if clock == nil {
		clock = annotation.SystemClock{}
	}

	opts := badger.DefaultOptions(config.Path).
		WithInMemory(config.InMemory).
		WithSyncWrites(config.SyncWrites).
		WithLogger(&badgerLogger{logger: config.Logger})
	if config.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open backup store: %w", err)
	}

	return &BackupStore{
		db:     db,
		clock:  clock,
		logger: config.Logger,
	}, nil
}

// Write stores the snapshot as the patient's backup record, replacing any
// earlier one.
func (s *BackupStore) Write(patientID string, snapshot annotation.PlanSnapshot) error {
	record := BackupRecord{
		PatientID:   patientID,
		Annotations: snapshot.Annotations,
		Solutions:   snapshot.Solutions,
		SavedAt:     s.clock.Now(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode backup for %s: %w", patientID, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(backupKeyPrefix+patientID), data)
	})
	if err != nil {
		return fmt.Errorf("write backup for %s: %w", patientID, err)
	}

	s.logger.Info("backup record written",
		"patient_id", patientID,
		"actions", len(record.Solutions),
	)
	return nil
}

// Get returns the backup record for a patient, or ErrNoBackup.
func (s *BackupStore) Get(patientID string) (*BackupRecord, error) {
	var record BackupRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(backupKeyPrefix + patientID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNoBackup
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns all backup records, newest first.
func (s *BackupStore) List() ([]BackupRecord, error) {
	var records []BackupRecord
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(backupKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record BackupRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	// Newest first for display.
	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			if records[j].SavedAt.After(records[i].SavedAt) {
				records[i], records[j] = records[j], records[i]
			}
		}
	}
	return records, nil
}

// Close releases the store.
func (s *BackupStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Badger Logger Adapter
// =============================================================================

// badgerLogger routes badger's printf-style logging into slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (b *badgerLogger) Errorf(format string, args ...interface{}) {
	b.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (b *badgerLogger) Warningf(format string, args ...interface{}) {
	b.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (b *badgerLogger) Infof(format string, args ...interface{}) {
	b.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (b *badgerLogger) Debugf(format string, args ...interface{}) {
	b.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

var _ badger.Logger = (*badgerLogger)(nil)
