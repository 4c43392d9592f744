// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/AleutianAI/CareLink/pkg/annotation"
)

// =============================================================================
// API Client
// =============================================================================

// patientListResponse is the payload of GET /api/patients.
type patientListResponse struct {
	Patients []string `json:"patients"`
}

// lastEditedResponse is the payload of GET /api/last-edited-patient.
type lastEditedResponse struct {
	PatientID string `json:"patient_id"`
}

// saveResponse is the acknowledgment of POST /api/save/{id}.
type saveResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// APIClient is the typed surface over the CareLink server API.
//
// # Description
//
// Every call goes through the retrying client, so callers see at most one
// error per operation regardless of how many attempts were made underneath.
// Fetched patient bundles are schema-validated before they are handed to the
// session layer; a bundle that fails validation is treated as a failed fetch.
//
// # Assumptions
//
//   - baseURL has no trailing slash ("http://localhost:5000").
//   - Patient and action ids are path-safe after escaping.
type APIClient struct {
	baseURL  string
	http     *RetryingClient
	validate *validator.Validate
	logger   *slog.Logger
}

// NewAPIClient creates an API client over the given retrying transport.
// A nil logger selects slog.Default.
func NewAPIClient(baseURL string, rc *RetryingClient, logger *slog.Logger) *APIClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     rc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// ListPatients returns the ordered patient id roster.
func (c *APIClient) ListPatients(ctx context.Context) ([]string, error) {
	var out patientListResponse
	if err := c.getJSON(ctx, c.baseURL+"/api/patients", &out); err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return out.Patients, nil
}

// LastEditedPatient returns the id of the most recently saved patient, or
// an empty string when the server has no record of one.
func (c *APIClient) LastEditedPatient(ctx context.Context) (string, error) {
	var out lastEditedResponse
	if err := c.getJSON(ctx, c.baseURL+"/api/last-edited-patient", &out); err != nil {
		return "", fmt.Errorf("last edited patient: %w", err)
	}
	return out.PatientID, nil
}

// GetPatient fetches one patient bundle. forceRegenerate asks the server to
// discard its prepared actions and regenerate; callers pair it with a local
// cache invalidation so the stale bundle cannot be served again.
func (c *APIClient) GetPatient(ctx context.Context, patientID string, forceRegenerate bool) (*annotation.PatientBundle, error) {
	u := c.baseURL + "/api/patient/" + url.PathEscape(patientID)
	if forceRegenerate {
		u += "?force_regenerate=true"
	}

	var bundle annotation.PatientBundle
	if err := c.getJSON(ctx, u, &bundle); err != nil {
		return nil, fmt.Errorf("get patient %s: %w", patientID, err)
	}
	if err := c.validate.Struct(&bundle); err != nil {
		return nil, fmt.Errorf("get patient %s: invalid bundle: %w", patientID, err)
	}
	return &bundle, nil
}

// StreamActions opens the SSE action stream for a patient. The returned body
// is open and owned by the caller; close it when the stream is done.
func (c *APIClient) StreamActions(ctx context.Context, patientID string) (io.ReadCloser, error) {
	u := c.baseURL + "/api/patient/" + url.PathEscape(patientID) + "/stream-actions"

	requestID := uuid.New().String()
	c.logger.Debug("opening action stream", "patient_id", patientID, "request_id", requestID)

	resp, err := c.http.Get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("stream actions for %s: %w", patientID, err)
	}
	return resp.Body, nil
}

// Save posts the plan snapshot for a patient. The server acknowledgment is
// checked; a 2xx response carrying success=false is still a failed save.
func (c *APIClient) Save(ctx context.Context, patientID string, snapshot annotation.PlanSnapshot) error {
	u := c.baseURL + "/api/save/" + url.PathEscape(patientID)

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("save patient %s: encode: %w", patientID, err)
	}

	requestID := uuid.New().String()
	c.logger.Debug("saving patient",
		"patient_id", patientID,
		"request_id", requestID,
		"actions", len(snapshot.Solutions),
		"annotated_actions", len(snapshot.Annotations),
	)

	resp, err := c.http.Post(ctx, u, "application/json", payload)
	if err != nil {
		return fmt.Errorf("save patient %s: %w", patientID, err)
	}
	defer resp.Body.Close()

	var ack saveResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		// Older servers acknowledge with an empty body; a 2xx with no
		// parseable payload still counts as saved.
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("save patient %s: decode ack: %w", patientID, err)
	}
	if !ack.Success {
		if ack.Message == "" {
			return fmt.Errorf("save patient %s: server rejected save", patientID)
		}
		return fmt.Errorf("save patient %s: server rejected save: %s", patientID, ack.Message)
	}
	return nil
}

// DeleteAction removes one action server-side. Callers mutate local state
// only after this returns nil; the server copy is authoritative.
func (c *APIClient) DeleteAction(ctx context.Context, patientID, actionID string) error {
	u := c.baseURL + "/api/action/delete/" + url.PathEscape(patientID) + "/" + url.PathEscape(actionID)

	resp, err := c.http.Delete(ctx, u)
	if err != nil {
		return fmt.Errorf("delete action %s for %s: %w", actionID, patientID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// getJSON issues a GET through the retrying transport and decodes the body.
func (c *APIClient) getJSON(ctx context.Context, url string, out any) error {
	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
