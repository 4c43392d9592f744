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
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AleutianAI/CareLink/pkg/annotation"
)

// =============================================================================
// API CLIENT TESTS
// =============================================================================

func TestAPIClientListPatients(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/patients" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"patients": []string{"patient-001", "patient-002"}})
	}))
	defer srv.Close()

	api := NewAPIClient(srv.URL, NewRetryingClient(NewDefaultHTTPClient(0), RetryConfig{MaxRetries: -1}, nil), nil)

	patients, err := api.ListPatients(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patients) != 2 || patients[0] != "patient-001" {
		t.Errorf("unexpected roster: %v", patients)
	}
}

func TestAPIClientGetPatient(t *testing.T) {
	t.Run("fetches and validates bundle", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/patient/patient-001" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.URL.Query().Get("force_regenerate") != "" {
				t.Error("unexpected force_regenerate on plain fetch")
			}
			_ = json.NewEncoder(w).Encode(annotation.PatientBundle{
				PatientID: "patient-001",
				Problems:  []annotation.Problem{{ID: "problem-0", Text: "Crowding", Type: "diagnosis"}},
				Solutions: []annotation.Action{{ID: "action-0", Text: "Upper expansion"}},
				Annotations: map[string][]string{
					"action-0": {"problem-0"},
				},
				HasSavedData: true,
			})
		}))
		defer srv.Close()

		api := NewAPIClient(srv.URL, NewRetryingClient(NewDefaultHTTPClient(0), RetryConfig{MaxRetries: -1}, nil), nil)

		bundle, err := api.GetPatient(context.Background(), "patient-001", false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if bundle.PatientID != "patient-001" || !bundle.HasSavedData {
			t.Errorf("unexpected bundle: %+v", bundle)
		}
		if len(bundle.Annotations["action-0"]) != 1 {
			t.Errorf("annotations not decoded: %v", bundle.Annotations)
		}
	})

	t.Run("passes force_regenerate through", func(t *testing.T) {
		var sawForce bool
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sawForce = r.URL.Query().Get("force_regenerate") == "true"
			_ = json.NewEncoder(w).Encode(annotation.PatientBundle{PatientID: "patient-001"})
		}))
		defer srv.Close()

		api := NewAPIClient(srv.URL, NewRetryingClient(NewDefaultHTTPClient(0), RetryConfig{MaxRetries: -1}, nil), nil)

		if _, err := api.GetPatient(context.Background(), "patient-001", true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !sawForce {
			t.Error("force_regenerate not forwarded")
		}
	})

	t.Run("rejects bundle missing patient id", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"problems": []any{}})
		}))
		defer srv.Close()

		api := NewAPIClient(srv.URL, NewRetryingClient(NewDefaultHTTPClient(0), RetryConfig{MaxRetries: -1}, nil), nil)

		if _, err := api.GetPatient(context.Background(), "patient-001", false); err == nil {
			t.Fatal("expected validation error for bundle without patient_id")
		}
	})
}

func TestAPIClientSave(t *testing.T) {
	t.Run("posts snapshot and accepts ack", func(t *testing.T) {
		var received annotation.PlanSnapshot
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/api/save/patient-001" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			_ = json.NewDecoder(r.Body).Decode(&received)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "saved"})
		}))
		defer srv.Close()

		api := NewAPIClient(srv.URL, NewRetryingClient(NewDefaultHTTPClient(0), RetryConfig{MaxRetries: -1}, nil), nil)

		snapshot := annotation.PlanSnapshot{
			Annotations: map[string][]string{"action-0": {"problem-1"}},
			Solutions:   []annotation.Action{{ID: "action-0", Text: "Bond brackets"}},
		}
		if err := api.Save(context.Background(), "patient-001", snapshot); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(received.Solutions) != 1 || received.Solutions[0].Text != "Bond brackets" {
			t.Errorf("snapshot not transmitted: %+v", received)
		}
	})

	t.Run("treats explicit rejection as error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "disk full"})
		}))
		defer srv.Close()

		api := NewAPIClient(srv.URL, NewRetryingClient(NewDefaultHTTPClient(0), RetryConfig{MaxRetries: -1}, nil), nil)

		err := api.Save(context.Background(), "patient-001", annotation.PlanSnapshot{})
		if err == nil || !strings.Contains(err.Error(), "disk full") {
			t.Errorf("expected rejection error, got %v", err)
		}
	})

	t.Run("treats bare rejection without a message as error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false})
		}))
		defer srv.Close()

		api := NewAPIClient(srv.URL, NewRetryingClient(NewDefaultHTTPClient(0), RetryConfig{MaxRetries: -1}, nil), nil)

		if err := api.Save(context.Background(), "patient-001", annotation.PlanSnapshot{}); err == nil {
			t.Error("success=false with no message was treated as a saved plan")
		}
	})

	t.Run("accepts empty ack body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		api := NewAPIClient(srv.URL, NewRetryingClient(NewDefaultHTTPClient(0), RetryConfig{MaxRetries: -1}, nil), nil)

		if err := api.Save(context.Background(), "patient-001", annotation.PlanSnapshot{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestAPIClientDeleteAction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/api/action/delete/patient-001/action-2" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	api := NewAPIClient(srv.URL, NewRetryingClient(NewDefaultHTTPClient(0), RetryConfig{MaxRetries: -1}, nil), nil)

	if err := api.DeleteAction(context.Background(), "patient-001", "action-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAPIClientStreamActions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/patient/patient-001/stream-actions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"type\":\"start\"}\n\n")
	}))
	defer srv.Close()

	api := NewAPIClient(srv.URL, NewRetryingClient(NewDefaultHTTPClient(0), RetryConfig{MaxRetries: -1}, nil), nil)

	body, err := api.StreamActions(context.Background(), "patient-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer body.Close()

	data, _ := io.ReadAll(body)
	if !strings.Contains(string(data), `"type":"start"`) {
		t.Errorf("stream body not passed through: %q", data)
	}
}
