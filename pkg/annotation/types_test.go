// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package annotation

import "testing"

func TestSessionRemoveActionCascades(t *testing.T) {
	session := NewSessionFromBundle(&PatientBundle{
		PatientID: "patient-001",
		Solutions: []Action{{ID: "action-0"}, {ID: "action-1"}},
		Annotations: map[string][]string{
			"action-0": {"problem-0"},
			"action-1": {"problem-1"},
		},
	})

	session.RemoveAction("action-0")

	if session.ActionByID("action-0") != nil {
		t.Error("action still present after removal")
	}
	if session.Links.HasEntry("action-0") {
		t.Error("link entry not cascaded")
	}
	if !session.Links.Linked("action-1", "problem-1") {
		t.Error("unrelated links affected")
	}
}

func TestSessionSnapshotIsDetached(t *testing.T) {
	session := NewSessionFromBundle(&PatientBundle{
		PatientID: "patient-001",
		Solutions: []Action{{ID: "action-0", Text: "Expansion"}},
	})
	session.Links.ToggleLink("action-0", "problem-0")

	snap := session.Snapshot()
	snap.Solutions[0].Text = "mutated"
	snap.Annotations["action-0"] = nil

	if session.ActionByID("action-0").Text != "Expansion" {
		t.Error("snapshot aliases the action list")
	}
	if !session.Links.Linked("action-0", "problem-0") {
		t.Error("snapshot aliases the link graph")
	}
}

func TestValidActionText(t *testing.T) {
	cases := map[string]bool{
		"Extract upper first premolars": true,
		"  padded  ":                    true,
		"":                              false,
		"   ":                           false,
		NewActionPlaceholder:            false,
		"  " + NewActionPlaceholder:     false,
	}
	for text, want := range cases {
		if got := ValidActionText(text); got != want {
			t.Errorf("ValidActionText(%q) = %v, want %v", text, got, want)
		}
	}
}
