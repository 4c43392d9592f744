// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package annotation

// LinkGraph owns the bipartite link relation between treatment actions and
// clinical problems for the currently loaded patient.
//
// Entries are created lazily on first link and never implicitly deleted when
// they become empty: an action that has been touched keeps an empty sequence
// entry. Problem ids inside an entry carry no ordering guarantee; equality is
// by id and duplicates are forbidden.
//
// The graph never validates ids against the problem or action lists. Stale
// ids coming from the server (or left behind by deletions) are simply
// recorded and tolerated; render-time lookups ignore what they cannot
// resolve.
//
// Thread Safety:
//
//	LinkGraph is a single-writer resource owned by the PatientSession.
//	All mutation happens synchronously on the UI event path, so the graph
//	carries no locking.
type LinkGraph struct {
	links map[string][]string
}

// NewLinkGraph creates a graph, deep-copying any initial relation (typically
// the saved annotations from a patient bundle). A nil initial map yields an
// empty graph.
func NewLinkGraph(initial map[string][]string) *LinkGraph {
	g := &LinkGraph{links: make(map[string][]string, len(initial))}
	for actionID, problemIDs := range initial {
		g.links[actionID] = append([]string(nil), problemIDs...)
	}
	return g
}

// ToggleLink flips the link between an action and a problem: linked pairs
// are unlinked, unlinked pairs are linked. The entry for actionID is created
// lazily on first touch. Applying the same toggle twice restores the prior
// state. ToggleLink never fails; unknown ids are recorded as given.
func (g *LinkGraph) ToggleLink(actionID, problemID string) {
	entry, ok := g.links[actionID]
	if !ok {
		entry = []string{}
	}
	for i, id := range entry {
		if id == problemID {
			g.links[actionID] = append(entry[:i], entry[i+1:]...)
			return
		}
	}
	g.links[actionID] = append(entry, problemID)
}

// LinksFor returns a copy of the problem ids linked to the action, or an
// empty slice if none are recorded.
func (g *LinkGraph) LinksFor(actionID string) []string {
	entry, ok := g.links[actionID]
	if !ok {
		return []string{}
	}
	return append([]string{}, entry...)
}

// Linked reports whether the pair is currently linked.
func (g *LinkGraph) Linked(actionID, problemID string) bool {
	for _, id := range g.links[actionID] {
		if id == problemID {
			return true
		}
	}
	return false
}

// HasEntry reports whether the action has ever been touched (even if its
// sequence is now empty).
func (g *LinkGraph) HasEntry(actionID string) bool {
	_, ok := g.links[actionID]
	return ok
}

// RemoveAction cascades an action deletion: the whole entry for actionID is
// dropped. Unknown ids are a no-op.
func (g *LinkGraph) RemoveAction(actionID string) {
	delete(g.links, actionID)
}

// Snapshot returns a deep copy of the full relation, suitable for the save
// payload.
func (g *LinkGraph) Snapshot() map[string][]string {
	out := make(map[string][]string, len(g.links))
	for actionID, problemIDs := range g.links {
		out[actionID] = append([]string{}, problemIDs...)
	}
	return out
}
