// aviation/editor.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"slices"
)

// WaypointListEditor makes changes to a WaypointList and remembers them so
// that Undo can restore the list to its state before the edits. Each
// track handler and each STAR insertion uses its own editor so that its
// edits can be removed without disturbing anyone else's.
//
// An editor is not safe for concurrent use, though the underlying list
// is.
type WaypointListEditor struct {
	list      *WaypointList
	waypoints []editRecord
	edges     []editRecord
}

type editRecord struct {
	index  int
	serial uint64
}

// AddWaypoint adds wpt to the list and returns its index.
func (e *WaypointListEditor) AddWaypoint(wpt Waypoint) int {
	w := e.list
	w.mu.Lock()
	defer w.mu.Unlock()

	idx, serial := w.addWaypoint(wpt)
	e.waypoints = append(e.waypoints, editRecord{index: idx, serial: serial})
	return idx
}

// AddNeighbor adds a directed edge from->to.
func (e *WaypointListEditor) AddNeighbor(from, to int, n Neighbor) error {
	w := e.list
	w.mu.Lock()
	defer w.mu.Unlock()

	id, serial, err := w.addNeighbor(from, to, n)
	if err == nil {
		e.edges = append(e.edges, editRecord{index: id, serial: serial})
	}
	return err
}

// Undo removes every edge and then every waypoint added through the
// editor, most recent first. Edits that have already been removed by
// other means are skipped. The editor may be reused afterward.
func (e *WaypointListEditor) Undo() {
	e.RollBack(EditCheckpoint{})
}

// EditCheckpoint marks a point in an editor's history.
type EditCheckpoint struct {
	waypoints, edges int
}

// Checkpoint returns the current point in the editor's history, for use
// with RollBack.
func (e *WaypointListEditor) Checkpoint() EditCheckpoint {
	return EditCheckpoint{waypoints: len(e.waypoints), edges: len(e.edges)}
}

// RollBack undoes the edits made since the checkpoint was taken, as Undo
// does for all of them.
func (e *WaypointListEditor) RollBack(c EditCheckpoint) {
	w := e.list
	w.mu.Lock()
	defer w.mu.Unlock()

	c.edges = min(c.edges, len(e.edges))
	c.waypoints = min(c.waypoints, len(e.waypoints))

	for _, r := range slices.Backward(e.edges[c.edges:]) {
		if r.index < len(w.edges) && w.edges[r.index].live && w.edges[r.index].serial == r.serial {
			w.removeEdge(r.index)
		}
	}
	for _, r := range slices.Backward(e.waypoints[c.waypoints:]) {
		if w.valid(r.index) && w.nodes[r.index].serial == r.serial {
			w.removeWaypoint(r.index)
		}
	}

	e.edges = e.edges[:c.edges]
	e.waypoints = e.waypoints[:c.waypoints]
}

// HasEdits reports whether there is anything for Undo to remove.
func (e *WaypointListEditor) HasEdits() bool {
	return len(e.edges) > 0 || len(e.waypoints) > 0
}

// List returns the WaypointList that the editor modifies.
func (e *WaypointListEditor) List() *WaypointList {
	return e.list
}
