// route/toggler.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package route

import (
	"slices"

	"github.com/mmp/tracknet/tracks"
)

// RouteToggler switches a route between showing tracks by name and
// showing each of their waypoints. For example, the collapsed route
//
//	ERAKA NATA SAVRY
//
// expands to
//
//	ERAKA NATA N60W020 NATA N62W030 NATA N62W040 NATA SAVRY
//
// The route is modified in place. Collapse undoes Expand exactly.
type RouteToggler struct {
	route    *Route
	entries  []tracks.TrackEntry
	expanded bool
	// The splices made by Expand, in the order they were made.
	splices []splice
}

// splice records that the node at index start was replaced by count
// nodes along a track.
type splice struct {
	start, count int
	orig         Node
}

// NewRouteToggler returns a toggler for the route using the tracks that
// are currently in use; later changes to the tracks don't affect it.
func NewRouteToggler(r *Route, inUse *tracks.TrackInUseCollection) *RouteToggler {
	return NewRouteTogglerWithEntries(r, inUse.All())
}

// NewRouteTogglerWithEntries is like NewRouteToggler but takes the track
// entries directly; they are processed NATs first, then PACOTs, then
// AUSOTs, whatever order they are given in.
func NewRouteTogglerWithEntries(r *Route, entries []tracks.TrackEntry) *RouteToggler {
	entries = slices.Clone(entries)
	slices.SortStableFunc(entries, func(a, b tracks.TrackEntry) int { return int(a.Type) - int(b.Type) })
	return &RouteToggler{
		route:   r,
		entries: entries,
	}
}

func (t *RouteToggler) Route() *Route { return t.route }

func (t *RouteToggler) Expanded() bool { return t.expanded }

// Expand replaces each leg of the route along a track with the track's
// waypoints. It does nothing if the route is already expanded.
func (t *RouteToggler) Expand() {
	if t.expanded {
		return
	}
	for _, e := range t.entries {
		t.expandEntry(e)
	}
	t.expanded = true
}

func (t *RouteToggler) expandEntry(e tracks.TrackEntry) {
	if len(e.Waypoints) < 2 {
		return
	}
	first, last := e.Waypoints[0], e.Waypoints[len(e.Waypoints)-1]
	legs := e.LegDistances()

	nodes := t.route.Nodes
	for i := 0; i+1 < len(nodes); i++ {
		n := nodes[i]
		if n.Airway != e.Name || !n.Waypoint.Same(first) || !nodes[i+1].Waypoint.Same(last) {
			continue
		}

		exp := make([]Node, 0, len(e.Waypoints)-1)
		for j, w := range e.Waypoints[:len(e.Waypoints)-1] {
			exp = append(exp, Node{Waypoint: w, Airway: e.Name, Distance: legs[j]})
		}
		exp[0].Waypoint = n.Waypoint

		t.splices = append(t.splices, splice{start: i, count: len(exp), orig: n})
		nodes = slices.Replace(nodes, i, i+1, exp...)
		i += len(exp) - 1
	}
	t.route.Nodes = nodes
}

// Collapse restores the route to its state before Expand. It does nothing
// if the route isn't expanded. Only the legs that Expand replaced are
// collapsed; a route that spelled out a track's waypoints to begin with
// keeps them.
func (t *RouteToggler) Collapse() {
	if !t.expanded {
		return
	}
	nodes := t.route.Nodes
	for _, sp := range slices.Backward(t.splices) {
		nodes = slices.Replace(nodes, sp.start, sp.start+sp.count, sp.orig)
	}
	t.route.Nodes = nodes
	t.splices = nil
	t.expanded = false
}
