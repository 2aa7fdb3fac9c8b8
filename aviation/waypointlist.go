// aviation/waypointlist.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/mmp/tracknet/util"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
)

///////////////////////////////////////////////////////////////////////////
// WaypointList

// WaypointList is the navigation graph: waypoints addressed by index and
// directed edges between them. Indices of live waypoints are stable;
// slots of removed waypoints are reused by later additions. Parallel
// edges between the same pair of waypoints are allowed.
//
// All methods may be called concurrently.
type WaypointList struct {
	mu sync.RWMutex

	nodes     []wptNode
	freeNodes []int
	nodeCount int

	edges     []edgeSlot
	freeEdges []int
	edgeCount int
	// Incremented for each new node and edge so that stale references to
	// recycled slots can be detected.
	serial uint64

	// Waypoint identifiers are not unique (the same name is used in
	// different regions), so these are multimaps.
	byID    *util.MultiMap[string, int]
	edgesTo *util.MultiMap[int, int] // to-index -> edge id

	tree *quadtree.Quadtree
}

type wptNode struct {
	wpt    Waypoint
	live   bool
	serial uint64
	out    []int // edge ids
	point  *wptPointer
}

type edgeSlot struct {
	from, to int
	n        Neighbor
	live     bool
	serial   uint64
}

// wptPointer is the quadtree payload for a waypoint.
type wptPointer struct {
	index int
	p     orb.Point
}

func (w *wptPointer) Point() orb.Point { return w.p }

func NewWaypointList() *WaypointList {
	byID, _ := util.NewMultiMap[string, int](0)
	edgesTo, _ := util.NewMultiMap[int, int](0)
	return &WaypointList{
		byID:    byID,
		edgesTo: edgesTo,
		tree:    quadtree.New(orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}),
	}
}

func (w *WaypointList) valid(i int) bool {
	return i >= 0 && i < len(w.nodes) && w.nodes[i].live
}

// AddWaypoint adds the waypoint to the graph and returns its index.
func (w *WaypointList) AddWaypoint(wpt Waypoint) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	idx, _ := w.addWaypoint(wpt)
	return idx
}

func (w *WaypointList) addWaypoint(wpt Waypoint) (int, uint64) {
	var idx int
	if n := len(w.freeNodes); n > 0 {
		idx = w.freeNodes[n-1]
		w.freeNodes = w.freeNodes[:n-1]
	} else {
		idx = len(w.nodes)
		w.nodes = append(w.nodes, wptNode{})
	}

	ptr := &wptPointer{index: idx, p: orb.Point{float64(wpt.Location[0]), float64(wpt.Location[1])}}
	w.serial++
	w.nodes[idx] = wptNode{wpt: wpt, live: true, serial: w.serial, point: ptr}
	w.nodeCount++

	w.byID.Add(wpt.ID, idx)
	// Out-of-bounds locations only fail to show up in nearby searches.
	_ = w.tree.Add(ptr)

	return idx, w.serial
}

// RemoveWaypoint removes the waypoint at index i along with all of the
// edges to and from it.
func (w *WaypointList) RemoveWaypoint(i int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.valid(i) {
		return fmt.Errorf("%d: %w", i, ErrInvalidWaypoint)
	}
	w.removeWaypoint(i)
	return nil
}

func (w *WaypointList) removeWaypoint(i int) {
	for _, id := range slices.Clone(w.nodes[i].out) {
		w.removeEdge(id)
	}
	for _, id := range w.edgesTo.FindAll(i) {
		w.removeEdge(id)
	}

	node := &w.nodes[i]
	w.byID.RemoveValue(node.wpt.ID, i, util.RemoveFirst)
	ptr := node.point
	w.tree.Remove(ptr, func(p orb.Pointer) bool { return p == orb.Pointer(ptr) })

	*node = wptNode{}
	w.freeNodes = append(w.freeNodes, i)
	w.nodeCount--
}

// AddNeighbor adds a directed edge from->to and returns the edge's id,
// which may be passed to RemoveEdge.
func (w *WaypointList) AddNeighbor(from, to int, n Neighbor) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id, _, err := w.addNeighbor(from, to, n)
	return id, err
}

func (w *WaypointList) addNeighbor(from, to int, n Neighbor) (int, uint64, error) {
	if !w.valid(from) || !w.valid(to) {
		return -1, 0, fmt.Errorf("%d -> %d: %w", from, to, ErrInvalidWaypoint)
	}

	var id int
	if k := len(w.freeEdges); k > 0 {
		id = w.freeEdges[k-1]
		w.freeEdges = w.freeEdges[:k-1]
	} else {
		id = len(w.edges)
		w.edges = append(w.edges, edgeSlot{})
	}
	w.serial++
	w.edges[id] = edgeSlot{from: from, to: to, n: n, live: true, serial: w.serial}
	w.edgeCount++

	w.nodes[from].out = append(w.nodes[from].out, id)
	w.edgesTo.Add(to, id)

	return id, w.serial, nil
}

// RemoveEdge removes the edge with the given id.
func (w *WaypointList) RemoveEdge(id int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if id < 0 || id >= len(w.edges) || !w.edges[id].live {
		return fmt.Errorf("%d: %w", id, ErrInvalidEdge)
	}
	w.removeEdge(id)
	return nil
}

func (w *WaypointList) removeEdge(id int) {
	e := w.edges[id]
	from := &w.nodes[e.from]
	if i := slices.Index(from.out, id); i != -1 {
		from.out = slices.Delete(from.out, i, i+1)
	}
	w.edgesTo.RemoveValue(e.to, id, util.RemoveFirst)

	w.edges[id] = edgeSlot{}
	w.freeEdges = append(w.freeEdges, id)
	w.edgeCount--
}

// FindByWaypoint returns the index of a waypoint with the same identifier
// and location as wpt.
func (w *WaypointList) FindByWaypoint(wpt Waypoint) (int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, i := range w.byID.FindAll(wpt.ID) {
		if w.nodes[i].wpt.Same(wpt) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%s: %w", wpt.ID, ErrWaypointNotFound)
}

// FindAllByID returns the indices of all waypoints with the given
// identifier, in no particular order.
func (w *WaypointList) FindAllByID(id string) []int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.byID.FindAll(id)
}

// FindByIDNear returns the index of the waypoint with the given identifier
// closest to the given location. This is how ambiguous identifiers in
// routes are resolved.
func (w *WaypointList) FindByIDNear(id string, near Waypoint) (int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	best, bestDist := -1, float32(0)
	for _, i := range w.byID.FindAll(id) {
		if d := w.nodes[i].wpt.DistanceTo(near); best == -1 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best == -1 {
		return -1, fmt.Errorf("%s: %w", id, ErrWaypointNotFound)
	}
	return best, nil
}

// Waypoint returns the waypoint at index i; it returns the zero Waypoint
// if i is not valid.
func (w *WaypointList) Waypoint(i int) Waypoint {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if !w.valid(i) {
		return Waypoint{}
	}
	return w.nodes[i].wpt
}

func (w *WaypointList) Contains(i int) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.valid(i)
}

func (w *WaypointList) EdgesToCount(i int) int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if !w.valid(i) {
		return 0
	}
	return len(w.edgesTo.FindAll(i))
}

func (w *WaypointList) EdgesFromCount(i int) int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if !w.valid(i) {
		return 0
	}
	return len(w.nodes[i].out)
}

// EdgesFrom returns the edges leaving waypoint i, in the order they were
// added.
func (w *WaypointList) EdgesFrom(i int) []Edge {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if !w.valid(i) {
		return nil
	}
	edges := make([]Edge, 0, len(w.nodes[i].out))
	for _, id := range w.nodes[i].out {
		e := w.edges[id]
		edges = append(edges, Edge{ID: id, From: e.from, To: e.to, Neighbor: e.n})
	}
	return edges
}

// EdgesTo returns the edges arriving at waypoint i, ordered by id.
func (w *WaypointList) EdgesTo(i int) []Edge {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if !w.valid(i) {
		return nil
	}
	ids := w.edgesTo.FindAll(i)
	slices.Sort(ids)
	edges := make([]Edge, 0, len(ids))
	for _, id := range ids {
		e := w.edges[id]
		edges = append(edges, Edge{ID: id, From: e.from, To: e.to, Neighbor: e.n})
	}
	return edges
}

// Count returns the number of waypoints in the graph.
func (w *WaypointList) Count() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.nodeCount
}

// EdgeCount returns the number of edges in the graph.
func (w *WaypointList) EdgeCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.edgeCount
}

// All returns an iterator over the index and waypoint of every waypoint in
// the graph. The read lock is held during iteration, so the graph must
// not be modified from the loop body.
func (w *WaypointList) All() iter.Seq2[int, Waypoint] {
	return func(yield func(int, Waypoint) bool) {
		w.mu.RLock()
		defer w.mu.RUnlock()

		for i, n := range w.nodes {
			if n.live && !yield(i, n.wpt) {
				return
			}
		}
	}
}

// GetEditor returns a new editor that records the changes it makes to
// the list so that they can be undone.
func (w *WaypointList) GetEditor() *WaypointListEditor {
	return &WaypointListEditor{list: w}
}
