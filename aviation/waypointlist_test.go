// aviation/waypointlist_test.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"errors"
	"sync"
	"testing"

	"github.com/mmp/tracknet/math"
)

func wpt(id string, lon, lat float32) Waypoint {
	return Waypoint{ID: id, Location: math.Point2LL{lon, lat}}
}

func TestWaypointListBasics(t *testing.T) {
	wl := NewWaypointList()
	a := wl.AddWaypoint(wpt("AAA", -10, 50))
	b := wl.AddWaypoint(wpt("BBB", -11, 50))

	if wl.Count() != 2 {
		t.Errorf("Count = %d, expected 2", wl.Count())
	}

	// Parallel edges are allowed.
	if _, err := wl.AddNeighbor(a, b, Neighbor{Airway: "UL1", Distance: 38}); err != nil {
		t.Fatalf("AddNeighbor: %v", err)
	}
	if _, err := wl.AddNeighbor(a, b, Neighbor{Airway: "DCT", Distance: 38}); err != nil {
		t.Fatalf("AddNeighbor: %v", err)
	}
	if wl.EdgesFromCount(a) != 2 || wl.EdgesToCount(b) != 2 || wl.EdgesToCount(a) != 0 {
		t.Errorf("unexpected edge counts: from(a)=%d to(b)=%d to(a)=%d",
			wl.EdgesFromCount(a), wl.EdgesToCount(b), wl.EdgesToCount(a))
	}

	if _, err := wl.AddNeighbor(a, 17, Neighbor{}); !errors.Is(err, ErrInvalidWaypoint) {
		t.Errorf("expected ErrInvalidWaypoint, got %v", err)
	}

	if i, err := wl.FindByWaypoint(wpt("BBB", -11, 50)); err != nil || i != b {
		t.Errorf("FindByWaypoint = %d, %v", i, err)
	}
	if _, err := wl.FindByWaypoint(wpt("BBB", -12, 50)); !errors.Is(err, ErrWaypointNotFound) {
		t.Errorf("expected ErrWaypointNotFound for same ID elsewhere, got %v", err)
	}
	if w := wl.Waypoint(a); w.ID != "AAA" {
		t.Errorf("Waypoint(a) = %v", w)
	}
}

func TestWaypointListRemoveWaypoint(t *testing.T) {
	wl := NewWaypointList()
	a := wl.AddWaypoint(wpt("AAA", 0, 0))
	b := wl.AddWaypoint(wpt("BBB", 1, 0))
	c := wl.AddWaypoint(wpt("CCC", 2, 0))
	wl.AddNeighbor(a, b, Neighbor{Airway: "A1"})
	wl.AddNeighbor(b, c, Neighbor{Airway: "A1"})
	wl.AddNeighbor(c, b, Neighbor{Airway: "A1"})

	if err := wl.RemoveWaypoint(b); err != nil {
		t.Fatalf("RemoveWaypoint: %v", err)
	}
	if wl.Count() != 2 || wl.EdgeCount() != 0 {
		t.Errorf("Count = %d EdgeCount = %d, expected 2 and 0", wl.Count(), wl.EdgeCount())
	}
	if wl.EdgesFromCount(a) != 0 || wl.EdgesFromCount(c) != 0 {
		t.Errorf("dangling edges remain")
	}
	if len(wl.FindAllByID("BBB")) != 0 {
		t.Errorf("identifier index still has BBB")
	}
	if err := wl.RemoveWaypoint(b); !errors.Is(err, ErrInvalidWaypoint) {
		t.Errorf("expected ErrInvalidWaypoint removing twice, got %v", err)
	}

	// The slot is reused.
	if d := wl.AddWaypoint(wpt("DDD", 3, 0)); d != b {
		t.Errorf("expected slot %d to be reused, got %d", b, d)
	}
}

func TestWaypointListEditorUndo(t *testing.T) {
	wl := NewWaypointList()
	a := wl.AddWaypoint(wpt("AAA", 0, 0))
	b := wl.AddWaypoint(wpt("BBB", 1, 0))
	wl.AddNeighbor(a, b, Neighbor{Airway: "A1", Distance: 60})

	nw, ne := wl.Count(), wl.EdgeCount()

	ed := wl.GetEditor()
	x := ed.AddWaypoint(wpt("XXX", 0.5, 0.5))
	if err := ed.AddNeighbor(a, x, Neighbor{Airway: "DCT", Distance: 42}); err != nil {
		t.Fatal(err)
	}
	if err := ed.AddNeighbor(x, b, Neighbor{Airway: "DCT", Distance: 42}); err != nil {
		t.Fatal(err)
	}
	if err := ed.AddNeighbor(a, b, Neighbor{Airway: "NATA", Distance: 60}); err != nil {
		t.Fatal(err)
	}
	if !ed.HasEdits() {
		t.Errorf("HasEdits returned false")
	}

	ed.Undo()
	if wl.Count() != nw || wl.EdgeCount() != ne {
		t.Errorf("after Undo: %d waypoints %d edges, expected %d and %d", wl.Count(), wl.EdgeCount(), nw, ne)
	}
	if e := wl.EdgesFrom(a); len(e) != 1 || e[0].Airway != "A1" {
		t.Errorf("original edge not preserved: %+v", e)
	}

	// Undo with nothing to do is fine.
	ed.Undo()
	if wl.Count() != nw || wl.EdgeCount() != ne {
		t.Errorf("second Undo changed the list")
	}
}

func TestWaypointListEditorRollBack(t *testing.T) {
	wl := NewWaypointList()
	a := wl.AddWaypoint(wpt("AAA", 0, 0))
	b := wl.AddWaypoint(wpt("BBB", 1, 0))

	ed := wl.GetEditor()
	if err := ed.AddNeighbor(a, b, Neighbor{Airway: "NATA", Distance: 60}); err != nil {
		t.Fatal(err)
	}
	nw, ne := wl.Count(), wl.EdgeCount()

	// A second track fails partway through.
	cp := ed.Checkpoint()
	x := ed.AddWaypoint(wpt("N01W001", -1, 1))
	if err := ed.AddNeighbor(a, x, Neighbor{Airway: "NATB", Distance: 80}); err != nil {
		t.Fatal(err)
	}
	if err := ed.AddNeighbor(x, 1000, Neighbor{Airway: "DCT"}); !errors.Is(err, ErrInvalidWaypoint) {
		t.Fatalf("expected ErrInvalidWaypoint, got %v", err)
	}
	ed.RollBack(cp)

	if wl.Count() != nw || wl.EdgeCount() != ne {
		t.Errorf("after RollBack: %d waypoints %d edges, expected %d and %d", wl.Count(), wl.EdgeCount(), nw, ne)
	}
	if e := wl.EdgesFrom(a); len(e) != 1 || e[0].Airway != "NATA" {
		t.Errorf("edit before the checkpoint not preserved: %+v", e)
	}

	ed.Undo()
	if wl.Count() != 2 || wl.EdgeCount() != 0 || ed.HasEdits() {
		t.Errorf("Undo after RollBack: %d waypoints %d edges", wl.Count(), wl.EdgeCount())
	}
}

func TestWaypointListEditorStaleSlots(t *testing.T) {
	wl := NewWaypointList()
	a := wl.AddWaypoint(wpt("AAA", 0, 0))
	b := wl.AddWaypoint(wpt("BBB", 1, 0))

	ed := wl.GetEditor()
	ed.AddNeighbor(a, b, Neighbor{Airway: "T1"})
	edges := wl.EdgesFrom(a)

	// Someone else removes the edge and the slot is reused.
	wl.RemoveEdge(edges[0].ID)
	id, _ := wl.AddNeighbor(b, a, Neighbor{Airway: "UN1"})
	if id != edges[0].ID {
		t.Fatalf("expected edge slot to be reused")
	}

	ed.Undo()
	if wl.EdgeCount() != 1 || wl.EdgesFromCount(b) != 1 {
		t.Errorf("Undo removed an edge it didn't add")
	}
}

func TestWaypointListConcurrentEditors(t *testing.T) {
	wl := NewWaypointList()
	base := wl.AddWaypoint(wpt("BASE", 0, 0))

	var wg sync.WaitGroup
	for e := range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ed := wl.GetEditor()
			for i := range 50 {
				idx := ed.AddWaypoint(wpt("X", float32(e), float32(i)/10))
				ed.AddNeighbor(base, idx, Neighbor{Airway: "DCT"})
			}
			ed.Undo()
		}()
	}
	wg.Wait()

	if wl.Count() != 1 || wl.EdgeCount() != 0 {
		t.Errorf("Count = %d EdgeCount = %d, expected 1 and 0", wl.Count(), wl.EdgeCount())
	}
}

func TestFindByIDNear(t *testing.T) {
	wl := NewWaypointList()
	us := wl.AddWaypoint(wpt("DUPE", -75, 40))
	eu := wl.AddWaypoint(wpt("DUPE", 5, 50))

	if i, err := wl.FindByIDNear("DUPE", wpt("", 2, 48)); err != nil || i != eu {
		t.Errorf("got %d %v, expected %d", i, err, eu)
	}
	if i, err := wl.FindByIDNear("DUPE", wpt("", -70, 42)); err != nil || i != us {
		t.Errorf("got %d %v, expected %d", i, err, us)
	}
	if _, err := wl.FindByIDNear("NONE", wpt("", 0, 0)); !errors.Is(err, ErrWaypointNotFound) {
		t.Errorf("expected ErrWaypointNotFound, got %v", err)
	}
}

func TestAirwayConnections(t *testing.T) {
	wl := NewWaypointList()
	// A chain of connected waypoints heading east from (0, 0), 0.1 degree
	// (6nm) apart, and one unconnected waypoint right at the origin.
	prev := -1
	for i := range 20 {
		idx := wl.AddWaypoint(wpt("W", float32(i)*0.1, 0))
		if prev != -1 {
			wl.AddNeighbor(prev, idx, Neighbor{Airway: "A1", Distance: 6})
		}
		prev = idx
	}
	lonely := wl.AddWaypoint(wpt("LONELY", 0, 0.01))

	opt := WptSearchOption{SearchRange: 10, MaxSearchRange: 100, MinCount: 1, MaxCount: 5}
	res := wl.AirwayConnections(math.Point2LL{0, 0}, opt)
	if len(res) != 2 {
		t.Fatalf("expected 2 within 10nm, got %+v", res)
	}
	for i, r := range res {
		if r.Index == lonely {
			t.Errorf("unconnected waypoint returned")
		}
		if i > 0 && r.Distance < res[i-1].Distance {
			t.Errorf("results not sorted by distance: %+v", res)
		}
	}

	// Growing the search to find at least MinCount.
	opt.MinCount = 4
	res = wl.AirwayConnections(math.Point2LL{0, 0}, opt)
	if len(res) < 4 || len(res) > 5 {
		t.Errorf("expected 4-5 results with MinCount 4, got %d", len(res))
	}

	// Nothing nearby at all.
	if res := wl.AirwayConnections(math.Point2LL{100, 60}, opt); len(res) != 0 {
		t.Errorf("expected no results far away, got %+v", res)
	}
}
