// procedures/staradder_test.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package procedures

import (
	"errors"
	"testing"

	"github.com/mmp/tracknet/aviation"
	"github.com/mmp/tracknet/log"
	"github.com/mmp/tracknet/math"
)

func wp(id string, lon, lat float32) aviation.Waypoint {
	return aviation.Waypoint{ID: id, Location: math.Point2LL{lon, lat}}
}

var testOpt = aviation.WptSearchOption{SearchRange: 20, MaxSearchRange: 200, MinCount: 2, MaxCount: 5}

type testSetup struct {
	wl       *aviation.WaypointList
	airports *aviation.AirportManager
	stars    *aviation.StarCollection
	idx      map[string]int
}

// Around KJFK: an airway through ROBER and HAARP, LENDY on an airway
// (with inbound edges), and CAMRN in the graph but unconnected. PARCH
// isn't in the graph at all.
func newTestSetup() *testSetup {
	ts := &testSetup{wl: aviation.NewWaypointList(), idx: make(map[string]int)}
	for _, w := range []aviation.Waypoint{
		wp("ROBER", -73.9, 40.2), wp("HAARP", -73.2, 40.1), wp("DIXIE", -74.2, 40.9), wp("LENDY", -74.1, 40.9),
		wp("CAMRN", -73.86, 40.02),
	} {
		ts.idx[w.ID] = ts.wl.AddWaypoint(w)
	}
	link := func(a, b string) {
		d := ts.wl.Waypoint(ts.idx[a]).DistanceTo(ts.wl.Waypoint(ts.idx[b]))
		ts.wl.AddNeighbor(ts.idx[a], ts.idx[b], aviation.Neighbor{Airway: "V16", Distance: d})
		ts.wl.AddNeighbor(ts.idx[b], ts.idx[a], aviation.Neighbor{Airway: "V16", Distance: d})
	}
	link("ROBER", "HAARP")
	link("DIXIE", "LENDY")

	ts.airports = aviation.NewAirportManager(aviation.Airport{
		ICAO:     "KJFK",
		Location: math.Point2LL{-73.78, 40.64},
		Runways:  []aviation.Runway{{Id: "04R", Threshold: math.Point2LL{-73.79, 40.62}}},
	})

	ts.stars = aviation.NewStarCollection("KJFK",
		aviation.STAR{Name: "LENDY8", Common: []aviation.Waypoint{wp("LENDY", -74.1, 40.9), wp("ZALLE", -73.95, 40.75)}},
		aviation.STAR{Name: "CAMRN5", Common: []aviation.Waypoint{wp("CAMRN", -73.86, 40.02), wp("KRSTL", -73.8, 40.4)}},
		aviation.STAR{Name: "PARCH3", Common: []aviation.Waypoint{wp("PARCH", -72.9, 40.9), wp("CCC", -73.3, 40.8)}},
	)
	return ts
}

func (ts *testSetup) adder() (*StarAdder, *aviation.WaypointListEditor) {
	ed := ts.wl.GetEditor()
	return NewStarAdder("kjfk", ts.stars, ed, ts.airports, testOpt, log.NewTest("info")), ed
}

func TestNoSTARs(t *testing.T) {
	ts := newTestSetup()
	sa, ed := ts.adder()
	nw, ne := ts.wl.Count(), ts.wl.EdgeCount()

	expected := ts.wl.AirwayConnections(math.Point2LL{-73.79, 40.62}, testOpt)
	if len(expected) == 0 {
		t.Fatal("test graph has nothing near the runway")
	}

	idx, err := sa.AddStarsToWptList("04R", nil)
	if err != nil {
		t.Fatal(err)
	}
	if w := ts.wl.Waypoint(idx); w.ID != "KJFK04R" {
		t.Errorf("runway waypoint %v", w)
	}

	in := ts.wl.EdgesTo(idx)
	if len(in) != len(expected) {
		t.Errorf("%d edges to runway, expected %d", len(in), len(expected))
	}
	for _, e := range in {
		if e.Airway != aviation.DirectAirway {
			t.Errorf("non-DCT edge %+v", e)
		}
	}
	if ts.wl.EdgeCount() != ne+len(expected) || ts.wl.Count() != nw+1 {
		t.Errorf("unexpected graph size %d/%d", ts.wl.Count(), ts.wl.EdgeCount())
	}

	ed.Undo()
	if ts.wl.Count() != nw || ts.wl.EdgeCount() != ne {
		t.Errorf("Undo didn't restore the graph")
	}
}

func TestFirstWaypointConnected(t *testing.T) {
	ts := newTestSetup()
	sa, _ := ts.adder()

	lendy := ts.idx["LENDY"]
	inBefore, outBefore := ts.wl.EdgesTo(lendy), ts.wl.EdgesFrom(lendy)
	ne := ts.wl.EdgeCount()

	idx, err := sa.AddStarsToWptList("04R", []string{"LENDY8"})
	if err != nil {
		t.Fatal(err)
	}

	if ts.wl.EdgeCount() != ne+1 {
		t.Errorf("%d edges added, expected 1", ts.wl.EdgeCount()-ne)
	}
	if len(ts.wl.EdgesTo(lendy)) != len(inBefore) {
		t.Errorf("edges into LENDY changed")
	}
	out := ts.wl.EdgesFrom(lendy)
	if len(out) != len(outBefore)+1 {
		t.Fatalf("expected one new edge from LENDY, got %+v", out)
	}
	e := out[len(out)-1]
	info, _ := ts.stars.GetStarInfo("LENDY8", "04R", ts.wl.Waypoint(idx))
	if e.To != idx || e.Airway != "LENDY8" || e.Distance != info.TotalDistance {
		t.Errorf("unexpected edge %+v, star info %+v", e, info)
	}
}

func TestFirstWaypointUnconnected(t *testing.T) {
	ts := newTestSetup()
	sa, ed := ts.adder()
	nw, ne := ts.wl.Count(), ts.wl.EdgeCount()

	idx, err := sa.AddStarsToWptList("04R", []string{"CAMRN5"})
	if err != nil {
		t.Fatal(err)
	}

	camrn := ts.idx["CAMRN"]
	if ts.wl.Count() != nw+1 {
		t.Errorf("CAMRN should not have been added again")
	}
	in := ts.wl.EdgesTo(camrn)
	if len(in) == 0 {
		t.Fatalf("CAMRN not connected")
	}
	for _, e := range in {
		if e.Airway != aviation.DirectAirway || e.From == camrn || e.From == idx {
			t.Errorf("unexpected edge into CAMRN %+v", e)
		}
	}
	out := ts.wl.EdgesFrom(camrn)
	if len(out) != 1 || out[0].To != idx || out[0].Airway != "CAMRN5" {
		t.Errorf("unexpected edges from CAMRN %+v", out)
	}

	ed.Undo()
	if ts.wl.Count() != nw || ts.wl.EdgeCount() != ne {
		t.Errorf("Undo didn't restore the graph")
	}
}

func TestFirstWaypointNotInGraph(t *testing.T) {
	ts := newTestSetup()
	sa, _ := ts.adder()
	nw := ts.wl.Count()

	idx, err := sa.AddStarsToWptList("04R", []string{"PARCH3", "NOPE1", "LENDY8"})
	if err != nil {
		t.Fatal(err)
	}

	// Runway and PARCH.
	if ts.wl.Count() != nw+2 {
		t.Errorf("%d waypoints added, expected 2", ts.wl.Count()-nw)
	}
	parch := ts.wl.FindAllByID("PARCH")
	if len(parch) != 1 {
		t.Fatalf("PARCH not added")
	}
	if ts.wl.EdgesToCount(parch[0]) == 0 {
		t.Errorf("PARCH not connected to the airways")
	}

	// The missing STAR didn't stop LENDY8 from being added.
	var names []string
	for _, e := range ts.wl.EdgesTo(idx) {
		names = append(names, e.Airway)
	}
	if len(names) != 2 || names[0] != "PARCH3" || names[1] != "LENDY8" {
		t.Errorf("edges to runway %v", names)
	}
}

func TestUnknownRunway(t *testing.T) {
	ts := newTestSetup()
	sa, _ := ts.adder()
	nw := ts.wl.Count()

	if _, err := sa.AddStarsToWptList("13L", nil); !errors.Is(err, aviation.ErrUnknownRunway) {
		t.Errorf("expected ErrUnknownRunway, got %v", err)
	}
	sa = NewStarAdder("KLGA", ts.stars, ts.wl.GetEditor(), ts.airports, testOpt, nil)
	if _, err := sa.AddStarsToWptList("04", []string{"LENDY8"}); !errors.Is(err, aviation.ErrUnknownAirport) {
		t.Errorf("expected ErrUnknownAirport, got %v", err)
	}
	if ts.wl.Count() != nw {
		t.Errorf("graph modified on error")
	}
}

func TestConnectDirectInvalidWaypoint(t *testing.T) {
	ts := newTestSetup()
	sa, ed := ts.adder()
	idx := ed.AddWaypoint(wp("KJFK04R", -73.79, 40.62))
	ne := ts.wl.EdgeCount()

	conns := []aviation.IndexDistance{{Index: ts.idx["ROBER"], Distance: 25}, {Index: 9999, Distance: 30}}
	if err := sa.connectDirect(idx, conns); !errors.Is(err, aviation.ErrInvalidWaypoint) {
		t.Errorf("expected ErrInvalidWaypoint, got %v", err)
	}
	if ts.wl.EdgeCount() != ne+1 {
		t.Errorf("expected only the ROBER edge, edge count %d -> %d", ne, ts.wl.EdgeCount())
	}

	// Skipped indices and the target itself get no edge.
	conns = []aviation.IndexDistance{{Index: idx}, {Index: ts.idx["HAARP"], Distance: 40}}
	if err := sa.connectDirect(idx, conns, ts.idx["HAARP"]); err != nil {
		t.Fatal(err)
	}
	if ts.wl.EdgeCount() != ne+1 {
		t.Errorf("skipped connections were added")
	}

	ed.Undo()
	if ts.wl.EdgeCount() != ne {
		t.Errorf("Undo left %d edges, expected %d", ts.wl.EdgeCount(), ne)
	}
}
