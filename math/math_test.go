// math/math_test.go
// Copyright(c) 2023-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"encoding/json"
	"testing"
)

func TestParseLatLong(t *testing.T) {
	type LL struct {
		str string
		pos Point2LL
	}
	latlongs := []LL{
		{str: "N40.37.58.400, W073.46.17.000", pos: Point2LL{-73.771385, 40.6328888}}, // JFK VOR
		{str: "N40.37.58.4,W073.46.17.000", pos: Point2LL{-73.771385, 40.6328888}},    // JFK VOR
		{str: "40.6328888, -73.771385", pos: Point2LL{-73.771385, 40.6328888}},        // JFK VOR
	}

	for _, ll := range latlongs {
		p, err := ParseLatLong([]byte(ll.str))
		if err != nil {
			t.Errorf("%s: unexpected error: %v", ll.str, err)
		}
		if Abs(p[0]-ll.pos[0]) > 1e-4 {
			t.Errorf("%s: got %.9g for longitude, expected %.9g", ll.str, p[0], ll.pos[0])
		}
		if Abs(p[1]-ll.pos[1]) > 1e-4 {
			t.Errorf("%s: got %.9g for latitude, expected %.9g", ll.str, p[1], ll.pos[1])
		}
	}

	for _, invalid := range []string{
		"E40.37.58.400, W073.46.17.000",
		"40.37.58.400, W073.46.17.000",
		"N40.37.58.400, -73.22",
		"N40.37.58.400, W073.46.17",
	} {
		if _, err := ParseLatLong([]byte(invalid)); err == nil {
			t.Errorf("%s: no error was returned for invalid latlong string!", invalid)
		}
	}
}

func TestNMDistance2LL(t *testing.T) {
	// One degree of latitude is 60nm, give or take the earth model.
	d := NMDistance2LL(Point2LL{-30, 50}, Point2LL{-30, 51})
	if Abs(d-60) > 0.5 {
		t.Errorf("expected ~60nm for a degree of latitude, got %f", d)
	}

	if d := NMDistance2LL(Point2LL{10, 10}, Point2LL{10, 10}); d != 0 {
		t.Errorf("expected zero distance between identical points, got %f", d)
	}

	// JFK to LHR is roughly 2990nm.
	jfk, lhr := Point2LL{-73.7789, 40.6398}, Point2LL{-0.4543, 51.4700}
	if d := NMDistance2LL(jfk, lhr); Abs(d-2990) > 20 {
		t.Errorf("JFK-LHR: got %f nm", d)
	}
}

func TestPoint2LLJSON(t *testing.T) {
	p := Point2LL{-20.5, 55.25}
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var q Point2LL
	if err := json.Unmarshal(b, &q); err != nil {
		t.Fatalf("unmarshal %s: %v", b, err)
	}
	if Abs(p[0]-q[0]) > 1e-3 || Abs(p[1]-q[1]) > 1e-3 {
		t.Errorf("round trip mismatch: %v vs %v", p, q)
	}

	if err := json.Unmarshal([]byte("[-20.5, 55.25]"), &q); err != nil || q != p {
		t.Errorf("array form: got %v, err %v", q, err)
	}
}
