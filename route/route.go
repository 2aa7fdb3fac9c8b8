// route/route.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package route

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mmp/tracknet/aviation"

	"github.com/brunoga/deep"
)

var ErrMalformedRoute = errors.New("Malformed route")

// Node is a waypoint in a route. Airway and Distance describe the leg to
// the following node; they are unused for the last node.
type Node struct {
	Waypoint aviation.Waypoint
	Airway   string
	Distance float32
}

// Route is an ordered sequence of waypoints and the legs between them.
type Route struct {
	Nodes []Node
}

// Append adds a waypoint to the end of the route, reached from the
// previous waypoint via the given airway.
func (r *Route) Append(w aviation.Waypoint, airway string, distance float32) {
	if n := len(r.Nodes); n > 0 {
		r.Nodes[n-1].Airway = airway
		r.Nodes[n-1].Distance = distance
	}
	r.Nodes = append(r.Nodes, Node{Waypoint: w})
}

func (r *Route) TotalDistance() float32 {
	var d float32
	for _, n := range r.Nodes[:max(0, len(r.Nodes)-1)] {
		d += n.Distance
	}
	return d
}

func (r *Route) Equal(o *Route) bool {
	return slices.Equal(r.Nodes, o.Nodes)
}

func (r *Route) Clone() *Route {
	return deep.MustCopy(r)
}

// String returns the route in the usual "WPT AWY WPT ..." form.
func (r *Route) String() string {
	var sb strings.Builder
	for i, n := range r.Nodes {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(n.Waypoint.ID)
		if i+1 < len(r.Nodes) {
			sb.WriteString(" " + n.Airway)
		}
	}
	return sb.String()
}

// Parse resolves a route given as alternating waypoints and airways
// (e.g. "DOGAL NATA LIMRI UN1 XIBIL") against the graph. Each airway leg
// must be reachable along edges of that airway; DCT legs may join any
// two waypoints. Ambiguous identifiers are resolved to the candidate
// closest to the previous waypoint.
func Parse(s string, wl *aviation.WaypointList) (*Route, error) {
	f := strings.Fields(strings.ToUpper(s))
	if len(f) == 0 || len(f)%2 == 0 {
		return nil, fmt.Errorf("%q: %w", s, ErrMalformedRoute)
	}

	cands := wl.FindAllByID(f[0])
	if len(cands) == 0 {
		return nil, fmt.Errorf("%s: %w", f[0], aviation.ErrWaypointNotFound)
	}
	// Prefer a waypoint where the first airway starts.
	cur := cands[0]
	for _, c := range cands {
		if slices.ContainsFunc(wl.EdgesFrom(c), func(e aviation.Edge) bool { return e.Airway == f[1] }) {
			cur = c
			break
		}
	}

	r := &Route{}
	r.Append(wl.Waypoint(cur), "", 0)
	for i := 1; i+1 < len(f); i += 2 {
		airway, id := f[i], f[i+1]

		var next int
		var dist float32
		if airway == aviation.DirectAirway {
			var err error
			if next, err = wl.FindByIDNear(id, wl.Waypoint(cur)); err != nil {
				return nil, err
			}
			dist = wl.Waypoint(cur).DistanceTo(wl.Waypoint(next))
		} else {
			var ok bool
			if next, dist, ok = followAirway(wl, cur, airway, id); !ok {
				return nil, fmt.Errorf("%s %s %s: %w", wl.Waypoint(cur).ID, airway, id, aviation.ErrInvalidEdge)
			}
		}

		r.Append(wl.Waypoint(next), airway, dist)
		cur = next
	}
	return r, nil
}

// followAirway does a breadth-first search along the airway's edges from
// the given waypoint to one with the given identifier, returning its
// index and the distance along the airway.
func followAirway(wl *aviation.WaypointList, from int, airway, id string) (int, float32, bool) {
	dist := map[int]float32{from: 0}
	q := []int{from}
	for len(q) > 0 {
		cur := q[0]
		q = q[1:]
		for _, e := range wl.EdgesFrom(cur) {
			if e.Airway != airway {
				continue
			}
			if _, seen := dist[e.To]; seen {
				continue
			}
			dist[e.To] = dist[cur] + e.Distance
			if wl.Waypoint(e.To).ID == id {
				return e.To, dist[e.To], true
			}
			q = append(q, e.To)
		}
	}
	return -1, 0, false
}
