// aviation/waypoint.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"

	"github.com/mmp/tracknet/math"
)

// DirectAirway labels graph edges that don't follow a published airway.
const DirectAirway = "DCT"

// Waypoint is a node of the navigation graph. Runway thresholds are
// represented by pseudo-waypoints whose ID is the airport ICAO code
// followed by the runway, e.g. "KJFK04R".
type Waypoint struct {
	ID          string        `json:"id"`
	Location    math.Point2LL `json:"location"`
	CountryCode int           `json:"country,omitempty"`
}

func (w Waypoint) String() string {
	return fmt.Sprintf("%s %s", w.ID, w.Location.DDString())
}

// Same reports whether the two waypoints have the same identifier and
// (to within float32 precision of the navdata) the same location.
func (w Waypoint) Same(o Waypoint) bool {
	const eps = 1e-5
	return w.ID == o.ID && math.Abs(w.Location[0]-o.Location[0]) < eps &&
		math.Abs(w.Location[1]-o.Location[1]) < eps
}

// DistanceTo returns the great-circle distance to the other waypoint in
// nautical miles.
func (w Waypoint) DistanceTo(o Waypoint) float32 {
	return math.NMDistance2LL(w.Location, o.Location)
}

// Neighbor is the payload of a directed edge: the airway it follows (or
// a track or procedure name, or DirectAirway) and its length in nautical
// miles.
type Neighbor struct {
	Airway   string  `json:"airway"`
	Distance float32 `json:"distance"`
}

// Edge is a directed edge of a WaypointList.
type Edge struct {
	ID       int
	From, To int
	Neighbor
}
