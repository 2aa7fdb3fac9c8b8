// aviation/nearby.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"slices"

	"github.com/mmp/tracknet/math"

	"github.com/paulmach/orb"
)

// WptSearchOption controls the search for airway waypoints near a
// location that is used to connect new waypoints (runways, procedure
// fixes, track endpoints) to the rest of the graph.
type WptSearchOption struct {
	// SearchRange is the initial search radius in nautical miles; it is
	// also the amount the radius grows by each time too few candidates
	// are found.
	SearchRange float32 `json:"search_range"`
	// The search stops growing at MaxSearchRange.
	MaxSearchRange float32 `json:"max_search_range"`
	MinCount       int     `json:"min_count"`
	// At most MaxCount of the closest candidates are returned.
	MaxCount int `json:"max_count"`
}

func DefaultWptSearchOption() WptSearchOption {
	return WptSearchOption{
		SearchRange:    20,
		MaxSearchRange: 500,
		MinCount:       10,
		MaxCount:       30,
	}
}

func (o WptSearchOption) sanitized() WptSearchOption {
	d := DefaultWptSearchOption()
	if o.SearchRange <= 0 {
		o.SearchRange = d.SearchRange
	}
	if o.MaxSearchRange < o.SearchRange {
		o.MaxSearchRange = o.SearchRange
	}
	if o.MaxCount <= 0 {
		o.MaxCount = d.MaxCount
	}
	o.MinCount = math.Clamp(o.MinCount, 0, o.MaxCount)
	return o
}

// IndexDistance pairs a waypoint index with its distance from a search
// location.
type IndexDistance struct {
	Index    int
	Distance float32
}

// AirwayConnections returns waypoints near p that are connected to the
// rest of the graph, closest first.
func (w *WaypointList) AirwayConnections(p math.Point2LL, opt WptSearchOption) []IndexDistance {
	opt = opt.sanitized()

	w.mu.RLock()
	defer w.mu.RUnlock()

	var result []IndexDistance
	var buf []orb.Pointer
	for r := opt.SearchRange; ; r += opt.SearchRange {
		r = min(r, opt.MaxSearchRange)
		result = result[:0]

		buf = w.tree.InBound(buf[:0], searchBound(p, r))
		for _, ptr := range buf {
			idx := ptr.(*wptPointer).index
			if len(w.nodes[idx].out) == 0 && !w.edgesTo.ContainsKey(idx) {
				continue
			}
			if d := math.NMDistance2LL(p, w.nodes[idx].wpt.Location); d <= r {
				result = append(result, IndexDistance{Index: idx, Distance: d})
			}
		}

		if len(result) >= opt.MinCount || r >= opt.MaxSearchRange {
			break
		}
	}

	slices.SortFunc(result, func(a, b IndexDistance) int {
		if a.Distance < b.Distance {
			return -1
		} else if a.Distance > b.Distance {
			return 1
		}
		return a.Index - b.Index
	})
	if len(result) > opt.MaxCount {
		result = result[:opt.MaxCount]
	}
	return result
}

// searchBound returns a lat-long bounding box that contains all points
// within r nautical miles of p.
func searchBound(p math.Point2LL, r float32) orb.Bound {
	dlat := r / math.NMPerLatitude
	lat := math.Abs(p[1]) + dlat
	dlon := float32(180)
	if lat < 89 {
		dlon = min(180, r/math.NMPerLongitudeAt(math.Point2LL{p[0], lat}))
	}

	b := orb.Bound{
		Min: orb.Point{float64(p[0] - dlon), float64(math.Clamp(p[1]-dlat, -90, 90))},
		Max: orb.Point{float64(p[0] + dlon), float64(math.Clamp(p[1]+dlat, -90, 90))},
	}
	// Boxes that cross the antimeridian are widened to all longitudes.
	if b.Min[0] < -180 || b.Max[0] > 180 {
		b.Min[0], b.Max[0] = -180, 180
	}
	return b
}
