// procedures/staradder.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package procedures connects terminal procedures to the navigation graph
// so that routes can be computed to a destination runway.
package procedures

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/mmp/tracknet/aviation"
	"github.com/mmp/tracknet/log"
)

// StarAdder adds a destination runway to the graph along with the edges
// that reach it via the airport's STARs. All changes are made through the
// given editor so that they can be undone.
//
// How a STAR is connected depends on its first waypoint:
//   - already reached by other edges: a single edge, labeled with the
//     STAR's name, from the waypoint to the runway.
//   - in the graph but not reached by anything: as above, and nearby
//     airway waypoints are also connected to it with DCT edges.
//   - not in the graph: it is added, then as above.
//
// Without any STARs, nearby airway waypoints are connected directly to
// the runway with DCT edges.
type StarAdder struct {
	ICAO     string
	stars    *aviation.StarCollection
	wptList  *aviation.WaypointList
	editor   *aviation.WaypointListEditor
	airports *aviation.AirportManager
	opt      aviation.WptSearchOption
	lg       *log.Logger
}

func NewStarAdder(icao string, stars *aviation.StarCollection, editor *aviation.WaypointListEditor,
	airports *aviation.AirportManager, opt aviation.WptSearchOption, lg *log.Logger) *StarAdder {
	if opt == (aviation.WptSearchOption{}) {
		opt = aviation.DefaultWptSearchOption()
	}
	return &StarAdder{
		ICAO:     strings.ToUpper(icao),
		stars:    stars,
		wptList:  editor.List(),
		editor:   editor,
		airports: airports,
		opt:      opt,
		lg:       lg,
	}
}

// AddStarsToWptList adds the runway and the given STARs to the graph and
// returns the index of the runway's waypoint. STARs that can't be found
// for the runway are logged and skipped; an error is returned only if the
// runway itself is unknown.
func (s *StarAdder) AddStarsToWptList(rwy string, starsToAdd []string) (int, error) {
	p, err := s.airports.RwyLatLon(s.ICAO, rwy)
	if err != nil {
		return -1, err
	}
	rwyWpt := aviation.Waypoint{ID: s.ICAO + aviation.TidyRunway(rwy), Location: p}

	if len(starsToAdd) == 0 {
		nearby := s.wptList.AirwayConnections(p, s.opt)
		idx := s.editor.AddWaypoint(rwyWpt)
		if err := s.connectDirect(idx, nearby); err != nil {
			s.lg.Warn("unable to connect runway", slog.String("airport", s.ICAO), slog.String("runway", rwy),
				slog.Any("error", err))
		}
		s.lg.Debug("connected runway without STARs", slog.String("runway", rwyWpt.ID),
			slog.Int("connections", s.wptList.EdgesToCount(idx)))
		return idx, nil
	}

	idx := s.editor.AddWaypoint(rwyWpt)
	for _, star := range starsToAdd {
		if err := s.addStar(idx, rwyWpt, rwy, star); err != nil {
			s.lg.Warn("unable to add STAR", slog.String("airport", s.ICAO), slog.String("runway", rwy),
				slog.String("star", star), slog.Any("error", err))
		}
	}
	return idx, nil
}

func (s *StarAdder) addStar(rwyIdx int, rwyWpt aviation.Waypoint, rwy, star string) error {
	info, err := s.stars.GetStarInfo(star, rwy, rwyWpt)
	if err != nil {
		return err
	}

	first := info.FirstWaypoint
	firstIdx, err := s.wptList.FindByWaypoint(first)
	if err != nil {
		firstIdx = s.editor.AddWaypoint(first)
	}

	if s.wptList.EdgesToCount(firstIdx) == 0 {
		if err := s.connectDirect(firstIdx, s.wptList.AirwayConnections(first.Location, s.opt), rwyIdx); err != nil {
			return err
		}
	}

	return s.editor.AddNeighbor(firstIdx, rwyIdx, aviation.Neighbor{Airway: strings.ToUpper(star), Distance: info.TotalDistance})
}

// connectDirect adds a direct edge to the waypoint at index to from each
// of the connections, other than to itself and the skipped indices. It
// stops at the first edge that can't be added.
func (s *StarAdder) connectDirect(to int, conns []aviation.IndexDistance, skip ...int) error {
	for _, c := range conns {
		if c.Index == to || slices.Contains(skip, c.Index) {
			continue
		}
		if err := s.editor.AddNeighbor(c.Index, to,
			aviation.Neighbor{Airway: aviation.DirectAirway, Distance: c.Distance}); err != nil {
			return err
		}
	}
	return nil
}
