// aviation/star.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// STAR is a standard terminal arrival route. The waypoints of the
// procedure for a given runway are an optional enroute transition
// followed by the common segment and then the runway's segment.
type STAR struct {
	Name            string                `json:"name"`
	Transitions     map[string][]Waypoint `json:"transitions,omitempty"`
	Common          []Waypoint            `json:"common,omitempty"`
	RunwayWaypoints map[string][]Waypoint `json:"runway_waypoints,omitempty"`
}

// ServesRunway reports whether the STAR may be flown to the given runway.
// STARs without runway segments serve all runways.
func (s STAR) ServesRunway(rwy string) bool {
	if len(s.RunwayWaypoints) == 0 {
		return true
	}
	_, ok := s.RunwayWaypoints[TidyRunway(rwy)]
	return ok
}

// Waypoints returns the waypoints flown on the STAR to the given runway,
// optionally starting with the named transition.
func (s STAR) Waypoints(transition, rwy string) ([]Waypoint, error) {
	if !s.ServesRunway(rwy) {
		return nil, fmt.Errorf("%s: runway %s: %w", s.Name, rwy, ErrUnknownRunway)
	}

	var wps []Waypoint
	if transition != "" {
		t, ok := s.Transitions[transition]
		if !ok {
			return nil, fmt.Errorf("%s.%s: unknown transition: %w", s.Name, transition, ErrUnknownSTAR)
		}
		wps = append(wps, t...)
	}
	wps = appendSegment(wps, s.Common)
	wps = appendSegment(wps, s.RunwayWaypoints[TidyRunway(rwy)])

	if len(wps) == 0 {
		return nil, fmt.Errorf("%s: no waypoints: %w", s.Name, ErrUnknownSTAR)
	}
	return wps, nil
}

// appendSegment appends seg to wps, dropping a repeated fix where the two
// segments join.
func appendSegment(wps, seg []Waypoint) []Waypoint {
	if len(wps) > 0 && len(seg) > 0 && wps[len(wps)-1].ID == seg[0].ID {
		seg = seg[1:]
	}
	return append(wps, seg...)
}

// StarInfo summarizes a STAR flown to a particular runway.
type StarInfo struct {
	FirstWaypoint Waypoint
	// TotalDistance is the length in nautical miles from the first
	// waypoint through the rest of the procedure to the runway.
	TotalDistance float32
}

///////////////////////////////////////////////////////////////////////////
// StarCollection

// StarCollection holds the STARs for a single airport.
type StarCollection struct {
	ICAO  string
	stars map[string]STAR
	// GetStarInfo results; route computations ask for the same few
	// STARs repeatedly.
	infoCache *expirable.LRU[starInfoKey, StarInfo]
	mu        sync.Mutex
}

type starInfoKey struct {
	star, rwy string
	rwyWpt    Waypoint
}

func NewStarCollection(icao string, stars ...STAR) *StarCollection {
	sc := &StarCollection{
		ICAO:      strings.ToUpper(icao),
		stars:     make(map[string]STAR),
		infoCache: expirable.NewLRU[starInfoKey, StarInfo](64, nil, time.Hour),
	}
	for _, s := range stars {
		sc.stars[strings.ToUpper(s.Name)] = s
	}
	return sc
}

// Lookup returns the STAR with the given name; a transition may be given
// after a period, as in "LENDY8.PARCH", in which case it is returned
// separately.
func (sc *StarCollection) Lookup(name string) (STAR, string, error) {
	name, transition, _ := strings.Cut(strings.ToUpper(name), ".")
	s, ok := sc.stars[name]
	if !ok {
		return STAR{}, "", fmt.Errorf("%s at %s: %w", name, sc.ICAO, ErrUnknownSTAR)
	}
	return s, transition, nil
}

// Names returns the names of the STARs that serve the given runway.
func (sc *StarCollection) Names(rwy string) []string {
	var names []string
	for name, s := range sc.stars {
		if s.ServesRunway(rwy) {
			names = append(names, name)
		}
	}
	return names
}

// GetStarInfo returns the first waypoint of the given STAR to rwy and the
// distance along it to the runway waypoint rwyWpt.
func (sc *StarCollection) GetStarInfo(star, rwy string, rwyWpt Waypoint) (StarInfo, error) {
	key := starInfoKey{star: strings.ToUpper(star), rwy: TidyRunway(rwy), rwyWpt: rwyWpt}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if info, ok := sc.infoCache.Get(key); ok {
		return info, nil
	}

	s, transition, err := sc.Lookup(star)
	if err != nil {
		return StarInfo{}, err
	}
	wps, err := s.Waypoints(transition, rwy)
	if err != nil {
		return StarInfo{}, err
	}

	var dist float32
	for i := 1; i < len(wps); i++ {
		dist += wps[i-1].DistanceTo(wps[i])
	}
	dist += wps[len(wps)-1].DistanceTo(rwyWpt)

	info := StarInfo{FirstWaypoint: wps[0], TotalDistance: dist}
	sc.infoCache.Add(key, info)
	return info, nil
}
