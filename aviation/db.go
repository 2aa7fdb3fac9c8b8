// aviation/db.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mmp/tracknet/log"
	"github.com/mmp/tracknet/util"

	"golang.org/x/sync/errgroup"
)

// NavData is a loaded navigation database: the airway graph, the
// airports, and each airport's STARs.
type NavData struct {
	WptList  *WaypointList
	Airports *AirportManager
	STARs    map[string]*StarCollection // ICAO ->
}

// StarsFor returns the STARs for the given airport; an empty collection
// is returned for airports without any.
func (nd *NavData) StarsFor(icao string) *StarCollection {
	if sc, ok := nd.STARs[strings.ToUpper(icao)]; ok {
		return sc
	}
	return NewStarCollection(icao)
}

// The on-disk JSON representation.
type navDatabase struct {
	Waypoints []Waypoint        `json:"waypoints"`
	Airways   []airwayJSON      `json:"airways"`
	Airports  []Airport         `json:"airports"`
	STARs     map[string][]STAR `json:"stars"`
}

type airwayJSON struct {
	Name  string   `json:"name"`
	Fixes []string `json:"fixes"`
	// One-way airways only have edges in the order the fixes are listed.
	OneWay bool `json:"one_way,omitempty"`
}

// LoadNavData reads a JSON navigation database from the named file, which
// may be zstd-compressed.
func LoadNavData(filename string, lg *log.Logger) (*NavData, error) {
	r, err := util.OpenMaybeCompressed(filename)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	nd, err := ReadNavData(r, lg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return nd, nil
}

// ReadNavData reads a JSON navigation database. Airway fixes that can't be
// found are logged and skipped; malformed JSON or unknown fields are
// errors.
func ReadNavData(r io.Reader, lg *log.Logger) (*NavData, error) {
	contents, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var e util.ErrorLogger
	util.CheckJSON[navDatabase](contents, &e)
	if e.HaveErrors() {
		return nil, e.Err()
	}

	var db navDatabase
	if err := util.UnmarshalJSONBytes(contents, &db); err != nil {
		return nil, err
	}

	nd := &NavData{
		WptList:  NewWaypointList(),
		Airports: NewAirportManager(),
		STARs:    make(map[string]*StarCollection),
	}

	// The graph and the airport data are independent of each other.
	var eg errgroup.Group
	eg.Go(func() error {
		buildAirwayGraph(nd.WptList, db, lg)
		return nil
	})
	eg.Go(func() error {
		for _, ap := range db.Airports {
			nd.Airports.Add(ap)
		}
		for icao, stars := range db.STARs {
			nd.STARs[strings.ToUpper(icao)] = NewStarCollection(icao, stars...)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	lg.Info("loaded navigation data", slog.Int("waypoints", nd.WptList.Count()),
		slog.Int("edges", nd.WptList.EdgeCount()), slog.Int("airports", nd.Airports.Count()),
		slog.Int("star_airports", len(nd.STARs)))

	return nd, nil
}

func buildAirwayGraph(wl *WaypointList, db navDatabase, lg *log.Logger) {
	for _, wp := range db.Waypoints {
		wl.AddWaypoint(wp)
	}

	for _, aw := range db.Airways {
		prev := -1
		for _, fix := range aw.Fixes {
			var idx int
			var err error
			if prev == -1 {
				idx, err = firstAirwayFix(wl, fix, aw.Fixes)
			} else {
				idx, err = wl.FindByIDNear(fix, wl.Waypoint(prev))
			}
			if err != nil {
				lg.Warn("airway fix not found", slog.String("airway", aw.Name), slog.String("fix", fix))
				prev = -1
				continue
			}

			if prev != -1 {
				d := wl.Waypoint(prev).DistanceTo(wl.Waypoint(idx))
				wl.AddNeighbor(prev, idx, Neighbor{Airway: aw.Name, Distance: d})
				if !aw.OneWay {
					wl.AddNeighbor(idx, prev, Neighbor{Airway: aw.Name, Distance: d})
				}
			}
			prev = idx
		}
	}
}

// firstAirwayFix resolves the first fix of an airway; when the
// identifier is ambiguous, the candidate closest to another fix on the
// airway is used.
func firstAirwayFix(wl *WaypointList, fix string, fixes []string) (int, error) {
	cands := wl.FindAllByID(fix)
	if len(cands) == 0 {
		return -1, fmt.Errorf("%s: %w", fix, ErrWaypointNotFound)
	} else if len(cands) == 1 {
		return cands[0], nil
	}
	for _, other := range fixes {
		if other == fix {
			continue
		}
		if oi := wl.FindAllByID(other); len(oi) > 0 {
			return wl.FindByIDNear(fix, wl.Waypoint(oi[0]))
		}
	}
	return cands[0], nil
}
