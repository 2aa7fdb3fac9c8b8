// server/geojson.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"net/http"

	"github.com/mmp/tracknet/tracks"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// TracksFeatureCollection returns a LineString feature for each of the
// given entries, with the track's name, type, length, and remarks as
// properties.
func TracksFeatureCollection(entries []tracks.TrackEntry) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, e := range entries {
		ls := make(orb.LineString, 0, len(e.Waypoints))
		for _, wp := range e.Waypoints {
			ls = append(ls, orb.Point{float64(wp.Location.Longitude()), float64(wp.Location.Latitude())})
		}

		f := geojson.NewFeature(ls)
		f.Properties["name"] = e.Name
		f.Properties["type"] = e.Type.String()
		f.Properties["distance"] = e.Distance
		f.Properties["waypoints"] = len(e.Waypoints)
		if len(e.Remarks) > 0 {
			f.Properties["remarks"] = e.Remarks
		}
		fc.Append(f)
	}
	return fc
}

func (s *Server) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	entries := s.net.TracksInUse().All()
	if q := r.URL.Query().Get("type"); q != "" {
		t, err := tracks.ParseTrackType(q)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		entries = s.net.TracksInUse().Entries(t)
	}

	b, err := TracksFeatureCollection(entries).MarshalJSON()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(b)
}
