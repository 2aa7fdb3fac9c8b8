// tracks/coords.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package tracks

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/mmp/tracknet/aviation"
	"github.com/mmp/tracknet/math"
)

var (
	// 57/20, 5730/20: north latitude, west longitude
	natCoordRE = regexp.MustCompile(`^(\d{2})(\d{2})?/(\d{2,3})$`)
	// 41N160E, 4130N16015E, 15S120E
	hemiCoordRE = regexp.MustCompile(`^(\d{2})(\d{2})?([NS])(\d{3})(\d{2})?([EW])$`)
)

// ParseCoordinate returns a waypoint for a latitude/longitude token in a
// track message. The second return value is false if the token isn't a
// coordinate.
func ParseCoordinate(tok string) (aviation.Waypoint, bool) {
	var latDeg, latMin, lonDeg, lonMin int
	north, east := true, false

	atoi := func(s string) int {
		if s == "" {
			return 0
		}
		v, _ := strconv.Atoi(s)
		return v
	}

	if m := natCoordRE.FindStringSubmatch(tok); m != nil {
		latDeg, latMin, lonDeg = atoi(m[1]), atoi(m[2]), atoi(m[3])
	} else if m := hemiCoordRE.FindStringSubmatch(tok); m != nil {
		latDeg, latMin, lonDeg, lonMin = atoi(m[1]), atoi(m[2]), atoi(m[4]), atoi(m[5])
		north, east = m[3] == "N", m[6] == "E"
	} else {
		return aviation.Waypoint{}, false
	}

	if latDeg > 90 || lonDeg > 180 || latMin >= 60 || lonMin >= 60 {
		return aviation.Waypoint{}, false
	}

	lat := float32(latDeg) + float32(latMin)/60
	lon := float32(lonDeg) + float32(lonMin)/60
	if !north {
		lat = -lat
	}
	if !east {
		lon = -lon
	}

	return aviation.Waypoint{
		ID:       coordinateID(latDeg, latMin, north, lonDeg, lonMin, east),
		Location: math.Point2LL{lon, lat},
	}, true
}

// coordinateID gives the same identifier to a position however it was
// written in the message, e.g. N57W020 for both 57/20 and 57N020W.
func coordinateID(latDeg, latMin int, north bool, lonDeg, lonMin int, east bool) string {
	ns, ew := "N", "W"
	if !north {
		ns = "S"
	}
	if east {
		ew = "E"
	}
	if latMin == 0 && lonMin == 0 {
		return fmt.Sprintf("%s%02d%s%03d", ns, latDeg, ew, lonDeg)
	}
	return fmt.Sprintf("%s%02d%02d%s%03d%02d", ns, latDeg, latMin, ew, lonDeg, lonMin)
}
