// aviation/errors.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import "errors"

var (
	ErrInvalidEdge       = errors.New("Invalid edge")
	ErrInvalidWaypoint   = errors.New("Invalid waypoint index")
	ErrUnknownAirport    = errors.New("Unknown airport")
	ErrUnknownRunway     = errors.New("Unknown runway")
	ErrUnknownSTAR       = errors.New("Unknown STAR")
	ErrWaypointNotFound  = errors.New("Waypoint not found")
)
