// tracks/types.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package tracks

import (
	"fmt"
	"strings"
	"time"

	"github.com/mmp/tracknet/aviation"
)

// TrackType identifies one of the organized track systems.
type TrackType int

const (
	Nats   TrackType = iota // North Atlantic
	Pacots                  // Pacific
	Ausots                  // Australian
)

// TrackTypes lists all of the track systems in the order in which they
// are always processed.
var TrackTypes = []TrackType{Nats, Pacots, Ausots}

func (t TrackType) String() string {
	switch t {
	case Nats:
		return "NATs"
	case Pacots:
		return "PACOTs"
	case Ausots:
		return "AUSOTS"
	default:
		return fmt.Sprintf("TrackType(%d)", int(t))
	}
}

// EntryPrefix returns the prefix of the names given to tracks of this
// type in routes, e.g. "NAT" for "NATA".
func (t TrackType) EntryPrefix() string {
	switch t {
	case Nats:
		return "NAT"
	case Pacots:
		return "PACOT"
	case Ausots:
		return "AUSOT"
	default:
		return "TRK"
	}
}

func (t TrackType) Valid() bool {
	return t >= Nats && t <= Ausots
}

func ParseTrackType(s string) (TrackType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NATS", "NAT":
		return Nats, nil
	case "PACOTS", "PACOT":
		return Pacots, nil
	case "AUSOTS", "AUSOT":
		return Ausots, nil
	default:
		return 0, fmt.Errorf("%q: %w", s, ErrUnknownTrackType)
	}
}

func (t TrackType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%d: %w", int(t), ErrUnknownTrackType)
	}
	return []byte(t.String()), nil
}

func (t *TrackType) UnmarshalText(b []byte) error {
	tt, err := ParseTrackType(string(b))
	if err == nil {
		*t = tt
	}
	return err
}

// Track is a track as parsed from a message, before its waypoints have
// been looked up.
type Track struct {
	Type  TrackType
	Ident string
	// Route tokens: waypoint identifiers or coordinates.
	Waypoints []string
	Remarks   []string
	// Only AUSOT messages give validity times.
	ValidFrom, ValidTo time.Time
}

// EntryName returns the name used for the track in routes and as the
// airway of its graph edge, e.g. "NATA" or "PACOT11".
func (t Track) EntryName() string {
	return t.Type.EntryPrefix() + t.Ident
}

// TrackEntry is a track whose waypoints have been resolved against the
// navigation graph.
type TrackEntry struct {
	Type      TrackType
	Name      string
	Waypoints []aviation.Waypoint
	// Distance is the length of the whole track in nautical miles.
	Distance float32
	Remarks  []string
}

// LegDistances returns the length of each leg of the track.
func (e TrackEntry) LegDistances() []float32 {
	if len(e.Waypoints) < 2 {
		return nil
	}
	d := make([]float32, len(e.Waypoints)-1)
	for i := range d {
		d[i] = e.Waypoints[i].DistanceTo(e.Waypoints[i+1])
	}
	return d
}
