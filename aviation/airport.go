// aviation/airport.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/mmp/tracknet/math"
	"github.com/mmp/tracknet/util"
)

type Airport struct {
	ICAO      string        `json:"icao"`
	Name      string        `json:"name"`
	Location  math.Point2LL `json:"location"`
	Elevation int           `json:"elevation"`
	Runways   []Runway      `json:"runways"`
}

type Runway struct {
	Id        string        `json:"id"`
	Heading   float32       `json:"heading"`
	Threshold math.Point2LL `json:"threshold"`
	Elevation int           `json:"elevation"`
	LengthFt  int           `json:"length_ft,omitempty"`
}

// TidyRunway removes any configuration suffix from a runway designator,
// e.g. "13.ILS" -> "13".
func TidyRunway(r string) string {
	r, _, _ = strings.Cut(r, ".")
	return strings.ToUpper(strings.TrimSpace(r))
}

func (ap Airport) Runway(id string) (Runway, bool) {
	id = TidyRunway(id)
	idx := slices.IndexFunc(ap.Runways, func(r Runway) bool { return TidyRunway(r.Id) == id })
	if idx == -1 {
		return Runway{}, false
	}
	return ap.Runways[idx], true
}

///////////////////////////////////////////////////////////////////////////
// AirportManager

// AirportManager provides airport and runway lookups by ICAO code. It is
// safe for concurrent use.
type AirportManager struct {
	mu       sync.RWMutex
	airports map[string]Airport
}

func NewAirportManager(airports ...Airport) *AirportManager {
	am := &AirportManager{airports: make(map[string]Airport)}
	for _, ap := range airports {
		am.Add(ap)
	}
	return am
}

// Add adds the airport, replacing any existing one with the same code.
func (am *AirportManager) Add(ap Airport) {
	am.mu.Lock()
	defer am.mu.Unlock()

	ap.ICAO = strings.ToUpper(ap.ICAO)
	am.airports[ap.ICAO] = ap
}

func (am *AirportManager) Lookup(icao string) (Airport, bool) {
	am.mu.RLock()
	defer am.mu.RUnlock()

	ap, ok := am.airports[strings.ToUpper(icao)]
	return ap, ok
}

// RwyLatLon returns the threshold location of the given runway.
func (am *AirportManager) RwyLatLon(icao, rwy string) (math.Point2LL, error) {
	ap, ok := am.Lookup(icao)
	if !ok {
		return math.Point2LL{}, fmt.Errorf("%s: %w", icao, ErrUnknownAirport)
	}
	r, ok := ap.Runway(rwy)
	if !ok {
		return math.Point2LL{}, fmt.Errorf("%s/%s: %w", icao, rwy, ErrUnknownRunway)
	}
	return r.Threshold, nil
}

// ICAOs returns the codes of all of the airports, sorted.
func (am *AirportManager) ICAOs() []string {
	am.mu.RLock()
	defer am.mu.RUnlock()

	return util.SortedMapKeys(am.airports)
}

func (am *AirportManager) Count() int {
	am.mu.RLock()
	defer am.mu.RUnlock()
	return len(am.airports)
}
