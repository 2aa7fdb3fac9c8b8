// tracks/parser.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package tracks

import (
	"bufio"
	"slices"
	"strings"
	"time"

	"github.com/mmp/tracknet/aviation"
)

// Parser extracts the tracks from a track message. Malformed entries are
// reported to the StatusRecorder and skipped; the rest are returned.
type Parser interface {
	Parse(msg *Message, rec *StatusRecorder) []Track
}

// ParserFor returns the parser for the given track type. Airport
// identifiers at the ends of PACOT and AUSOT routes are recognized using
// airports, which may be nil.
func ParserFor(t TrackType, airports *aviation.AirportManager) Parser {
	switch t {
	case Nats:
		return natParser{}
	case Pacots:
		return pacotParser{airports: airports}
	case Ausots:
		return ausotParser{airports: airports}
	default:
		return nil
	}
}

// trackCollector holds the state shared by the parsers: the tracks found
// so far and where problems are reported.
type trackCollector struct {
	t      TrackType
	rec    *StatusRecorder
	tracks []Track
}

func (c *trackCollector) finish(tr *Track) {
	if tr == nil {
		return
	}
	if len(tr.Waypoints) < 2 {
		c.rec.Errorf(c.t, "%s: route has fewer than two waypoints", tr.EntryName())
		return
	}
	if slices.ContainsFunc(c.tracks, func(o Track) bool { return o.Ident == tr.Ident }) {
		c.rec.Warnf(c.t, "%s: repeated track; ignoring later definition", tr.EntryName())
		return
	}
	c.tracks = append(c.tracks, *tr)
}

// scanLines calls f for each non-blank line of text, upper-cased. A line
// that can't be read ends the scan and is reported as an error.
func (c *trackCollector) scanLines(text string, f func(line string, fields []string)) {
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(nil, maxMessageBytes)
	for sc.Scan() {
		line := strings.ToUpper(strings.TrimSpace(sc.Text()))
		if line == "" {
			continue
		}
		f(line, strings.Fields(line))
	}
	if err := sc.Err(); err != nil {
		c.rec.Errorf(c.t, "reading message: %v", err)
	}
}

// routeTokens cleans up the tokens of a route, dropping trailing message
// punctuation.
func routeTokens(fields []string) []string {
	var toks []string
	for _, f := range fields {
		f = strings.TrimRight(f, "-)")
		if f != "" {
			toks = append(toks, f)
		}
	}
	return toks
}

// trimAirports removes airports given at the start or end of a route;
// tracks connect to the airway network, not to airports.
func trimAirports(toks []string, airports *aviation.AirportManager) []string {
	if airports == nil {
		return toks
	}
	isAirport := func(s string) bool {
		if len(s) != 4 {
			return false
		}
		_, ok := airports.Lookup(s)
		return ok
	}
	for len(toks) > 0 && isAirport(toks[0]) {
		toks = toks[1:]
	}
	for len(toks) > 0 && isAirport(toks[len(toks)-1]) {
		toks = toks[:len(toks)-1]
	}
	return toks
}

///////////////////////////////////////////////////////////////////////////
// NATs

type natParser struct{}

var natRemarkPrefixes = []string{"EAST LVLS", "WEST LVLS", "EUR RTS", "NAR"}

func (natParser) Parse(msg *Message, rec *StatusRecorder) []Track {
	c := trackCollector{t: Nats, rec: rec}
	var cur *Track

	c.scanLines(msg.Text, func(line string, fields []string) {
		if slices.ContainsFunc(natRemarkPrefixes, func(p string) bool { return strings.HasPrefix(line, p) }) {
			if cur == nil {
				rec.Warnf(Nats, "%q: remark without a track", line)
			} else {
				cur.Remarks = append(cur.Remarks, line)
			}
			return
		}

		if len(fields[0]) == 1 && fields[0][0] >= 'A' && fields[0][0] <= 'Z' {
			c.finish(cur)
			cur = &Track{Type: Nats, Ident: fields[0], Waypoints: routeTokens(fields[1:])}
		}
		// Anything else is message header or trailer.
	})
	c.finish(cur)

	return c.tracks
}

///////////////////////////////////////////////////////////////////////////
// PACOTs

type pacotParser struct {
	airports *aviation.AirportManager
}

func (p pacotParser) Parse(msg *Message, rec *StatusRecorder) []Track {
	c := trackCollector{t: Pacots, rec: rec}
	var cur *Track
	haveRoute := false

	end := func() {
		if cur != nil && !haveRoute {
			rec.Errorf(Pacots, "%s: no route given", cur.EntryName())
		} else {
			c.finish(cur)
		}
		cur, haveRoute = nil, false
	}

	c.scanLines(msg.Text, func(line string, fields []string) {
		switch {
		case fields[0] == "TRACK":
			end()
			if len(fields) != 2 {
				rec.Errorf(Pacots, "%q: malformed track header", line)
				return
			}
			cur = &Track{Type: Pacots, Ident: fields[1]}

		case strings.HasPrefix(line, "FLEX ROUTE"):
			if cur == nil {
				rec.Warnf(Pacots, "%q: route without a track header", line)
				return
			}
			_, route, ok := strings.Cut(line, ":")
			if !ok {
				rec.Errorf(Pacots, "%s: %q: malformed route", cur.EntryName(), line)
				cur = nil
				return
			}
			cur.Waypoints = trimAirports(routeTokens(strings.Fields(route)), p.airports)
			haveRoute = true

		case strings.HasPrefix(line, "RMK"):
			if cur != nil {
				cur.Remarks = append(cur.Remarks, strings.TrimSpace(strings.TrimLeft(line[3:], ":/")))
			}
		}
	})
	end()

	return c.tracks
}

///////////////////////////////////////////////////////////////////////////
// AUSOTs

type ausotParser struct {
	airports *aviation.AirportManager
}

const ausotTimeFormat = "0601021504"

func (p ausotParser) Parse(msg *Message, rec *StatusRecorder) []Track {
	c := trackCollector{t: Ausots, rec: rec}

	const (
		wantValidity = iota
		wantRoute
		haveRoute
	)
	var cur *Track
	stage := wantValidity

	end := func() {
		if cur != nil {
			if stage != haveRoute {
				rec.Errorf(Ausots, "%s: incomplete track definition", cur.EntryName())
			} else {
				c.finish(cur)
			}
		}
		cur, stage = nil, wantValidity
	}

	c.scanLines(msg.Text, func(line string, fields []string) {
		if len(fields) >= 2 && fields[0] == "TDM" && fields[1] == "TRK" {
			end()
			if len(fields) < 3 {
				rec.Errorf(Ausots, "%q: malformed track header", line)
				return
			}
			cur = &Track{Type: Ausots, Ident: fields[2]}
			return
		}
		if cur == nil {
			return
		}

		switch {
		case strings.HasPrefix(line, "RTS/"):
			cur.Remarks = append(cur.Remarks, line)

		case strings.HasPrefix(line, "RMK/"):
			cur.Remarks = append(cur.Remarks, strings.TrimPrefix(line, "RMK/"))

		case stage == wantValidity:
			var err error
			if len(fields) != 2 {
				rec.Errorf(Ausots, "%s: %q: expected validity times", cur.EntryName(), line)
				cur = nil
			} else if cur.ValidFrom, err = time.Parse(ausotTimeFormat, fields[0]); err != nil {
				rec.Errorf(Ausots, "%s: %q: %v", cur.EntryName(), fields[0], err)
				cur = nil
			} else if cur.ValidTo, err = time.Parse(ausotTimeFormat, fields[1]); err != nil {
				rec.Errorf(Ausots, "%s: %q: %v", cur.EntryName(), fields[1], err)
				cur = nil
			} else {
				stage = wantRoute
			}

		case stage == wantRoute:
			cur.Waypoints = trimAirports(routeTokens(fields), p.airports)
			stage = haveRoute
		}
	})
	end()

	return c.tracks
}
