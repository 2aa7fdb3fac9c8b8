// tracks/parser_test.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package tracks

import (
	"encoding/json"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/mmp/tracknet/aviation"
	"github.com/mmp/tracknet/math"
)

func TestParseCoordinate(t *testing.T) {
	for _, c := range []struct {
		tok string
		id  string
		p   math.Point2LL
		ok  bool
	}{
		{"57/20", "N57W020", math.Point2LL{-20, 57}, true},
		{"5730/20", "N5730W02000", math.Point2LL{-20, 57.5}, true},
		{"57/020", "N57W020", math.Point2LL{-20, 57}, true},
		{"41N160E", "N41E160", math.Point2LL{160, 41}, true},
		{"4130N16015W", "N4130W16015", math.Point2LL{-160.25, 41.5}, true},
		{"15S120E", "S15E120", math.Point2LL{120, -15}, true},
		{"DOGAL", "", math.Point2LL{}, false},
		{"95N010E", "", math.Point2LL{}, false},
		{"5760/20", "", math.Point2LL{}, false},
		{"41N16E", "", math.Point2LL{}, false},
	} {
		w, ok := ParseCoordinate(c.tok)
		if ok != c.ok {
			t.Errorf("%s: got ok %v, expected %v", c.tok, ok, c.ok)
			continue
		}
		if !ok {
			continue
		}
		if w.ID != c.id {
			t.Errorf("%s: got id %q, expected %q", c.tok, w.ID, c.id)
		}
		if math.Abs(w.Location[0]-c.p[0]) > 1e-4 || math.Abs(w.Location[1]-c.p[1]) > 1e-4 {
			t.Errorf("%s: got location %v, expected %v", c.tok, w.Location, c.p)
		}
	}
}

const testNATMessage = `(NAT-1/2 TRACKS FLS 310/390 INCLUSIVE
JUL 01/1130Z TO JUL 01/1900Z
PART ONE OF TWO PARTS-
A DOGAL 55/20 55/30 LIMRI
EAST LVLS NIL
WEST LVLS 310 320 330
B 56/20 56/30 56/40
EUR RTS WEST NIL
NAR N497C-
C 57/20
D NOPE 57/30 58/40
A 59/20 59/30
END OF PART ONE OF TWO PARTS)
`

func TestNatParser(t *testing.T) {
	rec := NewStatusRecorder()
	tracks := ParserFor(Nats, nil).Parse(&Message{Type: Nats, Text: testNATMessage}, rec)

	idents := make([]string, len(tracks))
	for i, tr := range tracks {
		idents[i] = tr.Ident
	}
	if !slices.Equal(idents, []string{"A", "B", "D"}) {
		t.Fatalf("got tracks %v, expected [A B D]", idents)
	}

	if !slices.Equal(tracks[0].Waypoints, []string{"DOGAL", "55/20", "55/30", "LIMRI"}) {
		t.Errorf("track A waypoints %v", tracks[0].Waypoints)
	}
	if len(tracks[0].Remarks) != 2 || len(tracks[1].Remarks) != 2 {
		t.Errorf("remarks not attached: %v / %v", tracks[0].Remarks, tracks[1].Remarks)
	}
	if tracks[0].EntryName() != "NATA" {
		t.Errorf("entry name %q", tracks[0].EntryName())
	}

	// C has one waypoint; the second A is a repeat.
	if e := rec.EntriesFor(Nats); len(e) != 2 {
		t.Errorf("expected 2 status entries, got %v", e)
	} else if e[0].Severity != Error || e[1].Severity != Warning {
		t.Errorf("unexpected severities: %v", e)
	}
}

func TestNatParserLongLines(t *testing.T) {
	rec := NewStatusRecorder()
	text := "A DOGAL 55/20 55/30 LIMRI\nWEST LVLS " + strings.Repeat("310 ", 30000) + "\nB 56/20 56/30 56/40\n"
	tracks := ParserFor(Nats, nil).Parse(&Message{Type: Nats, Text: text}, rec)
	if len(tracks) != 2 || tracks[1].Ident != "B" {
		t.Errorf("expected tracks A and B after a long line, got %v", tracks)
	}
	if e := rec.EntriesFor(Nats); len(e) != 0 {
		t.Errorf("unexpected status entries %v", e)
	}

	rec = NewStatusRecorder()
	text = "A DOGAL 55/20 55/30 LIMRI\nWEST LVLS " + strings.Repeat("3", maxMessageBytes) + "\n"
	ParserFor(Nats, nil).Parse(&Message{Type: Nats, Text: text}, rec)
	if !rec.HasErrors(Nats) {
		t.Errorf("unreadable line not reported")
	}
}

const testPACOTMessage = `TRACK 1
FLEX ROUTE : RJAA OTR5 40N160E 42N170E 44N180E 45N170W ONEMM KSFO
RMK: ACFT LDG KSFO
TRACK 2
TRACK 3
FLEX ROUTE : 30N140E 31N150E
`

func TestPacotParser(t *testing.T) {
	airports := aviation.NewAirportManager(aviation.Airport{ICAO: "RJAA"}, aviation.Airport{ICAO: "KSFO"})
	rec := NewStatusRecorder()
	tracks := ParserFor(Pacots, airports).Parse(&Message{Type: Pacots, Text: testPACOTMessage}, rec)

	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %+v", tracks)
	}
	if tracks[0].Ident != "1" || tracks[1].Ident != "3" {
		t.Errorf("got idents %q %q", tracks[0].Ident, tracks[1].Ident)
	}
	exp := []string{"OTR5", "40N160E", "42N170E", "44N180E", "45N170W", "ONEMM"}
	if !slices.Equal(tracks[0].Waypoints, exp) {
		t.Errorf("got waypoints %v, expected %v", tracks[0].Waypoints, exp)
	}
	if len(tracks[0].Remarks) != 1 || tracks[0].Remarks[0] != "ACFT LDG KSFO" {
		t.Errorf("remarks %q", tracks[0].Remarks)
	}

	if e := rec.EntriesFor(Pacots); len(e) != 1 || !strings.Contains(e[0].Message, "PACOT2") {
		t.Errorf("expected an error for PACOT2, got %v", e)
	}
}

const testAUSOTMessage = `TDM TRK MY14 250301000001
2503010100 2503011400
JAMES 15S120E 20S115E PH
RTS/YPPH ...
RMK/AUSOTS GROUP A
TDM TRK BX2
NOT A TIME
TDM TRK ZZ9 250301000002
2503010100 2503011400
`

func TestAusotParser(t *testing.T) {
	rec := NewStatusRecorder()
	tracks := ParserFor(Ausots, nil).Parse(&Message{Type: Ausots, Text: testAUSOTMessage}, rec)

	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %+v", tracks)
	}
	tr := tracks[0]
	if tr.EntryName() != "AUSOTMY14" {
		t.Errorf("entry name %q", tr.EntryName())
	}
	if !slices.Equal(tr.Waypoints, []string{"JAMES", "15S120E", "20S115E", "PH"}) {
		t.Errorf("waypoints %v", tr.Waypoints)
	}
	if !tr.ValidFrom.Equal(time.Date(2025, 3, 1, 1, 0, 0, 0, time.UTC)) ||
		!tr.ValidTo.Equal(time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)) {
		t.Errorf("validity %v - %v", tr.ValidFrom, tr.ValidTo)
	}
	if len(tr.Remarks) != 2 {
		t.Errorf("remarks %q", tr.Remarks)
	}

	// BX2 has a bad validity line and ZZ9 has no route.
	if !rec.HasErrors(Ausots) || len(rec.EntriesFor(Ausots)) != 2 {
		t.Errorf("expected 2 errors, got %v", rec.Entries())
	}
}

func TestStatusRecorder(t *testing.T) {
	var nilRec *StatusRecorder
	nilRec.Errorf(Nats, "ignored")
	if nilRec.Entries() != nil {
		t.Errorf("nil recorder has entries")
	}

	rec := NewStatusRecorder()
	rec.Warnf(Ausots, "a")
	rec.Errorf(Nats, "b %d", 1)
	rec.Errorf(Pacots, "c")

	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	if i, j, k := strings.Index(s, `"NATs"`), strings.Index(s, `"PACOTs"`), strings.Index(s, `"AUSOTS"`); i == -1 || !(i < j && j < k) {
		t.Errorf("types out of order in %s", s)
	}
	if !strings.Contains(s, `"b 1"`) || !strings.Contains(s, `"severity":"warning"`) {
		t.Errorf("unexpected JSON %s", s)
	}

	rec.ClearType(Nats)
	if len(rec.Entries()) != 2 || rec.HasErrors(Nats) {
		t.Errorf("ClearType: %v", rec.Entries())
	}
	rec.Clear()
	if len(rec.Entries()) != 0 {
		t.Errorf("Clear: %v", rec.Entries())
	}
}

func TestTrackTypeText(t *testing.T) {
	for _, tt := range TrackTypes {
		b, err := tt.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back TrackType
		if err := back.UnmarshalText(b); err != nil || back != tt {
			t.Errorf("%s: round trip gave %v, %v", tt, back, err)
		}
	}
	if _, err := ParseTrackType("ETOPS"); err == nil {
		t.Errorf("expected error for unknown type")
	}
	if tt, err := ParseTrackType("pacot"); err != nil || tt != Pacots {
		t.Errorf("ParseTrackType(pacot) = %v, %v", tt, err)
	}
}
