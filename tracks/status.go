// tracks/status.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package tracks

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/iancoleman/orderedmap"
)

type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "warning":
		*s = Warning
	case "error":
		*s = Error
	default:
		return fmt.Errorf("%q: unknown severity", string(b))
	}
	return nil
}

type StatusEntry struct {
	Type     TrackType `json:"type"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	Time     time.Time `json:"time"`
}

func (e StatusEntry) String() string {
	return fmt.Sprintf("%s %s: %s", e.Type, e.Severity, e.Message)
}

// StatusRecorder accumulates problems found while downloading, parsing,
// and placing tracks. It may be used concurrently; a nil *StatusRecorder
// discards everything.
type StatusRecorder struct {
	mu      sync.Mutex
	entries []StatusEntry
}

func NewStatusRecorder() *StatusRecorder {
	return &StatusRecorder{}
}

func (r *StatusRecorder) Add(t TrackType, sev Severity, format string, args ...any) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, StatusEntry{
		Type:     t,
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
		Time:     time.Now(),
	})
}

func (r *StatusRecorder) Warnf(t TrackType, format string, args ...any) {
	r.Add(t, Warning, format, args...)
}

func (r *StatusRecorder) Errorf(t TrackType, format string, args ...any) {
	r.Add(t, Error, format, args...)
}

func (r *StatusRecorder) Clear() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}

// ClearType removes the entries for the given track type, leaving the
// others.
func (r *StatusRecorder) ClearType(t TrackType) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = slices.DeleteFunc(r.entries, func(e StatusEntry) bool { return e.Type == t })
}

// Entries returns a copy of the recorded entries in the order they were
// added.
func (r *StatusRecorder) Entries() []StatusEntry {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.entries)
}

func (r *StatusRecorder) EntriesFor(t TrackType) []StatusEntry {
	var e []StatusEntry
	for _, entry := range r.Entries() {
		if entry.Type == t {
			e = append(e, entry)
		}
	}
	return e
}

func (r *StatusRecorder) HasErrors(t TrackType) bool {
	return slices.ContainsFunc(r.EntriesFor(t), func(e StatusEntry) bool { return e.Severity == Error })
}

// MarshalJSON reports the entries grouped by track type, with the types
// always in the same order.
func (r *StatusRecorder) MarshalJSON() ([]byte, error) {
	om := orderedmap.New()
	for _, t := range TrackTypes {
		e := r.EntriesFor(t)
		if e == nil {
			e = []StatusEntry{}
		}
		om.Set(t.String(), e)
	}
	return json.Marshal(om)
}
