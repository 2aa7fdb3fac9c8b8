// tracks/inuse.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package tracks

import (
	"sync"

	"github.com/brunoga/deep"
)

// TrackInUseCollection holds the tracks that are currently in the
// navigation graph. Each handler replaces its own type's entries; route
// code reads the collection to expand and collapse tracks in routes.
type TrackInUseCollection struct {
	mu      sync.RWMutex
	entries map[TrackType][]TrackEntry
}

func NewTrackInUseCollection() *TrackInUseCollection {
	return &TrackInUseCollection{entries: make(map[TrackType][]TrackEntry)}
}

func (c *TrackInUseCollection) Set(t TrackType, entries []TrackEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(entries) == 0 {
		delete(c.entries, t)
	} else {
		c.entries[t] = deep.MustCopy(entries)
	}
}

func (c *TrackInUseCollection) ClearType(t TrackType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, t)
}

func (c *TrackInUseCollection) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Entries returns a copy of the entries of the given type; the caller may
// modify it freely.
func (c *TrackInUseCollection) Entries(t TrackType) []TrackEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.entries[t]) == 0 {
		return nil
	}
	return deep.MustCopy(c.entries[t])
}

// All returns a copy of all of the entries, NATs first, then PACOTs, then
// AUSOTs.
func (c *TrackInUseCollection) All() []TrackEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var all []TrackEntry
	for _, t := range TrackTypes {
		all = append(all, c.entries[t]...)
	}
	if all == nil {
		return nil
	}
	return deep.MustCopy(all)
}

func (c *TrackInUseCollection) Count(t TrackType) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries[t])
}
