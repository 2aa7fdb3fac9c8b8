// tracks/handler.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package tracks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmp/tracknet/aviation"
	"github.com/mmp/tracknet/log"
)

type HandlerState int

const (
	Idle HandlerState = iota
	Downloading
	Downloaded
	InGraph
)

func (s HandlerState) String() string {
	return [...]string{"idle", "downloading", "downloaded", "in graph"}[s]
}

// TrackHandler manages one track system's message and the edits that
// splice its tracks into the navigation graph. Its methods other than
// the accessors are meant to be called from a single goroutine at a time
// (the coordinator's per-type task queue); the accessors may be called
// from anywhere.
type TrackHandler struct {
	Type       TrackType
	editor     *aviation.WaypointListEditor
	airports   *aviation.AirportManager
	inUse      *TrackInUseCollection
	downloader MessageProvider
	parser     Parser
	searchOpt  aviation.WptSearchOption
	lg         *log.Logger

	mu      sync.Mutex
	state   HandlerState
	rawData *Message
	started bool
	tracks  []Track
}

type HandlerOptions struct {
	// Downloader is used by GetAllTracksAsync; it may be nil, in which
	// case only messages given to GetAllTracks can be used.
	Downloader MessageProvider
	SearchOpt  aviation.WptSearchOption
	Logger     *log.Logger
}

func NewTrackHandler(t TrackType, wl *aviation.WaypointList, airports *aviation.AirportManager,
	inUse *TrackInUseCollection, opts HandlerOptions) *TrackHandler {
	if opts.SearchOpt == (aviation.WptSearchOption{}) {
		opts.SearchOpt = aviation.DefaultWptSearchOption()
	}
	return &TrackHandler{
		Type:       t,
		editor:     wl.GetEditor(),
		airports:   airports,
		inUse:      inUse,
		downloader: opts.Downloader,
		parser:     ParserFor(t, airports),
		searchOpt:  opts.SearchOpt,
		lg:         opts.Logger.With(slog.String("tracks", t.String())),
	}
}

func (h *TrackHandler) State() HandlerState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// RawData returns the most recently obtained message, or nil if there
// isn't one.
func (h *TrackHandler) RawData() *Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rawData
}

// StartedGettingTracks reports whether a download has ever been started,
// whether or not it succeeded.
func (h *TrackHandler) StartedGettingTracks() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.started
}

// InWptList reports whether the handler's tracks are currently in the
// graph.
func (h *TrackHandler) InWptList() bool {
	return h.State() == InGraph
}

// Tracks returns the parsed tracks from the current message.
func (h *TrackHandler) Tracks() []Track {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tracks
}

// GetAllTracks obtains a message from p and parses it. The graph is not
// modified.
func (h *TrackHandler) GetAllTracks(p MessageProvider, rec *StatusRecorder) error {
	msg, err := p.GetMessage(context.Background())
	if err != nil {
		rec.Errorf(h.Type, "unable to get track message: %v", err)
		return err
	}
	return h.setMessage(msg, rec)
}

// GetAllTracksAsync downloads the message with the handler's downloader
// and parses it. If the download fails, RawData is nil afterward.
func (h *TrackHandler) GetAllTracksAsync(ctx context.Context, rec *StatusRecorder) error {
	if h.downloader == nil {
		rec.Errorf(h.Type, "no downloader configured")
		return fmt.Errorf("%s: %w", h.Type, ErrNoDownloader)
	}

	h.mu.Lock()
	h.started = true
	h.rawData, h.tracks = nil, nil
	if h.state != InGraph {
		h.state = Downloading
	}
	h.mu.Unlock()

	h.lg.Info("downloading tracks")
	msg, err := h.downloader.GetMessage(ctx)
	if err != nil {
		h.lg.Warn("track download failed", slog.Any("error", err))
		rec.Errorf(h.Type, "download failed: %v", err)

		h.mu.Lock()
		if h.state == Downloading {
			h.state = Idle
		}
		h.mu.Unlock()
		return err
	}
	return h.setMessage(msg, rec)
}

func (h *TrackHandler) setMessage(msg *Message, rec *StatusRecorder) error {
	if msg == nil {
		return ErrNoMessage
	}
	if msg.Type != h.Type {
		rec.Errorf(h.Type, "message is for %s", msg.Type)
		return fmt.Errorf("%s message given to %s handler: %w", msg.Type, h.Type, ErrTypeMismatch)
	}

	tracks := h.parser.Parse(msg, rec)
	h.lg.Info("parsed track message", slog.Int("tracks", len(tracks)),
		slog.String("origin", msg.Origin.String()))

	h.mu.Lock()
	defer h.mu.Unlock()
	h.rawData, h.tracks = msg, tracks
	if h.state != InGraph {
		h.state = Downloaded
	}
	return nil
}

// AddToWaypointList splices the parsed tracks into the graph. Any tracks
// previously added by the handler are removed first, so calling it twice
// leaves a single copy of each track. Tracks whose waypoints can't be
// found are reported to rec and skipped.
func (h *TrackHandler) AddToWaypointList(rec *StatusRecorder) {
	h.UndoEdit()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rawData == nil {
		return
	}

	var placed []TrackEntry
	for _, tr := range h.tracks {
		entry, err := h.placeTrack(tr)
		if err != nil {
			h.lg.Warn("unable to place track", slog.String("track", tr.EntryName()), slog.Any("error", err))
			rec.Errorf(h.Type, "%s: %v", tr.EntryName(), err)
			continue
		}
		placed = append(placed, entry)
	}

	h.inUse.Set(h.Type, placed)
	h.state = InGraph
	h.lg.Info("added tracks to graph", slog.Int("placed", len(placed)), slog.Int("parsed", len(h.tracks)))
}

// resolved is a track waypoint along with its graph index if it is a
// named waypoint already in the graph; synthesized coordinate waypoints
// have index -1.
type resolved struct {
	wpt   aviation.Waypoint
	index int
}

func (h *TrackHandler) resolve(tr Track) ([]resolved, error) {
	wl := h.editor.List()
	res := make([]resolved, len(tr.Waypoints))

	// Coordinates first; they are used to pick among waypoints that
	// share an identifier.
	for i, tok := range tr.Waypoints {
		if w, ok := ParseCoordinate(tok); ok {
			res[i] = resolved{wpt: w, index: -1}
		} else {
			res[i] = resolved{index: -2}
		}
	}

	reference := func(i int) (aviation.Waypoint, bool) {
		if i > 0 {
			return res[i-1].wpt, true
		}
		for j := i + 1; j < len(res); j++ {
			if res[j].index == -1 {
				return res[j].wpt, true
			}
		}
		return aviation.Waypoint{}, false
	}

	for i, tok := range tr.Waypoints {
		if res[i].index != -2 {
			continue
		}

		var idx int
		var err error
		if ref, ok := reference(i); ok {
			idx, err = wl.FindByIDNear(tok, ref)
		} else if cands := wl.FindAllByID(tok); len(cands) > 0 {
			idx = cands[0]
		} else {
			err = fmt.Errorf("%s: %w", tok, aviation.ErrWaypointNotFound)
		}
		if err != nil {
			return nil, err
		}
		res[i] = resolved{wpt: wl.Waypoint(idx), index: idx}
	}

	return res, nil
}

// placeTrack adds a track's endpoints and edges to the graph. If that
// fails partway, whatever was added for the track is removed again.
func (h *TrackHandler) placeTrack(tr Track) (TrackEntry, error) {
	cp := h.editor.Checkpoint()
	entry, err := h.addTrackEdges(tr)
	if err != nil {
		h.editor.RollBack(cp)
	}
	return entry, err
}

func (h *TrackHandler) addTrackEdges(tr Track) (TrackEntry, error) {
	res, err := h.resolve(tr)
	if err != nil {
		return TrackEntry{}, err
	}
	if len(res) < 2 {
		return TrackEntry{}, errors.New("route has fewer than two waypoints")
	}

	entry := TrackEntry{Type: h.Type, Name: tr.EntryName(), Remarks: tr.Remarks}
	for i, r := range res {
		entry.Waypoints = append(entry.Waypoints, r.wpt)
		if i > 0 {
			entry.Distance += res[i-1].wpt.DistanceTo(r.wpt)
		}
	}

	wl := h.editor.List()
	first, last := res[0], res[len(res)-1]

	// Synthesized endpoints always need connections; named ones only if
	// nothing else reaches them.
	needIn := first.index == -1 || wl.EdgesToCount(first.index) == 0
	needOut := last.index == -1 || wl.EdgesFromCount(last.index) == 0

	var inbound, outbound []aviation.IndexDistance
	if needIn {
		inbound = wl.AirwayConnections(first.wpt.Location, h.searchOpt)
	}
	if needOut {
		outbound = wl.AirwayConnections(last.wpt.Location, h.searchOpt)
	}

	if first.index == -1 {
		first.index = h.editor.AddWaypoint(first.wpt)
	}
	if last.index == -1 {
		last.index = h.editor.AddWaypoint(last.wpt)
	}

	if err := h.editor.AddNeighbor(first.index, last.index,
		aviation.Neighbor{Airway: entry.Name, Distance: entry.Distance}); err != nil {
		return TrackEntry{}, err
	}

	for _, c := range inbound {
		if c.Index == first.index || c.Index == last.index {
			continue
		}
		if err := h.editor.AddNeighbor(c.Index, first.index,
			aviation.Neighbor{Airway: aviation.DirectAirway, Distance: c.Distance}); err != nil {
			return TrackEntry{}, err
		}
	}
	for _, c := range outbound {
		if c.Index == first.index || c.Index == last.index {
			continue
		}
		if err := h.editor.AddNeighbor(last.index, c.Index,
			aviation.Neighbor{Airway: aviation.DirectAirway, Distance: c.Distance}); err != nil {
			return TrackEntry{}, err
		}
	}

	return entry, nil
}

// UndoEdit removes everything the handler added to the graph and its
// entries from the in-use collection. It does nothing if the handler's
// tracks aren't in the graph.
func (h *TrackHandler) UndoEdit() {
	h.editor.Undo()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != InGraph {
		return
	}
	h.inUse.ClearType(h.Type)
	if h.rawData != nil {
		h.state = Downloaded
	} else {
		h.state = Idle
	}
}
