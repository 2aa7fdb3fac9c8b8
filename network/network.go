// network/network.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmp/tracknet/aviation"
	"github.com/mmp/tracknet/log"
	"github.com/mmp/tracknet/tracks"
	"github.com/mmp/tracknet/util"

	"golang.org/x/sync/errgroup"
)

// NetworkUpdateAction is told by AirwayNetwork.Update what should happen
// with each track type once the graph has been replaced.
type NetworkUpdateAction interface {
	// SyncTrackEnabled is called for track types whose message was
	// re-applied to the new graph; the caller should enable or disable
	// the type to match its own settings.
	SyncTrackEnabled(t tracks.TrackType)
	// DownloadAndEnable is called for track types whose download had
	// started but hadn't finished; the caller should download again.
	DownloadAndEnable(t tracks.TrackType)
}

// ActionSequence holds functions run on a track type's queue immediately
// before and after an operation. Either may be nil.
type ActionSequence struct {
	Before func()
	After  func()
}

type Options struct {
	// Downloaders gives the provider used to download each track type's
	// message; types without one can only be given messages directly.
	Downloaders map[tracks.TrackType]tracks.MessageProvider
	SearchOpt   aviation.WptSearchOption
}

// AirwayNetwork coordinates changes to the track systems in the
// navigation graph. Each track type has its own task queue, so that
// operations on a type run one at a time and in order while different
// types proceed independently. All of the exported methods may be called
// concurrently.
type AirwayNetwork struct {
	opts   Options
	lg     *log.Logger
	events *EventStream
	status *tracks.StatusRecorder
	inUse  *tracks.TrackInUseCollection
	queues map[tracks.TrackType]*TaskQueue

	// Tasks hold gate for reading while they run; Update holds it for
	// writing while it replaces the graph and handlers.
	gate sync.RWMutex

	mu             util.LoggingMutex
	wptList        *aviation.WaypointList
	airports       *aviation.AirportManager
	handlers       map[tracks.TrackType]*tracks.TrackHandler
	downloadCtx    context.Context
	cancelDownload context.CancelFunc
}

func NewAirwayNetwork(wl *aviation.WaypointList, airports *aviation.AirportManager, opts Options,
	lg *log.Logger) *AirwayNetwork {
	n := &AirwayNetwork{
		opts:   opts,
		lg:     lg,
		events: NewEventStream(lg),
		status: tracks.NewStatusRecorder(),
		inUse:  tracks.NewTrackInUseCollection(),
		queues: make(map[tracks.TrackType]*TaskQueue),
	}
	for _, t := range tracks.TrackTypes {
		n.queues[t] = NewTaskQueue(t.String(), func(name string, err error) {
			n.events.Post(Event{Type: TaskFailedEvent, TrackType: t, Text: err.Error()})
		}, lg)
	}
	n.downloadCtx, n.cancelDownload = context.WithCancel(context.Background())
	n.setTrackData(wl, airports)
	return n
}

// setTrackData recreates the handlers for a new graph. Callers must hold
// n.mu or otherwise have exclusive access to n.
func (n *AirwayNetwork) setTrackData(wl *aviation.WaypointList, airports *aviation.AirportManager) {
	for _, h := range n.handlers {
		h.UndoEdit()
	}
	n.inUse.Clear()
	n.status.Clear()

	n.wptList, n.airports = wl, airports
	n.handlers = make(map[tracks.TrackType]*tracks.TrackHandler)
	for _, t := range tracks.TrackTypes {
		n.handlers[t] = tracks.NewTrackHandler(t, wl, airports, n.inUse, tracks.HandlerOptions{
			Downloader: n.opts.Downloaders[t],
			SearchOpt:  n.opts.SearchOpt,
			Logger:     n.lg,
		})
	}
}

func (n *AirwayNetwork) handler(t tracks.TrackType) *tracks.TrackHandler {
	n.mu.Lock(n.lg)
	defer n.mu.Unlock(n.lg)
	return n.handlers[t]
}

// enqueue adds a task for the given type that runs while the graph can't
// be replaced, surrounded by the sequence's hooks.
func (n *AirwayNetwork) enqueue(t tracks.TrackType, name string, seq *ActionSequence, task func(h *tracks.TrackHandler) error) {
	q, ok := n.queues[t]
	if !ok {
		n.lg.Errorf("%d: invalid track type", int(t))
		return
	}

	if seq != nil && seq.Before != nil {
		q.Add(name+" (before)", func() error { seq.Before(); return nil })
	}
	q.Add(name, func() error {
		n.gate.RLock()
		defer n.gate.RUnlock()
		return task(n.handler(t))
	})
	if seq != nil && seq.After != nil {
		q.Add(name+" (after)", func() error { seq.After(); return nil })
	}
}

func (n *AirwayNetwork) postTrackEvents(t tracks.TrackType) {
	n.events.Post(Event{Type: TrackMessageUpdatedEvent, TrackType: t})
	n.events.Post(Event{Type: StatusChangedEvent, TrackType: t})
}

// SetTrackEnabled adds the type's current tracks to the graph or removes
// them.
func (n *AirwayNetwork) SetTrackEnabled(t tracks.TrackType, enabled bool) {
	n.SetTrackEnabledSequence(t, enabled, nil)
}

func (n *AirwayNetwork) SetTrackEnabledSequence(t tracks.TrackType, enabled bool, seq *ActionSequence) {
	n.enqueue(t, fmt.Sprintf("set enabled %v", enabled), seq, func(h *tracks.TrackHandler) error {
		if enabled {
			// Problems with the tracks were reported when the message was
			// set; a scratch recorder keeps them from being repeated.
			h.AddToWaypointList(tracks.NewStatusRecorder())
		} else {
			h.UndoEdit()
		}
		n.events.Post(Event{Type: TrackMessageUpdatedEvent, TrackType: t})
		return nil
	})
}

// SetTrackMessageAndEnable replaces the type's tracks with those in msg,
// e.g. from a file the user imported.
func (n *AirwayNetwork) SetTrackMessageAndEnable(t tracks.TrackType, msg *tracks.Message) {
	n.enqueue(t, "set message", nil, func(h *tracks.TrackHandler) error {
		n.status.ClearType(t)
		h.UndoEdit()

		defer n.postTrackEvents(t)
		if err := h.GetAllTracks(tracks.StaticProvider{Message: msg}, n.status); err != nil {
			return err
		}
		h.AddToWaypointList(n.status)
		return nil
	})
}

// DownloadAndEnableTracks downloads the type's current message and
// replaces its tracks with the new ones. A failed download leaves the
// type without tracks; it is reported through the status recorder.
func (n *AirwayNetwork) DownloadAndEnableTracks(t tracks.TrackType) {
	n.DownloadAndEnableTracksSequence(t, nil)
}

func (n *AirwayNetwork) DownloadAndEnableTracksSequence(t tracks.TrackType, seq *ActionSequence) {
	n.enqueue(t, "download", seq, func(h *tracks.TrackHandler) error {
		n.status.ClearType(t)
		h.UndoEdit()

		n.mu.Lock(n.lg)
		ctx := n.downloadCtx
		n.mu.Unlock(n.lg)

		defer n.postTrackEvents(t)
		if err := h.GetAllTracksAsync(ctx, n.status); err != nil {
			if errors.Is(err, tracks.ErrNoDownloader) {
				return err
			}
			// Transient; Update will ask for it to be downloaded again.
			return nil
		}
		h.AddToWaypointList(n.status)
		return nil
	})
}

// DownloadAndEnableAll starts downloads for each of the track types that
// has a downloader.
func (n *AirwayNetwork) DownloadAndEnableAll() {
	for _, t := range tracks.TrackTypes {
		if n.opts.Downloaders[t] != nil {
			n.DownloadAndEnableTracks(t)
		}
	}
}

// Update replaces the navigation graph and airports. It waits for all
// queued work to finish (canceling downloads in progress), then re-applies
// already obtained tracks to the new graph. action is told which types
// were re-applied and which need to be downloaded again.
func (n *AirwayNetwork) Update(ctx context.Context, wl *aviation.WaypointList, airports *aviation.AirportManager,
	action NetworkUpdateAction) error {
	n.mu.Lock(n.lg)
	n.cancelDownload()
	n.mu.Unlock(n.lg)

	if err := n.Wait(ctx); err != nil {
		return err
	}

	n.gate.Lock()

	n.mu.Lock(n.lg)
	type saved struct {
		msg     *tracks.Message
		started bool
	}
	prev := make(map[tracks.TrackType]saved)
	for t, h := range n.handlers {
		prev[t] = saved{msg: h.RawData(), started: h.StartedGettingTracks()}
	}
	n.setTrackData(wl, airports)
	n.downloadCtx, n.cancelDownload = context.WithCancel(context.Background())
	handlers := n.handlers
	n.mu.Unlock(n.lg)

	var reapplied, redownload []tracks.TrackType
	for _, t := range tracks.TrackTypes {
		h, p := handlers[t], prev[t]
		if p.msg != nil {
			if err := h.GetAllTracks(tracks.StaticProvider{Message: p.msg}, n.status); err == nil {
				h.AddToWaypointList(n.status)
			}
			reapplied = append(reapplied, t)
			n.postTrackEvents(t)
		} else if p.started {
			redownload = append(redownload, t)
		}
	}

	n.gate.Unlock()

	n.lg.Info("updated navigation data", slog.Int("waypoints", wl.Count()),
		slog.Any("reapplied", reapplied), slog.Any("redownload", redownload))

	if action != nil {
		for _, t := range reapplied {
			action.SyncTrackEnabled(t)
		}
		for _, t := range redownload {
			action.DownloadAndEnable(t)
		}
	}

	n.events.Post(Event{Type: WaypointListChangedEvent})
	n.events.Post(Event{Type: AirportListChangedEvent})
	return nil
}

// Wait blocks until all of the queues are empty or ctx is done.
func (n *AirwayNetwork) Wait(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, q := range n.queues {
		eg.Go(func() error { return q.Wait(ctx) })
	}
	return eg.Wait()
}

// TracksLoaded reports whether there's a message for the type, whether or
// not its tracks are in the graph.
func (n *AirwayNetwork) TracksLoaded(t tracks.TrackType) bool {
	return n.TrackMessage(t) != nil
}

func (n *AirwayNetwork) TrackMessage(t tracks.TrackType) *tracks.Message {
	if h := n.handler(t); h != nil {
		return h.RawData()
	}
	return nil
}

// InWptList reports whether the type's tracks are currently in the graph.
func (n *AirwayNetwork) InWptList(t tracks.TrackType) bool {
	h := n.handler(t)
	return h != nil && h.InWptList()
}

func (n *AirwayNetwork) HandlerState(t tracks.TrackType) tracks.HandlerState {
	if h := n.handler(t); h != nil {
		return h.State()
	}
	return tracks.Idle
}

func (n *AirwayNetwork) Tracks(t tracks.TrackType) []tracks.Track {
	if h := n.handler(t); h != nil {
		return h.Tracks()
	}
	return nil
}

func (n *AirwayNetwork) WaypointList() *aviation.WaypointList {
	n.mu.Lock(n.lg)
	defer n.mu.Unlock(n.lg)
	return n.wptList
}

func (n *AirwayNetwork) Airports() *aviation.AirportManager {
	n.mu.Lock(n.lg)
	defer n.mu.Unlock(n.lg)
	return n.airports
}

func (n *AirwayNetwork) Status() *tracks.StatusRecorder { return n.status }
func (n *AirwayNetwork) TracksInUse() *tracks.TrackInUseCollection { return n.inUse }
func (n *AirwayNetwork) Events() *EventStream { return n.events }

// Close cancels any downloads in progress and stops the event stream.
func (n *AirwayNetwork) Close() {
	n.mu.Lock(n.lg)
	n.cancelDownload()
	n.mu.Unlock(n.lg)
	n.events.Destroy()
}

///////////////////////////////////////////////////////////////////////////
// Update actions

// EnabledTracksAction is a NetworkUpdateAction that keeps the track types
// reported by Enabled in the graph and downloads interrupted ones again.
type EnabledTracksAction struct {
	Network *AirwayNetwork
	Enabled func(t tracks.TrackType) bool
}

func (a EnabledTracksAction) SyncTrackEnabled(t tracks.TrackType) {
	enabled := a.Enabled == nil || a.Enabled(t)
	a.Network.SetTrackEnabled(t, enabled)
}

func (a EnabledTracksAction) DownloadAndEnable(t tracks.TrackType) {
	a.Network.DownloadAndEnableTracks(t)
}
