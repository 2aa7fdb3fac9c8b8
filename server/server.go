// server/server.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package server provides an HTTP interface to an AirwayNetwork: the
// state of each track system, controls to enable, disable, and download
// them, and GeoJSON of the tracks in the graph.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmp/tracknet/log"
	"github.com/mmp/tracknet/network"
	"github.com/mmp/tracknet/route"
	"github.com/mmp/tracknet/tracks"

	"github.com/go-chi/chi/v5"
)

const maxMessageBytes = 4 << 20

type Server struct {
	net       *network.AirwayNetwork
	lg        *log.Logger
	startTime time.Time
}

// New returns the router for the API.
func New(n *network.AirwayNetwork, lg *log.Logger) http.Handler {
	s := &Server{net: n, lg: lg, startTime: time.Now()}

	r := chi.NewRouter()
	r.Use(s.logRequests, corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/sup", s.statsHandler)

	r.Get("/tracks", s.handleTracks)
	r.Get("/tracks.geojson", s.handleGeoJSON)
	r.Get("/status", s.handleStatus)
	r.Route("/tracks/{type}", func(r chi.Router) {
		r.Get("/", s.handleTrackType)
		r.Get("/status", s.handleTrackStatus)
		r.Post("/enable", s.handleEnable(true))
		r.Post("/disable", s.handleEnable(false))
		r.Post("/download", s.handleDownload)
		r.Put("/message", s.handleMessage)
	})
	r.Post("/route", s.handleRoute)

	return r
}

type trackTypeSummary struct {
	Type          tracks.TrackType `json:"type"`
	State         string           `json:"state"`
	InWptList     bool             `json:"in_wpt_list"`
	MessageOrigin string           `json:"message_origin,omitempty"`
	MessageTime   *time.Time       `json:"message_time,omitempty"`
	TrackCount    int              `json:"track_count"`
	EntryCount    int              `json:"entry_count"`
	Errors        bool             `json:"errors"`
}

func (s *Server) summary(t tracks.TrackType) trackTypeSummary {
	sum := trackTypeSummary{
		Type:       t,
		State:      s.net.HandlerState(t).String(),
		InWptList:  s.net.InWptList(t),
		TrackCount: len(s.net.Tracks(t)),
		EntryCount: s.net.TracksInUse().Count(t),
		Errors:     s.net.Status().HasErrors(t),
	}
	if msg := s.net.TrackMessage(t); msg != nil {
		sum.MessageOrigin = msg.Origin.String()
		if !msg.Time.IsZero() {
			sum.MessageTime = &msg.Time
		}
	}
	return sum
}

func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request) {
	var sums []trackTypeSummary
	for _, t := range tracks.TrackTypes {
		sums = append(sums, s.summary(t))
	}
	writeJSON(w, http.StatusOK, sums)
}

// trackType returns the track type named in the URL, writing an error
// response if it isn't valid.
func trackType(w http.ResponseWriter, r *http.Request) (tracks.TrackType, bool) {
	t, err := tracks.ParseTrackType(chi.URLParam(r, "type"))
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return 0, false
	}
	return t, true
}

type trackTypeDetail struct {
	trackTypeSummary
	Tracks  []tracks.Track      `json:"tracks"`
	Entries []tracks.TrackEntry `json:"entries"`
	Message string              `json:"message,omitempty"`
}

func (s *Server) handleTrackType(w http.ResponseWriter, r *http.Request) {
	t, ok := trackType(w, r)
	if !ok {
		return
	}

	var resp trackTypeDetail
	resp.trackTypeSummary = s.summary(t)
	resp.Tracks = s.net.Tracks(t)
	resp.Entries = s.net.TracksInUse().Entries(t)
	if r.URL.Query().Get("raw") != "" {
		if msg := s.net.TrackMessage(t); msg != nil {
			resp.Message = msg.Text
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.net.Status())
}

func (s *Server) handleTrackStatus(w http.ResponseWriter, r *http.Request) {
	if t, ok := trackType(w, r); ok {
		entries := s.net.Status().EntriesFor(t)
		if entries == nil {
			entries = []tracks.StatusEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// The control endpoints only queue the operation; clients follow its
// progress through /tracks.
func (s *Server) handleEnable(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if t, ok := trackType(w, r); ok {
			s.net.SetTrackEnabled(t, enabled)
			w.WriteHeader(http.StatusAccepted)
		}
	}
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if t, ok := trackType(w, r); ok {
		s.net.DownloadAndEnableTracks(t)
		w.WriteHeader(http.StatusAccepted)
	}
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	t, ok := trackType(w, r)
	if !ok {
		return
	}

	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "")
		} else {
			writeJSONError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	if strings.TrimSpace(string(b)) == "" {
		writeJSONError(w, http.StatusBadRequest, "empty message")
		return
	}

	s.net.SetTrackMessageAndEnable(t, &tracks.Message{
		Type:   t,
		Text:   string(b),
		Origin: tracks.Imported,
		Time:   time.Now(),
	})
	w.WriteHeader(http.StatusAccepted)
}

// handleRoute parses a route against the current graph and returns it
// with the tracks it uses either expanded to their waypoints or collapsed
// to their names.
func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Route  string `json:"route"`
		Expand bool   `json:"expand"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}

	rt, err := route.Parse(req.Route, s.net.WaypointList())
	if err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	tg := route.NewRouteToggler(rt, s.net.TracksInUse())
	if req.Expand {
		tg.Expand()
	} else {
		tg.Collapse()
	}

	writeJSON(w, http.StatusOK, struct {
		Route     string  `json:"route"`
		Distance  float32 `json:"distance"`
		Waypoints int     `json:"waypoints"`
	}{
		Route:     tg.Route().String(),
		Distance:  tg.Route().TotalDistance(),
		Waypoints: len(tg.Route().Nodes),
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.lg.Debug("served request", slog.String("method", r.Method), slog.String("url", r.URL.String()),
			slog.Duration("elapsed", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, PUT")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
