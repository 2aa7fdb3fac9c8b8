// server/http.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"runtime"
	"strconv"
	"text/template"
	"time"

	"github.com/mmp/tracknet/log"
	"github.com/mmp/tracknet/network"
	"github.com/mmp/tracknet/tracks"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/cpu"
)

const DefaultPort = 8760

type serverStats struct {
	Uptime           time.Duration
	AllocMemory      uint64
	TotalAllocMemory uint64
	SysMemory        uint64
	NumGC            uint32
	NumGoRoutines    int
	CPUUsage         int
	Waypoints        int
	Edges            int

	TrackStatus []trackTypeSummary
}

// Launch starts the HTTP server on the first free port at or after port.
// It returns the port used.
func Launch(n *network.AirwayNetwork, port int, lg *log.Logger) (int, error) {
	r := chi.NewRouter()
	r.Mount("/", New(n, lg))

	r.HandleFunc("/debug/pprof/*", pprof.Index)
	r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	r.HandleFunc("/debug/pprof/profile", pprof.Profile)
	r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	r.HandleFunc("/debug/pprof/trace", pprof.Trace)

	var listener net.Listener
	var err error
	for i := range 10 {
		if listener, err = net.Listen("tcp", ":"+strconv.Itoa(port+i)); err == nil {
			port += i
			break
		}
	}
	if err != nil {
		return 0, err
	}

	fmt.Printf("Launching HTTP server on port %d\n", port)
	lg.Info("launched HTTP server", slog.Int("port", port))

	go func() {
		if err := http.Serve(listener, r); err != nil {
			lg.Errorf("HTTP server error: %v", err)
		}
	}()
	return port, nil
}

var statsTemplate = template.Must(template.New("").Parse(`
<!DOCTYPE html>
<html>
<head>
<title>tracknet status</title>
</head>
<style>
table {
  border-collapse: collapse;
  width: 100%;
}

th, td {
  border: 1px solid #dddddd;
  padding: 8px;
  text-align: left;
}

tr:nth-child(even) {
  background-color: #f2f2f2;
}
</style>
<body>
<h1>Server Status</h1>
<ul>
  <li>Uptime: {{.Uptime}}</li>
  <li>CPU usage: {{.CPUUsage}}%</li>
  <li>Allocated memory: {{.AllocMemory}} MB</li>
  <li>Total allocated memory: {{.TotalAllocMemory}} MB</li>
  <li>System memory: {{.SysMemory}} MB</li>
  <li>Garbage collection passes: {{.NumGC}}</li>
  <li>Running goroutines: {{.NumGoRoutines}}</li>
  <li>Navigation graph: {{.Waypoints}} waypoints, {{.Edges}} edges</li>
</ul>

<h1>Tracks</h1>
<table>
  <tr>
  <th>Type</th>
  <th>State</th>
  <th>Message</th>
  <th>Tracks</th>
  <th>In Graph</th>
  <th>Errors</th>
  </tr>

{{range .TrackStatus}}
  <tr>
  <td>{{.Type}}</td>
  <td>{{.State}}</td>
  <td>{{.MessageOrigin}}</td>
  <td>{{.TrackCount}}</td>
  <td>{{.EntryCount}}</td>
  <td>{{.Errors}}</td>
  </tr>
{{end}}
</table>

</body>
</html>
`))

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := serverStats{
		Uptime:           time.Since(s.startTime).Round(time.Second),
		AllocMemory:      m.Alloc / (1024 * 1024),
		TotalAllocMemory: m.TotalAlloc / (1024 * 1024),
		SysMemory:        m.Sys / (1024 * 1024),
		NumGC:            m.NumGC,
		NumGoRoutines:    runtime.NumGoroutine(),
	}
	// A short sample; the full second the CPU package defaults to makes
	// the page sluggish.
	if usage, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(usage) > 0 {
		stats.CPUUsage = int(usage[0] + 0.5)
	}
	if wl := s.net.WaypointList(); wl != nil {
		stats.Waypoints, stats.Edges = wl.Count(), wl.EdgeCount()
	}
	for _, t := range tracks.TrackTypes {
		stats.TrackStatus = append(stats.TrackStatus, s.summary(t))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := statsTemplate.Execute(w, stats); err != nil {
		s.lg.Warnf("stats template: %v", err)
	}
}
