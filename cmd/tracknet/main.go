// cmd/tracknet/main.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

// tracknet loads a navigation database, adds the current organized track
// systems to it, and either reports on the result or serves the HTTP API.

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mmp/tracknet/aviation"
	"github.com/mmp/tracknet/log"
	"github.com/mmp/tracknet/network"
	"github.com/mmp/tracknet/procedures"
	"github.com/mmp/tracknet/route"
	"github.com/mmp/tracknet/server"
	"github.com/mmp/tracknet/tracks"
	"github.com/mmp/tracknet/util"

	"github.com/apenwarr/fixconsole"
	"github.com/goforj/godump"
)

var (
	cpuprofile  = flag.String("cpuprofile", "", "write CPU profile to file")
	memprofile  = flag.String("memprofile", "", "write memory profile to this file")
	logLevel    = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir      = flag.String("logdir", "", "log file directory")
	navData     = flag.String("navdata", "", "navigation database (JSON, optionally zstd-compressed)")
	serve       = flag.Bool("serve", false, "serve the HTTP API until interrupted")
	port        = flag.Int("port", 0, "port for the HTTP API (default from config)")
	download    = flag.Bool("download", false, "download the enabled track types that have a provider")
	dump        = flag.Bool("dump", false, "dump the tracks added to the graph")
	routeString = flag.String("route", "", "route to parse and expand, e.g. \"DOGAL NATA LIMRI\"")
	arrival     = flag.String("arrival", "", "destination runway to connect, e.g. \"KJFK/04R\"")
	stars       = flag.String("stars", "", "comma-separated STARs to use with -arrival")
	writeConfig = flag.Bool("writeconfig", false, "write the configuration file, creating it if necessary")
	timeout     = flag.Duration("timeout", 2*time.Minute, "maximum time to wait for downloads")
)

// Track messages to import, given as TYPE=filename.
var imports = map[tracks.TrackType]string{}

func init() {
	flag.Func("import", "import a track message file, given as TYPE=filename (e.g. NATS=nat.txt)",
		func(s string) error {
			ts, fn, ok := strings.Cut(s, "=")
			if !ok {
				return fmt.Errorf("%q: expected TYPE=filename", s)
			}
			t, err := tracks.ParseTrackType(ts)
			if err != nil {
				return err
			}
			imports[t] = fn
			return nil
		})
}

func main() {
	flag.Parse()

	if err := fixconsole.FixConsoleIfNeeded(); err != nil {
		fmt.Printf("FixConsole: %v\n", err)
	}

	lg := log.New(*serve, *logLevel, *logDir)
	defer lg.CatchAndReportCrash()

	profiler, err := util.CreateProfiler(*cpuprofile, *memprofile)
	if err != nil {
		lg.Errorf("%v", err)
	}
	defer profiler.Cleanup()

	config, err := LoadOrMakeDefaultConfig(lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		lg.Errorf("Error loading config: %v", err)
	}
	if *navData != "" {
		config.NavDataFile = *navData
	}
	if *port != 0 {
		config.ServerPort = *port
	}
	if *writeConfig {
		if err := config.Save(lg); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}

	if config.NavDataFile == "" {
		fmt.Fprintln(os.Stderr, "No navigation database specified; use -navdata or set \"nav_data\" in the config file")
		os.Exit(1)
	}

	go func() {
		if err := util.CacheCullObjects(config.CacheMaxBytes); err != nil {
			lg.Warnf("culling cache: %v", err)
		}
	}()

	nd, err := aviation.LoadNavData(config.NavDataFile, lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	n := network.NewAirwayNetwork(nd.WptList, nd.Airports, network.Options{
		Downloaders: config.Downloaders(lg),
		SearchOpt:   config.SearchOpt,
	}, lg)
	defer n.Close()

	for _, t := range tracks.TrackTypes {
		fn, ok := imports[t]
		if !ok {
			continue
		}
		msg, err := tracks.FileProvider{Type: t, Filename: fn}.GetMessage(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		n.SetTrackMessageAndEnable(t, msg)
		if !config.Enabled[t] {
			n.SetTrackEnabled(t, false)
		}
	}
	if *download {
		for _, t := range tracks.TrackTypes {
			if _, imported := imports[t]; !imported && config.Enabled[t] && config.Providers != nil {
				if _, ok := config.Providers[t]; ok {
					n.DownloadAndEnableTracks(t)
				}
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	err = n.Wait(ctx)
	cancel()
	if err != nil {
		lg.Warnf("waiting for tracks: %v", err)
	}

	printSummary(n)

	if *dump {
		godump.Dump(n.TracksInUse().All())
		godump.Dump(n.Status().Entries())
	}

	if *arrival != "" {
		if err := connectArrival(nd, config, lg); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", *arrival, err)
			os.Exit(1)
		}
	}

	if *routeString != "" {
		r, err := route.Parse(*routeString, n.WaypointList())
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", *routeString, err)
			os.Exit(1)
		}
		tg := route.NewRouteToggler(r, n.TracksInUse())
		tg.Expand()
		fmt.Printf("%s\n    %.0f nm\n", tg.Route(), tg.Route().TotalDistance())
	}

	if *serve {
		runServer(n, config, lg)
	}
}

func printSummary(n *network.AirwayNetwork) {
	for _, t := range tracks.TrackTypes {
		fmt.Printf("%-7s %-11s %d tracks, %d in graph\n", t, n.HandlerState(t), len(n.Tracks(t)),
			n.TracksInUse().Count(t))
		for _, e := range n.Status().EntriesFor(t) {
			fmt.Printf("    %s: %s\n", e.Severity, e.Message)
		}
	}
}

// connectArrival adds the -arrival runway and its STARs to the graph and
// reports how it was connected.
func connectArrival(nd *aviation.NavData, config *Config, lg *log.Logger) error {
	icao, rwy, ok := strings.Cut(*arrival, "/")
	if !ok {
		return fmt.Errorf("expected ICAO/runway")
	}
	var starNames []string
	if *stars != "" {
		starNames = strings.Split(strings.ToUpper(*stars), ",")
	}

	sa := procedures.NewStarAdder(icao, nd.StarsFor(icao), nd.WptList.GetEditor(), nd.Airports, config.SearchOpt, lg)
	idx, err := sa.AddStarsToWptList(rwy, starNames)
	if err != nil {
		return err
	}

	fmt.Printf("%s:\n", nd.WptList.Waypoint(idx).ID)
	for _, e := range nd.WptList.EdgesTo(idx) {
		fmt.Printf("    %-8s %-8s %.1f nm\n", nd.WptList.Waypoint(e.From).ID, e.Airway, e.Distance)
	}
	return nil
}

// runServer serves the HTTP API until the process is interrupted.
// SIGHUP reloads the navigation database.
func runServer(n *network.AirwayNetwork, config *Config, lg *log.Logger) {
	if _, err := server.Launch(n, config.ServerPort, lg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	sub := n.Events().Subscribe()
	defer sub.Unsubscribe()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case s := <-sig:
			if s != syscall.SIGHUP {
				lg.Info("exiting", slog.String("signal", s.String()))
				return
			}
			reloadNavData(n, config, lg)

		case <-ticker.C:
			for _, ev := range sub.Get() {
				if ev.Type == network.TaskFailedEvent {
					lg.Warn("track task failed", slog.Any("event", ev))
				} else {
					lg.Debug("event", slog.Any("event", ev))
				}
			}
		}
	}
}

func reloadNavData(n *network.AirwayNetwork, config *Config, lg *log.Logger) {
	nd, err := aviation.LoadNavData(config.NavDataFile, lg)
	if err != nil {
		lg.Errorf("reloading navigation data: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	action := network.EnabledTracksAction{
		Network: n,
		Enabled: func(t tracks.TrackType) bool { return config.Enabled[t] },
	}
	if err := n.Update(ctx, nd.WptList, nd.Airports, action); err != nil {
		lg.Errorf("updating navigation data: %v", err)
	}
}
