package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"hearthsim.ai/internal/persistence/archive"
	"hearthsim.ai/internal/persistence/indexdb"
	persistlog "hearthsim.ai/internal/persistence/log"
	"hearthsim.ai/internal/persistence/snapshot"
	"hearthsim.ai/internal/sim/scenario"
	"hearthsim.ai/internal/sim/tuning"
	"hearthsim.ai/internal/sim/world"
	"hearthsim.ai/internal/transport/observer"
)

func main() {
	var (
		addr         = flag.String("addr", ":8080", "http listen address")
		scenarioPath = flag.String("scenario", "./scenarios/village.json", "scenario file (used only when starting a fresh run)")
		tuningPath   = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		dataDir      = flag.String("data", "./data", "runtime data directory")
		disableDB    = flag.Bool("disable_db", false, "disable the sqlite index")
		verbose      = flag.Bool("verbose", false, "log every agent decision")
		readOnly     = flag.Bool("read_only", false, "reject observer commands")
		archiveRun   = flag.Bool("archive", true, "write and archive a final snapshot on shutdown")

		snapPath   = flag.String("snapshot", "", "path to snapshot to resume from (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", false, "resume from the newest snapshot in the data dir (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)
	runID := uuid.NewString()

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(*dataDir)
	}

	// Tuning is required for a fresh run; resumes fall back to defaults.
	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if snapshotToLoad == "" || !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}

	idx, err := openRuntimeIndex(*dataDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
	}

	var (
		w   *world.World
		run = indexdb.RunInfo{RunID: runID, Tuning: tune}
	)
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		cfg := scenario.WorldConfig(tune, snap.Scenario, snap.Seed, runID, *verbose)
		w, err = world.NewFromSnapshot(cfg, snap, tune.Nav, logger)
		if err != nil {
			logger.Fatalf("resume: %v", err)
		}
		run.Scenario, run.Seed = snap.Scenario, snap.Seed
		run.FromTick, run.ParentRun = w.CurrentTick(), snap.Header.RunID
		logger.Printf("resumed run=%s from snapshot=%s (run=%s tick=%d)", runID, filepath.Base(snapshotToLoad), snap.Header.RunID, snap.Header.Tick)
	} else {
		sc, err := scenario.Load(*scenarioPath)
		if err != nil {
			logger.Fatalf("load scenario: %v", err)
		}
		w, err = scenario.Build(sc, tune, runID, *verbose, logger)
		if err != nil {
			logger.Fatalf("build world: %v", err)
		}
		run.Scenario, run.Seed = sc.Name, sc.Seed
		logger.Printf("started run=%s scenario=%s agents=%d", runID, sc.Name, len(w.Agents()))
	}
	if idx != nil {
		idx.RecordRun(run)
		w.SetIndex(idx)
	}

	ctx, cancel := signalContext()
	defer cancel()

	tickLog := persistlog.NewTickLogger(*dataDir)
	cmdLog := persistlog.NewCommandLogger(*dataDir)
	defer tickLog.Close()
	defer cmdLog.Close()
	w.SetTickLogger(tickLog)
	w.SetCommandLogger(cmdLog)

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	snapDone := make(chan struct{})
	go func() {
		defer close(snapDone)
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path, err := writeSnapshot(*dataDir, snap)
				if err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				if idx != nil {
					idx.RecordSnapshot(path, snap)
				}
			}
		}
	}()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	obsSrv := observer.NewServer(w, log.New(os.Stdout, "[observer] ", log.LstdFlags|log.Lmicroseconds))
	obsSrv.ReadOnly = *readOnly

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, runID, w, idx)
	})
	mux.HandleFunc("/v1/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/v1/ws", obsSrv.WSHandler())
	if envBool("HS_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	cancel()
	<-worldDone
	<-snapDone

	if *archiveRun && w.CurrentTick() > 0 {
		snap := w.ExportSnapshot(w.CurrentTick() - 1)
		path, err := writeSnapshot(*dataDir, snap)
		if err != nil {
			logger.Printf("final snapshot: %v", err)
			return
		}
		if idx != nil {
			idx.RecordSnapshot(path, snap)
		}
		archived, err := archive.ArchiveRunSnapshot(*dataDir, path, snap, "shutdown")
		if err != nil {
			logger.Printf("archive run: %v", err)
			return
		}
		logger.Printf("archived run=%s tick=%d to %s", runID, snap.Header.Tick, archived)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// writeSnapshot stores snap under <data>/snapshots/<run>/<tick>.snap.zst.
func writeSnapshot(dataDir string, snap snapshot.SnapshotV1) (string, error) {
	path := filepath.Join(dataDir, "snapshots", snap.Header.RunID, fmt.Sprintf("%d.snap.zst", snap.Header.Tick))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return "", err
	}
	return path, nil
}

// latestSnapshot returns the most recently written snapshot of any run.
func latestSnapshot(dataDir string) string {
	root := filepath.Join(dataDir, "snapshots")
	runs, err := os.ReadDir(root)
	if err != nil {
		return ""
	}
	var (
		best     string
		bestTime time.Time
		bestTick uint64
	)
	for _, r := range runs {
		if !r.IsDir() {
			continue
		}
		dir := filepath.Join(root, r.Name())
		ents, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range ents {
			name := e.Name()
			if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
				continue
			}
			tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
			if err != nil {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			mt := info.ModTime()
			if best == "" || mt.After(bestTime) || (mt.Equal(bestTime) && tick > bestTick) {
				best, bestTime, bestTick = filepath.Join(dir, name), mt, tick
			}
		}
	}
	return best
}

func writeMetrics(rw io.Writer, runID string, w *world.World, idx *indexdb.SQLiteIndex) {
	// Minimal Prometheus exposition format.
	fmt.Fprintf(rw, "# HELP hearthsim_world_tick Current world tick.\n")
	fmt.Fprintf(rw, "# TYPE hearthsim_world_tick gauge\n")
	fmt.Fprintf(rw, "hearthsim_world_tick{run=%q} %d\n", runID, w.CurrentTick())

	fmt.Fprintf(rw, "# HELP hearthsim_world_agents Number of agents in the run.\n")
	fmt.Fprintf(rw, "# TYPE hearthsim_world_agents gauge\n")
	fmt.Fprintf(rw, "hearthsim_world_agents{run=%q} %d\n", runID, len(w.Agents()))

	fmt.Fprintf(rw, "# HELP hearthsim_world_stations Number of stations in the world.\n")
	fmt.Fprintf(rw, "# TYPE hearthsim_world_stations gauge\n")
	fmt.Fprintf(rw, "hearthsim_world_stations{run=%q} %d\n", runID, len(w.Stations().All()))

	if idx == nil {
		return
	}
	s := idx.Stats()
	fmt.Fprintf(rw, "# HELP hearthsim_index_queue_depth Index writer backlog.\n")
	fmt.Fprintf(rw, "# TYPE hearthsim_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "hearthsim_index_queue_depth{run=%q} %d\n", runID, s.QueueDepth)

	fmt.Fprintf(rw, "# HELP hearthsim_index_dropped_total Index requests dropped because the writer fell behind.\n")
	fmt.Fprintf(rw, "# TYPE hearthsim_index_dropped_total counter\n")
	fmt.Fprintf(rw, "hearthsim_index_dropped_total{run=%q,kind=%q} %d\n", runID, "tick", s.DropTickTotal)
	fmt.Fprintf(rw, "hearthsim_index_dropped_total{run=%q,kind=%q} %d\n", runID, "command", s.DropCommandTotal)
	fmt.Fprintf(rw, "hearthsim_index_dropped_total{run=%q,kind=%q} %d\n", runID, "snapshot", s.DropSnapshotTotal)
	fmt.Fprintf(rw, "hearthsim_index_dropped_total{run=%q,kind=%q} %d\n", runID, "run", s.DropRunTotal)
}
