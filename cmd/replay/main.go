package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	persistlog "hearthsim.ai/internal/persistence/log"
	"hearthsim.ai/internal/persistence/snapshot"
	"hearthsim.ai/internal/sim/scenario"
	"hearthsim.ai/internal/sim/tuning"
	"hearthsim.ai/internal/sim/world"
)

func main() {
	var (
		scenarioPath = flag.String("scenario", "", "scenario file the run started from")
		snapPath     = flag.String("snapshot", "", "path to .snap.zst the run resumed from")
		tuningPath   = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml the run used")
		eventsDir    = flag.String("events", "./data/events", "events dir containing events-*.jsonl.zst")
		runID        = flag.String("run", "", "run id to verify (default: the first run that starts at the replay start tick)")
		fromTick     = flag.Uint64("from_tick", 0, "start verifying from tick (inclusive, optional)")
		toTick       = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	if (*scenarioPath == "") == (*snapPath == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -scenario or -snapshot is required")
		os.Exit(2)
	}

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}

	var (
		w       *world.World
		exclude string
	)
	if *snapPath != "" {
		snap, err := snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		fmt.Printf("snapshot v%d run=%s tick=%d seed=%d agents=%d stations=%d spots=%d\n",
			snap.Header.Version, snap.Header.RunID, snap.Header.Tick, snap.Seed,
			len(snap.Agents), len(snap.Stations), len(snap.Spots))
		w, err = world.NewFromSnapshot(scenario.WorldConfig(tune, snap.Scenario, snap.Seed, "replay", false), snap, tune.Nav, nil)
		if err != nil {
			fmt.Fprintln(os.Stderr, "resume:", err)
			os.Exit(1)
		}
		// The run that wrote the snapshot also logged the ticks after it.
		exclude = snap.Header.RunID
	} else {
		sc, err := scenario.Load(*scenarioPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load scenario:", err)
			os.Exit(1)
		}
		w, err = scenario.Build(sc, tune, "replay", false, nil)
		if err != nil {
			fmt.Fprintln(os.Stderr, "build world:", err)
			os.Exit(1)
		}
	}

	files, err := persistlog.ListSegments(*eventsDir, "events")
	if err != nil {
		fmt.Fprintln(os.Stderr, "list events:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no events files found in", *eventsDir)
		os.Exit(1)
	}

	res, err := replay(w, files, options{RunID: *runID, ExcludeRun: exclude, VerifyFrom: *fromTick, ToTick: *toTick})
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: run=%s checked=%d ticks (last=%d, files=%s..)\n", res.RunID, res.Checked, res.LastTick, filepath.Base(files[0]))
}
