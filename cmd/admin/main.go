package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"hearthsim.ai/internal/persistence/archive"
	"hearthsim.ai/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	if err := listRuns(*dataDir, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
}

type runListing struct {
	RunID     string `json:"run_id"`
	Snapshots int    `json:"snapshots"`
	LastTick  uint64 `json:"last_tick"`
	Archived  bool   `json:"archived"`
	EndTick   uint64 `json:"end_tick,omitempty"`
}

// listRuns prints one line per run found under <data>/snapshots and
// <data>/archives.
func listRuns(dataDir string, out io.Writer) error {
	runs := map[string]*runListing{}
	get := func(id string) *runListing {
		if r, ok := runs[id]; ok {
			return r
		}
		r := &runListing{RunID: id}
		runs[id] = r
		return r
	}

	snapRoot := filepath.Join(dataDir, "snapshots")
	ents, err := os.ReadDir(snapRoot)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, e := range ents {
		if !e.IsDir() {
			continue
		}
		r := get(e.Name())
		files, _ := os.ReadDir(filepath.Join(snapRoot, e.Name()))
		for _, f := range files {
			tick, err := strconv.ParseUint(strings.TrimSuffix(f.Name(), ".snap.zst"), 10, 64)
			if err != nil || !strings.HasSuffix(f.Name(), ".snap.zst") {
				continue
			}
			r.Snapshots++
			if tick > r.LastTick {
				r.LastTick = tick
			}
		}
	}

	archRoot := filepath.Join(dataDir, "archives")
	ents, err = os.ReadDir(archRoot)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, e := range ents {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "run_") {
			continue
		}
		meta, err := archive.ReadMeta(filepath.Join(archRoot, e.Name()))
		if err != nil {
			continue
		}
		r := get(meta.RunID)
		r.Archived = true
		r.EndTick = meta.EndTick
	}

	ids := make([]string, 0, len(runs))
	for id := range runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		printJSON(out, runs[id])
	}
	return nil
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	agents := fs.Bool("agents", false, "also print every agent")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: admin snapshot [-agents] PATH")
		os.Exit(2)
	}
	if err := inspectSnapshot(fs.Arg(0), *agents, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "snapshot:", err)
		os.Exit(1)
	}
}

func inspectSnapshot(path string, withAgents bool, out io.Writer) error {
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return err
	}
	printJSON(out, struct {
		RunID    string `json:"run_id"`
		Tick     uint64 `json:"tick"`
		Scenario string `json:"scenario"`
		Seed     int64  `json:"seed"`
		Grid     string `json:"grid"`
		Agents   int    `json:"agents"`
		Stations int    `json:"stations"`
		Spots    int    `json:"spots"`
	}{
		RunID:    snap.Header.RunID,
		Tick:     snap.Header.Tick,
		Scenario: snap.Scenario,
		Seed:     snap.Seed,
		Grid:     fmt.Sprintf("%dx%d", snap.Grid.Cols, snap.Grid.Rows),
		Agents:   len(snap.Agents),
		Stations: len(snap.Stations),
		Spots:    len(snap.Spots),
	})
	if withAgents {
		for _, a := range snap.Agents {
			printJSON(out, a)
		}
	}
	return nil
}
