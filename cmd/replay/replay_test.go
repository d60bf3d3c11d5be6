package main

import (
	"path/filepath"
	"strings"
	"testing"

	persistlog "hearthsim.ai/internal/persistence/log"
	"hearthsim.ai/internal/protocol"
	"hearthsim.ai/internal/sim/scenario"
	"hearthsim.ai/internal/sim/tuning"
	"hearthsim.ai/internal/sim/world"
)

const testScenario = `{
  "name": "camp",
  "seed": 11,
  "grid": {"rows": ["..........", "...##.....", ".........."]},
  "stations": [{"kind": "wood", "pos": [0.5, 0.5]}, {"kind": "pot", "pos": [9.5, 2.5]}],
  "build_spots": [{"kind": "bed", "pos": [6.5, 1.5]}, {"kind": "fire", "pos": [2.5, 2.5]}],
  "agents": [
    {"name": "Ada", "pos": [1.5, 1.5], "primary": "sleep", "meters": {"sleep": 20, "hunger": 70}},
    {"name": "Bo", "pos": [8.5, 0.5], "primary": "hunger", "meters": {"hunger": 30}}
  ]
}`

func buildWorld(t *testing.T, tu tuning.Tuning, runID string) *world.World {
	t.Helper()
	sc, err := scenario.Parse([]byte(testScenario))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	w, err := scenario.Build(sc, tu, runID, false, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return w
}

// record runs 200 ticks of run-a into dir and returns the world exported at
// tick 99.
func record(t *testing.T, dir string) *world.World {
	t.Helper()
	tu := tuning.Defaults()
	w := buildWorld(t, tu, "run-a")
	tl := persistlog.NewTickLogger(dir)
	w.SetTickLogger(tl)

	var resumed *world.World
	for i := 0; i < 200; i++ {
		var cmds []world.Command
		switch i {
		case 50:
			cmds = []world.Command{{ID: "c1", Kind: protocol.CmdSetNeed, AgentID: "A1", Need: "Hunger", Value: 5}}
		case 120:
			cmds = []world.Command{{ID: "c2", Kind: protocol.CmdRemoveStation, StationID: "S2"}}
		}
		w.StepOnce(cmds)
		if i == 99 {
			snap := w.ExportSnapshot(99)
			var err error
			resumed, err = world.NewFromSnapshot(scenario.WorldConfig(tu, "", 0, "run-b", false), snap, tu.Nav, nil)
			if err != nil {
				t.Fatalf("NewFromSnapshot: %v", err)
			}
		}
	}
	if err := tl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return resumed
}

func segments(t *testing.T, dir string) []string {
	t.Helper()
	files, err := persistlog.ListSegments(filepath.Join(dir, "events"), "events")
	if err != nil || len(files) == 0 {
		t.Fatalf("segments=%v err=%v", files, err)
	}
	return files
}

func TestReplay_VerifiesRecordedRun(t *testing.T) {
	dir := t.TempDir()
	record(t, dir)

	res, err := replay(buildWorld(t, tuning.Defaults(), "replay"), segments(t, dir), options{})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if res.RunID != "run-a" || res.Checked != 200 || res.LastTick != 199 {
		t.Fatalf("result=%+v", res)
	}
}

func TestReplay_ToTickAndVerifyFrom(t *testing.T) {
	dir := t.TempDir()
	record(t, dir)

	res, err := replay(buildWorld(t, tuning.Defaults(), "replay"), segments(t, dir), options{VerifyFrom: 100, ToTick: 150})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if res.Checked != 51 || res.LastTick != 150 {
		t.Fatalf("result=%+v", res)
	}
}

func TestReplay_DetectsDivergence(t *testing.T) {
	dir := t.TempDir()
	record(t, dir)

	tu := tuning.Defaults()
	tu.Agent.Speed *= 2
	_, err := replay(buildWorld(t, tu, "replay"), segments(t, dir), options{})
	if err == nil || !strings.Contains(err.Error(), "digest mismatch") {
		t.Fatalf("err=%v want digest mismatch", err)
	}
}

func TestReplay_ResumedRun(t *testing.T) {
	dir := t.TempDir()
	tu := tuning.Defaults()
	resumed := record(t, dir)
	snap := resumed.ExportSnapshot(99)

	// Continue the resumed run as run-b into the same log directory.
	tl := persistlog.NewTickLogger(dir)
	resumed.SetTickLogger(tl)
	for i := 0; i < 100; i++ {
		var cmds []world.Command
		if i == 10 {
			cmds = []world.Command{{ID: "c3", Kind: protocol.CmdSetNeed, AgentID: "A2", Need: "Warmth", Value: 1}}
		}
		resumed.StepOnce(cmds)
	}
	_ = tl.Close()

	snap.Header.RunID = "run-a"
	w, err := world.NewFromSnapshot(scenario.WorldConfig(tu, "", 0, "replay", false), snap, tu.Nav, nil)
	if err != nil {
		t.Fatalf("NewFromSnapshot: %v", err)
	}
	res, err := replay(w, segments(t, dir), options{ExcludeRun: "run-a"})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if res.RunID != "run-b" || res.Checked != 100 || res.LastTick != 199 {
		t.Fatalf("result=%+v", res)
	}
}

func TestReplay_NoMatchingRun(t *testing.T) {
	dir := t.TempDir()
	record(t, dir)
	if _, err := replay(buildWorld(t, tuning.Defaults(), "replay"), segments(t, dir), options{RunID: "nope"}); err == nil {
		t.Fatalf("expected error for unknown run")
	}
}
