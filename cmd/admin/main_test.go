package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hearthsim.ai/internal/persistence/archive"
	"hearthsim.ai/internal/persistence/indexdb"
	"hearthsim.ai/internal/persistence/snapshot"
	"hearthsim.ai/internal/sim/agent"
	"hearthsim.ai/internal/sim/world"
)

func seedIndex(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	idx.RecordRun(indexdb.RunInfo{RunID: "r1", Scenario: "village", Seed: 7})
	_ = idx.WriteTick(world.TickLogEntry{
		Tick:   5,
		RunID:  "r1",
		Digest: "d5",
		Events: []agent.Event{
			{Agent: "A1", Type: agent.EventPlan, Need: "Sleep", Plan: "Use(Bed)", Cost: 4},
			{Agent: "A2", Type: agent.EventSwitch, Need: "Hunger"},
		},
	})
	_ = idx.WriteCommand(world.CommandEntry{Tick: 5, RunID: "r1", Cmd: world.Command{ID: "c1", Kind: "SET_NEED", AgentID: "A1"}, OK: true})
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

func decodeLines(t *testing.T, out string) []map[string]any {
	t.Helper()
	var rows []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad json line %q: %v", line, err)
		}
		rows = append(rows, m)
	}
	return rows
}

func TestQueryIndex(t *testing.T) {
	db, err := sql.Open("sqlite", seedIndex(t))
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	var buf bytes.Buffer
	if err := queryIndex(db, "runs", dbFilter{}, &buf); err != nil {
		t.Fatalf("runs: %v", err)
	}
	rows := decodeLines(t, buf.String())
	if len(rows) != 1 || rows[0]["run_id"] != "r1" || rows[0]["scenario"] != "village" {
		t.Fatalf("runs: %v", rows)
	}

	buf.Reset()
	if err := queryIndex(db, "events", dbFilter{Run: "r1", Agent: "A1"}, &buf); err != nil {
		t.Fatalf("events: %v", err)
	}
	rows = decodeLines(t, buf.String())
	if len(rows) != 1 || rows[0]["plan"] != "Use(Bed)" || rows[0]["type"] != "PLAN" {
		t.Fatalf("events by agent: %v", rows)
	}

	buf.Reset()
	if err := queryIndex(db, "events", dbFilter{Type: "SWITCH"}, &buf); err != nil {
		t.Fatalf("events: %v", err)
	}
	rows = decodeLines(t, buf.String())
	if len(rows) != 1 || rows[0]["agent"] != "A2" {
		t.Fatalf("events by type: %v", rows)
	}

	buf.Reset()
	if err := queryIndex(db, "commands", dbFilter{Run: "r1"}, &buf); err != nil {
		t.Fatalf("commands: %v", err)
	}
	rows = decodeLines(t, buf.String())
	if len(rows) != 1 || rows[0]["kind"] != "SET_NEED" || rows[0]["ok"] != true {
		t.Fatalf("commands: %v", rows)
	}

	buf.Reset()
	if err := queryIndex(db, "snapshots", dbFilter{}, &buf); err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "" {
		t.Fatalf("expected no snapshots, got %q", buf.String())
	}

	if err := queryIndex(db, "seasons", dbFilter{}, &buf); err == nil {
		t.Fatalf("expected unknown query error")
	}
}

func TestListRunsAndInspectSnapshot(t *testing.T) {
	dataDir := t.TempDir()
	snap := snapshot.SnapshotV1{
		Header:   snapshot.Header{Version: snapshot.Version, RunID: "r1", Tick: 40},
		Scenario: "camp",
		Seed:     3,
		Grid:     snapshot.GridV1{Cols: 4, Rows: 2, CellSize: 1},
		Agents:   []snapshot.AgentV1{{ID: "A1", Name: "Ada"}},
	}
	dir := filepath.Join(dataDir, "snapshots", "r1")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"20.snap.zst", "40.snap.zst"} {
		if err := snapshot.WriteSnapshot(filepath.Join(dir, name), snap); err != nil {
			t.Fatalf("WriteSnapshot: %v", err)
		}
	}
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)
	if _, err := archive.ArchiveRunSnapshot(dataDir, filepath.Join(dir, "40.snap.zst"), snap, "shutdown"); err != nil {
		t.Fatalf("ArchiveRunSnapshot: %v", err)
	}

	var buf bytes.Buffer
	if err := listRuns(dataDir, &buf); err != nil {
		t.Fatalf("listRuns: %v", err)
	}
	rows := decodeLines(t, buf.String())
	if len(rows) != 1 {
		t.Fatalf("runs: %v", rows)
	}
	r := rows[0]
	if r["run_id"] != "r1" || r["snapshots"] != float64(2) || r["last_tick"] != float64(40) || r["archived"] != true || r["end_tick"] != float64(40) {
		t.Fatalf("listing: %v", r)
	}

	buf.Reset()
	if err := inspectSnapshot(filepath.Join(dir, "40.snap.zst"), true, &buf); err != nil {
		t.Fatalf("inspectSnapshot: %v", err)
	}
	rows = decodeLines(t, buf.String())
	if len(rows) != 2 || rows[0]["grid"] != "4x2" || rows[0]["agents"] != float64(1) || rows[1]["name"] != "Ada" {
		t.Fatalf("inspect: %v", rows)
	}
}

func TestListRuns_EmptyDataDir(t *testing.T) {
	var buf bytes.Buffer
	if err := listRuns(filepath.Join(t.TempDir(), "missing"), &buf); err != nil {
		t.Fatalf("listRuns: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}
