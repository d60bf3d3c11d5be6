package log

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"hearthsim.ai/internal/sim/agent"
	"hearthsim.ai/internal/sim/world"
)

func TestJSONLZstdWriter_SegmentsAndScan(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "events", 10)
	for tick := uint64(0); tick < 25; tick++ {
		e := world.TickLogEntry{Tick: tick, RunID: "r1", Digest: "d"}
		if tick == 12 {
			e.Events = []agent.Event{{Agent: "A1", Type: agent.EventPlan, Plan: "ChopWood"}}
			e.Commands = []world.Command{{ID: "c1", Kind: "SET_NEED", AgentID: "A1", Need: "sleep", Value: 5}}
		}
		if err := w.Write(tick, e); err != nil {
			t.Fatalf("Write(%d): %v", tick, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	segs, err := ListSegments(dir, "events")
	if err != nil {
		t.Fatalf("ListSegments: %v", err)
	}
	if len(segs) != 3 {
		t.Fatalf("segments=%v want 3", segs)
	}
	if !strings.HasSuffix(segs[1], "events-000000000010.jsonl.zst") {
		t.Fatalf("unexpected segment order: %v", segs)
	}

	var ticks []uint64
	var got world.TickLogEntry
	for _, p := range segs {
		err := ScanTicks(p, func(e world.TickLogEntry) (bool, error) {
			ticks = append(ticks, e.Tick)
			if e.Tick == 12 {
				got = e
			}
			return true, nil
		})
		if err != nil {
			t.Fatalf("ScanTicks(%s): %v", filepath.Base(p), err)
		}
	}
	if len(ticks) != 25 {
		t.Fatalf("ticks=%d want 25", len(ticks))
	}
	for i, tk := range ticks {
		if tk != uint64(i) {
			t.Fatalf("ticks[%d]=%d", i, tk)
		}
	}
	if got.RunID != "r1" || len(got.Events) != 1 || got.Events[0].Plan != "ChopWood" {
		t.Fatalf("tick 12 events lost: %+v", got)
	}
	if len(got.Commands) != 1 || got.Commands[0].Value != 5 || got.Commands[0].AgentID != "A1" {
		t.Fatalf("tick 12 commands lost: %+v", got.Commands)
	}
}

func TestScanTicks_StopsEarly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "events", 100)
	for tick := uint64(0); tick < 5; tick++ {
		if err := w.Write(tick, world.TickLogEntry{Tick: tick}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	_ = w.Close()
	segs, _ := ListSegments(dir, "events")
	if len(segs) != 1 {
		t.Fatalf("segments=%v", segs)
	}

	n := 0
	if err := ScanTicks(segs[0], func(e world.TickLogEntry) (bool, error) {
		n++
		return e.Tick < 2, nil
	}); err != nil {
		t.Fatalf("ScanTicks: %v", err)
	}
	if n != 3 {
		t.Fatalf("visited %d entries, want 3", n)
	}

	boom := errors.New("boom")
	if err := ScanTicks(segs[0], func(world.TickLogEntry) (bool, error) { return false, boom }); !errors.Is(err, boom) {
		t.Fatalf("err=%v want boom", err)
	}
}

func TestTickAndCommandLoggers(t *testing.T) {
	dir := t.TempDir()
	tl := NewTickLogger(dir)
	cl := NewCommandLogger(dir)
	if err := tl.WriteTick(world.TickLogEntry{Tick: 7, RunID: "r"}); err != nil {
		t.Fatalf("WriteTick: %v", err)
	}
	if err := cl.WriteCommand(world.CommandEntry{Tick: 7, RunID: "r", OK: false, Code: "E_NOT_FOUND"}); err != nil {
		t.Fatalf("WriteCommand: %v", err)
	}
	_ = tl.Close()
	_ = cl.Close()

	if segs, err := ListSegments(filepath.Join(dir, "events"), "events"); err != nil || len(segs) != 1 {
		t.Fatalf("events segments=%v err=%v", segs, err)
	}
	if segs, err := ListSegments(filepath.Join(dir, "audit"), "commands"); err != nil || len(segs) != 1 {
		t.Fatalf("audit segments=%v err=%v", segs, err)
	}
	// Other prefixes in the same directory are ignored.
	if segs, _ := ListSegments(filepath.Join(dir, "audit"), "events"); len(segs) != 0 {
		t.Fatalf("unexpected segments: %v", segs)
	}
}
