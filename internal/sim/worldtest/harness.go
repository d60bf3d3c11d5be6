// Package worldtest drives scenario-built worlds through exported APIs only.
package worldtest

import (
	"testing"

	"hearthsim.ai/internal/persistence/snapshot"
	"hearthsim.ai/internal/sim/model"
	"hearthsim.ai/internal/sim/scenario"
	"hearthsim.ai/internal/sim/tuning"
	"hearthsim.ai/internal/sim/world"
)

// Harness is a small black-box test helper:
// - NewHarness builds a world from scenario JSON
// - Step/StepN advance it via StepOnce and keep every tick entry
// - Snapshot/Resume exercise the snapshot path
type Harness struct {
	T      *testing.T
	Tuning tuning.Tuning
	W      *world.World

	Ticks []world.TickLogEntry
}

type recorder struct{ h *Harness }

func (r recorder) WriteTick(e world.TickLogEntry) error {
	r.h.Ticks = append(r.h.Ticks, e)
	return nil
}

func NewHarness(t *testing.T, scenarioJSON, runID string) *Harness {
	t.Helper()
	tu := tuning.Defaults()
	sc, err := scenario.Parse([]byte(scenarioJSON))
	if err != nil {
		t.Fatalf("scenario.Parse: %v", err)
	}
	w, err := scenario.Build(sc, tu, runID, false, nil)
	if err != nil {
		t.Fatalf("scenario.Build: %v", err)
	}
	return NewHarnessWithWorld(t, tu, w)
}

// NewHarnessWithWorld wraps an already-constructed world, e.g. one restored
// from a snapshot.
func NewHarnessWithWorld(t *testing.T, tu tuning.Tuning, w *world.World) *Harness {
	t.Helper()
	if w == nil {
		t.Fatalf("NewHarnessWithWorld: nil world")
	}
	h := &Harness{T: t, Tuning: tu, W: w}
	w.SetTickLogger(recorder{h})
	return h
}

func (h *Harness) Step(cmds ...world.Command) (uint64, string) {
	return h.W.StepOnce(cmds)
}

// StepN advances n ticks and returns their digests.
func (h *Harness) StepN(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		_, d := h.W.StepOnce(nil)
		out = append(out, d)
	}
	return out
}

// Snapshot exports the last executed tick.
func (h *Harness) Snapshot() snapshot.SnapshotV1 {
	h.T.Helper()
	cur := h.W.CurrentTick()
	if cur == 0 {
		return h.W.ExportSnapshot(0)
	}
	return h.W.ExportSnapshot(cur - 1)
}

// Resume restores snap into a fresh world under runID.
func (h *Harness) Resume(snap snapshot.SnapshotV1, runID string) *Harness {
	h.T.Helper()
	cfg := scenario.WorldConfig(h.Tuning, "", 0, runID, false)
	w, err := world.NewFromSnapshot(cfg, snap, h.Tuning.Nav, nil)
	if err != nil {
		h.T.Fatalf("NewFromSnapshot: %v", err)
	}
	return NewHarnessWithWorld(h.T, h.Tuning, w)
}

// Count returns how many recorded events match typ, optionally for one agent.
func (h *Harness) Count(typ, agentID string) int {
	n := 0
	for _, e := range h.Ticks {
		for _, ev := range e.Events {
			if ev.Type == typ && (agentID == "" || ev.Agent == agentID) {
				n++
			}
		}
	}
	return n
}

func (h *Harness) Meter(agentID string, n model.NeedType) float64 {
	h.T.Helper()
	a, ok := h.W.Agent(agentID)
	if !ok {
		h.T.Fatalf("unknown agent id: %q", agentID)
	}
	return a.Meters().Value(n)
}
