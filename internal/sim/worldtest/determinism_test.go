package worldtest

import (
	"os"
	"testing"
)

func TestDeterminism_VillageSameDigests(t *testing.T) {
	raw, err := os.ReadFile("../../../scenarios/village.json")
	if err != nil {
		t.Fatalf("read scenario: %v", err)
	}
	a := NewHarness(t, string(raw), "run-a")
	b := NewHarness(t, string(raw), "run-b")

	da := a.StepN(400)
	db := b.StepN(400)
	for i := range da {
		if da[i] != db[i] {
			t.Fatalf("digest mismatch at tick %d: %s vs %s", i, da[i], db[i])
		}
	}
	if a.Ticks[0].RunID != "run-a" || b.Ticks[0].RunID != "run-b" {
		t.Fatalf("run ids: %q %q", a.Ticks[0].RunID, b.Ticks[0].RunID)
	}
}

func TestDeterminism_ResumeFromSameSnapshot(t *testing.T) {
	h := NewHarness(t, campScenario, "run-a")
	h.StepN(150)
	snap := h.Snapshot()
	if snap.Header.Tick != 149 {
		t.Fatalf("snapshot tick=%d want 149", snap.Header.Tick)
	}

	r1 := h.Resume(snap, "run-b")
	r2 := h.Resume(snap, "run-c")
	if r1.W.CurrentTick() != 150 {
		t.Fatalf("resumed tick=%d want 150", r1.W.CurrentTick())
	}
	d1 := r1.StepN(300)
	d2 := r2.StepN(300)
	for i := range d1 {
		if d1[i] != d2[i] {
			t.Fatalf("digest mismatch %d ticks after resume", i)
		}
	}
	if r1.Ticks[0].Tick != 150 {
		t.Fatalf("first resumed tick=%d", r1.Ticks[0].Tick)
	}
}
