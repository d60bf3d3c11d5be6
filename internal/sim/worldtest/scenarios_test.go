package worldtest

import (
	"strings"
	"testing"

	"hearthsim.ai/internal/protocol"
	"hearthsim.ai/internal/sim/agent"
	"hearthsim.ai/internal/sim/model"
	"hearthsim.ai/internal/sim/world"
)

const campScenario = `{
  "name": "camp",
  "seed": 5,
  "grid": {"rows": ["............", "....#.......", "....#.......", "............"]},
  "stations": [{"kind": "wood", "pos": [2.5, 0.5]}, {"kind": "pot", "pos": [10.5, 3.5]}],
  "build_spots": [{"kind": "bed", "pos": [7.5, 2.5]}, {"kind": "fire", "pos": [8.5, 0.5]}],
  "agents": [
    {"name": "Ada", "pos": [0.5, 3.5], "primary": "sleep", "meters": {"sleep": 15, "hunger": 70, "warmth": 45}},
    {"name": "Bo", "pos": [11.5, 0.5], "primary": "hunger", "meters": {"sleep": 90, "hunger": 25, "warmth": 60}}
  ]
}`

func TestCamp_BedBuiltOncePerSpot(t *testing.T) {
	h := NewHarness(t, campScenario, "run-camp")
	h.StepN(1200)

	beds := h.W.Stations().OfKind(model.StationBed)
	if len(beds) != 1 {
		t.Fatalf("beds=%d want 1", len(beds))
	}
	if beds[0].SpotID == "" {
		t.Fatalf("bed not tied to a spot: %+v", beds[0])
	}
	built := 0
	for _, e := range h.Ticks {
		for _, ev := range e.Events {
			if ev.Type == agent.EventBuilt && strings.Contains(ev.Detail, " "+model.StationBed.String()+" ") {
				built++
			}
		}
	}
	if built > 1 {
		t.Fatalf("bed BUILT events=%d", built)
	}
	if h.Count(agent.EventPlan, "A1") == 0 {
		t.Fatalf("Ada never planned")
	}
}

func TestCamp_MetersStayInRange(t *testing.T) {
	h := NewHarness(t, campScenario, "run-camp")
	max := h.Tuning.Needs.Max
	for i := 0; i < 800; i++ {
		h.Step()
		for _, id := range []string{"A1", "A2"} {
			for _, n := range model.AllNeeds() {
				if v := h.Meter(id, n); v < 0 || v > max {
					t.Fatalf("tick %d: %s %v=%v out of [0,%v]", i, id, n, v, max)
				}
			}
		}
	}
}

func TestCamp_RemovedPotForcesReplan(t *testing.T) {
	h := NewHarness(t, campScenario, "run-camp")
	h.Step()
	h.Step(world.Command{Kind: protocol.CmdRemoveStation, StationID: "S2"})
	if _, ok := h.W.Stations().Get("S2"); ok {
		t.Fatalf("pot still present")
	}
	last := h.Ticks[len(h.Ticks)-1]
	if len(last.Commands) != 1 {
		t.Fatalf("commands=%+v", last.Commands)
	}
	if h.Count(agent.EventInvalid, "A2") == 0 {
		t.Fatalf("expected INVALID for Bo")
	}
}

func TestBarren_NoStationsNoBuilds(t *testing.T) {
	const barren = `{
  "name": "barren",
  "grid": {"rows": ["......", "......"]},
  "agents": [{"name": "Cy", "pos": [0.5, 0.5], "primary": "warmth", "meters": {"warmth": 5}}]
}`
	h := NewHarness(t, barren, "run-barren")
	h.StepN(300)
	if n := h.Count(agent.EventBuilt, ""); n != 0 {
		t.Fatalf("BUILT events=%d with no spots", n)
	}
	if len(h.W.Stations().All()) != 0 {
		t.Fatalf("stations appeared: %+v", h.W.Stations().All())
	}
	if v := h.Meter("A1", model.NeedWarmth); v < 0 {
		t.Fatalf("warmth=%v", v)
	}
}
