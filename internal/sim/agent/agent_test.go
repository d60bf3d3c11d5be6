package agent

import (
	"testing"

	"hearthsim.ai/internal/sim/goap"
	"hearthsim.ai/internal/sim/model"
	"hearthsim.ai/internal/sim/nav"
	"hearthsim.ai/internal/sim/needs"
	"hearthsim.ai/internal/sim/registry"
)

func newServices(t *testing.T, rows ...string) Services {
	t.Helper()
	g, err := nav.FromRows(nav.Config{CellSize: 1, Limits: nav.DefaultLimits()}, rows)
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	return Services{
		Grid:     g,
		Stations: registry.NewStations(),
		Spots:    registry.NewSpots(),
		Planner:  goap.NewPlanner(goap.DefaultLimits()),
	}
}

func newTestAgent(svc Services, pos model.Vec2, sleep float64) *Agent {
	nc := needs.DefaultConfig()
	nc.Drain = [model.NeedCount]float64{}
	m := [model.NeedCount]float64{sleep, 100, 100}
	return New(Params{ID: "A1", Name: "Ada", Pos: pos, Primary: model.NeedSleep, Meters: &m, Seed: 3}, DefaultConfig(), nc, svc, nil)
}

func countEvents(evs []Event, typ string) int {
	n := 0
	for _, e := range evs {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func TestShouldSwitch(t *testing.T) {
	cases := []struct {
		held      bool
		current   float64
		candidate float64
		want      bool
	}{
		{false, 0, 1000, true},
		{true, 10, 9, false},
		{true, 10, 8, true},
		{true, 10, 10, false},
		{true, 10, 11, false},
	}
	for _, tc := range cases {
		if got := ShouldSwitch(tc.held, tc.current, tc.candidate, 0.15); got != tc.want {
			t.Fatalf("ShouldSwitch(%v,%v,%v)=%v want %v", tc.held, tc.current, tc.candidate, got, tc.want)
		}
	}
}

func TestScore(t *testing.T) {
	s := DefaultConfig().Scoring
	other := s.Score(10, 1, false)
	primary := s.Score(10, 1, true)
	if !(primary < other) {
		t.Fatalf("primary=%v other=%v: primary need must score lower", primary, other)
	}
	if calm, urgent := s.Score(10, 0.2, false), s.Score(10, 0.9, false); !(urgent < calm) {
		t.Fatalf("urgent=%v calm=%v: urgency must lower the score", urgent, calm)
	}
	if got := s.Score(0, 0, false); got != 0 {
		t.Fatalf("zero cost score=%v", got)
	}
}

func TestAgent_ChopsBuildsAndSleeps(t *testing.T) {
	svc := newServices(t,
		"............",
		"............",
		"............",
	)
	svc.Stations.Add(model.StationWood, model.V(3.5, 1.5), "", "")
	svc.Spots.AddSpot(model.StationBed, model.V(6.5, 1.5))
	a := newTestAgent(svc, model.V(0.5, 1.5), 10)

	var evs []Event
	for i := 0; i < 600; i++ {
		a.Tick(0.1)
		evs = append(evs, a.DrainEvents()...)
	}

	if evs[0].Type != EventPlan || evs[0].Plan != "ChopWood -> ChopWood -> Build(Bed) -> Use(Bed)" {
		t.Fatalf("first event=%+v", evs[0])
	}
	beds := svc.Stations.OfKind(model.StationBed)
	if len(beds) != 1 || beds[0].BuiltBy != "A1" {
		t.Fatalf("beds=%+v", beds)
	}
	if got := a.Meters().Value(model.NeedSleep); got != 80 {
		t.Fatalf("sleep=%v want 80", got)
	}
	if a.Carried() != 0 {
		t.Fatalf("carried=%d want 0", a.Carried())
	}
	if countEvents(evs, EventBuilt) != 1 || countEvents(evs, EventSwitch) != 0 {
		t.Fatalf("events=%+v", evs)
	}
	if countEvents(evs, EventActDone) != 5 {
		t.Fatalf("ACT_DONE=%d want 5", countEvents(evs, EventActDone))
	}
	if a.Plan() != nil || a.State() != StateIdle {
		t.Fatalf("plan=%v state=%s", a.Plan(), a.State())
	}
	if countEvents(evs, EventIdle) == 0 {
		t.Fatalf("never idled")
	}
}

func TestAgent_ReplansWhenStationRemoved(t *testing.T) {
	svc := newServices(t, "............")
	bed := svc.Stations.Add(model.StationBed, model.V(10.5, 0.5), "", "")
	a := newTestAgent(svc, model.V(0.5, 0.5), 10)

	a.Tick(0.1)
	a.Tick(0.1)
	if a.Plan() == nil || a.HeadPhase() != goap.PhaseMoving {
		t.Fatalf("plan=%v phase=%s", a.Plan(), a.HeadPhase())
	}
	a.DrainEvents()

	svc.Stations.Remove(bed.ID)
	a.Tick(0.1)
	evs := a.DrainEvents()
	if countEvents(evs, EventInvalid) != 1 {
		t.Fatalf("events=%+v", evs)
	}
	if countEvents(evs, EventNoPlan) == 0 {
		t.Fatalf("expected an immediate re-plan attempt: %+v", evs)
	}
	if a.Plan() != nil {
		t.Fatalf("plan kept: %v", a.Plan())
	}
}

func TestAgent_DropReleasesReservation(t *testing.T) {
	svc := newServices(t, "............")
	sp := svc.Spots.AddSpot(model.StationBed, model.V(10.5, 0.5))
	a := newTestAgent(svc, model.V(0.5, 0.5), 10)
	a.SetCarried(2)

	a.Tick(0.1)
	if a.Plan() == nil || a.Plan().String() != "Build(Bed) -> Use(Bed)" {
		t.Fatalf("plan=%v", a.Plan())
	}
	if got, _ := svc.Spots.Get(sp.ID); got.Owner != "A1" {
		t.Fatalf("spot not reserved: %+v", got)
	}

	// Holds outside the plan's actions are released as well.
	pot := svc.Stations.Add(model.StationPot, model.V(5.5, 0.5), "", "")
	if !svc.Stations.Claim(pot.ID, "A1") {
		t.Fatalf("claim failed")
	}
	fire := svc.Spots.AddSpot(model.StationFire, model.V(7.5, 0.5))
	if _, ok := svc.Spots.TryReserve(model.StationFire, "A1", func(model.Vec2) float64 { return 1 }); !ok {
		t.Fatalf("reserve failed")
	}

	a.Meters().Set(model.NeedSleep, 100)
	a.RequestEvaluation()
	a.Tick(0.1)
	if a.Plan() != nil {
		t.Fatalf("plan kept after need was met: %v", a.Plan())
	}
	if got, _ := svc.Spots.Get(sp.ID); got.Owner != "" {
		t.Fatalf("reservation leaked: %+v", got)
	}
	if got, _ := svc.Spots.Get(fire.ID); got.Owner != "" {
		t.Fatalf("fire spot leaked: %+v", got)
	}
	if got, _ := svc.Stations.Get(pot.ID); got.User != "" {
		t.Fatalf("pot claim leaked: %+v", got)
	}
}

func TestAgent_KeepsSameNeedCandidateWithinMargin(t *testing.T) {
	svc := newServices(t, "............")
	svc.Stations.Add(model.StationBed, model.V(10.5, 0.5), "", "")
	a := newTestAgent(svc, model.V(0.5, 0.5), 10)

	a.Tick(0.1)
	held := a.Plan()
	if held == nil || held.String() != "Use(Bed)" {
		t.Fatalf("plan=%v", held)
	}
	a.DrainEvents()

	// One cell closer: better, but by less than the margin.
	svc.Stations.Add(model.StationBed, model.V(9.5, 0.5), "", "")
	a.RequestEvaluation()
	a.Tick(0.1)
	evs := a.DrainEvents()
	if a.Plan() != held {
		t.Fatalf("plan replaced inside the margin: %v", a.Plan())
	}
	if countEvents(evs, EventKeep) != 1 || countEvents(evs, EventSwitch) != 0 {
		t.Fatalf("events=%+v", evs)
	}
}

func TestAgent_SwitchesToMuchBetterSameNeedPlan(t *testing.T) {
	svc := newServices(t,
		"............",
		"............",
		"............",
	)
	svc.Stations.Add(model.StationWood, model.V(3.5, 1.5), "", "")
	sp := svc.Spots.AddSpot(model.StationBed, model.V(6.5, 1.5))
	a := newTestAgent(svc, model.V(0.5, 1.5), 10)

	a.Tick(0.1)
	if a.Plan() == nil || a.Plan().String() != "ChopWood -> ChopWood -> Build(Bed) -> Use(Bed)" {
		t.Fatalf("plan=%v", a.Plan())
	}
	a.DrainEvents()

	svc.Stations.Add(model.StationBed, model.V(1.5, 1.5), "", "")
	a.RequestEvaluation()
	a.Tick(0.1)
	evs := a.DrainEvents()
	if a.Plan() == nil || a.Plan().Need != model.NeedSleep || a.Plan().String() != "Use(Bed)" {
		t.Fatalf("plan=%v events=%+v", a.Plan(), evs)
	}
	if countEvents(evs, EventSwitch) != 1 || countEvents(evs, EventKeep) != 0 {
		t.Fatalf("events=%+v", evs)
	}
	if got, _ := svc.Spots.Get(sp.ID); got.Owner != "" {
		t.Fatalf("spot still reserved after switch: %+v", got)
	}
}

func TestAgent_SwitchesToMuchBetterNeed(t *testing.T) {
	svc := newServices(t, "..............................")
	svc.Stations.Add(model.StationBed, model.V(29.5, 0.5), "", "")
	svc.Stations.Add(model.StationPot, model.V(1.5, 0.5), "", "")
	a := newTestAgent(svc, model.V(0.5, 0.5), 30)

	a.Tick(0.1)
	if a.Plan() == nil || a.Plan().Need != model.NeedSleep {
		t.Fatalf("plan=%v", a.Plan())
	}
	a.DrainEvents()

	a.Meters().Set(model.NeedHunger, 5)
	a.RequestEvaluation()
	a.Tick(0.1)
	evs := a.DrainEvents()
	if a.Plan() == nil || a.Plan().Need != model.NeedHunger {
		t.Fatalf("plan=%v events=%+v", a.Plan(), evs)
	}
	if countEvents(evs, EventSwitch) != 1 {
		t.Fatalf("events=%+v", evs)
	}
	if st := svc.Stations.OfKind(model.StationBed)[0]; st.User != "" {
		t.Fatalf("bed claim leaked after switch: %+v", st)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults: %v", err)
	}
	bad := DefaultConfig()
	bad.Scoring.HysteresisMargin = 1
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for margin 1")
	}
	bad = DefaultConfig()
	bad.Speed = 0
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for zero speed")
	}
}
