package world

import (
	"encoding/json"
	"reflect"
	"testing"

	"hearthsim.ai/internal/persistence/snapshot"
	"hearthsim.ai/internal/protocol"
	"hearthsim.ai/internal/sim/agent"
	"hearthsim.ai/internal/sim/goap"
	"hearthsim.ai/internal/sim/model"
	"hearthsim.ai/internal/sim/nav"
	"hearthsim.ai/internal/sim/needs"
)

type memTickLog struct{ entries []TickLogEntry }

func (m *memTickLog) WriteTick(e TickLogEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

type memCmdLog struct{ entries []CommandEntry }

func (m *memCmdLog) WriteCommand(e CommandEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func testConfig() WorldConfig {
	return WorldConfig{
		ID:                 "run-test",
		Scenario:           "test",
		Seed:               1,
		TickRateHz:         10,
		ObserverEveryTicks: 1,
		Needs:              needs.DefaultConfig(),
		Agent:              agent.DefaultConfig(),
		Planner:            goap.DefaultLimits(),
	}
}

func newTestWorld(t *testing.T) *World {
	t.Helper()
	g, err := nav.FromRows(nav.Config{CellSize: 1, Limits: nav.DefaultLimits()}, []string{
		"............",
		"....#.......",
		"....#.......",
		"............",
	})
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	w, err := New(testConfig(), g, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	mustOK := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	_, err = w.AddStation(model.StationWood, model.V(2.5, 0.5))
	mustOK(err)
	_, err = w.AddStation(model.StationPot, model.V(10.5, 3.5))
	mustOK(err)
	_, err = w.AddSpot(model.StationBed, model.V(7.5, 2.5))
	mustOK(err)
	_, err = w.AddSpot(model.StationFire, model.V(8.5, 0.5))
	mustOK(err)

	ada := [model.NeedCount]float64{15, 70, 45}
	bo := [model.NeedCount]float64{90, 25, 60}
	_, err = w.AddAgent(agent.Params{Name: "Ada", Pos: model.V(0.5, 3.5), Primary: model.NeedSleep, Meters: &ada, Seed: 11})
	mustOK(err)
	_, err = w.AddAgent(agent.Params{Name: "Bo", Pos: model.V(11.5, 0.5), Primary: model.NeedHunger, Meters: &bo, Seed: 12})
	mustOK(err)
	return w
}

func TestStepOnce_Deterministic(t *testing.T) {
	a := newTestWorld(t)
	b := newTestWorld(t)
	for i := 0; i < 600; i++ {
		ta, da := a.StepOnce(nil)
		tb, db := b.StepOnce(nil)
		if ta != tb || da != db {
			t.Fatalf("tick %d: digest mismatch %s vs %s", ta, da, db)
		}
	}
	if a.CurrentTick() != 600 {
		t.Fatalf("tick=%d want 600", a.CurrentTick())
	}
}

func TestStepOnce_AgentsMakeProgress(t *testing.T) {
	w := newTestWorld(t)
	tl := &memTickLog{}
	w.SetTickLogger(tl)
	for i := 0; i < 600; i++ {
		w.StepOnce(nil)
	}
	if len(tl.entries) != 600 || tl.entries[0].RunID != "run-test" {
		t.Fatalf("entries=%d", len(tl.entries))
	}
	var built, plans int
	for _, e := range tl.entries {
		for _, ev := range e.Events {
			switch ev.Type {
			case agent.EventBuilt:
				built++
			case agent.EventPlan:
				plans++
			}
		}
	}
	if plans == 0 || built == 0 {
		t.Fatalf("plans=%d built=%d", plans, built)
	}
	if len(w.Stations().OfKind(model.StationBed)) == 0 {
		t.Fatalf("no bed built")
	}
}

func TestRemoveStationCommand(t *testing.T) {
	w := newTestWorld(t)
	tl := &memTickLog{}
	cl := &memCmdLog{}
	w.SetTickLogger(tl)
	w.SetCommandLogger(cl)

	w.StepOnce(nil)
	pot := w.Stations().OfKind(model.StationPot)[0]
	bo, _ := w.Agent("A2")
	if bo.Plan() == nil || bo.Plan().Need != model.NeedHunger {
		t.Fatalf("Bo plan=%v", bo.Plan())
	}

	w.StepOnce([]Command{{Kind: protocol.CmdRemoveStation, StationID: pot.ID}})
	if _, ok := w.Stations().Get(pot.ID); ok {
		t.Fatalf("pot still present")
	}
	last := tl.entries[len(tl.entries)-1]
	if len(last.Commands) != 1 || last.Commands[0].StationID != pot.ID {
		t.Fatalf("commands=%+v", last.Commands)
	}
	invalid := false
	for _, ev := range last.Events {
		if ev.Agent == "A2" && ev.Type == agent.EventInvalid {
			invalid = true
		}
	}
	if !invalid {
		t.Fatalf("expected INVALID for A2, events=%+v", last.Events)
	}

	w.StepOnce([]Command{{Kind: protocol.CmdRemoveStation, StationID: "S99"}})
	if got := cl.entries[len(cl.entries)-1]; got.OK || got.Code != protocol.ErrNotFound {
		t.Fatalf("command log=%+v", got)
	}
	if got := tl.entries[len(tl.entries)-1]; len(got.Commands) != 0 {
		t.Fatalf("failed commands must not be replayed: %+v", got.Commands)
	}
}

func TestSetNeedCommand(t *testing.T) {
	w := newTestWorld(t)
	res := w.applyCommand(Command{Kind: protocol.CmdSetNeed, AgentID: "A1", Need: "warmth", Value: 5})
	if !res.OK {
		t.Fatalf("res=%+v", res)
	}
	a, _ := w.Agent("A1")
	if a.Meters().Value(model.NeedWarmth) != 5 {
		t.Fatalf("warmth=%v", a.Meters().Value(model.NeedWarmth))
	}
	if res := w.applyCommand(Command{Kind: protocol.CmdSetNeed, AgentID: "A1", Need: "thirst"}); res.Code != protocol.ErrBadRequest {
		t.Fatalf("res=%+v", res)
	}
	if res := w.applyCommand(Command{Kind: "TELEPORT"}); res.Code != protocol.ErrBadRequest {
		t.Fatalf("res=%+v", res)
	}
}

func TestSubmit_FullQueueIsBusy(t *testing.T) {
	w := newTestWorld(t)
	for i := 0; i < cap(w.cmds); i++ {
		w.Submit(Command{Kind: protocol.CmdSetNeed})
	}
	res := <-w.Submit(Command{Kind: protocol.CmdSetNeed})
	if res.Code != protocol.ErrWorldBusy {
		t.Fatalf("res=%+v", res)
	}
}

func TestObserverFrames(t *testing.T) {
	w := newTestWorld(t)
	out := make(chan []byte, 4)
	w.handleObserverJoin(ObserverJoinRequest{SessionID: "o1", Out: out, FocusAgentID: "A1", EveryTicks: 1})

	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(<-out, &welcome); err != nil {
		t.Fatalf("welcome: %v", err)
	}
	if welcome.Type != protocol.TypeWelcome || welcome.RunID != "run-test" || welcome.Grid.Cols != 12 || len(welcome.Grid.Blocked) != 2 {
		t.Fatalf("welcome=%+v", welcome)
	}

	_, digest := w.StepOnce(nil)
	var tick protocol.TickMsg
	if err := json.Unmarshal(<-out, &tick); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if tick.Type != protocol.TypeTick || tick.Digest != digest || len(tick.Agents) != 2 || len(tick.Stations) != 2 {
		t.Fatalf("tick=%+v", tick)
	}
	for _, ev := range tick.Events {
		if ev.Agent != "A1" {
			t.Fatalf("focus filter leaked %+v", ev)
		}
	}

	w.handleObserverLeave("o1")
	w.StepOnce(nil)
	select {
	case b := <-out:
		t.Fatalf("frame after leave: %s", b)
	default:
	}
}

func TestSnapshotSinkAndRestore(t *testing.T) {
	w := newTestWorld(t)
	w.cfg.SnapshotEveryTicks = 100
	sink := make(chan snapshot.SnapshotV1, 4)
	w.SetSnapshotSink(sink)
	for i := 0; i < 201; i++ {
		w.StepOnce(nil)
	}
	if len(sink) != 2 {
		t.Fatalf("snapshots=%d want 2", len(sink))
	}
	<-sink
	snap := <-sink
	if snap.Header.Tick != 200 || snap.Header.RunID != "run-test" {
		t.Fatalf("header=%+v", snap.Header)
	}

	cfg := testConfig()
	cfg.ID = "run-resumed"
	r, err := NewFromSnapshot(cfg, snap, nav.DefaultLimits(), nil)
	if err != nil {
		t.Fatalf("NewFromSnapshot: %v", err)
	}
	if r.CurrentTick() != 201 {
		t.Fatalf("resumed tick=%d want 201", r.CurrentTick())
	}
	again := r.ExportSnapshot(200)
	again.Header.RunID = snap.Header.RunID
	if !reflect.DeepEqual(again, snap) {
		t.Fatalf("restore changed state:\n got %+v\nwant %+v", again, snap)
	}

	// Two resumes from the same snapshot stay in lockstep.
	r2, err := NewFromSnapshot(cfg, snap, nav.DefaultLimits(), nil)
	if err != nil {
		t.Fatalf("NewFromSnapshot: %v", err)
	}
	for i := 0; i < 200; i++ {
		_, d1 := r.StepOnce(nil)
		_, d2 := r2.StepOnce(nil)
		if d1 != d2 {
			t.Fatalf("resumed runs diverged at step %d", i)
		}
	}
}

func TestAddAgentRejectsBadInput(t *testing.T) {
	w := newTestWorld(t)
	if _, err := w.AddAgent(agent.Params{ID: "A1", Pos: model.V(0.5, 0.5)}); err == nil {
		t.Fatalf("expected duplicate id error")
	}
	if _, err := w.AddAgent(agent.Params{Pos: model.V(4.5, 2.5)}); err == nil {
		t.Fatalf("expected blocked cell error")
	}
	if _, err := w.AddSpot(model.StationWood, model.V(1.5, 1.5)); err == nil {
		t.Fatalf("expected error for a wood build spot")
	}
}
