package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"hearthsim.ai/internal/sim/model"
)

func TestLoad_RepoConfig(t *testing.T) {
	tu, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tu.TickRateHz != 10 || tu.ObserverEveryTicks != 2 {
		t.Fatalf("tick=%d observer=%d", tu.TickRateHz, tu.ObserverEveryTicks)
	}
	nc := tu.NeedsConfig()
	if nc.Drain[model.NeedHunger] != 1.2 || nc.Drain[model.NeedSleep] != 0.8 {
		t.Fatalf("drain=%v", nc.Drain)
	}
	if tu.Agent.Actions.Build.Margin != 0.10 || tu.Agent.Scoring.HysteresisMargin != 0.15 {
		t.Fatalf("agent=%+v", tu.Agent)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("tick_rate_hz: 20\nagent:\n  speed: 4\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	tu, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Defaults()
	if tu.TickRateHz != 20 || tu.Agent.Speed != 4 {
		t.Fatalf("overrides lost: %+v", tu)
	}
	if tu.Agent.ArriveDistance != def.Agent.ArriveDistance || tu.Planner != def.Planner {
		t.Fatalf("defaults lost: %+v", tu)
	}
	if tu.TickSeconds() != 0.05 {
		t.Fatalf("tick seconds=%v", tu.TickSeconds())
	}
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown need": "needs:\n  drain:\n    thirst: 1\n",
		"cap below":    "planner:\n  resource_cap: 1\n",
		"bad margin":   "agent:\n  scoring:\n    hysteresis_margin: 1.5\n",
		"bad yaml":     "tick_rate_hz: [\n",
	}
	for name, body := range cases {
		path := filepath.Join(t.TempDir(), "tuning.yaml")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDefaultsValidate(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("Defaults: %v", err)
	}
}
