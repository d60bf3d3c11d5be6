package tuning

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"hearthsim.ai/internal/sim/agent"
	"hearthsim.ai/internal/sim/goap"
	"hearthsim.ai/internal/sim/model"
	"hearthsim.ai/internal/sim/nav"
	"hearthsim.ai/internal/sim/needs"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz         int `yaml:"tick_rate_hz"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`
	ObserverEveryTicks int `yaml:"observer_every_ticks"`

	Needs   Needs        `yaml:"needs"`
	Nav     nav.Limits   `yaml:"nav"`
	Planner goap.Limits  `yaml:"planner"`
	Agent   agent.Config `yaml:"agent"`
}

// Needs is the yaml face of needs.Config: drain rates are keyed by need name.
type Needs struct {
	Max      float64            `yaml:"max"`
	Urgent   float64            `yaml:"urgent"`
	Critical float64            `yaml:"critical"`
	Drain    map[string]float64 `yaml:"drain"`
}

func Defaults() Tuning {
	nc := needs.DefaultConfig()
	drain := map[string]float64{}
	for _, n := range model.AllNeeds() {
		drain[strings.ToLower(n.String())] = nc.Drain[n]
	}
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         10,
		SnapshotEveryTicks: 600,
		ObserverEveryTicks: 1,
		Needs:              Needs{Max: nc.Max, Urgent: nc.Urgent, Critical: nc.Critical, Drain: drain},
		Nav:                nav.DefaultLimits(),
		Planner:            goap.DefaultLimits(),
		Agent:              agent.DefaultConfig(),
	}
}

// Load reads path over Defaults, so a partial file only overrides what it names.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Normalize fills zero values that have no meaning with their defaults.
func (t *Tuning) Normalize() {
	def := Defaults()
	if t.ProtocolVersion == "" {
		t.ProtocolVersion = def.ProtocolVersion
	}
	if t.TickRateHz <= 0 {
		t.TickRateHz = def.TickRateHz
	}
	if t.SnapshotEveryTicks < 0 {
		t.SnapshotEveryTicks = 0
	}
	if t.ObserverEveryTicks <= 0 {
		t.ObserverEveryTicks = 1
	}
	if t.Needs.Drain == nil {
		t.Needs.Drain = def.Needs.Drain
	}
	if t.Agent.EvalEvery <= 0 {
		t.Agent.EvalEvery = def.Agent.EvalEvery
	}
	if t.Agent.WanderTries <= 0 {
		t.Agent.WanderTries = def.Agent.WanderTries
	}
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 || t.TickRateHz > 1000 {
		return fmt.Errorf("tick_rate_hz must be in 1..1000")
	}
	for name := range t.Needs.Drain {
		if _, err := model.ParseNeed(name); err != nil {
			return fmt.Errorf("needs.drain: %w", err)
		}
	}
	if err := t.NeedsConfig().Validate(); err != nil {
		return err
	}
	if t.Planner.ResourceCap < t.Agent.Actions.Build.WoodCost {
		return fmt.Errorf("planner.resource_cap %d is below build wood_cost %d", t.Planner.ResourceCap, t.Agent.Actions.Build.WoodCost)
	}
	if err := t.Agent.Validate(); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	return nil
}

// NeedsConfig converts the yaml view into needs.Config. Needs missing from
// the drain map do not drain.
func (t Tuning) NeedsConfig() needs.Config {
	c := needs.Config{Max: t.Needs.Max, Urgent: t.Needs.Urgent, Critical: t.Needs.Critical}
	for name, v := range t.Needs.Drain {
		if n, err := model.ParseNeed(name); err == nil {
			c.Drain[n] = v
		}
	}
	return c
}

// TickSeconds is the fixed simulation step.
func (t Tuning) TickSeconds() float64 { return 1 / float64(t.TickRateHz) }
