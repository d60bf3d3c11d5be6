package agent

import (
	"fmt"
	"math"

	"hearthsim.ai/internal/sim/actions"
)

// Scoring weighs plan cost against need urgency.
type Scoring struct {
	CostWeight        float64 `yaml:"cost_weight"`
	UrgencyFloor      float64 `yaml:"urgency_floor"`
	UrgencyWeight     float64 `yaml:"urgency_weight"`
	PrimaryMultiplier float64 `yaml:"primary_multiplier"`
	OtherMultiplier   float64 `yaml:"other_multiplier"`
	HysteresisMargin  float64 `yaml:"hysteresis_margin"`
}

type Config struct {
	Speed          float64        `yaml:"speed"`
	ArriveDistance float64        `yaml:"arrive_distance"`
	EvalEvery      float64        `yaml:"eval_every"`
	WanderTries    int            `yaml:"wander_tries"`
	Scoring        Scoring        `yaml:"scoring"`
	Actions        actions.Config `yaml:"actions"`
}

func DefaultConfig() Config {
	return Config{
		Speed:          2.5,
		ArriveDistance: 0.1,
		EvalEvery:      0.5,
		WanderTries:    16,
		Scoring: Scoring{
			CostWeight:        1,
			UrgencyFloor:      0.1,
			UrgencyWeight:     1,
			PrimaryMultiplier: 0.8,
			OtherMultiplier:   1,
			HysteresisMargin:  0.15,
		},
		Actions: actions.DefaultConfig(),
	}
}

func (c Config) Validate() error {
	if !(c.Speed > 0) || math.IsInf(c.Speed, 0) {
		return fmt.Errorf("speed must be > 0")
	}
	if c.ArriveDistance < 0 {
		return fmt.Errorf("arrive_distance must be >= 0")
	}
	if !(c.EvalEvery > 0) {
		return fmt.Errorf("eval_every must be > 0")
	}
	if !(c.Scoring.UrgencyFloor > 0) {
		return fmt.Errorf("scoring.urgency_floor must be > 0")
	}
	if c.Scoring.HysteresisMargin < 0 || c.Scoring.HysteresisMargin >= 1 {
		return fmt.Errorf("scoring.hysteresis_margin must be in [0,1)")
	}
	a := c.Actions
	if a.Gather.Amount <= 0 || a.Build.WoodCost <= 0 {
		return fmt.Errorf("actions: gather amount and build wood_cost must be > 0")
	}
	if a.Gather.Duration < 0 || a.Build.Duration < 0 || a.Use.Duration < 0 || a.Idle.Wait < 0 || a.Idle.Pause < 0 {
		return fmt.Errorf("actions: durations must be >= 0")
	}
	if a.Use.Restore <= 0 {
		return fmt.Errorf("actions.use.restore must be > 0")
	}
	return nil
}
