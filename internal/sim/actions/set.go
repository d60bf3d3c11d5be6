package actions

import (
	"hearthsim.ai/internal/sim/goap"
	"hearthsim.ai/internal/sim/model"
)

// NewSet returns a fresh planning action set. Actions carry runtime state, so
// every agent gets its own set.
func NewSet(cfg Config) []goap.Action {
	out := []goap.Action{NewGather(model.StationWood, cfg.Gather)}
	for _, n := range model.AllNeeds() {
		out = append(out, NewBuild(model.StationFor(n), cfg.Build))
	}
	for _, n := range model.AllNeeds() {
		out = append(out, NewUse(n, cfg.Use))
	}
	return out
}
