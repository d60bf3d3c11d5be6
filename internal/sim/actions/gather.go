package actions

import (
	"hearthsim.ai/internal/sim/goap"
	"hearthsim.ai/internal/sim/model"
	"hearthsim.ai/internal/sim/nav"
)

// Gather walks to the nearest resource station and harvests it. Stations
// are never claimed: any number of agents may chop the same tree.
type Gather struct {
	Resource model.StationType
	cfg      GatherConfig
	tp       twoPhase
}

func NewGather(resource model.StationType, cfg GatherConfig) *Gather {
	return &Gather{Resource: resource, cfg: cfg}
}

func (a *Gather) Name() string {
	if a.Resource == model.StationWood {
		return "ChopWood"
	}
	return "Gather(" + a.Resource.String() + ")"
}

func (a *Gather) Tag() goap.Tag { return goap.TagGather }

func (a *Gather) CanPlan(s goap.WorldState) bool { return s.Exists[a.Resource] }

func (a *Gather) ApplyEffects(ctx goap.PlanContext, s goap.WorldState) goap.Transition {
	next := s
	next.Carried += a.cfg.Amount
	pos, ok := ctx.BestStation(a.Resource, s.Pos, tolerance(ctx, a.cfg.StopDistance))
	if ok {
		next.Pos = pos
	}
	return goap.Transition{Next: next, Target: pos, HasTarget: ok}
}

func (a *Gather) EstimateCost(ctx goap.PlanContext, s goap.WorldState) float64 {
	tol := tolerance(ctx, a.cfg.StopDistance)
	pos, ok := ctx.BestStation(a.Resource, s.Pos, tol)
	if !ok {
		return nav.Unreachable
	}
	return ctx.TravelTime(s.Pos, pos, tol) + a.cfg.Duration
}

func (a *Gather) Start(rt goap.Runtime) bool {
	if a.tp.phase != goap.PhaseNotStarted {
		return true
	}
	tol := tolerance(rt, a.cfg.StopDistance)
	pos, ok := rt.BestStation(a.Resource, rt.Position(), tol)
	if !ok {
		return false
	}
	return a.tp.begin(rt, pos, tol)
}

func (a *Gather) Step(rt goap.Runtime, dt float64) bool {
	switch a.tp.phase {
	case goap.PhaseDone:
		return true
	case goap.PhaseNotStarted:
		if !a.Start(rt) {
			return false
		}
	}
	if !a.tp.advance(rt, dt, a.cfg.Duration) {
		return false
	}
	rt.AddCarried(a.cfg.Amount)
	a.tp.done()
	return true
}

func (a *Gather) IsStillValid(rt goap.Runtime) bool {
	switch a.tp.phase {
	case goap.PhaseNotStarted:
		_, ok := rt.BestStation(a.Resource, rt.Position(), tolerance(rt, a.cfg.StopDistance))
		return ok
	case goap.PhaseDone:
		return true
	}
	return rt.StationAt(a.Resource, a.tp.target)
}

func (a *Gather) Reset()            { a.tp.reset() }
func (a *Gather) Phase() goap.Phase { return a.tp.phase }
