package actions

import (
	"hearthsim.ai/internal/sim/goap"
	"hearthsim.ai/internal/sim/nav"
)

// Wander and Wait fill time while no plan is held. They never take part in
// planning.

type Wander struct {
	cfg IdleConfig
	tp  twoPhase
}

func NewWander(cfg IdleConfig) *Wander { return &Wander{cfg: cfg} }

func (a *Wander) Name() string                   { return "Wander" }
func (a *Wander) Tag() goap.Tag                  { return goap.TagWander }
func (a *Wander) CanPlan(s goap.WorldState) bool { return false }

func (a *Wander) ApplyEffects(ctx goap.PlanContext, s goap.WorldState) goap.Transition {
	return goap.Transition{Next: s}
}

func (a *Wander) EstimateCost(ctx goap.PlanContext, s goap.WorldState) float64 {
	return nav.Unreachable
}

func (a *Wander) Start(rt goap.Runtime) bool {
	if a.tp.phase != goap.PhaseNotStarted {
		return true
	}
	target, ok := rt.RandomWalkable(rt.Position(), a.cfg.WanderRadius)
	if !ok {
		return false
	}
	return a.tp.begin(rt, target, rt.ArriveDistance())
}

func (a *Wander) Step(rt goap.Runtime, dt float64) bool {
	switch a.tp.phase {
	case goap.PhaseDone:
		return true
	case goap.PhaseNotStarted:
		if !a.Start(rt) {
			return false
		}
	}
	if !a.tp.advance(rt, dt, a.cfg.Pause) {
		return false
	}
	a.tp.done()
	return true
}

func (a *Wander) IsStillValid(rt goap.Runtime) bool { return true }
func (a *Wander) Reset()                            { a.tp.reset() }
func (a *Wander) Phase() goap.Phase                 { return a.tp.phase }

type Wait struct {
	cfg     IdleConfig
	phase   goap.Phase
	elapsed float64
}

func NewWait(cfg IdleConfig) *Wait { return &Wait{cfg: cfg} }

func (a *Wait) Name() string                   { return "Wait" }
func (a *Wait) Tag() goap.Tag                  { return goap.TagWait }
func (a *Wait) CanPlan(s goap.WorldState) bool { return false }

func (a *Wait) ApplyEffects(ctx goap.PlanContext, s goap.WorldState) goap.Transition {
	return goap.Transition{Next: s}
}

func (a *Wait) EstimateCost(ctx goap.PlanContext, s goap.WorldState) float64 {
	return nav.Unreachable
}

func (a *Wait) Start(rt goap.Runtime) bool {
	if a.phase == goap.PhaseNotStarted {
		a.phase = goap.PhaseInteracting
		a.elapsed = 0
	}
	return true
}

func (a *Wait) Step(rt goap.Runtime, dt float64) bool {
	if a.phase == goap.PhaseDone {
		return true
	}
	a.Start(rt)
	a.elapsed += dt
	if a.elapsed+durationEpsilon < a.cfg.Wait {
		return false
	}
	a.phase = goap.PhaseDone
	return true
}

func (a *Wait) IsStillValid(rt goap.Runtime) bool { return true }
func (a *Wait) Reset()                            { a.phase, a.elapsed = goap.PhaseNotStarted, 0 }
func (a *Wait) Phase() goap.Phase                 { return a.phase }
