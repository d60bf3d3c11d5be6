package actions

import (
	"hearthsim.ai/internal/sim/goap"
	"hearthsim.ai/internal/sim/model"
)

// Use occupies a station to restore the need it serves.
type Use struct {
	Need model.NeedType
	Kind model.StationType
	cfg  UseConfig
	tp   twoPhase

	stationID string
	rt        goap.Runtime
}

func NewUse(need model.NeedType, cfg UseConfig) *Use {
	return &Use{Need: need, Kind: model.StationFor(need), cfg: cfg}
}

func (a *Use) Name() string  { return "Use(" + a.Kind.String() + ")" }
func (a *Use) Tag() goap.Tag { return goap.TagUse }

func (a *Use) CanPlan(s goap.WorldState) bool {
	return s.Exists[a.Kind] && !s.Satisfied[a.Need]
}

// ApplyEffects targets the best real station. A station that only exists in
// the simulated state (built earlier in the same plan) is used in place.
func (a *Use) ApplyEffects(ctx goap.PlanContext, s goap.WorldState) goap.Transition {
	next := s
	next.Satisfied[a.Need] = true
	pos, ok := ctx.BestStation(a.Kind, s.Pos, tolerance(ctx, a.cfg.StopDistance))
	if ok {
		next.Pos = pos
	}
	return goap.Transition{Next: next, Target: pos, HasTarget: ok}
}

func (a *Use) EstimateCost(ctx goap.PlanContext, s goap.WorldState) float64 {
	tol := tolerance(ctx, a.cfg.StopDistance)
	pos, ok := ctx.BestStation(a.Kind, s.Pos, tol)
	if !ok {
		return a.cfg.Duration
	}
	return ctx.TravelTime(s.Pos, pos, tol) + a.cfg.Duration
}

func (a *Use) Start(rt goap.Runtime) bool {
	if a.tp.phase != goap.PhaseNotStarted {
		return true
	}
	tol := tolerance(rt, a.cfg.StopDistance)
	id, pos, ok := rt.ClaimStation(a.Kind, tol)
	if !ok {
		return false
	}
	a.stationID = id
	a.rt = rt
	if !a.tp.begin(rt, pos, tol) {
		a.release()
		return false
	}
	return true
}

func (a *Use) Step(rt goap.Runtime, dt float64) bool {
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
	rt.AddMeter(a.Need, a.cfg.Restore)
	a.release()
	a.tp.done()
	return true
}

func (a *Use) IsStillValid(rt goap.Runtime) bool {
	switch a.tp.phase {
	case goap.PhaseNotStarted:
		_, ok := rt.BestStation(a.Kind, rt.Position(), tolerance(rt, a.cfg.StopDistance))
		return ok
	case goap.PhaseDone:
		return true
	}
	return rt.StationClaimed(a.stationID)
}

func (a *Use) release() {
	if a.stationID != "" && a.rt != nil {
		a.rt.ReleaseStation(a.stationID)
	}
	a.stationID = ""
	a.rt = nil
}

func (a *Use) Reset() {
	a.release()
	a.tp.reset()
}

func (a *Use) Phase() goap.Phase { return a.tp.phase }
