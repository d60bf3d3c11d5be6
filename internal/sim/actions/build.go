package actions

import (
	"hearthsim.ai/internal/sim/goap"
	"hearthsim.ai/internal/sim/model"
	"hearthsim.ai/internal/sim/nav"
)

// Build spends wood to raise a station on a reserved build spot.
type Build struct {
	Kind model.StationType
	cfg  BuildConfig
	tp   twoPhase

	spotID string
	rt     goap.Runtime
	// aborted is set when the interaction finished without enough wood.
	aborted bool
}

func NewBuild(kind model.StationType, cfg BuildConfig) *Build {
	return &Build{Kind: kind, cfg: cfg}
}

func (a *Build) Name() string  { return "Build(" + a.Kind.String() + ")" }
func (a *Build) Tag() goap.Tag { return goap.TagBuild }

// Aborted reports whether the last run completed without placing a station.
func (a *Build) Aborted() bool { return a.aborted }

func (a *Build) CanPlan(s goap.WorldState) bool {
	return !s.Exists[a.Kind] && s.Carried >= a.cfg.WoodCost
}

func (a *Build) ApplyEffects(ctx goap.PlanContext, s goap.WorldState) goap.Transition {
	next := s
	next.Carried -= a.cfg.WoodCost
	next.Exists[a.Kind] = true
	pos, ok := ctx.BestSite(a.Kind, s.Pos, tolerance(ctx, a.cfg.StopDistance))
	if ok {
		next.Pos = pos
	}
	return goap.Transition{Next: next, Target: pos, HasTarget: ok}
}

func (a *Build) EstimateCost(ctx goap.PlanContext, s goap.WorldState) float64 {
	tol := tolerance(ctx, a.cfg.StopDistance)
	pos, ok := ctx.BestSite(a.Kind, s.Pos, tol)
	if !ok {
		return nav.Unreachable
	}
	return ctx.TravelTime(s.Pos, pos, tol) + a.cfg.Duration
}

func (a *Build) Start(rt goap.Runtime) bool {
	if a.tp.phase != goap.PhaseNotStarted {
		return true
	}
	a.aborted = false
	tol := tolerance(rt, a.cfg.StopDistance)
	id, pos, ok := rt.ReserveSite(a.Kind, tol)
	if !ok {
		return false
	}
	a.spotID = id
	a.rt = rt
	if !a.tp.begin(rt, pos, tol) {
		a.release()
		return false
	}
	return true
}

func (a *Build) Step(rt goap.Runtime, dt float64) bool {
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
	a.tp.done()
	if rt.Carried() < a.cfg.WoodCost {
		a.aborted = true
		a.release()
		return true
	}
	rt.AddCarried(-a.cfg.WoodCost)
	if !rt.PlaceStation(a.Kind, a.spotID) {
		rt.AddCarried(a.cfg.WoodCost)
		a.aborted = true
		a.release()
		return true
	}
	a.spotID = ""
	a.rt = nil
	return true
}

// IsStillValid fails once the reservation is lost, or when an existing
// station of the same kind is no farther than the build would take.
func (a *Build) IsStillValid(rt goap.Runtime) bool {
	if a.tp.phase == goap.PhaseDone {
		return true
	}
	tol := tolerance(rt, a.cfg.StopDistance)
	from := rt.Position()

	var site model.Vec2
	remaining := a.cfg.Duration
	if a.tp.phase == goap.PhaseNotStarted {
		if rt.Carried() < a.cfg.WoodCost {
			return false
		}
		pos, ok := rt.BestSite(a.Kind, from, tol)
		if !ok {
			return false
		}
		site = pos
	} else {
		if !rt.SiteHeld(a.spotID) {
			return false
		}
		site = a.tp.target
		if a.tp.phase == goap.PhaseInteracting {
			remaining -= a.tp.elapsed
		}
	}

	existing, ok := rt.BestStation(a.Kind, from, rt.ArriveDistance())
	if !ok {
		return true
	}
	buildTime := rt.TravelTime(from, site, tol) + remaining
	if nav.IsUnreachable(buildTime) {
		return false
	}
	useTravel := rt.TravelTime(from, existing, rt.ArriveDistance())
	return useTravel > buildTime*(1+a.cfg.Margin)
}

func (a *Build) release() {
	if a.spotID != "" && a.rt != nil {
		a.rt.ReleaseSite(a.Kind)
	}
	a.spotID = ""
	a.rt = nil
}

func (a *Build) Reset() {
	a.release()
	a.tp.reset()
}

func (a *Build) Phase() goap.Phase { return a.tp.phase }
