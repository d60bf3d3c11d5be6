package actions

import (
	"hearthsim.ai/internal/sim/goap"
	"hearthsim.ai/internal/sim/model"
	"hearthsim.ai/internal/sim/movement"
)

// durationEpsilon absorbs float drift from summing fixed dt steps.
const durationEpsilon = 1e-9

// twoPhase is the move-then-interact runtime shared by every concrete action.
type twoPhase struct {
	phase   goap.Phase
	elapsed float64
	target  model.Vec2
	tol     float64
	path    []model.Vec2
	cursor  int
}

func (tp *twoPhase) reset() { *tp = twoPhase{} }

// begin caches the target and a path to it. An agent already within tol skips
// straight to the interaction phase.
func (tp *twoPhase) begin(rt goap.Runtime, target model.Vec2, tol float64) bool {
	tp.target = target
	tp.tol = tol
	tp.elapsed = 0
	tp.cursor = 0
	tp.path = nil
	from := rt.Position()
	if from.Dist(target) <= tol {
		tp.phase = goap.PhaseInteracting
		return true
	}
	path, ok := rt.FindPath(from, target)
	if !ok {
		return false
	}
	tp.path = path
	tp.phase = goap.PhaseMoving
	return true
}

// advance runs one tick and reports whether the interaction time is used up.
func (tp *twoPhase) advance(rt goap.Runtime, dt, duration float64) bool {
	switch tp.phase {
	case goap.PhaseMoving:
		if rt.FollowPath(tp.path, &tp.cursor, dt, tp.tol) {
			tp.phase = goap.PhaseInteracting
		}
		return false
	case goap.PhaseInteracting:
		tp.elapsed += dt
		return tp.elapsed+durationEpsilon >= duration
	}
	return false
}

func (tp *twoPhase) done() { tp.phase = goap.PhaseDone }

func tolerance(ctx goap.PlanContext, stop float64) float64 {
	return movement.EffectiveTolerance(stop, ctx.ArriveDistance())
}
