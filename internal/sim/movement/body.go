package movement

import (
	"math"

	"hearthsim.ai/internal/sim/model"
)

// Body is the runtime position of an agent. Planning never touches it.
type Body struct {
	Pos            model.Vec2
	Speed          float64
	ArriveDistance float64
}

// EffectiveTolerance is the arrival radius used by an action with the given
// stop distance. Planning and runtime must both go through it.
func EffectiveTolerance(stopDistance, arriveDistance float64) float64 {
	t := math.Max(stopDistance, arriveDistance)
	if t < 0 || math.IsNaN(t) {
		return 0
	}
	return t
}

// MoveToward steers straight at target and reports arrival once within tol.
// A tick never carries the body closer than tol.
func (b *Body) MoveToward(target model.Vec2, dt, tol float64) bool {
	d := b.Pos.Dist(target)
	if d <= tol {
		return true
	}
	budget := b.Speed * dt
	if !(budget > 0) {
		return false
	}
	dir := target.Sub(b.Pos).Normalize()
	need := d - tol
	if budget >= need {
		b.Pos = b.Pos.Add(dir.Scale(need))
		return true
	}
	b.Pos = b.Pos.Add(dir.Scale(budget))
	return false
}

// FollowPath walks waypoints in order, spending the whole per-tick budget
// across corners. Intermediate waypoints are reached exactly; the last one is
// reached when within tol. cursor is the index of the next waypoint.
func (b *Body) FollowPath(path []model.Vec2, cursor *int, dt, tol float64) bool {
	if len(path) == 0 {
		return true
	}
	budget := b.Speed * dt
	if budget < 0 || math.IsNaN(budget) {
		budget = 0
	}
	for *cursor < len(path) {
		wp := path[*cursor]
		final := *cursor == len(path)-1
		stop := 0.0
		if final {
			stop = tol
		}
		d := b.Pos.Dist(wp)
		need := d - stop
		if need <= 0 {
			if final {
				return true
			}
			*cursor++
			continue
		}
		if budget >= need {
			budget -= need
			if final {
				b.Pos = b.Pos.Add(wp.Sub(b.Pos).Normalize().Scale(need))
				return true
			}
			b.Pos = wp
			*cursor++
			continue
		}
		b.Pos = b.Pos.Add(wp.Sub(b.Pos).Normalize().Scale(budget))
		return false
	}
	return true
}
