package nav

import (
	"math"

	"hearthsim.ai/internal/sim/model"
)

// Unreachable is the travel time reported for routes that cannot be used.
// It is large but finite so that sums over plan steps stay ordered.
const Unreachable = 1e9

func IsUnreachable(t float64) bool { return !(t < Unreachable) }

// Path is a route produced by FindPath. The last waypoint is the exact goal
// point. Length is the grid route cost converted to world distance: 10 per
// orthogonal step and 14 per diagonal step, divided by 10, times the cell size.
type Path struct {
	Waypoints []model.Vec2
	Length    float64
}

func (p Path) Empty() bool { return len(p.Waypoints) == 0 }

func (p Path) Final() model.Vec2 {
	if len(p.Waypoints) == 0 {
		return model.Vec2{}
	}
	return p.Waypoints[len(p.Waypoints)-1]
}

// TravelDistance is the distance charged for following p from `from` until
// the arrival check at radius tol succeeds.
func (p Path) TravelDistance(from model.Vec2, tol float64) float64 {
	if p.Empty() {
		return 0
	}
	return travelDistance(from, p.Final(), p.Length, tol)
}

func travelDistance(from, goal model.Vec2, length, tol float64) float64 {
	if tol < 0 || math.IsNaN(tol) {
		tol = 0
	}
	if from.Dist(goal) <= tol {
		return 0
	}
	return math.Max(0, length-tol)
}

// resolve maps both points onto cells. start and goal are walkable, with the
// nearest walkable cell within the search radius substituted for a blocked
// raw cell.
func (g *Grid) resolve(from, to model.Vec2) (rawStart, rawGoal, start, goal cell, ok bool) {
	fc, fr, ok1 := g.CellOf(from)
	tc, tr, ok2 := g.CellOf(to)
	if !ok1 || !ok2 {
		return cell{}, cell{}, cell{}, cell{}, false
	}
	rawStart = cell{col: fc, row: fr}
	rawGoal = cell{col: tc, row: tr}
	start, ok1 = g.nearestWalkable(rawStart)
	goal, ok2 = g.nearestWalkable(rawGoal)
	if !ok1 || !ok2 {
		return cell{}, cell{}, cell{}, cell{}, false
	}
	return rawStart, rawGoal, start, goal, true
}

// route runs the search and converts its cost. A substituted end adds its hop
// to the blocked cell at the same step costs, so swapping the endpoints never
// changes Length.
func (g *Grid) route(from, to model.Vec2, keep bool) (Path, bool) {
	rawStart, rawGoal, start, goal, ok := g.resolve(from, to)
	if !ok {
		return Path{}, false
	}
	cells, cost, ok := g.cells(start, goal)
	if !ok || len(cells) == 0 {
		return Path{}, false
	}
	cost += g.heuristic(rawStart, start) + g.heuristic(goal, rawGoal)

	p := Path{Length: float64(cost) / stepCost * g.cellSize}
	if !keep {
		return p, true
	}
	first := 1
	if start != rawStart {
		first = 0
	}
	last := len(cells) - 1
	if goal == rawGoal {
		// The goal cell's center is replaced by the goal point itself.
		last--
	}
	for i := first; i <= last; i++ {
		p.Waypoints = append(p.Waypoints, g.CellCenter(cells[i].col, cells[i].row))
	}
	p.Waypoints = append(p.Waypoints, to)
	return p, true
}

// FindPath returns the waypoints from `from` to `to`.
func (g *Grid) FindPath(from, to model.Vec2) (Path, bool) {
	return g.route(from, to, true)
}

// PathLength returns the same length FindPath would, without building waypoints.
func (g *Grid) PathLength(from, to model.Vec2) (float64, bool) {
	p, ok := g.route(from, to, false)
	return p.Length, ok
}

// EstimateTravelTime returns the seconds needed to travel from `from` until
// within tolerance of `to` at the given speed, or Unreachable.
func (g *Grid) EstimateTravelTime(from, to model.Vec2, speed, tolerance float64) float64 {
	if !(speed > 0) || math.IsInf(speed, 0) {
		return Unreachable
	}
	if !from.IsFinite() || !to.IsFinite() {
		return Unreachable
	}
	if tolerance < 0 || math.IsNaN(tolerance) {
		tolerance = 0
	}
	if from.Dist(to) <= tolerance {
		return 0
	}
	p, ok := g.route(from, to, false)
	if !ok {
		return Unreachable
	}
	t := travelDistance(from, to, p.Length, tolerance) / speed
	if IsUnreachable(t) {
		return Unreachable
	}
	return t
}
