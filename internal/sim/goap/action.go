package goap

import "hearthsim.ai/internal/sim/model"

// Tag is a closed display enum. Planning and execution never branch on it.
type Tag uint8

const (
	TagGather Tag = iota + 1
	TagBuild
	TagUse
	TagWander
	TagWait
)

func (t Tag) String() string {
	switch t {
	case TagGather:
		return "GATHER"
	case TagBuild:
		return "BUILD"
	case TagUse:
		return "USE"
	case TagWander:
		return "WANDER"
	case TagWait:
		return "WAIT"
	default:
		return "UNKNOWN"
	}
}

type Phase uint8

const (
	PhaseNotStarted Phase = iota
	PhaseMoving
	PhaseInteracting
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseMoving:
		return "moving"
	case PhaseInteracting:
		return "interacting"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Transition is the result of applying an action during planning: the next
// simulated state and the concrete target the action would travel to.
type Transition struct {
	Next      WorldState
	Target    model.Vec2
	HasTarget bool
}

// PlanContext is the read-only view of the world an action may consult while
// planning. It never mutates registries.
type PlanContext interface {
	// TravelTime returns seconds from a to b stopping within tol, or nav.Unreachable.
	TravelTime(from, to model.Vec2, tol float64) float64
	ArriveDistance() float64
	// BestStation is the reachable, usable station of kind with the lowest travel time from `from`.
	BestStation(kind model.StationType, from model.Vec2, tol float64) (model.Vec2, bool)
	// BestSite is the reachable, unreserved build spot of kind with the lowest travel time.
	BestSite(kind model.StationType, from model.Vec2, tol float64) (model.Vec2, bool)
}

// Runtime is the agent-facing surface used while an action executes.
type Runtime interface {
	PlanContext

	ID() string
	Position() model.Vec2
	FindPath(from, to model.Vec2) ([]model.Vec2, bool)
	MoveToward(target model.Vec2, dt, tol float64) bool
	FollowPath(path []model.Vec2, cursor *int, dt, tol float64) bool

	Carried() int
	AddCarried(delta int)
	AddMeter(n model.NeedType, amount float64)

	// ClaimStation sets the in-use flag on the best usable station of kind.
	ClaimStation(kind model.StationType, tol float64) (id string, pos model.Vec2, ok bool)
	StationClaimed(id string) bool
	ReleaseStation(id string)
	StationAt(kind model.StationType, pos model.Vec2) bool

	// ReserveSite reserves the best free build spot of kind; repeated calls return the same spot.
	ReserveSite(kind model.StationType, tol float64) (id string, pos model.Vec2, ok bool)
	SiteHeld(id string) bool
	ReleaseSite(kind model.StationType)
	// PlaceStation builds a station on a reserved spot and releases the reservation.
	PlaceStation(kind model.StationType, spotID string) bool

	RandomWalkable(center model.Vec2, radius float64) (model.Vec2, bool)
}

type PlanningAction interface {
	Name() string
	Tag() Tag
	CanPlan(s WorldState) bool
	// ApplyEffects is pure: the same state always yields the same transition.
	ApplyEffects(ctx PlanContext, s WorldState) Transition
	// EstimateCost is travel time to the transition target plus the interaction duration.
	EstimateCost(ctx PlanContext, s WorldState) float64
}

type RuntimeAction interface {
	// Start returns false to fail fast; the plan is abandoned and re-planned.
	Start(rt Runtime) bool
	// Step returns true once the action has completed.
	Step(rt Runtime, dt float64) bool
	IsStillValid(rt Runtime) bool
	// Reset returns the action to PhaseNotStarted, releasing anything it holds.
	Reset()
	Phase() Phase
}

type Action interface {
	PlanningAction
	RuntimeAction
}
