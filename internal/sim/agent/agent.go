package agent

import (
	"log"
	"math"

	"hearthsim.ai/internal/sim/actions"
	"hearthsim.ai/internal/sim/goap"
	"hearthsim.ai/internal/sim/model"
	"hearthsim.ai/internal/sim/movement"
	"hearthsim.ai/internal/sim/nav"
	"hearthsim.ai/internal/sim/needs"
	"hearthsim.ai/internal/sim/registry"
)

type State uint8

const (
	StateIdle State = iota
	StatePlanning
	StateExecuting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlanning:
		return "planning"
	case StateExecuting:
		return "executing"
	default:
		return "unknown"
	}
}

// Services are the shared world facilities an agent plans and acts against.
type Services struct {
	Grid     *nav.Grid
	Stations *registry.Stations
	Spots    *registry.Spots
	Planner  *goap.Planner
}

type Params struct {
	ID      string
	Name    string
	Pos     model.Vec2
	Primary model.NeedType
	Carried int
	// Meters overrides the starting meter values when set.
	Meters *[model.NeedCount]float64
	// Seed is the wander generator state; snapshots carry it forward.
	Seed int64
}

type Agent struct {
	id      string
	name    string
	primary model.NeedType

	cfg    Config
	svc    Services
	body   movement.Body
	meters *needs.Meters
	wood   int

	actions []goap.Action
	plan    *goap.Plan
	state   State

	evalTimer float64
	forceEval bool

	idle    [2]goap.Action
	idleIdx int
	idling  bool

	rng    splitmix
	events []Event
	logger *log.Logger
}

// New creates an agent. logger may be nil; it only receives decision traces.
func New(p Params, cfg Config, needsCfg needs.Config, svc Services, logger *log.Logger) *Agent {
	a := &Agent{
		id:      p.ID,
		name:    p.Name,
		primary: p.Primary,
		cfg:     cfg,
		svc:     svc,
		body:    movement.Body{Pos: p.Pos, Speed: cfg.Speed, ArriveDistance: cfg.ArriveDistance},
		meters:  needs.NewMeters(needsCfg),
		wood:    p.Carried,
		actions: actions.NewSet(cfg.Actions),
		idle: [2]goap.Action{
			actions.NewWander(cfg.Actions.Idle),
			actions.NewWait(cfg.Actions.Idle),
		},
		rng:    splitmix(p.Seed),
		logger: logger,
	}
	if a.wood < 0 {
		a.wood = 0
	}
	if p.Meters != nil {
		for i, v := range p.Meters {
			a.meters.Set(model.NeedType(i), v)
		}
	}
	return a
}

func (a *Agent) Name() string             { return a.name }
func (a *Agent) Primary() model.NeedType  { return a.primary }
func (a *Agent) State() State             { return a.state }
func (a *Agent) Meters() *needs.Meters    { return a.meters }
func (a *Agent) Plan() *goap.Plan         { return a.plan }
func (a *Agent) Actions() []goap.Action   { return a.actions }
func (a *Agent) SetLogger(l *log.Logger)  { a.logger = l }
func (a *Agent) SetPosition(p model.Vec2) { a.body.Pos = p }
func (a *Agent) SetCarried(n int)         { a.wood = max(0, n) }
func (a *Agent) RequestEvaluation()       { a.forceEval = true }
func (a *Agent) Seed() int64              { return int64(a.rng) }
func (a *Agent) Config() Config           { return a.cfg }
func (a *Agent) Services() Services       { return a.svc }
func (a *Agent) costFrom(from model.Vec2, tol float64) registry.CostFunc {
	return func(p model.Vec2) float64 { return a.TravelTime(from, p, tol) }
}

// ---- goap.PlanContext ----

func (a *Agent) TravelTime(from, to model.Vec2, tol float64) float64 {
	return a.svc.Grid.EstimateTravelTime(from, to, a.cfg.Speed, tol)
}

func (a *Agent) ArriveDistance() float64 { return a.cfg.ArriveDistance }

func (a *Agent) BestStation(kind model.StationType, from model.Vec2, tol float64) (model.Vec2, bool) {
	st, _, ok := a.svc.Stations.BestReachable(kind, a.id, a.costFrom(from, tol))
	return st.Pos, ok
}

func (a *Agent) BestSite(kind model.StationType, from model.Vec2, tol float64) (model.Vec2, bool) {
	sp, _, ok := a.svc.Spots.BestFree(kind, a.id, a.costFrom(from, tol))
	return sp.Pos, ok
}

// ---- goap.Runtime ----

func (a *Agent) ID() string                                { return a.id }
func (a *Agent) Position() model.Vec2                      { return a.body.Pos }
func (a *Agent) Carried() int                              { return a.wood }
func (a *Agent) AddCarried(delta int)                      { a.wood = max(0, a.wood+delta) }
func (a *Agent) AddMeter(n model.NeedType, amount float64) { a.meters.Add(n, amount) }

func (a *Agent) FindPath(from, to model.Vec2) ([]model.Vec2, bool) {
	p, ok := a.svc.Grid.FindPath(from, to)
	if !ok {
		return nil, false
	}
	return p.Waypoints, true
}

func (a *Agent) MoveToward(target model.Vec2, dt, tol float64) bool {
	return a.body.MoveToward(target, dt, tol)
}

func (a *Agent) FollowPath(path []model.Vec2, cursor *int, dt, tol float64) bool {
	return a.body.FollowPath(path, cursor, dt, tol)
}

func (a *Agent) ClaimStation(kind model.StationType, tol float64) (string, model.Vec2, bool) {
	st, _, ok := a.svc.Stations.BestReachable(kind, a.id, a.costFrom(a.body.Pos, tol))
	if !ok || !a.svc.Stations.Claim(st.ID, a.id) {
		return "", model.Vec2{}, false
	}
	return st.ID, st.Pos, true
}

func (a *Agent) StationClaimed(id string) bool { return a.svc.Stations.ClaimedBy(id, a.id) }
func (a *Agent) ReleaseStation(id string)      { a.svc.Stations.ReleaseClaim(id, a.id) }

func (a *Agent) StationAt(kind model.StationType, pos model.Vec2) bool {
	for _, st := range a.svc.Stations.OfKind(kind) {
		if st.Pos == pos {
			return true
		}
	}
	return false
}

func (a *Agent) ReserveSite(kind model.StationType, tol float64) (string, model.Vec2, bool) {
	sp, ok := a.svc.Spots.TryReserve(kind, a.id, a.costFrom(a.body.Pos, tol))
	if !ok {
		return "", model.Vec2{}, false
	}
	return sp.ID, sp.Pos, true
}

func (a *Agent) SiteHeld(id string) bool {
	sp, ok := a.svc.Spots.Get(id)
	return ok && sp.Owner == a.id && sp.StationID == ""
}

func (a *Agent) ReleaseSite(kind model.StationType) { a.svc.Spots.Release(kind, a.id) }

func (a *Agent) PlaceStation(kind model.StationType, spotID string) bool {
	sp, ok := a.svc.Spots.Get(spotID)
	if !ok || sp.Owner != a.id || sp.StationID != "" || sp.Kind != kind {
		return false
	}
	st := a.svc.Stations.Add(kind, sp.Pos, a.id, spotID)
	if !a.svc.Spots.Occupy(spotID, st.ID) {
		a.svc.Stations.Remove(st.ID)
		return false
	}
	a.emit(Event{Type: EventBuilt, Detail: st.ID + " " + kind.String() + " at " + spotID})
	return true
}

// RandomWalkable samples a reachable walkable point within radius of center.
func (a *Agent) RandomWalkable(center model.Vec2, radius float64) (model.Vec2, bool) {
	if !(radius > 0) {
		return model.Vec2{}, false
	}
	tries := a.cfg.WanderTries
	if tries <= 0 {
		tries = 1
	}
	for i := 0; i < tries; i++ {
		ang := a.rng.float64() * 2 * math.Pi
		r := radius * math.Sqrt(a.rng.float64())
		p := center.Add(model.V(math.Cos(ang)*r, math.Sin(ang)*r))
		if !a.svc.Grid.WalkableAt(p) {
			continue
		}
		if _, ok := a.svc.Grid.PathLength(a.body.Pos, p); ok {
			return p, true
		}
	}
	return model.Vec2{}, false
}

// splitmix is a splitmix64 generator whose whole state is one word.
type splitmix uint64

func (s *splitmix) next() uint64 {
	*s += 0x9e3779b97f4a7c15
	z := uint64(*s)
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func (s *splitmix) float64() float64 { return float64(s.next()>>11) / (1 << 53) }
