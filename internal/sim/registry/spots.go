package registry

import (
	"fmt"
	"sort"
	"sync"

	"hearthsim.ai/internal/sim/model"
	"hearthsim.ai/internal/sim/nav"
)

// Spot is a physical build location. Owner is the reservation token; a spot
// with a StationID is occupied by the facility built on it.
type Spot struct {
	ID        string
	Kind      model.StationType
	Pos       model.Vec2
	Owner     string
	StationID string
}

func (s Spot) free() bool { return s.Owner == "" && s.StationID == "" }

// Spots is the build-spot reservation registry.
type Spots struct {
	mu    sync.Mutex
	byID  map[string]*Spot
	order []string
	next  uint64
}

func NewSpots() *Spots {
	return &Spots{byID: map[string]*Spot{}}
}

func (r *Spots) AddSpot(kind model.StationType, pos model.Vec2) Spot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	sp := &Spot{ID: fmt.Sprintf("P%d", r.next), Kind: kind, Pos: pos}
	r.byID[sp.ID] = sp
	r.order = append(r.order, sp.ID)
	return *sp
}

func (r *Spots) All() []Spot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Spot, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.byID[id])
	}
	return out
}

func (r *Spots) Get(id string) (Spot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sp, ok := r.byID[id]
	if !ok {
		return Spot{}, false
	}
	return *sp, true
}

// Held returns the unoccupied spot of kind reserved by owner, if any.
func (r *Spots) Held(kind model.StationType, owner string) (Spot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sp := r.heldLocked(kind, owner)
	if sp == nil {
		return Spot{}, false
	}
	return *sp, true
}

func (r *Spots) heldLocked(kind model.StationType, owner string) *Spot {
	if owner == "" {
		return nil
	}
	for _, id := range r.order {
		sp := r.byID[id]
		if sp.Kind == kind && sp.Owner == owner && sp.StationID == "" {
			return sp
		}
	}
	return nil
}

func (r *Spots) bestLocked(kind model.StationType, owner string, cost CostFunc) (*Spot, float64) {
	var (
		best  *Spot
		bestT = nav.Unreachable
	)
	for _, id := range r.order {
		sp := r.byID[id]
		if sp.Kind != kind || sp.StationID != "" {
			continue
		}
		if sp.Owner != "" && sp.Owner != owner {
			continue
		}
		t := cost(sp.Pos)
		if nav.IsUnreachable(t) {
			continue
		}
		if best == nil || t < bestT {
			best, bestT = sp, t
		}
	}
	return best, bestT
}

// BestFree is the read-only planning query: the reachable spot with the
// lowest cost that is free or already reserved by owner.
func (r *Spots) BestFree(kind model.StationType, owner string, cost CostFunc) (Spot, float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sp := r.heldLocked(kind, owner); sp != nil {
		if t := cost(sp.Pos); !nav.IsUnreachable(t) {
			return *sp, t, true
		}
	}
	sp, t := r.bestLocked(kind, owner, cost)
	if sp == nil {
		return Spot{}, nav.Unreachable, false
	}
	return *sp, t, true
}

// TryReserve atomically reserves the best free spot of kind for owner. An
// owner that already holds a spot of this kind gets the same spot back.
func (r *Spots) TryReserve(kind model.StationType, owner string, cost CostFunc) (Spot, bool) {
	if owner == "" {
		return Spot{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if sp := r.heldLocked(kind, owner); sp != nil {
		return *sp, true
	}
	sp, _ := r.bestLocked(kind, owner, cost)
	if sp == nil {
		return Spot{}, false
	}
	sp.Owner = owner
	return *sp, true
}

func (r *Spots) Release(kind model.StationType, owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sp := range r.byID {
		if sp.Kind == kind && sp.Owner == owner {
			sp.Owner = ""
		}
	}
}

func (r *Spots) ReleaseAll(owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sp := range r.byID {
		if sp.Owner == owner {
			sp.Owner = ""
		}
	}
}

// Occupy marks a spot as built on and drops its reservation.
func (r *Spots) Occupy(spotID, stationID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sp, ok := r.byID[spotID]
	if !ok || sp.StationID != "" {
		return false
	}
	sp.Owner = ""
	sp.StationID = stationID
	return true
}

// Vacate frees the spot a removed station stood on.
func (r *Spots) Vacate(stationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sp := range r.byID {
		if sp.StationID == stationID {
			sp.StationID = ""
		}
	}
}

// Restore replaces the registry contents. Reservations are not restored.
func (r *Spots) Restore(list []Spot, next uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string]*Spot, len(list))
	r.order = r.order[:0]
	sorted := append([]Spot(nil), list...)
	sort.SliceStable(sorted, func(i, j int) bool { return idNum(sorted[i].ID) < idNum(sorted[j].ID) })
	for i := range sorted {
		sp := sorted[i]
		sp.Owner = ""
		r.byID[sp.ID] = &sp
		r.order = append(r.order, sp.ID)
		if n := idNum(sp.ID); n > next {
			next = n
		}
	}
	r.next = next
}

func (r *Spots) Counter() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.next
}
