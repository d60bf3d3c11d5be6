package registry

import (
	"fmt"
	"sort"
	"sync"

	"hearthsim.ai/internal/sim/model"
	"hearthsim.ai/internal/sim/nav"
)

// CostFunc returns the travel time from the caller's position to p, or
// nav.Unreachable.
type CostFunc func(p model.Vec2) float64

type Station struct {
	ID      string
	Kind    model.StationType
	Pos     model.Vec2
	BuiltBy string
	SpotID  string
	// User holds the in-use flag: at most one agent uses a station at a time.
	User string
}

// Stations is the authoritative registry of facilities and resource nodes.
type Stations struct {
	mu    sync.Mutex
	byID  map[string]*Station
	order []string
	next  uint64
}

func NewStations() *Stations {
	return &Stations{byID: map[string]*Station{}}
}

func (r *Stations) Add(kind model.StationType, pos model.Vec2, builtBy, spotID string) Station {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	st := &Station{
		ID:      fmt.Sprintf("S%d", r.next),
		Kind:    kind,
		Pos:     pos,
		BuiltBy: builtBy,
		SpotID:  spotID,
	}
	r.byID[st.ID] = st
	r.order = append(r.order, st.ID)
	return *st
}

func (r *Stations) Remove(id string) (Station, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.byID[id]
	if !ok {
		return Station{}, false
	}
	delete(r.byID, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return *st, true
}

func (r *Stations) Get(id string) (Station, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.byID[id]
	if !ok {
		return Station{}, false
	}
	return *st, true
}

// All returns every station in creation order.
func (r *Stations) All() []Station {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Station, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.byID[id])
	}
	return out
}

func (r *Stations) OfKind(kind model.StationType) []Station {
	var out []Station
	for _, st := range r.All() {
		if st.Kind == kind {
			out = append(out, st)
		}
	}
	return out
}

func (r *Stations) ExistsOfType(kind model.StationType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, st := range r.byID {
		if st.Kind == kind {
			return true
		}
	}
	return false
}

// BestReachable picks the reachable station of kind with the lowest cost that
// is not in use by someone other than owner.
func (r *Stations) BestReachable(kind model.StationType, owner string, cost CostFunc) (Station, float64, bool) {
	var (
		best  Station
		bestT = nav.Unreachable
		found bool
	)
	for _, st := range r.All() {
		if st.Kind != kind || (st.User != "" && st.User != owner) {
			continue
		}
		t := cost(st.Pos)
		if nav.IsUnreachable(t) {
			continue
		}
		if !found || t < bestT {
			best, bestT, found = st, t, true
		}
	}
	return best, bestT, found
}

// Claim sets the in-use flag. Claiming a station already held by owner succeeds.
func (r *Stations) Claim(id, owner string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.byID[id]
	if !ok || owner == "" {
		return false
	}
	if st.User != "" && st.User != owner {
		return false
	}
	st.User = owner
	return true
}

func (r *Stations) ClaimedBy(id, owner string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.byID[id]
	return ok && owner != "" && st.User == owner
}

func (r *Stations) ReleaseClaim(id, owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.byID[id]; ok && st.User == owner {
		st.User = ""
	}
}

func (r *Stations) ReleaseAll(owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, st := range r.byID {
		if st.User == owner {
			st.User = ""
		}
	}
}

// Restore replaces the registry contents, keeping ids. In-use flags are dropped.
func (r *Stations) Restore(list []Station, next uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string]*Station, len(list))
	r.order = r.order[:0]
	sorted := append([]Station(nil), list...)
	sort.SliceStable(sorted, func(i, j int) bool { return idNum(sorted[i].ID) < idNum(sorted[j].ID) })
	for i := range sorted {
		st := sorted[i]
		st.User = ""
		r.byID[st.ID] = &st
		r.order = append(r.order, st.ID)
		if n := idNum(st.ID); n > next {
			next = n
		}
	}
	r.next = next
}

func (r *Stations) Counter() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.next
}

func idNum(id string) uint64 {
	var n uint64
	for i := 1; i < len(id); i++ {
		c := id[i]
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + uint64(c-'0')
	}
	return n
}
