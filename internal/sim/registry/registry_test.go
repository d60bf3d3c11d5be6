package registry

import (
	"testing"

	"hearthsim.ai/internal/sim/model"
	"hearthsim.ai/internal/sim/nav"
)

func distFrom(from model.Vec2) CostFunc {
	return func(p model.Vec2) float64 { return from.Dist(p) }
}

func TestBestReachableSkipsUnreachableAndClaimed(t *testing.T) {
	r := NewStations()
	near := r.Add(model.StationBed, model.V(1, 0), "", "")
	far := r.Add(model.StationBed, model.V(5, 0), "", "")
	walled := r.Add(model.StationBed, model.V(0.5, 0), "", "")
	r.Add(model.StationPot, model.V(0.1, 0), "", "")

	cost := func(p model.Vec2) float64 {
		if p == walled.Pos {
			return nav.Unreachable
		}
		return p.Dist(model.V(0, 0))
	}
	st, tt, ok := r.BestReachable(model.StationBed, "A1", cost)
	if !ok || st.ID != near.ID || tt != 1 {
		t.Fatalf("BestReachable=%+v,%v,%v", st, tt, ok)
	}

	if !r.Claim(near.ID, "A2") {
		t.Fatalf("claim failed")
	}
	if r.Claim(near.ID, "A1") {
		t.Fatalf("second user must not claim")
	}
	st, _, ok = r.BestReachable(model.StationBed, "A1", cost)
	if !ok || st.ID != far.ID {
		t.Fatalf("expected far bed while near is in use, got %+v", st)
	}
	st, _, _ = r.BestReachable(model.StationBed, "A2", cost)
	if st.ID != near.ID {
		t.Fatalf("claimant should still see its own station, got %+v", st)
	}
	r.ReleaseAll("A2")
	if !r.Claim(near.ID, "A1") {
		t.Fatalf("claim after release failed")
	}
	if !r.ClaimedBy(near.ID, "A1") {
		t.Fatalf("ClaimedBy false")
	}
}

func TestStationsRemoveAndExists(t *testing.T) {
	r := NewStations()
	s := r.Add(model.StationFire, model.V(2, 2), "A1", "P1")
	if !r.ExistsOfType(model.StationFire) || r.ExistsOfType(model.StationBed) {
		t.Fatalf("ExistsOfType mismatch")
	}
	if _, ok := r.Remove(s.ID); !ok {
		t.Fatalf("remove failed")
	}
	if r.ExistsOfType(model.StationFire) {
		t.Fatalf("fire still exists")
	}
	if _, ok := r.Remove(s.ID); ok {
		t.Fatalf("double remove succeeded")
	}
	if got := r.Add(model.StationFire, model.V(0, 0), "", ""); got.ID != "S2" {
		t.Fatalf("ids must not be reused, got %s", got.ID)
	}
}

func TestTryReserveSingleOwner(t *testing.T) {
	r := NewSpots()
	a := r.AddSpot(model.StationBed, model.V(2, 0))
	b := r.AddSpot(model.StationBed, model.V(6, 0))
	r.AddSpot(model.StationPot, model.V(1, 0))

	got, ok := r.TryReserve(model.StationBed, "A1", distFrom(model.V(0, 0)))
	if !ok || got.ID != a.ID {
		t.Fatalf("A1 reserve=%+v,%v", got, ok)
	}
	// Re-entrant start by the same owner is idempotent even from elsewhere.
	again, ok := r.TryReserve(model.StationBed, "A1", distFrom(model.V(6, 0)))
	if !ok || again.ID != a.ID {
		t.Fatalf("idempotent reserve=%+v,%v", again, ok)
	}
	got, ok = r.TryReserve(model.StationBed, "A2", distFrom(model.V(0, 0)))
	if !ok || got.ID != b.ID {
		t.Fatalf("A2 should get the remaining spot, got %+v,%v", got, ok)
	}
	if _, ok := r.TryReserve(model.StationBed, "A3", distFrom(model.V(0, 0))); ok {
		t.Fatalf("A3 must lose: no free spots")
	}
	if _, _, ok := r.BestFree(model.StationBed, "A3", distFrom(model.V(0, 0))); ok {
		t.Fatalf("BestFree must not offer reserved spots")
	}

	r.Release(model.StationBed, "A1")
	got, ok = r.TryReserve(model.StationBed, "A3", distFrom(model.V(0, 0)))
	if !ok || got.ID != a.ID {
		t.Fatalf("A3 after release=%+v,%v", got, ok)
	}
}

func TestOccupyAndVacate(t *testing.T) {
	r := NewSpots()
	sp := r.AddSpot(model.StationFire, model.V(1, 1))
	if _, ok := r.TryReserve(model.StationFire, "A1", distFrom(model.V(0, 0))); !ok {
		t.Fatalf("reserve failed")
	}
	if !r.Occupy(sp.ID, "S9") {
		t.Fatalf("occupy failed")
	}
	if _, ok := r.Held(model.StationFire, "A1"); ok {
		t.Fatalf("occupied spot still held")
	}
	if _, ok := r.TryReserve(model.StationFire, "A2", distFrom(model.V(0, 0))); ok {
		t.Fatalf("occupied spot reserved")
	}
	r.Vacate("S9")
	if _, ok := r.TryReserve(model.StationFire, "A2", distFrom(model.V(0, 0))); !ok {
		t.Fatalf("vacated spot not reservable")
	}
}

func TestUnreachableSpotIgnored(t *testing.T) {
	r := NewSpots()
	r.AddSpot(model.StationBed, model.V(3, 3))
	cost := func(model.Vec2) float64 { return nav.Unreachable }
	if _, ok := r.TryReserve(model.StationBed, "A1", cost); ok {
		t.Fatalf("unreachable spot reserved")
	}
}

func TestRestoreKeepsIDs(t *testing.T) {
	r := NewStations()
	r.Restore([]Station{
		{ID: "S7", Kind: model.StationBed, User: "A1"},
		{ID: "S3", Kind: model.StationWood},
	}, 0)
	all := r.All()
	if len(all) != 2 || all[0].ID != "S3" || all[1].ID != "S7" {
		t.Fatalf("restore order=%+v", all)
	}
	if got := r.Add(model.StationPot, model.V(0, 0), "", ""); got.ID != "S8" {
		t.Fatalf("next id=%s", got.ID)
	}
	sp := NewSpots()
	sp.Restore([]Spot{{ID: "P2", Kind: model.StationBed, Owner: "A1"}}, 0)
	if got := sp.All(); got[0].Owner != "" {
		t.Fatalf("reservations must not survive restore: %+v", got[0])
	}
}
