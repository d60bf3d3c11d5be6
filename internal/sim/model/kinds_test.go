package model

import "testing"

func TestParseRoundTrip(t *testing.T) {
	for _, n := range AllNeeds() {
		got, err := ParseNeed(n.String())
		if err != nil || got != n {
			t.Fatalf("ParseNeed(%q)=%v,%v", n.String(), got, err)
		}
	}
	for i := 0; i < StationCount; i++ {
		s := StationType(i)
		got, err := ParseStation(s.String())
		if err != nil || got != s {
			t.Fatalf("ParseStation(%q)=%v,%v", s.String(), got, err)
		}
	}
	if _, err := ParseNeed("thirst"); err == nil {
		t.Fatalf("expected unknown need error")
	}
	if got, _ := ParseStation("bed"); got != StationBed {
		t.Fatalf("case-insensitive parse: got %v", got)
	}
}

func TestStationFor(t *testing.T) {
	cases := map[NeedType]StationType{
		NeedSleep:  StationBed,
		NeedHunger: StationPot,
		NeedWarmth: StationFire,
	}
	for n, want := range cases {
		if got := StationFor(n); got != want {
			t.Fatalf("StationFor(%v)=%v want %v", n, got, want)
		}
	}
}

func TestVec2(t *testing.T) {
	a := V(0, 0)
	b := V(3, 4)
	if d := a.Dist(b); d != 5 {
		t.Fatalf("Dist=%v", d)
	}
	if n := b.Normalize(); n.Len() < 0.999999 || n.Len() > 1.000001 {
		t.Fatalf("Normalize len=%v", n.Len())
	}
	if z := (Vec2{}).Normalize(); z != (Vec2{}) {
		t.Fatalf("zero normalize=%v", z)
	}
}
