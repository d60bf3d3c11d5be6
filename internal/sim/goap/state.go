package goap

import (
	"fmt"
	"strings"

	"hearthsim.ai/internal/sim/model"
)

// WorldState is the finite-domain record the planner searches over. It is a
// comparable value and is used directly as a map key.
type WorldState struct {
	Pos       model.Vec2
	Carried   int
	Exists    [model.StationCount]bool
	Satisfied [model.NeedCount]bool
}

// NewSnapshot builds a start state targeting need: that need starts
// unsatisfied and every other need starts satisfied.
func NewSnapshot(pos model.Vec2, carried int, exists [model.StationCount]bool, need model.NeedType) WorldState {
	s := WorldState{Pos: pos, Carried: carried, Exists: exists}
	for i := range s.Satisfied {
		s.Satisfied[i] = model.NeedType(i) != need
	}
	return s
}

func (s WorldState) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pos=(%.2f,%.2f) wood=%d", s.Pos.X, s.Pos.Y, s.Carried)
	for i, ok := range s.Exists {
		if ok {
			fmt.Fprintf(&b, " +%v", model.StationType(i))
		}
	}
	for i, ok := range s.Satisfied {
		if !ok {
			fmt.Fprintf(&b, " !%v", model.NeedType(i))
		}
	}
	return b.String()
}

func clampCarried(v, cap int) int {
	if v < 0 {
		return 0
	}
	if v > cap {
		return cap
	}
	return v
}

type Goal struct {
	Need model.NeedType
}

func (g Goal) IsSatisfied(s WorldState) bool {
	if int(g.Need) >= model.NeedCount {
		return false
	}
	return s.Satisfied[g.Need]
}

func (g Goal) String() string { return "Satisfy(" + g.Need.String() + ")" }
