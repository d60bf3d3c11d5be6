package goap

import (
	"strings"

	"hearthsim.ai/internal/sim/model"
)

type Step struct {
	Action    Action
	Cost      float64
	Target    model.Vec2
	HasTarget bool
}

// Plan is executed front to back.
type Plan struct {
	Need     model.NeedType
	Steps    []Step
	Cost     float64
	Score    float64
	Expanded int
}

func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Steps)
}

func (p *Plan) Empty() bool { return p.Len() == 0 }

func (p *Plan) Head() Action {
	if p.Empty() {
		return nil
	}
	return p.Steps[0].Action
}

func (p *Plan) Pop() Action {
	if p.Empty() {
		return nil
	}
	a := p.Steps[0].Action
	p.Steps = p.Steps[1:]
	return a
}

func (p *Plan) Names() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		out = append(out, s.Action.Name())
	}
	return out
}

func (p *Plan) String() string {
	if p.Empty() {
		return "(empty)"
	}
	return strings.Join(p.Names(), " -> ")
}

// Remaining is the summed cost of the steps not yet popped.
func (p *Plan) Remaining() float64 {
	if p == nil {
		return 0
	}
	var sum float64
	for _, s := range p.Steps {
		sum += s.Cost
	}
	return sum
}
