package agent

import (
	"hearthsim.ai/internal/sim/goap"
	"hearthsim.ai/internal/sim/model"
)

// View is an exported read-only picture of an agent.
type View struct {
	ID       string                   `json:"id"`
	Name     string                   `json:"name"`
	State    string                   `json:"state"`
	Pos      [2]float64               `json:"pos"`
	Carried  int                      `json:"carried"`
	Primary  string                   `json:"primary"`
	Meters   [model.NeedCount]float64 `json:"meters"`
	Need     string                   `json:"need,omitempty"`
	Plan     string                   `json:"plan,omitempty"`
	Score    float64                  `json:"score,omitempty"`
	Head     string                   `json:"head,omitempty"`
	HeadStep string                   `json:"head_phase,omitempty"`
}

func (a *Agent) View() View {
	v := View{
		ID:      a.id,
		Name:    a.name,
		State:   a.state.String(),
		Pos:     a.body.Pos.Array(),
		Carried: a.wood,
		Primary: a.primary.String(),
		Meters:  a.meters.Values(),
	}
	if a.plan != nil {
		v.Need = a.plan.Need.String()
		v.Plan = a.plan.String()
		v.Score = a.plan.Score
		if h := a.plan.Head(); h != nil {
			v.Head = h.Name()
			v.HeadStep = h.Phase().String()
		}
	}
	return v
}

// HeadPhase is the phase of the current plan step, PhaseNotStarted when idle.
func (a *Agent) HeadPhase() goap.Phase {
	if h := a.plan.Head(); h != nil {
		return h.Phase()
	}
	return goap.PhaseNotStarted
}
