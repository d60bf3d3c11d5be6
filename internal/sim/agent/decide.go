package agent

import (
	"errors"
	"fmt"
	"strings"

	"hearthsim.ai/internal/sim/goap"
	"hearthsim.ai/internal/sim/model"
)

// Score ranks a plan: lower is better. Urgency shrinks the score and cost
// grows it.
func (s Scoring) Score(cost, urgency float64, primary bool) float64 {
	pref := s.OtherMultiplier
	if primary {
		pref = s.PrimaryMultiplier
	}
	return s.CostWeight * cost * pref / (s.UrgencyFloor + s.UrgencyWeight*urgency)
}

// ShouldSwitch adopts the candidate when nothing is held, otherwise only when
// it beats the current score by more than margin.
func ShouldSwitch(held bool, current, candidate, margin float64) bool {
	if !held {
		return true
	}
	return candidate < current*(1-margin)
}

// Snapshot builds the planning start state for need from the live world.
func (a *Agent) Snapshot(need model.NeedType) goap.WorldState {
	var exists [model.StationCount]bool
	for k := range exists {
		_, exists[k] = a.BestStation(model.StationType(k), a.body.Pos, a.cfg.ArriveDistance)
	}
	return goap.NewSnapshot(a.body.Pos, a.wood, exists, need)
}

func (a *Agent) urgencies() [model.NeedCount]float64 {
	var u [model.NeedCount]float64
	for _, n := range model.AllNeeds() {
		u[n] = a.meters.Urgency(n)
	}
	return u
}

// evaluate re-plans every urgent need and adopts the best candidate subject
// to hysteresis.
func (a *Agent) evaluate() {
	a.forceEval = false
	a.evalTimer = a.cfg.EvalEvery
	urg := a.urgencies()

	anyUrgent := false
	for _, u := range urg {
		if u > 0 {
			anyUrgent = true
			break
		}
	}
	if !anyUrgent {
		if a.plan != nil {
			a.dropPlan()
		}
		return
	}
	if a.plan != nil && urg[a.plan.Need] <= 0 {
		a.dropPlan()
	}

	prev := a.state
	a.state = StatePlanning
	var (
		best     *goap.Plan
		failed   []string
		overflow []string
	)
	for _, n := range model.AllNeeds() {
		if urg[n] <= 0 {
			continue
		}
		p, err := a.svc.Planner.Plan(a, a.Snapshot(n), a.actions, goap.Goal{Need: n})
		if err != nil {
			if errors.Is(err, goap.ErrBudgetExceeded) {
				overflow = append(overflow, n.String())
			} else {
				failed = append(failed, n.String())
			}
			continue
		}
		p.Score = a.cfg.Scoring.Score(p.Cost, urg[n], n == a.primary)
		if best == nil || p.Score < best.Score {
			cand := p
			best = &cand
		}
	}
	if len(overflow) > 0 {
		a.emit(Event{Type: EventBudget, Detail: strings.Join(overflow, ",")})
	}
	if best == nil {
		a.emit(Event{Type: EventNoPlan, Detail: strings.Join(failed, ",")})
		a.state = prev
		if a.plan == nil {
			a.state = StateIdle
		}
		return
	}

	if a.plan == nil {
		a.adopt(best, EventPlan)
		return
	}
	current := a.cfg.Scoring.Score(a.heldCost(), urg[a.plan.Need], a.plan.Need == a.primary)
	a.plan.Score = current
	if ShouldSwitch(true, current, best.Score, a.cfg.Scoring.HysteresisMargin) {
		a.adopt(best, EventSwitch)
		return
	}
	a.state = StateExecuting
	a.emit(Event{
		Type:   EventKeep,
		Need:   a.plan.Need.String(),
		Plan:   a.plan.String(),
		Score:  current,
		Detail: fmt.Sprintf("candidate %s %.3f", best.Need, best.Score),
	})
}

// heldCost is what is left of the held plan seen from the current position.
// The head step is costed again, so travel already done does not count
// against it; later steps keep their planned costs.
func (a *Agent) heldCost() float64 {
	p := a.plan
	if p.Empty() {
		return 0
	}
	head := p.Steps[0]
	rest := p.Remaining() - head.Cost
	if c := head.Action.EstimateCost(a, a.Snapshot(p.Need)); c < head.Cost {
		return rest + c
	}
	return p.Remaining()
}

func (a *Agent) adopt(p *goap.Plan, why string) {
	a.resetActions()
	a.plan = p
	a.state = StateExecuting
	a.emit(Event{
		Type:  why,
		Need:  p.Need.String(),
		Plan:  p.String(),
		Cost:  p.Cost,
		Score: p.Score,
	})
}

// dropPlan discards the held plan and releases everything the agent holds in
// either registry.
func (a *Agent) dropPlan() {
	a.resetActions()
	a.svc.Stations.ReleaseAll(a.id)
	a.svc.Spots.ReleaseAll(a.id)
	a.plan = nil
	a.state = StateIdle
}

func (a *Agent) resetActions() {
	for _, act := range a.actions {
		act.Reset()
	}
	for _, act := range a.idle {
		act.Reset()
	}
	a.idling = false
}
