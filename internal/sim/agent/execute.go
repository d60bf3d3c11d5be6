package agent

import "hearthsim.ai/internal/sim/goap"

// replanAttempts bounds same-tick re-evaluation after an invalidated head.
const replanAttempts = 2

// Tick advances the agent by dt seconds.
func (a *Agent) Tick(dt float64) {
	if !(dt > 0) {
		return
	}
	a.meters.Tick(dt)
	a.evalTimer -= dt
	if a.forceEval || a.evalTimer <= 0 {
		a.evaluate()
	}
	a.execute(dt)
}

func (a *Agent) execute(dt float64) {
	for attempt := 0; ; attempt++ {
		if a.plan.Empty() {
			a.plan = nil
			a.runIdle(dt)
			return
		}
		head := a.plan.Head()
		a.state = StateExecuting
		ok := head.IsStillValid(a)
		reason := EventInvalid
		if ok && head.Phase() == goap.PhaseNotStarted {
			if ok = head.Start(a); ok {
				a.emit(Event{Type: EventActStart, Need: a.plan.Need.String(), Action: head.Name()})
			} else {
				reason = EventStartFail
			}
		}
		if !ok {
			a.emit(Event{Type: reason, Need: a.plan.Need.String(), Action: head.Name(), Plan: a.plan.String()})
			a.dropPlan()
			if attempt+1 >= replanAttempts {
				a.forceEval = true
				a.runIdle(dt)
				return
			}
			a.evaluate()
			continue
		}
		if !head.Step(a, dt) {
			return
		}
		a.emit(Event{Type: EventActDone, Need: a.plan.Need.String(), Action: head.Name()})
		head.Reset()
		a.plan.Pop()
		if a.plan.Empty() {
			a.plan = nil
			a.state = StateIdle
			a.forceEval = true
		}
		return
	}
}

// runIdle alternates wandering and waiting while no plan is held.
func (a *Agent) runIdle(dt float64) {
	if !a.idling {
		a.idling = true
		a.state = StateIdle
		a.emit(Event{Type: EventIdle})
	}
	act := a.idle[a.idleIdx]
	if act.Phase() == goap.PhaseNotStarted && !act.Start(a) {
		act.Reset()
		a.idleIdx = (a.idleIdx + 1) % len(a.idle)
		return
	}
	if act.Step(a, dt) {
		act.Reset()
		a.idleIdx = (a.idleIdx + 1) % len(a.idle)
	}
}
