package agent

// Decision event types. They are carried verbatim in the tick log, the
// observer stream and the sqlite index.
const (
	EventPlan      = "PLAN"
	EventNoPlan    = "NO_PLAN"
	EventBudget    = "BUDGET"
	EventSwitch    = "SWITCH"
	EventKeep      = "KEEP"
	EventActStart  = "ACT_START"
	EventActDone   = "ACT_DONE"
	EventInvalid   = "INVALID"
	EventStartFail = "START_FAIL"
	EventIdle      = "IDLE"
	EventBuilt     = "BUILT"
)

type Event struct {
	Agent  string  `json:"agent"`
	Type   string  `json:"type"`
	Need   string  `json:"need,omitempty"`
	Action string  `json:"action,omitempty"`
	Plan   string  `json:"plan,omitempty"`
	Cost   float64 `json:"cost,omitempty"`
	Score  float64 `json:"score,omitempty"`
	Detail string  `json:"detail,omitempty"`
}

func (a *Agent) emit(e Event) {
	e.Agent = a.id
	a.events = append(a.events, e)
	if a.logger != nil {
		a.logger.Printf("%s %s need=%s action=%s plan=%q cost=%.2f score=%.3f %s",
			a.id, e.Type, e.Need, e.Action, e.Plan, e.Cost, e.Score, e.Detail)
	}
}

// DrainEvents returns and clears the events buffered since the last call.
func (a *Agent) DrainEvents() []Event {
	if len(a.events) == 0 {
		return nil
	}
	out := a.events
	a.events = nil
	return out
}
