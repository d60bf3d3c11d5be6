package world

import (
	"encoding/json"
	"strings"

	"hearthsim.ai/internal/protocol"
	"hearthsim.ai/internal/sim/agent"
)

type ObserverJoinRequest struct {
	SessionID string
	Out       chan []byte

	// FocusAgentID limits streamed events to one agent. Empty means all.
	FocusAgentID string
	EveryTicks   int
}

type observerClient struct {
	id         string
	out        chan []byte
	focus      string
	everyTicks uint64
}

// JoinObserver registers an observer with the world loop. WELCOME is the
// first frame sent on req.Out.
func (w *World) JoinObserver(req ObserverJoinRequest) bool {
	select {
	case w.observerJoin <- req:
		return true
	default:
		return false
	}
}

func (w *World) LeaveObserver(sessionID string) {
	select {
	case w.observerLeave <- sessionID:
	default:
	}
}

func (w *World) handleObserverJoin(req ObserverJoinRequest) {
	if req.SessionID == "" || req.Out == nil {
		return
	}
	every := req.EveryTicks
	if every <= 0 {
		every = w.cfg.ObserverEveryTicks
	}
	if every > 600 {
		every = 600
	}
	w.observers[req.SessionID] = &observerClient{
		id:         req.SessionID,
		out:        req.Out,
		focus:      strings.TrimSpace(req.FocusAgentID),
		everyTicks: uint64(every),
	}
	if b, err := json.Marshal(w.Welcome()); err == nil {
		sendLatest(req.Out, b)
	}
}

func (w *World) handleObserverLeave(id string) {
	delete(w.observers, id)
}

// Welcome describes the run and the static map.
func (w *World) Welcome() protocol.WelcomeMsg {
	g := w.grid
	var blocked [][2]int
	for row := 0; row < g.Rows(); row++ {
		for col := 0; col < g.Cols(); col++ {
			if !g.Walkable(col, row) {
				blocked = append(blocked, [2]int{col, row})
			}
		}
	}
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		RunID:           w.cfg.ID,
		Scenario:        w.cfg.Scenario,
		TickRateHz:      w.cfg.TickRateHz,
		Tick:            w.tick.Load(),
		Grid: protocol.GridParams{
			Origin:        g.Origin().Array(),
			CellSize:      g.CellSize(),
			Cols:          g.Cols(),
			Rows:          g.Rows(),
			AllowDiagonal: g.AllowDiagonal(),
			Blocked:       blocked,
		},
	}
}

func (w *World) broadcastTick(nowTick uint64, digest string, events []agent.Event) {
	if len(w.observers) == 0 {
		return
	}
	var frame *protocol.TickMsg
	for _, c := range w.observers {
		if nowTick%c.everyTicks != 0 {
			continue
		}
		if frame == nil {
			f := w.TickFrame(nowTick, digest, nil)
			frame = &f
		}
		msg := *frame
		msg.Events = observerEvents(events, c.focus)
		b, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		sendLatest(c.out, b)
	}
}

// TickFrame builds the TICK message for the current state.
func (w *World) TickFrame(nowTick uint64, digest string, events []agent.Event) protocol.TickMsg {
	msg := protocol.TickMsg{
		Type:            protocol.TypeTick,
		ProtocolVersion: protocol.Version,
		Tick:            nowTick,
		Digest:          digest,
		Agents:          make([]protocol.AgentObs, 0, len(w.agents)),
		Events:          observerEvents(events, ""),
	}
	for _, a := range w.agents {
		v := a.View()
		msg.Agents = append(msg.Agents, protocol.AgentObs{
			ID:        v.ID,
			Name:      v.Name,
			State:     v.State,
			Pos:       v.Pos,
			Carried:   v.Carried,
			Primary:   v.Primary,
			Meters:    v.Meters[:],
			Need:      v.Need,
			Plan:      v.Plan,
			Score:     v.Score,
			Head:      v.Head,
			HeadPhase: v.HeadStep,
		})
	}
	for _, st := range w.stations.All() {
		msg.Stations = append(msg.Stations, protocol.StationObs{
			ID: st.ID, Kind: st.Kind.String(), Pos: st.Pos.Array(), BuiltBy: st.BuiltBy, User: st.User,
		})
	}
	for _, sp := range w.spots.All() {
		msg.Spots = append(msg.Spots, protocol.SpotObs{
			ID: sp.ID, Kind: sp.Kind.String(), Pos: sp.Pos.Array(), Owner: sp.Owner, StationID: sp.StationID,
		})
	}
	return msg
}

func observerEvents(events []agent.Event, focus string) []protocol.Event {
	out := make([]protocol.Event, 0, len(events))
	for _, e := range events {
		if focus != "" && e.Agent != focus {
			continue
		}
		out = append(out, protocol.Event(e))
	}
	return out
}
