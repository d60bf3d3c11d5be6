package world

import (
	"fmt"

	"hearthsim.ai/internal/protocol"
	"hearthsim.ai/internal/sim/model"
)

// Command is an observer intervention. Commands are applied at the start of
// the next tick and recorded in the tick log so replays see them too.
type Command struct {
	ID        string  `json:"id,omitempty"`
	Kind      string  `json:"kind"`
	Actor     string  `json:"actor,omitempty"`
	StationID string  `json:"station_id,omitempty"`
	AgentID   string  `json:"agent_id,omitempty"`
	Need      string  `json:"need,omitempty"`
	Value     float64 `json:"value,omitempty"`
}

type CommandResult struct {
	Tick    uint64
	OK      bool
	Code    string
	Message string
}

type CommandRequest struct {
	Cmd  Command
	Resp chan CommandResult
}

// Submit queues a command for the world loop. It never blocks: a full queue
// answers E_WORLD_BUSY.
func (w *World) Submit(cmd Command) <-chan CommandResult {
	resp := make(chan CommandResult, 1)
	select {
	case w.cmds <- CommandRequest{Cmd: cmd, Resp: resp}:
	default:
		resp <- CommandResult{Tick: w.tick.Load(), Code: protocol.ErrWorldBusy, Message: "command queue full"}
	}
	return resp
}

func (w *World) applyCommands(nowTick uint64, reqs []CommandRequest) []Command {
	if len(reqs) == 0 {
		return nil
	}
	applied := make([]Command, 0, len(reqs))
	for _, r := range reqs {
		res := w.applyCommand(r.Cmd)
		res.Tick = nowTick
		if res.OK {
			applied = append(applied, r.Cmd)
		}
		entry := CommandEntry{Tick: nowTick, RunID: w.cfg.ID, Cmd: r.Cmd, OK: res.OK, Code: res.Code, Reason: res.Message}
		if w.cmdLogger != nil {
			_ = w.cmdLogger.WriteCommand(entry)
		}
		if w.index != nil {
			_ = w.index.WriteCommand(entry)
		}
		if r.Resp != nil {
			select {
			case r.Resp <- res:
			default:
			}
		}
	}
	return applied
}

func (w *World) applyCommand(c Command) CommandResult {
	switch c.Kind {
	case protocol.CmdRemoveStation:
		st, ok := w.stations.Remove(c.StationID)
		if !ok {
			return CommandResult{Code: protocol.ErrNotFound, Message: fmt.Sprintf("no station %q", c.StationID)}
		}
		w.spots.Vacate(st.ID)
		w.logf("removed station %s (%v) at %v", st.ID, st.Kind, st.Pos)
		return CommandResult{OK: true}
	case protocol.CmdSetNeed:
		a, ok := w.byID[c.AgentID]
		if !ok {
			return CommandResult{Code: protocol.ErrNotFound, Message: fmt.Sprintf("no agent %q", c.AgentID)}
		}
		n, err := model.ParseNeed(c.Need)
		if err != nil {
			return CommandResult{Code: protocol.ErrBadRequest, Message: err.Error()}
		}
		a.Meters().Set(n, c.Value)
		a.RequestEvaluation()
		return CommandResult{OK: true}
	default:
		return CommandResult{Code: protocol.ErrBadRequest, Message: fmt.Sprintf("unknown command %q", c.Kind)}
	}
}
