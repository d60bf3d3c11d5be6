package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"hearthsim.ai/internal/protocol"
)

func main() {
	var (
		url     = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		focus   = flag.String("focus", "", "only stream events for this agent id")
		every   = flag.Int("every", 0, "send a TICK every N ticks (0 = server default)")
		setNeed = flag.String("set_need", "", "send SET_NEED once after WELCOME, as AGENT:NEED:VALUE")
		remove  = flag.String("remove_station", "", "send REMOVE_STATION once after WELCOME")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags|log.Lmicroseconds)

	var cmds []protocol.CmdMsg
	if *setNeed != "" {
		c, err := parseSetNeed(*setNeed)
		if err != nil {
			logger.Fatalf("set_need: %v", err)
		}
		cmds = append(cmds, c)
	}
	if id := strings.TrimSpace(*remove); id != "" {
		cmds = append(cmds, protocol.CmdMsg{Cmd: protocol.CmdRemoveStation, StationID: id})
	}
	for i := range cmds {
		cmds[i].Type = protocol.TypeCmd
		cmds[i].ProtocolVersion = protocol.Version
		cmds[i].ID = fmt.Sprintf("watch_%d", i+1)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := protocol.SubscribeMsg{
		Type:            protocol.TypeSubscribe,
		ProtocolVersion: protocol.Version,
		FocusAgentID:    strings.TrimSpace(*focus),
		EveryTicks:      *every,
	}
	if err := conn.WriteJSON(sub); err != nil {
		logger.Fatalf("send SUBSCRIBE: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME run=%s scenario=%s tick=%d grid=%dx%d", w.RunID, w.Scenario, w.Tick, w.Grid.Cols, w.Grid.Rows)
			for _, c := range cmds {
				if err := conn.WriteJSON(c); err != nil {
					logger.Printf("send CMD %s: %v", c.ID, err)
				}
			}
			cmds = nil

		case protocol.TypeTick:
			var t protocol.TickMsg
			if err := json.Unmarshal(msg, &t); err != nil {
				continue
			}
			for _, line := range summarize(t) {
				logger.Print(line)
			}

		case protocol.TypeCmdResult:
			var r protocol.CmdResultMsg
			if err := json.Unmarshal(msg, &r); err != nil {
				continue
			}
			logger.Printf("CMD_RESULT id=%s ok=%v code=%s tick=%d %s", r.ID, r.OK, r.Code, r.Tick, r.Message)
		}
	}
}

// parseSetNeed reads AGENT:NEED:VALUE.
func parseSetNeed(s string) (protocol.CmdMsg, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return protocol.CmdMsg{}, fmt.Errorf("want AGENT:NEED:VALUE, got %q", s)
	}
	v, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return protocol.CmdMsg{}, fmt.Errorf("value: %w", err)
	}
	return protocol.CmdMsg{Cmd: protocol.CmdSetNeed, AgentID: parts[0], Need: parts[1], Value: v}, nil
}

// summarize renders one line per agent plus one per event.
func summarize(t protocol.TickMsg) []string {
	out := make([]string, 0, len(t.Agents)+len(t.Events))
	for _, a := range t.Agents {
		plan := a.Plan
		if plan == "" {
			plan = "-"
		}
		out = append(out, fmt.Sprintf("t=%d %s(%s) %s pos=(%.1f,%.1f) need=%s plan=%s", t.Tick, a.ID, a.Name, a.State, a.Pos[0], a.Pos[1], a.Need, plan))
	}
	for _, e := range t.Events {
		out = append(out, fmt.Sprintf("t=%d   %s %s %s", t.Tick, e.Agent, e.Type, e.Detail))
	}
	return out
}
