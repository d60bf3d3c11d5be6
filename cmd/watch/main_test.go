package main

import (
	"strings"
	"testing"

	"hearthsim.ai/internal/protocol"
)

func TestParseSetNeed(t *testing.T) {
	c, err := parseSetNeed("A2:hunger:7.5")
	if err != nil {
		t.Fatalf("parseSetNeed: %v", err)
	}
	if c.Cmd != protocol.CmdSetNeed || c.AgentID != "A2" || c.Need != "hunger" || c.Value != 7.5 {
		t.Fatalf("cmd=%+v", c)
	}
	for _, bad := range []string{"", "A1:sleep", "A1:sleep:x", "A1:sleep:1:2"} {
		if _, err := parseSetNeed(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestSummarize(t *testing.T) {
	lines := summarize(protocol.TickMsg{
		Tick: 12,
		Agents: []protocol.AgentObs{
			{ID: "A1", Name: "Ada", State: "Acting", Pos: [2]float64{1.5, 3}, Need: "Sleep", Plan: "ChopWood -> Build(Bed)"},
			{ID: "A2", Name: "Bo", State: "Idle"},
		},
		Events: []protocol.Event{{Agent: "A1", Type: "PLAN", Detail: "cost 9.0"}},
	})
	if len(lines) != 3 {
		t.Fatalf("lines=%q", lines)
	}
	if !strings.Contains(lines[0], "A1(Ada) Acting pos=(1.5,3.0)") || !strings.Contains(lines[0], "plan=ChopWood -> Build(Bed)") {
		t.Fatalf("line0=%q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "plan=-") {
		t.Fatalf("line1=%q", lines[1])
	}
	if !strings.Contains(lines[2], "A1 PLAN cost 9.0") {
		t.Fatalf("line2=%q", lines[2])
	}
}
