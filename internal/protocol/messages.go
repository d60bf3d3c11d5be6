package protocol

// SUBSCRIBE (observer -> server)
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// FocusAgentID limits TICK events to one agent. Empty means all.
	FocusAgentID string `json:"focus_agent_id,omitempty"`
	EveryTicks   int    `json:"every_ticks,omitempty"`
}

// WELCOME (server -> observer)
type WelcomeMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	RunID           string     `json:"run_id"`
	Scenario        string     `json:"scenario"`
	TickRateHz      int        `json:"tick_rate_hz"`
	Tick            uint64     `json:"tick"`
	Grid            GridParams `json:"grid"`
}

type GridParams struct {
	Origin        [2]float64 `json:"origin"`
	CellSize      float64    `json:"cell_size"`
	Cols          int        `json:"cols"`
	Rows          int        `json:"rows"`
	AllowDiagonal bool       `json:"allow_diagonal"`
	// Blocked lists [col,row] pairs.
	Blocked [][2]int `json:"blocked"`
}

// TICK (server -> observer)
type TickMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Tick            uint64       `json:"tick"`
	Digest          string       `json:"digest"`
	Agents          []AgentObs   `json:"agents"`
	Stations        []StationObs `json:"stations"`
	Spots           []SpotObs    `json:"spots"`
	Events          []Event      `json:"events"`
}

type AgentObs struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	State     string     `json:"state"`
	Pos       [2]float64 `json:"pos"`
	Carried   int        `json:"carried"`
	Primary   string     `json:"primary"`
	Meters    []float64  `json:"meters"`
	Need      string     `json:"need,omitempty"`
	Plan      string     `json:"plan,omitempty"`
	Score     float64    `json:"score,omitempty"`
	Head      string     `json:"head,omitempty"`
	HeadPhase string     `json:"head_phase,omitempty"`
}

type StationObs struct {
	ID      string     `json:"id"`
	Kind    string     `json:"kind"`
	Pos     [2]float64 `json:"pos"`
	BuiltBy string     `json:"built_by,omitempty"`
	User    string     `json:"user,omitempty"`
}

type SpotObs struct {
	ID        string     `json:"id"`
	Kind      string     `json:"kind"`
	Pos       [2]float64 `json:"pos"`
	Owner     string     `json:"owner,omitempty"`
	StationID string     `json:"station_id,omitempty"`
}

// Event is one decision trace entry.
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

// CMD (observer -> server)
type CmdMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	ID              string  `json:"id"`
	Cmd             string  `json:"cmd"`
	StationID       string  `json:"station_id,omitempty"`
	AgentID         string  `json:"agent_id,omitempty"`
	Need            string  `json:"need,omitempty"`
	Value           float64 `json:"value,omitempty"`
}

// CMD_RESULT (server -> observer)
type CmdResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	OK              bool   `json:"ok"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	Tick            uint64 `json:"tick"`
}
