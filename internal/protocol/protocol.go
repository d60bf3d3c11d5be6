package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeSubscribe = "SUBSCRIBE"
	TypeWelcome   = "WELCOME"
	TypeTick      = "TICK"
	TypeCmd       = "CMD"
	TypeCmdResult = "CMD_RESULT"
)

// Observer commands.
const (
	CmdRemoveStation = "REMOVE_STATION"
	CmdSetNeed       = "SET_NEED"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
