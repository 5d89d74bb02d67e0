package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeCommand    = "COMMAND"
	TypeObserver   = "OBSERVER"
	TypeEventBatch = "EVENT_BATCH"
	TypeError      = "ERROR"
)

// Command ops.
const (
	OpDamage       = "DAMAGE"
	OpRepair       = "REPAIR"
	OpRegisterNode = "REGISTER_NODE"
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
