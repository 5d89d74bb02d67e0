package protocol

// COMMAND (client -> server): queue a damage/repair or register a special
// node. Source identifies the attacking faction; empty means environmental.
type CommandMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Op              string `json:"op"`
	Pos             [3]int `json:"pos"`
	Amount          int    `json:"amount,omitempty"`
	Source          string `json:"source,omitempty"`
	NodeType        string `json:"node_type,omitempty"`
	Immediate       bool   `json:"immediate,omitempty"`
}

// OBSERVER (client -> server): locality hint for chunk residency management.
type ObserverMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Pos             [3]int `json:"pos"`
}

// EventMsg is one world event in a tick batch.
type EventMsg struct {
	Kind    string `json:"kind"`
	Pos     [3]int `json:"pos,omitempty"`
	Amount  int    `json:"amount,omitempty"`
	HP      int    `json:"hp,omitempty"`
	Old     string `json:"old,omitempty"`
	New     string `json:"new,omitempty"`
	ChunkID int32  `json:"chunk_id,omitempty"`
	Count   int    `json:"count,omitempty"`
}

// EVENT_BATCH (server -> client): every event raised by one tick.
type EventBatchMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Frame           int32      `json:"frame"`
	Events          []EventMsg `json:"events"`
}

// ERROR (server -> client).
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
