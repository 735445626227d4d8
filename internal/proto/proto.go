package proto

import "encoding/json"

const (
	ProtocolVersion = 1

	// Commands emitted by the client.
	CommandJoinRoom  = "join_room"
	CommandLeaveRoom = "leave_room"

	// Events consumed by the client.
	EventJoined      = "joined"
	EventMessageNew  = "message_new"
	EventReadUpdated = "read_updated"
	EventError       = "error"
)

// Command is the envelope for client-to-server emissions.
type Command struct {
	Type string `json:"type"`
	Room string `json:"room,omitempty"`
	// Gen is the selection generation the join was issued under; the server
	// echoes it back in the joined event so stale acks can be discarded.
	Gen uint64 `json:"gen,omitempty"`
}

// Event is the envelope for server-to-client pushes.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// JoinedData acknowledges a join_room command.
type JoinedData struct {
	Room string `json:"room"`
	Gen  uint64 `json:"gen,omitempty"`
}

// ReadUpdatedData reports a read mark applied by another client.
type ReadUpdatedData struct {
	ChatID    string `json:"chatId,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	UserID    string `json:"userId"`
}

// ErrorData describes a channel-level error push.
type ErrorData struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
