package channel

import "encoding/json"

// Wire events. The server and client exchange JSON frames of the shape
// {"event": <name>, "data": <payload>}.
const (
	// Handshake pair.
	EventHandshake = "handshake"
	EventConnected = "connected"

	// Server pushes mirrored into the cache.
	EventPostNew         = "post:new"
	EventPostUpdated     = "post:updated"
	EventMatchUpdated    = "match:updated"
	EventMessageNew      = "message:new"
	EventNotificationNew = "notification:new"

	// Client commands.
	EventRoomJoin    = "room:join"
	EventRoomLeave   = "room:leave"
	EventTypingStart = "typing:start"
	EventTypingStop  = "typing:stop"
)

// Frame is one message on the wire.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type handshakePayload struct {
	Token string `json:"token"`
}

type connectedPayload struct {
	ConnectionID string `json:"connectionId"`
	Error        string `json:"error,omitempty"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}
