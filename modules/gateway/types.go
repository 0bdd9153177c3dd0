package gateway

import (
	"encoding/json"

	"github.com/example/chat-relay/modules/broker"
)

// Envelope is the websocket wire frame in both directions: a type tag plus
// a type-specific payload.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SetNamePayload claims a display name.
type SetNamePayload struct {
	Name string `json:"name"`
}

// RoomPayload names a room for join, leave and members intents.
type RoomPayload struct {
	Room string `json:"room"`
}

// MessagePayload broadcasts text to a room.
type MessagePayload struct {
	Room string `json:"room"`
	Text string `json:"text"`
}

// PrivateMessagePayload sends text to a single named user.
type PrivateMessagePayload struct {
	Target string `json:"target"`
	Text   string `json:"text"`
}

// SessionRequestPayload asks a named user to open a private session.
type SessionRequestPayload struct {
	Target string `json:"target"`
}

// SessionResponsePayload answers a private session request.
type SessionResponsePayload struct {
	Target   string `json:"target"`
	Accepted bool   `json:"accepted"`
}

// RoomListResponse is the API response for listing active rooms.
type RoomListResponse struct {
	Rooms []broker.RoomInfo `json:"rooms"`
	Total int               `json:"total"`
}

// MembersResponse is the API response for a room roster.
type MembersResponse struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
	Total int      `json:"total"`
}

// UsersResponse is the API response for all claimed display names.
type UsersResponse struct {
	Users []string `json:"users"`
	Total int      `json:"total"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}
