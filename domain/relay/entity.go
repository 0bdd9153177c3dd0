package relay

import "time"

// Intent types accepted from clients.
const (
	IntentSetName         = "set_name"
	IntentJoin            = "join"
	IntentLeave           = "leave"
	IntentMessage         = "message"
	IntentPrivateMessage  = "private_message"
	IntentSessionRequest  = "session_request"
	IntentSessionResponse = "session_response"
	IntentMembers         = "members"
)

// Event types delivered to clients.
const (
	EventConnected        = "connected"
	EventMessage          = "message"
	EventPrivateMessage   = "private_message"
	EventActiveUsers      = "active_users"
	EventStatus           = "status"
	EventSessionRequested = "session_requested"
	EventSessionResponded = "session_responded"
	EventActionFailed     = "action_failed"
)

// FailureReason classifies a rejected intent.
type FailureReason string

// Failure reasons reported back to the acting connection.
const (
	ReasonNameTaken       FailureReason = "name_taken"
	ReasonUnknownUser     FailureReason = "unknown_user"
	ReasonNotInRoom       FailureReason = "not_in_room"
	ReasonInvalidArgument FailureReason = "invalid_argument"
	ReasonRateLimited     FailureReason = "rate_limited"
)

// Welcome greets a freshly connected client with its session identity.
type Welcome struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
}

// Message is a room broadcast delivery.
type Message struct {
	From      string    `json:"from"`
	Room      string    `json:"room"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// PrivateMessage is a direct delivery to a single user.
type PrivateMessage struct {
	From      string    `json:"from"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Roster is the full ordered presence snapshot for a room.
type Roster struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

// StatusNote announces a membership change in human-readable form.
type StatusNote struct {
	Room      string    `json:"room"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionRequest asks the target to open a private chat.
type SessionRequest struct {
	From string `json:"from"`
}

// SessionResponse carries the target's answer back to the requester.
type SessionResponse struct {
	From     string `json:"from"`
	Accepted bool   `json:"accepted"`
}

// Failure is sent only to the connection whose intent was rejected.
type Failure struct {
	Reason FailureReason `json:"reason"`
}
