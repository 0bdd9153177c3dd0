package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// NameClaimedEvent is emitted when a connection binds a display name.
type NameClaimedEvent struct {
	SessionID string    `json:"session_id"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomJoinedEvent is emitted when a connection joins a room.
type RoomJoinedEvent struct {
	SessionID string    `json:"session_id"`
	Name      string    `json:"name"`
	Room      string    `json:"room"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomLeftEvent is emitted when a connection leaves a room, including
// disconnect-induced departures.
type RoomLeftEvent struct {
	SessionID string    `json:"session_id"`
	Name      string    `json:"name"`
	Room      string    `json:"room"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageRoutedEvent is emitted after a broadcast or direct message has been
// resolved to its delivery targets.
type MessageRoutedEvent struct {
	SessionID  string    `json:"session_id"`
	Name       string    `json:"name"`
	Room       string    `json:"room,omitempty"`
	Recipients int       `json:"recipients"`
	Direct     bool      `json:"direct"`
	Timestamp  time.Time `json:"timestamp"`
}

// Event definitions for the broker domain.
var (
	NameClaimedV1 = helper.EventDefinition[NameClaimedEvent](
		"broker",
		"NameClaimed",
		"v1",
	)

	RoomJoinedV1 = helper.EventDefinition[RoomJoinedEvent](
		"broker",
		"RoomJoined",
		"v1",
	)

	RoomLeftV1 = helper.EventDefinition[RoomLeftEvent](
		"broker",
		"RoomLeft",
		"v1",
	)

	MessageRoutedV1 = helper.EventDefinition[MessageRoutedEvent](
		"broker",
		"MessageRouted",
		"v1",
	)
)
