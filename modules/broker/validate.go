package broker

import (
	"errors"
	"unicode/utf8"
)

// Validation limits.
const (
	MaxNameLength     = 50
	MaxRoomNameLength = 100
	MaxMessageLength  = 5000
)

// User-facing errors. ErrNameTaken, ErrUnknownUser and ErrNotInRoom are
// reported only to the originating connection; nothing here is fatal.
var (
	ErrNameTaken   = errors.New("display name already taken")
	ErrUnknownUser = errors.New("target user not found")
	ErrNotInRoom   = errors.New("sender is not a member of the room")
	ErrNotNamed    = errors.New("connection has no display name")

	ErrNameEmpty       = errors.New("display name cannot be empty")
	ErrNameTooLong     = errors.New("display name exceeds maximum length")
	ErrNameInvalid     = errors.New("display name contains invalid characters")
	ErrRoomNameEmpty   = errors.New("room name cannot be empty")
	ErrRoomNameTooLong = errors.New("room name exceeds maximum length")
	ErrRoomNameInvalid = errors.New("room name contains invalid characters")
	ErrMessageEmpty    = errors.New("message text cannot be empty")
	ErrMessageTooLong  = errors.New("message exceeds maximum length")
	ErrMessageInvalid  = errors.New("message contains invalid characters")
)

// ValidateName validates a display name.
func ValidateName(name string) error {
	if name == "" {
		return ErrNameEmpty
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	if !utf8.ValidString(name) {
		return ErrNameInvalid
	}
	return nil
}

// ValidateRoomName validates a room name.
func ValidateRoomName(room string) error {
	if room == "" {
		return ErrRoomNameEmpty
	}
	if len(room) > MaxRoomNameLength {
		return ErrRoomNameTooLong
	}
	if !utf8.ValidString(room) {
		return ErrRoomNameInvalid
	}
	return nil
}

// ValidateMessage validates message text.
func ValidateMessage(text string) error {
	if text == "" {
		return ErrMessageEmpty
	}
	if len(text) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if !utf8.ValidString(text) {
		return ErrMessageInvalid
	}
	return nil
}
