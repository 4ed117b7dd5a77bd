package core

import (
	"errors"
	"fmt"
)

// Error codes for domain errors.
const (
	ErrCodeAuthFailed       = "auth_failed"
	ErrCodeRightsDenied     = "rights_denied"
	ErrCodeNotFound         = "not_found"
	ErrCodeRoomFull         = "room_full"
	ErrCodePseudonymTaken   = "pseudonym_taken"
	ErrCodeBanned           = "banned"
	ErrCodeWrongPassword    = "wrong_password"
	ErrCodeInvalidAttribute = "invalid_attribute"
	ErrCodeInvalidRight     = "invalid_right"
	ErrCodeEmptyPseudonym   = "empty_pseudonym"
	ErrCodeDuplicateRoom    = "duplicate_room"
	ErrCodeStorage          = "storage_error"
)

// RoomError wraps a machine-checkable code and a human-readable message.
type RoomError struct {
	Code    string
	Message string
}

func (e *RoomError) Error() string {
	return e.Message
}

var (
	ErrAuthFailed       = &RoomError{ErrCodeAuthFailed, "Authentication failed"}
	ErrRoomNotFound     = &RoomError{ErrCodeNotFound, "This room does not exist"}
	ErrRoomFull         = &RoomError{ErrCodeRoomFull, "The room is full"}
	ErrWrongPassword    = &RoomError{ErrCodeWrongPassword, "Room password is incorrect"}
	ErrBanned           = &RoomError{ErrCodeBanned, "You are banned from this room"}
	ErrEmptyPseudonym   = &RoomError{ErrCodeEmptyPseudonym, "Pseudonym must not be empty"}
	ErrPseudonymTaken   = &RoomError{ErrCodePseudonymTaken, "This pseudonym is already used in this room"}
	ErrNotInRoom        = &RoomError{ErrCodeNotFound, "You are not connected to this room"}
	ErrNoEditRight      = &RoomError{ErrCodeRightsDenied, "You do not have the right to edit the room's information"}
	ErrNoGrantRight     = &RoomError{ErrCodeRightsDenied, "You do not have the right to grant a user right in this room"}
	ErrEmptyRoomName    = &RoomError{ErrCodeInvalidAttribute, "Room name must not be empty"}
	ErrNegativeMaxUsers = &RoomError{ErrCodeInvalidAttribute, "maxUsers must be a non-negative number"}
)

func duplicateRoomError(id int64) *RoomError {
	return &RoomError{ErrCodeDuplicateRoom, fmt.Sprintf("Room %d is already in the collection", id)}
}

func invalidAttributeError(key string) *RoomError {
	return &RoomError{ErrCodeInvalidAttribute, fmt.Sprintf("Unknown room attribute %q", key)}
}

func unknownRightError(name string) *RoomError {
	return &RoomError{ErrCodeInvalidRight, fmt.Sprintf("Unknown right %q", name)}
}

// CodeOf returns the error code of a RoomError, or empty for other errors.
func CodeOf(err error) string {
	var re *RoomError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
