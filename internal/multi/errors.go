package multi

import (
	"errors"
	"fmt"
)

// JoinErrorCode categorizes join failures that are part of normal flow and
// need user-facing messages distinct from connectivity failures.
type JoinErrorCode string

const (
	// ErrCodeRoomNotFound indicates no room exists under the given ID.
	ErrCodeRoomNotFound JoinErrorCode = "ROOM_NOT_FOUND"

	// ErrCodeRoomAlreadyStarted indicates the round began before joining.
	ErrCodeRoomAlreadyStarted JoinErrorCode = "ROOM_ALREADY_STARTED"

	// ErrCodeRoomFull indicates the room reached its player limit.
	ErrCodeRoomFull JoinErrorCode = "ROOM_FULL"
)

// JoinError is a structured join failure result.
type JoinError struct {
	Code   JoinErrorCode
	RoomID string
}

// Error implements the error interface.
func (e *JoinError) Error() string {
	return fmt.Sprintf("%s: room %s", e.Code, e.RoomID)
}

// IsRoomNotFound reports whether err is a room-not-found join failure.
// Uses errors.As to handle wrapped errors.
func IsRoomNotFound(err error) bool {
	var je *JoinError
	return errors.As(err, &je) && je.Code == ErrCodeRoomNotFound
}

// IsRoomAlreadyStarted reports whether err is an already-started join
// failure.
func IsRoomAlreadyStarted(err error) bool {
	var je *JoinError
	return errors.As(err, &je) && je.Code == ErrCodeRoomAlreadyStarted
}

// IsRoomFull reports whether err is a room-full join failure.
func IsRoomFull(err error) bool {
	var je *JoinError
	return errors.As(err, &je) && je.Code == ErrCodeRoomFull
}
