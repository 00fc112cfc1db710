package lobby

import "errors"

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateRoomCode is defensive only: codes are generated against the
	// live room map, so an insert collision indicates a caller bug rather than
	// an expected runtime condition.
	ErrDuplicateRoomCode = errors.New("duplicate room code")
	ErrDuplicatePeerID   = errors.New("duplicate peer id")
	ErrTooManyRooms      = errors.New("too many rooms")
)
