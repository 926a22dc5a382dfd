package holding

import "errors"

var (
	ErrHoldingNotFound  = errors.New("holding not found")
	ErrNotHoldingOwner  = errors.New("you do not own this holding")
	ErrHoldingNotActive = errors.New("holding is not active")
)
