package user

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")
	ErrNoZimScore   = errors.New("user has no ZimScore record")
)
