package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	// User directory sentinels.
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserIDRequired    = errors.New("user id is required")
	ErrEmailRequired     = errors.New("email is required")
)
