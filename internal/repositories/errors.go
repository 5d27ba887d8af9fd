package repositories

import "errors"

// Sentinel errors shared by every repository implementation so callers
// can branch with errors.Is instead of matching strings.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrDuplicateUser   = errors.New("username or email already exists")
)
