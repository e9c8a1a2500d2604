package ledger

import "errors"

// Module errors.
var (
	ErrUserIDRequired = errors.New("user id is required")
	ErrNoHistory      = errors.New("no history for user")
)
