package types

import "errors"

// ErrInvalidInput marks caller mistakes: missing fields, unreadable
// timestamps or out-of-range parameters.
var ErrInvalidInput = errors.New("invalid input")
