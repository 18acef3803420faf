package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrInvalidRecord = errors.New("invalid record")
	ErrDuplicateID   = errors.New("record id already exists")
	ErrLegacyFormat  = errors.New("unrecognized legacy data")
)
