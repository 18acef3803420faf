package service

import (
	"errors"

	"github.com/okian/dutylog/internal/domain/types"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrStopped      = errors.New("service stopped")
	ErrInvalidInput = types.ErrInvalidInput
)
