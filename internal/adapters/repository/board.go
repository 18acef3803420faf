package repository

import (
	"sync/atomic"

	"github.com/okian/dutylog/internal/domain/types"
)

// Board caches the latest fatigue snapshot for lock-free reads.
type Board struct {
	current atomic.Pointer[types.Board]
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{}
}

// Publish replaces the cached snapshot.
func (b *Board) Publish(snap types.Board) {
	b.current.Store(&snap)
}

// Snapshot returns the cached snapshot; ok is false before the first publish.
func (b *Board) Snapshot() (types.Board, bool) {
	p := b.current.Load()
	if p == nil {
		return types.Board{}, false
	}
	return *p, true
}
