// Package repository persists the roster, participation records and band
// configuration, and caches the latest fatigue board.
package repository

import (
	"context"

	"github.com/okian/dutylog/internal/domain/model"
)

// Store provides read/write access to persisted duty log state.
type Store interface {
	// People returns the roster in display order.
	People(ctx context.Context) ([]string, error)
	// AddPeople merges names into the roster and returns the new roster.
	AddPeople(ctx context.Context, names []string) ([]string, error)
	// RemovePerson drops name from the roster. Records that mention the
	// person are kept. Removing an unknown name is not an error.
	RemovePerson(ctx context.Context, name string) ([]string, error)
	// ResetPeople empties the roster.
	ResetPeople(ctx context.Context) error

	// Records returns every record in insertion order.
	Records(ctx context.Context) ([]model.Record, error)
	// AddRecord stores r, assigning an ID when empty, and adds its
	// participants to the roster.
	AddRecord(ctx context.Context, r model.Record) (model.Record, error)
	// DeleteRecord removes the record with id and reports how many were removed.
	DeleteRecord(ctx context.Context, id string) (int, error)
	// ClearRecords removes every record and reports how many were removed.
	ClearRecords(ctx context.Context) (int, error)
	// ReplaceRecords swaps all records for records and adds their
	// participants to the roster.
	ReplaceRecords(ctx context.Context, records []model.Record) error

	// Bands returns the saved band configuration. ok is false when bands
	// were never saved.
	Bands(ctx context.Context) (bands []model.Band, ok bool, err error)
	// SaveBands replaces the band configuration.
	SaveBands(ctx context.Context, bands []model.Band) error
	// ResetBands forgets the saved configuration.
	ResetBands(ctx context.Context) error

	Close() error
}
