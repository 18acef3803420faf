package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/okian/dutylog/internal/domain/model"
	"github.com/okian/dutylog/internal/domain/roster"
	"github.com/okian/dutylog/pkg/metrics"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	defaultBusyTimeout = 5 * time.Second
	bandsKey           = "fatigue_bands"
)

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store on SQLite.
type SQLiteStore struct {
	db          *sql.DB
	busyTimeout time.Duration
	now         func() time.Time
}

// NewSQLiteStore opens the database at path, creating parent directories,
// and applies pending migrations.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{busyTimeout: defaultBusyTimeout, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", path, s.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY between our own goroutines.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.db = db
	return s, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, sub)
	if err != nil {
		return fmt.Errorf("migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Milliseconds()))
}

// People implements Store.
func (s *SQLiteStore) People(ctx context.Context) ([]string, error) {
	defer observe("people", time.Now())
	return s.people(ctx, s.db)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) people(ctx context.Context, q querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT name FROM people")
	if err != nil {
		return nil, fmt.Errorf("query people: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate people: %w", err)
	}
	return roster.Normalize(names), nil
}

func (s *SQLiteStore) insertPeople(ctx context.Context, q querier, names []string) error {
	ts := s.now().Unix()
	for _, n := range roster.Normalize(names) {
		if _, err := q.ExecContext(ctx, "INSERT OR IGNORE INTO people (name, created_at) VALUES (?, ?)", n, ts); err != nil {
			return fmt.Errorf("insert person: %w", err)
		}
	}
	return nil
}

// AddPeople implements Store.
func (s *SQLiteStore) AddPeople(ctx context.Context, names []string) ([]string, error) {
	defer observe("add_people", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.insertPeople(ctx, tx, names); err != nil {
		return nil, err
	}
	out, err := s.people(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return out, nil
}

// RemovePerson implements Store.
func (s *SQLiteStore) RemovePerson(ctx context.Context, name string) ([]string, error) {
	defer observe("remove_person", time.Now())

	if _, err := s.db.ExecContext(ctx, "DELETE FROM people WHERE name = ?", strings.TrimSpace(name)); err != nil {
		return nil, fmt.Errorf("delete person: %w", err)
	}
	return s.people(ctx, s.db)
}

// ResetPeople implements Store.
func (s *SQLiteStore) ResetPeople(ctx context.Context) error {
	defer observe("reset_people", time.Now())

	if _, err := s.db.ExecContext(ctx, "DELETE FROM people"); err != nil {
		return fmt.Errorf("reset people: %w", err)
	}
	return nil
}

// Records implements Store.
func (s *SQLiteStore) Records(ctx context.Context) ([]model.Record, error) {
	defer observe("records", time.Now())

	rows, err := s.db.QueryContext(ctx, "SELECT id, datetime, participants, note FROM records ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var (
			r   model.Record
			raw string
		)
		if err := rows.Scan(&r.ID, &r.Timestamp, &raw, &r.Note); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &r.Participants); err != nil {
			return nil, fmt.Errorf("decode participants of %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) insertRecord(ctx context.Context, tx *sql.Tx, r model.Record) (model.Record, error) {
	r.Timestamp = strings.TrimSpace(r.Timestamp)
	if r.Timestamp == "" {
		return r, fmt.Errorf("%w: missing datetime", ErrInvalidRecord)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Participants == nil {
		r.Participants = []string{}
	}
	raw, err := json.Marshal(r.Participants)
	if err != nil {
		return r, fmt.Errorf("encode participants: %w", err)
	}

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM records WHERE id = ?", r.ID).Scan(&exists)
	switch {
	case err == nil:
		return r, fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
	case !errors.Is(err, sql.ErrNoRows):
		return r, fmt.Errorf("check record id: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO records (id, datetime, participants, note, created_at) VALUES (?, ?, ?, ?, ?)",
		r.ID, r.Timestamp, string(raw), r.Note, s.now().Unix(),
	)
	if err != nil {
		return r, fmt.Errorf("insert record: %w", err)
	}
	if err := s.insertPeople(ctx, tx, r.Participants); err != nil {
		return r, err
	}
	return r, nil
}

// AddRecord implements Store.
func (s *SQLiteStore) AddRecord(ctx context.Context, r model.Record) (model.Record, error) {
	defer observe("add_record", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return r, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	r, err = s.insertRecord(ctx, tx, r)
	if err != nil {
		return r, err
	}
	if err := tx.Commit(); err != nil {
		return r, fmt.Errorf("commit transaction: %w", err)
	}
	metrics.RecordRecordIngested()
	return r, nil
}

// DeleteRecord implements Store.
func (s *SQLiteStore) DeleteRecord(ctx context.Context, id string) (int, error) {
	defer observe("delete_record", time.Now())

	res, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	metrics.RecordRecordsDeleted(int(n))
	return int(n), nil
}

// ClearRecords implements Store.
func (s *SQLiteStore) ClearRecords(ctx context.Context) (int, error) {
	defer observe("clear_records", time.Now())

	res, err := s.db.ExecContext(ctx, "DELETE FROM records")
	if err != nil {
		return 0, fmt.Errorf("clear records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	metrics.RecordRecordsDeleted(int(n))
	return int(n), nil
}

// ReplaceRecords implements Store. The swap is atomic: on any invalid
// record nothing changes.
func (s *SQLiteStore) ReplaceRecords(ctx context.Context, records []model.Record) error {
	defer observe("replace_records", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, "DELETE FROM records")
	if err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	removed, _ := res.RowsAffected()

	for i, r := range records {
		if _, err := s.insertRecord(ctx, tx, r); err != nil {
			return fmt.Errorf("record %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	metrics.RecordRecordsDeleted(int(removed))
	for range records {
		metrics.RecordRecordIngested()
	}
	return nil
}

// Bands implements Store.
func (s *SQLiteStore) Bands(ctx context.Context) ([]model.Band, bool, error) {
	defer observe("bands", time.Now())

	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", bandsKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query bands: %w", err)
	}

	bands := []model.Band{}
	if err := json.Unmarshal([]byte(raw), &bands); err != nil {
		return nil, false, fmt.Errorf("decode bands: %w", err)
	}
	return bands, true, nil
}

// SaveBands implements Store.
func (s *SQLiteStore) SaveBands(ctx context.Context, bands []model.Band) error {
	defer observe("save_bands", time.Now())

	if bands == nil {
		bands = []model.Band{}
	}
	raw, err := json.Marshal(bands)
	if err != nil {
		return fmt.Errorf("encode bands: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		bandsKey, string(raw), s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save bands: %w", err)
	}
	return nil
}

// ResetBands implements Store.
func (s *SQLiteStore) ResetBands(ctx context.Context) error {
	defer observe("reset_bands", time.Now())

	if _, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", bandsKey); err != nil {
		return fmt.Errorf("reset bands: %w", err)
	}
	return nil
}
