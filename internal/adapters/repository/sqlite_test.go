package repository_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/dutylog/internal/adapters/repository"
	"github.com/okian/dutylog/internal/domain/model"
)

func newStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()
	s, err := repository.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "duty.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStorePeople(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	people, err := s.People(ctx)
	require.NoError(t, err)
	assert.Empty(t, people)

	people, err = s.AddPeople(ctx, []string{" Sato ", "Abe", "", "Sato"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Abe", "Sato"}, people)

	people, err = s.AddPeople(ctx, []string{"Ito"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Abe", "Ito", "Sato"}, people)

	people, err = s.RemovePerson(ctx, "Ito")
	require.NoError(t, err)
	assert.Equal(t, []string{"Abe", "Sato"}, people)

	people, err = s.RemovePerson(ctx, "Nobody")
	require.NoError(t, err)
	assert.Len(t, people, 2)

	require.NoError(t, s.ResetPeople(ctx))
	people, err = s.People(ctx)
	require.NoError(t, err)
	assert.Empty(t, people)
}

func TestSQLiteStoreRecords(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	first, err := s.AddRecord(ctx, model.Record{
		Timestamp:    "2025-03-01T18:30:00",
		Participants: []string{"Sato", "Abe"},
		Note:         "ward call",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	second, err := s.AddRecord(ctx, model.Record{ID: "fixed", Timestamp: "2025-03-02T09:00:00.000Z", Participants: []string{"Ito"}})
	require.NoError(t, err)
	assert.Equal(t, "fixed", second.ID)

	t.Run("participants join the roster", func(t *testing.T) {
		people, err := s.People(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Abe", "Ito", "Sato"}, people)
	})

	t.Run("records keep insertion order and stored dialect", func(t *testing.T) {
		records, err := s.Records(ctx)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, first, records[0])
		assert.Equal(t, "2025-03-02T09:00:00.000Z", records[1].Timestamp)
	})

	t.Run("duplicate ids and missing datetimes are rejected", func(t *testing.T) {
		_, err := s.AddRecord(ctx, model.Record{ID: "fixed", Timestamp: "2025-03-03T10:00:00"})
		require.ErrorIs(t, err, repository.ErrDuplicateID)

		_, err = s.AddRecord(ctx, model.Record{Timestamp: "  "})
		require.ErrorIs(t, err, repository.ErrInvalidRecord)
	})

	t.Run("removing a person keeps their records", func(t *testing.T) {
		_, err := s.RemovePerson(ctx, "Ito")
		require.NoError(t, err)
		records, err := s.Records(ctx)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("delete reports how many were removed", func(t *testing.T) {
		n, err := s.DeleteRecord(ctx, "fixed")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = s.DeleteRecord(ctx, "fixed")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("replace is all or nothing", func(t *testing.T) {
		err := s.ReplaceRecords(ctx, []model.Record{
			{Timestamp: "2025-04-01T10:00:00", Participants: []string{"Kato"}},
			{Timestamp: ""},
		})
		require.ErrorIs(t, err, repository.ErrInvalidRecord)

		records, err := s.Records(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, first.ID, records[0].ID)

		require.NoError(t, s.ReplaceRecords(ctx, []model.Record{
			{Timestamp: "2025-04-01T10:00:00", Participants: []string{"Kato"}},
		}))
		records, err = s.Records(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, []string{"Kato"}, records[0].Participants)

		people, err := s.People(ctx)
		require.NoError(t, err)
		assert.Contains(t, people, "Kato")
	})

	t.Run("clear empties the log", func(t *testing.T) {
		n, err := s.ClearRecords(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		records, err := s.Records(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestSQLiteStoreBands(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	bands, ok, err := s.Bands(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, bands)

	want := []model.Band{{Start: "18:00", End: "23:00", Weight: 1.5}}
	require.NoError(t, s.SaveBands(ctx, want))
	bands, ok, err = s.Bands(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, bands)

	require.NoError(t, s.SaveBands(ctx, nil))
	bands, ok, err = s.Bands(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, bands)

	require.NoError(t, s.ResetBands(ctx))
	_, ok, err = s.Bands(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "duty.db")

	s, err := repository.NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	_, err = s.AddRecord(ctx, model.Record{ID: "keep", Timestamp: "2025-03-01T18:30:00", Participants: []string{"Abe"}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = repository.NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	records, err := s.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "keep", records[0].ID)
}

func TestImportLegacy(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	data := `{
		"doctors": ["Sato", "Abe"],
		"logs": [
			{"id": "1", "datetime": "2025-03-01T18:30", "doctors": ["Sato", " "], "note": "a"},
			{"id": "2", "datetime": "2025-03-02T09:00:00.000Z", "doctor": "Ito"},
			{"id": "3", "datetime": "", "doctors": ["Abe"]},
			{"id": "1", "datetime": "2025-03-03T10:00"}
		],
		"audit": [{"id": "x", "action": "log_add"}]
	}`

	res, err := repository.ImportLegacy(ctx, s, strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 3, res.People)

	records, err := s.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Sato"}, records[0].Participants)
	assert.Equal(t, []string{"Ito"}, records[1].Participants)

	_, err = repository.ImportLegacy(ctx, s, strings.NewReader("not json"))
	require.ErrorIs(t, err, repository.ErrLegacyFormat)
}
