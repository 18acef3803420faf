// Package csvio reads and writes participation records as CSV with the
// header "datetime,doctor,note". Participants share one cell, joined by ";".
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/dutylog/internal/domain/model"
)

const participantSep = ";"

// Header is the column order written by Export.
var Header = []string{"datetime", "doctor", "note"}

// Sentinel kinds for CSV errors.
var (
	ErrEmpty         = errors.New("csv has no rows")
	ErrMissingColumn = errors.New("csv header lacks datetime or doctor column")
)

// Export writes records to w.
func Export(w io.Writer, records []model.Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row := []string{r.Timestamp, strings.Join(r.Participants, participantSep), r.Note}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write record %s: %w", r.ID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// Import reads records from r. Column order comes from the header, matched
// case-insensitively; note is optional. The participant cell is split on
// ";" and, when that yields a single name, on ",". Rows without a datetime
// or without participants are skipped. Every record gets a fresh ID.
func Import(r io.Reader) (records []model.Record, skipped int, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, ErrEmpty
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}

	idxDatetime, idxDoctor, idxNote := -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "datetime":
			idxDatetime = i
		case "doctor":
			idxDoctor = i
		case "note":
			idxNote = i
		}
	}
	if idxDatetime < 0 || idxDoctor < 0 {
		return nil, 0, ErrMissingColumn
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("read row: %w", err)
		}

		rec := model.Record{
			ID:           uuid.NewString(),
			Timestamp:    strings.TrimSpace(cell(row, idxDatetime)),
			Participants: SplitParticipants(cell(row, idxDoctor)),
			Note:         cell(row, idxNote),
		}
		if rec.Timestamp == "" || len(rec.Participants) == 0 {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

// SplitParticipants splits a participant cell on ';'. A comma is part of
// the name unless the cell holds no ';'-separated name at all.
func SplitParticipants(raw string) []string {
	parts := split(raw, participantSep)
	if len(parts) == 0 {
		parts = split(raw, ",")
	}
	return parts
}

func split(raw, sep string) []string {
	var out []string
	for _, p := range strings.Split(raw, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
