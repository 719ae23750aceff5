// Package store persists the download log: one master sheet plus one sheet
// per category, each row describing a file that was kept.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// ErrStore marks every failure to reach or write the log. Callers keep the
// downloaded file and fail only the current item.
var ErrStore = errors.New("record store failure")

// Uncategorized fills Record.Category when the user picked no category.
const Uncategorized = "uncategorized"

// Header is the fixed column layout of every sheet.
var Header = []string{"Serial", "Timestamp", "Filename", "Source URL", "Title", "Artist", "Album", "Duration", "File Size", "Category"}

type Record struct {
	Serial    int    `json:"serial"`
	Timestamp string `json:"timestamp"`
	Filename  string `json:"filename"`
	SourceURL string `json:"source_url"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Album     string `json:"album"`
	Duration  string `json:"duration"`
	FileSize  string `json:"file_size"`
	Category  string `json:"category"`
}

// Row is a stored record plus the handle needed to update it in place.
type Row struct {
	ID int64 `json:"id"`
	Record
}

// Log is the persistence handle. It is opened once per session and passed
// to whatever needs it.
type Log interface {
	Sheets(ctx context.Context) ([]string, error)
	Rows(ctx context.Context, sheet string) ([]Row, error)
	// Append assigns the next serial of sheet and stores rec.
	Append(ctx context.Context, sheet string, rec Record) (Row, error)
	// Update rewrites every column of row id except its serial.
	Update(ctx context.Context, sheet string, id int64, rec Record) error
	Close() error
}

// Values renders rec in Header order.
func (r Record) Values() []string {
	return []string{
		strconv.Itoa(r.Serial),
		r.Timestamp,
		r.Filename,
		r.SourceURL,
		r.Title,
		r.Artist,
		r.Album,
		r.Duration,
		r.FileSize,
		r.Category,
	}
}

func recordFromValues(values []string) (Record, error) {
	if len(values) != len(Header) {
		return Record{}, fmt.Errorf("expected %d columns, got %d", len(Header), len(values))
	}
	serial, err := strconv.Atoi(values[0])
	if err != nil || serial < 1 {
		return Record{}, fmt.Errorf("invalid serial %q", values[0])
	}
	return Record{
		Serial:    serial,
		Timestamp: values[1],
		Filename:  values[2],
		SourceURL: values[3],
		Title:     values[4],
		Artist:    values[5],
		Album:     values[6],
		Duration:  values[7],
		FileSize:  values[8],
		Category:  values[9],
	}, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
