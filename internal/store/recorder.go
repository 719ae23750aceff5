package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
)

const TimestampLayout = "2006-01-02 15:04:05"

type Driver string

const (
	DriverSQLite Driver = "sqlite"
	DriverCSV    Driver = "csv"
)

// Open returns the Log for driver at path.
func Open(driver Driver, path string) (Log, error) {
	switch driver {
	case DriverSQLite, "":
		return OpenSQLite(path)
	case DriverCSV:
		return OpenCSV(path)
	default:
		return nil, storeErr("open", fmt.Errorf("unsupported driver %q", driver))
	}
}

// Recorder writes records to the master sheet and mirrors them into the
// sheet named by the record's category.
type Recorder struct {
	Log    Log
	Master string
	Now    func() time.Time
	Logger *zap.Logger
}

func NewRecorder(log Log, master string, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(master) == "" {
		master = "downloads"
	}
	return &Recorder{Log: log, Master: master, Now: time.Now, Logger: logger}
}

// MasterRows is what the duplicate resolver scans.
func (r *Recorder) MasterRows(ctx context.Context) ([]Row, error) {
	return r.Log.Rows(ctx, r.Master)
}

func (r *Recorder) stamp(rec Record) Record {
	if rec.Timestamp == "" {
		now := time.Now
		if r.Now != nil {
			now = r.Now
		}
		rec.Timestamp = now().Format(TimestampLayout)
	}
	if strings.TrimSpace(rec.Category) == "" {
		rec.Category = Uncategorized
	}
	return rec
}

func categorySheet(rec Record) string {
	if rec.Category == "" || rec.Category == Uncategorized {
		return ""
	}
	return rec.Category
}

// Add appends rec to the master sheet and, when categorized, to its
// category sheet. Each sheet numbers the row with its own serial.
func (r *Recorder) Add(ctx context.Context, rec Record) (Row, error) {
	rec = r.stamp(rec)
	row, err := r.Log.Append(ctx, r.Master, rec)
	if err != nil {
		r.Logger.Error("record append failed", zap.String("sheet", r.Master), zap.String("filename", rec.Filename), zap.Error(err))
		return Row{}, err
	}
	r.Logger.Info("record appended", zap.String("sheet", r.Master), zap.Int("serial", row.Serial), zap.String("filename", rec.Filename))

	if sheet := categorySheet(rec); sheet != "" && sheet != r.Master {
		catRow, err := r.Log.Append(ctx, sheet, rec)
		if err != nil {
			r.Logger.Error("category append failed", zap.String("sheet", sheet), zap.Error(err))
			return row, err
		}
		r.Logger.Info("record appended", zap.String("sheet", sheet), zap.Int("serial", catRow.Serial))
	}
	return row, nil
}

// Replace rewrites the master rows ids with rec, keeping their serials, then
// rewrites the category row holding the same filename or appends one.
func (r *Recorder) Replace(ctx context.Context, ids []int64, rec Record) error {
	rec = r.stamp(rec)
	for _, id := range ids {
		if err := r.Log.Update(ctx, r.Master, id, rec); err != nil {
			r.Logger.Error("record update failed", zap.String("sheet", r.Master), zap.Int64("row", id), zap.Error(err))
			return err
		}
	}
	r.Logger.Info("records updated", zap.String("sheet", r.Master), zap.Int("rows", len(ids)), zap.String("filename", rec.Filename))

	sheet := categorySheet(rec)
	if sheet == "" || sheet == r.Master {
		return nil
	}
	rows, err := r.Log.Rows(ctx, sheet)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row.Filename == rec.Filename {
			return r.Log.Update(ctx, sheet, row.ID, rec)
		}
	}
	_, err = r.Log.Append(ctx, sheet, rec)
	return err
}

// ExportCSV writes sheet as CSV with the header first.
func ExportCSV(ctx context.Context, log Log, sheet string, w io.Writer) (int, error) {
	rows, err := log.Rows(ctx, sheet)
	if err != nil {
		return 0, err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row.Values()); err != nil {
			return 0, fmt.Errorf("write row %d: %w", row.Serial, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flush csv: %w", err)
	}
	return len(rows), nil
}
