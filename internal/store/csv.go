package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jaa/ytmp3/internal/fileops"
)

const csvExt = ".csv"

// CSVLog keeps each sheet as <dir>/<sheet>.csv. A sheet file must start
// with the exact Header row; anything else is reported, never guessed at.
// Row IDs are 1-based data row positions.
type CSVLog struct {
	dir string
	mu  sync.Mutex
}

func OpenCSV(dir string) (*CSVLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, storeErr("create log directory", err)
	}
	return &CSVLog{dir: dir}, nil
}

func (l *CSVLog) sheetPath(sheet string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", string(os.PathSeparator), "_").Replace(sheet)
	return filepath.Join(l.dir, name+csvExt)
}

func (l *CSVLog) Sheets(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, storeErr("list sheets", err)
	}
	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), csvExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), csvExt))
	}
	sort.Strings(names)
	return names, nil
}

func (l *CSVLog) Rows(ctx context.Context, sheet string) ([]Row, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rows, _, err := l.read(sheet)
	return rows, err
}

// read returns the data rows and whether the sheet file holds a header.
func (l *CSVLog) read(sheet string) ([]Row, bool, error) {
	payload, err := os.ReadFile(l.sheetPath(sheet))
	if errors.Is(err, os.ErrNotExist) {
		return []Row{}, false, nil
	}
	if err != nil {
		return nil, false, storeErr("read sheet "+sheet, err)
	}
	payload = bytes.TrimPrefix(payload, []byte("\ufeff"))
	if len(bytes.TrimSpace(payload)) == 0 {
		return []Row{}, false, nil
	}

	reader := csv.NewReader(bytes.NewReader(payload))
	reader.FieldsPerRecord = -1
	lines, err := reader.ReadAll()
	if err != nil {
		return nil, false, storeErr("parse sheet "+sheet, err)
	}
	if !isHeader(lines[0]) {
		return nil, false, storeErr("read sheet "+sheet, fmt.Errorf("first row is not the expected header %v", Header))
	}

	rows := make([]Row, 0, len(lines)-1)
	for i, line := range lines[1:] {
		rec, err := recordFromValues(line)
		if err != nil {
			return nil, false, storeErr(fmt.Sprintf("parse sheet %s row %d", sheet, i+2), err)
		}
		rows = append(rows, Row{ID: int64(i + 1), Record: rec})
	}
	return rows, true, nil
}

func isHeader(line []string) bool {
	if len(line) != len(Header) {
		return false
	}
	for i, col := range Header {
		if strings.TrimSpace(line[i]) != col {
			return false
		}
	}
	return true
}

func (l *CSVLog) Append(ctx context.Context, sheet string, rec Record) (Row, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, hasHeader, err := l.read(sheet)
	if err != nil {
		return Row{}, err
	}
	serial := 1
	for _, row := range rows {
		if row.Serial >= serial {
			serial = row.Serial + 1
		}
	}
	rec.Serial = serial

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if !hasHeader {
		_ = w.Write(Header)
	}
	_ = w.Write(rec.Values())
	w.Flush()
	if err := w.Error(); err != nil {
		return Row{}, storeErr("encode row", err)
	}

	path := l.sheetPath(sheet)
	if !hasHeader {
		if err := fileops.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
			return Row{}, storeErr("write sheet "+sheet, err)
		}
		return Row{ID: 1, Record: rec}, nil
	}

	data := buf.Bytes()
	if existing, err := os.ReadFile(path); err == nil && len(existing) > 0 && existing[len(existing)-1] != '\n' {
		data = append([]byte("\n"), data...)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return Row{}, storeErr("open sheet "+sheet, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return Row{}, storeErr("append to sheet "+sheet, err)
	}
	if err := f.Close(); err != nil {
		return Row{}, storeErr("close sheet "+sheet, err)
	}
	return Row{ID: int64(len(rows) + 1), Record: rec}, nil
}

func (l *CSVLog) Update(ctx context.Context, sheet string, id int64, rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, _, err := l.read(sheet)
	if err != nil {
		return err
	}
	if id < 1 || int(id) > len(rows) {
		return storeErr("update record", fmt.Errorf("no row %d in sheet %q", id, sheet))
	}
	rec.Serial = rows[id-1].Serial
	rows[id-1].Record = rec

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(Header)
	for _, row := range rows {
		_ = w.Write(row.Values())
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return storeErr("encode sheet", err)
	}
	if err := fileops.WriteFileAtomic(l.sheetPath(sheet), buf.Bytes(), 0o644); err != nil {
		return storeErr("rewrite sheet "+sheet, err)
	}
	return nil
}

func (l *CSVLog) Close() error {
	return nil
}
