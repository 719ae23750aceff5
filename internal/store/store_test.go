package store

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openBackends(t *testing.T) map[string]Log {
	t.Helper()
	dir := t.TempDir()

	sqliteLog, err := OpenSQLite(filepath.Join(dir, "library.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqliteLog.Close() })

	csvLog, err := OpenCSV(filepath.Join(dir, "logs"))
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	return map[string]Log{"sqlite": sqliteLog, "csv": csvLog}
}

func sampleRecord(filename string) Record {
	return Record{
		Timestamp: "2026-10-19 12:00:00",
		Filename:  filename,
		SourceURL: "https://youtu.be/x",
		Title:     "A",
		Artist:    "Artist",
		Album:     "Album",
		Duration:  "3:00",
		FileSize:  "2.00 MB",
		Category:  Uncategorized,
	}
}

func TestAppendAssignsContiguousSerials(t *testing.T) {
	for name, log := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 1; i <= 3; i++ {
				row, err := log.Append(ctx, "downloads", sampleRecord("song.mp3"))
				if err != nil {
					t.Fatalf("append %d: %v", i, err)
				}
				if row.Serial != i {
					t.Fatalf("expected serial %d, got %d", i, row.Serial)
				}
			}
			row, err := log.Append(ctx, "other", sampleRecord("x.mp3"))
			if err != nil || row.Serial != 1 {
				t.Fatalf("expected independent serials per sheet, got %d (%v)", row.Serial, err)
			}

			rows, err := log.Rows(ctx, "downloads")
			if err != nil || len(rows) != 3 {
				t.Fatalf("expected three rows, got %d (%v)", len(rows), err)
			}
			sheets, err := log.Sheets(ctx)
			if err != nil || strings.Join(sheets, ",") != "downloads,other" {
				t.Fatalf("unexpected sheets %v (%v)", sheets, err)
			}
		})
	}
}

func TestUpdateKeepsSerial(t *testing.T) {
	for name, log := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, _ = log.Append(ctx, "downloads", sampleRecord("a.mp3"))
			second, err := log.Append(ctx, "downloads", sampleRecord("b.mp3"))
			if err != nil {
				t.Fatalf("append: %v", err)
			}

			updated := sampleRecord("b.mp3")
			updated.Serial = 99
			updated.FileSize = "3.50 MB"
			if err := log.Update(ctx, "downloads", second.ID, updated); err != nil {
				t.Fatalf("update: %v", err)
			}

			rows, _ := log.Rows(ctx, "downloads")
			if rows[1].Serial != 2 || rows[1].FileSize != "3.50 MB" {
				t.Fatalf("unexpected updated row %+v", rows[1])
			}
			if err := log.Update(ctx, "downloads", 12345, updated); !errors.Is(err, ErrStore) {
				t.Fatalf("expected store error for missing row, got %v", err)
			}
		})
	}
}

func TestCSVEmptyLogWritesHeaderFirst(t *testing.T) {
	dir := t.TempDir()
	log, _ := OpenCSV(dir)

	row, err := log.Append(context.Background(), "downloads", sampleRecord("song.mp3"))
	if err != nil || row.Serial != 1 {
		t.Fatalf("expected serial 1, got %d (%v)", row.Serial, err)
	}
	payload, _ := os.ReadFile(filepath.Join(dir, "downloads.csv"))
	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	if len(lines) != 2 || lines[0] != strings.Join(Header, ",") {
		t.Fatalf("expected header then one row, got %q", payload)
	}
}

func TestCSVHeaderPlusThreeRowsYieldsSerialFour(t *testing.T) {
	dir := t.TempDir()
	existing := strings.Join(Header, ",") + "\n" +
		"1,t,a.mp3,u,A,x,y,3:00,1.00 MB,uncategorized\n" +
		"2,t,b.mp3,u,B,x,y,3:00,1.00 MB,uncategorized\n" +
		"3,t,c.mp3,u,C,x,y,3:00,1.00 MB,uncategorized"
	if err := os.WriteFile(filepath.Join(dir, "downloads.csv"), []byte(existing), 0o644); err != nil {
		t.Fatalf("seed sheet: %v", err)
	}
	log, _ := OpenCSV(dir)

	row, err := log.Append(context.Background(), "downloads", sampleRecord("d.mp3"))
	if err != nil || row.Serial != 4 {
		t.Fatalf("expected serial 4, got %d (%v)", row.Serial, err)
	}
	rows, err := log.Rows(context.Background(), "downloads")
	if err != nil || len(rows) != 4 || rows[3].Filename != "d.mp3" {
		t.Fatalf("expected appended fourth row, got %+v (%v)", rows, err)
	}
}

func TestCSVMalformedHeaderIsStoreFailure(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "downloads.csv"), []byte("1,t,a.mp3\n"), 0o644); err != nil {
		t.Fatalf("seed sheet: %v", err)
	}
	log, _ := OpenCSV(dir)

	if _, err := log.Append(context.Background(), "downloads", sampleRecord("x.mp3")); !errors.Is(err, ErrStore) {
		t.Fatalf("expected ErrStore for headerless sheet, got %v", err)
	}
}

func TestRecorderAddMirrorsCategorySheet(t *testing.T) {
	for name, log := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			recorder := NewRecorder(log, "downloads", nil)
			recorder.Now = func() time.Time { return time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC) }

			rec := sampleRecord("song.mp3")
			rec.Timestamp = ""
			rec.Category = "中文歌"
			if _, err := recorder.Add(ctx, rec); err != nil {
				t.Fatalf("add: %v", err)
			}
			plain := sampleRecord("plain.mp3")
			plain.Category = ""
			if _, err := recorder.Add(ctx, plain); err != nil {
				t.Fatalf("add plain: %v", err)
			}

			master, _ := log.Rows(ctx, "downloads")
			category, _ := log.Rows(ctx, "中文歌")
			if len(master) != 2 || len(category) != 1 {
				t.Fatalf("expected 2 master and 1 category row, got %d/%d", len(master), len(category))
			}
			if master[0].Timestamp != "2026-10-19 08:30:00" {
				t.Fatalf("unexpected timestamp %q", master[0].Timestamp)
			}
			if master[1].Category != Uncategorized {
				t.Fatalf("expected uncategorized marker, got %q", master[1].Category)
			}
		})
	}
}

func TestRecorderReplaceUpdatesMasterAndCategory(t *testing.T) {
	for name, log := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			recorder := NewRecorder(log, "downloads", nil)

			rec := sampleRecord("song.mp3")
			rec.Category = "日文歌"
			first, _ := recorder.Add(ctx, rec)
			second, _ := log.Append(ctx, "downloads", sampleRecord("song.mp3"))

			replacement := rec
			replacement.FileSize = "4.00 MB"
			if err := recorder.Replace(ctx, []int64{first.ID, second.ID}, replacement); err != nil {
				t.Fatalf("replace: %v", err)
			}

			master, _ := log.Rows(ctx, "downloads")
			for _, row := range master {
				if row.FileSize != "4.00 MB" {
					t.Fatalf("expected all matched rows updated, got %+v", row)
				}
			}
			if master[0].Serial != 1 || master[1].Serial != 2 {
				t.Fatalf("expected serials preserved, got %d,%d", master[0].Serial, master[1].Serial)
			}
			category, _ := log.Rows(ctx, "日文歌")
			if len(category) != 1 || category[0].FileSize != "4.00 MB" {
				t.Fatalf("expected category row rewritten in place, got %+v", category)
			}

			other := sampleRecord("new.mp3")
			other.Category = "英文歌"
			if err := recorder.Replace(ctx, nil, other); err != nil {
				t.Fatalf("replace into empty category: %v", err)
			}
			english, _ := log.Rows(ctx, "英文歌")
			if len(english) != 1 {
				t.Fatalf("expected category row appended, got %d", len(english))
			}
		})
	}
}

func TestExportCSV(t *testing.T) {
	for name, log := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, _ = log.Append(ctx, "downloads", sampleRecord("a.mp3"))
			_, _ = log.Append(ctx, "downloads", sampleRecord("b, with comma.mp3"))

			var buf bytes.Buffer
			n, err := ExportCSV(ctx, log, "downloads", &buf)
			if err != nil || n != 2 {
				t.Fatalf("export: n=%d err=%v", n, err)
			}
			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			if len(lines) != 3 || lines[0] != strings.Join(Header, ",") {
				t.Fatalf("unexpected export %q", buf.String())
			}
			if !strings.Contains(lines[2], `"b, with comma.mp3"`) {
				t.Fatalf("expected quoted field, got %q", lines[2])
			}
		})
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", t.TempDir()); !errors.Is(err, ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
}

func TestSQLiteCanceledContextKeepsCause(t *testing.T) {
	log, err := OpenSQLite(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = log.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = log.Append(ctx, "downloads", sampleRecord("song.mp3"))
	if !errors.Is(err, ErrStore) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected a store error wrapping context.Canceled, got %v", err)
	}
}
