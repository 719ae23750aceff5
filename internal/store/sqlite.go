package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteLog keeps every sheet in one database file. Each sheet has an
// explicit next_serial counter, so serials never depend on row counting.
type SQLiteLog struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteLog, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storeErr("create store directory", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storeErr("open database", err)
	}
	db.SetMaxOpenConns(1)
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, storeErr("init schema", err)
	}
	return &SQLiteLog{db: db}, nil
}

func initSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sheets (
			name        TEXT PRIMARY KEY,
			next_serial INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			sheet      TEXT NOT NULL REFERENCES sheets(name),
			serial     INTEGER NOT NULL,
			timestamp  TEXT NOT NULL,
			filename   TEXT NOT NULL,
			source_url TEXT NOT NULL,
			title      TEXT NOT NULL,
			artist     TEXT NOT NULL,
			album      TEXT NOT NULL,
			duration   TEXT NOT NULL,
			file_size  TEXT NOT NULL,
			category   TEXT NOT NULL,
			UNIQUE (sheet, serial)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_sheet_filename ON records (sheet, filename)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteLog) Sheets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM sheets ORDER BY name`)
	if err != nil {
		return nil, storeErr("list sheets", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storeErr("scan sheet", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list sheets", err)
	}
	return names, nil
}

func (s *SQLiteLog) Rows(ctx context.Context, sheet string) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, serial, timestamp, filename, source_url, title, artist, album, duration, file_size, category
		 FROM records WHERE sheet = ? ORDER BY serial`, sheet)
	if err != nil {
		return nil, storeErr("query rows", err)
	}
	defer rows.Close()

	out := []Row{}
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.ID, &row.Serial, &row.Timestamp, &row.Filename, &row.SourceURL,
			&row.Title, &row.Artist, &row.Album, &row.Duration, &row.FileSize, &row.Category); err != nil {
			return nil, storeErr("scan row", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("query rows", err)
	}
	return out, nil
}

func (s *SQLiteLog) Append(ctx context.Context, sheet string, rec Record) (Row, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Row{}, storeErr("begin append", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO sheets (name) VALUES (?)`, sheet); err != nil {
		return Row{}, storeErr("create sheet", err)
	}
	var serial int
	if err := tx.QueryRowContext(ctx, `SELECT next_serial FROM sheets WHERE name = ?`, sheet).Scan(&serial); err != nil {
		return Row{}, storeErr("read serial counter", err)
	}

	rec.Serial = serial
	res, err := tx.ExecContext(ctx,
		`INSERT INTO records (sheet, serial, timestamp, filename, source_url, title, artist, album, duration, file_size, category)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sheet, rec.Serial, rec.Timestamp, rec.Filename, rec.SourceURL,
		rec.Title, rec.Artist, rec.Album, rec.Duration, rec.FileSize, rec.Category)
	if err != nil {
		return Row{}, storeErr("insert record", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE sheets SET next_serial = next_serial + 1 WHERE name = ?`, sheet); err != nil {
		return Row{}, storeErr("advance serial counter", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Row{}, storeErr("read record id", err)
	}
	if err := tx.Commit(); err != nil {
		return Row{}, storeErr("commit append", err)
	}
	return Row{ID: id, Record: rec}, nil
}

func (s *SQLiteLog) Update(ctx context.Context, sheet string, id int64, rec Record) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET timestamp = ?, filename = ?, source_url = ?, title = ?, artist = ?,
		 album = ?, duration = ?, file_size = ?, category = ?
		 WHERE sheet = ? AND id = ?`,
		rec.Timestamp, rec.Filename, rec.SourceURL, rec.Title, rec.Artist,
		rec.Album, rec.Duration, rec.FileSize, rec.Category, sheet, id)
	if err != nil {
		return storeErr("update record", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storeErr("update record", err)
	}
	if affected == 0 {
		return storeErr("update record", fmt.Errorf("no row %d in sheet %q", id, sheet))
	}
	return nil
}

func (s *SQLiteLog) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil && !errors.Is(err, sql.ErrConnDone) {
		return storeErr("close database", err)
	}
	return nil
}
