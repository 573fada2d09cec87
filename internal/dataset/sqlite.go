package dataset

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/traitview/internal/models"
)

// SQLiteSource reads a dataset snapshot written by ImportSQLite.
type SQLiteSource struct {
	path string
	db   *sql.DB
}

// NewSQLiteSource opens the snapshot at path read-only.
func NewSQLiteSource(path string) (*SQLiteSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &SQLiteSource{path: path, db: db}, nil
}

// Load returns every record in snapshot order.
func (s *SQLiteSource) Load(ctx context.Context) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT position, body FROM records ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		var pos int
		var body string
		if err := rows.Scan(&pos, &body); err != nil {
			return nil, err
		}
		var rec models.Record
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			return nil, &DecodeError{Path: s.path, Record: pos, Err: err}
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// Count returns the number of records in the snapshot.
func (s *SQLiteSource) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		position INTEGER PRIMARY KEY,
		body TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`
	_, err := db.Exec(schema)
	return err
}

// ImportSQLite writes records to a snapshot at path, replacing any records
// already there. Parent directories are created if they do not exist. The
// snapshot keeps the default rollback journal so it can be opened read-only.
func ImportSQLite(ctx context.Context, path string, records []*models.Record) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := initSchema(db); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (position, body) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, rec := range records {
		body, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record %d: %w", i+1, err)
		}
		if _, err := stmt.ExecContext(ctx, i+1, string(body)); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('record_count', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		strconv.Itoa(len(records)),
	); err != nil {
		return err
	}
	return tx.Commit()
}
