// Package dataset loads the record collection handed over by the trait
// extraction producer. Sources are read once at startup; the records they
// return are treated as immutable.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/traitview/internal/models"
)

// Supported formats.
const (
	FormatJSON   = "json"
	FormatJSONL  = "jsonl"
	FormatSQLite = "sqlite"
)

var (
	// ErrEmptyPath is returned when no dataset path is configured.
	ErrEmptyPath = errors.New("dataset path is empty")
	// ErrUnknownFormat is returned for formats other than json, jsonl and sqlite.
	ErrUnknownFormat = errors.New("unknown dataset format")
)

// DecodeError reports a record that could not be decoded.
type DecodeError struct {
	Path string
	// Record is the 1-based position of the record in the source.
	Record int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: record %d: %v", e.Path, e.Record, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Source yields the full record collection.
type Source interface {
	Load(ctx context.Context) ([]*models.Record, error)
	Close() error
}

// Info describes a dataset file.
type Info struct {
	Path    string    `json:"path"`
	Format  string    `json:"format"`
	Bytes   int64     `json:"bytes"`
	ModTime time.Time `json:"mod_time"`
}

// DetectFormat infers the format from the file extension.
func DetectFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite, nil
	default:
		return "", fmt.Errorf("%w: cannot infer from %q", ErrUnknownFormat, path)
	}
}

// Open returns a source for path. An empty format is inferred from the
// extension.
func Open(path, format string) (Source, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	if format == "" {
		f, err := DetectFormat(path)
		if err != nil {
			return nil, err
		}
		format = f
	}
	switch strings.ToLower(format) {
	case FormatJSON, FormatJSONL:
		return NewJSONSource(path), nil
	case FormatSQLite:
		return NewSQLiteSource(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// LoadAll opens path, loads every record and closes the source.
func LoadAll(ctx context.Context, path, format string) ([]*models.Record, error) {
	src, err := Open(path, format)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return src.Load(ctx)
}

// Stat returns size and modification time of the dataset file.
func Stat(path, format string) (*Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format, _ = DetectFormat(path)
	}
	return &Info{Path: path, Format: format, Bytes: fi.Size(), ModTime: fi.ModTime()}, nil
}
