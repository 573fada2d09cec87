package dataset

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hyperjump/traitview/internal/models"
)

// JSONSource reads a JSON array of records or one record per line (JSONL).
// The layout is detected from the first non-space byte.
type JSONSource struct {
	path string
}

// NewJSONSource returns a source reading path.
func NewJSONSource(path string) *JSONSource {
	return &JSONSource{path: path}
}

// Load reads every record from the file.
func (s *JSONSource) Load(ctx context.Context) ([]*models.Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()
	return Decode(ctx, s.path, f)
}

// Close is a no-op; the file is closed after Load.
func (s *JSONSource) Close() error { return nil }

// Decode reads records from r, which holds either a JSON array or JSONL. name
// is used in error messages.
func Decode(ctx context.Context, name string, r io.Reader) ([]*models.Record, error) {
	br := bufio.NewReader(r)
	first, err := firstByte(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if first == '[' {
		return decodeArray(ctx, name, br)
	}
	return decodeLines(ctx, name, br)
}

func firstByte(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
			continue
		}
		return b, br.UnreadByte()
	}
}

func decodeArray(ctx context.Context, name string, r io.Reader) ([]*models.Record, error) {
	dec := json.NewDecoder(r)
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	var out []*models.Record
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var rec models.Record
		if err := dec.Decode(&rec); err != nil {
			return nil, &DecodeError{Path: name, Record: len(out) + 1, Err: err}
		}
		out = append(out, &rec)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func decodeLines(ctx context.Context, name string, r io.Reader) ([]*models.Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var out []*models.Record
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var rec models.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, &DecodeError{Path: name, Record: len(out) + 1, Err: err}
		}
		out = append(out, &rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}
