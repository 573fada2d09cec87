package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlagKind distinguishes presence-only flags from qualified ones.
type FlagKind int

const (
	// BoolFlag carries a boolean; true means the flag is set.
	BoolFlag FlagKind = iota
	// StringFlag carries a qualifying text value.
	StringFlag
)

// Flag is a named attribute of a trait or of a whole field.
type Flag struct {
	Name string
	Kind FlagKind
	Bool bool
	Text string
}

// NewBoolFlag returns a presence-only flag.
func NewBoolFlag(name string, v bool) Flag {
	return Flag{Name: name, Kind: BoolFlag, Bool: v}
}

// NewStringFlag returns a qualified flag.
func NewStringFlag(name, text string) Flag {
	return Flag{Name: name, Kind: StringFlag, Text: text}
}

// Set reports whether the flag is switched on: true for booleans,
// non-empty for qualified flags.
func (f Flag) Set() bool {
	if f.Kind == StringFlag {
		return f.Text != ""
	}
	return f.Bool
}

// Flags is an ordered flag list. JSON objects decode in document order.
type Flags []Flag

// Get returns the flag called name.
func (fs Flags) Get(name string) (Flag, bool) {
	for _, f := range fs {
		if f.Name == name {
			return f, true
		}
	}
	return Flag{}, false
}

// Has reports whether the flag called name is present and set.
func (fs Flags) Has(name string) bool {
	f, ok := fs.Get(name)
	return ok && f.Set()
}

// UnmarshalJSON decodes a JSON object, keeping key order.
func (fs *Flags) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*fs = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("flags: expected object, got %v", tok)
	}
	var out Flags
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("flags: expected key, got %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("flags: value of %q: %w", name, err)
		}
		f, err := decodeFlag(name, raw)
		if err != nil {
			return err
		}
		out = append(out, f)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*fs = out
	return nil
}

// MarshalJSON encodes the flags as an object in list order.
func (fs Flags) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		var val []byte
		if f.Kind == StringFlag {
			val, err = json.Marshal(f.Text)
		} else {
			val, err = json.Marshal(f.Bool)
		}
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func decodeFlag(name string, raw json.RawMessage) (Flag, error) {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "true":
		return NewBoolFlag(name, true), nil
	case "false", "null":
		return NewBoolFlag(name, false), nil
	}
	var lit Literal
	if err := lit.UnmarshalJSON(raw); err != nil {
		return Flag{}, fmt.Errorf("flags: value of %q: %w", name, err)
	}
	return NewStringFlag(name, lit.String()), nil
}
