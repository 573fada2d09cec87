package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Literal is a producer value rendered as display text. The producer emits
// values as strings, numbers, booleans, lists or null; Literal keeps the text a
// template literal would show and remembers whether a value was present.
type Literal struct {
	text string
	set  bool
}

// Text returns a present Literal holding s.
func Text(s string) Literal {
	return Literal{text: s, set: true}
}

// String returns the display text; absent values render as "".
func (l Literal) String() string { return l.text }

// Present reports whether the value is set and non-empty.
func (l Literal) Present() bool { return l.set && l.text != "" }

// UnmarshalJSON accepts any JSON scalar or list. Lists are comma-joined.
func (l *Literal) UnmarshalJSON(data []byte) error {
	text, set, err := literalText(data)
	if err != nil {
		return err
	}
	l.text, l.set = text, set
	return nil
}

// MarshalJSON writes the display text, or null when absent.
func (l Literal) MarshalJSON() ([]byte, error) {
	if !l.set {
		return []byte("null"), nil
	}
	return json.Marshal(l.text)
}

func literalText(data []byte) (string, bool, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", false, nil
	}
	switch data[0] {
	case 'n':
		return "", false, nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", false, err
		}
		return s, true, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return "", false, err
		}
		parts := make([]string, len(items))
		for i, item := range items {
			text, _, err := literalText(item)
			if err != nil {
				return "", false, err
			}
			parts[i] = text
		}
		return strings.Join(parts, ","), true, nil
	case 't', 'f':
		b, err := strconv.ParseBool(string(data))
		if err != nil {
			return "", false, fmt.Errorf("invalid literal %q", data)
		}
		return strconv.FormatBool(b), true, nil
	case '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return "", false, err
		}
		return buf.String(), true, nil
	default:
		return numberText(string(data))
	}
}

// numberText renders a JSON number the shortest way, so 12.0 shows as 12.
func numberText(s string) (string, bool, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", false, fmt.Errorf("invalid literal %q", s)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true, nil
}
