package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Text is a string field that may be explicitly missing. A missing Text
// encodes as JSON null.
type Text struct {
	Value string
	Valid bool
}

// NewText returns a present Text holding s.
func NewText(s string) Text {
	return Text{Value: s, Valid: true}
}

// Missing is the explicit missing marker.
var Missing = Text{}

func (t Text) String() string {
	return t.Value
}

func (t Text) IsMissing() bool {
	return !t.Valid
}

func (t Text) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Value)
}

// UnmarshalJSON accepts strings and null. Numbers and booleans are kept as
// their literal text since models sometimes emit confidence scores unquoted.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = Missing
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = NewText(s)
		return nil
	case '{', '[':
		return fmt.Errorf("expected string, got %s", data)
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*t = NewText(string(data))
	return nil
}

// Level is an integer rating decoded leniently: numbers are rounded, numeric
// strings such as "8" or "8/10" are parsed and null or placeholder strings
// decode as 0.
type Level int

func (l *Level) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseLevel(s)
		if err != nil {
			return err
		}
		*l = parsed
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid level %s: %w", data, err)
	}
	*l = Level(math.Round(f))
	return nil
}

// ParseLevel parses the leading number of s.
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(s)
	if IsPlaceholder(s) || strings.EqualFold(s, "unknown") || strings.EqualFold(s, "n/a") {
		return 0, nil
	}

	end := 0
	for end < len(s) && (s[end] == '.' || s[end] == '-' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid level %q", s)
	}
	return Level(math.Round(f)), nil
}

// IsPlaceholder reports whether s is one of the strings models use in place
// of a missing value.
func IsPlaceholder(s string) bool {
	switch s {
	case "", "Unknown", "N/A":
		return true
	}
	return false
}
