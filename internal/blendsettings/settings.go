// Package blendsettings parses the JSON blend specification carried
// after the "&" separator in a blend request URL into an ordered list
// of per-channel settings.
package blendsettings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Setting is one participating channel's blend configuration.
type Setting struct {
	ChannelIndex int
	TintHex      string // six lowercase hex digits, no leading '#'
	Min          uint64
	Max          uint64
}

// Error is returned for any malformed or semantically invalid blend
// specification. Code is the two-digit IIPImage-style error pair.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalid(format string, args ...interface{}) error {
	return &Error{Code: "2 1", Message: fmt.Sprintf(format, args...)}
}

// ErrEmpty is the error for a blend document with zero entries. Parse
// itself never returns it (an empty object parses to an empty slice);
// callers that reject empty blend sequences can return it.
var ErrEmpty = &Error{Code: "2 3", Message: "blend spec is empty"}

type rawEntry struct {
	Lut *string `json:"lut"`
	Min *int64  `json:"min"`
	Max *int64  `json:"max"`
}

// Parse decodes a blend spec document of the form
//
//	{ "10": {"lut":"00FF00","min":0,"max":4095}, ... }
//
// into an ordered slice of Setting, preserving the iteration order of
// the document. It never returns ErrEmpty itself -- callers decide
// whether an empty (but syntactically valid) spec is acceptable.
func Parse(doc []byte) ([]Setting, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))

	tok, err := dec.Token()
	if err != nil {
		return nil, invalid("malformed JSON: %v", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, invalid("expected a JSON object")
	}

	var settings []Setting
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, invalid("malformed JSON key: %v", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, invalid("expected string key, got %v", keyTok)
		}

		channelIndex, err := strconv.Atoi(key)
		if err != nil || channelIndex < 0 {
			return nil, invalid("channel index %q is not a non-negative integer", key)
		}

		var entry rawEntry
		if err := dec.Decode(&entry); err != nil {
			return nil, invalid("malformed entry for channel %q: %v", key, err)
		}

		setting, err := entry.toSetting(channelIndex)
		if err != nil {
			return nil, err
		}
		settings = append(settings, setting)
	}

	if _, err := dec.Token(); err != nil {
		return nil, invalid("malformed JSON: %v", err)
	}

	return settings, nil
}

func (e rawEntry) toSetting(channelIndex int) (Setting, error) {
	if e.Lut == nil {
		return Setting{}, invalid("channel %d: missing \"lut\"", channelIndex)
	}
	if e.Min == nil {
		return Setting{}, invalid("channel %d: missing \"min\"", channelIndex)
	}
	if e.Max == nil {
		return Setting{}, invalid("channel %d: missing \"max\"", channelIndex)
	}

	tint := strings.TrimPrefix(*e.Lut, "#")
	if !isHex6(tint) {
		return Setting{}, invalid("channel %d: %q is not six hex digits", channelIndex, *e.Lut)
	}

	if *e.Min < 0 {
		return Setting{}, invalid("channel %d: min must be non-negative", channelIndex)
	}
	if *e.Max < 0 {
		return Setting{}, invalid("channel %d: max must be non-negative", channelIndex)
	}
	if *e.Max <= *e.Min {
		return Setting{}, invalid("channel %d: max (%d) must be greater than min (%d)", channelIndex, *e.Max, *e.Min)
	}

	return Setting{
		ChannelIndex: channelIndex,
		TintHex:      strings.ToLower(tint),
		Min:          uint64(*e.Min),
		Max:          uint64(*e.Max),
	}, nil
}

func isHex6(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, c := range s {
		isDigit := c >= '0' && c <= '9'
		isLower := c >= 'a' && c <= 'f'
		isUpper := c >= 'A' && c <= 'F'
		if !isDigit && !isLower && !isUpper {
			return false
		}
	}
	return true
}
