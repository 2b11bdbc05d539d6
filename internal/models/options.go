package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Option lists travel through spreadsheet-hostile channels in two encodings:
// a readable pipe format ("A: text | B: text") and a token format that
// substitutes bracket/brace characters so CSV tooling leaves them alone.

const (
	noOptionsMarker  = "NO_OPTIONS"
	emptyArrayMarker = "EMPTY_ARRAY"
)

var optionTokens = strings.NewReplacer(
	"[", "ARRAY_START",
	"]", "ARRAY_END",
	"{", "OBJ_START",
	"}", "OBJ_END",
)

var optionTokensReverse = strings.NewReplacer(
	"ARRAY_START", "[",
	"ARRAY_END", "]",
	"OBJ_START", "{",
	"OBJ_END", "}",
)

// EncodePipeOptions renders options as "A: text | B: text | ...".
func EncodePipeOptions(opts []Option) string {
	if len(opts) == 0 {
		return noOptionsMarker
	}
	parts := make([]string, 0, len(opts))
	for _, o := range opts {
		parts = append(parts, fmt.Sprintf("%s: %s", o.ID, o.Text))
	}
	return strings.Join(parts, " | ")
}

// ParsePipeOptions converts pipe-separated options back to a structured list.
// Parts without an id separator are skipped.
func ParsePipeOptions(s string) []Option {
	s = strings.TrimSpace(s)
	if s == "" || s == noOptionsMarker {
		return nil
	}
	var opts []Option
	for _, part := range strings.Split(s, " | ") {
		id, text, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		opts = append(opts, Option{
			ID:   strings.TrimSpace(id),
			Text: strings.TrimSpace(text),
		})
	}
	return opts
}

// EncodeOptionsTokens serializes options as JSON with bracket tokens
// substituted.
func EncodeOptionsTokens(opts []Option) (string, error) {
	if len(opts) == 0 {
		return emptyArrayMarker, nil
	}
	raw, err := json.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("marshal options: %w", err)
	}
	return optionTokens.Replace(string(raw)), nil
}

// DecodeOptionsTokens reverses EncodeOptionsTokens. Undecodable input
// yields an empty list rather than an error, matching the lenient
// behaviour expected of spreadsheet round-trips.
func DecodeOptionsTokens(s string) []Option {
	s = strings.TrimSpace(s)
	if s == "" || s == emptyArrayMarker {
		return nil
	}
	decoded := optionTokensReverse.Replace(s)
	var opts []Option
	if err := json.Unmarshal([]byte(decoded), &opts); err != nil {
		return nil
	}
	return opts
}
