// Package llmjson pulls a JSON object out of free-form model output.
//
// Models wrap JSON in markdown fences, prepend prose, leave trailing commas
// and sometimes emit typographic quotes. Extract tolerates all of these and
// returns bytes that encoding/json accepts.
package llmjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoJSON     = errors.New("llmjson: no JSON object found")
	ErrUnbalanced = errors.New("llmjson: unbalanced JSON object")
)

var smartQuotes = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`, "«", `"`, "»", `"`,
	"‘", "'", "’", "'",
)

// Extract returns the first JSON object (or array) in raw.
func Extract(raw string) ([]byte, error) {
	s := strings.TrimPrefix(raw, "\ufeff")
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrNoJSON
	}
	if inner, ok := fenced(s); ok {
		s = inner
	}

	out, err := extract(s)
	if err == nil {
		return out, nil
	}
	// Typographic quotes used as JSON delimiters; only normalised when the
	// literal text does not parse, since they are legal inside strings.
	if normalized := smartQuotes.Replace(s); normalized != s {
		if out, err2 := extract(normalized); err2 == nil {
			return out, nil
		}
	}
	return nil, err
}

// Decode extracts the JSON object from raw and unmarshals it into v.
func Decode(raw string, v any) error {
	b, err := Extract(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("llmjson: decode: %w", err)
	}
	return nil
}

func extract(s string) ([]byte, error) {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return nil, ErrNoJSON
	}
	end, err := matchClose(s, start)
	if err != nil {
		return nil, err
	}
	candidate := stripTrailingCommas(s[start : end+1])
	if !json.Valid(candidate) {
		return nil, fmt.Errorf("llmjson: invalid JSON: %s", preview(candidate))
	}
	return candidate, nil
}

// fenced returns the body of the first ``` block, with or without a
// language tag.
func fenced(s string) (string, bool) {
	i := strings.Index(s, "```")
	if i < 0 {
		return "", false
	}
	body := s[i+3:]
	// skip the info string ("json", "JSON", ...) up to end of line
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	}
	if j := strings.Index(body, "```"); j >= 0 {
		body = body[:j]
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return "", false
	}
	return body, true
}

// matchClose finds the bracket closing s[start], skipping string contents.
func matchClose(s string, start int) (int, error) {
	var stack []byte
	inStr, esc := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, ErrUnbalanced
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, nil
			}
		}
	}
	return 0, ErrUnbalanced
}

// stripTrailingCommas drops commas directly before } or ], outside strings.
func stripTrailingCommas(s string) []byte {
	var buf bytes.Buffer
	buf.Grow(len(s))
	inStr, esc := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			buf.WriteByte(c)
			continue
		}
		if c == '"' {
			inStr = true
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && strings.IndexByte(" \t\r\n", s[j]) >= 0 {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		buf.WriteByte(c)
	}
	return buf.Bytes()
}

func preview(b []byte) string {
	const n = 80
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
