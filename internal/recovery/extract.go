// Package recovery turns model free text that should have been a JSON array
// of records into parsed records, repairing truncated output where possible.
package recovery

import (
	"encoding/json"
	"regexp"
	"strings"

	"filmgen/internal/domain"
)

// Strategy names the step that produced a parseable value.
type Strategy string

const (
	StrategyDirect       Strategy = "direct"
	StrategyBraceRepair  Strategy = "brace_repair"
	StrategyCoarseRepair Strategy = "coarse_repair"
)

// ExcerptLimit bounds the raw text quoted in a parse failure.
const ExcerptLimit = 200

var (
	leadingFence  = regexp.MustCompile("(?i)^```[ \\t]*(?:json|text|plaintext)?[ \\t]*\\r?\\n?")
	trailingFence = regexp.MustCompile("\\r?\\n?[ \\t]*```$")
)

// wrapperKeys are checked in order when the model returned an object instead
// of an array.
var wrapperKeys = []string{"shots", "shot_list", "data"}

// signatureKeys mark an object as a single bare record.
var signatureKeys = []string{
	"description", "action", "dialogue", "shot_type", "shotType", "shot_number", "shotNumber",
	"camera_angle", "cameraAngle", "movement", "camera_movement", "characters",
}

// Recover extracts the array of records encoded in raw. Elements that are not
// objects are dropped.
func Recover(raw string) ([]map[string]any, Strategy, error) {
	text := StripFences(raw)
	candidate := locateCandidate(text)

	value, strategy, err := parseWithRepair(text, candidate)
	if err != nil {
		return nil, "", parseFailure("no repair strategy produced valid JSON", raw, err)
	}
	items, ok := asArray(value)
	if !ok {
		return nil, "", parseFailure("payload is neither an array nor a wrapped record list", raw, nil)
	}
	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			records = append(records, obj)
		}
	}
	return records, strategy, nil
}

// StripFences trims raw and removes a leading fenced-code marker and a
// trailing fence.
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = leadingFence.ReplaceAllString(text, "")
		text = trailingFence.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}

// locateCandidate picks the greedy array span when an array opens before any
// object, else the greedy object span. An unterminated array runs to the end
// of the text so the repair pass can salvage its prefix.
func locateCandidate(text string) string {
	arrOpen := strings.IndexByte(text, '[')
	objOpen := strings.IndexByte(text, '{')
	if arrOpen >= 0 && (objOpen < 0 || arrOpen < objOpen) {
		if end := strings.LastIndexByte(text, ']'); end > arrOpen {
			return text[arrOpen : end+1]
		}
		return text[arrOpen:]
	}
	if objOpen >= 0 {
		if end := strings.LastIndexByte(text, '}'); end > objOpen {
			return text[objOpen : end+1]
		}
		return text[objOpen:]
	}
	return text
}

func parseWithRepair(text, candidate string) (any, Strategy, error) {
	value, err := decode(candidate)
	if err == nil {
		return value, StrategyDirect, nil
	}
	firstErr := err

	if repaired, ok := braceRepair(text); ok {
		if value, err := decode(repaired); err == nil {
			return value, StrategyBraceRepair, nil
		}
	}
	if repaired, ok := coarseRepair(text); ok {
		if value, err := decode(repaired); err == nil {
			return value, StrategyCoarseRepair, nil
		}
	}
	return nil, "", firstErr
}

// braceRepair keeps the longest run of fully closed top-level objects in an
// array whose tail was cut off. It scans from the first '[' to the end of the
// text rather than the greedy candidate, since a ']' inside a string value
// would otherwise cut the candidate short. Braces inside string literals are
// ignored.
func braceRepair(text string) (string, bool) {
	open := strings.IndexByte(text, '[')
	if open < 0 {
		return "", false
	}
	closes := closingIndexes(text[open:])
	if len(closes) == 0 {
		return "", false
	}
	last := open + closes[len(closes)-1]
	return closeArray(text[open : last+1]), true
}

// closingIndexes returns every index in s where the object depth returns to
// zero outside a string literal.
func closingIndexes(s string) []int {
	var (
		closes   []int
		depth    int
		inString bool
		escaped  bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				closes = append(closes, i)
			}
		}
	}
	return closes
}

// coarseRepair truncates at the last '}' anywhere in the text and re-closes
// the array.
func coarseRepair(text string) (string, bool) {
	open := strings.IndexByte(text, '[')
	last := strings.LastIndexByte(text, '}')
	if open < 0 || last < open {
		return "", false
	}
	return closeArray(text[open : last+1]), true
}

func closeArray(s string) string {
	s = strings.TrimRight(strings.TrimSpace(s), ",")
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, "]") {
		s += "]"
	}
	return s
}

func decode(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func asArray(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case map[string]any:
		for _, key := range wrapperKeys {
			if arr, ok := t[key].([]any); ok {
				return arr, true
			}
		}
		for _, key := range signatureKeys {
			if _, ok := t[key]; ok {
				return []any{t}, true
			}
		}
	}
	return nil, false
}

func parseFailure(reason, raw string, err error) error {
	return domain.Wrap(domain.ErrParseFailure, "recovery", reason, "raw text: "+Excerpt(raw), err)
}

// Excerpt returns at most ExcerptLimit runes of trimmed raw text.
func Excerpt(raw string) string {
	raw = strings.TrimSpace(raw)
	runes := []rune(raw)
	if len(runes) <= ExcerptLimit {
		return raw
	}
	return string(runes[:ExcerptLimit]) + "..."
}
