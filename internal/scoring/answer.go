// Package scoring grades reading-test answers. Every function is a pure
// computation over a Question and a raw submitted value: no I/O, no shared
// state, and a malformed answer is never an error, only an incorrect one.
package scoring

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/ielts-practice/reading-service/internal/models"
)

// AnswerShape is the canonical in-memory shape a question kind expects its
// answer in.
type AnswerShape int

const (
	// ShapeText is a single scalar string answer.
	ShapeText AnswerShape = iota
	// ShapeSet is an unordered collection of selected option values.
	ShapeSet
	// ShapePositions maps a blank/paragraph position key to the value
	// submitted for it.
	ShapePositions
)

// NormalizedAnswer is a raw submitted value coerced into the shape its
// question kind expects. Exactly one of Text, Items or Positions is
// populated, matching ShapeFor(kind); Empty marks a missing answer, which
// every scorer treats as incorrect with zero score.
type NormalizedAnswer struct {
	Empty     bool
	Text      string
	Items     []string
	Positions map[string]string
}

// ShapeFor returns the canonical answer shape for a question kind.
func ShapeFor(kind models.QuestionKind) AnswerShape {
	switch kind {
	case models.MultiChoice:
		return ShapeSet
	case models.FillBlankMultiple, models.FillBlankOneWordEach, models.Matching:
		return ShapePositions
	default:
		return ShapeText
	}
}

// NormalizeAnswer coerces an arbitrarily-shaped raw answer value into the
// canonical shape for the given question kind. The wire format is ambiguous
// by nature: clients submit strings, arrays, position-keyed objects, and
// sometimes JSON encodings of those inside a string. Absence and malformed
// input never fail; they normalize to an empty or best-effort literal
// answer so the submission stays gradeable.
func NormalizeAnswer(raw any, kind models.QuestionKind) NormalizedAnswer {
	if raw == nil {
		return NormalizedAnswer{Empty: true}
	}
	if s, ok := raw.(string); ok && s == "" {
		return NormalizedAnswer{Empty: true}
	}

	switch ShapeFor(kind) {
	case ShapeSet:
		return NormalizedAnswer{Items: toItems(raw)}
	case ShapePositions:
		if kind == models.Matching {
			raw = unwrapSelections(raw)
		}
		return NormalizedAnswer{Positions: toPositions(raw)}
	default:
		return NormalizedAnswer{Text: stringify(raw)}
	}
}

// DecodeRaw decodes a stored raw-answer payload into the dynamic value
// NormalizeAnswer accepts. Payloads that are not valid JSON are treated as
// literal strings rather than rejected.
func DecodeRaw(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	return v
}

func toItems(raw any) []string {
	switch v := raw.(type) {
	case []any:
		items := make([]string, len(v))
		for i, e := range v {
			items[i] = stringify(e)
		}
		return items
	case []string:
		return v
	case string:
		if parsed, ok := parseJSONString(v); ok {
			if arr, ok := parsed.([]any); ok {
				return toItems(arr)
			}
		}
		return []string{v}
	default:
		return []string{stringify(raw)}
	}
}

func toPositions(raw any) map[string]string {
	switch v := raw.(type) {
	case map[string]any:
		positions := make(map[string]string, len(v))
		for k, e := range v {
			positions[k] = stringify(e)
		}
		return positions
	case map[string]string:
		return v
	case []any:
		positions := make(map[string]string, len(v))
		for i, e := range v {
			positions[strconv.Itoa(i)] = stringify(e)
		}
		return positions
	case string:
		if parsed, ok := parseJSONString(v); ok {
			switch parsed.(type) {
			case map[string]any, []any:
				return toPositions(parsed)
			}
		}
		return map[string]string{"0": v}
	default:
		return map[string]string{"0": stringify(raw)}
	}
}

// unwrapSelections strips the {"type": ..., "selections": {...}} wrapper
// matching answers are authored and submitted in, leaving the bare
// position map. Values without the wrapper pass through unchanged.
func unwrapSelections(raw any) any {
	if s, ok := raw.(string); ok {
		if parsed, ok := parseJSONString(s); ok {
			raw = parsed
		}
	}
	if m, ok := raw.(map[string]any); ok {
		if sel, ok := m["selections"].(map[string]any); ok {
			return sel
		}
	}
	return raw
}

// parseJSONString parses a string that may itself be a JSON encoding of an
// array or object. Scalars and parse failures report ok=false so the caller
// falls back to the literal string.
func parseJSONString(s string) (any, bool) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return nil, false
	}
	return v, true
}

// stringify renders a dynamic JSON value the way loose clients expect
// scalars compared: numbers without a trailing ".0", booleans as
// "true"/"false", arrays joined with commas.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case nil:
		return ""
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = stringify(e)
		}
		return strings.Join(parts, ",")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func foldSpace(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func sortedCopy(items []string) []string {
	out := make([]string, len(items))
	copy(out, items)
	sort.Strings(out)
	return out
}
