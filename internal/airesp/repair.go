// Package airesp turns raw model output into structurally valid,
// application-usable quiz objects: JSON extraction and repair, model-quirk
// transformation, and schema normalization with per-question sanitization.
package airesp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// previewLimit bounds the input preview embedded in a total-failure error.
const previewLimit = 500

// RepairFunc is an optional AI-assisted repair step: given the best cleaned
// candidate so far it returns text to re-parse. Any failure simply removes
// this attempt from consideration.
type RepairFunc func(ctx context.Context, candidate string) (string, error)

// ValidateFunc gates acceptance of a parsed document at every stage: a
// structurally valid but semantically wrong document must not be accepted.
type ValidateFunc func(v any) error

// ParseOptions configure ParseWithRepair.
type ParseOptions struct {
	Validate ValidateFunc
	Repair   RepairFunc
	Logger   *slog.Logger
}

// Attempt records one parsing strategy's outcome.
type Attempt struct {
	Method string
	OK     bool
	Err    string
}

// ParseError reports that every strategy failed. Its message enumerates each
// attempt and carries a preview of the original input, because the upstream
// model's output is the most likely root cause and the evidence matters.
type ParseError struct {
	Attempts []Attempt
	Preview  string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("all JSON parse strategies failed:")
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, " [%s ok=%t", a.Method, a.OK)
		if a.Err != "" {
			fmt.Fprintf(&b, " err=%s", a.Err)
		}
		b.WriteString("]")
	}
	fmt.Fprintf(&b, " input preview: %s", e.Preview)
	return b.String()
}

// ParseWithRepair recovers a JSON document from noisy model output. The
// strategies run in order and short-circuit on the first result that parses
// and passes validation:
//
//  1. direct parse of the raw text
//  2. extract a JSON block (fences, then balanced-brace scan), clean it
//     (smart quotes, BOM, trailing commas, needless escapes) and parse
//  3. re-parse the extracted block without the cleanup, in case the cleanup
//     itself broke it
//  4. if a repair callback is configured, run it on the best candidate and
//     repeat the above on its output
func ParseWithRepair(ctx context.Context, raw string, opts ParseOptions) (any, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	var attempts []Attempt
	try := func(method, candidate string) (any, bool) {
		v, err := parseAndValidate(candidate, opts.Validate)
		a := Attempt{Method: method, OK: err == nil}
		if err != nil {
			a.Err = err.Error()
		}
		attempts = append(attempts, a)
		log.Debug("json parse attempt", "method", method, "ok", a.OK, "error", a.Err)
		return v, err == nil
	}

	if v, ok := try("direct", raw); ok {
		return v, nil
	}

	extracted := ExtractJSONBlock(raw)
	cleaned := CleanJSONCandidate(extracted)
	if v, ok := try("extract+clean", cleaned); ok {
		return v, nil
	}
	if v, ok := try("extract-raw", extracted); ok {
		return v, nil
	}

	if opts.Repair != nil {
		best := cleaned
		if strings.TrimSpace(best) == "" {
			best = raw
		}
		repaired, err := opts.Repair(ctx, best)
		if err != nil {
			attempts = append(attempts, Attempt{Method: "ai-repair", Err: err.Error()})
			log.Debug("json parse attempt", "method", "ai-repair", "ok", false, "error", err.Error())
		} else {
			if v, ok := try("ai-repair-direct", repaired); ok {
				return v, nil
			}
			if v, ok := try("ai-repair-extract", CleanJSONCandidate(ExtractJSONBlock(repaired))); ok {
				return v, nil
			}
		}
	}

	return nil, &ParseError{Attempts: attempts, Preview: preview(raw)}
}

// SafeParse wraps only the direct strategy and never fails: unparsable input
// yields the fallback.
func SafeParse(raw string, fallback any) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return fallback
	}
	return v
}

func parseAndValidate(candidate string, validate ValidateFunc) (any, error) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return nil, fmt.Errorf("empty candidate")
	}
	var v any
	if err := json.Unmarshal([]byte(candidate), &v); err != nil {
		return nil, err
	}
	if validate != nil {
		if err := validate(v); err != nil {
			return nil, fmt.Errorf("validation: %w", err)
		}
	}
	return v, nil
}

// ExtractJSONBlock pulls the most plausible JSON payload out of prose or
// markdown: fenced blocks first, then the balanced region starting at the
// first brace or bracket.
func ExtractJSONBlock(raw string) string {
	for _, fence := range []string{"```json", "```JSON"} {
		if block, ok := fencedContent(raw, fence); ok {
			return block
		}
	}
	if block, ok := fencedContent(raw, "```"); ok {
		// A generic fence may still wrap non-JSON; only take it when it
		// looks structural.
		t := strings.TrimSpace(block)
		if strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[") {
			return block
		}
	}
	if start := strings.IndexAny(raw, "`"); start >= 0 {
		if end := strings.IndexRune(raw[start+1:], '`'); end > 0 {
			inner := raw[start+1 : start+1+end]
			t := strings.TrimSpace(inner)
			if strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[") {
				return inner
			}
		}
	}
	return balancedRegion(raw)
}

func fencedContent(raw, fence string) (string, bool) {
	start := strings.Index(raw, fence)
	if start < 0 {
		return "", false
	}
	rest := raw[start+len(fence):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// balancedRegion returns the structurally balanced JSON region beginning at
// the first '{' or '['. String literals and backslash escapes are tracked so
// braces inside strings are not counted.
func balancedRegion(raw string) string {
	start := -1
	var open, close byte
	for i := 0; i < len(raw); i++ {
		if raw[i] == '{' {
			start, open, close = i, '{', '}'
			break
		}
		if raw[i] == '[' {
			start, open, close = i, '[', ']'
			break
		}
	}
	if start < 0 {
		return raw
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	// Unbalanced input: return from the opener onward and let cleanup and
	// the parser report what's wrong.
	return raw[start:]
}

var jsonSmartQuotes = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`,
	"‘", "'", "’", "'",
)

// CleanJSONCandidate normalizes the usual model damage: smart quotes, BOM,
// trailing commas before a closing bracket, and needless \' escapes.
func CleanJSONCandidate(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	s = jsonSmartQuotes.Replace(s)
	s = strings.ReplaceAll(s, `\'`, "'")
	s = removeTrailingCommas(s)
	return strings.TrimSpace(s)
}

// removeTrailingCommas drops commas directly before a closing } or ],
// ignoring commas inside string literals.
func removeTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue // skip the comma
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func preview(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > previewLimit {
		return s[:previewLimit]
	}
	return s
}
