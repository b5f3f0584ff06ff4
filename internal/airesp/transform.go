package airesp

import (
	"encoding/json"
	"strings"
)

// questionTypeSynonyms maps lowercase substrings of free-text type labels to
// canonical tags. Order matters: the first hit wins.
var questionTypeSynonyms = []struct {
	substr    string
	canonical string
}{
	{"mcq", "MCQ"},
	{"multiple", "MCQ"},
	{"true", "True/False"},
	{"false", "True/False"},
	{"fill", "Fill in Blank"},
	{"blank", "Fill in Blank"},
	{"short", "Short Answer"},
	{"subjective", "Short Answer"},
}

// NormalizeQuestionType maps a free-text type label to a canonical tag.
// Unrecognized strings pass through unchanged so the sanitizer can reject
// them with a reason.
func NormalizeQuestionType(t string) string {
	lower := strings.ToLower(t)
	for _, syn := range questionTypeSynonyms {
		if strings.Contains(lower, syn.substr) {
			return syn.canonical
		}
	}
	return t
}

// TransformQuizResponse fixes known model quirks on the decoded quiz object
// before schema normalization: inconsistent type labels, missing or unmarked
// True/False options, unmarked MCQ answers, and the correct/isCorrect field
// rename. The input is deep-cloned; the caller's value is never mutated.
func TransformQuizResponse(raw map[string]any) map[string]any {
	out := deepCloneMap(raw)
	questions, ok := out["questions"].([]any)
	if !ok {
		return out
	}
	for i, q := range questions {
		if qm, ok := q.(map[string]any); ok {
			questions[i] = transformQuestion(qm)
		}
	}
	out["questions"] = questions
	return out
}

func transformQuestion(q map[string]any) map[string]any {
	if t, ok := q["type"].(string); ok {
		q["type"] = NormalizeQuestionType(t)
	}

	qType, _ := q["type"].(string)
	switch qType {
	case "True/False":
		fixTrueFalse(q)
	case "MCQ":
		fixMCQ(q)
	}

	if opts, ok := q["options"].([]any); ok {
		for _, o := range opts {
			if om, ok := o.(map[string]any); ok {
				renameCorrectField(om)
			}
		}
	}
	return q
}

// fixTrueFalse synthesizes or marks the two True/False options from the
// answer field when the model forgot them.
func fixTrueFalse(q map[string]any) {
	opts, _ := q["options"].([]any)
	for _, o := range opts {
		if om, ok := o.(map[string]any); ok {
			renameCorrectField(om)
		}
	}

	if len(opts) != 2 {
		isTrue := answerIsTrue(q["answer"])
		q["options"] = []any{
			map[string]any{"text": "True", "isCorrect": isTrue},
			map[string]any{"text": "False", "isCorrect": !isTrue},
		}
		return
	}

	if !anyOptionCorrect(opts) {
		isTrue := answerIsTrue(q["answer"])
		for _, o := range opts {
			om, ok := o.(map[string]any)
			if !ok {
				continue
			}
			text, _ := om["text"].(string)
			om["isCorrect"] = strings.EqualFold(strings.TrimSpace(text), "true") == isTrue
		}
	}
}

// fixMCQ marks a correct option when none is marked: match the answer text
// exactly, then case-insensitively, and as a last resort take the first
// option rather than leave the question unanswerable.
func fixMCQ(q map[string]any) {
	opts, _ := q["options"].([]any)
	if len(opts) == 0 {
		return
	}
	for _, o := range opts {
		if om, ok := o.(map[string]any); ok {
			renameCorrectField(om)
		}
	}
	if anyOptionCorrect(opts) {
		return
	}

	answer, _ := q["answer"].(string)
	answer = strings.TrimSpace(answer)

	match := -1
	if answer != "" {
		for i, o := range opts {
			om, ok := o.(map[string]any)
			if !ok {
				continue
			}
			if text, _ := om["text"].(string); strings.TrimSpace(text) == answer {
				match = i
				break
			}
		}
		if match < 0 {
			for i, o := range opts {
				om, ok := o.(map[string]any)
				if !ok {
					continue
				}
				if text, _ := om["text"].(string); strings.EqualFold(strings.TrimSpace(text), answer) {
					match = i
					break
				}
			}
		}
	}
	if match < 0 {
		match = 0
	}
	if om, ok := opts[match].(map[string]any); ok {
		om["isCorrect"] = true
	}
}

// renameCorrectField moves a legacy "correct" field to "isCorrect",
// boolean-coerced, when "isCorrect" is absent.
func renameCorrectField(opt map[string]any) {
	if _, has := opt["isCorrect"]; has {
		return
	}
	if c, has := opt["correct"]; has {
		opt["isCorrect"] = coerceBool(c)
		delete(opt, "correct")
	}
}

func anyOptionCorrect(opts []any) bool {
	for _, o := range opts {
		if om, ok := o.(map[string]any); ok {
			if coerceBool(om["isCorrect"]) {
				return true
			}
		}
	}
	return false
}

// answerIsTrue interprets the answer field of a True/False question: boolean
// true, or any string that case-insensitively reads "true".
func answerIsTrue(answer any) bool {
	switch v := answer.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	}
	return false
}

func coerceBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "true")
	case float64:
		return t != 0
	}
	return false
}

// deepCloneMap clones via JSON round-trip, the same trick the rest of the
// pack uses for decoded documents. On marshal failure it degrades to a
// shallow copy.
func deepCloneMap(m map[string]any) map[string]any {
	b, err := json.Marshal(m)
	if err != nil {
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		out = make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
