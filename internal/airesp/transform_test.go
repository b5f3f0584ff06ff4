package airesp

import (
	"testing"
)

func TestNormalizeQuestionType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"MCQ", "MCQ"},
		{"multiple choice", "MCQ"},
		{"Multiple-Choice Question", "MCQ"},
		{"True/False", "True/False"},
		{"true or false", "True/False"},
		{"TRUE_FALSE", "True/False"},
		{"Fill in the Blank", "Fill in Blank"},
		{"fill-in-blank", "Fill in Blank"},
		{"Short Answer", "Short Answer"},
		{"subjective", "Short Answer"},
		{"essay", "essay"}, // unrecognized passes through
	}
	for _, tt := range tests {
		if got := NormalizeQuestionType(tt.in); got != tt.want {
			t.Errorf("NormalizeQuestionType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func tfQuestion(answer any, opts []any) map[string]any {
	q := map[string]any{
		"type":   "True/False",
		"text":   "The sky is blue.",
		"answer": answer,
	}
	if opts != nil {
		q["options"] = opts
	}
	return q
}

func optionCorrectness(t *testing.T, q map[string]any) map[string]bool {
	t.Helper()
	opts, ok := q["options"].([]any)
	if !ok {
		t.Fatalf("question has no options: %v", q)
	}
	out := make(map[string]bool, len(opts))
	for _, o := range opts {
		om := o.(map[string]any)
		out[om["text"].(string)] = coerceBool(om["isCorrect"])
	}
	return out
}

func TestTransformTrueFalseSynthesizesOptions(t *testing.T) {
	raw := map[string]any{"questions": []any{tfQuestion("True", nil)}}
	out := TransformQuizResponse(raw)

	q := out["questions"].([]any)[0].(map[string]any)
	got := optionCorrectness(t, q)
	if !got["True"] || got["False"] {
		t.Errorf("answer True should mark the True option, got %v", got)
	}
}

func TestTransformTrueFalseMarksUnmarkedOptions(t *testing.T) {
	opts := []any{
		map[string]any{"text": "True"},
		map[string]any{"text": "False"},
	}
	raw := map[string]any{"questions": []any{tfQuestion("false", opts)}}
	out := TransformQuizResponse(raw)

	q := out["questions"].([]any)[0].(map[string]any)
	got := optionCorrectness(t, q)
	if got["True"] || !got["False"] {
		t.Errorf("answer false should mark the False option, got %v", got)
	}
}

func TestTransformTrueFalseKeepsMarkedOptions(t *testing.T) {
	opts := []any{
		map[string]any{"text": "True", "isCorrect": true},
		map[string]any{"text": "False", "isCorrect": false},
	}
	// Answer contradicts the marking; an already-marked pair is trusted.
	raw := map[string]any{"questions": []any{tfQuestion("False", opts)}}
	out := TransformQuizResponse(raw)

	q := out["questions"].([]any)[0].(map[string]any)
	got := optionCorrectness(t, q)
	if !got["True"] || got["False"] {
		t.Errorf("marked options must not be overridden, got %v", got)
	}
}

func mcqQuestion(answer string, texts ...string) map[string]any {
	opts := make([]any, len(texts))
	for i, text := range texts {
		opts[i] = map[string]any{"text": text}
	}
	return map[string]any{
		"type":    "MCQ",
		"text":    "Pick one.",
		"answer":  answer,
		"options": opts,
	}
}

func TestTransformMCQMarksByAnswer(t *testing.T) {
	tests := []struct {
		name   string
		q      map[string]any
		marked string
	}{
		{"exact match", mcqQuestion("Paris", "London", "Paris", "Rome"), "Paris"},
		{"case-insensitive match", mcqQuestion("paris", "London", "Paris", "Rome"), "Paris"},
		{"no match falls back to first", mcqQuestion("Berlin", "London", "Paris", "Rome"), "London"},
		{"empty answer falls back to first", mcqQuestion("", "London", "Paris"), "London"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := TransformQuizResponse(map[string]any{"questions": []any{tt.q}})
			q := out["questions"].([]any)[0].(map[string]any)
			got := optionCorrectness(t, q)
			for text, correct := range got {
				if correct != (text == tt.marked) {
					t.Errorf("option %q correct=%t, want marked=%q (all: %v)", text, correct, tt.marked, got)
				}
			}
		})
	}
}

func TestTransformMCQKeepsExistingMark(t *testing.T) {
	q := map[string]any{
		"type":   "MCQ",
		"answer": "Rome",
		"options": []any{
			map[string]any{"text": "London", "isCorrect": true},
			map[string]any{"text": "Rome", "isCorrect": false},
		},
	}
	out := TransformQuizResponse(map[string]any{"questions": []any{q}})
	got := optionCorrectness(t, out["questions"].([]any)[0].(map[string]any))
	if !got["London"] || got["Rome"] {
		t.Errorf("existing mark must win over the answer field, got %v", got)
	}
}

func TestTransformRenamesCorrectField(t *testing.T) {
	q := map[string]any{
		"type": "MCQ",
		"options": []any{
			map[string]any{"text": "A", "correct": true},
			map[string]any{"text": "B", "correct": "false"},
		},
	}
	out := TransformQuizResponse(map[string]any{"questions": []any{q}})

	opts := out["questions"].([]any)[0].(map[string]any)["options"].([]any)
	for _, o := range opts {
		om := o.(map[string]any)
		if _, has := om["correct"]; has {
			t.Errorf("legacy correct field should be removed: %v", om)
		}
		if _, has := om["isCorrect"]; !has {
			t.Errorf("isCorrect should be set: %v", om)
		}
	}
	got := optionCorrectness(t, out["questions"].([]any)[0].(map[string]any))
	if !got["A"] || got["B"] {
		t.Errorf("coerced booleans wrong: %v", got)
	}
}

func TestTransformDoesNotMutateInput(t *testing.T) {
	opts := []any{map[string]any{"text": "True"}}
	raw := map[string]any{"questions": []any{tfQuestion("True", opts)}}

	TransformQuizResponse(raw)

	om := opts[0].(map[string]any)
	if _, has := om["isCorrect"]; has {
		t.Error("caller's value was mutated")
	}
}

func TestTransformNonQuestionPayloadPassesThrough(t *testing.T) {
	raw := map[string]any{"questions": "not a list", "title": "x"}
	out := TransformQuizResponse(raw)
	if out["questions"] != "not a list" || out["title"] != "x" {
		t.Errorf("got %v", out)
	}
}

func TestCoerceBool(t *testing.T) {
	tests := []struct {
		in   any
		want bool
	}{
		{true, true},
		{false, false},
		{"true", true},
		{" TRUE ", true},
		{"no", false},
		{float64(1), true},
		{float64(0), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := coerceBool(tt.in); got != tt.want {
			t.Errorf("coerceBool(%v) = %t, want %t", tt.in, got, tt.want)
		}
	}
}
