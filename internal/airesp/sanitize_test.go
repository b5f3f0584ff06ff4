package airesp

import (
	"strings"
	"testing"
	"time"

	"github.com/AnchitSingh/AI-Study-Coach/internal/model"
)

func validMCQ(id string) map[string]any {
	q := map[string]any{
		"type":     "MCQ",
		"question": "What is the capital of France?",
		"answer":   "Paris",
		"options": []any{
			map[string]any{"text": "London", "isCorrect": false},
			map[string]any{"text": "Paris", "isCorrect": true},
		},
		"explanation": "Paris has been the capital since 987.",
	}
	if id != "" {
		q["id"] = id
	}
	return q
}

func TestValidateQuestion(t *testing.T) {
	tests := []struct {
		name    string
		q       map[string]any
		valid   bool
		errLike string
	}{
		{"valid MCQ", validMCQ("q1"), true, ""},
		{"missing text", map[string]any{"type": "MCQ"}, false, "missing question text"},
		{"unknown type", map[string]any{"type": "essay", "question": "x?"}, false, "unknown question type"},
		{
			"MCQ one option",
			map[string]any{"type": "MCQ", "question": "x?", "options": []any{
				map[string]any{"text": "A", "isCorrect": true},
			}},
			false, "at least two options",
		},
		{
			"MCQ no correct",
			map[string]any{"type": "MCQ", "question": "x?", "options": []any{
				map[string]any{"text": "A"}, map[string]any{"text": "B"},
			}},
			false, "no correct option",
		},
		{
			"True/False three options",
			map[string]any{"type": "True/False", "question": "x?", "options": []any{
				map[string]any{"text": "True", "isCorrect": true},
				map[string]any{"text": "False"},
				map[string]any{"text": "Maybe"},
			}},
			false, "exactly two options",
		},
		{
			"Fill in Blank no answers",
			map[string]any{"type": "Fill in Blank", "question": "The ___ is blue."},
			false, "neither acceptableAnswers nor answer",
		},
		{
			"Fill in Blank answer suffices",
			map[string]any{"type": "Fill in Blank", "question": "The ___ is blue.", "answer": "sky"},
			true, "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateQuestion(tt.q)
			if res.Valid != tt.valid {
				t.Fatalf("Valid = %t, want %t (errors: %v)", res.Valid, tt.valid, res.Errors)
			}
			if tt.errLike != "" {
				found := false
				for _, e := range res.Errors {
					if strings.Contains(e, tt.errLike) {
						found = true
					}
				}
				if !found {
					t.Errorf("errors %v should contain %q", res.Errors, tt.errLike)
				}
			}
		})
	}
}

func TestValidateQuestionShortAnswerWarning(t *testing.T) {
	q := map[string]any{
		"type":     "Short Answer",
		"question": "Explain photosynthesis.",
		"options":  []any{map[string]any{"text": "leftover"}},
	}
	res := ValidateQuestion(q)
	if !res.Valid {
		t.Fatalf("Short Answer with options should still be valid: %v", res.Errors)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected a warning about dropped options")
	}
}

func TestSanitizeQuestionMCQ(t *testing.T) {
	q, err := SanitizeQuestion(validMCQ(""), 2)
	if err != nil {
		t.Fatalf("SanitizeQuestion: %v", err)
	}
	if q.ID != "q3" {
		t.Errorf("ID = %q, want generated q3", q.ID)
	}
	if q.Type != model.TypeMCQ {
		t.Errorf("Type = %q", q.Type)
	}
	if len(q.Options) != 2 || !q.Options[1].IsCorrect {
		t.Errorf("options not preserved: %+v", q.Options)
	}
	if q.Explanation == "" {
		t.Error("explanation lost")
	}
}

func TestSanitizeQuestionMCQMarksFirstWhenNoneCorrect(t *testing.T) {
	q := map[string]any{
		"type":     "mcq",
		"question": "Pick.",
		"options": []any{
			map[string]any{"text": "A"},
			map[string]any{"text": "B"},
		},
	}
	got, err := SanitizeQuestion(q, 0)
	if err != nil {
		t.Fatalf("SanitizeQuestion: %v", err)
	}
	if !got.Options[0].IsCorrect || got.Options[1].IsCorrect {
		t.Errorf("first option should become correct: %+v", got.Options)
	}
}

func TestSanitizeQuestionErrors(t *testing.T) {
	tests := []struct {
		name string
		q    map[string]any
	}{
		{"empty text", map[string]any{"type": "MCQ"}},
		{"unknown type", map[string]any{"type": "riddle", "question": "x?"}},
		{"MCQ empty option texts", map[string]any{"type": "MCQ", "question": "x?", "options": []any{
			map[string]any{"text": "  "}, map[string]any{"text": ""},
		}}},
		{"True/False wrong count", map[string]any{"type": "True/False", "question": "x?", "options": []any{
			map[string]any{"text": "True", "isCorrect": true},
		}}},
		{"True/False none correct", map[string]any{"type": "True/False", "question": "x?", "options": []any{
			map[string]any{"text": "True"}, map[string]any{"text": "False"},
		}}},
		{"Fill in Blank no answers", map[string]any{"type": "Fill in Blank", "question": "___?"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := SanitizeQuestion(tt.q, 0); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSanitizeQuestionFillInBlank(t *testing.T) {
	q := map[string]any{
		"type":              "Fill in Blank",
		"question":          "Water is ___ and ___.",
		"acceptableAnswers": []any{[]any{"wet", "Wet"}, "clear"},
	}
	got, err := SanitizeQuestion(q, 0)
	if err != nil {
		t.Fatalf("SanitizeQuestion: %v", err)
	}
	want := [][]string{{"wet", "Wet"}, {"clear"}}
	if len(got.AcceptableAnswers) != len(want) {
		t.Fatalf("AcceptableAnswers = %v, want %v", got.AcceptableAnswers, want)
	}
	for i := range want {
		if len(got.AcceptableAnswers[i]) != len(want[i]) {
			t.Errorf("blank %d = %v, want %v", i, got.AcceptableAnswers[i], want[i])
		}
	}
}

func TestSanitizeQuestionFillInBlankAnswerFallback(t *testing.T) {
	q := map[string]any{
		"type":     "fill in the blank",
		"question": "The sky is ___.",
		"answer":   "blue",
	}
	got, err := SanitizeQuestion(q, 0)
	if err != nil {
		t.Fatalf("SanitizeQuestion: %v", err)
	}
	if len(got.AcceptableAnswers) != 1 || got.AcceptableAnswers[0][0] != "blue" {
		t.Errorf("AcceptableAnswers = %v", got.AcceptableAnswers)
	}
}

func TestSanitizeQuestionShortAnswerDropsOptions(t *testing.T) {
	q := map[string]any{
		"type":     "Short Answer",
		"question": "Explain gravity.",
		"options":  []any{map[string]any{"text": "stray", "isCorrect": true}},
	}
	got, err := SanitizeQuestion(q, 0)
	if err != nil {
		t.Fatalf("SanitizeQuestion: %v", err)
	}
	if got.Options != nil {
		t.Errorf("options should be dropped: %+v", got.Options)
	}
}

func TestNormalizeQuizSentinel(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{"not an object", []any{1, 2}},
		{"no questions key", map[string]any{"title": "x"}},
		{"questions not array", map[string]any{"questions": "nope"}},
		{"empty questions", map[string]any{"questions": []any{}}},
		{"zero survivors", map[string]any{"questions": []any{
			map[string]any{"type": "MCQ"}, // no text
			"not even an object",
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quiz := NormalizeQuiz(tt.raw)
			if quiz.Error == "" {
				t.Fatalf("expected error-state quiz, got %+v", quiz)
			}
			if len(quiz.Questions) != 0 {
				t.Errorf("sentinel quiz must carry no questions: %+v", quiz.Questions)
			}
		})
	}
}

func TestNormalizeQuizDropsBadKeepsGood(t *testing.T) {
	raw := map[string]any{
		"title":          "Geography",
		"totalQuestions": float64(99), // lies; must be recomputed
		"questions": []any{
			validMCQ("q1"),
			map[string]any{"type": "MCQ", "question": ""},
			validMCQ("q3"),
		},
	}
	quiz := NormalizeQuiz(raw)
	if quiz.Error != "" {
		t.Fatalf("quiz should survive: %s", quiz.Error)
	}
	if len(quiz.Questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(quiz.Questions))
	}
	if quiz.TotalQuestions != 2 {
		t.Errorf("TotalQuestions = %d, want recomputed 2", quiz.TotalQuestions)
	}
	if quiz.Title != "Geography" {
		t.Errorf("Title = %q", quiz.Title)
	}
}

func TestNormalizeQuizDefaults(t *testing.T) {
	quiz := NormalizeQuiz(map[string]any{"questions": []any{validMCQ("")}})
	if quiz.Error != "" {
		t.Fatalf("unexpected error quiz: %s", quiz.Error)
	}
	if quiz.ID == "" {
		t.Error("ID should be generated")
	}
	if quiz.Title != "Untitled Quiz" || quiz.Subject != "General" {
		t.Errorf("defaults wrong: title=%q subject=%q", quiz.Title, quiz.Subject)
	}
	if quiz.CreatedAt.IsZero() {
		t.Error("CreatedAt should default to now")
	}
	def := model.DefaultQuizConfig()
	if quiz.Config != def {
		t.Errorf("Config = %+v, want defaults %+v", quiz.Config, def)
	}
	if quiz.TimeLimit != def.TotalTimer {
		t.Errorf("TimeLimit = %d, want config default %d", quiz.TimeLimit, def.TotalTimer)
	}
}

func TestNormalizeQuizTimeAndConfig(t *testing.T) {
	raw := map[string]any{
		"createdAt": "2026-03-01T10:00:00Z",
		"config": map[string]any{
			"timerEnabled": false,
			"totalTimer":   float64(300),
			"difficulty":   "hard",
		},
		"questions": []any{validMCQ("q1")},
	}
	quiz := NormalizeQuiz(raw)
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if !quiz.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", quiz.CreatedAt, want)
	}
	if quiz.Config.TimerEnabled || quiz.Config.TotalTimer != 300 || quiz.Config.Difficulty != "hard" {
		t.Errorf("Config = %+v", quiz.Config)
	}
	if quiz.TimeLimit != 300 {
		t.Errorf("TimeLimit = %d, want 300 from config", quiz.TimeLimit)
	}
}

func TestNormalizeConfig(t *testing.T) {
	def := model.DefaultQuizConfig()

	if got := NormalizeConfig(nil); got != def {
		t.Errorf("nil config should yield defaults, got %+v", got)
	}
	if got := NormalizeConfig("garbage"); got != def {
		t.Errorf("non-object config should yield defaults, got %+v", got)
	}

	// Wrong-typed fields fall back per field, right-typed ones apply.
	got := NormalizeConfig(map[string]any{
		"immediateFeedback": "yes",         // wrong type
		"totalTimer":        float64(-5),   // negative rejected
		"questionTimer":     float64(30),   // applies
		"subject":           "   Physics ", // trimmed
		"difficulty":        "  ",          // blank rejected
	})
	if got.ImmediateFeedback != def.ImmediateFeedback {
		t.Errorf("wrong-typed immediateFeedback should keep default")
	}
	if got.TotalTimer != def.TotalTimer {
		t.Errorf("negative totalTimer should keep default, got %d", got.TotalTimer)
	}
	if got.QuestionTimer != 30 {
		t.Errorf("QuestionTimer = %d, want 30", got.QuestionTimer)
	}
	if got.Subject != "Physics" {
		t.Errorf("Subject = %q", got.Subject)
	}
	if got.Difficulty != def.Difficulty {
		t.Errorf("blank difficulty should keep default, got %q", got.Difficulty)
	}
}

func TestNormalizeQuestion(t *testing.T) {
	// Transformation runs first: the legacy correct field and unmarked
	// answer still produce a playable question.
	raw := map[string]any{
		"type":     "true/false",
		"question": "Go has generics.",
		"answer":   "True",
	}
	q := NormalizeQuestion(raw)
	if q == nil {
		t.Fatal("expected question")
	}
	if q.Type != model.TypeTrueFalse || len(q.Options) != 2 {
		t.Fatalf("got %+v", q)
	}

	if NormalizeQuestion(nil) != nil {
		t.Error("nil input should yield nil")
	}
	if NormalizeQuestion(map[string]any{"type": "MCQ"}) != nil {
		t.Error("unsanitizable input should yield nil")
	}
}

func TestValidateNormalized(t *testing.T) {
	good := model.Quiz{TotalQuestions: 1, Questions: []model.Question{{ID: "q1"}}}
	if err := ValidateNormalized(good); err != nil {
		t.Errorf("valid quiz rejected: %v", err)
	}
	if err := ValidateNormalized(model.Quiz{TotalQuestions: 2, Questions: []model.Question{{ID: "q1"}}}); err == nil {
		t.Error("count mismatch should fail")
	}
	if err := ValidateNormalized(model.Quiz{}); err == nil {
		t.Error("empty non-error quiz should fail")
	}
	if err := ValidateNormalized(model.ErrorQuiz("boom")); err != nil {
		t.Errorf("error-state quiz without questions is fine: %v", err)
	}
}

func TestAcceptableAnswersCoercion(t *testing.T) {
	got := acceptableAnswers([]any{"a", []any{"b", "c"}, "", []any{}, float64(3)})
	if len(got) != 2 {
		t.Fatalf("got %v", got)
	}
	if got[0][0] != "a" || len(got[1]) != 2 {
		t.Errorf("got %v", got)
	}
}
