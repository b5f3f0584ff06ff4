package airesp

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AnchitSingh/AI-Study-Coach/internal/model"
)

// ValidationResult is the outcome of structural question validation.
// Warnings do not block sanitization; errors mean the question is
// structurally suspect but sanitization is still attempted, since it is
// more permissive and may recover fixable issues.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// ValidateQuestion checks the decoded question's structure against its
// declared type.
func ValidateQuestion(q map[string]any) ValidationResult {
	var res ValidationResult

	text, _ := q["question"].(string)
	if strings.TrimSpace(text) == "" {
		res.Errors = append(res.Errors, "missing question text")
	}

	rawType, _ := q["type"].(string)
	qType := model.QuestionType(NormalizeQuestionType(rawType))
	if !model.KnownQuestionType(qType) {
		res.Errors = append(res.Errors, fmt.Sprintf("unknown question type %q", rawType))
		res.Valid = len(res.Errors) == 0
		return res
	}

	opts, _ := q["options"].([]any)
	switch qType {
	case model.TypeMCQ:
		if len(opts) < 2 {
			res.Errors = append(res.Errors, "MCQ needs at least two options")
		}
		if !anyOptionCorrect(opts) {
			res.Errors = append(res.Errors, "MCQ has no correct option")
		}
	case model.TypeTrueFalse:
		if len(opts) != 2 {
			res.Errors = append(res.Errors, fmt.Sprintf("True/False needs exactly two options, got %d", len(opts)))
		}
		if !anyOptionCorrect(opts) {
			res.Errors = append(res.Errors, "True/False has no correct option")
		}
	case model.TypeFillInBlank:
		if _, hasAnswers := q["acceptableAnswers"]; !hasAnswers {
			if a, _ := q["answer"].(string); strings.TrimSpace(a) == "" {
				res.Errors = append(res.Errors, "Fill in Blank has neither acceptableAnswers nor answer")
			}
		}
	case model.TypeShortAnswer:
		if len(opts) > 0 {
			res.Warnings = append(res.Warnings, "Short Answer carries options, they will be dropped")
		}
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// SanitizeQuestion converts a decoded question into the canonical typed form,
// repairing what it can. index is the zero-based position used for generated
// ids and error context.
func SanitizeQuestion(q map[string]any, index int) (model.Question, error) {
	text, _ := q["question"].(string)
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Question{}, fmt.Errorf("question %d: empty question text", index)
	}

	rawType, _ := q["type"].(string)
	qType := model.QuestionType(NormalizeQuestionType(rawType))
	if !model.KnownQuestionType(qType) {
		return model.Question{}, fmt.Errorf("question %d: unrecognized type %q", index, rawType)
	}

	out := model.Question{
		ID:          stringField(q, "id", fmt.Sprintf("q%d", index+1)),
		Type:        qType,
		Question:    text,
		Answer:      strings.TrimSpace(stringField(q, "answer", "")),
		Explanation: strings.TrimSpace(stringField(q, "explanation", "")),
		Difficulty:  strings.TrimSpace(stringField(q, "difficulty", "")),
		Topic:       strings.TrimSpace(stringField(q, "topic", "")),
		Tags:        stringSlice(q["tags"]),
	}

	switch qType {
	case model.TypeMCQ:
		opts := sanitizeOptions(q["options"])
		if len(opts) < 2 {
			return model.Question{}, fmt.Errorf("question %d: MCQ has %d usable options", index, len(opts))
		}
		if !hasCorrect(opts) {
			// Unanswerable questions break the player; first option wins.
			opts[0].IsCorrect = true
		}
		out.Options = opts

	case model.TypeTrueFalse:
		opts := sanitizeOptions(q["options"])
		if len(opts) != 2 {
			return model.Question{}, fmt.Errorf("question %d: True/False has %d usable options", index, len(opts))
		}
		if !hasCorrect(opts) {
			return model.Question{}, fmt.Errorf("question %d: True/False has no correct option", index)
		}
		out.Options = opts

	case model.TypeFillInBlank:
		answers := acceptableAnswers(q["acceptableAnswers"])
		if len(answers) == 0 && out.Answer != "" {
			answers = [][]string{{out.Answer}}
		}
		if len(answers) == 0 {
			return model.Question{}, fmt.Errorf("question %d: Fill in Blank has no acceptable answers", index)
		}
		out.AcceptableAnswers = answers

	case model.TypeShortAnswer:
		// Grading is deferred to the external evaluator; options never apply.
		out.Options = nil
	}

	return out, nil
}

// NormalizeQuiz coerces a parsed quiz document into the canonical Quiz.
// It never fails: irrecoverable input yields the sentinel error-state quiz
// (error set, empty questions) the client knows how to render. Individual
// questions that cannot be sanitized are dropped; the quiz survives as long
// as at least one question does.
func NormalizeQuiz(raw any) model.Quiz {
	quiz, err := normalizeQuiz(raw)
	if err != nil {
		return model.ErrorQuiz(err.Error())
	}
	return quiz
}

func normalizeQuiz(raw any) (model.Quiz, error) {
	root, ok := raw.(map[string]any)
	if !ok {
		return model.Quiz{}, fmt.Errorf("quiz payload is not an object")
	}
	root = deepCloneMap(root)

	questionsRaw, ok := root["questions"].([]any)
	if !ok {
		return model.Quiz{}, fmt.Errorf("quiz has no questions array")
	}
	if len(questionsRaw) == 0 {
		return model.Quiz{}, fmt.Errorf("quiz has an empty questions array")
	}

	cfg := NormalizeConfig(root["config"])

	quiz := model.Quiz{
		ID:        stringField(root, "id", uuid.NewString()),
		Title:     stringField(root, "title", "Untitled Quiz"),
		Subject:   stringField(root, "subject", "General"),
		CreatedAt: timeField(root, "createdAt"),
		Config:    cfg,
	}

	var dropped []string
	for i, qRaw := range questionsRaw {
		qm, ok := qRaw.(map[string]any)
		if !ok {
			dropped = append(dropped, fmt.Sprintf("question %d: not an object", i))
			continue
		}
		validation := ValidateQuestion(qm)
		q, err := SanitizeQuestion(qm, i)
		if err != nil {
			reasons := err.Error()
			if len(validation.Errors) > 0 {
				reasons += " (validation: " + strings.Join(validation.Errors, "; ") + ")"
			}
			dropped = append(dropped, reasons)
			slog.Debug("dropping unsalvageable question", "index", i, "reason", reasons)
			continue
		}
		quiz.Questions = append(quiz.Questions, q)
	}

	if len(quiz.Questions) == 0 {
		return model.Quiz{}, fmt.Errorf("no questions survived sanitization (%d dropped): %s",
			len(dropped), strings.Join(dropped, "; "))
	}

	// The count is recomputed, never trusted from input.
	quiz.TotalQuestions = len(quiz.Questions)
	quiz.TimeLimit = intField(root, "timeLimit", cfg.TotalTimer)
	return quiz, nil
}

// NormalizeQuestion applies validation and sanitization to a single decoded
// question for incremental updates. It returns nil on irrecoverable failure.
func NormalizeQuestion(raw map[string]any) *model.Question {
	if raw == nil {
		return nil
	}
	clone := deepCloneMap(raw)
	clone = transformQuestion(clone)
	q, err := SanitizeQuestion(clone, 0)
	if err != nil {
		return nil
	}
	return &q
}

// ValidateNormalized re-checks the canonical invariants of an already
// normalized quiz before use: the recomputed question count must match, and
// a non-error quiz must have questions.
func ValidateNormalized(q model.Quiz) error {
	if q.TotalQuestions != len(q.Questions) {
		return fmt.Errorf("totalQuestions %d does not match %d questions", q.TotalQuestions, len(q.Questions))
	}
	if q.Error == "" && len(q.Questions) == 0 {
		return fmt.Errorf("quiz without error state has no questions")
	}
	return nil
}

// NormalizeConfig builds a fully populated QuizConfig from a decoded config
// object. A field of the wrong type is replaced by its default rather than
// propagated.
func NormalizeConfig(raw any) model.QuizConfig {
	cfg := model.DefaultQuizConfig()
	m, ok := raw.(map[string]any)
	if !ok {
		return cfg
	}
	if v, ok := m["immediateFeedback"].(bool); ok {
		cfg.ImmediateFeedback = v
	}
	if v, ok := m["timerEnabled"].(bool); ok {
		cfg.TimerEnabled = v
	}
	if v, ok := m["totalTimer"].(float64); ok && v >= 0 {
		cfg.TotalTimer = int(v)
	}
	if v, ok := m["questionTimer"].(float64); ok && v >= 0 {
		cfg.QuestionTimer = int(v)
	}
	if v, ok := m["difficulty"].(string); ok && strings.TrimSpace(v) != "" {
		cfg.Difficulty = strings.TrimSpace(v)
	}
	if v, ok := m["subject"].(string); ok && strings.TrimSpace(v) != "" {
		cfg.Subject = strings.TrimSpace(v)
	}
	return cfg
}

func sanitizeOptions(raw any) []model.Option {
	items, _ := raw.([]any)
	var out []model.Option
	for _, item := range items {
		om, ok := item.(map[string]any)
		if !ok {
			continue
		}
		text, _ := om["text"].(string)
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		out = append(out, model.Option{Text: text, IsCorrect: coerceBool(om["isCorrect"])})
	}
	return out
}

func hasCorrect(opts []model.Option) bool {
	for _, o := range opts {
		if o.IsCorrect {
			return true
		}
	}
	return false
}

// acceptableAnswers coerces the model's acceptableAnswers into [][]string.
// A flat list of strings is treated as single-blank assignments.
func acceptableAnswers(raw any) [][]string {
	items, _ := raw.([]any)
	var out [][]string
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				out = append(out, []string{s})
			}
		case []any:
			var inner []string
			for _, e := range v {
				if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
					inner = append(inner, strings.TrimSpace(s))
				}
			}
			if len(inner) > 0 {
				out = append(out, inner)
			}
		}
	}
	return out
}

func stringField(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return def
}

func intField(m map[string]any, key string, def int) int {
	if v, ok := m[key].(float64); ok && v >= 0 {
		return int(v)
	}
	return def
}

func timeField(m map[string]any, key string) time.Time {
	if v, ok := m[key].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Now()
}

func stringSlice(raw any) []string {
	items, _ := raw.([]any)
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
