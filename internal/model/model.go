// Package model holds the value objects shared across the content pipeline.
// All field names and nesting are part of the wire contract with the web
// client and must not change.
package model

import (
	"encoding/json"
	"time"
)

// SourceType identifies where the study material came from.
type SourceType string

const (
	// SourcePDF is material extracted from an uploaded PDF.
	SourcePDF SourceType = "PDF"
	// SourceManual is material pasted or typed by the user.
	SourceManual SourceType = "MANUAL"
	// SourceURL is material scraped from a web page.
	SourceURL SourceType = "URL"
)

// SourceChunk is a bounded contiguous slice of cleaned source text, the unit
// of summarization work. Start and End are half-open offsets into the cleaned
// text. Chunks are immutable once created; ordering is document order.
type SourceChunk struct {
	ID                 string `json:"id"`
	Text               string `json:"text"`
	Start              int    `json:"start"`
	End                int    `json:"end"`
	TokenEstimate      int    `json:"tokenEstimate"`
	NeedsSummarization bool   `json:"needsSummarization"`
}

// EstimateTokens is the rough chars/4 token estimate used throughout the
// pipeline.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// SummaryResult is the per-chunk outcome of a summarization batch. When
// Fallback is true the Summary field holds truncated original text because
// summarization failed for that chunk.
type SummaryResult struct {
	ID             string    `json:"id"`
	OriginalLength int       `json:"originalLength"`
	SummaryLength  int       `json:"summaryLength"`
	Summary        string    `json:"summary"`
	TokenEstimate  int       `json:"tokenEstimate"`
	ProcessingTime time.Time `json:"processingTime"`
	Error          string    `json:"error,omitempty"`
	Fallback       bool      `json:"fallback,omitempty"`
}

// SummaryMeta aggregates a batch of summary results.
type SummaryMeta struct {
	Summaries           int     `json:"summaries"`
	TotalOriginalLength int     `json:"totalOriginalLength"`
	TotalSummaryLength  int     `json:"totalSummaryLength"`
	CompressionRatio    float64 `json:"compressionRatio"`
	Fallbacks           int     `json:"fallbacks"`
	Errors              int     `json:"errors"`
}

// AssembledSummary is the reduction of a batch of SummaryResult into one
// text suitable for prompting.
type AssembledSummary struct {
	Text      string      `json:"text"`
	WordCount int         `json:"wordCount"`
	Meta      SummaryMeta `json:"meta"`
}

// ProcessingMeta records what the finalizer did to the source text.
type ProcessingMeta struct {
	SummarizationAttempted bool         `json:"summarizationAttempted"`
	SummarizationSucceeded bool         `json:"summarizationSucceeded"`
	FallbackReason         string       `json:"fallbackReason,omitempty"`
	Compression            *SummaryMeta `json:"compression,omitempty"`
}

// SourceMeta carries arbitrary caller-supplied metadata alongside the
// pipeline's own processing record. On the wire the extra keys sit next to
// "processing" in one flat object.
type SourceMeta struct {
	Processing ProcessingMeta
	Extra      map[string]any
}

// MarshalJSON flattens Extra and Processing into a single object.
func (m SourceMeta) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+1)
	for k, v := range m.Extra {
		out[k] = v
	}
	out["processing"] = m.Processing
	return json.Marshal(out)
}

// UnmarshalJSON splits the "processing" key from the caller-supplied rest.
func (m *SourceMeta) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if p, ok := raw["processing"]; ok {
		if err := json.Unmarshal(p, &m.Processing); err != nil {
			return err
		}
		delete(raw, "processing")
	}
	if len(raw) > 0 {
		m.Extra = make(map[string]any, len(raw))
		for k, v := range raw {
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return err
			}
			m.Extra[k] = val
		}
	}
	return nil
}

// FinalizedSource is the fully prepared content package handed to generation
// requests. Built once per content submission and discarded afterwards unless
// the caller persists it.
type FinalizedSource struct {
	SourceType SourceType    `json:"sourceType"`
	Title      string        `json:"title"`
	URL        string        `json:"url"`
	Domain     string        `json:"domain"`
	Excerpt    string        `json:"excerpt"`
	WordCount  int           `json:"wordCount"`
	Chunks     []SourceChunk `json:"chunks"`
	Text       string        `json:"text"`
	Meta       SourceMeta    `json:"meta"`
}

// QuestionType discriminates the question variants. Validation and
// sanitization switch exhaustively on this tag.
type QuestionType string

const (
	TypeMCQ         QuestionType = "MCQ"
	TypeTrueFalse   QuestionType = "True/False"
	TypeFillInBlank QuestionType = "Fill in Blank"
	TypeShortAnswer QuestionType = "Short Answer"
)

// KnownQuestionType reports whether t is one of the four canonical tags.
func KnownQuestionType(t QuestionType) bool {
	switch t {
	case TypeMCQ, TypeTrueFalse, TypeFillInBlank, TypeShortAnswer:
		return true
	}
	return false
}

// Option is a single answer choice for MCQ and True/False questions.
type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question is one quiz question. Which fields apply depends on Type: MCQ and
// True/False carry Options (at least one marked correct; True/False exactly
// two), Fill in Blank carries AcceptableAnswers (each inner slice is one full
// assignment across blanks, positional), Short Answer carries only the
// reference Answer and is graded by the external evaluator.
type Question struct {
	ID                string       `json:"id"`
	Type              QuestionType `json:"type"`
	Question          string       `json:"question"`
	Options           []Option     `json:"options,omitempty"`
	AcceptableAnswers [][]string   `json:"acceptableAnswers,omitempty"`
	Answer            string       `json:"answer,omitempty"`
	Explanation       string       `json:"explanation,omitempty"`
	Difficulty        string       `json:"difficulty,omitempty"`
	Topic             string       `json:"topic,omitempty"`
	Tags              []string     `json:"tags,omitempty"`
}

// QuizConfig is always fully populated with defaults before it reaches any
// downstream consumer.
type QuizConfig struct {
	ImmediateFeedback bool   `json:"immediateFeedback"`
	TimerEnabled      bool   `json:"timerEnabled"`
	TotalTimer        int    `json:"totalTimer"`
	QuestionTimer     int    `json:"questionTimer"`
	Difficulty        string `json:"difficulty"`
	Subject           string `json:"subject"`
}

// DefaultQuizConfig returns the canonical config defaults.
func DefaultQuizConfig() QuizConfig {
	return QuizConfig{
		ImmediateFeedback: true,
		TimerEnabled:      true,
		TotalTimer:        600,
		QuestionTimer:     0,
		Difficulty:        "medium",
		Subject:           "General",
	}
}

// Quiz is the canonical quiz object. Invariant: TotalQuestions equals
// len(Questions), and Questions is non-empty unless Error is set (the
// sentinel error state the client renders instead of a quiz).
type Quiz struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Subject        string     `json:"subject"`
	CreatedAt      time.Time  `json:"createdAt"`
	Config         QuizConfig `json:"config"`
	Questions      []Question `json:"questions"`
	TotalQuestions int        `json:"totalQuestions"`
	TimeLimit      int        `json:"timeLimit"`
	Error          string     `json:"error,omitempty"`
}

// ErrorQuiz builds the sentinel error-state quiz for msg.
func ErrorQuiz(msg string) Quiz {
	return Quiz{
		Title:          "Untitled Quiz",
		Subject:        "General",
		CreatedAt:      time.Now(),
		Config:         DefaultQuizConfig(),
		Questions:      []Question{},
		TotalQuestions: 0,
		Error:          msg,
	}
}
