// Package source composes cleaning, chunking and optional summarization into
// the finalized content package that generation requests consume.
package source

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/AnchitSingh/AI-Study-Coach/internal/model"
	"github.com/AnchitSingh/AI-Study-Coach/internal/summarize"
	"github.com/AnchitSingh/AI-Study-Coach/internal/textprep"
)

// Finalizer limits.
const (
	// ExcerptLength bounds the word-boundary excerpt of the final text.
	ExcerptLength = 240
	// MinSummaryWords is the smallest assembled summary accepted as a
	// replacement for the original text.
	MinSummaryWords = 50
	// FallbackTextLength is how much cleaned text survives when no chunks
	// exist and summarization cannot help.
	FallbackTextLength = 12000
)

// Request is one content submission to finalize.
type Request struct {
	SourceType model.SourceType
	Title      string
	URL        string
	RawText    string
	// Meta is caller-supplied metadata carried through untouched.
	Meta map[string]any
	// QuizConfig seeds the summarization hints.
	QuizConfig model.QuizConfig
	// Topic and QuestionTypes extend the hints beyond what QuizConfig holds.
	Topic         string
	QuestionTypes []string
	OnProgress    summarize.ProgressFunc
}

// Finalizer builds FinalizedSource records. Summaries may be nil, in which
// case summarization is skipped and long content degrades to truncation.
type Finalizer struct {
	Summaries summarize.Factory
	Clean     textprep.CleanOptions
	Chunking  textprep.ChunkOptions
	Summarize summarize.Options
	Logger    *slog.Logger
}

func (f *Finalizer) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

// Finalize normalizes, chunks and (when worthwhile) summarizes raw content.
// Summarization is a best-effort enhancement: if the capability is absent,
// the orchestrator fails, or the summary is too small, the first chunk's text
// stands in. The returned record always reflects the text actually delivered,
// so a successful summary is re-chunked before returning.
func (f *Finalizer) Finalize(ctx context.Context, req Request) (model.FinalizedSource, error) {
	cleaned := textprep.Clean(req.RawText, f.Clean)
	chunks := textprep.Chunk(cleaned, f.Chunking)

	text := cleaned
	processing := model.ProcessingMeta{}

	if textprep.ShouldSummarize(chunks) {
		processing.SummarizationAttempted = true
		assembled, err := f.trySummarize(ctx, req, chunks)
		switch {
		case err != nil:
			f.logger().Warn("summarization failed, falling back to truncation", "error", err)
			text = fallbackText(cleaned, chunks)
			processing.FallbackReason = err.Error()
		case assembled.WordCount < MinSummaryWords:
			f.logger().Warn("summary too small, falling back to truncation",
				"words", assembled.WordCount)
			text = fallbackText(cleaned, chunks)
			processing.FallbackReason = "summary below minimum word count"
			meta := assembled.Meta
			processing.Compression = &meta
		default:
			text = assembled.Text
			processing.SummarizationSucceeded = true
			meta := assembled.Meta
			processing.Compression = &meta
			chunks = textprep.Chunk(text, f.Chunking)
		}
	}

	return f.build(req, text, chunks, processing), nil
}

// FinalizeTopic is the synchronous variant for short, user-typed topics or
// context: no summarization, no capability lookup.
func (f *Finalizer) FinalizeTopic(req Request) model.FinalizedSource {
	cleaned := textprep.Clean(req.RawText, f.Clean)
	chunks := textprep.Chunk(cleaned, f.Chunking)
	return f.build(req, cleaned, chunks, model.ProcessingMeta{})
}

func (f *Finalizer) trySummarize(ctx context.Context, req Request, chunks []model.SourceChunk) (model.AssembledSummary, error) {
	shared := summarize.SharedContext{
		QuizTopic:     req.Topic,
		Subject:       req.QuizConfig.Subject,
		Difficulty:    req.QuizConfig.Difficulty,
		QuestionTypes: req.QuestionTypes,
	}
	results, err := summarize.SummarizeAll(ctx, f.Summaries, chunks, shared, req.OnProgress, f.Summarize)
	if err != nil {
		return model.AssembledSummary{}, err
	}
	return summarize.Assemble(results), nil
}

func (f *Finalizer) build(req Request, text string, chunks []model.SourceChunk, processing model.ProcessingMeta) model.FinalizedSource {
	return model.FinalizedSource{
		SourceType: req.SourceType,
		Title:      strings.TrimSpace(req.Title),
		URL:        req.URL,
		Domain:     domainOf(req.URL),
		Excerpt:    Excerpt(text, ExcerptLength),
		WordCount:  textprep.WordCount(text),
		Chunks:     chunks,
		Text:       text,
		Meta: model.SourceMeta{
			Processing: processing,
			Extra:      req.Meta,
		},
	}
}

// fallbackText is the degraded substitute for a summary: the first chunk, or
// a hard prefix of the cleaned text when no chunks exist.
func fallbackText(cleaned string, chunks []model.SourceChunk) string {
	if len(chunks) > 0 {
		return chunks[0].Text
	}
	if len(cleaned) > FallbackTextLength {
		return cleaned[:FallbackTextLength]
	}
	return cleaned
}

// Excerpt truncates text at a word boundary within max bytes.
func Excerpt(text string, max int) string {
	text = strings.TrimSpace(text)
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	window := text[:cut]
	if idx := strings.LastIndexAny(window, " \n\t"); idx > 0 {
		window = window[:idx]
	}
	return strings.TrimRight(window, " \n\t.,;:") + "..."
}

func domainOf(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(u.Host, "www.")
}
