// Package summarize orchestrates per-chunk summarization over an external
// capability. The capability is stateful and instance-scoped: every batch
// opens its own instance and releases it when done, so concurrent batches
// never share one.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AnchitSingh/AI-Study-Coach/internal/model"
)

// Availability status strings a Factory may report. Only these two are
// treated as usable; anything else means the capability is absent, which is
// a normal condition, not an error.
const (
	StatusReadily       = "readily"
	StatusAfterDownload = "after-download"
)

// Usable reports whether an availability status allows summarization.
func Usable(status string) bool {
	return status == StatusReadily || status == StatusAfterDownload
}

// ErrUnavailable is returned when the capability cannot be used at all.
// Callers are expected to catch it and fall back to truncation.
var ErrUnavailable = errors.New("summarization capability unavailable")

// SharedContext is the contextual hint given once at capability creation.
type SharedContext struct {
	QuizTopic     string
	Subject       string
	Difficulty    string
	QuestionTypes []string
}

// String folds the hints into the shared-context string the capability sees.
func (s SharedContext) String() string {
	var parts []string
	if s.QuizTopic != "" {
		parts = append(parts, "Topic: "+s.QuizTopic)
	}
	if s.Subject != "" {
		parts = append(parts, "Subject: "+s.Subject)
	}
	if s.Difficulty != "" {
		parts = append(parts, "Difficulty: "+s.Difficulty)
	}
	if len(s.QuestionTypes) > 0 {
		parts = append(parts, "Question types: "+strings.Join(s.QuestionTypes, ", "))
	}
	if len(parts) == 0 {
		return "Summarize educational content for quiz generation."
	}
	return "Summarizing study material for quiz generation. " + strings.Join(parts, ". ")
}

// CallOptions control a single summarization call.
type CallOptions struct {
	// Context is the per-call instruction.
	Context string
}

// DefaultCallContext is the per-call instruction used when none is given.
const DefaultCallContext = "Extract key educational concepts and facts"

// Capability is one live summarizer instance. Close must always be called,
// even after failed Summarize calls.
type Capability interface {
	Summarize(ctx context.Context, text string, opts CallOptions) (string, error)
	Close() error
}

// Factory probes for and creates capability instances.
type Factory interface {
	// Availability returns a status string; see Usable.
	Availability(ctx context.Context) (string, error)
	// New creates an instance primed with the shared context.
	New(ctx context.Context, shared SharedContext) (Capability, error)
}

// Progress describes one step of a batch. Status is "summarizing" before a
// chunk and "done" or "fallback" after it; Result is set only after.
type Progress struct {
	Current int
	Total   int
	ChunkID string
	Status  string
	Result  *model.SummaryResult
}

// ProgressFunc receives batch progress. In sequential mode calls are strictly
// ordered and match chunk order.
type ProgressFunc func(Progress)

// Options tune a summarization batch.
type Options struct {
	// PerChunkTimeout bounds each capability call (default 60s).
	PerChunkTimeout time.Duration
	// Concurrency is the number of chunks summarized at once. The default 1
	// keeps the strict sequential semantics a stateful capability requires;
	// raise it only for stateless backends. With Concurrency > 1 progress
	// callbacks are no longer ordered, though results stay in chunk order.
	Concurrency int
	// FallbackTruncate is how much original text a failed chunk keeps as its
	// degraded summary (default 2000).
	FallbackTruncate int
	Logger           *slog.Logger
}

func (o *Options) setDefaults() {
	if o.PerChunkTimeout <= 0 {
		o.PerChunkTimeout = 60 * time.Second
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.FallbackTruncate <= 0 {
		o.FallbackTruncate = 2000
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// SummarizeAll summarizes every chunk. It fails fast with ErrUnavailable when
// the capability is absent; after that, a single chunk's failure never aborts
// the batch — the chunk degrades to truncated original text instead. The
// capability instance is released even when calls fail.
func SummarizeAll(ctx context.Context, f Factory, chunks []model.SourceChunk, shared SharedContext, onProgress ProgressFunc, opts Options) ([]model.SummaryResult, error) {
	opts.setDefaults()
	if f == nil {
		return nil, ErrUnavailable
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	status, err := f.Availability(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: availability check: %v", ErrUnavailable, err)
	}
	if !Usable(status) {
		return nil, fmt.Errorf("%w: status %q", ErrUnavailable, status)
	}

	inst, err := f.New(ctx, shared)
	if err != nil {
		return nil, fmt.Errorf("create summarizer: %w", err)
	}
	defer func() {
		if cerr := inst.Close(); cerr != nil {
			opts.Logger.Warn("summarizer close failed", "error", cerr)
		}
	}()

	results := make([]model.SummaryResult, len(chunks))
	total := len(chunks)

	summarizeOne := func(ctx context.Context, i int) error {
		chunk := chunks[i]
		if onProgress != nil {
			onProgress(Progress{Current: i + 1, Total: total, ChunkID: chunk.ID, Status: "summarizing"})
		}

		callCtx, cancel := context.WithTimeout(ctx, opts.PerChunkTimeout)
		summary, err := inst.Summarize(callCtx, chunk.Text, CallOptions{Context: DefaultCallContext})
		cancel()

		res := model.SummaryResult{
			ID:             chunk.ID,
			OriginalLength: len(chunk.Text),
			ProcessingTime: time.Now(),
		}
		status := "done"
		if err != nil {
			// Degrade, don't abort: keep truncated original text.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			opts.Logger.Warn("chunk summarization failed, falling back to truncation",
				"chunk", chunk.ID, "error", err)
			res.Summary = truncate(chunk.Text, opts.FallbackTruncate)
			res.Fallback = true
			res.Error = err.Error()
			status = "fallback"
		} else {
			res.Summary = summary
		}
		res.SummaryLength = len(res.Summary)
		res.TokenEstimate = model.EstimateTokens(res.Summary)
		results[i] = res

		if onProgress != nil {
			onProgress(Progress{Current: i + 1, Total: total, ChunkID: chunk.ID, Status: status, Result: &results[i]})
		}
		return nil
	}

	if opts.Concurrency == 1 {
		for i := range chunks {
			if err := ctx.Err(); err != nil {
				return results[:i], err
			}
			if err := summarizeOne(ctx, i); err != nil {
				return results[:i], err
			}
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i := range chunks {
		g.Go(func() error { return summarizeOne(gctx, i) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Assemble reduces a batch of summary results into one text plus aggregate
// statistics. Entries with empty summaries are skipped; the compression ratio
// is computed over valid entries only and is always finite.
func Assemble(results []model.SummaryResult) model.AssembledSummary {
	var (
		parts         []string
		totalOriginal int
		totalSummary  int
		fallbacks     int
		errCount      int
	)
	for _, r := range results {
		if r.Fallback {
			fallbacks++
		}
		if r.Error != "" {
			errCount++
		}
		if strings.TrimSpace(r.Summary) == "" {
			continue
		}
		parts = append(parts, r.Summary)
		totalOriginal += r.OriginalLength
		totalSummary += r.SummaryLength
	}

	text := strings.Join(parts, "\n\n")
	denom := totalSummary
	if denom < 1 {
		denom = 1
	}
	return model.AssembledSummary{
		Text:      text,
		WordCount: len(strings.Fields(text)),
		Meta: model.SummaryMeta{
			Summaries:           len(parts),
			TotalOriginalLength: totalOriginal,
			TotalSummaryLength:  totalSummary,
			CompressionRatio:    float64(totalOriginal) / float64(denom),
			Fallbacks:           fallbacks,
			Errors:              errCount,
		},
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
