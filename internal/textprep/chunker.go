package textprep

import (
	"fmt"
	"strings"

	"github.com/AnchitSingh/AI-Study-Coach/internal/model"
)

// ChunkOptions control how cleaned text is split.
type ChunkOptions struct {
	// MaxChars is the upper bound of one chunk (default 12000).
	MaxChars int
	// MinChars is the size below which text stays a single chunk, and the
	// minimum progress a paragraph-boundary cut must keep (default 4000).
	MinChars int
	// Overlap is how many characters consecutive chunks share (default 200).
	Overlap int
	// MaxChunks caps the number of chunks; text beyond the cap is silently
	// dropped (default 2).
	MaxChunks int
}

// Chunk defaults.
const (
	DefaultMaxChars  = 12000
	DefaultMinChars  = 4000
	DefaultOverlap   = 200
	DefaultMaxChunks = 2
)

func (o *ChunkOptions) setDefaults() {
	if o.MaxChars <= 0 {
		o.MaxChars = DefaultMaxChars
	}
	if o.MinChars <= 0 {
		o.MinChars = DefaultMinChars
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	} else if o.Overlap == 0 {
		o.Overlap = DefaultOverlap
	}
	if o.MaxChunks <= 0 {
		o.MaxChunks = DefaultMaxChunks
	}
}

// ChunkStats is advisory output of a chunking pass.
type ChunkStats struct {
	// DroppedChars counts text beyond the MaxChunks cap that was not
	// covered by any chunk.
	DroppedChars int
}

// Chunk splits text into bounded, overlapping chunks respecting paragraph
// boundaries. Chunk ids are chunk_1, chunk_2, ... in document order and are
// stable only within one invocation.
func Chunk(text string, opts ChunkOptions) []model.SourceChunk {
	chunks, _ := ChunkWithStats(text, opts)
	return chunks
}

// ChunkWithStats is Chunk plus advisory statistics.
func ChunkWithStats(text string, opts ChunkOptions) ([]model.SourceChunk, ChunkStats) {
	opts.setDefaults()
	var stats ChunkStats
	if text == "" {
		return nil, stats
	}

	if len(text) <= opts.MinChars {
		return []model.SourceChunk{newChunk(1, text, 0, len(text), opts.MinChars)}, stats
	}

	var chunks []model.SourceChunk
	start := 0
	for start < len(text) && len(chunks) < opts.MaxChunks {
		end := start + opts.MaxChars
		if end >= len(text) {
			end = len(text)
		} else {
			// Prefer the last paragraph break in the window, as long as the
			// cut still makes at least MinChars of progress.
			window := text[start:end]
			if idx := strings.LastIndex(window, "\n\n"); idx >= opts.MinChars {
				end = start + idx
			}
		}
		chunks = append(chunks, newChunk(len(chunks)+1, text[start:end], start, end, opts.MinChars))
		if end >= len(text) {
			start = len(text)
			break
		}
		start = end - opts.Overlap
		if start < 0 {
			start = 0
		}
	}

	if last := chunks[len(chunks)-1]; last.End < len(text) {
		stats.DroppedChars = len(text) - last.End
	}
	return chunks, stats
}

func newChunk(n int, text string, start, end, minChars int) model.SourceChunk {
	return model.SourceChunk{
		ID:                 fmt.Sprintf("chunk_%d", n),
		Text:               text,
		Start:              start,
		End:                end,
		TokenEstimate:      model.EstimateTokens(text),
		NeedsSummarization: len(text) > minChars,
	}
}

// ShouldSummarize reports whether a chunk set is worth compressing before
// prompting: false for empty input or a single short chunk, otherwise true
// iff any chunk is flagged for summarization.
func ShouldSummarize(chunks []model.SourceChunk) bool {
	if len(chunks) == 0 {
		return false
	}
	if len(chunks) == 1 && len(chunks[0].Text) < DefaultMinChars {
		return false
	}
	for _, c := range chunks {
		if c.NeedsSummarization {
			return true
		}
	}
	return false
}
