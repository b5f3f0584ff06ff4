package textprep

import (
	"strings"
	"testing"
)

func TestChunkShortTextSingleChunk(t *testing.T) {
	text := strings.Repeat("short text ", 100) // ~1100 chars
	chunks := Chunk(text, ChunkOptions{})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	c := chunks[0]
	if c.ID != "chunk_1" {
		t.Errorf("expected id chunk_1, got %q", c.ID)
	}
	if c.Text != text {
		t.Error("single chunk should carry the whole text")
	}
	if c.Start != 0 || c.End != len(text) {
		t.Errorf("expected span [0,%d), got [%d,%d)", len(text), c.Start, c.End)
	}
	if c.NeedsSummarization {
		t.Error("short single chunk must not need summarization")
	}
	if c.TokenEstimate != len(text)/4 {
		t.Errorf("expected token estimate %d, got %d", len(text)/4, c.TokenEstimate)
	}
}

func TestChunkEmptyText(t *testing.T) {
	if chunks := Chunk("", ChunkOptions{}); chunks != nil {
		t.Errorf("expected nil for empty text, got %d chunks", len(chunks))
	}
}

func TestChunkLongTextSplitsWithOverlap(t *testing.T) {
	text := strings.Repeat("x", 20000)
	chunks := Chunk(text, ChunkOptions{})
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	first, second := chunks[0], chunks[1]
	if first.End != 12000 {
		t.Errorf("first chunk should end at MaxChars, got %d", first.End)
	}
	if second.Start != first.End-DefaultOverlap {
		t.Errorf("second chunk should start Overlap before first end: got %d, want %d",
			second.Start, first.End-DefaultOverlap)
	}
	if second.End != len(text) {
		t.Errorf("second chunk should reach end of text, got %d", second.End)
	}
	if second.ID != "chunk_2" {
		t.Errorf("expected id chunk_2, got %q", second.ID)
	}
}

func TestChunkCoversTextWithinCap(t *testing.T) {
	// Text that fits inside two windows must be fully covered.
	text := strings.Repeat("y", 23000)
	chunks, stats := ChunkWithStats(text, ChunkOptions{})
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Start != 0 {
		t.Errorf("coverage must start at 0, got %d", chunks[0].Start)
	}
	if chunks[1].Start > chunks[0].End {
		t.Errorf("chunks must not leave a gap: %d > %d", chunks[1].Start, chunks[0].End)
	}
	if chunks[len(chunks)-1].End != len(text) {
		t.Errorf("coverage must reach len(text), got %d", chunks[len(chunks)-1].End)
	}
	if stats.DroppedChars != 0 {
		t.Errorf("nothing should be dropped, got %d", stats.DroppedChars)
	}
}

func TestChunkDropsBeyondMaxChunks(t *testing.T) {
	text := strings.Repeat("z", 40000)
	chunks, stats := ChunkWithStats(text, ChunkOptions{})
	if len(chunks) != DefaultMaxChunks {
		t.Fatalf("expected %d chunks, got %d", DefaultMaxChunks, len(chunks))
	}
	if stats.DroppedChars == 0 {
		t.Error("expected dropped chars beyond the chunk cap")
	}
	covered := chunks[len(chunks)-1].End
	if covered+stats.DroppedChars != len(text) {
		t.Errorf("covered (%d) + dropped (%d) != len (%d)", covered, stats.DroppedChars, len(text))
	}
}

func TestChunkPrefersParagraphBoundary(t *testing.T) {
	// A paragraph break past MinChars should become the cut point.
	first := strings.Repeat("a", 6000)
	rest := strings.Repeat("b", 10000)
	text := first + "\n\n" + rest
	chunks := Chunk(text, ChunkOptions{})
	if len(chunks) < 2 {
		t.Fatalf("expected a split, got %d chunks", len(chunks))
	}
	if chunks[0].End != len(first) {
		t.Errorf("expected cut at paragraph break %d, got %d", len(first), chunks[0].End)
	}
}

func TestChunkIgnoresEarlyParagraphBoundary(t *testing.T) {
	// A break before MinChars must not produce a tiny chunk.
	text := strings.Repeat("a", 100) + "\n\n" + strings.Repeat("b", 15000)
	chunks := Chunk(text, ChunkOptions{})
	if chunks[0].End <= DefaultMinChars {
		t.Errorf("cut at %d makes less than MinChars progress", chunks[0].End)
	}
}

func TestChunkCustomOptions(t *testing.T) {
	text := strings.Repeat("w", 5000)
	chunks := Chunk(text, ChunkOptions{MaxChars: 1000, MinChars: 500, Overlap: 50, MaxChunks: 3})
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Start != chunks[i-1].End-50 {
			t.Errorf("chunk %d overlap wrong: start %d, prev end %d", i, chunks[i].Start, chunks[i-1].End)
		}
	}
}

func TestShouldSummarize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", false},
		{"single short chunk", strings.Repeat("a", 1000), false},
		{"long text", strings.Repeat("a", 20000), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Chunk(tt.text, ChunkOptions{})
			if got := ShouldSummarize(chunks); got != tt.want {
				t.Errorf("ShouldSummarize = %v, want %v", got, tt.want)
			}
		})
	}
}
