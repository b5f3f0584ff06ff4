// Package pdfsource extracts plain text from uploaded PDF study material.
// The output feeds the text cleaner, which handles whitespace and artifact
// removal, so extraction stays minimal.
package pdfsource

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extracted is the text pulled from one PDF upload.
type Extracted struct {
	Text      string
	PageCount int
	// SkippedPages counts pages whose text could not be decoded.
	SkippedPages int
}

// MaxUploadBytes bounds how much of an upload is read.
const MaxUploadBytes = 25 << 20

// ExtractFromReader reads a PDF from r and returns its plain text, pages
// joined with blank lines. Pages that fail to decode are skipped rather than
// failing the whole document.
func ExtractFromReader(r io.Reader) (Extracted, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return Extracted{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return Extracted{}, fmt.Errorf("PDF exceeds %d byte limit", MaxUploadBytes)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Extracted{}, fmt.Errorf("parse PDF: %w", err)
	}

	var content strings.Builder
	out := Extracted{PageCount: reader.NumPage()}
	for pageNum := 1; pageNum <= out.PageCount; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			out.SkippedPages++
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			out.SkippedPages++
			continue
		}
		if content.Len() > 0 {
			content.WriteString("\n\n")
		}
		content.WriteString(text)
	}

	out.Text = content.String()
	if strings.TrimSpace(out.Text) == "" {
		return out, fmt.Errorf("PDF contains no extractable text")
	}
	return out, nil
}
