// File: internal/infra/adapters/document/pdf_extractor.go
package document

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"echobook/internal/domain/model"
	"echobook/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.TextExtractor = (*PDFExtractor)(nil)

// PDFExtractor pulls the plain text of each PDF page.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor { return &PDFExtractor{} }

// Extract returns one chunk per page, in page order. Pages without a text
// layer come back with empty text; filtering is the caller's call.
// The parser panics on malformed structure; that surfaces as an error.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (chunks []model.Chunk, err error) {
	defer func() {
		if r := recover(); r != nil {
			chunks, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	return extract(ctx, path)
}

func extract(ctx context.Context, path string) ([]model.Chunk, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n := r.NumPage()
	chunks := make([]model.Chunk, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			chunks = append(chunks, model.Chunk{Page: i})
			continue
		}
		text, err := pageText(p)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		chunks = append(chunks, model.Chunk{Page: i, Text: text})
	}
	return chunks, nil
}

// pageText guards against panics the parser raises on malformed content streams.
func pageText(p pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed page content: %v", r)
		}
	}()
	return p.GetPlainText(nil)
}
