package screening

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"hirelane/pipeline-service/internal/pipeline"
)

// maxExtractedText caps the text kept from one document.
const maxExtractedText = 64 << 10

// PDFExtractor pulls the text layer out of a PDF. Scanned documents have
// none, so an empty result is normal.
type PDFExtractor struct{}

var _ pipeline.TextExtractor = PDFExtractor{}

// ExtractText implements pipeline.TextExtractor. The parser panics on some
// malformed files; that is reported as an error.
func (PDFExtractor) ExtractText(ctx context.Context, document []byte) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf: malformed document: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(document), int64(len(document)))
	if err != nil {
		return "", fmt.Errorf("pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(io.LimitReader(plain, maxExtractedText)); err != nil {
		return "", fmt.Errorf("pdf: %w", err)
	}
	return buf.String(), nil
}
