// Package document extracts plain text from uploaded documents.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Document errors.
var (
	ErrEmptyDocument = errors.New("document is empty")
	ErrNotPDF        = errors.New("document is not a PDF")
	ErrNoText        = errors.New("document contains no extractable text")
)

var pdfMagic = []byte("%PDF-")

// PDFExtractor pulls the text layer out of PDF files.
type PDFExtractor struct {
	parse func(data []byte) (string, error)
}

// NewPDFExtractor creates a PDFExtractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{parse: parsePDF}
}

type parseResult struct {
	text string
	err  error
}

// ExtractText returns the concatenated plain text of all pages. Parsing runs
// in its own goroutine so a cancelled or expired ctx returns immediately; the
// abandoned parse finishes in the background and its result is dropped.
func (e *PDFExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyDocument
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return "", ErrNotPDF
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	done := make(chan parseResult, 1)
	go func() {
		text, err := e.parse(data)
		done <- parseResult{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		if res.err != nil {
			return "", res.err
		}
		if res.text == "" {
			return "", ErrNoText
		}
		return res.text, nil
	}
}

func parsePDF(data []byte) (text string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("failed to parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}

	var buf strings.Builder
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	return strings.TrimSpace(buf.String()), nil
}
