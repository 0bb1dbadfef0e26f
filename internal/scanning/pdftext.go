package scanning

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFText reads the embedded text layer of digital PDF receipts (e-mailed
// invoices, online orders) and only falls back to OCR when there is none.
type PDFText struct {
	fallback TextRecognizer
}

// NewPDFText creates a PDFText that hands images and scanned PDFs to fallback
func NewPDFText(fallback TextRecognizer) *PDFText {
	return &PDFText{fallback: fallback}
}

// RecognizeText returns the text lines of the receipt
func (p *PDFText) RecognizeText(ctx context.Context, imageData []byte, contentType string) ([]string, error) {
	if normalizeMimeType(contentType) == mimePDF {
		lines, err := pdfTextLines(imageData)
		if err == nil && len(lines) > 0 {
			return lines, nil
		}
		slog.Debug("No usable PDF text layer, falling back to OCR", "error", err)
	}

	if p.fallback == nil {
		return nil, fmt.Errorf("no text layer and no OCR fallback configured")
	}
	return p.fallback.RecognizeText(ctx, imageData, contentType)
}

// Close closes the fallback recognizer
func (p *PDFText) Close() error {
	if p.fallback == nil {
		return nil
	}
	return p.fallback.Close()
}

// pdfTextLines extracts text row by row from every page
func pdfTextLines(data []byte) (lines []string, err error) {
	// The pdf package panics on some malformed documents
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}

	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("reading page %d: %w", i, err)
		}
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, word := range row.Content {
				words = append(words, word.S)
			}
			if line := strings.TrimSpace(strings.Join(words, " ")); line != "" {
				lines = append(lines, line)
			}
		}
	}
	return lines, nil
}
