package scanning

import (
	"bytes"
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// buildTextPDF writes a single page PDF whose content stream is content,
// with Helvetica available as /F1
func buildTextPDF(content string) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

var _ = Describe("pdfTextLines", func() {
	When("the page has a text layer", func() {
		var data []byte

		BeforeEach(func() {
			// Rows are written bottom first to check they come back top down
			data = buildTextPDF("BT /F1 12 Tf\n" +
				"1 0 0 1 200 600 Tm ($4.50) Tj\n" +
				"1 0 0 1 72 600 Tm (Total:) Tj\n" +
				"1 0 0 1 72 720 Tm (STARBUCKS) Tj\n" +
				"1 0 0 1 72 700 Tm (03/14/2024) Tj\n" +
				"ET")
		})

		It("returns one line per row, top to bottom", func() {
			lines, err := pdfTextLines(data)
			Expect(err).NotTo(HaveOccurred())
			Expect(lines).To(Equal([]string{"STARBUCKS", "03/14/2024", "Total: $4.50"}))
		})

		It("does not call the OCR fallback", func() {
			fallback := &mockRecognizer{lines: []string{"FROM OCR"}}
			lines, err := NewPDFText(fallback).RecognizeText(context.Background(), data, "application/pdf")
			Expect(err).NotTo(HaveOccurred())
			Expect(lines).To(Equal([]string{"STARBUCKS", "03/14/2024", "Total: $4.50"}))
			Expect(fallback.calls).To(BeZero())
		})
	})

	When("the page has no text", func() {
		var data []byte

		BeforeEach(func() {
			data = buildTextPDF("BT ET")
		})

		It("returns no lines", func() {
			lines, err := pdfTextLines(data)
			Expect(err).NotTo(HaveOccurred())
			Expect(lines).To(BeEmpty())
		})

		It("falls back to OCR", func() {
			fallback := &mockRecognizer{lines: []string{"FROM OCR"}}
			lines, err := NewPDFText(fallback).RecognizeText(context.Background(), data, "application/pdf")
			Expect(err).NotTo(HaveOccurred())
			Expect(lines).To(Equal([]string{"FROM OCR"}))
			Expect(fallback.calls).To(Equal(1))
		})
	})
})
