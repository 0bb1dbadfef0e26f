package scanning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

// mockRecognizer is a mock implementation of TextRecognizer
type mockRecognizer struct {
	lines  []string
	err    error
	calls  int
	closed bool
}

func (m *mockRecognizer) RecognizeText(ctx context.Context, imageData []byte, contentType string) ([]string, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.lines, nil
}

func (m *mockRecognizer) Close() error {
	m.closed = true
	return nil
}

var _ = Describe("Resilient", func() {
	var (
		next      *mockRecognizer
		resilient *Resilient
	)

	BeforeEach(func() {
		next = &mockRecognizer{lines: []string{"CVS"}}
		resilient = NewResilient("test", next, ResilienceConfig{
			BreakerMinRequests:  2,
			BreakerFailureRatio: 0.5,
			BreakerOpenTimeout:  time.Minute,
		})
	})

	It("passes results through", func() {
		lines, err := resilient.RecognizeText(context.Background(), []byte("img"), "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(lines).To(Equal([]string{"CVS"}))
	})

	When("the recognizer keeps failing", func() {
		var setupErr error

		BeforeEach(func() {
			setupErr = errors.New("upstream down")
			next.err = setupErr
		})

		It("returns the error until the breaker opens", func() {
			_, err := resilient.RecognizeText(context.Background(), nil, "image/png")
			Expect(err).To(MatchError(setupErr))
			_, err = resilient.RecognizeText(context.Background(), nil, "image/png")
			Expect(err).To(MatchError(setupErr))

			_, err = resilient.RecognizeText(context.Background(), nil, "image/png")
			Expect(err).To(MatchError(ErrRecognizerUnavailable))
			Expect(next.calls).To(Equal(2))
		})
	})

	When("the context is already cancelled", func() {
		It("returns without calling the recognizer", func() {
			resilient = NewResilient("slow", next, ResilienceConfig{RequestsPerMinute: 1, Burst: 1})
			_, err := resilient.RecognizeText(context.Background(), nil, "image/png")
			Expect(err).NotTo(HaveOccurred())

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err = resilient.RecognizeText(ctx, nil, "image/png")
			Expect(err).To(HaveOccurred())
			Expect(next.calls).To(Equal(1))
		})
	})

	It("closes the wrapped recognizer", func() {
		Expect(resilient.Close()).To(Succeed())
		Expect(next.closed).To(BeTrue())
	})
})

var _ = Describe("PDFText", func() {
	var (
		fallback *mockRecognizer
		reader   *PDFText
		lines    []string
		err      error
	)

	BeforeEach(func() {
		fallback = &mockRecognizer{lines: []string{"FROM OCR"}}
		reader = NewPDFText(fallback)
	})

	When("the upload is an image", func() {
		BeforeEach(func() {
			lines, err = reader.RecognizeText(context.Background(), []byte("jpeg"), "image/jpeg")
		})

		It("uses the OCR fallback", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(lines).To(Equal([]string{"FROM OCR"}))
			Expect(fallback.calls).To(Equal(1))
		})
	})

	When("the PDF cannot be read", func() {
		BeforeEach(func() {
			lines, err = reader.RecognizeText(context.Background(), []byte("%PDF-1.4 not really"), "application/pdf")
		})

		It("uses the OCR fallback", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(lines).To(Equal([]string{"FROM OCR"}))
		})
	})

	When("there is no fallback", func() {
		BeforeEach(func() {
			reader = NewPDFText(nil)
			lines, err = reader.RecognizeText(context.Background(), []byte("jpeg"), "image/jpeg")
		})

		It("returns an error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("Ollama", func() {
	var (
		server *ghttp.Server
		ollama *Ollama
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var err error
		ollama, err = NewOllama(server.URL()+"/", "qwen2-vl")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	When("the model answers with a transcription", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				func(w http.ResponseWriter, r *http.Request) {
					var req ollamaChatRequest
					Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
					Expect(req.Model).To(Equal("qwen2-vl"))
					Expect(req.Messages).To(HaveLen(2))
					Expect(req.Messages[1].Images).To(HaveLen(1))
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{Role: "assistant", Content: "```json\n[\"WALMART\", \"TOTAL 12.00\"]\n```"},
					Done:    true,
				}),
			))
		})

		It("returns the transcribed lines", func() {
			lines, err := ollama.RecognizeText(context.Background(), []byte("png bytes"), "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(lines).To(Equal([]string{"WALMART", "TOTAL 12.00"}))
		})
	})

	When("the API returns an error status", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
		})

		It("returns the error", func() {
			_, err := ollama.RecognizeText(context.Background(), []byte("png bytes"), "image/png")
			Expect(err).To(MatchError(ContainSubstring("status 500")))
		})
	})

	When("the image cannot be decoded", func() {
		It("returns the error without calling the API", func() {
			_, err := ollama.RecognizeText(context.Background(), []byte("not an image"), "image/jpeg")
			Expect(err).To(HaveOccurred())
			Expect(server.ReceivedRequests()).To(BeEmpty())
		})
	})
})

var _ = Describe("preparePNG", func() {
	sample := func() image.Image {
		img := image.NewRGBA(image.Rect(0, 0, 4, 4))
		img.Set(1, 1, color.Black)
		return img
	}

	It("passes PNG data through unchanged", func() {
		var buf bytes.Buffer
		Expect(png.Encode(&buf, sample())).To(Succeed())
		out, err := preparePNG(buf.Bytes(), "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(buf.Bytes()))
	})

	It("converts JPEG to PNG", func() {
		var buf bytes.Buffer
		Expect(jpeg.Encode(&buf, sample(), nil)).To(Succeed())
		out, err := preparePNG(buf.Bytes(), "IMAGE/JPEG; charset=binary")
		Expect(err).NotTo(HaveOccurred())
		_, format, err := image.Decode(bytes.NewReader(out))
		Expect(err).NotTo(HaveOccurred())
		Expect(format).To(Equal("png"))
	})

	It("detects HEIC by its magic bytes", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic")...)
		Expect(isHEICFormat(data)).To(BeTrue())
		Expect(isHEICFormat([]byte("short"))).To(BeFalse())
	})
})
