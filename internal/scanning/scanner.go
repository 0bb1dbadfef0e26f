package scanning

import (
	"context"
	"errors"
)

// ErrRecognizerUnavailable is returned while a remote recognizer is being held off
// after repeated failures
var ErrRecognizerUnavailable = errors.New("text recognizer unavailable")

// TextRecognizer defines the interface for OCR over receipt images
type TextRecognizer interface {
	// RecognizeText returns the text lines of a receipt image/PDF, top to bottom
	RecognizeText(ctx context.Context, imageData []byte, contentType string) ([]string, error)
	// Close closes the recognizer and releases resources
	Close() error
}
