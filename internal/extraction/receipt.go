package extraction

import (
	"encoding/json"
	"errors"
	"slices"
	"time"
)

// ErrInvalidInput is returned when Parse is given a nil line slice.
// An empty slice is valid input.
var ErrInvalidInput = errors.New("invalid input: nil line sequence")

// ErrExtractionFailed is returned when an extractor panics, for example
// because a caller-supplied TimeSource does.
var ErrExtractionFailed = errors.New("extraction failed")

// HighConfidenceThreshold is the overall score at or above which a scan
// needs no user re-verification.
const HighConfidenceThreshold = 0.7

// Field is the result of a single extractor.
// A field that was not found has a zero Value and zero Confidence.
type Field[T any] struct {
	Value      T
	Found      bool
	Confidence float64
}

func found[T any](value T, confidence float64) Field[T] {
	return Field[T]{Value: value, Found: true, Confidence: confidence}
}

func notFound[T any]() Field[T] {
	return Field[T]{}
}

// ptr returns a pointer to the value, or nil when the field was not found
func (f Field[T]) ptr() *T {
	if !f.Found {
		return nil
	}
	v := f.Value
	return &v
}

// Confidence holds per-field scores and their mean
type Confidence struct {
	merchant float64
	amount   float64
	date     float64
	overall  float64
}

// NewConfidence builds a Confidence; overall is always the mean of the three scores
func NewConfidence(merchant, amount, date float64) Confidence {
	return Confidence{
		merchant: merchant,
		amount:   amount,
		date:     date,
		overall:  (merchant + amount + date) / 3.0,
	}
}

func (c Confidence) Merchant() float64 { return c.merchant }
func (c Confidence) Amount() float64   { return c.amount }
func (c Confidence) Date() float64     { return c.date }
func (c Confidence) Overall() float64  { return c.overall }

type confidenceJSON struct {
	Merchant float64 `json:"merchant"`
	Amount   float64 `json:"amount"`
	Date     float64 `json:"date"`
	Overall  float64 `json:"overall"`
}

// MarshalJSON implements json.Marshaler
func (c Confidence) MarshalJSON() ([]byte, error) {
	return json.Marshal(confidenceJSON{
		Merchant: c.merchant,
		Amount:   c.amount,
		Date:     c.date,
		Overall:  c.overall,
	})
}

// UnmarshalJSON implements json.Unmarshaler. The encoded overall is ignored
// and recomputed from the three field scores.
func (c *Confidence) UnmarshalJSON(data []byte) error {
	var raw confidenceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = NewConfidence(raw.Merchant, raw.Amount, raw.Date)
	return nil
}

// ScannedReceipt is the structured result of parsing one receipt.
// Nil pointers mean the field was not found.
type ScannedReceipt struct {
	Merchant   *string    `json:"merchant"`
	Amount     *float64   `json:"amount"`
	Date       *time.Time `json:"date"`
	Category   *string    `json:"category"`
	Confidence Confidence `json:"confidence"`
	RawText    []string   `json:"raw_text"`
}

// IsHighConfidence reports whether the overall confidence reaches HighConfidenceThreshold
func (r ScannedReceipt) IsHighConfidence() bool {
	return r.Confidence.Overall() >= HighConfidenceThreshold
}

// Equal reports whether both receipts hold the same values, field by field
func (r ScannedReceipt) Equal(other ScannedReceipt) bool {
	if !equalPtr(r.Merchant, other.Merchant) ||
		!equalPtr(r.Amount, other.Amount) ||
		!equalPtr(r.Category, other.Category) {
		return false
	}
	if (r.Date == nil) != (other.Date == nil) {
		return false
	}
	if r.Date != nil && !r.Date.Equal(*other.Date) {
		return false
	}
	return r.Confidence == other.Confidence && slices.Equal(r.RawText, other.RawText)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
