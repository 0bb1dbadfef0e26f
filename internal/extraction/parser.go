// Package extraction turns OCR text lines from a single receipt into
// merchant, amount, date and category fields with confidence scores.
package extraction

import (
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
)

// Parser assembles a ScannedReceipt from the individual extractors.
// It holds no per-call state and is safe for concurrent use.
type Parser struct {
	merchants  *MerchantExtractor
	amounts    *AmountExtractor
	dates      *DateExtractor
	categories *CategoryClassifier
}

// NewParser creates a Parser with default rules, local time and the system clock
func NewParser() *Parser {
	return NewParserWithDeps(nil, nil, nil)
}

// NewParserWithDeps creates a Parser with custom category rules, clock and location.
// Nil arguments fall back to the defaults.
func NewParserWithDeps(rules []CategoryRule, timeSource TimeSource, loc *time.Location) *Parser {
	return &Parser{
		merchants:  NewMerchantExtractor(),
		amounts:    NewAmountExtractor(),
		dates:      NewDateExtractor(timeSource, loc),
		categories: NewCategoryClassifier(rules),
	}
}

// Parse extracts all fields from the given lines. A nil slice returns
// ErrInvalidInput and a panicking extractor returns ErrExtractionFailed;
// missing fields are reported as nil values with zero confidence.
func (p *Parser) Parse(lines []string) (ScannedReceipt, error) {
	if lines == nil {
		return ScannedReceipt{}, ErrInvalidInput
	}

	var (
		merchant Field[string]
		amount   Field[float64]
		date     Field[time.Time]
		g        errgroup.Group
	)
	g.Go(guard("merchant", func() { merchant = p.merchants.Extract(lines) }))
	g.Go(guard("amount", func() { amount = p.amounts.Extract(lines) }))
	g.Go(guard("date", func() { date = p.dates.Extract(lines) }))
	if err := g.Wait(); err != nil {
		return ScannedReceipt{}, err
	}

	merchantName := merchant.ptr()

	return ScannedReceipt{
		Merchant:   merchantName,
		Amount:     amount.ptr(),
		Date:       date.ptr(),
		Category:   p.categories.Classify(merchantName),
		Confidence: NewConfidence(merchant.Confidence, amount.Confidence, date.Confidence),
		RawText:    slices.Clone(lines),
	}, nil
}

// guard runs an extractor and converts a panic into ErrExtractionFailed
func guard(name string, extract func()) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %s extractor: %v", ErrExtractionFailed, name, r)
			}
		}()
		extract()
		return nil
	}
}
