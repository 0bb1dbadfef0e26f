package extraction

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	minAmount = 0.0
	maxAmount = 10000.0
)

// amountPattern pairs a pattern with the confidence its matches carry.
// The table order is the scan order within a line. value is the submatch
// holding the amount; a match whose veto submatch is non-empty is skipped.
type amountPattern struct {
	label      string
	re         *regexp.Regexp
	value      int
	veto       int
	confidence float64
}

var amountPatterns = []amountPattern{
	// "SUB TOTAL" and "Sub-Total" are consumed here and vetoed so the
	// total row never scores a subtotal at 0.9.
	{label: "total", re: regexp.MustCompile(`(?i)\b(sub[\s-]?)?total\b.*?\$?([\d,]+\.?\d{0,2})`), value: 2, veto: 1, confidence: 0.9},
	{label: "amount", re: regexp.MustCompile(`(?i)\bamount\b.*?\$?([\d,]+\.?\d{0,2})`), value: 1, confidence: 0.8},
	{label: "subtotal", re: regexp.MustCompile(`(?i)\bsub[\s-]?total\b.*?\$?([\d,]+\.?\d{0,2})`), value: 1, confidence: 0.8},
	{label: "dollar", re: regexp.MustCompile(`\$([\d,]+\.?\d{0,2})`), value: 1, confidence: 0.7},
	{label: "decimal", re: regexp.MustCompile(`\b([\d,]+\.\d{2})\b`), value: 1, confidence: 0.5},
}

type amountCandidate struct {
	value      float64
	confidence float64
}

// AmountExtractor finds the transaction total anywhere on a receipt
type AmountExtractor struct {
	patterns []amountPattern
}

// NewAmountExtractor creates an AmountExtractor with the default pattern table
func NewAmountExtractor() *AmountExtractor {
	return &AmountExtractor{patterns: amountPatterns}
}

// Extract returns the highest confidence amount on the receipt.
// Ties go to the candidate found first, scanning line by line and pattern by pattern.
func (e *AmountExtractor) Extract(lines []string) Field[float64] {
	candidates := e.candidates(lines)
	if len(candidates) == 0 {
		return notFound[float64]()
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.confidence > best.confidence {
			best = c
		}
	}
	return found(best.value, best.confidence)
}

// candidates collects every plausible amount in discovery order. A value seen
// again with a higher confidence replaces the earlier entry and moves to the
// position of the new sighting; lower or equal sightings are dropped.
func (e *AmountExtractor) candidates(lines []string) []amountCandidate {
	var (
		out  []amountCandidate
		seen = make(map[float64]float64)
	)

	for _, line := range lines {
		line = strings.TrimSpace(line)
		for _, p := range e.patterns {
			for _, m := range p.re.FindAllStringSubmatch(line, -1) {
				if p.veto > 0 && m[p.veto] != "" {
					continue
				}
				value, ok := parseAmount(m[p.value])
				if !ok {
					continue
				}
				if prev, dup := seen[value]; dup {
					if p.confidence <= prev {
						continue
					}
					out = removeAmount(out, value)
				}
				seen[value] = p.confidence
				out = append(out, amountCandidate{value: value, confidence: p.confidence})
			}
		}
	}
	return out
}

func removeAmount(candidates []amountCandidate, value float64) []amountCandidate {
	for i, c := range candidates {
		if c.value == value {
			return append(candidates[:i], candidates[i+1:]...)
		}
	}
	return candidates
}

// parseAmount strips grouping separators and rejects values outside (0, 10000)
func parseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if value <= minAmount || value >= maxAmount {
		return 0, false
	}
	return value, true
}
