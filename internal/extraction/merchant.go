package extraction

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// merchantHeaderLines is how many lines from the top are searched for a merchant
	merchantHeaderLines = 5

	merchantTopConfidence      = 0.9
	merchantLineStep           = 0.1
	merchantFallbackConfidence = 0.5
	merchantMinLength          = 3
	merchantFallbackMaxLength  = 50
)

// merchantPattern is one row of the merchant pattern table.
// group selects the submatch holding the name (0 for the whole match).
type merchantPattern struct {
	name  string
	re    *regexp.Regexp
	group int
}

// merchantPatterns is ordered from most to least specific
var merchantPatterns = []merchantPattern{
	{
		name:  "chain",
		re:    regexp.MustCompile(`(?i)\b(STARBUCKS|MCDONALD'?S|WALMART|TARGET|AMAZON|COSTCO|SAFEWAY|CVS|WALGREENS)\b`),
		group: 1,
	},
	{
		name:  "business",
		re:    regexp.MustCompile(`^([A-Z][A-Z\s&]{2,30})(?:\s|$)`),
		group: 1,
	},
	{
		name:  "store_number",
		re:    regexp.MustCompile(`(?i)^([A-Z][A-Z\s&]{2,20})\s+#?\d+`),
		group: 1,
	},
}

// MerchantExtractor finds the business name near the top of a receipt
type MerchantExtractor struct {
	patterns []merchantPattern
}

// NewMerchantExtractor creates a MerchantExtractor with the default pattern table
func NewMerchantExtractor() *MerchantExtractor {
	return &MerchantExtractor{patterns: merchantPatterns}
}

// Extract returns the merchant name. Each pattern is tried against every header
// line before moving to the next, less specific pattern, so a known chain name on
// the second line wins over a generic uppercase line above it.
func (e *MerchantExtractor) Extract(lines []string) Field[string] {
	header := headerLines(lines)

	for _, p := range e.patterns {
		for i, line := range header {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			name := strings.TrimSpace(m[p.group])
			if utf8.RuneCountInString(name) < merchantMinLength {
				continue
			}
			return found(name, merchantConfidence(i))
		}
	}

	for _, line := range header {
		if looksLikeBusinessName(line) {
			return found(line, merchantFallbackConfidence)
		}
	}

	return notFound[string]()
}

// headerLines returns the trimmed first merchantHeaderLines lines
func headerLines(lines []string) []string {
	n := min(len(lines), merchantHeaderLines)
	header := make([]string, n)
	for i := 0; i < n; i++ {
		header[i] = strings.TrimSpace(lines[i])
	}
	return header
}

// merchantConfidence decays by 0.1 per line from 0.9 on the first line
func merchantConfidence(lineIndex int) float64 {
	c := merchantTopConfidence - merchantLineStep*float64(lineIndex)
	return math.Round(c*100) / 100
}

func looksLikeBusinessName(line string) bool {
	n := utf8.RuneCountInString(line)
	if n <= merchantMinLength || n >= merchantFallbackMaxLength {
		return false
	}
	return strings.IndexFunc(line, unicode.IsDigit) == -1
}
