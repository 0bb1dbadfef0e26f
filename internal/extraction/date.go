package extraction

import (
	"regexp"
	"strings"
	"time"
)

const (
	dateParsedConfidence   = 0.8
	dateFallbackConfidence = 0.3
)

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

var datePatterns = []*regexp.Regexp{
	// 03/14/2024, 3-14-24
	regexp.MustCompile(`\b(\d{1,2})[/\-](\d{1,2})[/\-](\d{2,4})\b`),
	// 2024/03/14
	regexp.MustCompile(`\b(\d{2,4})[/\-](\d{1,2})[/\-](\d{1,2})\b`),
	// Mar 14, 2024
	regexp.MustCompile(`(?i)\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+(\d{1,2}),?\s+(\d{2,4})`),
}

// dateLayouts are tried in order against a matched date token
var dateLayouts = []string{
	"01/02/2006",
	"01/02/06",
	"1/2/2006",
	"1/2/06",
	"2006/01/02",
	"2006/1/2",
	"Jan 02, 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
}

// DateExtractor finds the transaction date on a receipt
type DateExtractor struct {
	patterns   []*regexp.Regexp
	layouts    []string
	location   *time.Location
	timeSource TimeSource
}

// NewDateExtractor creates a DateExtractor. Dates are read in loc and the
// fallback date comes from timeSource.
func NewDateExtractor(timeSource TimeSource, loc *time.Location) *DateExtractor {
	if timeSource == nil {
		timeSource = &defaultTimeSource{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &DateExtractor{
		patterns:   datePatterns,
		layouts:    dateLayouts,
		location:   loc,
		timeSource: timeSource,
	}
}

// Extract returns the first parseable date on the receipt, or the current time
// with low confidence. It never reports not found.
func (e *DateExtractor) Extract(lines []string) Field[time.Time] {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		for _, re := range e.patterns {
			token := re.FindString(line)
			if token == "" {
				continue
			}
			if date, ok := e.parse(token); ok {
				return found(date, dateParsedConfidence)
			}
		}
	}
	return found(e.timeSource.Now(), dateFallbackConfidence)
}

func (e *DateExtractor) parse(token string) (time.Time, bool) {
	token = strings.Join(strings.Fields(strings.ReplaceAll(token, "-", "/")), " ")
	for _, layout := range e.layouts {
		if date, err := time.ParseInLocation(layout, token, e.location); err == nil {
			return date, true
		}
	}
	return time.Time{}, false
}
