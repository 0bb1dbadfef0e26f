package scanning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// ResilienceConfig controls rate limiting and circuit breaking for remote OCR
type ResilienceConfig struct {
	// RequestsPerMinute caps calls to the wrapped recognizer; 0 disables the limit
	RequestsPerMinute float64
	Burst             int

	BreakerMinRequests  uint32
	BreakerFailureRatio float64
	BreakerOpenTimeout  time.Duration
}

// DefaultResilienceConfig returns limits suitable for a hosted vision API
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		RequestsPerMinute:   30,
		Burst:               5,
		BreakerMinRequests:  5,
		BreakerFailureRatio: 0.6,
		BreakerOpenTimeout:  30 * time.Second,
	}
}

func (c ResilienceConfig) normalize() ResilienceConfig {
	def := DefaultResilienceConfig()
	if c.Burst <= 0 {
		c.Burst = def.Burst
	}
	if c.BreakerMinRequests == 0 {
		c.BreakerMinRequests = def.BreakerMinRequests
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		c.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if c.BreakerOpenTimeout <= 0 {
		c.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	return c
}

// Resilient wraps a TextRecognizer with a rate limiter and a circuit breaker
type Resilient struct {
	next    TextRecognizer
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]string]
}

// NewResilient creates a Resilient recognizer around next
func NewResilient(name string, next TextRecognizer, cfg ResilienceConfig) *Resilient {
	cfg = cfg.normalize()

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(cfg.RequestsPerMinute / 60)
	}

	settings := gobreaker.Settings{
		Name:    name,
		Timeout: cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not the recognizer's fault
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("OCR circuit breaker state change", "recognizer", name, "from", from.String(), "to", to.String())
		},
	}

	return &Resilient{
		next:    next,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker[[]string](settings),
	}
}

// RecognizeText waits for the rate limiter and calls the wrapped recognizer
// unless the breaker is open
func (r *Resilient) RecognizeText(ctx context.Context, imageData []byte, contentType string) ([]string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for OCR rate limit: %w", err)
	}

	lines, err := r.breaker.Execute(func() ([]string, error) {
		return r.next.RecognizeText(ctx, imageData, contentType)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrRecognizerUnavailable, err)
	}
	return lines, err
}

// Close closes the wrapped recognizer
func (r *Resilient) Close() error {
	return r.next.Close()
}
