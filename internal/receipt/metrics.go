package receipt

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects HTTP and scan metrics on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	scansTotal      *prometheus.CounterVec
	ocrDuration     prometheus.Histogram
	fieldsFound     *prometheus.CounterVec
	scanConfidence  prometheus.Histogram
	transactionsNew prometheus.Counter
}

// NewMetrics registers all collectors
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "receipt_scanner",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests processed.",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "receipt_scanner",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		scansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "receipt_scanner",
				Subsystem: "scan",
				Name:      "total",
				Help:      "Receipt scans by outcome.",
			},
			[]string{"status"},
		),
		ocrDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "receipt_scanner",
				Subsystem: "scan",
				Name:      "ocr_duration_seconds",
				Help:      "Text recognition duration in seconds.",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
		),
		fieldsFound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "receipt_scanner",
				Subsystem: "extraction",
				Name:      "fields_found_total",
				Help:      "Extracted fields by name.",
			},
			[]string{"field"},
		),
		scanConfidence: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "receipt_scanner",
				Subsystem: "extraction",
				Name:      "overall_confidence",
				Help:      "Distribution of overall extraction confidence.",
				Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
			},
		),
		transactionsNew: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "receipt_scanner",
				Subsystem: "transactions",
				Name:      "created_total",
				Help:      "Transactions created.",
			},
		),
	}

	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.scansTotal,
		m.ocrDuration,
		m.fieldsFound,
		m.scanConfidence,
		m.transactionsNew,
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts requests and their duration
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(r.Method, path, strconv.Itoa(recorder.statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath keeps transaction IDs out of label values
func normalizePath(path string) string {
	if strings.HasPrefix(path, "/api/receipts/scan/") {
		return "/api/receipts/scan/{filename}"
	}
	rest, ok := strings.CutPrefix(path, "/api/transactions/")
	if !ok || rest == "export.xlsx" {
		return path
	}
	if strings.HasSuffix(rest, "/file") {
		return "/api/transactions/{id}/file"
	}
	return "/api/transactions/{id}"
}

func (m *Metrics) recordScanFailure(stage string) {
	if m == nil {
		return
	}
	m.scansTotal.WithLabelValues(stage).Inc()
}

func (m *Metrics) recordOCR(d time.Duration) {
	if m == nil {
		return
	}
	m.ocrDuration.Observe(d.Seconds())
}

func (m *Metrics) recordExtraction(result *ScanResult) {
	if m == nil {
		return
	}
	m.scansTotal.WithLabelValues("ok").Inc()
	m.scanConfidence.Observe(result.Receipt.Confidence.Overall())
	if result.Receipt.Merchant != nil {
		m.fieldsFound.WithLabelValues("merchant").Inc()
	}
	if result.Receipt.Amount != nil {
		m.fieldsFound.WithLabelValues("amount").Inc()
	}
	if result.Receipt.Category != nil {
		m.fieldsFound.WithLabelValues("category").Inc()
	}
}

func (m *Metrics) recordTransaction() {
	if m == nil {
		return
	}
	m.transactionsNew.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
