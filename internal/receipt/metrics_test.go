package receipt

import (
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/zombor/receipt-scanner/internal/extraction"
)

var _ = Describe("Metrics", func() {
	var metrics *Metrics

	BeforeEach(func() {
		metrics = NewMetrics()
	})

	DescribeTable("normalizePath",
		func(path, expected string) {
			Expect(normalizePath(path)).To(Equal(expected))
		},
		Entry("list", "/api/transactions", "/api/transactions"),
		Entry("export", "/api/transactions/export.xlsx", "/api/transactions/export.xlsx"),
		Entry("single", "/api/transactions/5f0c", "/api/transactions/{id}"),
		Entry("file", "/api/transactions/5f0c/file", "/api/transactions/{id}/file"),
		Entry("other", "/api/receipts/scan", "/api/receipts/scan"),
		Entry("discard", "/api/receipts/scan/5f0c_r.png", "/api/receipts/scan/{filename}"),
	)

	It("counts requests by normalized path and status", func() {
		handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/transactions/abc", nil))

		Expect(testutil.ToFloat64(metrics.requestTotal.WithLabelValues("GET", "/api/transactions/{id}", "418"))).To(Equal(1.0))
	})

	It("records extraction results", func() {
		merchant := "CVS"
		metrics.recordExtraction(&ScanResult{Receipt: extraction.ScannedReceipt{Merchant: &merchant}})
		metrics.recordScanFailure("ocr")

		Expect(testutil.ToFloat64(metrics.scansTotal.WithLabelValues("ok"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(metrics.scansTotal.WithLabelValues("ocr"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(metrics.fieldsFound.WithLabelValues("merchant"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(metrics.fieldsFound.WithLabelValues("amount"))).To(Equal(0.0))
	})

	It("is a no-op when nil", func() {
		var m *Metrics
		Expect(func() {
			m.recordOCR(0)
			m.recordTransaction()
			m.recordScanFailure("ocr")
		}).NotTo(Panic())
		Expect(m.Middleware(http.NotFoundHandler())).NotTo(BeNil())
	})
})
