package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AmountExtractor", func() {
	var (
		lines  []string
		result Field[float64]
	)

	JustBeforeEach(func() {
		result = NewAmountExtractor().Extract(lines)
	})

	When("both a subtotal and a total are present", func() {
		BeforeEach(func() {
			lines = []string{"Subtotal: $10.00", "Tax: $2.50", "Total: $12.50"}
		})

		It("returns the total", func() {
			Expect(result.Found).To(BeTrue())
			Expect(result.Value).To(Equal(12.50))
			Expect(result.Confidence).To(Equal(0.9))
		})
	})

	When("the total comes before the subtotal", func() {
		BeforeEach(func() {
			lines = []string{"TOTAL 8.75", "SUBTOTAL 8.00"}
		})

		It("still returns the total", func() {
			Expect(result.Value).To(Equal(8.75))
			Expect(result.Confidence).To(Equal(0.9))
		})
	})

	DescribeTable("spaced or hyphenated subtotal labels",
		func(input []string, want float64, confidence float64) {
			r := NewAmountExtractor().Extract(input)
			Expect(r.Value).To(Equal(want))
			Expect(r.Confidence).To(Equal(confidence))
		},
		Entry("SUB TOTAL before TOTAL", []string{"SUB TOTAL $10.00", "TOTAL $12.50"}, 12.50, 0.9),
		Entry("Sub-Total before Total", []string{"Sub-Total: $10.00", "Tax $0.80", "Total: $10.80"}, 10.80, 0.9),
		Entry("both on one line", []string{"Sub Total 10.00 Total 12.50"}, 12.50, 0.9),
		Entry("subtotal only", []string{"SUB TOTAL $10.00"}, 10.00, 0.8),
	)

	When("an amount label is present", func() {
		BeforeEach(func() {
			lines = []string{"$3.00", "Amount Due: $41.20"}
		})

		It("scores it 0.8", func() {
			Expect(result.Value).To(Equal(41.20))
			Expect(result.Confidence).To(Equal(0.8))
		})
	})

	When("only dollar amounts are present", func() {
		BeforeEach(func() {
			lines = []string{"Latte $4.50", "Muffin $3.25"}
		})

		It("returns the first one", func() {
			Expect(result.Value).To(Equal(4.50))
			Expect(result.Confidence).To(Equal(0.7))
		})
	})

	When("only bare decimals are present", func() {
		BeforeEach(func() {
			lines = []string{"BANANAS 1.29", "MILK 3.49"}
		})

		It("returns the first one with low confidence", func() {
			Expect(result.Value).To(Equal(1.29))
			Expect(result.Confidence).To(Equal(0.5))
		})
	})

	When("the amount has grouping separators", func() {
		BeforeEach(func() {
			lines = []string{"Grand Total $1,234.56"}
		})

		It("removes them before parsing", func() {
			Expect(result.Value).To(Equal(1234.56))
		})
	})

	When("amounts are outside the plausible range", func() {
		BeforeEach(func() {
			lines = []string{"Total: $0.00", "Card $12,000.00", "Ref 10000.00"}
		})

		It("is not found", func() {
			Expect(result.Found).To(BeFalse())
			Expect(result.Confidence).To(BeZero())
		})
	})

	When("the same value appears at several confidence levels", func() {
		BeforeEach(func() {
			lines = []string{"$5.00", "Total $7.00", "TOTAL DUE $5.00"}
		})

		It("keeps the first value found at the highest confidence", func() {
			Expect(result.Value).To(Equal(7.00))
			Expect(result.Confidence).To(Equal(0.9))
		})
	})

	When("there are no numbers", func() {
		BeforeEach(func() {
			lines = []string{"THANK YOU", "COME AGAIN"}
		})

		It("is not found", func() {
			Expect(result.Found).To(BeFalse())
		})
	})
})
