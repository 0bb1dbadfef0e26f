package extraction

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CategoryClassifier", func() {
	var classifier *CategoryClassifier

	BeforeEach(func() {
		classifier = NewCategoryClassifier(nil)
	})

	classify := func(name string) *string {
		return classifier.Classify(&name)
	}

	DescribeTable("default rules",
		func(merchant string, expected string) {
			Expect(classify(merchant)).To(HaveValue(Equal(expected)))
		},
		Entry("coffee chain", "STARBUCKS", "Food & Dining"),
		Entry("restaurant keyword", "Luigi's Restaurant", "Food & Dining"),
		Entry("big box", "Walmart Supercenter", "Shopping"),
		Entry("fuel", "Shell Oil 5531", "Transportation"),
		Entry("pharmacy", "CVS/pharmacy", "Healthcare"),
		Entry("grocery", "Whole Foods Market #452", "Groceries"),
	)

	It("uses the first matching group in priority order", func() {
		Expect(classify("Target Cafe")).To(HaveValue(Equal("Food & Dining")))
	})

	It("returns nil when no keyword matches", func() {
		Expect(classify("Unknown Shop XYZ")).To(BeNil())
	})

	It("returns nil for a nil merchant", func() {
		Expect(classifier.Classify(nil)).To(BeNil())
	})

	It("returns nil for a blank merchant", func() {
		Expect(classify("   ")).To(BeNil())
	})

	When("custom rules are given", func() {
		BeforeEach(func() {
			classifier = NewCategoryClassifier([]CategoryRule{
				{Name: "Hardware", Keywords: []string{" DEPOT "}},
			})
		})

		It("matches keywords case-insensitively", func() {
			Expect(classify("HOME DEPOT")).To(HaveValue(Equal("Hardware")))
		})

		It("does not fall back to the defaults", func() {
			Expect(classify("STARBUCKS")).To(BeNil())
		})
	})
})

var _ = Describe("LoadCategoryRules", func() {
	var (
		path  string
		rules []CategoryRule
		err   error
	)

	write := func(content string) {
		path = filepath.Join(GinkgoT().TempDir(), "categories.yaml")
		Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
	}

	JustBeforeEach(func() {
		rules, err = LoadCategoryRules(path)
	})

	When("the file is valid", func() {
		BeforeEach(func() {
			write(`
categories:
  - name: Pets
    keywords: [petco, petsmart]
  - name: Groceries
    keywords: [market]
`)
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("keeps the declared order", func() {
			Expect(rules).To(HaveLen(2))
			Expect(rules[0].Name).To(Equal("Pets"))
			Expect(rules[0].Keywords).To(Equal([]string{"petco", "petsmart"}))
			Expect(rules[1].Name).To(Equal("Groceries"))
		})
	})

	When("the file defines no categories", func() {
		BeforeEach(func() {
			write("categories: []\n")
		})

		It("returns an error", func() {
			Expect(err).To(HaveOccurred())
		})
	})

	When("a category has no keywords", func() {
		BeforeEach(func() {
			write("categories:\n  - name: Empty\n")
		})

		It("returns an error", func() {
			Expect(err).To(MatchError(ContainSubstring("Empty")))
		})
	})

	When("the file is not YAML", func() {
		BeforeEach(func() {
			write("categories: [unclosed\n")
		})

		It("returns an error", func() {
			Expect(err).To(HaveOccurred())
		})
	})

	When("the file does not exist", func() {
		BeforeEach(func() {
			path = filepath.Join(GinkgoT().TempDir(), "missing.yaml")
		})

		It("returns an error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})
