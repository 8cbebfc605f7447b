package receipt

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func testItem(name string, quantity, price float64) LineItem {
	return LineItem{Name: strPtr(name), Quantity: floatPtr(quantity), Price: floatPtr(price)}
}

var _ = Describe("Reconcile", func() {
	var (
		left   *Record
		right  *Record
		report *DiffReport
	)

	JustBeforeEach(func() {
		report = Reconcile(left, right)
	})

	When("reconciling a record against an identical copy", func() {
		BeforeEach(func() {
			left = &Record{
				Merchant:        strPtr("MIGROS"),
				Total:           floatPtr(149.90),
				Currency:        strPtr("TRY"),
				TransactionDate: strPtr("2024-12-31"),
				Items: []LineItem{
					testItem("SU 0.5L", 2, 9.90),
					testItem("EKMEK", 1, 12.50),
				},
				Source: "gemini",
			}
			right = &Record{
				Merchant:        strPtr("MIGROS"),
				Total:           floatPtr(149.90),
				Currency:        strPtr("TRY"),
				TransactionDate: strPtr("2024-12-31"),
				Items: []LineItem{
					testItem("SU 0.5L", 2, 9.90),
					testItem("EKMEK", 1, 12.50),
				},
				Source: "openai",
			}
		})

		It("should match every field", func() {
			Expect(report.Fields).To(HaveLen(4))
			for _, f := range report.Fields {
				Expect(f.Match).To(BeTrue(), "field %s", f.Field)
			}
		})

		It("should match every item", func() {
			Expect(report.MatchedCount).To(Equal(2))
			Expect(report.MissingOnLeftCount).To(Equal(0))
			Expect(report.MissingOnRightCount).To(Equal(0))
		})

		It("should summarize agreement deterministically", func() {
			Expect(report.Summary).To(Equal(
				"Top-level fields match. | Items: matched=2, missing_on_left=0, missing_on_right=0",
			))
		})

		It("should not mutate the input records", func() {
			Expect(left.Items).To(HaveLen(2))
			Expect(right.Items).To(HaveLen(2))
			Expect(left.Source).To(Equal("gemini"))
			Expect(right.Source).To(Equal("openai"))
		})
	})

	When("fields disagree", func() {
		BeforeEach(func() {
			left = &Record{
				Merchant: strPtr("MIGROS"),
				Total:    floatPtr(149.90),
				Currency: strPtr("TRY"),
				Source:   "gemini",
			}
			right = &Record{
				Merchant: strPtr("MIGROS"),
				Total:    floatPtr(150.00),
				Currency: strPtr("USD"),
				Source:   "openai",
			}
		})

		It("should emit the four fields in fixed order", func() {
			names := []string{}
			for _, f := range report.Fields {
				names = append(names, f.Field)
			}
			Expect(names).To(Equal([]string{"merchant", "total", "currency", "transaction_date"}))
		})

		It("should flag only the disagreeing fields", func() {
			Expect(report.Fields[0].Match).To(BeTrue())
			Expect(report.Fields[1].Match).To(BeFalse())
			Expect(report.Fields[2].Match).To(BeFalse())
			Expect(report.Fields[3].Match).To(BeTrue(), "two absent dates are equal")
		})

		It("should list the mismatched field names in the summary", func() {
			Expect(report.Summary).To(Equal(
				"Field mismatches: total, currency | Items: matched=0, missing_on_left=0, missing_on_right=0",
			))
		})
	})

	When("comparing amounts", func() {
		BeforeEach(func() {
			left = &Record{Total: floatPtr(10.0), Source: "gemini"}
			right = &Record{Total: floatPtr(10.001), Source: "openai"}
		})

		It("should apply exact equality with no tolerance", func() {
			Expect(report.Fields[1].Match).To(BeFalse())
		})
	})

	When("item sets are disjoint", func() {
		BeforeEach(func() {
			left = &Record{
				Items: []LineItem{
					testItem("A", 1, 1.00),
					testItem("B", 1, 2.00),
					testItem("C", 1, 3.00),
				},
				Source: "gemini",
			}
			right = &Record{
				Items: []LineItem{
					testItem("X", 1, 4.00),
					testItem("Y", 1, 5.00),
				},
				Source: "openai",
			}
		})

		It("should count every left item as missing on the right", func() {
			Expect(report.MissingOnRightCount).To(Equal(3))
		})

		It("should count every right item as missing on the left", func() {
			Expect(report.MissingOnLeftCount).To(Equal(2))
		})

		It("should match nothing", func() {
			Expect(report.MatchedCount).To(Equal(0))
		})
	})

	When("the inputs are swapped", func() {
		var swapped *DiffReport

		BeforeEach(func() {
			left = &Record{
				Items: []LineItem{
					testItem("A", 1, 1.00),
					testItem("SHARED", 1, 2.00),
				},
				Source: "gemini",
			}
			right = &Record{
				Items: []LineItem{
					testItem("SHARED", 1, 2.00),
					testItem("X", 1, 4.00),
					testItem("Y", 1, 5.00),
				},
				Source: "openai",
			}
		})

		JustBeforeEach(func() {
			swapped = Reconcile(right, left)
		})

		It("should swap the missing counters and keep the matched count", func() {
			Expect(swapped.MatchedCount).To(Equal(report.MatchedCount))
			Expect(swapped.MissingOnLeftCount).To(Equal(report.MissingOnRightCount))
			Expect(swapped.MissingOnRightCount).To(Equal(report.MissingOnLeftCount))
		})
	})

	When("one side has duplicate identical items", func() {
		BeforeEach(func() {
			left = &Record{
				Items: []LineItem{
					testItem("COFFEE", 1, 4.50),
					testItem("COFFEE", 1, 4.50),
					testItem("COFFEE", 1, 4.50),
				},
				Source: "gemini",
			}
			right = &Record{
				Items: []LineItem{
					testItem("COFFEE", 1, 4.50),
				},
				Source: "openai",
			}
		})

		It("should match exactly one pair", func() {
			Expect(report.MatchedCount).To(Equal(1))
		})

		It("should report the remainder as missing, never cross-matched", func() {
			Expect(report.MissingOnRightCount).To(Equal(2))
			Expect(report.MissingOnLeftCount).To(Equal(0))
			Expect(report.Items).To(HaveLen(3))
		})
	})

	When("item names differ only in case and whitespace", func() {
		BeforeEach(func() {
			left = &Record{
				Items:  []LineItem{testItem("Caffe  Latte ", 1, 4.50)},
				Source: "gemini",
			}
			right = &Record{
				Items:  []LineItem{testItem("caffe latte", 1, 4.50)},
				Source: "openai",
			}
		})

		It("should match under the normalized key", func() {
			Expect(report.MatchedCount).To(Equal(1))
			Expect(report.Items[0].Status).To(Equal(StatusMatched))
		})
	})

	When("prices differ beyond two decimal places only", func() {
		BeforeEach(func() {
			left = &Record{
				Items:  []LineItem{testItem("TEA", 1, 2.004)},
				Source: "gemini",
			}
			right = &Record{
				Items:  []LineItem{testItem("TEA", 1, 2.001)},
				Source: "openai",
			}
		})

		It("should match under the rounded key", func() {
			Expect(report.MatchedCount).To(Equal(1))
		})
	})

	When("items carry absent fields", func() {
		BeforeEach(func() {
			left = &Record{
				Items:  []LineItem{{Name: strPtr("GUM")}},
				Source: "gemini",
			}
			right = &Record{
				Items:  []LineItem{{Name: strPtr("GUM")}},
				Source: "openai",
			}
		})

		It("should treat two absent values as equal", func() {
			Expect(report.MatchedCount).To(Equal(1))
			Expect(report.Items[0].Key).To(Equal("(gum, null, null)"))
		})
	})

	When("one name is whitespace-only and the other is absent", func() {
		BeforeEach(func() {
			left = &Record{
				Items:  []LineItem{{Name: strPtr("   "), Price: floatPtr(1.00)}},
				Source: "gemini",
			}
			right = &Record{
				Items:  []LineItem{{Price: floatPtr(1.00)}},
				Source: "openai",
			}
		})

		It("should keep the empty name distinct from the absent one", func() {
			Expect(report.MatchedCount).To(Equal(0))
			Expect(report.MissingOnLeftCount).To(Equal(1))
			Expect(report.MissingOnRightCount).To(Equal(1))
		})

		It("should render the absent name as null and the empty name as empty", func() {
			Expect(report.Items[0].Key).To(Equal("(null, null, 1)"))
			Expect(report.Items[1].Key).To(Equal("(, null, 1)"))
		})
	})

	When("item names differ only under full case folding", func() {
		BeforeEach(func() {
			left = &Record{
				Items:  []LineItem{testItem("Straße", 1, 4.50)},
				Source: "gemini",
			}
			right = &Record{
				Items:  []LineItem{testItem("STRASSE", 1, 4.50)},
				Source: "openai",
			}
		})

		It("should match under the folded key", func() {
			Expect(report.MatchedCount).To(Equal(1))
		})
	})

	When("both sides have several distinct keys", func() {
		BeforeEach(func() {
			left = &Record{
				Items: []LineItem{
					testItem("ZEBRA", 1, 9.00),
					testItem("APPLE", 1, 1.00),
				},
				Source: "gemini",
			}
			right = &Record{
				Items: []LineItem{
					testItem("MANGO", 1, 3.00),
				},
				Source: "openai",
			}
		})

		It("should order item diffs by ascending key", func() {
			keys := []string{}
			for _, d := range report.Items {
				keys = append(keys, d.Key)
			}
			Expect(keys).To(Equal([]string{
				"(apple, 1, 1)",
				"(mango, 1, 3)",
				"(zebra, 1, 9)",
			}))
		})
	})
})
