package table

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// volumeRow builds a two-column row keyed by wet height.
func volumeRow(height, volume Value) Row {
	return Row{
		"wet_height": Cell{Value: height, Confidence: ConfidenceHigh},
		"volume_l":   Cell{Value: volume, Confidence: ConfidenceHigh},
	}
}

func volumeDataset(rows ...Row) Dataset {
	return Dataset{Columns: []string{"wet_height", "volume_l"}, Rows: rows}
}

func indexOf(haystack []string, needle string) int {
	for i, s := range haystack {
		if s == needle {
			return i
		}
	}
	return -1
}

var _ = Describe("Merge", func() {
	var (
		existing Dataset
		incoming Dataset
		merged   Dataset
	)

	JustBeforeEach(func() {
		merged = Merge(existing, incoming)
	})

	When("the incoming batch is empty", func() {
		BeforeEach(func() {
			existing = volumeDataset(volumeRow(NumberValue(10), NumberValue(100)))
			incoming = Dataset{}
		})

		It("should return the existing dataset unchanged", func() {
			Expect(merged).To(Equal(existing))
		})
	})

	When("the existing dataset is empty", func() {
		BeforeEach(func() {
			existing = Dataset{}
			incoming = volumeDataset(volumeRow(NumberValue(10), NumberValue(100)))
		})

		It("should return the incoming batch unchanged", func() {
			Expect(merged).To(Equal(incoming))
		})
	})

	When("the existing dataset has rows but no columns", func() {
		BeforeEach(func() {
			existing = Dataset{Rows: []Row{{}}}
			incoming = volumeDataset(volumeRow(NumberValue(10), NumberValue(100)))
		})

		It("should fall back to the incoming batch", func() {
			Expect(merged).To(Equal(incoming))
		})
	})

	When("merging a dataset into itself", func() {
		BeforeEach(func() {
			existing = volumeDataset(
				volumeRow(NumberValue(10), NumberValue(100)),
				volumeRow(NumberValue(20), NumberValue(200)),
			)
			incoming = existing.Clone()
		})

		It("should be idempotent", func() {
			Expect(merged).To(Equal(existing))
		})
	})

	When("the batch introduces new heights", func() {
		BeforeEach(func() {
			existing = volumeDataset(
				volumeRow(NumberValue(10), NumberValue(100)),
				volumeRow(NumberValue(30), NumberValue(300)),
			)
			incoming = volumeDataset(volumeRow(NumberValue(20), NumberValue(200)))
		})

		It("should contain the union of keys", func() {
			Expect(merged.Rows).To(HaveLen(3))
		})

		It("should re-sort ascending by height", func() {
			heights := make([]float64, 0, len(merged.Rows))
			for _, row := range merged.Rows {
				h, ok := row["wet_height"].Value.Float()
				Expect(ok).To(BeTrue())
				heights = append(heights, h)
			}
			Expect(heights).To(Equal([]float64{10, 20, 30}))
		})
	})

	When("the batch revisits an existing height", func() {
		BeforeEach(func() {
			existing = volumeDataset(volumeRow(NumberValue(10), NumberValue(100)))
			incoming = volumeDataset(volumeRow(NumberValue(10), NumberValue(150)))
		})

		It("should keep the key unique", func() {
			Expect(merged.Rows).To(HaveLen(1))
		})

		It("should let the incoming value win", func() {
			f, _ := merged.Rows[0]["volume_l"].Value.Float()
			Expect(f).To(Equal(150.0))
		})
	})

	When("an incoming cell is null", func() {
		BeforeEach(func() {
			existing = volumeDataset(volumeRow(NumberValue(10), NumberValue(100)))
			incoming = volumeDataset(volumeRow(NumberValue(10), Value{}))
		})

		It("should not erase the existing value", func() {
			f, ok := merged.Rows[0]["volume_l"].Value.Float()
			Expect(ok).To(BeTrue())
			Expect(f).To(Equal(100.0))
		})
	})

	When("an incoming row omits a column", func() {
		BeforeEach(func() {
			existing = volumeDataset(volumeRow(NumberValue(10), NumberValue(100)))
			incoming = Dataset{
				Columns: []string{"wet_height"},
				Rows: []Row{{
					"wet_height": Cell{Value: NumberValue(10), Confidence: ConfidenceHigh},
				}},
			}
		})

		It("should leave the omitted column untouched", func() {
			f, ok := merged.Rows[0]["volume_l"].Value.Float()
			Expect(ok).To(BeTrue())
			Expect(f).To(Equal(100.0))
		})
	})

	When("the batch carries a new column", func() {
		BeforeEach(func() {
			existing = volumeDataset(volumeRow(NumberValue(10), NumberValue(100)))
			incoming = Dataset{
				Columns: []string{"wet_height", "dry_height"},
				Rows: []Row{{
					"wet_height": Cell{Value: NumberValue(10), Confidence: ConfidenceHigh},
					"dry_height": Cell{Value: NumberValue(90), Confidence: ConfidenceMedium},
				}},
			}
		})

		It("should append the column after the existing ones", func() {
			Expect(merged.Columns).To(Equal([]string{"wet_height", "volume_l", "dry_height"}))
		})

		It("should carry the new cell onto the merged row", func() {
			f, _ := merged.Rows[0]["dry_height"].Value.Float()
			Expect(f).To(Equal(90.0))
		})
	})

	When("rows have null primary keys", func() {
		BeforeEach(func() {
			existing = volumeDataset(
				volumeRow(Value{}, NumberValue(999)),
				volumeRow(NumberValue(10), NumberValue(100)),
			)
			incoming = volumeDataset(
				volumeRow(Value{}, NumberValue(888)),
				volumeRow(NumberValue(20), NumberValue(200)),
			)
		})

		It("should drop them from both sides", func() {
			Expect(merged.Rows).To(HaveLen(2))
			for _, row := range merged.Rows {
				Expect(row["wet_height"].Value.IsNull()).To(BeFalse())
			}
		})
	})

	When("a text key matches a numeric key", func() {
		BeforeEach(func() {
			existing = volumeDataset(volumeRow(NumberValue(25), NumberValue(220)))
			incoming = volumeDataset(volumeRow(TextValue("25"), NumberValue(225)))
		})

		It("should merge onto the same row", func() {
			Expect(merged.Rows).To(HaveLen(1))
			f, _ := merged.Rows[0]["volume_l"].Value.Float()
			Expect(f).To(Equal(225.0))
		})
	})

	When("keys fail numeric coercion", func() {
		BeforeEach(func() {
			existing = volumeDataset(
				volumeRow(TextValue("rim"), NumberValue(500)),
				volumeRow(TextValue("bung"), NumberValue(400)),
				volumeRow(NumberValue(10), NumberValue(100)),
			)
			incoming = volumeDataset(volumeRow(NumberValue(5), NumberValue(50)))
		})

		It("should keep every row", func() {
			Expect(merged.Rows).To(HaveLen(4))
		})

		It("should keep non-numeric keys in their relative insertion order", func() {
			keys := make([]string, 0, len(merged.Rows))
			for _, row := range merged.Rows {
				keys = append(keys, row["wet_height"].Value.String())
			}
			rim := indexOf(keys, "rim")
			bung := indexOf(keys, "bung")
			Expect(rim).To(BeNumerically(">=", 0))
			Expect(bung).To(BeNumerically(">", rim))
		})

		It("should order numeric keys ascending among themselves", func() {
			numeric := make([]float64, 0, len(merged.Rows))
			for _, row := range merged.Rows {
				if f, ok := row["wet_height"].Value.Float(); ok {
					numeric = append(numeric, f)
				}
			}
			Expect(numeric).To(Equal([]float64{5, 10}))
		})
	})

	When("merging", func() {
		BeforeEach(func() {
			existing = volumeDataset(volumeRow(NumberValue(10), NumberValue(100)))
			incoming = volumeDataset(volumeRow(NumberValue(10), NumberValue(150)))
		})

		It("should not mutate the existing dataset", func() {
			f, _ := existing.Rows[0]["volume_l"].Value.Float()
			Expect(f).To(Equal(100.0))
		})
	})
})
