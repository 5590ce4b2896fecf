package barrel

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.etcd.io/bbolt"

	"github.com/Etienne8977/Barrel-Volume-Analyst/internal/table"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("SaveScan", func() {
		var (
			scan *Scan
			err  error
		)

		BeforeEach(func() {
			scan = &Scan{
				ID:          "test-id",
				Filename:    "gauge-table.jpg",
				ContentType: "image/jpeg",
				RowCount:    12,
				CreatedAt:   time.Now(),
				UpdatedAt:   time.Now(),
			}
		})

		JustBeforeEach(func() {
			err = db.SaveScan(scan)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should make the scan retrievable", func() {
				saved, getErr := db.GetScan("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.Filename).To(Equal("gauge-table.jpg"))
				Expect(saved.RowCount).To(Equal(12))
			})
		})
	})

	Describe("GetScan", func() {
		When("the scan does not exist", func() {
			It("returns the error", func() {
				_, err := db.GetScan("nonexistent")
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("scan not found"))
			})
		})
	})

	Describe("ListScans", func() {
		When("scans exist", func() {
			BeforeEach(func() {
				Expect(db.SaveScan(&Scan{ID: "id1"})).To(Succeed())
				Expect(db.SaveScan(&Scan{ID: "id2"})).To(Succeed())
			})

			It("should return all scans", func() {
				scans, err := db.ListScans()
				Expect(err).NotTo(HaveOccurred())
				Expect(scans).To(HaveLen(2))
			})
		})

		When("no scans exist", func() {
			It("should return an empty slice", func() {
				scans, err := db.ListScans()
				Expect(err).NotTo(HaveOccurred())
				Expect(scans).To(BeEmpty())
			})
		})
	})

	Describe("DeleteScan", func() {
		BeforeEach(func() {
			Expect(db.SaveScan(&Scan{ID: "test-id"})).To(Succeed())
		})

		It("should remove the scan", func() {
			Expect(db.DeleteScan("test-id")).To(Succeed())
			_, err := db.GetScan("test-id")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("dataset repository", func() {
		var dataset table.Dataset

		BeforeEach(func() {
			dataset = table.Dataset{
				Columns: []string{"wet_height", "volume_l"},
				Rows: []table.Row{{
					"wet_height": table.Cell{Value: table.NumberValue(25), Confidence: table.ConfidenceHigh},
					"volume_l":   table.Cell{Value: table.NumberValue(220), Confidence: table.ConfidenceMedium},
				}},
			}
		})

		Describe("Load", func() {
			When("nothing has been saved", func() {
				It("should return an empty dataset without error", func() {
					ds, err := db.Load()
					Expect(err).NotTo(HaveOccurred())
					Expect(ds.IsEmpty()).To(BeTrue())
				})
			})

			When("a dataset has been saved", func() {
				BeforeEach(func() {
					Expect(db.Save(dataset)).To(Succeed())
				})

				It("should round-trip the dataset", func() {
					ds, err := db.Load()
					Expect(err).NotTo(HaveOccurred())
					Expect(ds).To(Equal(dataset))
				})

				It("should survive reopening the database", func() {
					Expect(db.Close()).To(Succeed())
					var err error
					db, err = NewBoltDB(dbPath)
					Expect(err).NotTo(HaveOccurred())

					ds, err := db.Load()
					Expect(err).NotTo(HaveOccurred())
					Expect(ds).To(Equal(dataset))
				})
			})

			When("the stored blob is corrupt", func() {
				BeforeEach(func() {
					// Write garbage directly under the dataset key
					err := db.db.Update(func(tx *bbolt.Tx) error {
						return tx.Bucket([]byte(datasetBucketName)).Put([]byte(datasetKey), []byte("{not json"))
					})
					Expect(err).NotTo(HaveOccurred())
				})

				It("should start empty instead of failing", func() {
					ds, err := db.Load()
					Expect(err).NotTo(HaveOccurred())
					Expect(ds.IsEmpty()).To(BeTrue())
				})
			})
		})

		Describe("Clear", func() {
			BeforeEach(func() {
				Expect(db.Save(dataset)).To(Succeed())
			})

			It("should remove the dataset", func() {
				Expect(db.Clear()).To(Succeed())
				ds, err := db.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(ds.IsEmpty()).To(BeTrue())
			})
		})
	})

	Describe("NewBoltDB", func() {
		When("the path is not writable", func() {
			It("returns the error", func() {
				_, err := NewBoltDB(filepath.Join(tmpDir, "missing", "nested", "test.db"))
				Expect(err).To(HaveOccurred())
				Expect(errors.Unwrap(err)).NotTo(BeNil())
			})
		})
	})
})

var _ = Describe("BoltDB file", func() {
	It("should create the database file on disk", func() {
		tmpDir := GinkgoT().TempDir()
		dbPath := filepath.Join(tmpDir, "test.db")
		db, err := NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer db.Close()

		_, err = os.Stat(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})
})
