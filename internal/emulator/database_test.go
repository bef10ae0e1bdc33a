package emulator

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/receipt-client/internal/receipt"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	newReceipt := func(filename string) *Receipt {
		return &Receipt{
			Record:      receipt.Record{Filename: filename, Status: StatusPending},
			StoredAs:    "key_" + filename,
			ContentType: "application/pdf",
			CreatedAt:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			UpdatedAt:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		}
	}

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

	Describe("CreateReceipt", func() {
		It("should assign increasing ids starting at 1", func() {
			first := newReceipt("a.pdf")
			second := newReceipt("b.pdf")
			Expect(db.CreateReceipt(first)).To(Succeed())
			Expect(db.CreateReceipt(second)).To(Succeed())
			Expect(first.ID).To(Equal(int64(1)))
			Expect(second.ID).To(Equal(int64(2)))
		})

		It("should keep counting after a reopen", func() {
			Expect(db.CreateReceipt(newReceipt("a.pdf"))).To(Succeed())
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())

			next := newReceipt("b.pdf")
			Expect(db.CreateReceipt(next)).To(Succeed())
			Expect(next.ID).To(Equal(int64(2)))
		})
	})

	Describe("GetReceipt", func() {
		var (
			id  int64
			got *Receipt
			err error
		)

		JustBeforeEach(func() {
			got, err = db.GetReceipt(id)
		})

		When("receipt exists", func() {
			BeforeEach(func() {
				rec := newReceipt("a.pdf")
				Expect(db.CreateReceipt(rec)).To(Succeed())
				id = rec.ID
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the stored fields", func() {
				Expect(got.ID).To(Equal(id))
				Expect(got.Filename).To(Equal("a.pdf"))
				Expect(got.Status).To(Equal(StatusPending))
				Expect(got.StoredAs).To(Equal("key_a.pdf"))
				Expect(got.ContentType).To(Equal("application/pdf"))
			})

			It("should leave the optional fields empty", func() {
				Expect(got.Merchant).To(BeNil())
				Expect(got.Total).To(BeNil())
				Expect(got.GroupID).To(BeNil())
			})
		})

		When("receipt does not exist", func() {
			BeforeEach(func() {
				id = 99
			})

			It("returns ErrNotFound", func() {
				Expect(err).To(MatchError(ErrNotFound))
				Expect(got).To(BeNil())
			})
		})
	})

	Describe("SaveReceipt", func() {
		It("should overwrite an existing receipt", func() {
			rec := newReceipt("a.pdf")
			Expect(db.CreateReceipt(rec)).To(Succeed())

			rec.Status = StatusProcessed
			rec.Total = receipt.NewTotal("9.99")
			Expect(db.SaveReceipt(rec)).To(Succeed())

			got, err := db.GetReceipt(rec.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(StatusProcessed))
			Expect(got.Total.String()).To(Equal("9.99"))
		})

		It("should refuse an unknown id", func() {
			rec := newReceipt("a.pdf")
			rec.ID = 7
			Expect(db.SaveReceipt(rec)).To(MatchError(ErrNotFound))
		})
	})

	Describe("ListReceipts", func() {
		When("receipts exist", func() {
			BeforeEach(func() {
				for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
					Expect(db.CreateReceipt(newReceipt(name))).To(Succeed())
				}
			})

			It("should return them in id order", func() {
				receipts, err := db.ListReceipts()
				Expect(err).NotTo(HaveOccurred())
				Expect(receipts).To(HaveLen(3))
				Expect(receipts[0].Filename).To(Equal("a.pdf"))
				Expect(receipts[2].Filename).To(Equal("c.pdf"))
			})
		})

		When("no receipts exist", func() {
			It("should return an empty list", func() {
				receipts, err := db.ListReceipts()
				Expect(err).NotTo(HaveOccurred())
				Expect(receipts).To(BeEmpty())
			})
		})
	})
})
