package expense

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltHistory", func() {
	var (
		dbPath  string
		history *BoltHistory
	)

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "history.db")
		var err error
		history, err = NewBoltHistory(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if history != nil {
			history.Close()
		}
	})

	record := func(id string, at time.Time) *ScanRecord {
		return &ScanRecord{
			ID:          id,
			Filename:    id + ".png",
			ContentType: "image/png",
			Result: &Result{
				RawText: "합계 6,500",
				Lines:   []LineResult{},
				Debug:   Debug{Engine: "primary", EngineName: "clova", EngineErrors: []string{}, ScanID: id},
			},
			CreatedAt: at,
		}
	}

	Describe("SaveScan and GetScan", func() {
		It("should round trip a record", func() {
			at := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
			Expect(history.SaveScan(record("a", at))).To(Succeed())

			got, err := history.GetScan("a")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Filename).To(Equal("a.png"))
			Expect(got.CreatedAt.Equal(at)).To(BeTrue())
			Expect(got.Result.Debug.EngineName).To(Equal("clova"))
		})

		It("should report a missing record as not found", func() {
			_, err := history.GetScan("missing")
			Expect(err).To(MatchError(ErrScanNotFound))
		})
	})

	Describe("ListScans", func() {
		BeforeEach(func() {
			base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
			for i, id := range []string{"01-first", "02-second", "03-third"} {
				Expect(history.SaveScan(record(id, base.Add(time.Duration(i)*time.Minute)))).To(Succeed())
			}
		})

		It("should return the newest first", func() {
			records, err := history.ListScans(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(3))
			Expect(records[0].ID).To(Equal("03-third"))
			Expect(records[2].ID).To(Equal("01-first"))
		})

		It("should honor the limit", func() {
			records, err := history.ListScans(2)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			Expect(records[1].ID).To(Equal("02-second"))
		})
	})

	It("should return an empty list for a new database", func() {
		records, err := history.ListScans(10)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).NotTo(BeNil())
		Expect(records).To(BeEmpty())
	})

	It("should keep records across reopen", func() {
		Expect(history.SaveScan(record("kept", time.Now()))).To(Succeed())
		Expect(history.Close()).To(Succeed())

		var err error
		history, err = NewBoltHistory(dbPath)
		Expect(err).NotTo(HaveOccurred())
		_, err = history.GetScan("kept")
		Expect(err).NotTo(HaveOccurred())
	})
})
