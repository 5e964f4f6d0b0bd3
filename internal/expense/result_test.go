package expense

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/spendmate-ocr/internal/parsing"
	"github.com/zombor/spendmate-ocr/internal/scanning"
)

var _ = Describe("Assemble", func() {
	var (
		doc    *parsing.Document
		fields parsing.Fields
		rec    *scanning.Recognition
		result *Result
		redact func(string) string
	)

	BeforeEach(func() {
		doc = &parsing.Document{
			RawText: "카페 모카\n합계 6,500\n110-123-456789",
			Lines: []scanning.Line{
				{Text: "카페 모카", BBox: scanning.RectBBox(0, 0, 100, 20), Confidence: 0.9, Engine: "clova"},
				{Text: "합계 6,500", BBox: scanning.RectBBox(0, 30, 100, 50), Confidence: 0.8, Engine: "clova"},
				{Text: "110-123-456789", Confidence: 0.7, Engine: "clova"},
			},
			EngineUsed: scanning.EngineUsedFallback,
			Source:     parsing.SourceReceipt,
			CreatedAt:  time.Now(),
		}
		fields = parsing.Fields{
			Source:   parsing.SourceReceipt,
			Merchant: &parsing.Match[string]{Value: "카페 모카", Line: 0},
			Amount:   &parsing.Match[decimal.Decimal]{Value: decimal.RequireFromString("6500"), Line: 1},
		}
		rec = &scanning.Recognition{
			EngineUsed: scanning.EngineUsedFallback,
			EngineName: "tesseract",
			Errors:     []string{"clova: timeout"},
		}
		redact = func(s string) string { return strings.ReplaceAll(s, "456789", "***789") }
	})

	JustBeforeEach(func() {
		result = Assemble("scan-1", doc, fields, rec, redact)
	})

	It("should keep every line in order", func() {
		Expect(result.Lines).To(HaveLen(3))
		Expect(result.Lines[0].Text).To(Equal("카페 모카"))
		Expect(result.Lines[1].Confidence).To(Equal(0.8))
	})

	It("should redact line text and raw text", func() {
		Expect(result.Lines[2].Text).To(Equal("110-123-***789"))
		Expect(result.RawText).To(HaveSuffix("110-123-***789"))
	})

	When("the merchant holds an account number", func() {
		BeforeEach(func() {
			fields.Merchant = &parsing.Match[string]{Value: "입금 110-123-456789", Line: 2}
		})

		It("should redact the merchant", func() {
			Expect(*result.Parsed.Merchant).To(Equal("입금 110-123-***789"))
		})
	})

	It("should encode a missing box as an empty list", func() {
		data, err := json.Marshal(result.Lines[2])
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"bbox":[]`))
	})

	It("should record the matched lines", func() {
		Expect(result.Parsed.MatchedLines).To(Equal(map[string]int{"merchant": 0, "amount": 1}))
	})

	It("should carry the engine details", func() {
		Expect(result.Debug).To(Equal(Debug{
			Engine:       scanning.EngineUsedFallback,
			EngineName:   "tesseract",
			EngineErrors: []string{"clova: timeout"},
			ScanID:       "scan-1",
		}))
	})

	It("should encode missing fields as null and amounts as numbers", func() {
		data, err := json.Marshal(result)
		Expect(err).NotTo(HaveOccurred())

		var body map[string]any
		Expect(json.Unmarshal(data, &body)).To(Succeed())
		parsed := body["parsed"].(map[string]any)
		Expect(parsed["source"]).To(Equal("receipt"))
		Expect(parsed["amount"]).To(BeNumerically("==", 6500))
		Expect(parsed).To(HaveKeyWithValue("account", BeNil()))
		Expect(parsed).To(HaveKeyWithValue("timestamp", BeNil()))
		Expect(parsed).To(HaveKeyWithValue("balance", BeNil()))
	})

	When("the document is empty", func() {
		BeforeEach(func() {
			doc = &parsing.Document{Lines: []scanning.Line{}}
			fields = parsing.Fields{Source: parsing.SourceUnknown}
			rec = &scanning.Recognition{EngineUsed: scanning.EngineUsedPrimary, EngineName: "clova"}
		})

		It("should encode empty lists rather than null", func() {
			data, err := json.Marshal(result)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`"lines":[]`))
			Expect(string(data)).To(ContainSubstring(`"engine_errors":[]`))
			Expect(string(data)).To(ContainSubstring(`"matched_lines":{}`))
		})
	})
})
