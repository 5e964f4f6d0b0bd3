package parsing

import (
	"github.com/shopspring/decimal"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseAmount", func() {
	DescribeTable("parses printed amounts",
		func(token, expected string) {
			value, ok := ParseAmount(token)
			Expect(ok).To(BeTrue())
			Expect(value.Equal(decimal.RequireFromString(expected))).To(BeTrue(), "got %s", value)
		},
		Entry("grouped won", "11,000원", "11000"),
		Entry("won sign prefix", "₩6,500", "6500"),
		Entry("backslash prefix", `\6,500`, "6500"),
		Entry("KRW prefix", "KRW 12,000", "12000"),
		Entry("WON suffix", "3,000 WON", "3000"),
		Entry("plain digits", "4500", "4500"),
		Entry("dotted thousands", "1.871.195", "1871195"),
		Entry("single dotted thousands", "6.500", "6500"),
		Entry("decimal point", "12.50", "12.5"),
		Entry("comma thousands with decimal point", "1,234.56", "1234.56"),
		Entry("dot thousands with decimal comma", "1.234,56", "1234.56"),
		Entry("trailing separator", "6,500.", "6500"),
	)

	DescribeTable("rejects non-amounts",
		func(token string) {
			_, ok := ParseAmount(token)
			Expect(ok).To(BeFalse())
		},
		Entry("empty", ""),
		Entry("only a unit", "원"),
		Entry("letters", "A123"),
		Entry("dashes", "12-34"),
	)
})

var _ = Describe("findMoney", func() {
	values := func(text string) []string {
		var out []string
		for _, t := range findMoney(text) {
			out = append(out, t.value.String())
		}
		return out
	}

	It("should find grouped and marked amounts", func() {
		tokens := findMoney("출금 11,000원")
		Expect(tokens).To(HaveLen(1))
		Expect(tokens[0].value.String()).To(Equal("11000"))
		Expect(tokens[0].marked).To(BeTrue())
		Expect(tokens[0].grouped).To(BeTrue())
	})

	It("should skip dates and times", func() {
		Expect(values("11/02 12:33:11")).To(BeEmpty())
		Expect(values("2024-12-24 18:05:33 합계 9,000")).To(Equal([]string{"9000"}))
	})

	It("should skip compact dates only when they are whole valid dates", func() {
		Expect(values("거래일 20250314 합계 9,000")).To(Equal([]string{"9000"}))
		Expect(values("승인 20250314123000")).To(BeEmpty())
		Expect(values("출금 12345678원")).To(Equal([]string{"12345678"}))
		Expect(values("잔액 123456789원")).To(Equal([]string{"123456789"}))
		Expect(values("20251332원")).To(Equal([]string{"20251332"}))
	})

	It("should skip account, business and phone numbers", func() {
		Expect(values("1002-553-067** 사업자 123-45-67890 02-123-4567")).To(BeEmpty())
	})

	It("should skip numbers glued to Latin letters", func() {
		Expect(values("GS25 A4 3000")).To(Equal([]string{"3000"}))
	})

	It("should accept KRW and WON markers", func() {
		tokens := findMoney("KRW12,000 / 3,000WON")
		Expect(tokens).To(HaveLen(2))
		Expect(tokens[0].marked).To(BeTrue())
		Expect(tokens[1].marked).To(BeTrue())
	})

	It("should skip zero", func() {
		Expect(values("할인 0원")).To(BeEmpty())
	})
})

var _ = Describe("bestMoney", func() {
	bare := moneyToken{value: decimal.NewFromInt(2)}
	grouped := moneyToken{value: decimal.NewFromInt(10000), grouped: true}
	marked := moneyToken{value: decimal.NewFromInt(9000), marked: true}

	It("should prefer the last marked token", func() {
		Expect(bestMoney([]moneyToken{marked, grouped, bare}, true).value).To(Equal(marked.value))
	})

	It("should fall back to a grouped token", func() {
		Expect(bestMoney([]moneyToken{grouped, bare}, true).value).To(Equal(grouped.value))
	})

	It("should accept a bare number only when not strict", func() {
		Expect(bestMoney([]moneyToken{bare}, true)).To(BeNil())
		Expect(bestMoney([]moneyToken{bare}, false).value).To(Equal(bare.value))
	})

	It("should return nil without tokens", func() {
		Expect(bestMoney(nil, false)).To(BeNil())
	})
})
