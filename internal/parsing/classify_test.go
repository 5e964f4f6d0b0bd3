package parsing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Classify", func() {
	var parser *Parser

	BeforeEach(func() {
		parser = newTestParser()
	})

	DescribeTable("classifies documents",
		func(expected Source, texts ...string) {
			Expect(parser.Classify(plain(texts...))).To(Equal(expected))
		},
		Entry("a bank withdrawal notification", SourceBankAlert,
			"비에이블스터디 결제", "11,000원 출금", "11/02 12:33:11", "잔액 1,871,195원", "1002-553-067**"),
		Entry("a card approval message", SourceBankAlert,
			"[Web발신]", "신한카드(1234)승인", "홍길동 12,300원 일시불", "03/14 12:30:45 스타벅스"),
		Entry("an English deposit alert", SourceBankAlert,
			"Deposit USD 500.00", "Balance 1,200.00"),
		Entry("a cafe receipt", SourceReceipt,
			"카페 모카 강남점", "아메리카노 2잔", "총 6,500원"),
		Entry("a full store receipt", SourceReceipt,
			"[매장명] 스타벅스 강남점", "사업자 123-45-67890", "품명 단가 수량 금액", "아메리카노 4,500 1 4,500", "합계 4,500"),
		Entry("a receipt with a card approval line", SourceReceipt,
			"상품명 수량 금액", "라면 1 1,200", "합계 1,200", "카드 승인"),
		Entry("an empty document", SourceUnknown),
		Entry("unrelated text", SourceUnknown, "hello world", "lorem ipsum"),
		Entry("an even split", SourceUnknown, "입금", "합계"),
	)
})
