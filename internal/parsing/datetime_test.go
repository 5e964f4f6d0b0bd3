package parsing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Timestamps", func() {
	var parser *Parser

	BeforeEach(func() {
		parser = newTestParser()
	})

	DescribeTable("parses supported layouts",
		func(text, expected string) {
			ts, _, ok := parser.parseTimestamp(text)
			Expect(ok).To(BeTrue())
			Expect(ts).To(Equal(expected))
		},
		Entry("month/day with seconds", "11/02 12:33:11", "2025-11-02T12:33:11"),
		Entry("month-day without seconds", "03-14 08:05", "2025-03-14T08:05:00"),
		Entry("ISO date", "2024-12-24 18:05:33", "2024-12-24T18:05:33"),
		Entry("ISO date with T", "2024-12-24T18:05", "2024-12-24T18:05:00"),
		Entry("dotted date", "2024.05.01 09:15:00", "2024-05-01T09:15:00"),
		Entry("dotted date with weekday", "2024. 5. 1.(수) 09:15", "2024-05-01T09:15:00"),
		Entry("slashed date", "2024/05/01 21:00:59", "2024-05-01T21:00:59"),
		Entry("compact", "20240501091500", "2024-05-01T09:15:00"),
		Entry("korean with year", "2024년 5월 1일 09:15", "2024-05-01T09:15:00"),
		Entry("korean without year", "5월 1일 09:15:30", "2025-05-01T09:15:30"),
		Entry("dotted month and day", "05.01 09:15", "2025-05-01T09:15:00"),
		Entry("surrounded by text", "승인 03/14 12:30 스타벅스", "2025-03-14T12:30:00"),
	)

	DescribeTable("rejects invalid values",
		func(text string) {
			_, _, ok := parser.parseTimestamp(text)
			Expect(ok).To(BeFalse())
		},
		Entry("no time", "2024-05-01"),
		Entry("impossible day", "02/30 10:00:00"),
		Entry("impossible hour", "2024-05-01 25:00:00"),
		Entry("impossible minute", "05/01 10:61"),
		Entry("plain text", "잔액 1,871,195원"),
	)

	It("should not read the tail of a full date as month and day", func() {
		ts, _, ok := parser.parseTimestamp("2024-13-01 10:00:00")
		Expect(ok).To(BeFalse(), "got %s", ts)
	})

	Describe("findTimestamp", func() {
		It("should report the line of the match", func() {
			m := parser.findTimestamp([]string{"출금", "11/02 12:33:11"})
			Expect(m).To(Equal(&Match[string]{Value: "2025-11-02T12:33:11", Line: 1}))
		})

		It("should join a date and a time split across lines", func() {
			m := parser.findTimestamp([]string{"거래일 2024.05.01", "09:15:00 승인"})
			Expect(m).To(Equal(&Match[string]{Value: "2024-05-01T09:15:00", Line: 0}))
		})

		It("should return nil without a timestamp", func() {
			Expect(parser.findTimestamp([]string{"출금 11,000원"})).To(BeNil())
		})
	})

	When("the format set is restricted", func() {
		It("should only accept the named formats", func() {
			opts := DefaultOptions()
			opts.DateFormats = []string{"ymdhms"}
			p, err := NewParser(opts)
			Expect(err).NotTo(HaveOccurred())
			_, _, ok := p.parseTimestamp("11/02 12:33:11")
			Expect(ok).To(BeFalse())
		})

		It("should reject unknown format names", func() {
			opts := DefaultOptions()
			opts.DateFormats = []string{"julian"}
			_, err := NewParser(opts)
			Expect(err).To(MatchError(ContainSubstring(`unknown date format "julian"`)))
		})
	})
})
