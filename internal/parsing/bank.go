package parsing

import (
	"strings"

	"github.com/shopspring/decimal"
)

func (p *Parser) extractBankAlert(lines []string) Fields {
	return Fields{
		Merchant:  bankMerchant(lines),
		Amount:    bankAmount(lines),
		Account:   p.bankAccount(lines),
		Timestamp: p.findTimestamp(lines),
		Balance:   bankBalance(lines),
	}
}

// bankMerchant takes the name printed with a transaction keyword: the same
// line, then the next, then the previous
func bankMerchant(lines []string) *Match[string] {
	for i, line := range lines {
		if !containsAny(line, directionKeywords) {
			continue
		}
		for _, j := range neighbors(i, len(lines), 0, 1, -1) {
			if containsAny(lines[j], balanceKeywords) {
				continue
			}
			if name := merchantCandidate(lines[j]); hasLetter(name) {
				return &Match[string]{Value: name, Line: j}
			}
		}
	}
	return nil
}

func isAmountLine(line string) bool {
	return containsAny(line, directionKeywords) || containsAny(line, amountLabels)
}

// amountTokens returns the money on a line that precedes any balance
// keyword, so "출금 11,000원 잔액 1,871,195원" yields only the withdrawal
func amountTokens(line string) []moneyToken {
	tokens := findMoney(line)
	start := keywordStart(line, balanceKeywords)
	if start < 0 {
		return tokens
	}
	var out []moneyToken
	for _, t := range tokens {
		if t.end <= start {
			out = append(out, t)
		}
	}
	return out
}

// bankAmount prefers an unambiguous amount on a labeled line, then on the
// nearest neighbor of one. A bare number on a labeled line is the last resort.
func bankAmount(lines []string) *Match[decimal.Decimal] {
	for i, line := range lines {
		if !isAmountLine(line) {
			continue
		}
		if best := bestMoney(amountTokens(line), true); best != nil {
			return moneyMatch(best, i)
		}
	}

	for i, line := range lines {
		if !isAmountLine(line) {
			continue
		}
		for _, j := range neighbors(i, len(lines), 1, -1, 2, -2) {
			if containsAny(lines[j], balanceKeywords) {
				continue
			}
			if best := bestMoney(findMoney(lines[j]), true); best != nil {
				return moneyMatch(best, j)
			}
		}
	}

	for i, line := range lines {
		if !isAmountLine(line) {
			continue
		}
		if best := bestMoney(amountTokens(line), false); best != nil {
			return moneyMatch(best, i)
		}
	}
	return nil
}

func (p *Parser) bankAccount(lines []string) *Match[string] {
	for i, line := range lines {
		if spans := findAccounts(line); len(spans) > 0 {
			s := spans[0]
			return &Match[string]{Value: p.MaskAccount(line[s[0]:s[1]]), Line: i}
		}
	}
	return nil
}

// bankBalance takes the first amount after a balance keyword, or the first
// amount on the following line when the keyword stands alone
func bankBalance(lines []string) *Match[decimal.Decimal] {
	for i, line := range lines {
		end := keywordEnd(line, balanceKeywords)
		if end < 0 {
			continue
		}
		for _, t := range findMoney(line) {
			if t.start >= end {
				return moneyMatch(&t, i)
			}
		}
		if i+1 < len(lines) {
			if tokens := findMoney(lines[i+1]); len(tokens) > 0 {
				return moneyMatch(&tokens[0], i+1)
			}
		}
	}
	return nil
}

// keywordSpan returns the byte offsets of the earliest keyword in line, or
// -1, -1
func keywordSpan(line string, keywords []string) (int, int) {
	lower := strings.ToLower(line)
	start, end := -1, -1
	for _, k := range keywords {
		if idx := strings.Index(lower, k); idx >= 0 && (start < 0 || idx < start) {
			start, end = idx, idx+len(k)
		}
	}
	return start, end
}

// keywordStart returns the byte offset of the earliest keyword in line, or -1
func keywordStart(line string, keywords []string) int {
	start, _ := keywordSpan(line, keywords)
	return start
}

// keywordEnd returns the byte offset just past the earliest keyword in
// line, or -1
func keywordEnd(line string, keywords []string) int {
	_, end := keywordSpan(line, keywords)
	return end
}
