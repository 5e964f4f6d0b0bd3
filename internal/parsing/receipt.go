package parsing

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	labeledMerchantLines = 10
	storeSuffixLines     = 5
)

var storeNameWords = []string{"카페", "커피", "매장"}

func (p *Parser) extractReceipt(lines []string) Fields {
	return Fields{
		Merchant:  receiptMerchant(lines),
		Amount:    receiptAmount(lines),
		Timestamp: p.findTimestamp(lines),
	}
}

// receiptMerchant prefers an explicit store label, then a line that looks
// like a store name, then the first line with any letters
func receiptMerchant(lines []string) *Match[string] {
	for i := 0; i < len(lines) && i < labeledMerchantLines; i++ {
		if !containsAny(lines[i], storeLabels) {
			continue
		}
		m := labeledValuePattern.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		if value := strings.TrimSpace(m[1]); hasLetter(value) {
			return &Match[string]{Value: value, Line: i}
		}
	}

	for i := 0; i < len(lines) && i < storeSuffixLines; i++ {
		if looksLikeStore(lines[i]) {
			return &Match[string]{Value: lines[i], Line: i}
		}
	}

	for i, line := range lines {
		if hasLetter(line) && !containsAny(line, headerWords) {
			return &Match[string]{Value: line, Line: i}
		}
	}
	return nil
}

func looksLikeStore(line string) bool {
	if containsAny(line, headerWords) || containsAny(line, storeLabels) {
		return false
	}
	if containsAny(line, storeNameWords) {
		return true
	}
	for _, tok := range strings.Fields(line) {
		if len([]rune(tok)) > 1 && strings.HasSuffix(tok, "점") && hasLetter(strings.TrimSuffix(tok, "점")) {
			return true
		}
	}
	return false
}

// receiptAmount walks the total keyword groups in priority order and takes
// the bottom-most line of the first group that yields an amount
func receiptAmount(lines []string) *Match[decimal.Decimal] {
	for _, group := range totalKeywordGroups {
		for i := len(lines) - 1; i >= 0; i-- {
			if !containsAny(lines[i], group) {
				continue
			}
			strict := containsAny(lines[i], itemKeywords)
			if best := bestMoney(findMoney(lines[i]), strict); best != nil {
				return moneyMatch(best, i)
			}
			for _, j := range neighbors(i, len(lines), 1, -1) {
				if best := bestMoney(findMoney(lines[j]), true); best != nil {
					return moneyMatch(best, j)
				}
			}
		}
	}
	return nil
}
