package parsing

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	merchantKeywordPattern = keywordPattern(directionKeywords, balanceKeywords, amountLabels, merchantNoise)
	moneyWithUnitPattern   = regexp.MustCompile(`(?i)(?:₩|\\|\$|krw)?\s*\d[\d,.]*\s*(?:원|won|krw)?`)
	merchantStripPattern   = regexp.MustCompile(`[\d\[\]()\-.,:/*₩$&%#+@'\\]`)
)

// keywordPattern matches any of the keywords, longest first so that
// "체크카드" is removed whole rather than leaving "카드"
func keywordPattern(lists ...[]string) *regexp.Regexp {
	var all []string
	for _, l := range lists {
		all = append(all, l...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return len(all[i]) > len(all[j])
	})
	quoted := make([]string, len(all))
	for i, k := range all {
		quoted[i] = regexp.QuoteMeta(k)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))
}

// merchantCandidate strips everything that is not part of a name from a
// bank notification line: tags, keywords, amounts, dates and digits
func merchantCandidate(text string) string {
	var spans [][]int
	spans = append(spans, datePattern.FindAllStringIndex(text, -1)...)
	spans = append(spans, timePattern.FindAllStringIndex(text, -1)...)
	spans = append(spans, findAccounts(text)...)
	text = blankSpans(text, spans)

	text = bracketTagPattern.ReplaceAllString(text, " ")
	text = merchantKeywordPattern.ReplaceAllString(text, " ")
	text = moneyWithUnitPattern.ReplaceAllString(text, " ")
	text = merchantStripPattern.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

func moneyMatch(t *moneyToken, line int) *Match[decimal.Decimal] {
	if t == nil {
		return nil
	}
	return &Match[decimal.Decimal]{Value: t.value, Line: line}
}

// neighbors returns the indexes around i in the given offset order,
// skipping those out of range
func neighbors(i, n int, offsets ...int) []int {
	var idx []int
	for _, off := range offsets {
		j := i + off
		if j >= 0 && j < n {
			idx = append(idx, j)
		}
	}
	return idx
}
