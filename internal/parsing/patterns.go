package parsing

import (
	"regexp"
	"strings"
)

// Keyword tables. Matching is case-insensitive on cleaned text.
var (
	directionKeywords = []string{"출금", "입금", "결제", "승인", "이체", "취소", "deposit", "withdrawal", "payment"}
	balanceKeywords   = []string{"잔액", "잔고", "balance"}
	amountLabels      = []string{"금액", "amount"}
	itemKeywords      = []string{"수량", "단가", "품명", "상품", "메뉴", "qty"}
	storeKeywords     = []string{"사업자", "영수증", "매장", "대표자", "가맹점"}
	headerWords       = []string{"영수증", "receipt", "신용승인", "고객용", "카드영수증"}
	storeLabels       = []string{"상호", "매장명", "가맹점명", "가맹점"}
	merchantNoise     = []string{"일시불", "누적", "체크카드", "신용카드", "체크", "신용"}

	// Groups of total keywords, highest priority first
	totalKeywordGroups = [][]string{
		{"받을금액", "결제금액", "청구금액"},
		{"합계", "총액", "총금액", "총"},
		{"total"},
	}
)

var (
	accountPattern      = regexp.MustCompile(`\d{3,6}-[0-9*]{2,6}-[0-9*]{3,8}(?:-[0-9*]{1,6})?`)
	businessRegPattern  = regexp.MustCompile(`\d{3}-\d{2}-\d{5}`)
	businessRegExact    = regexp.MustCompile(`^\d{3}-\d{2}-\d{5}$`)
	mobilePattern       = regexp.MustCompile(`^01[016789]-\d{3,4}-\d{4}$`)
	phonePattern        = regexp.MustCompile(`\b0\d{1,2}-\d{3,4}-\d{4}\b`)
	timeSecondsPattern  = regexp.MustCompile(`\d{1,2}:\d{2}:\d{2}`)
	timePattern         = regexp.MustCompile(`\d{1,2}:\d{2}(?::\d{2})?`)
	bracketTagPattern   = regexp.MustCompile(`\[[^\]]*\]`)
	moneyRunPattern     = regexp.MustCompile(`\d[\d,.]*\d|\d`)
	labeledValuePattern = regexp.MustCompile(`[:\]]\s*(.+)$`)
)

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// findAccounts returns the byte spans of account-number candidates,
// skipping business registration and mobile numbers
func findAccounts(text string) [][]int {
	var spans [][]int
	for _, loc := range accountPattern.FindAllStringIndex(text, -1) {
		if loc[0] > 0 {
			prev := text[loc[0]-1]
			if prev == '-' || (prev >= '0' && prev <= '9') {
				continue
			}
		}
		match := text[loc[0]:loc[1]]
		if businessRegExact.MatchString(match) || mobilePattern.MatchString(match) {
			continue
		}
		spans = append(spans, loc)
	}
	return spans
}

func hasAccount(text string) bool {
	return len(findAccounts(text)) > 0
}

// blankSpans replaces each span with the same number of spaces so byte
// offsets stay valid
func blankSpans(text string, spans [][]int) string {
	if len(spans) == 0 {
		return text
	}
	b := []byte(text)
	for _, s := range spans {
		for i := s[0]; i < s[1]; i++ {
			b[i] = ' '
		}
	}
	return string(b)
}

func hasLetter(text string) bool {
	for _, r := range text {
		if isLetter(r) {
			return true
		}
	}
	return false
}

func isLetter(r rune) bool {
	return isHangul(r) || isLatin(r)
}

func isLatin(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isHangul(r rune) bool {
	return r >= '가' && r <= '힣'
}
