package parsing

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	datePattern     = regexp.MustCompile(`\d{4}[-./]\s?\d{1,2}[-./]\s?\d{1,2}|\d{1,2}/\d{1,2}`)
	digitRunPattern = regexp.MustCompile(`\d+`)
	currencyPrefix  = []string{"₩", `\`, "$", "krw"}
	currencySuffix  = []string{"원", "won", "krw"}
	amountTrimChars = ",."
)

// moneyToken is a number found in a line of text
type moneyToken struct {
	value decimal.Decimal
	start int
	end   int
	// marked tokens carry a currency symbol or unit
	marked bool
	// grouped tokens are written with separators
	grouped bool
}

// findMoney returns the money-like numbers of a line in order. Dates,
// times, account, business registration and phone numbers are skipped, as
// are numbers glued to Latin letters such as card or model codes.
func findMoney(text string) []moneyToken {
	var spans [][]int
	spans = append(spans, datePattern.FindAllStringIndex(text, -1)...)
	spans = append(spans, compactDates(text)...)
	spans = append(spans, timePattern.FindAllStringIndex(text, -1)...)
	spans = append(spans, findAccounts(text)...)
	spans = append(spans, businessRegPattern.FindAllStringIndex(text, -1)...)
	spans = append(spans, phonePattern.FindAllStringIndex(text, -1)...)
	blanked := blankSpans(text, spans)

	var tokens []moneyToken
	for _, loc := range moneyRunPattern.FindAllStringIndex(blanked, -1) {
		before := strings.ToLower(strings.TrimRight(blanked[:loc[0]], " "))
		after := strings.ToLower(strings.TrimLeft(blanked[loc[1]:], " "))

		if r, _ := utf8.DecodeLastRuneInString(blanked[:loc[0]]); isLatin(r) && !strings.HasSuffix(before, "krw") {
			continue
		}
		if r, _ := utf8.DecodeRuneInString(blanked[loc[1]:]); isLatin(r) &&
			!strings.HasPrefix(after, "won") && !strings.HasPrefix(after, "krw") {
			continue
		}

		raw := blanked[loc[0]:loc[1]]
		value, ok := ParseAmount(raw)
		if !ok || value.IsZero() {
			continue
		}

		tokens = append(tokens, moneyToken{
			value:   value,
			start:   loc[0],
			end:     loc[1],
			marked:  hasAnyPrefix(after, currencySuffix) || hasAnySuffix(before, currencyPrefix),
			grouped: strings.ContainsAny(raw, ",."),
		})
	}
	return tokens
}

// compactDates finds whole digit runs written as YYYYMMDD or
// YYYYMMDDHHMMSS that form a real date
func compactDates(text string) [][]int {
	var spans [][]int
	for _, loc := range digitRunPattern.FindAllStringIndex(text, -1) {
		run := text[loc[0]:loc[1]]
		if (len(run) == 8 || len(run) == 14) && validCompactDate(run[:8]) {
			spans = append(spans, loc)
		}
	}
	return spans
}

func validCompactDate(s string) bool {
	y, _ := strconv.Atoi(s[:4])
	m, _ := strconv.Atoi(s[4:6])
	d, _ := strconv.Atoi(s[6:8])
	if y < 1900 || y > 2099 || m < 1 || m > 12 || d < 1 {
		return false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return t.Month() == time.Month(m) && t.Day() == d
}

// bestMoney picks the last currency-marked token, else the last grouped
// one. Unless strict, a bare number is accepted as a last resort.
func bestMoney(tokens []moneyToken, strict bool) *moneyToken {
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].marked {
			return &tokens[i]
		}
	}
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].grouped {
			return &tokens[i]
		}
	}
	if !strict && len(tokens) > 0 {
		return &tokens[len(tokens)-1]
	}
	return nil
}

// ParseAmount parses a printed money amount such as "₩11,000", "6,500원",
// "1.871.195" or "12.50". A single dot followed by exactly three digits is
// a thousands separator.
func ParseAmount(token string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(token)
	lower := strings.ToLower(s)
	for _, p := range currencyPrefix {
		if strings.HasPrefix(lower, p) {
			s, lower = s[len(p):], lower[len(p):]
			break
		}
	}
	for _, suf := range currencySuffix {
		if strings.HasSuffix(lower, suf) {
			s = s[:len(s)-len(suf)]
			break
		}
	}
	s = strings.Trim(strings.TrimSpace(s), amountTrimChars)
	if s == "" {
		return decimal.Zero, false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != ',' && r != '.' {
			return decimal.Zero, false
		}
	}

	commas := strings.Count(s, ",")
	dots := strings.Count(s, ".")
	switch {
	case commas > 0 && dots > 0:
		if strings.LastIndex(s, ".") > strings.LastIndex(s, ",") {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
			if strings.Contains(s, ",") {
				return decimal.Zero, false
			}
		}
	case dots > 1:
		s = strings.ReplaceAll(s, ".", "")
	case dots == 1:
		if len(s)-strings.Index(s, ".")-1 == 3 {
			s = strings.ReplaceAll(s, ".", "")
		}
	default:
		s = strings.ReplaceAll(s, ",", "")
	}

	value, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
