package parsing

import "strings"

func isMaskSeparator(r rune) bool {
	return r == '-' || r == ' '
}

// MaskAccount hides the middle of an account number. Separators stay in
// place and the result has the same length as the input.
func (p *Parser) MaskAccount(account string) string {
	runes := []rune(account)
	n := 0
	for _, r := range runes {
		if !isMaskSeparator(r) {
			n++
		}
	}

	prefix, suffix := p.opts.MaskKeepPrefix, p.opts.MaskKeepSuffix
	if n < 6 {
		prefix, suffix = 0, min(suffix, 2)
	}
	if prefix+suffix >= n {
		suffix = min(suffix, 2)
	}
	if suffix >= n {
		suffix = max(n-1, 0)
	}
	if prefix+suffix >= n {
		prefix = max(n-suffix-1, 0)
	}

	idx := 0
	for i, r := range runes {
		if isMaskSeparator(r) {
			continue
		}
		if idx >= prefix && idx < n-suffix {
			runes[i] = p.opts.MaskChar
		}
		idx++
	}
	return string(runes)
}

// RedactAccounts masks every account number found in text
func (p *Parser) RedactAccounts(text string) string {
	spans := findAccounts(text)
	if len(spans) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, s := range spans {
		b.WriteString(text[last:s[0]])
		b.WriteString(p.MaskAccount(text[s[0]:s[1]]))
		last = s[1]
	}
	b.WriteString(text[last:])
	return b.String()
}
