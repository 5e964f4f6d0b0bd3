package parsing

import (
	"log/slog"
	"strings"

	"github.com/zombor/spendmate-ocr/internal/scanning"
)

// Classify decides whether the lines read like a bank notification or a
// store receipt. Each cue counts once; a tie is unknown.
func (p *Parser) Classify(lines []scanning.Line) Source {
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	text := strings.Join(texts, "\n")

	bank := countCues(
		hasAccount(text),
		containsAny(text, balanceKeywords),
		containsAny(text, directionKeywords),
		timeSecondsPattern.MatchString(text),
	)
	receipt := countCues(
		containsAny(text, itemKeywords),
		containsAny(text, allTotalKeywords()),
		businessRegPattern.MatchString(text) || containsAny(text, storeKeywords),
	)

	source := SourceUnknown
	switch {
	case bank > receipt:
		source = SourceBankAlert
	case receipt > bank:
		source = SourceReceipt
	}
	slog.Debug("Classified document", "source", source, "bank_cues", bank, "receipt_cues", receipt)
	return source
}

func countCues(cues ...bool) int {
	n := 0
	for _, c := range cues {
		if c {
			n++
		}
	}
	return n
}

func allTotalKeywords() []string {
	var all []string
	for _, g := range totalKeywordGroups {
		all = append(all, g...)
	}
	return all
}
