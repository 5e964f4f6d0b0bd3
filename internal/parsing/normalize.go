package parsing

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/zombor/spendmate-ocr/internal/scanning"
)

var disallowedChars = regexp.MustCompile(`[^0-9A-Za-z가-힣\[\]()\-.,:/*₩$&%#+@'\\\s]`)

// CleanText applies NFKC, replaces characters outside the receipt alphabet
// with spaces, collapses whitespace and rejoins Hangul words that the engine
// split into single syllables ("스 타 벅 스" becomes "스타벅스")
func CleanText(text string) string {
	text = norm.NFKC.String(text)
	text = disallowedChars.ReplaceAllString(text, " ")
	tokens := strings.Fields(text)

	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); {
		if !isSingleSyllable(tokens[i]) {
			out = append(out, tokens[i])
			i++
			continue
		}
		j := i
		var joined strings.Builder
		for j < len(tokens) && isSingleSyllable(tokens[j]) {
			joined.WriteString(tokens[j])
			j++
		}
		if j-i >= 2 {
			out = append(out, joined.String())
		} else {
			out = append(out, tokens[i])
		}
		i = j
	}
	return strings.Join(out, " ")
}

func isSingleSyllable(token string) bool {
	if utf8.RuneCountInString(token) != 1 {
		return false
	}
	r, _ := utf8.DecodeRuneInString(token)
	return isHangul(r)
}

// rect is the axis-aligned extent of a line's box
type rect struct {
	minX, minY, maxX, maxY float64
}

func (r rect) area() float64 {
	return math.Max(0, r.maxX-r.minX) * math.Max(0, r.maxY-r.minY)
}

func (r rect) height() float64 {
	return r.maxY - r.minY
}

func (r rect) centerY() float64 {
	return (r.minY + r.maxY) / 2
}

func iou(a, b rect) float64 {
	ix := math.Min(a.maxX, b.maxX) - math.Max(a.minX, b.minX)
	iy := math.Min(a.maxY, b.maxY) - math.Max(a.minY, b.minY)
	if ix <= 0 || iy <= 0 {
		return 0
	}
	inter := ix * iy
	union := a.area() + b.area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

type candidate struct {
	line   scanning.Line
	seq    int
	box    rect
	hasBox bool
}

// Normalize cleans, deduplicates and orders engine lines into a Document.
// Several line lists may be passed; they are treated as one sequence.
func (p *Parser) Normalize(engineUsed string, lists ...[]scanning.Line) *Document {
	var cands []candidate
	seq := 0
	for _, list := range lists {
		for _, l := range list {
			text := CleanText(l.Text)
			if text == "" {
				continue
			}
			l.Text = text
			c := candidate{line: l, seq: seq}
			if minX, minY, maxX, maxY, ok := l.BBox.Bounds(); ok {
				c.box = rect{minX, minY, maxX, maxY}
				c.hasBox = true
			}
			cands = append(cands, c)
			seq++
		}
	}

	cands = p.dedupe(cands)
	ordered := p.readingOrder(cands)

	lines := make([]scanning.Line, 0, len(ordered))
	texts := make([]string, 0, len(ordered))
	for _, c := range ordered {
		lines = append(lines, c.line)
		texts = append(texts, c.line.Text)
	}

	return &Document{
		RawText:    strings.Join(texts, "\n"),
		Lines:      lines,
		EngineUsed: engineUsed,
		CreatedAt:  p.opts.Now(),
	}
}

// dedupe drops boxes that overlap a more confident line
func (p *Parser) dedupe(cands []candidate) []candidate {
	dropped := make([]bool, len(cands))
	for i := range cands {
		if dropped[i] || !cands[i].hasBox {
			continue
		}
		for j := i + 1; j < len(cands); j++ {
			if dropped[j] || !cands[j].hasBox {
				continue
			}
			if iou(cands[i].box, cands[j].box) <= p.opts.IoUThreshold {
				continue
			}
			if cands[j].line.Confidence > cands[i].line.Confidence {
				dropped[i] = true
				break
			}
			dropped[j] = true
		}
	}

	kept := make([]candidate, 0, len(cands))
	for i, c := range cands {
		if !dropped[i] {
			kept = append(kept, c)
		}
	}
	return kept
}

// readingOrder sorts boxed lines into rows top to bottom, left to right
// within a row. Lines without a box follow in engine order.
func (p *Parser) readingOrder(cands []candidate) []candidate {
	var boxed, unboxed []candidate
	for _, c := range cands {
		if c.hasBox {
			boxed = append(boxed, c)
		} else {
			unboxed = append(unboxed, c)
		}
	}

	sort.SliceStable(boxed, func(i, j int) bool {
		a, b := boxed[i], boxed[j]
		if a.box.centerY() != b.box.centerY() {
			return a.box.centerY() < b.box.centerY()
		}
		if a.box.minX != b.box.minX {
			return a.box.minX < b.box.minX
		}
		return a.seq < b.seq
	})

	ordered := make([]candidate, 0, len(cands))
	for i := 0; i < len(boxed); {
		anchor := boxed[i]
		rowHeight := anchor.box.height()
		j := i + 1
		for j < len(boxed) {
			c := boxed[j]
			tol := p.opts.RowTolerance * math.Min(rowHeight, c.box.height())
			if math.Abs(c.box.centerY()-anchor.box.centerY()) > tol {
				break
			}
			j++
		}
		row := boxed[i:j]
		sort.SliceStable(row, func(a, b int) bool {
			if row[a].box.minX != row[b].box.minX {
				return row[a].box.minX < row[b].box.minX
			}
			return row[a].seq < row[b].seq
		})
		ordered = append(ordered, row...)
		i = j
	}

	return append(ordered, unboxed...)
}
