package parsing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/spendmate-ocr/internal/scanning"
)

// Source is the kind of document an image shows
type Source string

const (
	SourceBankAlert Source = "bank_alert"
	SourceReceipt   Source = "receipt"
	SourceUnknown   Source = "unknown"
)

// Document is the normalized text of one recognized image
type Document struct {
	RawText    string
	Lines      []scanning.Line
	EngineUsed string
	Source     Source
	CreatedAt  time.Time
}

// Match is an extracted value and the index of the line it came from
type Match[T any] struct {
	Value T
	Line  int
}

// Fields holds the values extracted from a document. Nil means not found.
type Fields struct {
	Source    Source
	Merchant  *Match[string]
	Amount    *Match[decimal.Decimal]
	Account   *Match[string]
	Timestamp *Match[string]
	Balance   *Match[decimal.Decimal]
}

// Options configures normalization and extraction
type Options struct {
	// IoUThreshold is the overlap above which two boxes are the same line
	IoUThreshold float64
	// RowTolerance groups lines whose vertical centers differ by at most
	// this fraction of the line height
	RowTolerance float64
	// MaskKeepPrefix and MaskKeepSuffix are the account symbols left visible
	MaskKeepPrefix int
	MaskKeepSuffix int
	MaskChar       rune
	// DateFormats names the accepted timestamp layouts, in priority order
	DateFormats []string
	// Now supplies the year for dates printed without one
	Now func() time.Time
}

// DefaultOptions returns the default parser options
func DefaultOptions() Options {
	return Options{
		IoUThreshold:   0.5,
		RowTolerance:   0.5,
		MaskKeepPrefix: 4,
		MaskKeepSuffix: 3,
		MaskChar:       '*',
		DateFormats:    DefaultDateFormats(),
		Now:            time.Now,
	}
}

type extractFunc func(p *Parser, lines []string) Fields

// Parser normalizes, classifies and extracts fields from engine lines.
// It is immutable after construction and safe for concurrent use.
type Parser struct {
	opts       Options
	dates      []dateFormat
	extractors map[Source]extractFunc
}

// NewParser creates a parser. Zero values in opts fall back to defaults.
func NewParser(opts Options) (*Parser, error) {
	defaults := DefaultOptions()
	if opts.IoUThreshold <= 0 {
		opts.IoUThreshold = defaults.IoUThreshold
	}
	if opts.RowTolerance <= 0 {
		opts.RowTolerance = defaults.RowTolerance
	}
	if opts.MaskKeepPrefix < 0 || opts.MaskKeepSuffix < 0 {
		return nil, fmt.Errorf("mask boundary must not be negative")
	}
	if opts.MaskKeepPrefix == 0 && opts.MaskKeepSuffix == 0 {
		opts.MaskKeepPrefix = defaults.MaskKeepPrefix
		opts.MaskKeepSuffix = defaults.MaskKeepSuffix
	}
	if opts.MaskChar == 0 {
		opts.MaskChar = defaults.MaskChar
	}
	if len(opts.DateFormats) == 0 {
		opts.DateFormats = defaults.DateFormats
	}
	if opts.Now == nil {
		opts.Now = defaults.Now
	}

	dates, err := lookupDateFormats(opts.DateFormats)
	if err != nil {
		return nil, err
	}

	return &Parser{
		opts:  opts,
		dates: dates,
		extractors: map[Source]extractFunc{
			SourceBankAlert: (*Parser).extractBankAlert,
			SourceReceipt:   (*Parser).extractReceipt,
			SourceUnknown:   (*Parser).extractUnknown,
		},
	}, nil
}

// Extract pulls the fields for the document's source out of its lines
func (p *Parser) Extract(doc *Document) Fields {
	texts := make([]string, len(doc.Lines))
	for i, l := range doc.Lines {
		texts[i] = l.Text
	}

	source := doc.Source
	if source == "" {
		source = p.Classify(doc.Lines)
	}
	extract, ok := p.extractors[source]
	if !ok {
		extract = (*Parser).extractUnknown
		source = SourceUnknown
	}
	fields := extract(p, texts)
	fields.Source = source
	return fields
}

func (p *Parser) extractUnknown([]string) Fields {
	return Fields{Source: SourceUnknown}
}
