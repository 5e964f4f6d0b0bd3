package expense

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/zombor/spendmate-ocr/internal/parsing"
	"github.com/zombor/spendmate-ocr/internal/scanning"
)

// LineResult is one recognized line in the response
type LineResult struct {
	Text       string        `json:"text"`
	BBox       scanning.BBox `json:"bbox"`
	Confidence float64       `json:"confidence"`
}

// ParsedResult holds the extracted fields. Absent values encode as null.
type ParsedResult struct {
	Source       parsing.Source `json:"source"`
	Merchant     *string        `json:"merchant"`
	Amount       *json.Number   `json:"amount"`
	Account      *string        `json:"account"`
	Timestamp    *string        `json:"timestamp"`
	Balance      *json.Number   `json:"balance"`
	MatchedLines map[string]int `json:"matched_lines"`
}

// Debug describes how the result was produced
type Debug struct {
	Engine       string   `json:"engine"`
	EngineName   string   `json:"engine_name"`
	EngineErrors []string `json:"engine_errors"`
	ScanID       string   `json:"scan_id"`
}

// Result is the response body of a scan
type Result struct {
	RawText string       `json:"raw_text"`
	Lines   []LineResult `json:"lines"`
	Parsed  ParsedResult `json:"parsed"`
	Debug   Debug        `json:"debug"`
}

// Assemble builds the response for a scan. redact is applied to every line,
// the raw text and the merchant so full account numbers never leave the
// service.
func Assemble(id string, doc *parsing.Document, fields parsing.Fields, rec *scanning.Recognition, redact func(string) string) *Result {
	if redact == nil {
		redact = func(s string) string { return s }
	}

	lines := make([]LineResult, len(doc.Lines))
	for i, l := range doc.Lines {
		bbox := l.BBox
		if bbox == nil {
			bbox = scanning.BBox{}
		}
		lines[i] = LineResult{
			Text:       redact(l.Text),
			BBox:       bbox,
			Confidence: l.Confidence,
		}
	}

	parsed := ParsedResult{
		Source:       fields.Source,
		MatchedLines: map[string]int{},
	}
	if m := fields.Merchant; m != nil {
		merchant := redact(m.Value)
		parsed.Merchant = &merchant
		parsed.MatchedLines["merchant"] = m.Line
	}
	if m := fields.Amount; m != nil {
		parsed.Amount = number(m.Value)
		parsed.MatchedLines["amount"] = m.Line
	}
	if m := fields.Account; m != nil {
		parsed.Account = &m.Value
		parsed.MatchedLines["account"] = m.Line
	}
	if m := fields.Timestamp; m != nil {
		parsed.Timestamp = &m.Value
		parsed.MatchedLines["timestamp"] = m.Line
	}
	if m := fields.Balance; m != nil {
		parsed.Balance = number(m.Value)
		parsed.MatchedLines["balance"] = m.Line
	}

	debug := Debug{
		EngineErrors: []string{},
		ScanID:       id,
	}
	if rec != nil {
		debug.Engine = rec.EngineUsed
		debug.EngineName = rec.EngineName
		debug.EngineErrors = append(debug.EngineErrors, rec.Errors...)
	}

	return &Result{
		RawText: redact(doc.RawText),
		Lines:   lines,
		Parsed:  parsed,
		Debug:   debug,
	}
}

func number(d decimal.Decimal) *json.Number {
	n := json.Number(d.String())
	return &n
}
