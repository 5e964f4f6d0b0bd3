package parsing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the format of extracted timestamps
const TimestampLayout = "2006-01-02T15:04:05"

const timeGroups = `(?P<h>\d{1,2}):(?P<mi>\d{2})(?::(?P<s>\d{2}))?`

// dayNote skips a weekday annotation such as "(토)" between date and time
const dayNote = `(?:\([^)]*\)\s*)?`

type dateFormat struct {
	name string
	re   *regexp.Regexp
	// notAfter lists bytes that must not directly precede a match
	notAfter string
}

var dateFormats = map[string]dateFormat{
	"ymdhms": {
		re:       regexp.MustCompile(`(?P<y>\d{4})-(?P<mo>\d{1,2})-(?P<d>\d{1,2})[T\s]*` + dayNote + timeGroups),
		notAfter: "0123456789",
	},
	"ymd-dot": {
		re:       regexp.MustCompile(`(?P<y>\d{4})\.\s?(?P<mo>\d{1,2})\.\s?(?P<d>\d{1,2})\.?\s*` + dayNote + timeGroups),
		notAfter: "0123456789",
	},
	"ymd-slash": {
		re:       regexp.MustCompile(`(?P<y>\d{4})/(?P<mo>\d{1,2})/(?P<d>\d{1,2})\s*` + dayNote + timeGroups),
		notAfter: "0123456789",
	},
	"compact": {
		re:       regexp.MustCompile(`(?P<y>\d{4})(?P<mo>\d{2})(?P<d>\d{2})[T\s]*(?P<h>\d{2})(?P<mi>\d{2})(?P<s>\d{2})`),
		notAfter: "0123456789",
	},
	"korean": {
		re: regexp.MustCompile(`(?:(?P<y>\d{4})년\s*)?(?P<mo>\d{1,2})월\s*(?P<d>\d{1,2})일\s*` + dayNote + timeGroups),
	},
	"mdhms": {
		re:       regexp.MustCompile(`(?P<mo>\d{1,2})[/-](?P<d>\d{1,2})\s*` + dayNote + timeGroups),
		notAfter: "0123456789/-",
	},
	"md-dot": {
		re:       regexp.MustCompile(`(?P<mo>\d{1,2})\.(?P<d>\d{1,2})\s*` + dayNote + timeGroups),
		notAfter: "0123456789.",
	},
}

// DefaultDateFormats returns every supported format name in priority order
func DefaultDateFormats() []string {
	return []string{"ymdhms", "ymd-dot", "ymd-slash", "compact", "korean", "mdhms", "md-dot"}
}

func lookupDateFormats(names []string) ([]dateFormat, error) {
	formats := make([]dateFormat, 0, len(names))
	for _, name := range names {
		f, ok := dateFormats[name]
		if !ok {
			return nil, fmt.Errorf("unknown date format %q", name)
		}
		f.name = name
		formats = append(formats, f)
	}
	return formats, nil
}

// parseTimestamp returns the first valid date and time in text and the
// byte offset where it starts
func (p *Parser) parseTimestamp(text string) (string, int, bool) {
	for _, f := range p.dates {
		for _, m := range f.re.FindAllStringSubmatchIndex(text, -1) {
			if m[0] > 0 && strings.IndexByte(f.notAfter, text[m[0]-1]) >= 0 {
				continue
			}
			if ts, ok := p.buildTimestamp(f.re, text, m); ok {
				return ts, m[0], true
			}
		}
	}
	return "", 0, false
}

func (p *Parser) buildTimestamp(re *regexp.Regexp, text string, m []int) (string, bool) {
	parts := map[string]int{}
	for i, name := range re.SubexpNames() {
		if name == "" || m[2*i] < 0 {
			continue
		}
		v, err := strconv.Atoi(text[m[2*i]:m[2*i+1]])
		if err != nil {
			return "", false
		}
		parts[name] = v
	}

	year, ok := parts["y"]
	if !ok {
		year = p.opts.Now().Year()
	}
	month, day := parts["mo"], parts["d"]
	hour, minute, second := parts["h"], parts["mi"], parts["s"]
	if hour > 23 || minute > 59 || second > 59 {
		return "", false
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return "", false
	}
	return t.Format(TimestampLayout), true
}

// findTimestamp looks for a timestamp on each line, then on each line
// joined with its successor for dates split across two lines. A joined
// match must start on the first line and is attributed to it.
func (p *Parser) findTimestamp(lines []string) *Match[string] {
	for i, line := range lines {
		if ts, _, ok := p.parseTimestamp(line); ok {
			return &Match[string]{Value: ts, Line: i}
		}
		if i+1 < len(lines) {
			if ts, start, ok := p.parseTimestamp(line + " " + lines[i+1]); ok && start < len(line) {
				return &Match[string]{Value: ts, Line: i}
			}
		}
	}
	return nil
}
