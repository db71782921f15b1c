// Package timeparse resolves free-form date and time expressions coming from
// the language model ("tomorrow", "July 7th, 2025", "2025-07-07T16:00:00")
// into concrete times. It layers two parsers: dateparse for absolute and
// ISO-8601 forms, then a natural-language rule engine for relative ones.
package timeparse

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var (
	ordinalRe = regexp.MustCompile(`\b(\d{1,2})(st|nd|rd|th)\b`)
	atRe      = regexp.MustCompile(`(?i)\s+at\s+`)
	// A bare meridiem hour ("4pm", "4 pm") not already part of a clock time.
	meridiemRe = regexp.MustCompile(`(?i)(^|[^:\d])(\d{1,2})\s*(am|pm)\b`)
)

// Parser resolves expressions relative to a reference time and its location.
// A Parser is safe for concurrent use.
type Parser struct {
	nl *when.Parser
}

// New constructs a Parser with English and common natural-language rules.
func New() *Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Parser{nl: w}
}

// ParseDateTime resolves s into a point in time. The reference time supplies
// "now" for relative expressions and the location for zone-less input.
func (p *Parser) ParseDateTime(s string, ref time.Time) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty date/time expression")
	}

	// "July 7th 2025 at 4pm" -> "July 7 2025 4:00pm". dateparse accepts the
	// normalized form; fed the raw string it misreads the "at 4pm" tail as
	// clock digits and returns a wrong time without an error.
	normalized := ordinalRe.ReplaceAllString(trimmed, "$1")
	normalized = atRe.ReplaceAllString(normalized, " ")
	normalized = meridiemRe.ReplaceAllString(normalized, "${1}${2}:00${3}")

	if t, err := dateparse.ParseIn(normalized, ref.Location()); err == nil {
		return t, nil
	}

	r, err := p.nl.Parse(trimmed, ref)
	if err == nil && r != nil {
		return r.Time, nil
	}

	return time.Time{}, fmt.Errorf("unrecognized date/time expression %q", s)
}

// ParseDate resolves s to a calendar date: midnight of the resolved day in
// the reference location.
func (p *Parser) ParseDate(s string, ref time.Time) (time.Time, error) {
	t, err := p.ParseDateTime(s, ref)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := t.In(ref.Location()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, ref.Location()), nil
}
