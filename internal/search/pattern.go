package search

import (
	"errors"
	"strings"
)

// ErrEmptyPattern is returned when a pattern has no source text.
var ErrEmptyPattern = errors.New("pattern is empty")

// Pattern describes one compiled search request.
type Pattern struct {
	Source          string
	CaseInsensitive bool
}

// Key identifies the pattern in match statistics. Patterns that differ only
// in case sensitivity share a key.
func (p Pattern) Key() string {
	return p.Source
}

// String renders the pattern in /source/flags form.
func (p Pattern) String() string {
	if p.CaseInsensitive {
		return "/" + p.Source + "/i"
	}
	return "/" + p.Source + "/"
}

// ParsePattern accepts plain text, /source/ or /source/i, and the (?i)
// inline flag.
func ParsePattern(text string) (Pattern, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Pattern{}, ErrEmptyPattern
	}

	var p Pattern
	switch {
	case len(trimmed) > 2 && strings.HasPrefix(trimmed, "/") && strings.HasSuffix(trimmed, "/i"):
		p = Pattern{Source: trimmed[1 : len(trimmed)-2], CaseInsensitive: true}
	case len(trimmed) > 1 && strings.HasPrefix(trimmed, "/") && strings.HasSuffix(trimmed, "/"):
		p = Pattern{Source: trimmed[1 : len(trimmed)-1]}
	case strings.HasPrefix(trimmed, "(?i)"):
		p = Pattern{Source: strings.TrimPrefix(trimmed, "(?i)"), CaseInsensitive: true}
	default:
		p = Pattern{Source: trimmed}
	}

	if p.Source == "" {
		return Pattern{}, ErrEmptyPattern
	}
	return p, nil
}

// expr returns the pattern with case folding inlined, for matchers that have
// no separate flag.
func (p Pattern) expr() string {
	if p.CaseInsensitive {
		return "(?i)" + p.Source
	}
	return p.Source
}
