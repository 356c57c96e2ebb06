// Package keyword converts a policy-tree selection into search tokens and
// tracks the single current selection.
package keyword

import (
	"strings"
	"unicode"
)

var stopwords = map[string]bool{
	"tariff": true,
	"and":    true,
	"the":    true,
	"for":    true,
	"is":     true,
	"of":     true,
}

func isSeparator(r rune) bool {
	switch r {
	case ',', ';', '%', '.', '-', '(', ')':
		return true
	}
	return unicode.IsSpace(r)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Extract lower-cases phrase, splits it on whitespace and , ; % . - ( ) and
// keeps tokens longer than one character that are neither purely numeric
// nor stopwords.  When nothing survives, the whole lower-cased phrase is
// returned as the only keyword, untrimmed.  Only the empty phrase yields
// nil, which means "no selection".
func Extract(phrase string) []string {
	if phrase == "" {
		return nil
	}
	lower := strings.ToLower(phrase)

	var out []string
	for _, tok := range strings.FieldsFunc(lower, isSeparator) {
		if len([]rune(tok)) <= 1 || isNumeric(tok) || stopwords[tok] {
			continue
		}
		out = append(out, tok)
	}
	if len(out) == 0 {
		return []string{lower}
	}
	return out
}

// SplitTerms tokenises free text typed by a user.  It splits like Extract
// but applies no filtering.
func SplitTerms(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), isSeparator)
}

// MatchesAny reports whether text contains any keyword, ignoring case.
// An empty keyword list matches nothing; empty keywords are skipped.
func MatchesAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
