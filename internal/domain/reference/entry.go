// Package reference indexes the harmonized-system classification table and
// answers keyword queries against it.
package reference

import (
	"fmt"
	"strconv"
	"strings"
)

// Entry is one row of the classification table.
type Entry struct {
	SectionID   string `json:"section"`
	Code        string `json:"hscode"`
	Description string `json:"description"`
	ParentCode  string `json:"parent,omitempty"`
	Level       string `json:"level,omitempty"`
}

// Digits returns the code with every non-digit removed.
func (e Entry) Digits() string { return digitsOnly(e.Code) }

// Section is a named group of entries with its derived chapter range.
type Section struct {
	ID           string `json:"section"`
	Name         string `json:"name"`
	ChapterRange string `json:"chapter_range"`
}

// NoChapters is the chapter range of a section without entries.
const NoChapters = "N/A"

// Chapter returns the two-digit chapter of code, or false when code carries
// fewer than two digits.
func Chapter(code string) (int, bool) {
	d := digitsOnly(code)
	if len(d) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(d[:2])
	if err != nil {
		return 0, false
	}
	return n, true
}

// DeriveChapterRange scans entries of sectionID and returns "NN" when they
// all share one chapter, "NN-MM" for a span, or NoChapters when none match.
func DeriveChapterRange(entries []Entry, sectionID string) string {
	lo, hi, found := 0, 0, false
	for _, e := range entries {
		if e.SectionID != sectionID {
			continue
		}
		ch, ok := Chapter(e.Code)
		if !ok {
			continue
		}
		if !found {
			lo, hi, found = ch, ch, true
			continue
		}
		if ch < lo {
			lo = ch
		}
		if ch > hi {
			hi = ch
		}
	}
	return formatRange(lo, hi, found)
}

// chapterRanges computes every section's range in one pass.
func chapterRanges(entries []Entry) map[string]string {
	type span struct{ lo, hi int }
	spans := make(map[string]*span)
	for _, e := range entries {
		ch, ok := Chapter(e.Code)
		if !ok {
			continue
		}
		s, ok := spans[e.SectionID]
		if !ok {
			spans[e.SectionID] = &span{ch, ch}
			continue
		}
		if ch < s.lo {
			s.lo = ch
		}
		if ch > s.hi {
			s.hi = ch
		}
	}
	out := make(map[string]string, len(spans))
	for id, s := range spans {
		out[id] = formatRange(s.lo, s.hi, true)
	}
	return out
}

func formatRange(lo, hi int, found bool) string {
	switch {
	case !found:
		return NoChapters
	case lo == hi:
		return fmt.Sprintf("%02d", lo)
	default:
		return fmt.Sprintf("%02d-%02d", lo, hi)
	}
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// HierarchyWarning flags a row whose declared parent disagrees with the
// parent implied by digit prefixes.  Prefix parents are authoritative.
type HierarchyWarning struct {
	Code           string `json:"hscode"`
	DeclaredParent string `json:"declared_parent"`
	PrefixParent   string `json:"prefix_parent"`
}

// hierarchy resolves parent/child links by digit prefix.
type hierarchy struct {
	byDigits map[string]int
	children map[string][]int
	parent   map[int]int
}

func buildHierarchy(entries []Entry) *hierarchy {
	h := &hierarchy{
		byDigits: make(map[string]int, len(entries)),
		children: make(map[string][]int),
		parent:   make(map[int]int),
	}
	for i, e := range entries {
		d := e.Digits()
		if d == "" {
			continue
		}
		if _, dup := h.byDigits[d]; !dup {
			h.byDigits[d] = i
		}
	}
	for i, e := range entries {
		d := e.Digits()
		for n := len(d) - 1; n > 0; n-- {
			if p, ok := h.byDigits[d[:n]]; ok {
				h.parent[i] = p
				h.children[entries[p].Digits()] = append(h.children[entries[p].Digits()], i)
				break
			}
		}
	}
	return h
}

// warnings compares declared parents with prefix parents.  Declared parents
// without digits (such as "TOTAL") are not comparable and are skipped.
func (h *hierarchy) warnings(entries []Entry) []HierarchyWarning {
	var out []HierarchyWarning
	for i, e := range entries {
		declared := digitsOnly(e.ParentCode)
		if declared == "" {
			continue
		}
		prefix := ""
		if p, ok := h.parent[i]; ok {
			prefix = entries[p].Code
		}
		if declared != digitsOnly(prefix) {
			out = append(out, HierarchyWarning{Code: e.Code, DeclaredParent: e.ParentCode, PrefixParent: prefix})
		}
	}
	return out
}
