package reference

import (
	"strings"
)

// Query is a parsed search string: every group must match (AND) and within
// a group any keyword may match (OR).
type Query [][]string

// ParseQuery splits q on whitespace into AND terms.  A standalone "or"
// (any case) joins its neighbours into one OR group, so "steel or aluminum"
// is a single term with two keywords.  Leading and trailing "or" are ignored.
// Keywords are lower-cased; nothing is interpreted as a pattern.
func ParseQuery(q string) Query {
	var groups Query
	join := false
	for _, tok := range strings.Fields(q) {
		if strings.EqualFold(tok, "or") {
			join = len(groups) > 0
			continue
		}
		kw := strings.ToLower(tok)
		if join {
			last := len(groups) - 1
			groups[last] = append(groups[last], kw)
			join = false
			continue
		}
		groups = append(groups, []string{kw})
	}
	return groups
}

// Blank reports whether the query has no terms.
func (q Query) Blank() bool { return len(q) == 0 }

// Matches reports whether e satisfies every term of q.
func (q Query) Matches(e Entry) bool {
	return q.matches(newMatchTarget(e))
}

func (q Query) matches(t matchTarget) bool {
	for _, group := range q {
		if !t.matchesAny(group) {
			return false
		}
	}
	return true
}

// matchTarget holds the lower-cased searchable fields of an entry.
type matchTarget struct {
	code, description, section, level string
}

func newMatchTarget(e Entry) matchTarget {
	return matchTarget{
		code:        strings.ToLower(e.Code),
		description: strings.ToLower(e.Description),
		section:     strings.ToLower(e.SectionID),
		level:       strings.ToLower(e.Level),
	}
}

func (t matchTarget) matchesAny(keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(t.code, kw) ||
			strings.Contains(t.description, kw) ||
			strings.Contains(t.section, kw) ||
			strings.Contains(t.level, kw) {
			return true
		}
	}
	return false
}

// Search filters entries by optional section then by query.  A blank query
// returns the (section-restricted) input unchanged.  Order is preserved.
func Search(entries []Entry, query, sectionFilter string) []Entry {
	scoped := entries
	if sectionFilter != "" {
		scoped = make([]Entry, 0, len(entries))
		for _, e := range entries {
			if e.SectionID == sectionFilter {
				scoped = append(scoped, e)
			}
		}
	}

	q := ParseQuery(query)
	if q.Blank() {
		out := make([]Entry, len(scoped))
		copy(out, scoped)
		return out
	}

	out := make([]Entry, 0)
	for _, e := range scoped {
		if q.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// DefaultMaxRows is the default display cap for search results.
const DefaultMaxRows = 50

// Truncate returns at most maxRows leading results plus the full count.
// maxRows <= 0 disables truncation.
func Truncate(results []Entry, maxRows int) ([]Entry, int) {
	total := len(results)
	if maxRows <= 0 || total <= maxRows {
		return results, total
	}
	return results[:maxRows], total
}
