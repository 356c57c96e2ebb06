package reference

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/haebom/tariff/pkg/errors"
)

// Column names expected in the header rows.
var (
	sectionColumns = []string{"section", "name"}
	entryColumns   = []string{"section", "hscode", "description", "parent", "level"}
)

// RowIssue describes a row dropped during load.
type RowIssue struct {
	Table  string `json:"table"`
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Dataset is an immutable, loaded reference table.
type Dataset struct {
	sections []Section
	entries  []Entry
	targets  []matchTarget
	bySecID  map[string]int
	tree     *hierarchy

	// Dropped lists rows skipped during load.
	Dropped []RowIssue
	// Warnings lists declared-parent mismatches found during load.
	Warnings []HierarchyWarning
}

// NewDataset builds a Dataset from already-parsed rows.  Chapter ranges are
// derived here.
func NewDataset(sections []Section, entries []Entry) *Dataset {
	ranges := chapterRanges(entries)
	d := &Dataset{
		sections: make([]Section, len(sections)),
		entries:  make([]Entry, len(entries)),
		targets:  make([]matchTarget, len(entries)),
		bySecID:  make(map[string]int, len(sections)),
	}
	copy(d.entries, entries)
	for i, s := range sections {
		s.ChapterRange = NoChapters
		if r, ok := ranges[s.ID]; ok {
			s.ChapterRange = r
		}
		d.sections[i] = s
		d.bySecID[s.ID] = i
	}
	for i, e := range d.entries {
		d.targets[i] = newMatchTarget(e)
	}
	d.tree = buildHierarchy(d.entries)
	d.Warnings = d.tree.warnings(d.entries)
	return d
}

// LoadReferenceData parses the sections and entries tables (CSV with header
// row).  A table that cannot be read, or whose header lacks a required
// column, fails with LOAD_002.  Rows with missing required fields are
// dropped and reported in Dataset.Dropped.
func LoadReferenceData(sectionsCSV, entriesCSV io.Reader) (*Dataset, error) {
	var dropped []RowIssue

	secRows, issues, err := readTable("sections", sectionsCSV, sectionColumns)
	if err != nil {
		return nil, err
	}
	dropped = append(dropped, issues...)

	entRows, issues, err := readTable("entries", entriesCSV, entryColumns)
	if err != nil {
		return nil, err
	}
	dropped = append(dropped, issues...)

	sections := make([]Section, 0, len(secRows))
	seen := make(map[string]bool)
	for _, r := range secRows {
		id, name := r.get("section"), r.get("name")
		switch {
		case id == "" || name == "":
			dropped = append(dropped, RowIssue{Table: "sections", Line: r.line, Reason: "missing section or name"})
		case seen[id]:
			dropped = append(dropped, RowIssue{Table: "sections", Line: r.line, Reason: "duplicate section " + id})
		default:
			seen[id] = true
			sections = append(sections, Section{ID: id, Name: name})
		}
	}

	entries := make([]Entry, 0, len(entRows))
	for _, r := range entRows {
		e := Entry{
			SectionID:   r.get("section"),
			Code:        r.get("hscode"),
			Description: r.get("description"),
			ParentCode:  r.get("parent"),
			Level:       r.get("level"),
		}
		if e.SectionID == "" || e.Code == "" || e.Description == "" {
			dropped = append(dropped, RowIssue{Table: "entries", Line: r.line, Reason: "missing section, hscode or description"})
			continue
		}
		entries = append(entries, e)
	}

	d := NewDataset(sections, entries)
	d.Dropped = dropped
	return d, nil
}

type row struct {
	line   int
	fields []string
	cols   map[string]int
}

func (r row) get(col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func readTable(name string, src io.Reader, required []string) ([]row, []RowIssue, error) {
	if src == nil {
		return nil, nil, apperrors.New(apperrors.ErrCodeReferenceLoad, name+" table is missing")
	}
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, apperrors.New(apperrors.ErrCodeReferenceLoad, name+" table is empty")
		}
		return nil, nil, apperrors.Wrap(err, apperrors.ErrCodeReferenceLoad, name+" header unreadable")
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	var missing []string
	for _, c := range required {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, nil, apperrors.New(apperrors.ErrCodeReferenceLoad, name+" table lacks required columns").
			WithDetail(strings.Join(missing, ","))
	}

	var (
		rows   []row
		issues []RowIssue
	)
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				issues = append(issues, RowIssue{Table: name, Line: pe.Line, Reason: pe.Err.Error()})
				continue
			}
			return nil, nil, apperrors.Wrap(err, apperrors.ErrCodeReferenceLoad, fmt.Sprintf("%s table unreadable", name))
		}
		if isBlank(fields) {
			continue
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, row{line: line, fields: fields, cols: cols})
	}
	return rows, issues, nil
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Sections returns the sections in file order.
func (d *Dataset) Sections() []Section {
	out := make([]Section, len(d.sections))
	copy(out, d.sections)
	return out
}

// Section looks a section up by id.
func (d *Dataset) Section(id string) (Section, bool) {
	i, ok := d.bySecID[id]
	if !ok {
		return Section{}, false
	}
	return d.sections[i], true
}

// Entries returns the entries in file order.
func (d *Dataset) Entries() []Entry {
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Len returns the number of entries.
func (d *Dataset) Len() int { return len(d.entries) }

// ChapterRange returns the derived range of sectionID.  Unknown sections
// are computed against the entries directly.
func (d *Dataset) ChapterRange(sectionID string) string {
	if s, ok := d.Section(sectionID); ok {
		return s.ChapterRange
	}
	return DeriveChapterRange(d.entries, sectionID)
}

// Search behaves like the package-level Search but reuses the lower-cased
// fields computed at load.
func (d *Dataset) Search(query, sectionFilter string) []Entry {
	q := ParseQuery(query)
	out := make([]Entry, 0)
	for i, e := range d.entries {
		if sectionFilter != "" && e.SectionID != sectionFilter {
			continue
		}
		if q.matches(d.targets[i]) {
			out = append(out, e)
		}
	}
	return out
}

// ScopeSize counts entries in sectionFilter (all entries when empty).
func (d *Dataset) ScopeSize(sectionFilter string) int {
	if sectionFilter == "" {
		return len(d.entries)
	}
	n := 0
	for _, e := range d.entries {
		if e.SectionID == sectionFilter {
			n++
		}
	}
	return n
}

// Parent returns the entry whose digits are the longest proper prefix of
// code's digits.
func (d *Dataset) Parent(code string) (Entry, bool) {
	i, ok := d.tree.byDigits[digitsOnly(code)]
	if !ok {
		return Entry{}, false
	}
	p, ok := d.tree.parent[i]
	if !ok {
		return Entry{}, false
	}
	return d.entries[p], true
}

// Children returns the entries whose prefix parent is code, in file order.
func (d *Dataset) Children(code string) []Entry {
	idx := d.tree.children[digitsOnly(code)]
	out := make([]Entry, 0, len(idx))
	for _, i := range idx {
		out = append(out, d.entries[i])
	}
	return out
}
