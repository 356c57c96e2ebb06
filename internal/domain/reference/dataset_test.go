package reference

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/haebom/tariff/pkg/errors"
)

const threeSections = `section,name
I,live animals; animal products
II,vegetable products
III,fats and oils
`

const tenEntries = `section,hscode,description,parent,level
I,01,Animals; live,TOTAL,2
I,0101,"Horses, asses, mules and hinnies; live",01,4
I,0102,Bovine animals; live,01,4
I,05,Animal products not elsewhere specified,TOTAL,2
II,06,Trees and other plants; live,TOTAL,2
II,0601,Bulbs and tubers,06,4
II,10,Cereals,TOTAL,2
II,1001,Wheat and meslin,10,4
III,15,Animal or vegetable fats and oils,TOTAL,2
III,1501,Pig fat and poultry fat,15,4
`

func load(t *testing.T, sections, entries string) *Dataset {
	t.Helper()
	d, err := LoadReferenceData(strings.NewReader(sections), strings.NewReader(entries))
	require.NoError(t, err)
	return d
}

func TestLoadReferenceData_EndToEnd(t *testing.T) {
	d := load(t, threeSections, tenEntries)

	require.Equal(t, 10, d.Len())
	all := d.Search("", "")
	require.Len(t, all, 10)
	assert.Equal(t, d.Entries(), all, "blank search keeps original order")
	assert.Equal(t, "01", all[0].Code)
	assert.Equal(t, "1501", all[9].Code)

	rows, total := Truncate(all, 5)
	assert.Equal(t, all[:5], rows)
	assert.Equal(t, 10, total)

	assert.Empty(t, d.Dropped)
	assert.Empty(t, d.Warnings)
}

func TestLoadReferenceData_ChapterRanges(t *testing.T) {
	d := load(t, threeSections+"IX,empty section\n", tenEntries)

	want := map[string]string{"I": "01-05", "II": "06-10", "III": "15", "IX": NoChapters}
	for _, s := range d.Sections() {
		assert.Equal(t, want[s.ID], s.ChapterRange, s.ID)
		assert.Equal(t, want[s.ID], d.ChapterRange(s.ID))
	}
	assert.Equal(t, NoChapters, d.ChapterRange("XXI"))
}

func TestLoadReferenceData_DropsBadRows(t *testing.T) {
	sections := "section,name\nI,animals\n,no id\nII,\nI,duplicate\n"
	entries := "section,hscode,description,parent,level\n" +
		"I,0101,Horses,01,4\n" +
		"I,,missing code,01,4\n" +
		",0102,missing section,01,4\n" +
		"I,0103\n" +
		"I,0104,Poultry,01,4\n"

	d := load(t, sections, entries)
	assert.Len(t, d.Sections(), 1)
	require.Equal(t, 2, d.Len())
	assert.Equal(t, "0104", d.Entries()[1].Code)
	assert.Len(t, d.Dropped, 6)
	for _, issue := range d.Dropped {
		assert.Positive(t, issue.Line)
	}
}

func TestLoadReferenceData_LoadErrors(t *testing.T) {
	cases := []struct {
		name     string
		sections string
		entries  string
	}{
		{"empty sections", "", tenEntries},
		{"empty entries", threeSections, ""},
		{"missing name column", "section,title\nI,x\n", tenEntries},
		{"missing level column", threeSections, "section,hscode,description,parent\nI,01,x,TOTAL\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := LoadReferenceData(strings.NewReader(tc.sections), strings.NewReader(tc.entries))
			assert.Nil(t, d)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeReferenceLoad))
			assert.True(t, apperrors.IsLoadError(err))
		})
	}

	_, err := LoadReferenceData(nil, strings.NewReader(tenEntries))
	assert.True(t, apperrors.IsLoadError(err))
}

func TestLoadReferenceData_HeaderVariants(t *testing.T) {
	d := load(t, "\ufeffSection , NAME\nI,animals\n", " section,HSCode,Description,Parent,Level,extra\nI,0101,Horses,01,4,x\n")
	s, ok := d.Section("I")
	require.True(t, ok)
	assert.Equal(t, "animals", s.Name)
	assert.Equal(t, "Horses", d.Entries()[0].Description)
}

func TestDataset_SearchMatchesPackageSearch(t *testing.T) {
	d := load(t, threeSections, tenEntries)
	for _, q := range []string{"live", "animal or wheat", "fat oil", "01", "0101", "ii", "nothing-here"} {
		for _, sec := range []string{"", "I", "II"} {
			assert.Equal(t, Search(d.Entries(), q, sec), d.Search(q, sec), "%q in %q", q, sec)
		}
	}
	assert.Equal(t, 4, d.ScopeSize("I"))
	assert.Equal(t, 10, d.ScopeSize(""))
}

func TestDataset_Hierarchy(t *testing.T) {
	d := load(t, threeSections, tenEntries)

	p, ok := d.Parent("0101")
	require.True(t, ok)
	assert.Equal(t, "01", p.Code)

	_, ok = d.Parent("01")
	assert.False(t, ok)

	kids := d.Children("01")
	require.Len(t, kids, 2)
	assert.Equal(t, "0101", kids[0].Code)
	assert.Equal(t, "0102", kids[1].Code)
}

func TestLoadReferenceData_SampleFiles(t *testing.T) {
	root := filepath.Join("..", "..", "..", "data")
	sf, err := os.Open(filepath.Join(root, "hs_sections.csv"))
	require.NoError(t, err)
	defer sf.Close()
	ef, err := os.Open(filepath.Join(root, "hs_data.csv"))
	require.NoError(t, err)
	defer ef.Close()

	d, err := LoadReferenceData(sf, ef)
	require.NoError(t, err)
	assert.Empty(t, d.Dropped)
	assert.Empty(t, d.Warnings)

	xv, ok := d.Section("XV")
	require.True(t, ok)
	assert.Equal(t, "72-76", xv.ChapterRange)

	got := d.Search("steel or aluminium", "XV")
	assert.NotEmpty(t, got)
	for _, e := range got {
		assert.Equal(t, "XV", e.SectionID)
	}
}
