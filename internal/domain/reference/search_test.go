package reference

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func descEntries(descs ...string) []Entry {
	out := make([]Entry, len(descs))
	for i, d := range descs {
		out[i] = Entry{SectionID: "S", Code: fmt.Sprintf("99%02d", i), Description: d, Level: "4"}
	}
	return out
}

func TestSearch_OrWithinTerm(t *testing.T) {
	entries := descEntries("steel pipes", "aluminum cans", "plastic toys")

	got := Search(entries, "steel or aluminum", "")
	assert.Equal(t, entries[:2], got)

	got = Search(entries, "STEEL OR Aluminum", "")
	assert.Equal(t, entries[:2], got)
}

func TestSearch_AndAcrossTerms(t *testing.T) {
	entries := descEntries("steel pipes", "aluminum cans", "plastic toys")

	assert.Empty(t, Search(entries, "steel toys", ""))
	assert.Equal(t, entries[:1], Search(entries, "steel pipes", ""))
	assert.Equal(t, entries[:1], Search(entries, "pipes steel or aluminum", ""))
}

func TestSearch_Literalness(t *testing.T) {
	entries := descEntries("contains a.b*c literally", "aXbbbc", "a.b")

	var got []Entry
	assert.NotPanics(t, func() { got = Search(entries, "a.b*c", "") })
	assert.Equal(t, entries[:1], got)

	for _, q := range []string{"(", "[a-z]+", `\`, "*?", "(?i)"} {
		assert.NotPanics(t, func() { Search(entries, q, "") }, q)
	}
}

func TestSearch_BlankQueryReturnsAll(t *testing.T) {
	entries := descEntries("a", "b", "c")
	for _, q := range []string{"", "   ", "\t\n"} {
		assert.Equal(t, entries, Search(entries, q, ""))
	}
}

func TestSearch_SectionFilterFirst(t *testing.T) {
	entries := []Entry{
		{SectionID: "I", Code: "0101", Description: "horses"},
		{SectionID: "II", Code: "1001", Description: "wheat horses feed"},
		{SectionID: "I", Code: "0102", Description: "bovine"},
	}
	assert.Equal(t, []Entry{entries[0], entries[2]}, Search(entries, "", "I"))
	assert.Equal(t, []Entry{entries[1]}, Search(entries, "horses", "II"))
	assert.Empty(t, Search(entries, "", "IX"))
}

func TestSearch_FieldsMatched(t *testing.T) {
	entries := []Entry{
		{SectionID: "XV", Code: "7208", Description: "flat-rolled", Level: "4"},
		{SectionID: "I", Code: "0101.21", Description: "horses", Level: "6"},
	}
	assert.Equal(t, entries[:1], Search(entries, "xv", ""), "section id")
	assert.Equal(t, entries[1:], Search(entries, "0101.21", ""), "code with separator")
	assert.Empty(t, Search(entries, "010121", ""), "separators are not ignored")
	assert.Equal(t, entries[1:], Search(entries, "6", ""), "level")
}

func TestSearch_LiteralSubstringOnly(t *testing.T) {
	entries := []Entry{{SectionID: "I", Code: "0105", Description: "Poultry; live"}}
	assert.Empty(t, Search(entries, "1.05", ""))
	assert.Empty(t, Search(entries, "01 05", ""))
	assert.Equal(t, entries, Search(entries, "0105", ""))
	assert.Equal(t, entries, Search(entries, "105", ""))
}

func TestSearch_OrInsideWordIsLiteral(t *testing.T) {
	entries := []Entry{
		{SectionID: "XVII", Code: "8703", Description: "Motor cars"},
		{SectionID: "XVII", Code: "8704", Description: "Vehicles for transport of goods"},
		{SectionID: "I", Code: "0101", Description: "Live horses"},
	}
	assert.Equal(t, Query{{"motor"}}, ParseQuery("motor"))
	assert.Equal(t, Query{{"orange"}}, ParseQuery("ORANGE"))
	assert.Equal(t, entries[:1], Search(entries, "motor", ""))
	assert.Equal(t, entries[1:2], Search(entries, "transport", ""))
	assert.Equal(t, entries[:2], Search(entries, "motor or transport", ""))
}

func TestParseQuery(t *testing.T) {
	cases := []struct {
		in   string
		want Query
	}{
		{"", nil},
		{"steel", Query{{"steel"}}},
		{"steel or aluminum tariffs", Query{{"steel", "aluminum"}, {"tariffs"}}},
		{"or steel", Query{{"steel"}}},
		{"steel or", Query{{"steel"}}},
		{"a or b or c", Query{{"a", "b", "c"}}},
		{"motor oil", Query{{"motor"}, {"oil"}}},
		{"or", nil},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseQuery(tc.in), tc.in)
	}
}

func TestTruncate(t *testing.T) {
	entries := descEntries("1", "2", "3", "4", "5", "6", "7", "8", "9", "10")

	rows, total := Truncate(entries, 5)
	assert.Equal(t, entries[:5], rows)
	assert.Equal(t, 10, total)

	rows, total = Truncate(entries, 50)
	assert.Len(t, rows, 10)
	assert.Equal(t, 10, total)

	rows, total = Truncate(entries, 0)
	assert.Len(t, rows, 10)
	assert.Equal(t, 10, total)

	rows, total = Truncate(nil, 5)
	assert.Empty(t, rows)
	assert.Zero(t, total)
}
