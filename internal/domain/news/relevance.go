package news

import (
	"strings"
	"unicode"
)

// TariffKeywords decide whether a general business story is about tariffs.
var TariffKeywords = []string{
	"tariff",
	"trade war",
	"trump tariff",
	"china tariff",
	"import tax",
	"export tax",
	"duty",
	"customs duty",
	"trade policy",
	"protectionism",
	"trade deficit",
	"retaliatory tariff",
	"section 301",
}

// IsTariffRelated reports whether title or content mentions a tariff keyword.
func IsTariffRelated(title, content string) bool {
	text := strings.ToLower(title + " " + content)
	for _, kw := range TariffKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// ExtractTitleAndSource splits a "Headline - Publisher" feed title on the
// last " - ".  Titles without the separator get UnknownSource.
func ExtractTitleAndSource(full string) (title, source string) {
	i := strings.LastIndex(full, " - ")
	if i < 0 {
		return full, UnknownSource
	}
	title, source = full[:i], full[i+3:]
	if source == "" {
		source = UnknownSource
	}
	return title, source
}

// SourceKey is the index key form of a source name: lower-cased with
// whitespace runs replaced by single hyphens.
func SourceKey(source string) string {
	return strings.Join(strings.Fields(strings.ToLower(source)), "-")
}

// SourceDisplayName reverses SourceKey as far as possible by title-casing
// each hyphen-separated word.
func SourceDisplayName(key string) string {
	words := strings.Split(key, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
