package feed

import (
	"strings"

	"golang.org/x/net/html"
)

// skipText are elements whose text never reaches the reader.
var skipText = map[string]bool{"script": true, "style": true, "head": true}

// StripHTML returns the visible text of an HTML fragment with whitespace
// runs collapsed.  Plain text passes through unchanged apart from
// whitespace and entity decoding.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	depth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			if skipText[string(name)] {
				depth++
			}
			if isBlock(string(name)) {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if skipText[string(name)] && depth > 0 {
				depth--
			}
			if isBlock(string(name)) {
				b.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == "br" {
				b.WriteByte(' ')
			}
		case html.TextToken:
			if depth == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "li", "ul", "ol", "br", "tr", "td", "h1", "h2", "h3", "h4", "font":
		return true
	}
	return false
}
