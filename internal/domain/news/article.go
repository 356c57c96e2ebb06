// Package news models tariff news: articles parsed from live feeds and the
// items kept in the news store, plus the rules for relevance, naming and
// date handling shared by ingestion and queries.
package news

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"

	"github.com/haebom/tariff/internal/domain/keyword"
)

// DayLayout is the YYYY-MM-DD layout used for date indexes.
const DayLayout = "2006-01-02"

// UnknownSource is used when a feed title carries no " - Source" suffix.
const UnknownSource = "Unknown Source"

// Article is one entry of a live RSS/Atom feed.
type Article struct {
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	PublishDate *time.Time `json:"publish_date,omitempty"`
	Description string     `json:"description,omitempty"`
	Source      string     `json:"source,omitempty"`
}

// Item is a stored news item.
type Item struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishDate time.Time `json:"publishDate"`
	DateStr     string    `json:"dateStr"`
	Timestamp   int64     `json:"timestamp"`
	Keywords    []string  `json:"keywords,omitempty"`
}

// ItemID derives the stable id of an item from its link.
func ItemID(link string) string {
	sum := md5.Sum([]byte(link))
	return hex.EncodeToString(sum[:])
}

// NewItem builds a stored item from a feed article.  The article title is
// split into headline and source; savedAt stamps Timestamp.
func NewItem(a Article, savedAt time.Time) Item {
	title, source := ExtractTitleAndSource(a.Title)
	if a.Source != "" && source == UnknownSource {
		source = a.Source
	}
	it := Item{
		ID:        ItemID(a.Link),
		Title:     title,
		Content:   a.Description,
		URL:       a.Link,
		Source:    source,
		Timestamp: savedAt.UnixMilli(),
	}
	if a.PublishDate != nil {
		it.PublishDate = a.PublishDate.UTC()
		it.DateStr = it.PublishDate.Format(DayLayout)
	}
	return it
}

// Matches reports whether query occurs in the title or content, ignoring case.
func (it Item) Matches(query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(it.Title), q) ||
		strings.Contains(strings.ToLower(it.Content), q)
}

// FilterArticles keeps the articles whose title or description contains any
// keyword.  With no keywords every article is kept.
func FilterArticles(articles []Article, keywords []string) []Article {
	if len(keywords) == 0 {
		return articles
	}
	out := make([]Article, 0, len(articles))
	for _, a := range articles {
		if keyword.MatchesAny(a.Title, keywords) || keyword.MatchesAny(a.Description, keywords) {
			out = append(out, a)
		}
	}
	return out
}
