package client

import "time"

// Node is one policy tree node.
type Node struct {
	ID             string `json:"id"`
	Kind           string `json:"kind"`
	Label          string `json:"label"`
	Keyword        string `json:"keyword,omitempty"`
	RateExpression string `json:"rate_expression,omitempty"`
}

// Edge links a parent node to a child.  BranchLabel is "YES" or "NO" below
// question nodes.
type Edge struct {
	Source      string `json:"source"`
	Target      string `json:"target"`
	BranchLabel string `json:"branch_label,omitempty"`
}

// Omission is a policy branch skipped while loading.
type Omission struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

type Tree struct {
	Root      string     `json:"root"`
	Nodes     []Node     `json:"nodes"`
	Edges     []Edge     `json:"edges"`
	Omissions []Omission `json:"omissions,omitempty"`
}

// RateResolution is the structured reading of a rate expression.  Rule is
// one of no_tariffs, non_us_content, fentanyl, full_customs_value,
// generic_percent or fallback.
type RateResolution struct {
	BaseRate  float64 `json:"base_rate"`
	AppliesTo string  `json:"applies_to"`
	Note      string  `json:"note"`
	Percent   int     `json:"percent"`
	Rule      string  `json:"rule"`
}

type PriceEstimate struct {
	BasePrice  float64 `json:"base_price"`
	FinalPrice float64 `json:"final_price"`
	Display    string  `json:"display"`
}

type NodeDetail struct {
	Node       Node            `json:"node"`
	Path       []Edge          `json:"path"`
	PathNodes  []string        `json:"path_nodes"`
	Children   []Edge          `json:"children,omitempty"`
	Keywords   []string        `json:"keywords"`
	Resolution *RateResolution `json:"resolution,omitempty"`
	Price      *PriceEstimate  `json:"price,omitempty"`
}

type Resolution struct {
	RateExpression string         `json:"rate_expression"`
	Resolution     RateResolution `json:"resolution"`
	Price          PriceEstimate  `json:"price"`
}

type Section struct {
	ID           string `json:"section"`
	Name         string `json:"name"`
	ChapterRange string `json:"chapter_range"`
}

type Entry struct {
	SectionID   string `json:"section"`
	Code        string `json:"hscode"`
	Description string `json:"description"`
	ParentCode  string `json:"parent,omitempty"`
	Level       string `json:"level,omitempty"`
}

// SearchResult is one page of reference matches.  Superseded is set when a
// later sequence number from the same client was already answered.
type SearchResult struct {
	Query      string  `json:"query"`
	Section    string  `json:"section,omitempty"`
	Entries    []Entry `json:"entries"`
	Shown      int     `json:"shown"`
	Total      int     `json:"total"`
	ScopeSize  int     `json:"scope_size"`
	Truncated  bool    `json:"truncated"`
	Summary    string  `json:"summary"`
	Seq        uint64  `json:"seq,omitempty"`
	Superseded bool    `json:"superseded,omitempty"`
}

// Selection is the server's current node selection with everything
// derived from it.
type Selection struct {
	State        string          `json:"state"`
	NodeID       string          `json:"node_id,omitempty"`
	Phrase       string          `json:"phrase,omitempty"`
	Keywords     []string        `json:"keywords"`
	Version      uint64          `json:"version"`
	SelectedAt   time.Time       `json:"selected_at,omitempty"`
	Node         *Node           `json:"node,omitempty"`
	Resolution   *RateResolution `json:"resolution,omitempty"`
	PriceDisplay string          `json:"price_display"`
	Related      []Entry         `json:"related"`
	RelatedTotal int             `json:"related_total"`
}

// NewsItem is a stored news item.
type NewsItem struct {
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

// Article is a live feed article.
type Article struct {
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	PublishDate *time.Time `json:"publish_date,omitempty"`
	Description string     `json:"description,omitempty"`
	Source      string     `json:"source,omitempty"`
}

type NewsPage struct {
	Items      []NewsItem `json:"items"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	TotalPages int        `json:"totalPages"`
}

type NewsDay struct {
	Date  string     `json:"date"`
	Count int        `json:"count"`
	Items []NewsItem `json:"items"`
}

type NewsSource struct {
	Source           string     `json:"source"`
	Count            int        `json:"count"`
	Items            []NewsItem `json:"items"`
	AvailableSources []string   `json:"availableSources"`
}

type LiveNews struct {
	Keywords []string  `json:"keywords"`
	Articles []Article `json:"articles"`
	Count    int       `json:"count"`
	Total    int       `json:"total"`
}

type FeedReport struct {
	URL      string `json:"url"`
	Articles int    `json:"articles"`
	Error    string `json:"error,omitempty"`
}

type IngestResult struct {
	Processed  int          `json:"processedItems"`
	New        int          `json:"newItems"`
	Duplicates int          `json:"duplicates"`
	Filtered   int          `json:"filtered"`
	Incomplete int          `json:"incomplete"`
	Feeds      []FeedReport `json:"feeds"`
	Timestamp  time.Time    `json:"timestamp"`
}

type CleanupResult struct {
	Removed    int       `json:"removedCount"`
	Days       int       `json:"days"`
	CutoffDate time.Time `json:"cutoffDate"`
	Timestamp  time.Time `json:"timestamp"`
}
