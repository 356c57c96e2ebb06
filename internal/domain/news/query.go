package news

import (
	"context"
	"time"

	"github.com/haebom/tariff/pkg/errors"
)

// Paging and retention defaults.
const (
	DefaultPageSize      = 10
	MaxPageSize          = 100
	MinRetentionDays     = 7
	DefaultRetentionDays = 60
)

// SearchParams selects stored items.  Source wins over a date range; with
// neither, all items are considered newest first.
type SearchParams struct {
	Query     string `form:"query" json:"query,omitempty"`
	Source    string `form:"source" json:"source,omitempty"`
	StartDate string `form:"startDate" json:"startDate,omitempty"`
	EndDate   string `form:"endDate" json:"endDate,omitempty"`
	Page      int    `form:"page" json:"page,omitempty"`
	Limit     int    `form:"limit" json:"limit,omitempty"`
}

// Normalize applies paging defaults and validates dates.
func (p SearchParams) Normalize(defaultLimit int) (SearchParams, error) {
	if defaultLimit <= 0 {
		defaultLimit = DefaultPageSize
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if (p.StartDate == "") != (p.EndDate == "") {
		return p, errors.New(errors.ErrCodeInvalidQuery, "startDate and endDate must be given together")
	}
	if p.StartDate != "" {
		if _, err := ParseDay(p.StartDate); err != nil {
			return p, err
		}
		if _, err := ParseDay(p.EndDate); err != nil {
			return p, err
		}
	}
	return p, nil
}

// SearchResult is one page of items.
type SearchResult struct {
	Items      []Item `json:"items"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	TotalPages int    `json:"totalPages"`
}

// PageBounds returns the [start, end) slice bounds of page within total.
func PageBounds(total, page, limit int) (int, int) {
	start := (page - 1) * limit
	if start >= total || start < 0 {
		return total, total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return start, end
}

// TotalPages is ceil(total / limit).
func TotalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// Repository stores news items with date, source and recency indexes.
type Repository interface {
	Exists(ctx context.Context, id string) (bool, error)
	Save(ctx context.Context, item Item) error
	Get(ctx context.Context, id string) (*Item, error)
	// GetMany returns the items found for ids, in id order; missing ids are
	// skipped.
	GetMany(ctx context.Context, ids []string) ([]Item, error)
	Delete(ctx context.Context, item Item) error

	// IDs returns every id, newest publish date first.
	IDs(ctx context.Context) ([]string, error)
	// IDsOlderThan returns the ids published before cutoff.
	IDsOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
	IDsByDate(ctx context.Context, day string) ([]string, error)
	IDsBySource(ctx context.Context, sourceKey string) ([]string, error)
	// SourceKeys lists every source index key suffix.
	SourceKeys(ctx context.Context) ([]string, error)
}
