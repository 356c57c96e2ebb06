package client

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// NewsClient queries and maintains the news store.
type NewsClient struct {
	client *Client
}

// NewsQuery filters stored news.  Dates are YYYY-MM-DD.
type NewsQuery struct {
	Query     string
	Source    string
	StartDate string
	EndDate   string
	Page      int
	Limit     int
}

func (q NewsQuery) values() url.Values {
	v := url.Values{}
	set := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	set("query", q.Query)
	set("source", q.Source)
	set("startDate", q.StartDate)
	set("endDate", q.EndDate)
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

func (n *NewsClient) List(ctx context.Context, q NewsQuery) (*NewsPage, error) {
	var out NewsPage
	if err := n.client.get(ctx, "/api/v1/news", q.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (n *NewsClient) ByDate(ctx context.Context, day string) (*NewsDay, error) {
	var out NewsDay
	if err := n.client.get(ctx, "/api/v1/news/by-date", url.Values{"date": {day}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (n *NewsClient) BySource(ctx context.Context, source string) (*NewsSource, error) {
	var out NewsSource
	if err := n.client.get(ctx, "/api/v1/news/by-source", url.Values{"source": {source}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Live returns the live feed filtered by keywords.  Without keywords the
// server filters by the current selection.
func (n *NewsClient) Live(ctx context.Context, keywords ...string) (*LiveNews, error) {
	var q url.Values
	if len(keywords) > 0 {
		q = url.Values{"keywords": {strings.Join(keywords, ",")}}
	}
	var out LiveNews
	if err := n.client.get(ctx, "/api/v1/news/live", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Fetch triggers an ingestion run.  Requires the API key.
func (n *NewsClient) Fetch(ctx context.Context) (*IngestResult, error) {
	var out struct {
		Result IngestResult `json:"result"`
	}
	if err := n.client.post(ctx, "/api/v1/news/fetch", nil, &out); err != nil {
		return nil, err
	}
	return &out.Result, nil
}

// Cleanup removes items older than days (0 uses the server retention).
// Requires the API key.
func (n *NewsClient) Cleanup(ctx context.Context, days int) (*CleanupResult, error) {
	path := "/api/v1/news/cleanup"
	if days > 0 {
		path += "?days=" + strconv.Itoa(days)
	}
	var out struct {
		Result CleanupResult `json:"result"`
	}
	if err := n.client.post(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out.Result, nil
}

// RSS returns the raw live feed document.
func (n *NewsClient) RSS(ctx context.Context) ([]byte, error) {
	var raw []byte
	if err := n.client.get(ctx, "/api/rss", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
