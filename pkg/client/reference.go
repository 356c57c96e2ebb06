package client

import (
	"context"
	"net/url"
	"strconv"
)

// ReferenceClient searches the HS reference tables and drives the
// server's node selection.
type ReferenceClient struct {
	client *Client
}

func (r *ReferenceClient) Sections(ctx context.Context) ([]Section, error) {
	var out struct {
		Sections []Section `json:"sections"`
	}
	if err := r.client.get(ctx, "/api/v1/reference/sections", nil, &out); err != nil {
		return nil, err
	}
	return out.Sections, nil
}

// SearchOptions narrows a reference search.  A zero Limit uses the server
// default; Seq orders searches typed in quick succession and is scoped to
// ClientID, or to the caller's address when ClientID is empty.
type SearchOptions struct {
	Section  string
	Limit    int
	Seq      uint64
	ClientID string
}

func (r *ReferenceClient) Search(ctx context.Context, query string, opts SearchOptions) (*SearchResult, error) {
	q := url.Values{"q": {query}}
	if opts.Section != "" {
		q.Set("section", opts.Section)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Seq > 0 {
		q.Set("seq", strconv.FormatUint(opts.Seq, 10))
	}
	if opts.ClientID != "" {
		q.Set("client", opts.ClientID)
	}
	var out SearchResult
	if err := r.client.get(ctx, "/api/v1/reference/search", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Keywords extracts cross-link keywords from a phrase.
func (r *ReferenceClient) Keywords(ctx context.Context, phrase string) ([]string, error) {
	var out struct {
		Keywords []string `json:"keywords"`
	}
	if err := r.client.get(ctx, "/api/v1/keywords", url.Values{"phrase": {phrase}}, &out); err != nil {
		return nil, err
	}
	return out.Keywords, nil
}

func (r *ReferenceClient) Selection(ctx context.Context) (*Selection, error) {
	var out Selection
	if err := r.client.get(ctx, "/api/v1/selection", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Select selects an outcome node.  Any other node clears the server's
// selection and fails with POL_002.
func (r *ReferenceClient) Select(ctx context.Context, nodeID string) (*Selection, error) {
	var out Selection
	body := struct {
		NodeID string `json:"node_id"`
	}{nodeID}
	if err := r.client.post(ctx, "/api/v1/selection", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ReferenceClient) ResetSelection(ctx context.Context) (*Selection, error) {
	var out Selection
	if err := r.client.delete(ctx, "/api/v1/selection", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
