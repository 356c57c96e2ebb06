package client

import (
	"context"
	"net/url"
	"strings"
)

// PolicyClient reads the tariff policy tree.
type PolicyClient struct {
	client *Client
}

func (p *PolicyClient) Tree(ctx context.Context) (*Tree, error) {
	var out Tree
	if err := p.client.get(ctx, "/api/v1/policy/tree", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Node fetches one node with its path from the root.  Node ids contain
// slashes, e.g. "china/april_11_exemption/no".
func (p *PolicyClient) Node(ctx context.Context, id string) (*NodeDetail, error) {
	segments := strings.Split(id, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	var out NodeDetail
	if err := p.client.get(ctx, "/api/v1/policy/nodes/"+strings.Join(segments, "/"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Resolve resolves a free rate expression.  A nil basePrice uses the
// server's configured base price.
func (p *PolicyClient) Resolve(ctx context.Context, expr string, basePrice *float64) (*Resolution, error) {
	body := struct {
		RateExpression string   `json:"rate_expression"`
		BasePrice      *float64 `json:"base_price,omitempty"`
	}{expr, basePrice}
	var out Resolution
	if err := p.client.post(ctx, "/api/v1/policy/resolve", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
