// Package dashboard is the application service behind the tariff
// dashboard: it cross-links a policy tree selection to keywords, reference
// entries and a price estimate, and serves reference searches.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/haebom/tariff/internal/domain/keyword"
	"github.com/haebom/tariff/internal/domain/policy"
	"github.com/haebom/tariff/internal/domain/reference"
	"github.com/haebom/tariff/internal/infrastructure/monitoring/logging"
	"github.com/haebom/tariff/internal/infrastructure/monitoring/prometheus"
	"github.com/haebom/tariff/pkg/errors"
)

// DatasetProvider yields the currently loaded datasets.
type DatasetProvider interface {
	Tree() (*policy.Tree, error)
	Reference() (*reference.Dataset, error)
}

// Service defines the dashboard operations.
type Service interface {
	Tree(ctx context.Context) (*TreeView, error)
	Node(ctx context.Context, id string) (*NodeDetail, error)
	Resolve(ctx context.Context, input *ResolveInput) (*Resolution, error)
	Sections(ctx context.Context) ([]reference.Section, error)
	Search(ctx context.Context, input *SearchInput) (*SearchResult, error)
	Keywords(ctx context.Context, phrase string) []string
	Selection(ctx context.Context) (*SelectionView, error)
	Select(ctx context.Context, nodeID string) (*SelectionView, error)
	ResetSelection(ctx context.Context) (*SelectionView, error)
}

// Config tunes the service.  Sessions caps how many clients keep a search
// sequence.
type Config struct {
	BasePrice float64
	MaxRows   int
	Sessions  int
}

// TreeView is the whole policy tree as flat node and edge lists.
type TreeView struct {
	Root      string            `json:"root"`
	Nodes     []policy.Node     `json:"nodes"`
	Edges     []policy.Edge     `json:"edges"`
	Omissions []policy.Omission `json:"omissions,omitempty"`
}

// NodeDetail describes one node, its decision path and, for outcomes, the
// resolved rate and price estimate.
type NodeDetail struct {
	Node       policy.Node            `json:"node"`
	Path       []policy.Edge          `json:"path"`
	PathNodes  []string               `json:"path_nodes"`
	Children   []policy.Edge          `json:"children,omitempty"`
	Keywords   []string               `json:"keywords"`
	Resolution *policy.RateResolution `json:"resolution,omitempty"`
	Price      *policy.PriceEstimate  `json:"price,omitempty"`
}

// ResolveInput resolves a free rate expression.  BasePrice defaults to the
// configured base price.
type ResolveInput struct {
	RateExpression string   `json:"rate_expression"`
	BasePrice      *float64 `json:"base_price,omitempty"`
}

// Resolution pairs a rate resolution with its price estimate.
type Resolution struct {
	RateExpression string                `json:"rate_expression"`
	Resolution     policy.RateResolution `json:"resolution"`
	Price          policy.PriceEstimate  `json:"price"`
}

// SearchInput is one reference search.  Seq, when non-zero, orders
// searches from the same Client; an older Seq than one that client already
// sent is superseded.  Sequences of different clients are independent.
type SearchInput struct {
	Query   string
	Section string
	Limit   int
	Seq     uint64
	Client  string
}

// SearchResult is a truncated page of matches.
type SearchResult struct {
	Query      string            `json:"query"`
	Section    string            `json:"section,omitempty"`
	Entries    []reference.Entry `json:"entries"`
	Shown      int               `json:"shown"`
	Total      int               `json:"total"`
	ScopeSize  int               `json:"scope_size"`
	Truncated  bool              `json:"truncated"`
	Summary    string            `json:"summary"`
	Seq        uint64            `json:"seq,omitempty"`
	Superseded bool              `json:"superseded,omitempty"`
}

// SelectionView is the selection state plus everything derived from it.
type SelectionView struct {
	keyword.Selection
	Node         *policy.Node           `json:"node,omitempty"`
	Resolution   *policy.RateResolution `json:"resolution,omitempty"`
	PriceDisplay string                 `json:"price_display"`
	Related      []reference.Entry      `json:"related"`
	RelatedTotal int                    `json:"related_total"`
}

type serviceImpl struct {
	data      DatasetProvider
	selection *keyword.Store
	sessions  *SearchSessions
	cfg       Config
	metrics   *prometheus.AppMetrics
	logger    logging.Logger
}

// NewService creates the dashboard service.
func NewService(data DatasetProvider, cfg Config, metrics *prometheus.AppMetrics, logger logging.Logger) Service {
	if cfg.BasePrice <= 0 {
		cfg.BasePrice = policy.DefaultBasePrice
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = reference.DefaultMaxRows
	}
	if metrics == nil {
		metrics = prometheus.NewNoopAppMetrics()
	}
	return &serviceImpl{
		data:      data,
		selection: keyword.NewStore(),
		sessions:  NewSearchSessions(cfg.Sessions),
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger.Named("dashboard"),
	}
}

func (s *serviceImpl) Tree(_ context.Context) (*TreeView, error) {
	tree, err := s.data.Tree()
	if err != nil {
		return nil, err
	}
	return &TreeView{
		Root:      tree.Root().ID,
		Nodes:     tree.Nodes(),
		Edges:     tree.Edges(),
		Omissions: tree.Omissions,
	}, nil
}

func (s *serviceImpl) Node(_ context.Context, id string) (*NodeDetail, error) {
	tree, err := s.data.Tree()
	if err != nil {
		return nil, err
	}
	node, ok := tree.Node(id)
	if !ok {
		return nil, errors.New(errors.ErrCodeNodeNotFound, "policy node not found").WithDetail(id)
	}
	path, err := tree.PathToRoot(id)
	if err != nil {
		return nil, err
	}
	pathNodes, err := tree.PathNodeIDs(id)
	if err != nil {
		return nil, err
	}

	d := &NodeDetail{
		Node:      node,
		Path:      path,
		PathNodes: pathNodes,
		Children:  tree.Children(id),
		Keywords:  keyword.Extract(node.CrossLinkPhrase()),
	}
	if node.Kind == policy.KindOutcome {
		r := s.resolve(node.RateExpression)
		est := policy.EstimatePrice(s.cfg.BasePrice, r)
		d.Resolution, d.Price = &r, &est
	}
	return d, nil
}

func (s *serviceImpl) Resolve(_ context.Context, input *ResolveInput) (*Resolution, error) {
	if input == nil {
		return nil, errors.InvalidParam("rate_expression is required")
	}
	base := s.cfg.BasePrice
	if input.BasePrice != nil {
		if *input.BasePrice < 0 {
			return nil, errors.InvalidParam("base_price must not be negative")
		}
		base = *input.BasePrice
	}
	r := s.resolve(input.RateExpression)
	return &Resolution{
		RateExpression: input.RateExpression,
		Resolution:     r,
		Price:          policy.EstimatePrice(base, r),
	}, nil
}

func (s *serviceImpl) resolve(expr string) policy.RateResolution {
	r := policy.ResolveRate(expr)
	s.metrics.RateResolutionsTotal.WithLabelValues(r.Rule.String()).Inc()
	if r.Unparseable() {
		s.logger.Debug("rate expression not recognised", logging.String("expression", expr))
	}
	return r
}

func (s *serviceImpl) Sections(_ context.Context) ([]reference.Section, error) {
	ref, err := s.data.Reference()
	if err != nil {
		return nil, err
	}
	return ref.Sections(), nil
}

func (s *serviceImpl) Search(_ context.Context, input *SearchInput) (*SearchResult, error) {
	if input == nil {
		input = &SearchInput{}
	}
	ref, err := s.data.Reference()
	if err != nil {
		return nil, err
	}
	if input.Section != "" {
		if _, ok := ref.Section(input.Section); !ok {
			return nil, errors.NotFound("reference section not found").WithDetail(input.Section)
		}
	}

	res := &SearchResult{Query: input.Query, Section: input.Section, Seq: input.Seq}
	var session *SearchSession
	if input.Seq != 0 {
		session = s.sessions.Get(input.Client)
	}
	if session != nil && !session.Submit(input.Seq) {
		res.Superseded = true
		res.Entries = []reference.Entry{}
		return res, nil
	}

	limit := input.Limit
	if limit <= 0 || limit > s.cfg.MaxRows {
		limit = s.cfg.MaxRows
	}

	start := time.Now()
	matches := ref.Search(input.Query, input.Section)
	shown, total := reference.Truncate(matches, limit)

	scope := "all"
	if input.Section != "" {
		scope = "section"
	}
	prometheus.RecordSearch(s.metrics, scope, total, len(shown) < total, time.Since(start))

	if session != nil && !session.Latest(input.Seq) {
		res.Superseded = true
		res.Entries = []reference.Entry{}
		return res, nil
	}

	if shown == nil {
		shown = []reference.Entry{}
	}
	res.Entries = shown
	res.Shown = len(shown)
	res.Total = total
	res.ScopeSize = ref.ScopeSize(input.Section)
	res.Truncated = len(shown) < total
	res.Summary = Summary(len(shown), total)
	return res, nil
}

// Summary renders the "showing N of M" indicator.
func Summary(shown, total int) string {
	if shown < total {
		return fmt.Sprintf("Showing %d of %d results", shown, total)
	}
	if total == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", total)
}

func (s *serviceImpl) Keywords(_ context.Context, phrase string) []string {
	kws := keyword.Extract(phrase)
	if kws == nil {
		return []string{}
	}
	return kws
}

func (s *serviceImpl) Selection(_ context.Context) (*SelectionView, error) {
	return s.view(s.selection.Current())
}

// Select selects an outcome node.  Any other node clears the selection, like
// a click on the background, and reports ErrCodeNodeNotSelectable.
func (s *serviceImpl) Select(_ context.Context, nodeID string) (*SelectionView, error) {
	tree, err := s.data.Tree()
	if err != nil {
		return nil, err
	}
	node, ok := tree.Node(strings.TrimSpace(nodeID))
	if !ok {
		return nil, errors.New(errors.ErrCodeNodeNotFound, "policy node not found").WithDetail(nodeID)
	}
	if node.Kind != policy.KindOutcome {
		s.selection.Reset()
		s.logger.Debug("selection cleared by non-outcome node", logging.String("node", node.ID))
		return nil, errors.New(errors.ErrCodeNodeNotSelectable, "only outcome nodes can be selected").WithDetail(nodeID)
	}
	s.metrics.NodeSelectionsTotal.WithLabelValues(string(node.Kind)).Inc()
	sel := s.selection.Select(node.ID, node.CrossLinkPhrase())
	s.logger.Debug("node selected", logging.String("node", node.ID), logging.Strings("keywords", sel.Keywords))
	return s.view(sel)
}

func (s *serviceImpl) ResetSelection(_ context.Context) (*SelectionView, error) {
	return s.view(s.selection.Reset())
}

// view derives the selection view.  A node that disappeared in a reload
// leaves the selection in place with no node details.
func (s *serviceImpl) view(sel keyword.Selection) (*SelectionView, error) {
	v := &SelectionView{
		Selection:    sel,
		PriceDisplay: policy.InitialPriceDisplay(s.cfg.BasePrice),
		Related:      []reference.Entry{},
	}
	if sel.Keywords == nil {
		v.Keywords = []string{}
	}
	if sel.State != keyword.Selected {
		return v, nil
	}

	tree, err := s.data.Tree()
	if err != nil {
		return nil, err
	}
	if node, ok := tree.Node(sel.NodeID); ok {
		v.Node = &node
		if node.Kind == policy.KindOutcome {
			r := policy.ResolveRate(node.RateExpression)
			v.Resolution = &r
			v.PriceDisplay = policy.EstimatePrice(s.cfg.BasePrice, r).Display
		}
	}

	ref, err := s.data.Reference()
	if err != nil {
		return nil, err
	}
	related := RelatedEntries(ref.Entries(), sel.Keywords)
	v.Related, v.RelatedTotal = reference.Truncate(related, s.cfg.MaxRows)
	return v, nil
}

// RelatedEntries keeps the entries whose code or description contains any
// keyword.
func RelatedEntries(entries []reference.Entry, keywords []string) []reference.Entry {
	out := []reference.Entry{}
	if len(keywords) == 0 {
		return out
	}
	for _, e := range entries {
		if keyword.MatchesAny(e.Description, keywords) || keyword.MatchesAny(e.Code, keywords) {
			out = append(out, e)
		}
	}
	return out
}
