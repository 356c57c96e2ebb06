package dashboard

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haebom/tariff/internal/domain/keyword"
	"github.com/haebom/tariff/internal/domain/policy"
	"github.com/haebom/tariff/internal/domain/reference"
	"github.com/haebom/tariff/internal/infrastructure/monitoring/logging"
	"github.com/haebom/tariff/pkg/errors"
)

const sectionsCSV = `section,name
I,live animals
II,vegetable products
III,base metals
`

const entriesCSV = `section,hscode,description,parent,level
I,01,Animals; live,TOTAL,2
I,0101,Horses; live,01,4
I,0102,Bovine animals; live,01,4
II,06,Trees; live,TOTAL,2
II,0601,Bulbs and tubers,06,4
II,10,Cereals,TOTAL,2
III,72,Iron and steel,TOTAL,2
III,7208,Flat-rolled steel products,72,4
III,76,Aluminium and articles thereof,TOTAL,2
III,7601,Unwrought aluminium,76,4
`

type staticData struct {
	tree *policy.Tree
	ref  *reference.Dataset
}

func (d staticData) Tree() (*policy.Tree, error) {
	if d.tree == nil {
		return nil, errors.Unavailable("datasets not loaded")
	}
	return d.tree, nil
}

func (d staticData) Reference() (*reference.Dataset, error) {
	if d.ref == nil {
		return nil, errors.Unavailable("datasets not loaded")
	}
	return d.ref, nil
}

func newTestService(t *testing.T, cfg Config) Service {
	t.Helper()
	tree, err := policy.DefaultTree()
	require.NoError(t, err)
	ref, err := reference.LoadReferenceData(strings.NewReader(sectionsCSV), strings.NewReader(entriesCSV))
	require.NoError(t, err)
	return NewService(staticData{tree: tree, ref: ref}, cfg, nil, logging.NewNopLogger())
}

func TestTree(t *testing.T) {
	svc := newTestService(t, Config{})
	view, err := svc.Tree(context.Background())
	require.NoError(t, err)
	assert.Equal(t, policy.RootID, view.Root)
	assert.Len(t, view.Edges, len(view.Nodes)-1)
}

func TestNode_OutcomeIsResolved(t *testing.T) {
	svc := newTestService(t, Config{})
	d, err := svc.Node(context.Background(), "china/april_11_exemption/no")
	require.NoError(t, err)

	require.NotNil(t, d.Resolution)
	require.NotNil(t, d.Price)
	assert.Equal(t, policy.KindOutcome, d.Node.Kind)
	assert.NotEmpty(t, d.Keywords)
	assert.Equal(t, policy.RootID, d.PathNodes[0])
	assert.Equal(t, d.Node.ID, d.PathNodes[len(d.PathNodes)-1])
	assert.Len(t, d.Path, len(d.PathNodes)-1)
}

func TestNode_NotFound(t *testing.T) {
	svc := newTestService(t, Config{})
	_, err := svc.Node(context.Background(), "atlantis")
	assert.True(t, errors.IsCode(err, errors.ErrCodeNodeNotFound))
}

func TestResolve(t *testing.T) {
	svc := newTestService(t, Config{BasePrice: 200})

	r, err := svc.Resolve(context.Background(), &ResolveInput{RateExpression: "25% Tariff"})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, r.Resolution.BaseRate, 1e-9)
	assert.InDelta(t, 250.0, r.Price.FinalPrice, 1e-9)

	base := 100.0
	r, err = svc.Resolve(context.Background(), &ResolveInput{RateExpression: "Completely unrelated text", BasePrice: &base})
	require.NoError(t, err)
	assert.True(t, r.Resolution.Unparseable())
	assert.InDelta(t, 100.0, r.Price.FinalPrice, 1e-9)

	neg := -1.0
	_, err = svc.Resolve(context.Background(), &ResolveInput{RateExpression: "25% Tariff", BasePrice: &neg})
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestSearch_TruncatesAndSummarises(t *testing.T) {
	svc := newTestService(t, Config{MaxRows: 5})

	res, err := svc.Search(context.Background(), &SearchInput{})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Shown)
	assert.Equal(t, 10, res.Total)
	assert.True(t, res.Truncated)
	assert.Equal(t, "Showing 5 of 10 results", res.Summary)
	assert.Equal(t, "01", res.Entries[0].Code)

	res, err = svc.Search(context.Background(), &SearchInput{Query: "steel or aluminium", Section: "III"})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 4, res.ScopeSize)
	assert.False(t, res.Truncated)

	res, err = svc.Search(context.Background(), &SearchInput{Query: "a.b*c"})
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	assert.NotNil(t, res.Entries)
	assert.Equal(t, "0 results", res.Summary)
}

func TestSearch_UnknownSection(t *testing.T) {
	svc := newTestService(t, Config{})
	_, err := svc.Search(context.Background(), &SearchInput{Section: "IX"})
	assert.True(t, errors.IsNotFound(err))
}

func TestSearch_StaleSequenceIsSuperseded(t *testing.T) {
	svc := newTestService(t, Config{})

	res, err := svc.Search(context.Background(), &SearchInput{Query: "live", Seq: 2})
	require.NoError(t, err)
	assert.False(t, res.Superseded)
	assert.NotEmpty(t, res.Entries)

	res, err = svc.Search(context.Background(), &SearchInput{Query: "li", Seq: 1})
	require.NoError(t, err)
	assert.True(t, res.Superseded)
	assert.Empty(t, res.Entries)

	res, err = svc.Search(context.Background(), &SearchInput{Query: "live", Seq: 2})
	require.NoError(t, err)
	assert.False(t, res.Superseded, "repeating the newest sequence is allowed")
}

func TestKeywords(t *testing.T) {
	svc := newTestService(t, Config{})
	assert.Equal(t, []string{"china"}, svc.Keywords(context.Background(), "China 145% Tariff"))
	assert.Equal(t, []string{}, svc.Keywords(context.Background(), ""))
}

func TestSearch_SequencesArePerClient(t *testing.T) {
	svc := newTestService(t, Config{})
	ctx := context.Background()

	a, err := svc.Search(ctx, &SearchInput{Query: "live", Seq: 1000, Client: "a"})
	require.NoError(t, err)
	assert.False(t, a.Superseded)

	for _, seq := range []uint64{1, 2} {
		b, err := svc.Search(ctx, &SearchInput{Query: "live", Seq: seq, Client: "b"})
		require.NoError(t, err)
		assert.False(t, b.Superseded, "seq %d", seq)
		assert.NotEmpty(t, b.Entries)
	}

	b, err := svc.Search(ctx, &SearchInput{Query: "li", Seq: 1, Client: "b"})
	require.NoError(t, err)
	assert.True(t, b.Superseded)

	a, err = svc.Search(ctx, &SearchInput{Query: "li", Seq: 999, Client: "a"})
	require.NoError(t, err)
	assert.True(t, a.Superseded)
}

func TestSearchSessions_EvictsLeastRecentlyUsed(t *testing.T) {
	s := NewSearchSessions(2)
	s.Get("a").Submit(10)
	s.Get("b").Submit(10)
	s.Get("a")
	s.Get("c")
	assert.Equal(t, 2, s.Len())

	assert.False(t, s.Get("a").Submit(9), "a was kept")
	assert.True(t, s.Get("b").Submit(1), "b was evicted and starts over")
}

func TestSelection_Lifecycle(t *testing.T) {
	svc := newTestService(t, Config{})
	ctx := context.Background()

	v, err := svc.Selection(ctx)
	require.NoError(t, err)
	assert.Equal(t, keyword.Unselected, v.State)
	assert.Equal(t, policy.InitialPriceDisplay(policy.DefaultBasePrice), v.PriceDisplay)
	assert.Empty(t, v.Keywords)

	a, err := svc.Select(ctx, "china/april_11_exemption/no")
	require.NoError(t, err)
	assert.Equal(t, keyword.Selected, a.State)
	require.NotNil(t, a.Resolution)
	assert.NotEqual(t, policy.InitialPriceDisplay(policy.DefaultBasePrice), a.PriceDisplay)

	b, err := svc.Select(ctx, "canada_mexico/usmca_compliant/no")
	require.NoError(t, err)
	node := b.Node
	require.NotNil(t, node)
	assert.Equal(t, keyword.Extract(node.CrossLinkPhrase()), b.Keywords)
	assert.Equal(t, []string{"canada/mexico", "non", "usmca"}, b.Keywords)
	require.NotNil(t, b.Resolution)
	assert.Greater(t, b.Version, a.Version)

	r, err := svc.ResetSelection(ctx)
	require.NoError(t, err)
	assert.Equal(t, keyword.Unselected, r.State)
	assert.Empty(t, r.Keywords)
	assert.Empty(t, r.Related)
}

func TestSelect_NonOutcomeNodeClearsSelection(t *testing.T) {
	svc := newTestService(t, Config{})
	ctx := context.Background()

	for _, id := range []string{"china", "china/april_11_exemption", policy.RootID} {
		_, err := svc.Select(ctx, "china/april_11_exemption/no")
		require.NoError(t, err)

		_, err = svc.Select(ctx, id)
		assert.True(t, errors.IsCode(err, errors.ErrCodeNodeNotSelectable), id)

		v, err := svc.Selection(ctx)
		require.NoError(t, err)
		assert.Equal(t, keyword.Unselected, v.State, id)
		assert.Empty(t, v.Keywords, id)
		assert.Equal(t, policy.InitialPriceDisplay(policy.DefaultBasePrice), v.PriceDisplay, id)
	}
}

func TestSelect_Errors(t *testing.T) {
	svc := newTestService(t, Config{})
	_, err := svc.Select(context.Background(), policy.RootID)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNodeNotSelectable))

	_, err = svc.Select(context.Background(), "nowhere")
	assert.True(t, errors.IsCode(err, errors.ErrCodeNodeNotFound))
}

func TestService_NotLoaded(t *testing.T) {
	svc := NewService(staticData{}, Config{}, nil, logging.NewNopLogger())
	_, err := svc.Tree(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
	_, err = svc.Search(context.Background(), nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
}

func TestRelatedEntries(t *testing.T) {
	ref, err := reference.LoadReferenceData(strings.NewReader(sectionsCSV), strings.NewReader(entriesCSV))
	require.NoError(t, err)

	got := RelatedEntries(ref.Entries(), []string{"steel", "horses"})
	codes := make([]string, len(got))
	for i, e := range got {
		codes[i] = e.Code
	}
	assert.Equal(t, []string{"0101", "72", "7208"}, codes)
	assert.Empty(t, RelatedEntries(ref.Entries(), nil))
}

func TestSearchSession_Concurrent(t *testing.T) {
	s := NewSearchSession()
	var wg sync.WaitGroup
	for i := uint64(1); i <= 100; i++ {
		wg.Add(1)
		go func(seq uint64) {
			defer wg.Done()
			s.Submit(seq)
		}(i)
	}
	wg.Wait()
	assert.True(t, s.Latest(100))
	assert.False(t, s.Submit(99))
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "Showing 50 of 120 results", Summary(50, 120))
	assert.Equal(t, "1 result", Summary(1, 1))
	assert.Equal(t, "7 results", Summary(7, 7))
}
