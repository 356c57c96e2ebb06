package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haebom/tariff/pkg/errors"
)

func TestDefaultTree_Shape(t *testing.T) {
	tree, err := DefaultTree()
	require.NoError(t, err)

	assert.Equal(t, 25, tree.Len())
	assert.Len(t, tree.Edges(), 24)
	assert.Empty(t, tree.Omissions)

	root := tree.Root()
	assert.Equal(t, KindRoot, root.Kind)
	assert.Equal(t, DefaultRootLabel, root.Label)

	var countries []string
	for _, e := range tree.Children(RootID) {
		n, ok := tree.Node(e.Target)
		require.True(t, ok)
		assert.Equal(t, KindCountry, n.Kind)
		countries = append(countries, n.Label)
	}
	assert.Equal(t, []string{"China", "Canada/Mexico", "All Other Regions"}, countries)
	assert.Len(t, tree.Outcomes(), 14)
}

func TestDefaultTree_EveryNonRootHasOneParent(t *testing.T) {
	tree, err := DefaultTree()
	require.NoError(t, err)

	incoming := make(map[string]int)
	for _, e := range tree.Edges() {
		incoming[e.Target]++
	}
	for _, n := range tree.Nodes() {
		if n.Kind == KindRoot {
			assert.Zero(t, incoming[n.ID])
			continue
		}
		assert.Equal(t, 1, incoming[n.ID], n.ID)
	}
}

func TestDefaultTree_ChinaBranch(t *testing.T) {
	tree, err := DefaultTree()
	require.NoError(t, err)

	q, ok := tree.Node("china/april_11_exemption")
	require.True(t, ok)
	assert.Equal(t, KindQuestion, q.Kind)
	assert.Equal(t, "April 11th Exemption?", q.Label)

	children := tree.Children(q.ID)
	require.Len(t, children, 2)
	assert.Equal(t, BranchNo, children[0].BranchLabel)
	assert.Equal(t, BranchYes, children[1].BranchLabel)

	no, ok := tree.Node("china/april_11_exemption/no")
	require.True(t, ok)
	assert.Equal(t, KindOutcome, no.Kind)
	assert.Equal(t, "145% Tariff", no.Label)
	assert.Equal(t, "145% Tariff", no.RateExpression)
	assert.Equal(t, "China 145% Tariff", no.Keyword)

	// An outcome may carry a follow-up question.
	follow := tree.Children(no.ID)
	require.Len(t, follow, 1)
	fq, _ := tree.Node(follow[0].Target)
	assert.Equal(t, ">20% of Content from US?", fq.Label)
}

func TestPathToRoot(t *testing.T) {
	tree, err := DefaultTree()
	require.NoError(t, err)

	id := "canada_mexico/usmca_compliant/no/april_11_exemption/no/us_content_over_20_percent/yes"
	path, err := tree.PathToRoot(id)
	require.NoError(t, err)
	require.Len(t, path, 7)

	assert.Equal(t, RootID, path[0].Source)
	assert.Equal(t, "canada_mexico", path[0].Target)
	assert.Equal(t, id, path[len(path)-1].Target)
	for i := 1; i < len(path); i++ {
		assert.Equal(t, path[i-1].Target, path[i].Source)
	}
	assert.Equal(t, BranchNo, path[2].BranchLabel)
	assert.Equal(t, BranchYes, path[6].BranchLabel)

	ids, err := tree.PathNodeIDs(id)
	require.NoError(t, err)
	assert.Len(t, ids, 8)
	assert.Equal(t, RootID, ids[0])

	rootPath, err := tree.PathToRoot(RootID)
	require.NoError(t, err)
	assert.Empty(t, rootPath)

	_, err = tree.PathToRoot("atlantis")
	assert.True(t, errors.IsCode(err, errors.ErrCodeNodeNotFound))
}

func TestLoadTree_LoadErrors(t *testing.T) {
	cases := map[string]string{
		"invalid json":   `{"china": `,
		"array root":     `[1,2,3]`,
		"string root":    `"china"`,
		"empty object":   `{}`,
		"no usable keys": `{"china": 42, "mexico": "25% Tariff"}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			tree, err := LoadTree([]byte(doc))
			assert.Nil(t, tree)
			require.Error(t, err)
			assert.True(t, errors.IsLoadError(err))
			assert.True(t, errors.IsCode(err, errors.ErrCodePolicyLoad))
		})
	}
}

func TestLoadTree_PartialBranchesAreOmitted(t *testing.T) {
	doc := `{
	  "vietnam": {
	    "label": "Vietnam",
	    "april_11_exemption": {
	      "no": {"keyword": "missing rate"},
	      "yes": "No Tariffs",
	      "maybe": "10% Tariff"
	    },
	    "usmca_compliant": "not an object",
	    "quota_system": {"yes": "5% Tariff"}
	  },
	  "korea": {"label": "Korea", "us_content_over_20_percent": {"no": {}, "yes": {}}},
	  "bad": []
	}`

	tree, err := LoadTree([]byte(doc))
	require.NoError(t, err)

	_, ok := tree.Node("vietnam/april_11_exemption/no")
	assert.False(t, ok, "outcome without rate is omitted")
	yes, ok := tree.Node("vietnam/april_11_exemption/yes")
	require.True(t, ok)
	assert.Equal(t, "No Tariffs", yes.RateExpression)

	_, ok = tree.Node("vietnam/usmca_compliant")
	assert.False(t, ok)
	_, ok = tree.Node("korea/us_content_over_20_percent")
	assert.False(t, ok, "question with no usable branch is dropped")

	korea, ok := tree.Node("korea")
	require.True(t, ok, "a country with no usable conditions is still a country")
	assert.Empty(t, tree.Children(korea.ID))

	_, ok = tree.Node("bad")
	assert.False(t, ok)

	paths := make(map[string]bool)
	for _, o := range tree.Omissions {
		paths[o.Path] = true
	}
	for _, p := range []string{
		"vietnam/april_11_exemption/no",
		"vietnam/april_11_exemption/maybe",
		"vietnam/usmca_compliant",
		"vietnam/quota_system",
		"korea/us_content_over_20_percent",
		"bad",
	} {
		assert.True(t, paths[p], "expected omission at %s", p)
	}
}

func TestLoadTree_RateFieldVariants(t *testing.T) {
	doc := `{
	  "Japan": {
	    "base_tariff_rate": 24,
	    "keyword": "Japan reciprocal",
	    "special_provisions": [
	      {"rate": "No Tariffs", "label": "Pharmaceuticals", "keyword": "pharma"},
	      {"label": "broken"},
	      "10% Tariff"
	    ]
	  },
	  "Free Zone": {"rate": 0},
	  "canada": {"usmca_compliant_products": {"yes": {"base_tariff_rate": "No Tariffs"}, "no": 35}}
	}`

	tree, err := LoadTree([]byte(doc), WithRootLabel("Goods From"))
	require.NoError(t, err)
	assert.Equal(t, "Goods From", tree.Root().Label)

	base, ok := tree.Node("japan/base")
	require.True(t, ok)
	assert.Equal(t, "24% Tariff", base.RateExpression)
	assert.Equal(t, "Japan reciprocal", base.Keyword)

	p0, ok := tree.Node("japan/special_provisions/0")
	require.True(t, ok)
	assert.Equal(t, "Pharmaceuticals", p0.Label)
	assert.Equal(t, "No Tariffs", p0.RateExpression)
	edge, _ := tree.Parent(p0.ID)
	assert.Equal(t, BranchSpecial, edge.BranchLabel)

	_, ok = tree.Node("japan/special_provisions/1")
	assert.False(t, ok)
	_, ok = tree.Node("japan/special_provisions/2")
	assert.True(t, ok)

	free, ok := tree.Node("free-zone/base")
	require.True(t, ok)
	assert.Equal(t, "No Tariffs", free.RateExpression)

	q, ok := tree.Node("canada/usmca_compliant")
	require.True(t, ok, "alias normalised to canonical condition")
	assert.Equal(t, "USMCA Compliant?", q.Label)
	no, ok := tree.Node("canada/usmca_compliant/no")
	require.True(t, ok)
	assert.Equal(t, "35% Tariff", no.RateExpression)
}

func TestLoadTree_FractionalNumericRateIsOmitted(t *testing.T) {
	doc := `{
	  "Japan": {"base_tariff_rate": 2.5},
	  "Korea": {"base_tariff_rate": 0.25},
	  "Vietnam": {"base_tariff_rate": 46.0},
	  "Chile": {"usmca_compliant_products": {"yes": -5, "no": 10}}
	}`

	tree, err := LoadTree([]byte(doc))
	require.NoError(t, err)

	_, ok := tree.Node("japan/base")
	assert.False(t, ok)
	_, ok = tree.Node("korea/base")
	assert.False(t, ok)

	vn, ok := tree.Node("vietnam/base")
	require.True(t, ok)
	assert.Equal(t, "46% Tariff", vn.RateExpression)
	assert.InDelta(t, 0.46, ResolveRate(vn.RateExpression).BaseRate, 1e-9)

	_, ok = tree.Node("chile/usmca_compliant/yes")
	assert.False(t, ok)
	_, ok = tree.Node("chile/usmca_compliant/no")
	assert.True(t, ok)

	var reasons []string
	for _, o := range tree.Omissions {
		reasons = append(reasons, o.Path+": "+o.Reason)
	}
	assert.Contains(t, reasons, "japan/base: rate 2.5 is not a whole percentage")
	assert.Contains(t, reasons, "korea/base: rate 0.25 is not a whole percentage")
	assert.Contains(t, reasons, "chile/usmca_compliant/yes: rate -5 is not a whole percentage")
}

func TestNode_CrossLinkPhrase(t *testing.T) {
	assert.Equal(t, "China 145% Tariff", Node{Label: "145% Tariff", Keyword: "China 145% Tariff"}.CrossLinkPhrase())
	assert.Equal(t, "China", Node{Label: "China"}.CrossLinkPhrase())
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "china", slug("China"))
	assert.Equal(t, "canada-mexico", slug("Canada / Mexico"))
	assert.Equal(t, "other_regions", slug("other_regions"))
	assert.Equal(t, "", slug("  !! "))
}
