package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRate_Rules(t *testing.T) {
	cases := []struct {
		name      string
		expr      string
		rate      float64
		appliesTo AppliesTo
		note      string
		rule      RateRule
	}{
		{"no tariffs", "No Tariffs", 0, AppliesFullValue, "No Tariffs", RuleNoTariffs},
		{"no tariffs lower case", "no tariffs apply", 0, AppliesFullValue, "No Tariffs", RuleNoTariffs},
		{"non-us content", "US Content Is Tariff Free; Non-US Content Tariffed at 10%", 0.10, AppliesNonUSContentOnly, NonUSContentNote(10), RuleNonUSContent},
		{"fentanyl", "20% Fentanyl Tariff", 0.20, AppliesFullValue, "20% Fentanyl Tariff", RuleFentanyl},
		{"full customs value", "145% Tariff on Full Customs Value", 1.45, AppliesFullValue, "on full customs value", RuleFullCustomsValue},
		{"generic", "25% Tariff", 0.25, AppliesFullValue, "", RuleGenericPercent},
		{"generic mid-sentence", "a 10% tariff applies", 0.10, AppliesFullValue, "", RuleGenericPercent},
		{"case insensitive", "us content is tariff free; non-us content tariffed at 145%", 1.45, AppliesNonUSContentOnly, NonUSContentNote(145), RuleNonUSContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveRate(tc.expr)
			assert.InDelta(t, tc.rate, got.BaseRate, 1e-9)
			assert.Equal(t, tc.appliesTo, got.AppliesTo)
			assert.Equal(t, tc.note, got.Note)
			assert.Equal(t, tc.rule, got.Rule)
		})
	}
}

func TestResolveRate_OrderMatters(t *testing.T) {
	// Also contains "Tariffed at 10%" and "Tariff Free", but rule 2 wins.
	got := ResolveRate("US Content Is Tariff Free; Non-US Content Tariffed at 10%")
	assert.Equal(t, RuleNonUSContent, got.Rule)
	assert.Equal(t, AppliesNonUSContentOnly, got.AppliesTo)

	// Rule 4 text also satisfies the generic pattern.
	got = ResolveRate("25% Tariff on Full Customs Value")
	assert.Equal(t, RuleFullCustomsValue, got.Rule)

	// "no tariffs" beats any percentage.
	got = ResolveRate("No Tariffs (previously 25% Tariff)")
	assert.Equal(t, RuleNoTariffs, got.Rule)
	assert.Zero(t, got.BaseRate)
}

func TestResolveRate_Fallback(t *testing.T) {
	for _, expr := range []string{"Completely unrelated text", "", "25 % Tariff", "Tariff: 25", "TBD"} {
		got := ResolveRate(expr)
		assert.Zero(t, got.BaseRate, expr)
		assert.Equal(t, AppliesFullValue, got.AppliesTo)
		assert.Equal(t, `Tariff info: "`+expr+`"`, got.Note)
		assert.True(t, got.Unparseable())
	}
}

func TestResolveRate_OverflowFallsThrough(t *testing.T) {
	got := ResolveRate("99999999999999999999999% Tariff")
	assert.Equal(t, RuleFallback, got.Rule)
}

func TestResolveRate_Deterministic(t *testing.T) {
	for _, expr := range []string{"145% Tariff", "No Tariffs", "junk", "20% Fentanyl Tariff"} {
		assert.Equal(t, ResolveRate(expr), ResolveRate(expr))
	}
}

func TestRateRule_String(t *testing.T) {
	assert.Equal(t, "fallback", RuleFallback.String())
	assert.Equal(t, "unknown", RateRule(0).String())
	b, err := RuleFentanyl.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "fentanyl", string(b))
}

func TestRateRule_TextRoundTrip(t *testing.T) {
	b, err := RuleFentanyl.MarshalText()
	require.NoError(t, err)
	var r RateRule
	require.NoError(t, r.UnmarshalText(b))
	assert.Equal(t, RuleFentanyl, r)
	assert.Error(t, r.UnmarshalText([]byte("bogus")))
}
