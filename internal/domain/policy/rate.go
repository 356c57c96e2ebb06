package policy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// AppliesTo says which part of the customs value a rate is levied on.
type AppliesTo string

const (
	AppliesFullValue        AppliesTo = "full_value"
	AppliesNonUSContentOnly AppliesTo = "non_us_content_only"
)

// RateRule identifies which resolution rule produced a RateResolution.
// Rules are tried in ascending order; the first match wins.
type RateRule int

const (
	RuleNoTariffs RateRule = iota + 1
	RuleNonUSContent
	RuleFentanyl
	RuleFullCustomsValue
	RuleGenericPercent
	RuleFallback
)

func (r RateRule) String() string {
	switch r {
	case RuleNoTariffs:
		return "no_tariffs"
	case RuleNonUSContent:
		return "non_us_content"
	case RuleFentanyl:
		return "fentanyl"
	case RuleFullCustomsValue:
		return "full_customs_value"
	case RuleGenericPercent:
		return "generic_percent"
	case RuleFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// MarshalText renders the rule by name in JSON output.
func (r RateRule) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses a rule name written by MarshalText.
func (r *RateRule) UnmarshalText(b []byte) error {
	for rule := RuleNoTariffs; rule <= RuleFallback; rule++ {
		if rule.String() == string(b) {
			*r = rule
			return nil
		}
	}
	return fmt.Errorf("unknown rate rule %q", b)
}

// RateResolution is the structured reading of a rate expression.
// Percent is the integer percentage BaseRate was derived from.
type RateResolution struct {
	BaseRate  float64   `json:"base_rate"`
	AppliesTo AppliesTo `json:"applies_to"`
	Note      string    `json:"note"`
	Percent   int       `json:"percent"`
	Rule      RateRule  `json:"rule"`
}

// Unparseable reports whether the expression fell through to the fallback.
func (r RateResolution) Unparseable() bool { return r.Rule == RuleFallback }

var (
	reNonUSContent = regexp.MustCompile(`(?i)US\sContent\sIs\sTariff\sFree;\sNon-US\sContent\sTariffed\sat\s(\d+)%`)
	reFentanyl     = regexp.MustCompile(`(?i)(\d+)%\sFentanyl\sTariff`)
	reFullValue    = regexp.MustCompile(`(?i)(\d+)%\sTariff\son\sFull\sCustoms\sValue`)
	reGeneric      = regexp.MustCompile(`(?i)(\d+)%\sTariff(?:\s|$)`)
)

// NonUSContentNote is the explanation attached to rule 2 results.  The
// example price assumes the good is 100% non-US content.
func NonUSContentNote(percent int) string {
	return fmt.Sprintf("Non-US content tariffed at %d%%; US content tariff-free. Example assumes 100%% non-US content.", percent)
}

type percentRule struct {
	rule      RateRule
	re        *regexp.Regexp
	appliesTo AppliesTo
	note      func(percent int) string
}

var percentRules = []percentRule{
	{RuleNonUSContent, reNonUSContent, AppliesNonUSContentOnly, NonUSContentNote},
	{RuleFentanyl, reFentanyl, AppliesFullValue, func(p int) string { return fmt.Sprintf("%d%% Fentanyl Tariff", p) }},
	{RuleFullCustomsValue, reFullValue, AppliesFullValue, func(int) string { return "on full customs value" }},
	{RuleGenericPercent, reGeneric, AppliesFullValue, func(int) string { return "" }},
}

// ResolveRate maps a rate expression to a RateResolution.  It is total:
// text matching no rule resolves to a zero rate whose note quotes the
// original text.  A percentage too large for an int skips its rule.
func ResolveRate(expr string) RateResolution {
	if strings.Contains(strings.ToLower(expr), "no tariffs") {
		return RateResolution{AppliesTo: AppliesFullValue, Note: "No Tariffs", Rule: RuleNoTariffs}
	}

	for _, r := range percentRules {
		m := r.re.FindStringSubmatch(expr)
		if m == nil {
			continue
		}
		pct, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return RateResolution{
			BaseRate:  float64(pct) / 100,
			AppliesTo: r.appliesTo,
			Note:      r.note(pct),
			Percent:   pct,
			Rule:      r.rule,
		}
	}

	return RateResolution{
		AppliesTo: AppliesFullValue,
		Note:      `Tariff info: "` + expr + `"`,
		Rule:      RuleFallback,
	}
}
