package policy

import (
	"fmt"
	"strconv"
)

// DefaultBasePrice is the illustrative pre-tariff price of a good.
const DefaultBasePrice = 100.0

// PriceEstimate is the illustrative price impact of a resolved rate.
type PriceEstimate struct {
	BasePrice  float64 `json:"base_price"`
	FinalPrice float64 `json:"final_price"`
	Display    string  `json:"display"`
}

// InitialPriceDisplay is the text shown while nothing is selected.
func InitialPriceDisplay(basePrice float64) string {
	return "$" + strconv.FormatFloat(basePrice, 'f', -1, 64) +
		" (Click a final tariff result node to see the estimated price)"
}

// EstimatePrice applies r to basePrice.  The final price is
// basePrice * (1 + BaseRate) for every rule; rule 2 keeps the 100% non-US
// content assumption.
func EstimatePrice(basePrice float64, r RateResolution) PriceEstimate {
	final := basePrice * (1 + r.BaseRate)
	est := PriceEstimate{BasePrice: basePrice, FinalPrice: final}

	base := money(basePrice)
	switch r.Rule {
	case RuleNoTariffs:
		est.Display = fmt.Sprintf("%s (No Tariffs)", base)
	case RuleNonUSContent:
		est.Display = fmt.Sprintf("%s → %s (%s)", base, money(final), r.Note)
	case RuleFentanyl:
		est.Display = fmt.Sprintf("%s + %d%% Fentanyl Tariff = %s", base, r.Percent, money(final))
	case RuleFullCustomsValue:
		est.Display = fmt.Sprintf("%s + %d%% Tariff = %s (on full customs value)", base, r.Percent, money(final))
	case RuleGenericPercent:
		est.Display = fmt.Sprintf("%s + %d%% Tariff = %s", base, r.Percent, money(final))
	default:
		est.Display = fmt.Sprintf("%s (%s)", base, r.Note)
	}
	return est
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
