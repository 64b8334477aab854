package agent

import "strings"

var currencyKeywords = []string{
	// Currency codes the NBU publishes daily
	"usd", "eur", "gbp", "jpy", "chf", "cad", "aud", "pln", "czk", "uah",
	// Currency names
	"dollar", "euro", "pound", "yen", "franc", "zloty", "hryvnia",
	// Rate vocabulary
	"exchange rate", "currency", "rate", "rates",
}

// DetectCurrencyIntent performs simple keyword heuristics for currency-rate
// questions. The model itself decides tool use via function calling; this is
// used to spot currency-like messages that were answered without the tool.
func DetectCurrencyIntent(message string) bool {
	m := strings.ToLower(strings.TrimSpace(message))
	if m == "" {
		return false
	}
	return containsAny(m, currencyKeywords)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
