package nbu

import (
	"fmt"
	"strings"
)

// formatLimit caps how many currencies a formatted block may contain before
// the remainder is summarized.
const formatLimit = 30

// FormatForModel renders rates as plain text suitable for feeding back to the
// model as a tool result.
func FormatForModel(rates []Rate) string {
	if len(rates) == 0 {
		return "No currency data available for the specified parameters."
	}
	if len(rates) == 1 {
		r := rates[0]
		return fmt.Sprintf("Currency rate from National Bank of Ukraine as of %s:\n%s (%s): %g UAH",
			r.ExchangeDate, r.Text, r.Code, r.Rate)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Currency rates from National Bank of Ukraine as of %s:\n", rates[0].ExchangeDate)
	max := len(rates)
	if max > formatLimit {
		max = formatLimit
	}
	for i := 0; i < max; i++ {
		r := rates[i]
		fmt.Fprintf(&b, "%s (%s): %g UAH\n", r.Text, r.Code, r.Rate)
	}
	if len(rates) > formatLimit {
		fmt.Fprintf(&b, "... and %d more currencies\n", len(rates)-formatLimit)
	}
	return strings.TrimRight(b.String(), "\n")
}
