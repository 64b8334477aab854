// Package nbu talks to the National Bank of Ukraine open-data API.
// Docs: https://bank.gov.ua/ua/open-data/api-dev
package nbu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const dateLayout = "20060102"

// Rate is a single exchange-rate entry as returned by the NBU API.
// Rates are quoted against the Ukrainian Hryvnia (UAH).
type Rate struct {
	R030         int     `json:"r030"`
	Text         string  `json:"txt"`
	Rate         float64 `json:"rate"`
	Code         string  `json:"cc"`
	ExchangeDate string  `json:"exchangedate"`
}

// APIError wraps failures from the NBU API so callers can map them to 503s.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return "nbu api: " + e.Message
}

type Client struct {
	http *resty.Client
}

func NewClient(baseURL string) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(30 * time.Second)
	return &Client{http: c}
}

// FetchRates returns exchange rates for the given currency code and date.
// Empty valcode returns all currencies; empty date returns today's rates.
// Date must be in YYYYMMDD format.
func (c *Client) FetchRates(ctx context.Context, valcode, date string) ([]Rate, error) {
	req := c.http.R().SetContext(ctx).SetQueryParam("json", "")
	if v := strings.TrimSpace(valcode); v != "" {
		req.SetQueryParam("valcode", strings.ToUpper(v))
	}
	if d := strings.TrimSpace(date); d != "" {
		if _, err := time.Parse(dateLayout, d); err != nil {
			return nil, fmt.Errorf("invalid date %q: expected YYYYMMDD", d)
		}
		req.SetQueryParam("date", d)
	}

	resp, err := req.Get("/statdirectory/exchange")
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("request failed: %v", err)}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &APIError{Message: fmt.Sprintf("unexpected status %d", resp.StatusCode())}
	}

	var rates []Rate
	if err := json.Unmarshal(resp.Body(), &rates); err != nil {
		return nil, &APIError{Message: fmt.Sprintf("unexpected response format: %v", err)}
	}
	return rates, nil
}

// maxRangeDays caps how many daily lookups a range query may fan out into.
const maxRangeDays = 31

// FetchRateRange returns daily rates for each day in [start, end], both in
// YYYYMMDD format. The NBU exchange endpoint serves one day per call, so the
// range is walked day by day.
func (c *Client) FetchRateRange(ctx context.Context, valcode, start, end string) ([]Rate, error) {
	from, err := time.Parse(dateLayout, strings.TrimSpace(start))
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: expected YYYYMMDD", start)
	}
	to, err := time.Parse(dateLayout, strings.TrimSpace(end))
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: expected YYYYMMDD", end)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("end date %s is before start date %s", end, start)
	}
	if int(to.Sub(from).Hours()/24)+1 > maxRangeDays {
		return nil, fmt.Errorf("date range too wide: at most %d days per query", maxRangeDays)
	}

	var out []Rate
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		rates, err := c.FetchRates(ctx, valcode, d.Format(dateLayout))
		if err != nil {
			return nil, err
		}
		out = append(out, rates...)
	}
	return out, nil
}
