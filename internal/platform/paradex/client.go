// Package paradex is a read-only REST client for the Paradex market summary
// endpoint.
package paradex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// Venue is the identifier reported in samples and metrics.
const Venue = "paradex"

// Client fetches market summaries from Paradex.
type Client struct {
	baseURL    string
	suffix     string
	httpClient *http.Client
}

// NewClient creates a client for baseURL (e.g.
// "https://api.prod.paradex.trade/v1"). suffix is appended to a bare symbol
// to form the market name, so "HYPE" with "-USD-PERP" queries HYPE-USD-PERP.
func NewClient(baseURL, suffix string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		suffix:  suffix,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name returns the venue identifier.
func (c *Client) Name() string { return Venue }

// Market returns the Paradex market name for symbol.
func (c *Client) Market(symbol string) string {
	return strings.ToUpper(symbol) + c.suffix
}

type marketSummary struct {
	Symbol       string `json:"symbol"`
	BestBid      string `json:"best_bid"`
	BestAsk      string `json:"best_ask"`
	LastPrice    string `json:"last_traded_price"`
	LegacyLast   string `json:"last_price"`
	MarkPrice    string `json:"mark_price"`
	FundingRate  string `json:"funding_rate"`
	OpenInterest string `json:"open_interest"`
	CreatedAt    int64  `json:"created_at"`
}

type summaryResponse struct {
	Results []marketSummary `json:"results"`
}

// Quote returns top of book and last price for symbol. The first result whose
// market name starts with symbol is used.
func (c *Client) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	q := url.Values{}
	q.Set("market", c.Market(symbol))

	var resp summaryResponse
	if err := c.get(ctx, "/markets/summary", q, &resp); err != nil {
		return domain.Quote{}, fmt.Errorf("paradex: quote %s: %w", symbol, err)
	}

	prefix := strings.ToUpper(symbol)
	for _, s := range resp.Results {
		if !strings.HasPrefix(strings.ToUpper(s.Symbol), prefix) {
			continue
		}
		quote, err := quoteFromSummary(s)
		if err != nil {
			return domain.Quote{}, fmt.Errorf("paradex: quote %s: %w", symbol, err)
		}
		return quote, nil
	}
	return domain.Quote{}, fmt.Errorf("paradex: quote %s: %w", symbol, domain.ErrNotFound)
}

func quoteFromSummary(s marketSummary) (domain.Quote, error) {
	var q domain.Quote
	var err error
	if q.Bid, err = domain.ParseOptionalPrice(s.BestBid); err != nil {
		return domain.Quote{}, fmt.Errorf("best_bid: %w", err)
	}
	if q.Ask, err = domain.ParseOptionalPrice(s.BestAsk); err != nil {
		return domain.Quote{}, fmt.Errorf("best_ask: %w", err)
	}
	last := s.LastPrice
	if last == "" {
		last = s.LegacyLast
	}
	if q.Last, err = domain.ParseOptionalPrice(last); err != nil {
		return domain.Quote{}, fmt.Errorf("last price: %w", err)
	}
	return q, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(msg))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
