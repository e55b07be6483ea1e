// Package hyperliquid is a minimal REST client for the Hyperliquid info API,
// used as a read-only price source.
package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// Venue is the identifier reported in samples and metrics.
const Venue = "hyperliquid"

// Client queries the Hyperliquid info endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for baseURL, e.g. "https://api.hyperliquid.xyz".
// timeout bounds every request end to end.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name returns the venue identifier.
func (c *Client) Name() string { return Venue }

// Quote returns the market context for coin (e.g. "HYPE"). The venue mid is
// used when present and the mark price is the last-price fallback.
func (c *Client) Quote(ctx context.Context, coin string) (domain.Quote, error) {
	var resp metaAndAssetCtxs
	if err := c.postInfo(ctx, map[string]string{"type": "metaAndAssetCtxs"}, &resp); err != nil {
		return domain.Quote{}, fmt.Errorf("hyperliquid: quote %s: %w", coin, err)
	}

	for i, asset := range resp.Meta.Universe {
		if !strings.EqualFold(asset.Name, coin) {
			continue
		}
		if i >= len(resp.Ctxs) {
			return domain.Quote{}, fmt.Errorf("hyperliquid: quote %s: no context at index %d", coin, i)
		}
		return quoteFromCtx(resp.Ctxs[i])
	}
	return domain.Quote{}, fmt.Errorf("hyperliquid: quote %s: %w", coin, domain.ErrNotFound)
}

func quoteFromCtx(ac assetCtx) (domain.Quote, error) {
	var q domain.Quote
	var err error
	if ac.MidPx != nil {
		if q.Mid, err = domain.ParseOptionalPrice(*ac.MidPx); err != nil {
			return domain.Quote{}, fmt.Errorf("hyperliquid: midPx: %w", err)
		}
	}
	if q.Last, err = domain.ParseOptionalPrice(ac.MarkPx); err != nil {
		return domain.Quote{}, fmt.Errorf("hyperliquid: markPx: %w", err)
	}
	return q, nil
}

// postInfo sends a JSON body to /info and decodes the answer into out.
func (c *Client) postInfo(ctx context.Context, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/info", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
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
