package hyperliquid

import (
	"encoding/json"
	"fmt"
)

// assetMeta is one entry of the perpetuals universe.
type assetMeta struct {
	Name       string `json:"name"`
	SzDecimals int    `json:"szDecimals"`
}

type universe struct {
	Universe []assetMeta `json:"universe"`
}

// assetCtx carries the live market context for the asset at the same index
// in the universe. Prices are decimal strings; midPx is null when the book
// is one-sided.
type assetCtx struct {
	MidPx     *string  `json:"midPx"`
	MarkPx    string   `json:"markPx"`
	OraclePx  string   `json:"oraclePx"`
	Funding   string   `json:"funding"`
	ImpactPxs []string `json:"impactPxs"`
}

// metaAndAssetCtxs is the two-element array answer of the "metaAndAssetCtxs"
// info request.
type metaAndAssetCtxs struct {
	Meta universe
	Ctxs []assetCtx
}

func (m *metaAndAssetCtxs) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 2 {
		return fmt.Errorf("expected 2 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &m.Meta); err != nil {
		return fmt.Errorf("universe: %w", err)
	}
	if err := json.Unmarshal(parts[1], &m.Ctxs); err != nil {
		return fmt.Errorf("asset contexts: %w", err)
	}
	return nil
}
