package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// priceTTL expires venue prices that stop being refreshed, so a stale value
// is never mistaken for a live one.
const priceTTL = 30 * time.Second

// PriceCache implements domain.PriceCache using Redis hashes at
// "{prefix}:price:{venue}:{SYMBOL}" with fields "price" and "ts" (Unix
// nanoseconds).
type PriceCache struct {
	c   *Client
	rdb *redis.Client
}

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{c: c, rdb: c.Underlying()}
}

func (pc *PriceCache) key(venue, symbol string) string {
	return pc.c.Key("price", venue, strings.ToUpper(symbol))
}

// SetPrice stores the latest price and timestamp for a venue and symbol.
func (pc *PriceCache) SetPrice(ctx context.Context, venue, symbol string, price float64, ts time.Time) error {
	key := pc.key(venue, symbol)
	pipe := pc.rdb.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"price": strconv.FormatFloat(price, 'f', -1, 64),
		"ts":    strconv.FormatInt(ts.UnixNano(), 10),
	})
	pipe.Expire(ctx, key, priceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set price %s/%s: %w", venue, symbol, err)
	}
	return nil
}

// GetPrice retrieves the latest price and timestamp. It returns
// domain.ErrNotFound when nothing fresh is cached.
func (pc *PriceCache) GetPrice(ctx context.Context, venue, symbol string) (float64, time.Time, error) {
	vals, err := pc.rdb.HGetAll(ctx, pc.key(venue, symbol)).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get price %s/%s: %w", venue, symbol, err)
	}
	return decodePrice(vals)
}

func decodePrice(vals map[string]string) (float64, time.Time, error) {
	priceStr, ok := vals["price"]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	tsStr, ok := vals["ts"]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse price: %w", err)
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse ts: %w", err)
	}
	return price, time.Unix(0, tsNano), nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
