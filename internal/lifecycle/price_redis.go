package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	id "xftledger/pkg/domain"
	"xftledger/pkg/fixedpoint"
)

// RedisPriceCache stores the last known NAV price per instrument in redis
// so every process in the deployment reads the same value.
type RedisPriceCache struct {
	client *redis.Client
	prefix string
}

func NewRedisPriceCache(client *redis.Client) *RedisPriceCache {
	return &RedisPriceCache{client: client, prefix: "price"}
}

func (c *RedisPriceCache) key(symbol id.InstrumentSymbol) string {
	return fmt.Sprintf("%s:%s", c.prefix, symbol)
}

func (c *RedisPriceCache) SetPrice(ctx context.Context, symbol id.InstrumentSymbol, price fixedpoint.Value) error {
	if err := c.client.Set(ctx, c.key(symbol), price.String(), 0).Err(); err != nil {
		return fmt.Errorf("set price: %w", err)
	}
	return nil
}

func (c *RedisPriceCache) GetPrice(ctx context.Context, symbol id.InstrumentSymbol) (fixedpoint.Value, bool, error) {
	raw, err := c.client.Get(ctx, c.key(symbol)).Result()
	if errors.Is(err, redis.Nil) {
		return fixedpoint.Value{}, false, nil
	}
	if err != nil {
		return fixedpoint.Value{}, false, fmt.Errorf("get price: %w", err)
	}
	price, err := fixedpoint.Parse(raw)
	if err != nil {
		return fixedpoint.Value{}, false, fmt.Errorf("parse cached price: %w", err)
	}
	return price, true, nil
}
