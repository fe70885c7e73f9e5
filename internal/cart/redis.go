package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

const cartIdleTTL = 7 * 24 * time.Hour

// RedisPersister stores carts as JSON strings. Every load or save pushes the
// expiry out again, so only carts untouched for a week disappear.
type RedisPersister struct {
	client *redis.Client
	idle   time.Duration
}

func NewRedisPersister(client *redis.Client) *RedisPersister {
	return &RedisPersister{client: client, idle: cartIdleTTL}
}

// ttl spreads expiries over an hour so a burst of carts does not expire at once.
func (r *RedisPersister) ttl() time.Duration {
	return r.idle + time.Duration(rand.Intn(60))*time.Minute
}

func (r *RedisPersister) Load(ctx context.Context, key string) (*Cart, error) {
	raw, err := r.client.GetEx(ctx, key, r.ttl()).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrCartNotFound
	case err != nil:
		return nil, fmt.Errorf("redis: load %s: %w", key, err)
	}

	c := new(Cart)
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("redis: decode %s: %w", key, err)
	}
	return c, nil
}

func (r *RedisPersister) Save(ctx context.Context, key string, c *Cart) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("redis: encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, raw, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis: save %s: %w", key, err)
	}
	return nil
}

func (r *RedisPersister) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: delete %s: %w", key, err)
	}
	return nil
}
