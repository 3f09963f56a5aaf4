package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/marketplace/services/checkout/internal/cart"
)

// ErrCacheMiss is cart.ErrNoSnapshot so callers can test for either.
var ErrCacheMiss = cart.ErrNoSnapshot

const DefaultCartTTL = 7 * 24 * time.Hour

type snapshot struct {
	Owner     uuid.UUID       `json:"owner"`
	Items     []cart.CartItem `json:"items"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CartSnapshots keeps one JSON snapshot per shopper under cart:<id>. Every
// save refreshes the TTL so active carts do not expire.
type CartSnapshots struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCartSnapshots(client *redis.Client, ttl time.Duration) *CartSnapshots {
	if ttl <= 0 {
		ttl = DefaultCartTTL
	}
	return &CartSnapshots{client: client, ttl: ttl}
}

func (c *CartSnapshots) Load(ctx context.Context, owner uuid.UUID) ([]cart.CartItem, error) {
	data, err := c.client.Get(ctx, cacheKey(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return s.Items, nil
}

// Save stores items; an empty cart deletes the key.
func (c *CartSnapshots) Save(ctx context.Context, owner uuid.UUID, items []cart.CartItem) error {
	if len(items) == 0 {
		return c.Delete(ctx, owner)
	}

	data, err := json.Marshal(snapshot{Owner: owner, Items: items, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(owner), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *CartSnapshots) Delete(ctx context.Context, owner uuid.UUID) error {
	if err := c.client.Del(ctx, cacheKey(owner)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (c *CartSnapshots) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func cacheKey(owner uuid.UUID) string {
	return fmt.Sprintf("cart:%s", owner)
}
