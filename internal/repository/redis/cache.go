// Package redis provides a Redis-backed profile cache.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/msomdec/yappaholic/internal/domain"
)

const keyPrefix = "profile:"

// NewClient builds a client and checks the server is reachable.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// ProfileCache stores profiles as JSON under profile:<user id>.
type ProfileCache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ domain.ProfileCache = (*ProfileCache)(nil)

func NewProfileCache(rdb *redis.Client, ttl time.Duration) *ProfileCache {
	return &ProfileCache{rdb: rdb, ttl: ttl}
}

type cachedProfile struct {
	DisplayName string `json:"display_name"`
	Power       int    `json:"power"`
	Provisioned bool   `json:"provisioned"`
}

func (c *ProfileCache) Get(ctx context.Context, userID string) (*domain.Profile, bool, error) {
	raw, err := c.rdb.Get(ctx, keyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached profile: %w", err)
	}

	var cp cachedProfile
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, false, fmt.Errorf("decode cached profile: %w", err)
	}
	return &domain.Profile{
		UserID:      userID,
		DisplayName: cp.DisplayName,
		Power:       cp.Power,
		Provisioned: cp.Provisioned,
	}, true, nil
}

func (c *ProfileCache) Set(ctx context.Context, p *domain.Profile) error {
	raw, err := json.Marshal(cachedProfile{
		DisplayName: p.DisplayName,
		Power:       p.Power,
		Provisioned: p.Provisioned,
	})
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := c.rdb.Set(ctx, keyPrefix+p.UserID, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached profile: %w", err)
	}
	return nil
}

func (c *ProfileCache) Delete(ctx context.Context, userID string) error {
	if err := c.rdb.Del(ctx, keyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("delete cached profile: %w", err)
	}
	return nil
}
