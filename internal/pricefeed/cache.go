package pricefeed

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"icr-prover/pkg/logger"
)

const cacheKey = "icr-prover:btc-usd-cents"

type Cache interface {
	GetPrice(ctx context.Context, key string) (uint32, bool, error)
	SetPrice(ctx context.Context, key string, cents uint32, ttl time.Duration) error
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// ConnectRedis opens a client and pings it.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func (c *RedisCache) GetPrice(ctx context.Context, key string) (uint32, bool, error) {
	data, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	cents, err := strconv.ParseUint(data, 10, 32)
	if err != nil {
		return 0, false, err
	}
	return uint32(cents), true, nil
}

func (c *RedisCache) SetPrice(ctx context.Context, key string, cents uint32, ttl time.Duration) error {
	return c.client.Set(ctx, key, strconv.FormatUint(uint64(cents), 10), ttl).Err()
}

// CachedFeed serves the price from Cache while it is fresh. Cache errors
// are logged and treated as misses.
type CachedFeed struct {
	Feed   Feed
	Cache  Cache
	TTL    time.Duration
	Logger *logger.Logger
}

func (f *CachedFeed) BtcPriceUsdCents(ctx context.Context) (uint32, error) {
	cents, found, err := f.Cache.GetPrice(ctx, cacheKey)
	if err != nil {
		f.logError(err, "Could not read cached price")
	}
	if found {
		return cents, nil
	}

	cents, err = f.Feed.BtcPriceUsdCents(ctx)
	if err != nil {
		return 0, err
	}

	if err := f.Cache.SetPrice(ctx, cacheKey, cents, f.TTL); err != nil {
		f.logError(err, "Could not cache price")
	}
	return cents, nil
}

func (f *CachedFeed) logError(err error, msg string) {
	if f.Logger != nil {
		f.Logger.Error(err, msg)
	}
}
