package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"spot-letter/config"
	"spot-letter/logger"
	"spot-letter/places"
)

const placeKeyPrefix = "spot-letter:place:"

// NewRedis 는 설정으로 redis 클라이언트를 만들고 연결을 확인한다.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// PlaceCache 는 장소 해석 결과를 redis 에 JSON 으로 보관한다.
type PlaceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPlaceCache(rdb *redis.Client, ttl time.Duration) *PlaceCache {
	return &PlaceCache{rdb: rdb, ttl: ttl}
}

// Get 은 캐시 조회 결과를 반환한다. redis 오류는 miss 로 취급한다.
func (c *PlaceCache) Get(ctx context.Context, key string) (*places.Resolution, bool) {
	val, err := c.rdb.Get(ctx, placeKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.WarnWithFields("place cache read failed", logger.Fields{"key": key, "error": err.Error()})
		}
		return nil, false
	}
	var r places.Resolution
	if err := json.Unmarshal(val, &r); err != nil {
		logger.WarnWithFields("place cache entry corrupt", logger.Fields{"key": key, "error": err.Error()})
		return nil, false
	}
	return &r, true
}

func (c *PlaceCache) Set(ctx context.Context, key string, r places.Resolution) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, placeKeyPrefix+key, data, c.ttl).Err()
}
