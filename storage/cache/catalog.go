// Package cache keeps catalog lookups in Redis for a short while.
// Redis failures are logged and fall through to the wrapped store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/masomo-learn/core"
	"github.com/trezcool/masomo-learn/core/analytics"
)

const keyPrefix = "masomo:catalog:"

// NewClient returns a Redis client for the config, or nil when caching is disabled.
func NewClient(conf *core.Config) *redis.Client {
	if conf.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

func materialsKey(subject string, limit int) string {
	return fmt.Sprintf("%smaterials:%s:%d", keyPrefix, strings.ToLower(subject), limit)
}

func questionsKey(subject string) string {
	return keyPrefix + "questions:" + strings.ToLower(subject)
}

type store struct {
	client redis.Cmdable
	ttl    time.Duration
	logger core.Logger
}

// cached serves key from Redis, or loads and stores it.
func cached[T any](ctx context.Context, s store, key string, load func() (T, error)) (T, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err == nil {
		var v T
		if err = json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		s.logger.Warn("discarding unreadable cache entry", errors.Wrap(err, key))
	} else if !errors.Is(err, redis.Nil) {
		s.logger.Warn("reading catalog cache", errors.Wrap(err, key))
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	if raw, err = json.Marshal(v); err != nil {
		s.logger.Warn("encoding catalog cache entry", errors.Wrap(err, key))
		return v, nil
	}
	if err = s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.logger.Warn("writing catalog cache", errors.Wrap(err, key))
	}
	return v, nil
}

type materialCache struct {
	store
	next analytics.MaterialCatalog
}

var _ analytics.MaterialCatalog = (*materialCache)(nil) // interface compliance check

func NewMaterialCache(next analytics.MaterialCatalog, client redis.Cmdable, ttl time.Duration, logger core.Logger) analytics.MaterialCatalog {
	return &materialCache{store: store{client: client, ttl: ttl, logger: logger}, next: next}
}

func (c *materialCache) QueryMaterials(ctx context.Context, subject string, limit int) ([]analytics.MaterialSummary, error) {
	return cached(ctx, c.store, materialsKey(subject, limit), func() ([]analytics.MaterialSummary, error) {
		return c.next.QueryMaterials(ctx, subject, limit)
	})
}

type questionCache struct {
	store
	next analytics.QuestionBank
}

var _ analytics.QuestionBank = (*questionCache)(nil) // interface compliance check

func NewQuestionCache(next analytics.QuestionBank, client redis.Cmdable, ttl time.Duration, logger core.Logger) analytics.QuestionBank {
	return &questionCache{store: store{client: client, ttl: ttl, logger: logger}, next: next}
}

func (c *questionCache) QuestionPool(ctx context.Context, subject string) ([]analytics.Question, error) {
	return cached(ctx, c.store, questionsKey(subject), func() ([]analytics.Question, error) {
		return c.next.QuestionPool(ctx, subject)
	})
}
