// Package cache decorates the registration store with a Redis
// read-through cache. Writes go to the store first and then refresh the
// cached copy; a cache failure is logged and degrades to the store, never
// surfaced to the caller.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"regdesk/internal/registration/metrics"
	"regdesk/internal/registration/models"
	"regdesk/internal/registration/store"
	id "regdesk/pkg/domain"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "regdesk:registration:"

// CachedStore wraps an inner store.Store with per-registration caching.
// List is intentionally uncached; the dashboard listing tolerates a store
// round trip and caching it would complicate invalidation.
type CachedStore struct {
	inner   store.Store
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New wraps inner with a Redis cache.
func New(inner store.Store, client *redis.Client, ttl time.Duration, logger *slog.Logger, m *metrics.Metrics) *CachedStore {
	return &CachedStore{
		inner:   inner,
		client:  client,
		ttl:     ttl,
		logger:  logger,
		metrics: m,
	}
}

func cacheKey(regID id.RegistrationID) string {
	return keyPrefix + string(regID)
}

func (c *CachedStore) Create(ctx context.Context, reg *models.Registration) error {
	if err := c.inner.Create(ctx, reg); err != nil {
		return err
	}
	c.put(ctx, reg)
	return nil
}

func (c *CachedStore) GetByID(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	raw, err := c.client.Get(ctx, cacheKey(regID)).Bytes()
	if err == nil {
		var reg models.Registration
		if err := json.Unmarshal(raw, &reg); err == nil {
			if c.metrics != nil {
				c.metrics.CacheHits.Inc()
			}
			return &reg, nil
		}
		// Corrupt entry; fall through and let the store refresh it.
		c.logger.Warn("discarding corrupt registration cache entry", "registration_id", string(regID))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("registration cache read failed", "registration_id", string(regID), "error", err)
	}
	if c.metrics != nil {
		c.metrics.CacheMisses.Inc()
	}

	reg, err := c.inner.GetByID(ctx, regID)
	if err != nil {
		return nil, err
	}
	c.put(ctx, reg)
	return reg, nil
}

func (c *CachedStore) List(ctx context.Context) ([]*models.Registration, error) {
	return c.inner.List(ctx)
}

func (c *CachedStore) Execute(ctx context.Context, regID id.RegistrationID,
	validate func(*models.Registration) error,
	mutate func(*models.Registration) error,
) (*models.Registration, error) {
	reg, err := c.inner.Execute(ctx, regID, validate, mutate)
	if err != nil {
		return nil, err
	}
	c.put(ctx, reg)
	return reg, nil
}

func (c *CachedStore) Delete(ctx context.Context, regID id.RegistrationID) error {
	if err := c.inner.Delete(ctx, regID); err != nil {
		return err
	}
	if err := c.client.Del(ctx, cacheKey(regID)).Err(); err != nil {
		c.logger.Warn("registration cache invalidation failed", "registration_id", string(regID), "error", err)
	}
	return nil
}

func (c *CachedStore) put(ctx context.Context, reg *models.Registration) {
	raw, err := json.Marshal(reg)
	if err != nil {
		c.logger.Warn("registration cache marshal failed", "registration_id", string(reg.ID), "error", err)
		return
	}
	if err := c.client.Set(ctx, cacheKey(reg.ID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("registration cache write failed", "registration_id", string(reg.ID), "error", err)
	}
}
