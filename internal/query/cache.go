// Package query is a read-through cache over the booking backend with
// in-flight de-duplication and family-wide invalidation.
package query

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/wolfman30/homecare-booking/internal/observability/metrics"
	"github.com/wolfman30/homecare-booking/pkg/logging"
)

var queryTracer = otel.Tracer("homecare.internal.query")

// Key identifies a cached read: the operation family plus its input.
type Key struct {
	Family string
	Param  string
}

// Cache de-duplicates concurrent identical reads and stores their results
// until the family is invalidated.
type Cache struct {
	store   Store
	group   singleflight.Group
	metrics *metrics.QueryMetrics
	logger  *logging.Logger
}

// NewCache builds a cache over store. A nil store uses process memory.
func NewCache(store Store, m *metrics.QueryMetrics, logger *logging.Logger) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Cache{store: store, metrics: m, logger: logger}
}

// Fetch returns the cached value for key or runs fn to produce it. When
// enabled is false the zero value is returned and fn is never called.
// Concurrent callers of the same key at the same generation share a single
// fn invocation. Errors are returned to every waiting caller and not cached.
func Fetch[T any](ctx context.Context, c *Cache, key Key, enabled bool, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if !enabled {
		c.metrics.ObserveLookup(key.Family, "disabled")
		return zero, nil
	}

	ctx, span := queryTracer.Start(ctx, "query.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("homecare.query.family", key.Family))

	gen, err := c.store.Generation(ctx, key.Family)
	if err != nil {
		// Without a generation we cannot address entries safely; read through.
		c.logger.Warn("query cache generation unavailable", "family", key.Family, "error", err)
		c.metrics.ObserveLookup(key.Family, "miss")
		return fn(ctx)
	}

	if data, ok, err := c.store.Get(ctx, key.Family, gen, key.Param); err != nil {
		c.logger.Warn("query cache read failed", "family", key.Family, "error", err)
	} else if ok {
		var out T
		if err := json.Unmarshal(data, &out); err == nil {
			c.metrics.ObserveLookup(key.Family, "hit")
			return out, nil
		}
		c.logger.Warn("query cache entry undecodable", "family", key.Family)
	}
	c.metrics.ObserveLookup(key.Family, "miss")

	flightKey := fmt.Sprintf("%s@%d/%s", key.Family, gen, key.Param)
	shared, err, _ := c.group.Do(flightKey, func() (any, error) {
		// Shared by every waiter, so one caller going away must not cancel it.
		value, err := fn(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("query: encode %s: %w", key.Family, err)
		}
		if err := c.store.Set(context.WithoutCancel(ctx), key.Family, gen, key.Param, data); err != nil {
			c.logger.Warn("query cache write failed", "family", key.Family, "error", err)
		}
		return data, nil
	})
	if err != nil {
		span.RecordError(err)
		return zero, err
	}

	var out T
	if err := json.Unmarshal(shared.([]byte), &out); err != nil {
		return zero, fmt.Errorf("query: decode %s: %w", key.Family, err)
	}
	return out, nil
}

// Invalidate drops every cached result of family. Reads that start after
// Invalidate returns refetch; reads already in flight cannot repopulate it.
func (c *Cache) Invalidate(ctx context.Context, family string) error {
	gen, err := c.store.Bump(ctx, family)
	if err != nil && gen == 0 {
		return fmt.Errorf("query: invalidate %s: %w", family, err)
	}
	if err != nil {
		c.logger.Warn("query cache stale entries not removed", "family", family, "error", err)
	}
	c.metrics.ObserveInvalidation(family)
	c.logger.Debug("query cache invalidated", "family", family, "generation", gen)
	return nil
}
