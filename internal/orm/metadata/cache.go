package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/conduit-lang/metastore/internal/metrics"
	"github.com/conduit-lang/metastore/internal/web/cache"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "metadata:"

// cachedRecord keeps the stored text form so integers survive the JSON round trip
type cachedRecord struct {
	ID          int64     `json:"id"`
	EntityGUID  int64     `json:"entity_guid"`
	Name        string    `json:"name"`
	Value       string    `json:"value"`
	ValueType   ValueType `json:"value_type"`
	OwnerGUID   int64     `json:"owner_guid"`
	AccessID    int64     `json:"access_id"`
	TimeCreated int64     `json:"time_created"`
	Enabled     bool      `json:"enabled"`
}

// Cache holds the metadata of each entity keyed by entity GUID
type Cache struct {
	backend cache.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewCache wraps a byte cache backend. A zero ttl uses the backend default.
func NewCache(backend cache.Cache, ttl time.Duration, m *metrics.Metrics, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		backend: backend,
		ttl:     ttl,
		metrics: m,
		logger:  logger,
	}
}

func cacheKey(guid int64) string {
	return cacheKeyPrefix + strconv.FormatInt(guid, 10)
}

// Load returns the cached records of an entity; ok is false on a miss
func (c *Cache) Load(ctx context.Context, guid int64) ([]*Record, bool) {
	data, err := c.backend.Get(ctx, cacheKey(guid))
	if err != nil {
		if !cache.IsMiss(err) {
			c.logger.Warn("metadata cache read failed", zap.Int64("entity_guid", guid), zap.Error(err))
		}
		c.metrics.CacheMiss()
		return nil, false
	}

	var cached []cachedRecord
	if err := json.Unmarshal(data, &cached); err != nil {
		c.logger.Warn("discarding corrupt metadata cache entry", zap.Int64("entity_guid", guid), zap.Error(err))
		c.metrics.CacheMiss()
		return nil, false
	}

	records := make([]*Record, 0, len(cached))
	for _, cr := range cached {
		value, err := DecodeValue(cr.Value, cr.ValueType)
		if err != nil {
			c.metrics.CacheMiss()
			return nil, false
		}
		records = append(records, &Record{
			ID:          cr.ID,
			EntityGUID:  cr.EntityGUID,
			Name:        cr.Name,
			Value:       value,
			ValueType:   cr.ValueType,
			OwnerGUID:   cr.OwnerGUID,
			AccessID:    cr.AccessID,
			TimeCreated: time.Unix(cr.TimeCreated, 0).UTC(),
			Enabled:     cr.Enabled,
		})
	}

	c.metrics.CacheHit()
	return records, true
}

// Save stores the records of an entity
func (c *Cache) Save(ctx context.Context, guid int64, records []*Record) error {
	cached := make([]cachedRecord, len(records))
	for i, r := range records {
		cached[i] = cachedRecord{
			ID:          r.ID,
			EntityGUID:  r.EntityGUID,
			Name:        r.Name,
			Value:       r.ValueString(),
			ValueType:   r.ValueType,
			OwnerGUID:   r.OwnerGUID,
			AccessID:    r.AccessID,
			TimeCreated: r.TimeCreated.Unix(),
			Enabled:     r.Enabled,
		}
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to encode metadata cache entry: %w", err)
	}
	if err := c.backend.Set(ctx, cacheKey(guid), data, c.ttl); err != nil {
		return fmt.Errorf("failed to write metadata cache entry: %w", err)
	}
	return nil
}

// Clear drops the entries of the given entities
func (c *Cache) Clear(ctx context.Context, guids ...int64) {
	if len(guids) == 0 {
		return
	}
	keys := make([]string, len(guids))
	for i, g := range guids {
		keys[i] = cacheKey(g)
	}
	if err := c.backend.Delete(ctx, keys...); err != nil {
		c.logger.Warn("metadata cache invalidation failed", zap.Int64s("entity_guids", guids), zap.Error(err))
	}
}

// ClearAll drops every cached entity. Other keys sharing the backend stay.
func (c *Cache) ClearAll(ctx context.Context) {
	if err := c.backend.Clear(ctx, cacheKeyPrefix); err != nil {
		c.logger.Warn("metadata cache flush failed", zap.Error(err))
	}
}

// InvalidateByQuery drops the entries a query may touch: the listed
// entities, or everything when the query names none
func (c *Cache) InvalidateByQuery(ctx context.Context, q *Query) {
	if len(q.EntityGUIDs) > 0 {
		c.Clear(ctx, q.EntityGUIDs...)
		return
	}
	c.ClearAll(ctx)
}
