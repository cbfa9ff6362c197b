package metadata

import (
	"context"
	"time"

	"github.com/conduit-lang/metastore/internal/orm/entity"
	"github.com/conduit-lang/metastore/internal/orm/events"
	"go.uber.org/zap"
)

// Subscribe registers the access cascade for entity updates of every type
func (s *Store) Subscribe(bus *events.Bus) {
	bus.Register("update", events.All, s.HandleEntityUpdate)
}

// HandleEntityUpdate copies an updated entity's access id onto all of its
// metadata unless the entity's type/subtype is registered as independent.
// The rows are updated in bulk, after which the entity's cache entry is
// dropped. It never vetoes the event.
func (s *Store) HandleEntityUpdate(ctx context.Context, event, objectType string, payload interface{}) bool {
	e, ok := payload.(*entity.Entity)
	if !ok || e == nil || e.GUID == 0 {
		return true
	}
	if s.independence.IsIndependent(e.Type, e.Subtype) {
		return true
	}

	start := time.Now()
	n, err := s.db.Exec(ctx, "UPDATE metadata SET access_id = ? WHERE entity_guid = ?", e.AccessID, e.GUID)
	s.metrics.ObserveOperation("cascade_access", start, err)
	if err != nil {
		s.logger.Error("failed to cascade entity access to metadata",
			zap.Int64("entity_guid", e.GUID),
			zap.Int64("access_id", e.AccessID),
			zap.Error(err),
		)
		return true
	}

	s.cache.Clear(ctx, e.GUID)
	s.logger.Debug("cascaded entity access to metadata",
		zap.Int64("entity_guid", e.GUID),
		zap.Int64("access_id", e.AccessID),
		zap.Int64("rows", n),
	)
	return true
}
