// Package metadata stores named values attached to entities. It owns the
// metadata table, caches each entity's metadata, keeps dependent access ids
// in step with their entity and translates metadata queries into SQL.
package metadata

import (
	"context"
	"strings"
	"time"

	"github.com/conduit-lang/metastore/internal/metrics"
	"github.com/conduit-lang/metastore/internal/orm/database"
	"github.com/conduit-lang/metastore/internal/orm/entity"
	"github.com/conduit-lang/metastore/internal/orm/events"
	"github.com/conduit-lang/metastore/internal/web/auth"
	"github.com/conduit-lang/metastore/internal/web/cache"
	"go.uber.org/zap"
)

const (
	// DefaultPageSize is the number of records a batch operation loads per page
	DefaultPageSize = 50
	// DefaultLimit is applied by GetAll when the query sets no limit
	DefaultLimit = 25
)

// EntityTable is the part of the entity table the store depends on
type EntityTable interface {
	Get(ctx context.Context, guid int64) (*entity.Entity, error)
	GetEntities(ctx context.Context, opts *entity.Options) ([]*entity.Entity, error)
	CountEntities(ctx context.Context, opts *entity.Options) (int64, error)
}

// Store is the metadata table gateway
type Store struct {
	db           *database.DB
	entities     EntityTable
	events       events.Emitter
	session      auth.Session
	authorizer   auth.Authorizer
	independence *Independence
	cache        *Cache
	metrics      *metrics.Metrics
	logger       *zap.Logger
	now          func() time.Time

	pageSize     int
	defaultLimit int
	baseURL      string
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the store logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock overrides the time source for time_created
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithMetrics records operation metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithCache sets the backend of the per-entity metadata cache
func WithCache(backend cache.Cache, ttl time.Duration) Option {
	return func(s *Store) {
		s.cache = NewCache(backend, ttl, nil, nil)
	}
}

// WithEvents sets the emitter for lifecycle events
func WithEvents(emitter events.Emitter) Option {
	return func(s *Store) {
		s.events = emitter
	}
}

// WithSession sets the source of the acting principal
func WithSession(session auth.Session) Option {
	return func(s *Store) {
		s.session = session
	}
}

// WithAuthorizer sets the edit permission check
func WithAuthorizer(a auth.Authorizer) Option {
	return func(s *Store) {
		s.authorizer = a
	}
}

// WithIndependence sets the registry of independent entity types
func WithIndependence(r *Independence) Option {
	return func(s *Store) {
		s.independence = r
	}
}

// WithPageSize sets the batch page size
func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithDefaultLimit sets the GetAll default limit
func WithDefaultLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.defaultLimit = n
		}
	}
}

// WithBaseURL sets the site URL used by GetURL
func WithBaseURL(u string) Option {
	return func(s *Store) {
		s.baseURL = strings.TrimRight(u, "/")
	}
}

// New creates a metadata store over db and the entity table
func New(db *database.DB, entities EntityTable, opts ...Option) *Store {
	s := &Store{
		db:           db,
		entities:     entities,
		session:      auth.ContextSession{},
		independence: NewIndependence(),
		logger:       zap.NewNop(),
		now:          time.Now,
		pageSize:     DefaultPageSize,
		defaultLimit: DefaultLimit,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.authorizer == nil {
		s.authorizer = auth.NewOwnerAuthorizer(s.session)
	}
	if s.cache == nil {
		s.cache = NewCache(cache.NewMemoryCache(), 0, nil, nil)
	}
	s.cache.metrics = s.metrics
	s.cache.logger = s.logger
	return s
}

// Cache returns the per-entity metadata cache
func (s *Store) Cache() *Cache {
	return s.cache
}

// Independence returns the registry consulted on entity updates
func (s *Store) Independence() *Independence {
	return s.independence
}

// trigger publishes an event and reports whether it went through
func (s *Store) trigger(ctx context.Context, event string, r *Record) bool {
	if s.events == nil {
		return true
	}
	if s.events.Trigger(ctx, event, "metadata", r) {
		return true
	}
	s.metrics.EventVetoed(event)
	s.logger.Info("metadata event vetoed",
		zap.String("event", event),
		zap.Int64("id", r.ID),
		zap.Int64("entity_guid", r.EntityGUID),
		zap.String("name", r.Name),
	)
	return false
}
