package entity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/conduit-lang/metastore/internal/orm/database"
	"github.com/conduit-lang/metastore/internal/orm/events"
	"github.com/conduit-lang/metastore/internal/web/auth"
	"go.uber.org/zap"
)

// Table reads and writes rows of the entities table
type Table struct {
	db      *database.DB
	events  events.Emitter
	session auth.Session
	logger  *zap.Logger
	now     func() time.Time
}

// TableOption configures a Table
type TableOption func(*Table)

// WithLogger sets the table logger
func WithLogger(logger *zap.Logger) TableOption {
	return func(t *Table) {
		t.logger = logger
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) TableOption {
	return func(t *Table) {
		t.now = now
	}
}

// NewTable creates an entity table
func NewTable(db *database.DB, emitter events.Emitter, session auth.Session, opts ...TableOption) *Table {
	t := &Table{
		db:      db,
		events:  emitter,
		session: session,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Get loads one entity by GUID, ignoring access and visibility
func (t *Table) Get(ctx context.Context, guid int64) (*Entity, error) {
	row := t.db.QueryRow(ctx, "SELECT "+columns+" FROM entities e WHERE e.guid = ?", guid)
	e, err := scanEntity(row)
	if err != nil {
		return nil, fmt.Errorf("failed to load entity %d: %w", guid, database.ConvertDBError(err))
	}
	return e, nil
}

// Create inserts an entity and publishes a "create" event for its type
func (t *Table) Create(ctx context.Context, e *Entity) (int64, error) {
	if e.Type == "" {
		return 0, fmt.Errorf("entity type is required")
	}
	if e.OwnerGUID == 0 {
		e.OwnerGUID = t.session.CurrentPrincipalID(ctx)
	}

	now := t.now().UTC().Truncate(time.Second)
	guid, err := t.db.Insert(ctx,
		`INSERT INTO entities (type, subtype, owner_guid, container_guid, access_id, time_created, time_updated, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'yes') RETURNING guid`,
		e.Type, e.Subtype, e.OwnerGUID, e.ContainerGUID, e.AccessID, now.Unix(), now.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert entity: %w", err)
	}

	e.GUID = guid
	e.TimeCreated = now
	e.TimeUpdated = now
	e.Enabled = true

	if t.events != nil {
		t.events.Trigger(ctx, "create", e.Type, e)
	}
	return guid, nil
}

// Update persists owner, container and access changes and publishes an
// "update" event for the entity's type. Subscribers such as the metadata
// store react to the new access id.
func (t *Table) Update(ctx context.Context, e *Entity) error {
	now := t.now().UTC().Truncate(time.Second)
	n, err := t.db.Exec(ctx,
		`UPDATE entities SET owner_guid = ?, container_guid = ?, access_id = ?, time_updated = ? WHERE guid = ?`,
		e.OwnerGUID, e.ContainerGUID, e.AccessID, now.Unix(), e.GUID,
	)
	if err != nil {
		return fmt.Errorf("failed to update entity %d: %w", e.GUID, err)
	}
	if n == 0 {
		return fmt.Errorf("entity %d: %w", e.GUID, database.ErrNotFound)
	}
	e.TimeUpdated = now

	if t.events != nil {
		t.events.Trigger(ctx, "update", e.Type, e)
	}
	return nil
}

// GetEntities returns the entities matching opts
func (t *Table) GetEntities(ctx context.Context, opts *Options) ([]*Entity, error) {
	if opts.Count {
		return nil, fmt.Errorf("count options must use CountEntities")
	}

	query, args, err := t.build(ctx, opts, "SELECT "+columns)
	if err != nil {
		return nil, err
	}

	rows, err := t.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	var result []*Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read entities: %w", err)
	}

	t.logger.Debug("entities fetched", zap.Int("count", len(result)))
	return result, nil
}

// CountEntities returns how many entities match opts, ignoring paging
func (t *Table) CountEntities(ctx context.Context, opts *Options) (int64, error) {
	counted := *opts
	counted.Count = true

	query, args, err := t.build(ctx, &counted, "SELECT COUNT(*)")
	if err != nil {
		return 0, err
	}

	var n int64
	if err := t.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count entities: %w", database.ConvertDBError(err))
	}
	return n, nil
}

// build renders opts into a statement with ? placeholders
func (t *Table) build(ctx context.Context, opts *Options, selectClause string) (string, []interface{}, error) {
	if err := opts.Validate(); err != nil {
		return "", nil, fmt.Errorf("invalid entity options: %w", err)
	}

	var wheres []Clause
	if len(opts.Types) > 0 {
		wheres = append(wheres, InClause("e.type", stringArgs(opts.Types)...))
	}
	if len(opts.Subtypes) > 0 {
		wheres = append(wheres, InClause("e.subtype", stringArgs(opts.Subtypes)...))
	}
	if len(opts.GUIDs) > 0 {
		wheres = append(wheres, InClause("e.guid", int64Args(opts.GUIDs)...))
	}
	if len(opts.OwnerGUIDs) > 0 {
		wheres = append(wheres, InClause("e.owner_guid", int64Args(opts.OwnerGUIDs)...))
	}
	if c, ok := EnabledClause(ctx, "e"); ok {
		wheres = append(wheres, c)
	}
	if c, ok := AccessClause(ctx, t.session, "e"); ok {
		wheres = append(wheres, c)
	}
	wheres = append(wheres, opts.Wheres...)

	var sb strings.Builder
	var args []interface{}

	sb.WriteString(selectClause)
	sb.WriteString(" FROM entities e")

	if len(wheres) > 0 {
		sb.WriteString(" WHERE ")
		for i, w := range wheres {
			if i > 0 {
				sb.WriteString(" AND ")
			}
			sb.WriteString(w.SQL)
			args = append(args, w.Args...)
		}
	}

	if opts.Count {
		return sb.String(), args, nil
	}

	sb.WriteString(" ORDER BY ")
	if len(opts.OrderBy) == 0 {
		sb.WriteString("e.time_created DESC, e.guid DESC")
	} else {
		for i, ob := range opts.OrderBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(ob.SQL)
			args = append(args, ob.Args...)
		}
		sb.WriteString(", e.guid ASC")
	}

	limit := opts.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit != NoLimit {
		sb.WriteString(" LIMIT ?")
		args = append(args, limit)
		if opts.Offset > 0 {
			sb.WriteString(" OFFSET ?")
			args = append(args, opts.Offset)
		}
	}

	return sb.String(), args, nil
}
