package metadata

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/conduit-lang/metastore/internal/orm/database"
	"github.com/conduit-lang/metastore/internal/orm/entity"
	"github.com/conduit-lang/metastore/internal/web/auth"
	"go.uber.org/zap"
)

// CreateParams describes a new metadata record
type CreateParams struct {
	EntityGUID int64
	Name       string
	// Value must be non-nil; an empty string is a valid value
	Value interface{}
	// ValueType forces the stored type; empty detects it from Value
	ValueType ValueType
	// OwnerGUID defaults to the acting principal when zero
	OwnerGUID int64
	// AccessID defaults to entity.AccessPrivate
	AccessID int64
	// AllowMultiple inserts even when the entity already has this name
	AllowMultiple bool
}

// UpdateParams replaces the content of an existing record
type UpdateParams struct {
	ID        int64
	Name      string
	Value     interface{}
	ValueType ValueType
	OwnerGUID int64
	AccessID  int64
}

// Get loads a visible record by id. It returns ErrNotFound when the record
// does not exist, is disabled and hidden, or is not readable by the principal.
func (s *Store) Get(ctx context.Context, id int64) (r *Record, err error) {
	defer func(start time.Time) { s.metrics.ObserveOperation("get", start, err) }(time.Now())

	q := &Query{IDs: []int64{id}, CaseSensitive: true, PairsOperator: And}
	query, args := selectRecords(ctx, s.session, q, recordColumns)

	r, err = scanRecord(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if database.IsNotFound(database.ConvertDBError(err)) {
			return nil, fmt.Errorf("metadata %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load metadata %d: %w", id, err)
	}
	return r, nil
}

// load reads a record by id without visibility or access filters
func (s *Store) load(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRow(ctx, "SELECT "+recordColumns+" FROM metadata n_table WHERE n_table.id = ?", id)
	r, err := scanRecord(row)
	if err != nil {
		if database.IsNotFound(database.ConvertDBError(err)) {
			return nil, fmt.Errorf("metadata %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load metadata %d: %w", id, err)
	}
	return r, nil
}

// Create stores a record and returns its id. When the entity already has a
// record with this name and AllowMultiple is false, that record is updated
// in place and its id returned.
//
// A subscriber vetoing the "create" event causes the new row to be deleted
// and ErrVetoed to be returned; no id is reported for a vetoed record.
func (s *Store) Create(ctx context.Context, p CreateParams) (id int64, err error) {
	defer func(start time.Time) { s.metrics.ObserveOperation("create", start, err) }(time.Now())

	if p.Value == nil {
		return 0, ErrValueUnset
	}
	if p.EntityGUID == 0 {
		return 0, ErrInvalidEntity
	}
	if p.Name == "" {
		return 0, ErrInvalidName
	}

	encoded, vt, err := encodeTyped(p.Value, p.ValueType)
	if err != nil {
		return 0, err
	}

	owner := p.OwnerGUID
	if owner == 0 {
		owner = s.session.CurrentPrincipalID(ctx)
	}

	existing, err := s.firstByName(ctx, p.EntityGUID, p.Name)
	if err != nil {
		return 0, err
	}
	if existing != 0 && !p.AllowMultiple {
		err = s.Update(ctx, UpdateParams{
			ID:        existing,
			Name:      p.Name,
			Value:     p.Value,
			ValueType: p.ValueType,
			OwnerGUID: owner,
			AccessID:  p.AccessID,
		})
		if err != nil {
			return 0, err
		}
		return existing, nil
	}

	id, err = s.db.Insert(ctx,
		`INSERT INTO metadata (entity_guid, name, value, value_type, owner_guid, time_created, access_id, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'yes') RETURNING id`,
		p.EntityGUID, p.Name, encoded, string(vt), owner, s.now().UTC().Unix(), p.AccessID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert metadata %q for entity %d: %w", p.Name, p.EntityGUID, err)
	}

	r, err := s.load(ctx, id)
	if err != nil {
		return 0, err
	}

	if !s.trigger(ctx, "create", r) {
		if _, err := s.db.Exec(ctx, "DELETE FROM metadata WHERE id = ?", id); err != nil {
			s.logger.Error("failed to remove vetoed metadata", zap.Int64("id", id), zap.Error(err))
		}
		// Subscribers that ran before the veto may have cached the row.
		s.cache.Clear(ctx, p.EntityGUID)
		return 0, fmt.Errorf("create metadata %q: %w", p.Name, ErrVetoed)
	}

	s.cache.Clear(ctx, p.EntityGUID)
	s.logger.Debug("metadata created",
		zap.Int64("id", id),
		zap.Int64("entity_guid", p.EntityGUID),
		zap.String("name", p.Name),
		zap.String("value_type", string(vt)),
	)
	return id, nil
}

// firstByName returns the id of the oldest record named name on the entity, or 0
func (s *Store) firstByName(ctx context.Context, entityGUID int64, name string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		"SELECT id FROM metadata WHERE entity_guid = ? AND name = ? ORDER BY id ASC LIMIT 1",
		entityGUID, name,
	).Scan(&id)
	if err != nil {
		if database.IsNotFound(database.ConvertDBError(err)) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to look up metadata %q for entity %d: %w", name, entityGUID, err)
	}
	return id, nil
}

// Update replaces name, value, type, owner and access of a record. The
// "update" event is informational and cannot undo the write.
func (s *Store) Update(ctx context.Context, p UpdateParams) (err error) {
	defer func(start time.Time) { s.metrics.ObserveOperation("update", start, err) }(time.Now())

	if p.Value == nil {
		return ErrValueUnset
	}
	if p.Name == "" {
		return ErrInvalidName
	}

	r, err := s.load(ctx, p.ID)
	if err != nil {
		return err
	}
	if err := s.checkEdit(ctx, r); err != nil {
		return err
	}

	encoded, vt, err := encodeTyped(p.Value, p.ValueType)
	if err != nil {
		return err
	}

	owner := p.OwnerGUID
	if owner == 0 {
		owner = s.session.CurrentPrincipalID(ctx)
	}

	_, err = s.db.Exec(ctx,
		"UPDATE metadata SET name = ?, value = ?, value_type = ?, access_id = ?, owner_guid = ? WHERE id = ?",
		p.Name, encoded, string(vt), p.AccessID, owner, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update metadata %d: %w", p.ID, err)
	}

	s.cache.Clear(ctx, r.EntityGUID)

	decoded, err := DecodeValue(encoded, vt)
	if err != nil {
		return err
	}
	r.Name = p.Name
	r.Value = decoded
	r.ValueType = vt
	r.AccessID = p.AccessID
	r.OwnerGUID = owner
	s.trigger(ctx, "update", r)
	return nil
}

func (s *Store) checkEdit(ctx context.Context, r *Record) error {
	ok, err := s.authorizer.CanEdit(ctx, r)
	if err != nil {
		return fmt.Errorf("failed to check edit permission on metadata %d: %w", r.ID, err)
	}
	if !ok {
		return fmt.Errorf("metadata %d: %w", r.ID, ErrPermissionDenied)
	}
	return nil
}

// CreateFromMap creates one record per key in ascending key order. It stops
// at the first failure; records created before it are kept.
func (s *Store) CreateFromMap(ctx context.Context, entityGUID int64, values map[string]interface{}, tmpl CreateParams) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := tmpl
		p.EntityGUID = entityGUID
		p.Name = name
		p.Value = values[name]
		if _, err := s.Create(ctx, p); err != nil {
			return fmt.Errorf("failed to create metadata %q: %w", name, err)
		}
	}
	return nil
}

// Delete removes a record after an edit check and a vetoable "delete" event
func (s *Store) Delete(ctx context.Context, id int64) (err error) {
	defer func(start time.Time) { s.metrics.ObserveOperation("delete", start, err) }(time.Now())

	r, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	return s.deleteRecord(ctx, r)
}

func (s *Store) deleteRecord(ctx context.Context, r *Record) error {
	if err := s.checkEdit(ctx, r); err != nil {
		return err
	}
	if !auth.CanDelete(ctx) {
		return fmt.Errorf("metadata %d: %w", r.ID, ErrPermissionDenied)
	}
	if !s.trigger(ctx, "delete", r) {
		return fmt.Errorf("delete metadata %d: %w", r.ID, ErrVetoed)
	}

	if _, err := s.db.Exec(ctx, "DELETE FROM metadata WHERE id = ?", r.ID); err != nil {
		return fmt.Errorf("failed to delete metadata %d: %w", r.ID, err)
	}
	s.cache.Clear(ctx, r.EntityGUID)
	return nil
}

// GetURL returns the export URL of a visible record
func (s *Store) GetURL(ctx context.Context, id int64) (string, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return "", err
	}
	return s.baseURL + "/export/metadata/" + strconv.FormatInt(id, 10), nil
}

// GetForEntity returns the metadata of one entity visible to the principal,
// reading through the metadata cache
func (s *Store) GetForEntity(ctx context.Context, guid int64) (records []*Record, err error) {
	defer func(start time.Time) { s.metrics.ObserveOperation("get_for_entity", start, err) }(time.Now())

	all, ok := s.cache.Load(ctx, guid)
	if !ok {
		all, err = s.loadEntity(ctx, guid)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Save(ctx, guid, all); err != nil {
			s.logger.Warn("failed to cache metadata", zap.Int64("entity_guid", guid), zap.Error(err))
		}
	}

	for _, r := range all {
		if s.visible(ctx, r) {
			records = append(records, r)
		}
	}
	return records, nil
}

// loadEntity reads every record of an entity, hidden and private ones
// included, so the cached list can serve any principal
func (s *Store) loadEntity(ctx context.Context, guid int64) ([]*Record, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+recordColumns+" FROM metadata n_table WHERE n_table.entity_guid = ? ORDER BY n_table.time_created ASC, n_table.id ASC",
		guid,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata for entity %d: %w", guid, err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	return records, nil
}

// visible applies the enabled and access rules of the SQL filters to a
// cached record
func (s *Store) visible(ctx context.Context, r *Record) bool {
	if _, hide := entity.EnabledClause(ctx, "n_table"); hide && !r.Enabled {
		return false
	}
	if _, restrict := entity.AccessClause(ctx, s.session, "n_table"); !restrict {
		return true
	}

	principal := s.session.CurrentPrincipalID(ctx)
	if principal == 0 {
		return r.AccessID == entity.AccessPublic
	}
	return r.AccessID == entity.AccessPublic || r.AccessID == entity.AccessLoggedIn || r.OwnerGUID == principal
}
