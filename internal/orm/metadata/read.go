package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/conduit-lang/metastore/internal/orm/entity"
	"go.uber.org/zap"
)

// GetAll returns the records matching q, ordered by the metadata named in
// q.Order and then oldest first. A zero limit uses
// the store default; NoLimit returns every match.
func (s *Store) GetAll(ctx context.Context, q *Query) (records []*Record, err error) {
	defer func(start time.Time) { s.metrics.ObserveOperation("get_all", start, err) }(time.Now())

	if q.Calculation != CalcNone {
		return nil, fmt.Errorf("%w: use Calculate for %s queries", ErrInvalidQuery, q.Calculation)
	}

	limit := q.Limit
	if limit == 0 {
		limit = s.defaultLimit
	}

	query, args := selectRecords(ctx, s.session, q, recordColumns)
	order, orderArgs := recordOrder(ctx, s.session, q)
	query += order
	args = append(args, orderArgs...)
	query, args = appendPaging(query, args, limit, q.Offset)

	return s.queryRecords(ctx, query, args)
}

func (s *Store) queryRecords(ctx context.Context, query string, args []interface{}) ([]*Record, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata: %w", err)
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

// Calculate returns an aggregate over the records matching q. Sum, avg, min
// and max read integer records only; an empty match yields 0.
func (s *Store) Calculate(ctx context.Context, q *Query) (result float64, err error) {
	defer func(start time.Time) { s.metrics.ObserveOperation("calculate", start, err) }(time.Now())

	if q.Calculation == CalcNone {
		return 0, fmt.Errorf("%w: no calculation requested", ErrInvalidQuery)
	}

	query, args := selectRecords(ctx, s.session, q, calculationSelect(q.Calculation))

	var v sql.NullFloat64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to calculate %s over metadata: %w", q.Calculation, err)
	}
	return v.Float64, nil
}

// GetEntities returns the entities whose metadata matches q
func (s *Store) GetEntities(ctx context.Context, q *Query) (list []*entity.Entity, err error) {
	defer func(start time.Time) { s.metrics.ObserveOperation("get_entities", start, err) }(time.Now())

	if q.Calculation != CalcNone {
		return nil, fmt.Errorf("%w: use CalculateEntities for %s queries", ErrInvalidQuery, q.Calculation)
	}

	opts := entityOptions(ctx, s.session, q)
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	list, err = s.entities.GetEntities(ctx, opts)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("entities matched by metadata", zap.Int("count", len(list)))
	return list, nil
}

// CalculateEntities returns an aggregate over the entities matching q.
// Entities only support counting.
func (s *Store) CalculateEntities(ctx context.Context, q *Query) (result float64, err error) {
	defer func(start time.Time) { s.metrics.ObserveOperation("calculate_entities", start, err) }(time.Now())

	if q.Calculation != CalcCount {
		return 0, fmt.Errorf("%w: entities support only the count calculation", ErrInvalidQuery)
	}

	opts := entityOptions(ctx, s.session, q)
	if err := opts.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	n, err := s.entities.CountEntities(ctx, opts)
	if err != nil {
		return 0, err
	}
	return float64(n), nil
}
