package metadata

import (
	"context"
	"fmt"
	"time"

	webcontext "github.com/conduit-lang/metastore/internal/web/context"
	"go.uber.org/zap"
)

type stepResult int

const (
	stepApplied stepResult = iota
	// stepUnchanged marks records already in the requested state
	stepUnchanged
	// stepSkipped marks records left alone because of a veto or missing permission
	stepSkipped
)

// batchStep applies a mutation to one record
type batchStep func(ctx context.Context, r *Record) (stepResult, error)

// DeleteAll deletes every record matching q and returns how many were
// deleted. A zero count with a nil error means nothing matched. The walk is
// not transactional: pages deleted before a failure stay deleted.
func (s *Store) DeleteAll(ctx context.Context, q *Query) (n int, err error) {
	defer func(start time.Time) { s.metrics.ObserveOperation("delete_all", start, err) }(time.Now())

	if !q.Constrained() {
		return 0, ErrUnconstrainedBatch
	}

	// Deleted rows leave the result set, so the walk stays on the first page.
	n, err = s.walk(ctx, q, false, func(ctx context.Context, r *Record) (stepResult, error) {
		if err := s.deleteRecord(ctx, r); err != nil {
			if IsVetoed(err) || IsPermissionDenied(err) {
				return stepSkipped, nil
			}
			return stepSkipped, err
		}
		return stepApplied, nil
	})

	s.cache.InvalidateByQuery(ctx, q)
	s.metrics.BatchRecords("delete", n)
	return n, err
}

// DisableAll marks every record matching q as disabled
func (s *Store) DisableAll(ctx context.Context, q *Query) (n int, err error) {
	defer func(start time.Time) { s.metrics.ObserveOperation("disable_all", start, err) }(time.Now())

	if !q.Constrained() {
		return 0, ErrUnconstrainedBatch
	}

	s.cache.InvalidateByQuery(ctx, q)

	// Disabled rows only stay in the result set when hidden rows are shown.
	advance := webcontext.ShowHidden(ctx)
	n, err = s.walk(ctx, q, advance, func(ctx context.Context, r *Record) (stepResult, error) {
		return s.setEnabled(ctx, r, false)
	})

	s.cache.InvalidateByQuery(ctx, q)
	s.metrics.BatchRecords("disable", n)
	return n, err
}

// EnableAll re-enables every record matching q. Disabled records must be
// visible: call it with a context from webcontext.WithShowHidden.
func (s *Store) EnableAll(ctx context.Context, q *Query) (n int, err error) {
	defer func(start time.Time) { s.metrics.ObserveOperation("enable_all", start, err) }(time.Now())

	if !q.Constrained() {
		return 0, ErrUnconstrainedBatch
	}
	if !webcontext.ShowHidden(ctx) {
		return 0, ErrHiddenNotVisible
	}

	s.cache.InvalidateByQuery(ctx, q)

	n, err = s.walk(ctx, q, true, func(ctx context.Context, r *Record) (stepResult, error) {
		return s.setEnabled(ctx, r, true)
	})

	s.cache.InvalidateByQuery(ctx, q)
	s.metrics.BatchRecords("enable", n)
	return n, err
}

func (s *Store) setEnabled(ctx context.Context, r *Record, enabled bool) (stepResult, error) {
	if r.Enabled == enabled {
		return stepUnchanged, nil
	}

	event, flag := "disable", "no"
	if enabled {
		event, flag = "enable", "yes"
	}

	if err := s.checkEdit(ctx, r); err != nil {
		if IsPermissionDenied(err) {
			return stepSkipped, nil
		}
		return stepSkipped, err
	}
	if !s.trigger(ctx, event, r) {
		return stepSkipped, nil
	}

	if _, err := s.db.Exec(ctx, "UPDATE metadata SET enabled = ? WHERE id = ?", flag, r.ID); err != nil {
		return stepSkipped, fmt.Errorf("failed to %s metadata %d: %w", event, r.ID, err)
	}
	r.Enabled = enabled
	return stepApplied, nil
}

// walk pages through the records matching q and applies step to each. When
// advance is false the offset only moves past records left in place, because
// processed records drop out of the result set.
func (s *Store) walk(ctx context.Context, q *Query, advance bool, step batchStep) (int, error) {
	page := q.clone()
	page.Order = nil
	page.Limit = s.pageSize

	var done, unchanged, skipped int
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return done, err
		}

		page.Offset = offset
		query, args := selectRecords(ctx, s.session, page, recordColumns)
		query += " ORDER BY n_table.id ASC"
		query, args = appendPaging(query, args, page.Limit, page.Offset)

		records, err := s.queryRecords(ctx, query, args)
		if err != nil {
			return done, err
		}
		if len(records) == 0 {
			break
		}

		for _, r := range records {
			result, err := step(ctx, r)
			if err != nil {
				return done, err
			}
			switch result {
			case stepApplied:
				done++
			case stepUnchanged:
				unchanged++
			default:
				skipped++
			}
		}

		if advance {
			offset += len(records)
		} else {
			offset = skipped + unchanged
		}
		if len(records) < page.Limit {
			break
		}
	}

	if skipped > 0 {
		s.logger.Warn("batch skipped metadata records", zap.Int("done", done), zap.Int("skipped", skipped))
		return done, fmt.Errorf("%d of %d records: %w", skipped, done+skipped, ErrBatchIncomplete)
	}
	return done, nil
}
