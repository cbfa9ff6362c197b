// Package database wraps database/sql with the small surface the metadata
// store needs: dialect-aware placeholders, inserts returning ids and
// driver error conversion.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver "pgx"
	_ "github.com/lib/pq"              // PostgreSQL driver "postgres"
	_ "github.com/mattn/go-sqlite3"    // SQLite driver "sqlite3"
)

// Querier is the read side used by scanners and the entity table
type Querier interface {
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// DB executes statements written with ? placeholders against a *sql.DB
type DB struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an open *sql.DB
func New(db *sql.DB, dialect Dialect) *DB {
	return &DB{db: db, dialect: dialect}
}

// Open opens and pings a database using the named driver
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	dialect, err := DialectForDriver(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return New(db, dialect), nil
}

// SQL returns the underlying connection pool
func (d *DB) SQL() *sql.DB {
	return d.db
}

// Dialect returns the SQL dialect
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// Query runs a statement returning rows
func (d *DB) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	rows, err := d.db.QueryContext(ctx, d.dialect.Rebind(query), args...)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return rows, nil
}

// QueryRow runs a statement returning at most one row
func (d *DB) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return d.db.QueryRowContext(ctx, d.dialect.Rebind(query), args...)
}

// Exec runs a write statement and reports the number of affected rows
func (d *DB) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	result, err := d.db.ExecContext(ctx, d.dialect.Rebind(query), args...)
	if err != nil {
		return 0, ConvertDBError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Insert runs an INSERT ... RETURNING statement and returns the new id
func (d *DB) Insert(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var id int64
	if err := d.db.QueryRowContext(ctx, d.dialect.Rebind(query), args...).Scan(&id); err != nil {
		return 0, ConvertDBError(err)
	}
	return id, nil
}

// Close closes the connection pool
func (d *DB) Close() error {
	return d.db.Close()
}
