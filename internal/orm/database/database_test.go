package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertDBError(t *testing.T) {
	assert.Nil(t, ConvertDBError(nil))
	assert.True(t, IsNotFound(ConvertDBError(sql.ErrNoRows)))

	pgUnique := &pgconn.PgError{Code: "23505", Detail: "Key (id)=(1) already exists."}
	assert.True(t, IsUniqueViolation(ConvertDBError(pgUnique)))

	pqNotNull := &pq.Error{Code: "23502"}
	assert.ErrorIs(t, ConvertDBError(pqNotNull), ErrNotNullViolation)

	other := errors.New("connection reset")
	assert.Equal(t, other, ConvertDBError(other))
}

func TestDB_PostgresPlaceholders(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer sqlDB.Close()

	db := New(sqlDB, DialectPostgres)
	ctx := context.Background()

	mock.ExpectExec("UPDATE metadata SET access_id = $1 WHERE entity_guid = $2").
		WithArgs(2, 5).
		WillReturnResult(sqlmock.NewResult(0, 3))
	n, err := db.Exec(ctx, "UPDATE metadata SET access_id = ? WHERE entity_guid = ?", 2, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	mock.ExpectQuery("INSERT INTO entities (type) VALUES ($1) RETURNING guid").
		WithArgs("object").
		WillReturnRows(sqlmock.NewRows([]string{"guid"}).AddRow(42))
	id, err := db.Insert(ctx, "INSERT INTO entities (type) VALUES (?) RETURNING guid", "object")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	mock.ExpectQuery("INSERT INTO entities (type) VALUES ($1) RETURNING guid").
		WithArgs("object").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	_, err = db.Insert(ctx, "INSERT INTO entities (type) VALUES (?) RETURNING guid", "object")
	assert.True(t, IsUniqueViolation(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_SQLite(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, "sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SQL().SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx), "migrations are idempotent")

	id, err := db.Insert(ctx,
		`INSERT INTO metadata (entity_guid, name, value, value_type, owner_guid, time_created, access_id)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		5, "color", "red", "text", 1, 100, 2,
	)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	var enabled string
	require.NoError(t, db.QueryRow(ctx, "SELECT enabled FROM metadata WHERE id = ?", id).Scan(&enabled))
	assert.Equal(t, "yes", enabled)

	_, err = db.Insert(ctx,
		`INSERT INTO metadata (id, entity_guid, name, value, value_type, time_created) VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		id, 5, "dup", "x", "text", 100,
	)
	assert.True(t, IsUniqueViolation(err))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "dsn")
	assert.Error(t, err)
}
