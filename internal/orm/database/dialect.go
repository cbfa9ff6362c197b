package database

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect identifies the SQL flavour spoken by the underlying driver
type Dialect int

const (
	// DialectPostgres uses $n placeholders (pgx and lib/pq drivers)
	DialectPostgres Dialect = iota
	// DialectSQLite uses ? placeholders (go-sqlite3 driver)
	DialectSQLite
)

// String returns the string representation of the dialect
func (d Dialect) String() string {
	switch d {
	case DialectPostgres:
		return "postgres"
	case DialectSQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

// DialectForDriver maps a database/sql driver name to its dialect
func DialectForDriver(driver string) (Dialect, error) {
	switch driver {
	case "pgx", "postgres":
		return DialectPostgres, nil
	case "sqlite3":
		return DialectSQLite, nil
	default:
		return 0, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// Rebind rewrites ? placeholders into the dialect's native form.
// Question marks inside single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 1
	inLiteral := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inLiteral = !inLiteral
			b.WriteByte(c)
		case c == '?' && !inLiteral:
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// primaryKey returns the auto-incrementing primary key column definition
func (d Dialect) primaryKey(column string) string {
	if d == DialectSQLite {
		return column + " INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return column + " BIGSERIAL PRIMARY KEY"
}
