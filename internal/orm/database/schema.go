package database

import (
	"context"
	"fmt"
)

// Migrate creates the entities and metadata tables if they do not exist
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range d.schema() {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", ConvertDBError(err))
		}
	}
	return nil
}

func (d *DB) schema() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS entities (
	%s,
	type VARCHAR(32) NOT NULL,
	subtype VARCHAR(64) NOT NULL DEFAULT '',
	owner_guid BIGINT NOT NULL DEFAULT 0,
	container_guid BIGINT NOT NULL DEFAULT 0,
	access_id INTEGER NOT NULL DEFAULT 0,
	time_created BIGINT NOT NULL,
	time_updated BIGINT NOT NULL,
	enabled VARCHAR(3) NOT NULL DEFAULT 'yes'
)`, d.dialect.primaryKey("guid")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS metadata (
	%s,
	entity_guid BIGINT NOT NULL,
	name TEXT NOT NULL,
	value TEXT NOT NULL,
	value_type VARCHAR(7) NOT NULL,
	owner_guid BIGINT NOT NULL DEFAULT 0,
	time_created BIGINT NOT NULL,
	access_id INTEGER NOT NULL DEFAULT 0,
	enabled VARCHAR(3) NOT NULL DEFAULT 'yes'
)`, d.dialect.primaryKey("id")),
		`CREATE INDEX IF NOT EXISTS metadata_entity_guid_name ON metadata (entity_guid, name)`,
		`CREATE INDEX IF NOT EXISTS metadata_owner_guid ON metadata (owner_guid)`,
		`CREATE INDEX IF NOT EXISTS entities_type_subtype ON entities (type, subtype)`,
	}
}
