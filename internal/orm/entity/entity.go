// Package entity is the narrow entity table the metadata store queries
// through: entity rows, their access ids and a composable query.
package entity

import (
	"time"
)

// Access levels shared by entities and metadata
const (
	AccessFriends  int64 = -2
	AccessPrivate  int64 = 0
	AccessLoggedIn int64 = 1
	AccessPublic   int64 = 2
)

// Entity is the parent object metadata attaches to
type Entity struct {
	GUID          int64     `json:"guid"`
	Type          string    `json:"type"`
	Subtype       string    `json:"subtype"`
	OwnerGUID     int64     `json:"owner_guid"`
	ContainerGUID int64     `json:"container_guid"`
	AccessID      int64     `json:"access_id"`
	TimeCreated   time.Time `json:"time_created"`
	TimeUpdated   time.Time `json:"time_updated"`
	Enabled       bool      `json:"enabled"`
}

// GetOwnerGUID returns the owner for edit checks
func (e *Entity) GetOwnerGUID() int64 {
	return e.OwnerGUID
}

// GetType returns the entity type (object, user, group, site)
func (e *Entity) GetType() string {
	return e.Type
}

// GetSubtype returns the entity subtype
func (e *Entity) GetSubtype() string {
	return e.Subtype
}

const columns = "e.guid, e.type, e.subtype, e.owner_guid, e.container_guid, e.access_id, e.time_created, e.time_updated, e.enabled"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntity(row rowScanner) (*Entity, error) {
	var (
		e                Entity
		created, updated int64
		enabled          string
	)
	if err := row.Scan(
		&e.GUID,
		&e.Type,
		&e.Subtype,
		&e.OwnerGUID,
		&e.ContainerGUID,
		&e.AccessID,
		&created,
		&updated,
		&enabled,
	); err != nil {
		return nil, err
	}

	e.TimeCreated = time.Unix(created, 0).UTC()
	e.TimeUpdated = time.Unix(updated, 0).UTC()
	e.Enabled = enabled == "yes"
	return &e, nil
}
