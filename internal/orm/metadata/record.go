package metadata

import (
	"fmt"
	"time"
)

// Record is one named value attached to an entity
type Record struct {
	ID          int64       `json:"id"`
	EntityGUID  int64       `json:"entity_guid"`
	Name        string      `json:"name"`
	Value       interface{} `json:"value"`
	ValueType   ValueType   `json:"value_type"`
	OwnerGUID   int64       `json:"owner_guid"`
	AccessID    int64       `json:"access_id"`
	TimeCreated time.Time   `json:"time_created"`
	Enabled     bool        `json:"enabled"`
}

// GetOwnerGUID returns the owner for edit checks
func (r *Record) GetOwnerGUID() int64 {
	return r.OwnerGUID
}

// ValueString returns the stored text form of the value
func (r *Record) ValueString() string {
	s, err := EncodeValue(r.Value)
	if err != nil {
		return fmt.Sprint(r.Value)
	}
	return s
}

const recordColumns = "n_table.id, n_table.entity_guid, n_table.name, n_table.value, n_table.value_type, n_table.owner_guid, n_table.access_id, n_table.time_created, n_table.enabled"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		r         Record
		raw       string
		valueType string
		created   int64
		enabled   string
	)
	if err := row.Scan(
		&r.ID,
		&r.EntityGUID,
		&r.Name,
		&raw,
		&valueType,
		&r.OwnerGUID,
		&r.AccessID,
		&created,
		&enabled,
	); err != nil {
		return nil, err
	}

	r.ValueType = ValueType(valueType)
	value, err := DecodeValue(raw, r.ValueType)
	if err != nil {
		return nil, err
	}
	r.Value = value
	r.TimeCreated = time.Unix(created, 0).UTC()
	r.Enabled = enabled == "yes"
	return &r, nil
}
