package ui

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/conduit-lang/metastore/internal/orm/entity"
	"github.com/conduit-lang/metastore/internal/orm/metadata"
)

// MaxValueWidth clips long metadata values in record tables
const MaxValueWidth = 48

var recordColumns = []Column{
	{Title: "ID", Right: true},
	{Title: "Entity", Right: true},
	{Title: "Name"},
	{Title: "Value", Max: MaxValueWidth},
	{Title: "Type"},
	{Title: "Owner", Right: true},
	{Title: "Access"},
	{Title: "Enabled"},
}

var entityColumns = []Column{
	{Title: "GUID", Right: true},
	{Title: "Type"},
	{Title: "Subtype"},
	{Title: "Owner", Right: true},
	{Title: "Access"},
	{Title: "Created"},
}

// AccessName returns the display name of an access id
func AccessName(id int64) string {
	switch id {
	case entity.AccessPrivate:
		return "private"
	case entity.AccessLoggedIn:
		return "logged_in"
	case entity.AccessPublic:
		return "public"
	case entity.AccessFriends:
		return "friends"
	default:
		return strconv.FormatInt(id, 10)
	}
}

func enabledName(enabled bool) string {
	if enabled {
		return "yes"
	}
	return "no"
}

// RenderRecords writes metadata records as a table
func RenderRecords(w io.Writer, records []*metadata.Record, noColor bool) {
	if len(records) == 0 {
		fmt.Fprintln(w, Info("No metadata matched.", noColor))
		return
	}

	table := NewTable(w, recordColumns, noColor)
	for _, r := range records {
		table.AddRow(
			strconv.FormatInt(r.ID, 10),
			strconv.FormatInt(r.EntityGUID, 10),
			r.Name,
			r.ValueString(),
			string(r.ValueType),
			strconv.FormatInt(r.OwnerGUID, 10),
			AccessName(r.AccessID),
			enabledName(r.Enabled),
		)
	}
	table.Render()
}

// RenderRecord writes a single record as key/value pairs
func RenderRecord(w io.Writer, r *metadata.Record, url string, noColor bool) {
	kv := NewFields(w, noColor)
	kv.Add("ID", strconv.FormatInt(r.ID, 10))
	kv.Add("Entity", strconv.FormatInt(r.EntityGUID, 10))
	kv.Add("Name", r.Name)
	kv.Add("Value", r.ValueString())
	kv.Add("Type", string(r.ValueType))
	kv.Add("Owner", strconv.FormatInt(r.OwnerGUID, 10))
	kv.Add("Access", AccessName(r.AccessID))
	kv.Add("Created", r.TimeCreated.Format(time.RFC3339))
	kv.Add("Enabled", enabledName(r.Enabled))
	if url != "" {
		kv.Add("URL", url)
	}
	kv.Render()
}

// RenderEntities writes entities as a table
func RenderEntities(w io.Writer, list []*entity.Entity, noColor bool) {
	if len(list) == 0 {
		fmt.Fprintln(w, Info("No entities matched.", noColor))
		return
	}

	table := NewTable(w, entityColumns, noColor)
	for _, e := range list {
		table.AddRow(
			strconv.FormatInt(e.GUID, 10),
			e.Type,
			e.Subtype,
			strconv.FormatInt(e.OwnerGUID, 10),
			AccessName(e.AccessID),
			e.TimeCreated.Format(time.RFC3339),
		)
	}
	table.Render()
}
