package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/conduit-lang/metastore/internal/orm/entity"
	"github.com/conduit-lang/metastore/internal/orm/metadata"
	"github.com/fatih/color"
)

func TestRenderRecords(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	RenderRecords(&buf, []*metadata.Record{
		{ID: 1, EntityGUID: 5, Name: "color", Value: "red", ValueType: metadata.ValueTypeText, AccessID: entity.AccessPublic, Enabled: true},
		{ID: 2, EntityGUID: 5, Name: "rank", Value: int64(12), ValueType: metadata.ValueTypeInteger, AccessID: entity.AccessPrivate},
	}, true)

	output := buf.String()
	for _, want := range []string{"Entity", "color", "red", "public", "rank", "12", "integer", "private", "no"} {
		if !strings.Contains(output, want) {
			t.Errorf("RenderRecords output missing %q:\n%s", want, output)
		}
	}
}

func TestRenderRecordsEmpty(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	RenderRecords(&buf, nil, true)

	if !strings.Contains(buf.String(), "No metadata matched.") {
		t.Errorf("expected empty notice, got %q", buf.String())
	}
}

func TestRenderRecord(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	RenderRecord(&buf, &metadata.Record{
		ID: 4, EntityGUID: 5, Name: "color", Value: "red", ValueType: metadata.ValueTypeText,
		TimeCreated: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), Enabled: true,
	}, "http://localhost:3000/export/metadata/4", true)

	output := buf.String()
	for _, want := range []string{"ID:", "4", "2024-03-01T12:00:00Z", "URL:", "/export/metadata/4"} {
		if !strings.Contains(output, want) {
			t.Errorf("RenderRecord output missing %q:\n%s", want, output)
		}
	}
}

func TestRenderEntities(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	RenderEntities(&buf, []*entity.Entity{
		{GUID: 10, Type: "object", Subtype: "blog", OwnerGUID: 3, AccessID: entity.AccessLoggedIn},
	}, true)

	output := buf.String()
	for _, want := range []string{"GUID", "10", "object", "blog", "logged_in"} {
		if !strings.Contains(output, want) {
			t.Errorf("RenderEntities output missing %q:\n%s", want, output)
		}
	}
}

func TestAccessName(t *testing.T) {
	tests := map[int64]string{
		entity.AccessPrivate:  "private",
		entity.AccessLoggedIn: "logged_in",
		entity.AccessPublic:   "public",
		entity.AccessFriends:  "friends",
		42:                    "42",
	}
	for id, want := range tests {
		if got := AccessName(id); got != want {
			t.Errorf("AccessName(%d) = %q; want %q", id, got, want)
		}
	}
}
