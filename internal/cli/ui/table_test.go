package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestTable(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	table := NewTable(&buf, []Column{{Title: "ID", Right: true}, {Title: "Name"}, {Title: "Value"}}, true)
	table.AddRow("1", "color", "red")
	table.AddRow("12", "rank", "7")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, separator and 2 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if lines[0] != "ID  Name   Value" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "──") {
		t.Errorf("separator = %q", lines[1])
	}
	if lines[2] != " 1  color  red" {
		t.Errorf("first row = %q", lines[2])
	}
	if lines[3] != "12  rank   7" {
		t.Errorf("second row = %q", lines[3])
	}
}

func TestTableNoColumns(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, nil, true)
	table.AddRow("ignored")
	table.Render()

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestTableRowShape(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []Column{{Title: "A"}, {Title: "B"}}, true)
	table.AddRow("only")
	table.AddRow("x", "y", "dropped")
	table.Render()

	if table.Len() != 2 {
		t.Errorf("Len() = %d, want 2", table.Len())
	}
	if strings.Contains(buf.String(), "dropped") {
		t.Errorf("extra cell rendered:\n%s", buf.String())
	}
}

func TestTableClipsLongValues(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []Column{{Title: "Value", Max: 6}}, true)
	table.AddRow("a very long description")
	table.AddRow("héllo")
	table.Render()

	output := buf.String()
	if !strings.Contains(output, "a ver…") {
		t.Errorf("long value not clipped:\n%s", output)
	}
	if !strings.Contains(output, "héllo") {
		t.Errorf("short unicode value altered:\n%s", output)
	}
}

func TestFields(t *testing.T) {
	var buf bytes.Buffer
	fields := NewFields(&buf, true)
	fields.Add("ID", "4")
	fields.Add("Entity", "5")
	fields.Render()

	want := "ID:     4\nEntity: 5\n"
	if buf.String() != want {
		t.Errorf("Fields output = %q, want %q", buf.String(), want)
	}
}

func TestFieldsEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewFields(&buf, true).Render()

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestPadAndClip(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"left", pad("ab", 4, false), "ab  "},
		{"right", pad("ab", 4, true), "  ab"},
		{"wide enough", pad("abcd", 2, true), "abcd"},
		{"no limit", clip("abcdef", 0), "abcdef"},
		{"fits", clip("abc", 3), "abc"},
		{"cut", clip("abcdef", 4), "abc…"},
		{"single", clip("abcdef", 1), "…"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}
