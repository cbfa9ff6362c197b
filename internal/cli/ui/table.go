package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Column describes one column of a Table
type Column struct {
	Title string
	// Right aligns cells to the right, used for ids and guids
	Right bool
	// Max clips cells longer than Max runes when positive
	Max int
}

// Table renders rows of metadata or entities under a coloured header
type Table struct {
	writer  io.Writer
	columns []Column
	rows    [][]string
	noColor bool
}

// NewTable creates a table with the given columns
func NewTable(w io.Writer, columns []Column, noColor bool) *Table {
	return &Table{
		writer:  w,
		columns: columns,
		noColor: noColor,
	}
}

// AddRow appends a row. Missing cells render empty and extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.columns))
	for i := range row {
		if i < len(cells) {
			row[i] = clip(cells[i], t.columns[i].Max)
		}
	}
	t.rows = append(t.rows, row)
}

// Len returns the number of rows added so far
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the header, a separator and every row
func (t *Table) Render() {
	if len(t.columns) == 0 {
		return
	}

	widths := make([]int, len(t.columns))
	for i, c := range t.columns {
		widths[i] = utf8.RuneCountInString(c.Title)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	heading := color.New(color.Bold, color.FgCyan)
	rule := color.New(color.FgHiBlack)
	if t.noColor {
		heading.DisableColor()
		rule.DisableColor()
	}

	titles := make([]string, len(t.columns))
	rules := make([]string, len(t.columns))
	for i, c := range t.columns {
		titles[i] = heading.Sprint(pad(c.Title, widths[i], c.Right))
		rules[i] = rule.Sprint(strings.Repeat("─", widths[i]))
	}
	t.line(titles)
	t.line(rules)

	for _, row := range t.rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = pad(cell, widths[i], t.columns[i].Right)
		}
		t.line(cells)
	}
}

func (t *Table) line(cells []string) {
	fmt.Fprintln(t.writer, strings.TrimRight(strings.Join(cells, "  "), " "))
}

// Fields renders labelled values one per line, labels aligned
type Fields struct {
	writer  io.Writer
	labels  []string
	values  []string
	noColor bool
}

// NewFields creates an empty field list
func NewFields(w io.Writer, noColor bool) *Fields {
	return &Fields{writer: w, noColor: noColor}
}

// Add appends a labelled value
func (f *Fields) Add(label, value string) {
	f.labels = append(f.labels, label)
	f.values = append(f.values, value)
}

// Render writes the fields. Nothing is written when no field was added.
func (f *Fields) Render() {
	width := 0
	for _, l := range f.labels {
		if n := utf8.RuneCountInString(l) + 1; n > width {
			width = n
		}
	}

	label := color.New(color.FgCyan)
	if f.noColor {
		label.DisableColor()
	}
	for i, l := range f.labels {
		fmt.Fprintf(f.writer, "%s %s\n", label.Sprint(pad(l+":", width, false)), f.values[i])
	}
}

func pad(s string, width int, right bool) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	fill := strings.Repeat(" ", width-n)
	if right {
		return fill + s
	}
	return s + fill
}

// clip shortens s to max runes, marking the cut with an ellipsis
func clip(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}
