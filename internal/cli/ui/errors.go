package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/conduit-lang/metastore/internal/orm/metadata"
)

// Level is the severity of a Notice
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

func (l Level) style() (symbol string, attrs []color.Attribute) {
	switch l {
	case LevelWarning:
		return "⚠️", []color.Attribute{color.FgYellow}
	case LevelInfo:
		return "ℹ️", []color.Attribute{color.FgCyan}
	default:
		return "❌", []color.Attribute{color.FgRed}
	}
}

// Hint is a follow-up the user can try, rendered as "→ Label: Try"
type Hint struct {
	Label string
	Try   string
}

// Notice is a message printed by the CLI
//
// Example output:
//
//	❌ DELETE FAILED: metadata 12: metadata not found
//
//	   → List metadata: metastore list --entity <guid>
//	   → Include disabled records: --show-hidden
type Notice struct {
	Level Level
	// Title prefixes the message in capitals when set
	Title       string
	Message     string
	Consequence string
	Hints       []Hint
}

// Format renders the notice
func (n Notice) Format(noColor bool) string {
	symbol, attrs := n.Level.style()
	head := color.New(append(attrs, color.Bold)...)
	body := color.New(attrs...)
	hint := color.New(color.FgCyan)
	if noColor {
		head.DisableColor()
		body.DisableColor()
		hint.DisableColor()
	}

	var b strings.Builder
	if n.Title != "" {
		head.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(n.Title), n.Message)
	} else {
		head.Fprintf(&b, "%s %s\n", symbol, n.Message)
	}
	if n.Consequence != "" {
		body.Fprintf(&b, "   %s\n", n.Consequence)
	}
	if len(n.Hints) > 0 {
		b.WriteString("\n")
		for _, h := range n.Hints {
			hint.Fprintf(&b, "   → %s: %s\n", h.Label, h.Try)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Write prints the notice followed by a newline
func (n Notice) Write(w io.Writer, noColor bool) {
	fmt.Fprintln(w, n.Format(noColor))
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success message to the writer
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// StoreError describes a failed metadata operation with hints chosen from
// the error kind
func StoreError(operation string, err error, noColor bool) string {
	n := Notice{Title: operation + " failed", Message: err.Error()}

	switch {
	case metadata.IsNotFound(err):
		n.Hints = []Hint{
			{"List metadata", "metastore list --entity <guid>"},
			{"Include disabled records", "--show-hidden"},
		}
	case metadata.IsPermissionDenied(err):
		n.Consequence = "The acting principal may not edit this record."
		n.Hints = []Hint{{"Act as the owner", "--as <guid>"}, {"Bypass access checks", "--ignore-access"}}
	case errors.Is(err, metadata.ErrUnconstrainedBatch):
		n.Consequence = "Nothing was changed."
		n.Hints = []Hint{{"Narrow the batch", "--entity, --owner, --name, --value or --id"}}
	case errors.Is(err, metadata.ErrHiddenNotVisible):
		n.Hints = []Hint{{"Show disabled records", "--show-hidden"}}
	case errors.Is(err, metadata.ErrInvalidQuery), errors.Is(err, metadata.ErrValueUnset):
		n.Hints = []Hint{{"Check the flags", "metastore " + strings.ToLower(operation) + " --help"}}
	case errors.Is(err, metadata.ErrBatchIncomplete):
		n.Consequence = "Records processed before the failure stay changed."
	default:
		n.Hints = []Hint{{"Get help", "metastore " + strings.ToLower(operation) + " --help"}}
	}
	return n.Format(noColor)
}

// ConfigError describes a configuration that failed to load
func ConfigError(err error, noColor bool) string {
	return Notice{
		Title:       "configuration error",
		Message:     err.Error(),
		Consequence: "Settings come from metastore.yml and METASTORE_* environment variables.",
		Hints: []Hint{
			{"View config", "cat metastore.yml"},
			{"Pick a file", "metastore --config <path>"},
		},
	}.Format(noColor)
}

// Warning creates a warning with an optional hint
func Warning(message string, hint *Hint, noColor bool) string {
	n := Notice{Level: LevelWarning, Message: message}
	if hint != nil {
		n.Hints = []Hint{*hint}
	}
	return n.Format(noColor)
}

// Info creates an informational message
func Info(message string, noColor bool) string {
	return Notice{Level: LevelInfo, Message: message}.Format(noColor)
}
