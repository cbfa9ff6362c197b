package entity

import (
	"context"
	"fmt"
	"strings"

	"github.com/conduit-lang/metastore/internal/web/auth"
	webcontext "github.com/conduit-lang/metastore/internal/web/context"
)

// DefaultLimit is applied when Options.Limit is zero
const DefaultLimit = 10

// NoLimit disables the LIMIT clause
const NoLimit = -1

// Clause is a SQL fragment written with ? placeholders and its arguments
type Clause struct {
	SQL  string
	Args []interface{}
}

// Options selects entities. The entities table is aliased as "e"; callers
// may reference it from Wheres and OrderBy.
type Options struct {
	Types      []string
	Subtypes   []string
	GUIDs      []int64
	OwnerGUIDs []int64

	// Wheres are ANDed with the built-in filters
	Wheres []Clause
	// OrderBy replaces the default "newest first" ordering
	OrderBy []Clause

	// Count selects COUNT(*) instead of rows
	Count bool

	Limit  int
	Offset int
}

// Validate rejects options that cannot produce a sane statement
func (o *Options) Validate() error {
	if o.Limit < NoLimit {
		return fmt.Errorf("invalid limit %d", o.Limit)
	}
	if o.Offset < 0 {
		return fmt.Errorf("invalid offset %d", o.Offset)
	}
	for _, w := range o.Wheres {
		if strings.TrimSpace(w.SQL) == "" {
			return fmt.Errorf("empty where clause")
		}
		if strings.Count(w.SQL, "?") != len(w.Args) {
			return fmt.Errorf("where clause %q expects %d args, got %d", w.SQL, strings.Count(w.SQL, "?"), len(w.Args))
		}
	}
	for _, ob := range o.OrderBy {
		if strings.Count(ob.SQL, "?") != len(ob.Args) {
			return fmt.Errorf("order clause %q expects %d args, got %d", ob.SQL, strings.Count(ob.SQL, "?"), len(ob.Args))
		}
	}
	return nil
}

// InClause renders "column IN (?, ?, ...)" for the given values
func InClause(column string, values ...interface{}) Clause {
	if len(values) == 0 {
		return Clause{SQL: "1 = 0"}
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
	return Clause{
		SQL:  fmt.Sprintf("%s IN (%s)", column, placeholders),
		Args: values,
	}
}

// AccessClause restricts rows of the aliased table to those the acting
// principal may read. It returns ok=false when no restriction applies.
func AccessClause(ctx context.Context, session auth.Session, alias string) (Clause, bool) {
	if webcontext.IgnoreAccess(ctx) || auth.IsAdmin(ctx) {
		return Clause{}, false
	}

	principal := session.CurrentPrincipalID(ctx)
	if principal == 0 {
		return Clause{
			SQL:  fmt.Sprintf("%s.access_id = ?", alias),
			Args: []interface{}{AccessPublic},
		}, true
	}

	return Clause{
		SQL:  fmt.Sprintf("(%[1]s.access_id IN (?, ?) OR %[1]s.owner_guid = ?)", alias),
		Args: []interface{}{AccessPublic, AccessLoggedIn, principal},
	}, true
}

// EnabledClause hides disabled rows unless the context shows them
func EnabledClause(ctx context.Context, alias string) (Clause, bool) {
	if webcontext.ShowHidden(ctx) {
		return Clause{}, false
	}
	return Clause{SQL: fmt.Sprintf("%s.enabled = 'yes'", alias)}, true
}

func int64Args(values []int64) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func stringArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
