package metadata

import (
	"context"
	"fmt"
	"strings"

	"github.com/conduit-lang/metastore/internal/orm/entity"
	"github.com/conduit-lang/metastore/internal/web/auth"
)

// recordFrom is the FROM clause of every record query. Records are only
// visible through an entity the principal can see.
const recordFrom = " FROM metadata n_table JOIN entities e ON e.guid = n_table.entity_guid"

type clauses []entity.Clause

func (cs *clauses) add(c entity.Clause) {
	*cs = append(*cs, c)
}

func (cs *clauses) addIf(c entity.Clause, ok bool) {
	if ok {
		*cs = append(*cs, c)
	}
}

// join renders the clauses separated by op. An empty list renders "".
func (cs clauses) join(op string) entity.Clause {
	parts := make([]string, 0, len(cs))
	var args []interface{}
	for _, c := range cs {
		parts = append(parts, c.SQL)
		args = append(args, c.Args...)
	}
	return entity.Clause{SQL: strings.Join(parts, " "+op+" "), Args: args}
}

func stringsIn(column string, values []string, caseSensitive bool) entity.Clause {
	args := make([]interface{}, len(values))
	for i, v := range values {
		if caseSensitive {
			args[i] = v
		} else {
			args[i] = strings.ToLower(v)
		}
	}
	if !caseSensitive {
		column = "LOWER(" + column + ")"
	}
	return entity.InClause(column, args...)
}

func int64sIn(column string, values []int64) entity.Clause {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return entity.InClause(column, args...)
}

// integerExpr reads a value as an integer, yielding NULL for text records
func integerExpr(alias string) string {
	return fmt.Sprintf("CASE WHEN %[1]s.value_type = 'integer' THEN CAST(%[1]s.value AS BIGINT) END", alias)
}

func valueExpr(alias string, as ValueType) string {
	if as == ValueTypeInteger {
		return integerExpr(alias)
	}
	return alias + ".value"
}

// pairClause renders one name/value pair against the aliased metadata table
func pairClause(alias string, p Pair, defaultCaseSensitive bool) entity.Clause {
	caseSensitive := defaultCaseSensitive
	if p.CaseSensitive != nil {
		caseSensitive = *p.CaseSensitive
	}

	var cs clauses
	cs.add(entity.Clause{SQL: alias + ".name = ?", Args: []interface{}{p.Name}})

	if p.Comparison.ordering() {
		if ints, ok := integerArgs(p.encoded); ok {
			cs.add(entity.Clause{
				SQL:  fmt.Sprintf("%s %s ?", integerExpr(alias), p.Comparison),
				Args: ints,
			})
			return wrap(cs.join("AND"))
		}
	}

	column := alias + ".value"
	args := make([]interface{}, len(p.encoded))
	for i, v := range p.encoded {
		if caseSensitive {
			args[i] = v
		} else {
			args[i] = strings.ToLower(v)
		}
	}
	if !caseSensitive {
		column = "LOWER(" + column + ")"
	}

	switch p.Comparison {
	case CmpIn, CmpNotIn:
		in := entity.InClause(column, args...)
		if p.Comparison == CmpNotIn {
			in.SQL = strings.Replace(in.SQL, " IN (", " NOT IN (", 1)
		}
		cs.add(in)
	case CmpNotEqual:
		cs.add(entity.Clause{SQL: column + " <> ?", Args: args[:1]})
	default:
		cs.add(entity.Clause{SQL: fmt.Sprintf("%s %s ?", column, p.Comparison), Args: args[:1]})
	}
	return wrap(cs.join("AND"))
}

func integerArgs(encoded []string) ([]interface{}, bool) {
	if len(encoded) != 1 {
		return nil, false
	}
	v, err := DecodeValue(encoded[0], ValueTypeInteger)
	if err != nil {
		return nil, false
	}
	return []interface{}{v}, true
}

func wrap(c entity.Clause) entity.Clause {
	c.SQL = "(" + c.SQL + ")"
	return c
}

// recordFilters renders the record-level filters of q against alias.
// Pairs are included only when withPairs is set.
func recordFilters(q *Query, alias string, withPairs bool) clauses {
	var cs clauses
	// Names are keys, not content: the case rule only applies to values.
	if len(q.Names) > 0 {
		cs.add(stringsIn(alias+".name", q.Names, true))
	}
	if len(q.Values) > 0 {
		cs.add(stringsIn(alias+".value", q.Values, q.CaseSensitive))
	}
	if len(q.OwnerGUIDs) > 0 {
		cs.add(int64sIn(alias+".owner_guid", q.OwnerGUIDs))
	}
	if len(q.IDs) > 0 {
		cs.add(int64sIn(alias+".id", q.IDs))
	}
	if !q.CreatedLower.IsZero() {
		cs.add(entity.Clause{SQL: alias + ".time_created >= ?", Args: []interface{}{q.CreatedLower.Unix()}})
	}
	if !q.CreatedUpper.IsZero() {
		cs.add(entity.Clause{SQL: alias + ".time_created <= ?", Args: []interface{}{q.CreatedUpper.Unix()}})
	}
	if withPairs && len(q.Pairs) > 0 {
		var pairs clauses
		for _, p := range q.Pairs {
			pairs.add(pairClause(alias, p, q.CaseSensitive))
		}
		cs.add(wrap(pairs.join(string(q.PairsOperator))))
	}
	return cs
}

// visibility restricts the aliased table to enabled rows the principal can read
func visibility(ctx context.Context, session auth.Session, alias string) clauses {
	var cs clauses
	cs.addIf(entity.EnabledClause(ctx, alias))
	cs.addIf(entity.AccessClause(ctx, session, alias))
	return cs
}

// selectRecords renders a record query with the given select list. Paging
// and ordering are left to the caller.
func selectRecords(ctx context.Context, session auth.Session, q *Query, selectList string) (string, []interface{}) {
	cs := recordFilters(q, "n_table", true)
	if len(q.EntityGUIDs) > 0 {
		cs.add(int64sIn("n_table.entity_guid", q.EntityGUIDs))
	}
	if len(q.Types) > 0 {
		cs.add(stringsIn("e.type", q.Types, true))
	}
	if len(q.Subtypes) > 0 {
		cs.add(stringsIn("e.subtype", q.Subtypes, true))
	}
	// Ordering by metadata only keeps records whose entity carries it.
	for i, o := range q.Order {
		alias := fmt.Sprintf("mhas%d", i+1)
		cs.add(existsMetadata(ctx, session, alias, clauses{{SQL: alias + ".name = ?", Args: []interface{}{o.Name}}}))
	}
	cs = append(cs, visibility(ctx, session, "n_table")...)
	cs = append(cs, visibility(ctx, session, "e")...)

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(selectList)
	sb.WriteString(recordFrom)

	where := cs.join("AND")
	if where.SQL != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where.SQL)
	}
	return sb.String(), where.Args
}

// recordOrder sorts records by the named metadata of their entity, then by
// age. A record whose entity lacks the named metadata sorts as NULL.
func recordOrder(ctx context.Context, session auth.Session, q *Query) (string, []interface{}) {
	parts := make([]string, 0, len(q.Order)+1)
	var args []interface{}
	for i, o := range q.Order {
		c := orderByMetadata(ctx, session, fmt.Sprintf("msort%d", i+1), "n_table.entity_guid", o)
		parts = append(parts, c.SQL)
		args = append(args, c.Args...)
	}
	parts = append(parts, "n_table.time_created ASC, n_table.id ASC")
	return " ORDER BY " + strings.Join(parts, ", "), args
}

// orderByMetadata renders a sort key reading the first visible metadata named
// o.Name on the entity given by guidExpr
func orderByMetadata(ctx context.Context, session auth.Session, alias, guidExpr string, o OrderSpec) entity.Clause {
	inner := clauses{
		{SQL: alias + ".entity_guid = " + guidExpr},
		{SQL: alias + ".name = ?", Args: []interface{}{o.Name}},
	}
	inner = append(inner, visibility(ctx, session, alias)...)
	where := inner.join("AND")
	return entity.Clause{
		SQL: fmt.Sprintf("(SELECT %s FROM metadata %s WHERE %s ORDER BY %s.id LIMIT 1) %s",
			valueExpr(alias, o.As), alias, where.SQL, alias, o.Direction),
		Args: where.Args,
	}
}

func appendPaging(query string, args []interface{}, limit, offset int) (string, []interface{}) {
	if limit == NoLimit {
		return query, args
	}
	query += " LIMIT ?"
	args = append(args, limit)
	if offset > 0 {
		query += " OFFSET ?"
		args = append(args, offset)
	}
	return query, args
}

// calculationSelect renders the aggregate select list
func calculationSelect(calc Calculation) string {
	if calc == CalcCount {
		return "COUNT(n_table.id)"
	}
	return fmt.Sprintf("%s(%s)", strings.ToUpper(string(calc)), integerExpr("n_table"))
}

// entityOptions merges the metadata clauses of q into entity table options.
// Every metadata condition is an EXISTS subquery so entities never repeat.
func entityOptions(ctx context.Context, session auth.Session, q *Query) *entity.Options {
	opts := &entity.Options{
		Types:    q.Types,
		Subtypes: q.Subtypes,
		GUIDs:    q.EntityGUIDs,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}

	if filters := recordFilters(q, "n_table", false); len(filters) > 0 {
		opts.Wheres = append(opts.Wheres, existsMetadata(ctx, session, "n_table", filters))
	}

	if len(q.Pairs) > 0 {
		var pairs clauses
		for i, p := range q.Pairs {
			alias := fmt.Sprintf("n_table%d", i+1)
			pairs.add(existsMetadata(ctx, session, alias, clauses{pairClause(alias, p, q.CaseSensitive)}))
		}
		opts.Wheres = append(opts.Wheres, wrap(pairs.join(string(q.PairsOperator))))
	}

	for i, o := range q.Order {
		alias := fmt.Sprintf("msort%d", i+1)
		named := clauses{{SQL: alias + ".name = ?", Args: []interface{}{o.Name}}}
		opts.Wheres = append(opts.Wheres, existsMetadata(ctx, session, alias, named))
		opts.OrderBy = append(opts.OrderBy, orderByMetadata(ctx, session, alias, "e.guid", o))
	}

	return opts
}

func existsMetadata(ctx context.Context, session auth.Session, alias string, filters clauses) entity.Clause {
	cs := clauses{{SQL: alias + ".entity_guid = e.guid"}}
	cs = append(cs, filters...)
	cs = append(cs, visibility(ctx, session, alias)...)
	where := cs.join("AND")
	return entity.Clause{
		SQL:  fmt.Sprintf("EXISTS (SELECT 1 FROM metadata %s WHERE %s)", alias, where.SQL),
		Args: where.Args,
	}
}
