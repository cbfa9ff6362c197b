package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/metastore/internal/orm/metadata"
)

// queryFlags collects metadata filters from the command line and turns them
// into the option map understood by metadata.FromOptions
type queryFlags struct {
	entities        []int64
	owners          []int64
	ids             []int64
	names           []string
	values          []string
	types           []string
	subtypes        []string
	pairs           []string
	or              bool
	caseInsensitive bool
	order           []string
	calculation     string
	limit           int
	offset          int
	options         string
}

func (f *queryFlags) register(cmd *cobra.Command, paging bool) {
	fs := cmd.Flags()
	fs.Int64SliceVarP(&f.entities, "entity", "e", nil, "entity guids")
	fs.Int64SliceVar(&f.owners, "owner", nil, "metadata owner guids")
	fs.Int64SliceVar(&f.ids, "id", nil, "metadata ids")
	fs.StringSliceVarP(&f.names, "name", "n", nil, "metadata names")
	fs.StringSliceVar(&f.values, "value", nil, "metadata values")
	fs.StringSliceVar(&f.types, "type", nil, "entity types")
	fs.StringSliceVar(&f.subtypes, "subtype", nil, "entity subtypes")
	fs.StringArrayVarP(&f.pairs, "pair", "p", nil, `name/value condition such as "color=red" or "rating>=3"`)
	fs.BoolVar(&f.or, "or", false, "match any --pair instead of all")
	fs.BoolVarP(&f.caseInsensitive, "case-insensitive", "i", false, "compare names and values case-insensitively")
	fs.StringArrayVar(&f.order, "order", nil, `order by metadata value: "name[:asc|desc[:integer]]"`)
	fs.StringVar(&f.options, "options", "", "raw JSON query options, merged under the flags")
	if paging {
		fs.IntVar(&f.limit, "limit", 0, "maximum rows (-1 for no limit)")
		fs.IntVar(&f.offset, "offset", 0, "rows to skip")
	}
}

// pairOperators is ordered so that two-character operators match first
var pairOperators = []string{">=", "<=", "!=", "<>", "=", "<", ">", " not like ", " like "}

// parsePairFlag splits "name<op>value" into a pair option map
func parsePairFlag(s string) (map[string]interface{}, error) {
	lower := strings.ToLower(s)
	for _, op := range pairOperators {
		i := strings.Index(lower, op)
		if i <= 0 {
			continue
		}
		name := strings.TrimSpace(s[:i])
		value := s[i+len(op):]
		if name == "" {
			break
		}
		return map[string]interface{}{
			"name":    name,
			"value":   value,
			"operand": strings.ToUpper(strings.TrimSpace(op)),
		}, nil
	}
	return nil, fmt.Errorf("invalid --pair %q: expected name<op>value", s)
}

// parseOrderFlag splits "name[:direction[:as]]" into an order option map
func parseOrderFlag(s string) (map[string]interface{}, error) {
	parts := strings.Split(s, ":")
	if parts[0] == "" || len(parts) > 3 {
		return nil, fmt.Errorf("invalid --order %q: expected name[:asc|desc[:integer]]", s)
	}
	m := map[string]interface{}{"name": parts[0]}
	if len(parts) > 1 && parts[1] != "" {
		m["direction"] = parts[1]
	}
	if len(parts) > 2 && parts[2] != "" {
		m["as"] = parts[2]
	}
	return m, nil
}

// optionMap renders the flags as FromOptions keys. Flags override keys
// from --options.
func (f *queryFlags) optionMap() (map[string]interface{}, error) {
	opts := map[string]interface{}{}
	if f.options != "" {
		if err := json.Unmarshal([]byte(f.options), &opts); err != nil {
			return nil, fmt.Errorf("invalid --options: %w", err)
		}
	}

	if len(f.entities) > 0 {
		opts["guids"] = f.entities
	}
	if len(f.owners) > 0 {
		opts["metadata_owner_guids"] = f.owners
	}
	if len(f.ids) > 0 {
		opts["metadata_ids"] = f.ids
	}
	if len(f.names) > 0 {
		opts["metadata_names"] = f.names
	}
	if len(f.values) > 0 {
		opts["metadata_values"] = f.values
	}
	if len(f.types) > 0 {
		opts["types"] = f.types
	}
	if len(f.subtypes) > 0 {
		opts["subtypes"] = f.subtypes
	}
	if len(f.pairs) > 0 {
		pairs := make([]map[string]interface{}, 0, len(f.pairs))
		for _, p := range f.pairs {
			m, err := parsePairFlag(p)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, m)
		}
		opts["metadata_name_value_pairs"] = pairs
	}
	if f.or {
		opts["metadata_name_value_pairs_operator"] = "OR"
	}
	if f.caseInsensitive {
		opts["metadata_case_sensitive"] = false
	}
	if len(f.order) > 0 {
		orders := make([]interface{}, 0, len(f.order))
		for _, o := range f.order {
			m, err := parseOrderFlag(o)
			if err != nil {
				return nil, err
			}
			orders = append(orders, m)
		}
		opts["order_by_metadata"] = orders
	}
	if f.calculation != "" {
		opts["metadata_calculation"] = f.calculation
	}
	if f.limit != 0 {
		opts["limit"] = f.limit
	}
	if f.offset != 0 {
		opts["offset"] = f.offset
	}
	return opts, nil
}

// query builds the metadata query described by the flags
func (f *queryFlags) query() (*metadata.Query, error) {
	opts, err := f.optionMap()
	if err != nil {
		return nil, err
	}
	return metadata.FromOptions(opts)
}
