package metadata

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// singular option keys and the plural key they fold into
var pluralKeys = map[string]string{
	"metadata_name":            "metadata_names",
	"metadata_value":           "metadata_values",
	"metadata_name_value_pair": "metadata_name_value_pairs",
	"metadata_owner_guid":      "metadata_owner_guids",
	"metadata_id":              "metadata_ids",
	"guid":                     "guids",
	"type":                     "types",
	"subtype":                  "subtypes",
}

// FromOptions builds a Query from a loose option map such as those decoded
// from JSON or passed by plugins. Singular keys are folded into their
// plural form, "count": true selects the count calculation and unknown keys
// are ignored.
func FromOptions(options map[string]interface{}) (*Query, error) {
	opts := make(map[string]interface{}, len(options))
	for k, v := range options {
		opts[k] = v
	}
	for singular, plural := range pluralKeys {
		v, ok := opts[singular]
		if !ok {
			continue
		}
		delete(opts, singular)
		if v == nil {
			continue
		}
		if existing, ok := opts[plural]; ok && existing != nil {
			opts[plural] = append(toSlice(existing), toSlice(v)...)
		} else {
			opts[plural] = v
		}
	}

	var cs []Clause

	if v, ok := opts["metadata_names"]; ok && v != nil {
		names, err := stringList("metadata_names", v)
		if err != nil {
			return nil, err
		}
		cs = append(cs, NameIn(names))
	}
	if v, ok := opts["metadata_values"]; ok && v != nil {
		cs = append(cs, ValueIn(toSlice(v)))
	}
	if v, ok := opts["metadata_name_value_pairs"]; ok && v != nil {
		pairs, err := parsePairs(v)
		if err != nil {
			return nil, err
		}
		for _, p := range pairs {
			cs = append(cs, p)
		}
	}
	if v, ok := opts["metadata_name_value_pairs_operator"]; ok && v != nil {
		s, err := stringValue("metadata_name_value_pairs_operator", v)
		if err != nil {
			return nil, err
		}
		cs = append(cs, PairsOperator(s))
	}
	if v, ok := opts["metadata_case_sensitive"]; ok && v != nil {
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: metadata_case_sensitive must be a bool", ErrInvalidQuery)
		}
		cs = append(cs, CaseSensitive(b))
	}
	if v, ok := opts["metadata_owner_guids"]; ok && v != nil {
		guids, err := int64List("metadata_owner_guids", v)
		if err != nil {
			return nil, err
		}
		cs = append(cs, OwnerIn(guids))
	}
	if v, ok := opts["metadata_ids"]; ok && v != nil {
		ids, err := int64List("metadata_ids", v)
		if err != nil {
			return nil, err
		}
		cs = append(cs, IDIn(ids))
	}
	if v, ok := opts["guids"]; ok && v != nil {
		guids, err := int64List("guids", v)
		if err != nil {
			return nil, err
		}
		cs = append(cs, EntityIn(guids))
	}
	if v, ok := opts["types"]; ok && v != nil {
		types, err := stringList("types", v)
		if err != nil {
			return nil, err
		}
		cs = append(cs, TypeIn(types))
	}
	if v, ok := opts["subtypes"]; ok && v != nil {
		subtypes, err := stringList("subtypes", v)
		if err != nil {
			return nil, err
		}
		cs = append(cs, SubtypeIn(subtypes))
	}

	var created CreatedBetween
	for key, dst := range map[string]*time.Time{
		"metadata_created_time_lower": &created.Lower,
		"metadata_created_time_upper": &created.Upper,
	} {
		if v, ok := opts[key]; ok && v != nil {
			ts, err := int64Value(key, v)
			if err != nil {
				return nil, err
			}
			*dst = time.Unix(ts, 0).UTC()
		}
	}
	if !created.Lower.IsZero() || !created.Upper.IsZero() {
		cs = append(cs, created)
	}

	if v, ok := opts["order_by_metadata"]; ok && v != nil {
		orders, err := parseOrders(v)
		if err != nil {
			return nil, err
		}
		for _, o := range orders {
			cs = append(cs, o)
		}
	}

	if v, ok := opts["metadata_calculation"]; ok && v != nil {
		s, err := stringValue("metadata_calculation", v)
		if err != nil {
			return nil, err
		}
		cs = append(cs, Calculation(s))
	}
	if v, ok := opts["count"]; ok {
		if b, _ := v.(bool); b {
			cs = append(cs, Count{})
		}
	}

	if v, ok := opts["limit"]; ok && v != nil {
		n, err := int64Value("limit", v)
		if err != nil {
			return nil, err
		}
		cs = append(cs, Limit(n))
	}
	if v, ok := opts["offset"]; ok && v != nil {
		n, err := int64Value("offset", v)
		if err != nil {
			return nil, err
		}
		cs = append(cs, Offset(n))
	}

	return NewQuery(cs...)
}

func parsePairs(v interface{}) ([]Pair, error) {
	switch val := v.(type) {
	case Pair:
		return []Pair{val}, nil
	case []Pair:
		return val, nil
	case map[string]interface{}:
		if _, ok := val["name"]; ok {
			p, err := parsePair(val)
			if err != nil {
				return nil, err
			}
			return []Pair{p}, nil
		}
		// shorthand: {"name": value, ...}
		names := make([]string, 0, len(val))
		for name := range val {
			names = append(names, name)
		}
		sort.Strings(names)
		pairs := make([]Pair, 0, len(names))
		for _, name := range names {
			pairs = append(pairs, NameValue(name, toSlice(val[name])...))
		}
		return pairs, nil
	case []interface{}:
		pairs := make([]Pair, 0, len(val))
		for _, item := range val {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: name/value pair must be a map, got %T", ErrInvalidQuery, item)
			}
			p, err := parsePair(m)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, p)
		}
		return pairs, nil
	case []map[string]interface{}:
		pairs := make([]Pair, 0, len(val))
		for _, m := range val {
			p, err := parsePair(m)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, p)
		}
		return pairs, nil
	default:
		return nil, fmt.Errorf("%w: unsupported name/value pairs %T", ErrInvalidQuery, v)
	}
}

func parsePair(m map[string]interface{}) (Pair, error) {
	name, err := stringValue("name", m["name"])
	if err != nil {
		return Pair{}, err
	}
	p := Pair{Name: name, Values: toSlice(m["value"])}

	for _, key := range []string{"operand", "comparison", "operator"} {
		if v, ok := m[key]; ok && v != nil {
			s, err := stringValue(key, v)
			if err != nil {
				return Pair{}, err
			}
			cmp, err := ParseComparison(s)
			if err != nil {
				return Pair{}, err
			}
			p.Comparison = cmp
			break
		}
	}
	if v, ok := m["case_sensitive"]; ok && v != nil {
		b, ok := v.(bool)
		if !ok {
			return Pair{}, fmt.Errorf("%w: case_sensitive must be a bool", ErrInvalidQuery)
		}
		p = p.WithCaseSensitive(b)
	}
	return p, nil
}

func parseOrders(v interface{}) ([]OrderSpec, error) {
	switch val := v.(type) {
	case OrderSpec:
		return []OrderSpec{val}, nil
	case []OrderSpec:
		return val, nil
	case string:
		return []OrderSpec{{Name: val}}, nil
	case map[string]interface{}:
		o, err := parseOrder(val)
		if err != nil {
			return nil, err
		}
		return []OrderSpec{o}, nil
	case []interface{}:
		orders := make([]OrderSpec, 0, len(val))
		for _, item := range val {
			sub, err := parseOrders(item)
			if err != nil {
				return nil, err
			}
			orders = append(orders, sub...)
		}
		return orders, nil
	default:
		return nil, fmt.Errorf("%w: unsupported order_by_metadata %T", ErrInvalidQuery, v)
	}
}

func parseOrder(m map[string]interface{}) (OrderSpec, error) {
	name, err := stringValue("name", m["name"])
	if err != nil {
		return OrderSpec{}, err
	}
	o := OrderSpec{Name: name}
	if v, ok := m["direction"]; ok && v != nil {
		s, err := stringValue("direction", v)
		if err != nil {
			return OrderSpec{}, err
		}
		o.Direction = Direction(s)
	}
	if v, ok := m["as"]; ok && v != nil {
		s, err := stringValue("as", v)
		if err != nil {
			return OrderSpec{}, err
		}
		o.As = ValueType(s)
	}
	return o, nil
}

func toSlice(v interface{}) []interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case []interface{}:
		return val
	case []string:
		out := make([]interface{}, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case []int:
		out := make([]interface{}, len(val))
		for i, n := range val {
			out[i] = n
		}
		return out
	case []int64:
		out := make([]interface{}, len(val))
		for i, n := range val {
			out[i] = n
		}
		return out
	default:
		return []interface{}{v}
	}
}

func stringValue(key string, v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidQuery, key, v)
	}
	return s, nil
}

func stringList(key string, v interface{}) ([]string, error) {
	items := toSlice(v)
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, err := stringValue(key, item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func int64Value(key string, v interface{}) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidQuery, key, n)
		}
		return int64(n), nil
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidQuery, key, n)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("%w: %s must be an integer, got %T", ErrInvalidQuery, key, v)
	}
}

func int64List(key string, v interface{}) ([]int64, error) {
	items := toSlice(v)
	out := make([]int64, 0, len(items))
	for _, item := range items {
		n, err := int64Value(key, item)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
