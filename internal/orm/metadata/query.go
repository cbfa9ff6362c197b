package metadata

import (
	"fmt"
	"strings"
	"time"
)

// NoLimit disables paging when passed to Limit
const NoLimit = -1

// Comparison is the operator used by a name/value pair
type Comparison string

const (
	CmpEqual          Comparison = "="
	CmpNotEqual       Comparison = "!="
	CmpLess           Comparison = "<"
	CmpGreater        Comparison = ">"
	CmpLessOrEqual    Comparison = "<="
	CmpGreaterOrEqual Comparison = ">="
	CmpIn             Comparison = "IN"
	CmpNotIn          Comparison = "NOT IN"
	CmpLike           Comparison = "LIKE"
	CmpNotLike        Comparison = "NOT LIKE"
)

// ParseComparison normalizes an operator string
func ParseComparison(s string) (Comparison, error) {
	c := Comparison(strings.ToUpper(strings.Join(strings.Fields(s), " ")))
	switch c {
	case "":
		return CmpEqual, nil
	case "<>":
		return CmpNotEqual, nil
	case CmpEqual, CmpNotEqual, CmpLess, CmpGreater, CmpLessOrEqual, CmpGreaterOrEqual,
		CmpIn, CmpNotIn, CmpLike, CmpNotLike:
		return c, nil
	default:
		return "", fmt.Errorf("%w: unsupported comparison %q", ErrInvalidQuery, s)
	}
}

func (c Comparison) ordering() bool {
	switch c {
	case CmpLess, CmpGreater, CmpLessOrEqual, CmpGreaterOrEqual:
		return true
	}
	return false
}

func (c Comparison) set() bool {
	return c == CmpIn || c == CmpNotIn
}

// LogicalOperator joins name/value pairs
type LogicalOperator string

const (
	And LogicalOperator = "AND"
	Or  LogicalOperator = "OR"
)

// Calculation is an aggregate computed over matching metadata values
type Calculation string

const (
	CalcNone  Calculation = ""
	CalcCount Calculation = "count"
	CalcSum   Calculation = "sum"
	CalcAvg   Calculation = "avg"
	CalcMin   Calculation = "min"
	CalcMax   Calculation = "max"
)

// ParseCalculation validates an aggregate name
func ParseCalculation(s string) (Calculation, error) {
	c := Calculation(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CalcNone, CalcCount, CalcSum, CalcAvg, CalcMin, CalcMax:
		return c, nil
	default:
		return "", fmt.Errorf("%w: unsupported calculation %q", ErrInvalidQuery, s)
	}
}

// Direction is an ORDER BY direction
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Pair matches records whose name equals Name and whose value compares
// against Values. Several values force the comparison to IN.
type Pair struct {
	Name       string
	Values     []interface{}
	Comparison Comparison
	// CaseSensitive overrides the query default when set
	CaseSensitive *bool

	encoded []string
}

// OrderSpec sorts entities by one of their metadata values
type OrderSpec struct {
	Name      string
	Direction Direction
	// As casts stored values before comparing; integer sorts numerically
	As ValueType
}

// Query is a validated set of metadata filter clauses. Build it with
// NewQuery; the zero value matches everything.
type Query struct {
	Names         []string
	Values        []string
	Pairs         []Pair
	PairsOperator LogicalOperator
	CaseSensitive bool

	OwnerGUIDs  []int64
	IDs         []int64
	EntityGUIDs []int64
	Types       []string
	Subtypes    []string

	CreatedLower time.Time
	CreatedUpper time.Time

	Order       []OrderSpec
	Calculation Calculation

	Limit  int
	Offset int
}

// Clause is one filter, ordering or paging instruction
type Clause interface {
	apply(q *Query) error
}

// NewQuery validates clauses and assembles a Query
func NewQuery(clauses ...Clause) (*Query, error) {
	q := &Query{
		PairsOperator: And,
		CaseSensitive: true,
	}
	for _, c := range clauses {
		if c == nil {
			continue
		}
		if err := c.apply(q); err != nil {
			return nil, err
		}
	}
	if !q.CreatedLower.IsZero() && !q.CreatedUpper.IsZero() && q.CreatedLower.After(q.CreatedUpper) {
		return nil, fmt.Errorf("%w: created lower bound after upper bound", ErrInvalidQuery)
	}
	return q, nil
}

// MustQuery is NewQuery that panics on invalid clauses
func MustQuery(clauses ...Clause) *Query {
	q, err := NewQuery(clauses...)
	if err != nil {
		panic(err)
	}
	return q
}

// NameIn matches records whose name is any of the listed names
type NameIn []string

// Names builds a NameIn clause; a single name is the singular form
func Names(names ...string) NameIn { return NameIn(names) }

func (c NameIn) apply(q *Query) error {
	for _, n := range c {
		if n == "" {
			return fmt.Errorf("%w: empty metadata name", ErrInvalidQuery)
		}
	}
	q.Names = append(q.Names, c...)
	return nil
}

// ValueIn matches records whose value is any of the listed values,
// independently of NameIn
type ValueIn []interface{}

// Values builds a ValueIn clause
func Values(values ...interface{}) ValueIn { return ValueIn(values) }

func (c ValueIn) apply(q *Query) error {
	for _, v := range c {
		s, err := EncodeValue(v)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		q.Values = append(q.Values, s)
	}
	return nil
}

// NameValue builds an equality pair; several values become an IN pair
func NameValue(name string, values ...interface{}) Pair {
	return Pair{Name: name, Values: values, Comparison: CmpEqual}
}

// Compare builds a pair with an explicit comparison
func Compare(name string, cmp Comparison, values ...interface{}) Pair {
	return Pair{Name: name, Values: values, Comparison: cmp}
}

// WithCaseSensitive returns a copy of the pair with its own case rule
func (p Pair) WithCaseSensitive(sensitive bool) Pair {
	p.CaseSensitive = &sensitive
	return p
}

func (p Pair) apply(q *Query) error {
	if p.Name == "" {
		return fmt.Errorf("%w: name/value pair without a name", ErrInvalidQuery)
	}
	if len(p.Values) == 0 {
		return fmt.Errorf("%w: name/value pair %q without a value", ErrInvalidQuery, p.Name)
	}

	cmp, err := ParseComparison(string(p.Comparison))
	if err != nil {
		return err
	}
	if len(p.Values) > 1 && !cmp.set() {
		cmp = CmpIn
	}
	p.Comparison = cmp

	p.encoded = make([]string, len(p.Values))
	for i, v := range p.Values {
		s, err := EncodeValue(v)
		if err != nil {
			return fmt.Errorf("%w: pair %q: %v", ErrInvalidQuery, p.Name, err)
		}
		p.encoded[i] = s
	}

	q.Pairs = append(q.Pairs, p)
	return nil
}

// PairsOperator sets how pairs are combined (AND by default)
type PairsOperator LogicalOperator

func (c PairsOperator) apply(q *Query) error {
	switch op := LogicalOperator(strings.ToUpper(string(c))); op {
	case And, Or:
		q.PairsOperator = op
		return nil
	default:
		return fmt.Errorf("%w: unsupported pairs operator %q", ErrInvalidQuery, string(c))
	}
}

// CaseSensitive sets the default case rule for value comparisons. Names
// always compare exactly.
type CaseSensitive bool

func (c CaseSensitive) apply(q *Query) error {
	q.CaseSensitive = bool(c)
	return nil
}

// OwnerIn matches records owned by any of the listed GUIDs
type OwnerIn []int64

// Owners builds an OwnerIn clause
func Owners(guids ...int64) OwnerIn { return OwnerIn(guids) }

func (c OwnerIn) apply(q *Query) error {
	q.OwnerGUIDs = append(q.OwnerGUIDs, c...)
	return nil
}

// IDIn matches records by id
type IDIn []int64

// IDs builds an IDIn clause
func IDs(ids ...int64) IDIn { return IDIn(ids) }

func (c IDIn) apply(q *Query) error {
	q.IDs = append(q.IDs, c...)
	return nil
}

// EntityIn matches records attached to any of the listed entities
type EntityIn []int64

// Entities builds an EntityIn clause
func Entities(guids ...int64) EntityIn { return EntityIn(guids) }

func (c EntityIn) apply(q *Query) error {
	for _, g := range c {
		if g == 0 {
			return fmt.Errorf("%w: zero entity guid", ErrInvalidQuery)
		}
	}
	q.EntityGUIDs = append(q.EntityGUIDs, c...)
	return nil
}

// TypeIn restricts the owning entities' types
type TypeIn []string

func (c TypeIn) apply(q *Query) error {
	q.Types = append(q.Types, c...)
	return nil
}

// SubtypeIn restricts the owning entities' subtypes
type SubtypeIn []string

func (c SubtypeIn) apply(q *Query) error {
	q.Subtypes = append(q.Subtypes, c...)
	return nil
}

// CreatedBetween bounds time_created; a zero bound is open
type CreatedBetween struct {
	Lower time.Time
	Upper time.Time
}

func (c CreatedBetween) apply(q *Query) error {
	q.CreatedLower = c.Lower
	q.CreatedUpper = c.Upper
	return nil
}

// OrderByMetadata sorts entities by a metadata value
func OrderByMetadata(name string, dir Direction, as ValueType) OrderSpec {
	return OrderSpec{Name: name, Direction: dir, As: as}
}

func (o OrderSpec) apply(q *Query) error {
	if o.Name == "" {
		return fmt.Errorf("%w: order by metadata without a name", ErrInvalidQuery)
	}
	switch dir := Direction(strings.ToUpper(string(o.Direction))); dir {
	case "":
		o.Direction = Asc
	case Asc, Desc:
		o.Direction = dir
	default:
		return fmt.Errorf("%w: unsupported direction %q", ErrInvalidQuery, o.Direction)
	}
	as, err := ParseValueType(string(o.As))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	if as == ValueTypeAuto {
		as = ValueTypeText
	}
	o.As = as
	q.Order = append(q.Order, o)
	return nil
}

func (c Calculation) apply(q *Query) error {
	calc, err := ParseCalculation(string(c))
	if err != nil {
		return err
	}
	if q.Calculation != CalcNone && calc != CalcNone && q.Calculation != calc {
		return fmt.Errorf("%w: conflicting calculations %q and %q", ErrInvalidQuery, q.Calculation, calc)
	}
	q.Calculation = calc
	return nil
}

// Count is the legacy shortcut for CalcCount
type Count struct{}

func (Count) apply(q *Query) error {
	return CalcCount.apply(q)
}

// Limit caps the number of rows; 0 keeps the default, NoLimit removes it
type Limit int

func (c Limit) apply(q *Query) error {
	if c < NoLimit {
		return fmt.Errorf("%w: invalid limit %d", ErrInvalidQuery, c)
	}
	q.Limit = int(c)
	return nil
}

// Offset skips rows
type Offset int

func (c Offset) apply(q *Query) error {
	if c < 0 {
		return fmt.Errorf("%w: invalid offset %d", ErrInvalidQuery, c)
	}
	q.Offset = int(c)
	return nil
}

// Constrained reports whether the query narrows the record set enough for
// a batch operation
func (q *Query) Constrained() bool {
	return len(q.EntityGUIDs) > 0 ||
		len(q.OwnerGUIDs) > 0 ||
		len(q.Names) > 0 ||
		len(q.Values) > 0 ||
		len(q.Pairs) > 0 ||
		len(q.IDs) > 0
}

// clone returns a copy safe to page through
func (q *Query) clone() *Query {
	c := *q
	return &c
}
