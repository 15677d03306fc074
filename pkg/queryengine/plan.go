// Package queryengine compiles a constrained SQL-like query surface into
// operations over a table.Table. Queries are tokenized and parsed into a
// Plan, then evaluated; every result column carries a meaningful label.
package queryengine

// Kind identifies the dominant operation of a compiled plan.
type Kind string

const (
	KindPassthrough    Kind = "passthrough"
	KindProjection     Kind = "projection"
	KindCount          Kind = "count"
	KindGroupAggregate Kind = "group_aggregate"
	KindSort           Kind = "sort"
	KindFilter         Kind = "filter"
)

// IsAggregation reports whether the plan computes aggregate values rather
// than reshaping rows.
func (k Kind) IsAggregation() bool {
	return k == KindCount || k == KindGroupAggregate
}

// AggregateFn is a supported aggregate function. The value doubles as the
// prefix of the aggregate output label ("avg_amount", "sum_total").
type AggregateFn string

const (
	AggAvg   AggregateFn = "avg"
	AggSum   AggregateFn = "sum"
	AggCount AggregateFn = "count"
	AggMax   AggregateFn = "max"
	AggMin   AggregateFn = "min"
)

// Aggregate is one aggregate call from the select list. Column is "*" for
// count(*). Alias, when present, becomes the output column label.
type Aggregate struct {
	Fn     AggregateFn
	Column string
	Alias  string
}

// SortSpec is a parsed ORDER BY clause. Direction defaults to descending
// unless the query says asc or ascending.
type SortSpec struct {
	Column     string
	Descending bool
}

// Plan is the compiled representation of a query string.
type Plan struct {
	Kind    Kind
	Columns []string
	Star    bool
	Filter  Predicate
	GroupBy string
	Agg     *Aggregate
	Sort    *SortSpec
	Limit   int
}

// Predicate is a boolean row filter parsed from a WHERE clause.
type Predicate interface {
	predicate()
}

// Comparison compares one column against a literal. Op is one of
// =, !=, >, <, >=, <=.
type Comparison struct {
	Column string
	Op     string
	Value  any
}

func (*Comparison) predicate() {}

// Logical combines two predicates with "and" or "or".
type Logical struct {
	Op          string
	Left, Right Predicate
}

func (*Logical) predicate() {}
