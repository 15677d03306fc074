package queryengine

import (
	"fmt"
	"strings"

	"github.com/querylens/querylens-engine/pkg/table"
)

// TotalCountColumn labels the single cell of a count(*) result.
const TotalCountColumn = "total_count"

// Execute evaluates a Plan against a table. The input table is never
// modified. Every result column carries a caller-meaningful label.
func Execute(t *table.Table, plan *Plan) (*table.Table, error) {
	current := t

	if plan.Filter != nil {
		keep, err := bindPredicate(current, plan.Filter)
		if err != nil {
			return nil, err
		}
		current = current.FilterRows(keep)
	}

	var err error
	switch plan.Kind {
	case KindCount:
		current = totalCount(current)
	case KindGroupAggregate:
		current, err = executeGroup(current, plan)
		if err != nil {
			return nil, err
		}
	default:
		// Sort before projecting so ORDER BY may name a column outside
		// the select list.
		if plan.Sort != nil {
			current, err = current.SortBy(plan.Sort.Column, plan.Sort.Descending)
			if err != nil {
				return nil, &ExecutionError{Detail: err.Error(), Err: err}
			}
		}
		if len(plan.Columns) > 0 && !plan.Star {
			current, err = current.Select(plan.Columns...)
			if err != nil {
				return nil, &ExecutionError{Detail: err.Error(), Err: err}
			}
		}
	}

	if plan.Limit > 0 {
		current = current.Head(plan.Limit)
	}
	return current, nil
}

func totalCount(t *table.Table) *table.Table {
	result, _ := table.New(
		[]table.Column{{Name: TotalCountColumn, Type: table.ColumnNumeric}},
		[][]any{{float64(t.NumRows())}},
	)
	return result
}

type accumulator struct {
	key   any
	count int
	n     int
	sum   float64
	min   float64
	max   float64
}

func (a *accumulator) add(cell any) {
	a.count++
	f, ok := cell.(float64)
	if !ok {
		return
	}
	if a.n == 0 {
		a.min, a.max = f, f
	}
	if f < a.min {
		a.min = f
	}
	if f > a.max {
		a.max = f
	}
	a.sum += f
	a.n++
}

// value returns the aggregate result, nil when the function has no defined
// value for an empty group (the sanitizer would null a NaN anyway).
func (a *accumulator) value(fn AggregateFn) any {
	switch fn {
	case AggCount:
		return float64(a.count)
	case AggSum:
		return a.sum
	case AggAvg:
		if a.n > 0 {
			return a.sum / float64(a.n)
		}
	case AggMax:
		if a.n > 0 {
			return a.max
		}
	case AggMin:
		if a.n > 0 {
			return a.min
		}
	}
	return nil
}

// executeGroup computes one aggregate, grouped by plan.GroupBy when set or
// over the whole table otherwise. Groups appear in first-appearance row
// order; a grouped result always keeps the grouping column as its first
// labeled column.
func executeGroup(t *table.Table, plan *Plan) (*table.Table, error) {
	agg := plan.Agg
	if agg == nil {
		agg = &Aggregate{Fn: AggCount, Column: "*"}
	}

	aggIdx, aggName := -1, ""
	if agg.Fn != AggCount {
		idx, ok := t.ColumnIndex(agg.Column)
		if !ok {
			return nil, execErrorf("aggregate column %q does not exist", agg.Column)
		}
		if typ, _ := t.ColumnType(agg.Column); typ != table.ColumnNumeric {
			return nil, execErrorf("aggregate column %q is not numeric", agg.Column)
		}
		aggIdx = idx
		aggName = t.Columns()[idx].Name
	}

	label := "count"
	if agg.Fn != AggCount {
		label = fmt.Sprintf("%s_%s", agg.Fn, aggName)
	}
	if agg.Alias != "" {
		label = agg.Alias
	}
	aggCol := table.Column{Name: label, Type: table.ColumnNumeric}

	if plan.GroupBy == "" {
		acc := &accumulator{}
		for i := 0; i < t.NumRows(); i++ {
			cell := any(nil)
			if aggIdx >= 0 {
				cell = t.At(i, aggIdx)
			}
			acc.add(cell)
		}
		result, err := table.New([]table.Column{aggCol}, [][]any{{acc.value(agg.Fn)}})
		if err != nil {
			return nil, &ExecutionError{Detail: err.Error(), Err: err}
		}
		return result, nil
	}

	groupIdx, ok := t.ColumnIndex(plan.GroupBy)
	if !ok {
		return nil, execErrorf("grouping column %q does not exist", plan.GroupBy)
	}
	groupCol := t.Columns()[groupIdx]

	var order []string
	buckets := make(map[string]*accumulator)
	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		key := fmt.Sprint(row[groupIdx])
		acc, ok := buckets[key]
		if !ok {
			acc = &accumulator{key: row[groupIdx]}
			buckets[key] = acc
			order = append(order, key)
		}
		cell := any(nil)
		if aggIdx >= 0 {
			cell = row[aggIdx]
		}
		acc.add(cell)
	}

	rows := make([][]any, len(order))
	for i, key := range order {
		acc := buckets[key]
		rows[i] = []any{acc.key, acc.value(agg.Fn)}
	}

	result, err := table.New([]table.Column{groupCol, aggCol}, rows)
	if err != nil {
		return nil, &ExecutionError{Detail: err.Error(), Err: err}
	}

	if plan.Sort != nil {
		target := groupCol.Name
		if refersToAggregate(plan.Sort.Column, agg, aggName, label) {
			target = label
		}
		result, err = result.SortBy(target, plan.Sort.Descending)
		if err != nil {
			return nil, &ExecutionError{Detail: err.Error(), Err: err}
		}
	}
	return result, nil
}

// refersToAggregate decides whether an ORDER BY column after a GROUP BY
// means the aggregate output: its label, its alias, the aggregated source
// column, or the bare aggregate function name all count.
func refersToAggregate(col string, agg *Aggregate, aggName, label string) bool {
	if strings.EqualFold(col, label) {
		return true
	}
	if aggName != "" && strings.EqualFold(col, aggName) {
		return true
	}
	lower := strings.ToLower(col)
	if lower == string(agg.Fn) {
		return true
	}
	return lower == "mean" && agg.Fn == AggAvg
}

// bindPredicate resolves the predicate's column references against the
// table once and returns a per-row filter function.
func bindPredicate(t *table.Table, p Predicate) (func(row []any) bool, error) {
	switch pred := p.(type) {
	case *Comparison:
		idx, ok := t.ColumnIndex(pred.Column)
		if !ok {
			return nil, execErrorf("filter column %q does not exist", pred.Column)
		}
		op, value := pred.Op, pred.Value
		return func(row []any) bool {
			return compareCell(row[idx], op, value)
		}, nil

	case *Logical:
		left, err := bindPredicate(t, pred.Left)
		if err != nil {
			return nil, err
		}
		right, err := bindPredicate(t, pred.Right)
		if err != nil {
			return nil, err
		}
		if pred.Op == "and" {
			return func(row []any) bool { return left(row) && right(row) }, nil
		}
		return func(row []any) bool { return left(row) || right(row) }, nil

	default:
		return nil, execErrorf("unsupported predicate %T", p)
	}
}

// compareCell compares one cell with a literal. Null cells never match.
// Numeric cells compare numerically against numeric literals; everything
// else compares as strings, equality case-insensitively.
func compareCell(cell any, op string, value any) bool {
	if cell == nil {
		return false
	}

	if f, ok := cell.(float64); ok {
		if v, ok := value.(float64); ok {
			switch op {
			case "=":
				return f == v
			case "!=":
				return f != v
			case ">":
				return f > v
			case "<":
				return f < v
			case ">=":
				return f >= v
			case "<=":
				return f <= v
			}
			return false
		}
	}

	a, b := fmt.Sprint(cell), fmt.Sprint(value)
	switch op {
	case "=":
		return strings.EqualFold(a, b)
	case "!=":
		return !strings.EqualFold(a, b)
	case ">":
		return a > b
	case "<":
		return a < b
	case ">=":
		return a >= b
	case "<=":
		return a <= b
	}
	return false
}
