package queryengine

import (
	"strings"
	"unicode"

	"github.com/querylens/querylens-engine/pkg/table"
)

// Compile parses a query string, evaluates it against the table and
// returns the labeled result together with the plan that produced it.
//
// Text with none of the select/where/group by/order by keywords is handled
// by a bare-expression fallback: project the columns literally named in
// the text, or pass the table through unchanged. A grouped query that
// fails to parse or execute gets one more chance through a heuristic that
// grabs the first table column named anywhere in the text and counts by
// it; only after that does the error become terminal.
func Compile(t *table.Table, query string) (*table.Table, *Plan, error) {
	trimmed := strings.TrimSpace(query)
	lower := strings.ToLower(trimmed)

	if !hasQueryKeywords(lower) {
		return compileBare(t, trimmed)
	}

	plan, err := parse(trimmed)
	if err == nil {
		result, execErr := Execute(t, plan)
		if execErr == nil {
			return result, plan, nil
		}
		err = execErr
	}

	if strings.Contains(lower, "group by") {
		if result, fbPlan, ok := groupFallback(t, trimmed); ok {
			return result, fbPlan, nil
		}
	}
	return nil, nil, err
}

func hasQueryKeywords(lower string) bool {
	return strings.Contains(lower, "select") ||
		strings.Contains(lower, "where") ||
		strings.Contains(lower, "group by") ||
		strings.Contains(lower, "order by")
}

func compileBare(t *table.Table, query string) (*table.Table, *Plan, error) {
	var cols []string
	seen := make(map[string]bool)
	for _, word := range identWords(query) {
		idx, ok := t.ColumnIndex(word)
		if !ok {
			continue
		}
		name := t.Columns()[idx].Name
		if !seen[name] {
			seen[name] = true
			cols = append(cols, name)
		}
	}

	if len(cols) == 0 {
		return t, &Plan{Kind: KindPassthrough, Star: true}, nil
	}

	plan := &Plan{Kind: KindProjection, Columns: cols}
	result, err := t.Select(cols...)
	if err != nil {
		return nil, nil, &ExecutionError{Detail: err.Error(), Err: err}
	}
	return result, plan, nil
}

// groupFallback counts rows grouped by the first table column mentioned
// anywhere in the query text. When several column names appear this can
// pick one the author did not intend; that ambiguity is a known property
// of the fallback and is kept as-is.
func groupFallback(t *table.Table, query string) (*table.Table, *Plan, bool) {
	for _, word := range identWords(query) {
		idx, ok := t.ColumnIndex(word)
		if !ok {
			continue
		}
		plan := &Plan{
			Kind:    KindGroupAggregate,
			GroupBy: t.Columns()[idx].Name,
			Agg:     &Aggregate{Fn: AggCount, Column: "*"},
		}
		result, err := Execute(t, plan)
		if err != nil {
			return nil, nil, false
		}
		return result, plan, true
	}
	return nil, nil, false
}

func identWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}
