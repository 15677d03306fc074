package queryengine

import (
	"fmt"
	"strconv"
	"strings"
)

type parser struct {
	toks []token
	pos  int
}

// parse turns a query string into a Plan. The grammar is
//
//	SELECT <cols|AGG(col)[, ...]> [FROM <table>] [WHERE <predicate>]
//	    [GROUP BY <col>[, ...]] [ORDER BY <col> [ASC|DESC]] [LIMIT <n>]
//
// with aggregate functions avg/mean, sum, count, max and min.
func parse(query string) (*Plan, error) {
	toks, err := lex(query)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	return p.parseQuery()
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) acceptKeyword(kw string) bool {
	t := p.peek()
	if t.kind == tokIdent && strings.EqualFold(t.text, kw) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectKeyword(kw string) error {
	if !p.acceptKeyword(kw) {
		return &CompilationError{Detail: fmt.Sprintf("expected %q, got %q", kw, p.peek().text)}
	}
	return nil
}

func (p *parser) acceptSymbol(sym string) bool {
	t := p.peek()
	if t.kind == tokSymbol && t.text == sym {
		p.pos++
		return true
	}
	return false
}

func (p *parser) parseQuery() (*Plan, error) {
	if err := p.expectKeyword("select"); err != nil {
		return nil, err
	}

	plan := &Plan{}
	if err := p.parseSelectList(plan); err != nil {
		return nil, err
	}

	if p.acceptKeyword("from") {
		t := p.next()
		if t.kind != tokIdent && t.kind != tokString {
			return nil, &CompilationError{Detail: fmt.Sprintf("expected table name after from, got %q", t.text)}
		}
	}

	if p.acceptKeyword("where") {
		pred, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		plan.Filter = pred
	}

	if p.acceptKeyword("group") {
		if err := p.expectKeyword("by"); err != nil {
			return nil, err
		}
		col, err := p.parseColumnName()
		if err != nil {
			return nil, err
		}
		plan.GroupBy = col
		// Only the first grouping column matters; swallow the rest.
		for p.acceptSymbol(",") {
			if _, err := p.parseColumnName(); err != nil {
				return nil, err
			}
		}
	}

	if p.acceptKeyword("order") {
		if err := p.expectKeyword("by"); err != nil {
			return nil, err
		}
		col, err := p.parseColumnName()
		if err != nil {
			return nil, err
		}
		sort := &SortSpec{Column: col, Descending: true}
		if p.acceptKeyword("asc") || p.acceptKeyword("ascending") {
			sort.Descending = false
		} else if p.acceptKeyword("desc") || p.acceptKeyword("descending") {
			sort.Descending = true
		}
		plan.Sort = sort
	}

	if p.acceptKeyword("limit") {
		t := p.next()
		if t.kind != tokNumber {
			return nil, &CompilationError{Detail: fmt.Sprintf("expected row count after limit, got %q", t.text)}
		}
		n, err := strconv.Atoi(t.text)
		if err != nil || n < 0 {
			return nil, &CompilationError{Detail: fmt.Sprintf("invalid limit %q", t.text)}
		}
		plan.Limit = n
	}

	for p.acceptSymbol(";") {
	}
	if p.peek().kind != tokEOF {
		return nil, &CompilationError{Detail: fmt.Sprintf("unexpected %q after end of query", p.peek().text)}
	}

	plan.Kind = classify(plan)
	return plan, nil
}

func (p *parser) parseSelectList(plan *Plan) error {
	for {
		switch {
		case p.acceptSymbol("*"):
			plan.Star = true

		default:
			tok := p.next()
			if tok.kind != tokIdent && tok.kind != tokString {
				return &CompilationError{Detail: fmt.Sprintf("expected column or aggregate in select list, got %q", tok.text)}
			}

			if fn, ok := aggregateFn(tok.text); ok && p.peek().kind == tokSymbol && p.peek().text == "(" {
				agg, err := p.parseAggregate(fn)
				if err != nil {
					return err
				}
				// The first aggregate in the list drives the plan.
				if plan.Agg == nil {
					plan.Agg = agg
				}
			} else {
				plan.Columns = append(plan.Columns, tok.text)
				if p.acceptKeyword("as") {
					if _, err := p.parseColumnName(); err != nil {
						return err
					}
				}
			}
		}

		if !p.acceptSymbol(",") {
			return nil
		}
	}
}

func (p *parser) parseAggregate(fn AggregateFn) (*Aggregate, error) {
	p.next() // consume "("

	agg := &Aggregate{Fn: fn}
	if p.acceptSymbol("*") {
		agg.Column = "*"
	} else {
		col, err := p.parseColumnName()
		if err != nil {
			return nil, err
		}
		agg.Column = col
	}

	if !p.acceptSymbol(")") {
		return nil, &CompilationError{Detail: fmt.Sprintf("expected ) to close %s(, got %q", fn, p.peek().text)}
	}
	if p.acceptKeyword("as") {
		alias, err := p.parseColumnName()
		if err != nil {
			return nil, err
		}
		agg.Alias = alias
	}
	return agg, nil
}

func (p *parser) parseColumnName() (string, error) {
	t := p.next()
	if t.kind != tokIdent && t.kind != tokString {
		return "", &CompilationError{Detail: fmt.Sprintf("expected column name, got %q", t.text)}
	}
	return t.text, nil
}

func (p *parser) parseOr() (Predicate, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: "or", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Predicate, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("and") {
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: "and", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseComparison() (Predicate, error) {
	if p.acceptSymbol("(") {
		pred, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.acceptSymbol(")") {
			return nil, &CompilationError{Detail: fmt.Sprintf("expected ) in predicate, got %q", p.peek().text)}
		}
		return pred, nil
	}

	col, err := p.parseColumnName()
	if err != nil {
		return nil, err
	}

	opTok := p.next()
	if opTok.kind != tokSymbol {
		return nil, &CompilationError{Detail: fmt.Sprintf("expected comparison operator, got %q", opTok.text)}
	}
	var op string
	switch opTok.text {
	case "=", "==":
		op = "="
	case "!=", "<>":
		op = "!="
	case ">", "<", ">=", "<=":
		op = opTok.text
	default:
		return nil, &CompilationError{Detail: fmt.Sprintf("unknown comparison operator %q", opTok.text)}
	}

	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return &Comparison{Column: col, Op: op, Value: value}, nil
}

func (p *parser) parseValue() (any, error) {
	negative := p.acceptSymbol("-")

	t := p.next()
	switch t.kind {
	case tokNumber:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, &CompilationError{Detail: fmt.Sprintf("invalid number %q", t.text)}
		}
		if negative {
			f = -f
		}
		return f, nil
	case tokString, tokIdent:
		if negative {
			return nil, &CompilationError{Detail: fmt.Sprintf("unexpected - before %q", t.text)}
		}
		return t.text, nil
	default:
		return nil, &CompilationError{Detail: fmt.Sprintf("expected comparison value, got %q", t.text)}
	}
}

func aggregateFn(name string) (AggregateFn, bool) {
	switch strings.ToLower(name) {
	case "avg", "mean":
		return AggAvg, true
	case "sum":
		return AggSum, true
	case "count":
		return AggCount, true
	case "max":
		return AggMax, true
	case "min":
		return AggMin, true
	}
	return "", false
}

func classify(plan *Plan) Kind {
	switch {
	case plan.Agg != nil && plan.Agg.Fn == AggCount && plan.Agg.Column == "*" && plan.GroupBy == "":
		return KindCount
	case plan.GroupBy != "" || plan.Agg != nil:
		return KindGroupAggregate
	case plan.Sort != nil:
		return KindSort
	case plan.Filter != nil:
		return KindFilter
	case len(plan.Columns) > 0 && !plan.Star:
		return KindProjection
	default:
		return KindPassthrough
	}
}
