package querysql

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/docsql/internal/queryir"
	"github.com/roach88/docsql/internal/schema"
)

// Compiler compiles clause sequences to parameterized PostgreSQL.
//
// A Compiler only reads its registry and holds no per-query state, so one
// Compiler may compile independent queries concurrently. Compilation is
// deterministic: identical inputs give identical SQL text and arguments.
type Compiler struct {
	reg *schema.Registry
	ser Serializer
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithSerializer replaces the JSON serializer used by selectors.
func WithSerializer(s Serializer) CompilerOption {
	return func(c *Compiler) {
		if s != nil {
			c.ser = s
		}
	}
}

// NewCompiler creates a Compiler over reg.
func NewCompiler(reg *schema.Registry, opts ...CompilerOption) *Compiler {
	c := &Compiler{reg: reg, ser: JSONSerializer{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the compiler's document registry.
func (c *Compiler) Registry() *schema.Registry {
	return c.reg
}

// Statement is compiled SQL with its positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Plan is a compiled statement together with the selector that turns its
// rows into T values.
type Plan[T any] struct {
	Statement

	// Selector materializes rows. It also feeds the sinks of attached joins.
	Selector Selector[T]

	// Kind is the selector kind chosen for the statement.
	Kind SelectorKind
}

// IncludeOwner returns the document that eager-load join members are
// resolved against: the flattened element when q flattens, otherwise the
// queried document itself.
func (c *Compiler) IncludeOwner(q *queryir.Query) (schema.Queryable, error) {
	mapping, err := c.source(q)
	if err != nil {
		return nil, err
	}
	idx := q.FindFlatten(1)
	if idx < 0 {
		return mapping, nil
	}
	fq, err := NewFlattenQuery(c.reg, mapping, q, idx)
	if err != nil {
		return nil, err
	}
	return fq.ChildDocument(), nil
}

// checkNesting rejects a second Flatten before anything else is looked at.
func checkNesting(q *queryir.Query) error {
	if q == nil {
		return nil
	}
	first := q.FindFlatten(0)
	if first < 0 {
		return nil
	}
	if next := q.FindFlatten(first + 1); next >= 0 {
		return NewNestingError(first, next)
	}
	return nil
}

// source validates the leading From clause and returns its mapping.
func (c *Compiler) source(q *queryir.Query) (*schema.DocumentMapping, error) {
	if q == nil || q.Len() == 0 {
		return nil, invalidQuery(-1, "query has no clauses")
	}
	from, ok := q.At(0).(queryir.From)
	if !ok {
		return nil, invalidQuery(0, "query must start with a From clause, got %T", q.At(0))
	}
	for i := 1; i < q.Len(); i++ {
		switch c := queryir.Unwrap(q.At(i)).(type) {
		case queryir.From:
			return nil, invalidQuery(i, "From is only allowed as the first clause")
		case queryir.ResultOperator:
			if (c.Kind == queryir.OpTake || c.Kind == queryir.OpSkip) && c.Count < 0 {
				return nil, invalidQuery(i, "%s count must be non-negative, got %d", c.Kind, c.Count)
			}
		}
	}

	mapping, err := c.reg.Mapping(from.Document)
	if err != nil {
		return nil, &CompileError{
			Code:    ErrCodeInvalidQuery,
			Message: fmt.Sprintf("unknown document %q", from.Document),
			Clause:  0,
			Err:     err,
		}
	}
	return mapping, nil
}

// Compile compiles q into a statement whose rows materialize as T.
//
// limit is a caller-supplied row limit; zero or negative means none. When
// the query also declares Take, the smaller one wins. joins are rendered
// and materialized in declaration order.
//
// Queries without a Flatten select whole documents. Queries with one
// Flatten select one row per array element through a sub-select aliased
// sub<N>. A second Flatten fails with UNSUPPORTED_NESTING. No partial SQL
// is returned on error.
func Compile[T any](c *Compiler, q *queryir.Query, limit int, joins ...Join) (*Plan[T], error) {
	if err := checkNesting(q); err != nil {
		return nil, err
	}
	mapping, err := c.source(q)
	if err != nil {
		return nil, err
	}

	var plan *Plan[T]
	if idx := q.FindFlatten(1); idx >= 0 {
		plan, err = compileFlatten[T](c, mapping, q, idx, limit, joins)
	} else {
		plan, err = compileDocuments[T](c, mapping, q, limit, joins)
	}
	if err != nil {
		return nil, err
	}

	slog.Debug("compiled query",
		"document", mapping.Name,
		"selector", plan.Kind.String(),
		"joins", len(joins),
		"args", len(plan.Args),
	)
	return plan, nil
}

// compileDocuments compiles a query without a Flatten clause.
func compileDocuments[T any](c *Compiler, mapping *schema.DocumentMapping, q *queryir.Query, limit int, joins []Join) (*Plan[T], error) {
	sel := documentPlan(mapping, q.HasOperator(queryir.OpDistinct))
	selector := wrapJoins(NewSelector[T](sel, c.reg.Conversions(), c.ser), joins, c.ser)

	joinTexts := make([]string, 0, len(joins))
	for _, j := range joins {
		text, err := j.JoinTextFor(schema.DefaultAlias, nil)
		if err != nil {
			return nil, err
		}
		joinTexts = append(joinTexts, text)
	}

	body := q.Window(1, q.Len()-1)
	where, err := buildWhereFragment(mapping, body)
	if err != nil {
		return nil, err
	}
	orderBy, err := determineOrderClause(mapping, body)
	if err != nil {
		return nil, err
	}

	fields := selector.SelectFields()
	if sel.Distinct {
		fields[0] = "distinct " + fields[0]
	}

	cmd := NewCommand()
	var b strings.Builder
	b.WriteString("select ")
	b.WriteString(strings.Join(fields, ", "))
	b.WriteString(" from ")
	b.WriteString(mapping.Table())
	b.WriteString(" as ")
	b.WriteString(schema.DefaultAlias)
	for _, text := range joinTexts {
		b.WriteString(" ")
		b.WriteString(text)
	}
	if where != nil {
		b.WriteString(" where ")
		b.WriteString(where.ToSQL(cmd))
	}
	b.WriteString(orderBy)

	sql := q.ApplySkip(q.ApplyTake(limit, b.String()))

	return &Plan[T]{
		Statement: Statement{SQL: sql, Args: cmd.Args()},
		Selector:  selector,
		Kind:      sel.Kind,
	}, nil
}

// compileFlatten compiles a query whose Flatten clause sits at idx.
//
// Clauses between From and the Flatten filter and order the documents in
// the inner select; clauses after it are re-scoped onto the child document.
func compileFlatten[T any](c *Compiler, mapping *schema.DocumentMapping, q *queryir.Query, idx, limit int, joins []Join) (*Plan[T], error) {
	fq, err := NewFlattenQuery(c.reg, mapping, q, idx)
	if err != nil {
		return nil, err
	}

	fq.ForResult(ResultTypeOf[T]())

	sel := fq.SelectorPlan(joins)
	selector := wrapJoins(NewSelector[T](sel, c.reg.Conversions(), c.ser), joins, c.ser)

	before := q.Window(1, idx-1)
	where, err := buildWhereFragment(mapping, before)
	if err != nil {
		return nil, err
	}
	orderBy, err := determineOrderClause(mapping, before)
	if err != nil {
		return nil, err
	}

	cmd := NewCommand()
	var b strings.Builder
	b.WriteString("select ")
	b.WriteString(sel.Expr)
	b.WriteString(" from ")
	b.WriteString(mapping.Table())
	b.WriteString(" as ")
	b.WriteString(schema.DefaultAlias)
	if where != nil {
		b.WriteString(" where ")
		b.WriteString(where.ToSQL(cmd))
	}
	b.WriteString(orderBy)

	sql, err := fq.ConfigureCommand(joins, selector.SelectFields(), cmd, b.String(), limit)
	if err != nil {
		return nil, err
	}

	return &Plan[T]{
		Statement: Statement{SQL: sql, Args: cmd.Args()},
		Selector:  selector,
		Kind:      sel.Kind,
	}, nil
}

func wrapJoins[T any](selector Selector[T], joins []Join, ser Serializer) Selector[T] {
	for _, j := range joins {
		selector = WrapSelector(selector, j, ser)
	}
	return selector
}
