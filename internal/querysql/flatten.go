package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/docsql/internal/queryir"
	"github.com/roach88/docsql/internal/schema"
)

// FlattenScope describes the flatten clause of a query.
type FlattenScope struct {
	// SourceField is the array field being unnested.
	SourceField *schema.Field

	// StartIndex is the sequence index of the Flatten clause.
	StartIndex int

	// WindowLength is the number of clauses after the Flatten clause.
	WindowLength int

	// IsDistinct reports a Distinct operator anywhere in the query.
	IsDistinct bool
}

// FlattenQuery compiles the part of a query that follows a Flatten clause.
//
// Every clause after the Flatten is re-scoped onto a synthetic child
// document, sub<Index>, with one row per array element exposed as column x.
// Only one Flatten per query is supported.
type FlattenQuery struct {
	// Index numbers the child document alias. It is the Flatten clause's
	// position among the clauses following the leading From.
	Index int

	clause       int
	field        *schema.Field
	query        *queryir.Query
	reg          *schema.Registry
	windowLength int
	distinct     bool
	result       ResultType
}

// NewFlattenQuery prepares the Flatten clause at index of q, whose source
// members are resolved against mapping.
//
// It fails with UNSUPPORTED_NESTING when another Flatten follows, and with
// UNRESOLVED_FIELD when the source is not an array member of mapping.
func NewFlattenQuery(reg *schema.Registry, mapping schema.Queryable, q *queryir.Query, index int) (*FlattenQuery, error) {
	if q == nil || index < 0 || index >= q.Len() {
		return nil, invalidQuery(index, "no clause at index %d", index)
	}
	flatten, ok := q.At(index).(queryir.Flatten)
	if !ok {
		return nil, invalidQuery(index, "clause %d is a %T, not a Flatten", index, q.At(index))
	}

	if next := q.FindFlatten(index + 1); next >= 0 {
		return nil, NewNestingError(index, next)
	}

	member, ok := queryir.UnwrapExpr(flatten.Source).(queryir.Member)
	if !ok || len(member.Path) == 0 {
		return nil, NewUnresolvedFieldError(index, fmt.Sprintf("flatten source %v is not a member path", flatten.Source), nil)
	}

	field, err := mapping.FieldFor(member.Path)
	if err != nil {
		return nil, NewUnresolvedFieldError(index, fmt.Sprintf("cannot resolve flatten source %s", member), err)
	}
	if !field.IsCollection() {
		return nil, NewUnresolvedFieldError(index, fmt.Sprintf("flatten source %s is a %s, not an array", member, field.Type), nil)
	}

	bodyIndex := index
	if _, ok := q.At(0).(queryir.From); ok {
		bodyIndex--
	}

	return &FlattenQuery{
		Index:        bodyIndex,
		clause:       index,
		field:        field,
		query:        q,
		reg:          reg,
		windowLength: q.Len() - index - 1,
		distinct:     q.HasOperator(queryir.OpDistinct),
		result:       ResultType{Dynamic: true},
	}, nil
}

// IsDistinct reports whether the query declares Distinct anywhere.
func (f *FlattenQuery) IsDistinct() bool {
	return f.distinct
}

// Field returns the flattened array field.
func (f *FlattenQuery) Field() *schema.Field {
	return f.field
}

// SqlLocator returns the locator of the flattened array field.
func (f *FlattenQuery) SqlLocator() string {
	return f.field.Locator()
}

// Alias returns the child document table alias, e.g. sub0.
func (f *FlattenQuery) Alias() string {
	return "sub" + strconv.Itoa(f.Index)
}

// Scope returns the flatten descriptor.
func (f *FlattenQuery) Scope() FlattenScope {
	return FlattenScope{
		SourceField:  f.field,
		StartIndex:   f.clause,
		WindowLength: f.windowLength,
		IsDistinct:   f.distinct,
	}
}

// ChildDocument returns the document the window clauses resolve against.
func (f *FlattenQuery) ChildDocument() *schema.ChildDocument {
	return f.reg.ChildDocument(f.Alias()+".x", f.field.ElemType())
}

func (f *FlattenQuery) window() []queryir.Clause {
	return f.query.Window(f.clause+1, f.windowLength)
}

// IsComplex reports whether the flattened rows must be read as full jsonb
// elements: any join is attached, or a filtering or ordering clause
// follows the Flatten.
func (f *FlattenQuery) IsComplex(joins []Join) bool {
	if len(joins) > 0 {
		return true
	}
	for _, c := range f.window() {
		if queryir.IsBodyClause(c) {
			return true
		}
	}
	return false
}

// ForResult sets the Go element type the flattened rows materialize into.
// Until it is called the declared element type stands in for it.
func (f *FlattenQuery) ForResult(result ResultType) *FlattenQuery {
	f.result = result
	return f
}

// SelectorPlan chooses the selector for the flattened rows.
func (f *FlattenQuery) SelectorPlan(joins []Join) SelectorPlan {
	return ChooseSelector(f.field, f.result, f.IsComplex(joins), f.distinct, f.reg.Conversions())
}

// ConfigureCommand wraps innerSQL in the flattened statement.
//
// fields are the selector's columns; the first one is replaced by the
// element column x. The result is assembled as select, joins, where,
// order by, then the query's take and skip.
func (f *FlattenQuery) ConfigureCommand(joins []Join, fields []string, cmd *Command, innerSQL string, limit int) (string, error) {
	if len(fields) == 0 {
		return "", invalidQuery(f.clause, "flatten selector has no fields")
	}

	alias := f.Alias()
	child := f.ChildDocument()
	window := f.window()

	joinTexts := make([]string, 0, len(joins))
	for _, j := range joins {
		text, err := j.JoinTextFor(alias, child)
		if err != nil {
			return "", err
		}
		joinTexts = append(joinTexts, text)
	}

	where, err := buildWhereFragment(child, window)
	if err != nil {
		return "", err
	}
	orderBy, err := determineOrderClause(child, window)
	if err != nil {
		return "", err
	}

	cols := append([]string(nil), fields...)
	cols[0] = "x"
	if f.SelectorPlan(joins).Distinct {
		cols[0] = "distinct x"
	}

	var b strings.Builder
	b.WriteString("select ")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(" from (")
	b.WriteString(innerSQL)
	b.WriteString(") as ")
	b.WriteString(alias)
	for _, text := range joinTexts {
		b.WriteString(" ")
		b.WriteString(text)
	}
	if where != nil {
		b.WriteString(" where ")
		b.WriteString(where.ToSQL(cmd))
	}
	b.WriteString(orderBy)

	sql := f.query.ApplyTake(limit, b.String())
	return f.query.ApplySkip(sql), nil
}
