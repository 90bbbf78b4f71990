package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/docsql/internal/queryir"
	"github.com/roach88/docsql/internal/schema"
)

// WhereFragment is a rendered boolean SQL fragment.
//
// Fragments are built in two steps. ParseWhereFragment resolves every
// member path up front, so resolution failures surface before any SQL text
// exists. ToSQL then renders the text and binds literal values on the
// shared Command, in left-to-right order.
type WhereFragment interface {
	ToSQL(cmd *Command) string
}

// operand is one side of a comparison.
type operand interface {
	render(cmd *Command) string
}

// locatorOperand is a resolved field locator.
type locatorOperand string

func (l locatorOperand) render(*Command) string { return string(l) }

// parameterOperand is a literal bound as a parameter.
type parameterOperand struct {
	value any
}

func (p parameterOperand) render(cmd *Command) string { return cmd.AddParameter(p.value) }

// comparisonFragment renders "<left> <op> <right>".
type comparisonFragment struct {
	left  operand
	op    string
	right operand
}

func (f *comparisonFragment) ToSQL(cmd *Command) string {
	left := f.left.render(cmd)
	return left + " " + f.op + " " + f.right.render(cmd)
}

// nullFragment renders "<locator> is [not] null".
type nullFragment struct {
	operand operand
	negated bool
}

func (f *nullFragment) ToSQL(cmd *Command) string {
	if f.negated {
		return f.operand.render(cmd) + " is not null"
	}
	return f.operand.render(cmd) + " is null"
}

// booleanFragment renders a boolean locator on its own.
type booleanFragment struct {
	locator string
}

func (f *booleanFragment) ToSQL(*Command) string { return f.locator }

// notFragment renders "NOT (<inner>)".
type notFragment struct {
	inner WhereFragment
}

func (f *notFragment) ToSQL(cmd *Command) string {
	return "NOT (" + f.inner.ToSQL(cmd) + ")"
}

// CompoundWhereFragment joins child fragments with a logical separator.
// Each child is parenthesized, so "a or b" nested in an "and" keeps its
// meaning.
type CompoundWhereFragment struct {
	Separator string
	Children  []WhereFragment
}

// NewCompoundWhereFragment builds a compound fragment ("and" / "or").
func NewCompoundWhereFragment(separator string, children ...WhereFragment) *CompoundWhereFragment {
	return &CompoundWhereFragment{Separator: separator, Children: children}
}

// ToSQL implements WhereFragment.
func (f *CompoundWhereFragment) ToSQL(cmd *Command) string {
	parts := make([]string, 0, len(f.Children))
	for _, child := range f.Children {
		parts = append(parts, "("+child.ToSQL(cmd)+")")
	}
	return strings.Join(parts, " "+f.Separator+" ")
}

// ParseWhereFragment translates a predicate expression against doc.
func ParseWhereFragment(doc schema.Queryable, expr queryir.Expr) (WhereFragment, error) {
	switch e := queryir.UnwrapExpr(expr).(type) {
	case queryir.Compare:
		return parseCompare(doc, e)
	case queryir.And:
		return parseCompound(doc, "and", e.Operands)
	case queryir.Or:
		return parseCompound(doc, "or", e.Operands)
	case queryir.Not:
		inner, err := ParseWhereFragment(doc, e.Operand)
		if err != nil {
			return nil, err
		}
		return &notFragment{inner: inner}, nil
	case queryir.Member:
		field, err := resolveMember(doc, e)
		if err != nil {
			return nil, err
		}
		if field.Type.Kind != schema.KindBool {
			return nil, unsupportedExpression("member %s of type %s is not a boolean predicate", e, field.Type)
		}
		return &booleanFragment{locator: field.Locator()}, nil
	case nil:
		return nil, unsupportedExpression("nil predicate")
	default:
		return nil, unsupportedExpression("unsupported predicate type: %T", expr)
	}
}

func parseCompound(doc schema.Queryable, sep string, operands []queryir.Expr) (WhereFragment, error) {
	if len(operands) == 0 {
		return nil, unsupportedExpression("empty %s predicate", sep)
	}
	if len(operands) == 1 {
		return ParseWhereFragment(doc, operands[0])
	}

	children := make([]WhereFragment, 0, len(operands))
	for _, op := range operands {
		child, err := ParseWhereFragment(doc, op)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return NewCompoundWhereFragment(sep, children...), nil
}

func parseCompare(doc schema.Queryable, cmp queryir.Compare) (WhereFragment, error) {
	// Comparisons against null become IS [NOT] NULL on the other side.
	if v, ok := constantValue(cmp.Right); ok && queryir.IsNull(v) {
		return parseNullCheck(doc, cmp.Op, cmp.Left)
	}
	if v, ok := constantValue(cmp.Left); ok && queryir.IsNull(v) {
		return parseNullCheck(doc, cmp.Op, cmp.Right)
	}

	left, err := parseOperand(doc, cmp.Left)
	if err != nil {
		return nil, err
	}
	right, err := parseOperand(doc, cmp.Right)
	if err != nil {
		return nil, err
	}
	return &comparisonFragment{left: left, op: cmp.Op.SQL(), right: right}, nil
}

func parseNullCheck(doc schema.Queryable, op queryir.CompareOp, side queryir.Expr) (WhereFragment, error) {
	if op != queryir.OpEqual && op != queryir.OpNotEqual {
		return nil, unsupportedExpression("operator %s cannot compare against null", op.SQL())
	}
	target, err := parseOperand(doc, side)
	if err != nil {
		return nil, err
	}
	return &nullFragment{operand: target, negated: op == queryir.OpNotEqual}, nil
}

func parseOperand(doc schema.Queryable, expr queryir.Expr) (operand, error) {
	switch e := queryir.UnwrapExpr(expr).(type) {
	case queryir.Member:
		field, err := resolveMember(doc, e)
		if err != nil {
			return nil, err
		}
		return locatorOperand(field.Locator()), nil
	case queryir.Constant:
		if e.Value == nil {
			return nil, unsupportedExpression("constant without a value")
		}
		return parameterOperand{value: e.Value.Arg()}, nil
	case nil:
		return nil, unsupportedExpression("comparison is missing an operand")
	default:
		return nil, unsupportedExpression("unsupported comparison operand: %T", expr)
	}
}

func constantValue(expr queryir.Expr) (queryir.Value, bool) {
	c, ok := queryir.UnwrapExpr(expr).(queryir.Constant)
	if !ok {
		return nil, false
	}
	return c.Value, true
}

func resolveMember(doc schema.Queryable, m queryir.Member) (*schema.Field, error) {
	field, err := doc.FieldFor(m.Path)
	if err != nil {
		return nil, NewUnresolvedFieldError(-1, fmt.Sprintf("cannot resolve member %s", m), err)
	}
	return field, nil
}

// buildWhereFragment combines the Where clauses among clauses.
//
// Zero clauses yield nil (no WHERE). One clause is translated directly.
// Two or more become a left-to-right conjunction.
func buildWhereFragment(doc schema.Queryable, clauses []queryir.Clause) (WhereFragment, error) {
	var wheres []queryir.Where
	for _, c := range clauses {
		if w, ok := queryir.Unwrap(c).(queryir.Where); ok {
			wheres = append(wheres, w)
		}
	}

	switch len(wheres) {
	case 0:
		return nil, nil
	case 1:
		return ParseWhereFragment(doc, wheres[0].Predicate)
	}

	children := make([]WhereFragment, 0, len(wheres))
	for _, w := range wheres {
		child, err := ParseWhereFragment(doc, w.Predicate)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return NewCompoundWhereFragment("and", children...), nil
}

// determineOrderClause renders " order by ..." for the OrderBy clauses
// among clauses, or "" when there are none. Orderings keep declaration
// order.
func determineOrderClause(doc schema.Queryable, clauses []queryir.Clause) (string, error) {
	var parts []string
	for _, c := range clauses {
		orderBy, ok := queryir.Unwrap(c).(queryir.OrderBy)
		if !ok {
			continue
		}
		for _, o := range orderBy.Orderings {
			part, err := toOrderClause(doc, o)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		}
	}

	if len(parts) == 0 {
		return "", nil
	}
	return " order by " + strings.Join(parts, ", "), nil
}

func toOrderClause(doc schema.Queryable, o queryir.Ordering) (string, error) {
	m, ok := queryir.UnwrapExpr(o.Expr).(queryir.Member)
	if !ok {
		return "", unsupportedExpression("orderings must be member paths, got %T", o.Expr)
	}
	field, err := resolveMember(doc, m)
	if err != nil {
		return "", err
	}
	if o.Direction == queryir.Desc {
		return field.Locator() + " desc", nil
	}
	return field.Locator(), nil
}
