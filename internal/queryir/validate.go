package queryir

import "fmt"

// ValidationResult contains the structural analysis of a query.
//
// Queries with warnings may still compile; the warnings describe shapes
// whose behavior the compiler does not guarantee.
type ValidationResult struct {
	// Valid is true when no warnings were produced.
	Valid bool

	// Warnings lists the problems found, in clause order.
	Warnings []string
}

// Validate checks a query's clause sequence.
//
// Rules:
//  1. The sequence starts with a From clause
//  2. At most one Flatten clause (a second one fails compilation)
//  3. After a Flatten only Where, OrderBy and result operators appear
//  4. Take and Skip counts are non-negative
//  5. Where predicates and orderings have expressions
//
// Validate is a pure function with no side effects.
func Validate(q *Query) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	v.validateQuery(q)

	return ValidationResult{
		Valid:    len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

// addWarning appends a warning message.
func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q *Query) {
	if q == nil || len(q.Clauses) == 0 {
		v.addWarning("empty query - a From clause is required")
		return
	}

	if _, ok := q.At(0).(From); !ok {
		v.addWarning("clause 0 is %s - queries must start with a From clause", kindName(q.At(0)))
	}

	flattenAt := -1
	for i := range q.Clauses {
		c := q.At(i)
		switch clause := c.(type) {
		case From:
			if i > 0 {
				v.addWarning("clause %d: From is only allowed as the first clause", i)
			}
		case Where:
			if clause.Predicate == nil {
				v.addWarning("clause %d: Where without a predicate", i)
			} else {
				v.validateExpr(i, clause.Predicate)
			}
		case OrderBy:
			if len(clause.Orderings) == 0 {
				v.addWarning("clause %d: OrderBy without orderings", i)
			}
			for _, o := range clause.Orderings {
				if o.Expr == nil {
					v.addWarning("clause %d: ordering without an expression", i)
					continue
				}
				v.validateExpr(i, o.Expr)
			}
		case Flatten:
			if flattenAt >= 0 {
				v.addWarning("clause %d: nested Flatten after clause %d is not supported", i, flattenAt)
				continue
			}
			flattenAt = i
			if _, ok := UnwrapExpr(clause.Source).(Member); !ok {
				v.addWarning("clause %d: Flatten source must be a member path", i)
			}
		case ResultOperator:
			if (clause.Kind == OpTake || clause.Kind == OpSkip) && clause.Count < 0 {
				v.addWarning("clause %d: %s count must be non-negative, got %d", i, clause.Kind, clause.Count)
			}
		case nil:
			v.addWarning("clause %d: nil clause", i)
		default:
			v.addWarning("clause %d: unknown clause type %T", i, c)
		}

		// Only Where, OrderBy and result operators may follow a Flatten.
		if flattenAt >= 0 && i > flattenAt {
			switch c.(type) {
			case Where, OrderBy, ResultOperator, Flatten:
			default:
				v.addWarning("clause %d: %s inside a flatten window is not supported", i, kindName(c))
			}
		}
	}
}

// validateExpr walks an expression tree and reports unknown node types.
func (v *validator) validateExpr(clause int, e Expr) {
	switch expr := UnwrapExpr(e).(type) {
	case Member, Constant:
	case Compare:
		if expr.Left == nil || expr.Right == nil {
			v.addWarning("clause %d: comparison %s is missing an operand", clause, expr.Op.SQL())
			return
		}
		v.validateExpr(clause, expr.Left)
		v.validateExpr(clause, expr.Right)
	case And:
		for _, op := range expr.Operands {
			v.validateExpr(clause, op)
		}
	case Or:
		for _, op := range expr.Operands {
			v.validateExpr(clause, op)
		}
	case Not:
		if expr.Operand == nil {
			v.addWarning("clause %d: Not without an operand", clause)
			return
		}
		v.validateExpr(clause, expr.Operand)
	case nil:
		v.addWarning("clause %d: nil expression", clause)
	default:
		v.addWarning("clause %d: unknown expression type %T", clause, e)
	}
}

// kindName returns a short name for a clause's kind.
func kindName(c Clause) string {
	switch clause := Unwrap(c).(type) {
	case From:
		return "From"
	case Where:
		return "Where"
	case OrderBy:
		return "OrderBy"
	case Flatten:
		return "Flatten"
	case ResultOperator:
		return clause.Kind.String()
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%T", c)
	}
}
