package queryir

import "strings"

// Clause is one step of a parsed query.
//
// This is a sealed interface - only types in this package implement it.
//
// Clause types:
//   - From: the document type the query reads
//   - Where: a filter predicate
//   - OrderBy: one or more orderings
//   - Flatten: unnest an array-valued member into one row per element
//   - ResultOperator: distinct, take or skip
type Clause interface {
	clauseNode() // Marker method - seals interface to this package
}

// Expr is an expression inside a Where predicate or an Ordering.
//
// This is a sealed interface - only types in this package implement it.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// From names the document type a query reads.
//
//	From{Document: "Post"}
//
// translates to the source table of that document mapping:
//
//	from public.mt_doc_post as d
type From struct {
	Document string // Registered document type name
}

func (From) clauseNode() {}

// Where filters rows with a boolean predicate.
//
// Before a Flatten clause the predicate is evaluated against the root
// document; after it, against the flattened element.
type Where struct {
	Predicate Expr
}

func (Where) clauseNode() {}

// OrderBy sorts rows. Orderings apply in declaration order.
type OrderBy struct {
	Orderings []Ordering
}

func (OrderBy) clauseNode() {}

// Flatten unnests an array-valued member of the current document.
//
// Example:
//
//	Flatten{Source: Member{Path: []string{"Tags"}}}
//
// produces one row per element of the Tags array. Source must be a direct
// member path off the current document.
type Flatten struct {
	Source Expr
}

func (Flatten) clauseNode() {}

// OperatorKind identifies a result-shape operator.
type OperatorKind int

const (
	// OpDistinct removes duplicate rows.
	OpDistinct OperatorKind = iota
	// OpTake limits the number of rows.
	OpTake
	// OpSkip skips leading rows.
	OpSkip
)

// String returns the operator name.
func (k OperatorKind) String() string {
	switch k {
	case OpDistinct:
		return "distinct"
	case OpTake:
		return "take"
	case OpSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// ResultOperator shapes the result set. Count is used by Take and Skip.
type ResultOperator struct {
	Kind  OperatorKind
	Count int
}

func (ResultOperator) clauseNode() {}

// Distinct returns a Distinct result operator.
func Distinct() ResultOperator { return ResultOperator{Kind: OpDistinct} }

// Take returns a Take result operator.
func Take(n int) ResultOperator { return ResultOperator{Kind: OpTake, Count: n} }

// Skip returns a Skip result operator.
func Skip(n int) ResultOperator { return ResultOperator{Kind: OpSkip, Count: n} }

// Direction is the sort direction of an Ordering.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Ordering is a single sort key.
type Ordering struct {
	Expr      Expr
	Direction Direction
}

// Member is a member access path off the current document.
//
// An empty Path refers to the current element itself, which is how
// predicates address scalar elements after a Flatten:
//
//	Compare{Op: OpNotEqual, Left: Member{}, Right: Constant{Value: String("a")}}
type Member struct {
	Path []string
}

func (Member) exprNode() {}

// String returns the dotted member path.
func (m Member) String() string {
	if len(m.Path) == 0 {
		return "."
	}
	return strings.Join(m.Path, ".")
}

// M builds a Member from path segments.
func M(path ...string) Member {
	return Member{Path: path}
}

// Constant is a literal value. It is always bound as a parameter.
type Constant struct {
	Value Value
}

func (Constant) exprNode() {}

// C builds a Constant.
func C(v Value) Constant {
	return Constant{Value: v}
}

// CompareOp is a binary comparison operator.
type CompareOp int

const (
	OpEqual CompareOp = iota
	OpNotEqual
	OpLess
	OpLessOrEqual
	OpGreater
	OpGreaterOrEqual
)

// SQL returns the SQL spelling of the operator.
func (op CompareOp) SQL() string {
	switch op {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpLess:
		return "<"
	case OpLessOrEqual:
		return "<="
	case OpGreater:
		return ">"
	case OpGreaterOrEqual:
		return ">="
	default:
		return "?"
	}
}

// ParseCompareOp parses the SQL spelling of a comparison operator.
func ParseCompareOp(s string) (CompareOp, bool) {
	switch s {
	case "=", "==":
		return OpEqual, true
	case "!=", "<>":
		return OpNotEqual, true
	case "<":
		return OpLess, true
	case "<=":
		return OpLessOrEqual, true
	case ">":
		return OpGreater, true
	case ">=":
		return OpGreaterOrEqual, true
	default:
		return 0, false
	}
}

// Compare is a binary comparison.
type Compare struct {
	Op    CompareOp
	Left  Expr
	Right Expr
}

func (Compare) exprNode() {}

// And is a conjunction. All operands must hold.
type And struct {
	Operands []Expr
}

func (And) exprNode() {}

// Or is a disjunction. At least one operand must hold.
type Or struct {
	Operands []Expr
}

func (Or) exprNode() {}

// Not negates its operand.
type Not struct {
	Operand Expr
}

func (Not) exprNode() {}

// Unwrap dereferences pointer clause forms so callers can switch on values.
// Nil pointers are returned as nil.
func Unwrap(c Clause) Clause {
	switch v := c.(type) {
	case *From:
		if v == nil {
			return nil
		}
		return *v
	case *Where:
		if v == nil {
			return nil
		}
		return *v
	case *OrderBy:
		if v == nil {
			return nil
		}
		return *v
	case *Flatten:
		if v == nil {
			return nil
		}
		return *v
	case *ResultOperator:
		if v == nil {
			return nil
		}
		return *v
	default:
		return c
	}
}

// UnwrapExpr dereferences pointer expression forms.
func UnwrapExpr(e Expr) Expr {
	switch v := e.(type) {
	case *Member:
		if v == nil {
			return nil
		}
		return *v
	case *Constant:
		if v == nil {
			return nil
		}
		return *v
	case *Compare:
		if v == nil {
			return nil
		}
		return *v
	case *And:
		if v == nil {
			return nil
		}
		return *v
	case *Or:
		if v == nil {
			return nil
		}
		return *v
	case *Not:
		if v == nil {
			return nil
		}
		return *v
	default:
		return e
	}
}
