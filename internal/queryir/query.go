package queryir

import "fmt"

// Query is an ordered, immutable clause sequence.
//
// The sequence is owned by the caller. The compiler only reads it and
// never mutates the Clauses slice or any clause inside it.
type Query struct {
	Clauses []Clause
}

// NewQuery builds a Query from clauses in order.
func NewQuery(clauses ...Clause) *Query {
	return &Query{Clauses: clauses}
}

// Len returns the number of clauses.
func (q *Query) Len() int {
	return len(q.Clauses)
}

// At returns the clause at index i, unwrapped to its value form.
func (q *Query) At(i int) Clause {
	return Unwrap(q.Clauses[i])
}

// Source returns the leading From clause, if any.
func (q *Query) Source() (From, bool) {
	for _, c := range q.Clauses {
		if from, ok := Unwrap(c).(From); ok {
			return from, true
		}
	}
	return From{}, false
}

// HasOperator reports whether a result operator of the given kind appears
// anywhere in the sequence.
func (q *Query) HasOperator(kind OperatorKind) bool {
	_, ok := q.lastOperator(kind)
	return ok
}

// lastOperator returns the last declared result operator of a kind.
func (q *Query) lastOperator(kind OperatorKind) (ResultOperator, bool) {
	var (
		found ResultOperator
		ok    bool
	)
	for _, c := range q.Clauses {
		if op, isOp := Unwrap(c).(ResultOperator); isOp && op.Kind == kind {
			found, ok = op, true
		}
	}
	return found, ok
}

// FindFlatten returns the index of the first Flatten clause at or after
// start, or -1 when there is none.
func (q *Query) FindFlatten(start int) int {
	if start < 0 {
		start = 0
	}
	for i := start; i < len(q.Clauses); i++ {
		if _, ok := Unwrap(q.Clauses[i]).(Flatten); ok {
			return i
		}
	}
	return -1
}

// Window returns the clauses in [index, index+length), clamped to the
// sequence bounds. The returned slice is a copy.
func (q *Query) Window(index, length int) []Clause {
	if index < 0 {
		index = 0
	}
	end := index + length
	if end > len(q.Clauses) {
		end = len(q.Clauses)
	}
	if index >= end {
		return nil
	}
	out := make([]Clause, 0, end-index)
	for _, c := range q.Clauses[index:end] {
		out = append(out, Unwrap(c))
	}
	return out
}

// IsBodyClause reports whether c filters or orders rows. Result operators
// shape the result set and are not body clauses.
func IsBodyClause(c Clause) bool {
	switch Unwrap(c).(type) {
	case Where, OrderBy, Flatten, From:
		return true
	default:
		return false
	}
}

// EffectiveLimit combines a caller-supplied limit with the last declared
// Take. Zero or negative limits mean "no limit"; when both exist the
// smaller one wins. The second result is false when neither exists.
func (q *Query) EffectiveLimit(limit int) (int, bool) {
	take, hasTake := q.lastOperator(OpTake)
	switch {
	case hasTake && limit > 0:
		return min(take.Count, limit), true
	case hasTake:
		return take.Count, true
	case limit > 0:
		return limit, true
	default:
		return 0, false
	}
}

// ApplyTake appends the LIMIT clause to sql.
//
// The effective limit is the smaller of the caller-supplied limit and the
// query's declared Take. Counts are integers owned by the query model and
// are rendered as literals.
func (q *Query) ApplyTake(limit int, sql string) string {
	n, ok := q.EffectiveLimit(limit)
	if !ok {
		return sql
	}
	return fmt.Sprintf("%s LIMIT %d", sql, n)
}

// ApplySkip appends the OFFSET clause for the last declared Skip.
func (q *Query) ApplySkip(sql string) string {
	skip, ok := q.lastOperator(OpSkip)
	if !ok {
		return sql
	}
	return fmt.Sprintf("%s OFFSET %d", sql, skip.Count)
}
