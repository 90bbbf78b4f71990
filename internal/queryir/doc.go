// Package queryir provides the clause-sequence model that the docsql
// compiler translates into PostgreSQL.
//
// A query arrives already parsed: an ordered sequence of clauses that
// describe where documents come from, how they are filtered and ordered,
// whether a nested array field is flattened into one row per element, and
// which result-shape operators (distinct, take, skip) apply.
//
//	[parsed query] → [Query (clause sequence)] → [querysql compiler] → SQL + args
//
// SEALED INTERFACES:
//
// Clause, Expr and Value are sealed interfaces using the marker method
// pattern. Only types in this package implement them, which lets the
// compiler use exhaustive type switches:
//
//	switch c := clause.(type) {
//	case From:
//	case Where:
//	case OrderBy:
//	case Flatten:
//	case ResultOperator:
//	}
//
// Pointer forms (*Where, *Flatten, ...) satisfy the interfaces as well;
// Unwrap normalizes them to values before dispatch.
//
// CLAUSE WINDOWS:
//
// A Flatten clause re-targets every clause after it onto the flattened
// element rows. Those downstream clauses form the flatten "window",
// addressed by (index, length) through Query.Window. A query may contain
// at most one Flatten clause.
//
// LITERALS:
//
// Literal values in predicates use the Value types (Null, String, Int,
// Float, Bool). They are never rendered into SQL text; the compiler binds
// them as out-of-band parameters.
package queryir
