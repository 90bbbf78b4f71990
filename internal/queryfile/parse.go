package queryfile

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/docsql/internal/queryir"
	"github.com/roach88/docsql/internal/querysql"
)

// File is a parsed query file.
type File struct {
	// Query is the clause sequence, starting with its From clause.
	Query *queryir.Query

	// Includes are the eager-load joins to attach, in declaration order.
	Includes []IncludeSpec

	// Limit is the statement limit hint; zero means none.
	Limit int
}

// IncludeSpec describes an eager-load join before it is bound to a sink.
type IncludeSpec struct {
	// Document is the registered name of the related document.
	Document string
	// Members is the foreign-key member path on the owning document.
	Members []string
	// Alias is the table alias of the related document.
	Alias string
	Kind  querysql.JoinKind
}

// Parse converts a query value that already unified with #Query.
func Parse(v cue.Value) (*File, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	from, err := v.LookupPath(cue.ParsePath("from")).String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	clauses := []queryir.Clause{queryir.From{Document: from}}

	list, err := v.LookupPath(cue.ParsePath("clauses")).List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for list.Next() {
		c, err := parseClause(list.Value())
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
	}

	file := &File{Query: queryir.NewQuery(clauses...)}

	includes, err := v.LookupPath(cue.ParsePath("includes")).List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for includes.Next() {
		spec, err := parseInclude(includes.Value())
		if err != nil {
			return nil, err
		}
		file.Includes = append(file.Includes, spec)
	}

	limit, err := v.LookupPath(cue.ParsePath("limit")).Int64()
	if err != nil {
		return nil, formatCUEError(err)
	}
	file.Limit = int(limit)

	return file, nil
}

func parseClause(v cue.Value) (queryir.Clause, error) {
	if w := v.LookupPath(cue.ParsePath("where")); w.Exists() {
		pred, err := parsePredicate(w)
		if err != nil {
			return nil, err
		}
		return queryir.Where{Predicate: pred}, nil
	}

	if f := v.LookupPath(cue.ParsePath("flatten")); f.Exists() {
		path, err := f.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return queryir.Flatten{Source: memberOf(path)}, nil
	}

	if o := v.LookupPath(cue.ParsePath("orderBy")); o.Exists() {
		return parseOrderBy(o)
	}

	for _, op := range []struct {
		label string
		build func(int) queryir.ResultOperator
	}{
		{"take", queryir.Take},
		{"skip", queryir.Skip},
	} {
		if n := v.LookupPath(cue.ParsePath(op.label)); n.Exists() {
			count, err := n.Int64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			return op.build(int(count)), nil
		}
	}

	if d := v.LookupPath(cue.ParsePath("distinct")); d.Exists() {
		return queryir.Distinct(), nil
	}

	return nil, &ParseError{Field: "clauses", Message: "unknown clause", Pos: v.Pos()}
}

func parseOrderBy(v cue.Value) (queryir.Clause, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var orderings []queryir.Ordering
	for iter.Next() {
		item := iter.Value()
		field, err := item.LookupPath(cue.ParsePath("field")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		desc, err := item.LookupPath(cue.ParsePath("desc")).Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}

		dir := queryir.Asc
		if desc {
			dir = queryir.Desc
		}
		orderings = append(orderings, queryir.Ordering{Expr: memberOf(field), Direction: dir})
	}

	if len(orderings) == 0 {
		return nil, &ParseError{Field: "orderBy", Message: "at least one ordering is required", Pos: v.Pos()}
	}
	return queryir.OrderBy{Orderings: orderings}, nil
}

// parsePredicate reads one of the predicate forms:
//
//	{field: "Likes", op: ">", value: 2}   comparison against a literal
//	{field: "Likes", op: ">", ref: "Min"} comparison against another member
//	{field: "Published"}                  boolean member
//	{and: [...]} {or: [...]} {not: {...}}
func parsePredicate(v cue.Value) (queryir.Expr, error) {
	for _, label := range []string{"and", "or"} {
		list := v.LookupPath(cue.ParsePath(label))
		if !list.Exists() {
			continue
		}
		iter, err := list.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var operands []queryir.Expr
		for iter.Next() {
			e, err := parsePredicate(iter.Value())
			if err != nil {
				return nil, err
			}
			operands = append(operands, e)
		}
		if label == "and" {
			return queryir.And{Operands: operands}, nil
		}
		return queryir.Or{Operands: operands}, nil
	}

	if n := v.LookupPath(cue.ParsePath("not")); n.Exists() {
		inner, err := parsePredicate(n)
		if err != nil {
			return nil, err
		}
		return queryir.Not{Operand: inner}, nil
	}

	fieldVal := v.LookupPath(cue.ParsePath("field"))
	if !fieldVal.Exists() {
		return nil, &ParseError{Field: "where", Message: "predicate needs field, and, or, or not", Pos: v.Pos()}
	}
	field, err := fieldVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	left := memberOf(field)

	opVal := v.LookupPath(cue.ParsePath("op"))
	if !opVal.Exists() {
		return left, nil
	}
	opText, err := opVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	op, ok := queryir.ParseCompareOp(opText)
	if !ok {
		return nil, &ParseError{Field: "where.op", Message: fmt.Sprintf("unknown operator %q", opText), Pos: opVal.Pos()}
	}

	if ref := v.LookupPath(cue.ParsePath("ref")); ref.Exists() {
		path, err := ref.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return queryir.Compare{Op: op, Left: left, Right: memberOf(path)}, nil
	}

	valueVal := v.LookupPath(cue.ParsePath("value"))
	if !valueVal.Exists() {
		return nil, &ParseError{Field: "where.value", Message: "comparison needs value or ref", Pos: v.Pos()}
	}
	value, err := literal(valueVal)
	if err != nil {
		return nil, err
	}
	return queryir.Compare{Op: op, Left: left, Right: queryir.C(value)}, nil
}

func literal(v cue.Value) (queryir.Value, error) {
	var (
		raw any
		err error
	)
	switch v.Kind() {
	case cue.NullKind:
		return queryir.Null{}, nil
	case cue.BoolKind:
		raw, err = v.Bool()
	case cue.IntKind:
		raw, err = v.Int64()
	case cue.FloatKind, cue.NumberKind:
		raw, err = v.Float64()
	case cue.StringKind:
		raw, err = v.String()
	default:
		return nil, &ParseError{Field: "where.value", Message: fmt.Sprintf("unsupported literal kind %s", v.Kind()), Pos: v.Pos()}
	}
	if err != nil {
		return nil, formatCUEError(err)
	}

	value, err := queryir.ValueOf(raw)
	if err != nil {
		return nil, &ParseError{Field: "where.value", Message: err.Error(), Pos: v.Pos()}
	}
	return value, nil
}

func parseInclude(v cue.Value) (IncludeSpec, error) {
	var spec IncludeSpec
	var err error

	if spec.Document, err = v.LookupPath(cue.ParsePath("type")).String(); err != nil {
		return spec, formatCUEError(err)
	}
	field, err := v.LookupPath(cue.ParsePath("field")).String()
	if err != nil {
		return spec, formatCUEError(err)
	}
	spec.Members = memberOf(field).Path
	if spec.Alias, err = v.LookupPath(cue.ParsePath("alias")).String(); err != nil {
		return spec, formatCUEError(err)
	}

	kind, err := v.LookupPath(cue.ParsePath("kind")).String()
	if err != nil {
		return spec, formatCUEError(err)
	}
	if spec.Kind, err = querysql.ParseJoinKind(kind); err != nil {
		return spec, &ParseError{Field: "includes.kind", Message: err.Error(), Pos: v.Pos()}
	}
	return spec, nil
}

// memberOf parses a dotted member path; "." is the current element.
func memberOf(path string) queryir.Member {
	path = strings.TrimSpace(path)
	if path == "" || path == "." {
		return queryir.M()
	}
	return queryir.M(strings.Split(path, ".")...)
}
