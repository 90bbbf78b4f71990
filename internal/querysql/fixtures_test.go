package querysql

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docsql/internal/queryir"
	"github.com/roach88/docsql/internal/schema"
)

var (
	commentType = schema.Object("Comment",
		schema.Prop("AuthorId", schema.UUID),
		schema.Prop("Body", schema.String),
		schema.Prop("Likes", schema.Int),
	)
	postType = schema.Object("Post",
		schema.Prop("Title", schema.String),
		schema.Prop("Age", schema.Int),
		schema.Prop("Published", schema.Bool),
		schema.Prop("AuthorId", schema.UUID),
		schema.Prop("Tags", schema.ArrayOf(schema.String)),
		schema.Prop("Scores", schema.ArrayOf(schema.Int)),
		schema.Prop("Comments", schema.ArrayOf(commentType)),
	)
	userType = schema.Object("User",
		schema.Prop("Name", schema.String),
	)
)

type comment struct {
	AuthorId string
	Body     string
	Likes    int
}

type user struct {
	Name string
}

func newTestRegistry() *schema.Registry {
	reg := schema.NewRegistry()
	reg.Register("Post", postType)
	reg.Register("User", userType)
	return reg
}

func mustMapping(t *testing.T, reg *schema.Registry, name string) *schema.DocumentMapping {
	t.Helper()
	m, err := reg.Mapping(name)
	require.NoError(t, err)
	return m
}

func eq(left, right queryir.Expr) queryir.Compare {
	return queryir.Compare{Op: queryir.OpEqual, Left: left, Right: right}
}

func cmp(op queryir.CompareOp, left, right queryir.Expr) queryir.Compare {
	return queryir.Compare{Op: op, Left: left, Right: right}
}

func where(e queryir.Expr) queryir.Where {
	return queryir.Where{Predicate: e}
}

func flatten(path ...string) queryir.Flatten {
	return queryir.Flatten{Source: queryir.M(path...)}
}

func orderBy(path []string, dir queryir.Direction) queryir.OrderBy {
	return queryir.OrderBy{Orderings: []queryir.Ordering{{Expr: queryir.M(path...), Direction: dir}}}
}

// collector records every document handed to it, in order.
type collector[T any] struct {
	docs []T
}

func (c *collector[T]) Materialize(doc T) {
	c.docs = append(c.docs, doc)
}

// renderPlan formats a compiled statement for golden comparison.
func renderPlan(kind SelectorKind, st Statement) []byte {
	var b strings.Builder
	b.WriteString("-- sql --\n")
	b.WriteString(st.SQL)
	b.WriteString("\n-- args --\n")
	for i, a := range st.Args {
		fmt.Fprintf(&b, "$%d %T %v\n", i+1, a, a)
	}
	b.WriteString("-- selector --\n")
	b.WriteString(kind.String())
	b.WriteString("\n")
	return []byte(b.String())
}

func assertGolden(t *testing.T, name string, kind SelectorKind, st Statement) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, renderPlan(kind, st))
}
