package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docsql/internal/schema"
)

func TestInclude_JoinText(t *testing.T) {
	reg := newTestRegistry()
	post := mustMapping(t, reg, "Post")
	users := mustMapping(t, reg, "User")

	inner, err := NewInclude[user](post, users, []string{"AuthorId"}, "u", JoinInner, &collector[user]{})
	require.NoError(t, err)
	assert.Equal(t,
		"INNER JOIN public.mt_doc_user as u ON CAST(d.data ->> 'AuthorId' as uuid) = u.id",
		inner.JoinText())

	text, err := inner.JoinTextFor("p", nil)
	require.NoError(t, err)
	assert.Equal(t,
		"INNER JOIN public.mt_doc_user as u ON CAST(p.data ->> 'AuthorId' as uuid) = u.id",
		text)

	outer, err := NewInclude[user](post, users, []string{"AuthorId"}, "author", JoinLeftOuter, &collector[user]{})
	require.NoError(t, err)
	assert.Equal(t,
		"LEFT OUTER JOIN public.mt_doc_user as author ON CAST(d.data ->> 'AuthorId' as uuid) = author.id",
		outer.JoinText())
	assert.Equal(t, "author", outer.TableAlias())
	assert.Equal(t, JoinLeftOuter, outer.Kind())
	assert.Equal(t, []string{"author.id", "author.data"}, outer.Fields())
}

func TestInclude_Retarget(t *testing.T) {
	reg := newTestRegistry()
	users := mustMapping(t, reg, "User")
	child := reg.ChildDocument("sub0.x", commentType)

	include, err := NewInclude[user](child, users, []string{"AuthorId"}, "u", JoinLeftOuter, &collector[user]{})
	require.NoError(t, err)

	text, err := include.JoinTextFor("sub0", reg.ChildDocument("sub3.x", commentType))
	require.NoError(t, err)
	assert.Equal(t,
		"LEFT OUTER JOIN public.mt_doc_user as u ON CAST(sub3.x ->> 'AuthorId' as uuid) = u.id",
		text)

	_, err = include.JoinTextFor("sub0", reg.ChildDocument("sub0.x", schema.String))
	require.Error(t, err)
	assert.True(t, IsUnresolvedField(err))
}

func TestNewInclude_Errors(t *testing.T) {
	reg := newTestRegistry()
	post := mustMapping(t, reg, "Post")
	users := mustMapping(t, reg, "User")
	sink := &collector[user]{}

	_, err := NewInclude[user](post, users, []string{"EditorId"}, "u", JoinInner, sink)
	assert.True(t, IsUnresolvedField(err))

	_, err = NewInclude[user](post, nil, []string{"AuthorId"}, "u", JoinInner, sink)
	assert.Error(t, err)

	_, err = NewInclude[user](post, users, []string{"AuthorId"}, "", JoinInner, sink)
	assert.Error(t, err)

	_, err = NewInclude[user](post, users, []string{"AuthorId"}, "u", JoinInner, nil)
	assert.Error(t, err)
}

func TestWrapSelector(t *testing.T) {
	reg := newTestRegistry()
	post := mustMapping(t, reg, "Post")
	users := mustMapping(t, reg, "User")

	authors := &collector[user]{}
	include, err := NewInclude[user](post, users, []string{"AuthorId"}, "u", JoinLeftOuter, authors)
	require.NoError(t, err)

	inner := NewSelector[string](SelectorPlan{Kind: SelectorTextScalar, Expr: "x"}, reg.Conversions(), JSONSerializer{})
	sel := WrapSelector(inner, include, nil)
	assert.Equal(t, []string{"x", "u.id", "u.data"}, sel.SelectFields())

	rows := [][]any{
		{"a", "1", []byte(`{"Name":"ann"}`)},
		{"b", nil, nil},
		{"c", "1", []byte(`{"Name":"ann"}`)},
	}

	var got []string
	for _, row := range rows {
		v, err := sel.Resolve(row)
		require.NoError(t, err)
		got = append(got, v)
	}

	assert.Equal(t, []string{"a", "b", "c"}, got)
	// One sink call per row, in row order, without deduplication.
	assert.Equal(t, []user{{Name: "ann"}, {}, {Name: "ann"}}, authors.docs)
}

func TestWrapSelector_MultipleJoins(t *testing.T) {
	reg := newTestRegistry()
	post := mustMapping(t, reg, "Post")
	users := mustMapping(t, reg, "User")

	var calls []string
	first, err := NewInclude[user](post, users, []string{"AuthorId"}, "a", JoinInner,
		SinkFunc[user](func(u user) { calls = append(calls, "a:"+u.Name) }))
	require.NoError(t, err)
	second, err := NewInclude[user](post, users, []string{"AuthorId"}, "b", JoinInner,
		SinkFunc[user](func(u user) { calls = append(calls, "b:"+u.Name) }))
	require.NoError(t, err)

	sel := wrapJoins(
		NewSelector[string](SelectorPlan{Kind: SelectorTextScalar, Expr: "x"}, reg.Conversions(), JSONSerializer{}),
		[]Join{first, second},
		JSONSerializer{},
	)
	assert.Equal(t, []string{"x", "a.id", "a.data", "b.id", "b.data"}, sel.SelectFields())

	_, err = sel.Resolve([]any{"row1", "1", `{"Name":"ann"}`, "2", `{"Name":"bob"}`})
	require.NoError(t, err)
	_, err = sel.Resolve([]any{"row2", "2", `{"Name":"bob"}`, "1", `{"Name":"ann"}`})
	require.NoError(t, err)

	assert.Equal(t, []string{"a:ann", "b:bob", "a:bob", "b:ann"}, calls)
}

func TestWrapSelector_Errors(t *testing.T) {
	reg := newTestRegistry()
	post := mustMapping(t, reg, "Post")
	users := mustMapping(t, reg, "User")

	sink := &collector[user]{}
	include, err := NewInclude[user](post, users, []string{"AuthorId"}, "u", JoinInner, sink)
	require.NoError(t, err)

	sel := WrapSelector(
		NewSelector[int](SelectorPlan{Kind: SelectorNativeScalar, Expr: "x", Elem: schema.Int}, reg.Conversions(), JSONSerializer{}),
		include,
		JSONSerializer{},
	)

	_, err = sel.Resolve([]any{int64(1), "1"})
	assert.Error(t, err, "short row")

	_, err = sel.Resolve([]any{"not a number", "1", `{"Name":"ann"}`})
	assert.Error(t, err, "inner selector failure")

	_, err = sel.Resolve([]any{int64(1), "1", `{"Name":`})
	assert.Error(t, err, "related document failure")

	assert.Empty(t, sink.docs)
}

func TestParseJoinKind(t *testing.T) {
	tests := []struct {
		in   string
		want JoinKind
	}{
		{"", JoinInner},
		{"inner", JoinInner},
		{"LEFT", JoinLeftOuter},
		{"left_outer", JoinLeftOuter},
	}
	for _, tt := range tests {
		got, err := ParseJoinKind(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseJoinKind("cross")
	assert.Error(t, err)

	assert.Equal(t, "INNER JOIN", JoinInner.String())
	assert.Equal(t, "LEFT OUTER JOIN", JoinLeftOuter.String())
}
