package docstore

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docsql/internal/queryir"
	"github.com/roach88/docsql/internal/querysql"
	"github.com/roach88/docsql/internal/schema"
)

type comment struct {
	AuthorId string
	Body     string
	Likes    int
}

type user struct {
	Name string
}

var (
	commentType = schema.Object("Comment",
		schema.Prop("AuthorId", schema.UUID),
		schema.Prop("Body", schema.String),
		schema.Prop("Likes", schema.Int),
	)
	postType = schema.Object("Post",
		schema.Prop("Title", schema.String),
		schema.Prop("Tags", schema.ArrayOf(schema.String)),
		schema.Prop("Scores", schema.ArrayOf(schema.Int)),
		schema.Prop("Comments", schema.ArrayOf(commentType)),
	)
	userType = schema.Object("User", schema.Prop("Name", schema.String))
)

// newTestStore creates a Store over a sqlmock connection that matches
// statements exactly (modulo whitespace).
func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	s := New(db)
	t.Cleanup(func() { _ = s.Close() })
	return s, mock
}

func newTestCompiler() (*querysql.Compiler, *schema.Registry) {
	reg := schema.NewRegistry()
	reg.Register("Post", postType)
	reg.Register("User", userType)
	return querysql.NewCompiler(reg), reg
}

func TestQuery_TextScalar(t *testing.T) {
	s, mock := newTestStore(t)
	c, _ := newTestCompiler()

	plan, err := querysql.Compile[string](c, queryir.NewQuery(
		queryir.From{Document: "Post"},
		queryir.Flatten{Source: queryir.M("Tags")},
		queryir.Distinct(),
	), 0)
	require.NoError(t, err)

	mock.ExpectQuery(plan.SQL).
		WillReturnRows(sqlmock.NewRows([]string{"x"}).AddRow("go").AddRow([]byte("sql")))

	tags, err := Query(context.Background(), s, plan)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "sql"}, tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_NativeScalar(t *testing.T) {
	s, mock := newTestStore(t)
	c, _ := newTestCompiler()

	plan, err := querysql.Compile[int](c, queryir.NewQuery(
		queryir.From{Document: "Post"},
		queryir.Flatten{Source: queryir.M("Scores")},
	), 2)
	require.NoError(t, err)

	mock.ExpectQuery(plan.SQL).
		WillReturnRows(sqlmock.NewRows([]string{"x"}).AddRow(int64(3)).AddRow(int64(5)))

	scores, err := Query(context.Background(), s, plan)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 5}, scores)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_WithInclude(t *testing.T) {
	s, mock := newTestStore(t)
	c, reg := newTestCompiler()

	q := queryir.NewQuery(
		queryir.From{Document: "Post"},
		queryir.Flatten{Source: queryir.M("Comments")},
		queryir.Where{Predicate: queryir.Compare{
			Op:    queryir.OpGreater,
			Left:  queryir.M("Likes"),
			Right: queryir.C(queryir.Int(1)),
		}},
	)
	owner, err := c.IncludeOwner(q)
	require.NoError(t, err)
	users, err := reg.Mapping("User")
	require.NoError(t, err)

	authors := map[string]user{}
	var order []string
	include, err := querysql.NewInclude(owner, users, []string{"AuthorId"}, "u", querysql.JoinLeftOuter,
		querysql.SinkFunc[user](func(u user) {
			order = append(order, u.Name)
			if u.Name != "" {
				authors[u.Name] = u
			}
		}))
	require.NoError(t, err)

	plan, err := querysql.Compile[comment](c, q, 0, include)
	require.NoError(t, err)

	ann := uuid.MustParse("0b0e7d4e-3f4f-4b0c-9d8e-1a2b3c4d5e6f")
	mock.ExpectQuery(plan.SQL).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"x", "id", "data"}).
			AddRow([]byte(`{"AuthorId":"`+ann.String()+`","Body":"first","Likes":4}`), ann.String(), []byte(`{"Name":"ann"}`)).
			AddRow([]byte(`{"Body":"orphan","Likes":2}`), nil, nil))

	comments, err := Query(context.Background(), s, plan)
	require.NoError(t, err)
	assert.Equal(t, []comment{
		{AuthorId: ann.String(), Body: "first", Likes: 4},
		{Body: "orphan", Likes: 2},
	}, comments)
	assert.Equal(t, []string{"ann", ""}, order)
	assert.Contains(t, authors, "ann")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_NoRows(t *testing.T) {
	s, mock := newTestStore(t)
	c, _ := newTestCompiler()

	plan, err := querysql.Compile[map[string]any](c, queryir.NewQuery(
		queryir.From{Document: "Post"},
		queryir.Where{Predicate: queryir.Compare{Op: queryir.OpEqual, Left: queryir.M("Title"), Right: queryir.C(queryir.String("none"))}},
	), 0)
	require.NoError(t, err)

	mock.ExpectQuery(plan.SQL).WithArgs("none").WillReturnRows(sqlmock.NewRows([]string{"data"}))

	docs, err := Query(context.Background(), s, plan)
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_Errors(t *testing.T) {
	c, _ := newTestCompiler()
	plan, err := querysql.Compile[int](c, queryir.NewQuery(
		queryir.From{Document: "Post"},
		queryir.Flatten{Source: queryir.M("Scores")},
	), 0)
	require.NoError(t, err)

	t.Run("query failure", func(t *testing.T) {
		s, mock := newTestStore(t)
		mock.ExpectQuery(plan.SQL).WillReturnError(assert.AnError)

		_, err := Query(context.Background(), s, plan)
		require.Error(t, err)
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("resolve failure", func(t *testing.T) {
		s, mock := newTestStore(t)
		mock.ExpectQuery(plan.SQL).WillReturnRows(sqlmock.NewRows([]string{"x"}).AddRow("not a number"))

		_, err := Query(context.Background(), s, plan)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "resolve row 0")
	})

	t.Run("row error", func(t *testing.T) {
		s, mock := newTestStore(t)
		mock.ExpectQuery(plan.SQL).WillReturnRows(
			sqlmock.NewRows([]string{"x"}).AddRow(int64(1)).RowError(0, assert.AnError))

		_, err := Query(context.Background(), s, plan)
		require.Error(t, err)
	})

	t.Run("nil plan", func(t *testing.T) {
		s, _ := newTestStore(t)
		_, err := Query[int](context.Background(), s, nil)
		assert.Error(t, err)
	})
}

func TestStore_EnsureTable(t *testing.T) {
	s, mock := newTestStore(t)
	reg := schema.NewRegistry(schema.WithSchema("docs"))
	post := reg.Register("Post", postType)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS docs.mt_doc_post ( id uuid PRIMARY KEY, data jsonb NOT NULL )").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsureTable(context.Background(), post))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Upsert(t *testing.T) {
	s, mock := newTestStore(t)
	post := schema.NewRegistry().Register("Post", postType)
	const upsert = "INSERT INTO public.mt_doc_post (id, data) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data"

	id := uuid.MustParse("6f1d3c1e-8a7b-4d55-9a55-2b0c7f1e9a01")
	mock.ExpectExec(upsert).
		WithArgs(id.String(), `{"Title":"hello"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := s.Upsert(context.Background(), post, id, map[string]any{"Title": "hello"})
	require.NoError(t, err)
	assert.Equal(t, id, got)

	mock.ExpectExec(upsert).
		WithArgs(sqlmock.AnyArg(), `{"Title":"fresh"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	fresh, err := s.Upsert(context.Background(), post, uuid.Nil, map[string]any{"Title": "fresh"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, fresh)

	_, err = s.Upsert(context.Background(), post, id, map[string]any{"bad": make(chan int)})
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Delete(t *testing.T) {
	s, mock := newTestStore(t)
	post := schema.NewRegistry().Register("Post", postType)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM public.mt_doc_post WHERE id = $1").
		WithArgs(id.String()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Delete(context.Background(), post, id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}
