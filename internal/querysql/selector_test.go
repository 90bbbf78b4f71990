package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docsql/internal/queryir"
	"github.com/roach88/docsql/internal/schema"
)

func TestChooseSelector(t *testing.T) {
	reg := newTestRegistry()
	post := mustMapping(t, reg, "Post")

	tests := []struct {
		name     string
		field    string
		result   ResultType
		complex  bool
		distinct bool
		want     SelectorPlan
	}{
		{
			name:   "text elements",
			field:  "Tags",
			result: ResultTypeOf[any](),
			want: SelectorPlan{
				Kind: SelectorTextScalar,
				Expr: "jsonb_array_elements_text(d.data -> 'Tags') as x",
				Elem: schema.String,
			},
		},
		{
			name:     "text elements keep distinct",
			field:    "Tags",
			result:   ResultTypeOf[any](),
			distinct: true,
			want: SelectorPlan{
				Kind:     SelectorTextScalar,
				Expr:     "jsonb_array_elements_text(d.data -> 'Tags') as x",
				Distinct: true,
				Elem:     schema.String,
			},
		},
		{
			name:     "native elements",
			field:    "Scores",
			result:   ResultTypeOf[any](),
			distinct: true,
			want: SelectorPlan{
				Kind:     SelectorNativeScalar,
				Expr:     "CAST(jsonb_array_elements_text(d.data -> 'Scores') as integer) as x",
				Distinct: true,
				Elem:     schema.Int,
			},
		},
		{
			name:     "complex always deserializes",
			field:    "Scores",
			result:   ResultTypeOf[string](),
			complex:  true,
			distinct: true,
			want: SelectorPlan{
				Kind: SelectorDeserialize,
				Expr: "jsonb_array_elements(d.data -> 'Scores') as x",
				Elem: schema.Int,
			},
		},
		{
			name:     "object elements fall back to deserialize",
			field:    "Comments",
			result:   ResultTypeOf[any](),
			distinct: true,
			want: SelectorPlan{
				Kind: SelectorDeserialize,
				Expr: "jsonb_array_elements_text(d.data -> 'Comments') as x",
				Elem: commentType,
			},
		},
		{
			name:   "string result over int elements reads text",
			field:  "Scores",
			result: ResultTypeOf[string](),
			want: SelectorPlan{
				Kind: SelectorTextScalar,
				Expr: "jsonb_array_elements_text(d.data -> 'Scores') as x",
				Elem: schema.String,
			},
		},
		{
			name:   "int64 result casts to its own native type",
			field:  "Scores",
			result: ResultTypeOf[int64](),
			want: SelectorPlan{
				Kind: SelectorNativeScalar,
				Expr: "CAST(jsonb_array_elements_text(d.data -> 'Scores') as bigint) as x",
				Elem: schema.Long,
			},
		},
		{
			name:     "struct result over text elements deserializes",
			field:    "Tags",
			result:   ResultTypeOf[comment](),
			distinct: true,
			want: SelectorPlan{
				Kind: SelectorDeserialize,
				Expr: "jsonb_array_elements_text(d.data -> 'Tags') as x",
				Elem: schema.String,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field, err := post.FieldFor([]string{tt.field})
			require.NoError(t, err)

			got := ChooseSelector(field, tt.result, tt.complex, tt.distinct, reg.Conversions())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChooseSelector_WithoutNativeMapping(t *testing.T) {
	conv := &schema.Conversions{}
	conv.Register(schema.KindString, schema.Conversion{PgType: "varchar"})
	reg := schema.NewRegistry(schema.WithConversions(conv))
	post := reg.Register("Post", postType)

	field, err := post.FieldFor([]string{"Scores"})
	require.NoError(t, err)

	got := ChooseSelector(field, ResultTypeOf[int](), false, false, reg.Conversions())
	assert.Equal(t, SelectorDeserialize, got.Kind)
	assert.Equal(t, "jsonb_array_elements_text(d.data -> 'Scores') as x", got.Expr)
}

func TestResultTypeOf(t *testing.T) {
	tests := []struct {
		name string
		got  ResultType
		want ResultType
	}{
		{"string", ResultTypeOf[string](), ResultType{Scalar: schema.String}},
		{"int", ResultTypeOf[int](), ResultType{Scalar: schema.Int}},
		{"int64", ResultTypeOf[int64](), ResultType{Scalar: schema.Long}},
		{"float64", ResultTypeOf[float64](), ResultType{Scalar: schema.Float}},
		{"bool", ResultTypeOf[bool](), ResultType{Scalar: schema.Bool}},
		{"interface", ResultTypeOf[any](), ResultType{Dynamic: true}},
		{"struct", ResultTypeOf[comment](), ResultType{}},
		{"pointer", ResultTypeOf[*comment](), ResultType{}},
		{"map", ResultTypeOf[map[string]any](), ResultType{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestFlattenQuery_SelectorPlan(t *testing.T) {
	reg := newTestRegistry()
	post := mustMapping(t, reg, "Post")
	users := mustMapping(t, reg, "User")

	q := queryir.NewQuery(queryir.From{Document: "Post"}, flatten("Scores"))
	fq, err := NewFlattenQuery(reg, post, q, 1)
	require.NoError(t, err)

	assert.Equal(t, SelectorNativeScalar, fq.SelectorPlan(nil).Kind)
	assert.Equal(t, SelectorTextScalar, fq.ForResult(ResultTypeOf[string]()).SelectorPlan(nil).Kind)

	join, err := NewInclude[user](post, users, []string{"AuthorId"}, "u", JoinInner, &collector[user]{})
	require.NoError(t, err)
	assert.Equal(t, SelectorDeserialize, fq.SelectorPlan([]Join{join}).Kind)
}

func TestSelector_Resolve(t *testing.T) {
	conv := schema.DefaultConversions()

	t.Run("text scalar", func(t *testing.T) {
		sel := NewSelector[string](SelectorPlan{Kind: SelectorTextScalar, Expr: "e", Elem: schema.String}, conv, JSONSerializer{})
		assert.Equal(t, []string{"e"}, sel.SelectFields())

		got, err := sel.Resolve([]any{[]byte("go")})
		require.NoError(t, err)
		assert.Equal(t, "go", got)

		got, err = sel.Resolve([]any{nil})
		require.NoError(t, err)
		assert.Equal(t, "", got)
	})

	t.Run("native scalar", func(t *testing.T) {
		sel := NewSelector[int](SelectorPlan{Kind: SelectorNativeScalar, Expr: "e", Elem: schema.Int}, conv, JSONSerializer{})

		got, err := sel.Resolve([]any{int64(42)})
		require.NoError(t, err)
		assert.Equal(t, 42, got)

		_, err = sel.Resolve([]any{true})
		assert.Error(t, err)

		_, err = sel.Resolve(nil)
		assert.Error(t, err)
	})

	t.Run("native scalar into the wrong type", func(t *testing.T) {
		sel := NewSelector[string](SelectorPlan{Kind: SelectorNativeScalar, Expr: "e", Elem: schema.Int}, conv, JSONSerializer{})
		_, err := sel.Resolve([]any{int64(1)})
		assert.Error(t, err)
	})

	t.Run("deserialize", func(t *testing.T) {
		sel := NewSelector[comment](SelectorPlan{Kind: SelectorDeserialize, Expr: "e", Elem: commentType}, conv, JSONSerializer{})

		got, err := sel.Resolve([]any{[]byte(`{"Body":"hi","Likes":2}`)})
		require.NoError(t, err)
		assert.Equal(t, comment{Body: "hi", Likes: 2}, got)

		got, err = sel.Resolve([]any{`{"Body":"text"}`})
		require.NoError(t, err)
		assert.Equal(t, comment{Body: "text"}, got)

		got, err = sel.Resolve([]any{nil})
		require.NoError(t, err)
		assert.Equal(t, comment{}, got)

		_, err = sel.Resolve([]any{42})
		assert.Error(t, err)

		_, err = sel.Resolve([]any{[]byte("{")})
		assert.Error(t, err)
	})

	t.Run("deserialize into any", func(t *testing.T) {
		sel := NewSelector[any](SelectorPlan{Kind: SelectorDeserialize, Expr: "e"}, conv, JSONSerializer{})
		got, err := sel.Resolve([]any{[]byte(`{"a":1}`)})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": float64(1)}, got)
	})
}

func TestSelectorKind_String(t *testing.T) {
	assert.Equal(t, "text-scalar", SelectorTextScalar.String())
	assert.Equal(t, "native-scalar", SelectorNativeScalar.String())
	assert.Equal(t, "deserialize", SelectorDeserialize.String())
	assert.Equal(t, "SelectorKind(9)", SelectorKind(9).String())
}
