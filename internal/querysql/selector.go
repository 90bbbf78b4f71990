package querysql

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/docsql/internal/schema"
)

// SelectorKind is the closed set of row shapes a compiled statement can
// produce.
type SelectorKind int

const (
	// SelectorTextScalar reads one text column per row.
	SelectorTextScalar SelectorKind = iota

	// SelectorNativeScalar reads one natively cast scalar column per row.
	SelectorNativeScalar

	// SelectorDeserialize reads one JSON column per row and deserializes it.
	SelectorDeserialize
)

// String returns the selector kind name.
func (k SelectorKind) String() string {
	switch k {
	case SelectorTextScalar:
		return "text-scalar"
	case SelectorNativeScalar:
		return "native-scalar"
	case SelectorDeserialize:
		return "deserialize"
	default:
		return fmt.Sprintf("SelectorKind(%d)", int(k))
	}
}

// SelectorPlan is the selector decision for one statement.
type SelectorPlan struct {
	// Kind is the chosen row shape.
	Kind SelectorKind

	// Expr is the single select expression, e.g.
	// "jsonb_array_elements_text(d.data -> 'tags') as x".
	Expr string

	// Distinct is set when the statement must select distinct rows. It is
	// only ever set for scalar kinds.
	Distinct bool

	// Elem is the declared type of each produced value.
	Elem *schema.Type
}

// ResultType describes the Go element type a statement materializes.
type ResultType struct {
	// Scalar is the scalar type converting to the Go type, nil when the Go
	// type is not a scalar.
	Scalar *schema.Type

	// Dynamic is set for interface result types. The declared element type
	// then stands in for the Go type.
	Dynamic bool
}

// ResultTypeOf describes T.
func ResultTypeOf[T any]() ResultType {
	scalar, dynamic := schema.ScalarOf[T]()
	return ResultType{Scalar: scalar, Dynamic: dynamic}
}

// ChooseSelector picks the cheapest row shape producing result values from
// a flattened field.
//
// Rules, in order:
//  1. complex (joins or window clauses): deserialize full jsonb elements
//  2. string results: text scalar over jsonb_array_elements_text
//  3. results with a native mapping: cast text elements to the native type
//  4. anything else: deserialize the element's JSON text
//
// Distinct is honored by the scalar kinds only.
func ChooseSelector(field *schema.Field, result ResultType, complex, distinct bool, conv *schema.Conversions) SelectorPlan {
	loc := field.Locator()
	target := result.Scalar
	if result.Dynamic {
		target = field.ElemType()
	}

	switch {
	case complex:
		return SelectorPlan{
			Kind: SelectorDeserialize,
			Expr: "jsonb_array_elements(" + loc + ") as x",
			Elem: field.ElemType(),
		}
	case target != nil && target.Kind == schema.KindString:
		return SelectorPlan{
			Kind:     SelectorTextScalar,
			Expr:     "jsonb_array_elements_text(" + loc + ") as x",
			Distinct: distinct,
			Elem:     target,
		}
	}

	if c, ok := conv.Lookup(target); ok && c.PgType != "" {
		return SelectorPlan{
			Kind:     SelectorNativeScalar,
			Expr:     "CAST(jsonb_array_elements_text(" + loc + ") as " + c.PgType + ") as x",
			Distinct: distinct,
			Elem:     target,
		}
	}

	return SelectorPlan{
		Kind: SelectorDeserialize,
		Expr: "jsonb_array_elements_text(" + loc + ") as x",
		Elem: field.ElemType(),
	}
}

// documentPlan is the selector decision of the flat path: whole documents.
func documentPlan(mapping *schema.DocumentMapping, distinct bool) SelectorPlan {
	return SelectorPlan{
		Kind:     SelectorDeserialize,
		Expr:     schema.DefaultAlias + "." + schema.DataColumn,
		Distinct: distinct,
		Elem:     mapping.Type,
	}
}

// Selector requests columns and turns one result row into a T.
type Selector[T any] interface {
	// SelectFields returns the selected column expressions in order.
	SelectFields() []string

	// Resolve materializes one row. values holds one entry per field.
	Resolve(values []any) (T, error)
}

// Serializer decodes stored JSON into Go values.
type Serializer interface {
	Unmarshal(data []byte, v any) error
}

// JSONSerializer is the default Serializer.
type JSONSerializer struct{}

// Unmarshal implements Serializer.
func (JSONSerializer) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// NewSelector builds the selector for plan.
func NewSelector[T any](plan SelectorPlan, conv *schema.Conversions, ser Serializer) Selector[T] {
	switch plan.Kind {
	case SelectorTextScalar:
		return &scalarSelector[T]{expr: plan.Expr, elem: schema.String, conv: conv}
	case SelectorNativeScalar:
		return &scalarSelector[T]{expr: plan.Expr, elem: plan.Elem, conv: conv}
	default:
		return &deserializeSelector[T]{expr: plan.Expr, ser: ser}
	}
}

// scalarSelector converts a single scalar column through the conversion
// registry.
type scalarSelector[T any] struct {
	expr string
	elem *schema.Type
	conv *schema.Conversions
}

func (s *scalarSelector[T]) SelectFields() []string {
	return []string{s.expr}
}

func (s *scalarSelector[T]) Resolve(values []any) (T, error) {
	var zero T
	if len(values) == 0 {
		return zero, fmt.Errorf("scalar selector: no column values")
	}
	if values[0] == nil {
		return zero, nil
	}

	v, err := s.conv.Convert(s.elem, values[0])
	if err != nil {
		return zero, fmt.Errorf("convert %s value: %w", s.elem, err)
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("scalar selector: %s value %T is not a %T", s.elem, v, zero)
	}
	return out, nil
}

// deserializeSelector unmarshals a single JSON column.
type deserializeSelector[T any] struct {
	expr string
	ser  Serializer
}

func (s *deserializeSelector[T]) SelectFields() []string {
	return []string{s.expr}
}

func (s *deserializeSelector[T]) Resolve(values []any) (T, error) {
	var zero T
	if len(values) == 0 {
		return zero, fmt.Errorf("deserialize selector: no column values")
	}
	return decode[T](s.ser, values[0])
}

// decode unmarshals a driver value holding JSON text. NULL yields the zero
// value.
func decode[T any](ser Serializer, raw any) (T, error) {
	var out T
	var data []byte
	switch v := raw.(type) {
	case nil:
		return out, nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return out, fmt.Errorf("cannot deserialize %T", raw)
	}

	if err := ser.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("deserialize: %w", err)
	}
	return out, nil
}
