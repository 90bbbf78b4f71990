package schema

import (
	"fmt"
	"strings"
)

// Kind classifies a declared member type.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindLong
	KindFloat
	KindDecimal
	KindBool
	KindTime
	KindUUID
	KindObject
	KindArray
)

var kindNames = map[Kind]string{
	KindString:  "string",
	KindInt:     "int",
	KindLong:    "long",
	KindFloat:   "float",
	KindDecimal: "decimal",
	KindBool:    "bool",
	KindTime:    "time",
	KindUUID:    "uuid",
	KindObject:  "object",
	KindArray:   "array",
}

// String returns the catalogue spelling of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Type describes the declared type of a document or member.
//
// Object types carry their members in declaration order; array types carry
// their element type. Types are built once and shared read-only.
type Type struct {
	Kind    Kind
	Name    string   // Object type name (empty for scalars and arrays)
	Members []Member // Object members
	Elem    *Type    // Array element type
}

// Member is a named member of an object type.
type Member struct {
	Name string
	Type *Type
}

// Scalar types.
var (
	String  = &Type{Kind: KindString}
	Int     = &Type{Kind: KindInt}
	Long    = &Type{Kind: KindLong}
	Float   = &Type{Kind: KindFloat}
	Decimal = &Type{Kind: KindDecimal}
	Bool    = &Type{Kind: KindBool}
	Time    = &Type{Kind: KindTime}
	UUID    = &Type{Kind: KindUUID}
)

// ArrayOf returns an array type of elem.
func ArrayOf(elem *Type) *Type {
	return &Type{Kind: KindArray, Elem: elem}
}

// Object returns a named object type with the given members.
func Object(name string, members ...Member) *Type {
	return &Type{Kind: KindObject, Name: name, Members: members}
}

// Prop builds a Member.
func Prop(name string, t *Type) Member {
	return Member{Name: name, Type: t}
}

// Member looks up a member by name.
func (t *Type) Member(name string) (*Type, bool) {
	if t == nil || t.Kind != KindObject {
		return nil, false
	}
	for _, m := range t.Members {
		if m.Name == name {
			return m.Type, true
		}
	}
	return nil, false
}

// IsScalar reports whether t is neither an object nor an array.
func (t *Type) IsScalar() bool {
	return t != nil && t.Kind != KindObject && t.Kind != KindArray
}

// String returns the catalogue spelling of t, e.g. "[]Comment".
func (t *Type) String() string {
	switch {
	case t == nil:
		return "<nil>"
	case t.Kind == KindArray:
		return "[]" + t.Elem.String()
	case t.Kind == KindObject:
		return t.Name
	default:
		return t.Kind.String()
	}
}

var scalarsByName = map[string]*Type{
	"string":  String,
	"text":    String,
	"int":     Int,
	"integer": Int,
	"long":    Long,
	"bigint":  Long,
	"float":   Float,
	"double":  Float,
	"decimal": Decimal,
	"numeric": Decimal,
	"bool":    Bool,
	"boolean": Bool,
	"time":    Time,
	"uuid":    UUID,
}

// ParseType parses a catalogue type expression.
//
// Scalars are spelled by name (string, int, uuid, ...); "[]T" is an array
// of T; any other name is looked up as an object type.
func ParseType(expr string, lookup func(name string) (*Type, bool)) (*Type, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty type expression")
	}

	if rest, ok := strings.CutPrefix(expr, "[]"); ok {
		elem, err := ParseType(rest, lookup)
		if err != nil {
			return nil, err
		}
		return ArrayOf(elem), nil
	}

	if t, ok := scalarsByName[strings.ToLower(expr)]; ok {
		return t, nil
	}

	if lookup != nil {
		if t, ok := lookup(expr); ok {
			return t, nil
		}
	}
	return nil, fmt.Errorf("unknown type %q", expr)
}
