package schema

import (
	"strings"
)

// Field is a resolved member path.
//
// A Field is an immutable value produced by a Queryable. Its locator is a
// SQL expression that reads the member out of a row, rendered against a
// root alias that callers may override with LocatorFor.
type Field struct {
	// Members is the member path the field was resolved from.
	Members []string

	// Type is the declared type of the member.
	Type *Type

	keys   []string // JSON keys, one per member, after casing
	column string   // jsonb column the path starts from
	alias  string   // default root alias
	conv   *Conversions
}

// Locator returns the SQL locator against the field's default root alias.
func (f *Field) Locator() string {
	return f.LocatorFor(f.alias)
}

// LocatorFor returns the SQL locator against the given root alias.
//
// Text leaves use ->>, native scalars are cast from text, and objects or
// arrays stay jsonb:
//
//	d.data ->> 'name'
//	CAST(d.data -> 'address' ->> 'zip' as integer)
//	d.data -> 'tags'
//
// An empty member path addresses the column itself; scalar elements are
// unwrapped with #>> '{}'.
func (f *Field) LocatorFor(rootAlias string) string {
	base := f.column
	if rootAlias != "" {
		base = rootAlias + "." + f.column
	}

	if len(f.keys) == 0 {
		return f.scalar(base + " #>> '{}'", base)
	}

	var b strings.Builder
	b.WriteString(base)
	last := len(f.keys) - 1
	for _, k := range f.keys[:last] {
		b.WriteString(" -> ")
		b.WriteString(quoteKey(k))
	}

	jsonb := b.String() + " -> " + quoteKey(f.keys[last])
	text := b.String() + " ->> " + quoteKey(f.keys[last])
	return f.scalar(text, jsonb)
}

// JSONLocatorFor returns the jsonb-valued locator (no text extraction or
// cast) against the given root alias.
func (f *Field) JSONLocatorFor(rootAlias string) string {
	base := f.column
	if rootAlias != "" {
		base = rootAlias + "." + f.column
	}
	var b strings.Builder
	b.WriteString(base)
	for _, k := range f.keys {
		b.WriteString(" -> ")
		b.WriteString(quoteKey(k))
	}
	return b.String()
}

// scalar picks the text, cast or jsonb rendering for the field's type.
func (f *Field) scalar(text, jsonb string) string {
	switch {
	case f.Type.Kind == KindString:
		return text
	case f.Type.IsScalar():
		if conv, ok := f.conv.Lookup(f.Type); ok && conv.PgType != "" {
			return "CAST(" + text + " as " + conv.PgType + ")"
		}
		return text
	default:
		return jsonb
	}
}

// IsCollection reports whether the field is array-valued.
func (f *Field) IsCollection() bool {
	return f.Type != nil && f.Type.Kind == KindArray
}

// ElemType returns the element type of an array field, or nil.
func (f *Field) ElemType() *Type {
	if !f.IsCollection() {
		return nil
	}
	return f.Type.Elem
}

// quoteKey renders a JSON key as a SQL string literal.
func quoteKey(k string) string {
	return "'" + strings.ReplaceAll(k, "'", "''") + "'"
}
