package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Storage conventions shared by every document table.
const (
	DefaultAlias  = "d"
	DataColumn    = "data"
	IDColumn      = "id"
	DefaultSchema = "public"
	TablePrefix   = "mt_doc_"
)

// Queryable is anything member paths can be resolved against: a stored
// document or a flattened child document.
type Queryable interface {
	// FieldFor resolves a member path. It fails with a *ResolveError when
	// the path does not exist on the document's declared type.
	FieldFor(members []string) (*Field, error)
}

// DocumentMapping maps a document type onto its storage table.
type DocumentMapping struct {
	Name   string
	Type   *Type
	Schema string

	casing Casing
	conv   *Conversions
}

// Table returns the qualified table name, e.g. public.mt_doc_post.
func (m *DocumentMapping) Table() string {
	return m.Schema + "." + TablePrefix + strings.ToLower(m.Name)
}

// FieldFor implements Queryable. Locators are rooted at d.data.
func (m *DocumentMapping) FieldFor(members []string) (*Field, error) {
	return resolve(m.Name, m.Type, members, DataColumn, DefaultAlias, m.casing, m.conv)
}

// ChildDocument describes the rows of a flattened array: one row per
// element, exposed as Column on the synthetic Alias (sub0.x).
type ChildDocument struct {
	Alias  string
	Column string
	Type   *Type

	casing Casing
	conv   *Conversions
}

// FieldFor implements Queryable. Locators are rooted at Alias.Column; an
// empty member path addresses the element itself.
func (c *ChildDocument) FieldFor(members []string) (*Field, error) {
	return resolve(c.Alias+"."+c.Column, c.Type, members, c.Column, c.Alias, c.casing, c.conv)
}

// resolve walks members through t and builds the Field.
func resolve(doc string, t *Type, members []string, column, alias string, casing Casing, conv *Conversions) (*Field, error) {
	if t == nil {
		return nil, &ResolveError{Document: doc, Path: members, Reason: "document has no declared type"}
	}

	current := t
	keys := make([]string, 0, len(members))
	for i, name := range members {
		if current.Kind != KindObject {
			return nil, &ResolveError{
				Document: doc,
				Path:     members,
				Reason:   fmt.Sprintf("%s is a %s, not an object", pathString(members[:i]), current),
			}
		}
		next, ok := current.Member(name)
		if !ok {
			return nil, &ResolveError{
				Document: doc,
				Path:     members,
				Reason:   fmt.Sprintf("%s has no member %q", current, name),
			}
		}
		keys = append(keys, casing.Key(name))
		current = next
	}

	return &Field{
		Members: append([]string(nil), members...),
		Type:    current,
		keys:    keys,
		column:  column,
		alias:   alias,
		conv:    conv,
	}, nil
}

func pathString(path []string) string {
	if len(path) == 0 {
		return "the document"
	}
	return strings.Join(path, ".")
}

// Registry holds the document mappings known to a store together with the
// conversion registry and member casing they share.
//
// A Registry is configured once and then only read; compilation never
// registers anything into it.
type Registry struct {
	schema   string
	casing   Casing
	conv     *Conversions
	mappings map[string]*DocumentMapping
}

// Option configures a Registry.
type Option func(*Registry)

// WithSchema sets the database schema of document tables.
func WithSchema(name string) Option {
	return func(r *Registry) {
		if name != "" {
			r.schema = name
		}
	}
}

// WithCasing sets member-name casing for JSON keys.
func WithCasing(c Casing) Option {
	return func(r *Registry) { r.casing = c }
}

// WithConversions replaces the default conversion registry.
func WithConversions(c *Conversions) Option {
	return func(r *Registry) {
		if c != nil {
			r.conv = c
		}
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		schema:   DefaultSchema,
		casing:   CasingDefault,
		conv:     DefaultConversions(),
		mappings: make(map[string]*DocumentMapping),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a document type and returns its mapping. Registering the
// same name again replaces the previous mapping.
func (r *Registry) Register(name string, t *Type) *DocumentMapping {
	m := &DocumentMapping{
		Name:   name,
		Type:   t,
		Schema: r.schema,
		casing: r.casing,
		conv:   r.conv,
	}
	r.mappings[name] = m
	return m
}

// Mapping returns the mapping of a registered document type.
func (r *Registry) Mapping(name string) (*DocumentMapping, error) {
	m, ok := r.mappings[name]
	if !ok {
		return nil, &ResolveError{Document: name, Reason: "document type is not registered"}
	}
	return m, nil
}

// Documents returns the registered document names in sorted order.
func (r *Registry) Documents() []string {
	names := make([]string, 0, len(r.mappings))
	for name := range r.mappings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ChildDocument builds the child document for a flattened element type.
// aliasPath is "<alias>.<column>", e.g. "sub0.x"; a path without a dot
// uses column "x".
func (r *Registry) ChildDocument(aliasPath string, elem *Type) *ChildDocument {
	alias, column := aliasPath, "x"
	if i := strings.LastIndex(aliasPath, "."); i >= 0 {
		alias, column = aliasPath[:i], aliasPath[i+1:]
	}
	return &ChildDocument{
		Alias:  alias,
		Column: column,
		Type:   elem,
		casing: r.casing,
		conv:   r.conv,
	}
}

// Conversions returns the registry's scalar conversions.
func (r *Registry) Conversions() *Conversions {
	return r.conv
}

// Casing returns the registry's member casing.
func (r *Registry) Casing() Casing {
	return r.casing
}
