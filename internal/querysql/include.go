package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/docsql/internal/schema"
)

// JoinKind is the SQL join operator of an eager-load join.
type JoinKind int

const (
	// JoinInner drops primary rows without a related document.
	JoinInner JoinKind = iota

	// JoinLeftOuter keeps primary rows without a related document.
	JoinLeftOuter
)

// String returns the SQL join operator.
func (k JoinKind) String() string {
	if k == JoinLeftOuter {
		return "LEFT OUTER JOIN"
	}
	return "INNER JOIN"
}

// ParseJoinKind parses "inner" or "left" (case-insensitive). Empty means inner.
func ParseJoinKind(s string) (JoinKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "inner":
		return JoinInner, nil
	case "left", "leftouter", "left_outer", "outer":
		return JoinLeftOuter, nil
	default:
		return JoinInner, fmt.Errorf("unknown join kind %q", s)
	}
}

// Sink receives each related document read by an eager-load join.
//
// Materialize is called once per result row, in row order, on the
// goroutine draining the results. Rows are not deduplicated: the same
// related document reached from two rows is delivered twice.
type Sink[T any] interface {
	Materialize(doc T)
}

// SinkFunc adapts a function to Sink.
type SinkFunc[T any] func(doc T)

// Materialize implements Sink.
func (f SinkFunc[T]) Materialize(doc T) { f(doc) }

// Join is an eager-load join attached to a query.
//
// Table aliases must be unique within a query; collisions are not
// detected here and surface as SQL errors at execution time.
type Join interface {
	// JoinTextFor renders the JOIN fragment with the owning member located
	// against rootAlias. When retarget is non-nil the member path is
	// re-resolved against it and its own alias is used instead.
	JoinTextFor(rootAlias string, retarget schema.Queryable) (string, error)

	// TableAlias returns the alias of the joined table.
	TableAlias() string

	// Fields returns the columns the join adds to the select list.
	Fields() []string

	// materialize decodes the join's columns of one row and feeds the sink.
	materialize(values []any, ser Serializer) error
}

// Include is an eager-load join that fetches a related document of type T.
type Include[T any] struct {
	related *schema.DocumentMapping
	field   *schema.Field
	alias   string
	kind    JoinKind
	sink    Sink[T]
}

// NewInclude creates an eager-load join from owner's member path to the id
// of related. The member path is resolved immediately.
func NewInclude[T any](owner schema.Queryable, related *schema.DocumentMapping, members []string, alias string, kind JoinKind, sink Sink[T]) (*Include[T], error) {
	if related == nil {
		return nil, invalidQuery(-1, "include %q has no related document", alias)
	}
	if alias == "" {
		return nil, invalidQuery(-1, "include into %s needs a table alias", related.Name)
	}
	if sink == nil {
		return nil, invalidQuery(-1, "include %q has no sink", alias)
	}

	field, err := owner.FieldFor(members)
	if err != nil {
		return nil, NewUnresolvedFieldError(-1, fmt.Sprintf("cannot resolve include member %s", strings.Join(members, ".")), err)
	}

	return &Include[T]{
		related: related,
		field:   field,
		alias:   alias,
		kind:    kind,
		sink:    sink,
	}, nil
}

// JoinTextFor implements Join.
func (i *Include[T]) JoinTextFor(rootAlias string, retarget schema.Queryable) (string, error) {
	locator := i.field.LocatorFor(rootAlias)
	if retarget != nil {
		field, err := retarget.FieldFor(i.field.Members)
		if err != nil {
			return "", NewUnresolvedFieldError(-1, fmt.Sprintf("cannot retarget include %s", i.alias), err)
		}
		locator = field.Locator()
	}

	return fmt.Sprintf("%s %s as %s ON %s = %s.%s",
		i.kind, i.related.Table(), i.alias, locator, i.alias, schema.IDColumn), nil
}

// JoinText renders the JOIN fragment against the root document alias.
func (i *Include[T]) JoinText() string {
	text, _ := i.JoinTextFor(schema.DefaultAlias, nil)
	return text
}

// TableAlias implements Join.
func (i *Include[T]) TableAlias() string {
	return i.alias
}

// Kind returns the join operator.
func (i *Include[T]) Kind() JoinKind {
	return i.kind
}

// Fields implements Join.
func (i *Include[T]) Fields() []string {
	return []string{
		i.alias + "." + schema.IDColumn,
		i.alias + "." + schema.DataColumn,
	}
}

func (i *Include[T]) materialize(values []any, ser Serializer) error {
	if len(values) < 2 {
		return fmt.Errorf("include %s: expected 2 columns, got %d", i.alias, len(values))
	}
	doc, err := decode[T](ser, values[1])
	if err != nil {
		return fmt.Errorf("include %s: %w", i.alias, err)
	}
	i.sink.Materialize(doc)
	return nil
}

// WrapSelector returns a selector that reads inner's columns followed by
// the join's columns. Each resolved row first materializes inner, then
// hands the related document to the join's sink.
func WrapSelector[S any](inner Selector[S], join Join, ser Serializer) Selector[S] {
	if ser == nil {
		ser = JSONSerializer{}
	}
	return &includeSelector[S]{inner: inner, join: join, ser: ser}
}

type includeSelector[S any] struct {
	inner Selector[S]
	join  Join
	ser   Serializer
}

func (s *includeSelector[S]) SelectFields() []string {
	return append(s.inner.SelectFields(), s.join.Fields()...)
}

func (s *includeSelector[S]) Resolve(values []any) (S, error) {
	n := len(s.inner.SelectFields())
	if len(values) < n+len(s.join.Fields()) {
		var zero S
		return zero, fmt.Errorf("include %s: row has %d columns, want %d",
			s.join.TableAlias(), len(values), n+len(s.join.Fields()))
	}

	out, err := s.inner.Resolve(values[:n])
	if err != nil {
		return out, err
	}
	if err := s.join.materialize(values[n:], s.ser); err != nil {
		var zero S
		return zero, err
	}
	return out, nil
}
