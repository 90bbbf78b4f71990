package schema

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Conversion maps a scalar kind to its PostgreSQL type and converts driver
// values read back from that type into the Go value callers expect.
type Conversion struct {
	// PgType is the cast target used in locators, e.g. "integer".
	PgType string

	// Convert turns a driver value (int64, float64, string, []byte, ...)
	// into the Go representation of the kind.
	Convert func(v any) (any, error)
}

// Conversions is a registry of scalar conversions keyed by Kind.
//
// A Conversions value is built once and passed explicitly to the compiler.
// Register mutates the receiver; do it before sharing the registry.
type Conversions struct {
	byKind map[Kind]Conversion
}

// DefaultConversions returns the standard scalar mappings.
func DefaultConversions() *Conversions {
	return &Conversions{byKind: map[Kind]Conversion{
		KindString:  {PgType: "varchar", Convert: toString},
		KindInt:     {PgType: "integer", Convert: toInt},
		KindLong:    {PgType: "bigint", Convert: toInt64},
		KindFloat:   {PgType: "double precision", Convert: toFloat64},
		KindDecimal: {PgType: "numeric", Convert: toFloat64},
		KindBool:    {PgType: "boolean", Convert: toBool},
		KindTime:    {PgType: "timestamptz", Convert: toTime},
		KindUUID:    {PgType: "uuid", Convert: toUUID},
	}}
}

// Register adds or replaces the conversion for a scalar kind.
func (c *Conversions) Register(kind Kind, conv Conversion) {
	if c.byKind == nil {
		c.byKind = make(map[Kind]Conversion)
	}
	c.byKind[kind] = conv
}

// Lookup returns the conversion for t's kind.
func (c *Conversions) Lookup(t *Type) (Conversion, bool) {
	if c == nil || !t.IsScalar() {
		return Conversion{}, false
	}
	conv, ok := c.byKind[t.Kind]
	return conv, ok
}

// HasMapping reports whether t maps directly onto a native SQL scalar.
func (c *Conversions) HasMapping(t *Type) bool {
	_, ok := c.Lookup(t)
	return ok
}

// Convert converts a driver value read for type t.
func (c *Conversions) Convert(t *Type, v any) (any, error) {
	conv, ok := c.Lookup(t)
	if !ok {
		return nil, fmt.Errorf("no conversion registered for %s", t)
	}
	return conv.Convert(v)
}

// ScalarOf returns the scalar type whose default conversion produces a T,
// or nil when T is not one of them. dynamic is set when T is an interface
// type, in which case any converted value satisfies T.
func ScalarOf[T any]() (t *Type, dynamic bool) {
	var zero T
	switch any(zero).(type) {
	case nil:
		return nil, true
	case string:
		return String, false
	case int:
		return Int, false
	case int64:
		return Long, false
	case float64:
		return Float, false
	case bool:
		return Bool, false
	case time.Time:
		return Time, false
	case uuid.UUID:
		return UUID, false
	}
	return nil, false
}

func toString(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	case nil:
		return "", nil
	default:
		return fmt.Sprint(val), nil
	}
}

func toInt64(v any) (any, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case int32:
		return int64(val), nil
	case int:
		return int64(val), nil
	case float64:
		return int64(val), nil
	case string:
		return strconv.ParseInt(val, 10, 64)
	case []byte:
		return strconv.ParseInt(string(val), 10, 64)
	default:
		return nil, fmt.Errorf("cannot convert %T to int64", v)
	}
}

func toInt(v any) (any, error) {
	n, err := toInt64(v)
	if err != nil {
		return nil, err
	}
	return int(n.(int64)), nil
}

func toFloat64(v any) (any, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case string:
		return strconv.ParseFloat(val, 64)
	case []byte:
		return strconv.ParseFloat(string(val), 64)
	default:
		return nil, fmt.Errorf("cannot convert %T to float64", v)
	}
}

func toBool(v any) (any, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		return strconv.ParseBool(val)
	case []byte:
		return strconv.ParseBool(string(val))
	default:
		return nil, fmt.Errorf("cannot convert %T to bool", v)
	}
}

func toTime(v any) (any, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case string:
		return time.Parse(time.RFC3339Nano, val)
	case []byte:
		return time.Parse(time.RFC3339Nano, string(val))
	default:
		return nil, fmt.Errorf("cannot convert %T to time.Time", v)
	}
}

func toUUID(v any) (any, error) {
	switch val := v.(type) {
	case uuid.UUID:
		return val, nil
	case [16]byte:
		return uuid.UUID(val), nil
	case string:
		return uuid.Parse(val)
	case []byte:
		if len(val) == 16 {
			return uuid.FromBytes(val)
		}
		return uuid.ParseBytes(val)
	default:
		return nil, fmt.Errorf("cannot convert %T to uuid", v)
	}
}
