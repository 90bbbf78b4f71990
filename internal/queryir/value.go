package queryir

import (
	"encoding/json"
	"fmt"
	"math"
)

// Value is a sealed interface representing literal values in predicates.
// Only Null, String, Int, Float and Bool implement it.
type Value interface {
	valueNode() // Sealed - only these types implement it

	// Arg returns the Go value bound as a SQL parameter.
	Arg() any
}

// Null is the JSON null literal. Comparisons against Null render as
// "is null" / "is not null" instead of binding a parameter.
type Null struct{}

func (Null) valueNode() {}

// Arg implements Value.
func (Null) Arg() any { return nil }

// String is a text literal.
type String string

func (String) valueNode() {}

// Arg implements Value.
func (s String) Arg() any { return string(s) }

// Int is an integer literal. Always int64.
type Int int64

func (Int) valueNode() {}

// Arg implements Value.
func (i Int) Arg() any { return int64(i) }

// Float is a floating point literal.
type Float float64

func (Float) valueNode() {}

// Arg implements Value.
func (f Float) Arg() any { return float64(f) }

// Bool is a boolean literal.
type Bool bool

func (Bool) valueNode() {}

// Arg implements Value.
func (b Bool) Arg() any { return bool(b) }

// IsNull reports whether v is the Null literal (or a nil Value).
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// ValueOf converts a decoded Go value (from JSON, YAML or CUE) to a Value.
// Integral numbers become Int, other numbers Float. Arrays and objects are
// rejected: predicates compare scalar locators only.
func ValueOf(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("number out of int64 range: %d", val)
		}
		return Int(val), nil
	case float32:
		return floatValue(float64(val)), nil
	case float64:
		return floatValue(val), nil
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return Int(n), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return Float(f), nil
	case []any:
		return nil, fmt.Errorf("array literals are not supported in predicates")
	case map[string]any:
		return nil, fmt.Errorf("object literals are not supported in predicates")
	default:
		return nil, fmt.Errorf("unsupported literal type: %T", v)
	}
}

// floatValue keeps integral floats as Int so decoded "10" and 10 compare
// the same way regardless of the decoder.
func floatValue(f float64) Value {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return Int(int64(f))
	}
	return Float(f)
}
