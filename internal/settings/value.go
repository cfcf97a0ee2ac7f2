package settings

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mechanica/engine/internal/geom"
)

// Kind tags the closed set of value types a resolved setting may carry.
type Kind uint8

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindColor
	KindVector
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindColor:
		return "color"
	case KindVector:
		return "vector"
	}
	return "none"
}

// Value is the tagged union carried by resolved settings maps. The zero
// Value has KindNone and converts to nothing.
type Value struct {
	kind Kind
	b    bool
	n    int64
	f    float64
	s    string
	c    geom.Color
	v    geom.Vec2
}

func Bool(b bool) Value            { return Value{kind: KindBool, b: b} }
func Int(n int64) Value            { return Value{kind: KindInt, n: n} }
func Float(f float64) Value        { return Value{kind: KindFloat, f: f} }
func String(s string) Value        { return Value{kind: KindString, s: s} }
func ColorVal(c geom.Color) Value  { return Value{kind: KindColor, c: c} }
func Vector(v geom.Vec2) Value     { return Value{kind: KindVector, v: v} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsBool() (bool, bool)          { return v.b, v.kind == KindBool }
func (v Value) AsInt() (int64, bool)          { return v.n, v.kind == KindInt }
func (v Value) AsFloat() (float64, bool)      { return v.f, v.kind == KindFloat }
func (v Value) AsString() (string, bool)      { return v.s, v.kind == KindString }
func (v Value) AsColor() (geom.Color, bool)   { return v.c, v.kind == KindColor }
func (v Value) AsVector() (geom.Vec2, bool)   { return v.v, v.kind == KindVector }

// Equal compares two values by kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.n == o.n
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindColor:
		return v.c == o.c
	case KindVector:
		return v.v == o.v
	}
	return true
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.n, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindColor:
		return v.c.Hex()
	case KindVector:
		return fmt.Sprintf("%g,%g", v.v.X, v.v.Y)
	}
	return ""
}

// FromAny converts a decoded YAML/JSON scalar into a Value. Strings stay
// strings; typed interpretation happens at coercion time against the target
// field. Unsupported shapes (maps, slices) report false.
func FromAny(raw any) (Value, bool) {
	switch t := raw.(type) {
	case bool:
		return Bool(t), true
	case int:
		return Int(int64(t)), true
	case int64:
		return Int(t), true
	case uint64:
		return Int(int64(t)), true
	case float64:
		return Float(t), true
	case string:
		return String(t), true
	case nil:
		return Value{}, false
	}
	return Value{}, false
}

// FieldSpec declares the target type of one behavior field. A non-nil Enum
// table marks an enum field: values coerce to the underlying ordinal and
// accept either the symbolic name or the ordinal itself.
type FieldSpec struct {
	Type Kind
	Enum map[string]int64
}

// Coerce converts a value to the field's target type. It is total: every
// input either converts or returns an explicit error; there are no silent
// drops at this layer (the drop-vs-propagate policy belongs to the applier).
// String parsing is locale-invariant (strconv).
func Coerce(v Value, spec FieldSpec) (Value, error) {
	if spec.Enum != nil {
		return coerceEnum(v, spec.Enum)
	}
	switch spec.Type {
	case KindBool:
		return coerceBool(v)
	case KindInt:
		return coerceInt(v)
	case KindFloat:
		return coerceFloat(v)
	case KindString:
		return String(v.String()), nil
	case KindColor:
		return coerceColor(v)
	case KindVector:
		return coerceVector(v)
	}
	return Value{}, fmt.Errorf("coerce: unknown target kind %d", spec.Type)
}

func coerceBool(v Value) (Value, error) {
	switch v.kind {
	case KindBool:
		return v, nil
	case KindInt:
		return Bool(v.n != 0), nil
	case KindFloat:
		return Bool(v.f != 0), nil
	case KindString:
		b, err := strconv.ParseBool(strings.TrimSpace(v.s))
		if err != nil {
			return Value{}, fmt.Errorf("coerce %q to bool: %w", v.s, err)
		}
		return Bool(b), nil
	}
	return Value{}, fmt.Errorf("coerce %s to bool", v.kind)
}

func coerceInt(v Value) (Value, error) {
	switch v.kind {
	case KindInt:
		return v, nil
	case KindFloat:
		return Int(int64(v.f)), nil
	case KindBool:
		if v.b {
			return Int(1), nil
		}
		return Int(0), nil
	case KindString:
		s := strings.TrimSpace(v.s)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(n), nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Int(int64(f)), nil
		}
		return Value{}, fmt.Errorf("coerce %q to int", v.s)
	}
	return Value{}, fmt.Errorf("coerce %s to int", v.kind)
}

func coerceFloat(v Value) (Value, error) {
	switch v.kind {
	case KindFloat:
		return v, nil
	case KindInt:
		return Float(float64(v.n)), nil
	case KindBool:
		if v.b {
			return Float(1), nil
		}
		return Float(0), nil
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return Value{}, fmt.Errorf("coerce %q to float: %w", v.s, err)
		}
		return Float(f), nil
	}
	return Value{}, fmt.Errorf("coerce %s to float", v.kind)
}

func coerceColor(v Value) (Value, error) {
	switch v.kind {
	case KindColor:
		return v, nil
	case KindString:
		c, err := geom.ParseColor(v.s)
		if err != nil {
			return Value{}, err
		}
		return ColorVal(c), nil
	}
	return Value{}, fmt.Errorf("coerce %s to color", v.kind)
}

func coerceVector(v Value) (Value, error) {
	switch v.kind {
	case KindVector:
		return v, nil
	case KindString:
		if dir, ok := geom.DirectionFromToken(strings.ToLower(strings.TrimSpace(v.s))); ok {
			return Vector(dir), nil
		}
		return parseVectorString(v.s)
	}
	return Value{}, fmt.Errorf("coerce %s to vector", v.kind)
}

func parseVectorString(s string) (Value, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Value{}, fmt.Errorf("coerce %q to vector: want \"x,y\"", s)
	}
	x, errX := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	y, errY := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errX != nil || errY != nil {
		return Value{}, fmt.Errorf("coerce %q to vector", s)
	}
	return Vector(geom.Vec2{X: x, Y: y}), nil
}

func coerceEnum(v Value, enum map[string]int64) (Value, error) {
	switch v.kind {
	case KindInt:
		return v, nil
	case KindFloat:
		return Int(int64(v.f)), nil
	case KindString:
		s := strings.TrimSpace(v.s)
		for name, ord := range enum {
			if strings.EqualFold(name, s) {
				return Int(ord), nil
			}
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(n), nil
		}
		return Value{}, fmt.Errorf("coerce %q to enum", v.s)
	}
	return Value{}, fmt.Errorf("coerce %s to enum", v.kind)
}
