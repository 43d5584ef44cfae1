package property

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Kind implements the type-specific behaviour of a property variant.
type Kind interface {
	Type() Type
	// Default returns a fresh default value.
	Default() any
	// Normalize converts an incoming value to the kind's canonical Go type.
	Normalize(p *Property, value any) (any, error)
	// Clone deep-copies a canonical value.
	Clone(value any) any
	// Encode returns the JSON-ready value.
	Encode(p *Property) (any, error)
	// Decode restores the value from its serialized JSON.
	Decode(p *Property, raw json.RawMessage) error
	// Attributes lists editable attributes beyond the common ones.
	Attributes() []string
	Numeric() bool
}

type baseKind struct{}

func (baseKind) Attributes() []string { return nil }
func (baseKind) Numeric() bool        { return false }
func (baseKind) Clone(value any) any  { return value }

func (baseKind) Encode(p *Property) (any, error) { return p.value, nil }

func decodeGeneric(p *Property, raw json.RawMessage) error {
	var value any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &value); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	if value == nil {
		p.value = p.adopt(p.kind.Clone(p.defaultValue))
		return nil
	}
	normalized, err := p.kind.Normalize(p, value)
	if err != nil {
		return err
	}
	p.value = p.adopt(normalized)
	return nil
}

type boolKind struct{ baseKind }

func (boolKind) Type() Type   { return TypeBool }
func (boolKind) Default() any { return false }

func (boolKind) Normalize(_ *Property, value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a bool", ErrInvalidValue, v)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: %T is not a bool", ErrInvalidValue, value)
	}
}

func (boolKind) Decode(p *Property, raw json.RawMessage) error { return decodeGeneric(p, raw) }

type numericKind struct {
	baseKind
	typ     Type
	integer bool
}

func (k numericKind) Type() Type { return k.typ }

func (k numericKind) Default() any {
	if k.integer {
		return 0
	}
	return 0.0
}

func (numericKind) Numeric() bool        { return true }
func (numericKind) Attributes() []string { return []string{"min", "max"} }

func (k numericKind) Normalize(_ *Property, value any) (any, error) {
	if s, ok := value.(string); ok {
		trimmed := strings.TrimSpace(s)
		if k.integer {
			n, err := strconv.Atoi(trimmed)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not an int", ErrInvalidValue, s)
			}
			return n, nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a float", ErrInvalidValue, s)
		}
		return f, nil
	}
	if k.integer {
		n, ok := toInt(value)
		if !ok {
			return nil, fmt.Errorf("%w: %v is not an int", ErrInvalidValue, value)
		}
		return n, nil
	}
	f, ok := toFloat(value)
	if !ok {
		return nil, fmt.Errorf("%w: %v is not a float", ErrInvalidValue, value)
	}
	return f, nil
}

func (k numericKind) Decode(p *Property, raw json.RawMessage) error { return decodeGeneric(p, raw) }

type strKind struct{ baseKind }

func (strKind) Type() Type   { return TypeStr }
func (strKind) Default() any { return "" }

func (strKind) Normalize(_ *Property, value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return nil, fmt.Errorf("%w: %T is not a string", ErrInvalidValue, value)
	}
}

func (strKind) Decode(p *Property, raw json.RawMessage) error { return decodeGeneric(p, raw) }

type listKind struct{ baseKind }

func (listKind) Type() Type          { return TypeList }
func (listKind) Default() any        { return []any{} }
func (listKind) Clone(value any) any { return cloneJSON(value) }

func (listKind) Normalize(_ *Property, value any) (any, error) {
	if value == nil {
		return []any{}, nil
	}
	var out []any
	if err := roundTrip(value, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}

func (listKind) Decode(p *Property, raw json.RawMessage) error { return decodeGeneric(p, raw) }

type dictKind struct{ baseKind }

func (dictKind) Type() Type          { return TypeDict }
func (dictKind) Default() any        { return map[string]any{} }
func (dictKind) Clone(value any) any { return cloneJSON(value) }

func (dictKind) Normalize(_ *Property, value any) (any, error) {
	if value == nil {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := roundTrip(value, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func (dictKind) Decode(p *Property, raw json.RawMessage) error { return decodeGeneric(p, raw) }

type enumKind struct{ baseKind }

func (enumKind) Type() Type           { return TypeEnum }
func (enumKind) Default() any         { return "" }
func (enumKind) Attributes() []string { return []string{"choices"} }

func (enumKind) Normalize(p *Property, value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not an enum choice", ErrInvalidValue, value)
	}
	if s != "" && p != nil && len(p.choices) > 0 && !slices.Contains(p.choices, s) {
		return nil, fmt.Errorf("%w: %q not in %v", ErrInvalidValue, s, p.choices)
	}
	return s, nil
}

func (enumKind) Decode(p *Property, raw json.RawMessage) error { return decodeGeneric(p, raw) }

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case float32:
		if float32(int(v)) != v {
			return 0, false
		}
		return int(v), true
	case float64:
		if math.Trunc(v) != v {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func stringSlice(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %v is not a string", ErrInvalidValue, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T is not a string list", ErrInvalidValue, value)
	}
}

func roundTrip(in any, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func cloneJSON(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = cloneJSON(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneJSON(item)
		}
		return out
	case []string:
		return append([]string(nil), v...)
	default:
		return v
	}
}

func dictGet(m map[string]any, path string) (any, bool) {
	var current any = m
	for _, key := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func dictSet(m map[string]any, path string, value any) error {
	keys := strings.Split(path, ".")
	node := m
	for _, key := range keys[:len(keys)-1] {
		next, ok := node[key]
		if !ok {
			child := map[string]any{}
			node[key] = child
			node = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %q is not a mapping", ErrInvalidValue, key)
		}
		node = child
	}
	node[keys[len(keys)-1]] = value
	return nil
}
