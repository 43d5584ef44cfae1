package property

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Registry maps type tags to kinds. The zero value is unusable; use NewRegistry.
type Registry struct {
	kinds map[Type]Kind
	order []Type
}

// NewRegistry returns a registry holding every built-in kind.
func NewRegistry() *Registry {
	r := &Registry{kinds: make(map[Type]Kind)}
	r.Register(boolKind{})
	r.Register(numericKind{typ: TypeInt, integer: true})
	r.Register(numericKind{typ: TypeFloat})
	r.Register(strKind{})
	r.Register(listKind{})
	r.Register(dictKind{})
	r.Register(enumKind{})
	r.Register(compoundKind{registry: r})
	r.Register(memberKind{})
	r.Register(memberListKind{})
	r.Register(commandsKind{})
	return r
}

// Register adds or replaces a kind.
func (r *Registry) Register(kind Kind) {
	t := kind.Type()
	if _, exists := r.kinds[t]; !exists {
		r.order = append(r.order, t)
	}
	r.kinds[t] = kind
}

// Kind looks up a registered kind.
func (r *Registry) Kind(t Type) (Kind, bool) {
	k, ok := r.kinds[t]
	return k, ok
}

// Types lists the registered type tags in registration order.
func (r *Registry) Types() []Type {
	return append([]Type(nil), r.order...)
}

// Create builds a new property of a registered type.
func (r *Registry) Create(t Type, name string, opts ...Option) (*Property, error) {
	kind, ok := r.kinds[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return New(kind, name, opts...)
}

// Load rebuilds a property from its serialized form.
func (r *Registry) Load(name string, data Data, opts ...Option) (*Property, error) {
	t, vis, display, err := ParseSetup(data.Setup)
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", name, err)
	}
	kind, ok := r.kinds[t]
	if !ok {
		return nil, fmt.Errorf("property %s: %w: %q", name, ErrUnknownType, t)
	}
	base := []Option{WithVisibility(vis), WithDisplay(display)}
	if data.Min != nil {
		base = append(base, WithMin(*data.Min))
	}
	if data.Max != nil {
		base = append(base, WithMax(*data.Max))
	}
	if len(data.Choices) > 0 {
		base = append(base, WithChoices(data.Choices...))
	}
	p, err := New(kind, name, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	if err := kind.Decode(p, data.Value); err != nil {
		return nil, fmt.Errorf("property %s: %w", name, err)
	}
	p.value = p.adopt(p.clamp(p.value))
	return p, nil
}

// Unmarshal decodes a JSON-encoded Data record.
func (r *Registry) Unmarshal(name string, raw []byte, opts ...Option) (*Property, error) {
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("property %s: %w: %v", name, ErrMalformed, err)
	}
	return r.Load(name, data, opts...)
}

// ParseText converts command-line text into a value suitable for SetValue on
// a property of type t. Containers take JSON; scalars take their literal form.
func ParseText(t Type, text string) (any, error) {
	switch t {
	case TypeStr, TypeEnum, TypeMember, TypeBool, TypeInt, TypeFloat:
		return text, nil
	case TypeMemberList:
		trimmed := strings.TrimSpace(text)
		if strings.HasPrefix(trimmed, "[") {
			return decodeText(trimmed)
		}
		if trimmed == "" {
			return []string{}, nil
		}
		parts := strings.Split(trimmed, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	case TypeList, TypeDict, TypeCommands, TypeCompound:
		return decodeText(text)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
}

func decodeText(text string) (any, error) {
	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return value, nil
}
