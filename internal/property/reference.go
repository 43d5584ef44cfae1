package property

import (
	"encoding/json"
	"fmt"
)

// Referent is anything addressable by a project path.
type Referent interface {
	Path() string
}

// Resolver turns stored member paths back into live members.
type Resolver interface {
	Resolve(path string) (Referent, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(path string) (Referent, bool)

// Resolve calls f.
func (f ResolverFunc) Resolve(path string) (Referent, bool) { return f(path) }

func referencePath(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case Referent:
		if v == nil {
			return "", nil
		}
		return v.Path(), nil
	default:
		return "", fmt.Errorf("%w: %T is not a member reference", ErrInvalidValue, value)
	}
}

type memberKind struct{ baseKind }

func (memberKind) Type() Type   { return TypeMember }
func (memberKind) Default() any { return "" }

func (memberKind) Normalize(_ *Property, value any) (any, error) {
	return referencePath(value)
}

func (memberKind) Encode(p *Property) (any, error) {
	path, _ := p.value.(string)
	if path == "" {
		return nil, nil
	}
	return path, nil
}

func (memberKind) Decode(p *Property, raw json.RawMessage) error { return decodeGeneric(p, raw) }

type memberListKind struct{ baseKind }

func (memberListKind) Type() Type   { return TypeMemberList }
func (memberListKind) Default() any { return []string{} }

func (memberListKind) Clone(value any) any {
	paths, _ := value.([]string)
	return append([]string{}, paths...)
}

func (memberListKind) Normalize(_ *Property, value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return append([]string{}, v...), nil
	case []Referent:
		out := make([]string, 0, len(v))
		for _, ref := range v {
			out = append(out, ref.Path())
		}
		return out, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			path, err := referencePath(item)
			if err != nil {
				return nil, err
			}
			out = append(out, path)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T is not a member list", ErrInvalidValue, value)
	}
}

func (memberListKind) Decode(p *Property, raw json.RawMessage) error { return decodeGeneric(p, raw) }

// Path returns the stored path of a member reference property.
func (p *Property) Path() string {
	path, _ := p.value.(string)
	if p.kind.Type() != TypeMember {
		return ""
	}
	return path
}

// Referent resolves a member reference property through its resolver.
func (p *Property) Referent() (Referent, bool) {
	path := p.Path()
	if path == "" || p.resolver == nil {
		return nil, false
	}
	return p.resolver.Resolve(path)
}

// Referents resolves every path of a member list property, skipping dangling entries.
func (p *Property) Referents() []Referent {
	paths, _ := p.value.([]string)
	if p.resolver == nil {
		return nil
	}
	out := make([]Referent, 0, len(paths))
	for _, path := range paths {
		if ref, ok := p.resolver.Resolve(path); ok {
			out = append(out, ref)
		}
	}
	return out
}

// Append adds an item to a list or member list property.
func (p *Property) Append(item any) error {
	switch p.kind.Type() {
	case TypeList:
		items, _ := p.kind.Clone(p.value).([]any)
		return p.SetValue(append(items, item))
	case TypeMemberList:
		path, err := referencePath(item)
		if err != nil {
			return err
		}
		paths, _ := p.kind.Clone(p.value).([]string)
		return p.SetValue(append(paths, path))
	default:
		return fmt.Errorf("%s property %s: %w: not a list", p.kind.Type(), p.name, ErrInvalidValue)
	}
}

// Remove drops the first matching item from a list or member list property.
func (p *Property) Remove(item any) bool {
	if p.readOnly {
		return false
	}
	switch p.kind.Type() {
	case TypeList:
		items, _ := p.kind.Clone(p.value).([]any)
		target, err := json.Marshal(item)
		if err != nil {
			return false
		}
		for i, existing := range items {
			raw, err := json.Marshal(existing)
			if err == nil && string(raw) == string(target) {
				_ = p.SetValue(append(items[:i], items[i+1:]...))
				return true
			}
		}
	case TypeMemberList:
		path, err := referencePath(item)
		if err != nil {
			return false
		}
		paths, _ := p.kind.Clone(p.value).([]string)
		for i, existing := range paths {
			if existing == path {
				_ = p.SetValue(append(paths[:i], paths[i+1:]...))
				return true
			}
		}
	}
	return false
}
