package project

import (
	"fmt"
	"slices"

	"pipeline/internal/property"
)

type builtinSpec struct {
	typ  property.Type
	opts func(m *Member, t StepType) []property.Option
}

func fixed(opts ...property.Option) func(*Member, StepType) []property.Option {
	return func(*Member, StepType) []property.Option { return opts }
}

var commonBuiltins = map[string]builtinSpec{
	superMemberProperty: {typ: property.TypeMember, opts: fixed(property.WithDisplay(false))},
	"alias":             {typ: property.TypeStr, opts: fixed()},
	"index":             {typ: property.TypeInt, opts: fixed(property.WithMin(0))},
	"padding":           {typ: property.TypeInt, opts: fixed(property.WithMin(0), property.WithMax(16))},
	"commands":          {typ: property.TypeCommands, opts: fixed()},
	"rules":             {typ: property.TypeDict, opts: fixed()},
	"parent":            {typ: property.TypeInt, opts: fixed(property.WithMin(0), property.WithVisibility(property.Private))},
	"type": {typ: property.TypeEnum, opts: func(_ *Member, t StepType) []property.Option {
		return []property.Option{
			property.WithChoices(stepTypeNames()...),
			property.WithValue(string(t)),
			property.WithVisibility(property.Private),
		}
	}},
	"task": {typ: property.TypeStr, opts: fixed(property.WithValue("task{id}"))},
	"name": {typ: property.TypeStr, opts: func(m *Member, _ StepType) []property.Option {
		switch m.namespace {
		case NamespaceAbstract:
			return []property.Option{property.WithValue("{type}{id}_{index}")}
		case NamespaceConcrete:
			return []property.Option{property.WithValue("step{id}")}
		default:
			return []property.Option{property.WithValue("concept{id}")}
		}
	}},
}

// builtinNames lists the built-in properties of a namespace in creation order.
func builtinNames(ns Namespace, t StepType) []string {
	names := []string{superMemberProperty, "name", "alias", "index", "padding", "commands"}
	switch ns {
	case NamespaceConcept:
		names = append(names, "rules")
	case NamespaceAbstract:
		names = append(names, "type", "parent", "rules")
		if t == StepTask {
			names = append(names, "task")
		}
	case NamespaceConcrete:
		names = append(names, "type", "parent")
	}
	return names
}

func (m *Member) newBuiltin(name string) (*property.Property, error) {
	return m.newBuiltinOfType(name, m.StepType())
}

func (m *Member) newBuiltinOfType(name string, t StepType) (*property.Property, error) {
	def, ok := commonBuiltins[name]
	if !ok {
		return nil, fmt.Errorf("%w: no built-in %q", ErrPropertyNotFound, name)
	}
	opts := append(def.opts(m, t), property.WithResolver(m.project))
	prop, err := m.project.registry.Create(def.typ, name, opts...)
	if err != nil {
		return nil, integrityError("create built-in", m.Path(), err)
	}
	return prop, nil
}

func (m *Member) isBuiltin(name string) bool {
	return slices.Contains(builtinNames(m.namespace, m.StepType()), name)
}

// ensureBuiltins recreates built-ins that are neither local nor inherited.
// A built-in the super-member holds PRIVATE is copied from it.
func (m *Member) ensureBuiltins() error {
	t := m.StepType()
	for _, name := range builtinNames(m.namespace, t) {
		if _, ok := m.resolve(name); ok {
			continue
		}
		if m.RefreshProperty(name) && m.HasLocal(name) {
			continue
		}
		prop, err := m.newBuiltinOfType(name, t)
		if err != nil {
			return err
		}
		m.addLocal(prop)
	}
	return nil
}
