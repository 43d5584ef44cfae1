package project

import (
	"fmt"
	"strings"

	"pipeline/internal/logging"
	"pipeline/internal/property"
)

// Typed accessors for built-in properties. Getters read the effective value,
// setters go through SetProperty so inheritance rules apply.

func (m *Member) effectiveString(name string) string {
	prop, ok := m.resolve(name)
	if !ok {
		return ""
	}
	return prop.String()
}

func (m *Member) effectiveInt(name string) int {
	prop, ok := m.resolve(name)
	if !ok {
		return 0
	}
	return prop.Int()
}

func (m *Member) localString(name string) string {
	prop, ok := m.props[name]
	if !ok {
		return ""
	}
	return prop.String()
}

// RawName returns the unformatted name template.
func (m *Member) RawName() string { return m.effectiveString("name") }

func (m *Member) SetName(name string) error { return m.SetProperty("name", name) }

func (m *Member) Alias() string { return m.effectiveString("alias") }

func (m *Member) SetAlias(alias string) error { return m.SetProperty("alias", alias) }

func (m *Member) Index() int { return m.effectiveInt("index") }

func (m *Member) SetIndex(index int) error { return m.SetProperty("index", index) }

// Padding is the zero-fill width used for {index}.
func (m *Member) Padding() int { return m.effectiveInt("padding") }

func (m *Member) SetPadding(padding int) error { return m.SetProperty("padding", padding) }

// Task returns the task name of a task step.
func (m *Member) Task() string { return m.expand("task", m.effectiveString("task"), &expansion{}) }

// StepType returns the step discriminator; concepts have none.
func (m *Member) StepType() StepType {
	if m.namespace == NamespaceConcept {
		return ""
	}
	return StepType(m.localString("type"))
}

// Commands returns the effective command map.
func (m *Member) Commands() property.CommandMap {
	prop, ok := m.resolve("commands")
	if !ok {
		return property.CommandMap{}
	}
	return prop.Commands()
}

// AddCommand registers name for software, overriding an inherited command
// map first, and appends scripts to it.
func (m *Member) AddCommand(software, name string, scripts ...string) error {
	prop, fresh, err := m.writable("add command", "commands")
	if err != nil {
		return err
	}
	if _, err := prop.AddCommand(software, name); err != nil {
		return m.reject("add command", err, logging.String(logging.FieldCommand, name))
	}
	if len(scripts) > 0 {
		if err := prop.AppendScripts(software, name, scripts...); err != nil {
			return m.reject("add command", err, logging.String(logging.FieldCommand, name))
		}
	}
	if fresh {
		m.addLocal(prop)
	}
	return nil
}

// RemoveCommand drops a local command.
func (m *Member) RemoveCommand(software, name string) error {
	prop, ok := m.props["commands"]
	if !ok || !prop.RemoveCommand(software, name) {
		return m.reject("remove command", fmt.Errorf("%w: %s/%s", ErrMissingCommand, software, name),
			logging.String(logging.FieldCommand, name))
	}
	return nil
}

// ParentID returns the id of the parent step, 0 for roots.
func (m *Member) ParentID() int {
	if m.namespace == NamespaceConcept {
		return 0
	}
	return m.effectiveInt("parent")
}

// Parent returns the parent step in the same namespace, or nil.
func (m *Member) Parent() *Member {
	id := m.ParentID()
	if id <= 0 {
		return nil
	}
	parent, err := m.project.lookup(MemberPath(m.namespace, id))
	if err != nil {
		return nil
	}
	return parent
}

// SetParent links m under the step with the given id; 0 makes it a root.
// Parent loops are integrity errors.
func (m *Member) SetParent(id int) error {
	if m.namespace == NamespaceConcept {
		return m.reject("set parent", fmt.Errorf("%w: parent", ErrPropertyNotFound))
	}
	if id > 0 {
		parent, err := m.project.lookup(MemberPath(m.namespace, id))
		if err != nil {
			return m.reject("set parent", err)
		}
		for cur, depth := parent, 0; cur != nil && depth <= maxChainDepth; cur, depth = cur.Parent(), depth+1 {
			if cur == m {
				return integrityError("set parent", m.Path(), fmt.Errorf("%w: %s is below %s", ErrCycle, parent.Path(), m.Path()))
			}
		}
	}
	return m.SetProperty("parent", id)
}

// Children returns the steps whose parent is m.
func (m *Member) Children() []*Member {
	var out []*Member
	for _, candidate := range m.project.members(m.namespace) {
		if candidate.ParentID() == m.id {
			out = append(out, candidate)
		}
	}
	return out
}

// ConcretePath joins the names of the parent chain with "/"; it keys the
// concrete path index.
func (m *Member) ConcretePath() string {
	var parts []string
	for cur, depth := m, 0; cur != nil && depth <= maxChainDepth; cur, depth = cur.Parent(), depth+1 {
		parts = append([]string{cur.Name()}, parts...)
	}
	return strings.Join(parts, "/")
}
