package project

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"pipeline/internal/logging"
	"pipeline/internal/property"
)

// resolve returns the property the member sees under name without copying:
// the local one, else the super-member's unless that one is PRIVATE.
func (m *Member) resolve(name string) (*property.Property, bool) {
	return m.resolveDepth(name, 0)
}

func (m *Member) resolveDepth(name string, depth int) (*property.Property, bool) {
	if prop, ok := m.props[name]; ok {
		return prop, true
	}
	if isSticky(name) || depth > maxChainDepth {
		return nil, false
	}
	super := m.SuperMember()
	if super == nil {
		return nil, false
	}
	prop, ok := super.resolveDepth(name, depth+1)
	if !ok || prop.Visibility() == property.Private {
		return nil, false
	}
	return prop, true
}

// maxChainDepth bounds walks of the super-member chain; cycles are rejected at
// assignment, this only guards documents edited by hand.
const maxChainDepth = 256

// HasLocal reports whether name is held locally.
func (m *Member) HasLocal(name string) bool {
	_, ok := m.props[name]
	return ok
}

// LocalProperties returns the local properties in canonical order.
func (m *Member) LocalProperties() []*property.Property {
	names := m.project.canonicalOrder(m.localNames())
	out := make([]*property.Property, 0, len(names))
	for _, name := range names {
		out = append(out, m.props[name])
	}
	return out
}

func (m *Member) localNames() []string {
	names := make([]string, 0, len(m.props))
	for name := range m.props {
		names = append(names, name)
	}
	return names
}

// PropertyNames lists every property the member can read, local or
// inherited, in canonical order.
func (m *Member) PropertyNames() []string {
	seen := map[string]struct{}{}
	var names []string
	for cur, depth := m, 0; cur != nil && depth <= maxChainDepth; cur, depth = cur.SuperMember(), depth+1 {
		for name, prop := range cur.props {
			if _, ok := seen[name]; ok {
				continue
			}
			if cur != m && (prop.Visibility() == property.Private || isSticky(name)) {
				continue
			}
			if _, ok := m.resolve(name); !ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return m.project.canonicalOrder(names)
}

// GetProperty returns the named property. Local properties are returned as
// is. With recursive set, an inherited property comes back as a copy bound
// to this member: editing it creates a local override when the inherited
// property is PUBLIC and is refused otherwise. Dotted names reach into
// compound children.
func (m *Member) GetProperty(name string, recursive bool) (*property.Property, bool) {
	head, rest, dotted := strings.Cut(name, ".")
	prop, ok := m.props[head]
	if !ok {
		if !recursive {
			return nil, false
		}
		inherited, found := m.resolve(head)
		if !found {
			return nil, false
		}
		prop = m.bindCopy(inherited)
	}
	if !dotted {
		return prop, true
	}
	return prop.Child(rest)
}

// Property is GetProperty with recursive lookup.
func (m *Member) Property(name string) (*property.Property, bool) {
	return m.GetProperty(name, true)
}

func (m *Member) bindCopy(inherited *property.Property) *property.Property {
	cp := inherited.Copy()
	if inherited.Visibility() != property.Public {
		cp.SetReadOnly(true)
		return cp
	}
	var cancel func()
	cancel = cp.Subscribe(func(changed *property.Property) {
		cancel()
		m.addLocal(changed)
	})
	return cp
}

// PropertyValue returns the effective value of name.
func (m *Member) PropertyValue(name string) (any, bool) {
	prop, ok := m.GetProperty(name, true)
	if !ok {
		return nil, false
	}
	return prop.Value(), true
}

// SetProperty changes the value of name. A local property is updated in
// place; an inherited PUBLIC property is overridden locally with the same
// settings; anything else is refused. "super_member" relinks the member and
// "prop.attr" edits an attribute of prop.
func (m *Member) SetProperty(name string, value any) error {
	if isSticky(name) {
		return m.setSuperValue(value)
	}
	if head, rest, dotted := strings.Cut(name, "."); dotted {
		return m.EditProperty(head, rest, value)
	}
	prop, fresh, err := m.writable("set property", name)
	if err != nil {
		return err
	}
	if err := prop.SetValue(value); err != nil {
		return m.reject("set property", err, logging.Property(name))
	}
	if fresh {
		m.addLocal(prop)
	}
	return nil
}

// EditProperty sets one attribute (visibility, display, min, a dict key, a
// compound child...) of name, overriding an inherited PUBLIC property first.
func (m *Member) EditProperty(name, attr string, value any) error {
	prop, fresh, err := m.writable("edit property", name)
	if err != nil {
		return err
	}
	if err := prop.Edit(attr, value); err != nil {
		return m.reject("edit property", err, logging.Property(name), logging.String("attribute", attr))
	}
	if fresh {
		m.addLocal(prop)
	}
	return nil
}

// writable returns a property the member may mutate: the local one, or a
// detached override of an inherited PUBLIC one (fresh is then true and the
// caller stores it once the edit succeeded).
func (m *Member) writable(op, name string) (prop *property.Property, fresh bool, err error) {
	if local, ok := m.props[name]; ok {
		return local, false, nil
	}
	inherited, ok := m.resolve(name)
	if !ok {
		return nil, false, m.reject(op, fmt.Errorf("%w: %s", ErrPropertyNotFound, name), logging.Property(name))
	}
	if inherited.Visibility() != property.Public {
		return nil, false, m.reject(op, fmt.Errorf("%w: %s", ErrProtected, name), logging.Property(name))
	}
	return inherited.Copy(), true, nil
}

// CreateProperty creates a new local property of type t. An invalid
// visibility is logged and the property is created PUBLIC.
func (m *Member) CreateProperty(t property.Type, name string, opts ...property.Option) (*property.Property, error) {
	if strings.TrimSpace(name) == "" || strings.Contains(name, ".") {
		return nil, m.reject("create property", fmt.Errorf("%w: invalid name %q", property.ErrInvalidValue, name))
	}
	if isSticky(name) {
		return nil, m.reject("create property", fmt.Errorf("%w: %s", ErrSticky, name), logging.Property(name))
	}
	prop, err := m.project.registry.Create(t, name, append([]property.Option{property.WithResolver(m.project)}, opts...)...)
	if prop == nil {
		return nil, m.reject("create property", err, logging.Property(name))
	}
	if err != nil {
		_ = m.reject("create property", err, logging.Property(name), logging.String("visibility", prop.Visibility().String()))
	}
	m.addLocal(prop)
	return prop, nil
}

// AddProperty attaches an existing property locally, replacing any local
// property of the same name.
func (m *Member) AddProperty(prop *property.Property) error {
	if prop == nil {
		return m.reject("add property", fmt.Errorf("%w: nil property", property.ErrInvalidValue))
	}
	if isSticky(prop.Name()) {
		return m.reject("add property", fmt.Errorf("%w: %s", ErrSticky, prop.Name()), logging.Property(prop.Name()))
	}
	m.addLocal(prop)
	return nil
}

// DeleteProperty removes a local property. Inherited values show through
// again; inherited properties themselves cannot be deleted here.
func (m *Member) DeleteProperty(name string) error {
	if isSticky(name) {
		return m.reject("delete property", fmt.Errorf("%w: %s", ErrSticky, name), logging.Property(name))
	}
	if !m.removeLocal(name) {
		return m.reject("delete property", fmt.Errorf("%w: %s", ErrPropertyNotFound, name), logging.Property(name))
	}
	return nil
}

// RefreshProperty reconciles name with the super-member and reports whether
// the local property was added or dropped:
//   - PUBLIC on the super and identical locally: dropped.
//   - PROTECTED on the super: dropped, sub-members always read through.
//   - PRIVATE on the super: a local copy is kept. A missing built-in is
//     added as a copy since every member holds its built-ins.
//   - a procedural name on the super drops the local name.
func (m *Member) RefreshProperty(name string) bool {
	if isSticky(name) {
		return false
	}
	super := m.SuperMember()
	if super == nil {
		return false
	}
	inherited, ok := super.resolve(name)
	if !ok {
		return false
	}
	local, ok := m.props[name]
	if !ok {
		if inherited.Visibility() != property.Private || !m.isBuiltin(name) {
			return false
		}
		m.project.logger.Debug("added private copy",
			logging.Member(m.Path()),
			logging.Property(name),
			logging.String("super", super.Path()),
		)
		m.addLocal(inherited.Copy())
		return true
	}
	drop := false
	switch inherited.Visibility() {
	case property.Public:
		drop = local.Equal(inherited) || (name == "name" && isProcedural(inherited.String()))
	case property.Protected:
		drop = true
	}
	if !drop {
		return false
	}
	m.project.logger.Debug("compacted property",
		logging.Member(m.Path()),
		logging.Property(name),
		logging.String("super", super.Path()),
		logging.String("visibility", inherited.Visibility().String()),
	)
	return m.removeLocal(name)
}

// Refresh runs RefreshProperty over every local property and every missing
// built-in.
func (m *Member) Refresh() {
	names := m.localNames()
	for _, name := range builtinNames(m.namespace, m.StepType()) {
		if !m.HasLocal(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		m.RefreshProperty(name)
	}
}

// SuperMember returns the live super-member, or nil when unset or dangling.
func (m *Member) SuperMember() *Member {
	link, ok := m.props[superMemberProperty]
	if !ok || link.Path() == "" || m.project == nil {
		return nil
	}
	super, err := m.project.lookup(link.Path())
	if err != nil {
		return nil
	}
	return super
}

// SubMembers returns the loaded members that inherit from m.
func (m *Member) SubMembers() []*Member {
	out := slices.Clone(m.subs)
	sort.Slice(out, func(i, j int) bool { return out[i].Path() < out[j].Path() })
	return out
}

// Inherits reports whether other appears in m's super-member chain.
func (m *Member) Inherits(other *Member) bool {
	for cur, depth := m.SuperMember(), 0; cur != nil && depth <= maxChainDepth; cur, depth = cur.SuperMember(), depth+1 {
		if cur == other {
			return true
		}
	}
	return false
}

func (m *Member) setSuperValue(value any) error {
	switch v := value.(type) {
	case nil:
		return m.SetSuperMember(nil)
	case *Member:
		return m.SetSuperMember(v)
	case string:
		if strings.TrimSpace(v) == "" {
			return m.SetSuperMember(nil)
		}
		super, err := m.project.lookup(v)
		if err != nil {
			return m.reject("set super member", err, logging.String("super", v))
		}
		return m.SetSuperMember(super)
	default:
		return m.reject("set super member", fmt.Errorf("%w: %T is not a member", property.ErrInvalidValue, value))
	}
}

// SetSuperMember relinks the member. A link that would make m its own
// ancestor is an integrity error and changes nothing. With a new super the
// local properties are compacted against it; without one, missing
// built-ins are recreated locally. Live sub-members are refreshed after.
func (m *Member) SetSuperMember(super *Member) error {
	if super != nil && (super == m || super.Inherits(m)) {
		err := integrityError("set super member", m.Path(), fmt.Errorf("%w: %s already inherits from %s", ErrCycle, super.Path(), m.Path()))
		logging.ErrorWithContext(m.project.logger, "inheritance cycle rejected", "member_cycle",
			logging.Member(m.Path()),
			logging.String("super", super.Path()),
			logging.String(logging.FieldErrorKind, string(KindIntegrity)),
			logging.String(logging.FieldErrorHint, "pick a super-member outside this member's descendants"),
		)
		return err
	}
	if super != nil && super.project != m.project {
		return m.reject("set super member", fmt.Errorf("%w: %s belongs to another project", ErrMemberNotFound, super.Path()))
	}
	old := m.SuperMember()
	if old == super && (super != nil || m.props[superMemberProperty].Path() == "") {
		return nil
	}
	if old != nil {
		old.detach(m)
	}
	target := ""
	if super != nil {
		target = super.Path()
	}
	if err := m.props[superMemberProperty].SetValue(target); err != nil {
		return m.reject("set super member", err)
	}
	if super != nil {
		super.attach(m)
		m.Refresh()
	} else if err := m.ensureBuiltins(); err != nil {
		return err
	}
	m.fireAll()
	for _, sub := range slices.Clone(m.subs) {
		sub.Refresh()
		sub.fireAll()
	}
	return nil
}

// fireAll tells observers every inherited value may have changed.
func (m *Member) fireAll() {
	if m.state != stateInitialized || len(m.observers) == 0 {
		return
	}
	for _, name := range m.PropertyNames() {
		m.fire(name)
	}
}

// reject logs a refused edit and returns it classified as user input.
func (m *Member) reject(op string, err error, attrs ...logging.Attr) error {
	attrs = append(attrs,
		logging.Member(m.Path()),
		logging.String("op", op),
		logging.String(logging.FieldErrorKind, string(KindUserInput)),
		logging.Error(err),
	)
	logging.WarnWithContext(m.project.logger, op+" rejected", eventType(err), attrs...)
	return userError(op, m.Path(), err)
}

func eventType(err error) string {
	switch {
	case errors.Is(err, ErrPropertyNotFound):
		return "property_not_found"
	case errors.Is(err, ErrProtected):
		return "property_protected"
	case errors.Is(err, ErrSticky):
		return "property_sticky"
	case errors.Is(err, ErrMissingCommand):
		return "command_missing"
	case errors.Is(err, ErrRuleDenied):
		return "rule_denied"
	case errors.Is(err, property.ErrInvalidVisibility):
		return "invalid_visibility"
	case errors.Is(err, property.ErrUnknownAttribute):
		return "unknown_attribute"
	default:
		return "invalid_input"
	}
}
