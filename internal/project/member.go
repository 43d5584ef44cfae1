package project

import (
	"fmt"
	"log/slog"
	"slices"

	"pipeline/internal/logging"
	"pipeline/internal/property"
)

type memberState int

const (
	stateUninitialized memberState = iota
	stateLoading
	stateCreating
	stateInitialized
)

func (s memberState) String() string {
	switch s {
	case stateLoading:
		return "loading"
	case stateCreating:
		return "creating"
	case stateInitialized:
		return "initialized"
	default:
		return "uninitialized"
	}
}

// superMemberProperty is the sticky inheritance link. It is never refreshed,
// compacted or inherited.
const superMemberProperty = "super_member"

func isSticky(name string) bool { return name == superMemberProperty }

// ChangeFunc observes property changes on a member, including inherited
// values that changed on a super-member.
type ChangeFunc func(m *Member, property string)

type changeObserver struct {
	id int
	fn ChangeFunc
}

// Member is a concept, abstract step or concrete step. It owns its local
// properties and reads everything else through its super-member.
type Member struct {
	project   *Project
	namespace Namespace
	id        int
	state     memberState

	props  map[string]*property.Property
	unsubs map[string]func()

	// subs is the live list of loaded members whose super-member is m.
	subs []*Member

	observers  []changeObserver
	observerID int
}

func newMember(p *Project, ns Namespace, id int) *Member {
	return &Member{
		project:   p,
		namespace: ns,
		id:        id,
		props:     make(map[string]*property.Property),
		unsubs:    make(map[string]func()),
	}
}

// ID returns the member id within its namespace.
func (m *Member) ID() int { return m.id }

// Namespace returns the namespace the member persists under.
func (m *Member) Namespace() Namespace { return m.namespace }

// Path returns "{namespace}.id.{id}".
func (m *Member) Path() string { return MemberPath(m.namespace, m.id) }

// Project returns the owning project.
func (m *Member) Project() *Project { return m.project }

// Initialized reports whether construction has finished.
func (m *Member) Initialized() bool { return m.state == stateInitialized }

func (m *Member) String() string { return m.Path() }

func (m *Member) logger() *slog.Logger {
	return m.project.logger.With(logging.Member(m.Path()))
}

// load deserializes every property stored under the member path.
func (m *Member) load() error {
	m.state = stateLoading
	doc := m.project.doc
	for _, key := range doc.Keys(m.Path()) {
		raw, ok := doc.GetRaw(propertyPath(m.Path(), key))
		if !ok {
			continue
		}
		prop, err := m.project.registry.Unmarshal(key, raw, property.WithResolver(m.project))
		if err != nil {
			return integrityError("load member", m.Path(), fmt.Errorf("%w: %w", ErrMalformedMember, err))
		}
		m.putLocal(prop)
	}
	if m.namespace != NamespaceConcept {
		if _, err := ParseStepType(m.localString("type")); err != nil {
			return integrityError("load member", m.Path(), fmt.Errorf("%w: %w", ErrMalformedMember, err))
		}
	}
	if _, ok := m.props[superMemberProperty]; !ok {
		prop, err := m.newBuiltin(superMemberProperty)
		if err != nil {
			return err
		}
		m.putLocal(prop)
	}
	m.state = stateInitialized
	return nil
}

// create assembles the built-in properties and links the super-member.
// Nothing notifies until the member is initialized.
func (m *Member) create(stepType StepType, super *Member, setup func(*Member) error) error {
	m.state = stateCreating
	for _, name := range builtinNames(m.namespace, stepType) {
		prop, err := m.newBuiltinOfType(name, stepType)
		if err != nil {
			return err
		}
		m.putLocal(prop)
	}
	if setup != nil {
		if err := setup(m); err != nil {
			return err
		}
	}
	if super != nil {
		if err := m.props[superMemberProperty].SetValue(super.Path()); err != nil {
			return userError("create member", m.Path(), err)
		}
		super.attach(m)
		m.Refresh()
	}
	m.state = stateInitialized
	return nil
}

// putLocal stores prop as a local property and subscribes to its changes.
func (m *Member) putLocal(prop *property.Property) {
	name := prop.Name()
	if cancel, ok := m.unsubs[name]; ok {
		cancel()
	}
	if prop.Resolver() == nil {
		prop.SetResolver(m.project)
	}
	m.props[name] = prop
	visibility := prop.Visibility()
	m.unsubs[name] = prop.Subscribe(func(changed *property.Property) {
		if m.props[name] != changed {
			return
		}
		was := visibility
		visibility = changed.Visibility()
		if was != property.Private && visibility == property.Private {
			m.hide(changed)
		}
		m.changed(name)
	})
}

// addLocal stores prop and reports the change.
func (m *Member) addLocal(prop *property.Property) {
	prev, exposed := m.exposed(prop.Name())
	m.putLocal(prop)
	if exposed && prop.Visibility() == property.Private {
		m.hide(prev)
	}
	m.changed(prop.Name())
}

// removeLocal drops a local property and reports the change.
func (m *Member) removeLocal(name string) bool {
	if _, ok := m.props[name]; !ok {
		return false
	}
	prev, exposed := m.exposed(name)
	if cancel, ok := m.unsubs[name]; ok {
		cancel()
		delete(m.unsubs, name)
	}
	delete(m.props, name)
	if _, still := m.exposed(name); exposed && !still {
		m.hide(prev)
	}
	m.changed(name)
	return true
}

// exposed returns what sub-members read through m under name.
func (m *Member) exposed(name string) (*property.Property, bool) {
	prop, ok := m.resolve(name)
	if !ok || prop.Visibility() == property.Private {
		return nil, false
	}
	return prop, true
}

// hide hands every sub-member that was reading prop through m a PRIVATE copy
// of its own, now that m no longer exposes it.
func (m *Member) hide(prop *property.Property) {
	name := prop.Name()
	if m.state != stateInitialized || isSticky(name) {
		return
	}
	for _, sub := range slices.Clone(m.subs) {
		if sub.state != stateInitialized || sub.HasLocal(name) {
			continue
		}
		cp := prop.Copy()
		if err := cp.SetVisibility(property.Private); err != nil {
			continue
		}
		m.project.logger.Debug("added private copy",
			logging.Member(sub.Path()),
			logging.Property(name),
			logging.String("super", m.Path()),
		)
		sub.putLocal(cp)
		sub.project.markDirty(sub)
		sub.hide(cp)
		sub.fire(name)
	}
}

// changed records a local change: the member becomes dirty, observers fire and
// live sub-members refresh that property.
func (m *Member) changed(name string) {
	if m.state != stateInitialized {
		return
	}
	m.project.markDirty(m)
	m.fire(name)
	m.propagate(name)
}

// propagate pushes an effective-value change down to live sub-members.
func (m *Member) propagate(name string) {
	if isSticky(name) {
		return
	}
	for _, sub := range slices.Clone(m.subs) {
		if sub.state != stateInitialized {
			continue
		}
		if sub.RefreshProperty(name) {
			continue
		}
		if _, local := sub.props[name]; local {
			continue
		}
		sub.fire(name)
		sub.propagate(name)
	}
}

// OnChange registers fn for property changes and returns a cancel function.
func (m *Member) OnChange(fn ChangeFunc) func() {
	if fn == nil {
		return func() {}
	}
	m.observerID++
	id := m.observerID
	m.observers = append(m.observers, changeObserver{id: id, fn: fn})
	return func() {
		m.observers = slices.DeleteFunc(m.observers, func(o changeObserver) bool { return o.id == id })
	}
}

func (m *Member) fire(name string) {
	for _, o := range slices.Clone(m.observers) {
		o.fn(m, name)
	}
}

func (m *Member) attach(sub *Member) {
	if !slices.Contains(m.subs, sub) {
		m.subs = append(m.subs, sub)
	}
}

func (m *Member) detach(sub *Member) {
	m.subs = slices.DeleteFunc(m.subs, func(s *Member) bool { return s == sub })
}

// release drops every subscription; used when the member leaves the project.
func (m *Member) release() {
	for name, cancel := range m.unsubs {
		cancel()
		delete(m.unsubs, name)
	}
	m.observers = nil
	m.subs = nil
	m.state = stateUninitialized
}
