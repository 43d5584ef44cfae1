package project

import (
	"fmt"

	"pipeline/internal/document"
	"pipeline/internal/logging"
)

// AddOption customizes a member being added.
type AddOption func(*addSettings)

type addSettings struct {
	id     int
	super  *Member
	parent int
	name   string
	alias  string
}

// WithID requests a specific id instead of the smallest free one.
func WithID(id int) AddOption {
	return func(s *addSettings) { s.id = id }
}

// WithSuper links the new member to super.
func WithSuper(super *Member) AddOption {
	return func(s *addSettings) { s.super = super }
}

// WithParent places a new step under the step with the given id.
func WithParent(id int) AddOption {
	return func(s *addSettings) { s.parent = id }
}

// WithName sets the raw name of the new member.
func WithName(name string) AddOption {
	return func(s *addSettings) { s.name = name }
}

// WithAlias sets the alias of the new member.
func WithAlias(alias string) AddOption {
	return func(s *addSettings) { s.alias = alias }
}

// AddConcept creates a concept.
func (p *Project) AddConcept(opts ...AddOption) (*Member, error) {
	return p.addMember(NamespaceConcept, "", opts)
}

// AddAbstractStep creates an abstract step of type t.
func (p *Project) AddAbstractStep(t StepType, opts ...AddOption) (*Member, error) {
	parsed, err := ParseStepType(string(t))
	if err != nil {
		return nil, userError("add abstract step", "", err)
	}
	return p.addMember(NamespaceAbstract, parsed, opts)
}

// AddConcreteStep instantiates the abstract step super. The new step takes
// the type of its super.
func (p *Project) AddConcreteStep(super *Member, opts ...AddOption) (*Member, error) {
	if super == nil || super.namespace != NamespaceAbstract {
		return nil, userError("add concrete step", "", fmt.Errorf("%w: a concrete step needs an abstract super-member", ErrMemberNotFound))
	}
	return p.addMember(NamespaceConcrete, super.StepType(), append([]AddOption{WithSuper(super)}, opts...))
}

func (p *Project) addMember(ns Namespace, t StepType, opts []AddOption) (*Member, error) {
	op := "add " + string(ns)
	if !p.loaded {
		return nil, userError(op, "", ErrNotLoaded)
	}
	var s addSettings
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}

	id := s.id
	if id == 0 {
		id = p.AvailableID(ns)
	}
	path := MemberPath(ns, id)
	if id < 0 {
		return nil, userError(op, path, fmt.Errorf("%w: id %d", ErrInvalidPath, id))
	}
	if _, cached := p.cache[path]; cached || p.doc.Exists(path) {
		err := integrityError(op, path, fmt.Errorf("%w: %s", ErrIDCollision, path))
		logging.ErrorWithContext(p.logger, "member id collision", "id_collision",
			logging.Member(path),
			logging.String(logging.FieldErrorKind, string(KindIntegrity)),
		)
		return nil, err
	}
	if s.super != nil && s.super.project != p {
		return nil, userError(op, path, fmt.Errorf("%w: super %s belongs to another project", ErrMemberNotFound, s.super.Path()))
	}
	if s.parent > 0 {
		if _, err := p.lookup(MemberPath(ns, s.parent)); err != nil {
			return nil, userError(op, path, fmt.Errorf("parent: %w", err))
		}
	}

	m := newMember(p, ns, id)
	setup := func(m *Member) error {
		if s.parent > 0 {
			if err := m.props["parent"].SetValue(s.parent); err != nil {
				return userError(op, path, err)
			}
		}
		return nil
	}
	abandon := func() {
		delete(p.cache, path)
		delete(p.dirty, path)
		if s.super != nil {
			s.super.detach(m)
		}
	}
	p.cache[path] = m
	err := m.create(t, s.super, setup)
	// Name and alias are set once initialized so compaction against a
	// procedural super name does not discard them.
	if err == nil && s.name != "" {
		err = m.SetName(s.name)
	}
	if err == nil && s.alias != "" {
		err = m.SetAlias(s.alias)
	}
	if err != nil {
		abandon()
		return nil, err
	}

	raw, err := m.Serialize()
	if err == nil {
		err = p.doc.SetRaw(path, raw)
	}
	if err != nil {
		abandon()
		return nil, persistenceError(op, path, err)
	}
	p.markDirty(m)
	p.logger.Info("member added",
		logging.Member(path),
		logging.String("super", superPath(s.super)),
		logging.String("name", m.Name()),
	)
	return m, nil
}

func superPath(m *Member) string {
	if m == nil {
		return ""
	}
	return m.Path()
}

// DeleteMember removes m and its stored subtree. Members inheriting from m
// keep their link, which now dangles, and get local built-ins back; nothing
// cascades. A "delete" rule that
// evaluates false refuses the deletion.
func (p *Project) DeleteMember(m *Member) error {
	if m == nil || m.project != p {
		return userError("delete member", "", ErrMemberNotFound)
	}
	path := m.Path()
	if _, ok := p.cache[path]; !ok {
		return userError("delete member", path, ErrMemberNotFound)
	}
	if !m.Allowed("delete") {
		return m.reject("delete member", fmt.Errorf("%w: delete", ErrRuleDenied))
	}
	if dependants := m.SubMembers(); len(dependants) > 0 {
		logging.WarnWithContext(p.logger, "deleting member with dependants", "dangling_dependants",
			logging.Member(path),
			logging.Int("dependants", len(dependants)),
			logging.String(logging.FieldImpact, "dependants keep a link to a missing super member"),
			logging.String(logging.FieldErrorHint, "relink dependants before saving"),
		)
	}
	if super := m.SuperMember(); super != nil {
		super.detach(m)
	}
	if _, _, err := p.doc.Pop(path); err != nil {
		return persistenceError("delete member", path, err)
	}
	if m.namespace == NamespaceConcrete {
		p.dropIndexEntries(m.id)
	}
	subs := m.subs
	delete(p.cache, path)
	delete(p.dirty, path)
	m.release()
	for _, sub := range subs {
		if err := sub.ensureBuiltins(); err != nil {
			logging.WarnWithContext(p.logger, "restoring built-ins failed", "builtins_missing",
				logging.Member(sub.Path()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "dependant has no name until relinked"),
			)
		}
		sub.fireAll()
	}
	p.edited = true
	p.logger.Info("member deleted", logging.Member(path))
	return nil
}

// dropIndexEntries removes path index entries pointing at id and marks the
// index for a rebuild, since descendants' paths may have changed too.
func (p *Project) dropIndexEntries(id int) {
	for _, key := range p.doc.Keys(pathIndexRoot) {
		escaped := document.Join(pathIndexRoot, document.Escape(key))
		value, ok := p.doc.Get(escaped)
		if !ok {
			continue
		}
		if n, ok := value.(float64); ok && int(n) == id {
			_, _, _ = p.doc.Pop(escaped)
		}
	}
	p.indexStale = true
}
