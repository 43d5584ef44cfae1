package project

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strconv"

	exprvm "github.com/expr-lang/expr/vm"

	"pipeline/internal/config"
	"pipeline/internal/document"
	"pipeline/internal/logging"
	"pipeline/internal/property"
	"pipeline/internal/scripts"
)

// Project is the open project: the document, the identity map of loaded
// members and the dirty set. It is not safe for concurrent use; one process
// edits a project at a time.
type Project struct {
	backend  document.Backend
	doc      *document.Tree
	registry *property.Registry
	runner   scripts.Runner
	logger   *slog.Logger
	software string
	order    []string
	hooks    []SaveHook

	loaded     bool
	edited     bool
	indexStale bool
	cache      map[string]*Member
	dirty      map[string]*Member

	rulePrograms map[string]*exprvm.Program
}

// Option configures a Project.
type Option func(*Project)

// WithLogger sets the logger used for soft failures and save reports.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Project) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRegistry swaps the property registry, e.g. to add custom kinds.
func WithRegistry(r *property.Registry) Option {
	return func(p *Project) {
		if r != nil {
			p.registry = r
		}
	}
}

// WithRunner sets the command execution collaborator.
func WithRunner(r scripts.Runner) Option {
	return func(p *Project) { p.runner = r }
}

// WithSoftware selects which command table Call uses.
func WithSoftware(software string) Option {
	return func(p *Project) {
		if software != "" {
			p.software = software
		}
	}
}

// WithPropertiesOrder sets the schema order used for new documents.
func WithPropertiesOrder(order []string) Option {
	return func(p *Project) {
		if len(order) > 0 {
			p.order = slices.Clone(order)
		}
	}
}

// WithSaveHook registers a hook run after every successful save.
func WithSaveHook(hook SaveHook) Option {
	return func(p *Project) {
		if hook != nil {
			p.hooks = append(p.hooks, hook)
		}
	}
}

// WithConfig applies the project section of cfg.
func WithConfig(cfg *config.Config) Option {
	return func(p *Project) {
		if cfg == nil {
			return
		}
		WithSoftware(cfg.Project.Software)(p)
		WithPropertiesOrder(cfg.Project.PropertiesOrder)(p)
	}
}

// New builds an unloaded project over backend.
func New(backend document.Backend, opts ...Option) *Project {
	p := &Project{
		backend:      backend,
		registry:     property.NewRegistry(),
		logger:       logging.NewNop(),
		software:     "linux",
		order:        slices.Clone(config.DefaultPropertiesOrder),
		rulePrograms: make(map[string]*exprvm.Program),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	p.logger = logging.NewComponentLogger(p.logger, "project")
	return p
}

// Open builds a project over backend and loads it.
func Open(backend document.Backend, opts ...Option) (*Project, error) {
	p := New(backend, opts...)
	if err := p.Load(); err != nil {
		return nil, err
	}
	return p, nil
}

// Load reads the document and instantiates every member. A missing
// document starts an empty project that the first Save creates.
func (p *Project) Load() error {
	if p.backend == nil {
		return persistenceError("load", "", fmt.Errorf("%w: no backend", ErrNotLoaded))
	}
	tree, existed, err := document.Load(p.backend)
	if err != nil {
		return persistenceError("load", p.backend.Location(), err)
	}
	p.reset()
	p.doc = tree
	p.loaded = true

	var order []string
	if found, err := tree.Decode(propertiesOrderPath, &order); err != nil {
		return persistenceError("load", p.backend.Location(), err)
	} else if found && len(order) > 0 {
		p.order = order
	} else if err := tree.Set(propertiesOrderPath, p.order); err != nil {
		return persistenceError("load", p.backend.Location(), err)
	} else {
		p.edited = true
	}

	for _, ns := range Namespaces {
		for _, id := range p.ids(ns) {
			if _, err := p.lookup(MemberPath(ns, id)); err != nil {
				p.reset()
				return err
			}
		}
	}
	for _, m := range p.cache {
		if m.Inherits(m) {
			p.reset()
			return integrityError("load", m.Path(), ErrCycle)
		}
	}
	p.logger.Info("project loaded",
		logging.String(logging.FieldProject, p.backend.Location()),
		logging.Bool("existed", existed),
		logging.Int("members", len(p.cache)),
	)
	return nil
}

// Unload forgets the document and every member. Unsaved changes are lost.
func (p *Project) Unload() {
	if p.loaded && p.edited {
		p.logger.Warn("unloading project with unsaved changes", logging.Int("dirty", len(p.dirty)))
	}
	p.reset()
}

func (p *Project) reset() {
	for _, m := range p.cache {
		m.release()
	}
	p.doc = nil
	p.loaded = false
	p.edited = false
	p.indexStale = false
	p.cache = make(map[string]*Member)
	p.dirty = make(map[string]*Member)
}

// Loaded reports whether the document is in memory.
func (p *Project) Loaded() bool { return p.loaded }

// Edited reports whether there are unsaved changes.
func (p *Project) Edited() bool { return p.edited }

// DirtyMembers lists the paths of members changed since the last save.
func (p *Project) DirtyMembers() []string {
	paths := make([]string, 0, len(p.dirty))
	for path := range p.dirty {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Location describes where the document lives.
func (p *Project) Location() string {
	if p.backend == nil {
		return ""
	}
	return p.backend.Location()
}

func (p *Project) Software() string { return p.software }
func (p *Project) Registry() *property.Registry { return p.registry }
func (p *Project) Logger() *slog.Logger { return p.logger }
func (p *Project) PropertiesOrder() []string { return slices.Clone(p.order) }
func (p *Project) Document() *document.Tree { return p.doc }
func (p *Project) SetRunner(runner scripts.Runner) { p.runner = runner }

// Resolve implements property.Resolver for member reference properties.
func (p *Project) Resolve(path string) (property.Referent, bool) {
	m, err := p.lookup(path)
	if err != nil {
		return nil, false
	}
	return m, true
}

// Member returns the member stored at path, loading it on first use.
func (p *Project) Member(path string) (*Member, error) {
	m, err := p.lookup(path)
	if err != nil {
		return nil, userError("get member", path, err)
	}
	return m, nil
}

func (p *Project) lookup(path string) (*Member, error) {
	if !p.loaded {
		return nil, ErrNotLoaded
	}
	ns, id, err := ParseMemberPath(path)
	if err != nil {
		return nil, err
	}
	key := MemberPath(ns, id)
	if m, ok := p.cache[key]; ok {
		return m, nil
	}
	if !p.doc.Exists(key) {
		return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, key)
	}
	m := newMember(p, ns, id)
	p.cache[key] = m
	if err := m.load(); err != nil {
		delete(p.cache, key)
		return nil, err
	}
	if super := m.SuperMember(); super != nil {
		super.attach(m)
	} else if link := m.props[superMemberProperty].Path(); link != "" {
		logging.WarnWithContext(p.logger, "super member not found", "dangling_super",
			logging.Member(key),
			logging.String("super", link),
			logging.String(logging.FieldImpact, "member reads only its own properties"),
			logging.String(logging.FieldErrorHint, "relink with `pipeline member super`"),
		)
	}
	return m, nil
}

// Concept returns concept.id.{id}.
func (p *Project) Concept(id int) (*Member, error) {
	return p.Member(MemberPath(NamespaceConcept, id))
}

// AbstractStep returns abstract.id.{id}.
func (p *Project) AbstractStep(id int) (*Member, error) {
	return p.Member(MemberPath(NamespaceAbstract, id))
}

// ConcreteStep returns concrete.id.{id}.
func (p *Project) ConcreteStep(id int) (*Member, error) {
	return p.Member(MemberPath(NamespaceConcrete, id))
}

// ConcreteStepByPath finds a concrete step through the resolved path index
// written at save.
func (p *Project) ConcreteStepByPath(resolved string) (*Member, error) {
	if !p.loaded {
		return nil, userError("get concrete step", resolved, ErrNotLoaded)
	}
	var id int
	found, err := p.doc.Decode(pathIndexKey(resolved), &id)
	if err != nil || !found {
		return nil, userError("get concrete step", resolved, fmt.Errorf("%w: no concrete step at %q", ErrMemberNotFound, resolved))
	}
	return p.ConcreteStep(id)
}

func (p *Project) Concepts() []*Member { return p.members(NamespaceConcept) }
func (p *Project) AbstractSteps() []*Member { return p.members(NamespaceAbstract) }
func (p *Project) ConcreteSteps() []*Member { return p.members(NamespaceConcrete) }

// Members lists the members of ns ordered by id.
func (p *Project) Members(ns Namespace) []*Member { return p.members(ns) }

func (p *Project) members(ns Namespace) []*Member {
	if !p.loaded {
		return nil
	}
	var out []*Member
	for _, id := range p.ids(ns) {
		if m, err := p.lookup(MemberPath(ns, id)); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// ids returns the numeric ids present in a namespace, sorted.
func (p *Project) ids(ns Namespace) []int {
	var ids []int
	for _, key := range p.doc.Keys(idsPath(ns)) {
		if id, err := strconv.Atoi(key); err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// AvailableID returns the smallest positive id not present in ns. It is
// recomputed from the document every time so deleted ids are reused.
func (p *Project) AvailableID(ns Namespace) int {
	if !p.loaded {
		return 1
	}
	next := 1
	for _, id := range p.ids(ns) {
		if id == next {
			next++
		} else if id > next {
			break
		}
	}
	return next
}

func (p *Project) markDirty(m *Member) {
	p.dirty[m.Path()] = m
	p.edited = true
}
