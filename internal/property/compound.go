package property

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Compound holds the named child properties of a compound property. Child
// changes bubble up to the owning property.
type Compound struct {
	order   []string
	items   map[string]*Property
	cancels map[string]func()
	owner   *Property
}

// NewCompound builds a detached compound from the given children.
func NewCompound(children ...*Property) *Compound {
	c := &Compound{}
	for _, child := range children {
		c.put(child)
	}
	return c
}

// Len returns the number of children.
func (c *Compound) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// Names returns child names in insertion order.
func (c *Compound) Names() []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.order)
}

// Children returns child properties in insertion order.
func (c *Compound) Children() []*Property {
	if c == nil {
		return nil
	}
	out := make([]*Property, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.items[name])
	}
	return out
}

// Get returns a direct child.
func (c *Compound) Get(name string) (*Property, bool) {
	if c == nil || c.items == nil {
		return nil, false
	}
	p, ok := c.items[name]
	return p, ok
}

func (c *Compound) put(child *Property) {
	if c.items == nil {
		c.items = make(map[string]*Property)
		c.cancels = make(map[string]func())
	}
	name := child.Name()
	if cancel, ok := c.cancels[name]; ok {
		cancel()
		delete(c.cancels, name)
	}
	if _, exists := c.items[name]; !exists {
		c.order = append(c.order, name)
	}
	c.items[name] = child
	if c.owner != nil {
		c.cancels[name] = child.Subscribe(c.forward)
	}
}

func (c *Compound) remove(name string) bool {
	if c == nil || c.items == nil {
		return false
	}
	if _, ok := c.items[name]; !ok {
		return false
	}
	if cancel, ok := c.cancels[name]; ok {
		cancel()
		delete(c.cancels, name)
	}
	delete(c.items, name)
	c.order = slices.DeleteFunc(c.order, func(n string) bool { return n == name })
	return true
}

func (c *Compound) forward(*Property) {
	if c.owner != nil {
		c.owner.notify()
	}
}

func (c *Compound) bind(owner *Property) {
	for name, cancel := range c.cancels {
		cancel()
		delete(c.cancels, name)
	}
	c.owner = owner
	if c.items == nil {
		c.items = make(map[string]*Property)
	}
	if c.cancels == nil {
		c.cancels = make(map[string]func())
	}
	for _, name := range c.order {
		child := c.items[name]
		if owner != nil && owner.resolver != nil && child.resolver == nil {
			child.SetResolver(owner.resolver)
		}
		c.cancels[name] = child.Subscribe(c.forward)
	}
}

func (c *Compound) clone() *Compound {
	cp := &Compound{}
	for _, child := range c.Children() {
		cp.put(child.Copy())
	}
	return cp
}

type compoundKind struct {
	baseKind
	registry *Registry
}

func (compoundKind) Type() Type   { return TypeCompound }
func (compoundKind) Default() any { return &Compound{} }

func (compoundKind) Clone(value any) any {
	c, ok := value.(*Compound)
	if !ok || c == nil {
		return &Compound{}
	}
	return c.clone()
}

func (k compoundKind) Normalize(p *Property, value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return &Compound{}, nil
	case *Compound:
		return v.clone(), nil
	case []*Property:
		return NewCompound(v...).clone(), nil
	case map[string]any:
		var entries map[string]Data
		if err := roundTrip(v, &entries); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return k.load(p, entries)
	default:
		return nil, fmt.Errorf("%w: %T is not a compound", ErrInvalidValue, value)
	}
}

func (k compoundKind) load(p *Property, entries map[string]Data) (*Compound, error) {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var resolver Resolver
	owner := "compound"
	if p != nil {
		resolver, owner = p.resolver, p.name
	}
	c := &Compound{}
	for _, name := range names {
		child, err := k.registry.Load(name, entries[name], WithResolver(resolver))
		if err != nil {
			return nil, fmt.Errorf("compound %s: %w", owner, err)
		}
		c.put(child)
	}
	return c, nil
}

func (compoundKind) Encode(p *Property) (any, error) {
	c, _ := p.value.(*Compound)
	out := make(map[string]Data, c.Len())
	for _, child := range c.Children() {
		data, err := child.Serialize()
		if err != nil {
			return nil, err
		}
		out[child.Name()] = data
	}
	return out, nil
}

func (k compoundKind) Decode(p *Property, raw json.RawMessage) error {
	var entries map[string]Data
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &entries); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	c, err := k.load(p, entries)
	if err != nil {
		return err
	}
	p.value = p.adopt(c)
	return nil
}

func (p *Property) compound() (*Compound, error) {
	c, ok := p.value.(*Compound)
	if !ok {
		return nil, fmt.Errorf("%s property %s: %w: not a compound", p.kind.Type(), p.name, ErrInvalidValue)
	}
	return c, nil
}

// Child returns a child of a compound property. Dotted names walk nested compounds.
func (p *Property) Child(name string) (*Property, bool) {
	c, err := p.compound()
	if err != nil {
		return nil, false
	}
	head, rest, nested := strings.Cut(name, ".")
	child, ok := c.Get(head)
	if !ok || !nested {
		return child, ok
	}
	return child.Child(rest)
}

// Children returns the children of a compound property in insertion order.
func (p *Property) Children() []*Property {
	c, err := p.compound()
	if err != nil {
		return nil
	}
	return c.Children()
}

// AddChild attaches a child to a compound property, replacing any child of the same name.
func (p *Property) AddChild(child *Property) error {
	if child == nil {
		return fmt.Errorf("compound property %s: %w: nil child", p.name, ErrInvalidValue)
	}
	if err := p.checkWritable(); err != nil {
		return err
	}
	c, err := p.compound()
	if err != nil {
		return err
	}
	if child.resolver == nil {
		child.SetResolver(p.resolver)
	}
	c.put(child)
	p.notify()
	return nil
}

// CreateChild creates and attaches a new child property of the given type.
func (p *Property) CreateChild(t Type, name string, opts ...Option) (*Property, error) {
	k, ok := p.kind.(compoundKind)
	if !ok {
		return nil, fmt.Errorf("%s property %s: %w: not a compound", p.kind.Type(), p.name, ErrInvalidValue)
	}
	opts = append([]Option{WithResolver(p.resolver)}, opts...)
	child, err := k.registry.Create(t, name, opts...)
	if child == nil {
		return nil, err
	}
	if err := p.AddChild(child); err != nil {
		return nil, err
	}
	return child, err
}

// DeleteChild removes a child from a compound property.
func (p *Property) DeleteChild(name string) bool {
	c, err := p.compound()
	if err != nil || p.readOnly {
		return false
	}
	if !c.remove(name) {
		return false
	}
	p.notify()
	return true
}
