package property

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Type is the closed set of property type tags.
type Type string

const (
	TypeBool       Type = "bool"
	TypeInt        Type = "int"
	TypeFloat      Type = "float"
	TypeStr        Type = "str"
	TypeList       Type = "list"
	TypeDict       Type = "dict"
	TypeEnum       Type = "enum"
	TypeCompound   Type = "compound"
	TypeMember     Type = "member"
	TypeMemberList Type = "member_list"
	TypeCommands   Type = "commands"
)

var baseAttributes = []string{"value", "visibility", "display", "default_value"}

// Data is the serialized form of a property.
type Data struct {
	Setup   string          `json:"setup"`
	Value   json.RawMessage `json:"value"`
	Min     *float64        `json:"min,omitempty"`
	Max     *float64        `json:"max,omitempty"`
	Choices []string        `json:"choices,omitempty"`
}

// Observer receives the property that changed.
type Observer func(*Property)

type observer struct {
	id int
	fn Observer
}

// Property is a typed, named value cell.
type Property struct {
	name         string
	kind         Kind
	value        any
	defaultValue any
	visibility   Visibility
	display      bool
	min          *float64
	max          *float64
	choices      []string
	resolver     Resolver
	readOnly     bool

	observers []observer
	nextID    int
}

type settings struct {
	value        any
	hasValue     bool
	defaultValue any
	hasDefault   bool
	visibility   Visibility
	display      bool
	min          *float64
	max          *float64
	choices      []string
	resolver     Resolver
}

// Option customizes a property at creation time.
type Option func(*settings)

// WithValue sets the initial value instead of the kind default.
func WithValue(value any) Option {
	return func(s *settings) {
		s.value = value
		s.hasValue = true
	}
}

// WithDefault overrides the kind default value.
func WithDefault(value any) Option {
	return func(s *settings) {
		s.defaultValue = value
		s.hasDefault = true
	}
}

// WithVisibility sets the initial visibility.
func WithVisibility(v Visibility) Option {
	return func(s *settings) { s.visibility = v }
}

// WithDisplay sets the UI display flag.
func WithDisplay(display bool) Option {
	return func(s *settings) { s.display = display }
}

// WithMin bounds numeric properties from below.
func WithMin(value float64) Option {
	return func(s *settings) { s.min = &value }
}

// WithMax bounds numeric properties from above.
func WithMax(value float64) Option {
	return func(s *settings) { s.max = &value }
}

// WithChoices sets the closed choice list of an enum property.
func WithChoices(choices ...string) Option {
	return func(s *settings) { s.choices = append([]string(nil), choices...) }
}

// WithResolver wires member reference resolution.
func WithResolver(r Resolver) Option {
	return func(s *settings) { s.resolver = r }
}

// New creates a property of the given kind. An initial value the kind cannot
// hold fails the creation. An invalid visibility does not: the property is
// still returned, PUBLIC, alongside ErrInvalidVisibility.
func New(kind Kind, name string, opts ...Option) (*Property, error) {
	if kind == nil {
		return nil, fmt.Errorf("%w: nil kind", ErrUnknownType)
	}
	s := settings{visibility: Public, display: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	var visErr error
	if !s.visibility.Valid() {
		visErr = fmt.Errorf("property %s: %w: %d", name, ErrInvalidVisibility, int(s.visibility))
		s.visibility = Public
	}

	p := &Property{
		name:       name,
		kind:       kind,
		visibility: s.visibility,
		display:    s.display,
		resolver:   s.resolver,
	}
	if kind.Numeric() {
		p.min, p.max = s.min, s.max
	}
	if kind.Type() == TypeEnum {
		p.choices = s.choices
	}

	p.defaultValue = kind.Default()
	if s.hasDefault {
		def, err := kind.Normalize(p, s.defaultValue)
		if err != nil {
			return nil, fmt.Errorf("property %s default: %w", name, err)
		}
		p.defaultValue = def
	}

	initial := kind.Clone(p.defaultValue)
	if s.hasValue {
		normalized, err := kind.Normalize(p, s.value)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", name, err)
		}
		initial = normalized
	}
	p.value = p.adopt(p.clamp(initial))
	return p, visErr
}

// Name returns the immutable property name.
func (p *Property) Name() string { return p.name }

// Type returns the immutable type tag.
func (p *Property) Type() Type { return p.kind.Type() }

// Kind returns the behaviour backing the property type.
func (p *Property) Kind() Kind { return p.kind }

// Visibility returns the inheritance visibility.
func (p *Property) Visibility() Visibility { return p.visibility }

// Display reports the UI display flag.
func (p *Property) Display() bool { return p.display }

// Default returns a copy of the default value.
func (p *Property) Default() any { return p.kind.Clone(p.defaultValue) }

// Bounds returns the numeric bounds, nil when unset.
func (p *Property) Bounds() (min, max *float64) {
	return cloneFloat(p.min), cloneFloat(p.max)
}

// Choices returns the enum choice list.
func (p *Property) Choices() []string { return append([]string(nil), p.choices...) }

// Value returns the current value. Container values are copies; mutate them
// through SetValue or the container helpers so observers are notified.
func (p *Property) Value() any {
	if p.kind.Type() == TypeCompound {
		return p.value
	}
	return p.kind.Clone(p.value)
}

// String returns the value for string-like kinds and a formatted value otherwise.
func (p *Property) String() string {
	switch v := p.value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the value of an int property, truncating floats.
func (p *Property) Int() int {
	switch v := p.value.(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Bool returns the value of a bool property.
func (p *Property) Bool() bool {
	b, _ := p.value.(bool)
	return b
}

// SetValue replaces the value and notifies observers.
func (p *Property) SetValue(value any) error {
	if err := p.checkWritable(); err != nil {
		return err
	}
	normalized, err := p.kind.Normalize(p, value)
	if err != nil {
		return fmt.Errorf("property %s: %w", p.name, err)
	}
	p.value = p.adopt(p.clamp(normalized))
	p.notify()
	return nil
}

// SetVisibility changes the visibility; invalid modes leave it unchanged.
func (p *Property) SetVisibility(v Visibility) error {
	if err := p.checkWritable(); err != nil {
		return err
	}
	if !v.Valid() {
		return fmt.Errorf("property %s: %w: %d", p.name, ErrInvalidVisibility, int(v))
	}
	p.visibility = v
	p.notify()
	return nil
}

// SetDisplay changes the UI display flag. Read-only properties ignore it.
func (p *Property) SetDisplay(display bool) {
	if p.readOnly {
		return
	}
	p.display = display
	p.notify()
}

// Attributes lists the names accepted by Edit and Query.
func (p *Property) Attributes() []string {
	return append(slices.Clone(baseAttributes), p.kind.Attributes()...)
}

// Edit sets one editable attribute and notifies observers. Dotted names reach
// into dict values and compound children.
func (p *Property) Edit(attr string, value any) error {
	if err := p.checkWritable(); err != nil {
		return err
	}
	if strings.Contains(attr, ".") {
		return p.editPath(attr, value)
	}
	if !slices.Contains(p.Attributes(), attr) {
		return fmt.Errorf("%s property %s: %w %q", p.kind.Type(), p.name, ErrUnknownAttribute, attr)
	}
	switch attr {
	case "value":
		return p.SetValue(value)
	case "visibility":
		v, err := visibilityFrom(value)
		if err != nil {
			return fmt.Errorf("property %s: %w", p.name, err)
		}
		return p.SetVisibility(v)
	case "display":
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("property %s display: %w: %v", p.name, ErrInvalidValue, value)
		}
		p.SetDisplay(b)
		return nil
	case "default_value":
		normalized, err := p.kind.Normalize(p, value)
		if err != nil {
			return fmt.Errorf("property %s default: %w", p.name, err)
		}
		p.defaultValue = normalized
		p.notify()
		return nil
	case "min", "max":
		bound, err := optionalFloat(value)
		if err != nil {
			return fmt.Errorf("property %s %s: %w", p.name, attr, err)
		}
		if attr == "min" {
			p.min = bound
		} else {
			p.max = bound
		}
		p.value = p.clamp(p.value)
		p.notify()
		return nil
	case "choices":
		choices, err := stringSlice(value)
		if err != nil {
			return fmt.Errorf("property %s choices: %w", p.name, err)
		}
		p.choices = choices
		if current, _ := p.value.(string); !slices.Contains(choices, current) {
			p.value = ""
			if len(choices) > 0 {
				p.value = choices[0]
			}
		}
		p.notify()
		return nil
	}
	return fmt.Errorf("%s property %s: %w %q", p.kind.Type(), p.name, ErrUnknownAttribute, attr)
}

// Query reads one editable attribute.
func (p *Property) Query(attr string) (any, error) {
	if strings.Contains(attr, ".") {
		return p.queryPath(attr)
	}
	if !slices.Contains(p.Attributes(), attr) {
		return nil, fmt.Errorf("%s property %s: %w %q", p.kind.Type(), p.name, ErrUnknownAttribute, attr)
	}
	switch attr {
	case "value":
		return p.Value(), nil
	case "visibility":
		return p.visibility, nil
	case "display":
		return p.display, nil
	case "default_value":
		return p.Default(), nil
	case "min":
		return cloneFloat(p.min), nil
	case "max":
		return cloneFloat(p.max), nil
	case "choices":
		return p.Choices(), nil
	}
	return nil, fmt.Errorf("%s property %s: %w %q", p.kind.Type(), p.name, ErrUnknownAttribute, attr)
}

func (p *Property) editPath(path string, value any) error {
	switch p.kind.Type() {
	case TypeDict:
		m, _ := p.kind.Clone(p.value).(map[string]any)
		if m == nil {
			m = map[string]any{}
		}
		if err := dictSet(m, path, value); err != nil {
			return fmt.Errorf("property %s: %w", p.name, err)
		}
		return p.SetValue(m)
	case TypeCompound:
		head, rest, _ := strings.Cut(path, ".")
		child, ok := p.Child(head)
		if !ok {
			return fmt.Errorf("compound property %s: %w %q", p.name, ErrUnknownAttribute, head)
		}
		return child.Edit(rest, value)
	default:
		return fmt.Errorf("%s property %s: %w %q", p.kind.Type(), p.name, ErrUnknownAttribute, path)
	}
}

func (p *Property) queryPath(path string) (any, error) {
	switch p.kind.Type() {
	case TypeDict:
		m, _ := p.value.(map[string]any)
		v, ok := dictGet(m, path)
		if !ok {
			return nil, fmt.Errorf("dict property %s: %w %q", p.name, ErrUnknownAttribute, path)
		}
		return cloneJSON(v), nil
	case TypeCompound:
		head, rest, _ := strings.Cut(path, ".")
		child, ok := p.Child(head)
		if !ok {
			return nil, fmt.Errorf("compound property %s: %w %q", p.name, ErrUnknownAttribute, head)
		}
		return child.Query(rest)
	default:
		return nil, fmt.Errorf("%s property %s: %w %q", p.kind.Type(), p.name, ErrUnknownAttribute, path)
	}
}

// Serialize returns the structural form used for persistence and equality.
func (p *Property) Serialize() (Data, error) {
	encoded, err := p.kind.Encode(p)
	if err != nil {
		return Data{}, fmt.Errorf("encode %s: %w", p.name, err)
	}
	raw, err := json.Marshal(encoded)
	if err != nil {
		return Data{}, fmt.Errorf("encode %s: %w", p.name, err)
	}
	data := Data{
		Setup: FormatSetup(p.kind.Type(), p.visibility, p.display),
		Value: raw,
		Min:   cloneFloat(p.min),
		Max:   cloneFloat(p.max),
	}
	if len(p.choices) > 0 {
		data.Choices = p.Choices()
	}
	return data, nil
}

// MarshalJSON encodes the serialized form.
func (p *Property) MarshalJSON() ([]byte, error) {
	data, err := p.Serialize()
	if err != nil {
		return nil, err
	}
	return json.Marshal(data)
}

// Equal reports structural equality of the serialized forms.
func (p *Property) Equal(other *Property) bool {
	if p == nil || other == nil {
		return p == other
	}
	left, err := p.MarshalJSON()
	if err != nil {
		return false
	}
	right, err := other.MarshalJSON()
	if err != nil {
		return false
	}
	return bytes.Equal(left, right)
}

// Copy returns a detached property with identical content and no observers.
func (p *Property) Copy() *Property {
	cp := &Property{
		name:         p.name,
		kind:         p.kind,
		defaultValue: p.kind.Clone(p.defaultValue),
		visibility:   p.visibility,
		display:      p.display,
		min:          cloneFloat(p.min),
		max:          cloneFloat(p.max),
		choices:      p.Choices(),
		resolver:     p.resolver,
	}
	cp.value = cp.adopt(p.kind.Clone(p.value))
	return cp
}

// SetReadOnly makes later writes fail with ErrReadOnly. Compound children
// follow their owner. Copies start writable.
func (p *Property) SetReadOnly(readOnly bool) {
	p.readOnly = readOnly
	if c, ok := p.value.(*Compound); ok {
		for _, child := range c.Children() {
			child.SetReadOnly(readOnly)
		}
	}
}

// ReadOnly reports whether writes are refused.
func (p *Property) ReadOnly() bool { return p.readOnly }

func (p *Property) checkWritable() error {
	if p.readOnly {
		return fmt.Errorf("property %s: %w", p.name, ErrReadOnly)
	}
	return nil
}

// Resolver returns the member resolver used by reference kinds.
func (p *Property) Resolver() Resolver { return p.resolver }

// SetResolver rebinds member reference resolution, including compound children.
func (p *Property) SetResolver(r Resolver) {
	p.resolver = r
	if c, ok := p.value.(*Compound); ok {
		for _, child := range c.Children() {
			child.SetResolver(r)
		}
	}
}

// Subscribe registers an observer and returns a function that removes it.
func (p *Property) Subscribe(fn Observer) func() {
	if fn == nil {
		return func() {}
	}
	p.nextID++
	id := p.nextID
	p.observers = append(p.observers, observer{id: id, fn: fn})
	return func() {
		p.observers = slices.DeleteFunc(p.observers, func(o observer) bool { return o.id == id })
	}
}

func (p *Property) notify() {
	if len(p.observers) == 0 {
		return
	}
	snapshot := slices.Clone(p.observers)
	for _, o := range snapshot {
		o.fn(p)
	}
}

func (p *Property) adopt(value any) any {
	if c, ok := value.(*Compound); ok {
		c.bind(p)
	}
	return value
}

func (p *Property) clamp(value any) any {
	if !p.kind.Numeric() {
		return value
	}
	var f float64
	switch v := value.(type) {
	case int:
		f = float64(v)
	case float64:
		f = v
	default:
		return value
	}
	if p.min != nil && f < *p.min {
		f = *p.min
	}
	if p.max != nil && f > *p.max {
		f = *p.max
	}
	if _, ok := value.(int); ok {
		return int(math.Round(f))
	}
	return f
}

// FormatSetup builds the compact "<type>-<visibility><display>" tag.
func FormatSetup(t Type, v Visibility, display bool) string {
	bit := 0
	if display {
		bit = 1
	}
	return fmt.Sprintf("%s-%d%d", t, int(v), bit)
}

// ParseSetup splits a setup tag into its parts.
func ParseSetup(setup string) (Type, Visibility, bool, error) {
	idx := strings.LastIndex(setup, "-")
	if idx <= 0 || len(setup)-idx-1 != 2 {
		return "", Public, false, fmt.Errorf("%w: setup %q", ErrMalformed, setup)
	}
	flags := setup[idx+1:]
	vis, err := strconv.Atoi(flags[:1])
	if err != nil || !Visibility(vis).Valid() {
		return "", Public, false, fmt.Errorf("%w: setup %q visibility", ErrMalformed, setup)
	}
	switch flags[1] {
	case '0':
		return Type(setup[:idx]), Visibility(vis), false, nil
	case '1':
		return Type(setup[:idx]), Visibility(vis), true, nil
	default:
		return "", Public, false, fmt.Errorf("%w: setup %q display", ErrMalformed, setup)
	}
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func optionalFloat(value any) (*float64, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *float64:
		return cloneFloat(v), nil
	}
	f, ok := toFloat(value)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, value)
	}
	return &f, nil
}
