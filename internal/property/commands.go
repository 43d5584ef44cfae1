package property

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
)

// CommandMap maps software -> command name -> ordered script references.
type CommandMap map[string]map[string][]string

// Clone deep-copies the map.
func (m CommandMap) Clone() CommandMap {
	out := make(CommandMap, len(m))
	for software, commands := range m {
		inner := make(map[string][]string, len(commands))
		for name, scripts := range commands {
			inner[name] = append([]string{}, scripts...)
		}
		out[software] = inner
	}
	return out
}

// Names returns the command names registered for software, sorted.
func (m CommandMap) Names(software string) []string {
	names := make([]string, 0, len(m[software]))
	for name := range m[software] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type commandsKind struct{ baseKind }

func (commandsKind) Type() Type   { return TypeCommands }
func (commandsKind) Default() any { return CommandMap{} }

func (commandsKind) Clone(value any) any {
	m, _ := value.(CommandMap)
	return m.Clone()
}

func (commandsKind) Normalize(_ *Property, value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return CommandMap{}, nil
	case CommandMap:
		return v.Clone(), nil
	case map[string]map[string][]string:
		return CommandMap(v).Clone(), nil
	default:
		var out CommandMap
		if err := roundTrip(value, &out); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		if out == nil {
			out = CommandMap{}
		}
		for software, commands := range out {
			if commands == nil {
				out[software] = map[string][]string{}
				continue
			}
			for name, scripts := range commands {
				if scripts == nil {
					commands[name] = []string{}
				}
			}
		}
		return out, nil
	}
}

func (commandsKind) Decode(p *Property, raw json.RawMessage) error { return decodeGeneric(p, raw) }

func (p *Property) commandMap() (CommandMap, error) {
	m, ok := p.value.(CommandMap)
	if !ok {
		return nil, fmt.Errorf("%s property %s: %w: not a command map", p.kind.Type(), p.name, ErrInvalidValue)
	}
	return m, nil
}

// Commands returns a copy of the command map.
func (p *Property) Commands() CommandMap {
	m, err := p.commandMap()
	if err != nil {
		return CommandMap{}
	}
	return m.Clone()
}

// AddCommand registers an empty command for software. Existing commands are
// left untouched and report false.
func (p *Property) AddCommand(software, name string) (bool, error) {
	if err := p.checkWritable(); err != nil {
		return false, err
	}
	m, err := p.commandMap()
	if err != nil {
		return false, err
	}
	if _, exists := m[software][name]; exists {
		return false, nil
	}
	if m[software] == nil {
		m[software] = map[string][]string{}
	}
	m[software][name] = []string{}
	p.notify()
	return true, nil
}

// Scripts returns the script references of a command.
func (p *Property) Scripts(software, name string) ([]string, bool) {
	m, err := p.commandMap()
	if err != nil {
		return nil, false
	}
	scripts, ok := m[software][name]
	if !ok {
		return nil, false
	}
	return slices.Clone(scripts), true
}

// AppendScripts adds script references to an existing command.
func (p *Property) AppendScripts(software, name string, scripts ...string) error {
	if err := p.checkWritable(); err != nil {
		return err
	}
	m, err := p.commandMap()
	if err != nil {
		return err
	}
	existing, ok := m[software][name]
	if !ok {
		return fmt.Errorf("command %s/%s: %w", software, name, ErrUnknownAttribute)
	}
	m[software][name] = append(existing, scripts...)
	p.notify()
	return nil
}

// RemoveCommand deletes a command and reports whether it existed.
func (p *Property) RemoveCommand(software, name string) bool {
	m, err := p.commandMap()
	if err != nil || p.readOnly {
		return false
	}
	if _, ok := m[software][name]; !ok {
		return false
	}
	delete(m[software], name)
	if len(m[software]) == 0 {
		delete(m, software)
	}
	p.notify()
	return true
}
