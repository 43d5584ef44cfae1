package project

import (
	"fmt"
	"maps"
	"strings"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"pipeline/internal/logging"
	"pipeline/internal/property"
)

// sameAsKey lists member paths whose rules are merged beneath the local ones.
const sameAsKey = "_same_as_"

// Rules returns the effective rule table: rules of every member named in
// "_same_as_" first, in list order, then the member's own entries.
func (m *Member) Rules() map[string]any {
	return m.rules(map[*Member]struct{}{})
}

func (m *Member) rules(visited map[*Member]struct{}) map[string]any {
	out := map[string]any{}
	if _, seen := visited[m]; seen {
		return out
	}
	visited[m] = struct{}{}

	prop, ok := m.resolve("rules")
	if !ok {
		return out
	}
	local, _ := prop.Value().(map[string]any)
	if refs, ok := local[sameAsKey].([]any); ok {
		for _, ref := range refs {
			path, _ := ref.(string)
			other, err := m.project.lookup(path)
			if err != nil {
				m.project.logger.Warn("rules reference unknown member",
					logging.Member(m.Path()),
					logging.String("same_as", fmt.Sprint(ref)),
				)
				continue
			}
			maps.Copy(out, other.rules(visited))
		}
	}
	for key, value := range local {
		if key != sameAsKey {
			out[key] = value
		}
	}
	return out
}

// SetRule sets one rule; condition is a bool or an expr expression.
func (m *Member) SetRule(name string, condition any) error {
	if strings.Contains(name, ".") || name == sameAsKey {
		return m.reject("set rule", fmt.Errorf("%w: rule name %q", property.ErrInvalidValue, name))
	}
	switch condition.(type) {
	case bool, string:
	default:
		return m.reject("set rule", fmt.Errorf("%w: rule %s must be a bool or an expression", property.ErrInvalidValue, name))
	}
	if expression, ok := condition.(string); ok {
		if _, err := m.project.compileRule(expression); err != nil {
			return m.reject("set rule", err, logging.String("rule", name))
		}
	}
	prop, fresh, err := m.writable("set rule", "rules")
	if err != nil {
		return err
	}
	table, _ := prop.Value().(map[string]any)
	if table == nil {
		table = map[string]any{}
	}
	table[name] = condition
	if err := prop.SetValue(table); err != nil {
		return m.reject("set rule", err, logging.String("rule", name))
	}
	if fresh {
		m.addLocal(prop)
	}
	return nil
}

// SameAs makes m reuse the rules of others beneath its own.
func (m *Member) SameAs(others ...*Member) error {
	refs := make([]any, 0, len(others))
	for _, other := range others {
		refs = append(refs, other.Path())
	}
	prop, fresh, err := m.writable("set rule", "rules")
	if err != nil {
		return err
	}
	table, _ := prop.Value().(map[string]any)
	if table == nil {
		table = map[string]any{}
	}
	table[sameAsKey] = refs
	if err := prop.SetValue(table); err != nil {
		return m.reject("set rule", err)
	}
	if fresh {
		m.addLocal(prop)
	}
	return nil
}

// Allowed evaluates the rule named op. A missing rule allows the operation;
// a rule that fails to evaluate denies it.
func (m *Member) Allowed(op string) bool {
	condition, ok := m.Rules()[op]
	if !ok {
		return true
	}
	switch c := condition.(type) {
	case bool:
		return c
	case string:
		allowed, err := m.evaluateRule(c)
		if err != nil {
			logging.WarnWithContext(m.project.logger, "rule evaluation failed", "rule_error",
				logging.Member(m.Path()),
				logging.String("rule", op),
				logging.String("expression", c),
				logging.Error(err),
				logging.String(logging.FieldImpact, "operation denied"),
				logging.String(logging.FieldErrorHint, "fix the expression in the member rules"),
			)
			return false
		}
		return allowed
	default:
		return false
	}
}

func (m *Member) evaluateRule(expression string) (bool, error) {
	program, err := m.project.compileRule(expression)
	if err != nil {
		return false, err
	}
	result, err := exprlang.Run(program, m.ruleEnv())
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", expression, err)
	}
	allowed, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("evaluate %q: result %T is not a bool", expression, result)
	}
	return allowed, nil
}

// ruleEnv exposes effective property values plus identity fields to rule
// expressions.
func (m *Member) ruleEnv() map[string]any {
	env := map[string]any{}
	for _, name := range m.PropertyNames() {
		if prop, ok := m.resolve(name); ok {
			env[name] = envValue(prop)
		}
	}
	env["id"] = m.id
	env["path"] = m.Path()
	env["namespace"] = string(m.namespace)
	env["name"] = m.Name()
	env["type"] = string(m.StepType())
	env["software"] = m.project.software
	return env
}

func envValue(prop *property.Property) any {
	switch prop.Type() {
	case property.TypeCompound:
		out := map[string]any{}
		for _, child := range prop.Children() {
			out[child.Name()] = envValue(child)
		}
		return out
	case property.TypeCommands:
		out := map[string]any{}
		for software, commands := range prop.Commands() {
			names := make([]any, 0, len(commands))
			for name := range commands {
				names = append(names, name)
			}
			out[software] = names
		}
		return out
	default:
		return prop.Value()
	}
}

func (p *Project) compileRule(expression string) (*exprvm.Program, error) {
	expression = strings.TrimSpace(expression)
	if program, ok := p.rulePrograms[expression]; ok {
		return program, nil
	}
	program, err := exprlang.Compile(expression,
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
		exprlang.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: rule %q: %v", property.ErrInvalidValue, expression, err)
	}
	p.rulePrograms[expression] = program
	return program, nil
}
