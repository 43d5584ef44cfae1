package project

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"pipeline/internal/property"
)

var (
	placeholderPattern = regexp.MustCompile(`\{([^{}]+)\}`)
	separatorRun       = regexp.MustCompile(`[_.\-]{2,}`)
)

const (
	nameSeparators = "_.-"
	maxNameDepth   = 16
)

func isProcedural(name string) bool {
	return placeholderPattern.MatchString(name)
}

// Name returns the alias when set, else the formatted name.
func (m *Member) Name() string {
	name, _ := m.nameWith(&expansion{})
	return name
}

// FormattedName resolves the placeholders of the raw name, ignoring alias.
func (m *Member) FormattedName() string {
	return m.expand("name", m.RawName(), &expansion{})
}

// nameKey identifies one placeholder of one member.
type nameKey struct {
	member *Member
	key    string
}

// expansion tracks the placeholders being substituted. A placeholder met
// again while its own value is being expanded stays unresolved.
type expansion struct {
	active []nameKey
}

func (x *expansion) enter(m *Member, key string) bool {
	k := nameKey{member: m, key: key}
	if len(x.active) > maxNameDepth || slices.Contains(x.active, k) {
		return false
	}
	x.active = append(x.active, k)
	return true
}

func (x *expansion) leave() { x.active = x.active[:len(x.active)-1] }

func (m *Member) nameWith(x *expansion) (string, bool) {
	if alias := m.Alias(); alias != "" {
		return alias, true
	}
	if !x.enter(m, "name") {
		return "", false
	}
	defer x.leave()
	return m.formatName(m.RawName(), x), true
}

// expand formats template as the value of the key placeholder.
func (m *Member) expand(key, template string, x *expansion) string {
	if !x.enter(m, key) {
		return template
	}
	defer x.leave()
	return m.formatName(template, x)
}

// formatName substitutes {placeholder} tokens and collapses separator runs
// left behind by empty values. Unknown tokens are kept as written.
func (m *Member) formatName(template string, x *expansion) string {
	if !isProcedural(template) {
		return template
	}
	out := placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		value, ok := m.placeholder(token[1:len(token)-1], x)
		if !ok {
			return token
		}
		return value
	})
	out = separatorRun.ReplaceAllStringFunc(out, func(run string) string { return run[:1] })
	return strings.Trim(out, nameSeparators)
}

func (m *Member) placeholder(key string, x *expansion) (string, bool) {
	switch key {
	case "id":
		return strconv.Itoa(m.id), true
	case "index":
		return fmt.Sprintf("%0*d", m.Padding(), m.Index()), true
	case "name":
		return m.nameWith(x)
	case "parent":
		parent := m.Parent()
		if parent == nil {
			return "", true
		}
		return parent.nameWith(x)
	case "path":
		return m.Path(), true
	}
	head, rest, dotted := strings.Cut(key, ".")
	if dotted {
		var hop *Member
		switch head {
		case superMemberProperty:
			hop = m.SuperMember()
		case "parent":
			hop = m.Parent()
		}
		if hop != nil {
			return hop.placeholder(rest, x)
		}
		if head == superMemberProperty || head == "parent" {
			return "", true
		}
	}
	prop, ok := m.GetProperty(key, true)
	if !ok {
		return "", false
	}
	if prop.Type() != property.TypeStr {
		return prop.String(), true
	}
	if !x.enter(m, key) {
		return "", false
	}
	defer x.leave()
	return m.formatName(prop.String(), x), true
}
