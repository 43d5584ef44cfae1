package property

import (
	"fmt"
	"strconv"
	"strings"
)

// Visibility controls how a property is seen by inheriting members.
type Visibility int

const (
	// Public properties are readable and overridable by inheriting members.
	Public Visibility = iota
	// Protected properties are readable but never overridden by inheriting members.
	Protected
	// Private properties are invisible to inheriting members.
	Private
)

var visibilityNames = [...]string{"public", "protected", "private"}

// Valid reports whether v is one of the three known modes.
func (v Visibility) Valid() bool {
	return v >= Public && v <= Private
}

func (v Visibility) String() string {
	if !v.Valid() {
		return "visibility(" + strconv.Itoa(int(v)) + ")"
	}
	return visibilityNames[v]
}

// ParseVisibility accepts a mode name or its index.
func ParseVisibility(value string) (Visibility, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	for i, name := range visibilityNames {
		if trimmed == name {
			return Visibility(i), nil
		}
	}
	if idx, err := strconv.Atoi(trimmed); err == nil && Visibility(idx).Valid() {
		return Visibility(idx), nil
	}
	return Public, fmt.Errorf("%w: %q", ErrInvalidVisibility, value)
}

func visibilityFrom(value any) (Visibility, error) {
	switch v := value.(type) {
	case Visibility:
		if !v.Valid() {
			return Public, fmt.Errorf("%w: %d", ErrInvalidVisibility, int(v))
		}
		return v, nil
	case string:
		return ParseVisibility(v)
	case int:
		if !Visibility(v).Valid() {
			return Public, fmt.Errorf("%w: %d", ErrInvalidVisibility, v)
		}
		return Visibility(v), nil
	case float64:
		if v != float64(int(v)) || !Visibility(int(v)).Valid() {
			return Public, fmt.Errorf("%w: %v", ErrInvalidVisibility, v)
		}
		return Visibility(int(v)), nil
	default:
		return Public, fmt.Errorf("%w: %v", ErrInvalidVisibility, value)
	}
}
