package document

import "strings"

// Escape quotes path syntax inside a single key so it can be used as one
// component of a dotted path.
func Escape(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '\\', '|', '#', '@', '!', '=', '<', '>', '%', '~', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Unescape reverses Escape.
func Unescape(component string) string {
	if !strings.Contains(component, `\`) {
		return component
	}
	var b strings.Builder
	escaped := false
	for _, r := range component {
		if !escaped && r == '\\' {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

// Join builds a dotted path from already-escaped components, skipping empty ones.
func Join(parts ...string) string {
	kept := parts[:0:0]
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, ".")
}

// Split breaks a dotted path into its components, keeping escapes intact.
func Split(path string) []string {
	if path == "" {
		return nil
	}
	var parts []string
	start := 0
	escaped := false
	for i := 0; i < len(path); i++ {
		switch {
		case escaped:
			escaped = false
		case path[i] == '\\':
			escaped = true
		case path[i] == '.':
			parts = append(parts, path[start:i])
			start = i + 1
		}
	}
	return append(parts, path[start:])
}
