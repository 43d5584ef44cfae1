package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
)

// Serialize encodes the local properties as one JSON object whose keys follow
// the project schema order, then any custom keys sorted.
func (m *Member) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prop := range m.LocalProperties() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(prop.Name())
		if err != nil {
			return nil, fmt.Errorf("serialize %s: %w", m.Path(), err)
		}
		value, err := prop.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("serialize %s: %w", m.Path(), err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// canonicalOrder sorts names by the schema order, unknown names last and
// alphabetical.
func (p *Project) canonicalOrder(names []string) []string {
	rank := make(map[string]int, len(p.order))
	for i, name := range p.order {
		rank[name] = i
	}
	out := slices.Clone(names)
	sort.SliceStable(out, func(i, j int) bool {
		ri, iKnown := rank[out[i]]
		rj, jKnown := rank[out[j]]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown != jKnown:
			return iKnown
		default:
			return out[i] < out[j]
		}
	})
	return out
}
