package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// ErrMalformed reports bytes that are not a JSON object.
var ErrMalformed = errors.New("malformed document")

// Tree is a JSON object addressed by dot-separated paths. Keys containing
// path syntax must be escaped with Escape. Tree is not safe for concurrent use.
type Tree struct {
	raw []byte
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{raw: []byte("{}")}
}

// Parse validates data as a JSON object. Empty input yields an empty tree.
func Parse(data []byte) (*Tree, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return New(), nil
	}
	if !gjson.Valid(trimmed) || !gjson.Parse(trimmed).IsObject() {
		return nil, ErrMalformed
	}
	return &Tree{raw: pretty.Ugly([]byte(trimmed))}, nil
}

// Bytes returns the compact encoding.
func (t *Tree) Bytes() []byte {
	return append([]byte(nil), t.raw...)
}

// Pretty returns the indented encoding written to disk.
func (t *Tree) Pretty() []byte {
	return pretty.PrettyOptions(t.raw, &pretty.Options{Width: 80, Indent: "  "})
}

// Clone returns an independent copy.
func (t *Tree) Clone() *Tree {
	return &Tree{raw: t.Bytes()}
}

// Exists reports whether path is present.
func (t *Tree) Exists(path string) bool {
	return gjson.GetBytes(t.raw, path).Exists()
}

// GetRaw returns the raw JSON stored at path.
func (t *Tree) GetRaw(path string) (json.RawMessage, bool) {
	res := gjson.GetBytes(t.raw, path)
	if !res.Exists() {
		return nil, false
	}
	return json.RawMessage(res.Raw), true
}

// Get decodes the value at path into generic Go values.
func (t *Tree) Get(path string) (any, bool) {
	res := gjson.GetBytes(t.raw, path)
	if !res.Exists() {
		return nil, false
	}
	return res.Value(), true
}

// Decode unmarshals the value at path into out.
func (t *Tree) Decode(path string, out any) (bool, error) {
	raw, ok := t.GetRaw(path)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

// Keys lists the object keys at path in document order.
func (t *Tree) Keys(path string) []string {
	res := t.root()
	if path != "" {
		res = gjson.GetBytes(t.raw, path)
	}
	if !res.IsObject() {
		return nil
	}
	var keys []string
	res.ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	return keys
}

// Set marshals value and stores it at path, creating missing parents as objects.
func (t *Tree) Set(path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return t.SetRaw(path, raw)
}

// SetRaw stores pre-encoded JSON at path, creating missing parents as objects.
func (t *Tree) SetRaw(path string, raw []byte) error {
	if path == "" {
		return fmt.Errorf("set: empty path")
	}
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("set %s: %w", path, ErrMalformed)
	}
	if err := t.ensureParents(path); err != nil {
		return err
	}
	updated, err := sjson.SetRawBytes(t.raw, path, raw)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	t.raw = updated
	return nil
}

// Pop removes path and returns what was stored there.
func (t *Tree) Pop(path string) (json.RawMessage, bool, error) {
	raw, ok := t.GetRaw(path)
	if !ok {
		return nil, false, nil
	}
	out := append(json.RawMessage(nil), raw...)
	updated, err := sjson.DeleteBytes(t.raw, path)
	if err != nil {
		return nil, false, fmt.Errorf("delete %s: %w", path, err)
	}
	t.raw = updated
	return out, true, nil
}

func (t *Tree) root() gjson.Result {
	return gjson.ParseBytes(t.raw)
}

// ensureParents creates each missing ancestor of path as an empty object, one
// level at a time, so numeric keys never produce arrays.
func (t *Tree) ensureParents(path string) error {
	parts := Split(path)
	for i := 1; i < len(parts); i++ {
		prefix := strings.Join(parts[:i], ".")
		res := gjson.GetBytes(t.raw, prefix)
		if res.Exists() {
			if !res.IsObject() {
				return fmt.Errorf("set %s: %s is not an object", path, prefix)
			}
			continue
		}
		updated, err := sjson.SetRawBytes(t.raw, prefix, []byte("{}"))
		if err != nil {
			return fmt.Errorf("set %s: %w", prefix, err)
		}
		t.raw = updated
	}
	return nil
}
