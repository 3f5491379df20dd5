package tree

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Snapshot is an immutable view of the value stored at a path.
type Snapshot struct {
	path  string
	value any
}

// NewSnapshot wraps a normalized value. Callers outside the package pass
// values through Normalize first.
func NewSnapshot(path string, value any) Snapshot {
	return Snapshot{path: path, value: value}
}

// Path returns the absolute path of the snapshot.
func (s Snapshot) Path() string { return s.path }

// Key returns the last segment of the path.
func (s Snapshot) Key() string { return Key(s.path) }

// Exists reports whether anything is stored at the path.
func (s Snapshot) Exists() bool { return s.value != nil }

// Value returns the raw normalized value.
func (s Snapshot) Value() any { return s.value }

// JSON returns the canonical JSON encoding ("null" when absent).
func (s Snapshot) JSON() []byte {
	b, err := json.Marshal(s.value)
	if err != nil {
		return []byte("null")
	}
	return b
}

// Unmarshal decodes the value into v the way encoding/json would.
// An absent value leaves v untouched.
func (s Snapshot) Unmarshal(v any) error {
	if s.value == nil {
		return nil
	}
	b, err := json.Marshal(s.value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Child returns the snapshot of a relative path.
func (s Snapshot) Child(rel string) Snapshot {
	cur := s.value
	for _, seg := range Split(rel) {
		switch t := cur.(type) {
		case map[string]any:
			cur = t[seg]
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(t) {
				cur = nil
			} else {
				cur = t[i]
			}
		default:
			cur = nil
		}
		if cur == nil {
			break
		}
	}
	return Snapshot{path: Join(s.path, rel), value: cur}
}

// Children returns the direct children ordered by key.
func (s Snapshot) Children() []Snapshot {
	switch t := s.value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]Snapshot, 0, len(keys))
		for _, k := range keys {
			out = append(out, Snapshot{path: Join(s.path, k), value: t[k]})
		}
		return out
	case []any:
		out := make([]Snapshot, 0, len(t))
		for i, v := range t {
			if v == nil {
				continue
			}
			out = append(out, Snapshot{path: Join(s.path, strconv.Itoa(i)), value: v})
		}
		return out
	default:
		return nil
	}
}

// Keys returns the direct child keys ordered.
func (s Snapshot) Keys() []string {
	children := s.Children()
	out := make([]string, 0, len(children))
	for _, c := range children {
		out = append(out, c.Key())
	}
	return out
}

// Bool returns the value as a boolean; false when absent or not a bool.
func (s Snapshot) Bool() bool {
	b, _ := s.value.(bool)
	return b
}

// Int returns the value as an integer; 0 when absent or not a number.
func (s Snapshot) Int() int64 {
	switch t := s.value.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return int64(f)
		}
	case float64:
		return int64(t)
	case int64:
		return t
	case int:
		return int64(t)
	}
	return 0
}

// String returns the value as a string; "" when absent or not a string.
func (s Snapshot) String() string {
	str, _ := s.value.(string)
	return str
}
