package tree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/db"
)

// Normalize converts v into the tree's data model: map[string]any, []any,
// string, json.Number, bool, or nil for "nothing stored".
//
// Null children and empty objects disappear, as they do in the hosted store.
// Objects whose keys are exactly "0".."n-1" become arrays.
func Normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	var raw []byte
	switch t := v.(type) {
	case json.RawMessage:
		raw = t
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode value: %w", err)
		}
		raw = b
	}
	return decodeJSON(raw)
}

func decodeJSON(raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return canonical(out), nil
}

// canonical prunes nulls and empty containers and rebuilds arrays.
func canonical(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			if c := canonical(child); c != nil {
				out[k] = c
			}
		}
		if len(out) == 0 {
			return nil
		}
		return arrayify(out)
	case []any:
		m := make(map[string]any, len(t))
		for i, child := range t {
			m[strconv.Itoa(i)] = child
		}
		return canonical(m)
	default:
		return v
	}
}

func arrayify(m map[string]any) any {
	arr := make([]any, len(m))
	for k, v := range m {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= len(m) || strconv.Itoa(i) != k {
			return m
		}
		arr[i] = v
	}
	return arr
}

type leaf struct {
	path string
	raw  []byte
}

// flatten turns a normalized value into leaves rooted at base.
func flatten(base string, v any) ([]leaf, error) {
	var out []leaf
	var walk func(p string, v any) error
	walk = func(p string, v any) error {
		switch t := v.(type) {
		case nil:
			return nil
		case map[string]any:
			for k, child := range t {
				if err := validKey(k); err != nil {
					return fmt.Errorf("invalid key under %q: %w", p, err)
				}
				if err := walk(Join(p, k), child); err != nil {
					return err
				}
			}
			return nil
		case []any:
			for i, child := range t {
				if err := walk(Join(p, strconv.Itoa(i)), child); err != nil {
					return err
				}
			}
			return nil
		default:
			if p == "" {
				return fmt.Errorf("cannot store a scalar at the root")
			}
			b, err := json.Marshal(t)
			if err != nil {
				return fmt.Errorf("encode %q: %w", p, err)
			}
			out = append(out, leaf{path: p, raw: b})
			return nil
		}
	}
	if err := walk(base, v); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out, nil
}

// assemble rebuilds the value stored at base from its leaf rows.
func assemble(base string, nodes []db.Node) (any, error) {
	var root any
	for _, n := range nodes {
		val, err := decodeJSON([]byte(n.Value))
		if err != nil {
			return nil, fmt.Errorf("row %q: %w", n.Path, err)
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(n.Path, base), "/")
		if base == "" {
			rel = n.Path
		}
		if rel == "" {
			if root == nil {
				root = val
			}
			continue
		}
		m, ok := root.(map[string]any)
		if !ok {
			m = map[string]any{}
			root = m
		}
		segs := Split(rel)
		for _, s := range segs[:len(segs)-1] {
			next, ok := m[s].(map[string]any)
			if !ok {
				next = map[string]any{}
				m[s] = next
			}
			m = next
		}
		m[segs[len(segs)-1]] = val
	}
	return canonical(root), nil
}
