package tree

import (
	"fmt"
	"strings"

	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
)

const maxPathBytes = 512

// CleanPath normalizes p to "a/b/c" form and validates every key.
// Empty segments collapse; "" and "/" are the root.
func CleanPath(p string) (string, error) {
	segs := Split(p)
	for _, s := range segs {
		if err := validKey(s); err != nil {
			return "", fmt.Errorf("%w: path %q: %v", svcErr.ErrInvalidArgument, p, err)
		}
	}
	out := strings.Join(segs, "/")
	if len(out) > maxPathBytes {
		return "", fmt.Errorf("%w: path %q exceeds %d bytes", svcErr.ErrInvalidArgument, p, maxPathBytes)
	}
	return out, nil
}

// Split returns the non-empty segments of p.
func Split(p string) []string {
	raw := strings.Split(p, "/")
	out := raw[:0]
	for _, s := range raw {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Join concatenates segments, skipping empty ones.
func Join(parts ...string) string {
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		segs = append(segs, Split(p)...)
	}
	return strings.Join(segs, "/")
}

// Key returns the last segment of p.
func Key(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Ancestors returns the proper ancestors of a clean path, nearest last.
// The root is not included.
func Ancestors(p string) []string {
	var out []string
	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			out = append(out, p[:i])
		}
	}
	return out
}

// IsAncestor reports whether a is a proper ancestor of b. The root is an
// ancestor of every non-root path.
func IsAncestor(a, b string) bool {
	if a == b {
		return false
	}
	if a == "" {
		return true
	}
	return strings.HasPrefix(b, a+"/")
}

// Related reports whether a change at changed can alter the value at watched.
func Related(watched, changed string) bool {
	return watched == changed || IsAncestor(watched, changed) || IsAncestor(changed, watched)
}

func validKey(s string) error {
	for _, r := range s {
		switch {
		case r < 0x20 || r == 0x7f:
			return fmt.Errorf("key %q contains a control character", s)
		case strings.ContainsRune(".#$[]", r):
			return fmt.Errorf("key %q contains %q", s, r)
		}
	}
	return nil
}
