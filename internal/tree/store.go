// Package tree is the realtime tree store the application state lives in:
// a JSON-shaped hierarchy addressed by slash-separated paths, with live
// subscriptions, multi-path atomic updates and single-path transactions.
package tree

import (
	"context"
	"errors"
	"fmt"
	"sort"

	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
)

// maxTransactionAttempts bounds retries on storage conflicts.
const maxTransactionAttempts = 25

// UpdateFunc receives the current value at a transaction path and returns the
// value to store. Returning nil deletes the node; returning an error aborts.
type UpdateFunc func(current Snapshot) (any, error)

// Store is the realtime tree.
type Store interface {
	// Get reads the subtree at path once.
	Get(ctx context.Context, path string) (Snapshot, error)
	// Set overwrites path. A nil value deletes it.
	Set(ctx context.Context, path string, value any) error
	// Update applies every path/value pair atomically. Nil values delete.
	Update(ctx context.Context, values map[string]any) error
	// Transaction runs a read-modify-write at a single path.
	Transaction(ctx context.Context, path string, fn UpdateFunc) (Snapshot, error)
	// Delete removes path and everything below it.
	Delete(ctx context.Context, path string) error
	// Subscribe streams the value at path: the current value first, then one
	// value per distinct change. The channel closes when ctx ends.
	Subscribe(ctx context.Context, path string) (<-chan Snapshot, error)
}

var (
	// ErrTransactionConflict is returned when a transaction kept colliding.
	ErrTransactionConflict = errors.New("tree: transaction retries exhausted")
	// ErrOverlappingPaths is returned by Update when one path contains another.
	ErrOverlappingPaths = fmt.Errorf("%w: overlapping update paths", svcErr.ErrInvalidArgument)
)

// abortError marks an error returned by an UpdateFunc so it is never retried.
type abortError struct{ err error }

func (e *abortError) Error() string { return e.err.Error() }
func (e *abortError) Unwrap() error { return e.err }

// cleanUpdate validates an update map, normalizes every value and rejects
// overlapping paths. The returned keys are sorted.
func cleanUpdate(values map[string]any) ([]string, map[string]any, error) {
	out := make(map[string]any, len(values))
	for p, v := range values {
		cp, err := CleanPath(p)
		if err != nil {
			return nil, nil, err
		}
		if cp == "" {
			return nil, nil, fmt.Errorf("%w: update at the root", svcErr.ErrInvalidArgument)
		}
		if _, dup := out[cp]; dup {
			return nil, nil, fmt.Errorf("%w: %q", ErrOverlappingPaths, cp)
		}
		nv, err := Normalize(v)
		if err != nil {
			return nil, nil, err
		}
		out[cp] = nv
	}
	keys := make([]string, 0, len(out))
	for k := range out {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, a := range Ancestors(k) {
			if _, ok := out[a]; ok {
				return nil, nil, fmt.Errorf("%w: %q and %q", ErrOverlappingPaths, a, k)
			}
		}
	}
	return keys, out, nil
}
