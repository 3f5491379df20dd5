package tree

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/db"
	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/repository"
)

const lockStripes = 64

// SQLStore keeps the tree in a relational table, one row per leaf.
//
// Writes replace whole subtrees inside a database transaction and publish
// the written paths through the Notifier once committed. Transactions lock
// the rows of their subtree and are additionally serialized per path inside
// the process.
type SQLStore struct {
	repo     *repository.NodeRepository
	notifier Notifier
	log      *slog.Logger
	stripes  [lockStripes]sync.Mutex
}

// NewSQLStore creates a store over an already migrated database.
func NewSQLStore(database *gorm.DB, notifier Notifier, log *slog.Logger) *SQLStore {
	return &SQLStore{
		repo:     repository.NewNodeRepository(database),
		notifier: notifier,
		log:      log,
	}
}

func (s *SQLStore) Get(ctx context.Context, path string) (Snapshot, error) {
	p, err := CleanPath(path)
	if err != nil {
		return Snapshot{}, err
	}
	nodes, err := s.repo.Subtree(ctx, p)
	if err != nil {
		return Snapshot{}, fmt.Errorf("tree get %q: %w", p, err)
	}
	v, err := assemble(p, nodes)
	if err != nil {
		return Snapshot{}, fmt.Errorf("tree get %q: %w", p, err)
	}
	return NewSnapshot(p, v), nil
}

func (s *SQLStore) Set(ctx context.Context, path string, value any) error {
	p, err := CleanPath(path)
	if err != nil {
		return err
	}
	v, err := Normalize(value)
	if err != nil {
		return fmt.Errorf("%w: %v", svcErr.ErrInvalidArgument, err)
	}
	return s.write(ctx, []string{p}, map[string]any{p: v})
}

func (s *SQLStore) Update(ctx context.Context, values map[string]any) error {
	keys, vals, err := cleanUpdate(values)
	if err != nil {
		return err
	}
	return s.write(ctx, keys, vals)
}

func (s *SQLStore) Delete(ctx context.Context, path string) error {
	return s.Set(ctx, path, nil)
}

func (s *SQLStore) write(ctx context.Context, keys []string, vals map[string]any) error {
	if len(keys) == 0 {
		return nil
	}
	leaves := make(map[string][]leaf, len(keys))
	for _, k := range keys {
		l, err := flatten(k, vals[k])
		if err != nil {
			return fmt.Errorf("%w: %v", svcErr.ErrInvalidArgument, err)
		}
		leaves[k] = l
	}

	err := s.repo.Transaction(ctx, func(tx *repository.NodeRepository) error {
		for _, k := range keys {
			if err := replace(ctx, tx, k, leaves[k]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tree write: %w", err)
	}
	s.publish(ctx, keys...)
	return nil
}

// Transaction runs fn against the current value at path under row locks.
// Storage failures are retried; errors from fn abort immediately.
func (s *SQLStore) Transaction(ctx context.Context, path string, fn UpdateFunc) (Snapshot, error) {
	p, err := CleanPath(path)
	if err != nil {
		return Snapshot{}, err
	}
	if p == "" {
		return Snapshot{}, fmt.Errorf("%w: transaction at the root", svcErr.ErrInvalidArgument)
	}

	mu := &s.stripes[stripe(p)]
	mu.Lock()
	defer mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= maxTransactionAttempts; attempt++ {
		var result Snapshot
		err := s.repo.Transaction(ctx, func(tx *repository.NodeRepository) error {
			rows, err := tx.LockSubtree(ctx, p)
			if err != nil {
				return err
			}
			cur, err := assemble(p, rows)
			if err != nil {
				return err
			}
			next, err := fn(NewSnapshot(p, cur))
			if err != nil {
				return &abortError{err: err}
			}
			nv, err := Normalize(next)
			if err != nil {
				return &abortError{err: fmt.Errorf("%w: %v", svcErr.ErrInvalidArgument, err)}
			}
			leaves, err := flatten(p, nv)
			if err != nil {
				return &abortError{err: fmt.Errorf("%w: %v", svcErr.ErrInvalidArgument, err)}
			}
			if err := replace(ctx, tx, p, leaves); err != nil {
				return err
			}
			result = NewSnapshot(p, nv)
			return nil
		})
		if err == nil {
			s.publish(ctx, p)
			return result, nil
		}

		var abort *abortError
		if errors.As(err, &abort) {
			return Snapshot{}, abort.err
		}
		if ctx.Err() != nil {
			return Snapshot{}, ctx.Err()
		}
		lastErr = err
		s.log.Debug("tree transaction retry", "path", p, "attempt", attempt, "err", err)

		select {
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		case <-time.After(time.Duration(attempt) * 5 * time.Millisecond):
		}
	}
	return Snapshot{}, fmt.Errorf("%w: %s: %v", ErrTransactionConflict, p, lastErr)
}

func (s *SQLStore) Subscribe(ctx context.Context, path string) (<-chan Snapshot, error) {
	p, err := CleanPath(path)
	if err != nil {
		return nil, err
	}
	if s.notifier == nil {
		return nil, errors.New("tree: subscriptions need a notifier")
	}
	// listen before the first read so no write falls in between
	changes, err := s.notifier.Listen(ctx)
	if err != nil {
		return nil, err
	}
	return watch(ctx, p, s.Get, changes, s.log), nil
}

func (s *SQLStore) publish(ctx context.Context, paths ...string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(context.WithoutCancel(ctx), paths...); err != nil {
		s.log.Warn("tree change notification failed", "paths", paths, "err", err)
	}
}

// replace swaps the subtree at p for leaves, dropping scalar ancestors that
// would otherwise shadow the new children.
func replace(ctx context.Context, tx *repository.NodeRepository, p string, leaves []leaf) error {
	if err := tx.DeleteSubtree(ctx, p); err != nil {
		return err
	}
	if err := tx.DeletePaths(ctx, Ancestors(p)); err != nil {
		return err
	}
	nodes := make([]db.Node, 0, len(leaves))
	for _, l := range leaves {
		nodes = append(nodes, db.Node{Path: l.path, Value: db.Leaf(l.raw)})
	}
	return tx.Upsert(ctx, nodes)
}

func stripe(p string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(p))
	return h.Sum32() % lockStripes
}
