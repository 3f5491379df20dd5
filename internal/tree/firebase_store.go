package tree

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"firebase.google.com/go/v4/db"

	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
)

// FirebaseStore runs the tree on Firebase Realtime Database through the
// Admin SDK. The SDK has no listeners, so subscriptions poll.
type FirebaseStore struct {
	client   *db.Client
	interval time.Duration
	log      *slog.Logger
}

func NewFirebaseStore(client *db.Client, pollInterval time.Duration, log *slog.Logger) *FirebaseStore {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &FirebaseStore{client: client, interval: pollInterval, log: log}
}

func (s *FirebaseStore) ref(p string) *db.Ref {
	return s.client.NewRef("/" + p)
}

func (s *FirebaseStore) Get(ctx context.Context, path string) (Snapshot, error) {
	p, err := CleanPath(path)
	if err != nil {
		return Snapshot{}, err
	}
	var raw json.RawMessage
	if err := s.ref(p).Get(ctx, &raw); err != nil {
		return Snapshot{}, fmt.Errorf("firebase get %q: %w", p, err)
	}
	v, err := decodeJSON(raw)
	if err != nil {
		return Snapshot{}, fmt.Errorf("firebase get %q: %w", p, err)
	}
	return NewSnapshot(p, v), nil
}

func (s *FirebaseStore) Set(ctx context.Context, path string, value any) error {
	p, err := CleanPath(path)
	if err != nil {
		return err
	}
	v, err := Normalize(value)
	if err != nil {
		return fmt.Errorf("%w: %v", svcErr.ErrInvalidArgument, err)
	}
	if v == nil {
		return s.Delete(ctx, p)
	}
	if err := s.ref(p).Set(ctx, v); err != nil {
		return fmt.Errorf("firebase set %q: %w", p, err)
	}
	return nil
}

// Update sends one multi-location update relative to the root, which the
// hosted store applies atomically.
func (s *FirebaseStore) Update(ctx context.Context, values map[string]any) error {
	keys, vals, err := cleanUpdate(values)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	body := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		body[k] = vals[k]
	}
	if err := s.client.NewRef("/").Update(ctx, body); err != nil {
		return fmt.Errorf("firebase update: %w", err)
	}
	return nil
}

func (s *FirebaseStore) Transaction(ctx context.Context, path string, fn UpdateFunc) (Snapshot, error) {
	p, err := CleanPath(path)
	if err != nil {
		return Snapshot{}, err
	}
	if p == "" {
		return Snapshot{}, fmt.Errorf("%w: transaction at the root", svcErr.ErrInvalidArgument)
	}

	var result Snapshot
	err = s.ref(p).Transaction(ctx, func(tn db.TransactionNode) (interface{}, error) {
		var raw json.RawMessage
		if err := tn.Unmarshal(&raw); err != nil {
			return nil, err
		}
		cur, err := decodeJSON(raw)
		if err != nil {
			return nil, err
		}
		next, err := fn(NewSnapshot(p, cur))
		if err != nil {
			return nil, &abortError{err: err}
		}
		nv, err := Normalize(next)
		if err != nil {
			return nil, &abortError{err: fmt.Errorf("%w: %v", svcErr.ErrInvalidArgument, err)}
		}
		result = NewSnapshot(p, nv)
		return nv, nil
	})
	if err != nil {
		var abort *abortError
		if errors.As(err, &abort) {
			return Snapshot{}, abort.err
		}
		return Snapshot{}, fmt.Errorf("firebase transaction %q: %w", p, err)
	}
	return result, nil
}

func (s *FirebaseStore) Delete(ctx context.Context, path string) error {
	p, err := CleanPath(path)
	if err != nil {
		return err
	}
	if err := s.ref(p).Delete(ctx); err != nil {
		return fmt.Errorf("firebase delete %q: %w", p, err)
	}
	return nil
}

func (s *FirebaseStore) Subscribe(ctx context.Context, path string) (<-chan Snapshot, error) {
	p, err := CleanPath(path)
	if err != nil {
		return nil, err
	}
	return watch(ctx, p, s.Get, pollChanges(ctx, p, s.interval), s.log), nil
}
