package tree

import (
	"context"
	"fmt"
	"strings"

	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
)

// ErrPermissionDenied is returned for any access outside the caller's rights.
var ErrPermissionDenied = svcErr.ErrPermissionDenied

// Guard executes every store call as one user and enforces the ownership
// rules of the tree:
//
//	users/**                  read: everyone      write: users/{uid}/**
//	likes/{uid}/**            read/write: owner
//	likes/{x}/{uid}/**        write: uid (its own like in someone's inbox)
//	user_chats/{uid}/**       read/write: owner
//	user_chats/{x}/{conv}/**  write: participants of conv
//	chats/{conv}/**           read/write: participants
//	matches/{conv}/**         read/write: participants
//	blocked_users/{uid}/**    read/write: owner
//
// Anything else is denied.
type Guard struct {
	store Store
	uid   string
}

// NewGuard binds store to uid.
func NewGuard(store Store, uid string) *Guard {
	return &Guard{store: store, uid: uid}
}

// UID returns the user the guard acts as.
func (g *Guard) UID() string { return g.uid }

func (g *Guard) Get(ctx context.Context, path string) (Snapshot, error) {
	p, err := g.check(path, g.canRead, "read")
	if err != nil {
		return Snapshot{}, err
	}
	return g.store.Get(ctx, p)
}

func (g *Guard) Set(ctx context.Context, path string, value any) error {
	p, err := g.check(path, g.canWrite, "write")
	if err != nil {
		return err
	}
	return g.store.Set(ctx, p, value)
}

func (g *Guard) Update(ctx context.Context, values map[string]any) error {
	for path := range values {
		if _, err := g.check(path, g.canWrite, "write"); err != nil {
			return err
		}
	}
	return g.store.Update(ctx, values)
}

func (g *Guard) Transaction(ctx context.Context, path string, fn UpdateFunc) (Snapshot, error) {
	p, err := g.check(path, g.canWrite, "write")
	if err != nil {
		return Snapshot{}, err
	}
	return g.store.Transaction(ctx, p, fn)
}

func (g *Guard) Delete(ctx context.Context, path string) error {
	p, err := g.check(path, g.canWrite, "write")
	if err != nil {
		return err
	}
	return g.store.Delete(ctx, p)
}

func (g *Guard) Subscribe(ctx context.Context, path string) (<-chan Snapshot, error) {
	p, err := g.check(path, g.canRead, "read")
	if err != nil {
		return nil, err
	}
	return g.store.Subscribe(ctx, p)
}

func (g *Guard) check(path string, allowed func([]string) bool, op string) (string, error) {
	if g.uid == "" {
		return "", svcErr.ErrUnauthenticated
	}
	p, err := CleanPath(path)
	if err != nil {
		return "", err
	}
	if !allowed(Split(p)) {
		return "", fmt.Errorf("%w: %s %q as %s", ErrPermissionDenied, op, p, g.uid)
	}
	return p, nil
}

func (g *Guard) canRead(segs []string) bool {
	if len(segs) == 0 {
		return false
	}
	switch segs[0] {
	case "users":
		return true
	case "likes", "user_chats", "blocked_users":
		return len(segs) >= 2 && segs[1] == g.uid
	case "chats", "matches":
		return len(segs) >= 2 && IsParticipant(segs[1], g.uid)
	}
	return false
}

func (g *Guard) canWrite(segs []string) bool {
	if len(segs) < 2 {
		return false
	}
	owner := segs[1] == g.uid
	switch segs[0] {
	case "users", "blocked_users":
		return owner
	case "likes":
		return owner || (len(segs) >= 3 && segs[2] == g.uid)
	case "user_chats":
		if owner {
			return true
		}
		return len(segs) >= 3 && IsParticipant(segs[2], g.uid) && IsParticipant(segs[2], segs[1])
	case "chats", "matches":
		return IsParticipant(segs[1], g.uid)
	}
	return false
}

// IsParticipant reports whether uid is one of the two users of conversation
// conv. A conv with more than one "_" has no participants.
func IsParticipant(conv, uid string) bool {
	a, b, ok := strings.Cut(conv, "_")
	if !ok || uid == "" || strings.Contains(b, "_") {
		return false
	}
	return uid == a || uid == b
}
