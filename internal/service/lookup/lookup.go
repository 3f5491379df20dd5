// Package lookup resolves the records services attach to their results:
// counterpart profiles and block lists.
package lookup

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/domain"
	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/tree"
)

// parallelReads bounds the one-shot profile reads in flight per call.
const parallelReads = 8

// Profiles reads the profiles of ids in parallel with one-shot reads.
// Missing or undecodable profiles and ids in skip are left out.
func Profiles(ctx context.Context, store tree.Store, ids []string, skip map[string]bool) (map[string]domain.Profile, error) {
	var (
		mu  sync.Mutex
		out = make(map[string]domain.Profile, len(ids))
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelReads)
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || skip[id] || seen[id] {
			continue
		}
		seen[id] = true
		g.Go(func() error {
			snap, err := store.Get(ctx, domain.UserPath(id))
			if err != nil {
				return err
			}
			p, err := domain.DecodeProfile(snap)
			if err != nil {
				return nil
			}
			mu.Lock()
			out[id] = p
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Blocked returns the ids uid has blocked.
func Blocked(ctx context.Context, store tree.Store, uid string) (map[string]bool, error) {
	snap, err := store.Get(ctx, domain.BlockedPath(uid))
	if err != nil {
		return nil, err
	}
	return KeySet(snap), nil
}

// KeySet returns the child keys of snap as a set.
func KeySet(snap tree.Snapshot) map[string]bool {
	keys := snap.Keys()
	out := make(map[string]bool, len(keys))
	for _, k := range keys {
		out[k] = true
	}
	return out
}

// Metas decodes the ConversationMeta records of a user_chats/{uid} snapshot,
// keyed by conversation id. The participant falls back to the counterpart
// encoded in the conversation id.
func Metas(snap tree.Snapshot, uid string) map[string]domain.ConversationMeta {
	out := make(map[string]domain.ConversationMeta)
	for _, c := range snap.Children() {
		var m domain.ConversationMeta
		if err := c.Unmarshal(&m); err != nil {
			continue
		}
		if m.ParticipantID == "" {
			m.ParticipantID = domain.Counterpart(c.Key(), uid)
		}
		out[c.Key()] = m
	}
	return out
}

// User validates a user id given by a caller: present, a single tree key and
// free of "_", the separator of conversation ids.
func User(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", svcErr.InvalidArgument("user id is required")
	}
	if clean, err := tree.CleanPath(id); err != nil || clean != id || strings.ContainsAny(id, "/_") {
		return "", svcErr.InvalidArgument("invalid user id")
	}
	return id, nil
}

// OtherUser validates a user id given by the caller self, which may not
// target itself.
func OtherUser(raw, self string) (string, error) {
	id, err := User(raw)
	if err != nil {
		return "", err
	}
	if id == self {
		return "", svcErr.InvalidArgument("cannot target yourself")
	}
	return id, nil
}
