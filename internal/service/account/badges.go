package account

import (
	"context"

	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/cache"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/domain"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/tree"
)

type BadgesResponse struct {
	Unread int64 `json:"unread"`
	Likes  int64 `json:"likes"`
}

// Badges returns the caller's unread message total and pending likes.
//
// Behavior:
//   - Checks the Redis cache first (TTL refreshed on access).
//   - On a miss, sums unreadCount over user_chats/{me} and counts the
//     entries of likes/{me}, then caches the result unless an invalidation
//     happened meanwhile.
//   - The operations that change either counter invalidate the entry.
func (s *Service) Badges(ctx context.Context, _ *emptypb.Empty) (*BadgesResponse, error) {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return nil, err
	}

	version := int64(-1)
	if rc := s.appCtx.RedisCache; rc != nil {
		b, ok, err := rc.GetBadges(ctx, uid)
		if err != nil {
			s.appCtx.Log(ctx).Warn("badge cache read failed", "user", uid, "err", err)
		}
		if ok {
			s.appCtx.Log(ctx).Debug("Badges cache hit", "user", uid)
			return &BadgesResponse{Unread: b.Unread, Likes: b.Likes}, nil
		}
		if version, err = rc.BadgesVersion(ctx, uid); err != nil {
			s.appCtx.Log(ctx).Warn("badge cache version read failed", "user", uid, "err", err)
			version = -1
		}
	}

	snaps := make([]tree.Snapshot, 2)
	for i, p := range []string{domain.MetasPath(uid), domain.InboxPath(uid)} {
		if snaps[i], err = store.Get(ctx, p); err != nil {
			return nil, err
		}
	}
	b := countBadges(snaps[0], snaps[1])
	if version >= 0 {
		s.cacheBadges(ctx, uid, version, b)
	}
	return &BadgesResponse{Unread: b.Unread, Likes: b.Likes}, nil
}

// WatchBadges streams the counters on every change. It never fills the
// cache: a streamed value may already be older than the last invalidation.
func (s *Service) WatchBadges(ctx context.Context, _ *emptypb.Empty, send func(*BadgesResponse) error) error {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return err
	}
	updates, err := tree.SubscribeAll(ctx, store, domain.MetasPath(uid), domain.InboxPath(uid))
	if err != nil {
		return err
	}
	var last *cache.Badges
	for snaps := range updates {
		b := countBadges(snaps[0], snaps[1])
		if last != nil && *last == b {
			continue
		}
		last = &b
		if err := send(&BadgesResponse{Unread: b.Unread, Likes: b.Likes}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) cacheBadges(ctx context.Context, uid string, version int64, b cache.Badges) {
	stored, err := s.appCtx.RedisCache.SetBadgesIfVersion(ctx, uid, version, b)
	if err != nil {
		s.appCtx.Log(ctx).Warn("badge cache write failed", "user", uid, "err", err)
		return
	}
	if !stored {
		s.appCtx.Log(ctx).Debug("badge cache fill skipped after invalidation", "user", uid)
	}
}

func countBadges(metas, inbox tree.Snapshot) cache.Badges {
	var b cache.Badges
	for _, c := range metas.Children() {
		b.Unread += c.Child("unreadCount").Int()
	}
	b.Likes = int64(len(inbox.Keys()))
	return b
}
