package match

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/domain"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/service/lookup"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/tree"
)

// Report counts the repairs of one reconciliation pass.
type Report struct {
	RestoredInbox     int `json:"restoredInbox"`
	RestoredMirrors   int `json:"restoredMirrors"`
	ConsumedInbox     int `json:"consumedInbox"`
	FlaggedMatches    int `json:"flaggedMatches"`
	RecreatedMetas    int `json:"recreatedMetas"`
	AlignedTimestamps int `json:"alignedTimestamps"`
}

// Total is the number of repairs.
func (r Report) Total() int {
	return r.RestoredInbox + r.RestoredMirrors + r.ConsumedInbox + r.FlaggedMatches + r.RecreatedMetas + r.AlignedTimestamps
}

// Reconciler repairs the per-user mirrors of likes and conversations that
// independent writes left diverged. It works on the unguarded store.
//
// Rules:
//  1. a like mirror without inbox entry, match or pass by the target gets
//     its inbox entry back;
//  2. an inbox entry without mirror gets its mirror back (entries of
//     deleted likers are dropped);
//  3. an inbox entry of a matched pair is consumed;
//  4. a match marker flags both ConversationMeta records as a match and
//     recreates a missing one, unless its owner deleted it;
//  5. two ConversationMeta records with different timestamps both take the
//     larger one.
type Reconciler struct {
	store      tree.Store
	log        *slog.Logger
	now        func() time.Time
	invalidate func(ctx context.Context, userIDs ...string)
}

// NewReconciler builds a Reconciler. invalidate drops the cached badge
// counters of the users whose inbox or conversation records were repaired;
// it may be nil.
func NewReconciler(store tree.Store, log *slog.Logger, now func() time.Time, invalidate func(ctx context.Context, userIDs ...string)) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{store: store, log: log, now: now, invalidate: invalidate}
}

// Run performs one pass over all users.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	var rep Report

	roots := map[string]tree.Snapshot{}
	for _, root := range []string{domain.UsersRoot, domain.LikesRoot, domain.MatchesRoot, domain.UserChatsRoot} {
		snap, err := r.store.Get(ctx, root)
		if err != nil {
			return rep, err
		}
		roots[root] = snap
	}
	users, inboxes, matches, chats := roots[domain.UsersRoot], roots[domain.LikesRoot], roots[domain.MatchesRoot], roots[domain.UserChatsRoot]

	matched := func(a, b string) bool {
		return matches.Child(domain.ConversationID(a, b)).Exists()
	}

	writes := map[string]any{}
	count := func(path string, value any, n *int) {
		writes[path] = value
		*n++
	}

	// rule 1
	for _, u := range users.Children() {
		liker := u.Key()
		for _, target := range u.Child("likes").Keys() {
			switch {
			case inboxes.Child(tree.Join(target, liker)).Exists():
			case matched(liker, target):
			case users.Child(tree.Join(target, "passes", liker)).Exists():
			case !users.Child(target).Exists():
			default:
				name := domain.AnonymousName
				if p, err := domain.DecodeProfile(u); err == nil {
					name = p.DisplayName()
				}
				count(domain.LikePath(target, liker), domain.LikeRecord{Timestamp: r.now().UnixMilli(), FromName: name}, &rep.RestoredInbox)
			}
		}
	}

	// rules 2 and 3
	for _, inbox := range inboxes.Children() {
		target := inbox.Key()
		for _, liker := range inbox.Keys() {
			switch {
			case matched(target, liker):
				count(domain.LikePath(target, liker), nil, &rep.ConsumedInbox)
			case !users.Child(liker).Exists():
				count(domain.LikePath(target, liker), nil, &rep.ConsumedInbox)
			case !users.Child(tree.Join(liker, "likes", target)).Exists():
				count(domain.SelfLikePath(liker, target), true, &rep.RestoredMirrors)
			}
		}
	}

	// rule 4
	for _, m := range matches.Children() {
		conv := m.Key()
		var marker domain.MatchMarker
		if err := m.Unmarshal(&marker); err != nil || len(marker.Users) != 2 {
			r.log.Warn("skipping malformed match marker", "conversation", conv, "err", err)
			continue
		}
		for i, uid := range marker.Users {
			other := marker.Users[1-i]
			meta := chats.Child(tree.Join(uid, conv))
			switch {
			case !users.Child(uid).Exists():
			case !meta.Exists() && marker.Hidden[uid]:
			case !meta.Exists():
				count(domain.MetaPath(uid, conv), domain.ConversationMeta{
					ParticipantID: other,
					LastMessage:   domain.MatchPlaceholder,
					Timestamp:     marker.Timestamp,
					IsMatch:       true,
				}, &rep.RecreatedMetas)
			case !meta.Child("isMatch").Bool():
				count(tree.Join(domain.MetaPath(uid, conv), "isMatch"), true, &rep.FlaggedMatches)
			}
		}
	}

	// rule 5
	for _, userChats := range chats.Children() {
		uid := userChats.Key()
		for conv, mine := range lookup.Metas(userChats, uid) {
			other := domain.Counterpart(conv, uid)
			if other == "" || uid > other {
				continue
			}
			var theirs domain.ConversationMeta
			snap := chats.Child(tree.Join(other, conv))
			if !snap.Exists() || snap.Unmarshal(&theirs) != nil || theirs.Timestamp == mine.Timestamp {
				continue
			}
			if mine.Timestamp < theirs.Timestamp {
				count(tree.Join(domain.MetaPath(uid, conv), "timestamp"), theirs.Timestamp, &rep.AlignedTimestamps)
			} else {
				count(tree.Join(domain.MetaPath(other, conv), "timestamp"), mine.Timestamp, &rep.AlignedTimestamps)
			}
		}
	}

	// repairs are applied one by one; a failing path does not hold back the others
	touched := map[string]struct{}{}
	for p, v := range writes {
		if err := r.store.Set(ctx, p, v); err != nil {
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			r.log.Warn("reconcile write failed", "path", p, "err", err)
			continue
		}
		if uid := badgeOwner(p); uid != "" {
			touched[uid] = struct{}{}
		}
	}
	if r.invalidate != nil && len(touched) > 0 {
		ids := make([]string, 0, len(touched))
		for uid := range touched {
			ids = append(ids, uid)
		}
		sort.Strings(ids)
		r.invalidate(ctx, ids...)
	}

	if rep.Total() > 0 {
		r.log.Info("reconciliation repaired mirrors", "report", rep)
	}
	return rep, nil
}

// badgeOwner returns the user whose badge counters a write to p changes.
func badgeOwner(p string) string {
	segs := tree.Split(p)
	if len(segs) < 2 {
		return ""
	}
	switch segs[0] {
	case domain.LikesRoot, domain.UserChatsRoot:
		return segs[1]
	}
	return ""
}

// RunEvery reconciles on every tick until ctx ends.
func (r *Reconciler) RunEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Run(ctx); err != nil && ctx.Err() == nil {
				r.log.Error("reconciliation failed", "err", err)
			}
		}
	}
}
