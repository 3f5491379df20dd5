package match

import (
	"context"
	"sort"

	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/app"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/domain"
	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/events"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/service/lookup"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/tree"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/utils/pagination"
)

type LikeRequest struct {
	TargetUserID string `json:"targetUserId"`
}

type LikeResponse struct {
	Matched        bool   `json:"matched"`
	ConversationID string `json:"conversationId,omitempty"`
}

type LikerRequest struct {
	LikerUserID string `json:"likerUserId"`
}

type MatchResponse struct {
	ConversationID string `json:"conversationId"`
}

type StartConversationRequest struct {
	TargetUserID string `json:"targetUserId"`
}

type StartConversationResponse struct {
	ConversationID string `json:"conversationId"`
	IsMatch        bool   `json:"isMatch"`
}

type ListLikersRequest struct {
	PageSize        int    `json:"pageSize"`
	PaginationToken string `json:"paginationToken"`
}

// Liker is one entry of the likes inbox with the liker's profile.
type Liker struct {
	Profile   domain.Profile `json:"profile"`
	FromName  string         `json:"fromName"`
	Timestamp int64          `json:"timestamp"`
}

type ListLikersResponse struct {
	Likers              []Liker `json:"likers"`
	Total               int     `json:"total"`
	NextPaginationToken string  `json:"nextPaginationToken,omitempty"`
}

// Match is a conversation flagged as a mutual like.
type Match struct {
	ConversationID string         `json:"conversationId"`
	Profile        domain.Profile `json:"profile"`
	Timestamp      int64          `json:"timestamp"`
}

type ListMatchesResponse struct {
	Matches []Match `json:"matches"`
}

// Service implements the like/match flow.
// Every write goes through the caller's guarded view of the tree, so each
// call only ever touches what the caller may write.
type Service struct {
	appCtx *app.AppContext
}

// NewMatchService creates a new Match service with dependencies from AppContext.
func NewMatchService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx}
}

// Like records that the caller likes a profile and promotes it to a match
// when the target already liked the caller.
//
// Behavior:
//   - Rejects self-likes and unknown targets.
//   - Reads the caller's inbox entry of the target to detect reciprocity.
//   - Not reciprocal: writes the LikeRecord into the target's inbox, then
//     the caller's mirror; notifies the target.
//   - Reciprocal: writes the mirror and creates the match (see LikeBack).
//
// Example:
//
//	svc.Like(ctx, &match.LikeRequest{TargetUserID: "u2"})
func (s *Service) Like(ctx context.Context, req *LikeRequest) (*LikeResponse, error) {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return nil, err
	}
	target, err := lookup.OtherUser(req.TargetUserID, uid)
	if err != nil {
		return nil, err
	}
	s.appCtx.Log(ctx).Debug("Like called", "user", uid, "target", target)

	if _, err := s.profile(ctx, store, target); err != nil {
		return nil, err
	}

	reverse, err := store.Get(ctx, domain.LikePath(uid, target))
	if err != nil {
		return nil, err
	}

	if reverse.Exists() {
		conv, err := s.promote(ctx, store, uid, target)
		if err != nil {
			return nil, err
		}
		return &LikeResponse{Matched: true, ConversationID: conv}, nil
	}

	name := domain.AnonymousName
	if me, err := s.profile(ctx, store, uid); err == nil {
		name = me.DisplayName()
	}

	now := s.appCtx.NowMillis()
	record := domain.LikeRecord{Timestamp: now, FromName: name}
	if err := store.Set(ctx, domain.LikePath(target, uid), record); err != nil {
		return nil, err
	}
	if err := store.Set(ctx, domain.SelfLikePath(uid, target), true); err != nil {
		return nil, err
	}

	s.appCtx.InvalidateBadges(ctx, target)
	s.appCtx.Emit(ctx, events.Event{
		Kind:      events.LikeReceived,
		UserID:    target,
		ActorID:   uid,
		Sound:     events.SoundNotif,
		Preview:   name,
		Timestamp: now,
	})
	return &LikeResponse{}, nil
}

// LikeBack accepts an inbound like and creates the match. Calling it again
// for the same pair converges to the same state.
func (s *Service) LikeBack(ctx context.Context, req *LikerRequest) (*MatchResponse, error) {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return nil, err
	}
	liker, err := lookup.OtherUser(req.LikerUserID, uid)
	if err != nil {
		return nil, err
	}

	inbox, err := store.Get(ctx, domain.LikePath(uid, liker))
	if err != nil {
		return nil, err
	}
	if !inbox.Exists() {
		marker, err := store.Get(ctx, domain.MatchPath(domain.ConversationID(uid, liker)))
		if err != nil {
			return nil, err
		}
		if !marker.Exists() {
			return nil, svcErr.NotFound("like from " + liker)
		}
	}

	conv, err := s.promote(ctx, store, uid, liker)
	if err != nil {
		return nil, err
	}
	return &MatchResponse{ConversationID: conv}, nil
}

// Decline records a pass on the liker and removes the inbox entry.
func (s *Service) Decline(ctx context.Context, req *LikerRequest) (*emptypb.Empty, error) {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return nil, err
	}
	liker, err := lookup.OtherUser(req.LikerUserID, uid)
	if err != nil {
		return nil, err
	}
	if err := store.Set(ctx, domain.PassPath(uid, liker), true); err != nil {
		return nil, err
	}
	if err := s.removeRequest(ctx, store, uid, liker); err != nil {
		return nil, err
	}
	return &emptypb.Empty{}, nil
}

// StartConversation opens a conversation from the caller's side only.
//
// Behavior:
//   - isMatch is true when the target already liked the caller or a match
//     marker exists; an existing isMatch is never downgraded.
//   - Writes only the caller's ConversationMeta. The target sees the
//     conversation once a message or the match flow creates their side.
func (s *Service) StartConversation(ctx context.Context, req *StartConversationRequest) (*StartConversationResponse, error) {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return nil, err
	}
	target, err := lookup.OtherUser(req.TargetUserID, uid)
	if err != nil {
		return nil, err
	}
	if _, err := s.profile(ctx, store, target); err != nil {
		return nil, err
	}

	conv := domain.ConversationID(uid, target)
	meta := domain.MetaPath(uid, conv)

	isMatch := false
	for _, p := range []string{domain.LikePath(uid, target), domain.MatchPath(conv)} {
		snap, err := store.Get(ctx, p)
		if err != nil {
			return nil, err
		}
		isMatch = isMatch || snap.Exists()
	}
	current, err := store.Get(ctx, tree.Join(meta, "isMatch"))
	if err != nil {
		return nil, err
	}
	isMatch = isMatch || current.Bool()

	if err := store.Update(ctx, map[string]any{
		tree.Join(meta, "participantId"): target,
		tree.Join(meta, "timestamp"):     s.appCtx.NowMillis(),
		tree.Join(meta, "isMatch"):       isMatch,
	}); err != nil {
		return nil, err
	}
	return &StartConversationResponse{ConversationID: conv, IsMatch: isMatch}, nil
}

// ListLikers returns the caller's likes inbox, newest first.
//
// Behavior:
//   - Orders by timestamp desc, then liker id desc.
//   - Skips likers the caller blocked and likers without a profile.
//   - Supports cursor-based pagination with paginationToken.
//
// Example:
//
//	svc.ListLikers(ctx, &match.ListLikersRequest{PageSize: 10})
func (s *Service) ListLikers(ctx context.Context, req *ListLikersRequest) (*ListLikersResponse, error) {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return nil, err
	}
	cursor, err := pagination.Decode(req.PaginationToken)
	if err != nil {
		return nil, err
	}

	inbox, err := store.Get(ctx, domain.InboxPath(uid))
	if err != nil {
		return nil, err
	}
	blocked, err := lookup.Blocked(ctx, store, uid)
	if err != nil {
		return nil, err
	}

	entries := inboxEntries(inbox, blocked)
	size := pagination.PageSize(req.PageSize)

	page := make([]inboxEntry, 0, size)
	var nextToken string
	for _, e := range entries {
		if !cursor.After(e.record.Timestamp, e.id) {
			continue
		}
		if len(page) == size {
			last := page[len(page)-1]
			nextToken, err = pagination.Encode(pagination.Cursor{ID: last.id, Timestamp: last.record.Timestamp})
			if err != nil {
				return nil, err
			}
			break
		}
		page = append(page, e)
	}

	likers, err := s.resolveLikers(ctx, store, page)
	if err != nil {
		return nil, err
	}
	s.appCtx.Log(ctx).Debug("ListLikers result", "user", uid, "liker_count", len(likers), "next_token", nextToken)
	return &ListLikersResponse{Likers: likers, Total: len(entries), NextPaginationToken: nextToken}, nil
}

// WatchLikers streams the whole inbox on every change.
func (s *Service) WatchLikers(ctx context.Context, _ *emptypb.Empty, send func(*ListLikersResponse) error) error {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return err
	}
	updates, err := tree.SubscribeAll(ctx, store, domain.InboxPath(uid), domain.BlockedPath(uid))
	if err != nil {
		return err
	}
	for snaps := range updates {
		entries := inboxEntries(snaps[0], lookup.KeySet(snaps[1]))
		likers, err := s.resolveLikers(ctx, store, entries)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := send(&ListLikersResponse{Likers: likers, Total: len(entries)}); err != nil {
			return err
		}
	}
	return nil
}

// ListMatches returns the caller's conversations flagged as matches, newest first.
func (s *Service) ListMatches(ctx context.Context, _ *emptypb.Empty) (*ListMatchesResponse, error) {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := store.Get(ctx, domain.MetasPath(uid))
	if err != nil {
		return nil, err
	}
	blocked, err := lookup.Blocked(ctx, store, uid)
	if err != nil {
		return nil, err
	}

	metas := lookup.Metas(snap, uid)
	ids := make([]string, 0, len(metas))
	for _, m := range metas {
		if m.IsMatch {
			ids = append(ids, m.ParticipantID)
		}
	}
	profiles, err := lookup.Profiles(ctx, store, ids, blocked)
	if err != nil {
		return nil, err
	}

	resp := &ListMatchesResponse{Matches: []Match{}}
	for conv, m := range metas {
		p, ok := profiles[m.ParticipantID]
		if !m.IsMatch || !ok {
			continue
		}
		resp.Matches = append(resp.Matches, Match{ConversationID: conv, Profile: p, Timestamp: m.Timestamp})
	}
	sort.Slice(resp.Matches, func(i, j int) bool {
		a, b := resp.Matches[i], resp.Matches[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp > b.Timestamp
		}
		return a.ConversationID < b.ConversationID
	})
	return resp, nil
}

// promote turns the pair (uid, other) into a match: the caller's mirror,
// the match marker and the caller's ConversationMeta in one atomic update,
// then the counterpart's ConversationMeta in a separate transaction whose
// failure is only logged, then the inbox entry is consumed.
func (s *Service) promote(ctx context.Context, store tree.Store, uid, other string) (string, error) {
	conv := domain.ConversationID(uid, other)

	marker, err := store.Get(ctx, domain.MatchPath(conv))
	if err != nil {
		return "", err
	}
	ts := s.appCtx.NowMillis()
	var existing domain.MatchMarker
	if err := marker.Unmarshal(&existing); err == nil && existing.Timestamp > 0 {
		ts = existing.Timestamp
	}

	mine, err := store.Get(ctx, domain.MetaPath(uid, conv))
	if err != nil {
		return "", err
	}
	var mineMeta domain.ConversationMeta
	if err := mine.Unmarshal(&mineMeta); err != nil {
		return "", err
	}

	users := []string{uid, other}
	sort.Strings(users)
	// the caller's record is recreated below; the counterpart stays hidden
	delete(existing.Hidden, uid)

	meta := domain.MetaPath(uid, conv)
	updates := map[string]any{
		domain.SelfLikePath(uid, other):  true,
		domain.MatchPath(conv):           domain.MatchMarker{Users: users, Timestamp: ts, Hidden: existing.Hidden},
		tree.Join(meta, "participantId"): other,
		tree.Join(meta, "isMatch"):       true,
		tree.Join(meta, "timestamp"):     max(ts, mineMeta.Timestamp),
	}
	if !mine.Exists() || mineMeta.LastMessage == "" {
		updates[tree.Join(meta, "lastMessage")] = domain.MatchPlaceholder
	}
	if !mine.Exists() {
		updates[tree.Join(meta, "unreadCount")] = 0
	}
	if err := store.Update(ctx, updates); err != nil {
		return "", err
	}

	_, err = store.Transaction(ctx, domain.MetaPath(other, conv), func(cur tree.Snapshot) (any, error) {
		var m domain.ConversationMeta
		if err := cur.Unmarshal(&m); err != nil {
			return nil, err
		}
		if !cur.Exists() || m.LastMessage == "" {
			m.LastMessage = domain.MatchPlaceholder
		}
		m.ParticipantID = uid
		m.IsMatch = true
		m.Timestamp = max(ts, m.Timestamp)
		return m, nil
	})
	if err != nil {
		s.appCtx.Log(ctx).Warn("counterpart match meta not written", "conversation", conv, "user", other, "err", err)
	}

	if err := s.removeRequest(ctx, store, uid, other); err != nil {
		return "", err
	}

	s.appCtx.InvalidateBadges(ctx, other)
	for _, ev := range []events.Event{
		{Kind: events.MatchCreated, UserID: uid, ActorID: uid, ConversationID: conv, Sound: events.SoundMatch},
		{Kind: events.MatchCreated, UserID: other, ActorID: uid, ConversationID: conv, Sound: events.SoundMatch},
	} {
		s.appCtx.Emit(ctx, ev)
	}
	s.appCtx.Log(ctx).Info("match created", "conversation", conv)
	return conv, nil
}

// removeRequest deletes other's entry from uid's inbox. Accepting and
// declining both end with it.
func (s *Service) removeRequest(ctx context.Context, store tree.Store, uid, other string) error {
	if err := store.Delete(ctx, domain.LikePath(uid, other)); err != nil {
		return err
	}
	s.appCtx.InvalidateBadges(ctx, uid)
	return nil
}

func (s *Service) profile(ctx context.Context, store tree.Store, uid string) (domain.Profile, error) {
	snap, err := store.Get(ctx, domain.UserPath(uid))
	if err != nil {
		return domain.Profile{}, err
	}
	if !snap.Exists() {
		return domain.Profile{}, svcErr.NotFound("user " + uid)
	}
	return domain.DecodeProfile(snap)
}

func (s *Service) resolveLikers(ctx context.Context, store tree.Store, entries []inboxEntry) ([]Liker, error) {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.id)
	}
	profiles, err := lookup.Profiles(ctx, store, ids, nil)
	if err != nil {
		return nil, err
	}

	out := make([]Liker, 0, len(entries))
	for _, e := range entries {
		p, ok := profiles[e.id]
		if !ok {
			continue
		}
		name := e.record.FromName
		if name == "" {
			name = p.DisplayName()
		}
		out = append(out, Liker{Profile: p, FromName: name, Timestamp: e.record.Timestamp})
	}
	return out, nil
}

type inboxEntry struct {
	id     string
	record domain.LikeRecord
}

// inboxEntries decodes an inbox ordered newest first, without blocked likers.
func inboxEntries(inbox tree.Snapshot, blocked map[string]bool) []inboxEntry {
	children := inbox.Children()
	out := make([]inboxEntry, 0, len(children))
	for _, c := range children {
		if blocked[c.Key()] {
			continue
		}
		var rec domain.LikeRecord
		if err := c.Unmarshal(&rec); err != nil {
			continue
		}
		out = append(out, inboxEntry{id: c.Key(), record: rec})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].record.Timestamp != out[j].record.Timestamp {
			return out[i].record.Timestamp > out[j].record.Timestamp
		}
		return out[i].id > out[j].id
	})
	return out
}
