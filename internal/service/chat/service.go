package chat

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/app"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/attachments"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/domain"
	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/events"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/service/lookup"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/tree"
)

type SendMessageRequest struct {
	ConversationID string              `json:"conversationId"`
	Text           string              `json:"text,omitempty"`
	File           *attachments.Upload `json:"file,omitempty"`
}

type SendMessageResponse struct {
	Message domain.Message `json:"message"`
}

type DeleteMessageRequest struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	Confirm        bool   `json:"confirm"`
}

type ConversationRequest struct {
	ConversationID string `json:"conversationId"`
}

type DeleteConversationRequest struct {
	ConversationID string `json:"conversationId"`
	Confirm        bool   `json:"confirm"`
}

type ListMessagesResponse struct {
	Messages []domain.Message `json:"messages"`
}

type ListConversationsRequest struct {
	Query string `json:"query,omitempty"`
}

// Conversation is one entry of the conversation list.
type Conversation struct {
	ConversationID string `json:"conversationId"`
	domain.ConversationMeta
	Profile domain.Profile `json:"profile"`
}

type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
	TotalUnread   int64          `json:"totalUnread"`
}

// Service implements conversations, messages and unread tracking.
type Service struct {
	appCtx *app.AppContext
}

// NewChatService creates a new Chat service with dependencies from AppContext.
func NewChatService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx}
}

// SendMessage appends a message to a conversation and updates both previews.
//
// Behavior:
//   - Rejects a message without text and file.
//   - The timestamp comes from the conversation clock: max(now, last+1),
//     so messages of one conversation are strictly ordered.
//   - Writes the message and the sender's ConversationMeta in one update
//     (unread reset to 0), then the recipient's preview.
//   - Increments the recipient's unreadCount by exactly one with a
//     transaction. Failures on the recipient side are logged, not returned.
//
// Example:
//
//	svc.SendMessage(ctx, &chat.SendMessageRequest{ConversationID: "u1_u2", Text: "hello"})
func (s *Service) SendMessage(ctx context.Context, req *SendMessageRequest) (*SendMessageResponse, error) {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return nil, err
	}
	conv, other, err := conversation(req.ConversationID, uid)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(req.Text)
	if text == "" && req.File == nil {
		return nil, svcErr.InvalidArgument("message needs text or a file")
	}

	var file *domain.FileData
	if req.File != nil {
		if file, err = s.appCtx.Files.Encode(ctx, conv, *req.File); err != nil {
			return nil, err
		}
	}

	now := s.appCtx.NowMillis()
	clock, err := store.Transaction(ctx, domain.ClockPath(conv), func(cur tree.Snapshot) (any, error) {
		return max(now, cur.Int()+1), nil
	})
	if err != nil {
		return nil, err
	}
	ts := clock.Int()

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	msg := domain.Message{ID: id.String(), Text: text, File: file, SenderID: uid, Timestamp: ts}
	preview := domain.Preview(text, file != nil)

	mine := domain.MetaPath(uid, conv)
	if err := store.Update(ctx, map[string]any{
		domain.MessagePath(conv, msg.ID): msg,
		tree.Join(mine, "lastMessage"):   preview,
		tree.Join(mine, "timestamp"):     ts,
		tree.Join(mine, "unreadCount"):   0,
		tree.Join(mine, "participantId"): other,
	}); err != nil {
		return nil, err
	}

	theirs := domain.MetaPath(other, conv)
	if err := store.Update(ctx, map[string]any{
		tree.Join(theirs, "lastMessage"):   preview,
		tree.Join(theirs, "timestamp"):     ts,
		tree.Join(theirs, "participantId"): uid,
	}); err != nil {
		s.appCtx.Log(ctx).Warn("recipient preview not written", "conversation", conv, "user", other, "err", err)
	}
	if _, err := store.Transaction(ctx, tree.Join(theirs, "unreadCount"), func(cur tree.Snapshot) (any, error) {
		return cur.Int() + 1, nil
	}); err != nil {
		s.appCtx.Log(ctx).Warn("recipient unread count not incremented", "conversation", conv, "user", other, "err", err)
	}

	s.appCtx.InvalidateBadges(ctx, other)
	s.appCtx.Emit(ctx, events.Event{
		Kind: events.MessageSent, UserID: uid, ActorID: uid,
		ConversationID: conv, Sound: events.SoundSent, Timestamp: ts,
	})
	s.appCtx.Emit(ctx, events.Event{
		Kind: events.MessageReceived, UserID: other, ActorID: uid,
		ConversationID: conv, Sound: events.SoundReceived, Preview: preview, Timestamp: ts,
	})

	if msg.File, err = s.appCtx.Files.Resolve(ctx, msg.File); err != nil {
		s.appCtx.Log(ctx).Warn("attachment url not resolved", "conversation", conv, "err", err)
	}
	return &SendMessageResponse{Message: msg}, nil
}

// DeleteMessage removes one of the caller's messages and replaces both
// previews with the tombstone.
func (s *Service) DeleteMessage(ctx context.Context, req *DeleteMessageRequest) (*emptypb.Empty, error) {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return nil, err
	}
	conv, other, err := conversation(req.ConversationID, uid)
	if err != nil {
		return nil, err
	}
	if !req.Confirm {
		return nil, svcErr.ErrConfirmationRequired
	}
	id := strings.TrimSpace(req.MessageID)
	if id == "" || strings.Contains(id, "/") {
		return nil, svcErr.InvalidArgument("invalid message id")
	}

	snap, err := store.Get(ctx, domain.MessagePath(conv, id))
	if err != nil {
		return nil, err
	}
	if !snap.Exists() {
		return nil, svcErr.NotFound("message " + id)
	}
	var msg domain.Message
	if err := snap.Unmarshal(&msg); err != nil {
		return nil, err
	}
	if msg.SenderID != uid {
		return nil, svcErr.PermissionDenied("only the sender may delete a message")
	}

	if err := store.Delete(ctx, domain.MessagePath(conv, id)); err != nil {
		return nil, err
	}
	if err := tombstone(ctx, store, uid, conv); err != nil {
		return nil, err
	}
	if err := tombstone(ctx, store, other, conv); err != nil {
		s.appCtx.Log(ctx).Warn("counterpart preview not replaced", "conversation", conv, "user", other, "err", err)
	}
	if err := s.appCtx.Files.Remove(ctx, msg.File); err != nil {
		s.appCtx.Log(ctx).Warn("attachment not removed", "conversation", conv, "key", msg.File.Key, "err", err)
	}
	return &emptypb.Empty{}, nil
}

// OpenConversation marks the conversation read for the caller.
func (s *Service) OpenConversation(ctx context.Context, req *ConversationRequest) (*emptypb.Empty, error) {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return nil, err
	}
	conv, _, err := conversation(req.ConversationID, uid)
	if err != nil {
		return nil, err
	}
	if err := s.markRead(ctx, store, uid, conv); err != nil {
		return nil, err
	}
	return &emptypb.Empty{}, nil
}

// ListMessages returns the whole history, oldest first.
func (s *Service) ListMessages(ctx context.Context, req *ConversationRequest) (*ListMessagesResponse, error) {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return nil, err
	}
	conv, _, err := conversation(req.ConversationID, uid)
	if err != nil {
		return nil, err
	}
	snap, err := store.Get(ctx, domain.MessagesPath(conv))
	if err != nil {
		return nil, err
	}
	msgs := s.decodeMessages(ctx, snap)
	sortMessages(msgs)
	return &ListMessagesResponse{Messages: msgs}, nil
}

// WatchMessages streams the history on every change. While the stream is
// open the conversation counts as open: the caller's unread count is reset
// as soon as a message from the counterpart raises it.
func (s *Service) WatchMessages(ctx context.Context, req *ConversationRequest, send func(*ListMessagesResponse) error) error {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return err
	}
	conv, _, err := conversation(req.ConversationID, uid)
	if err != nil {
		return err
	}
	unread := tree.Join(domain.MetaPath(uid, conv), "unreadCount")
	updates, err := tree.SubscribeAll(ctx, store, domain.MessagesPath(conv), unread)
	if err != nil {
		return err
	}

	timeline := NewTimeline()
	var last string
	for snaps := range updates {
		if snaps[1].Int() > 0 {
			if err := s.markRead(ctx, store, uid, conv); err != nil && ctx.Err() == nil {
				s.appCtx.Log(ctx).Warn("unread count not reset", "conversation", conv, "user", uid, "err", err)
			}
		}
		raw := string(snaps[0].JSON())
		if raw == last {
			continue
		}
		last = raw
		timeline.Apply(s.decodeMessages(ctx, snaps[0]))
		if err := send(&ListMessagesResponse{Messages: timeline.Messages()}); err != nil {
			return err
		}
	}
	return nil
}

// ListConversations returns the caller's conversations, newest first.
//
// Behavior:
//   - Resolves participant profiles with parallel one-shot reads.
//   - Skips conversations whose participant is missing or blocked.
//   - Query filters on the participant name, case-insensitive.
//   - TotalUnread sums the unread counts of the listed conversations,
//     before the query applies.
func (s *Service) ListConversations(ctx context.Context, req *ListConversationsRequest) (*ListConversationsResponse, error) {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return nil, err
	}
	snaps := make([]tree.Snapshot, 2)
	for i, p := range []string{domain.MetasPath(uid), domain.BlockedPath(uid)} {
		if snaps[i], err = store.Get(ctx, p); err != nil {
			return nil, err
		}
	}
	return s.conversations(ctx, store, uid, snaps[0], snaps[1], req.Query)
}

// WatchConversations streams the conversation list on every change of the
// caller's ConversationMeta records or block list.
func (s *Service) WatchConversations(ctx context.Context, req *ListConversationsRequest, send func(*ListConversationsResponse) error) error {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return err
	}
	updates, err := tree.SubscribeAll(ctx, store, domain.MetasPath(uid), domain.BlockedPath(uid))
	if err != nil {
		return err
	}
	for snaps := range updates {
		resp, err := s.conversations(ctx, store, uid, snaps[0], snaps[1], req.Query)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := send(resp); err != nil {
			return err
		}
	}
	return nil
}

// DeleteConversation removes the caller's ConversationMeta only; messages
// and the counterpart's record stay. On a match the caller is also marked
// hidden on the marker so reconciliation does not recreate the record.
func (s *Service) DeleteConversation(ctx context.Context, req *DeleteConversationRequest) (*emptypb.Empty, error) {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return nil, err
	}
	conv, _, err := conversation(req.ConversationID, uid)
	if err != nil {
		return nil, err
	}
	if !req.Confirm {
		return nil, svcErr.ErrConfirmationRequired
	}
	if err := hide(ctx, store, uid, conv); err != nil {
		return nil, err
	}
	if err := store.Delete(ctx, domain.MetaPath(uid, conv)); err != nil {
		return nil, err
	}
	s.appCtx.InvalidateBadges(ctx, uid)
	return &emptypb.Empty{}, nil
}

// hide flags uid on the match marker of conv, if the pair matched.
func hide(ctx context.Context, store tree.Store, uid, conv string) error {
	_, err := store.Transaction(ctx, domain.MatchPath(conv), func(cur tree.Snapshot) (any, error) {
		marker, ok := cur.Value().(map[string]any)
		if !ok || len(marker) == 0 {
			return nil, errNoRecord
		}
		hidden, _ := marker["hidden"].(map[string]any)
		if hidden == nil {
			hidden = map[string]any{}
		}
		hidden[uid] = true
		marker["hidden"] = hidden
		return marker, nil
	})
	if errors.Is(err, errNoRecord) {
		return nil
	}
	return err
}

func (s *Service) conversations(ctx context.Context, store tree.Store, uid string, metaSnap, blockedSnap tree.Snapshot, query string) (*ListConversationsResponse, error) {
	metas := lookup.Metas(metaSnap, uid)
	ids := make([]string, 0, len(metas))
	for _, m := range metas {
		ids = append(ids, m.ParticipantID)
	}
	profiles, err := lookup.Profiles(ctx, store, ids, lookup.KeySet(blockedSnap))
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	resp := &ListConversationsResponse{Conversations: []Conversation{}}
	for conv, m := range metas {
		p, ok := profiles[m.ParticipantID]
		if !ok {
			continue
		}
		resp.TotalUnread += m.UnreadCount
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) {
			continue
		}
		resp.Conversations = append(resp.Conversations, Conversation{ConversationID: conv, ConversationMeta: m, Profile: p})
	}
	sort.Slice(resp.Conversations, func(i, j int) bool {
		a, b := resp.Conversations[i], resp.Conversations[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp > b.Timestamp
		}
		return a.ConversationID < b.ConversationID
	})
	return resp, nil
}

// markRead resets uid's unread count of conv when the record exists.
func (s *Service) markRead(ctx context.Context, store tree.Store, uid, conv string) error {
	meta, err := store.Get(ctx, domain.MetaPath(uid, conv))
	if err != nil {
		return err
	}
	if !meta.Exists() || meta.Child("unreadCount").Int() == 0 {
		return nil
	}
	if err := store.Set(ctx, tree.Join(domain.MetaPath(uid, conv), "unreadCount"), 0); err != nil {
		return err
	}
	s.appCtx.InvalidateBadges(ctx, uid)
	return nil
}

func (s *Service) decodeMessages(ctx context.Context, snap tree.Snapshot) []domain.Message {
	children := snap.Children()
	out := make([]domain.Message, 0, len(children))
	for _, c := range children {
		var m domain.Message
		if err := c.Unmarshal(&m); err != nil {
			s.appCtx.Log(ctx).Warn("skipping malformed message", "path", c.Path(), "err", err)
			continue
		}
		if m.ID == "" {
			m.ID = c.Key()
		}
		if m.File != nil {
			resolved, err := s.appCtx.Files.Resolve(ctx, m.File)
			if err != nil {
				s.appCtx.Log(ctx).Warn("attachment url not resolved", "path", c.Path(), "err", err)
			}
			m.File = resolved
		}
		out = append(out, m)
	}
	return out
}

// errNoRecord aborts a transaction on a missing record.
var errNoRecord = errors.New("no conversation record")

// tombstone replaces the preview of uid's record of conv, if any. It only
// needs write access, so the sender can tombstone the counterpart's record.
func tombstone(ctx context.Context, store tree.Store, uid, conv string) error {
	_, err := store.Transaction(ctx, domain.MetaPath(uid, conv), func(cur tree.Snapshot) (any, error) {
		meta, ok := cur.Value().(map[string]any)
		if !ok || len(meta) == 0 {
			return nil, errNoRecord
		}
		meta["lastMessage"] = domain.Tombstone
		return meta, nil
	})
	if errors.Is(err, errNoRecord) {
		return nil
	}
	return err
}

// conversation validates a conversation id for caller uid and returns it with
// the counterpart.
func conversation(raw, uid string) (string, string, error) {
	conv := strings.TrimSpace(raw)
	if conv == "" {
		return "", "", svcErr.InvalidArgument("conversation id is required")
	}
	if clean, err := tree.CleanPath(conv); err != nil || clean != conv || strings.Contains(conv, "/") {
		return "", "", svcErr.InvalidArgument("invalid conversation id")
	}
	other := domain.Counterpart(conv, uid)
	if other == "" || other == uid || domain.ConversationID(uid, other) != conv {
		return "", "", svcErr.PermissionDenied("conversation " + conv)
	}
	return conv, other, nil
}
