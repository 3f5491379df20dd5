package domain

import (
	"sort"
	"strings"
)

// Fixed strings written into previews and like records.
const (
	MatchPlaceholder = "Discussion ouverte"
	FilePreview      = "📁 Fichier"
	GenericPreview   = "Nouveau message"
	Tombstone        = "🚫 Message supprimé"
	AnonymousName    = "Quelqu'un"
)

// LikeRecord is stored at likes/{target}/{liker}.
type LikeRecord struct {
	Timestamp int64  `json:"timestamp"`
	FromName  string `json:"fromName"`
}

// MatchMarker is stored at matches/{conv}. Hidden lists the participants
// that deleted their conversation record; it is not recreated for them.
type MatchMarker struct {
	Users     []string        `json:"users"`
	Timestamp int64           `json:"timestamp"`
	Hidden    map[string]bool `json:"hidden,omitempty"`
}

// ConversationMeta is one user's view of a conversation, stored at
// user_chats/{uid}/{conv}.
type ConversationMeta struct {
	ParticipantID string `json:"participantId"`
	LastMessage   string `json:"lastMessage"`
	Timestamp     int64  `json:"timestamp"`
	UnreadCount   int64  `json:"unreadCount"`
	IsMatch       bool   `json:"isMatch"`
}

// FileData describes an attachment. Small files travel inline as a data URL;
// larger ones live in object storage under Key and URL is filled on read.
type FileData struct {
	URL  string `json:"url,omitempty"`
	Key  string `json:"key,omitempty"`
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// Message is stored at chats/{conv}/messages/{id}.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text,omitempty"`
	File      *FileData `json:"file,omitempty"`
	SenderID  string    `json:"senderId"`
	Timestamp int64     `json:"timestamp"`
}

// BlockRecord is stored at blocked_users/{uid}/{target}.
type BlockRecord struct {
	Timestamp int64 `json:"timestamp"`
}

// ConversationID is the canonical, order-independent id of the conversation
// between a and b. User ids never contain "_", so the id splits back into
// exactly two users; lookup.User rejects ids that do.
func ConversationID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

// Counterpart returns the other participant of conv, or "" when uid is not
// one or conv does not name exactly two users.
func Counterpart(conv, uid string) string {
	a, b, ok := strings.Cut(conv, "_")
	if !ok || uid == "" || strings.Contains(b, "_") {
		return ""
	}
	switch uid {
	case a:
		return b
	case b:
		return a
	}
	return ""
}

// Preview derives the conversation preview of a message.
func Preview(text string, hasFile bool) string {
	if s := strings.TrimSpace(text); s != "" {
		return s
	}
	if hasFile {
		return FilePreview
	}
	return GenericPreview
}
