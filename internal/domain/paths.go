package domain

import "github.com/martinotbusiness97-crypto/martiloveconect/internal/tree"

// Top-level subtrees.
const (
	UsersRoot       = "users"
	LikesRoot       = "likes"
	MatchesRoot     = "matches"
	UserChatsRoot   = "user_chats"
	ChatsRoot       = "chats"
	BlockedRoot     = "blocked_users"
	CredentialsRoot = "credentials"
	EmailIndexRoot  = "credential_emails"
)

func UserPath(uid string) string { return tree.Join(UsersRoot, uid) }

func SettingPath(uid, key string) string { return tree.Join(UsersRoot, uid, "settings", key) }

// SelfLikePath is the liker's own mirror of a like.
func SelfLikePath(liker, target string) string {
	return tree.Join(UsersRoot, liker, "likes", target)
}

func SelfLikesPath(uid string) string { return tree.Join(UsersRoot, uid, "likes") }

func PassPath(uid, target string) string { return tree.Join(UsersRoot, uid, "passes", target) }

func PassesPath(uid string) string { return tree.Join(UsersRoot, uid, "passes") }

// InboxPath is the like inbox of target.
func InboxPath(target string) string { return tree.Join(LikesRoot, target) }

// LikePath is liker's entry in target's inbox.
func LikePath(target, liker string) string { return tree.Join(LikesRoot, target, liker) }

func MatchPath(conv string) string { return tree.Join(MatchesRoot, conv) }

// HiddenPath flags conv as deleted by uid on its match marker.
func HiddenPath(conv, uid string) string { return tree.Join(MatchesRoot, conv, "hidden", uid) }

func MetasPath(uid string) string { return tree.Join(UserChatsRoot, uid) }

func MetaPath(uid, conv string) string { return tree.Join(UserChatsRoot, uid, conv) }

func MessagesPath(conv string) string { return tree.Join(ChatsRoot, conv, "messages") }

func MessagePath(conv, id string) string { return tree.Join(ChatsRoot, conv, "messages", id) }

// ClockPath holds the last timestamp assigned in conv.
func ClockPath(conv string) string { return tree.Join(ChatsRoot, conv, "clock") }

func BlockedPath(uid string) string { return tree.Join(BlockedRoot, uid) }

func BlockPath(uid, target string) string { return tree.Join(BlockedRoot, uid, target) }

func CredentialPath(uid string) string { return tree.Join(CredentialsRoot, uid) }

func EmailIndexPath(key string) string { return tree.Join(EmailIndexRoot, key) }
