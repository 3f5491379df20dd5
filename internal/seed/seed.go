// Package seed fills the tree with demo accounts, likes, matches and a
// conversation.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/auth"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/domain"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/tree"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password"

var (
	menNames   = []string{"Lucas", "Hugo", "Louis", "Gabriel", "Arthur", "Jules", "Adam", "Nathan", "Léo", "Raphaël"}
	womenNames = []string{"Emma", "Jade", "Louise", "Alice", "Chloé", "Lina", "Léa", "Rose", "Anna", "Mila"}
	countries  = []string{"France", "Belgique", "Canada", "Suisse"}
	interests  = []string{"Voyages", "Cuisine", "Sport", "Musique", "Cinéma", "Lecture"}

	conversation = []string{"Salut ! Ravi de ce match 🙂", "Coucou, pareil !", "Tu fais quoi ce week-end ?"}
)

// Accounts creates sign-in credentials. Without it users get fixed ids and
// no credentials.
type Accounts interface {
	SignUp(ctx context.Context, email, password string) (auth.Session, error)
}

// Result summarizes what was written.
type Result struct {
	Users    []string
	Likes    int
	Matches  int
	Messages int
}

// Run resets the tree and populates it with demo data.
//
// Behavior:
//  1. Deletes every top-level subtree, credentials included.
//  2. Creates 20 complete profiles (10 men seeking women, 10 women seeking
//     men) with emails user1@example.com .. user20@example.com.
//  3. Man i likes women i and i+1; every third woman likes back, which
//     creates a match with both conversation records.
//  4. The first match gets a short conversation, unread for the woman.
func Run(ctx context.Context, store tree.Store, accounts Accounts, log *slog.Logger, seed int64) (Result, error) {
	var res Result
	r := rand.New(rand.NewSource(seed))
	now := time.Now().UnixMilli()

	// --- Fresh start ---
	for _, root := range []string{
		domain.UsersRoot, domain.LikesRoot, domain.MatchesRoot, domain.UserChatsRoot,
		domain.ChatsRoot, domain.BlockedRoot, domain.CredentialsRoot, domain.EmailIndexRoot,
	} {
		if err := store.Delete(ctx, root); err != nil {
			return res, fmt.Errorf("failed to clear %s: %w", root, err)
		}
	}
	log.Info("cleared existing data")

	// --- Users ---
	profiles := make([]domain.Profile, 0, len(menNames)+len(womenNames))
	for i := 1; i <= len(menNames)+len(womenNames); i++ {
		email := fmt.Sprintf("user%d@example.com", i)
		uid := fmt.Sprintf("demo-user-%d", i)
		if accounts != nil {
			s, err := accounts.SignUp(ctx, email, DefaultPassword)
			if err != nil {
				return res, fmt.Errorf("failed to create account %s: %w", email, err)
			}
			uid = s.UID
		}

		p := domain.Profile{
			ID:         uid,
			Age:        22 + r.Intn(20),
			Email:      email,
			Country:    countries[r.Intn(len(countries))],
			Interests:  []string{interests[r.Intn(len(interests))], interests[r.Intn(len(interests))]},
			Religion:   domain.DefaultReligion,
			IsComplete: true,
			Settings:   domain.DefaultSettings(),
		}
		if i <= len(menNames) {
			p.Name, p.Gender, p.Seeking = menNames[i-1], domain.GenderMale, domain.SeekingWomen
		} else {
			p.Name, p.Gender, p.Seeking = womenNames[i-1-len(menNames)], domain.GenderFemale, domain.SeekingMen
		}
		if p.Interests[0] == p.Interests[1] {
			p.Interests = p.Interests[:1]
		}
		p.Interest = domain.PrimaryInterest(p.Interests)

		if err := store.Set(ctx, domain.UserPath(uid), p); err != nil {
			return res, fmt.Errorf("failed to seed user: %w", err)
		}
		profiles = append(profiles, p)
		res.Users = append(res.Users, uid)
	}
	log.Info("seeded users", "count", len(profiles))

	men, women := profiles[:len(menNames)], profiles[len(menNames):]

	// --- Likes and matches ---
	var firstMatch []domain.Profile
	for i, man := range men {
		for _, woman := range []domain.Profile{women[i], women[(i+1)%len(women)]} {
			ts := now - int64(r.Intn(72))*int64(time.Hour/time.Millisecond)
			mutual := woman.ID == women[i].ID && i%3 == 0

			writes := map[string]any{domain.SelfLikePath(man.ID, woman.ID): true}
			if !mutual {
				writes[domain.LikePath(woman.ID, man.ID)] = domain.LikeRecord{Timestamp: ts, FromName: man.DisplayName()}
				if err := store.Update(ctx, writes); err != nil {
					return res, fmt.Errorf("failed to seed like: %w", err)
				}
				res.Likes++
				continue
			}

			conv := domain.ConversationID(man.ID, woman.ID)
			users := []string{man.ID, woman.ID}
			sort.Strings(users)
			writes[domain.SelfLikePath(woman.ID, man.ID)] = true
			writes[domain.MatchPath(conv)] = domain.MatchMarker{Users: users, Timestamp: ts}
			writes[domain.MetaPath(man.ID, conv)] = domain.ConversationMeta{ParticipantID: woman.ID, LastMessage: domain.MatchPlaceholder, Timestamp: ts, IsMatch: true}
			writes[domain.MetaPath(woman.ID, conv)] = domain.ConversationMeta{ParticipantID: man.ID, LastMessage: domain.MatchPlaceholder, Timestamp: ts, IsMatch: true}
			if err := store.Update(ctx, writes); err != nil {
				return res, fmt.Errorf("failed to seed match: %w", err)
			}
			res.Likes += 2
			res.Matches++
			if firstMatch == nil {
				firstMatch = []domain.Profile{man, woman}
			}
		}
	}
	log.Info("seeded likes", "likes", res.Likes, "matches", res.Matches)

	// --- Conversation ---
	if firstMatch != nil {
		n, err := seedConversation(ctx, store, firstMatch[0], firstMatch[1], now)
		if err != nil {
			return res, err
		}
		res.Messages = n
		log.Info("seeded conversation", "messages", n)
	}
	return res, nil
}

// seedConversation alternates the demo lines between a and b, a first.
// b has not read the last line.
func seedConversation(ctx context.Context, store tree.Store, a, b domain.Profile, now int64) (int, error) {
	conv := domain.ConversationID(a.ID, b.ID)
	writes := map[string]any{}
	var last domain.Message
	for i, text := range conversation {
		sender := a.ID
		if i%2 == 1 {
			sender = b.ID
		}
		id, err := uuid.NewV7()
		if err != nil {
			return 0, err
		}
		last = domain.Message{ID: id.String(), Text: text, SenderID: sender, Timestamp: now + int64(i)}
		writes[domain.MessagePath(conv, last.ID)] = last
	}
	writes[domain.ClockPath(conv)] = last.Timestamp

	unread := int64(0)
	if last.SenderID == a.ID {
		unread = 1
	}
	writes[domain.MetaPath(a.ID, conv)] = domain.ConversationMeta{ParticipantID: b.ID, LastMessage: last.Text, Timestamp: last.Timestamp, IsMatch: true}
	writes[domain.MetaPath(b.ID, conv)] = domain.ConversationMeta{ParticipantID: a.ID, LastMessage: last.Text, Timestamp: last.Timestamp, UnreadCount: unread, IsMatch: true}
	if err := store.Update(ctx, writes); err != nil {
		return 0, fmt.Errorf("failed to seed conversation: %w", err)
	}
	return len(conversation), nil
}
