package match_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/cache"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/domain"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/logger"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/service/chat"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/service/match"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/testutil"
)

func TestReconciler_RestoresInboxAndMirrors(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	testutil.PutProfiles(t, env.Store,
		testutil.Profile("alice", "Alice", 29, domain.GenderFemale, domain.SeekingMen),
		testutil.Profile("bob", "Bob", 31, domain.GenderMale, domain.SeekingWomen),
		testutil.Profile("carol", "Carol", 27, domain.GenderFemale, domain.SeekingAll),
	)

	// rule 1: alice's mirror survived, the inbox write did not
	require.NoError(t, env.Store.Set(ctx, domain.SelfLikePath("alice", "bob"), true))
	// bob passed on carol: her lone mirror stays as is
	require.NoError(t, env.Store.Set(ctx, domain.SelfLikePath("carol", "bob"), true))
	require.NoError(t, env.Store.Set(ctx, domain.PassPath("bob", "carol"), true))
	// rule 2: an inbox entry without mirror
	require.NoError(t, env.Store.Set(ctx, domain.LikePath("alice", "carol"), domain.LikeRecord{Timestamp: 7, FromName: "Carol"}))
	// rule 2: an inbox entry of a deleted liker
	require.NoError(t, env.Store.Set(ctx, domain.LikePath("alice", "ghost"), domain.LikeRecord{Timestamp: 8, FromName: "Ghost"}))

	rec := match.NewReconciler(env.Store, logger.Discard(), env.Clock.Now, env.App.InvalidateBadges)
	rep, err := rec.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.RestoredInbox)
	assert.Equal(t, 1, rep.RestoredMirrors)
	assert.Equal(t, 1, rep.ConsumedInbox)

	var restored domain.LikeRecord
	require.NoError(t, testutil.Get(t, env.Store, domain.LikePath("bob", "alice")).Unmarshal(&restored))
	assert.Equal(t, "Alice", restored.FromName)
	assert.Equal(t, env.Clock.Now().UnixMilli(), restored.Timestamp)

	assert.False(t, testutil.Get(t, env.Store, domain.LikePath("bob", "carol")).Exists())
	assert.True(t, testutil.Get(t, env.Store, domain.SelfLikePath("carol", "alice")).Bool())
	assert.False(t, testutil.Get(t, env.Store, domain.LikePath("alice", "ghost")).Exists())

	// a second pass finds nothing to do
	rep, err = rec.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Total())
}

func TestReconciler_RepairsMatches(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	testutil.PutProfiles(t, env.Store,
		testutil.Profile("alice", "Alice", 29, domain.GenderFemale, domain.SeekingMen),
		testutil.Profile("bob", "Bob", 31, domain.GenderMale, domain.SeekingWomen),
		testutil.Profile("carol", "Carol", 27, domain.GenderFemale, domain.SeekingAll),
	)
	ab := domain.ConversationID("alice", "bob")
	bc := domain.ConversationID("bob", "carol")

	require.NoError(t, env.Store.Update(ctx, map[string]any{
		// rule 3: a matched pair with a leftover inbox entry
		domain.MatchPath(ab):                domain.MatchMarker{Users: []string{"alice", "bob"}, Timestamp: 100},
		domain.SelfLikePath("alice", "bob"): true,
		domain.SelfLikePath("bob", "alice"): true,
		domain.LikePath("alice", "bob"):     domain.LikeRecord{Timestamp: 90, FromName: "Bob"},
		domain.MetaPath("alice", ab):        domain.ConversationMeta{ParticipantID: "bob", LastMessage: "coucou", Timestamp: 150, UnreadCount: 2},
		domain.MatchPath(bc):                domain.MatchMarker{Users: []string{"bob", "carol"}, Timestamp: 200},
		domain.MetaPath("carol", bc):        domain.ConversationMeta{ParticipantID: "bob", LastMessage: "hey", Timestamp: 300, IsMatch: true},
		domain.SelfLikePath("carol", "bob"): true,
		domain.SelfLikePath("bob", "carol"): true,
	}))

	rec := match.NewReconciler(env.Store, logger.Discard(), env.Clock.Now, env.App.InvalidateBadges)
	rep, err := rec.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.ConsumedInbox)
	assert.Equal(t, 1, rep.FlaggedMatches)
	assert.Equal(t, 2, rep.RecreatedMetas)
	assert.False(t, testutil.Get(t, env.Store, domain.LikePath("alice", "bob")).Exists())

	// rule 4: the existing record keeps its content and gains the flag
	alice, ok := testutil.Meta(t, env.Store, "alice", ab)
	require.True(t, ok)
	assert.True(t, alice.IsMatch)
	assert.Equal(t, "coucou", alice.LastMessage)
	assert.Equal(t, int64(2), alice.UnreadCount)

	bob, ok := testutil.Meta(t, env.Store, "bob", ab)
	require.True(t, ok)
	assert.True(t, bob.IsMatch)
	assert.Equal(t, "alice", bob.ParticipantID)
	assert.Equal(t, domain.MatchPlaceholder, bob.LastMessage)

	// rule 5 applies on the next pass, once both sides exist
	rep, err = rec.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.AlignedTimestamps)

	bob, _ = testutil.Meta(t, env.Store, "bob", ab)
	assert.Equal(t, int64(150), bob.Timestamp)
	bobCarol, _ := testutil.Meta(t, env.Store, "bob", bc)
	assert.Equal(t, int64(300), bobCarol.Timestamp)

	rep, err = rec.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Total())
}

func TestReconciler_KeepsDeletedMatchConversation(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	testutil.PutProfiles(t, env.Store,
		testutil.Profile("alice", "Alice", 29, domain.GenderFemale, domain.SeekingMen),
		testutil.Profile("bob", "Bob", 31, domain.GenderMale, domain.SeekingWomen),
	)
	ab := domain.ConversationID("alice", "bob")
	require.NoError(t, env.Store.Update(ctx, map[string]any{
		domain.MatchPath(ab):                domain.MatchMarker{Users: []string{"alice", "bob"}, Timestamp: 100},
		domain.SelfLikePath("alice", "bob"): true,
		domain.SelfLikePath("bob", "alice"): true,
		domain.MetaPath("alice", ab):        domain.ConversationMeta{ParticipantID: "bob", LastMessage: domain.MatchPlaceholder, Timestamp: 100, IsMatch: true},
		domain.MetaPath("bob", ab):          domain.ConversationMeta{ParticipantID: "alice", LastMessage: domain.MatchPlaceholder, Timestamp: 100, IsMatch: true},
	}))

	_, err := chat.NewChatService(env.App).DeleteConversation(testutil.As("alice"),
		&chat.DeleteConversationRequest{ConversationID: ab, Confirm: true})
	require.NoError(t, err)

	var marker domain.MatchMarker
	require.NoError(t, testutil.Get(t, env.Store, domain.MatchPath(ab)).Unmarshal(&marker))
	assert.True(t, marker.Hidden["alice"])
	assert.ElementsMatch(t, []string{"alice", "bob"}, marker.Users)

	rep, err := match.NewReconciler(env.Store, logger.Discard(), env.Clock.Now, env.App.InvalidateBadges).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Total())

	_, ok := testutil.Meta(t, env.Store, "alice", ab)
	assert.False(t, ok, "deleted conversation stays deleted")
	_, ok = testutil.Meta(t, env.Store, "bob", ab)
	assert.True(t, ok)
}

func TestReconciler_InvalidatesRepairedBadges(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	testutil.PutProfiles(t, env.Store,
		testutil.Profile("alice", "Alice", 29, domain.GenderFemale, domain.SeekingMen),
		testutil.Profile("bob", "Bob", 31, domain.GenderMale, domain.SeekingWomen),
	)
	require.NoError(t, env.Store.Set(ctx, domain.SelfLikePath("alice", "bob"), true))

	rc := env.App.RedisCache
	require.NoError(t, rc.SetBadges(ctx, "bob", cache.Badges{}))
	require.NoError(t, rc.SetBadges(ctx, "alice", cache.Badges{Unread: 4}))

	rep, err := match.NewReconciler(env.Store, logger.Discard(), env.Clock.Now, env.App.InvalidateBadges).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, rep.RestoredInbox)

	_, ok, err := rc.GetBadges(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, ok, "bob's inbox changed, his counters are dropped")
	b, ok, err := rc.GetBadges(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(4), b.Unread)
}
