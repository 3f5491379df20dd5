package seed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/auth"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/domain"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/logger"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/seed"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/service/match"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/testutil"
)

func TestRun_WritesConsistentDemoData(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	provider := env.App.Auth.(*auth.LocalProvider)

	res, err := seed.Run(ctx, env.Store, provider, logger.Discard(), 1)
	require.NoError(t, err)
	require.Len(t, res.Users, 20)
	assert.Equal(t, 4, res.Matches)
	assert.Equal(t, 24, res.Likes)
	assert.Equal(t, 3, res.Messages)

	users := testutil.Get(t, env.Store, domain.UsersRoot)
	for _, p := range domain.DecodeProfiles(users) {
		assert.True(t, p.IsComplete, p.ID)
		assert.NotEmpty(t, p.Interest, p.ID)
	}

	s, err := provider.SignIn(ctx, "user1@example.com", seed.DefaultPassword)
	require.NoError(t, err)
	assert.Equal(t, res.Users[0], s.UID)

	// man 1 and woman 1 matched and talked; she has not read the last line
	conv := domain.ConversationID(res.Users[0], res.Users[10])
	assert.True(t, testutil.Get(t, env.Store, domain.MatchPath(conv)).Exists())
	assert.Len(t, testutil.Get(t, env.Store, domain.MessagesPath(conv)).Keys(), 3)
	m, ok := testutil.Meta(t, env.Store, res.Users[10], conv)
	require.True(t, ok)
	assert.True(t, m.IsMatch)
	assert.Equal(t, int64(1), m.UnreadCount)

	rep, err := match.NewReconciler(env.Store, logger.Discard(), env.Clock.Now, env.App.InvalidateBadges).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Total())
}

func TestRun_ResetsPreviousData(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	provider := env.App.Auth.(*auth.LocalProvider)

	require.NoError(t, env.Store.Set(ctx, domain.BlockPath("x", "y"), domain.BlockRecord{Timestamp: 1}))
	first, err := seed.Run(ctx, env.Store, provider, logger.Discard(), 1)
	require.NoError(t, err)
	second, err := seed.Run(ctx, env.Store, provider, logger.Discard(), 2)
	require.NoError(t, err)

	assert.False(t, testutil.Get(t, env.Store, domain.BlockedRoot).Exists())
	assert.False(t, testutil.Get(t, env.Store, domain.UserPath(first.Users[0])).Exists())
	assert.Len(t, testutil.Get(t, env.Store, domain.UsersRoot).Keys(), 20)

	s, err := provider.SignIn(ctx, "user1@example.com", seed.DefaultPassword)
	require.NoError(t, err)
	assert.Equal(t, second.Users[0], s.UID)
}

func TestRun_WithoutAccounts(t *testing.T) {
	env := testutil.NewEnv(t)

	res, err := seed.Run(context.Background(), env.Store, nil, logger.Discard(), 1)
	require.NoError(t, err)
	assert.Equal(t, "demo-user-1", res.Users[0])
	assert.True(t, testutil.Get(t, env.Store, domain.UserPath("demo-user-20")).Exists())
}
