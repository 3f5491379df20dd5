package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/auth"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/domain"
	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/testutil"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/tree"
)

func newProvider(t *testing.T) (*auth.LocalProvider, *tree.SQLStore) {
	t.Helper()
	store := testutil.NewStore(t)
	return auth.NewLocalProvider(store, "test-secret", time.Hour).WithCost(bcrypt.MinCost), store
}

func TestLocal_SignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	p, store := newProvider(t)

	sess, err := p.SignUp(ctx, " Alice@Example.com ", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, sess.UID)
	require.NotEmpty(t, sess.Token)

	id, err := p.Verify(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.UID, id.UID)

	again, err := p.SignIn(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, sess.UID, again.UID)

	_, err = p.SignIn(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, svcErr.ErrUnauthenticated)
	_, err = p.SignIn(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, svcErr.ErrUnauthenticated)

	// the password hash is never stored in clear
	hash, err := store.Get(ctx, tree.Join(domain.CredentialPath(sess.UID), "passwordHash"))
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash.String())
}

func TestLocal_SignUpValidation(t *testing.T) {
	ctx := context.Background()
	p, _ := newProvider(t)

	_, err := p.SignUp(ctx, "not-an-email", "secret1")
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)

	_, err = p.SignUp(ctx, "bob@example.com", "12345")
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)

	_, err = p.SignUp(ctx, "bob@example.com", "123456")
	require.NoError(t, err)
	_, err = p.SignUp(ctx, "BOB@example.com", "654321")
	assert.ErrorIs(t, err, svcErr.ErrAlreadyExists)
}

func TestLocal_TokenExpiryAndTampering(t *testing.T) {
	ctx := context.Background()
	p, _ := newProvider(t)

	now := time.Now()
	p.WithClock(func() time.Time { return now })

	sess, err := p.SignUp(ctx, "carol@example.com", "secret1")
	require.NoError(t, err)

	_, err = p.Verify(ctx, sess.Token+"x")
	assert.ErrorIs(t, err, svcErr.ErrUnauthenticated)

	other := auth.NewLocalProvider(testutil.NewStore(t), "other-secret", time.Hour)
	_, err = other.Verify(ctx, sess.Token)
	assert.ErrorIs(t, err, svcErr.ErrUnauthenticated)

	now = now.Add(2 * time.Hour)
	_, err = p.Verify(ctx, sess.Token)
	assert.ErrorIs(t, err, svcErr.ErrUnauthenticated)
}

func TestLocal_ChangePasswordAndDelete(t *testing.T) {
	ctx := context.Background()
	p, _ := newProvider(t)

	sess, err := p.SignUp(ctx, "dave@example.com", "secret1")
	require.NoError(t, err)

	assert.ErrorIs(t, p.ChangePassword(ctx, sess.UID, "secret1", "short"), svcErr.ErrInvalidArgument)
	assert.ErrorIs(t, p.ChangePassword(ctx, sess.UID, "wrong", "secret2"), svcErr.ErrPermissionDenied)
	require.NoError(t, p.ChangePassword(ctx, sess.UID, "secret1", "secret2"))

	_, err = p.SignIn(ctx, "dave@example.com", "secret1")
	assert.ErrorIs(t, err, svcErr.ErrUnauthenticated)
	_, err = p.SignIn(ctx, "dave@example.com", "secret2")
	require.NoError(t, err)

	require.NoError(t, p.DeleteUser(ctx, sess.UID))
	_, err = p.Verify(ctx, sess.Token)
	assert.ErrorIs(t, err, svcErr.ErrUnauthenticated)

	// the email is free again
	_, err = p.SignUp(ctx, "dave@example.com", "secret3")
	require.NoError(t, err)
}

func TestCheckRecent(t *testing.T) {
	now := time.Now()
	fresh := auth.Identity{UID: "u1", AuthTime: now.Add(-time.Minute)}
	stale := auth.Identity{UID: "u1", AuthTime: now.Add(-time.Hour)}

	assert.NoError(t, auth.CheckRecent(fresh, "u1", now, 5*time.Minute))
	assert.ErrorIs(t, auth.CheckRecent(stale, "u1", now, 5*time.Minute), svcErr.ErrRecentLoginRequired)
	assert.NoError(t, auth.CheckRecent(stale, "u1", now, 0))
	assert.ErrorIs(t, auth.CheckRecent(fresh, "u2", now, 5*time.Minute), svcErr.ErrPermissionDenied)
}

func TestBearerToken(t *testing.T) {
	tok, ok := auth.BearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", tok)

	tok, ok = auth.BearerToken("bearer   xyz ")
	assert.True(t, ok)
	assert.Equal(t, "xyz", tok)

	for _, h := range []string{"", "Bearer", "Bearer ", "Basic abc"} {
		_, ok = auth.BearerToken(h)
		assert.False(t, ok, h)
	}
}

func TestUserIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", auth.UserID(ctx))
	assert.Equal(t, "u1", auth.UserID(auth.WithUserID(ctx, "u1")))
}
