package discover_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/domain"
	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/service/discover"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/testutil"
)

// setupService seeds three complete profiles:
//   - alice (woman seeking men)
//   - bob, carl (men seeking women)
func setupService(t *testing.T) (*discover.Service, *testutil.Env) {
	t.Helper()
	env := testutil.NewEnv(t)
	testutil.PutProfiles(t, env.Store,
		testutil.Profile("alice", "Alice", 29, domain.GenderFemale, domain.SeekingMen),
		testutil.Profile("bob", "Bob", 31, domain.GenderMale, domain.SeekingWomen),
		testutil.Profile("carl", "Carl", 45, domain.GenderMale, domain.SeekingWomen),
	)
	return discover.NewDiscoverService(env.App), env
}

func TestListCandidates(t *testing.T) {
	svc, env := setupService(t)
	ctx := testutil.As("alice")

	resp, err := svc.ListCandidates(ctx, &discover.ListCandidatesRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carl"}, ids(resp.Profiles))

	// a like hides the target on the next evaluation
	require.NoError(t, env.Store.Set(context.Background(), domain.SelfLikePath("alice", "bob"), true))
	resp, err = svc.ListCandidates(ctx, &discover.ListCandidatesRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"carl"}, ids(resp.Profiles))

	resp, err = svc.ListCandidates(ctx, &discover.ListCandidatesRequest{Filters: discover.Filters{MaxAge: 40}})
	require.NoError(t, err)
	assert.Empty(t, resp.Profiles)
}

func TestListCandidates_Errors(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.ListCandidates(context.Background(), &discover.ListCandidatesRequest{})
	assert.ErrorIs(t, err, svcErr.ErrUnauthenticated)

	_, err = svc.ListCandidates(testutil.As("alice"), &discover.ListCandidatesRequest{Filters: discover.Filters{MinAge: 50, MaxAge: 20}})
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)
}

func TestPassAndCountries(t *testing.T) {
	svc, env := setupService(t)
	ctx := testutil.As("alice")

	_, err := svc.Pass(ctx, &discover.PassRequest{TargetUserID: "carl"})
	require.NoError(t, err)
	assert.True(t, testutil.Get(t, env.Store, domain.PassPath("alice", "carl")).Bool())

	_, err = svc.Pass(ctx, &discover.PassRequest{TargetUserID: "alice"})
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)

	resp, err := svc.Countries(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.AllCountries, "France"}, resp.Countries)
}

func TestWatchCandidates(t *testing.T) {
	svc, env := setupService(t)
	ctx, cancel := context.WithCancel(testutil.As("alice"))
	defer cancel()

	got := make(chan []string, 8)
	done := make(chan error, 1)
	go func() {
		done <- svc.WatchCandidates(ctx, &discover.ListCandidatesRequest{}, func(r *discover.ListCandidatesResponse) error {
			got <- ids(r.Profiles)
			return nil
		})
	}()

	assert.Equal(t, []string{"bob", "carl"}, next(t, got))

	// a conversation with carl counts as matched
	require.NoError(t, env.Store.Set(context.Background(), domain.MetaPath("alice", domain.ConversationID("alice", "carl")),
		domain.ConversationMeta{ParticipantID: "carl", Timestamp: 1}))
	assert.Equal(t, []string{"bob"}, next(t, got))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func next(t *testing.T, ch <-chan []string) []string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for candidates")
		return nil
	}
}
