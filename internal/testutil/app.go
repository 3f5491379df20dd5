package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/app"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/attachments"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/auth"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/domain"
	applog "github.com/martinotbusiness97-crypto/martiloveconect/internal/logger"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/tree"
)

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock { return &Clock{now: start} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Env is a fully wired AppContext over in-memory backends.
type Env struct {
	App    *app.AppContext
	Store  *tree.SQLStore
	Events *Recorder
	Redis  *miniredis.Miniredis
	Clock  *Clock
}

// NewEnv wires an AppContext on SQLite + miniredis with a local auth
// provider, recorded events and a fixed clock.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	database := OpenDB(t)
	mr, rc := NewRedis(t)
	log := applog.Discard()
	store := tree.NewSQLStore(database, tree.NewLocalNotifier(log), log)

	clock := NewClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	rec := &Recorder{}

	appCtx := app.New(database, rc, log)
	appCtx.Store = store
	appCtx.Events = rec
	appCtx.Auth = auth.NewLocalProvider(store, "test-secret", time.Hour).WithCost(4).WithClock(clock.Now)
	appCtx.Files = attachments.NewEncoder(nil, attachments.DefaultInlineLimit, attachments.DefaultMaxBytes)
	appCtx.Now = clock.Now

	return &Env{App: appCtx, Store: store, Events: rec, Redis: mr, Clock: clock}
}

// As returns a context authenticated as uid.
func As(uid string) context.Context {
	return auth.WithUserID(context.Background(), uid)
}

// Profile is a complete, public profile used as a starting point in tests.
func Profile(id, name string, age int, gender, seeking string) domain.Profile {
	return domain.Profile{
		ID:         id,
		Name:       name,
		Age:        age,
		Gender:     gender,
		Seeking:    seeking,
		Country:    "France",
		Interests:  []string{domain.DefaultInterest},
		Interest:   domain.DefaultInterest,
		IsComplete: true,
		Settings:   domain.DefaultSettings(),
	}
}

// PutProfiles writes profiles directly to the unguarded store.
func PutProfiles(t *testing.T, store tree.Store, profiles ...domain.Profile) {
	t.Helper()
	for _, p := range profiles {
		require.NoError(t, store.Set(context.Background(), domain.UserPath(p.ID), p))
	}
}

// Get reads path from the unguarded store.
func Get(t *testing.T, store tree.Store, path string) tree.Snapshot {
	t.Helper()
	snap, err := store.Get(context.Background(), path)
	require.NoError(t, err)
	return snap
}

// Meta decodes a ConversationMeta; ok is false when the record is absent.
func Meta(t *testing.T, store tree.Store, uid, conv string) (domain.ConversationMeta, bool) {
	t.Helper()
	var m domain.ConversationMeta
	snap := Get(t, store, domain.MetaPath(uid, conv))
	require.NoError(t, snap.Unmarshal(&m))
	return m, snap.Exists()
}
