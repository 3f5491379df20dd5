package app

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/attachments"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/auth"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/cache"
	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/events"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/logger"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/tree"
)

// AppContext holds shared dependencies (DB, Redis, Logger, tree store, etc.)
//
// Store is the unguarded tree. Services act on behalf of a user through
// StoreFor, which applies the permission rules of that user.
type AppContext struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger

	Store  tree.Store
	Events events.Publisher
	Auth   auth.Provider
	Files  *attachments.Encoder
	Now    func() time.Time
}

// New creates a new AppContext. The tree store, auth provider and attachment
// encoder are set by the caller; events default to the log.
func New(db *gorm.DB, rdb *cache.RedisCache, log *slog.Logger) *AppContext {
	return &AppContext{
		DB:         db,
		RedisCache: rdb,
		Logger:     log,
		Events:     events.NewLogPublisher(log),
		Files:      attachments.NewEncoder(nil, attachments.DefaultInlineLimit, attachments.DefaultMaxBytes),
		Now:        time.Now,
	}
}

// StoreFor returns the tree as seen by the authenticated caller of ctx.
func (a *AppContext) StoreFor(ctx context.Context) (*tree.Guard, string, error) {
	uid := auth.UserID(ctx)
	if uid == "" {
		return nil, "", svcErr.ErrUnauthenticated
	}
	return tree.NewGuard(a.Store, uid), uid, nil
}

// Log returns the request-scoped logger of ctx, or the application logger.
func (a *AppContext) Log(ctx context.Context) *slog.Logger {
	return logger.FromContext(ctx, a.Logger)
}

// NowMillis is the current time in Unix milliseconds.
func (a *AppContext) NowMillis() int64 {
	return a.Now().UnixMilli()
}

// Emit publishes ev and logs a failure. Events never fail the operation
// that caused them.
func (a *AppContext) Emit(ctx context.Context, ev events.Event) {
	if a.Events == nil {
		return
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = a.NowMillis()
	}
	if err := a.Events.Publish(ctx, ev); err != nil {
		a.Log(ctx).Warn("event publish failed", "kind", ev.Kind, "user", ev.UserID, "err", err)
	}
}

// InvalidateBadges drops cached badge counters; failures only log.
func (a *AppContext) InvalidateBadges(ctx context.Context, userIDs ...string) {
	if a.RedisCache == nil {
		return
	}
	if err := a.RedisCache.InvalidateBadges(ctx, userIDs...); err != nil {
		a.Log(ctx).Warn("badge cache invalidation failed", "users", userIDs, "err", err)
	}
}
