package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/attachments"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/auth"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/cache"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/config"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/db"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/events"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/firebaseapp"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/tree"
)

// Build wires an AppContext from config. The returned close func releases
// the connections Build opened; it is safe to call when Build failed.
//
// Wiring:
//   - tree.backend "sql" stores the tree in the database, "firebase" in the
//     hosted Realtime Database.
//   - tree.notifier "redis" fans changes out across instances, "local"
//     only inside the process.
//   - auth.mode "local" issues its own tokens, "firebase" verifies ID tokens.
//   - Attachments go to MinIO when an endpoint is set.
//   - Events always reach the log, and the AMQP exchange when a URL is set.
func Build(ctx context.Context, cfg *config.Config, log *slog.Logger) (*AppContext, func(), error) {
	var closers []func() error
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn("close failed", "err", err)
			}
		}
	}
	fail := func(err error) (*AppContext, func(), error) {
		closeAll()
		return nil, func() {}, err
	}

	redisCache := cache.NewRedisCache(cfg)
	closers = append(closers, redisCache.Client.Close)
	if err := redisCache.Ping(ctx); err != nil {
		return fail(fmt.Errorf("failed to connect to redis: %w", err))
	}

	var fbApp *firebase.App
	firebaseApp := func() (*firebase.App, error) {
		if fbApp != nil {
			return fbApp, nil
		}
		var err error
		fbApp, err = firebaseapp.New(ctx, cfg)
		return fbApp, err
	}

	var notifier tree.Notifier
	switch cfg.Tree.Notifier {
	case "redis":
		notifier = tree.NewRedisNotifier(redisCache.Client, log)
	case "local":
		notifier = tree.NewLocalNotifier(log)
	default:
		return fail(fmt.Errorf("unsupported tree notifier %q", cfg.Tree.Notifier))
	}

	appCtx := New(nil, redisCache, log)
	switch cfg.Tree.Backend {
	case "sql":
		database, err := db.NewDB(cfg)
		if err != nil {
			return fail(fmt.Errorf("failed to init db: %w", err))
		}
		if sqlDB, err := database.DB(); err == nil {
			closers = append(closers, sqlDB.Close)
		}
		appCtx.DB = database
		appCtx.Store = tree.NewSQLStore(database, notifier, log)
	case "firebase":
		fa, err := firebaseApp()
		if err != nil {
			return fail(err)
		}
		client, err := fa.Database(ctx)
		if err != nil {
			return fail(fmt.Errorf("firebase: database client: %w", err))
		}
		appCtx.Store = tree.NewFirebaseStore(client, cfg.Tree.PollInterval, log)
	default:
		return fail(fmt.Errorf("unsupported tree backend %q", cfg.Tree.Backend))
	}

	switch cfg.Auth.Mode {
	case "local":
		if cfg.App.ENV != "development" && cfg.Auth.JWTSecret == "change-me-in-production" {
			return fail(errors.New("JWT_SECRET must be set outside development"))
		}
		appCtx.Auth = auth.NewLocalProvider(appCtx.Store, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	case "firebase":
		fa, err := firebaseApp()
		if err != nil {
			return fail(err)
		}
		client, err := fa.Auth(ctx)
		if err != nil {
			return fail(fmt.Errorf("firebase: auth client: %w", err))
		}
		appCtx.Auth = auth.NewFirebaseVerifier(client, cfg.Auth.RecentLogin)
	default:
		return fail(fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode))
	}

	var objects attachments.ObjectStore
	if cfg.Storage.MinioEndpoint != "" {
		m, err := attachments.NewMinioStore(ctx, cfg.Storage.MinioEndpoint, cfg.Storage.MinioAccessKey,
			cfg.Storage.MinioSecretKey, cfg.Storage.MinioBucket, cfg.Storage.MinioUseSSL)
		if err != nil {
			return fail(err)
		}
		objects = m
	}
	appCtx.Files = attachments.NewEncoder(objects, cfg.Storage.InlineLimit, cfg.Storage.MaxUploadBytes)

	sinks := events.Fanout{events.NewLogPublisher(log)}
	if cfg.AMQP.URL != "" {
		pub, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, pub.Close)
		sinks = append(sinks, pub)
	}
	appCtx.Events = events.NewPreferenceGate(appCtx.Store, sinks)

	return appCtx, closeAll, nil
}
