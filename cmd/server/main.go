package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/app"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/auth"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/config"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/domain"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/httpapi"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/logger"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/seed"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/server"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/service/account"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/service/chat"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/service/discover"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/service/match"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/service/session"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCtx, closeApp, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error("failed to init app", "err", err)
		return
	}
	defer closeApp()

	registrars := []server.Registrar{
		discover.NewRegistrar(appCtx),
		match.NewRegistrar(appCtx),
		chat.NewRegistrar(appCtx),
		account.NewRegistrar(appCtx),
	}

	// sign-up and sign-in only exist when this server issues the tokens
	var sessions *session.Service
	var accounts seed.Accounts
	if local, ok := appCtx.Auth.(*auth.LocalProvider); ok {
		registrars = append(registrars, session.NewRegistrar(appCtx, local))
		sessions = session.NewSessionService(appCtx, local)
		accounts = local
	}

	if cfg.App.ENV == "development" {
		seedIfEmpty(ctx, appCtx, accounts)
	}

	grpcServer := server.NewGRPCServer(appCtx.Auth, log, registrars...)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting gRPC server", "addr", cfg.GRPC.Host+":"+cfg.GRPC.Port)
		return server.StartGRPCServer(ctx, cfg, grpcServer)
	})

	if cfg.HTTP.Addr != "" {
		httpServer := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           httpapi.NewRouter(appCtx, cfg.HTTP.AllowedOrigins, sessions),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			log.Info("starting HTTP server", "addr", cfg.HTTP.Addr)
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	if cfg.Reconcile.Interval > 0 {
		g.Go(func() error {
			log.Info("starting reconciler", "interval", cfg.Reconcile.Interval)
			match.NewReconciler(appCtx.Store, log, appCtx.Now, appCtx.InvalidateBadges).RunEvery(ctx, cfg.Reconcile.Interval)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("server stopped", "err", err)
		return
	}
	log.Info("server stopped")
}

// seedIfEmpty fills an empty development tree with demo data.
func seedIfEmpty(ctx context.Context, appCtx *app.AppContext, accounts seed.Accounts) {
	users, err := appCtx.Store.Get(ctx, domain.UsersRoot)
	if err != nil {
		appCtx.Logger.Error("failed to check for existing users", "err", err)
		return
	}
	if users.Exists() {
		return
	}

	if _, err := seed.Run(ctx, appCtx.Store, accounts, appCtx.Logger, time.Now().UnixNano()); err != nil {
		appCtx.Logger.Error("failed to seed", "err", err)
	}
}
