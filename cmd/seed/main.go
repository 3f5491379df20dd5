package main

import (
	"context"
	"os"
	"time"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/app"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/auth"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/config"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/logger"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/seed"
)

func main() {
	// Load configuration
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L()

	ctx := context.Background()
	appCtx, closeApp, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error("failed to init app", "err", err)
		os.Exit(1)
	}
	defer closeApp()

	var accounts seed.Accounts
	if local, ok := appCtx.Auth.(*auth.LocalProvider); ok {
		accounts = local
	}

	res, err := seed.Run(ctx, appCtx.Store, accounts, log, time.Now().UnixNano())
	if err != nil {
		log.Error("failed to seed", "err", err)
		closeApp()
		os.Exit(1)
	}

	log.Info("seeding completed", "users", len(res.Users), "likes", res.Likes, "matches", res.Matches, "messages", res.Messages)
}
