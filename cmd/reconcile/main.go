package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/app"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/config"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/logger"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/service/match"
)

// reconcile runs one repair pass over the likes and conversation mirrors of
// every user and exits non-zero when the pass fails.
func main() {
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCtx, closeApp, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error("failed to init app", "err", err)
		os.Exit(1)
	}
	defer closeApp()

	rep, err := match.NewReconciler(appCtx.Store, log, appCtx.Now, appCtx.InvalidateBadges).Run(ctx)
	if err != nil {
		log.Error("reconciliation failed", "err", err)
		closeApp()
		os.Exit(1)
	}
	log.Info("reconciliation completed", "repairs", rep.Total(), "report", rep)
}
