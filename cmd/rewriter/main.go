package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/phoenixlab/rewriter/internal/app"
	"github.com/phoenixlab/rewriter/internal/config"
	"github.com/phoenixlab/rewriter/internal/logger"
	"github.com/phoenixlab/rewriter/internal/server"
)

func main() {
	mode := flag.String("mode", "serve", "serve | feeds | feed-loop")
	flag.Parse()

	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}

	svc, err := app.New(cfg)
	if err != nil {
		logger.Error("service init failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "feeds":
		// One pass, for cron style scheduling.
		if err := svc.RunFeedsOnce(ctx); err != nil {
			logger.Error("feed pass failed", "error", err)
			os.Exit(1)
		}
	case "feed-loop":
		svc.RunFeedLoop(ctx)
	case "serve":
		srv := server.New(svc, svc.Tokens(), svc.History(), svc.UploadsDir())
		if err := srv.ListenAndServe(ctx, cfg.Port); err != nil {
			logger.Error("http server stopped", "error", err)
			os.Exit(1)
		}
		logger.Info("shutdown complete")
	default:
		logger.Error("unknown mode", "mode", *mode)
		os.Exit(1)
	}
}
