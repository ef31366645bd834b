// Package main wires together the plugin service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/SirMem/xhs-frontend/internal/api"
	"github.com/SirMem/xhs-frontend/internal/backend"
	"github.com/SirMem/xhs-frontend/internal/clock/system"
	"github.com/SirMem/xhs-frontend/internal/config"
	"github.com/SirMem/xhs-frontend/internal/table/lark"
	"github.com/SirMem/xhs-frontend/internal/logging"
	"github.com/SirMem/xhs-frontend/internal/metrics"
	"github.com/SirMem/xhs-frontend/internal/orchestrator"
	"github.com/SirMem/xhs-frontend/internal/poller"
	"github.com/SirMem/xhs-frontend/internal/progress"
	"github.com/SirMem/xhs-frontend/internal/reconciler"
	"github.com/SirMem/xhs-frontend/internal/resolver"
	"github.com/SirMem/xhs-frontend/internal/session"
	"github.com/SirMem/xhs-frontend/internal/table/tablemem"
	"github.com/SirMem/xhs-frontend/internal/xhs"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	store, err := session.OpenSQLite(ctx, cfg.Session.DBPath)
	if err != nil {
		logger.Fatal("open session store failed", zap.Error(err))
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Error("close session store failed", zap.Error(closeErr))
		}
	}()
	sess := session.New(ctx, store, logger.Named("session"))

	client := backend.New(cfg.Backend.BaseURL, logger.Named("backend"))
	clock := system.New()

	var table xhs.Table
	if cfg.Lark.AppToken != "" {
		larkTable, larkErr := lark.New(lark.Config{
			BaseURL:   cfg.Lark.BaseURL,
			AppID:     cfg.Lark.AppID,
			AppSecret: cfg.Lark.AppSecret,
			AppToken:  cfg.Lark.AppToken,
			TableID:   cfg.Lark.TableID,
		}, logger.Named("lark"))
		if larkErr != nil {
			logger.Fatal("lark table init failed", zap.Error(larkErr))
		}
		table = larkTable
	} else {
		logger.Warn("no lark app token configured, using in-memory table")
		table = tablemem.New()
	}

	res := resolver.New(client, resolver.Config{
		NameMarker:   cfg.Artifact.NameMarker,
		PreviewLimit: cfg.Artifact.PreviewLimit,
		FileType:     cfg.Artifact.FileType,
	}, logger.Named("resolver"))

	runLog := progress.NewLog()
	orch := orchestrator.New(
		client,
		table,
		res,
		reconciler.New(table, logger.Named("reconciler")),
		sess,
		runLog,
		logger.Named("orchestrator"),
		orchestrator.Options{
			PollConfig: poller.Config{
				MaxAttempts:    cfg.Poll.MaxAttempts,
				Interval:       cfg.PollInterval(),
				HeartbeatEvery: cfg.Poll.HeartbeatEvery,
			},
			Clock: clock,
		},
	)

	apiServer := api.NewServer(orch, client, sess, table, runLog, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
