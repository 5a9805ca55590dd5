// Command edlsync runs the offline-first field-inspection core: the
// local record store, the sync engine, and the loopback API the UI
// shell talks to.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rpacode/edlsync/internal/config"
	"github.com/rpacode/edlsync/internal/engine"
	"github.com/rpacode/edlsync/internal/logger"
	"github.com/rpacode/edlsync/internal/model"
	"github.com/rpacode/edlsync/internal/remote"
	"github.com/rpacode/edlsync/internal/server"
	"github.com/rpacode/edlsync/internal/store"
	"github.com/rpacode/edlsync/internal/syncq"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.InitLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Log.Info("starting edlsync core")

	st, err := store.Open(cfg.DataDir)
	if err != nil {
		logger.Log.Fatal("failed to open local store", zap.Error(err))
	}
	defer st.Close()

	if err := seedAPIConfig(st, cfg); err != nil {
		logger.Log.Fatal("failed to seed api config", zap.Error(err))
	}

	queue := syncq.NewQueue(st)
	client := remote.NewClient(st)
	eng := engine.New(st, queue, client, cfg.Sync.AttemptCap)

	hub := server.NewHub()
	defer hub.Close()
	eng.SetEvents(hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := engine.NewScheduler(eng, st, engine.SchedulerConfig{
		SyncInterval:        cfg.Sync.GetInterval(),
		MaintenanceSchedule: cfg.Maintenance.Schedule,
		RetentionDays:       cfg.Maintenance.RetentionDays,
	})
	if cfg.Sync.AutoSync {
		if err := sched.Start(ctx); err != nil {
			logger.Log.Fatal("failed to start scheduler", zap.Error(err))
		}
		defer sched.Stop()
	}

	handler := server.NewHandler(st, eng, hub)
	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: handler.Routes(),
	}

	go func() {
		logger.Log.Info("local api listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("local api failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("server shutdown failed", zap.Error(err))
	}
}

// seedAPIConfig writes the bootstrap API settings on first run. An
// apiConfig saved at runtime through the settings endpoint wins over
// the config file.
func seedAPIConfig(st *store.Store, cfg *config.Config) error {
	var existing model.APIConfig
	ok, err := st.GetSetting(model.SettingAPIConfig, &existing)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	return st.SetSetting(model.SettingAPIConfig, model.APIConfig{
		BaseURL:       cfg.API.BaseURL,
		TimeoutMs:     cfg.API.TimeoutMs,
		RetryAttempts: cfg.API.RetryAttempts,
		RetryDelayMs:  cfg.API.RetryDelayMs,
	})
}
