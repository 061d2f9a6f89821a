package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	drepo "MarketOverlay/internal/domain/repository"
	mid "MarketOverlay/internal/middleware"
	"MarketOverlay/internal/usecase"
	pkgch "MarketOverlay/pkg/clickhouse"
	"MarketOverlay/pkg/config"
	xhttp "MarketOverlay/pkg/http"
	applogger "MarketOverlay/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	hub        *usecase.ChartHub
	forward    *usecase.ForwardTestService
	pipe       *mid.FramePipeline
	kv         drepo.KVStore
	chClient   *pkgch.Client

	cancel context.CancelFunc
}

// New creates a new App. chClient may be nil when ClickHouse is disabled.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	hub *usecase.ChartHub,
	forward *usecase.ForwardTestService,
	pipe *mid.FramePipeline,
	kv drepo.KVStore,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		hub:        hub,
		forward:    forward,
		pipe:       pipe,
		kv:         kv,
		chClient:   chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	if err := a.Start(context.Background()); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Start launches background workers and the HTTP server.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	a.pipe.Start(ctx)
	if a.pipe.Enabled() {
		a.log.Info("frame export enabled")
	}

	a.forward.StartWatcher()
	a.log.Info("forward test watcher started", applogger.Duration("interval", a.cfg.ForwardTest.StatusInterval))

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	return nil
}

// Shutdown stops accepting connections, disposes every chart instance, then
// flushes exports and closes storage.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")
	var errs []error

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	a.hub.DisposeAll()
	a.forward.StopWatcher(ctx)
	a.pipe.Stop()
	if a.cancel != nil {
		a.cancel()
	}

	if err := a.kv.Close(); err != nil {
		a.log.Warn("kv store close error", applogger.Error(err))
		errs = append(errs, err)
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
