package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	drepo "PulseFeed/internal/domain/repository"
	"PulseFeed/internal/usecase"
	pkgch "PulseFeed/pkg/clickhouse"
	"PulseFeed/pkg/config"
	xhttp "PulseFeed/pkg/http"
	applogger "PulseFeed/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	watcher     *usecase.Watcher
	chClient    *pkgch.Client
	pub         drepo.Publisher
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	l           *applogger.Logger
}

// New creates a new App instance with all dependencies. watcher and pub may
// be nil when the stream or the Kafka export is not configured.
func New(
	cfg *config.Config,
	watcher *usecase.Watcher,
	chClient *pkgch.Client,
	pub drepo.Publisher,
	handler xhttp.Handler,
	l *applogger.Logger,
) *App {
	return &App{
		cfg:         cfg,
		watcher:     watcher,
		chClient:    chClient,
		pub:         pub,
		httpHandler: handler,
		l:           l,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithRequestMetrics(a.l, a.cfg.Server.SlowThreshold),
	)

	if a.watcher != nil {
		go func() {
			if err := a.watcher.Start(ctx); err != nil {
				a.l.Error("watcher error", applogger.Error(err))
			}
		}()
		a.l.Info("watcher started", applogger.String("address", a.cfg.Solana.WatchAddress))
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.watcher != nil {
		if err := a.watcher.Shutdown(ctx); err != nil {
			a.l.Warn("watcher stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	if a.pub != nil {
		if err := a.pub.Close(); err != nil {
			a.l.Warn("publisher close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
