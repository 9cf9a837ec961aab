package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tesso57/feedrelay/internal/application/settings"
	"github.com/tesso57/feedrelay/internal/application/usecase"
	"github.com/tesso57/feedrelay/internal/infrastructure/broadcast"
	"github.com/tesso57/feedrelay/internal/infrastructure/config"
	"github.com/tesso57/feedrelay/internal/infrastructure/feed"
	"github.com/tesso57/feedrelay/internal/infrastructure/logging"
	"github.com/tesso57/feedrelay/internal/infrastructure/metrics"
	"github.com/tesso57/feedrelay/internal/infrastructure/store"
	"github.com/tesso57/feedrelay/internal/presentation/command"
	"github.com/tesso57/feedrelay/internal/presentation/httpapi"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd runs the relay.
type ServeCmd struct{}

// Run starts polling, restores subscriptions and serves HTTP until interrupted.
func (ServeCmd) Run(g *Globals) error {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return err
	}
	s := cfg.Settings

	log, err := logging.New(s.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := store.Open(s.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	broadcaster, closeBroadcaster, err := newBroadcaster(ctx, s.Broadcast, log.Named("broadcast"))
	if err != nil {
		return err
	}
	defer closeBroadcaster()

	poller := feed.NewPoller(feed.PollerOptions{
		UserAgent:    s.UserAgent,
		FetchTimeout: s.Timeout,
		Log:          log.Named("poller"),
	})
	defer poller.Close()

	mgr := usecase.NewManager(usecase.Dependencies{
		Poller:      poller,
		Broadcaster: broadcaster,
		Store:       db,
		Recorder:    metrics.Recorder{},
		Log:         log,
	}, usecase.Options{Timeout: s.Timeout, Refresh: s.Refresh})

	restored, err := mgr.Subscriptions.Restore(ctx)
	if err != nil {
		return err
	}
	log.Info("subscriptions restored",
		zap.Int("subscriptions", restored),
		zap.Int("sources", mgr.Registry.Len()),
		zap.String("config", cfg.Path()))

	srv := &http.Server{
		Addr:              s.Listen,
		Handler:           httpapi.NewRouter(command.NewHandler(mgr.Subscriptions, log.Named("command")), log.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("listening", zap.String("addr", s.Listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		// no job may reach the router once it starts draining
		poller.Close()
		mgr.Shutdown(shutdownCtx)
		return err
	})
	return group.Wait()
}

func newBroadcaster(ctx context.Context, cfg settings.BroadcastConfig, log *zap.Logger) (usecase.Broadcaster, func(), error) {
	switch cfg.Mode {
	case settings.BroadcastRedis:
		r, err := broadcast.NewRedis(cfg.RedisURL, cfg.StreamPrefix, log)
		if err != nil {
			return nil, nil, fmt.Errorf("redis broadcaster: %w", err)
		}
		if err := r.Ping(ctx); err != nil {
			_ = r.Close()
			return nil, nil, fmt.Errorf("redis broadcaster: %w", err)
		}
		return r, func() { _ = r.Close() }, nil
	default:
		return broadcast.NewLog(log), func() {}, nil
	}
}
