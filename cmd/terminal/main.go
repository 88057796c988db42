package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cafepos/terminal/internal/cashsession"
	"github.com/cafepos/terminal/internal/config"
	"github.com/cafepos/terminal/internal/coordinator"
	"github.com/cafepos/terminal/internal/gateway"
	"github.com/cafepos/terminal/internal/logging"
	"github.com/cafepos/terminal/internal/poller"
	"github.com/cafepos/terminal/internal/router"
	"github.com/cafepos/terminal/internal/rpc"
	"github.com/cafepos/terminal/internal/state"
	"github.com/cafepos/terminal/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	lg, closeLog, err := logging.New(cfg.Log.File, cfg.Log.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Error("Terminal stopped", zap.Error(err))
		closeLog()
		os.Exit(1)
	}
}

// run wires the terminal agent and blocks until ctx is cancelled or one
// of the server, hub or poller fails.
func run(ctx context.Context, cfg *config.Config, lg *zap.Logger) error {
	caller, closeCaller, err := newCaller(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer closeCaller()

	st := state.New()
	gw := gateway.New(caller, lg)
	sessions := cashsession.NewManager(gw, st, lg)
	coord := coordinator.New(gw, sessions, st, lg)
	hub := ws.NewHub(lg)
	p := poller.New(coord, poller.NewHubNotifier(hub, lg.Named("notify")), st, poller.Config{
		Interval:    cfg.Poll.Interval,
		NotifiedCap: cfg.Poll.NotifiedCap,
	}, lg.Named("poller"))

	server := &http.Server{
		Addr:              cfg.Addr,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       10 * time.Second,
		// Backend calls may take up to Backend.Timeout.
		WriteTimeout: cfg.Backend.Timeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
		Handler: router.New(cfg, router.Services{
			Gateway:     gw,
			Sessions:    sessions,
			Coordinator: coord,
			Poller:      p,
			State:       st,
			Hub:         hub,
		}, lg),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(ctx) })
	g.Go(func() error { return p.Run(ctx) })
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr), zap.String("backend", cfg.Backend.Mode))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	return g.Wait()
}

// newCaller builds the transport selected by Backend.Mode.
func newCaller(ctx context.Context, cfg *config.Config, lg *zap.Logger) (rpc.Caller, func(), error) {
	switch cfg.Backend.Mode {
	case config.ModePostgres:
		pool, err := rpc.NewPool(ctx, cfg.Backend.DatabaseURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create db pool")
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, errors.Wrap(err, "ping database")
		}
		caller := rpc.NewPostgresCaller(pool, cfg.Backend.Schema, lg).WithTimeout(cfg.Backend.Timeout)
		return caller, pool.Close, nil
	default:
		caller := rpc.NewHTTPCaller(rpc.HTTPConfig{
			BaseURL: cfg.Backend.URL,
			APIKey:  cfg.Backend.APIKey,
			Timeout: cfg.Backend.Timeout,
		}, lg)
		return caller, func() {}, nil
	}
}
