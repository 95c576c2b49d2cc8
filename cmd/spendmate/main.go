package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"spendmate/internal/auth"
	"spendmate/internal/cache"
	"spendmate/internal/cli"
	"spendmate/internal/core"
	apphttp "spendmate/internal/http"
	"spendmate/internal/ledger"
	"spendmate/internal/log"
	"spendmate/internal/middleware/ratelimit"
	"spendmate/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	res := cli.OpenBackend(ctx, logger, cfg)

	state := auth.NewState(logger)
	client := ledger.NewClient(res.Store, logger)
	manager := ledger.NewManager(client, state, cfg.CacheLinger)

	profiles := cache.NewLRUCache[core.UserProfile](cfg.ProfileCacheSize, cfg.ProfileCacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(profiles)
	caches.StartCleanup(time.Minute)

	svc := services.NewLedgerService(client, manager, state, profiles, logger)
	srv := apphttp.NewServer(":"+cfg.Port, svc, state, apphttp.Options{
		Logger:    logger,
		Currency:  cfg.Currency,
		Ready:     res.Ready,
		RateLimit: ratelimit.DefaultConfig(),
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := res.Follow(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("follow remote changes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting spendmate server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve on port %s: %w", cfg.Port, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		cli.RunCleanup(logger, 30*time.Second, srv.Shutdown)
		return nil
	})

	err := g.Wait()
	cli.Teardown(logger,
		func() error { caches.Stop(); return nil },
		func() error { manager.Close(); return nil },
		res.Cleanup,
	)
	if err != nil {
		logger.Error("Server error", log.FieldError, err)
		stop()
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
