package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"spendmate/internal/auth"
	"spendmate/internal/cli"
	"spendmate/internal/ledger"
	"spendmate/internal/log"
	gsheet "spendmate/internal/sheets/google"
	"spendmate/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting spendmate-mirror")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateMirror(); err != nil {
		logger.Error("Mirror configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	mirror, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	res := cli.OpenBackend(ctx, logger, cfg)

	state := auth.NewState(logger)
	state.SignIn(cfg.MirrorUserID, "")
	manager := ledger.NewManager(ledger.NewClient(res.Store, logger), state, cfg.CacheLinger)

	w := worker.NewMirrorWorker(manager, mirror, cfg.Currency, cfg.MirrorInterval, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := res.Follow(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("follow remote changes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return w.Run(gctx)
	})

	err = g.Wait()
	cli.Teardown(logger,
		func() error { manager.Close(); return nil },
		res.Cleanup,
	)
	if err != nil {
		logger.Error("Mirror stopped", log.FieldError, err)
		stop()
		os.Exit(1)
	}
	logger.Info("Mirror shutdown complete")
}
