// Command ledger edits and inspects a user's ledger from the terminal,
// against the same store the server uses.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path"

	"github.com/google/subcommands"

	"spendmate/internal/cli"
	"spendmate/internal/config"
	"spendmate/internal/log"
)

func main() {
	cli.LoadEnvFile()

	level, err := log.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || os.Getenv("LOG_LEVEL") == "" {
		level = slog.LevelWarn
	}
	logger := log.New(log.Config{Level: level, Output: os.Stderr, Component: log.ComponentApp})

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	a := &app{cfg: cfg, logger: logger, out: os.Stdout, errw: os.Stderr}

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	for _, c := range commands {
		commander.Register(c, "ledger")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background(), a)))
}
