package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path"

	"github.com/JonMunkholm/stockload/internal/application"
	"github.com/JonMunkholm/stockload/internal/config"
	"github.com/JonMunkholm/stockload/internal/core"
	"github.com/JonMunkholm/stockload/internal/logging"
	"github.com/google/subcommands"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env file if it exists (Overload overwrites existing env vars)
	envErr := godotenv.Overload()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return 1
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if envErr == nil {
		slog.Debug("loaded .env file")
	}
	slog.Debug("configuration loaded", "config", cfg.String())

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		return 1
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		return 1
	}
	defer pool.Close()

	service, err := core.NewService(pool, cfg)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		return 1
	}

	app := &application.App{
		Service: service,
		Config:  cfg,
		Migrate: func(ctx context.Context) error { return core.EnsureSchema(ctx, pool) },
		In:      os.Stdin,
		Out:     os.Stdout,
	}

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	for _, c := range app.Commands() {
		commander.Register(c, "")
	}

	flag.Parse()

	if cfg.Load.AutoMigrate && needsSchema(flag.Arg(0)) {
		if err := app.Migrate(ctx); err != nil {
			slog.Error("failed to create schema", "error", err)
			return 1
		}
	}

	return int(commander.Execute(ctx))
}

// needsSchema reports whether the named command touches the stock tables.
func needsSchema(command string) bool {
	switch command {
	case "load", "loads", "revert", "menu", "serve":
		return true
	}
	return false
}
