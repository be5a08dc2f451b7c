package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattjoyce/gatehouse/internal/config"
	"github.com/mattjoyce/gatehouse/internal/dispatch"
	"github.com/mattjoyce/gatehouse/internal/lock"
	"github.com/mattjoyce/gatehouse/internal/log"
	"github.com/mattjoyce/gatehouse/internal/secrets"
	"github.com/mattjoyce/gatehouse/internal/state"
	"github.com/mattjoyce/gatehouse/internal/storage"
	"github.com/mattjoyce/gatehouse/internal/webhook"
)

// openStore opens the configured store. The returned close func is never nil
// when err is nil.
func openStore(ctx context.Context, cfg *config.Config) (state.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := storage.OpenPostgres(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		return state.NewPostgresStore(pool), pool.Close, nil
	default:
		db, err := storage.OpenSQLite(ctx, cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return state.NewSQLiteStore(db), func() { _ = db.Close() }, nil
	}
}

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	path, err := config.Discover(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
		return 1
	}
	if *configPath == "" {
		fmt.Fprintf(os.Stderr, "Using discovered config: %s\n", path)
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("gatehouse starting", "version", version, "config", path, "store", cfg.Store.Driver)

	if cfg.Store.Driver == config.DriverSQLite {
		pidLock, err := lock.AcquirePIDLock(lock.StorePath(cfg.Store.Path))
		if err != nil {
			logger.Error("failed to acquire store lock (another instance may be running)", "error", err)
			return 1
		}
		defer func() { _ = pidLock.Release() }()
		logger.Info("acquired store lock", "path", pidLock.Path())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		return 1
	}
	defer closeStore()
	logger.Info("store opened", "driver", cfg.Store.Driver)

	for _, name := range cfg.UnresolvedSecrets() {
		logger.Warn("secret references an unset environment variable; its endpoint will answer 500", "secret", name)
	}

	webhookConfig, err := webhook.FromGlobalConfig(cfg, secrets.NewStatic(cfg.Secrets))
	if err != nil {
		logger.Error("failed to configure webhooks", "error", err)
		return 1
	}

	srv, err := webhook.New(webhookConfig, dispatch.New(store), store, log.WithComponent("webhook"))
	if err != nil {
		logger.Error("failed to create webhook server", "error", err)
		return 1
	}

	logger.Info("gatehouse running (press Ctrl+C to stop)")
	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("webhook server failed", "error", err)
		return 1
	}

	logger.Info("gatehouse stopped")
	return 0
}

func runCustomerLink(args []string) int {
	flagArgs, positionals := splitFlagsAndPositionals(args, map[string]bool{"config": true})

	fs := flag.NewFlagSet("link", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(flagArgs); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}
	if len(positionals) != 2 {
		printCustomerLinkHelp()
		return 1
	}
	customerID, externalID := positionals[0], positionals[1]

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}
	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		return 1
	}
	defer closeStore()

	if err := dispatch.New(store).LinkCustomer(ctx, customerID, externalID); err != nil {
		fmt.Fprintf(os.Stderr, "Link failed: %v\n", err)
		return 1
	}
	fmt.Printf("Linked %s -> %s\n", customerID, externalID)
	return 0
}
