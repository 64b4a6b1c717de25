package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/reviewnudge/reviewnudge/internal/adapter/driven/github"
	sqliteadapter "github.com/reviewnudge/reviewnudge/internal/adapter/driven/sqlite"
	"github.com/reviewnudge/reviewnudge/internal/application"
	"github.com/reviewnudge/reviewnudge/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"repo", cfg.RepoFullName,
		"deadline", cfg.Deadline,
		"category", cfg.Category,
		"discussion_title", cfg.DiscussionTitle,
		"db_path", cfg.DBPath,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the ledger database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	// 4. Run migrations on the writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}

	// 5. Wire adapters.
	ledgerStore := sqliteadapter.NewLedgerRepo(db)

	ghClient := githubadapter.NewClient(cfg.GitHubToken)
	if err := ghClient.SetNotificationTarget(cfg.RepoFullName); err != nil {
		return err
	}

	// 6. Create the runner.
	runner := application.NewRunner(ghClient, ledgerStore, ghClient, application.RunnerConfig{
		RepoFullName:    cfg.RepoFullName,
		Deadline:        cfg.Deadline,
		Category:        cfg.Category,
		DiscussionTitle: cfg.DiscussionTitle,
	})

	// 7. Run once, or on a schedule when a poll interval is configured.
	if cfg.PollAdaptive {
		slog.Info("reviewnudge watching", "schedule", "adaptive")
		return runner.Watch(ctx, 0)
	}
	if cfg.PollInterval > 0 {
		slog.Info("reviewnudge watching", "poll_interval", cfg.PollInterval)
		return runner.Watch(ctx, cfg.PollInterval)
	}

	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	slog.Info("reviewnudge finished",
		"requests", result.Requests,
		"findings", result.Findings,
		"suppressed", result.Suppressed,
		"notified", result.Notified,
	)
	return nil
}
