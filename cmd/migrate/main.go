package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sir_venger/hdfs_connector/internal/config"
	"github.com/sir_venger/hdfs_connector/internal/repo"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (overrides CONFIG_PATH)")
	dsn := flag.String("dsn", "", "journal DSN (overrides journal_dsn and JOURNAL_DSN)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("load config", "err", err)
		os.Exit(1)
	}
	if *dsn != "" {
		cfg.JournalDSN = *dsn
	}

	journalDSN := strings.TrimSpace(cfg.JournalDSN)
	if journalDSN == "" {
		log.Error("journal_dsn is not configured")
		os.Exit(1)
	}
	if repo.IsMemoryDSN(journalDSN) {
		log.Info("memory journal selected, skipping migrations")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := repo.ApplyMigrations(ctx, journalDSN); err != nil {
		log.Error("apply migrations", "err", err)
		os.Exit(1)
	}

	log.Info("migrations applied")
}
