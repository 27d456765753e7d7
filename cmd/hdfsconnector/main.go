package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sir_venger/hdfs_connector/internal/app/adminhttp"
	"github.com/sir_venger/hdfs_connector/internal/config"
	"github.com/sir_venger/hdfs_connector/internal/metrics"
	"github.com/sir_venger/hdfs_connector/internal/repo"
	"github.com/sir_venger/hdfs_connector/internal/usecase/connector"
	"github.com/sir_venger/hdfs_connector/pkg/remotefs"
	"github.com/sir_venger/hdfs_connector/pkg/remotefs/native"
	"github.com/sir_venger/hdfs_connector/pkg/remotefs/webhdfs"
)

const (
	pushJob         = "hdfsconnector"
	pushTimeout     = 10 * time.Second
	shutdownTimeout = 5 * time.Second
	stdoutBuffer    = 64 << 10
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run возвращает код выхода: 0 при успехе, 1 при любой фатальной ошибке.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := config.Parse("hdfsconnector", args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, "hdfsconnector:", err)
		return 1
	}

	log := newLogger(cfg, stderr)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		return 1
	}

	if err := execute(ctx, cfg, log, stdin, stdout, stderr); err != nil {
		log.Error("operation failed", "action", string(cfg.Action), "file", cfg.FileName, "err", err)
		return 1
	}
	return 0
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})).With(
		"run_id", uuid.NewString(),
		"node", cfg.NodeID,
		"cluster", cfg.ClusterCount,
	)
	if cfg.WUID != "" {
		log = log.With("wuid", cfg.WUID)
	}
	slog.SetDefault(log)
	return log
}

func execute(ctx context.Context, cfg *config.Config, log *slog.Logger, stdin io.Reader, stdout, stderr io.Writer) error {
	prom := metrics.NewPrometheus(map[string]string{
		"node":    strconv.FormatUint(uint64(cfg.NodeID), 10),
		"cluster": strconv.FormatUint(uint64(cfg.ClusterCount), 10),
	})
	if cfg.MetricsPushURL != "" {
		defer func() {
			pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
			defer cancel()
			if err := prom.Push(pctx, cfg.MetricsPushURL, pushJob); err != nil {
				log.Warn("metrics push failed", "url", cfg.MetricsPushURL, "err", err)
			}
		}()
	}

	var journal repo.Journal
	if cfg.JournalDSN != "" {
		j, err := repo.Open(ctx, cfg.JournalDSN)
		if err != nil {
			log.Warn("merge journal disabled", "err", err)
		} else {
			journal = j
			defer j.Close()
		}
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		if cfg.Action == config.ActionStreamPipe {
			releasePipe(cfg.PipePath, log)
		}
		return err
	}
	defer store.Close()

	in, closeIn, err := source(cfg, stdin)
	if err != nil {
		return err
	}
	defer closeIn()

	deps := connector.Deps{Store: store, Metrics: prom, Logger: log}
	if journal != nil {
		deps.Journal = journal
	}
	if cfg.Progress {
		deps.Progress = stderr
	}
	conn, err := connector.New(cfg, deps)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		var lookup adminhttp.MergeLookup
		if journal != nil {
			lookup = journal
		}
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: adminhttp.NewServer(cfg, prom.Handler(), lookup)}
		g.Go(func() error {
			log.Debug("admin endpoint listening", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin endpoint: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer scancel()
			return srv.Shutdown(sctx)
		})
	}

	g.Go(func() error {
		defer cancel()
		out := bufio.NewWriterSize(stdout, stdoutBuffer)
		if err := conn.Run(gctx, in, out); err != nil {
			return err
		}
		return out.Flush()
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (remotefs.Store, error) {
	switch cfg.Transport {
	case config.TransportWebHDFS:
		return webhdfs.New(ctx, webhdfs.Config{
			Addresses: cfg.Addresses(),
			User:      cfg.User,
			MaxRetry:  cfg.MaxRetry,
			Logger:    log,
		})
	default:
		return native.New(native.Config{Addresses: cfg.Addresses(), User: cfg.User, Logger: log})
	}
}

// source источник данных для записи part-файла: -pipepath либо stdin.
func source(cfg *config.Config, stdin io.Reader) (io.Reader, func(), error) {
	switch cfg.Action {
	case config.ActionStreamOut, config.ActionStreamPipe:
	default:
		return stdin, func() {}, nil
	}
	if cfg.PipePath == "" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(cfg.PipePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open pipe %s: %w", cfg.PipePath, err)
	}
	return f, func() { _ = f.Close() }, nil
}

// releasePipe открывает и сразу закрывает pipe, чтобы пишущая сторона не зависла.
func releasePipe(p string, log *slog.Logger) {
	if p == "" {
		return
	}
	f, err := os.Open(p)
	if err != nil {
		log.Warn("release pipe", "path", p, "err", err)
		return
	}
	_ = f.Close()
}
