package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sir_venger/hdfs_connector/internal/app/webhdfsd"
)

const (
	defaultAddr          = ":50070"
	dataDirEnv           = "DATA_DIR"
	gcTTLMinEnv          = "GC_TTL_MIN"
	gcIntervalMinEnv     = "GC_INTERVAL_MIN"
	defaultDataDir       = "/data"
	defaultGCTTLMin      = 60
	defaultGCIntervalMin = 10
)

func main() {
	addr := flag.String("addr", defaultAddr, "listen address")
	user := flag.String("user", "", "only accept requests with this user.name")
	standby := flag.Bool("standby", false, "answer as a standby namenode")
	blockSize := flag.Int64("blocksize", 0, "block size reported to clients (0 = 128 MiB)")
	verbose := flag.Bool("verbose", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	dataDir := os.Getenv(dataDirEnv)
	if dataDir == "" {
		dataDir = defaultDataDir
	}

	srv, err := webhdfsd.New(webhdfsd.Config{
		DataDir:   dataDir,
		User:      *user,
		Standby:   *standby,
		BlockSize: *blockSize,
		Logger:    log,
	})
	if err != nil {
		log.Error("init", "err", err)
		os.Exit(1)
	}

	// Фоновый GC брошенных аренд и незавершённых CREATE.
	gcTTL := envInt(gcTTLMinEnv, defaultGCTTLMin)
	gcEvery := envInt(gcIntervalMinEnv, defaultGCIntervalMin)
	stopGC := srv.StartGC(time.Duration(gcTTL)*time.Minute, time.Duration(gcEvery)*time.Minute)
	defer stopGC()

	server := &http.Server{Addr: *addr, Handler: srv.Handler()}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("shutdown", "err", err)
		}
	}()

	log.Info("webhdfsd listening", "addr", *addr, "data_dir", dataDir, "gc_ttl_min", gcTTL, "gc_every_min", gcEvery,
		"standby", *standby)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("listen", "err", err)
		os.Exit(1)
	}
}

// envInt возвращает целочисленное значение из переменной окружения либо дефолт.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
