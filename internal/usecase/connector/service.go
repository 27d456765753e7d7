// Package connector операции воркера: чтение своего диапазона файла HDFS,
// запись part-файла и слияние part-файлов в целевой файл.
package connector

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/sir_venger/hdfs_connector/internal/config"
	"github.com/sir_venger/hdfs_connector/internal/metrics"
	"github.com/sir_venger/hdfs_connector/internal/models"
	"github.com/sir_venger/hdfs_connector/pkg/remotefs"
)

// DefaultChunkSize размер куска, которым PartWriter пишет и сбрасывает part-файл.
const DefaultChunkSize = 12400

type (
	// MergeJournal куда слияние сообщает о ходе работы. Обратно не читается.
	MergeJournal interface {
		BeginMerge(ctx context.Context, run models.MergeRun) error
		RecordPart(ctx context.Context, runID string, cp models.PartCheckpoint) error
		FinishMerge(ctx context.Context, runID, status string, bytes int64, errMsg string) error
	}

	// Service операции коннектора.
	Service interface {
		StreamIn(ctx context.Context, w io.Writer) (Result, error)
		WritePart(ctx context.Context, src io.Reader, nodeID, clusterSize uint32) (int64, error)
		MergeParts(ctx context.Context, target string, clusterSize uint32, flushThreshold int64, replication int, deleteAfter bool) error
	}
)

type Deps struct {
	Store   remotefs.Store
	Metrics metrics.Metrics
	// Journal необязателен.
	Journal MergeJournal
	Logger  *slog.Logger
	// Progress куда рисовать индикатор; nil отключает его.
	Progress io.Writer
	// ChunkSize размер куска PartWriter, 0 значит DefaultChunkSize.
	ChunkSize int
}

type Connector struct {
	Deps
	cfg config.Config
}

var _ Service = (*Connector)(nil)

// New конструирует коннектор. cfg копируется и дальше не меняется.
func New(cfg *config.Config, deps Deps) (*Connector, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", models.ErrConfiguration)
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("%w: remote store is nil", models.ErrConfiguration)
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.ChunkSize <= 0 {
		deps.ChunkSize = DefaultChunkSize
	}
	return &Connector{Deps: deps, cfg: *cfg}, nil
}

// Config действующая конфигурация.
func (c *Connector) Config() config.Config {
	return c.cfg
}

// Run выполняет действие из конфигурации. in источник для -so/-sop, out приёмник для -si.
func (c *Connector) Run(ctx context.Context, in io.Reader, out io.Writer) (err error) {
	action := string(c.cfg.Action)
	timer := c.Metrics.OperationDuration(action)
	defer func() {
		timer.ObserveDuration()
		if err != nil {
			c.Metrics.OperationFailed(action)
		}
	}()

	switch c.cfg.Action {
	case config.ActionStreamIn:
		_, err = c.StreamIn(ctx, out)
	case config.ActionStreamOut, config.ActionStreamPipe:
		_, err = c.WritePart(ctx, in, c.cfg.NodeID, c.cfg.ClusterCount)
	case config.ActionMerge:
		err = c.MergeParts(ctx, c.cfg.FileName, c.cfg.ClusterCount, c.cfg.FlushThreshold, c.cfg.Replication, c.cfg.CleanMerge)
	default:
		err = fmt.Errorf("%w: unknown action %q", models.ErrConfiguration, c.cfg.Action)
	}
	return err
}

func (c *Connector) writeOptions(replication int) remotefs.WriteOptions {
	return remotefs.WriteOptions{Replication: replication, BlockSize: c.cfg.BlockSize}
}

func (c *Connector) bufferSize() int {
	if c.cfg.BufferSize <= 0 {
		return config.DefaultBufferSize
	}
	return c.cfg.BufferSize
}
