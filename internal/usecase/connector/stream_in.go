package connector

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sir_venger/hdfs_connector/internal/config"
	"github.com/sir_venger/hdfs_connector/internal/models"
	"github.com/sir_venger/hdfs_connector/internal/partition"
	"github.com/sir_venger/hdfs_connector/internal/splitter"
	"github.com/sir_venger/hdfs_connector/pkg/remotefs"
)

// Result итог чтения диапазона.
type Result struct {
	Range models.FileRange
	splitter.Stats
	// Whole файл отдан целиком, без разбора записей.
	Whole bool
}

// NewSplitter сплиттер для формата из конфигурации.
func NewSplitter(cfg *config.Config, opts splitter.Options) (splitter.Splitter, error) {
	switch cfg.Format {
	case config.FormatFlat:
		if cfg.RecordLength <= 0 {
			return nil, fmt.Errorf("%w: FLAT format requires record length > 0", models.ErrConfiguration)
		}
		return &splitter.Flat{Options: opts, RecordLength: cfg.RecordLength}, nil
	case config.FormatCSV:
		return &splitter.CSV{
			Options:        opts,
			Terminator:     cfg.TerminatorBytes(),
			Quote:          cfg.QuoteBytes(),
			EmitTerminator: cfg.OutputTerminator,
			MaxScanLength:  cfg.MaxScanLength(),
		}, nil
	case config.FormatXML:
		return &splitter.XML{
			Options: opts,
			RowPath: cfg.RowTag,
			Header:  config.ExpandEscapes(cfg.HeaderText),
			Footer:  config.ExpandEscapes(cfg.FooterText),
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", models.ErrConfiguration, cfg.Format)
	}
}

// RangeFor диапазон воркера: для FLAT выровненный по записям, для текста грубый,
// настоящие границы находит сплиттер.
func RangeFor(cfg *config.Config, fileSize int64) (models.FileRange, error) {
	if cfg.Format == config.FormatFlat {
		return partition.FixedRange(fileSize, cfg.RecordLength, cfg.ClusterCount, cfg.NodeID)
	}
	return partition.EffectiveRange(fileSize, cfg.ClusterCount, cfg.NodeID)
}

// StreamIn пишет в w записи, принадлежащие этому воркеру.
func (c *Connector) StreamIn(ctx context.Context, w io.Writer) (Result, error) {
	log := c.Logger.With("file", c.cfg.FileName, "format", string(c.cfg.Format))

	st, err := c.Store.Stat(ctx, c.cfg.FileName)
	if err != nil {
		return Result{}, fmt.Errorf("stat %s: %w", c.cfg.FileName, err)
	}
	if st.Kind == remotefs.KindDirectory {
		return Result{}, fmt.Errorf("%w: %s is a directory", models.ErrConfiguration, c.cfg.FileName)
	}
	c.logHosts(ctx)

	if c.streamsWhole() {
		n, err := c.StreamWhole(ctx, w)
		res := Result{Range: models.FileRange{Length: st.Size}, Whole: true}
		res.Bytes = n
		res.FirstRecord = -1
		res.StoppedAt = n
		return res, err
	}

	rg, err := RangeFor(&c.cfg, st.Size)
	if err != nil {
		return Result{}, err
	}
	log.Debug("stream in range", "range", rg.String(), "size", st.Size)

	sp, err := NewSplitter(&c.cfg, splitter.Options{BufferSize: c.bufferSize(), Logger: log})
	if err != nil {
		return Result{}, err
	}

	r, err := c.Store.Open(ctx, c.cfg.FileName)
	if err != nil {
		return Result{}, fmt.Errorf("open %s: %w", c.cfg.FileName, err)
	}
	defer r.Close()

	cr := &countingReadSeeker{rs: r}
	stats, err := sp.Split(ctx, cr, rg.Start, rg.Length, w)
	c.Metrics.BytesTransferred("read", cr.n)
	c.Metrics.RecordsEmitted(string(c.cfg.Format), stats.Records)
	res := Result{Range: rg, Stats: stats}
	if err != nil {
		return res, fmt.Errorf("stream in %s %s: %w", c.cfg.FileName, rg, err)
	}

	log.Info("stream in done", "range", rg.String(), "records", stats.Records, "bytes", stats.Bytes)
	return res, nil
}

// StreamWhole копирует весь файл в w.
func (c *Connector) StreamWhole(ctx context.Context, w io.Writer) (int64, error) {
	r, err := c.Store.Open(ctx, c.cfg.FileName)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", c.cfg.FileName, err)
	}
	defer r.Close()

	n, err := io.CopyBuffer(w, &ctxReader{ctx: ctx, r: r}, make([]byte, c.bufferSize()))
	c.Metrics.BytesTransferred("read", n)
	if err != nil {
		return n, fmt.Errorf("stream whole %s: %w", c.cfg.FileName, err)
	}
	c.Logger.Info("stream in whole file", "file", c.cfg.FileName, "bytes", n)
	return n, nil
}

// Один воркер с CSV, который сохраняет терминаторы, выдаёт файл байт в байт.
func (c *Connector) streamsWhole() bool {
	return c.cfg.ClusterCount == 1 && c.cfg.Format == config.FormatCSV && c.cfg.OutputTerminator
}

func (c *Connector) logHosts(ctx context.Context) {
	hosts, err := c.Store.ListHosts(ctx, c.cfg.FileName)
	if err != nil {
		if errors.Is(err, errors.ErrUnsupported) {
			c.Logger.Debug("block locations not available for this transport")
			return
		}
		c.Logger.Debug("list hosts failed", "err", err)
		return
	}
	for i, h := range hosts {
		c.Logger.Debug("block hosts", "block", i, "hosts", h)
	}
}

type countingReadSeeker struct {
	rs io.ReadSeeker
	n  int64
}

func (c *countingReadSeeker) Read(p []byte) (int, error) {
	n, err := c.rs.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReadSeeker) Seek(offset int64, whence int) (int64, error) {
	return c.rs.Seek(offset, whence)
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
