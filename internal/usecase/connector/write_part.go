package connector

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sir_venger/hdfs_connector/internal/models"
)

// WritePart копирует src в part-файл узла nodeID кусками ChunkSize
// и сбрасывает файл после каждого куска.
func (c *Connector) WritePart(ctx context.Context, src io.Reader, nodeID, clusterSize uint32) (n int64, err error) {
	if src == nil {
		return 0, fmt.Errorf("%w: no source for part file", models.ErrConfiguration)
	}
	if err := (models.ClusterAssignment{NodeID: nodeID, ClusterSize: clusterSize}).Validate(); err != nil {
		return 0, err
	}

	path := models.PartFileName(c.cfg.FileName, nodeID, clusterSize)
	log := c.Logger.With("part", path)

	w, err := c.Store.Create(ctx, path, c.writeOptions(c.cfg.Replication))
	if err != nil {
		return 0, fmt.Errorf("create part %s: %w", path, err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close part %s: %w", path, cerr))
		}
	}()

	bar := c.newProgress("part "+path, 0)
	defer func() { bar.done(err) }()

	buf := make([]byte, c.ChunkSize)
	flushes := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}

		m, rerr := io.ReadFull(src, buf)
		if m > 0 {
			if _, err := w.Write(buf[:m]); err != nil {
				return n, fmt.Errorf("write part %s: %w", path, err)
			}
			if err := w.Flush(); err != nil {
				return n, fmt.Errorf("flush part %s: %w", path, err)
			}
			flushes++
			n += int64(m)
			bar.add(int64(m))
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			return n, fmt.Errorf("read source: %w", rerr)
		}
	}

	c.Metrics.BytesTransferred("write", n)
	c.Metrics.Flushes(flushes)
	log.Info("part written", "bytes", n, "flushes", flushes)
	return n, nil
}
