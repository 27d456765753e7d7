package connector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/sir_venger/hdfs_connector/internal/models"
	"github.com/sir_venger/hdfs_connector/pkg/remotefs"
)

// TotalPartsSize сумма размеров всех part-файлов base.
func TotalPartsSize(ctx context.Context, store remotefs.Store, base string, clusterSize uint32) (int64, error) {
	var total int64
	for id := uint32(0); id < clusterSize; id++ {
		p := models.PartFileName(base, id, clusterSize)
		st, err := store.Stat(ctx, p)
		if err != nil {
			return 0, partErr(p, err)
		}
		total += st.Size
	}
	return total, nil
}

// MergeParts склеивает part-файлы в target по возрастанию номера узла.
// Работает только узел 0, остальные сразу возвращают nil.
// Упавшее слияние не откатывается.
func (c *Connector) MergeParts(ctx context.Context, target string, clusterSize uint32, flushThreshold int64, replication int, deleteAfter bool) (err error) {
	if !(models.ClusterAssignment{NodeID: c.cfg.NodeID, ClusterSize: clusterSize}).IsCoordinator() {
		c.Logger.Debug("merge is done by node 0", "node", c.cfg.NodeID)
		return nil
	}
	if clusterSize == 0 {
		return fmt.Errorf("%w: invalid cluster count 0", models.ErrConfiguration)
	}
	if flushThreshold <= 0 {
		return fmt.Errorf("%w: invalid flush threshold %d", models.ErrConfiguration, flushThreshold)
	}

	log := c.Logger.With("target", target)
	runID := uuid.NewString()
	c.journal("begin", func(j MergeJournal) error {
		return j.BeginMerge(ctx, models.MergeRun{ID: runID, Target: target, ClusterSize: clusterSize})
	})

	var merged int64
	defer func() {
		status, msg := models.MergeSucceeded, ""
		if err != nil {
			status, msg = models.MergeFailed, err.Error()
		}
		c.journal("finish", func(j MergeJournal) error {
			return j.FinishMerge(context.WithoutCancel(ctx), runID, status, merged, msg)
		})
	}()

	w, err := c.Store.Create(ctx, target, c.writeOptions(replication))
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", target, err)
	}

	// Размер нужен только для прогресса: отсутствующая часть обнаружится в цикле по порядку.
	total, terr := TotalPartsSize(ctx, c.Store, target, clusterSize)
	if terr != nil {
		log.Warn("parts are incomplete", "err", terr)
		total = 0
	}
	log.Info("merge started", "parts", clusterSize, "bytes", total, "run_id", runID)

	bar := c.newProgress("merge "+target, total)
	defer func() { bar.done(err) }()

	buf := make([]byte, c.bufferSize())
	for id := uint32(0); id < clusterSize; id++ {
		part := models.PartFileName(target, id, clusterSize)
		cp, err := c.appendPart(ctx, target, part, replication, flushThreshold, buf, bar)
		if err != nil {
			return err
		}
		cp.NodeID = id
		merged += cp.Bytes
		c.Metrics.PartMerged(cp.Bytes)
		c.journal("record part", func(j MergeJournal) error {
			return j.RecordPart(ctx, runID, cp)
		})
		log.Debug("part merged", "part", part, "bytes", cp.Bytes)

		if deleteAfter {
			if err := c.Store.Delete(ctx, part, false); err != nil {
				return fmt.Errorf("delete part %s: %w", part, err)
			}
		}
	}

	if deleteAfter {
		dir := models.PartsDir(target)
		if err := c.Store.Delete(ctx, dir, true); err != nil && !errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("delete parts dir %s: %w", dir, err)
		}
	}

	c.Metrics.BytesTransferred("write", merged)
	log.Info("merge done", "bytes", merged, "run_id", runID)
	return nil
}

// appendPart дописывает один part-файл в target.
func (c *Connector) appendPart(ctx context.Context, target, part string, replication int, flushThreshold int64, buf []byte, bar *progress) (cp models.PartCheckpoint, err error) {
	if _, err := c.Store.Stat(ctx, part); err != nil {
		return cp, partErr(part, err)
	}

	w, err := c.Store.Append(ctx, target, c.writeOptions(replication))
	if err != nil {
		return cp, fmt.Errorf("append %s: %w", target, err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close %s: %w", target, cerr))
		}
	}()

	r, err := c.Store.Open(ctx, part)
	if err != nil {
		return cp, partErr(part, err)
	}
	defer r.Close()

	hasher := sha256.New()
	src := io.TeeReader(&ctxReader{ctx: ctx, r: r}, hasher)

	var sinceFlush int64
	flushes := 0
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return cp, fmt.Errorf("write %s: %w", target, err)
			}
			cp.Bytes += int64(n)
			sinceFlush += int64(n)
			bar.add(int64(n))
			if sinceFlush >= flushThreshold {
				if err := w.Flush(); err != nil {
					return cp, fmt.Errorf("flush %s: %w", target, err)
				}
				flushes++
				sinceFlush = 0
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return cp, fmt.Errorf("read part %s: %w", part, rerr)
		}
	}

	if err := w.Flush(); err != nil {
		return cp, fmt.Errorf("flush %s: %w", target, err)
	}
	c.Metrics.Flushes(flushes + 1)

	cp.Path = part
	cp.SHA256 = hex.EncodeToString(hasher.Sum(nil))
	return cp, nil
}

func (c *Connector) journal(step string, fn func(MergeJournal) error) {
	if c.Journal == nil {
		return
	}
	if err := fn(c.Journal); err != nil {
		c.Logger.Warn("merge journal", "step", step, "err", err)
	}
}

func partErr(part string, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("%w: part file %s", models.ErrResourceMissing, part)
	}
	return fmt.Errorf("part %s: %w", part, err)
}
