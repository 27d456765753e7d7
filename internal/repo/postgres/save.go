package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/sir_venger/hdfs_connector/internal/models"
)

// BeginMerge регистрирует новый прогон слияния.
func (j *PGJournal) BeginMerge(ctx context.Context, run models.MergeRun) error {
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("merge run id is empty")
	}
	if run.Status == "" {
		run.Status = models.MergeRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	sqlStr, args, err := psql.
		Insert(runsTable).
		Columns("id", "target", "cluster_size", "status", "bytes", "error", "started_at").
		Values(run.ID, run.Target, int64(run.ClusterSize), run.Status, run.Bytes, run.Error, run.StartedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert run: %w", err)
	}

	if _, err := j.pool.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("exec insert run: %w", err)
	}
	return nil
}

// RecordPart фиксирует part-файл, дописанный в целевой файл.
func (j *PGJournal) RecordPart(ctx context.Context, runID string, cp models.PartCheckpoint) error {
	if cp.MergedAt.IsZero() {
		cp.MergedAt = time.Now().UTC()
	}

	tx, err := j.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	sqlStr, args, err := psql.
		Insert(partsTable).
		Columns("run_id", "node_id", "path", "bytes", "sha256", "merged_at").
		Values(runID, int64(cp.NodeID), cp.Path, cp.Bytes, cp.SHA256, cp.MergedAt).
		Suffix(`
					ON CONFLICT (run_id, node_id) DO UPDATE
					SET path      = EXCLUDED.path,
						bytes     = EXCLUDED.bytes,
						sha256    = EXCLUDED.sha256,
						merged_at = EXCLUDED.merged_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert part: %w", err)
	}
	if _, err := tx.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("exec upsert part: %w", err)
	}

	sqlStr, args, err = psql.
		Update(runsTable).
		Set("bytes", sq.Expr("bytes + ?", cp.Bytes)).
		Where(sq.Eq{"id": runID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update run: %w", err)
	}
	tag, err := tx.Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("exec update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: merge run %s", models.ErrNotFound, runID)
	}

	return tx.Commit(ctx)
}

// FinishMerge закрывает прогон с итоговым статусом.
func (j *PGJournal) FinishMerge(ctx context.Context, runID, status string, bytes int64, errMsg string) error {
	sqlStr, args, err := psql.
		Update(runsTable).
		SetMap(map[string]any{
			"status":      status,
			"bytes":       bytes,
			"error":       errMsg,
			"finished_at": time.Now().UTC(),
		}).
		Where(sq.Eq{"id": runID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build finish run: %w", err)
	}

	tag, err := j.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("exec finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: merge run %s", models.ErrNotFound, runID)
	}
	return nil
}
