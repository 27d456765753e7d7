package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/sir_venger/hdfs_connector/internal/models"
)

// Get возвращает прогон вместе с его part-файлами.
func (j *PGJournal) Get(ctx context.Context, runID string) (models.MergeRun, error) {
	if strings.TrimSpace(runID) == "" {
		return models.MergeRun{}, fmt.Errorf("merge run id is empty")
	}

	sqlStr, args, err := psql.
		Select("target", "cluster_size", "status", "bytes", "error", "started_at", "finished_at").
		From(runsTable).
		Where(sq.Eq{"id": runID}).
		Limit(1).
		ToSql()
	if err != nil {
		return models.MergeRun{}, fmt.Errorf("build select run: %w", err)
	}

	var (
		run         = models.MergeRun{ID: runID}
		clusterSize int64
		finishedAt  *time.Time
	)
	err = j.pool.QueryRow(ctx, sqlStr, args...).Scan(
		&run.Target, &clusterSize, &run.Status, &run.Bytes, &run.Error, &run.StartedAt, &finishedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.MergeRun{}, fmt.Errorf("%w: merge run %s", models.ErrNotFound, runID)
		}
		return models.MergeRun{}, fmt.Errorf("scan run row: %w", err)
	}
	run.ClusterSize = uint32(clusterSize)
	if finishedAt != nil {
		run.FinishedAt = *finishedAt
	}

	sqlStr, args, err = psql.
		Select("node_id", "path", "bytes", "sha256", "merged_at").
		From(partsTable).
		Where(sq.Eq{"run_id": runID}).
		OrderBy("node_id").
		ToSql()
	if err != nil {
		return models.MergeRun{}, fmt.Errorf("build select parts: %w", err)
	}

	rows, err := j.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return models.MergeRun{}, fmt.Errorf("query parts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cp     models.PartCheckpoint
			nodeID int64
		)
		if err := rows.Scan(&nodeID, &cp.Path, &cp.Bytes, &cp.SHA256, &cp.MergedAt); err != nil {
			return models.MergeRun{}, fmt.Errorf("scan part row: %w", err)
		}
		cp.NodeID = uint32(nodeID)
		run.Parts = append(run.Parts, cp)
	}
	if err := rows.Err(); err != nil {
		return models.MergeRun{}, fmt.Errorf("iterate parts: %w", err)
	}

	return run, nil
}
