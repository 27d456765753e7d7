// Package repo журнал слияний: в памяти (memory://) или в Postgres.
// Журнал только наблюдает за слиянием и никогда не читается им обратно.
package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/sir_venger/hdfs_connector/internal/models"
	"github.com/sir_venger/hdfs_connector/internal/repo/postgres"
)

const memoryScheme = "memory://"

var _ Journal = (*postgres.PGJournal)(nil)

// Journal операции журнала слияний.
type Journal interface {
	BeginMerge(ctx context.Context, run models.MergeRun) error
	RecordPart(ctx context.Context, runID string, cp models.PartCheckpoint) error
	FinishMerge(ctx context.Context, runID, status string, bytes int64, errMsg string) error
	Get(ctx context.Context, runID string) (models.MergeRun, error)
	Close()
}

// IsMemoryDSN выбран ли журнал в памяти.
func IsMemoryDSN(dsn string) bool {
	return strings.HasPrefix(strings.TrimSpace(dsn), memoryScheme)
}

// Open открывает журнал по DSN: memory:// или строка подключения Postgres.
func Open(ctx context.Context, dsn string) (Journal, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("%w: journal dsn is empty", models.ErrConfiguration)
	}
	if IsMemoryDSN(dsn) {
		return NewMemoryJournal(), nil
	}
	pg, err := postgres.NewPGJournal(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return pg, nil
}
