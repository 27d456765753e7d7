// Package postgres журнал слияний поверх Postgres.
package postgres

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sir_venger/hdfs_connector/internal/models"
)

const (
	runsTable  = "merge_runs"
	partsTable = "merge_parts"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PGJournal пишет журнал слияний в Postgres.
type PGJournal struct {
	pool *pgxpool.Pool
}

// NewPGJournal создаёт пул подключений. Схему готовит ApplyMigrations.
func NewPGJournal(ctx context.Context, dsn string) (*PGJournal, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: journal dsn is empty", models.ErrConfiguration)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	return &PGJournal{pool: pool}, nil
}

// Close освобождает подключения пула.
func (j *PGJournal) Close() {
	if j.pool != nil {
		j.pool.Close()
	}
}
