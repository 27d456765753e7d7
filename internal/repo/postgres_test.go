package repo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sir_venger/hdfs_connector/internal/models"
)

// Требует Docker; включается HDFSCONN_DOCKER_TESTS=1.
func startPostgres(t *testing.T) string {
	t.Helper()
	if os.Getenv("HDFSCONN_DOCKER_TESTS") != "1" {
		t.Skip("set HDFSCONN_DOCKER_TESTS=1 to run postgres tests")
	}

	ctx := context.Background()
	pg, err := testcontainers.Run(
		ctx, "postgres:16-alpine",
		testcontainers.WithEnv(map[string]string{
			"POSTGRES_USER":     "hdfsconn",
			"POSTGRES_PASSWORD": "hdfsconn",
			"POSTGRES_DB":       "journal",
		}),
		testcontainers.WithExposedPorts("5432/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pg); err != nil {
			t.Errorf("terminate postgres: %s", err)
		}
	})

	host, err := pg.Host(ctx)
	require.NoError(t, err)
	port, err := pg.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://hdfsconn:hdfsconn@%s:%s/journal?sslmode=disable", host, port.Port())
}

func TestPGJournal_Lifecycle(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, dsn))
	// повторный прогон миграций ничего не ломает
	require.NoError(t, ApplyMigrations(ctx, dsn))

	j, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(j.Close)

	require.NoError(t, j.BeginMerge(ctx, models.MergeRun{ID: "run-1", Target: "/out.csv", ClusterSize: 2}))
	require.NoError(t, j.RecordPart(ctx, "run-1", models.PartCheckpoint{NodeID: 1, Path: "/out.csv-parts/part_2_1", Bytes: 7, SHA256: "bb"}))
	require.NoError(t, j.RecordPart(ctx, "run-1", models.PartCheckpoint{NodeID: 0, Path: "/out.csv-parts/part_2_0", Bytes: 3, SHA256: "aa"}))

	run, err := j.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.MergeRunning, run.Status)
	assert.Equal(t, int64(10), run.Bytes)
	assert.Equal(t, uint32(2), run.ClusterSize)
	require.Len(t, run.Parts, 2)
	assert.Equal(t, uint32(0), run.Parts[0].NodeID)
	assert.True(t, run.FinishedAt.IsZero())

	require.NoError(t, j.FinishMerge(ctx, "run-1", models.MergeFailed, 10, "boom"))
	run, err = j.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.MergeFailed, run.Status)
	assert.Equal(t, "boom", run.Error)
	assert.False(t, run.FinishedAt.IsZero())

	_, err = j.Get(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, j.FinishMerge(ctx, "missing", models.MergeFailed, 0, ""), models.ErrNotFound)
}
