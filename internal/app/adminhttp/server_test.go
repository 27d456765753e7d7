package adminhttp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sir_venger/hdfs_connector/internal/config"
	"github.com/sir_venger/hdfs_connector/internal/metrics"
	"github.com/sir_venger/hdfs_connector/internal/models"
	"github.com/sir_venger/hdfs_connector/internal/repo"
)

func get(t *testing.T, u string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, b
}

func TestServer_Endpoints(t *testing.T) {
	cfg := config.Default()
	cfg.Action = config.ActionMerge
	cfg.FileName = "/out/x"
	cfg.ClusterCount = 3

	prom := metrics.NewPrometheus(map[string]string{"node": "0"})
	prom.PartMerged(42)

	journal := repo.NewMemoryJournal()
	ctx := context.Background()
	require.NoError(t, journal.BeginMerge(ctx, models.MergeRun{ID: "r1", Target: "/out/x", ClusterSize: 3}))
	require.NoError(t, journal.RecordPart(ctx, "r1", models.PartCheckpoint{NodeID: 0, Path: "/out/x-parts/part_0_3", Bytes: 42, SHA256: "ab"}))

	ts := httptest.NewServer(NewServer(cfg, prom.Handler(), journal))
	t.Cleanup(ts.Close)

	code, body := get(t, ts.URL+"/health")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"ok":true,"action":"merge","node":0,"nodes":3}`, string(body))

	code, body = get(t, ts.URL+"/admin/config")
	require.Equal(t, http.StatusOK, code)
	var got config.Config
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "/out/x", got.FileName)

	code, body = get(t, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "hdfsconn_part_bytes_merged_total")

	code, body = get(t, ts.URL+"/admin/merges/r1")
	require.Equal(t, http.StatusOK, code)
	var run mergeResp
	require.NoError(t, json.Unmarshal(body, &run))
	assert.Equal(t, models.MergeRunning, run.Status)
	require.Len(t, run.Parts, 1)
	assert.Equal(t, int64(42), run.Parts[0].Bytes)

	code, _ = get(t, ts.URL+"/admin/merges/unknown")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServer_WithoutOptionalDeps(t *testing.T) {
	ts := httptest.NewServer(NewServer(config.Default(), nil, nil))
	t.Cleanup(ts.Close)

	code, _ := get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = get(t, ts.URL+"/admin/merges/x")
	assert.Equal(t, http.StatusNotFound, code)
}
