package integration

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sir_venger/hdfs_connector/internal/app/webhdfsd"
	"github.com/sir_venger/hdfs_connector/internal/config"
	"github.com/sir_venger/hdfs_connector/internal/usecase/connector"
	"github.com/sir_venger/hdfs_connector/pkg/remotefs/webhdfs"
)

// namenode поднимает webhdfsd поверх dataDir (новый временный каталог, если пусто).
func namenode(t *testing.T, cfg webhdfsd.Config) (*httptest.Server, string) {
	t.Helper()
	if cfg.DataDir == "" {
		cfg.DataDir = t.TempDir()
	}
	srv, err := webhdfsd.New(cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, cfg.DataDir
}

func addr(ts *httptest.Server) string {
	return strings.TrimPrefix(ts.URL, "http://")
}

func client(t *testing.T, user string, addrs ...string) *webhdfs.Client {
	t.Helper()
	c, err := webhdfs.New(context.Background(), webhdfs.Config{Addresses: addrs, User: user, MaxRetry: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func workerConfig(file string, format config.Format, node, nodes uint32) *config.Config {
	cfg := config.Default()
	cfg.Transport = config.TransportWebHDFS
	cfg.FileName = file
	cfg.Format = format
	cfg.NodeID = node
	cfg.ClusterCount = nodes
	return cfg
}

func worker(t *testing.T, cfg *config.Config, deps connector.Deps) *connector.Connector {
	t.Helper()
	c, err := connector.New(cfg, deps)
	require.NoError(t, err)
	return c
}
