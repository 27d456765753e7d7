package main

import (
	"bytes"
	"context"
	"net"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sir_venger/hdfs_connector/internal/app/webhdfsd"
)

type cluster struct {
	dataDir string
	host    string
	port    string
}

func startCluster(t *testing.T) cluster {
	t.Helper()
	for _, k := range []string{"CONFIG_PATH", "HDFS_HOST", "HDFS_PORT", "HDFS_USER", "HDFS_NAMENODES",
		"HDFS_TRANSPORT", "JOURNAL_DSN", "METRICS_ADDR", "METRICS_PUSH_URL"} {
		t.Setenv(k, "")
	}

	dir := t.TempDir()
	srv, err := webhdfsd.New(webhdfsd.Config{DataDir: dir})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	return cluster{dataDir: dir, host: host, port: port}
}

func (c cluster) args(extra ...string) []string {
	return append([]string{"-transport", "webhdfs", "-host", c.host, "-port", c.port}, extra...)
}

func runCmd(t *testing.T, args []string, stdin string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_StreamInSplitsAcrossNodes(t *testing.T) {
	c := startCluster(t)
	data := "id,v\n1,'x,y'\n2,b\n3,c\n4,d\n"
	require.NoError(t, os.WriteFile(filepath.Join(c.dataDir, "in.csv"), []byte(data), 0o644))

	var all strings.Builder
	for _, node := range []string{"0", "1", "2"} {
		code, out, errOut := runCmd(t, c.args("-si", "-filename", "/in.csv", "-format", "CSV",
			"-buffsize", "4", "-nodeid", node, "-clustercount", "3"), "")
		require.Equal(t, 0, code, errOut)
		all.WriteString(out)
	}
	assert.Equal(t, data, all.String())
}

func TestRun_WritePartsAndMerge(t *testing.T) {
	c := startCluster(t)
	inputs := []string{"first\n", "second\nthird\n"}
	for i, in := range inputs {
		code, _, errOut := runCmd(t, c.args("-so", "-filename", "/out/res.txt",
			"-nodeid", string(rune('0'+i)), "-clustercount", "2"), in)
		require.Equal(t, 0, code, errOut)
	}
	got, err := os.ReadFile(filepath.Join(c.dataDir, "out", "res.txt-parts", "part_1_2"))
	require.NoError(t, err)
	assert.Equal(t, inputs[1], string(got))

	// узел 1 слияние не выполняет
	code, _, _ := runCmd(t, c.args("-mf", "-filename", "/out/res.txt", "-nodeid", "1", "-clustercount", "2"), "")
	require.Equal(t, 0, code)
	_, err = os.Stat(filepath.Join(c.dataDir, "out", "res.txt"))
	assert.True(t, os.IsNotExist(err))

	code, _, errOut := runCmd(t, c.args("-mf", "-filename", "/out/res.txt", "-nodeid", "0", "-clustercount", "2",
		"-cleanmerge", "1", "-flushsize", "4", "-journaldsn", "memory://"), "")
	require.Equal(t, 0, code, errOut)

	got, err = os.ReadFile(filepath.Join(c.dataDir, "out", "res.txt"))
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\nthird\n", string(got))
	_, err = os.Stat(filepath.Join(c.dataDir, "out", "res.txt-parts"))
	assert.True(t, os.IsNotExist(err))

	// части удалены, повторное слияние падает
	code, _, errOut = runCmd(t, c.args("-mf", "-filename", "/out/res.txt", "-clustercount", "2"), "")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "resource missing")
}

func TestRun_WritePartFromPipePath(t *testing.T) {
	c := startCluster(t)
	src := filepath.Join(t.TempDir(), "src")
	require.NoError(t, os.WriteFile(src, []byte("from file"), 0o644))

	code, _, errOut := runCmd(t, c.args("-sop", "-pipepath", src, "-filename", "/p", "-clustercount", "1"), "ignored")
	require.Equal(t, 0, code, errOut)
	got, err := os.ReadFile(filepath.Join(c.dataDir, "p-parts", "part_0_1"))
	require.NoError(t, err)
	assert.Equal(t, "from file", string(got))
}

func TestRun_ExitCodes(t *testing.T) {
	c := startCluster(t)

	code, _, _ := runCmd(t, []string{"-h"}, "")
	assert.Equal(t, 0, code)

	code, _, errOut := runCmd(t, c.args("-si", "-filename", "/x"), "")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid configuration")

	code, _, _ = runCmd(t, []string{"-nosuchflag"}, "")
	assert.Equal(t, 1, code)

	code, _, errOut = runCmd(t, c.args("-si", "-filename", "/missing", "-format", "FLAT", "-reclen", "2",
		"-clustercount", "2"), "")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not found")
}
