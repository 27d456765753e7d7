package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sir_venger/hdfs_connector/internal/models"
)

func TestParse_OriginalFlagSet(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	args := []string{
		"-si", "-host", "nn1", "-port", "50070", "-hdfsuser", "etl",
		"-filename", "/data/in.csv", "-format", "CSV(SEPARATOR([',']))",
		"-terminator", `\r\n`, "-quote", `\"`, "-outputterminator", "0",
		"-nodeid", "2", "-clustercount", "4", "-cleanmerge", "1",
		"-transport", "webhdfs", "-whdfsretrymax", "3", "-maxlen", "100",
	}
	c, err := Parse("hdfsconnector", args, io.Discard)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, ActionStreamIn, c.Action)
	assert.Equal(t, FormatCSV, c.Format)
	assert.Equal(t, "SEPARATOR([','])", c.FormatOptions)
	assert.Equal(t, []byte("\r\n"), c.TerminatorBytes())
	assert.Equal(t, []byte(`"`), c.QuoteBytes())
	assert.False(t, c.OutputTerminator)
	assert.True(t, c.CleanMerge)
	assert.Equal(t, uint32(2), c.NodeID)
	assert.Equal(t, uint32(4), c.ClusterCount)
	assert.Equal(t, TransportWebHDFS, c.Transport)
	assert.Equal(t, 3, c.MaxRetry)
	assert.Equal(t, int64(1000), c.MaxScanLength())
	assert.Equal(t, []string{"nn1:50070"}, c.Addresses())
}

func TestParse_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	c, err := Parse("hdfsconnector", []string{"-mf", "-filename", "/out", "-clustercount", "1"}, io.Discard)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, DefaultBufferSize, c.BufferSize)
	assert.Equal(t, int64(DefaultBufferSize*10), c.FlushThreshold)
	assert.Equal(t, "Row", c.RowTag)
	assert.Equal(t, []byte("\n"), c.TerminatorBytes())
	assert.Equal(t, []byte("'"), c.QuoteBytes())
	assert.Equal(t, 1, c.Replication)
	assert.Equal(t, 1, c.MaxRetry)
	assert.Equal(t, TransportNative, c.Transport)
	assert.Equal(t, DefaultNativePort, c.EffectivePort())
	assert.True(t, c.OutputTerminator)
}

func TestLoad_YAMLThenEnvThenFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
host: yaml-host
port: 9000
transport: webhdfs
buffer_size: 4096
journal_dsn: memory://
namenodes: [nn2:50070]
`), 0o644))

	t.Setenv("CONFIG_PATH", "")
	t.Setenv("HDFS_HOST", "env-host")
	t.Setenv("METRICS_ADDR", ":9100")

	c, err := Parse("hdfsconnector", []string{"-config", path, "-port", "9870", "-so", "-filename", "/x", "-clustercount", "2", "-nodeid", "1"}, io.Discard)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "env-host", c.Host)
	assert.Equal(t, 9870, c.Port)
	assert.Equal(t, 4096, c.BufferSize)
	assert.Equal(t, "memory://", c.JournalDSN)
	assert.Equal(t, ":9100", c.MetricsAddr)
	assert.Equal(t, []string{"env-host:9870", "nn2:50070"}, c.Addresses())
}

func TestLoad_BadEnvAndFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("HDFS_PORT", "abc")
	_, err := Load("")
	require.ErrorIs(t, err, models.ErrConfiguration)

	t.Setenv("HDFS_PORT", "")
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, models.ErrConfiguration)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no action", func(c *Config) { c.Action = ActionNone }},
		{"no filename", func(c *Config) { c.FileName = "" }},
		{"zero cluster", func(c *Config) { c.ClusterCount = 0 }},
		{"node out of range", func(c *Config) { c.NodeID = 3 }},
		{"flat without reclen", func(c *Config) { c.Format = FormatFlat }},
		{"unknown format", func(c *Config) { c.Format = "JSON" }},
		{"empty terminator", func(c *Config) { c.Terminator = "" }},
		{"bad transport", func(c *Config) { c.Transport = "ftp" }},
		{"zero buffer", func(c *Config) { c.BufferSize = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			c.Action = ActionStreamIn
			c.FileName = "/f"
			c.Format = FormatCSV
			c.ClusterCount = 3
			tc.mutate(c)
			require.ErrorIs(t, c.Validate(), models.ErrConfiguration)
		})
	}
}

func TestExpandEscapes(t *testing.T) {
	assert.Equal(t, "a\nb\tc", ExpandEscapes(`a\nb\tc`))
	assert.Equal(t, "\r\n", ExpandEscapes(`\r\n`))
	assert.Equal(t, `\'"`, ExpandEscapes(`\\\'\"`))
	assert.Equal(t, "\x00\a\x1b", ExpandEscapes(`\0\a\e`))
	assert.Equal(t, "ab", ExpandEscapes(`a\qb`))
	assert.Equal(t, "plain", ExpandEscapes("plain"))
	assert.Equal(t, "x", ExpandEscapes(`x\`))
}
