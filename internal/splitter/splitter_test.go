package splitter

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sir_venger/hdfs_connector/internal/models"
	"github.com/sir_venger/hdfs_connector/internal/partition"
)

var bufferSizes = []int{1, 2, 3, 5, 8, 64, DefaultBufferSize}

// splitAll прогоняет сплиттер за каждого воркера кластера и возвращает их выводы.
func splitAll(t *testing.T, s Splitter, data []byte, cluster uint32) [][]byte {
	t.Helper()
	out := make([][]byte, cluster)
	for id := uint32(0); id < cluster; id++ {
		rng, err := partition.EffectiveRange(int64(len(data)), cluster, id)
		require.NoError(t, err)

		var sink bytes.Buffer
		_, err = s.Split(context.Background(), bytes.NewReader(data), rng.Start, rng.Length, &sink)
		require.NoError(t, err, "cluster=%d node=%d range=%s", cluster, id, rng)
		out[id] = sink.Bytes()
	}
	return out
}

// failingReader отдаёт data, затем возвращает err без данных.
type failingReader struct {
	*bytes.Reader
	err error
}

func (r *failingReader) Read(p []byte) (int, error) {
	n, err := r.Reader.Read(p)
	if err != nil {
		return 0, r.err
	}
	return n, nil
}

func TestCursor_ReadErrorsAreTransport(t *testing.T) {
	boom := errors.New("connection reset")
	for _, s := range []Splitter{newCSV(4, "\n"), &Flat{Options: Options{BufferSize: 4}}} {
		r := &failingReader{Reader: bytes.NewReader([]byte("ab\ncd\n")), err: boom}
		_, err := s.Split(context.Background(), r, 0, 12, &bytes.Buffer{})
		require.ErrorIs(t, err, models.ErrTransport)
		require.ErrorIs(t, err, boom)
	}
}
