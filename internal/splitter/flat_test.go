package splitter

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sir_venger/hdfs_connector/internal/models"
	"github.com/sir_venger/hdfs_connector/internal/partition"
)

func TestFlat_StreamsFixedRanges(t *testing.T) {
	data := []byte(strings.Repeat("0123456789", 10))
	var joined []byte
	for id := uint32(0); id < 3; id++ {
		rng, err := partition.FixedRange(int64(len(data)), 10, 3, id)
		require.NoError(t, err)

		f := &Flat{Options: Options{BufferSize: 7}, RecordLength: 10}
		var out bytes.Buffer
		st, err := f.Split(context.Background(), bytes.NewReader(data), rng.Start, rng.Length, &out)
		require.NoError(t, err)
		assert.Equal(t, rng.Length, int64(out.Len()))
		assert.Equal(t, rng.Length/10, st.Records)
		joined = append(joined, out.Bytes()...)
	}
	assert.Equal(t, data, joined)
}

func TestFlat_EndOfDataBeforeLength(t *testing.T) {
	f := &Flat{Options: Options{BufferSize: 4}}
	var out bytes.Buffer
	_, err := f.Split(context.Background(), strings.NewReader("abcdef"), 2, 10, &out)
	require.ErrorIs(t, err, models.ErrMalformedInput)
	assert.Equal(t, "cdef", out.String())
}
