package splitter

import (
	"context"
	"fmt"
	"io"

	"github.com/sir_venger/hdfs_connector/internal/models"
)

// Flat стримит диапазон как есть: границы записей фиксированной длины
// уже учтены при вычислении диапазона.
type Flat struct {
	Options
	// RecordLength используется только для подсчёта записей.
	RecordLength int64
}

var _ Splitter = (*Flat)(nil)

func (f *Flat) Split(ctx context.Context, r io.ReadSeeker, start, length int64, w io.Writer) (Stats, error) {
	out := &countingWriter{w: w}
	st := Stats{FirstRecord: -1, StoppedAt: start}
	if length <= 0 {
		return st, nil
	}

	cur, err := newCursor(r, f.bufferSize(), 0, start)
	if err != nil {
		return st, err
	}
	f.logger().Debug("flat: start piping", "pos", start, "length", length)

	left := length
	for left > 0 {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		limit := f.bufferSize()
		if left < int64(limit) {
			limit = int(left)
		}
		ok, err := cur.fill(limit)
		if err != nil {
			return st, err
		}
		if !ok {
			st.StoppedAt = cur.next()
			st.Bytes = out.n
			return st, fmt.Errorf("%w: end of data at %d, %d bytes of range left",
				models.ErrMalformedInput, cur.next(), left)
		}
		if _, err := out.Write(cur.buf); err != nil {
			return st, fmt.Errorf("write records: %w", err)
		}
		left -= int64(len(cur.buf))
	}

	st.FirstRecord = start
	st.StoppedAt = start + length
	st.Bytes = out.n
	if f.RecordLength > 0 {
		st.Records = length / f.RecordLength
	}
	f.logger().Debug("flat: stop piping", "pos", st.StoppedAt)
	return st, nil
}
