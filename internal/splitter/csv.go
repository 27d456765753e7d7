package splitter

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/sir_venger/hdfs_connector/internal/models"
)

// CSV делит текст с разделителем записей Terminator и символом кавычки Quote.
// Терминатор внутри кавычек не считается границей.
type CSV struct {
	Options
	Terminator []byte
	// Quote используется только первый байт; пустое значение отключает кавычки.
	Quote []byte
	// EmitTerminator писать ли терминатор после каждой записи.
	EmitTerminator bool
	// MaxScanLength ограничение в байтах на поиск первой границы (0 значит без ограничения).
	MaxScanLength int64
}

var _ Splitter = (*CSV)(nil)

// Split стримит записи, начинающиеся в [start, start+length).
func (s *CSV) Split(ctx context.Context, r io.ReadSeeker, start, length int64, w io.Writer) (Stats, error) {
	if len(s.Terminator) == 0 {
		return Stats{}, fmt.Errorf("%w: empty record terminator", models.ErrConfiguration)
	}
	out := &countingWriter{w: w}
	st := Stats{FirstRecord: -1, StoppedAt: start}
	if length <= 0 {
		return st, nil
	}

	log := s.logger()
	term := s.Terminator
	end := start + length
	hasQuote := len(s.Quote) > 0
	var quote byte
	if hasQuote {
		quote = s.Quote[0]
	}

	// Начинаем на длину терминатора раньше, чтобы увидеть терминатор, заканчивающийся ровно на start.
	scanFrom := start - int64(len(term))
	if scanFrom < 0 {
		scanFrom = 0
	}
	state := StateSeeking
	if start == 0 {
		state = StateStreaming
		st.FirstRecord = 0
	}

	var withinQuote bool
	if hasQuote && scanFrom > 0 {
		n, err := s.countQuotes(ctx, r, quote, scanFrom)
		if err != nil {
			return st, err
		}
		withinQuote = n%2 == 1
		log.Debug("csv: quote state restored", "quotes", n, "within_quote", withinQuote)
	}

	cur, err := newCursor(r, s.bufferSize(), len(term), scanFrom)
	if err != nil {
		return st, err
	}
	log.Debug("csv: start looking", "from", scanFrom, "end", end, "state", state.String())

	var recBytes int64
	for state != StateDone {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		ok, err := cur.fill(0)
		if err != nil {
			return st, err
		}
		if !ok {
			pos := cur.next()
			st.StoppedAt = pos
			switch state {
			case StateSeeking:
				if pos < end {
					return st, fmt.Errorf("%w: no record boundary before end of data at %d (range ends at %d)",
						models.ErrMalformedInput, pos, end)
				}
			case StateStreaming:
				if pos < end {
					return st, fmt.Errorf("%w: data truncated at %d (range ends at %d)",
						models.ErrMalformedInput, pos, end)
				}
			}
			if recBytes > 0 {
				st.Records++
			}
			state = StateDone
			break
		}

		from := 0
		i := 0
		for i < len(cur.buf) && state != StateDone {
			abs := cur.base + int64(i)
			switch state {
			case StateSeeking:
				if abs >= end {
					state = StateDone
					continue
				}
				if s.MaxScanLength > 0 && abs-scanFrom > s.MaxScanLength {
					return st, fmt.Errorf("%w: first record boundary not found within %d bytes of %d",
						models.ErrMalformedInput, s.MaxScanLength, scanFrom)
				}
			case StateStreaming:
				if abs >= end {
					state = StateAwaiting
					log.Debug("csv: looking for last terminator", "pos", abs)
				}
			}

			c := cur.buf[i]
			if hasQuote && c == quote {
				withinQuote = !withinQuote
				i++
				continue
			}
			if c != term[0] || withinQuote {
				i++
				continue
			}
			matched, err := cur.matchAt(term, i)
			if err != nil {
				return st, err
			}
			if !matched {
				i++
				continue
			}

			e := abs + int64(len(term))
			if state == StateSeeking {
				i += len(term)
				from = i
				if e >= end {
					state = StateDone
					continue
				}
				state = StateStreaming
				st.FirstRecord = e
				log.Debug("csv: start streaming", "pos", e)
				continue
			}

			stop := i
			if s.EmitTerminator {
				stop += len(term)
			}
			if _, err := out.Write(cur.buf[from:stop]); err != nil {
				return st, fmt.Errorf("write record: %w", err)
			}
			st.Records++
			recBytes = 0
			i += len(term)
			from = i
			if e >= end {
				state = StateDone
			}
		}

		if (state == StateStreaming || state == StateAwaiting) && from < len(cur.buf) {
			if _, err := out.Write(cur.buf[from:]); err != nil {
				return st, fmt.Errorf("write record: %w", err)
			}
			recBytes += int64(len(cur.buf) - from)
		}
		st.StoppedAt = cur.base + int64(i)
	}

	st.Bytes = out.n
	log.Debug("csv: stop", "pos", st.StoppedAt, "records", st.Records)
	return st, nil
}

// countQuotes считает байты кавычки в [0, upTo): флаг кавычек переключается на каждой
// кавычке от начала файла.
func (s *CSV) countQuotes(ctx context.Context, r io.ReadSeeker, quote byte, upTo int64) (int64, error) {
	cur, err := newCursor(r, s.bufferSize(), 0, 0)
	if err != nil {
		return 0, err
	}
	var n int64
	for cur.next() < upTo {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		rest := upTo - cur.next()
		limit := 0
		if rest < int64(cur.size) {
			limit = int(rest)
		}
		ok, err := cur.fill(limit)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("%w: data ends at %d before range start %d",
				models.ErrMalformedInput, cur.next(), upTo)
		}
		n += int64(bytes.Count(cur.buf, []byte{quote}))
	}
	return n, nil
}
