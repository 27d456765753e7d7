// Package splitter находит настоящие границы записей внутри байтового диапазона воркера
// и передаёт принадлежащие ему записи в приёмник по мере чтения окон.
//
// Правило владения: воркер владеет каждой записью, первый байт которой лежит
// в [start, end). Соседние воркеры применяют одно и то же правило, поэтому
// каждая запись попадает ровно к одному из них.
package splitter

import (
	"context"
	"io"
	"log/slog"
)

// DefaultBufferSize размер окна чтения по умолчанию.
const DefaultBufferSize = 100 * 1024

// State состояние курсора границ.
type State int

const (
	StateSeeking State = iota
	StateStreaming
	StateAwaiting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateSeeking:
		return "seeking"
	case StateStreaming:
		return "streaming"
	case StateAwaiting:
		return "awaiting"
	default:
		return "done"
	}
}

// Stats итог прогона сплиттера.
type Stats struct {
	Records int64
	// Bytes сколько байт ушло в приёмник, включая header/footer.
	Bytes int64
	// FirstRecord абсолютное смещение первой принадлежащей записи, -1 если записей нет.
	FirstRecord int64
	// StoppedAt абсолютная позиция, на которой закончилось сканирование.
	StoppedAt int64
}

// Splitter читает диапазон [start, start+length) и пишет свои записи в w.
type Splitter interface {
	Split(ctx context.Context, r io.ReadSeeker, start, length int64, w io.Writer) (Stats, error)
}

// Options общие параметры сплиттеров.
type Options struct {
	BufferSize int
	Logger     *slog.Logger
}

func (o Options) bufferSize() int {
	if o.BufferSize <= 0 {
		return DefaultBufferSize
	}
	return o.BufferSize
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// countingWriter считает отданные байты.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
