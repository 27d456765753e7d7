package splitter

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/sir_venger/hdfs_connector/internal/models"
)

// cursor отдаёт окна фиксированного размера из удалённого потока.
// Все окна читаются в одну арену, позиции считаются как base + индекс.
type cursor struct {
	r     io.ReadSeeker
	arena []byte
	size  int
	// buf текущее окно, срез арены.
	buf  []byte
	base int64
	eof  bool
}

// newCursor позиционирует поток на from. extra: запас арены под дочитывание токена.
func newCursor(r io.ReadSeeker, size, extra int, from int64) (*cursor, error) {
	if _, err := r.Seek(from, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: seek to %d: %w", models.ErrTransport, from, err)
	}
	return &cursor{
		r:     r,
		arena: make([]byte, size+extra),
		size:  size,
		base:  from,
	}, nil
}

// next позиция, с которой начнётся следующее окно.
func (c *cursor) next() int64 {
	return c.base + int64(len(c.buf))
}

// fill читает следующее окно не длиннее limit байт (limit <= 0 значит размер окна).
// Возвращает false, когда поток закончился: чтение 0 байт означает конец данных.
func (c *cursor) fill(limit int) (bool, error) {
	if c.eof {
		return false, nil
	}
	c.base = c.next()
	c.buf = c.arena[:0]

	want := c.size
	if limit > 0 && limit < want {
		want = limit
	}
	n, err := c.r.Read(c.arena[:want])
	if n > 0 {
		c.buf = c.arena[:n]
		if err != nil && !errors.Is(err, io.EOF) {
			return false, fmt.Errorf("%w: read at %d: %w", models.ErrTransport, c.base, err)
		}
		return true, nil
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("%w: read at %d: %w", models.ErrTransport, c.base, err)
	}
	c.eof = true
	return false, nil
}

// complete дочитывает хвост токена, начало которого (have байт) совпало в конце окна.
// При совпадении окно расширяется, иначе поток возвращается на конец окна,
// и эти байты будут просканированы в следующем окне.
func (c *cursor) complete(token []byte, have int) (bool, error) {
	missing := len(token) - have
	tail := c.arena[len(c.buf) : len(c.buf)+missing]
	n, err := io.ReadFull(c.r, tail)
	if err == nil && bytes.Equal(tail, token[have:]) {
		c.buf = c.arena[:len(c.buf)+missing]
		return true, nil
	}
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return false, fmt.Errorf("%w: read token tail at %d: %w", models.ErrTransport, c.next(), err)
	}
	if n > 0 {
		if _, err := c.r.Seek(c.next(), io.SeekStart); err != nil {
			return false, fmt.Errorf("%w: seek back to %d: %w", models.ErrTransport, c.next(), err)
		}
	}
	return false, nil
}

// matchAt проверяет, начинается ли token с индекса i текущего окна.
func (c *cursor) matchAt(token []byte, i int) (bool, error) {
	avail := len(c.buf) - i
	if avail >= len(token) {
		return bytes.Equal(c.buf[i:i+len(token)], token), nil
	}
	if !bytes.Equal(c.buf[i:], token[:avail]) {
		return false, nil
	}
	return c.complete(token, avail)
}
