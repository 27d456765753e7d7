package webhdfs

import (
	"bytes"
	"context"
	"fmt"
)

// writer копит данные и отправляет их одним APPEND на каждый Flush.
type writer struct {
	c      *Client
	ctx    context.Context
	path   string
	buf    bytes.Buffer
	closed bool
}

func (w *writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("webhdfs: write on closed file %s", w.path)
	}
	return w.buf.Write(p)
}

func (w *writer) Flush() error {
	if w.closed {
		return fmt.Errorf("webhdfs: flush on closed file %s", w.path)
	}
	if w.buf.Len() == 0 {
		return nil
	}
	if err := w.c.appendData(w.ctx, w.path, w.buf.Bytes()); err != nil {
		return fmt.Errorf("append %d bytes to %s: %w", w.buf.Len(), w.path, err)
	}
	w.buf.Reset()
	return nil
}

func (w *writer) Close() error {
	if w.closed {
		return nil
	}
	err := w.Flush()
	w.closed = true
	return err
}
