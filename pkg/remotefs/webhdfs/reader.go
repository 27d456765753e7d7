package webhdfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sir_venger/hdfs_connector/internal/models"
	"github.com/sir_venger/hdfs_connector/pkg/webhdfsproto"
)

// reader каждый Read превращает в один запрос OPEN с offset и length = len(p).
type reader struct {
	c      *Client
	ctx    context.Context
	path   string
	offset int64
	size   int64
	closed bool
}

func (r *reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, fmt.Errorf("webhdfs: read on closed file %s", r.path)
	}
	if len(p) == 0 {
		return 0, nil
	}
	if r.offset >= r.size {
		return 0, io.EOF
	}

	params := url.Values{}
	params.Set(webhdfsproto.ParamOffset, strconv.FormatInt(r.offset, 10))
	params.Set(webhdfsproto.ParamLength, strconv.Itoa(len(p)))
	resp, err := r.c.do(r.ctx, http.MethodGet, r.c.opURL(r.path, webhdfsproto.OpOpen, params), nil)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode == http.StatusTemporaryRedirect {
		location, locErr := resp.Location()
		resp.Body.Close()
		if locErr != nil {
			return 0, fmt.Errorf("%w: OPEN %s: redirect without Location", models.ErrProtocol, r.path)
		}
		if resp, err = r.c.do(r.ctx, http.MethodGet, location.String(), nil); err != nil {
			return 0, err
		}
	}
	if resp.StatusCode != http.StatusOK {
		return 0, failure(resp)
	}
	defer resp.Body.Close()

	n, err := io.ReadFull(resp.Body, p)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return n, fmt.Errorf("%w: OPEN %s at %d: %v", models.ErrTransport, r.path, r.offset, err)
	}
	if n == len(p) {
		var extra [1]byte
		if m, _ := resp.Body.Read(extra[:]); m > 0 {
			return 0, fmt.Errorf("%w: OPEN %s at %d returned more than %d bytes", models.ErrProtocol, r.path, r.offset, len(p))
		}
	}
	r.offset += int64(n)
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (r *reader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.offset + offset
	case io.SeekEnd:
		abs = r.size + offset
	default:
		return 0, fmt.Errorf("webhdfs: invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("webhdfs: negative position %d", abs)
	}
	r.offset = abs
	return abs, nil
}

func (r *reader) Close() error {
	r.closed = true
	return nil
}
