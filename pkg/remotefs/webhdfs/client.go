// Package webhdfs реализует remotefs.Store поверх REST-интерфейса WebHDFS.
package webhdfs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sir_venger/hdfs_connector/internal/models"
	"github.com/sir_venger/hdfs_connector/pkg/httperrors"
	"github.com/sir_venger/hdfs_connector/pkg/remotefs"
	"github.com/sir_venger/hdfs_connector/pkg/webhdfsproto"
)

// Config параметры подключения к NameNode.
type Config struct {
	// Addresses адреса NameNode вида host:port. При нескольких адресах выбирается активный.
	Addresses []string
	User      string
	// MaxRetry число дополнительных попыток при сбое транспорта. Повторы без задержки.
	MaxRetry   int
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client адаптер WebHDFS.
type Client struct {
	base     string
	user     string
	maxRetry int
	hc       *http.Client
	log      *slog.Logger
}

var _ remotefs.Store = (*Client)(nil)

// New создаёт клиент. Если адресов несколько, опрашивает их и берёт активный NameNode.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("%w: no namenode address", models.ErrConfiguration)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	hc := &http.Client{}
	if cfg.HTTPClient != nil {
		clone := *cfg.HTTPClient
		hc = &clone
	}
	// Редиректы на DataNode обрабатываются вручную: тело запроса отправляется только по адресу DataNode.
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	addr := cfg.Addresses[0]
	if len(cfg.Addresses) > 1 {
		active, err := ActiveNameNode(ctx, hc, cfg.Addresses, cfg.User)
		if err != nil {
			return nil, err
		}
		addr = active
	}

	c := &Client{
		base:     baseURL(addr),
		user:     cfg.User,
		maxRetry: max(cfg.MaxRetry, 0),
		hc:       hc,
		log:      log.With("transport", "webhdfs", "namenode", addr),
	}
	return c, nil
}

// Address собирает host:port.
func Address(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func baseURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimRight(addr, "/") + webhdfsproto.PathPrefix
	}
	return "http://" + addr + webhdfsproto.PathPrefix
}

func (c *Client) opURL(p, op string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set(webhdfsproto.ParamOp, op)
	if c.user != "" {
		params.Set(webhdfsproto.ParamUser, c.user)
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return c.base + (&url.URL{Path: p}).EscapedPath() + "?" + params.Encode()
}

// do выполняет запрос с повторами. Повторяются сетевые сбои и ответы 5xx,
// остальные ответы отдаются вызывающему как есть.
func (c *Client) do(ctx context.Context, method, u string, payload []byte) (*http.Response, error) {
	return c.send(ctx, method, u, payload, c.maxRetry)
}

func (c *Client) send(ctx context.Context, method, u string, payload []byte, retries int) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, body)
		if err != nil {
			return nil, fmt.Errorf("%w: build request: %v", models.ErrConfiguration, err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", webhdfsproto.ContentTypeData)
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			lastErr = err
			c.log.Warn("webhdfs request failed", "method", method, "attempt", attempt+1, "err", err)
			continue
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = failure(resp)
			c.log.Warn("webhdfs server error", "method", method, "attempt", attempt+1, "err", lastErr)
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("%w: %s %s: %d attempt(s): %v", models.ErrTransport, method, redact(u), retries+1, lastErr)
}

// failure читает тело неуспешного ответа и закрывает его.
func failure(resp *http.Response) error {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return httperrors.Decode(resp.StatusCode, body)
}

func redact(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}

// redirected выполняет двухшаговую операцию: NameNode отвечает 307 с адресом DataNode,
// по которому отправляется payload.
func (c *Client) redirected(ctx context.Context, method, u string, payload []byte, want int) error {
	resp, err := c.do(ctx, method, u, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusTemporaryRedirect {
		if resp.StatusCode >= http.StatusBadRequest {
			return failure(resp)
		}
		resp.Body.Close()
		return fmt.Errorf("%w: %s %s: expected redirect, got %s", models.ErrProtocol, method, redact(u), resp.Status)
	}
	location, err := resp.Location()
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("%w: %s %s: redirect without Location", models.ErrProtocol, method, redact(u))
	}
	if payload == nil {
		payload = []byte{}
	}

	// APPEND не идемпотентен: DataNode мог принять данные и потерять ответ.
	retries := c.maxRetry
	if method == http.MethodPost {
		retries = 0
	}
	resp, err = c.send(ctx, method, location.String(), payload, retries)
	if err != nil {
		return err
	}
	if resp.StatusCode != want {
		if resp.StatusCode >= http.StatusBadRequest {
			return failure(resp)
		}
		resp.Body.Close()
		return fmt.Errorf("%w: %s datanode: unexpected status %s", models.ErrProtocol, method, resp.Status)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// Stat запрашивает GETFILESTATUS.
func (c *Client) Stat(ctx context.Context, p string) (remotefs.FileStatus, error) {
	resp, err := c.do(ctx, http.MethodGet, c.opURL(p, webhdfsproto.OpGetFileStatus, nil), nil)
	if err != nil {
		return remotefs.FileStatus{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return remotefs.FileStatus{}, failure(resp)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return remotefs.FileStatus{}, fmt.Errorf("%w: read status of %s: %v", models.ErrTransport, p, err)
	}
	st, err := parseStatus(body)
	if err != nil {
		return remotefs.FileStatus{}, fmt.Errorf("stat %s: %w", p, err)
	}
	return st, nil
}

// Open проверяет, что путь указывает на файл, и возвращает читатель с окнами OPEN.
func (c *Client) Open(ctx context.Context, p string) (remotefs.Reader, error) {
	st, err := c.Stat(ctx, p)
	if err != nil {
		return nil, err
	}
	if st.Kind == remotefs.KindDirectory {
		return nil, fmt.Errorf("%w: %s is a directory", models.ErrConfiguration, p)
	}
	return &reader{c: c, ctx: ctx, path: p, size: st.Size}, nil
}

// Create создаёт (или обрезает) файл пустым и возвращает писатель, дописывающий данные через APPEND.
func (c *Client) Create(ctx context.Context, p string, opts remotefs.WriteOptions) (remotefs.Writer, error) {
	params := url.Values{}
	params.Set(webhdfsproto.ParamOverwrite, "true")
	if opts.Replication > 0 {
		params.Set(webhdfsproto.ParamReplication, strconv.Itoa(opts.Replication))
	}
	if opts.BlockSize > 0 {
		params.Set(webhdfsproto.ParamBlockSize, strconv.FormatInt(opts.BlockSize, 10))
	}
	if err := c.redirected(ctx, http.MethodPut, c.opURL(p, webhdfsproto.OpCreate, params), nil, http.StatusCreated); err != nil {
		return nil, fmt.Errorf("create %s: %w", p, err)
	}
	c.log.Debug("webhdfs file created", "path", p, "replication", opts.Replication)
	return &writer{c: c, ctx: ctx, path: p}, nil
}

// Append открывает существующий файл на дозапись.
func (c *Client) Append(ctx context.Context, p string, _ remotefs.WriteOptions) (remotefs.Writer, error) {
	st, err := c.Stat(ctx, p)
	if err != nil {
		return nil, err
	}
	if st.Kind != remotefs.KindFile {
		return nil, fmt.Errorf("%w: %s is not a file", models.ErrConfiguration, p)
	}
	return &writer{c: c, ctx: ctx, path: p}, nil
}

func (c *Client) appendData(ctx context.Context, p string, data []byte) error {
	return c.redirected(ctx, http.MethodPost, c.opURL(p, webhdfsproto.OpAppend, nil), data, http.StatusOK)
}

// Delete удаляет файл или каталог. Ответ {"boolean": false} означает, что пути нет.
func (c *Client) Delete(ctx context.Context, p string, recursive bool) error {
	params := url.Values{}
	params.Set(webhdfsproto.ParamRecursive, strconv.FormatBool(recursive))
	resp, err := c.do(ctx, http.MethodDelete, c.opURL(p, webhdfsproto.OpDelete, params), nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return failure(resp)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if err != nil {
		return fmt.Errorf("%w: read delete response: %v", models.ErrTransport, err)
	}
	if v, ok := scanField(body, "boolean"); ok && v == "false" {
		return fmt.Errorf("%w: %s", models.ErrNotFound, p)
	}
	return nil
}

// ListHosts возвращает хосты реплик каждого блока.
func (c *Client) ListHosts(ctx context.Context, p string) ([][]string, error) {
	resp, err := c.do(ctx, http.MethodGet, c.opURL(p, webhdfsproto.OpGetFileBlockLocations, nil), nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, failure(resp)
	}
	defer resp.Body.Close()

	var payload webhdfsproto.BlockLocationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: block locations of %s: %v", models.ErrTransport, p, err)
		}
		return nil, fmt.Errorf("%w: block locations of %s: %v", models.ErrProtocol, p, err)
	}
	out := make([][]string, 0, len(payload.BlockLocations.BlockLocation))
	for _, b := range payload.BlockLocations.BlockLocation {
		out = append(out, b.Hosts)
	}
	return out, nil
}

// Close освобождает простаивающие соединения.
func (c *Client) Close() error {
	c.hc.CloseIdleConnections()
	return nil
}
