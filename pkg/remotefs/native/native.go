// Package native реализует remotefs.Store через RPC-протокол HDFS (github.com/colinmarc/hdfs/v2).
package native

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/colinmarc/hdfs/v2"

	"github.com/sir_venger/hdfs_connector/internal/models"
	"github.com/sir_venger/hdfs_connector/pkg/remotefs"
)

const defaultPerm = 0o644

// Config параметры подключения к NameNode.
type Config struct {
	// Addresses адреса NameNode вида host:port; при HA клиент сам переключается на активный.
	Addresses []string
	User      string
	Logger    *slog.Logger
}

// Client адаптер поверх нативного HDFS-клиента.
// Библиотека не принимает context, поэтому отмена проверяется перед каждой операцией.
type Client struct {
	fs  *hdfs.Client
	log *slog.Logger
}

var _ remotefs.Store = (*Client)(nil)

// New подключается к NameNode.
func New(cfg Config) (*Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("%w: no namenode address", models.ErrConfiguration)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	c, err := hdfs.NewClient(hdfs.ClientOptions{
		Addresses: cfg.Addresses,
		User:      cfg.User,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connect to %v: %v", models.ErrTransport, cfg.Addresses, err)
	}
	return &Client{fs: c, log: log.With("transport", "native")}, nil
}

// mapErr приводит ошибки клиента HDFS к сентинелам из models.
func mapErr(op, p string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s %s: %v", models.ErrNotFound, op, p, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s %s: %v", models.ErrPermissionDenied, op, p, err)
	default:
		return fmt.Errorf("%w: %s %s: %v", models.ErrTransport, op, p, err)
	}
}

func (c *Client) Open(ctx context.Context, p string) (remotefs.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := c.fs.Open(p)
	if err != nil {
		return nil, mapErr("open", p, err)
	}
	return f, nil
}

// Create удаляет существующий файл и создаёт новый с заданной репликацией.
func (c *Client) Create(ctx context.Context, p string, opts remotefs.WriteOptions) (remotefs.Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.fs.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, mapErr("truncate", p, err)
	}

	replication, blockSize := opts.Replication, opts.BlockSize
	if replication <= 0 || blockSize <= 0 {
		defaults, err := c.fs.ServerDefaults()
		if err != nil {
			return nil, mapErr("server defaults", p, err)
		}
		if replication <= 0 {
			replication = defaults.Replication
		}
		if blockSize <= 0 {
			blockSize = defaults.BlockSize
		}
	}

	w, err := c.fs.CreateFile(p, replication, blockSize, os.FileMode(defaultPerm))
	if err != nil {
		return nil, mapErr("create", p, err)
	}
	c.log.Debug("hdfs file created", "path", p, "replication", replication, "block_size", blockSize)
	return w, nil
}

func (c *Client) Append(ctx context.Context, p string, _ remotefs.WriteOptions) (remotefs.Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, err := c.fs.Append(p)
	if err != nil {
		return nil, mapErr("append", p, err)
	}
	return w, nil
}

func (c *Client) Stat(ctx context.Context, p string) (remotefs.FileStatus, error) {
	if err := ctx.Err(); err != nil {
		return remotefs.FileStatus{}, err
	}
	info, err := c.fs.Stat(p)
	if err != nil {
		return remotefs.FileStatus{}, mapErr("stat", p, err)
	}

	st := remotefs.FileStatus{
		Size:       info.Size(),
		Permission: fmt.Sprintf("%o", info.Mode().Perm()),
		Kind:       remotefs.KindFile,
	}
	if info.IsDir() {
		st.Kind = remotefs.KindDirectory
	} else if info.Mode()&fs.ModeSymlink != 0 {
		st.Kind = remotefs.KindSymlink
	}
	if fi, ok := info.(*hdfs.FileInfo); ok {
		st.Owner = fi.Owner()
		st.Group = fi.OwnerGroup()
	}
	if proto, ok := info.Sys().(interface {
		GetBlocksize() uint64
		GetBlockReplication() uint32
	}); ok {
		st.BlockSize = int64(proto.GetBlocksize())
		st.Replication = int(proto.GetBlockReplication())
	}
	return st, nil
}

func (c *Client) Delete(ctx context.Context, p string, recursive bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var err error
	if recursive {
		if _, err = c.fs.Stat(p); err == nil {
			err = c.fs.RemoveAll(p)
		}
	} else {
		err = c.fs.Remove(p)
	}
	return mapErr("delete", p, err)
}

// ListHosts нативный клиент не раскрывает расположение блоков.
func (c *Client) ListHosts(context.Context, string) ([][]string, error) {
	return nil, fmt.Errorf("native transport: block locations: %w", errors.ErrUnsupported)
}

func (c *Client) Close() error {
	return c.fs.Close()
}
