// Package memfs реализует remotefs.Store в оперативной памяти; удобно для тестов и пробных прогонов.
package memfs

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/sir_venger/hdfs_connector/internal/models"
	"github.com/sir_venger/hdfs_connector/pkg/remotefs"
)

const defaultBlockSize = 128 << 20

type file struct {
	data        []byte
	replication int
	blockSize   int64
}

// Store потокобезопасная файловая система в памяти. Каталоги неявные:
// каталог существует, пока в нём есть хотя бы один файл.
type Store struct {
	mu    sync.RWMutex
	files map[string]*file

	// MaxReadChunk ограничивает число байт, отдаваемых одним Read (0 значит без ограничений).
	// Позволяет воспроизвести короткие ответы сети.
	MaxReadChunk int
}

var _ remotefs.Store = (*Store)(nil)

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{files: map[string]*file{}}
}

// Put кладёт файл целиком, перезаписывая существующий.
func (s *Store) Put(p string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[clean(p)] = &file{data: append([]byte(nil), data...), replication: 1, blockSize: defaultBlockSize}
}

// Bytes возвращает копию содержимого файла.
func (s *Store) Bytes(p string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[clean(p)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, p)
	}
	return append([]byte(nil), f.data...), nil
}

// List возвращает отсортированные пути всех файлов.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.files))
	for p := range s.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (s *Store) Open(ctx context.Context, p string) (remotefs.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p = clean(p)
	s.mu.RLock()
	_, ok := s.files[p]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, p)
	}
	return &reader{store: s, path: p}, nil
}

func (s *Store) Create(ctx context.Context, p string, opts remotefs.WriteOptions) (remotefs.Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p = clean(p)
	f := &file{replication: opts.Replication, blockSize: opts.BlockSize}
	if f.replication <= 0 {
		f.replication = 1
	}
	if f.blockSize <= 0 {
		f.blockSize = defaultBlockSize
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isDirLocked(p) {
		return nil, fmt.Errorf("memfs: %s is a directory", p)
	}
	s.files[p] = f
	return &writer{store: s, path: p}, nil
}

func (s *Store) Append(ctx context.Context, p string, _ remotefs.WriteOptions) (remotefs.Writer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p = clean(p)
	s.mu.RLock()
	_, ok := s.files[p]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, p)
	}
	return &writer{store: s, path: p}, nil
}

func (s *Store) Stat(ctx context.Context, p string) (remotefs.FileStatus, error) {
	if err := ctx.Err(); err != nil {
		return remotefs.FileStatus{}, err
	}
	p = clean(p)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f, ok := s.files[p]; ok {
		return remotefs.FileStatus{
			Size:        int64(len(f.data)),
			BlockSize:   f.blockSize,
			Replication: f.replication,
			Owner:       "memfs",
			Group:       "memfs",
			Permission:  "644",
			Kind:        remotefs.KindFile,
		}, nil
	}
	if s.isDirLocked(p) {
		return remotefs.FileStatus{Owner: "memfs", Group: "memfs", Permission: "755", Kind: remotefs.KindDirectory}, nil
	}
	return remotefs.FileStatus{}, fmt.Errorf("%w: %s", models.ErrNotFound, p)
}

func (s *Store) Delete(ctx context.Context, p string, recursive bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p = clean(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[p]; ok {
		delete(s.files, p)
		return nil
	}
	if !s.isDirLocked(p) {
		return fmt.Errorf("%w: %s", models.ErrNotFound, p)
	}
	if !recursive {
		return fmt.Errorf("memfs: directory %s is not empty", p)
	}
	prefix := p + "/"
	for name := range s.files {
		if strings.HasPrefix(name, prefix) {
			delete(s.files, name)
		}
	}
	return nil
}

// ListHosts для памяти всегда отвечает одним псевдо-хостом на блок.
func (s *Store) ListHosts(ctx context.Context, p string) ([][]string, error) {
	st, err := s.Stat(ctx, p)
	if err != nil {
		return nil, err
	}
	blocks := (st.Size + st.BlockSize - 1) / st.BlockSize
	out := make([][]string, blocks)
	for i := range out {
		out[i] = []string{"localhost"}
	}
	return out, nil
}

func (s *Store) Close() error { return nil }

func (s *Store) isDirLocked(p string) bool {
	prefix := p + "/"
	if p == "/" {
		prefix = "/"
	}
	for name := range s.files {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func clean(p string) string {
	return path.Clean("/" + p)
}

type reader struct {
	store  *Store
	path   string
	offset int64
	closed bool
}

func (r *reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, fmt.Errorf("memfs: read on closed file %s", r.path)
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	f, ok := r.store.files[r.path]
	if !ok {
		return 0, fmt.Errorf("%w: %s", models.ErrNotFound, r.path)
	}
	if r.offset >= int64(len(f.data)) {
		return 0, io.EOF
	}
	if limit := r.store.MaxReadChunk; limit > 0 && len(p) > limit {
		p = p[:limit]
	}
	n := copy(p, f.data[r.offset:])
	r.offset += int64(n)
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
		r.store.mu.RLock()
		f, ok := r.store.files[r.path]
		r.store.mu.RUnlock()
		if !ok {
			return 0, fmt.Errorf("%w: %s", models.ErrNotFound, r.path)
		}
		abs = int64(len(f.data)) + offset
	default:
		return 0, fmt.Errorf("memfs: invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("memfs: negative position %d", abs)
	}
	r.offset = abs
	return abs, nil
}

func (r *reader) Close() error {
	r.closed = true
	return nil
}

// writer копит данные до Flush, как это делает HDFS-клиент.
type writer struct {
	store   *Store
	path    string
	pending []byte
	closed  bool
}

func (w *writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("memfs: write on closed file %s", w.path)
	}
	w.pending = append(w.pending, p...)
	return len(p), nil
}

func (w *writer) Flush() error {
	if w.closed {
		return fmt.Errorf("memfs: flush on closed file %s", w.path)
	}
	if len(w.pending) == 0 {
		return nil
	}
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	f, ok := w.store.files[w.path]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrNotFound, w.path)
	}
	f.data = append(f.data, w.pending...)
	w.pending = w.pending[:0]
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
