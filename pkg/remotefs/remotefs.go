// Package remotefs описывает доступ к удалённой файловой системе (HDFS),
// не привязанный к конкретному транспорту.
package remotefs

import (
	"context"
	"io"
)

// FileKind тип объекта файловой системы.
type FileKind int

const (
	KindFile FileKind = iota
	KindDirectory
	KindSymlink
)

func (k FileKind) String() string {
	switch k {
	case KindDirectory:
		return "DIRECTORY"
	case KindSymlink:
		return "SYMLINK"
	default:
		return "FILE"
	}
}

// FileStatus метаданные удалённого файла.
// Для разбиения нужен только Size, остальное идёт в диагностику.
type FileStatus struct {
	Size        int64
	BlockSize   int64
	Replication int
	Owner       string
	Group       string
	Permission  string
	Kind        FileKind
}

// WriteOptions параметры создания файла. Нулевые значения означают умолчания сервера.
type WriteOptions struct {
	Replication int
	BlockSize   int64
}

type (
	// Reader поток чтения удалённого файла. Конец данных сигнализируется io.EOF.
	Reader interface {
		io.Reader
		io.Seeker
		io.Closer
	}

	// Writer поток записи. Flush делает записанное видимым для читателей.
	Writer interface {
		io.Writer
		Flush() error
		io.Closer
	}

	// Store операции над удалённой файловой системой.
	Store interface {
		// Open открывает файл на чтение.
		Open(ctx context.Context, path string) (Reader, error)
		// Create создаёт файл или обрезает существующий.
		Create(ctx context.Context, path string, opts WriteOptions) (Writer, error)
		// Append открывает существующий файл на дозапись.
		Append(ctx context.Context, path string, opts WriteOptions) (Writer, error)
		Stat(ctx context.Context, path string) (FileStatus, error)
		Delete(ctx context.Context, path string, recursive bool) error
		// ListHosts возвращает хосты, хранящие блоки файла. Только для диагностики.
		ListHosts(ctx context.Context, path string) ([][]string, error)
		Close() error
	}
)
