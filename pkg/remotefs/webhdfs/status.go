package webhdfs

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/sir_venger/hdfs_connector/internal/models"
	"github.com/sir_venger/hdfs_connector/pkg/remotefs"
	"github.com/sir_venger/hdfs_connector/pkg/webhdfsproto"
)

// parseStatus вытаскивает поля FileStatus текстовым поиском, без полного разбора JSON.
// Обязательно только поле length.
func parseStatus(body []byte) (remotefs.FileStatus, error) {
	raw, ok := scanField(body, "length")
	if !ok {
		return remotefs.FileStatus{}, fmt.Errorf("%w: no length in file status", models.ErrProtocol)
	}
	size, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || size < 0 {
		return remotefs.FileStatus{}, fmt.Errorf("%w: bad length %q in file status", models.ErrProtocol, raw)
	}

	st := remotefs.FileStatus{Size: size}
	if v, ok := scanField(body, "blockSize"); ok {
		st.BlockSize, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := scanField(body, "replication"); ok {
		st.Replication, _ = strconv.Atoi(v)
	}
	st.Owner, _ = scanField(body, "owner")
	st.Group, _ = scanField(body, "group")
	st.Permission, _ = scanField(body, "permission")
	switch v, _ := scanField(body, "type"); v {
	case webhdfsproto.TypeDirectory:
		st.Kind = remotefs.KindDirectory
	case webhdfsproto.TypeSymlink:
		st.Kind = remotefs.KindSymlink
	default:
		st.Kind = remotefs.KindFile
	}
	return st, nil
}

// scanField находит "name": value и возвращает value: строку без кавычек
// либо число/литерал до разделителя.
func scanField(body []byte, name string) (string, bool) {
	key := []byte(`"` + name + `"`)
	from := 0
	for {
		i := bytes.Index(body[from:], key)
		if i < 0 {
			return "", false
		}
		rest := bytes.TrimLeft(body[from+i+len(key):], " \t\r\n")
		from += i + len(key)
		if len(rest) == 0 || rest[0] != ':' {
			// совпало значение, а не ключ
			continue
		}
		rest = bytes.TrimLeft(rest[1:], " \t\r\n")
		if len(rest) == 0 {
			return "", false
		}
		if rest[0] == '"' {
			end := bytes.IndexByte(rest[1:], '"')
			if end < 0 {
				return "", false
			}
			return string(rest[1 : end+1]), true
		}
		end := bytes.IndexAny(rest, ",}] \t\r\n")
		if end < 0 {
			end = len(rest)
		}
		return string(rest[:end]), true
	}
}
