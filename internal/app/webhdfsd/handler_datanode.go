package webhdfsd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sir_venger/hdfs_connector/internal/models"
	"github.com/sir_venger/hdfs_connector/pkg/httperrors"
	"github.com/sir_venger/hdfs_connector/pkg/webhdfsproto"
)

// openData отдаёт length байт с offset; за концом файла тело пустое.
func (s *Server) openData(w http.ResponseWriter, r *http.Request) {
	p := hdfsPath(r)
	q := r.URL.Query()
	offset, err := parseNonNegative(q.Get(webhdfsproto.ParamOffset), 0)
	if err != nil {
		httperrors.Write(w, fmt.Errorf("%w: offset: %v", models.ErrConfiguration, err))
		return
	}
	length, err := parseNonNegative(q.Get(webhdfsproto.ParamLength), -1)
	if err != nil {
		httperrors.Write(w, fmt.Errorf("%w: length: %v", models.ErrConfiguration, err))
		return
	}

	f, err := os.Open(s.localPath(p))
	if err != nil {
		httperrors.Write(w, fsErr(p, err))
		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		httperrors.Write(w, fsErr(p, err))
		return
	}
	if fi.IsDir() {
		httperrors.Write(w, fmt.Errorf("%w: %s is a directory", models.ErrConfiguration, p))
		return
	}

	n := max(fi.Size()-offset, 0)
	if length >= 0 {
		n = min(n, length)
	}
	w.Header().Set("Content-Type", webhdfsproto.ContentTypeData)
	w.Header().Set("Content-Length", strconv.FormatInt(n, 10))
	w.WriteHeader(http.StatusOK)
	if n > 0 {
		_, _ = io.Copy(w, io.NewSectionReader(f, offset, n))
	}
}

// createData пишет тело во временный файл и атомарно подменяет им целевой.
func (s *Server) createData(w http.ResponseWriter, r *http.Request) {
	p := hdfsPath(r)
	q := r.URL.Query()
	local := s.localPath(p)

	fi, err := os.Stat(local)
	switch {
	case err == nil && fi.IsDir():
		httperrors.Write(w, fmt.Errorf("%w: %s is a directory", models.ErrConfiguration, p))
		return
	case err == nil && q.Get(webhdfsproto.ParamOverwrite) != "true":
		httperrors.Write(w, fmt.Errorf("%w: FileAlreadyExistsException: %s", models.ErrPermissionDenied, p))
		return
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		httperrors.Write(w, fsErr(p, err))
		return
	}

	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		httperrors.Write(w, fsErr(p, err))
		return
	}

	staged := filepath.Join(s.dataDir, stagingDir, q.Get(webhdfsproto.ParamLease))
	f, err := os.Create(staged)
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	n, err := io.Copy(f, r.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(staged)
		httperrors.Write(w, fmt.Errorf("%w: receive %s: %v", models.ErrTransport, p, err))
		return
	}
	if err := os.Rename(staged, local); err != nil {
		_ = os.Remove(staged)
		httperrors.Write(w, err)
		return
	}

	s.log.Debug("created", "path", p, "bytes", n)
	w.Header().Set("Location", "hdfs://"+r.Host+p)
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) appendData(w http.ResponseWriter, r *http.Request) {
	p := hdfsPath(r)
	f, err := os.OpenFile(s.localPath(p), os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		httperrors.Write(w, fsErr(p, err))
		return
	}
	n, err := io.Copy(f, r.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		httperrors.Write(w, fmt.Errorf("%w: append %s: %v", models.ErrTransport, p, err))
		return
	}

	s.log.Debug("appended", "path", p, "bytes", n)
	w.WriteHeader(http.StatusOK)
}

func parseNonNegative(v string, def int64) (int64, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}
