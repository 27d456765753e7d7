package webhdfsd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/sir_venger/hdfs_connector/internal/models"
	"github.com/sir_venger/hdfs_connector/pkg/httperrors"
	"github.com/sir_venger/hdfs_connector/pkg/webhdfsproto"
)

func (s *Server) fileStatus(w http.ResponseWriter, r *http.Request) {
	p := hdfsPath(r)
	fi, err := os.Stat(s.localPath(p))
	if err != nil {
		httperrors.Write(w, fsErr(p, err))
		return
	}
	writeJSON(w, http.StatusOK, webhdfsproto.FileStatusResponse{FileStatus: s.status(fi)})
}

func (s *Server) status(fi os.FileInfo) webhdfsproto.FileStatus {
	st := webhdfsproto.FileStatus{
		AccessTime:       fi.ModTime().UnixMilli(),
		ModificationTime: fi.ModTime().UnixMilli(),
		Owner:            s.owner(),
		Group:            "supergroup",
		Permission:       strconv.FormatUint(uint64(fi.Mode().Perm()), 8),
		Type:             webhdfsproto.TypeFile,
	}
	if fi.IsDir() {
		st.Type = webhdfsproto.TypeDirectory
		return st
	}
	st.Length = fi.Size()
	st.BlockSize = s.blockSize
	st.Replication = defaultReplication
	return st
}

func (s *Server) owner() string {
	if s.user != "" {
		return s.user
	}
	return "hdfs"
}

// blockLocations делит файл на блоки blockSize; все реплики на этом же хосте.
func (s *Server) blockLocations(w http.ResponseWriter, r *http.Request) {
	p := hdfsPath(r)
	fi, err := os.Stat(s.localPath(p))
	if err != nil {
		httperrors.Write(w, fsErr(p, err))
		return
	}
	if fi.IsDir() {
		httperrors.Write(w, fmt.Errorf("%w: %s is a directory", models.ErrConfiguration, p))
		return
	}

	var resp webhdfsproto.BlockLocationsResponse
	resp.BlockLocations.BlockLocation = []webhdfsproto.BlockLocation{}
	host := r.Host
	for off := int64(0); off < fi.Size(); off += s.blockSize {
		resp.BlockLocations.BlockLocation = append(resp.BlockLocations.BlockLocation, webhdfsproto.BlockLocation{
			Offset: off,
			Length: min(s.blockSize, fi.Size()-off),
			Hosts:  []string{hostOnly(host)},
			Names:  []string{host},
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	p := hdfsPath(r)
	if p == "/" {
		httperrors.Write(w, fmt.Errorf("%w: refusing to delete root", models.ErrPermissionDenied))
		return
	}
	recursive, _ := strconv.ParseBool(r.URL.Query().Get(webhdfsproto.ParamRecursive))
	local := s.localPath(p)

	fi, err := os.Stat(local)
	if errors.Is(err, fs.ErrNotExist) {
		writeJSON(w, http.StatusOK, webhdfsproto.BooleanResponse{Boolean: false})
		return
	}
	if err != nil {
		httperrors.Write(w, fsErr(p, err))
		return
	}

	if fi.IsDir() && recursive {
		err = os.RemoveAll(local)
	} else {
		// os.Remove не удаляет непустой каталог
		err = os.Remove(local)
	}
	if err != nil {
		httperrors.Write(w, fmt.Errorf("%w: delete %s: %v", models.ErrConfiguration, p, err))
		return
	}
	s.log.Debug("deleted", "path", p, "recursive", recursive)
	writeJSON(w, http.StatusOK, webhdfsproto.BooleanResponse{Boolean: true})
}

func (s *Server) mkdirs(w http.ResponseWriter, r *http.Request) {
	p := hdfsPath(r)
	if err := os.MkdirAll(s.localPath(p), 0o755); err != nil {
		httperrors.Write(w, fsErr(p, err))
		return
	}
	writeJSON(w, http.StatusOK, webhdfsproto.BooleanResponse{Boolean: true})
}

// viaDataNode без аренды отвечает 307 на адрес DataNode, с арендой выполняет операцию.
func (s *Server) viaDataNode(w http.ResponseWriter, r *http.Request, data http.HandlerFunc) {
	q := r.URL.Query()
	op := q.Get(webhdfsproto.ParamOp)
	p := hdfsPath(r)

	if id := q.Get(webhdfsproto.ParamLease); id != "" {
		if !s.leases.take(id, op, p) {
			httperrors.Write(w, fmt.Errorf("%w: invalid lease for %s %s", models.ErrPermissionDenied, op, p))
			return
		}
		data(w, r)
		return
	}

	q.Set(webhdfsproto.ParamLease, s.leases.issue(op, p))
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	loc := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: q.Encode()}
	w.Header().Set("Location", loc.String())
	w.WriteHeader(http.StatusTemporaryRedirect)
}

func fsErr(p string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: File %s does not exist", models.ErrNotFound, p)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", models.ErrPermissionDenied, p)
	default:
		return fmt.Errorf("%s: %w", p, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", webhdfsproto.ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func hostOnly(hostport string) string {
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	return hostport
}
