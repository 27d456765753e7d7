package webhdfsd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sir_venger/hdfs_connector/internal/models"
	"github.com/sir_venger/hdfs_connector/pkg/httperrors"
	"github.com/sir_venger/hdfs_connector/pkg/webhdfsproto"
)

const (
	defaultBlockSize   = 128 << 20
	defaultReplication = 1
	// stagingDir каталог внутри dataDir для незавершённых CREATE.
	stagingDir = ".staging"
)

// Config параметры сервера.
type Config struct {
	DataDir string
	// User если задан, запросы с другим user.name получают AccessControlException.
	User string
	// Standby отвечать StandbyException на любую операцию, как резервный NameNode.
	Standby   bool
	BlockSize int64
	Logger    *slog.Logger
}

// Server обслуживает WebHDFS API поверх локального каталога.
type Server struct {
	dataDir   string
	user      string
	standby   bool
	blockSize int64
	leases    *leaseTable
	log       *slog.Logger
}

// New создаёт сервер. Каталог данных создаётся, если его нет.
func New(cfg Config) (*Server, error) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return nil, fmt.Errorf("%w: data dir is empty", models.ErrConfiguration)
	}
	if err := os.MkdirAll(filepath.Join(cfg.DataDir, stagingDir), 0o755); err != nil {
		return nil, err
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = defaultBlockSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{
		dataDir:   cfg.DataDir,
		user:      cfg.User,
		standby:   cfg.Standby,
		blockSize: cfg.BlockSize,
		leases:    newLeaseTable(),
		log:       cfg.Logger.With("component", "webhdfsd"),
	}, nil
}

// Handler регистрирует обработчики WebHDFS, здоровья и GC.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Route(webhdfsproto.PathPrefix, func(fr chi.Router) {
		fr.Use(s.checkAccess)
		fr.Get("/*", s.dispatch)
		fr.Put("/*", s.dispatch)
		fr.Post("/*", s.dispatch)
		fr.Delete("/*", s.dispatch)
	})

	r.Get("/health", s.health)
	r.HandleFunc("/admin/gc", s.gcOnce)

	return r
}

type operation struct {
	method string
	op     string
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	op := strings.ToUpper(r.URL.Query().Get(webhdfsproto.ParamOp))
	switch (operation{r.Method, op}) {
	case operation{http.MethodGet, webhdfsproto.OpGetFileStatus}:
		s.fileStatus(w, r)
	case operation{http.MethodGet, webhdfsproto.OpGetFileBlockLocations}:
		s.blockLocations(w, r)
	case operation{http.MethodGet, webhdfsproto.OpOpen}:
		s.viaDataNode(w, r, s.openData)
	case operation{http.MethodPut, webhdfsproto.OpCreate}:
		s.viaDataNode(w, r, s.createData)
	case operation{http.MethodPost, webhdfsproto.OpAppend}:
		s.viaDataNode(w, r, s.appendData)
	case operation{http.MethodDelete, webhdfsproto.OpDelete}:
		s.delete(w, r)
	case operation{http.MethodPut, webhdfsproto.OpMkdirs}:
		s.mkdirs(w, r)
	default:
		httperrors.Write(w, fmt.Errorf("%w: unsupported operation %s %s", models.ErrConfiguration, r.Method, op))
	}
}

// checkAccess отсекает запросы на резервный NameNode и запросы чужого пользователя.
func (s *Server) checkAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.standby {
			httperrors.WriteRemote(w, http.StatusForbidden, webhdfsproto.RemoteException{
				Exception:     "StandbyException",
				JavaClassName: "org.apache.hadoop.ipc.StandbyException",
				Message:       "Operation category READ is not supported in state standby",
			})
			return
		}
		if s.user != "" {
			if u := r.URL.Query().Get(webhdfsproto.ParamUser); u != s.user {
				httperrors.Write(w, fmt.Errorf("%w: user %q is not allowed", models.ErrPermissionDenied, u))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// hdfsPath путь файла из URL, всегда абсолютный и очищенный.
func hdfsPath(r *http.Request) string {
	return path.Clean("/" + chi.URLParam(r, "*"))
}

// localPath путь на диске; очистка не даёт выйти за пределы dataDir.
func (s *Server) localPath(p string) string {
	return filepath.Join(s.dataDir, filepath.FromSlash(path.Clean("/"+p)))
}
