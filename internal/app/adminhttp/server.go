// Package adminhttp служебный HTTP-эндпоинт процесса коннектора: метрики,
// действующая конфигурация и записи журнала слияний.
package adminhttp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sir_venger/hdfs_connector/internal/config"
	"github.com/sir_venger/hdfs_connector/internal/models"
	"github.com/sir_venger/hdfs_connector/pkg/httperrors"
)

// MergeLookup чтение журнала слияний.
type MergeLookup interface {
	Get(ctx context.Context, runID string) (models.MergeRun, error)
}

type Server struct {
	Cfg     *config.Config
	Metrics http.Handler
	Merges  MergeLookup
}

// NewServer конструктор. metrics и merges могут быть nil.
func NewServer(cfg *config.Config, metrics http.Handler, merges MergeLookup) http.Handler {
	srv := &Server{Cfg: cfg, Metrics: metrics, Merges: merges}

	rtr := chi.NewRouter()
	if metrics != nil {
		rtr.Handle("/metrics", metrics)
	}
	rtr.Get("/health", srv.health)
	rtr.Get("/admin/config", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, cfg) })
	rtr.Get("/admin/merges/{id}", srv.getMerge)

	return rtr
}

type healthResp struct {
	OK     bool   `json:"ok"`
	Action string `json:"action"`
	Node   uint32 `json:"node"`
	Nodes  uint32 `json:"nodes"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, healthResp{OK: true, Action: string(s.Cfg.Action), Node: s.Cfg.NodeID, Nodes: s.Cfg.ClusterCount})
}

type mergeResp struct {
	ID          string        `json:"id"`
	Target      string        `json:"target"`
	ClusterSize uint32        `json:"cluster_size"`
	Status      string        `json:"status"`
	Bytes       int64         `json:"bytes"`
	Error       string        `json:"error,omitempty"`
	Parts       []partRespRow `json:"parts"`
}

type partRespRow struct {
	Node   uint32 `json:"node"`
	Path   string `json:"path"`
	Bytes  int64  `json:"bytes"`
	SHA256 string `json:"sha256"`
}

func (s *Server) getMerge(w http.ResponseWriter, r *http.Request) {
	if s.Merges == nil {
		http.Error(w, "merge journal is disabled", http.StatusNotFound)
		return
	}
	run, err := s.Merges.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	resp := mergeResp{
		ID:          run.ID,
		Target:      run.Target,
		ClusterSize: run.ClusterSize,
		Status:      run.Status,
		Bytes:       run.Bytes,
		Error:       run.Error,
		Parts:       make([]partRespRow, 0, len(run.Parts)),
	}
	for _, p := range run.Parts {
		resp.Parts = append(resp.Parts, partRespRow{Node: p.NodeID, Path: p.Path, Bytes: p.Bytes, SHA256: p.SHA256})
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
