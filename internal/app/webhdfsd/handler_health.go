package webhdfsd

import (
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"
)

// healthStats payload ответа /health.
type healthStats struct {
	OK         bool  `json:"ok"`
	Standby    bool  `json:"standby"`
	Files      int   `json:"files"`
	TotalBytes int64 `json:"total_bytes"`
	Leases     int   `json:"leases"`
}

// health возвращает объём каталога данных и число открытых аренд.
func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	stats := healthStats{OK: true, Standby: s.standby, Leases: s.leases.len()}
	err := filepath.WalkDir(s.dataDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == stagingDir {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		stats.Files++
		stats.TotalBytes += info.Size()
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
