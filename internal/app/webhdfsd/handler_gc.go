package webhdfsd

import (
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const manualGCTTL = time.Hour

// gcOnce вручную запускает сбор брошенных аренд и незавершённых загрузок.
func (s *Server) gcOnce(w http.ResponseWriter, _ *http.Request) {
	_ = s.sweepOnce(manualGCTTL)
	w.WriteHeader(http.StatusNoContent)
}

// StartGC стартует периодическую очистку; возвращает функцию остановки.
func (s *Server) StartGC(ttl time.Duration, every time.Duration) func() {
	if every <= 0 || ttl <= 0 {
		return func() {}
	}

	ticker := time.NewTicker(every)
	stop := make(chan struct{})
	var once sync.Once
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := s.sweepOnce(ttl); err != nil {
					s.log.Warn("gc sweep failed", "err", err)
				}
			case <-stop:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		once.Do(func() {
			close(stop)
		})
	}
}

// sweepOnce удаляет аренды старше ttl и файлы в staging, которые не менялись дольше ttl.
func (s *Server) sweepOnce(ttl time.Duration) error {
	expired := s.leases.expire(ttl)

	root := filepath.Join(s.dataDir, stagingDir)
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}

	now := time.Now()
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(fi.ModTime()) < ttl {
			continue
		}
		if os.Remove(filepath.Join(root, e.Name())) == nil {
			removed++
		}
	}

	if expired > 0 || removed > 0 {
		s.log.Info("gc sweep", "expired_leases", expired, "staged_removed", removed)
	}
	return nil
}
