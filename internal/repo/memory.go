package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sir_venger/hdfs_connector/internal/models"
)

// MemoryJournal хранит журнал только в оперативной памяти; удобно для тестов.
type MemoryJournal struct {
	mu   sync.RWMutex
	runs map[string]models.MergeRun
}

var _ Journal = (*MemoryJournal)(nil)

// NewMemoryJournal создаёт пустой журнал.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{runs: map[string]models.MergeRun{}}
}

func (j *MemoryJournal) BeginMerge(_ context.Context, run models.MergeRun) error {
	if run.ID == "" {
		return fmt.Errorf("merge run id is empty")
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if run.Status == "" {
		run.Status = models.MergeRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	j.runs[run.ID] = run.Clone()
	return nil
}

func (j *MemoryJournal) RecordPart(_ context.Context, runID string, cp models.PartCheckpoint) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	run, ok := j.runs[runID]
	if !ok {
		return fmt.Errorf("%w: merge run %s", models.ErrNotFound, runID)
	}
	if cp.MergedAt.IsZero() {
		cp.MergedAt = time.Now().UTC()
	}
	run.Parts = append(run.Parts, cp)
	run.Bytes += cp.Bytes
	j.runs[runID] = run
	return nil
}

func (j *MemoryJournal) FinishMerge(_ context.Context, runID, status string, bytes int64, errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	run, ok := j.runs[runID]
	if !ok {
		return fmt.Errorf("%w: merge run %s", models.ErrNotFound, runID)
	}
	run.Status = status
	run.Bytes = bytes
	run.Error = errMsg
	run.FinishedAt = time.Now().UTC()
	j.runs[runID] = run
	return nil
}

// Get возвращает копию прогона или ErrNotFound.
func (j *MemoryJournal) Get(_ context.Context, runID string) (models.MergeRun, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	run, ok := j.runs[runID]
	if !ok {
		return models.MergeRun{}, fmt.Errorf("%w: merge run %s", models.ErrNotFound, runID)
	}
	return run.Clone(), nil
}

func (j *MemoryJournal) Close() {}
