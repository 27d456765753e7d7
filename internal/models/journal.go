package models

import "time"

// Статусы прогона слияния.
const (
	MergeRunning   = "running"
	MergeSucceeded = "succeeded"
	MergeFailed    = "failed"
)

// MergeRun запись журнала об одном слиянии part-файлов.
type MergeRun struct {
	ID          string
	Target      string
	ClusterSize uint32
	Status      string
	Bytes       int64
	Error       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Parts       []PartCheckpoint
}

// PartCheckpoint part-файл, целиком дописанный в целевой файл.
type PartCheckpoint struct {
	NodeID   uint32
	Path     string
	Bytes    int64
	SHA256   string
	MergedAt time.Time
}

// Clone возвращает копию с собственным срезом Parts.
func (r MergeRun) Clone() MergeRun {
	out := r
	out.Parts = append([]PartCheckpoint(nil), r.Parts...)
	return out
}
