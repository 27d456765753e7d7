package models

import "fmt"

// FileRange полуинтервал байтов [Start, Start+Length) внутри файла.
type FileRange struct {
	Start  int64
	Length int64
}

// End возвращает позицию первого байта за пределами диапазона.
func (r FileRange) End() int64 {
	return r.Start + r.Length
}

// Empty сообщает, что читать нечего.
func (r FileRange) Empty() bool {
	return r.Length <= 0
}

func (r FileRange) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End())
}

// ClusterAssignment описывает место воркера в кластере.
type ClusterAssignment struct {
	NodeID       uint32
	ClusterSize  uint32
	RecordLength int64
}

// Validate проверяет инварианты назначения; RecordLength проверяется только для FLAT.
func (a ClusterAssignment) Validate() error {
	if a.ClusterSize == 0 {
		return fmt.Errorf("%w: invalid cluster count %d", ErrConfiguration, a.ClusterSize)
	}
	if a.NodeID >= a.ClusterSize {
		return fmt.Errorf("%w: invalid node id %d for cluster of %d", ErrConfiguration, a.NodeID, a.ClusterSize)
	}
	return nil
}

// IsCoordinator узел 0 единственный выполняет слияние.
func (a ClusterAssignment) IsCoordinator() bool {
	return a.NodeID == 0
}

// IsLast последний узел дочитывает хвост файла.
func (a ClusterAssignment) IsLast() bool {
	return a.ClusterSize > 0 && a.NodeID == a.ClusterSize-1
}
