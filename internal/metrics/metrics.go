// Package metrics счётчики коннектора. Ядро пишет в интерфейс Metrics,
// реализация выбирается в cmd: Nop или Prometheus.
package metrics

// Timer измеряет длительность операции до вызова ObserveDuration.
type Timer interface {
	ObserveDuration()
}

// Metrics события, которые коннектор сообщает наружу.
type Metrics interface {
	// OperationDuration таймер операции (stream-in, stream-out, merge).
	OperationDuration(action string) Timer
	// OperationFailed неуспешное завершение операции.
	OperationFailed(action string)
	// RecordsEmitted записи, отданные сплиттером формата format.
	RecordsEmitted(format string, n int64)
	// BytesTransferred байты, прочитанные (direction="read") или записанные (direction="write") в HDFS.
	BytesTransferred(direction string, n int64)
	// PartMerged одна part-файл дописана в целевой файл.
	PartMerged(bytes int64)
	// Flushes число flush в HDFS.
	Flushes(n int)
}

type nopTimer struct{}

func (nopTimer) ObserveDuration() {}

type nop struct{}

// Nop реализация, которая ничего не делает.
func Nop() Metrics { return nop{} }

func (nop) OperationDuration(string) Timer { return nopTimer{} }
func (nop) OperationFailed(string)         {}
func (nop) RecordsEmitted(string, int64)   {}
func (nop) BytesTransferred(string, int64) {}
func (nop) PartMerged(int64)               {}
func (nop) Flushes(int)                    {}
