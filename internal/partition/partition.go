// Package partition вычисляет байтовые диапазоны, принадлежащие воркерам кластера.
// Функции чистые: никакого I/O, только арифметика по размеру файла.
package partition

import (
	"fmt"

	"github.com/sir_venger/hdfs_connector/internal/models"
)

// FixedRange делит файл из записей фиксированной длины между clusterSize воркерами.
// Остаток total%clusterSize достаётся младшим воркерам, по одной записи каждому.
// Если смещение выходит за конец файла, возвращается пустой диапазон: читать нечего.
func FixedRange(fileSize, recordLength int64, clusterSize, nodeID uint32) (models.FileRange, error) {
	if recordLength <= 0 {
		return models.FileRange{}, fmt.Errorf("%w: invalid record length %d", models.ErrConfiguration, recordLength)
	}
	if fileSize < 0 {
		return models.FileRange{}, fmt.Errorf("%w: invalid file size %d", models.ErrConfiguration, fileSize)
	}
	if fileSize%recordLength != 0 {
		return models.FileRange{}, fmt.Errorf("%w: file size %d is not a multiple of record length %d",
			models.ErrConfiguration, fileSize, recordLength)
	}
	if err := validate(clusterSize, nodeID); err != nil {
		return models.FileRange{}, err
	}

	total := fileSize / recordLength
	base := total / int64(clusterSize)
	remainder := total % int64(clusterSize)
	id := int64(nodeID)

	records := base
	offset := id * base * recordLength
	if id < remainder {
		records++
		offset += id * recordLength
	} else {
		offset += remainder * recordLength
	}

	if offset >= fileSize {
		return models.FileRange{Start: fileSize}, nil
	}

	return models.FileRange{Start: offset, Length: records * recordLength}, nil
}

// RecordCount возвращает число записей, которые достанутся воркеру nodeID.
func RecordCount(fileSize, recordLength int64, clusterSize, nodeID uint32) (int64, error) {
	r, err := FixedRange(fileSize, recordLength, clusterSize, nodeID)
	if err != nil {
		return 0, err
	}
	return r.Length / recordLength, nil
}

// NaiveRange режет файл на равные куски без учёта границ записей.
// Настоящие границы CSV/XML находит splitter.
func NaiveRange(fileSize int64, clusterSize, nodeID uint32) (models.FileRange, error) {
	if fileSize < 0 {
		return models.FileRange{}, fmt.Errorf("%w: invalid file size %d", models.ErrConfiguration, fileSize)
	}
	if err := validate(clusterSize, nodeID); err != nil {
		return models.FileRange{}, err
	}

	chunk := fileSize / int64(clusterSize)
	return models.FileRange{Start: chunk * int64(nodeID), Length: chunk}, nil
}

// EffectiveRange как NaiveRange, но последний воркер дочитывает до конца файла.
func EffectiveRange(fileSize int64, clusterSize, nodeID uint32) (models.FileRange, error) {
	r, err := NaiveRange(fileSize, clusterSize, nodeID)
	if err != nil {
		return models.FileRange{}, err
	}
	if nodeID == clusterSize-1 {
		r.Length = fileSize - r.Start
	}
	return r, nil
}

func validate(clusterSize, nodeID uint32) error {
	return models.ClusterAssignment{NodeID: nodeID, ClusterSize: clusterSize}.Validate()
}
