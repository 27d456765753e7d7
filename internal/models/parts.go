package models

import "fmt"

const (
	partsDirSuffix     = "-parts"
	partFilenameFormat = "%s" + partsDirSuffix + "/part_%d_%d"
)

// PartFileName единственный контракт между воркерами: писатель и сливающий
// узел обязаны получать имя части по одной формуле.
func PartFileName(base string, nodeID, clusterSize uint32) string {
	return fmt.Sprintf(partFilenameFormat, base, nodeID, clusterSize)
}

// PartsDir возвращает каталог, в котором лежат части файла base.
func PartsDir(base string) string {
	return base + partsDirSuffix
}
