// Package webhdfsproto описывает REST-протокол WebHDFS: пути, операции, параметры и JSON-ответы.
package webhdfsproto

// Параметры REST-протокола WebHDFS.
const (
	PathPrefix = "/webhdfs/v1"

	ParamOp          = "op"
	ParamOffset      = "offset"
	ParamLength      = "length"
	ParamOverwrite   = "overwrite"
	ParamReplication = "replication"
	ParamBlockSize   = "blocksize"
	ParamRecursive   = "recursive"
	ParamUser        = "user.name"
	// ParamLease идентификатор загрузки в адресе DataNode, который выдаёт NameNode при редиректе.
	ParamLease = "lease"

	ContentTypeJSON = "application/json"
	ContentTypeData = "application/octet-stream"
)

// Операции WebHDFS.
const (
	OpGetFileStatus         = "GETFILESTATUS"
	OpOpen                  = "OPEN"
	OpCreate                = "CREATE"
	OpAppend                = "APPEND"
	OpDelete                = "DELETE"
	OpMkdirs                = "MKDIRS"
	OpGetFileBlockLocations = "GETFILEBLOCKLOCATIONS"
)

// Значения поля FileStatus.type.
const (
	TypeFile      = "FILE"
	TypeDirectory = "DIRECTORY"
	TypeSymlink   = "SYMLINK"
)

// FileStatus тело ответа GETFILESTATUS.
type FileStatus struct {
	AccessTime       int64  `json:"accessTime"`
	BlockSize        int64  `json:"blockSize"`
	Group            string `json:"group"`
	Length           int64  `json:"length"`
	ModificationTime int64  `json:"modificationTime"`
	Owner            string `json:"owner"`
	PathSuffix       string `json:"pathSuffix"`
	Permission       string `json:"permission"`
	Replication      int    `json:"replication"`
	Type             string `json:"type"`
}

type FileStatusResponse struct {
	FileStatus FileStatus `json:"FileStatus"`
}

// BlockLocation один блок файла и хосты с его репликами.
type BlockLocation struct {
	Offset int64    `json:"offset"`
	Length int64    `json:"length"`
	Hosts  []string `json:"hosts"`
	Names  []string `json:"names"`
}

type BlockLocationsResponse struct {
	BlockLocations struct {
		BlockLocation []BlockLocation `json:"BlockLocation"`
	} `json:"BlockLocations"`
}

// BooleanResponse ответ DELETE и MKDIRS.
type BooleanResponse struct {
	Boolean bool `json:"boolean"`
}

// RemoteException тело ошибки WebHDFS.
type RemoteException struct {
	Exception     string `json:"exception"`
	JavaClassName string `json:"javaClassName"`
	Message       string `json:"message"`
}

type RemoteExceptionResponse struct {
	RemoteException RemoteException `json:"RemoteException"`
}
