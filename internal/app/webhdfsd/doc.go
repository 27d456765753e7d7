// Package webhdfsd локальный сервер, совместимый с REST-интерфейсом WebHDFS, поверх каталога на диске.
// Один процесс играет роль и NameNode, и DataNode:
//   - GET  ?op=GETFILESTATUS, ?op=GETFILEBLOCKLOCATIONS отвечают JSON сразу.
//   - GET  ?op=OPEN, PUT ?op=CREATE, POST ?op=APPEND сначала отвечают 307 с адресом DataNode
//     и одноразовой арендой (lease), данные принимаются или отдаются только по этому адресу.
//   - DELETE ?op=DELETE, PUT ?op=MKDIRS отвечают {"boolean": ...}.
//   - GET /health отдаёт объём каталога данных, POST /admin/gc чистит брошенные аренды.
//
// Ошибки отдаются в формате RemoteException.
package webhdfsd
