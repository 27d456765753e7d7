package models

import "errors"

var (
	// ErrConfiguration неверные параметры запуска; не ретраится.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransport сбой обмена с удалённой ФС (connect/open/seek/read/write/flush).
	ErrTransport = errors.New("transport error")
	// ErrProtocol некорректный ответ WebHDFS (статус, редирект).
	ErrProtocol = errors.New("protocol error")
	// ErrMalformedInput входные данные не разбираются на записи.
	ErrMalformedInput = errors.New("malformed input")
	// ErrResourceMissing при слиянии не найден ожидаемый part-файл.
	ErrResourceMissing = errors.New("resource missing")

	ErrNotFound         = errors.New("file not found")
	ErrPermissionDenied = errors.New("permission denied")
)
