// Package httperrors переводит ошибки в RemoteException WebHDFS и обратно.
package httperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sir_venger/hdfs_connector/internal/models"
	"github.com/sir_venger/hdfs_connector/pkg/webhdfsproto"
)

// Write пишет ошибку в формате RemoteException с подходящим HTTP-статусом.
func Write(w http.ResponseWriter, err error) {
	status, exc := classify(err)
	WriteRemote(w, status, exc)
}

// WriteRemote пишет готовый RemoteException.
func WriteRemote(w http.ResponseWriter, status int, exc webhdfsproto.RemoteException) {
	w.Header().Set("Content-Type", webhdfsproto.ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(webhdfsproto.RemoteExceptionResponse{RemoteException: exc})
}

func classify(err error) (int, webhdfsproto.RemoteException) {
	msg := err.Error()
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, webhdfsproto.RemoteException{
			Exception: "FileNotFoundException", JavaClassName: "java.io.FileNotFoundException", Message: msg,
		}
	case errors.Is(err, models.ErrPermissionDenied):
		return http.StatusForbidden, webhdfsproto.RemoteException{
			Exception:     "AccessControlException",
			JavaClassName: "org.apache.hadoop.security.AccessControlException",
			Message:       msg,
		}
	case errors.Is(err, models.ErrConfiguration), errors.Is(err, models.ErrProtocol):
		return http.StatusBadRequest, webhdfsproto.RemoteException{
			Exception: "IllegalArgumentException", JavaClassName: "java.lang.IllegalArgumentException", Message: msg,
		}
	default:
		return http.StatusInternalServerError, webhdfsproto.RemoteException{
			Exception: "IOException", JavaClassName: "java.io.IOException", Message: msg,
		}
	}
}

// Decode превращает неуспешный ответ WebHDFS в ошибку с сентинелом из models.
// 5xx считаются сбоем транспорта и подлежат повтору.
func Decode(status int, body []byte) error {
	var payload webhdfsproto.RemoteExceptionResponse
	exc := payload.RemoteException
	if json.Unmarshal(body, &payload) == nil {
		exc = payload.RemoteException
	}
	detail := strings.TrimSpace(exc.Message)
	if detail == "" {
		detail = strings.TrimSpace(string(body))
	}
	if exc.Exception != "" {
		detail = exc.Exception + ": " + detail
	}

	var kind error
	switch {
	case exc.Exception == "FileNotFoundException" || status == http.StatusNotFound:
		kind = models.ErrNotFound
	case containsAny(exc.Exception, "AccessControlException", "SecurityException") ||
		status == http.StatusUnauthorized:
		kind = models.ErrPermissionDenied
	case status >= http.StatusInternalServerError:
		kind = models.ErrTransport
	default:
		kind = models.ErrProtocol
	}
	return fmt.Errorf("%w: webhdfs %d %s", kind, status, detail)
}

func containsAny(msg string, needles ...string) bool {
	for _, s := range needles {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
