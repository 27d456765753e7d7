package native

import (
	"errors"
	"io/fs"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sir_venger/hdfs_connector/internal/models"
)

func TestMapErr(t *testing.T) {
	notExist := &os.PathError{Op: "open", Path: "/a", Err: os.ErrNotExist}
	require.ErrorIs(t, mapErr("open", "/a", notExist), models.ErrNotFound)

	denied := &os.PathError{Op: "create", Path: "/a", Err: os.ErrPermission}
	require.ErrorIs(t, mapErr("create", "/a", denied), models.ErrPermissionDenied)

	require.ErrorIs(t, mapErr("stat", "/a", errors.New("connection reset")), models.ErrTransport)
	require.NoError(t, mapErr("stat", "/a", nil))
	require.False(t, errors.Is(mapErr("stat", "/a", fs.ErrClosed), models.ErrNotFound))
}

func TestNew_RequiresAddress(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, models.ErrConfiguration)
}
