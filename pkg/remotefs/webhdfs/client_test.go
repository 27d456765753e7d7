package webhdfs

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sir_venger/hdfs_connector/internal/models"
	"github.com/sir_venger/hdfs_connector/pkg/remotefs"
)

const statusJSON = `{"FileStatus":{"accessTime":0,"blockSize":134217728,"group":"supergroup",` +
	`"length":11,"modificationTime":1,"owner":"hdfs","pathSuffix":"","permission":"644",` +
	`"replication":3,"type":"FILE"}}`

func newTestClient(t *testing.T, h http.Handler, retry int) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), Config{
		Addresses: []string{srv.URL},
		User:      "etl",
		MaxRetry:  retry,
	})
	require.NoError(t, err)
	return c
}

func TestParseStatus(t *testing.T) {
	st, err := parseStatus([]byte(statusJSON))
	require.NoError(t, err)
	assert.Equal(t, remotefs.FileStatus{
		Size: 11, BlockSize: 134217728, Replication: 3,
		Owner: "hdfs", Group: "supergroup", Permission: "644", Kind: remotefs.KindFile,
	}, st)

	st, err = parseStatus([]byte(`{"FileStatus":{"pathSuffix":"length","length" : 0,"type":"DIRECTORY"}}`))
	require.NoError(t, err)
	assert.Equal(t, int64(0), st.Size)
	assert.Equal(t, remotefs.KindDirectory, st.Kind)

	_, err = parseStatus([]byte(`{"FileStatus":{"type":"FILE"}}`))
	require.ErrorIs(t, err, models.ErrProtocol)
	_, err = parseStatus([]byte(`{"FileStatus":{"length":"x"}}`))
	require.ErrorIs(t, err, models.ErrProtocol)
}

func TestClient_StatAndOpenWindows(t *testing.T) {
	content := "hello world"
	var opens atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/webhdfs/v1/data/f.txt", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "etl", q.Get("user.name"))
		switch q.Get("op") {
		case "GETFILESTATUS":
			_, _ = io.WriteString(w, statusJSON)
		case "OPEN":
			opens.Add(1)
			off := atoiQ(q.Get("offset"))
			n := atoiQ(q.Get("length"))
			end := min(off+n, len(content))
			_, _ = io.WriteString(w, content[off:end])
		}
	})
	c := newTestClient(t, mux, 0)

	st, err := c.Stat(context.Background(), "/data/f.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(11), st.Size)

	r, err := c.Open(context.Background(), "/data/f.txt")
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Seek(3, io.SeekStart)
	require.NoError(t, err)
	buf := make([]byte, 4)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "lo w", string(buf[:n]))

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "orld", string(rest))
	assert.Positive(t, opens.Load())
}

func TestClient_OpenRejectsOversizedResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhdfs/v1/f", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("op") == "GETFILESTATUS" {
			_, _ = io.WriteString(w, statusJSON)
			return
		}
		_, _ = io.WriteString(w, "0123456789")
	})
	c := newTestClient(t, mux, 0)
	r, err := c.Open(context.Background(), "/f")
	require.NoError(t, err)
	_, err = r.Read(make([]byte, 4))
	require.ErrorIs(t, err, models.ErrProtocol)
}

func TestClient_NotFoundAndPermission(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhdfs/v1/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"RemoteException":{"exception":"FileNotFoundException","javaClassName":"java.io.FileNotFoundException","message":"File does not exist: /missing"}}`)
	})
	mux.HandleFunc("/webhdfs/v1/secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"RemoteException":{"exception":"AccessControlException","javaClassName":"org.apache.hadoop.security.AccessControlException","message":"Permission denied"}}`)
	})
	c := newTestClient(t, mux, 2)

	_, err := c.Open(context.Background(), "/missing")
	require.ErrorIs(t, err, models.ErrNotFound)
	_, err = c.Stat(context.Background(), "/secret")
	require.ErrorIs(t, err, models.ErrPermissionDenied)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, statusJSON)
	})

	c := newTestClient(t, h, 2)
	_, err := c.Stat(context.Background(), "/f")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())

	calls.Store(0)
	c = newTestClient(t, h, 1)
	_, err = c.Stat(context.Background(), "/f")
	require.ErrorIs(t, err, models.ErrTransport)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_CreateFollowsOneRedirect(t *testing.T) {
	var (
		created  atomic.Bool
		appended strings.Builder
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/webhdfs/v1/out/part", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch q.Get("op") {
		case "CREATE":
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "true", q.Get("overwrite"))
			assert.Equal(t, "2", q.Get("replication"))
			body, _ := io.ReadAll(r.Body)
			assert.Empty(t, body, "namenode must not receive payload")
			w.Header().Set("Location", "/datanode/create")
			w.WriteHeader(http.StatusTemporaryRedirect)
		case "APPEND":
			assert.Equal(t, http.MethodPost, r.Method)
			w.Header().Set("Location", "/datanode/append")
			w.WriteHeader(http.StatusTemporaryRedirect)
		case "GETFILESTATUS":
			_, _ = io.WriteString(w, statusJSON)
		}
	})
	mux.HandleFunc("/datanode/create", func(w http.ResponseWriter, r *http.Request) {
		created.Store(true)
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/datanode/append", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		appended.Write(body)
	})
	c := newTestClient(t, mux, 0)

	w, err := c.Create(context.Background(), "/out/part", remotefs.WriteOptions{Replication: 2})
	require.NoError(t, err)
	assert.True(t, created.Load())

	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, w.Flush())
	_, err = w.Write([]byte("def"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, "abcdef", appended.String())
}

func TestClient_AppendDataIsSentOnce(t *testing.T) {
	var namenode, datanode atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/webhdfs/v1/out/merged", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("op") {
		case "GETFILESTATUS":
			_, _ = io.WriteString(w, statusJSON)
		case "APPEND":
			if namenode.Add(1) == 1 {
				http.Error(w, "busy", http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Location", "/datanode/append")
			w.WriteHeader(http.StatusTemporaryRedirect)
		}
	})
	mux.HandleFunc("/datanode/append", func(w http.ResponseWriter, r *http.Request) {
		datanode.Add(1)
		_, _ = io.ReadAll(r.Body)
		// данные приняты, но ответ потерян
		http.Error(w, "lost", http.StatusBadGateway)
	})
	c := newTestClient(t, mux, 3)

	w, err := c.Append(context.Background(), "/out/merged", remotefs.WriteOptions{})
	require.NoError(t, err)
	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)
	require.ErrorIs(t, w.Flush(), models.ErrTransport)

	// шаг NameNode повторяется, запись на DataNode нет
	assert.Equal(t, int32(2), namenode.Load())
	assert.Equal(t, int32(1), datanode.Load())
}

func TestClient_CreateWithoutRedirectIsProtocolError(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	c := newTestClient(t, h, 0)
	_, err := c.Create(context.Background(), "/x", remotefs.WriteOptions{})
	require.ErrorIs(t, err, models.ErrProtocol)
}

func TestClient_DeleteAndListHosts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhdfs/v1/gone", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"boolean": false}`)
	})
	mux.HandleFunc("/webhdfs/v1/dir", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("recursive"))
		_, _ = io.WriteString(w, `{"boolean":true}`)
	})
	mux.HandleFunc("/webhdfs/v1/big", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"BlockLocations":{"BlockLocation":[`+
			`{"offset":0,"length":10,"hosts":["dn1","dn2"]},{"offset":10,"length":5,"hosts":["dn3"]}]}}`)
	})
	c := newTestClient(t, mux, 0)

	require.ErrorIs(t, c.Delete(context.Background(), "/gone", false), models.ErrNotFound)
	require.NoError(t, c.Delete(context.Background(), "/dir", true))

	hosts, err := c.ListHosts(context.Background(), "/big")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"dn1", "dn2"}, {"dn3"}}, hosts)
}

func TestActiveNameNode(t *testing.T) {
	standby := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"RemoteException":{"exception":"StandbyException","message":"Operation category READ is not supported in state standby"}}`)
	}))
	defer standby.Close()
	active := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"FileStatus":{"length":0,"type":"DIRECTORY"}}`)
	}))
	defer active.Close()

	got, err := ActiveNameNode(context.Background(), http.DefaultClient, []string{standby.URL, active.URL}, "etl")
	require.NoError(t, err)
	assert.Equal(t, active.URL, got)

	_, err = ActiveNameNode(context.Background(), http.DefaultClient, []string{standby.URL}, "")
	require.ErrorIs(t, err, models.ErrTransport)
}

func atoiQ(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}
