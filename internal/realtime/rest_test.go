package realtime

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRESTReadMapsAbsenceToNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rooms/missing.json":
			http.NotFound(w, r)
		case "/rooms/null.json":
			io.WriteString(w, "null")
		case "/rooms/r1.json":
			io.WriteString(w, `{"status":"waiting"}`)
		}
	}))
	defer srv.Close()

	s := NewREST(srv.URL)
	ctx := context.Background()

	data, err := s.Read(ctx, "rooms/missing")
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = s.Read(ctx, "rooms/null")
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = s.Read(ctx, "rooms/r1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"waiting"}`, string(data))
}

func TestRESTWriteUsesPatch(t *testing.T) {
	var gotMethod, gotPath, gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	s := NewREST(srv.URL, WithAuthToken("secret"))
	err := s.Write(context.Background(), "rooms/r1", map[string]any{"status": "playing"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/rooms/r1.json", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.JSONEq(t, `{"status":"playing"}`, string(gotBody))
}

func TestRESTWriteSurfacesBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewREST(srv.URL).Write(context.Background(), "rooms/r1", map[string]any{"a": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestRESTDeleteToleratesMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	require.NoError(t, NewREST(srv.URL).Delete(context.Background(), "rooms/gone"))
}

// TestRESTAtomicUpdateRetriesOnConflict simulates a concurrent writer: the
// first PUT hits a stale ETag and fails with 412, the retry sees the fresh
// state and succeeds.
func TestRESTAtomicUpdateRetriesOnConflict(t *testing.T) {
	var puts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if puts.Load() == 0 {
				w.Header().Set("ETag", "v1")
				io.WriteString(w, `{"wins":1}`)
			} else {
				w.Header().Set("ETag", "v2")
				io.WriteString(w, `{"wins":5}`)
			}
		case http.MethodPut:
			if puts.Add(1) == 1 {
				// First attempt raced a concurrent writer.
				w.WriteHeader(http.StatusPreconditionFailed)
				return
			}
			require.Equal(t, "v2", r.Header.Get("If-Match"))
			body, _ := io.ReadAll(r.Body)
			var rec map[string]int
			require.NoError(t, json.Unmarshal(body, &rec))
			assert.Equal(t, 6, rec["wins"], "retry must apply fn to fresh state")
		}
	}))
	defer srv.Close()

	err := NewREST(srv.URL).AtomicUpdate(context.Background(), "ledgers/a/b", func(current []byte) (any, error) {
		var rec map[string]int
		require.NoError(t, json.Unmarshal(current, &rec))
		return map[string]int{"wins": rec["wins"] + 1}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), puts.Load())
}

func TestRESTAtomicUpdateInitializesAbsentRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			http.NotFound(w, r)
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"wins":1}`, string(body))
		}
	}))
	defer srv.Close()

	err := NewREST(srv.URL).AtomicUpdate(context.Background(), "ledgers/a/b", func(current []byte) (any, error) {
		require.Nil(t, current)
		return map[string]int{"wins": 1}, nil
	})
	require.NoError(t, err)
}

func TestRESTAtomicUpdateStopsOnCallbackError(t *testing.T) {
	var gets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gets.Add(1)
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	err := NewREST(srv.URL).AtomicUpdate(context.Background(), "x", func([]byte) (any, error) {
		return nil, assert.AnError
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), gets.Load(), "callback errors must not retry")
}

func TestRESTOnDisconnectWrite(t *testing.T) {
	var gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	err := NewREST(srv.URL).OnDisconnectWrite(context.Background(), "/rooms/r1/players/a/status/", "disconnected")
	require.NoError(t, err)
	assert.Equal(t, "/.ondisconnect", gotPath)
	assert.JSONEq(t, `{"path":"rooms/r1/players/a/status","value":"disconnected"}`, string(gotBody))
}
