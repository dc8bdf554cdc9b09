package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/snd-erp/snd-erp/internal/shared"
)

func newTestSessionManager(t *testing.T) *shared.SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
}

func newCommitWriter(t *testing.T, sm *shared.SessionManager) (*responseWriterWithCommit, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	return &responseWriterWithCommit{
		ResponseWriter: rec,
		sess:           sess,
		manager:        sm,
		ctx:            context.Background(),
		req:            req,
	}, rec
}

func TestCommitWriterFlushCommitsCookieFirst(t *testing.T) {
	sm := newTestSessionManager(t)
	w, rec := newCommitWriter(t, sm)

	w.Flush()

	require.True(t, rec.Flushed)
	require.True(t, w.headerWritten)
	require.Contains(t, rec.Header().Get("Set-Cookie"), "test_session=")
}

func TestCommitWriterUnwrap(t *testing.T) {
	sm := newTestSessionManager(t)
	w, rec := newCommitWriter(t, sm)

	require.Equal(t, http.ResponseWriter(rec), w.Unwrap())
}

func TestCommitWriterWriteCommitsOnce(t *testing.T) {
	sm := newTestSessionManager(t)
	w, rec := newCommitWriter(t, sm)

	_, err := w.Write([]byte("first"))
	require.NoError(t, err)
	_, err = w.Write([]byte("second"))
	require.NoError(t, err)

	require.Equal(t, "firstsecond", rec.Body.String())
	require.Len(t, rec.Header().Values("Set-Cookie"), 1)
}
