//go:build !integration

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codehub-mentor/internal/infra/logging"
)

func TestTraceID_ReusesOrGenerates(t *testing.T) {
	var seen string
	h := TraceID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.TraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(traceHeader, "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rr.Header().Get(traceHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(traceHeader, strings.Repeat("x", 65))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Len(t, seen, 36, "oversized ids are replaced by a uuid")
}

func TestRequestLog_UsesRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := chi.NewRouter()
	r.Use(RequestLog(&logger))
	r.Get("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hi"))
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sessions/42", nil))

	out := buf.String()
	assert.Contains(t, out, `"route":"/sessions/{id}"`)
	assert.Contains(t, out, `"status":418`)
	assert.Contains(t, out, `"bytes":2`)
}

func TestRecover_WritesJSON500(t *testing.T) {
	logger := zerolog.Nop()
	h := Recover(&logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	require.NotPanics(t, func() { h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil)) })
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal error","code":"unexpected"}`, rr.Body.String())
}

func TestTimeout(t *testing.T) {
	var deadline bool
	deadlineCheck := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, deadline = r.Context().Deadline()
	})

	Timeout(0)(deadlineCheck).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, deadline)

	Timeout(time.Second)(deadlineCheck).ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background()))
	assert.True(t, deadline)
}
