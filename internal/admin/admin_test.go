package admin

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/ttlcache/cache"
	"github.com/IvanBrykalov/ttlcache/metrics/prom"
)

type session struct {
	ID string
}

func newTestRouter(t *testing.T) (*gin.Engine, *cache.Engine, *prometheus.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	e := cache.New(cache.Config{
		DisableEviction: true,
		DisableCollect:  true,
		Metrics:         prom.New(reg, "ttlcache", "admin", nil),
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(func() {
		e.Close()
		e.Wait()
	})
	return NewRouter(e, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})), e, reg
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := do(r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestListTypes(t *testing.T) {
	r, e, _ := newTestRouter(t)
	cache.For[session](e).Set(1, session{ID: "a"}, time.Minute)
	cache.For[int](e)

	w := do(r, http.MethodGet, "/api/types", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []TypeStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "github.com/IvanBrykalov/ttlcache/internal/admin.session", got[0].Type)
	assert.Equal(t, 1, got[0].Entries)
	assert.False(t, got[0].Running)
	assert.Equal(t, "int", got[1].Type)
}

func TestEvictAndClear(t *testing.T) {
	r, e, _ := newTestRouter(t)
	c := cache.For[string](e)
	c.Set(1, "x", time.Nanosecond)
	c.Set(2, "y", time.Hour)
	time.Sleep(time.Millisecond)

	w := do(r, http.MethodPost, "/api/types/evict", TypeRequest{Type: "string"})
	require.Equal(t, http.StatusAccepted, w.Code)
	e.Wait()
	assert.Equal(t, 1, c.Len())

	w = do(r, http.MethodPost, "/api/types/clear", TypeRequest{Type: "string"})
	require.Equal(t, http.StatusAccepted, w.Code)
	e.Wait()
	assert.Zero(t, c.Len())
}

func TestTypeAction_Errors(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/types/evict", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/types/suspend", TypeRequest{Type: "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSuspendResume(t *testing.T) {
	gin.SetMode(gin.TestMode)
	e := cache.New(cache.Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	t.Cleanup(e.Close)
	r := NewRouter(e, promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{}))
	c := cache.For[int](e)

	w := do(r, http.MethodPost, "/api/types/suspend", TypeRequest{Type: "int"})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.False(t, c.Running())

	w = do(r, http.MethodPost, "/api/types/resume", TypeRequest{Type: "int"})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, c.Running())

	var st TypeStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.True(t, st.Running)
}

func TestReportEvictions(t *testing.T) {
	r, e, _ := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/evictions", ReportRequest{Count: 12})
	require.Equal(t, http.StatusAccepted, w.Code)
	e.Wait()

	w = do(r, http.MethodGet, "/api/evictions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Evictions   uint64 `json:"evictions"`
		Collections int64  `json:"collections"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, uint64(12), got.Evictions)
	assert.Zero(t, got.Collections)

	w = do(r, http.MethodPost, "/api/evictions", ReportRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r, e, _ := newTestRouter(t)
	c := cache.For[string](e)
	c.Set(1, "x", time.Minute)
	c.EvictNow()
	e.Wait()
	require.NoError(t, c.ClearNow(t.Context()))

	w := do(r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `ttlcache_admin_evictions_total{reason="clear",type="string"} 1`))
}
