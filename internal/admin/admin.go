// Package admin exposes the engine's administrative operations over HTTP.
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IvanBrykalov/ttlcache/cache"
)

// Engine is the part of *cache.Engine the admin API drives.
type Engine interface {
	Types() []cache.Admin
	Lookup(name string) (cache.Admin, bool)
	ReportEvictions(n uint64)
	Evictions() uint64
	Collections() int64
}

// TypeRequest names one cached type.
type TypeRequest struct {
	Type string `json:"type" binding:"required"`
}

// ReportRequest carries externally evicted entries.
type ReportRequest struct {
	Count uint64 `json:"count" binding:"required"`
}

// TypeStats is one row of GET /api/types.
type TypeStats struct {
	Type    string `json:"type"`
	Entries int    `json:"entries"`
	Running bool   `json:"running"`
}

type handler struct {
	e Engine
}

// NewRouter returns a gin router serving the admin API. metrics may be nil
// for the default Prometheus registry.
func NewRouter(e Engine, metrics http.Handler) *gin.Engine {
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	h := handler{e: e}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics))

	api := r.Group("/api")
	{
		api.GET("/types", h.listTypes)
		api.POST("/types/evict", h.typeAction(cache.Admin.EvictNow))
		api.POST("/types/clear", h.typeAction(cache.Admin.Clear))
		api.POST("/types/suspend", h.typeAction(cache.Admin.Suspend))
		api.POST("/types/resume", h.typeAction(cache.Admin.Resume))

		api.GET("/evictions", h.evictions)
		api.POST("/evictions", h.reportEvictions)
	}
	return r
}

func (h handler) listTypes(c *gin.Context) {
	types := h.e.Types()
	out := make([]TypeStats, 0, len(types))
	for _, t := range types {
		out = append(out, TypeStats{Type: t.TypeName(), Entries: t.Len(), Running: t.Running()})
	}
	c.JSON(http.StatusOK, out)
}

// typeAction binds a TypeRequest and applies op to the named cache. The
// operations only enqueue work, so the response is 202.
func (h handler) typeAction(op func(cache.Admin)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TypeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		t, ok := h.e.Lookup(req.Type)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown type " + req.Type})
			return
		}
		op(t)
		c.JSON(http.StatusAccepted, TypeStats{Type: t.TypeName(), Entries: t.Len(), Running: t.Running()})
	}
}

func (h handler) evictions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"evictions":   h.e.Evictions(),
		"collections": h.e.Collections(),
	})
}

func (h handler) reportEvictions(c *gin.Context) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.e.ReportEvictions(req.Count)
	c.JSON(http.StatusAccepted, gin.H{"evictions": h.e.Evictions()})
}

// Serve runs the admin API on addr until ctx ends.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
