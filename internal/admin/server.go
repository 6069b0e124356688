// Package admin serves a node's health, readiness, metrics and connection
// snapshots over HTTP.
package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/pktwire/internal/observability"
	"github.com/danmuck/pktwire/internal/protocol/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

// Source is the node state the admin routes expose.
type Source interface {
	NodeID() string
	Kind() string
	Ready() bool
	Packets() []string
	Connections() []session.Stats
}

type Server struct {
	src      Source
	addr     string
	router   *gin.Engine
	appeared time.Time
}

func New(src Source, addr string, corsOrigins []string) *Server {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(src.NodeID()))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		src:      src,
		addr:     addr,
		router:   r,
		appeared: time.Now(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

// Serve listens on the admin address until ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info().Str("node", s.src.NodeID()).Str("addr", s.addr).Msg("admin.Server.Serve listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.appeared).String(),
			"node":    s.src.NodeID(),
			"kind":    s.src.Kind(),
			"version": version,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/ready", func(c *gin.Context) {
		ready := s.src.Ready()
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":   ready,
			"uptime":  time.Since(s.appeared).String(),
			"node":    s.src.NodeID(),
			"version": version,
		})
	})

	s.router.GET("/connections", func(c *gin.Context) {
		conns := s.src.Connections()
		c.JSON(http.StatusOK, gin.H{
			"count":       len(conns),
			"connections": connectionViews(conns),
		})
	})

	s.router.GET("/packets", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"packets": s.src.Packets(),
		})
	})
}

type connectionView struct {
	session.Stats
	State string `json:"state"`
}

func connectionViews(stats []session.Stats) []connectionView {
	out := make([]connectionView, 0, len(stats))
	for _, st := range stats {
		out = append(out, connectionView{Stats: st, State: st.State.String()})
	}
	return out
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
