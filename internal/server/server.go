// Package server exposes a tree.Store as a JSON HTTP API.
//
// Routes:
//
//	GET    /v1/nodes/{path...}     node at path; ?field=data.a returns one value
//	PUT    /v1/nodes/{path...}     save the JSON object body at path
//	DELETE /v1/nodes/{path...}     delete path and its descendants
//	GET    /v1/ls/{path...}        direct children
//	GET    /v1/parents/{path...}   ancestors-or-self, ?top= bounds the walk
//	GET    /v1/find/{path...}      nodes under path matching ?q=
//	GET    /metrics                Prometheus metrics
//	GET    /healthz                liveness
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/puzpuzpuz/xsync/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/treestore/internal/metrics"
	"github.com/roach88/treestore/internal/queryir"
	"github.com/roach88/treestore/internal/querylang"
	"github.com/roach88/treestore/internal/tree"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 30 * time.Second

	// maxCachedQueries bounds the parsed predicate cache; it is cleared when full.
	maxCachedQueries = 1024

	// maxBodyBytes caps PUT payloads.
	maxBodyBytes = 8 << 20
)

// Config holds listener settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server serves one store. Reads run concurrently; saves and deletes are
// serialized.
type Server struct {
	store   *tree.Store
	cfg     Config
	log     log.FieldLogger
	writeMu sync.Mutex
	queries *xsync.Map[string, queryir.Predicate]
	mux     *http.ServeMux
}

// New builds a Server and registers its routes.
func New(store *tree.Store, cfg Config, logger log.FieldLogger) *Server {
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	s := &Server{
		store:   store,
		cfg:     cfg,
		log:     logger,
		queries: xsync.NewMap[string, queryir.Predicate](),
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.handle("GET /v1/nodes/{path...}", "get", s.getNode)
	s.handle("PUT /v1/nodes/{path...}", "save", s.saveNode)
	s.handle("DELETE /v1/nodes/{path...}", "delete", s.deleteNode)
	s.handle("GET /v1/ls/{path...}", "ls", s.ls)
	s.handle("GET /v1/parents/{path...}", "parents", s.parents)
	s.handle("GET /v1/find/{path...}", "find", s.find)
	s.handle("GET /healthz", "healthz", s.healthz)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run listens on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:      s.mux,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.WithField("addr", ln.Addr().String()).Info("http server is running")
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		s.log.Info("http server shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// predicate parses q through the cache.
func (s *Server) predicate(q string) (queryir.Predicate, error) {
	if pred, ok := s.queries.Load(q); ok {
		metrics.QueryCache.WithLabelValues("hit").Inc()
		return pred, nil
	}
	metrics.QueryCache.WithLabelValues("miss").Inc()
	pred, err := querylang.Parse(q)
	if err != nil {
		return nil, err
	}
	if s.queries.Size() >= maxCachedQueries {
		s.queries.Clear()
	}
	s.queries.Store(q, pred)
	return pred, nil
}
