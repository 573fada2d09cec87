// Package server serves paged record views over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/traitview/internal/config"
	"github.com/hyperjump/traitview/internal/dataset"
	"github.com/hyperjump/traitview/internal/models"
	"github.com/hyperjump/traitview/internal/pager"
	"github.com/hyperjump/traitview/internal/render"
)

const maxSessions = 1024

// Server is the HTTP server for record pages. Record state, memo caches and
// per-session pagers are only touched while holding mu.
type Server struct {
	mu          sync.Mutex
	rows        []*models.Record
	projector   *render.Projector
	markup      Markup
	pageSize    int
	info        *dataset.Info
	fingerprint string
	stale       bool
	loadedAt    time.Time
	sessions    map[string]*session
	config      *config.ServerConfig
	logger      *zap.Logger
	server      *http.Server
}

type session struct {
	pager    *pager.Pager
	surface  *htmlSurface
	lastSeen time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithDataset records where the rows came from for the status endpoint and
// page entity tags.
func WithDataset(info *dataset.Info, fingerprint string) Option {
	return func(s *Server) {
		s.info = info
		s.fingerprint = fingerprint
	}
}

// NewServer creates a server over rows. The projector must use
// render.SentinelMarkers and trait options from TraitOptions; the server
// escapes cell text and applies markup itself.
func NewServer(
	rows []*models.Record,
	projector *render.Projector,
	markup Markup,
	pageSize int,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = pager.DefaultPageSize
	}
	s := &Server{
		rows:      rows,
		projector: projector,
		markup:    markup,
		pageSize:  pageSize,
		loadedAt:  time.Now(),
		sessions:  make(map[string]*session),
		config:    cfg,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the HTTP handler with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/", s.handleIndex)
	r.Get("/page/{n}", s.handlePage)
	r.Get("/nav/{op}", s.handleNav)
	r.Get("/goto", s.handleGoto)
	r.Get("/api/v1/pages/{n}", s.handlePageJSON)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr), zap.Int("records", len(s.rows)), zap.Int("page_size", s.pageSize))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Reload swaps in a fresh set of rows. Open sessions keep their page number,
// clamped to the new row count.
func (s *Server) Reload(rows []*models.Record, info *dataset.Info, fingerprint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = rows
	s.info = info
	s.fingerprint = fingerprint
	s.stale = false
	s.loadedAt = time.Now()
	for id, sess := range s.sessions {
		page := sess.pager.Page()
		surface := newHTMLSurface(s.markup)
		p := pager.New(s.rows, s.pageSize, s.projector, surface)
		p.SetPage(page)
		s.sessions[id] = &session{pager: p, surface: surface, lastSeen: sess.lastSeen}
	}
	s.logger.Info("dataset reloaded", zap.Int("records", len(rows)), zap.String("fingerprint", fingerprint))
}

// MarkStale flags the served rows as out of date with the dataset on disk.
func (s *Server) MarkStale(reason string) {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
	s.logger.Warn("dataset changed on disk; serving previous snapshot", zap.String("reason", reason))
}

// sessionLocked returns the pager for id, creating one on page 1 when absent.
// Callers hold s.mu.
func (s *Server) sessionLocked(id string) *session {
	if sess, ok := s.sessions[id]; ok {
		sess.lastSeen = time.Now()
		return sess
	}
	if len(s.sessions) >= maxSessions {
		s.evictOldestLocked()
	}
	surface := newHTMLSurface(s.markup)
	sess := &session{
		pager:    pager.New(s.rows, s.pageSize, s.projector, surface),
		surface:  surface,
		lastSeen: time.Now(),
	}
	s.sessions[id] = sess
	s.logger.Debug("session created", zap.String("session", id), zap.Int("sessions", len(s.sessions)))
	return sess
}

func (s *Server) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, sess := range s.sessions {
		if oldestID == "" || sess.lastSeen.Before(oldest) {
			oldestID, oldest = id, sess.lastSeen
		}
	}
	delete(s.sessions, oldestID)
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
