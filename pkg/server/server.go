// Package server exposes the assistant, the semantic cache and conversation
// history over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pario-ai/semcache/pkg/assistant"
	"github.com/pario-ai/semcache/pkg/config"
	"github.com/pario-ai/semcache/pkg/history"
	"github.com/pario-ai/semcache/pkg/logging"
	"github.com/pario-ai/semcache/pkg/metrics"
	"github.com/pario-ai/semcache/pkg/models"
)

// Cache is the semantic cache as seen by the HTTP layer.
type Cache interface {
	Lookup(ctx context.Context, query string, threshold float32) (models.LookupResult, error)
	Insert(ctx context.Context, query string, response []byte) (int64, error)
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (models.CacheStats, error)
	Rebuild(ctx context.Context) error
}

// Assistant answers queries.
type Assistant interface {
	Classify(ctx context.Context, query string) (assistant.Mode, error)
	AskTools(ctx context.Context, sessionID, query string) (assistant.ToolAnswer, error)
	Chat(ctx context.Context, sessionID, query string) (string, error)
	Reset(sessionID string) string
}

// Server is the semcache HTTP API.
type Server struct {
	cfg       *config.Config
	cache     Cache
	assistant Assistant
	history   history.Store
	log       logrus.FieldLogger
	metrics   *metrics.Metrics
	mux       *http.ServeMux
	handler   http.Handler
}

// New creates a Server wired with all dependencies. log and m may be nil.
func New(cfg *config.Config, c Cache, a Assistant, h history.Store, log logrus.FieldLogger, m *metrics.Metrics) *Server {
	if log == nil {
		log = logging.Discard()
	}
	s := &Server{
		cfg:       cfg,
		cache:     c,
		assistant: a,
		history:   h,
		log:       log.WithField("component", "server"),
		metrics:   m,
		mux:       http.NewServeMux(),
	}

	s.route("GET /api/query", s.handleQuery)

	s.route("GET /api/sessions", s.handleSessions)
	s.route("GET /api/history", s.handleHistory)
	s.route("POST /api/history/rename", s.handleRename)
	s.route("POST /api/history/delete", s.handleDelete)
	s.route("POST /api/history/clear_all", s.handleClearAll)
	s.route("POST /api/conversation/reset", s.handleReset)

	s.route("GET /api/cache/stats", s.handleCacheStats)
	s.route("POST /api/cache/clear", s.handleCacheClear)
	s.route("POST /api/cache/rebuild", s.handleCacheRebuild)

	s.mux.Handle("GET /metrics", m.Handler())
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.handler = Chain(RequestID(), CORS(), Logger(s.log))(s.mux)
	return s
}

// route registers h under pattern with per-endpoint metrics.
func (s *Server) route(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.instrument(pattern, h))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe starts the server and shuts it down gracefully when ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.cfg.Listen).Info("semcache listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) instrument(name string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		s.metrics.IncrementHTTPRequests()
		if rec.status >= 400 {
			s.metrics.IncrementHTTPErrors()
		}
		s.metrics.ObserveAPIEndpointDuration(name, r.Method, strconv.Itoa(rec.status), time.Since(start).Seconds())
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, models.ErrorResponse{Error: message})
}

// decodeBody reads a small JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}
