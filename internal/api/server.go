// Package api exposes the HTTP interface for the search aggregation service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pricehawk/pricehawk/internal/search"
	"github.com/pricehawk/pricehawk/internal/store"
	"github.com/pricehawk/pricehawk/internal/telemetry"
)

// Aggregator runs one validated search across all storefronts.
type Aggregator interface {
	Search(ctx context.Context, requestID string, req search.Request) (search.Result, error)
}

// BrowserStatus reports the shared browser's lifecycle state for readiness.
type BrowserStatus interface {
	Status() string
}

// Config controls server-level behavior.
type Config struct {
	RequestTimeout time.Duration
}

// Server wires HTTP handlers to the aggregator and catalog.
type Server struct {
	router     chi.Router
	aggregator Aggregator
	catalog    *store.Catalog
	browser    BrowserStatus
	idGen      search.IDGenerator
	logger     *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	aggregator Aggregator,
	catalog *store.Catalog,
	browser BrowserStatus,
	idGen search.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	s := &Server{
		aggregator: aggregator,
		catalog:    catalog,
		browser:    browser,
		idGen:      idGen,
		logger:     logger,
	}

	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(cfg.RequestTimeout))
	r.Use(telemetry.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", telemetry.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/search", s.search)
		r.Route("/catalog", func(r chi.Router) {
			r.Post("/", s.createCatalogEntry)
			r.Get("/", s.listCatalogEntries)
			r.Get("/{entry_id}", s.getCatalogEntry)
			r.Put("/{entry_id}", s.updateCatalogEntry)
			r.Delete("/{entry_id}", s.deleteCatalogEntry)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// The browser launches lazily, so an idle browser is still ready.
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ready",
		"browser": s.browser.Status(),
	})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req, err := search.Validate(q.Get("term"), q.Get("max_price"), q.Get("category"))
	if err != nil {
		if search.IsValidationError(err) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid search parameters")
		return
	}

	result, err := s.aggregator.Search(r.Context(), requestID(r.Context()), req)
	if err != nil {
		if errors.Is(err, search.ErrAggregateTimeout) {
			s.writeJSON(w, http.StatusInternalServerError, emptyResult())
			return
		}
		s.logger.Error("search failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func emptyResult() search.Result {
	sources := make(map[search.Source]bool)
	for _, source := range search.Sources() {
		sources[source] = false
	}
	return search.Result{Products: []search.Product{}, Sources: sources}
}

type catalogEntryRequest struct {
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	ListPrice float64 `json:"list_price"`
	Category  string  `json:"category"`
	ImageURL  string  `json:"image_url"`
	DeepLink  string  `json:"link"`
}

func (s *Server) createCatalogEntry(w http.ResponseWriter, r *http.Request) {
	var req catalogEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Title == "" {
		s.writeError(w, http.StatusBadRequest, "title required")
		return
	}
	id, err := s.idGen.NewID()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "generate entry id")
		return
	}
	entry, err := s.catalog.Create(r.Context(), store.Entry{
		ID:        id,
		Title:     req.Title,
		Price:     req.Price,
		ListPrice: req.ListPrice,
		Category:  req.Category,
		ImageURL:  req.ImageURL,
		DeepLink:  req.DeepLink,
	})
	if err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) listCatalogEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.catalog.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "list catalog")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "total": len(entries)})
}

func (s *Server) getCatalogEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.catalog.Get(r.Context(), chi.URLParam(r, "entry_id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "catalog entry not found")
		return
	}
	s.writeJSON(w, http.StatusOK, entry)
}

func (s *Server) updateCatalogEntry(w http.ResponseWriter, r *http.Request) {
	var req catalogEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	entry, err := s.catalog.Update(r.Context(), store.Entry{
		ID:        chi.URLParam(r, "entry_id"),
		Title:     req.Title,
		Price:     req.Price,
		ListPrice: req.ListPrice,
		Category:  req.Category,
		ImageURL:  req.ImageURL,
		DeepLink:  req.DeepLink,
	})
	if err != nil {
		s.writeError(w, http.StatusNotFound, "catalog entry not found")
		return
	}
	s.writeJSON(w, http.StatusOK, entry)
}

func (s *Server) deleteCatalogEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Delete(r.Context(), chi.URLParam(r, "entry_id")); err != nil {
		s.writeError(w, http.StatusNotFound, "catalog entry not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID, err := s.idGen.NewID()
		if err != nil {
			s.logger.Warn("request id generation failed", zap.Error(err))
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
