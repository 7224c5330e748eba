// Package api serves stored substance records over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ppiankov/thermobook/internal/pipeline"
	"github.com/ppiankov/thermobook/internal/store"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Reader is the read side of the document store
type Reader interface {
	Get(ctx context.Context, cas int64) (json.RawMessage, error)
	List(ctx context.Context, offset, limit int) ([]store.Summary, error)
	Count(ctx context.Context) (int, error)
}

// Extractor walks a substance on demand when it is not stored yet
type Extractor interface {
	Process(ctx context.Context, identifier string) (*pipeline.Result, error)
}

// Server is the query API
type Server struct {
	addr      string
	logger    *slog.Logger
	router    *chi.Mux
	reader    Reader
	extractor Extractor
}

// NewServer builds the router. extractor may be nil to serve stored records only.
func NewServer(addr string, reader Reader, extractor Extractor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:      addr,
		logger:    logger,
		router:    chi.NewRouter(),
		reader:    reader,
		extractor: extractor,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	s.router.Route("/substances", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Get("/{cas}", s.handleLookup)
	})
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// ListResponse is the paginated listing body
type ListResponse struct {
	Status       string          `json:"status"`
	CurrentPage  int             `json:"currentPage"`
	TotalPages   int             `json:"totalPages"`
	ItemsPerPage int             `json:"itemsPerPage"`
	ItemsInPage  int             `json:"itemsInPage"`
	TotalItems   int             `json:"totalItems"`
	Items        []store.Summary `json:"items"`
}

// LookupResponse wraps a single record
type LookupResponse struct {
	Status string `json:"status"`
	Items  []any  `json:"items"`
}

// ErrorResponse is returned with every non-2xx status
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.reader.Count(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	page, err := positiveParam(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	perPage, err := positiveParam(r, "per_page", defaultPerPage)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	total, err := s.reader.Count(r.Context())
	if err != nil {
		s.logger.Error("count failed", "err", err)
		writeError(w, http.StatusInternalServerError, "store error")
		return
	}

	totalPages := (total + perPage - 1) / perPage
	items := []store.Summary{}
	// Pages past the end are empty and never reach the offset computation
	if page <= totalPages {
		items, err = s.reader.List(r.Context(), (page-1)*perPage, perPage)
		if err != nil {
			s.logger.Error("list failed", "err", err)
			writeError(w, http.StatusInternalServerError, "store error")
			return
		}
	}

	writeJSON(w, http.StatusOK, ListResponse{
		Status:       "ok",
		CurrentPage:  page,
		TotalPages:   totalPages,
		ItemsPerPage: perPage,
		ItemsInPage:  len(items),
		TotalItems:   total,
		Items:        items,
	})
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "cas")
	cas, err := strconv.ParseInt(strings.ReplaceAll(raw, "-", ""), 10, 64)
	if err != nil || cas <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid CAS number %q", raw))
		return
	}

	doc, err := s.reader.Get(r.Context(), cas)
	if err == nil {
		writeJSON(w, http.StatusOK, LookupResponse{Status: "ok", Items: []any{doc}})
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		s.logger.Error("get failed", "cas", cas, "err", err)
		writeError(w, http.StatusInternalServerError, "store error")
		return
	}

	if s.extractor == nil {
		writeError(w, http.StatusNotFound, "substance not found")
		return
	}

	result, err := s.extractor.Process(r.Context(), strconv.FormatInt(cas, 10))
	if err != nil {
		s.logger.Warn("on-demand extraction failed", "cas", cas, "err", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if result.Substance == nil {
		writeError(w, http.StatusNotFound, "substance not found")
		return
	}
	writeJSON(w, http.StatusOK, LookupResponse{Status: "ok", Items: []any{result.Substance}})
}

// positiveParam reads an optional integer query parameter that must be >= 1
func positiveParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return n, nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Status: "error", Message: message})
}
